// internal/core/domain/document.go
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DocumentState mirrors the store-side document lifecycle.
type DocumentState string

const (
	StateDraft    DocumentState = "draft"
	StateAssigned DocumentState = "assigned"
	StateDone     DocumentState = "done"
	StateCancel   DocumentState = "cancel"
)

// Document is a warehouse movement document (one receiving, allocation,
// pick or ship order) with a source and a destination location.
type Document struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Category       DocumentCategory `json:"category"`
	State          DocumentState    `json:"state"`
	LocationID     int64            `json:"location_id"`
	LocationDestID int64            `json:"location_dest_id"`
	CompanyID      int64            `json:"company_id"`
	PartnerID      *int64           `json:"partner_id,omitempty"`
	Origin         string           `json:"origin,omitempty"`
}

// MainLocationID returns the authoritative location for the document's
// category (source or destination side).
func (d *Document) MainLocationID(desc TypeDescriptor) int64 {
	if desc.MainLocationSide == SideDestination {
		return d.LocationDestID
	}
	return d.LocationID
}

// DocumentLine is a store-side line of a document: a planned (expected)
// movement of a product plus the quantity already fulfilled against it.
// LotID and LotName are mutually exclusive; LotName holds a free-text
// lot/serial pending lazy creation by the store.
type DocumentLine struct {
	ID             int64           `json:"id"`
	DocumentID     int64           `json:"document_id"`
	MoveID         *int64          `json:"move_id,omitempty"`
	ProductID      int64           `json:"product_id"`
	UoMID          int64           `json:"uom_id"`
	Expected       decimal.Decimal `json:"expected"`
	Done           decimal.Decimal `json:"done"`
	LotID          *int64          `json:"lot_id,omitempty"`
	LotName        string          `json:"lot_name,omitempty"`
	ResolvedLot    string          `json:"resolved_lot,omitempty"`
	LocationID     int64           `json:"location_id"`
	LocationDestID int64           `json:"location_dest_id"`
	Picked         bool            `json:"picked"`
	CompanyID      int64           `json:"company_id"`
}

// Room returns the remaining capacity of the line.
func (l *DocumentLine) Room() decimal.Decimal {
	return l.Expected.Sub(l.Done)
}

// Fulfilled reports whether the line is at (or beyond) its expected quantity.
func (l *DocumentLine) Fulfilled() bool {
	return l.Done.GreaterThanOrEqual(l.Expected)
}

// LotValue returns the effective lot/serial identifier of the line: the
// resolved lot entity name when bound by reference, the free-text name
// otherwise.
func (l *DocumentLine) LotValue() string {
	if l.LotID != nil {
		return l.ResolvedLot
	}
	return l.LotName
}

// HasLot reports whether any lot/serial is attached to the line.
func (l *DocumentLine) HasLot() bool {
	return l.LotID != nil || l.LotName != ""
}

// EffectiveLocationID returns the line location on the document's main side.
func (l *DocumentLine) EffectiveLocationID(desc TypeDescriptor) int64 {
	if desc.MainLocationSide == SideDestination {
		return l.LocationDestID
	}
	return l.LocationID
}

// ReportedLine is one scan record submitted by the handheld device. It is
// ephemeral: Quantity is consumed in place while the distributor allocates
// it across document lines, and SerialNumber may be rolled over to a fresh
// fake serial between iterations.
type ReportedLine struct {
	UID          string          `json:"uid"`
	ProductID    int64           `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	SerialNumber string          `json:"serial_number,omitempty"`
	SeriesName   string          `json:"series_name,omitempty"`
	StorageID    *int64          `json:"storage_id,omitempty"`
	BoundLineID  *int64          `json:"bound_line_id,omitempty"`
	Barcode      string          `json:"barcode,omitempty"`
	UoMID        int64           `json:"uom_id,omitempty"`
}

// LotOrSerial returns whichever lot identifier the device reported for the
// given tracking mode.
func (r *ReportedLine) LotOrSerial(tracking Tracking) string {
	switch tracking {
	case TrackingSerial:
		return r.SerialNumber
	case TrackingLot:
		return r.SeriesName
	}
	return ""
}

// LineDelta is an explicit field delta applied atomically to a document
// line by the store adapter. Nil fields are untouched. Lot binding is
// tri-state: untouched, bound by reference (LotID set, name cleared) or
// deferred free-text (LotName set, reference cleared).
type LineDelta struct {
	Done           *decimal.Decimal
	Picked         *bool
	CompanyID      *int64
	LocationID     *int64
	LocationDestID *int64

	lotTouched bool
	lotID      *int64
	lotName    string
}

// SetDone stages a new fulfilled quantity.
func (d *LineDelta) SetDone(qty decimal.Decimal) *LineDelta {
	d.Done = &qty
	return d
}

// SetPicked stages the picked flag.
func (d *LineDelta) SetPicked(picked bool) *LineDelta {
	d.Picked = &picked
	return d
}

// SetCompany stages the owning company.
func (d *LineDelta) SetCompany(companyID int64) *LineDelta {
	d.CompanyID = &companyID
	return d
}

// BindLot stages a lot binding by reference and clears any free-text name.
func (d *LineDelta) BindLot(lotID int64) *LineDelta {
	d.lotTouched = true
	d.lotID = &lotID
	d.lotName = ""
	return d
}

// BindLotName stages a deferred free-text lot and clears the reference.
func (d *LineDelta) BindLotName(name string) *LineDelta {
	d.lotTouched = true
	d.lotID = nil
	d.lotName = name
	return d
}

// LotBinding returns the staged lot change. touched is false when the lot
// fields must be left alone.
func (d *LineDelta) LotBinding() (lotID *int64, lotName string, touched bool) {
	return d.lotID, d.lotName, d.lotTouched
}

// Apply mutates an in-memory line with the staged delta. The store adapter
// performs the equivalent write; Apply keeps per-submission snapshots in
// sync without re-reading the store.
func (d *LineDelta) Apply(line *DocumentLine) {
	if d.Done != nil {
		line.Done = *d.Done
	}
	if d.Picked != nil {
		line.Picked = *d.Picked
	}
	if d.CompanyID != nil {
		line.CompanyID = *d.CompanyID
	}
	if d.LocationID != nil {
		line.LocationID = *d.LocationID
	}
	if d.LocationDestID != nil {
		line.LocationDestID = *d.LocationDestID
	}
	if d.lotTouched {
		line.LotID = d.lotID
		line.LotName = d.lotName
		if d.lotID == nil {
			line.ResolvedLot = ""
		}
	}
}

// NewLine is the creation payload for a brand-new document line produced by
// the distributor when no existing line can absorb a reported quantity.
type NewLine struct {
	DocumentID     int64
	MoveID         *int64
	ProductID      int64
	UoMID          int64
	Expected       decimal.Decimal
	Done           decimal.Decimal
	LotID          *int64
	LotName        string
	LocationID     int64
	LocationDestID int64
	Picked         bool
	CompanyID      int64
}

// Validate checks the creation payload before it reaches the store.
func (n *NewLine) Validate() error {
	if n.DocumentID == 0 {
		return fmt.Errorf("%w: new line requires a document", ErrValidation)
	}
	if n.ProductID == 0 {
		return fmt.Errorf("%w: new line requires a product", ErrValidation)
	}
	if n.Done.IsNegative() {
		return fmt.Errorf("%w: done quantity cannot be negative", ErrValidation)
	}
	return nil
}
