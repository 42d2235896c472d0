// internal/core/domain/product.go
package domain

import "strings"

// Tracking represents the lot/serial tracking mode of a product.
type Tracking string

const (
	TrackingNone   Tracking = "none"
	TrackingLot    Tracking = "lot"
	TrackingSerial Tracking = "serial"
)

// Product is a sellable/storable inventory item.
type Product struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Code     string   `json:"code,omitempty"`
	Barcode  string   `json:"barcode,omitempty"`
	UoMID    int64    `json:"uom_id"`
	Tracking Tracking `json:"tracking"`
	Active   bool     `json:"active"`
}

// RequiresSerial reports whether every unit needs an individual serial.
func (p *Product) RequiresSerial() bool { return p.Tracking == TrackingSerial }

// RequiresLot reports whether units are tracked by lot/series.
func (p *Product) RequiresLot() bool { return p.Tracking == TrackingLot }

// Lot is a scannable lot/series/serial entity owned by a product.
type Lot struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProductID int64  `json:"product_id"`
	CompanyID int64  `json:"company_id"`
}

// FakeSerialPrefix is the reserved prefix of synthetic serial numbers
// generated when serial tracking is mandatory but nothing was scanned.
const FakeSerialPrefix = "wb_fake_"

// IsFakeSerial reports whether the serial carries the synthetic prefix.
func IsFakeSerial(serial string) bool {
	return strings.HasPrefix(serial, FakeSerialPrefix)
}

// Location is a storage location node. ParentPath is the materialized
// ancestor chain in the form "/1/7/12/", root first.
type Location struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CompleteName string `json:"complete_name"`
	Barcode      string `json:"barcode,omitempty"`
	ParentID     *int64 `json:"parent_id,omitempty"`
	ParentPath   string `json:"parent_path"`
	Usage        string `json:"usage"`
	WarehouseID  *int64 `json:"warehouse_id,omitempty"`
	CompanyID    *int64 `json:"company_id,omitempty"`
	Active       bool   `json:"active"`
	HasChildren  bool   `json:"has_children"`
}

// Contains reports whether other is l itself or a descendant of l.
func (l *Location) Contains(other *Location) bool {
	return strings.HasPrefix(other.ParentPath, l.ParentPath)
}

// RouteSteps describes a warehouse reception or delivery flow.
type RouteSteps string

const (
	ReceptionOneStep RouteSteps = "one_step"
	DeliveryShipOnly RouteSteps = "ship_only"
)

// Warehouse is an operating site with its route configuration.
type Warehouse struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Code           string     `json:"code"`
	CompanyID      int64      `json:"company_id"`
	ReceptionSteps RouteSteps `json:"reception_steps"`
	DeliverySteps  RouteSteps `json:"delivery_steps"`
	Active         bool       `json:"active"`
}

// Partner is a customer or vendor counterparty.
type Partner struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}
