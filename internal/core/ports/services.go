// internal/core/ports/services.go
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/query"
)

// DeviceInfo carries handheld metadata. It is used only for generated
// names and labels, never for authorization.
type DeviceInfo struct {
	UserID           string `json:"userId,omitempty"`
	DeviceID         string `json:"deviceId,omitempty"`
	DocumentID       string `json:"documentId,omitempty"`
	DocumentTypeName string `json:"documentTypeName,omitempty"`
}

// DocumentHeader is the client-facing description of a document.
type DocumentHeader struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	DocumentTypeName      string `json:"documentTypeName"`
	SourceLocationID      string `json:"sourceLocationId,omitempty"`
	DestinationLocationID string `json:"destinationLocationId,omitempty"`
	CustomerVendorID      string `json:"customerVendorId,omitempty"`
}

// APILine is the client-facing shape of one expected or actual line.
type APILine struct {
	UID                   string          `json:"uid"`
	InventoryItemID       string          `json:"inventoryItemId"`
	ExpectedQuantity      decimal.Decimal `json:"expectedQuantity"`
	ActualQuantity        decimal.Decimal `json:"actualQuantity"`
	SerialNumber          string          `json:"serialNumber,omitempty"`
	SeriesName            string          `json:"seriesName,omitempty"`
	FirstStorageID        string          `json:"firstStorageId,omitempty"`
	BindedDocumentLineUID string          `json:"bindedDocumentLineUid,omitempty"`
}

// DocumentDetails is a document with its line projections.
type DocumentDetails struct {
	DocumentHeader
	ExpectedLines []APILine `json:"expectedLines,omitempty"`
	ActualLines   []APILine `json:"actualLines,omitempty"`
}

// DocumentList is a page of document headers.
type DocumentList struct {
	Result     []DocumentHeader `json:"result"`
	TotalCount *int64           `json:"totalCount,omitempty"`
}

// BusinessProcessSetting is one per-submission override flag.
type BusinessProcessSetting struct {
	SettingName  string `json:"settingName"`
	SettingValue string `json:"settingValue"`
}

// SubmitRequest is a finished-document submission from the device. ID is
// the store document id, or empty when the document was created on the
// device and must be assembled from its actual lines.
type SubmitRequest struct {
	ID                      string                   `json:"id,omitempty"`
	Name                    string                   `json:"name,omitempty"`
	DocumentTypeName        string                   `json:"documentTypeName"`
	WarehouseID             string                   `json:"warehouseId,omitempty"`
	CustomerVendorID        string                   `json:"customerVendorId,omitempty"`
	UserID                  string                   `json:"userId,omitempty"`
	DeviceID                string                   `json:"deviceId,omitempty"`
	ScanLocations           *bool                    `json:"scanLocations,omitempty"`
	ActualLines             []domain.ReportedLine    `json:"actualLines"`
	BusinessProcessSettings []BusinessProcessSetting `json:"businessProcessSettings,omitempty"`
}

// DocumentService is the application port for document operations.
type DocumentService interface {
	Descriptions(ctx context.Context, typeName string, limit, offset int, withCount bool) (*DocumentList, error)
	Document(ctx context.Context, searchMode, searchCode, typeName string) (*DocumentDetails, error)
	Submit(ctx context.Context, req SubmitRequest) error
}

// TableQuery is a generic table rows request.
type TableQuery struct {
	Table     string            `json:"table"`
	Where     *query.FilterNode `json:"whereTreeRoot,omitempty"`
	Device    DeviceInfo        `json:"deviceInfo,omitempty"`
	Offset    int               `json:"offset"`
	Limit     int               `json:"limit"`
	WithCount bool              `json:"requestCount"`
}

// TableRows is a page of table rows. Row shapes are table-specific.
type TableRows struct {
	Result     []any  `json:"result"`
	TotalCount *int64 `json:"totalCount,omitempty"`
}

// TableService is the application port for generic table queries.
type TableService interface {
	Rows(ctx context.Context, req TableQuery) (*TableRows, error)
}
