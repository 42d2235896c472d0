// internal/core/domain/settings.go
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Settings is a read-only snapshot of the tenant-level feature flags,
// taken once per request. The core never mutates settings.
type Settings struct {
	// UseFakeSerials permits synthetic serial generation in receiving.
	UseFakeSerials bool `json:"use_fake_serials"`
	// SuppressBackorders prevents unfulfilled quantity from spawning a
	// follow-up document on commit. Stored under the historical
	// auto_create_backorders key, whose semantics are inverted.
	SuppressBackorders bool `json:"suppress_backorders"`
	// DefaultScanLocations is the device default for location scanning.
	DefaultScanLocations bool `json:"default_scan_locations"`
	// AllowOnlyLowestLevelLocations hides group locations from selection.
	AllowOnlyLowestLevelLocations bool `json:"allow_only_lowest_level_locations"`
	// ShipExpectedActualLines exposes zero-done actual lines on Ship
	// documents instead of hiding them.
	ShipExpectedActualLines bool `json:"ship_expected_actual_lines"`
}

// Setting keys as stored in the app_settings table.
const (
	SettingUseFakeSerials       = "use_fake_serials"
	SettingAutoCreateBackorders = "auto_create_backorders"
	SettingDefaultScanLocations = "default_scan_locations"
	SettingOnlyLowestLocations  = "allow_only_lowest_level_locations"
	SettingShipExpectedActuals  = "ship_expected_actual_lines"
)

const externalWarehouseIDPrefix = "wh_"

// ExternalWarehouseID renders a warehouse id in the client-facing form.
// Warehouses share the locations namespace on the device, so their ids
// carry a prefix to keep them apart from location ids.
func ExternalWarehouseID(id int64) string {
	return externalWarehouseIDPrefix + strconv.FormatInt(id, 10)
}

// IsExternalWarehouseID reports whether the id carries the warehouse prefix.
func IsExternalWarehouseID(id string) bool {
	return strings.HasPrefix(strings.ToLower(id), externalWarehouseIDPrefix)
}

// ParseExternalWarehouseID converts a client-facing warehouse id back to
// the store id.
func ParseExternalWarehouseID(id string) (int64, error) {
	raw := strings.TrimPrefix(strings.ToLower(id), externalWarehouseIDPrefix)
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed warehouse id %q", ErrValidation, id)
	}
	return parsed, nil
}
