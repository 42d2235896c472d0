// internal/core/ports/settings.go
package ports

import (
	"context"

	"warebridge/internal/core/domain"
)

// SettingsProvider yields the tenant-level feature flags. The core takes
// one immutable snapshot per request and never writes settings.
type SettingsProvider interface {
	Snapshot(ctx context.Context) (domain.Settings, error)
}
