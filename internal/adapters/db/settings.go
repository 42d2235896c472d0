// internal/adapters/db/settings.go
package db

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
)

// SettingsProvider reads the tenant feature flags from the app_settings
// key/value table. Every call produces a fresh snapshot; callers that need
// request-scoped stability take one snapshot and pass it down.
type SettingsProvider struct {
	db     *Database
	logger *slog.Logger
}

var _ ports.SettingsProvider = (*SettingsProvider)(nil)

func NewSettingsProvider(db *Database, logger *slog.Logger) *SettingsProvider {
	return &SettingsProvider{
		db:     db,
		logger: logger.With(slog.String("repository", "settings")),
	}
}

func (p *SettingsProvider) Snapshot(ctx context.Context) (domain.Settings, error) {
	rows, err := p.db.Query(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.Settings{}, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return domain.Settings{}, err
	}

	return domain.Settings{
		UseFakeSerials: boolSetting(values, domain.SettingUseFakeSerials, false),
		// The stored flag says whether backorders auto-create; the snapshot
		// carries its negation.
		SuppressBackorders:            !boolSetting(values, domain.SettingAutoCreateBackorders, true),
		DefaultScanLocations:          boolSetting(values, domain.SettingDefaultScanLocations, false),
		AllowOnlyLowestLevelLocations: boolSetting(values, domain.SettingOnlyLowestLocations, false),
		ShipExpectedActualLines:       boolSetting(values, domain.SettingShipExpectedActuals, false),
	}, nil
}

// Put writes one setting. The seeder and tests use it; the API surface
// never mutates settings.
func (p *SettingsProvider) Put(ctx context.Context, key, value string) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO app_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to store setting %q: %w", key, err)
	}

	p.logger.DebugContext(ctx, "setting stored",
		slog.String("key", key),
		slog.String("value", value))
	return nil
}

func boolSetting(values map[string]string, key string, fallback bool) bool {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
