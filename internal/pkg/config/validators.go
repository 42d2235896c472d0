// internal/pkg/config/validators.go
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingRequiredConfig marks a required value that was never provided.
var ErrMissingRequiredConfig = errors.New("missing required configuration")

// validateProduction rejects configurations that are acceptable for local
// development but unsafe when the adapter faces real warehouse data.
func (c *Config) validateProduction() error {
	if strings.HasPrefix(c.Database.Password, "MISSING_") {
		return fmt.Errorf("%w: database password", ErrMissingRequiredConfig)
	}
	if c.Database.Password == "warebridge_dev" {
		return fmt.Errorf("default database password cannot be used in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database SSL must be enabled in production")
	}
	if !c.AWS.UseSecrets && c.Redis.Password == "" {
		return fmt.Errorf("redis password or secrets manager required in production")
	}
	return nil
}
