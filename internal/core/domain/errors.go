// internal/core/domain/errors.go
package domain

import "errors"

// Error kinds surfaced by the core. Every failure aborts the whole
// submission; the transport layer maps these to protocol responses.
var (
	// ErrNotFound marks a referenced document, product, warehouse or lot
	// that is absent or inactive at lookup time.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks malformed or missing input (product reference,
	// required serial/lot, unsupported category, bad numeric fields).
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a consistency conflict (location outside the
	// document's main location, barcode collision, duplicated setting key).
	ErrConflict = errors.New("conflict")

	// ErrUnsupported marks an operation the adapter does not support for
	// the given document type or warehouse route.
	ErrUnsupported = errors.New("unsupported operation")
)
