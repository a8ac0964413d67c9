package cycle

import (
	"errors"
	"fmt"

	"github.com/ilkecan/manyverse/internal/scope"
)

// WiringErrorCode categorizes composition mistakes.
type WiringErrorCode string

const (
	// ErrCodeDuplicateScope: two siblings were given the same name.
	ErrCodeDuplicateScope WiringErrorCode = "DUPLICATE_SCOPE"

	// ErrCodeInvalidScope: the scope name is empty or contains a separator.
	ErrCodeInvalidScope WiringErrorCode = "INVALID_SCOPE"
)

// WiringError is a composition-time mistake. It is logged and the offending
// module is left unmounted; siblings keep working.
type WiringError struct {
	Code   WiringErrorCode
	Scope  string
	Parent string
	Err    error
}

// Error implements the error interface.
func (e *WiringError) Error() string {
	return fmt.Sprintf("%s: scope %q under %q: %v", e.Code, e.Scope, e.Parent, e.Err)
}

// Unwrap returns the underlying scope error.
func (e *WiringError) Unwrap() error {
	return e.Err
}

func newWiringError(name, parent string, err error) *WiringError {
	code := ErrCodeInvalidScope
	if errors.Is(err, scope.ErrDuplicateScope) {
		code = ErrCodeDuplicateScope
	}
	return &WiringError{Code: code, Scope: name, Parent: parent, Err: err}
}
