package appError

import (
	"errors"
	"fmt"

	"custody-engine/utility/errorcode"
)

// Err carries an error-taxonomy type alongside the underlying cause.
type Err struct {
	ErrCode int
	ErrType string
	Err     error
}

func (e Err) Error() string {
	return fmt.Sprintf("%s", e.Err)
}

func (e Err) Unwrap() error {
	return e.Err
}

// New builds a taxonomy error of the given type.
func New(errType string, err error) Err {
	return Err{ErrType: errType, Err: err}
}

// Type returns the taxonomy type of err, or SERVER_ERR for untyped errors.
func Type(err error) string {
	var appErr Err
	if errors.As(err, &appErr) {
		return appErr.ErrType
	}
	return errorcode.SERVER_ERR
}

// IsType reports whether err carries the given taxonomy type.
func IsType(err error, errType string) bool {
	return Type(err) == errType
}

// IsRetryable reports whether err is transient and safe to retry.
// Only RPC_UNAVAILABLE is retryable; a rejected broadcast is terminal because
// re-signing and re-submitting risks double-spending the swept balance.
func IsRetryable(err error) bool {
	return IsType(err, errorcode.RPC_UNAVAILABLE)
}
