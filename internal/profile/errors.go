package profile

import (
	"errors"
	"fmt"

	"github.com/thuddle/api/internal/imaging"
)

// ErrNotFound is returned when the profile, its picture, or the stored object
// does not exist. The fetch path deliberately does not say which.
var ErrNotFound = errors.New("not found")

// Validation reasons.
const (
	ReasonEmpty       = "empty"
	ReasonTooLarge    = "too-large"
	ReasonDisplayName = "display-name"
)

// ValidationError reports user-correctable input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// IsValidation reports whether err is a ValidationError with the given reason.
// An empty reason matches any ValidationError.
func IsValidation(err error, reason string) bool {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	return reason == "" || verr.Reason == reason
}

// isImageError reports whether err is an unprocessable-image failure.
func isImageError(err error) bool {
	return errors.Is(err, imaging.ErrDecode) || errors.Is(err, imaging.ErrResize)
}
