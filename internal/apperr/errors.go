package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Sentinel errors for the chat core. Handlers translate these to HTTP
// statuses; everything that doesn't wrap one of them is a 500.
var (
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Validationf wraps ErrValidation with a caller-facing reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// StatusCode maps an error to the HTTP status reported to the caller.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
