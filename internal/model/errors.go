package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error taxonomy shared by the stores, the engine and the HTTP layer.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrConflict          = errors.New("conflict")
	ErrUnavailable       = errors.New("unavailable")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

// UnavailableSystemsError lists every system id that cannot take part in an allocation.
type UnavailableSystemsError struct {
	IDs []int
}

func (e *UnavailableSystemsError) Error() string {
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("%v: systems unavailable or don't exist: %s", ErrInvalidArgument, strings.Join(parts, ", "))
}

func (e *UnavailableSystemsError) Unwrap() error {
	return ErrInvalidArgument
}

// InvalidArgumentf builds an ErrInvalidArgument with a formatted detail.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Code returns a stable snake_case name for the class of err, "ok" for nil and
// "internal" for errors outside the taxonomy.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "internal"
	}
}
