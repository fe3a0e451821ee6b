// Package cmn holds the error kinds shared across every sloked package,
// wrapped via github.com/pkg/errors so call-site context never hides the
// sentinel underneath.
package cmn

import "github.com/pkg/errors"

// Sentinel error kinds, matched with errors.Is after unwrapping.
var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidFrame    = errors.New("invalid frame")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRestricted      = errors.New("restricted")
	ErrUnknownService  = errors.New("unknown service")
	ErrNameExists      = errors.New("name exists")
	ErrClosed          = errors.New("closed")
	ErrTimeout         = errors.New("timeout")
	ErrCancelled       = errors.New("cancelled")
	ErrIO              = errors.New("io error")
	ErrOverlap         = errors.New("overlapping fragment")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrServiceExists   = errors.New("service already allocated")
)

// Wrap attaches call-site context to a sentinel error kind without losing
// the ability to errors.Is(err, ErrX) downstream.
func Wrap(kind error, context string) error {
	return errors.Wrap(kind, context)
}

// Wrapf is Wrap with Sprintf-style context.
func Wrapf(kind error, format string, args ...interface{}) error {
	return errors.Wrapf(kind, format, args...)
}
