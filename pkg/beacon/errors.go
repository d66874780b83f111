package beacon

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/beacon/pkg/beacon/integration"
)

// Sentinel errors.
var (
	// ErrInvalidIntegration indicates a destination was added without a
	// name or constructor.
	ErrInvalidIntegration = integration.ErrInvalidIntegration

	// ErrUnknownMethod indicates Push or Start was given a method name the
	// pipeline does not expose.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrInvalidArgument is matched by every *ArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ArgumentError reports an argument whose kind does not fit its position.
type ArgumentError struct {
	// Method is the call the argument was passed to ("identify", "page", ...).
	Method string
	// Position is the zero-based argument index.
	Position int
	// Expected names the accepted kinds.
	Expected string
	// Got is the rejected value.
	Got any
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: argument %d must be %s, got %T", e.Method, e.Position, e.Expected, e.Got)
}

// Unwrap returns ErrInvalidArgument.
func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}
