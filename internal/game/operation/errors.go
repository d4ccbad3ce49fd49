package operation

import "errors"

// Construction errors returned by Factory.Create. They signal a caller that
// broke the operation contract; such operations are never scheduled.
var (
	// ErrZeroAmount is returned when an item movement or creation asks for no units.
	ErrZeroAmount = errors.New("operation: amount must be positive")
	// ErrInvalidAmount is returned when more units are asked for than the item holds.
	ErrInvalidAmount = errors.New("operation: amount exceeds the item")
	// ErrWrongCylinder is returned when a source or destination cylinder is
	// missing or of a kind the operation cannot use.
	ErrWrongCylinder = errors.New("operation: wrong cylinder")
	// ErrMissingThing is returned when the thing to act on was not supplied.
	ErrMissingThing = errors.New("operation: missing thing")
	// ErrMissingRequestor is returned when a player operation names no requestor.
	ErrMissingRequestor = errors.New("operation: missing requestor")
	// ErrInvalidDirection is returned for a turn or walk without a usable direction.
	ErrInvalidDirection = errors.New("operation: invalid direction")
	// ErrEmptyText is returned for speech without text.
	ErrEmptyText = errors.New("operation: empty text")
	// ErrUnknownArgs is returned when Create receives arguments it does not know.
	ErrUnknownArgs = errors.New("operation: unknown creation arguments")
	// ErrUnknownOperation is returned when Execute receives an operation it does not know.
	ErrUnknownOperation = errors.New("operation: unknown operation")
)
