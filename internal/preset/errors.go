package preset

import "errors"

// Domain errors for the preset package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, preset.ErrPresetNotFound) {
//	    // handle not found case
//	}
var (
	// ErrPresetNotFound is returned when a (house, room, id) triple does not exist.
	ErrPresetNotFound = errors.New("preset: not found")

	// ErrPresetExists is returned when creating a preset that already exists.
	ErrPresetExists = errors.New("preset: already exists")

	// ErrInvalidPreset is returned when preset validation fails.
	ErrInvalidPreset = errors.New("preset: invalid")

	// ErrInvalidAction is returned when action validation fails.
	ErrInvalidAction = errors.New("preset: invalid action")

	// ErrInvalidModule is returned when an action's module is not recognised.
	ErrInvalidModule = errors.New("preset: invalid module")

	// ErrMissingType is returned when reversing an action that carries no type.
	ErrMissingType = errors.New("preset: action has no type")

	// ErrUnknownType is returned when an action's type has no registered reverser.
	ErrUnknownType = errors.New("preset: unknown action type")

	// ErrDuplicateType is returned when registering an action type twice.
	ErrDuplicateType = errors.New("preset: action type already registered")
)
