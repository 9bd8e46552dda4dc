package registry

import "errors"

// Domain errors for the registry package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, registry.ErrNodeNotFound) {
//	    // handle not found case
//	}
var (
	// ErrHouseNotFound is returned when a house ID does not exist.
	ErrHouseNotFound = errors.New("registry: house not found")

	// ErrRoomNotFound is returned when a room ID does not exist.
	ErrRoomNotFound = errors.New("registry: room not found")

	// ErrNodeNotFound is returned when a node ID does not exist.
	ErrNodeNotFound = errors.New("registry: node not found")

	// ErrHouseExists is returned when creating a house with an ID that already exists.
	ErrHouseExists = errors.New("registry: house already exists")

	// ErrRoomExists is returned when creating a room with an ID that already exists.
	ErrRoomExists = errors.New("registry: room already exists")

	// ErrNodeExists is returned when creating a node with an ID that already exists.
	ErrNodeExists = errors.New("registry: node already exists")

	// ErrInvalidID is returned when an identifier fails validation.
	ErrInvalidID = errors.New("registry: invalid id")

	// ErrInvalidName is returned when a name is empty or too long.
	ErrInvalidName = errors.New("registry: invalid name")
)
