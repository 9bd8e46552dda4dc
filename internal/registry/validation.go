package registry

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// maxNameLength is the maximum length for house, room, and node names.
const maxNameLength = 100

// idPattern matches valid identifiers. Node IDs become MQTT topic
// segments, so the character set excludes '/', '+', and '#'.
var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateHouse checks that a house is structurally valid.
func ValidateHouse(h *House) error {
	if err := validateIdentifier(h.ID); err != nil {
		return err
	}
	return validateName(h.Name)
}

// ValidateRoom checks that a room is structurally valid.
func ValidateRoom(r *Room) error {
	if err := validateIdentifier(r.ID); err != nil {
		return err
	}
	if err := validateIdentifier(r.HouseID); err != nil {
		return fmt.Errorf("%w: house_id %q", ErrInvalidID, r.HouseID)
	}
	return validateName(r.Name)
}

// ValidateNode checks that a node is structurally valid.
func ValidateNode(n *Node) error {
	if err := validateIdentifier(n.ID); err != nil {
		return err
	}
	if err := validateIdentifier(n.RoomID); err != nil {
		return fmt.Errorf("%w: room_id %q", ErrInvalidID, n.RoomID)
	}
	return validateName(n.Name)
}

// validateIdentifier checks an ID against the allowed pattern.
func validateIdentifier(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q (must match %s)", ErrInvalidID, id, idPattern.String())
	}
	return nil
}

// validateName checks a display name.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// GenerateID creates a new UUID for a house or room.
//
// Node IDs are not generated: they must match the identifier the firmware
// was flashed with, since the ID selects the node's MQTT topic subtree.
func GenerateID() string {
	return uuid.New().String()
}
