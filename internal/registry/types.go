package registry

import "time"

// House is the top-level grouping for rooms and nodes.
//
// A single Core instance typically manages one house, but the data model
// supports several (e.g., a main house and an annexe on one broker).
type House struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns an independent copy of the house.
func (h *House) DeepCopy() *House {
	if h == nil {
		return nil
	}
	out := *h
	return &out
}

// Room groups the nodes that light a single physical space.
//
// Motion sessions, schedules, and immunity preferences are all keyed by
// (house, room), so a room is the unit of motion automation.
type Room struct {
	ID        string    `json:"id"`
	HouseID   string    `json:"house_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns an independent copy of the room.
func (r *Room) DeepCopy() *Room {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

// Node is a single lighting controller on the MQTT bus.
//
// The ID doubles as the node's topic segment: a node with ID "kitchen-1"
// listens on "ul/kitchen-1/cmd/#" and reports on "ul/kitchen-1/evt/#".
type Node struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns an independent copy of the node.
func (n *Node) DeepCopy() *Node {
	if n == nil {
		return nil
	}
	out := *n
	return &out
}
