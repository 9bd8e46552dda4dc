package registry

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Placement is the fully resolved location of a node.
type Placement struct {
	House House
	Room  Room
	Node  Node
}

// Registry provides topology management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The hot path is FindNode: every inbound MQTT event carries only a node
// ID and must be resolved to its room and house before any motion logic
// runs, so that resolution never touches the database.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo Repository

	cacheMu sync.RWMutex
	houses  map[string]*House
	rooms   map[string]*Room
	nodes   map[string]*Node

	logger Logger

	// onRoomDeleted and onNodeDeleted notify dependents (schedule and
	// preference stores) so per-room and per-node state can be cleaned up.
	onRoomDeleted func(houseID, roomID string)
	onNodeDeleted func(nodeID string)
}

// NewRegistry creates a new topology registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		houses: make(map[string]*House),
		rooms:  make(map[string]*Room),
		nodes:  make(map[string]*Node),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetOnRoomDeleted sets a callback invoked after a room is deleted.
func (r *Registry) SetOnRoomDeleted(fn func(houseID, roomID string)) {
	r.onRoomDeleted = fn
}

// SetOnNodeDeleted sets a callback invoked after a node is deleted.
func (r *Registry) SetOnNodeDeleted(fn func(nodeID string)) {
	r.onNodeDeleted = fn
}

// RefreshCache reloads the full topology from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	houses, err := r.repo.ListHouses(ctx)
	if err != nil {
		return fmt.Errorf("loading houses: %w", err)
	}
	rooms, err := r.repo.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("loading rooms: %w", err)
	}
	nodes, err := r.repo.ListNodes(ctx)
	if err != nil {
		return fmt.Errorf("loading nodes: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.houses = make(map[string]*House, len(houses))
	for i := range houses {
		h := houses[i]
		r.houses[h.ID] = h.DeepCopy()
	}
	r.rooms = make(map[string]*Room, len(rooms))
	for i := range rooms {
		rm := rooms[i]
		r.rooms[rm.ID] = rm.DeepCopy()
	}
	r.nodes = make(map[string]*Node, len(nodes))
	for i := range nodes {
		n := nodes[i]
		r.nodes[n.ID] = n.DeepCopy()
	}

	r.logger.Info("topology cache refreshed",
		"houses", len(houses), "rooms", len(rooms), "nodes", len(nodes))
	return nil
}

// FindNode resolves a node ID to its full placement (house, room, node).
// Returns ErrNodeNotFound if the node is unknown, ErrRoomNotFound or
// ErrHouseNotFound if the topology is inconsistent.
//
// This is a cache-only lookup; events from unregistered nodes are not
// worth a database round-trip.
func (r *Registry) FindNode(nodeID string) (*Placement, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	node, ok := r.nodes[nodeID]
	if !ok {
		return nil, ErrNodeNotFound
	}
	room, ok := r.rooms[node.RoomID]
	if !ok {
		return nil, fmt.Errorf("%w: node %q references room %q", ErrRoomNotFound, nodeID, node.RoomID)
	}
	house, ok := r.houses[room.HouseID]
	if !ok {
		return nil, fmt.Errorf("%w: room %q references house %q", ErrHouseNotFound, room.ID, room.HouseID)
	}

	return &Placement{
		House: *house.DeepCopy(),
		Room:  *room.DeepCopy(),
		Node:  *node.DeepCopy(),
	}, nil
}

// FindRoom resolves a room ID to the room and its house.
func (r *Registry) FindRoom(roomID string) (*Room, *House, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	house, ok := r.houses[room.HouseID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: room %q references house %q", ErrHouseNotFound, roomID, room.HouseID)
	}
	return room.DeepCopy(), house.DeepCopy(), nil
}

// NodesInRoom retrieves all nodes in a specific room.
// The returned nodes are deep copies; callers can safely modify them.
func (r *Registry) NodesInRoom(roomID string) []Node {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	var nodes []Node
	for _, n := range r.nodes {
		if n.RoomID == roomID {
			nodes = append(nodes, *n.DeepCopy())
		}
	}
	return nodes
}

// RoomsInHouse retrieves all rooms in a specific house.
// The returned rooms are deep copies; callers can safely modify them.
func (r *Registry) RoomsInHouse(houseID string) []Room {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	var rooms []Room
	for _, rm := range r.rooms {
		if rm.HouseID == houseID {
			rooms = append(rooms, *rm.DeepCopy())
		}
	}
	return rooms
}

// ListNodes retrieves all known nodes.
// The returned nodes are deep copies; callers can safely modify them.
func (r *Registry) ListNodes() []Node {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	nodes := make([]Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		nodes = append(nodes, *n.DeepCopy())
	}
	return nodes
}

// CreateHouse creates a new house.
// It validates the house, generates an ID if needed, and persists it.
func (r *Registry) CreateHouse(ctx context.Context, house *House) error {
	if house.ID == "" {
		house.ID = GenerateID()
	}
	if err := ValidateHouse(house); err != nil {
		return err
	}
	if err := r.repo.CreateHouse(ctx, house); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.houses[house.ID] = house.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("house created", "id", house.ID, "name", house.Name)
	return nil
}

// CreateRoom creates a new room in an existing house.
func (r *Registry) CreateRoom(ctx context.Context, room *Room) error {
	if room.ID == "" {
		room.ID = GenerateID()
	}
	if err := ValidateRoom(room); err != nil {
		return err
	}

	r.cacheMu.RLock()
	_, houseOK := r.houses[room.HouseID]
	r.cacheMu.RUnlock()
	if !houseOK {
		return ErrHouseNotFound
	}

	if err := r.repo.CreateRoom(ctx, room); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.rooms[room.ID] = room.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("room created", "id", room.ID, "house_id", room.HouseID, "name", room.Name)
	return nil
}

// CreateNode registers a new node in an existing room.
//
// The node ID is never generated: it must match the identifier the
// firmware announces itself with on the bus.
func (r *Registry) CreateNode(ctx context.Context, node *Node) error {
	if err := ValidateNode(node); err != nil {
		return err
	}

	r.cacheMu.RLock()
	_, roomOK := r.rooms[node.RoomID]
	r.cacheMu.RUnlock()
	if !roomOK {
		return ErrRoomNotFound
	}

	if err := r.repo.CreateNode(ctx, node); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.nodes[node.ID] = node.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("node registered", "id", node.ID, "room_id", node.RoomID, "name", node.Name)
	return nil
}

// UpdateRoom updates an existing room.
func (r *Registry) UpdateRoom(ctx context.Context, room *Room) error {
	if err := ValidateRoom(room); err != nil {
		return err
	}
	if err := r.repo.UpdateRoom(ctx, room); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.rooms[room.ID] = room.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("room updated", "id", room.ID, "name", room.Name)
	return nil
}

// UpdateNode updates an existing node.
func (r *Registry) UpdateNode(ctx context.Context, node *Node) error {
	if err := ValidateNode(node); err != nil {
		return err
	}
	if err := r.repo.UpdateNode(ctx, node); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.nodes[node.ID] = node.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("node updated", "id", node.ID, "name", node.Name)
	return nil
}

// DeleteRoom removes a room and evicts its nodes from the cache.
// The room deletion callback fires after the cache is consistent.
func (r *Registry) DeleteRoom(ctx context.Context, id string) error {
	r.cacheMu.RLock()
	room, ok := r.rooms[id]
	var houseID string
	if ok {
		houseID = room.HouseID
	}
	r.cacheMu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}

	if err := r.repo.DeleteRoom(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.rooms, id)
	for nodeID, n := range r.nodes {
		if n.RoomID == id {
			delete(r.nodes, nodeID)
		}
	}
	r.cacheMu.Unlock()

	r.logger.Info("room deleted", "id", id, "house_id", houseID)
	if r.onRoomDeleted != nil {
		r.onRoomDeleted(houseID, id)
	}
	return nil
}

// DeleteNode removes a node.
// The node deletion callback fires after the cache is consistent.
func (r *Registry) DeleteNode(ctx context.Context, id string) error {
	if err := r.repo.DeleteNode(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.nodes, id)
	r.cacheMu.Unlock()

	r.logger.Info("node deleted", "id", id)
	if r.onNodeDeleted != nil {
		r.onNodeDeleted(id)
	}
	return nil
}

// NodeCount returns the number of cached nodes.
func (r *Registry) NodeCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.nodes)
}
