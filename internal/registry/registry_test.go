package registry

import (
	"context"
	"errors"
	"testing"
)

// mockRepository is an in-memory Repository for registry tests.
type mockRepository struct {
	houses map[string]House
	rooms  map[string]Room
	nodes  map[string]Node
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		houses: make(map[string]House),
		rooms:  make(map[string]Room),
		nodes:  make(map[string]Node),
	}
}

func (m *mockRepository) GetHouse(_ context.Context, id string) (*House, error) {
	h, ok := m.houses[id]
	if !ok {
		return nil, ErrHouseNotFound
	}
	return &h, nil
}

func (m *mockRepository) ListHouses(_ context.Context) ([]House, error) {
	var out []House
	for _, h := range m.houses {
		out = append(out, h)
	}
	return out, nil
}

func (m *mockRepository) CreateHouse(_ context.Context, h *House) error {
	if _, exists := m.houses[h.ID]; exists {
		return ErrHouseExists
	}
	m.houses[h.ID] = *h
	return nil
}

func (m *mockRepository) UpdateHouse(_ context.Context, h *House) error {
	if _, ok := m.houses[h.ID]; !ok {
		return ErrHouseNotFound
	}
	m.houses[h.ID] = *h
	return nil
}

func (m *mockRepository) DeleteHouse(_ context.Context, id string) error {
	if _, ok := m.houses[id]; !ok {
		return ErrHouseNotFound
	}
	delete(m.houses, id)
	return nil
}

func (m *mockRepository) GetRoom(_ context.Context, id string) (*Room, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return &r, nil
}

func (m *mockRepository) ListRooms(_ context.Context) ([]Room, error) {
	var out []Room
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRepository) ListRoomsByHouse(_ context.Context, houseID string) ([]Room, error) {
	var out []Room
	for _, r := range m.rooms {
		if r.HouseID == houseID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepository) CreateRoom(_ context.Context, r *Room) error {
	if _, exists := m.rooms[r.ID]; exists {
		return ErrRoomExists
	}
	m.rooms[r.ID] = *r
	return nil
}

func (m *mockRepository) UpdateRoom(_ context.Context, r *Room) error {
	if _, ok := m.rooms[r.ID]; !ok {
		return ErrRoomNotFound
	}
	m.rooms[r.ID] = *r
	return nil
}

func (m *mockRepository) DeleteRoom(_ context.Context, id string) error {
	if _, ok := m.rooms[id]; !ok {
		return ErrRoomNotFound
	}
	delete(m.rooms, id)
	for nodeID, n := range m.nodes {
		if n.RoomID == id {
			delete(m.nodes, nodeID)
		}
	}
	return nil
}

func (m *mockRepository) GetNode(_ context.Context, id string) (*Node, error) {
	n, ok := m.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return &n, nil
}

func (m *mockRepository) ListNodes(_ context.Context) ([]Node, error) {
	var out []Node
	for _, n := range m.nodes {
		out = append(out, n)
	}
	return out, nil
}

func (m *mockRepository) ListNodesByRoom(_ context.Context, roomID string) ([]Node, error) {
	var out []Node
	for _, n := range m.nodes {
		if n.RoomID == roomID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockRepository) CreateNode(_ context.Context, n *Node) error {
	if _, exists := m.nodes[n.ID]; exists {
		return ErrNodeExists
	}
	m.nodes[n.ID] = *n
	return nil
}

func (m *mockRepository) UpdateNode(_ context.Context, n *Node) error {
	if _, ok := m.nodes[n.ID]; !ok {
		return ErrNodeNotFound
	}
	m.nodes[n.ID] = *n
	return nil
}

func (m *mockRepository) DeleteNode(_ context.Context, id string) error {
	if _, ok := m.nodes[id]; !ok {
		return ErrNodeNotFound
	}
	delete(m.nodes, id)
	return nil
}

// setupRegistry builds a registry over a seeded mock repository.
func setupRegistry(t *testing.T) (*Registry, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	repo.houses["home"] = House{ID: "home", Name: "Home"}
	repo.rooms["kitchen"] = Room{ID: "kitchen", HouseID: "home", Name: "Kitchen"}
	repo.nodes["kitchen-1"] = Node{ID: "kitchen-1", RoomID: "kitchen", Name: "Kitchen Main", Kind: "ws"}
	repo.nodes["kitchen-2"] = Node{ID: "kitchen-2", RoomID: "kitchen", Name: "Kitchen Bench", Kind: "white"}

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	return reg, repo
}

// =============================================================================
// Resolution Tests
// =============================================================================

func TestFindNode(t *testing.T) {
	reg, _ := setupRegistry(t)

	placement, err := reg.FindNode("kitchen-1")
	if err != nil {
		t.Fatalf("FindNode() error = %v", err)
	}
	if placement.House.ID != "home" {
		t.Errorf("House.ID = %q, want %q", placement.House.ID, "home")
	}
	if placement.Room.ID != "kitchen" {
		t.Errorf("Room.ID = %q, want %q", placement.Room.ID, "kitchen")
	}
	if placement.Node.Kind != "ws" {
		t.Errorf("Node.Kind = %q, want %q", placement.Node.Kind, "ws")
	}
}

func TestFindNode_Unknown(t *testing.T) {
	reg, _ := setupRegistry(t)

	_, err := reg.FindNode("rogue-node")
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("FindNode() error = %v, want ErrNodeNotFound", err)
	}
}

func TestFindNode_ReturnsCopy(t *testing.T) {
	reg, _ := setupRegistry(t)

	first, err := reg.FindNode("kitchen-1")
	if err != nil {
		t.Fatalf("FindNode() error = %v", err)
	}
	first.Node.Name = "mutated"

	second, err := reg.FindNode("kitchen-1")
	if err != nil {
		t.Fatalf("FindNode() error = %v", err)
	}
	if second.Node.Name != "Kitchen Main" {
		t.Errorf("cache was mutated through returned copy: Name = %q", second.Node.Name)
	}
}

func TestNodesInRoom(t *testing.T) {
	reg, _ := setupRegistry(t)

	nodes := reg.NodesInRoom("kitchen")
	if len(nodes) != 2 {
		t.Fatalf("len(nodes) = %d, want 2", len(nodes))
	}

	if got := reg.NodesInRoom("attic"); got != nil {
		t.Errorf("NodesInRoom(attic) = %v, want nil", got)
	}
}

// =============================================================================
// CRUD and Eviction Tests
// =============================================================================

func TestCreateNode_RequiresKnownRoom(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()

	err := reg.CreateNode(ctx, &Node{ID: "attic-1", RoomID: "attic", Name: "Attic Light"})
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("CreateNode() error = %v, want ErrRoomNotFound", err)
	}
}

func TestCreateNode_InvalidID(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()

	// Topic separator characters are not allowed in node IDs.
	err := reg.CreateNode(ctx, &Node{ID: "bad/node", RoomID: "kitchen", Name: "Bad"})
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("CreateNode() error = %v, want ErrInvalidID", err)
	}
}

func TestDeleteRoom_EvictsNodesAndNotifies(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()

	var notifiedHouse, notifiedRoom string
	reg.SetOnRoomDeleted(func(houseID, roomID string) {
		notifiedHouse = houseID
		notifiedRoom = roomID
	})

	if err := reg.DeleteRoom(ctx, "kitchen"); err != nil {
		t.Fatalf("DeleteRoom() error = %v", err)
	}

	if notifiedHouse != "home" || notifiedRoom != "kitchen" {
		t.Errorf("callback got (%q, %q), want (home, kitchen)", notifiedHouse, notifiedRoom)
	}

	if _, err := reg.FindNode("kitchen-1"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("FindNode() after room delete error = %v, want ErrNodeNotFound", err)
	}
}

func TestDeleteNode_Notifies(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()

	var notified string
	reg.SetOnNodeDeleted(func(nodeID string) {
		notified = nodeID
	})

	if err := reg.DeleteNode(ctx, "kitchen-2"); err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}
	if notified != "kitchen-2" {
		t.Errorf("callback got %q, want %q", notified, "kitchen-2")
	}
	if reg.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, want 1", reg.NodeCount())
	}
}

func TestCreateHouse_GeneratesID(t *testing.T) {
	reg, repo := setupRegistry(t)
	ctx := context.Background()

	house := &House{Name: "Annexe"}
	if err := reg.CreateHouse(ctx, house); err != nil {
		t.Fatalf("CreateHouse() error = %v", err)
	}
	if house.ID == "" {
		t.Fatal("CreateHouse() did not generate an ID")
	}
	if _, ok := repo.houses[house.ID]; !ok {
		t.Error("house was not persisted under generated ID")
	}
}
