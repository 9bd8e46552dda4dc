package motion

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// prefsFile is the on-disk format: room key to sorted node ID list.
type prefsFile struct {
	Immune map[string][]string `json:"immune"`
}

// PreferenceStore is the durable per-room set of node IDs exempted from
// automated actions ("immune" nodes).
//
// Mutations come from administrators; the automation hot path only
// reads. All mutations persist synchronously and atomically; on a
// failed persist the in-memory state is rolled back. Reads return
// copies, never live references, so the Motion Manager can never
// observe a torn write.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type PreferenceStore struct {
	path string

	mu    sync.RWMutex
	rooms map[string]map[string]struct{}

	logger Logger
}

// NewPreferenceStore creates a preference store backed by the given
// file, loading any existing entries.
func NewPreferenceStore(path string) (*PreferenceStore, error) {
	s := &PreferenceStore{
		path:   path,
		rooms:  make(map[string]map[string]struct{}),
		logger: noopLogger{},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetLogger sets the logger for the store.
func (s *PreferenceStore) SetLogger(logger Logger) {
	s.logger = logger
}

// load reads the backing file if it exists.
func (s *PreferenceStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading preferences file: %w", err)
	}

	var file prefsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing preferences file: %w", err)
	}

	for key, nodes := range file.Immune {
		if len(nodes) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(nodes))
		for _, n := range nodes {
			set[n] = struct{}{}
		}
		s.rooms[key] = set
	}
	return nil
}

// GetImmuneNodes returns a copy of a room's immune node set.
// A room with no entry yields an empty, non-nil set.
func (s *PreferenceStore) GetImmuneNodes(houseID, roomID string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.rooms[roomKey(houseID, roomID)]
	out := make(map[string]struct{}, len(set))
	for n := range set {
		out[n] = struct{}{}
	}
	return out
}

// SetImmuneNodes replaces a room's immune set wholesale.
// An empty or nil slice deletes the room's entry. Duplicates are merged.
func (s *PreferenceStore) SetImmuneNodes(houseID, roomID string, nodes []string) error {
	key := roomKey(houseID, roomID)

	set := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n != "" {
			set[n] = struct{}{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.rooms[key]
	if len(set) == 0 {
		delete(s.rooms, key)
	} else {
		s.rooms[key] = set
	}

	if err := s.persistLocked(); err != nil {
		s.restoreLocked(key, old, existed)
		return err
	}

	s.logger.Info("immunity set replaced",
		"house_id", houseID, "room_id", roomID, "count", len(set))
	return nil
}

// AddImmuneNode adds a single node to a room's immune set.
func (s *PreferenceStore) AddImmuneNode(houseID, roomID, nodeID string) error {
	key := roomKey(houseID, roomID)

	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.rooms[key]
	if _, already := old[nodeID]; already {
		return nil
	}

	set := make(map[string]struct{}, len(old)+1)
	for n := range old {
		set[n] = struct{}{}
	}
	set[nodeID] = struct{}{}
	s.rooms[key] = set

	if err := s.persistLocked(); err != nil {
		s.restoreLocked(key, old, existed)
		return err
	}
	return nil
}

// RemoveImmuneNode removes a single node from a room's immune set.
// Removing the last node deletes the room's entry.
func (s *PreferenceStore) RemoveImmuneNode(houseID, roomID, nodeID string) error {
	key := roomKey(houseID, roomID)

	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.rooms[key]
	if _, present := old[nodeID]; !present {
		return nil
	}

	set := make(map[string]struct{}, len(old))
	for n := range old {
		if n != nodeID {
			set[n] = struct{}{}
		}
	}
	if len(set) == 0 {
		delete(s.rooms, key)
	} else {
		s.rooms[key] = set
	}

	if err := s.persistLocked(); err != nil {
		s.restoreLocked(key, old, existed)
		return err
	}
	return nil
}

// RemoveNode prunes a node from every room's immune set.
// Called when the node is deleted from the topology registry.
func (s *PreferenceStore) RemoveNode(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshot affected entries for rollback.
	type saved struct {
		set     map[string]struct{}
		existed bool
	}
	touched := make(map[string]saved)

	for key, set := range s.rooms {
		if _, present := set[nodeID]; !present {
			continue
		}
		touched[key] = saved{set: set, existed: true}

		pruned := make(map[string]struct{}, len(set))
		for n := range set {
			if n != nodeID {
				pruned[n] = struct{}{}
			}
		}
		if len(pruned) == 0 {
			delete(s.rooms, key)
		} else {
			s.rooms[key] = pruned
		}
	}
	if len(touched) == 0 {
		return nil
	}

	if err := s.persistLocked(); err != nil {
		for key, sv := range touched {
			s.restoreLocked(key, sv.set, sv.existed)
		}
		return err
	}

	s.logger.Info("node pruned from immunity sets", "node_id", nodeID, "rooms", len(touched))
	return nil
}

// RemoveRoom deletes a room's immune set entirely.
func (s *PreferenceStore) RemoveRoom(houseID, roomID string) error {
	key := roomKey(houseID, roomID)

	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.rooms[key]
	if !existed {
		return nil
	}
	delete(s.rooms, key)

	if err := s.persistLocked(); err != nil {
		s.restoreLocked(key, old, existed)
		return err
	}
	return nil
}

// restoreLocked undoes a mutation after a failed persist.
// Caller must hold s.mu.
func (s *PreferenceStore) restoreLocked(key string, old map[string]struct{}, existed bool) {
	if existed {
		s.rooms[key] = old
	} else {
		delete(s.rooms, key)
	}
}

// persistLocked writes the store to disk atomically.
// Caller must hold s.mu.
func (s *PreferenceStore) persistLocked() error {
	file := prefsFile{Immune: make(map[string][]string, len(s.rooms))}
	for key, set := range s.rooms {
		nodes := make([]string, 0, len(set))
		for n := range set {
			nodes = append(nodes, n)
		}
		sort.Strings(nodes)
		file.Immune[key] = nodes
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshalling preferences: %w", ErrPersist, err)
	}
	return atomicWrite(s.path, data)
}
