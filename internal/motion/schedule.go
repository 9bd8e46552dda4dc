package motion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// minutesPerDay is the number of schedule-addressable minutes in a day.
const minutesPerDay = 24 * 60

// hexColorPattern matches 3- or 6-digit hex colours, '#' optional.
var hexColorPattern = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// roomSchedule is one room's slot table and colour legend as persisted.
type roomSchedule struct {
	// Slots has exactly slotCount entries; an empty string means no
	// preset is scheduled for that slot.
	Slots []string `json:"slots"`

	// Colors maps preset IDs to canonical #RRGGBB strings for the UI
	// legend. Purely cosmetic.
	Colors map[string]string `json:"colors,omitempty"`
}

// scheduleFile is the on-disk format. The slot width is recorded with
// the data so historical files remain interpretable if it changes.
type scheduleFile struct {
	SlotMinutes int                      `json:"slot_minutes"`
	Rooms       map[string]*roomSchedule `json:"rooms"`
}

// ScheduleStore is the durable per-room mapping of time-of-day slot to
// preset ID, plus a colour legend for UI rendering.
//
// All mutations persist synchronously (write temp, then rename) before
// returning; a crash immediately after a successful call never loses
// that call's effect. On a failed persist the in-memory state is rolled
// back, so readers and the backing file never diverge.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type ScheduleStore struct {
	path        string
	slotMinutes int
	slotCount   int

	mu    sync.RWMutex
	rooms map[string]*roomSchedule

	logger Logger
}

// NewScheduleStore creates a schedule store backed by the given file,
// loading any existing schedules. Rooms persisted with a different slot
// width are dropped: their slot tables are no longer addressable.
func NewScheduleStore(path string, slotMinutes int) (*ScheduleStore, error) {
	if slotMinutes < 1 || slotMinutes > minutesPerDay {
		return nil, fmt.Errorf("motion: slot_minutes %d out of range 1-%d", slotMinutes, minutesPerDay)
	}

	s := &ScheduleStore{
		path:        path,
		slotMinutes: slotMinutes,
		slotCount:   (minutesPerDay + slotMinutes - 1) / slotMinutes,
		rooms:       make(map[string]*roomSchedule),
		logger:      noopLogger{},
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetLogger sets the logger for the store.
func (s *ScheduleStore) SetLogger(logger Logger) {
	s.logger = logger
}

// SlotCount returns the number of slots per day.
func (s *ScheduleStore) SlotCount() int {
	return s.slotCount
}

// SlotMinutes returns the width of one slot in minutes.
func (s *ScheduleStore) SlotMinutes() int {
	return s.slotMinutes
}

// load reads the backing file if it exists.
func (s *ScheduleStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading schedule file: %w", err)
	}

	var file scheduleFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing schedule file: %w", err)
	}

	for key, room := range file.Rooms {
		if room == nil || len(room.Slots) != s.slotCount {
			// Persisted under a different slot width; not addressable.
			continue
		}
		s.rooms[key] = room
	}
	return nil
}

// SetSchedule replaces a room's slot table.
// The slice must have exactly SlotCount entries; an empty string leaves
// a slot unscheduled. Fails with ErrScheduleLength on a length mismatch
// and leaves the stored schedule unchanged.
func (s *ScheduleStore) SetSchedule(houseID, roomID string, slots []string) error {
	if len(slots) != s.slotCount {
		return fmt.Errorf("%w: got %d, want %d", ErrScheduleLength, len(slots), s.slotCount)
	}

	key := roomKey(houseID, roomID)
	entry := &roomSchedule{Slots: append([]string(nil), slots...)}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.rooms[key]
	if existed {
		entry.Colors = old.Colors
	}
	s.rooms[key] = entry

	if err := s.persistLocked(); err != nil {
		if existed {
			s.rooms[key] = old
		} else {
			delete(s.rooms, key)
		}
		return err
	}

	s.logger.Info("schedule updated", "house_id", houseID, "room_id", roomID)
	return nil
}

// GetSchedule returns a copy of a room's slot table.
// The second return is false when the room has no schedule.
func (s *ScheduleStore) GetSchedule(houseID, roomID string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomKey(houseID, roomID)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), room.Slots...), true
}

// ActivePreset returns the preset ID scheduled for the given wall-clock
// time, or def when the room has no schedule. An empty return with a
// schedule present means the current slot is deliberately unscheduled.
func (s *ScheduleStore) ActivePreset(houseID, roomID string, at time.Time, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomKey(houseID, roomID)]
	if !ok {
		return def
	}

	idx := (at.Hour()*60 + at.Minute()) / s.slotMinutes % s.slotCount
	return room.Slots[idx]
}

// SetPresetColor records a legend colour for a preset in a room.
// The colour is normalised to canonical #RRGGBB uppercase form;
// malformed input fails with ErrInvalidColor. Setting a colour for a
// room with no schedule creates the room's entry.
func (s *ScheduleStore) SetPresetColor(houseID, roomID, presetID, color string) error {
	normalized, err := normalizeColor(color)
	if err != nil {
		return err
	}

	key := roomKey(houseID, roomID)

	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.rooms[key]
	entry := &roomSchedule{Colors: map[string]string{presetID: normalized}}
	if existed {
		entry.Slots = old.Slots
		entry.Colors = make(map[string]string, len(old.Colors)+1)
		for k, v := range old.Colors {
			entry.Colors[k] = v
		}
		entry.Colors[presetID] = normalized
	} else {
		entry.Slots = make([]string, s.slotCount)
	}
	s.rooms[key] = entry

	if err := s.persistLocked(); err != nil {
		if existed {
			s.rooms[key] = old
		} else {
			delete(s.rooms, key)
		}
		return err
	}
	return nil
}

// GetRoomColors returns a copy of a room's preset colour legend.
func (s *ScheduleStore) GetRoomColors(houseID, roomID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomKey(houseID, roomID)]
	if !ok {
		return map[string]string{}
	}
	colors := make(map[string]string, len(room.Colors))
	for k, v := range room.Colors {
		colors[k] = v
	}
	return colors
}

// RemoveRoom deletes a room's schedule and colour legend.
// Called when the room is deleted upstream; removing an absent room is
// not an error.
func (s *ScheduleStore) RemoveRoom(houseID, roomID string) error {
	key := roomKey(houseID, roomID)

	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.rooms[key]
	if !existed {
		return nil
	}
	delete(s.rooms, key)

	if err := s.persistLocked(); err != nil {
		s.rooms[key] = old
		return err
	}

	s.logger.Info("room schedule removed", "house_id", houseID, "room_id", roomID)
	return nil
}

// persistLocked writes the store to disk atomically.
// Caller must hold s.mu.
func (s *ScheduleStore) persistLocked() error {
	file := scheduleFile{SlotMinutes: s.slotMinutes, Rooms: s.rooms}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshalling schedules: %w", ErrPersist, err)
	}
	return atomicWrite(s.path, data)
}

// atomicWrite writes data via a temp file in the target directory, then
// renames it over the destination.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrPersist, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing temp file: %w", ErrPersist, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: syncing temp file: %w", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing temp file: %w", ErrPersist, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: renaming temp file: %w", ErrPersist, err)
	}
	return nil
}

// normalizeColor canonicalises a hex colour to #RRGGBB uppercase.
// Accepts 3- or 6-digit forms, with or without the leading '#'.
func normalizeColor(color string) (string, error) {
	m := hexColorPattern.FindStringSubmatch(strings.TrimSpace(color))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, color)
	}

	hex := strings.ToUpper(m[1])
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	return "#" + hex, nil
}

// roomKey builds the composite key for a room.
func roomKey(houseID, roomID string) string {
	return houseID + "/" + roomID
}
