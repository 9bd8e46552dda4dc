package preset

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Catalog.
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

// Catalog provides preset management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// Get is on the motion hot path: every rising edge resolves the room's
// scheduled preset ID through the catalog, so lookups never touch the
// database once the cache is warm.
//
// All public methods are thread-safe.
type Catalog struct {
	repo    Repository
	cache   map[string]*Preset // Cached presets by house/room/id key
	cacheMu sync.RWMutex
	logger  Logger
}

// NewCatalog creates a new preset catalog.
// The repository is used for persistence; the catalog adds caching.
func NewCatalog(repo Repository) *Catalog {
	return &Catalog{
		repo:   repo,
		cache:  make(map[string]*Preset),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the catalog.
func (c *Catalog) SetLogger(logger Logger) {
	c.logger = logger
}

// cacheKey builds the composite cache key for a preset.
func cacheKey(houseID, roomID, id string) string {
	return houseID + "/" + roomID + "/" + id
}

// RefreshCache reloads all presets from the repository into the cache.
// This should be called on application startup.
func (c *Catalog) RefreshCache(ctx context.Context) error {
	presets, err := c.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading presets: %w", err)
	}

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	c.cache = make(map[string]*Preset, len(presets))
	for i := range presets {
		p := presets[i]
		c.cache[cacheKey(p.HouseID, p.RoomID, p.ID)] = p.DeepCopy()
	}

	c.logger.Info("preset cache refreshed", "count", len(presets))
	return nil
}

// Get retrieves a preset by its (house, room, id) triple.
// Returns ErrPresetNotFound if the preset does not exist.
// The returned preset is a deep copy; callers can safely modify it.
func (c *Catalog) Get(ctx context.Context, houseID, roomID, id string) (*Preset, error) {
	key := cacheKey(houseID, roomID, id)

	c.cacheMu.RLock()
	cached, ok := c.cache[key]
	c.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new preset not yet cached)
	preset, err := c.repo.Get(ctx, houseID, roomID, id)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.cache[key] = preset.DeepCopy()
	c.cacheMu.Unlock()

	return preset, nil
}

// ListByRoom retrieves all presets in a specific room.
// The returned presets are deep copies; callers can safely modify them.
func (c *Catalog) ListByRoom(ctx context.Context, houseID, roomID string) ([]Preset, error) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	if len(c.cache) > 0 {
		var presets []Preset
		for _, p := range c.cache {
			if p.HouseID == houseID && p.RoomID == roomID {
				presets = append(presets, *p.DeepCopy())
			}
		}
		return presets, nil
	}

	return c.repo.ListByRoom(ctx, houseID, roomID)
}

// Create validates and persists a new preset.
func (c *Catalog) Create(ctx context.Context, preset *Preset) error {
	if err := ValidatePreset(preset); err != nil {
		return err
	}
	if err := c.repo.Create(ctx, preset); err != nil {
		return err
	}

	c.cacheMu.Lock()
	c.cache[cacheKey(preset.HouseID, preset.RoomID, preset.ID)] = preset.DeepCopy()
	c.cacheMu.Unlock()

	c.logger.Info("preset created",
		"id", preset.ID, "house_id", preset.HouseID, "room_id", preset.RoomID)
	return nil
}

// Update validates and persists changes to an existing preset.
func (c *Catalog) Update(ctx context.Context, preset *Preset) error {
	if err := ValidatePreset(preset); err != nil {
		return err
	}
	if err := c.repo.Update(ctx, preset); err != nil {
		return err
	}

	c.cacheMu.Lock()
	c.cache[cacheKey(preset.HouseID, preset.RoomID, preset.ID)] = preset.DeepCopy()
	c.cacheMu.Unlock()

	c.logger.Info("preset updated",
		"id", preset.ID, "house_id", preset.HouseID, "room_id", preset.RoomID)
	return nil
}

// Delete removes a preset.
func (c *Catalog) Delete(ctx context.Context, houseID, roomID, id string) error {
	if err := c.repo.Delete(ctx, houseID, roomID, id); err != nil {
		return err
	}

	c.cacheMu.Lock()
	delete(c.cache, cacheKey(houseID, roomID, id))
	c.cacheMu.Unlock()

	c.logger.Info("preset deleted", "id", id, "house_id", houseID, "room_id", roomID)
	return nil
}

// RemoveRoom deletes every preset in a room. Wired to the topology
// registry's room deletion callback.
func (c *Catalog) RemoveRoom(ctx context.Context, houseID, roomID string) error {
	if err := c.repo.DeleteByRoom(ctx, houseID, roomID); err != nil {
		return err
	}

	c.cacheMu.Lock()
	for key, p := range c.cache {
		if p.HouseID == houseID && p.RoomID == roomID {
			delete(c.cache, key)
		}
	}
	c.cacheMu.Unlock()

	c.logger.Info("room presets removed", "house_id", houseID, "room_id", roomID)
	return nil
}

// Count returns the number of cached presets.
func (c *Catalog) Count() int {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return len(c.cache)
}
