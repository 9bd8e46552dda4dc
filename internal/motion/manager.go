package motion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ultralights/ultralights-core/internal/preset"
	"github.com/ultralights/ultralights-core/internal/registry"
)

// Logger defines the logging interface used by this package.
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

// TopologyRegistry resolves nodes and rooms. *registry.Registry satisfies it.
type TopologyRegistry interface {
	FindNode(nodeID string) (*registry.Placement, error)
	NodesInRoom(roomID string) []registry.Node
}

// PresetCatalog looks up preset definitions. *preset.Catalog satisfies it.
type PresetCatalog interface {
	Get(ctx context.Context, houseID, roomID, presetID string) (*preset.Preset, error)
}

// ActionReverser derives undo actions. *preset.ActionRegistry satisfies it.
type ActionReverser interface {
	ReverseActions(actions []preset.Action) ([]preset.Action, error)
}

// CommandApplier publishes lighting actions. *preset.Applier satisfies it.
type CommandApplier interface {
	Apply(actions []preset.Action) error
}

// StatusBus issues node-addressed control commands. *mqtt.Bus satisfies it.
type StatusBus interface {
	RequestStatus(nodeID string) error
	RequestMotionStatus(nodeID string) error
	MotionOff(nodeID string, fadeMS int) error
}

// Telemetry records motion activity to the time-series store.
// *influxdb.Client satisfies it.
type Telemetry interface {
	WriteMotionEvent(houseID, roomID, nodeID, sensor string, state bool)
	WritePresetTransition(houseID, roomID, presetID, transition string)
	WriteNodePresence(nodeID string, online bool)
}

// noopTelemetry discards all measurements.
type noopTelemetry struct{}

func (noopTelemetry) WriteMotionEvent(string, string, string, string, bool) {}
func (noopTelemetry) WritePresetTransition(string, string, string, string)  {}
func (noopTelemetry) WriteNodePresence(string, bool)                        {}

// Preset transition labels for telemetry.
const (
	transitionApplied  = "applied"
	transitionReversed = "reversed"
)

// Config carries the manager's tunables.
type Config struct {
	// DefaultDuration is used for nodes that never reported a duration.
	// Zero falls back to the package default.
	DefaultDuration time.Duration

	// StatusRequestInterval throttles per-node on-demand status
	// requests issued by EnsureRoomLoaded.
	StatusRequestInterval time.Duration

	// OffFadeMS is the fade passed with motion-off commands.
	OffFadeMS int
}

// sensorTimer is one armed debounce timer for a (room, sensor) pair.
// The generation guards against a stale expiry firing after a restart:
// a fired timer that finds a newer generation no-ops.
type sensorTimer struct {
	gen   uint64
	timer *time.Timer
}

// session is the transient record that motion is asserted in a room.
// A room has at most one session. presetOn is set iff at least one
// action of the chosen preset survived immunity filtering and was
// actually issued.
type session struct {
	houseID     string
	roomID      string
	currentKind SensorKind
	timers      map[SensorKind]*sensorTimer
	presetOn    string
}

// Manager is the motion automation state machine.
//
// It consumes sensor events from the bus, arbitrates between competing
// sensors in a room, picks the scheduled preset, filters it through the
// immunity store, applies it, and reverses it when the last sensor
// timer lapses.
//
// Thread Safety:
//   - All methods are safe for concurrent use. A single mutex
//     serialises all session transitions; automation events are
//     low-frequency relative to lock hold time, so per-room sharding
//     is not worth its complexity.
type Manager struct {
	cfg       Config
	topology  TopologyRegistry
	schedules *ScheduleStore
	prefs     *PreferenceStore
	catalog   PresetCatalog
	actions   ActionReverser
	applier   CommandApplier
	bus       StatusBus

	mu       sync.Mutex
	sessions map[string]*session
	configs  map[string]*NodeConfig
	lastGen  uint64

	logger    Logger
	telemetry Telemetry

	// Hooks for deterministic tests.
	now      func() time.Time
	newTimer func(d time.Duration, f func()) *time.Timer
}

// NewManager creates the motion manager.
// Sessions live purely in memory: a restart deliberately drops them, so
// a crash never leaves stale "on" state asserted.
func NewManager(
	cfg Config,
	topology TopologyRegistry,
	schedules *ScheduleStore,
	prefs *PreferenceStore,
	catalog PresetCatalog,
	actions ActionReverser,
	applier CommandApplier,
	bus StatusBus,
) *Manager {
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = DefaultDuration
	}
	if cfg.StatusRequestInterval <= 0 {
		cfg.StatusRequestInterval = 30 * time.Second
	}

	return &Manager{
		cfg:       cfg,
		topology:  topology,
		schedules: schedules,
		prefs:     prefs,
		catalog:   catalog,
		actions:   actions,
		applier:   applier,
		bus:       bus,
		sessions:  make(map[string]*session),
		configs:   make(map[string]*NodeConfig),
		logger:    noopLogger{},
		telemetry: noopTelemetry{},
		now:       time.Now,
		newTimer:  time.AfterFunc,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetTelemetry sets the telemetry sink for the manager.
func (m *Manager) SetTelemetry(t Telemetry) {
	m.telemetry = t
}

// OnMotionEvent ingests one sensor event.
//
// Only rising edges start automation; the absence of further triggers
// is handled by timer expiry, never by an explicit off event. Events
// from unknown or disabled nodes are dropped silently. This method
// never returns an error: it is the bus callback boundary.
func (m *Manager) OnMotionEvent(nodeID string, kind SensorKind, triggered bool) {
	if !kind.Valid() {
		m.logger.Debug("dropping event with unknown sensor kind",
			"node_id", nodeID, "sensor", string(kind))
		return
	}

	placement, err := m.topology.FindNode(nodeID)
	if err != nil {
		m.logger.Debug("dropping event from unregistered node", "node_id", nodeID)
		return
	}
	houseID, roomID := placement.House.ID, placement.Room.ID

	m.telemetry.WriteMotionEvent(houseID, roomID, nodeID, string(kind), triggered)

	now := m.now()

	m.mu.Lock()
	cfg := m.configLocked(nodeID)
	cfg.LastHeartbeat = now

	if !cfg.Enabled {
		m.mu.Unlock()
		return
	}
	if !triggered {
		m.mu.Unlock()
		return
	}

	key := roomKey(houseID, roomID)
	sess := m.sessions[key]

	// Arbitration: ultrasonic presence outranks PIR while asserted.
	if sess != nil && sess.currentKind == SensorUltra && kind == SensorPIR {
		m.mu.Unlock()
		m.logger.Debug("pir event suppressed by active ultra session",
			"node_id", nodeID, "room_id", roomID)
		return
	}

	if sess == nil {
		sess = &session{
			houseID: houseID,
			roomID:  roomID,
			timers:  make(map[SensorKind]*sensorTimer),
		}
		m.sessions[key] = sess
	}

	// A retrigger with the scheduled preset already on restarts the
	// timer without re-applying anything.
	var toApply []preset.Action
	presetID := m.schedules.ActivePreset(houseID, roomID, now, "")
	if presetID != "" && sess.presetOn != presetID {
		toApply = m.resolveActions(houseID, roomID, presetID)
		if len(toApply) > 0 {
			sess.presetOn = presetID
		}
	}

	m.restartTimerLocked(key, sess, kind, cfg.Duration)
	m.mu.Unlock()

	if len(toApply) > 0 {
		// presetOn stays set on a publish error: a partial failure has
		// already issued some actions, and those must still be reversed
		// when the session lapses. The applied transition is recorded
		// only when every action went out.
		if err := m.applier.Apply(toApply); err != nil {
			m.logger.Error("applying motion preset failed",
				"room_id", roomID, "preset_id", presetID, "error", err)
			return
		}
		m.telemetry.WritePresetTransition(houseID, roomID, presetID, transitionApplied)
		m.logger.Info("motion preset applied",
			"house_id", houseID, "room_id", roomID,
			"preset_id", presetID, "sensor", string(kind), "actions", len(toApply))
	}
}

// resolveActions fetches a preset and filters out immune nodes.
// A missing preset is treated as "no preset": schedules and the catalog
// are edited independently and must tolerate transient mismatch.
// Caller must hold m.mu (catalog and preference reads are in-memory).
func (m *Manager) resolveActions(houseID, roomID, presetID string) []preset.Action {
	p, err := m.catalog.Get(context.Background(), houseID, roomID, presetID)
	if err != nil {
		if errors.Is(err, preset.ErrPresetNotFound) {
			m.logger.Warn("scheduled preset not in catalog",
				"house_id", houseID, "room_id", roomID, "preset_id", presetID)
		} else {
			m.logger.Error("preset lookup failed",
				"house_id", houseID, "room_id", roomID, "preset_id", presetID, "error", err)
		}
		return nil
	}
	return m.filterImmune(houseID, roomID, p.Actions)
}

// filterImmune drops actions that target immune nodes.
func (m *Manager) filterImmune(houseID, roomID string, actions []preset.Action) []preset.Action {
	immune := m.prefs.GetImmuneNodes(houseID, roomID)
	if len(immune) == 0 {
		return actions
	}

	var kept []preset.Action
	for i := range actions {
		if _, isImmune := immune[actions[i].Node]; isImmune {
			continue
		}
		kept = append(kept, actions[i])
	}
	return kept
}

// restartTimerLocked arms (or re-arms) the debounce timer for a sensor
// kind, bumping the generation so any in-flight expiry goes stale.
// Caller must hold m.mu.
func (m *Manager) restartTimerLocked(key string, sess *session, kind SensorKind, d time.Duration) {
	if old := sess.timers[kind]; old != nil && old.timer != nil {
		old.timer.Stop()
	}

	m.lastGen++
	gen := m.lastGen
	st := &sensorTimer{gen: gen}
	st.timer = m.newTimer(d, func() {
		m.sensorExpired(key, kind, gen)
	})
	sess.timers[kind] = st
	sess.currentKind = kind
}

// sensorExpired runs when a sensor's debounce timer lapses.
//
// A stale generation means the timer was restarted after this expiry
// was scheduled; the expiry no-ops. When the last timer for a room
// lapses, the applied preset (if any) is reversed and the session is
// destroyed.
func (m *Manager) sensorExpired(key string, kind SensorKind, gen uint64) {
	m.mu.Lock()

	sess, ok := m.sessions[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	st := sess.timers[kind]
	if st == nil || st.gen != gen {
		m.mu.Unlock()
		return
	}
	delete(sess.timers, kind)

	if len(sess.timers) > 0 {
		// Another sensor still asserts motion; nothing to reverse yet.
		// Precedence only lasts while the winning sensor is asserted,
		// so a lapsed currentKind hands over to a surviving sensor and
		// its retriggers flow again.
		if sess.currentKind == kind {
			for remaining := range sess.timers {
				sess.currentKind = remaining
				break
			}
		}
		m.mu.Unlock()
		return
	}

	houseID, roomID, presetOn := sess.houseID, sess.roomID, sess.presetOn
	delete(m.sessions, key)
	m.mu.Unlock()

	if presetOn == "" {
		m.logger.Debug("motion session lapsed without preset", "room_id", roomID)
		return
	}
	m.reversePreset(houseID, roomID, presetOn)
}

// reversePreset publishes the reversal of a previously applied preset.
func (m *Manager) reversePreset(houseID, roomID, presetID string) {
	p, err := m.catalog.Get(context.Background(), houseID, roomID, presetID)
	if err != nil {
		m.logger.Warn("applied preset vanished before reversal",
			"house_id", houseID, "room_id", roomID, "preset_id", presetID, "error", err)
		return
	}

	reversed, err := m.actions.ReverseActions(p.Actions)
	if err != nil {
		// Partial reversal still runs; unknown types indicate a preset
		// authoring defect and are logged loudly.
		m.logger.Error("some actions could not be reversed",
			"room_id", roomID, "preset_id", presetID, "error", err)
	}

	reversed = m.filterImmune(houseID, roomID, reversed)
	if len(reversed) == 0 {
		return
	}
	if err := m.applier.Apply(reversed); err != nil {
		m.logger.Error("applying preset reversal failed",
			"room_id", roomID, "preset_id", presetID, "error", err)
		return
	}
	m.telemetry.WritePresetTransition(houseID, roomID, presetID, transitionReversed)
	m.logger.Info("motion preset reversed",
		"house_id", houseID, "room_id", roomID,
		"preset_id", presetID, "actions", len(reversed))
}

// EnsureRoomLoaded asks every node in a room for its status so sensor
// presence and config populate lazily the first time a room is viewed.
// Requests are throttled per node; force bypasses the throttle.
func (m *Manager) EnsureRoomLoaded(houseID, roomID string, force bool) {
	nodes := m.topology.NodesInRoom(roomID)
	now := m.now()

	var due []string
	m.mu.Lock()
	for i := range nodes {
		cfg := m.configLocked(nodes[i].ID)
		if !force && now.Sub(cfg.StatusRequestedAt) < m.cfg.StatusRequestInterval {
			continue
		}
		cfg.StatusRequestedAt = now
		due = append(due, nodes[i].ID)
	}
	m.mu.Unlock()

	for _, nodeID := range due {
		if err := m.bus.RequestStatus(nodeID); err != nil {
			m.logger.Warn("status request failed", "node_id", nodeID, "error", err)
		}
		if err := m.bus.RequestMotionStatus(nodeID); err != nil {
			m.logger.Warn("motion status request failed", "node_id", nodeID, "error", err)
		}
	}
	if len(due) > 0 {
		m.logger.Debug("room status requested",
			"house_id", houseID, "room_id", roomID, "nodes", len(due))
	}
}

// OnMotionStatus merges a node's hardware-reported motion capabilities.
// It never triggers lighting changes.
func (m *Manager) OnMotionStatus(nodeID string, pirEnabled *bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.configLocked(nodeID)
	cfg.LastHeartbeat = m.now()
	if pirEnabled != nil {
		v := *pirEnabled
		cfg.PIREnabled = &v
	}
}

// OnStatus records a full status snapshot from a node.
func (m *Manager) OnStatus(nodeID string) {
	m.mu.Lock()
	cfg := m.configLocked(nodeID)
	cfg.LastSnapshot = m.now()
	m.mu.Unlock()

	m.telemetry.WriteNodePresence(nodeID, true)
}

// ConfigureNode overwrites a node's in-memory motion config.
// Takes effect for the next event, never retroactively. Out-of-range
// durations fail with ErrInvalidDuration rather than being clamped.
func (m *Manager) ConfigureNode(nodeID string, enabled bool, duration time.Duration) error {
	if duration < MinDuration || duration > MaxDuration {
		return ErrInvalidDuration
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.configLocked(nodeID)
	cfg.Enabled = enabled
	cfg.Duration = duration

	m.logger.Info("node motion config updated",
		"node_id", nodeID, "enabled", enabled, "duration", duration)
	return nil
}

// NodeConfigFor returns a copy of a node's current motion config.
// The second return is false when the node has never been seen or
// configured.
func (m *Manager) NodeConfigFor(nodeID string) (NodeConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[nodeID]
	if !ok {
		return NodeConfig{}, false
	}
	return cfg.copy(), true
}

// NodeOnline reports whether a node was heard from recently, via either
// a heartbeat or a status snapshot.
func (m *Manager) NodeOnline(nodeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[nodeID]
	if !ok {
		return false
	}
	return cfg.Online(m.now())
}

// RoomOff fades every non-immune node in a room to off.
// This is the manual override path and bypasses session state entirely.
func (m *Manager) RoomOff(houseID, roomID string) {
	immune := m.prefs.GetImmuneNodes(houseID, roomID)
	for _, node := range m.topology.NodesInRoom(roomID) {
		if _, isImmune := immune[node.ID]; isImmune {
			continue
		}
		if err := m.bus.MotionOff(node.ID, m.cfg.OffFadeMS); err != nil {
			m.logger.Warn("motion off command failed", "node_id", node.ID, "error", err)
		}
	}
}

// ForgetNode drops a node's in-memory config.
// Called when the node is deleted from the topology.
func (m *Manager) ForgetNode(nodeID string) {
	m.mu.Lock()
	delete(m.configs, nodeID)
	m.mu.Unlock()
}

// ForgetRoom cancels a room's session without reversal.
// Called when the room is deleted from the topology: the lights it
// controlled no longer belong to any automation domain.
func (m *Manager) ForgetRoom(houseID, roomID string) {
	key := roomKey(houseID, roomID)

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key]
	if !ok {
		return
	}
	for _, st := range sess.timers {
		if st.timer != nil {
			st.timer.Stop()
		}
	}
	delete(m.sessions, key)
	m.logger.Info("motion session discarded", "house_id", houseID, "room_id", roomID)
}

// SessionCount returns the number of rooms with motion asserted.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop cancels all timers and drops all sessions without reversal.
// Used at shutdown; retained lighting commands mean nodes keep their
// last state until the next schedule-driven change.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, sess := range m.sessions {
		for _, st := range sess.timers {
			if st.timer != nil {
				st.timer.Stop()
			}
		}
		delete(m.sessions, key)
	}
}

// configLocked returns the node's config, creating the default entry on
// first reference. Caller must hold m.mu.
func (m *Manager) configLocked(nodeID string) *NodeConfig {
	cfg, ok := m.configs[nodeID]
	if !ok {
		cfg = defaultNodeConfig()
		cfg.Duration = m.cfg.DefaultDuration
		m.configs[nodeID] = cfg
	}
	return cfg
}
