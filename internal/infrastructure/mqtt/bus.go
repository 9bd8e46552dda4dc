package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Outbound command traffic is limited per node so firmware isn't flooded.
// The burst allows a full preset (several channels on one node) through
// in one go while sustained floods are throttled.
const (
	nodeCommandRateHz = 5
	nodeCommandBurst  = 5

	// nodeCommandInterval is the pacing between drain attempts when a
	// node's pending queue is throttled.
	nodeCommandInterval = time.Second / nodeCommandRateHz
)

// Publisher is the minimal publish interface the Bus needs from the client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// pendingCommand holds a throttled command until the node's limiter allows it.
type pendingCommand struct {
	payload  []byte
	retained bool
}

// Bus composes node-level lighting and status commands and publishes them
// through the MQTT client with per-node rate limiting.
//
// When a node's limiter rejects a command, the latest payload per topic is
// kept and drained once the limiter allows — intermediate values for the
// same topic are superseded, commands for distinct topics are never dropped.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Bus struct {
	client Publisher
	topics Topics
	qos    byte

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	pending  map[string]map[string]pendingCommand
	timers   map[string]*time.Timer

	logger Logger
}

// NewBus creates a Bus publishing through the given client at the given QoS.
func NewBus(client Publisher, qos byte) *Bus {
	return &Bus{
		client:   client,
		qos:      qos,
		limiters: make(map[string]*rate.Limiter),
		pending:  make(map[string]map[string]pendingCommand),
		timers:   make(map[string]*time.Timer),
	}
}

// SetLogger sets a logger for publish failures on the asynchronous drain path.
func (b *Bus) SetLogger(logger Logger) {
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
}

// WSSet publishes an addressable strip command.
//
// The strip field is kept in the payload for compatibility with older
// firmware even though the topic already carries it.
func (b *Bus) WSSet(nodeID string, strip int, effect string, brightness int, params []float64) error {
	return b.publishNode(nodeID, b.topics.WSSet(nodeID, strip), map[string]any{
		"strip":      strip,
		"effect":     effect,
		"brightness": brightness,
		"params":     paramsOrEmpty(params),
	}, true)
}

// RGBSet publishes an analog RGB strip command.
func (b *Bus) RGBSet(nodeID string, strip int, effect string, brightness int, params []float64) error {
	return b.publishNode(nodeID, b.topics.RGBSet(nodeID, strip), map[string]any{
		"strip":      strip,
		"effect":     effect,
		"brightness": brightness,
		"params":     paramsOrEmpty(params),
	}, true)
}

// WhiteSet publishes a white channel command.
func (b *Bus) WhiteSet(nodeID string, channel int, effect string, brightness int, params []float64) error {
	return b.publishNode(nodeID, b.topics.WhiteSet(nodeID, channel), map[string]any{
		"channel":    channel,
		"effect":     effect,
		"brightness": brightness,
		"params":     paramsOrEmpty(params),
	}, true)
}

// MotionOff asks a node's firmware to fade its motion preset to off.
// Not retained: the command must not be re-applied after a node reboot.
func (b *Bus) MotionOff(nodeID string, fadeMS int) error {
	return b.publishNode(nodeID, b.topics.MotionOff(nodeID), map[string]any{
		"fade": map[string]any{"duration_ms": fadeMS},
	}, false)
}

// RequestStatus asks a node for a full status snapshot.
func (b *Bus) RequestStatus(nodeID string) error {
	return b.publishNode(nodeID, b.topics.StatusRequest(nodeID), map[string]any{}, false)
}

// RequestMotionStatus asks a node for its motion capability report.
func (b *Bus) RequestMotionStatus(nodeID string) error {
	return b.publishNode(nodeID, b.topics.MotionStatusRequest(nodeID), map[string]any{}, false)
}

// publishNode marshals and publishes a node-addressed command, subject to
// the node's rate limiter.
//
// All publishes happen under the mutex: per-topic ordering is total, so
// a drained payload can never land after a newer direct publish of the
// same topic. Command volume is a handful per second at most, so the
// lock is never held long. A command whose topic already has a pending
// entry joins the queue (superseding it) rather than jumping ahead.
//
// A nil error means the command was accepted (published immediately or
// queued for drain); publish failures on the drain path are logged.
func (b *Bus) publishNode(nodeID, topic string, payload map[string]any, retained bool) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling command for %q: %w", topic, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, queued := b.pending[nodeID][topic]
	if !queued && b.limiterLocked(nodeID).Allow() {
		return b.client.Publish(topic, data, b.qos, retained)
	}

	// Throttled: keep the latest payload per topic and schedule a drain.
	if b.pending[nodeID] == nil {
		b.pending[nodeID] = make(map[string]pendingCommand)
	}
	b.pending[nodeID][topic] = pendingCommand{payload: data, retained: retained}
	if _, scheduled := b.timers[nodeID]; !scheduled {
		b.timers[nodeID] = time.AfterFunc(nodeCommandInterval, func() {
			b.drain(nodeID)
		})
	}
	return nil
}

// drain publishes as many pending commands for a node as the limiter allows,
// rescheduling itself while commands remain. Publishes stay under the
// mutex for the same ordering guarantee as publishNode.
func (b *Bus) drain(nodeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.timers, nodeID)

	lim := b.limiterLocked(nodeID)
	for topic, cmd := range b.pending[nodeID] {
		if !lim.Allow() {
			break
		}
		delete(b.pending[nodeID], topic)
		if err := b.client.Publish(topic, cmd.payload, b.qos, cmd.retained); err != nil && b.logger != nil {
			b.logger.Warn("throttled command publish failed",
				"node_id", nodeID,
				"topic", topic,
				"error", err,
			)
		}
	}

	if len(b.pending[nodeID]) == 0 {
		delete(b.pending, nodeID)
	} else {
		b.timers[nodeID] = time.AfterFunc(nodeCommandInterval, func() {
			b.drain(nodeID)
		})
	}
}

// limiterLocked returns the node's limiter, creating it on first use.
// Caller must hold b.mu.
func (b *Bus) limiterLocked(nodeID string) *rate.Limiter {
	lim, ok := b.limiters[nodeID]
	if !ok {
		lim = rate.NewLimiter(nodeCommandRateHz, nodeCommandBurst)
		b.limiters[nodeID] = lim
	}
	return lim
}

// paramsOrEmpty substitutes an empty slice for nil so the wire payload
// always carries a params array (the firmware expects the field).
func paramsOrEmpty(params []float64) []float64 {
	if params == nil {
		return []float64{}
	}
	return params
}
