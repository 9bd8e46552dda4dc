package motion

import "time"

// SensorKind identifies which sensor on a node raised a motion event.
type SensorKind string

// Known sensor kinds.
const (
	// SensorPIR is the passive infrared motion sensor.
	SensorPIR SensorKind = "pir"

	// SensorUltra is the ultrasonic presence sensor. While asserted it
	// takes precedence over PIR in the same room.
	SensorUltra SensorKind = "ultra"
)

// Valid reports whether the sensor kind is recognised.
func (k SensorKind) Valid() bool {
	return k == SensorPIR || k == SensorUltra
}

// Node config bounds and defaults.
const (
	// DefaultDuration is assumed for nodes that never reported config.
	DefaultDuration = 30 * time.Second

	// MinDuration and MaxDuration bound ConfigureNode. Out-of-range
	// values are a caller error, never silently clamped.
	MinDuration = 1 * time.Second
	MaxDuration = 3600 * time.Second

	// onlineWindow is how recently a node must have been heard from
	// (heartbeat or snapshot) to count as online.
	onlineWindow = 90 * time.Second
)

// NodeConfig is the in-memory motion configuration and liveness record
// for one node. It is refreshed by status pushes and UI edits, and
// re-derived from device reports after a restart rather than persisted.
type NodeConfig struct {
	// Enabled gates whether events from this node start automation.
	Enabled bool

	// Duration is how long a sensor assertion keeps the room's session
	// alive without a retrigger.
	Duration time.Duration

	// PIREnabled is the hardware-reported PIR capability, nil until the
	// node has pushed a motion status report.
	PIREnabled *bool

	// LastHeartbeat is the time of the last event of any kind from the
	// node. LastSnapshot is the time of the last full status snapshot.
	// A node is online when either is recent; the two signals are
	// deliberately kept separate.
	LastHeartbeat time.Time
	LastSnapshot  time.Time

	// StatusRequestedAt throttles repeated on-demand status requests.
	StatusRequestedAt time.Time
}

// defaultNodeConfig returns the config assumed for an unreported node.
func defaultNodeConfig() *NodeConfig {
	return &NodeConfig{
		Enabled:  true,
		Duration: DefaultDuration,
	}
}

// Online reports whether the node was heard from recently.
func (c *NodeConfig) Online(now time.Time) bool {
	if !c.LastHeartbeat.IsZero() && now.Sub(c.LastHeartbeat) <= onlineWindow {
		return true
	}
	if !c.LastSnapshot.IsZero() && now.Sub(c.LastSnapshot) <= onlineWindow {
		return true
	}
	return false
}

// copy returns a value copy safe to hand outside the manager's lock.
func (c *NodeConfig) copy() NodeConfig {
	out := *c
	if c.PIREnabled != nil {
		v := *c.PIREnabled
		out.PIREnabled = &v
	}
	return out
}
