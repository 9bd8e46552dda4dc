package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the UltraNode wire contract.
//
// Node topics use the scheme: ul/{node_id}/{direction}/{path}
// where direction is "cmd" for server-to-node commands and "evt" for
// node-to-server events. The strings are fixed by the firmware and must
// not change.
const (
	// TopicPrefix is the base for all node topics.
	TopicPrefix = "ul"

	// serverStatusTopic carries the server's online/offline presence.
	serverStatusTopic = "ul/server/status"
)

// Topics provides builders for UltraNode MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.WhiteSet("node-a1", 2)
//	// Returns: "ul/node-a1/cmd/white/set/2"
type Topics struct{}

// =============================================================================
// Command Topics (server → node)
// =============================================================================

// NodeCommand returns the command topic for an arbitrary command path.
//
// Example: ul/node-a1/cmd/motion/off
func (Topics) NodeCommand(nodeID, path string) string {
	return fmt.Sprintf("%s/%s/cmd/%s", TopicPrefix, nodeID, path)
}

// WSSet returns the command topic for addressable (WS) strip state.
// Each strip publishes to its own sub-topic so retained messages store
// the last state per strip independently.
//
// Example: ul/node-a1/cmd/ws/set/0
func (t Topics) WSSet(nodeID string, strip int) string {
	return t.NodeCommand(nodeID, fmt.Sprintf("ws/set/%d", strip))
}

// RGBSet returns the command topic for analog RGB strip state.
//
// Example: ul/node-a1/cmd/rgb/set/0
func (t Topics) RGBSet(nodeID string, strip int) string {
	return t.NodeCommand(nodeID, fmt.Sprintf("rgb/set/%d", strip))
}

// WhiteSet returns the command topic for a white channel.
//
// Example: ul/node-a1/cmd/white/set/3
func (t Topics) WhiteSet(nodeID string, channel int) string {
	return t.NodeCommand(nodeID, fmt.Sprintf("white/set/%d", channel))
}

// StatusRequest returns the topic that asks a node for a full status snapshot.
//
// Example: ul/node-a1/cmd/status
func (t Topics) StatusRequest(nodeID string) string {
	return t.NodeCommand(nodeID, "status")
}

// MotionStatusRequest returns the topic that asks a node for its motion
// capability report (pir_enabled).
//
// Example: ul/node-a1/cmd/motion/status
func (t Topics) MotionStatusRequest(nodeID string) string {
	return t.NodeCommand(nodeID, "motion/status")
}

// MotionOff returns the topic that fades a node's motion preset to off.
//
// Example: ul/node-a1/cmd/motion/off
func (t Topics) MotionOff(nodeID string) string {
	return t.NodeCommand(nodeID, "motion/off")
}

// =============================================================================
// Event Topics (node → server)
// =============================================================================

// MotionEvent returns the event topic a node publishes sensor triggers on.
//
// Example: ul/node-a1/evt/pir/motion
func (Topics) MotionEvent(nodeID, sensor string) string {
	return fmt.Sprintf("%s/%s/evt/%s/motion", TopicPrefix, nodeID, sensor)
}

// StatusEvent returns the event topic carrying a node's status snapshot.
//
// Example: ul/node-a1/evt/status
func (Topics) StatusEvent(nodeID string) string {
	return fmt.Sprintf("%s/%s/evt/status", TopicPrefix, nodeID)
}

// MotionStatusEvent returns the event topic carrying a node's motion
// capability report.
//
// Example: ul/node-a1/evt/motion/status
func (Topics) MotionStatusEvent(nodeID string) string {
	return fmt.Sprintf("%s/%s/evt/motion/status", TopicPrefix, nodeID)
}

// ServerStatus returns the server presence topic (LWT and graceful status).
//
// Example: ul/server/status
func (Topics) ServerStatus() string {
	return serverStatusTopic
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllMotionEvents returns a pattern matching all sensor motion events.
//
// Pattern: ul/+/evt/+/motion
func (Topics) AllMotionEvents() string {
	return fmt.Sprintf("%s/+/evt/+/motion", TopicPrefix)
}

// AllStatusEvents returns a pattern matching all node status snapshots.
//
// Pattern: ul/+/evt/status
func (Topics) AllStatusEvents() string {
	return fmt.Sprintf("%s/+/evt/status", TopicPrefix)
}

// AllMotionStatusEvents returns a pattern matching all motion capability
// reports.
//
// Pattern: ul/+/evt/motion/status
func (Topics) AllMotionStatusEvents() string {
	return fmt.Sprintf("%s/+/evt/motion/status", TopicPrefix)
}

// =============================================================================
// Topic Parsing
// =============================================================================

// EventKind identifies the category of a parsed inbound event topic.
type EventKind int

const (
	// EventUnknown marks topics that do not match the event contract.
	EventUnknown EventKind = iota

	// EventMotion is a sensor trigger: ul/{node}/evt/{sensor}/motion.
	EventMotion

	// EventStatus is a status snapshot: ul/{node}/evt/status.
	EventStatus

	// EventMotionStatus is a capability report: ul/{node}/evt/motion/status.
	EventMotionStatus
)

// Event is a parsed inbound event topic.
type Event struct {
	Kind   EventKind
	NodeID string

	// Sensor is the sensor identifier for EventMotion topics (e.g. "pir").
	Sensor string
}

// ParseEventTopic decodes an inbound topic against the event contract.
//
// Returns an Event with Kind EventUnknown when the topic does not match
// any known event shape. Malformed topics are expected on a shared broker
// and are not an error.
func ParseEventTopic(topic string) Event {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[0] != TopicPrefix || parts[2] != "evt" {
		return Event{Kind: EventUnknown}
	}

	nodeID := parts[1]
	if nodeID == "" {
		return Event{Kind: EventUnknown}
	}

	switch {
	case len(parts) == 4 && parts[3] == "status":
		return Event{Kind: EventStatus, NodeID: nodeID}
	case len(parts) == 5 && parts[3] == "motion" && parts[4] == "status":
		return Event{Kind: EventMotionStatus, NodeID: nodeID}
	case len(parts) == 5 && parts[4] == "motion" && parts[3] != "":
		return Event{Kind: EventMotion, NodeID: nodeID, Sensor: parts[3]}
	default:
		return Event{Kind: EventUnknown}
	}
}
