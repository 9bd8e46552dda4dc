package motion

import (
	"encoding/json"

	"github.com/ultralights/ultralights-core/internal/infrastructure/mqtt"
)

// motionEventPayload is the body of ul/{node}/evt/{sensor}/motion.
type motionEventPayload struct {
	State bool `json:"state"`
}

// motionStatusPayload is the body of ul/{node}/evt/motion/status.
// Full status snapshots on ul/{node}/evt/status may carry the same
// field. PIREnabled is a pointer so an absent field leaves the stored
// value untouched instead of clearing it.
type motionStatusPayload struct {
	PIREnabled *bool `json:"pir_enabled"`
}

// HandleEvent routes one inbound broker message to the manager.
//
// It matches the mqtt client's MessageHandler signature. Malformed
// topics and payloads are logged and dropped; the returned error is
// always nil so a bad message can never wedge the subscription.
func (m *Manager) HandleEvent(topic string, payload []byte) error {
	evt := mqtt.ParseEventTopic(topic)

	switch evt.Kind {
	case mqtt.EventMotion:
		kind := SensorKind(evt.Sensor)
		if !kind.Valid() {
			m.logger.Debug("ignoring event from unsupported sensor",
				"topic", topic, "sensor", evt.Sensor)
			return nil
		}
		var body motionEventPayload
		if err := json.Unmarshal(payload, &body); err != nil {
			m.logger.Warn("malformed motion event payload",
				"topic", topic, "error", err)
			return nil
		}
		m.OnMotionEvent(evt.NodeID, kind, body.State)

	case mqtt.EventStatus:
		m.OnStatus(evt.NodeID)
		var body motionStatusPayload
		if err := json.Unmarshal(payload, &body); err == nil && body.PIREnabled != nil {
			m.OnMotionStatus(evt.NodeID, body.PIREnabled)
		}

	case mqtt.EventMotionStatus:
		var body motionStatusPayload
		if err := json.Unmarshal(payload, &body); err != nil {
			m.logger.Warn("malformed motion status payload",
				"topic", topic, "error", err)
			return nil
		}
		m.OnMotionStatus(evt.NodeID, body.PIREnabled)

	default:
		m.logger.Debug("ignoring unrecognised event topic", "topic", topic)
	}

	return nil
}
