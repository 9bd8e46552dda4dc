package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteMotionEvent records a sensor motion edge.
//
// This is the primary method for recording motion telemetry. The write
// is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - houseID: House the reporting node belongs to
//   - roomID: Room the reporting node belongs to
//   - nodeID: Node that raised the event (e.g., "kitchen-1")
//   - sensor: Sensor kind ("pir" or "ultra")
//   - state: true on a rising edge, false on a falling edge
//
// Example:
//
//	client.WriteMotionEvent("home", "kitchen", "kitchen-1", "pir", true)
func (c *Client) WriteMotionEvent(houseID, roomID, nodeID, sensor string, state bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"motion_events",
		map[string]string{
			"house_id": houseID,
			"room_id":  roomID,
			"node_id":  nodeID,
			"sensor":   sensor,
		},
		map[string]interface{}{
			"state": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePresetTransition records a motion preset being applied or reversed
// in a room.
//
// Parameters:
//   - houseID: House identifier
//   - roomID: Room identifier
//   - presetID: Preset that changed state
//   - transition: "applied" or "reversed"
func (c *Client) WritePresetTransition(houseID, roomID, presetID, transition string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"motion_presets",
		map[string]string{
			"house_id":   houseID,
			"room_id":    roomID,
			"preset_id":  presetID,
			"transition": transition,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteNodePresence records a node going online or offline.
//
// Used for tracking fleet availability over time.
func (c *Client) WriteNodePresence(nodeID string, online bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"node_presence",
		map[string]string{
			"node_id": nodeID,
		},
		map[string]interface{}{
			"online": online,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
