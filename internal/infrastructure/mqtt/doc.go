// Package mqtt provides MQTT client connectivity for UltraLights Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Rate-limited node command publishing via Bus
//
// # Architecture
//
// UltraLights uses MQTT as the message bus connecting the Core to the
// lighting node fleet. Every node subscribes to its own "ul/{node}/cmd/#"
// subtree and reports events under "ul/{node}/evt/#"; the broker
// (Mosquitto) decouples Core from individual node firmware.
//
//	UltraLights Core ↔ MQTT Broker ↔ Lighting Nodes
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Node commands: rate-limited to 5/sec per node with latest-wins
//     coalescing per topic
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all motion events
//	err = client.Subscribe(mqtt.Topics{}.AllMotionEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a white channel command through the rate-limited bus
//	bus := mqtt.NewBus(client, 1)
//	bus.WhiteSet("node-a1", 0, "swell", 200, []float64{0, 200})
package mqtt
