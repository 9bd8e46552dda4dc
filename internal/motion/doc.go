// Package motion implements the motion automation state machine.
//
// # Purpose
//
// Lighting nodes report motion over MQTT (PIR and ultrasonic sensors).
// This package turns those reports into lighting changes: a rising edge
// applies the room's scheduled preset, and when every sensor in the
// room has been quiet for its debounce window the preset is reversed.
//
// # Architecture
//
// Three cooperating pieces, all owned by the Manager:
//
//   - Manager: per-room sessions with one generation-counted timer per
//     sensor kind. Ultrasonic presence outranks PIR while asserted. A
//     retrigger restarts the timer without re-applying the preset.
//   - ScheduleStore: a per-room time-of-day grid mapping fixed-width
//     slots to preset IDs, persisted to a JSON file with atomic
//     write-then-rename. Lookup is pure slot arithmetic.
//   - PreferenceStore: per-room lists of immune nodes that motion
//     automation must never touch, persisted the same way.
//
// Sessions are deliberately in-memory only. A restart drops them; the
// retained command topics mean nodes keep their last state, and the
// next motion event rebuilds the session from scratch.
//
// # Usage
//
//	schedules, _ := motion.NewScheduleStore("schedules.json", 30)
//	prefs, _ := motion.NewPreferenceStore("immunity.json")
//
//	mgr := motion.NewManager(motion.Config{},
//	    topology, schedules, prefs, catalog, actionReg, applier, bus)
//	defer mgr.Stop()
//
//	client.Subscribe(mqtt.Topics{}.AllMotionEvents(), 1, mgr.HandleEvent)
//
// # Thread Safety
//
// All exported types are safe for concurrent use. The Manager holds a
// single mutex across session transitions so a room's state machine
// always observes events in a serial order.
package motion
