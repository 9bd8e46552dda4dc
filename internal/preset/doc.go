// Package preset manages room-scoped lighting presets and their reversal.
//
// # Purpose
//
// A preset is a named set of lighting actions for one room. Motion
// automation applies the room's scheduled preset on a rising sensor edge
// and, when the session times out, reverses it: each typed action knows
// how to undo itself, so lights return to their prior state instead of
// being cut to black.
//
// # Architecture
//
// The package has four pieces:
//
//   - ActionRegistry: maps action types to builders and reversers.
//     Built-in types are white.swell (swells back along its own curve)
//     and ws.solid (restores the previous colour, or goes dark).
//   - Repository / Catalog: SQLite persistence with an in-memory cache,
//     keyed by the (house, room, id) triple.
//   - Applier: publishes actions to nodes over the MQTT command bus with
//     an exhaustive dispatch on the lighting module.
//
// Actions without a type are inert: applied with the rest of the preset
// but skipped during reversal.
//
// # Usage
//
//	reg := preset.NewDefaultRegistry()
//	catalog := preset.NewCatalog(preset.NewSQLiteRepository(db.DB()))
//	applier := preset.NewApplier(bus)
//
//	p, err := catalog.Get(ctx, "home", "kitchen", "evening")
//	if err == nil {
//	    applier.ApplyPreset(p)
//	}
//
//	// Later, when motion lapses:
//	reversed, _ := reg.ReverseActions(p.Actions)
//	applier.Apply(reversed)
//
// # Thread Safety
//
// All exported types are safe for concurrent use.
package preset
