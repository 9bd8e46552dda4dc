// Package registry manages the house/room/node topology for UltraLights Core.
//
// # Purpose
//
// Every lighting node on the bus belongs to exactly one room, and every
// room to exactly one house. Motion automation is room-scoped, so the
// first step in handling any inbound event is resolving the reporting
// node to its placement. This package owns that mapping.
//
// # Architecture
//
// The package follows a two-layer design:
//
//   - Repository: SQLite persistence for houses, rooms, and nodes
//   - Registry: in-memory cache over the repository with resolution
//     helpers (FindNode, NodesInRoom) used on the MQTT hot path
//
// All reads from the Registry return deep copies, so callers can never
// mutate cached state.
//
// # Usage
//
//	repo := registry.NewSQLiteRepository(db.DB())
//	reg := registry.NewRegistry(repo)
//	if err := reg.RefreshCache(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	placement, err := reg.FindNode("kitchen-1")
//	if err != nil {
//	    // unregistered node, drop the event
//	}
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use.
package registry
