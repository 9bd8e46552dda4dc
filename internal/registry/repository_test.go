package registry

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the topology tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		PRAGMA foreign_keys = ON;

		CREATE TABLE houses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE rooms (
			id TEXT PRIMARY KEY,
			house_id TEXT NOT NULL REFERENCES houses(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE nodes (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT 'ws',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// seedTopology inserts a house, room, and node for tests that need a
// populated hierarchy.
func seedTopology(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	ctx := context.Background()

	if err := repo.CreateHouse(ctx, &House{ID: "home", Name: "Home"}); err != nil {
		t.Fatalf("CreateHouse() error = %v", err)
	}
	if err := repo.CreateRoom(ctx, &Room{ID: "kitchen", HouseID: "home", Name: "Kitchen"}); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if err := repo.CreateNode(ctx, &Node{ID: "kitchen-1", RoomID: "kitchen", Name: "Kitchen Main", Kind: "ws"}); err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}
}

func TestSQLiteRepository_HouseCRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("creates and retrieves house", func(t *testing.T) {
		if err := repo.CreateHouse(ctx, &House{ID: "home", Name: "Home"}); err != nil {
			t.Fatalf("CreateHouse() error = %v", err)
		}

		got, err := repo.GetHouse(ctx, "home")
		if err != nil {
			t.Fatalf("GetHouse() error = %v", err)
		}
		if got.Name != "Home" {
			t.Errorf("Name = %q, want %q", got.Name, "Home")
		}
		if got.CreatedAt.IsZero() {
			t.Error("CreatedAt is zero, want populated")
		}
	})

	t.Run("returns error for duplicate ID", func(t *testing.T) {
		err := repo.CreateHouse(ctx, &House{ID: "home", Name: "Duplicate"})
		if !errors.Is(err, ErrHouseExists) {
			t.Errorf("CreateHouse() error = %v, want ErrHouseExists", err)
		}
	})

	t.Run("returns not found for unknown ID", func(t *testing.T) {
		_, err := repo.GetHouse(ctx, "missing")
		if !errors.Is(err, ErrHouseNotFound) {
			t.Errorf("GetHouse() error = %v, want ErrHouseNotFound", err)
		}
	})

	t.Run("updates house name", func(t *testing.T) {
		if err := repo.UpdateHouse(ctx, &House{ID: "home", Name: "Main House"}); err != nil {
			t.Fatalf("UpdateHouse() error = %v", err)
		}
		got, err := repo.GetHouse(ctx, "home")
		if err != nil {
			t.Fatalf("GetHouse() error = %v", err)
		}
		if got.Name != "Main House" {
			t.Errorf("Name = %q, want %q", got.Name, "Main House")
		}
	})

	t.Run("update of missing house returns not found", func(t *testing.T) {
		err := repo.UpdateHouse(ctx, &House{ID: "missing", Name: "Ghost"})
		if !errors.Is(err, ErrHouseNotFound) {
			t.Errorf("UpdateHouse() error = %v, want ErrHouseNotFound", err)
		}
	})
}

func TestSQLiteRepository_RoomsAndNodes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()
	seedTopology(t, repo)

	t.Run("lists rooms by house", func(t *testing.T) {
		if err := repo.CreateRoom(ctx, &Room{ID: "hall", HouseID: "home", Name: "Hallway"}); err != nil {
			t.Fatalf("CreateRoom() error = %v", err)
		}

		rooms, err := repo.ListRoomsByHouse(ctx, "home")
		if err != nil {
			t.Fatalf("ListRoomsByHouse() error = %v", err)
		}
		if len(rooms) != 2 {
			t.Fatalf("len(rooms) = %d, want 2", len(rooms))
		}
	})

	t.Run("lists nodes by room", func(t *testing.T) {
		if err := repo.CreateNode(ctx, &Node{ID: "kitchen-2", RoomID: "kitchen", Name: "Kitchen Bench", Kind: "white"}); err != nil {
			t.Fatalf("CreateNode() error = %v", err)
		}

		nodes, err := repo.ListNodesByRoom(ctx, "kitchen")
		if err != nil {
			t.Fatalf("ListNodesByRoom() error = %v", err)
		}
		if len(nodes) != 2 {
			t.Fatalf("len(nodes) = %d, want 2", len(nodes))
		}
	})

	t.Run("node kind round-trips", func(t *testing.T) {
		got, err := repo.GetNode(ctx, "kitchen-2")
		if err != nil {
			t.Fatalf("GetNode() error = %v", err)
		}
		if got.Kind != "white" {
			t.Errorf("Kind = %q, want %q", got.Kind, "white")
		}
	})

	t.Run("deleting room cascades to nodes", func(t *testing.T) {
		if err := repo.DeleteRoom(ctx, "kitchen"); err != nil {
			t.Fatalf("DeleteRoom() error = %v", err)
		}

		_, err := repo.GetNode(ctx, "kitchen-1")
		if !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("GetNode() after room delete error = %v, want ErrNodeNotFound", err)
		}
	})

	t.Run("delete of missing node returns not found", func(t *testing.T) {
		err := repo.DeleteNode(ctx, "missing")
		if !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("DeleteNode() error = %v, want ErrNodeNotFound", err)
		}
	})
}
