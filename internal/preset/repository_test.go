package preset

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the presets table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE presets (
			id TEXT NOT NULL,
			house_id TEXT NOT NULL,
			room_id TEXT NOT NULL,
			name TEXT NOT NULL,
			actions TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (house_id, room_id, id)
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

// testPreset creates a preset for testing.
func testPreset(houseID, roomID, id string) *Preset {
	return &Preset{
		ID:      id,
		HouseID: houseID,
		RoomID:  roomID,
		Name:    "Evening",
		Actions: []Action{
			{
				Node:       "kitchen-1",
				Module:     ModuleWhite,
				Index:      0,
				Effect:     "swell",
				Brightness: 200,
				Params:     []float64{0, 200},
				Type:       TypeWhiteSwell,
			},
			{
				Node:       "kitchen-1",
				Module:     ModuleWS,
				Index:      0,
				Effect:     "rainbow",
				Brightness: 160,
			},
		},
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	p := testPreset("home", "kitchen", "evening")
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, "home", "kitchen", "evening")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Evening" {
		t.Errorf("Name = %q, want %q", got.Name, "Evening")
	}
	if len(got.Actions) != 2 {
		t.Fatalf("len(Actions) = %d, want 2", len(got.Actions))
	}
	if got.Actions[0].Type != TypeWhiteSwell {
		t.Errorf("Actions[0].Type = %q, want %q", got.Actions[0].Type, TypeWhiteSwell)
	}
	if got.Actions[1].Type != "" {
		t.Errorf("Actions[1].Type = %q, want empty (inert)", got.Actions[1].Type)
	}
}

func TestSQLiteRepository_SamePresetIDAcrossRooms(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testPreset("home", "kitchen", "evening")); err != nil {
		t.Fatalf("Create(kitchen) error = %v", err)
	}
	hall := testPreset("home", "hall", "evening")
	hall.Name = "Hall Evening"
	if err := repo.Create(ctx, hall); err != nil {
		t.Fatalf("Create(hall) error = %v", err)
	}

	got, err := repo.Get(ctx, "home", "hall", "evening")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Hall Evening" {
		t.Errorf("Name = %q, want %q", got.Name, "Hall Evening")
	}
}

func TestSQLiteRepository_DuplicateTriple(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testPreset("home", "kitchen", "evening")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repo.Create(ctx, testPreset("home", "kitchen", "evening"))
	if !errors.Is(err, ErrPresetExists) {
		t.Errorf("Create() error = %v, want ErrPresetExists", err)
	}
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, "home", "kitchen", "missing")
	if !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("Get() error = %v, want ErrPresetNotFound", err)
	}

	err = repo.Delete(ctx, "home", "kitchen", "missing")
	if !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("Delete() error = %v, want ErrPresetNotFound", err)
	}
}

func TestSQLiteRepository_DeleteByRoom(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testPreset("home", "kitchen", "evening")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, testPreset("home", "kitchen", "night")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, testPreset("home", "hall", "evening")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.DeleteByRoom(ctx, "home", "kitchen"); err != nil {
		t.Fatalf("DeleteByRoom() error = %v", err)
	}

	remaining, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("len(remaining) = %d, want 1", len(remaining))
	}
	if remaining[0].RoomID != "hall" {
		t.Errorf("remaining preset room = %q, want %q", remaining[0].RoomID, "hall")
	}

	// Deleting from an already empty room is not an error.
	if err := repo.DeleteByRoom(ctx, "home", "kitchen"); err != nil {
		t.Errorf("DeleteByRoom() on empty room error = %v", err)
	}
}
