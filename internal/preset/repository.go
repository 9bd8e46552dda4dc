package preset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for preset persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	Get(ctx context.Context, houseID, roomID, id string) (*Preset, error)
	List(ctx context.Context) ([]Preset, error)
	ListByRoom(ctx context.Context, houseID, roomID string) ([]Preset, error)
	Create(ctx context.Context, preset *Preset) error
	Update(ctx context.Context, preset *Preset) error
	Delete(ctx context.Context, houseID, roomID, id string) error
	DeleteByRoom(ctx context.Context, houseID, roomID string) error
}

// presetColumns is the SELECT column list for preset queries.
const presetColumns = `id, house_id, room_id, name, actions, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get retrieves a preset by its (house, room, id) triple.
func (r *SQLiteRepository) Get(ctx context.Context, houseID, roomID, id string) (*Preset, error) {
	query := `SELECT ` + presetColumns + ` FROM presets WHERE house_id = ? AND room_id = ? AND id = ?`

	row := r.db.QueryRowContext(ctx, query, houseID, roomID, id)
	preset, err := scanPreset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPresetNotFound
		}
		return nil, fmt.Errorf("querying preset: %w", err)
	}
	return preset, nil
}

// List retrieves all presets ordered by room then name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Preset, error) {
	query := `SELECT ` + presetColumns + ` FROM presets ORDER BY room_id, name`
	return r.queryPresets(ctx, query)
}

// ListByRoom retrieves all presets in a specific room.
func (r *SQLiteRepository) ListByRoom(ctx context.Context, houseID, roomID string) ([]Preset, error) {
	query := `SELECT ` + presetColumns + ` FROM presets WHERE house_id = ? AND room_id = ? ORDER BY name`
	return r.queryPresets(ctx, query, houseID, roomID)
}

// Create inserts a new preset.
func (r *SQLiteRepository) Create(ctx context.Context, preset *Preset) error {
	actionsJSON, err := json.Marshal(preset.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}

	now := time.Now().UTC()
	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = now
	}
	preset.UpdatedAt = now

	query := `
		INSERT INTO presets (id, house_id, room_id, name, actions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		preset.ID,
		preset.HouseID,
		preset.RoomID,
		preset.Name,
		string(actionsJSON),
		preset.CreatedAt.Format(time.RFC3339),
		preset.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrPresetExists
		}
		return fmt.Errorf("inserting preset: %w", err)
	}
	return nil
}

// Update modifies an existing preset.
func (r *SQLiteRepository) Update(ctx context.Context, preset *Preset) error {
	actionsJSON, err := json.Marshal(preset.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}

	preset.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE presets SET name = ?, actions = ?, updated_at = ?
		WHERE house_id = ? AND room_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, query,
		preset.Name,
		string(actionsJSON),
		preset.UpdatedAt.Format(time.RFC3339),
		preset.HouseID,
		preset.RoomID,
		preset.ID,
	)
	if err != nil {
		return fmt.Errorf("updating preset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPresetNotFound
	}
	return nil
}

// Delete removes a preset.
func (r *SQLiteRepository) Delete(ctx context.Context, houseID, roomID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM presets WHERE house_id = ? AND room_id = ? AND id = ?`,
		houseID, roomID, id)
	if err != nil {
		return fmt.Errorf("deleting preset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPresetNotFound
	}
	return nil
}

// DeleteByRoom removes all presets in a room. Used when a room is
// deleted; removing zero presets is not an error.
func (r *SQLiteRepository) DeleteByRoom(ctx context.Context, houseID, roomID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM presets WHERE house_id = ? AND room_id = ?`,
		houseID, roomID)
	if err != nil {
		return fmt.Errorf("deleting presets by room: %w", err)
	}
	return nil
}

// queryPresets executes a query and returns a slice of presets.
func (r *SQLiteRepository) queryPresets(ctx context.Context, query string, args ...any) ([]Preset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying presets: %w", err)
	}
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		preset, scanErr := scanPreset(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning preset: %w", scanErr)
		}
		presets = append(presets, *preset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating presets: %w", err)
	}
	return presets, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreset(scanner rowScanner) (*Preset, error) {
	var p Preset
	var actionsJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(&p.ID, &p.HouseID, &p.RoomID, &p.Name, &actionsJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		p.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		p.UpdatedAt = t
	}

	if actionsJSON != "" && actionsJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(actionsJSON), &p.Actions); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling actions: %w", jsonErr)
		}
	}
	if p.Actions == nil {
		p.Actions = []Action{}
	}

	return &p, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
