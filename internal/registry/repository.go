package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for topology persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// House CRUD
	GetHouse(ctx context.Context, id string) (*House, error)
	ListHouses(ctx context.Context) ([]House, error)
	CreateHouse(ctx context.Context, house *House) error
	UpdateHouse(ctx context.Context, house *House) error
	DeleteHouse(ctx context.Context, id string) error

	// Room CRUD
	GetRoom(ctx context.Context, id string) (*Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	ListRoomsByHouse(ctx context.Context, houseID string) ([]Room, error)
	CreateRoom(ctx context.Context, room *Room) error
	UpdateRoom(ctx context.Context, room *Room) error
	DeleteRoom(ctx context.Context, id string) error

	// Node CRUD
	GetNode(ctx context.Context, id string) (*Node, error)
	ListNodes(ctx context.Context) ([]Node, error)
	ListNodesByRoom(ctx context.Context, roomID string) ([]Node, error)
	CreateNode(ctx context.Context, node *Node) error
	UpdateNode(ctx context.Context, node *Node) error
	DeleteNode(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ─── Houses ─────────────────────────────────────────────────────────────────

const houseColumns = `id, name, created_at, updated_at`

// GetHouse retrieves a house by its unique identifier.
func (r *SQLiteRepository) GetHouse(ctx context.Context, id string) (*House, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+houseColumns+` FROM houses WHERE id = ?`, id)

	var h House
	var createdAt, updatedAt string
	if err := row.Scan(&h.ID, &h.Name, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHouseNotFound
		}
		return nil, fmt.Errorf("querying house by id: %w", err)
	}
	h.CreatedAt = parseTimestamp(createdAt)
	h.UpdatedAt = parseTimestamp(updatedAt)
	return &h, nil
}

// ListHouses retrieves all houses ordered by name.
func (r *SQLiteRepository) ListHouses(ctx context.Context) ([]House, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+houseColumns+` FROM houses ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying houses: %w", err)
	}
	defer rows.Close()

	var houses []House
	for rows.Next() {
		var h House
		var createdAt, updatedAt string
		if err := rows.Scan(&h.ID, &h.Name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning house: %w", err)
		}
		h.CreatedAt = parseTimestamp(createdAt)
		h.UpdatedAt = parseTimestamp(updatedAt)
		houses = append(houses, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating houses: %w", err)
	}
	return houses, nil
}

// CreateHouse inserts a new house.
func (r *SQLiteRepository) CreateHouse(ctx context.Context, house *House) error {
	now := time.Now().UTC()
	if house.CreatedAt.IsZero() {
		house.CreatedAt = now
	}
	house.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO houses (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		house.ID, house.Name,
		house.CreatedAt.Format(time.RFC3339),
		house.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrHouseExists
		}
		return fmt.Errorf("inserting house: %w", err)
	}
	return nil
}

// UpdateHouse modifies an existing house.
func (r *SQLiteRepository) UpdateHouse(ctx context.Context, house *House) error {
	house.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE houses SET name = ?, updated_at = ? WHERE id = ?`,
		house.Name, house.UpdatedAt.Format(time.RFC3339), house.ID,
	)
	if err != nil {
		return fmt.Errorf("updating house: %w", err)
	}
	return checkAffected(result, ErrHouseNotFound)
}

// DeleteHouse removes a house. Rooms and nodes cascade via foreign keys.
func (r *SQLiteRepository) DeleteHouse(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM houses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting house: %w", err)
	}
	return checkAffected(result, ErrHouseNotFound)
}

// ─── Rooms ──────────────────────────────────────────────────────────────────

const roomColumns = `id, house_id, name, created_at, updated_at`

// GetRoom retrieves a room by its unique identifier.
func (r *SQLiteRepository) GetRoom(ctx context.Context, id string) (*Room, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)

	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("querying room by id: %w", err)
	}
	return room, nil
}

// ListRooms retrieves all rooms ordered by name.
func (r *SQLiteRepository) ListRooms(ctx context.Context) ([]Room, error) {
	return r.queryRooms(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name`)
}

// ListRoomsByHouse retrieves all rooms in a specific house.
func (r *SQLiteRepository) ListRoomsByHouse(ctx context.Context, houseID string) ([]Room, error) {
	return r.queryRooms(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE house_id = ? ORDER BY name`, houseID)
}

// CreateRoom inserts a new room.
func (r *SQLiteRepository) CreateRoom(ctx context.Context, room *Room) error {
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (id, house_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		room.ID, room.HouseID, room.Name,
		room.CreatedAt.Format(time.RFC3339),
		room.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrRoomExists
		}
		return fmt.Errorf("inserting room: %w", err)
	}
	return nil
}

// UpdateRoom modifies an existing room.
func (r *SQLiteRepository) UpdateRoom(ctx context.Context, room *Room) error {
	room.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET house_id = ?, name = ?, updated_at = ? WHERE id = ?`,
		room.HouseID, room.Name, room.UpdatedAt.Format(time.RFC3339), room.ID,
	)
	if err != nil {
		return fmt.Errorf("updating room: %w", err)
	}
	return checkAffected(result, ErrRoomNotFound)
}

// DeleteRoom removes a room. Nodes cascade via foreign keys.
func (r *SQLiteRepository) DeleteRoom(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}
	return checkAffected(result, ErrRoomNotFound)
}

// queryRooms executes a query and returns a slice of rooms.
func (r *SQLiteRepository) queryRooms(ctx context.Context, query string, args ...any) ([]Room, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		room, scanErr := scanRoom(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning room: %w", scanErr)
		}
		rooms = append(rooms, *room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}
	return rooms, nil
}

// ─── Nodes ──────────────────────────────────────────────────────────────────

const nodeColumns = `id, room_id, name, kind, created_at, updated_at`

// GetNode retrieves a node by its unique identifier.
func (r *SQLiteRepository) GetNode(ctx context.Context, id string) (*Node, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)

	node, err := scanNode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("querying node by id: %w", err)
	}
	return node, nil
}

// ListNodes retrieves all nodes ordered by name.
func (r *SQLiteRepository) ListNodes(ctx context.Context) ([]Node, error) {
	return r.queryNodes(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY name`)
}

// ListNodesByRoom retrieves all nodes in a specific room.
func (r *SQLiteRepository) ListNodesByRoom(ctx context.Context, roomID string) ([]Node, error) {
	return r.queryNodes(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE room_id = ? ORDER BY name`, roomID)
}

// CreateNode inserts a new node.
func (r *SQLiteRepository) CreateNode(ctx context.Context, node *Node) error {
	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	node.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO nodes (id, room_id, name, kind, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		node.ID, node.RoomID, node.Name, node.Kind,
		node.CreatedAt.Format(time.RFC3339),
		node.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrNodeExists
		}
		return fmt.Errorf("inserting node: %w", err)
	}
	return nil
}

// UpdateNode modifies an existing node.
func (r *SQLiteRepository) UpdateNode(ctx context.Context, node *Node) error {
	node.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE nodes SET room_id = ?, name = ?, kind = ?, updated_at = ? WHERE id = ?`,
		node.RoomID, node.Name, node.Kind, node.UpdatedAt.Format(time.RFC3339), node.ID,
	)
	if err != nil {
		return fmt.Errorf("updating node: %w", err)
	}
	return checkAffected(result, ErrNodeNotFound)
}

// DeleteNode removes a node by ID.
func (r *SQLiteRepository) DeleteNode(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	return checkAffected(result, ErrNodeNotFound)
}

// queryNodes executes a query and returns a slice of nodes.
func (r *SQLiteRepository) queryNodes(ctx context.Context, query string, args ...any) ([]Node, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		node, scanErr := scanNode(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning node: %w", scanErr)
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(scanner rowScanner) (*Room, error) {
	var room Room
	var createdAt, updatedAt string
	err := scanner.Scan(&room.ID, &room.HouseID, &room.Name, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	room.CreatedAt = parseTimestamp(createdAt)
	room.UpdatedAt = parseTimestamp(updatedAt)
	return &room, nil
}

func scanNode(scanner rowScanner) (*Node, error) {
	var node Node
	var createdAt, updatedAt string
	err := scanner.Scan(&node.ID, &node.RoomID, &node.Name, &node.Kind, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	node.CreatedAt = parseTimestamp(createdAt)
	node.UpdatedAt = parseTimestamp(updatedAt)
	return &node, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

// parseTimestamp parses an RFC3339 timestamp, returning the zero time on
// failure. The format is controlled by this package so failures are benign.
func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s) //nolint:errcheck // Format is controlled
	return t
}

func checkAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
