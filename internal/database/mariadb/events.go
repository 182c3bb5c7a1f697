package mariadb

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facetrack/internal/database"
	"github.com/kozaktomas/facetrack/internal/events"
)

// EventRepository stores the event journal in MariaDB. Embeddings are not kept.
type EventRepository struct {
	pool *Pool
}

// NewEventRepository creates a new MariaDB event repository
func NewEventRepository(pool *Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// EnsureSchema creates the journal table if it does not exist yet.
func (r *EventRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS tracking_events (
			id          CHAR(36) PRIMARY KEY,
			kind        VARCHAR(32) NOT NULL,
			remote_type VARCHAR(32) NOT NULL,
			identifier  VARCHAR(255) NOT NULL DEFAULT '',
			distance    DOUBLE NOT NULL DEFAULT 0,
			face_count  INT NOT NULL DEFAULT 0,
			created_at  DATETIME(6) NOT NULL,
			INDEX idx_tracking_events_created_at (created_at)
		)
	`
	if _, err := r.pool.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create tracking_events table: %w", err)
	}
	return nil
}

// SaveEvent stores an event, ignoring duplicates by ID
func (r *EventRepository) SaveEvent(ctx context.Context, e database.StoredEvent) error {
	query := `
		INSERT IGNORE INTO tracking_events (id, kind, remote_type, identifier, distance, face_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		e.ID, string(e.Kind), e.RemoteType, e.Identifier, e.Distance, e.FaceCount, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events first
func (r *EventRepository) RecentEvents(ctx context.Context, limit int) ([]database.StoredEvent, error) {
	query := `
		SELECT id, kind, remote_type, identifier, distance, face_count, created_at
		FROM tracking_events
		ORDER BY created_at DESC, id
		LIMIT ?
	`
	rows, err := r.pool.db.QueryContext(ctx, query, database.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var result []database.StoredEvent
	for rows.Next() {
		var (
			e    database.StoredEvent
			kind string
		)
		if err := rows.Scan(&e.ID, &kind, &e.RemoteType, &e.Identifier, &e.Distance, &e.FaceCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = events.Kind(kind)
		e.CreatedAt = e.CreatedAt.UTC()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return result, nil
}

// CountEvents returns the number of journaled events
func (r *EventRepository) CountEvents(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracking_events").Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

var _ database.EventWriter = (*EventRepository)(nil)
