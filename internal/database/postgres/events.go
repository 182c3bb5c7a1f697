package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/facetrack/internal/database"
	"github.com/kozaktomas/facetrack/internal/events"
)

// EventRepository provides PostgreSQL-backed event journal storage
type EventRepository struct {
	pool *Pool
}

// NewEventRepository creates a new PostgreSQL event repository
func NewEventRepository(pool *Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// SaveEvent stores an event, ignoring duplicates by ID
func (r *EventRepository) SaveEvent(ctx context.Context, e database.StoredEvent) error {
	var embedding any
	if len(e.Embedding) > 0 {
		embedding = pgvector.NewVector(e.Embedding)
	}

	query := `
		INSERT INTO tracking_events (id, kind, remote_type, identifier, distance, face_count, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.exec(ctx, query,
		e.ID, string(e.Kind), e.RemoteType, e.Identifier, e.Distance, e.FaceCount, embedding, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events first
func (r *EventRepository) RecentEvents(ctx context.Context, limit int) ([]database.StoredEvent, error) {
	query := `
		SELECT id, kind, remote_type, identifier, distance, face_count, embedding::text, created_at
		FROM tracking_events
		ORDER BY created_at DESC, id
		LIMIT $1
	`
	rows, err := r.pool.query(ctx, query, database.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var result []database.StoredEvent
	for rows.Next() {
		var (
			e         database.StoredEvent
			kind      string
			embedding sql.NullString
		)
		if err := rows.Scan(&e.ID, &kind, &e.RemoteType, &e.Identifier, &e.Distance, &e.FaceCount, &embedding, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = events.Kind(kind)
		e.CreatedAt = e.CreatedAt.UTC()
		if embedding.Valid {
			var v pgvector.Vector
			if err := v.Scan(embedding.String); err != nil {
				return nil, fmt.Errorf("parse event embedding: %w", err)
			}
			e.Embedding = v.Slice()
		}
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
	if err := r.pool.queryRow(ctx, "SELECT COUNT(*) FROM tracking_events").Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

var _ database.EventWriter = (*EventRepository)(nil)
