//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/facetrack/internal/config"
	"github.com/kozaktomas/facetrack/internal/database"
	"github.com/kozaktomas/facetrack/internal/events"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestEventRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewEventRepository(pool)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	unknownID := uuid.NewString()
	embedding := make([]float32, 192)
	for i := range embedding {
		embedding[i] = float32(i) / 192.0
	}

	t.Run("SaveAndRead", func(t *testing.T) {
		err := repo.SaveEvent(ctx, database.StoredEvent{
			ID:         uuid.NewString(),
			Kind:       events.MovedAway,
			RemoteType: "MOVED_AWAY",
			CreatedAt:  base,
		})
		if err != nil {
			t.Fatalf("Failed to save event: %v", err)
		}

		err = repo.SaveEvent(ctx, database.StoredEvent{
			ID:         unknownID,
			Kind:       events.UnknownSubject,
			RemoteType: "UNKNOWN_SUBJECT",
			Identifier: "alice",
			Distance:   1.4,
			FaceCount:  1,
			Embedding:  embedding,
			CreatedAt:  base.Add(time.Second),
		})
		if err != nil {
			t.Fatalf("Failed to save event: %v", err)
		}

		got, err := repo.RecentEvents(ctx, 10)
		if err != nil {
			t.Fatalf("Failed to read events: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 events, got %d", len(got))
		}
		if got[0].ID != unknownID {
			t.Errorf("Expected newest event first, got %s", got[0].ID)
		}
		if got[0].Identifier != "alice" || got[0].FaceCount != 1 {
			t.Errorf("Unexpected row: %+v", got[0])
		}
		if len(got[0].Embedding) != 192 {
			t.Errorf("Expected 192 dimensions, got %d", len(got[0].Embedding))
		}
		if got[1].Embedding != nil {
			t.Errorf("Expected no embedding for MOVED_AWAY, got %d values", len(got[1].Embedding))
		}
		if !got[1].CreatedAt.Equal(base) {
			t.Errorf("Expected created_at %v, got %v", base, got[1].CreatedAt)
		}
	})

	t.Run("DuplicateIgnored", func(t *testing.T) {
		err := repo.SaveEvent(ctx, database.StoredEvent{
			ID:         unknownID,
			Kind:       events.MultipleSubjects,
			RemoteType: "MULTIPLE_SUBJECTS",
			CreatedAt:  base.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("Failed to save duplicate: %v", err)
		}
		count, err := repo.CountEvents(ctx)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2, got %d", count)
		}
	})

	t.Run("Limit", func(t *testing.T) {
		got, err := repo.RecentEvents(ctx, 1)
		if err != nil {
			t.Fatalf("Failed to read events: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("Expected 1 event, got %d", len(got))
		}
	})

	t.Run("Journal", func(t *testing.T) {
		journal := database.NewJournal(repo)
		ev := events.NewEvent(events.MultipleSubjects, 3, base.Add(2*time.Second))
		if err := journal.Emit(ctx, ev); err != nil {
			t.Fatalf("Failed to emit: %v", err)
		}
		recent, err := journal.Recent(ctx, 1)
		if err != nil {
			t.Fatalf("Failed to read journal: %v", err)
		}
		if len(recent) != 1 || recent[0].ID != ev.ID || recent[0].Faces != 3 {
			t.Errorf("Unexpected journal read: %+v", recent)
		}
	})
}

func TestMigrationsApplied(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	// Running again is a no-op
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}

	versions, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	if len(versions) != 2 || versions[0] != "001_tracking_events.sql" {
		t.Errorf("Unexpected migrations: %v", versions)
	}
}
