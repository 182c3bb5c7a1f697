package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facetrack/internal/config"
	"github.com/kozaktomas/facetrack/internal/database"
	"github.com/kozaktomas/facetrack/internal/database/mariadb"
	"github.com/kozaktomas/facetrack/internal/database/postgres"
	"github.com/kozaktomas/facetrack/internal/encoder"
	"github.com/kozaktomas/facetrack/internal/events"
	"github.com/kozaktomas/facetrack/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking API server",
	Long: `Start the Facetrack API server.
The server accepts enrollment stills and camera frames over HTTP, streams
tracking events over SSE and WebSocket, and forwards event changes to the
configured event collector.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Bool("start", false, "Start tracking immediately instead of waiting for /tracking/start")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// initJournal connects the configured event journal, if any. Returns nil
// when neither DATABASE_URL nor MARIADB_DSN is set.
func initJournal(ctx context.Context, cfg *config.Config) (*database.Journal, func(), error) {
	var (
		backend io.Closer
		err     error
	)
	switch {
	case cfg.Database.URL != "":
		fmt.Printf("Connecting to PostgreSQL event journal...\n")
		backend, err = postgres.Initialize(ctx, &cfg.Database)
	case cfg.Database.MariaDBDSN != "":
		fmt.Printf("Connecting to MariaDB event journal...\n")
		backend, err = mariadb.Initialize(ctx, cfg.Database.MariaDBDSN)
	default:
		fmt.Println("No event journal configured")
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize event journal: %w", err)
	}

	closeFn := func() { _ = backend.Close() }
	store, err := database.GetEventWriter(ctx)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	fmt.Printf("Event journal: %s\n", database.Backend())
	return database.NewJournal(store), closeFn, nil
}

// buildSink combines the log, collector and journal sinks.
func buildSink(cfg *config.Config, journal *database.Journal) events.Sink {
	sinks := events.MultiSink{events.LogSink{}}
	if cfg.EventAPI.URL != "" {
		sinks = append(sinks, events.NewAPISink(cfg.EventAPI.URL, cfg.EventAPI.APIKey, &http.Client{Timeout: cfg.Sink.Timeout}))
	}
	if journal != nil {
		sinks = append(sinks, journal)
	}
	return sinks
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	enc, err := loadEncoder(ctx, cfg)
	if errors.Is(err, encoder.ErrModelLoad) {
		log.Fatalf("Cannot start without a face model: %v", err)
	}
	if err != nil {
		return fmt.Errorf("loading encoder: %w", err)
	}
	defer enc.Close()

	journal, closeJournal, err := initJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	describeBackends(cfg, enc)
	tr := newTracker(cfg, enc, buildSink(cfg, journal))

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, tr, journal, port, host)

	if mustGetBool(cmd, "start") {
		tr.Start(ctx)
		fmt.Println("Tracking started")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Facetrack API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	// Flush pending forwards before the journal closes
	closeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := tr.Close(closeCtx); err != nil {
		fmt.Printf("Warning: not all events were forwarded: %v\n", err)
	}
	return nil
}
