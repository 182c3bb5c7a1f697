package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facetrack/internal/config"
	"github.com/kozaktomas/facetrack/internal/events"
	"github.com/kozaktomas/facetrack/internal/sample"
	"github.com/kozaktomas/facetrack/internal/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Replay a directory of frames against enrolled stills",
	Long: `Enroll one or more still images and classify every image in a directory,
in file name order, as if they were consecutive camera frames.

Prints the event of every frame followed by the deduplicated sequence that
would be forwarded to the event collector.

Examples:
  facetrack track --enroll alice=stills/alice.jpg --frames recordings/morning
  facetrack track --enroll alice=a.jpg --enroll bob=b.jpg --frames f/ --rotation 270 --json`,
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().StringSlice("enroll", nil, "Identifier and still image as id=path (repeatable)")
	trackCmd.Flags().String("frames", "", "Directory of frame images (required)")
	trackCmd.Flags().Int("rotation", 0, "Clockwise rotation in degrees applied to every frame")
	trackCmd.Flags().Bool("mirrored", false, "Frames are horizontally mirrored (default from TRACKER_MIRRORED)")
	trackCmd.Flags().Float64("threshold", 0, "Match threshold (default from TRACKER_MATCH_THRESHOLD)")
	trackCmd.Flags().Bool("json", false, "Print events as JSON lines")
	trackCmd.Flags().Int("skip-duplicates", -1, "Skip frames within this many hash bits of the previous frame (-1 = off)")
	_ = trackCmd.MarkFlagRequired("frames")
}

var frameExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true,
}

// parseEnrollments splits id=path pairs.
func parseEnrollments(values []string) (map[string]string, []string, error) {
	paths := make(map[string]string, len(values))
	var order []string
	for _, v := range values {
		id, path, ok := strings.Cut(v, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" || path == "" {
			return nil, nil, fmt.Errorf("invalid --enroll value %q, expected id=path", v)
		}
		if _, seen := paths[id]; !seen {
			order = append(order, id)
		}
		paths[id] = path
	}
	return paths, order, nil
}

// listFrames returns the image files of dir sorted by name.
func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frames directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func loadFrame(path string) (sample.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return sample.Frame{}, err
	}
	defer f.Close()

	img, _, err := sample.DecodeImage(f)
	if err != nil {
		return sample.Frame{}, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return sample.Frame{Image: img}, nil
}

// loadStill reads an enrollment photo, turned upright by its EXIF orientation.
func loadStill(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := sample.DecodeStill(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// collectingSink keeps forwarded events in order.
type collectingSink struct {
	mu     sync.Mutex
	events []events.TrackingEvent
}

func (s *collectingSink) Emit(_ context.Context, ev events.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *collectingSink) list() []events.TrackingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.TrackingEvent(nil), s.events...)
}

func enrollStills(ctx context.Context, tr *tracker.Tracker, paths map[string]string, order []string) error {
	for _, id := range order {
		img, err := loadStill(paths[id])
		if err != nil {
			return fmt.Errorf("enrolling %s: %w", id, err)
		}
		if _, err := tr.AddFace(ctx, id, img); err != nil {
			switch {
			case errors.Is(err, tracker.ErrMovedAway):
				return fmt.Errorf("enrolling %s: no face in %s", id, paths[id])
			case errors.Is(err, tracker.ErrMultipleSubjects):
				return fmt.Errorf("enrolling %s: more than one face in %s", id, paths[id])
			}
			return fmt.Errorf("enrolling %s: %w", id, err)
		}
		fmt.Printf("Enrolled %s from %s\n", id, paths[id])
	}
	return nil
}

type frameResult struct {
	File  string               `json:"file"`
	Event events.TrackingEvent `json:"event"`
}

func printEvent(asJSON bool, r frameResult) {
	if asJSON {
		data, _ := json.Marshal(r)
		fmt.Println(string(data))
		return
	}
	line := fmt.Sprintf("%-32s %-18s faces=%d", filepath.Base(r.File), r.Event.Kind, r.Event.Faces)
	if r.Event.Identifier != "" {
		line += fmt.Sprintf(" best=%s distance=%.3f", r.Event.Identifier, r.Event.Distance)
	}
	fmt.Println(line)
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	paths, order, err := parseEnrollments(mustGetStringSlice(cmd, "enroll"))
	if err != nil {
		return err
	}
	if len(order) == 0 {
		return errors.New("at least one --enroll id=path is required")
	}
	files, err := listFrames(mustGetString(cmd, "frames"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No frames found")
		return nil
	}
	cfg.Tracker.MatchThreshold = flagOrEnv(cmd, "threshold", cmd.Flags().GetFloat64, cfg.Tracker.MatchThreshold)
	rotation := mustGetInt(cmd, "rotation")
	mirrored := flagOrEnv(cmd, "mirrored", cmd.Flags().GetBool, cfg.Tracker.Mirrored)
	asJSON := mustGetBool(cmd, "json")
	dupes := sample.NewDuplicateFilter(mustGetInt(cmd, "skip-duplicates"))

	enc, err := loadEncoder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("loading encoder: %w", err)
	}
	defer enc.Close()

	forwarded := &collectingSink{}
	tr := newTracker(cfg, enc, forwarded)

	if err := enrollStills(ctx, tr, paths, order); err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Classifying frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetVisibility(!asJSON),
	)

	results := make([]frameResult, 0, len(files))
	var skipped, duplicates int
	for _, file := range files {
		frame, err := loadFrame(file)
		if err != nil {
			skipped++
			bar.Add(1)
			continue
		}
		if !dupes.Keep(frame.Image) {
			duplicates++
			bar.Add(1)
			continue
		}
		frame.RotationDegrees = rotation
		frame.Mirrored = mirrored

		ev := tr.ProcessFrame(ctx, frame)
		results = append(results, frameResult{File: file, Event: ev})
		bar.Add(1)
	}
	bar.Finish()

	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := tr.Close(closeCtx); err != nil {
		return fmt.Errorf("flushing forwarded events: %w", err)
	}

	if !asJSON {
		fmt.Printf("\nFrames (%d classified, %d unreadable, %d duplicates):\n", len(results), skipped, duplicates)
	}
	for _, r := range results {
		printEvent(asJSON, r)
	}

	fwd := forwarded.list()
	if asJSON {
		data, _ := json.Marshal(map[string]any{"forwarded": fwd})
		fmt.Println(string(data))
		return nil
	}
	fmt.Printf("\nForwarded (%d):\n", len(fwd))
	for _, ev := range fwd {
		fmt.Printf("  %s  %s\n", ev.Timestamp.Format(events.RemoteTimestampLayout), ev.Kind.RemoteType())
	}
	return nil
}
