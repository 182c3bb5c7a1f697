package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/facetrack/internal/constants"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Tracker  TrackerConfig  `yaml:"tracker"`
	Encoder  EncoderConfig  `yaml:"encoder"`
	Detector DetectorConfig `yaml:"detector"`
	Registry RegistryConfig `yaml:"registry"`
	Sink     SinkConfig     `yaml:"sink"`
	EventAPI EventAPIConfig `yaml:"-"`
	Database DatabaseConfig `yaml:"-"`
	Web      WebConfig      `yaml:"-"`
}

type TrackerConfig struct {
	InputSize        int           `yaml:"input_size"`
	OutputSize       int           `yaml:"output_size"`
	ImageMean        float64       `yaml:"image_mean"`
	ImageStd         float64       `yaml:"image_std"`
	MatchThreshold   float64       `yaml:"match_threshold"`
	MinFrameInterval time.Duration `yaml:"min_frame_interval"`
	FrameTimeout     time.Duration `yaml:"frame_timeout"`
	Mirrored         bool          `yaml:"mirrored"` // front camera frames are horizontally flipped
}

type EncoderConfig struct {
	Backend     string        `yaml:"backend"`
	ModelPath   string        `yaml:"model_path"`
	LibraryPath string        `yaml:"-"` // path to libonnxruntime, empty uses the system default
	InputName   string        `yaml:"input_name"`
	OutputName  string        `yaml:"output_name"`
	URL         string        `yaml:"-"` // embedding server for the remote backend
	Timeout     time.Duration `yaml:"timeout"`
}

type DetectorConfig struct {
	URL          string        `yaml:"-"` // defaults to http://localhost:8000
	MinScore     float64       `yaml:"min_score"`
	IoUThreshold float64       `yaml:"iou_threshold"`
	Timeout      time.Duration `yaml:"timeout"`
}

type RegistryConfig struct {
	HNSWMinEntries int `yaml:"hnsw_min_entries"`
	HNSWCandidates int `yaml:"hnsw_candidates"`
}

type SinkConfig struct {
	QueueSize int           `yaml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// EventAPIConfig locates the remote event collector. Forwarding is disabled when URL is empty.
type EventAPIConfig struct {
	URL    string
	APIKey string
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL for the event journal
	MariaDBDSN   string // MariaDB DSN for the event journal (e.g., facetrack:facetrack@tcp(mariadb:3306)/facetrack)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	APIKey         string   // required X-API-KEY for /api/v1 when set
	AllowedOrigins []string // extra CORS/WebSocket origins; loopback is always allowed
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envNonNegativeInt is envInt that also accepts zero.
func envNonNegativeInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a Go duration string such as "10ms"; zero is allowed.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping blank items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// defaults parses the embedded defaults and fills anything missing from constants.
func defaults() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	if cfg.Tracker.InputSize == 0 {
		cfg.Tracker.InputSize = constants.InputSize
	}
	if cfg.Tracker.OutputSize == 0 {
		cfg.Tracker.OutputSize = constants.OutputSize
	}
	if cfg.Tracker.ImageMean == 0 {
		cfg.Tracker.ImageMean = constants.ImageMean
	}
	if cfg.Tracker.ImageStd == 0 {
		cfg.Tracker.ImageStd = constants.ImageStd
	}
	if cfg.Tracker.MatchThreshold == 0 {
		cfg.Tracker.MatchThreshold = constants.MatchThreshold
	}
	if cfg.Tracker.FrameTimeout == 0 {
		cfg.Tracker.FrameTimeout = constants.FrameTimeout
	}
	if cfg.Detector.IoUThreshold == 0 {
		cfg.Detector.IoUThreshold = constants.IoUThreshold
	}
	if cfg.Registry.HNSWCandidates == 0 {
		cfg.Registry.HNSWCandidates = constants.HNSWCandidates
	}
	if cfg.Sink.QueueSize == 0 {
		cfg.Sink.QueueSize = constants.SinkQueueSize
	}
	if cfg.Sink.Timeout == 0 {
		cfg.Sink.Timeout = constants.SinkTimeout
	}
	return cfg
}

func Load() *Config {
	cfg := defaults()

	cfg.Tracker.MatchThreshold = envFloat("TRACKER_MATCH_THRESHOLD", cfg.Tracker.MatchThreshold)
	cfg.Tracker.MinFrameInterval = envDuration("TRACKER_MIN_FRAME_INTERVAL", cfg.Tracker.MinFrameInterval)
	cfg.Tracker.FrameTimeout = envDuration("TRACKER_FRAME_TIMEOUT", cfg.Tracker.FrameTimeout)
	cfg.Tracker.Mirrored = envBool("TRACKER_MIRRORED", cfg.Tracker.Mirrored)

	cfg.Encoder.Backend = envString("ENCODER_BACKEND", cfg.Encoder.Backend)
	cfg.Encoder.ModelPath = envString("ENCODER_MODEL_PATH", cfg.Encoder.ModelPath)
	cfg.Encoder.LibraryPath = os.Getenv("ONNXRUNTIME_LIB")
	cfg.Encoder.InputName = envString("ENCODER_INPUT_NAME", cfg.Encoder.InputName)
	cfg.Encoder.OutputName = envString("ENCODER_OUTPUT_NAME", cfg.Encoder.OutputName)
	cfg.Encoder.URL = os.Getenv("EMBEDDING_URL")

	cfg.Detector.URL = os.Getenv("DETECTOR_URL")
	cfg.Detector.MinScore = envFloat("DETECTOR_MIN_SCORE", cfg.Detector.MinScore)

	cfg.Registry.HNSWMinEntries = envNonNegativeInt("REGISTRY_HNSW_MIN_ENTRIES", cfg.Registry.HNSWMinEntries)

	cfg.EventAPI = EventAPIConfig{
		URL:    os.Getenv("EVENT_API_URL"),
		APIKey: os.Getenv("EVENT_API_KEY"),
	}
	cfg.Database = DatabaseConfig{
		URL:          os.Getenv("DATABASE_URL"),
		MariaDBDSN:   os.Getenv("MARIADB_DSN"),
		MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
	}
	cfg.Web = WebConfig{
		APIKey:         os.Getenv("WEB_API_KEY"),
		AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
	}

	return &cfg
}
