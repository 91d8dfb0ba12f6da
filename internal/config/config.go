package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	BBox            domain.BBox
	ProjectDir      string
	DEMResolutionM  int
	StreamThreshold int

	TileEndpoint  string
	TileTimeout   time.Duration
	TileCacheSize int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional workflow stage-event publishing.
	KafkaBrokers       []string
	KafkaEventsTopic   string
	KafkaEventsEnabled bool

	Paths Paths
}

// Paths is the immutable table of output locations under the project
// directory, resolved once at startup. Filenames are fixed by convention so
// downstream consumers can find outputs without coordination.
type Paths struct {
	InputDEMDir      string
	MergedDEM        string
	HydroDir         string
	FlowAccumulation string
	FlowDirection    string
	StreamNetwork    string
	PourPoints       string
	SubCatchments    string
}

// ResolvePaths builds the output path table for a project directory.
func ResolvePaths(projectDir string) Paths {
	inputDir := filepath.Join(projectDir, "input_dem")
	hydroDir := filepath.Join(projectDir, "hydro_outputs")
	return Paths{
		InputDEMDir:      inputDir,
		MergedDEM:        filepath.Join(inputDir, "dem_merged.tif"),
		HydroDir:         hydroDir,
		FlowAccumulation: filepath.Join(hydroDir, "flow_accumulation.tif"),
		FlowDirection:    filepath.Join(hydroDir, "flow_direction_d8.tif"),
		StreamNetwork:    filepath.Join(hydroDir, "stream_network.gpkg"),
		PourPoints:       filepath.Join(hydroDir, "pour_points.gpkg"),
		SubCatchments:    filepath.Join(hydroDir, "sub_catchments.gpkg"),
	}
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	bboxStr := os.Getenv("BBOX")
	if bboxStr == "" {
		return nil, errors.New("BBOX is required")
	}
	bbox, err := domain.ParseBBox(bboxStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BBOX: %w", err)
	}

	projectDir := os.Getenv("PROJECT_DIR")
	if projectDir == "" {
		return nil, errors.New("PROJECT_DIR is required")
	}

	resolution, err := positiveInt("DEM_RESOLUTION_M", 10)
	if err != nil {
		return nil, err
	}
	threshold, err := positiveInt("STREAM_THRESHOLD", 5000)
	if err != nil {
		return nil, err
	}
	cacheSize, err := positiveInt("TILE_CACHE_SIZE", 16)
	if err != nil {
		return nil, err
	}

	tileTimeout, err := duration("TILE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := duration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	eventsEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_EVENTS_ENABLED"); v != "" {
		eventsEnabled = v == "true"
	}

	cfg := &Config{
		BBox:            bbox,
		ProjectDir:      projectDir,
		DEMResolutionM:  resolution,
		StreamThreshold: threshold,

		TileEndpoint:  envOrDefault("TILE_ENDPOINT", "https://elevation.nationalmap.gov/arcgis/rest/services/3DEPElevation"),
		TileTimeout:   tileTimeout,
		TileCacheSize: cacheSize,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:       brokers,
		KafkaEventsTopic:   envOrDefault("KAFKA_EVENTS_TOPIC", "terrain-workflow-events"),
		KafkaEventsEnabled: eventsEnabled,

		Paths: ResolvePaths(projectDir),
	}

	if cfg.KafkaEventsEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_EVENTS_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
