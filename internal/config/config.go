// Package config loads configuration from environment variables and CLI
// flags into a single structured Config, the way the teacher's
// internal/config package layers viper over .env (spec §1, §6).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is shared by both binaries: Bragi (HTTP query surface) reads
// Server+Backend+Log+Query, the ingest CLI reads Ingest+Backend+Log.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Log     LogConfig
	Ingest  IngestConfig
	Query   QueryConfig
}

// ServerConfig configures Bragi's HTTP surface (spec §4.I).
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

// BackendConfig configures the Backend Adapter's connection to the search
// engine (spec §4.C).
type BackendConfig struct {
	ConnectionString string
	AuthToken        string
	NbThreads        int
	RequestTimeout   time.Duration
	RootAlias        string
}

// LogConfig configures the zap logger (spec §6: RUST_LOG-style level var).
type LogConfig struct {
	Level string
}

// IngestConfig configures the ingest CLI (spec §6).
type IngestConfig struct {
	Input             string
	Dataset           string
	Levels            []int
	ImportWay         bool
	ImportAdmin       bool
	ImportPoi         bool
	ErrorRatioThreshold float64
	BatchSize         int
	BatchBytes        int64
	MaxRetries        int
}

// QueryConfig configures query-time ranking defaults (spec §4.G).
type QueryConfig struct {
	GeoDecayScaleKm float64
	TypeBoosts      map[string]float64
	DefaultLimit    int
	MaxLimit        int
}

// Load reads environment variables (and, if bound beforehand via BindFlags,
// CLI flags) into a Config, applying the same default-filling pattern as
// the teacher's config.Load.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // absent .env is fine; env vars still apply

	// INGEST_LEVELS is a comma-separated string when it comes from the
	// environment and an []int when it comes from the bound --level flag.
	levels := parseIntList(viper.GetString("INGEST_LEVELS"))
	if fromFlag, ok := viper.Get("INGEST_LEVELS").([]int); ok && len(fromFlag) > 0 {
		levels = fromFlag
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           viper.GetString("BRAGI_HOST"),
			Port:           viper.GetInt("BRAGI_PORT"),
			RequestTimeout: durationOrDefault("BRAGI_REQUEST_TIMEOUT_MS", 10_000) * time.Millisecond,
		},
		Backend: BackendConfig{
			ConnectionString: viper.GetString("BACKEND_CONNECTION_STRING"),
			AuthToken:        viper.GetString("BACKEND_AUTH_TOKEN"),
			NbThreads:        intOrDefault("BACKEND_NB_THREADS", 4),
			RequestTimeout:   durationOrDefault("BACKEND_REQUEST_TIMEOUT_MS", 5_000) * time.Millisecond,
			RootAlias:        stringOrDefault("BACKEND_ROOT_ALIAS", "munin"),
		},
		Log: LogConfig{
			Level: stringOrDefault("LOG_LEVEL", "info"),
		},
		Ingest: IngestConfig{
			Input:               viper.GetString("INGEST_INPUT"),
			Dataset:              viper.GetString("INGEST_DATASET"),
			Levels:               levels,
			ImportWay:            viper.GetBool("INGEST_IMPORT_WAY"),
			ImportAdmin:          viper.GetBool("INGEST_IMPORT_ADMIN"),
			ImportPoi:            viper.GetBool("INGEST_IMPORT_POI"),
			ErrorRatioThreshold:  floatOrDefault("INGEST_ERROR_RATIO_THRESHOLD", 0),
			BatchSize:            intOrDefault("INGEST_BATCH_SIZE", 1000),
			BatchBytes:           int64(intOrDefault("INGEST_BATCH_BYTES", 10*1024*1024)),
			MaxRetries:           intOrDefault("INGEST_MAX_RETRIES", 5),
		},
		Query: QueryConfig{
			GeoDecayScaleKm: floatOrDefault("QUERY_GEO_DECAY_SCALE_KM", 50),
			TypeBoosts:      defaultTypeBoosts(),
			DefaultLimit:    intOrDefault("QUERY_DEFAULT_LIMIT", 10),
			MaxLimit:        intOrDefault("QUERY_MAX_LIMIT", 50),
		},
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}

	return cfg, nil
}

// BindFlags registers the shared CLI surface (spec §6) onto fs and binds
// each flag into viper so Load picks up CLI overrides ahead of env vars.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("input", "", "path to the source file or connection string")
	fs.String("dataset", "", "dataset slice name, e.g. fr")
	fs.String("connection-string", "", "backend connection string")
	fs.Int("nb-threads", 4, "bulk loader / worker pool concurrency")
	fs.IntSlice("level", nil, "admin_level values to import (OSM only, repeatable)")
	fs.Bool("import-way", false, "import streets and POIs from OSM ways")
	fs.Bool("import-admin", false, "import administrative regions from OSM relations")
	fs.Bool("import-poi", false, "import POIs from OSM nodes")

	_ = viper.BindPFlag("INGEST_INPUT", fs.Lookup("input"))
	_ = viper.BindPFlag("INGEST_DATASET", fs.Lookup("dataset"))
	_ = viper.BindPFlag("BACKEND_CONNECTION_STRING", fs.Lookup("connection-string"))
	_ = viper.BindPFlag("BACKEND_NB_THREADS", fs.Lookup("nb-threads"))
	_ = viper.BindPFlag("INGEST_LEVELS", fs.Lookup("level"))
	_ = viper.BindPFlag("INGEST_IMPORT_WAY", fs.Lookup("import-way"))
	_ = viper.BindPFlag("INGEST_IMPORT_ADMIN", fs.Lookup("import-admin"))
	_ = viper.BindPFlag("INGEST_IMPORT_POI", fs.Lookup("import-poi"))
}

func defaultTypeBoosts() map[string]float64 {
	return map[string]float64{
		"addr":   1.6,
		"street": 1.3,
		"stop":   1.1,
		"poi":    1.0,
		"admin":  0.8,
	}
}

func stringOrDefault(key, def string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return def
}

func intOrDefault(key string, def int) int {
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return def
}

func floatOrDefault(key string, def float64) float64 {
	if viper.IsSet(key) {
		return viper.GetFloat64(key)
	}
	return def
}

func durationOrDefault(key string, defMillis int) time.Duration {
	return time.Duration(intOrDefault(key, defMillis))
}

func parseIntList(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(p, "%d", &n); err == nil {
			out = append(out, n)
		}
	}
	return out
}
