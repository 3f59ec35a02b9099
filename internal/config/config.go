package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPAddr      string
	StreamAddr    string
	CORSOrigin    string
	DBDriver      string
	DBDSN         string
	CatalogPath   string
	LogLevel      string
	LogPretty     bool
	JournalBuffer int
	Seed          int64

	POWERBaseURL    string
	POWERTimeout    time.Duration
	WeatherCacheTTL time.Duration
	GeocodeURL      string

	// Location is nil unless both coordinates are configured.
	Location *Location
}

type Location struct {
	Latitude  float64
	Longitude float64
	Label     string
}

func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		StreamAddr:      ":8081",
		CORSOrigin:      "*",
		DBDriver:        DriverMemory,
		LogLevel:        "info",
		JournalBuffer:   4096,
		POWERBaseURL:    "https://power.larc.nasa.gov/api/temporal/daily/point",
		POWERTimeout:    10 * time.Second,
		WeatherCacheTTL: 30 * time.Minute,
		GeocodeURL:      "https://api.bigdatacloud.net/data/reverse-geocode-client",
	}
}

// Load reads optional dotenv files, then the process environment. Missing
// files are ignored; variables already set in the environment win.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Default()
	cfg.HTTPAddr = stringEnv("SATFARM_HTTP_ADDR", cfg.HTTPAddr)
	cfg.StreamAddr = stringEnv("SATFARM_STREAM_ADDR", cfg.StreamAddr)
	cfg.CORSOrigin = stringEnv("SATFARM_CORS_ORIGIN", cfg.CORSOrigin)
	cfg.DBDriver = strings.ToLower(stringEnv("SATFARM_DB_DRIVER", cfg.DBDriver))
	cfg.DBDSN = stringEnv("SATFARM_DB_DSN", cfg.DBDSN)
	cfg.CatalogPath = stringEnv("SATFARM_CATALOG", cfg.CatalogPath)
	cfg.LogLevel = stringEnv("SATFARM_LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = boolEnv("SATFARM_LOG_PRETTY", cfg.LogPretty)
	cfg.JournalBuffer = intEnv("SATFARM_JOURNAL_BUFFER", cfg.JournalBuffer)
	cfg.Seed = int64(intEnv("SATFARM_SEED", int(cfg.Seed)))
	cfg.POWERBaseURL = stringEnv("SATFARM_POWER_URL", cfg.POWERBaseURL)
	cfg.POWERTimeout = durationEnv("SATFARM_POWER_TIMEOUT", cfg.POWERTimeout)
	cfg.WeatherCacheTTL = durationEnv("SATFARM_WEATHER_CACHE_TTL", cfg.WeatherCacheTTL)
	cfg.GeocodeURL = stringEnv("SATFARM_GEOCODE_URL", cfg.GeocodeURL)

	lat, latOK := floatEnv("SATFARM_LATITUDE")
	lon, lonOK := floatEnv("SATFARM_LONGITUDE")
	if latOK && lonOK {
		cfg.Location = &Location{Latitude: lat, Longitude: lon, Label: stringEnv("SATFARM_LOCATION_LABEL", "")}
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DBDSN == "" {
			return errors.New("SATFARM_DB_DSN is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if c.Location != nil {
		if c.Location.Latitude < -90 || c.Location.Latitude > 90 || c.Location.Longitude < -180 || c.Location.Longitude > 180 {
			return fmt.Errorf("location %.4f,%.4f out of range", c.Location.Latitude, c.Location.Longitude)
		}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// Logger builds the process logger. Pretty output is for terminals.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if c.LogPretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "satfarm").Logger()
}

func stringEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func floatEnv(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func boolEnv(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
