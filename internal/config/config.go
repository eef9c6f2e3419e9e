package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	DBDriver          string
	DBDSN             string
	SQLitePath        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	// DBLogSQL wraps the driver so every statement is logged at debug level.
	DBLogSQL bool

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string

	// CollectLocations are polled from Open-Meteo every CollectionInterval.
	// Empty disables the collector.
	CollectLocations   []CollectLocation
	CollectionInterval time.Duration
	OpenMeteoURL       string
	OpenMeteoRPS       float64
}

type CollectLocation struct {
	Name      string
	Latitude  float64
	Longitude float64
}

func LoadFromEnv() (Config, error) {
	appEnv, level, err := loadCommon()
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOr("HTTP_ADDR", ":8080")

	driver := envOr("DB_DRIVER", DriverSQLite)
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: %s, %s)", driver, DriverSQLite, DriverPostgres)
	}
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if driver == DriverPostgres && dsn == "" {
		return Config{}, fmt.Errorf("DB_DSN (or DATABASE_URL) is required when DB_DRIVER=%s", DriverPostgres)
	}
	sqlitePath := envOr("SQLITE_PATH", "data/homenet.db")

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}
	logSQL, err := envBool("DB_LOG_SQL", false)
	if err != nil {
		return Config{}, err
	}

	mqttEnabled, err := envBool("MQTT_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}

	locations, err := parseCollectLocations(os.Getenv("COLLECT_LOCATIONS"))
	if err != nil {
		return Config{}, err
	}
	interval, err := envDuration("COLLECTION_INTERVAL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	if interval <= 0 {
		return Config{}, fmt.Errorf("COLLECTION_INTERVAL must be positive, got %v", interval)
	}
	rpsStr := envOr("OPEN_METEO_RPS", "1")
	rps, err := strconv.ParseFloat(rpsStr, 64)
	if err != nil {
		return Config{}, fmt.Errorf("invalid OPEN_METEO_RPS %q: %w", rpsStr, err)
	}
	if rps <= 0 {
		return Config{}, fmt.Errorf("OPEN_METEO_RPS must be positive, got %v", rps)
	}

	return Config{
		AppEnv:             appEnv,
		LogLevel:           level,
		HTTPAddr:           httpAddr,
		DBDriver:           driver,
		DBDSN:              dsn,
		SQLitePath:         sqlitePath,
		DBMaxOpenConns:     maxOpenConns,
		DBMaxIdleConns:     maxIdleConns,
		DBConnMaxLifetime:  connMaxLifetime,
		DBLogSQL:           logSQL,
		MQTTEnabled:        mqttEnabled,
		MQTTBroker:         envOr("MQTT_BROKER", "localhost"),
		MQTTPort:           mqttPort,
		MQTTClientID:       envOr("MQTT_CLIENT_ID", "homenet-server"),
		MQTTTopic:          envOr("MQTT_TOPIC", "homenet/weather/+"),
		CollectLocations:   locations,
		CollectionInterval: interval,
		OpenMeteoURL:       envOr("OPEN_METEO_URL", "https://api.open-meteo.com/v1/forecast"),
		OpenMeteoRPS:       rps,
	}, nil
}

// parseCollectLocations parses "Austin:30.27:-97.74,Denver:39.74:-104.99".
// Coordinates are taken from the right, so names may contain ':'.
func parseCollectLocations(s string) ([]CollectLocation, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []CollectLocation
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts, ok := splitFromRight(item, ":", 3)
		if !ok {
			return nil, fmt.Errorf("invalid COLLECT_LOCATIONS entry %q (expected name:lat:lon)", item)
		}
		name := strings.TrimSpace(parts[0])
		if name == "" {
			return nil, fmt.Errorf("invalid COLLECT_LOCATIONS entry %q: empty name", item)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("invalid COLLECT_LOCATIONS latitude in %q", item)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("invalid COLLECT_LOCATIONS longitude in %q", item)
		}
		out = append(out, CollectLocation{Name: name, Latitude: lat, Longitude: lon})
	}
	return out, nil
}

// splitFromRight splits s into n parts at the last n-1 occurrences of sep.
func splitFromRight(s, sep string, n int) ([]string, bool) {
	parts := make([]string, n)
	for i := n - 1; i > 0; i-- {
		idx := strings.LastIndex(s, sep)
		if idx < 0 {
			return nil, false
		}
		parts[i] = s[idx+len(sep):]
		s = s[:idx]
	}
	parts[0] = s
	return parts, true
}

func loadCommon() (string, slog.Level, error) {
	appEnv := envOr("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return "", slog.LevelInfo, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return "", slog.LevelInfo, err
	}
	return appEnv, level, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}
