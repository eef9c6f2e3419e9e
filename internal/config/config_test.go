package config

import (
	"log/slog"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR",
	"DB_DRIVER", "DB_DSN", "DATABASE_URL", "SQLITE_PATH",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_LOG_SQL",
	"MQTT_ENABLED", "MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_TOPIC",
	"COLLECT_LOCATIONS", "COLLECTION_INTERVAL", "OPEN_METEO_URL", "OPEN_METEO_RPS",
	"SIM_HOME_ID", "SIM_INTERVAL", "SIM_WINDOWS", "SIM_STEPS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if got.DBDriver != DriverSQLite {
		t.Errorf("DBDriver = %q, want %q", got.DBDriver, DriverSQLite)
	}
	if got.SQLitePath != "data/homenet.db" {
		t.Errorf("SQLitePath = %q, want data/homenet.db", got.SQLitePath)
	}
	if got.DBMaxOpenConns != 1 || got.DBMaxIdleConns != 1 || got.DBConnMaxLifetime != 0 {
		t.Errorf("pool = %d/%d/%v, want 1/1/0s", got.DBMaxOpenConns, got.DBMaxIdleConns, got.DBConnMaxLifetime)
	}
	if got.MQTTEnabled {
		t.Error("MQTTEnabled = true, want false")
	}
	if got.MQTTTopic != "homenet/weather/+" {
		t.Errorf("MQTTTopic = %q", got.MQTTTopic)
	}
	if len(got.CollectLocations) != 0 {
		t.Errorf("CollectLocations = %v, want none", got.CollectLocations)
	}
	if got.CollectionInterval != 30*time.Minute {
		t.Errorf("CollectionInterval = %v, want 30m", got.CollectionInterval)
	}
}

func TestLoadFromEnv_AppEnv_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
	}{
		{name: "staging", appEnv: "staging"},
		{name: "uppercase", appEnv: "DEV"},
		{name: "random", appEnv: "whatever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
		})
	}
}

func TestLoadFromEnv_Database(t *testing.T) {
	t.Run("postgres requires dsn", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_DRIVER", "postgres")

		if _, err := LoadFromEnv(); err == nil {
			t.Fatal("LoadFromEnv() error = nil, want non-nil")
		}
	})

	t.Run("DATABASE_URL is a dsn fallback", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "postgres://u:p@localhost/homenet")

		got, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() error = %v", err)
		}
		if got.DBDSN != "postgres://u:p@localhost/homenet" {
			t.Errorf("DBDSN = %q", got.DBDSN)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_DRIVER", "mysql")

		if _, err := LoadFromEnv(); err == nil {
			t.Fatal("LoadFromEnv() error = nil, want non-nil")
		}
	})

	t.Run("invalid pool size", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_MAX_OPEN_CONNS", "many")

		if _, err := LoadFromEnv(); err == nil {
			t.Fatal("LoadFromEnv() error = nil, want non-nil")
		}
	})

	t.Run("invalid lifetime", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_CONN_MAX_LIFETIME", "forever")

		if _, err := LoadFromEnv(); err == nil {
			t.Fatal("LoadFromEnv() error = nil, want non-nil")
		}
	})
}

func TestParseCollectLocations(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []CollectLocation
		wantErr bool
	}{
		{name: "empty", in: "", want: nil},
		{
			name: "two locations with spaces",
			in:   " Austin:30.27:-97.74 , Denver:39.74:-104.99",
			want: []CollectLocation{
				{Name: "Austin", Latitude: 30.27, Longitude: -97.74},
				{Name: "Denver", Latitude: 39.74, Longitude: -104.99},
			},
		},
		{
			name: "name containing colons",
			in:   "Lab:Roof:North:30.27:-97.74",
			want: []CollectLocation{{Name: "Lab:Roof:North", Latitude: 30.27, Longitude: -97.74}},
		},
		{name: "missing longitude", in: "Austin:30.27", wantErr: true},
		{name: "no separators", in: "Austin", wantErr: true},
		{name: "latitude out of range", in: "Nowhere:91:0", wantErr: true},
		{name: "longitude not a number", in: "Austin:30:west", wantErr: true},
		{name: "empty name", in: ":1:2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCollectLocations(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseCollectLocations(%q) error = nil, want non-nil", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCollectLocations(%q) error = %v", tt.in, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "DeBuG", want: slog.LevelDebug},
		{in: "  warn \n", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	for _, in := range []string{"", "nope", "warns", "1"} {
		got, err := parseLogLevel(in)
		if err == nil {
			t.Fatalf("parseLogLevel(%q) error = nil, want non-nil", in)
		}
		if got != slog.LevelInfo {
			t.Errorf("parseLogLevel(%q) = %v, want %v on error", in, got, slog.LevelInfo)
		}
	}
}

func TestLoadSimFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		got, err := LoadSimFromEnv()
		if err != nil {
			t.Fatalf("LoadSimFromEnv() error = %v", err)
		}
		if got.HomeID != "home" || got.Interval != 2*time.Second || got.Windows != 3 || got.Steps != 0 {
			t.Errorf("got %+v", got)
		}
		if got.MQTTTopic != "homenet/home/home/telemetry" {
			t.Errorf("MQTTTopic = %q", got.MQTTTopic)
		}
	})

	t.Run("negative windows", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SIM_WINDOWS", "-1")

		if _, err := LoadSimFromEnv(); err == nil {
			t.Fatal("LoadSimFromEnv() error = nil, want non-nil")
		}
	})

	t.Run("zero interval", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SIM_INTERVAL", "0s")

		if _, err := LoadSimFromEnv(); err == nil {
			t.Fatal("LoadSimFromEnv() error = nil, want non-nil")
		}
	})
}
