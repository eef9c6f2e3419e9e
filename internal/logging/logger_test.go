package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_ReleaseVersionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, Options{AppName: "server", Version: "1.2.3", AppEnv: "prod", Level: slog.LevelInfo})

	logger.Info("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]string{"msg": "hello", "app": "server", "version": "1.2.3", "env": "prod", "k": "v"} {
		if rec[key] != want {
			t.Errorf("%s = %v, want %q", key, rec[key], want)
		}
	}
}

func TestNew_DevVersionWritesText(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, Options{AppName: "server", Version: "dev", Level: slog.LevelInfo})

	logger.Info("hello")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "server") {
		t.Errorf("output = %q, want text record with app attr", out)
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, Options{AppName: "server", Version: "1.0.0", Level: slog.LevelWarn})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %q", buf.String())
	}
}
