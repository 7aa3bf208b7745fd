package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"loud", zerolog.InfoLevel, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := parseLogLevel(test.input)
			if (err != nil) != test.wantErr {
				t.Fatalf("parseLogLevel(%q) error = %v, wantErr %v", test.input, err, test.wantErr)
			}
			if !test.wantErr && level != test.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", test.input, level, test.expected)
			}
		})
	}
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatal("Expected an error for an invalid level")
	}
}

func TestNewWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chartfetch.log")

	log, err := New(&Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	log.WithField("root", "r1").Info("scan started")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file at %s: %v", path, err)
	}
	if !strings.Contains(string(data), "scan started") {
		t.Errorf("Expected log message in file, got: %s", data)
	}
	if !strings.Contains(string(data), "chartfetch") {
		t.Errorf("Expected app field in file, got: %s", data)
	}
}

func TestTestLoggerCapturesMessages(t *testing.T) {
	log := NewTestLogger()

	log.Info("plain message")
	log.WithField("item_id", "f1").Warn("skipping item")
	log.ErrorWithFields("subtree abandoned", map[string]interface{}{"item_id": "f2"})

	if !log.HasMessage("plain message") {
		t.Error("Expected plain message captured")
	}
	if !log.HasError() {
		t.Error("Expected an error-level message")
	}

	warns := log.MessagesByLevel("WARN")
	if len(warns) != 1 || warns[0].Fields["item_id"] != "f1" {
		t.Errorf("Expected one warn with item_id field, got %+v", warns)
	}

	log.Clear()
	if len(log.Messages()) != 0 {
		t.Error("Expected Clear to discard messages")
	}
}
