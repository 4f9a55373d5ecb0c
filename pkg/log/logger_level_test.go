package log

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  LogLevel
	}{
		{name: "debug lower", input: "debug", want: LevelDebug},
		{name: "info upper", input: "INFO", want: LevelInfo},
		{name: "warn mixed", input: "WaRn", want: LevelWarn},
		{name: "error", input: "error", want: LevelError},
		{name: "fatal", input: "fatal", want: LevelFatal},
		{name: "trim spaces", input: "  debug  ", want: LevelDebug},
		{name: "unknown fallback", input: "verbose", want: LevelInfo},
		{name: "empty fallback", input: "", want: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Fatalf("ParseLevel(%q)=%v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLogger_WithFieldsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo, FormatJSON).With("job_id", "job-1", "folder", "Alien (1979)")

	logger.Info("translated %d entries", 3)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %q", len(lines), buf.String())
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if record["job_id"] != "job-1" || record["folder"] != "Alien (1979)" {
		t.Fatalf("missing fields: %v", record)
	}
	if record["message"] != "translated 3 entries" {
		t.Fatalf("message=%v", record["message"])
	}
	if record["level"] != "info" {
		t.Fatalf("level=%v", record["level"])
	}
	if caller, _ := record["caller"].(string); !strings.HasPrefix(caller, "logger_level_test.go:") {
		t.Fatalf("caller=%v", record["caller"])
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("JSON") != FormatJSON {
		t.Fatal("expected json format")
	}
	if ParseFormat("pretty") != FormatConsole {
		t.Fatal("expected console fallback")
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got != GetLogger() {
		t.Fatalf("expected global logger without a stored one")
	}

	var buf bytes.Buffer
	logger := New(&buf, LevelInfo, FormatJSON).With("job_id", "job-7")
	ctx := logger.WithContext(context.Background())

	FromContext(ctx).Info("hello")
	if !strings.Contains(buf.String(), `"job_id":"job-7"`) {
		t.Fatalf("record missing context logger fields: %q", buf.String())
	}
}

func TestNewTeeLogger(t *testing.T) {
	var console bytes.Buffer
	logFile := t.TempDir() + "/logs/run.log"

	logger, err := NewTeeLogger(&console, FormatConsole, logFile, LevelInfo)
	if err != nil {
		t.Fatalf("NewTeeLogger: %v", err)
	}
	logger.Info("both %s", "sinks")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !strings.Contains(console.String(), "both sinks") {
		t.Fatalf("console missing record: %q", console.String())
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("file record is not JSON: %v: %q", err, data)
	}
	if record["message"] != "both sinks" {
		t.Fatalf("message=%v", record["message"])
	}
}
