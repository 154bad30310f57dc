package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "hold.log")
	cfg := Default()
	cfg.Level = "info"
	cfg.File = file

	l := New(cfg, &buf)
	l.Debug().Msg("hidden")
	l.Info().Str("ticker", "MSFT").Msg("merged")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug message written at info level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "merged") || !strings.Contains(buf.String(), "MSFT") {
		t.Errorf("console = %q, want the info message", buf.String())
	}
	content, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(content), `"ticker":"MSFT"`) {
		t.Errorf("log file = %q, want a JSON record", content)
	}
}
