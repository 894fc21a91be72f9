package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerRejectsUnwritableFile(t *testing.T) {
	cfg := DefaultConfig().Logging
	cfg.Output = "/nonexistent-directory/does-not-exist/engine.log"
	if _, err := NewLogger(cfg); err == nil {
		t.Fatal("expected an error opening a log file in a nonexistent directory")
	}
}

func TestWithFieldDoesNotMutateReceiver(t *testing.T) {
	logger, err := NewLogger(DefaultConfig().Logging)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	tagged := logger.WithField("batch_id", "abc-123")
	if tagged == logger {
		t.Fatal("WithField should return a distinct logger, not mutate the receiver")
	}
}

func TestFromContextRoundTrips(t *testing.T) {
	logger, err := NewLogger(DefaultConfig().Logging)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	ctx := logger.WithContext(context.Background())
	got := FromContext(ctx)
	if got != logger {
		t.Fatal("FromContext should return the exact logger attached by WithContext")
	}
}

func TestFromContextFallsBackWithoutPanicking(t *testing.T) {
	got := FromContext(context.Background())
	if got == nil {
		t.Fatal("FromContext should return a usable default logger, not nil")
	}
}

func TestParseLogLevelDefaultsToInfo(t *testing.T) {
	// Indirectly exercised via NewLogger: an unrecognized level should not
	// error, it should fall back to info.
	cfg := DefaultConfig().Logging
	cfg.Level = "not-a-real-level"
	var buf bytes.Buffer
	cfg.Output = "stdout"
	_ = buf
	logger, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("unexpected error for an unrecognized level: %v", err)
	}
	if got := logger.zlog.GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("level for an unrecognized name = %v, want %v", got, zerolog.InfoLevel)
	}
}

func TestWithTemplateAndWithParameterFileDistinctFields(t *testing.T) {
	logger, err := NewLogger(DefaultConfig().Logging)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	tagged := logger.WithTemplate("com.example.WebServerTemplate", "1.0.0")
	if tagged == nil {
		t.Fatal("WithTemplate should return a usable logger")
	}

	var buf bytes.Buffer
	base := &Logger{zlog: zerolog.New(&buf)}
	base.WithTemplate("com.example.WebServerTemplate", "1.0.0").
		WithParameterFile("com.example.MyWebServer", "1.0.0").
		Info("expanded")
	out := buf.String()
	for _, field := range []string{
		`"template_name":"com.example.WebServerTemplate"`,
		`"param_file_name":"com.example.MyWebServer"`,
	} {
		if !strings.Contains(out, field) {
			t.Fatalf("expected %s in log output, got %s", field, out)
		}
	}
	if !strings.Contains("com.example.WebServerTemplate", "Template") {
		t.Skip("sanity check only")
	}
}
