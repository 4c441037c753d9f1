package logger

import (
	"context"
	"errors"
	"testing"
)

// Library packages log before main has any chance to call Init; every
// logging entry point must work against the process default logger.
func TestLogBeforeInit(t *testing.T) {
	saved := globalLogger
	globalLogger = nil
	defer func() { globalLogger = saved }()

	ctx := context.Background()
	Info(ctx, "message", "key", "value")
	Warn(ctx, "message")
	Error(ctx, "message")
	ErrorWithErr(ctx, "message", errors.New("boom"))
	Trade(ctx, "MES", "LONG", 2, 5000, 5010, 100, "SIM")
	ModeChange(ctx, "SIM", "LIVE", "APEX-001")
	Conflict(ctx, "phantom_position", "held MES x2 unknown to server")
}

func TestInitWithConfig(t *testing.T) {
	cfg := LogConfig{Level: "DEBUG", Format: "text", DetailedLogging: true}
	if err := InitWithConfig(cfg); err != nil {
		t.Fatalf("InitWithConfig failed: %v", err)
	}
	if globalLogger == nil {
		t.Fatal("Expected global logger to be set")
	}
	if !IsDebugEnabled() {
		t.Error("Expected detailed logging enabled")
	}

	Debug(context.Background(), "message", "key", "value")
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"DEBUG":   "DEBUG",
		"INFO":    "INFO",
		"WARN":    "WARN",
		"ERROR":   "ERROR",
		"unknown": "INFO",
	}
	for in, want := range cases {
		if got := parseLogLevel(in).String(); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
