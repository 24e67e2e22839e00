package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Str("user_id", "user-1").Msg("syncing")

	output := buf.String()
	if !strings.Contains(output, "syncing") {
		t.Errorf("expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, "user-1") {
		t.Errorf("expected output to contain field, got: %s", output)
	}
}

func TestFromContext_RoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)
	ctx := WithContext(context.Background(), log)

	ctxLog := FromContext(ctx)
	ctxLog.Info().Msg("via context")

	if buf.Len() == 0 {
		t.Error("expected log output from context-carried logger")
	}
}

func TestFromContext_Default(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("expected default logger to be enabled")
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		raw  string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.raw)
			if got := levelFromEnv(); got != tt.want {
				t.Errorf("levelFromEnv() with %q = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
