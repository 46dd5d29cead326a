package log

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogHTTPRequest(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"ok", 200, zapcore.InfoLevel},
		{"client error", 404, zapcore.InfoLevel},
		{"server error", 500, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			LogHTTPRequest(HTTPLogEntry{
				RequestID: "abc",
				Method:    "GET",
				Path:      "/contour",
				Status:    tt.status,
				Duration:  1500 * time.Millisecond,
			})

			entries := logs.TakeAll()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)

			fields := entries[0].ContextMap()
			assert.Equal(t, "abc", fields["request_id"])
			assert.Equal(t, "/contour", fields["path"])
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, int64(1500), fields["duration_ms"])
		})
	}
}
