package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	return New(&Config{
		Level:       level,
		ServiceName: "cutoff-service",
		Environment: "test",
		Version:     "1.2.3",
		Output:      buf,
	})
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestNew_BaseAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelInfo)

	logger.Info("hello")

	entry := lastEntry(t, &buf)
	assert.Equal(t, "cutoff-service", entry["service"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "1.2.3", entry["version"])

	ts, ok := entry["time"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelWarn)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Equal(t, "kept", lastEntry(t, &buf)["msg"])
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelInfo)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithClientID(ctx, "client-9")
	logger.WithContext(ctx).Info("scoped")

	entry := lastEntry(t, &buf)
	assert.Equal(t, "req-1", entry["requestId"])
	assert.Equal(t, "client-9", entry["clientId"])
}

func TestLogger_WithErrorNil(t *testing.T) {
	logger := NewNop()
	assert.Same(t, logger, logger.WithError(nil))
}

func TestLogger_DataSourceQueryFailureIsError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelInfo)

	logger.WithError(errors.New("boom")).DataSourceQuery(context.Background(), "mongodb", "capacity", 5*time.Millisecond, false)

	entry := lastEntry(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "capacity", entry["query"])
}

func TestLogger_WarehouseAndOperationScope(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelInfo)

	logger.WithWarehouse("WH-MAIN").WithOperation("cutoff").Info("scoped")

	entry := lastEntry(t, &buf)
	assert.Equal(t, "WH-MAIN", entry["warehouseId"])
	assert.Equal(t, "cutoff", entry["operation"])
}

func TestLogger_Event(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelInfo)

	ctx := ContextWithCorrelationID(context.Background(), "corr-1")
	logger.Event(ctx, "scenario.switched", "previous", "normal", "current", "high")

	entry := lastEntry(t, &buf)
	assert.Equal(t, "Business event", entry["msg"])
	assert.Equal(t, "scenario.switched", entry["eventType"])
	assert.Equal(t, "high", entry["current"])
	assert.Equal(t, "corr-1", entry["correlationId"])
}

func TestLogger_Performance(t *testing.T) {
	tests := []struct {
		name      string
		duration  time.Duration
		success   bool
		wantLevel string
	}{
		{"fast success", 5 * time.Millisecond, true, "INFO"},
		{"slow success", SlowOperationThreshold + time.Millisecond, true, "WARN"},
		{"fast failure", 5 * time.Millisecond, false, "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newBufferLogger(&buf, LevelInfo)

			logger.Performance(context.Background(), "capacity_check", tt.duration, tt.success, "cacheHit", true)

			entry := lastEntry(t, &buf)
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "capacity_check", entry["operation"])
			assert.Equal(t, float64(tt.duration.Milliseconds()), entry["durationMs"])
			assert.Equal(t, true, entry["cacheHit"])
		})
	}
}
