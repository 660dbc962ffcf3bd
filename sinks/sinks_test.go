package sinks

import (
	"bufio"
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSink_HeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)

	sink, err := NewCSVSink(dir, "line1", []string{"Temperature", "Heartbeat"}, now)
	require.NoError(t, err)

	err = sink.WriteRow(context.Background(), Sample{
		Timestamp: now,
		Tags:      []string{"Temperature", "Heartbeat"},
		Values:    []any{int16(42), true},
	})
	require.NoError(t, err)

	err = sink.WriteRow(context.Background(), Sample{
		Timestamp: now,
		Tags:      []string{"Temperature", "Heartbeat"},
		Values:    []any{nil, false},
	})
	require.NoError(t, err)

	require.NoError(t, sink.Close())

	f, err := os.Open(sink.file.Name())
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 3)
	assert.Equal(t, "Timestamp,Temperature,Heartbeat", lines[0])
	assert.Contains(t, lines[2], "NaN")
}

func TestLogPublisher_HealthTracking(t *testing.T) {
	logger := log.New(os.Stderr, "test: ", 0)
	p := NewLogPublisher(logger)

	assert.True(t, p.Healthy())

	p.MarkUnhealthy()
	assert.False(t, p.Healthy())

	require.NoError(t, p.Publish(context.Background(), "tag", 1))
	assert.True(t, p.Healthy())
}
