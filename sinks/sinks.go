// Package sinks provides the concrete SampleSink/PublishSink collaborators
// the Poller writes its cycle output to. Grounded on original_source's
// PLCThread CSV handling (_initialize_csv_file/_perform_plc_update_cycle's
// Pass 2) and its OPC UA push loop, standing in for the OPC UA node mapper
// which remains an external collaborator per spec.md §1.
package sinks

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sample is the per-cycle result the Poller hands to its sinks: an ordered
// set of (tag, value) pairs in original user-mapping order, matching
// spec.md §3's Sample.
type Sample struct {
	Timestamp time.Time
	Tags      []string
	Values    []any // nil entries mark a read failure for that tag
}

// SampleSink receives one full Sample row per cycle (spec.md §6's CSV
// collaborator).
type SampleSink interface {
	WriteRow(ctx context.Context, row Sample) error
	Close() error
}

// PublishSink receives one typed value per tag per cycle (spec.md §6's OPC
// UA collaborator). Healthy reports whether the last publish succeeded, so
// a Poller can fall back to CSV-only the way original_source's PLCThread
// falls back when opcua_connected goes false.
type PublishSink interface {
	Publish(ctx context.Context, tag string, value any) error
	Healthy() bool
}

// CSVSink is an append-only CSV writer: one file per PLC per process start,
// named PLC_Data/<plc>/<plc>_<yyyymmdd_HHMMSS>.csv (spec.md §6), header
// written on create. Grounded on PLCThread's _initialize_csv_file.
type CSVSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink creates (or truncates) the CSV file for plcName under baseDir
// and writes the header row: "Timestamp" followed by every tag in order.
func NewCSVSink(baseDir, plcName string, tags []string, now time.Time) (*CSVSink, error) {
	folder := filepath.Join(baseDir, plcName)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("creating PLC data folder %s: %w", folder, err)
	}

	filename := filepath.Join(folder, fmt.Sprintf("%s_%s.csv", plcName, now.Format("20060102_150405")))
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("creating CSV file %s: %w", filename, err)
	}

	w := csv.NewWriter(f)
	header := append([]string{"Timestamp"}, tags...)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}
	w.Flush()

	return &CSVSink{file: f, writer: w}, nil
}

// WriteRow appends one row, flushing immediately (original_source flushes
// after every write so a crash never loses more than the in-flight row).
func (s *CSVSink) WriteRow(_ context.Context, row Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := make([]string, 0, len(row.Values)+1)
	record = append(record, row.Timestamp.Format("2006-01-02 15:04:05"))
	for _, v := range row.Values {
		record = append(record, formatValue(v))
	}

	if err := s.writer.Write(record); err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Flush()
	return s.file.Close()
}

func formatValue(v any) string {
	if v == nil {
		return "NaN"
	}
	return fmt.Sprintf("%v", v)
}

// LogPublisher is a stand-in PublishSink that just logs: it lets the Poller
// and its tests exercise the publish path without a live OPC UA server. The
// real OPC UA node mapper remains an external collaborator per spec.md §1.
type LogPublisher struct {
	logger  *log.Logger
	mu      sync.Mutex
	healthy bool
}

func NewLogPublisher(logger *log.Logger) *LogPublisher {
	return &LogPublisher{logger: logger, healthy: true}
}

func (p *LogPublisher) Publish(_ context.Context, tag string, value any) error {
	p.logger.Printf("publish %s = %v", tag, value)
	p.mu.Lock()
	p.healthy = true
	p.mu.Unlock()
	return nil
}

func (p *LogPublisher) Healthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy
}

// MarkUnhealthy lets a caller simulate the OPC UA connection dropping, the
// way original_source's PLCThread sets opcua_connected=false on a push
// error.
func (p *LogPublisher) MarkUnhealthy() {
	p.mu.Lock()
	p.healthy = false
	p.mu.Unlock()
}
