// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package intent

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// LogEntry is one line of the prediction log.
type LogEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	RequestText  string    `json:"request_text"`
	TextHash     string    `json:"text_hash"`
	Predicted    Label     `json:"predicted_bought"`
	Confidence   float64   `json:"confidence"`
	TrueRecord   *Label    `json:"true_record,omitempty"`
	ModelVersion int       `json:"model_version"`
	Cached       bool      `json:"cached"`
}

// Log appends predictions to a JSON Lines file, one object per prediction.
// It is safe for concurrent use.
type Log struct {
	logger zerolog.Logger
	closer io.Closer
}

// NewLog writes entries to w.
func NewLog(w io.Writer) *Log {
	return &Log{logger: zerolog.New(zerolog.SyncWriter(w))}
}

// OpenLog appends to the file at path, creating it and its directory.
func OpenLog(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create prediction log directory: %w", err)
	}
	//nolint:gosec // G304: path comes from operator configuration
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open prediction log: %w", err)
	}
	l := NewLog(f)
	l.closer = f
	return l, nil
}

// Record appends e.
//
//nolint:gocritic // hugeParam: entries are built per request and passed once
func (l *Log) Record(e LogEntry) error {
	ev := l.logger.Log().
		Time("timestamp", e.Timestamp).
		Str("request_text", e.RequestText).
		Str("text_hash", e.TextHash).
		Str("predicted_bought", e.Predicted.String()).
		Float64("confidence", e.Confidence).
		Int("model_version", e.ModelVersion).
		Bool("cached", e.Cached)
	if e.TrueRecord != nil {
		ev = ev.Str("true_record", e.TrueRecord.String())
	}
	ev.Send()
	return nil
}

// Close closes the file opened by OpenLog.
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// ReadLog parses a prediction log. Blank lines are skipped; a malformed
// line fails with its line number.
func ReadLog(r io.Reader) ([]LogEntry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var entries []LogEntry
	for line := 1; sc.Scan(); line++ {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("prediction log line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read prediction log: %w", err)
	}
	return entries, nil
}

// Replay scores logged predictions that carry a true record.
func Replay(entries []LogEntry) MonitorSnapshot {
	m := NewMonitor()
	for i := range entries {
		m.Observe(entries[i].Predicted, entries[i].TrueRecord)
	}
	return m.Snapshot()
}
