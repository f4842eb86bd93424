package auditlog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ExportJSON serializes all entries, oldest first.
func (l *Log) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(l.Entries(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("auditlog: export json: %w", err)
	}
	return data, nil
}

// ImportJSON replaces the log contents from an ExportJSON document.
// Round trip: export then import reconstructs the same entries in order.
func (l *Log) ImportJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("auditlog: import json: %w", err)
	}
	l.Replace(entries)
	return nil
}

var csvHeader = []string{"timestamp", "subject", "signals", "score", "level", "decision", "sample"}

// ExportCSV serializes all entries as CSV with a header row.
func (l *Log) ExportCSV() ([]byte, error) {
	return MarshalCSV(l.Entries())
}

// MarshalCSV serializes an entry slice as CSV with a header row. Query
// results go through here too.
func MarshalCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("auditlog: export csv: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.Subject,
			strings.Join(e.Signals, ";"),
			strconv.Itoa(e.Score),
			string(e.Level),
			string(e.Decision),
			e.Sample,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("auditlog: export csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("auditlog: export csv: %w", err)
	}
	return buf.Bytes(), nil
}
