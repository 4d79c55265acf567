// Package runlog records one CSV row per detection run.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/subscout-dev/subscout/internal/recurring"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp    time.Time
	Source       string
	Transactions int
	Recurring    int
	Names        []string
}

// Header is the CSV header for run-log.csv.
const Header = "timestamp,source,transactions,recurring,names"

const (
	numFields       = 5
	logDir          = "logs"
	logFile         = "logs/run-log.csv"
	colTimestamp    = 0
	colSource       = 1
	colTransactions = 2
	colRecurring    = 3
	colNames        = 4
	namesSep        = ";"
)

// FromReport builds an Entry summarizing rep.
func FromReport(rep recurring.Report) Entry {
	return Entry{
		Timestamp:    rep.GeneratedAt,
		Source:       strings.Join(rep.Sources, namesSep),
		Transactions: rep.Transactions,
		Recurring:    len(rep.Recurring),
		Names:        rep.Recurring.Names(),
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colSource] = e.Source
	row[colTransactions] = strconv.Itoa(e.Transactions)
	row[colRecurring] = strconv.Itoa(e.Recurring)
	row[colNames] = strings.Join(e.Names, namesSep)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	txns, err := strconv.Atoi(record[colTransactions])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing transactions %q: %w", record[colTransactions], err)
	}

	rec, err := strconv.Atoi(record[colRecurring])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing recurring %q: %w", record[colRecurring], err)
	}

	var names []string
	if record[colNames] != "" {
		names = strings.Split(record[colNames], namesSep)
	}

	return Entry{
		Timestamp:    ts,
		Source:       record[colSource],
		Transactions: txns,
		Recurring:    rec,
		Names:        names,
	}, nil
}

// Append writes entries to <root>/logs/run-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/run-log.csv.
// Returns nil if the file does not exist.
func Read(root string) ([]Entry, error) {
	path := filepath.Join(root, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
