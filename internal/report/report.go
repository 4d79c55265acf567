// Package report renders detection results for the console, HTTP and files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/subscout-dev/subscout/internal/detect"
)

// DateFormat is the display layout for last_date.
const DateFormat = "2006-01-02"

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// CSVHeader is the header row written by WriteCSV.
const CSVHeader = "name,occurrences,amount,last_date"

// Group is the JSON shape of one recurring charge.
type Group struct {
	Amounts  []json.Number `json:"amounts"`
	LastDate string        `json:"last_date"`
}

// Response is the JSON body returned to API clients.
type Response struct {
	RecurringTransactions map[string]Group `json:"recurring_transactions"`
}

// NewResponse converts a result into its JSON shape. Amounts stay numbers.
func NewResponse(result detect.Result) Response {
	out := make(map[string]Group, len(result))
	for name, g := range result {
		amounts := make([]json.Number, len(g.Amounts))
		for i, a := range g.Amounts {
			amounts[i] = json.Number(a.String())
		}
		out[name] = Group{Amounts: amounts, LastDate: g.LastDate.Format(DateFormat)}
	}
	return Response{RecurringTransactions: out}
}

// Write renders result in the named format.
func Write(w io.Writer, format string, result detect.Result) error {
	switch strings.ToLower(format) {
	case FormatText, "":
		return WriteText(w, result)
	case FormatJSON:
		return WriteJSON(w, result)
	case FormatCSV:
		return WriteCSV(w, result)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteText prints one line per recurring charge, sorted by name.
func WriteText(w io.Writer, result detect.Result) error {
	if len(result) == 0 {
		_, err := fmt.Fprintln(w, "No recurring transactions found.")
		return err
	}

	if _, err := fmt.Fprintln(w, "Recurring transactions:"); err != nil {
		return err
	}
	for _, name := range result.Names() {
		g := result[name]
		if _, err := fmt.Fprintf(w, "%s: %s (Last Transaction Date: %s)\n",
			name, g.Amount().StringFixed(2), g.LastDate.Format(DateFormat)); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON encodes the API response shape.
func WriteJSON(w io.Writer, result detect.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewResponse(result)); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// WriteCSV writes one row per recurring charge, sorted by name.
func WriteCSV(w io.Writer, result detect.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(CSVHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, name := range result.Names() {
		g := result[name]
		row := []string{
			name,
			strconv.Itoa(g.Count()),
			g.Amount().StringFixed(2),
			g.LastDate.Format(DateFormat),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
