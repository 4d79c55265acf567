package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subscout-dev/subscout/internal/model"
)

// ChaseParser parses Chase credit card and checking CSV exports.
// Columns are located by header so both export layouts work:
//
//	Transaction Date,Post Date,Description,Category,Type,Amount,Memo
//	Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #
type ChaseParser struct{}

const chaseDateFormat = "01/02/2006"

var (
	chaseDateHeaders   = []string{"Transaction Date", "Posting Date"}
	chaseDescHeaders   = []string{"Description"}
	chaseAmountHeaders = []string{"Amount"}
)

type chaseColumns struct {
	date, desc, amount int
}

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV and returns its transactions.
func (p *ChaseParser) Parse(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	cols, err := resolveChaseColumns(records[0])
	if err != nil {
		return nil, err
	}

	if len(records) == 1 {
		return nil, nil
	}

	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := parseChaseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func resolveChaseColumns(header []string) (chaseColumns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		// Excel exports sometimes carry a BOM on the first header.
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		index[strings.ToLower(h)] = i
	}

	find := func(names []string) (int, error) {
		for _, n := range names {
			if i, ok := index[strings.ToLower(n)]; ok {
				return i, nil
			}
		}
		return 0, fmt.Errorf("missing %q column", names[0])
	}

	var cols chaseColumns
	var err error
	if cols.date, err = find(chaseDateHeaders); err != nil {
		return cols, err
	}
	if cols.desc, err = find(chaseDescHeaders); err != nil {
		return cols, err
	}
	if cols.amount, err = find(chaseAmountHeaders); err != nil {
		return cols, err
	}
	return cols, nil
}

func parseChaseRow(rec []string, cols chaseColumns) (model.Transaction, error) {
	need := max(cols.date, cols.desc, cols.amount) + 1
	if len(rec) < need {
		return model.Transaction{}, fmt.Errorf("expected at least %d fields, got %d", need, len(rec))
	}

	rawDate := strings.TrimSpace(rec[cols.date])
	date, err := time.Parse(chaseDateFormat, rawDate)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", rawDate, err)
	}

	rawAmount := strings.TrimSpace(rec[cols.amount])
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", rawAmount, err)
	}

	return model.Transaction{
		Name:   rec[cols.desc],
		Amount: amount,
		Date:   date,
	}, nil
}
