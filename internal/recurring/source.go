package recurring

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/subscout-dev/subscout/internal/importer"
	"github.com/subscout-dev/subscout/internal/model"
	"github.com/subscout-dev/subscout/internal/plaid"
)

// Source supplies already-parsed transactions to the detector.
type Source interface {
	Name() string
	Transactions(ctx context.Context) ([]model.Transaction, error)
}

// CSVSource reads a bank CSV export.
type CSVSource struct {
	Path   string
	Parser importer.Parser
}

// Name returns the file's base name.
func (s CSVSource) Name() string { return filepath.Base(s.Path) }

// Transactions parses the file.
func (s CSVSource) Transactions(_ context.Context) ([]model.Transaction, error) {
	if s.Parser == nil {
		return nil, fmt.Errorf("no parser for %s", s.Path)
	}
	return importer.ParseFile(s.Path, s.Parser)
}

// TransactionFetcher is the subset of the aggregation client APISource needs.
type TransactionFetcher interface {
	GetTransactions(ctx context.Context, r plaid.TransactionsRequest) ([]model.Transaction, error)
}

// APISource fetches the trailing window of transactions for one access token.
type APISource struct {
	Client      TransactionFetcher
	AccessToken string
	WindowDays  int
	Count       int
	Now         func() time.Time
}

// Name identifies the source in reports and logs.
func (s APISource) Name() string { return "plaid" }

// Transactions requests the window ending today.
func (s APISource) Transactions(ctx context.Context) ([]model.Transaction, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	days := s.WindowDays
	if days <= 0 {
		days = plaid.DefaultWindowDays
	}

	start, end := plaid.TrailingWindow(now(), days)
	return s.Client.GetTransactions(ctx, plaid.TransactionsRequest{
		AccessToken: s.AccessToken,
		Start:       start,
		End:         end,
		Count:       s.Count,
	})
}

// StaticSource returns a fixed list of transactions.
type StaticSource struct {
	Label string
	Txns  []model.Transaction
}

// Name returns the label.
func (s StaticSource) Name() string { return s.Label }

// Transactions returns the fixed list.
func (s StaticSource) Transactions(context.Context) ([]model.Transaction, error) {
	return s.Txns, nil
}
