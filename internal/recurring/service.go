// Package recurring runs the detector over one or more transaction sources.
package recurring

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/subscout-dev/subscout/internal/detect"
	"github.com/subscout-dev/subscout/internal/model"
)

// Report is the outcome of one detection run.
type Report struct {
	Sources      []string
	Transactions int
	Recurring    detect.Result
	GeneratedAt  time.Time
}

// Service loads sources and applies the allow list.
type Service struct {
	allow detect.AllowList
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a Service.
func NewService(allow detect.AllowList, log zerolog.Logger) *Service {
	return &Service{allow: allow, log: log, now: time.Now}
}

// Run loads every source concurrently, then detects over the concatenation
// in source order.
func (s *Service) Run(ctx context.Context, sources ...Source) (Report, error) {
	loaded := make([][]model.Transaction, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			txns, err := src.Transactions(gctx)
			if err != nil {
				return fmt.Errorf("loading %s: %w", src.Name(), err)
			}
			loaded[i] = txns
			s.log.Debug().Str("source", src.Name()).Int("transactions", len(txns)).Msg("loaded source")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var all []model.Transaction
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name()
		all = append(all, loaded[i]...)
	}

	result := detect.Detect(all, s.allow)
	s.log.Info().
		Strs("sources", names).
		Int("transactions", len(all)).
		Int("allow_list", s.allow.Len()).
		Int("recurring", len(result)).
		Msg("detection complete")

	return Report{
		Sources:      names,
		Transactions: len(all),
		Recurring:    result,
		GeneratedAt:  s.now().UTC(),
	}, nil
}
