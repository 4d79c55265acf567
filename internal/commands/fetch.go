package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subscout-dev/subscout/internal/config"
	"github.com/subscout-dev/subscout/internal/credstore"
	"github.com/subscout-dev/subscout/internal/plaid"
	"github.com/subscout-dev/subscout/internal/recurring"
	"github.com/subscout-dev/subscout/internal/report"
)

type fetchOptions struct {
	accessToken string
	user        string
	days        int
	format      string
}

func newFetchCommand(g *globalOptions) *cobra.Command {
	var o fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Detect recurring charges from the aggregation API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, g, o)
		},
	}

	cmd.Flags().StringVar(&o.accessToken, "access-token", "", "access token for the linked item")
	cmd.Flags().StringVar(&o.user, "user", "", "look up the access token stored for this user id")
	cmd.Flags().IntVar(&o.days, "days", 0, "trailing window in days (default from config)")
	cmd.Flags().StringVarP(&o.format, "format", "f", report.FormatText, "output format: text, json or csv")
	cmd.MarkFlagsMutuallyExclusive("access-token", "user")

	return cmd
}

func runFetch(cmd *cobra.Command, g *globalOptions, o fetchOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if o.days > 0 {
		cfg.Detection.WindowDays = o.days
	}

	token := o.accessToken
	if token == "" {
		if o.user == "" {
			return errors.New("one of --access-token or --user is required")
		}
		repo, err := credstore.Open(cmd.Context(), cfg.Store, g.log)
		if err != nil {
			return err
		}
		defer repo.Close()

		cred, err := repo.Get(cmd.Context(), o.user)
		if err != nil {
			return fmt.Errorf("loading credential: %w", err)
		}
		token = cred.AccessToken
	}

	allow, err := g.loadAllowList(cfg)
	if err != nil {
		return err
	}

	client, err := newPlaidClient(cfg, g)
	if err != nil {
		return err
	}

	src := recurring.APISource{
		Client:      client,
		AccessToken: token,
		WindowDays:  cfg.Detection.WindowDays,
		Count:       cfg.Detection.PageSize,
	}
	rep, err := recurring.NewService(allow, g.log).Run(cmd.Context(), src)
	if err != nil {
		return err
	}

	if err := report.Write(cmd.OutOrStdout(), o.format, rep.Recurring); err != nil {
		return err
	}
	g.recordRun(cmd, cfg, rep)
	return nil
}

func newPlaidClient(cfg *config.Config, g *globalOptions) (*plaid.Client, error) {
	client, err := plaid.New(plaid.Config{
		Environment:  cfg.Plaid.Environment,
		ClientID:     cfg.Plaid.ClientID,
		Secret:       cfg.Plaid.Secret,
		ClientName:   cfg.Plaid.ClientName,
		CountryCodes: cfg.Plaid.CountryCodes,
		Language:     cfg.Plaid.Language,
		Products:     cfg.Plaid.Products,
		BaseURL:      cfg.Plaid.BaseURL,
		Logger:       g.log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating plaid client: %w", err)
	}
	return client, nil
}
