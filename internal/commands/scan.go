package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/subscout-dev/subscout/internal/importer"
	"github.com/subscout-dev/subscout/internal/recurring"
	"github.com/subscout-dev/subscout/internal/report"
)

type scanOptions struct {
	dir     string
	bank    string
	format  string
	archive bool
}

func newScanCommand(g *globalOptions) *cobra.Command {
	var o scanOptions

	cmd := &cobra.Command{
		Use:   "scan [file.csv...]",
		Short: "Detect recurring charges in bank CSV exports",
		Long: "Detect recurring charges in bank CSV exports.\n\n" +
			"With no arguments every .csv file in --dir is read. All files are combined\n" +
			"before detection, so charges that span several monthly exports are found.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, g, o, args)
		},
	}

	cmd.Flags().StringVar(&o.dir, "dir", "import", "directory scanned when no files are given")
	cmd.Flags().StringVar(&o.bank, "bank", "chase", "CSV export format")
	cmd.Flags().StringVarP(&o.format, "format", "f", report.FormatText, "output format: text, json or csv")
	cmd.Flags().BoolVar(&o.archive, "archive", false, "move files into processed/ after a successful run")

	return cmd
}

func runScan(cmd *cobra.Command, g *globalOptions, o scanOptions, paths []string) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	parser := importer.DefaultRegistry().Get(o.bank)
	if parser == nil {
		return fmt.Errorf("unknown bank format %q (known: %v)", o.bank, importer.DefaultRegistry().Formats())
	}

	if len(paths) == 0 {
		files, err := importer.Scan(o.dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		return errors.New("no CSV files to scan")
	}

	allow, err := g.loadAllowList(cfg)
	if err != nil {
		return err
	}

	sources := make([]recurring.Source, len(paths))
	for i, p := range paths {
		sources[i] = recurring.CSVSource{Path: p, Parser: parser}
	}

	rep, err := recurring.NewService(allow, g.log).Run(cmd.Context(), sources...)
	if err != nil {
		return err
	}

	if err := report.Write(cmd.OutOrStdout(), o.format, rep.Recurring); err != nil {
		return err
	}
	g.recordRun(cmd, cfg, rep)

	if o.archive {
		for _, p := range paths {
			if err := importer.MarkProcessed(filepath.Dir(p), filepath.Base(p)); err != nil {
				return err
			}
			g.log.Debug().Str("file", p).Msg("archived")
		}
	}
	return nil
}
