// Package cli wires configuration, storage and services into the
// car-deal-finder command line.
package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"car-deal-finder/config"
	"car-deal-finder/storage"
	"car-deal-finder/utils"
)

// app carries what every subcommand needs once the root flags are parsed.
type app struct {
	cfgFile  string
	logLevel string
	noColor  bool

	cfg    *config.Config
	logger *utils.Logger
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "car-deal-finder",
		Short: "Find undervalued used cars in classifieds listings",
		Long: `car-deal-finder scrapes used-car search results, values each listing
against a predicted fair price and keeps the deduplicated results in a
local or remote store for querying.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newServeCmd(a),
		newScrapeCmd(a),
		newDealsCmd(a),
		newDealCmd(a),
		newInsightsCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.noColor {
		color.NoColor = true
	}

	a.cfg = cfg
	a.logger = utils.NewLogger(utils.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

// openStore opens the configured store. Callers close it.
func (a *app) openStore(ctx context.Context) (storage.ListingStore, error) {
	store, err := storage.Open(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Driver, err)
	}
	return store, nil
}

// openRawWriter returns nil when CSV output is not configured.
func (a *app) openRawWriter() (storage.RawRowWriter, error) {
	path := a.cfg.Scraper.CSVOutputPath
	if path == "" {
		return nil, nil
	}
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return nil, err
	}
	a.logger.Info("[cli] Raw rows will be appended to %s", path)
	return w, nil
}
