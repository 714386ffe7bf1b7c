package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"car-deal-finder/models"
	"car-deal-finder/scraper"
	"car-deal-finder/services"
	"car-deal-finder/utils"
)

func newScrapeCmd(a *app) *cobra.Command {
	var (
		cities     []string
		query      string
		maxResults int
		source     string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch listings for one or more cities and ingest them",
		Example: `  car-deal-finder scrape --city austin --city dallas --query "honda civic"
  car-deal-finder scrape --source craigslist --max-results 25`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if len(cities) == 0 {
				cities = []string{cfg.Scraper.City}
			}
			if query == "" {
				query = cfg.Scraper.Query
			}
			if maxResults <= 0 {
				maxResults = cfg.Scraper.MaxResults
			}
			if source == "" {
				source = cfg.Scraper.Source
			}

			ctx := cmd.Context()
			src, err := newSource(source, cfg, a.logger)
			if err != nil {
				return err
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			raw, err := a.openRawWriter()
			if err != nil {
				return err
			}
			if raw != nil {
				defer raw.Close()
			}

			svc := services.NewScrapeService(src, raw,
				services.NewIngestor(store, cfg.Scraper.DefaultRegion, a.logger), a.logger)

			spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			spin.Writer = cmd.ErrOrStderr()
			spin.Suffix = fmt.Sprintf(" Scraping %d cities from %s...", len(cities), src.Name())
			spin.Start()

			var (
				mu       sync.Mutex
				results  = make(map[string]*models.IngestResult, len(cities))
				failures = make(map[string]error)
			)
			pool := utils.NewWorkerPool(cfg.Scraper.MaxConcurrency, cfg.Scraper.RateLimitMs)
			for _, city := range cities {
				pool.Submit(func() {
					res, err := svc.Run(ctx, scraper.SearchParams{City: city, Query: query, MaxResults: maxResults})
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						failures[city] = err
						return
					}
					results[city] = res
				})
			}
			pool.Wait()
			spin.Stop()

			out := cmd.OutOrStdout()
			ok := color.New(color.FgGreen).SprintFunc()
			bad := color.New(color.FgRed).SprintFunc()
			for _, city := range cities {
				if err, failed := failures[city]; failed {
					fmt.Fprintf(out, "%s %-16s %v\n", bad("✗"), city, err)
					continue
				}
				res := results[city]
				fmt.Fprintf(out, "%s %-16s inserted=%d duplicates=%d skipped=%d failed=%d\n",
					ok("✓"), city, len(res.Inserted), res.Duplicates, res.Skipped, len(res.Failures))
			}

			if len(failures) == len(cities) {
				return fmt.Errorf("scrape failed for every city")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&cities, "city", nil, "city subdomain to search (repeatable)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search query")
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "maximum rows per city")
	cmd.Flags().StringVar(&source, "source", "", "listing source: craigslist or stub")
	return cmd
}
