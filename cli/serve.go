package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"car-deal-finder/api"
	"car-deal-finder/scraper"
	"car-deal-finder/services"
	"car-deal-finder/storage"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
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

	source, err := newSource(a.cfg.Scraper.Source, a.cfg, a.logger)
	if err != nil {
		return err
	}

	handler := api.NewRouter(a.apiOptions(store, source, raw))

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("[serve] Listening on %s (store=%s, source=%s)", srv.Addr, a.cfg.Store.Driver, source.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("[serve] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) apiOptions(store storage.ListingStore, source scraper.Source, raw storage.RawRowWriter) api.Options {
	ingestor := services.NewIngestor(store, a.cfg.Scraper.DefaultRegion, a.logger)
	return api.Options{
		Query:  services.NewDealQuery(store),
		Scrape: services.NewScrapeService(source, raw, ingestor, a.logger),
		Defaults: api.Defaults{
			City:                 a.cfg.Scraper.City,
			Query:                a.cfg.Scraper.Query,
			MaxResults:           a.cfg.Scraper.MaxResults,
			MinUndervaluePercent: a.cfg.Deals.MinUndervaluePercent,
		},
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		Logger:         a.logger,
	}
}
