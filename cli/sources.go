package cli

import (
	"fmt"

	"car-deal-finder/config"
	"car-deal-finder/scraper"
	"car-deal-finder/scraper/craigslist"
	"car-deal-finder/scraper/stub"
	"car-deal-finder/utils"
)

func newSource(name string, cfg *config.Config, logger *utils.Logger) (scraper.Source, error) {
	switch name {
	case config.SourceStub:
		return stub.New(), nil
	case config.SourceCraigslist:
		return craigslist.New(craigslist.Options{
			ChromeBin:  cfg.Scraper.ChromeBin,
			MaxRetries: cfg.Scraper.MaxRetries,
			Logger:     logger.With("source", name),
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown scraper source %q", config.ErrInvalid, name)
	}
}
