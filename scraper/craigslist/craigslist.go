package craigslist

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"car-deal-finder/models"
	"car-deal-finder/scraper"
	"car-deal-finder/utils"
)

const (
	name        = "craigslist"
	pageTimeout = 60 * time.Second
	userAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// rowScript reads the search result list. The classic markup uses
// li.result-row; the static fallback served to headless browsers uses
// li.cl-static-search-result with plain divs.
const rowScript = `
(function(limit) {
	var out = [];
	var rows = document.querySelectorAll('li.result-row');
	for (var i = 0; i < rows.length && out.length < limit; i++) {
		var r = rows[i];
		var a = r.querySelector('a.result-title');
		if (!a) continue;
		var price = r.querySelector('span.result-price');
		var hood = r.querySelector('span.result-hood');
		var date = r.querySelector('time.result-date');
		out.push({
			title: a.textContent.trim(),
			url:   a.href || '',
			price: price ? price.textContent.trim() : '',
			hood:  hood ? hood.textContent.trim() : '',
			date:  date && date.getAttribute('datetime') ? date.getAttribute('datetime') : ''
		});
	}
	if (out.length > 0) return out;

	rows = document.querySelectorAll('li.cl-static-search-result');
	for (var j = 0; j < rows.length && out.length < limit; j++) {
		var s = rows[j];
		var link = s.querySelector('a');
		if (!link) continue;
		var t = s.querySelector('.title');
		var p = s.querySelector('.price');
		var loc = s.querySelector('.location');
		out.push({
			title: t ? t.textContent.trim() : (s.getAttribute('title') || ''),
			url:   link.href || '',
			price: p ? p.textContent.trim() : '',
			hood:  loc ? loc.textContent.trim() : '',
			date:  ''
		});
	}
	return out;
})(%d)`

// Options configures the headless browser fetcher.
type Options struct {
	ChromeBin  string
	MaxRetries int
	Logger     *utils.Logger
}

// Source fetches Craigslist "cars & trucks" search results with headless Chrome.
type Source struct {
	chromeBin string
	logger    *utils.Logger
	retry     *utils.RetryConfig
	baseURL   func(city string) string
}

func New(opts Options) *Source {
	attempts := opts.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	return &Source{
		chromeBin: opts.ChromeBin,
		logger:    opts.Logger,
		retry: &utils.RetryConfig{
			MaxAttempts: attempts,
			BaseDelay:   2 * time.Second,
			Logger:      opts.Logger,
		},
		baseURL: func(city string) string {
			return fmt.Sprintf("https://%s.craigslist.org/search/cta", normaliseCity(city))
		},
	}
}

func (s *Source) Name() string { return name }

// SearchURL builds the results page address for p.
func (s *Source) SearchURL(p scraper.SearchParams) string {
	q := url.Values{}
	q.Set("query", p.Query)
	q.Set("hasPic", "1")
	q.Set("srchType", "T")
	return s.baseURL(p.City) + "?" + q.Encode()
}

type resultRow struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Price string `json:"price"`
	Hood  string `json:"hood"`
	Date  string `json:"date"`
}

func (s *Source) Fetch(ctx context.Context, p scraper.SearchParams) ([]*models.RawRow, error) {
	searchURL := s.SearchURL(p)
	s.logger.Info("[craigslist] Fetching %s", searchURL)

	chromeBin := s.chromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	s.logger.Debug("[craigslist] Using browser binary: %q", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	limit := p.MaxResults
	if limit <= 0 {
		limit = 1000
	}

	var found []resultRow
	err := s.retry.Do(ctx, "craigslist-search", func(ctx context.Context) error {
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, pageTimeout)
		defer cancelTimeout()

		return chromedp.Run(tabCtx,
			chromedp.Navigate(searchURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(fmt.Sprintf(rowScript, limit), &found),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("craigslist: %w", err)
	}

	rows := s.toRawRows(found, time.Now().UTC())
	s.logger.Info("[craigslist] %s: %d rows", p.City, len(rows))
	return rows, nil
}

// toRawRows converts evaluated result rows, dropping repeats of a URL seen
// earlier on the page. Rows without a URL are kept for the extractor to drop.
func (s *Source) toRawRows(found []resultRow, fetchedAt time.Time) []*models.RawRow {
	seen := utils.NewURLSet()
	rows := make([]*models.RawRow, 0, len(found))
	for _, r := range found {
		if r.URL != "" && !seen.Add(r.URL) {
			s.logger.Debug("[craigslist] Skipping duplicate: %s", r.URL)
			continue
		}
		rows = append(rows, &models.RawRow{
			Title:        r.Title,
			PriceText:    r.Price,
			Neighborhood: r.Hood,
			DateText:     r.Date,
			URL:          r.URL,
			FetchedAt:    fetchedAt,
		})
	}
	return rows
}

// findChromeBinary locates a Chrome/Chromium binary. An empty result lets
// chromedp use its own lookup.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, bin := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(bin); err == nil {
			return path
		}
	}

	for _, p := range []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// normaliseCity lowercases and strips spaces so "San Diego" maps to the
// sandiego subdomain.
func normaliseCity(city string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(city), " ", ""))
}
