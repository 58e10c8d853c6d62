// Package wiki fetches long-form reference content for a species from the
// Wikipedia REST API. Absence of a page is expected and is not an error.
package wiki

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/url"
	"strings"

	"github.com/averlon/fieldatlas/internal/conf"
	"github.com/averlon/fieldatlas/internal/fetch"
	"github.com/averlon/fieldatlas/internal/logging"
	"github.com/k3a/html2text"
	"golang.org/x/time/rate"
)

// Package-level logger specific to the wiki service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	serviceLevelVar.Set(slog.LevelDebug)
	logger, _, err = logging.NewFileLogger("logs/wiki.log", "wiki", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize wiki file logger: %v. Service logging disabled.", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "wiki")
	}
}

// Enricher looks up encyclopedia content by scientific name.
type Enricher struct {
	config  conf.WikipediaSettings
	fetcher *fetch.Fetcher
	limiter *rate.Limiter
}

// NewEnricher creates a Wikipedia enricher on top of the retrying fetcher.
// Requests are paced to respect Wikimedia's rate limits.
func NewEnricher(fetcher *fetch.Fetcher, config conf.WikipediaSettings) *Enricher {
	if config.BaseURL == "" {
		config.BaseURL = "https://en.wikipedia.org/api/rest_v1"
	}
	if config.RequestsPerSec <= 0 {
		config.RequestsPerSec = 2
	}
	if config.ExcerptMaxChars <= 0 {
		config.ExcerptMaxChars = 1200
	}
	return &Enricher{
		config:  config,
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSec), 1),
	}
}

// pageTitle builds the REST lookup key for a scientific name: spaces become
// underscores, then the title is percent-encoded.
func pageTitle(scientificName string) string {
	return url.PathEscape(strings.ReplaceAll(scientificName, " ", "_"))
}

// FetchSummaryHTML returns the mobile-optimized page markup for a species,
// or ok=false when no page exists or the fetch failed. Transient conditions
// were already retried inside the fetch layer; whatever error remains here
// reads as absence.
func (e *Enricher) FetchSummaryHTML(ctx context.Context, scientificName string) (html string, ok bool) {
	if err := e.limiter.Wait(ctx); err != nil {
		logger.Warn("Rate limiter wait interrupted", "scientific_name", scientificName, "error", err)
		return "", false
	}

	pageURL := e.config.BaseURL + "/page/mobile-html/" + pageTitle(scientificName)
	body, err := e.fetcher.Get(ctx, pageURL)
	if err != nil {
		logger.Debug("No encyclopedia content for species",
			"scientific_name", scientificName,
			"error", err)
		return "", false
	}

	logger.Debug("Fetched encyclopedia content",
		"scientific_name", scientificName,
		"size_bytes", len(body))
	return string(body), true
}

// Excerpt derives a plain-text excerpt from page markup, truncated at the
// configured rune count.
func (e *Enricher) Excerpt(pageHTML string) string {
	text := strings.TrimSpace(html2text.HTML2Text(pageHTML))
	runes := []rune(text)
	if len(runes) <= e.config.ExcerptMaxChars {
		return text
	}
	return strings.TrimSpace(string(runes[:e.config.ExcerptMaxChars]))
}
