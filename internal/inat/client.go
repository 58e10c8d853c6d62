// Package inat provides a client for the iNaturalist API: paginated species
// listings, observation photo extraction, and seasonality histograms.
package inat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"time"

	"github.com/averlon/fieldatlas/internal/conf"
	"github.com/averlon/fieldatlas/internal/fetch"
	"github.com/averlon/fieldatlas/internal/logging"
	"github.com/patrickmn/go-cache"
)

// Package-level logger specific to the iNaturalist service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	serviceLevelVar.Set(slog.LevelDebug)
	logger, _, err = logging.NewFileLogger("logs/inat.log", "inat", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize inat file logger: %v. Service logging disabled.", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "inat")
	}
}

// Client provides methods for interacting with the iNaturalist API.
// All requests go through the retrying fetch layer; pagination adds its own
// fixed inter-page delay on top, independent of reactive backoff.
type Client struct {
	config  conf.INatSettings
	fetcher *fetch.Fetcher
	cache   *cache.Cache

	// sleep is replaced in tests to observe the inter-page delay
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new iNaturalist API client.
func NewClient(fetcher *fetch.Fetcher, config conf.INatSettings) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.inaturalist.org/v1"
	}
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.PageDelay <= 0 {
		config.PageDelay = 300 * time.Millisecond
	}
	if config.ObservationLimit <= 0 {
		config.ObservationLimit = 30
	}
	if config.MaxImages <= 0 {
		config.MaxImages = 5
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 15 * time.Minute
	}

	logger.Info("iNaturalist client initialized",
		"base_url", config.BaseURL,
		"page_size", config.PageSize,
		"page_delay_ms", config.PageDelay.Milliseconds(),
		"cache_ttl", config.CacheTTL)

	return &Client{
		config:  config,
		fetcher: fetcher,
		cache:   cache.New(config.CacheTTL, config.CacheTTL*2),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListSpecies walks the paged taxa listing for the given parent taxon and
// iconic group and returns all active species-rank entries. The sequence is
// fully materialized; a page shorter than the page size ends the walk.
func (c *Client) ListSpecies(ctx context.Context, taxonID int, iconicTaxon string) ([]SpeciesSummary, error) {
	cacheKey := fmt.Sprintf("taxa:%d:%s", taxonID, iconicTaxon)
	if cached, found := c.cache.Get(cacheKey); found {
		if species, ok := cached.([]SpeciesSummary); ok {
			logger.Debug("Species listing cache hit", "cache_key", cacheKey, "count", len(species))
			return species, nil
		}
	}

	var species []SpeciesSummary
	for page := 1; ; page++ {
		listURL := fmt.Sprintf("%s/taxa?taxon_id=%d&rank=species&is_active=true&iconic_taxa=%s&per_page=%d&page=%d",
			c.config.BaseURL, taxonID, url.QueryEscape(iconicTaxon), c.config.PageSize, page)

		body, err := c.fetcher.Get(ctx, listURL)
		if err != nil {
			return nil, err
		}

		var resp taxaResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			logger.Error("Failed to parse taxa listing", "page", page, "error", err)
			return nil, fetch.Malformed(listURL, err)
		}

		for i := range resp.Results {
			// The query already requests species rank; filter anyway,
			// upstream has returned mixed ranks before.
			if resp.Results[i].Rank != "species" {
				continue
			}
			species = append(species, newSpeciesSummary(&resp.Results[i]))
		}

		logger.Debug("Fetched taxa page",
			"taxon_id", taxonID,
			"page", page,
			"results", len(resp.Results),
			"species_total", len(species))

		// A short page is the end-of-data sentinel
		if len(resp.Results) < c.config.PageSize {
			break
		}

		// Fixed pacing between pages to stay under upstream rate limits
		if err := c.sleep(ctx, c.config.PageDelay); err != nil {
			return nil, err
		}
	}

	c.cache.Set(cacheKey, species, cache.DefaultExpiration)
	logger.Info("Species listing complete",
		"taxon_id", taxonID,
		"iconic_taxa", iconicTaxon,
		"species", len(species))
	return species, nil
}

func newSpeciesSummary(t *taxonResult) SpeciesSummary {
	s := SpeciesSummary{
		ID:                  t.ID,
		ScientificName:      t.Name,
		PreferredCommonName: t.PreferredCommonName,
	}
	if t.DefaultPhoto != nil {
		s.DefaultPhotoURL = t.DefaultPhoto.mediumURL()
	}
	return s
}
