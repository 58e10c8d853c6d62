package inat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/antonholmquist/jason"
	"github.com/averlon/fieldatlas/internal/fetch"
)

// FetchSeasonality fetches the monthly observation-frequency histogram for
// one species. The payload stays opaque: whatever the results array holds
// is returned as-is, ready for document storage. An empty array is a valid
// result.
func (c *Client) FetchSeasonality(ctx context.Context, speciesID int) ([]any, error) {
	histURL := fmt.Sprintf("%s/observations/histogram?taxon_id=%d&interval=month_of_year",
		c.config.BaseURL, speciesID)

	body, err := c.fetcher.Get(ctx, histURL)
	if err != nil {
		return nil, err
	}

	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		logger.Error("Failed to parse histogram payload", "species_id", speciesID, "error", err)
		return nil, fetch.Malformed(histURL, err)
	}

	values, err := obj.GetValueArray("results")
	if err != nil {
		logger.Error("Histogram payload missing results array", "species_id", speciesID, "error", err)
		return nil, fetch.Malformed(histURL, err)
	}

	results := make([]any, 0, len(values))
	for _, v := range values {
		raw, err := v.Marshal()
		if err != nil {
			logger.Error("Failed to re-encode histogram bucket", "species_id", speciesID, "error", err)
			return nil, fetch.Malformed(histURL, err)
		}
		var bucket any
		if err := json.Unmarshal(raw, &bucket); err != nil {
			logger.Error("Failed to decode histogram bucket", "species_id", speciesID, "error", err)
			return nil, fetch.Malformed(histURL, err)
		}
		results = append(results, bucket)
	}

	logger.Debug("Fetched seasonality histogram", "species_id", speciesID, "buckets", len(results))
	return results, nil
}
