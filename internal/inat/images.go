package inat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/averlon/fieldatlas/internal/fetch"
)

const squareMarker = "square"

// squareToMedium substitutes the square-thumbnail marker in a photo URL
// with the medium-resolution variant. URLs without the marker pass through
// unmodified.
func squareToMedium(photoURL string) string {
	if !strings.Contains(photoURL, squareMarker) {
		return photoURL
	}
	return strings.Replace(photoURL, squareMarker, "medium", 1)
}

// CollectImages fetches the most recent photographed observations of one
// species and derives a deduplicated list of up to MaxImages image URLs.
// Observations are scanned in their given order, most recent first, so
// later observations only fill remaining slots. For each observation the
// attached photos take priority; the observation's own default photo is the
// fallback when the list is still short.
func (c *Client) CollectImages(ctx context.Context, speciesID int) ([]string, error) {
	obsURL := fmt.Sprintf("%s/observations?taxon_id=%d&per_page=%d&photos=true&order=desc&order_by=created_at",
		c.config.BaseURL, speciesID, c.config.ObservationLimit)

	body, err := c.fetcher.Get(ctx, obsURL)
	if err != nil {
		return nil, err
	}

	var resp observationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logger.Error("Failed to parse observations", "species_id", speciesID, "error", err)
		return nil, fetch.Malformed(obsURL, err)
	}

	maxImages := c.config.MaxImages
	urls := make([]string, 0, maxImages)
	seen := make(map[string]struct{}, maxImages)

	add := func(u string) bool {
		if u == "" || len(urls) >= maxImages {
			return len(urls) >= maxImages
		}
		if _, dup := seen[u]; dup {
			return false
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
		return len(urls) >= maxImages
	}

	for i := range resp.Results {
		obs := &resp.Results[i]
		for j := range obs.Photos {
			if add(squareToMedium(obs.Photos[j].URL)) {
				return urls, nil
			}
		}
		if obs.Taxon != nil && obs.Taxon.DefaultPhoto != nil {
			if add(obs.Taxon.DefaultPhoto.mediumURL()) {
				return urls, nil
			}
		}
	}

	logger.Debug("Collected observation images",
		"species_id", speciesID,
		"images", len(urls),
		"observations", len(resp.Results))
	return urls, nil
}
