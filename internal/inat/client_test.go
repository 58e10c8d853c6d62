package inat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/averlon/fieldatlas/internal/conf"
	"github.com/averlon/fieldatlas/internal/fetch"
	"github.com/averlon/fieldatlas/internal/httpclient"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://api.inaturalist.org/v1"

// newTestClient returns an iNaturalist client with a mocked transport and
// recorded inter-page delays.
func newTestClient(t *testing.T, config conf.INatSettings) (*Client, *[]time.Duration) {
	t.Helper()

	httpClient := httpclient.New(nil)
	httpmock.ActivateNonDefault(httpClient.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	fetcher := fetch.New(httpClient, conf.FetchSettings{MaxAttempts: 1, BaseDelay: time.Millisecond})
	c := NewClient(fetcher, config)

	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return c, &delays
}

// taxaPage builds a listing page of species-rank results.
func taxaPage(startID, count int) string {
	results := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		id := startID + i
		results = append(results, map[string]any{
			"id":                    id,
			"name":                  fmt.Sprintf("Rana species%d", id),
			"rank":                  "species",
			"preferred_common_name": fmt.Sprintf("Frog %d", id),
			"default_photo": map[string]any{
				"url":        fmt.Sprintf("https://static.inaturalist.org/photos/%d/square.jpg", id),
				"medium_url": fmt.Sprintf("https://static.inaturalist.org/photos/%d/medium.jpg", id),
			},
		})
	}
	page, _ := json.Marshal(map[string]any{"results": results})
	return string(page)
}

func registerTaxaPages(t *testing.T, pages map[string]string) {
	t.Helper()
	httpmock.RegisterResponder("GET", `=~^`+testBaseURL+`/taxa`,
		func(req *http.Request) (*http.Response, error) {
			page := req.URL.Query().Get("page")
			body, ok := pages[page]
			if !ok {
				return httpmock.NewStringResponse(400, "unexpected page"), nil
			}
			return httpmock.NewStringResponse(200, body), nil
		})
}

func TestListSpecies_PaginatesUntilShortPage(t *testing.T) {
	c, delays := newTestClient(t, conf.INatSettings{PageSize: 3, PageDelay: 300 * time.Millisecond})

	registerTaxaPages(t, map[string]string{
		"1": taxaPage(100, 3),
		"2": taxaPage(200, 3),
		"3": taxaPage(300, 1),
	})

	species, err := c.ListSpecies(context.Background(), 20979, "Amphibia")

	require.NoError(t, err)
	assert.Len(t, species, 7)
	// short third page ends the walk, exactly 3 calls
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
	// pacing applies between pages, not after the last one
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 300 * time.Millisecond}, *delays)
	assert.Equal(t, "Rana species100", species[0].ScientificName)
	assert.Equal(t, "Frog 100", species[0].PreferredCommonName)
	assert.Equal(t, "https://static.inaturalist.org/photos/100/medium.jpg", species[0].DefaultPhotoURL)
}

func TestListSpecies_FiltersNonSpeciesRanks(t *testing.T) {
	c, _ := newTestClient(t, conf.INatSettings{PageSize: 10})

	mixed := `{"results":[
		{"id":1,"name":"Rana","rank":"genus"},
		{"id":2,"name":"Rana temporaria","rank":"species"},
		{"id":3,"name":"Rana temporaria honnorati","rank":"subspecies"},
		{"id":4,"name":"Bufo bufo","rank":"species"}
	]}`
	registerTaxaPages(t, map[string]string{"1": mixed})

	species, err := c.ListSpecies(context.Background(), 20979, "Amphibia")

	require.NoError(t, err)
	require.Len(t, species, 2)
	assert.Equal(t, "Rana temporaria", species[0].ScientificName)
	assert.Equal(t, "Bufo bufo", species[1].ScientificName)
}

func TestListSpecies_RequestsSpeciesRankAndIconicTaxon(t *testing.T) {
	c, _ := newTestClient(t, conf.INatSettings{PageSize: 10})

	var seen *http.Request
	httpmock.RegisterResponder("GET", `=~^`+testBaseURL+`/taxa`,
		func(req *http.Request) (*http.Response, error) {
			seen = req
			return httpmock.NewStringResponse(200, `{"results":[]}`), nil
		})

	_, err := c.ListSpecies(context.Background(), 85553, "Reptilia")

	require.NoError(t, err)
	require.NotNil(t, seen)
	q := seen.URL.Query()
	assert.Equal(t, "85553", q.Get("taxon_id"))
	assert.Equal(t, "species", q.Get("rank"))
	assert.Equal(t, "true", q.Get("is_active"))
	assert.Equal(t, "Reptilia", q.Get("iconic_taxa"))
	assert.Equal(t, "10", q.Get("per_page"))
}

func TestListSpecies_CachesListing(t *testing.T) {
	c, _ := newTestClient(t, conf.INatSettings{PageSize: 10})

	registerTaxaPages(t, map[string]string{"1": taxaPage(100, 2)})

	first, err := c.ListSpecies(context.Background(), 20979, "Amphibia")
	require.NoError(t, err)
	second, err := c.ListSpecies(context.Background(), 20979, "Amphibia")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestListSpecies_MalformedPayload(t *testing.T) {
	c, _ := newTestClient(t, conf.INatSettings{PageSize: 10})

	registerTaxaPages(t, map[string]string{"1": `{not json`})

	_, err := c.ListSpecies(context.Background(), 20979, "Amphibia")

	require.Error(t, err)
	var fetchErr *fetch.Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, fetch.KindMalformed, fetchErr.Kind)
}

func TestSpeciesSummaryTitle(t *testing.T) {
	s := SpeciesSummary{ScientificName: "Rana temporaria", PreferredCommonName: "Common Frog"}
	assert.Equal(t, "Common Frog", s.Title())

	s.PreferredCommonName = ""
	assert.Equal(t, "Rana temporaria", s.Title())
}

func TestFetchSeasonality_PassthroughPayload(t *testing.T) {
	c, _ := newTestClient(t, conf.INatSettings{})

	histogram := `{"results":[{"month_of_year":{"1":4,"2":11,"3":37}}]}`
	httpmock.RegisterResponder("GET", `=~^`+testBaseURL+`/observations/histogram`,
		httpmock.NewStringResponder(200, histogram))

	results, err := c.FetchSeasonality(context.Background(), 25510)

	require.NoError(t, err)
	require.Len(t, results, 1)
	bucket, ok := results[0].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, bucket, "month_of_year")
}

func TestFetchSeasonality_EmptyIsValid(t *testing.T) {
	c, _ := newTestClient(t, conf.INatSettings{})

	httpmock.RegisterResponder("GET", `=~^`+testBaseURL+`/observations/histogram`,
		httpmock.NewStringResponder(200, `{"results":[]}`))

	results, err := c.FetchSeasonality(context.Background(), 25510)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFetchSeasonality_RequestsMonthlyInterval(t *testing.T) {
	c, _ := newTestClient(t, conf.INatSettings{})

	var seen *http.Request
	httpmock.RegisterResponder("GET", `=~^`+testBaseURL+`/observations/histogram`,
		func(req *http.Request) (*http.Response, error) {
			seen = req
			return httpmock.NewStringResponse(200, `{"results":[]}`), nil
		})

	_, err := c.FetchSeasonality(context.Background(), 25510)

	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, "month_of_year", seen.URL.Query().Get("interval"))
	assert.True(t, strings.HasSuffix(seen.URL.Path, "/observations/histogram"))
}
