package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/averlon/fieldatlas/internal/conf"
	"github.com/averlon/fieldatlas/internal/fetch"
	"github.com/averlon/fieldatlas/internal/httpclient"
	"github.com/averlon/fieldatlas/internal/inat"
	"github.com/averlon/fieldatlas/internal/store"
	"github.com/averlon/fieldatlas/internal/wiki"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	inatBaseURL = "https://api.inaturalist.org/v1"
	wikiBaseURL = "https://en.wikipedia.org/api/rest_v1"
)

// newTestPipeline wires the pipeline against an in-memory store and a mocked
// HTTP transport shared by the iNaturalist client and the Wikipedia enricher.
func newTestPipeline(t *testing.T) (*Pipeline, *store.MemoryStore, *inat.Client) {
	t.Helper()

	httpClient := httpclient.New(nil)
	httpmock.ActivateNonDefault(httpClient.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	fetcher := fetch.New(httpClient, conf.FetchSettings{MaxAttempts: 1, BaseDelay: time.Millisecond})
	inatClient := inat.NewClient(fetcher, conf.INatSettings{PageSize: 100})
	enricher := wiki.NewEnricher(fetcher, conf.WikipediaSettings{RequestsPerSec: 1000})
	docs := store.NewMemory()

	return New(docs, inatClient, enricher), docs, inatClient
}

func registerObservations(t *testing.T, speciesID int, photoURLs ...string) {
	t.Helper()
	photos := ""
	for i, u := range photoURLs {
		if i > 0 {
			photos += ","
		}
		photos += fmt.Sprintf(`{"url":%q}`, u)
	}
	body := fmt.Sprintf(`{"results":[{"photos":[%s]}]}`, photos)
	if len(photoURLs) == 0 {
		body = `{"results":[]}`
	}
	httpmock.RegisterResponder("GET",
		fmt.Sprintf(`=~^%s/observations\?taxon_id=%d&`, inatBaseURL, speciesID),
		httpmock.NewStringResponder(200, body))
}

func registerHistogram(t *testing.T, speciesID int) {
	t.Helper()
	httpmock.RegisterResponder("GET",
		fmt.Sprintf(`=~^%s/observations/histogram\?taxon_id=%d&`, inatBaseURL, speciesID),
		httpmock.NewStringResponder(200, `{"results":[{"month_of_year":{"1":4,"6":20}}]}`))
}

func registerWikiPage(t *testing.T, title, html string) {
	t.Helper()
	httpmock.RegisterResponder("GET", wikiBaseURL+"/page/mobile-html/"+title,
		httpmock.NewStringResponder(200, html))
}

func TestProcess_WritesCompleteDocument(t *testing.T) {
	p, docs, _ := newTestPipeline(t)

	registerObservations(t, 25510, "https://img.example.org/a/square.jpg")
	registerHistogram(t, 25510)
	registerWikiPage(t, "Rana_temporaria", "<p>The common frog is widespread.</p>")

	species := &inat.SpeciesSummary{
		ID:                  25510,
		ScientificName:      "Rana temporaria",
		PreferredCommonName: "Common Frog",
		DefaultPhotoURL:     "https://img.example.org/default/medium.jpg",
	}

	written, err := p.Process(context.Background(), species, "Frogs")

	require.NoError(t, err)
	assert.True(t, written)

	doc, found, err := docs.Get(context.Background(), "25510")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "25510", doc[store.FieldID])
	assert.Equal(t, "Common Frog", doc[store.FieldTitle])
	assert.Equal(t, "Rana temporaria", doc[store.FieldScientificName])
	assert.Equal(t, "https://img.example.org/default/medium.jpg", doc[store.FieldImageURL])
	assert.Equal(t, []string{"https://img.example.org/a/medium.jpg"}, doc[store.FieldImages])
	assert.Len(t, doc[store.FieldSeasonality], 1)
	assert.Equal(t, "Frogs", doc[store.FieldCategory])
	assert.Equal(t, []string{"Common Frog"}, doc[store.FieldVernacularNames])
	assert.Contains(t, doc[store.FieldWikipediaHTML], "common frog")
	assert.Equal(t, "The common frog is widespread.", doc[store.FieldWikipediaText])
	// the pipeline never writes notes, the field stays operator-owned
	assert.NotContains(t, doc, store.FieldNotes)
}

func TestProcess_SkipsSpeciesWithoutImages(t *testing.T) {
	p, docs, _ := newTestPipeline(t)

	registerObservations(t, 25510) // no photographed observations

	species := &inat.SpeciesSummary{ID: 25510, ScientificName: "Rana temporaria"}

	written, err := p.Process(context.Background(), species, "Frogs")

	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, 0, docs.Len())
	// skip happens before seasonality and encyclopedia lookups
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestProcess_SecondRunFetchesNothing(t *testing.T) {
	p, docs, _ := newTestPipeline(t)

	registerObservations(t, 25510, "https://img.example.org/a/square.jpg")
	registerHistogram(t, 25510)
	registerWikiPage(t, "Rana_temporaria", "<p>The common frog.</p>")

	species := &inat.SpeciesSummary{ID: 25510, ScientificName: "Rana temporaria"}

	written, err := p.Process(context.Background(), species, "Frogs")
	require.NoError(t, err)
	require.True(t, written)

	first, _, err := docs.Get(context.Background(), "25510")
	require.NoError(t, err)

	// drop every responder: any upstream call now fails the test
	httpmock.Reset()

	written, err = p.Process(context.Background(), species, "Frogs")
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())

	second, _, err := docs.Get(context.Background(), "25510")
	require.NoError(t, err)
	assert.Equal(t, first[store.FieldImages], second[store.FieldImages])
	assert.Equal(t, first[store.FieldSeasonality], second[store.FieldSeasonality])
	assert.Equal(t, first[store.FieldWikipediaHTML], second[store.FieldWikipediaHTML])
}

func TestProcess_MergePreservesNotesAndImages(t *testing.T) {
	p, docs, _ := newTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, docs.SetMerge(ctx, "25510", map[string]any{
		store.FieldID:            "25510",
		store.FieldNotes:         "check range",
		store.FieldImages:        []string{"https://img.example.org/a/medium.jpg"},
		store.FieldSeasonality:   []any{map[string]any{"month_of_year": map[string]any{"1": 4.0}}},
		store.FieldWikipediaHTML: "<p>stored page</p>",
	}))

	// upstream now advertises a different default photo
	species := &inat.SpeciesSummary{
		ID:              25510,
		ScientificName:  "Rana temporaria",
		DefaultPhotoURL: "https://img.example.org/changed/medium.jpg",
	}

	written, err := p.Process(ctx, species, "Frogs")

	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())

	doc, _, err := docs.Get(ctx, "25510")
	require.NoError(t, err)
	assert.Equal(t, "check range", doc[store.FieldNotes])
	assert.Equal(t, []string{"https://img.example.org/a/medium.jpg"}, doc[store.FieldImages])
	assert.Equal(t, "https://img.example.org/changed/medium.jpg", doc[store.FieldImageURL])
}

func TestProcess_ImageURLFallsBackToFirstImage(t *testing.T) {
	p, docs, _ := newTestPipeline(t)

	registerObservations(t, 25510,
		"https://img.example.org/a/square.jpg",
		"https://img.example.org/b/square.jpg")
	registerHistogram(t, 25510)
	registerWikiPage(t, "Rana_temporaria", "<p>frog</p>")

	species := &inat.SpeciesSummary{ID: 25510, ScientificName: "Rana temporaria"}

	written, err := p.Process(context.Background(), species, "Frogs")

	require.NoError(t, err)
	assert.True(t, written)

	doc, _, err := docs.Get(context.Background(), "25510")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.org/a/medium.jpg", doc[store.FieldImageURL])
}

func TestProcess_EmptyStoredSeasonalityRefetched(t *testing.T) {
	p, docs, _ := newTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, docs.SetMerge(ctx, "25510", map[string]any{
		store.FieldImages:        []string{"https://img.example.org/a/medium.jpg"},
		store.FieldSeasonality:   []any{},
		store.FieldWikipediaHTML: "<p>stored page</p>",
	}))

	registerHistogram(t, 25510)

	species := &inat.SpeciesSummary{ID: 25510, ScientificName: "Rana temporaria"}

	written, err := p.Process(ctx, species, "Frogs")

	require.NoError(t, err)
	assert.True(t, written)
	// an empty stored histogram reads as missing and is fetched again
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	doc, _, err := docs.Get(ctx, "25510")
	require.NoError(t, err)
	assert.Len(t, doc[store.FieldSeasonality], 1)
}

func TestProcess_WikipediaAbsenceWritesEmptyString(t *testing.T) {
	p, docs, _ := newTestPipeline(t)

	registerObservations(t, 25510, "https://img.example.org/a/square.jpg")
	registerHistogram(t, 25510)
	httpmock.RegisterResponder("GET", wikiBaseURL+"/page/mobile-html/Rana_obscura",
		httpmock.NewStringResponder(404, `{"title":"Not found."}`))

	species := &inat.SpeciesSummary{ID: 25510, ScientificName: "Rana obscura"}

	written, err := p.Process(context.Background(), species, "Frogs")

	require.NoError(t, err)
	assert.True(t, written)

	doc, _, err := docs.Get(context.Background(), "25510")
	require.NoError(t, err)
	assert.Equal(t, "", doc[store.FieldWikipediaHTML])
	assert.Equal(t, "", doc[store.FieldWikipediaText])
}

func TestProcess_StoreErrorWrapped(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	// images endpoint errors: the species-level failure must carry through
	httpmock.RegisterResponder("GET",
		`=~^`+inatBaseURL+`/observations\?`,
		httpmock.NewStringResponder(500, "boom"))

	species := &inat.SpeciesSummary{ID: 25510, ScientificName: "Rana temporaria"}

	written, err := p.Process(context.Background(), species, "Frogs")

	require.Error(t, err)
	assert.False(t, written)
	var fetchErr *fetch.Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, fetch.KindPermanent, fetchErr.Kind)
}
