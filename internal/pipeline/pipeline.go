// Package pipeline orchestrates per-species enrichment and incremental
// persistence: prior state is reused field by field, only missing fields
// are fetched, and the assembled record is written with merge semantics.
package pipeline

import (
	"context"
	"io"
	"log"
	"log/slog"
	"strconv"

	"github.com/averlon/fieldatlas/internal/errors"
	"github.com/averlon/fieldatlas/internal/inat"
	"github.com/averlon/fieldatlas/internal/logging"
	"github.com/averlon/fieldatlas/internal/store"
	"github.com/averlon/fieldatlas/internal/wiki"
)

// Package-level logger specific to the pipeline service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	serviceLevelVar.Set(slog.LevelDebug)
	logger, _, err = logging.NewFileLogger("logs/pipeline.log", "pipeline", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize pipeline file logger: %v. Service logging disabled.", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "pipeline")
	}
}

// Pipeline enriches one species at a time against the document store.
type Pipeline struct {
	store store.Store
	inat  *inat.Client
	wiki  *wiki.Enricher
}

// New creates a pipeline with explicit dependencies. The store handle is
// injected so tests can substitute an in-memory implementation.
func New(docs store.Store, inatClient *inat.Client, wikiEnricher *wiki.Enricher) *Pipeline {
	return &Pipeline{store: docs, inat: inatClient, wiki: wikiEnricher}
}

// Process enriches a single species and upserts its document. Each of
// images, seasonality and wikipediaHtml is fetched at most once ever: a
// non-empty stored value is carried forward verbatim. A species with no
// collectable images is skipped without a write. The returned bool reports
// whether a document was written.
func (p *Pipeline) Process(ctx context.Context, species *inat.SpeciesSummary, category string) (bool, error) {
	id := strconv.Itoa(species.ID)
	speciesLogger := logger.With("species_id", id, "scientific_name", species.ScientificName)

	existing, _, err := p.store.Get(ctx, id)
	if err != nil {
		return false, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryDatabase).
			Context("species_id", id).
			Build()
	}

	images := asStringSlice(existing[store.FieldImages])
	if len(images) == 0 {
		images, err = p.inat.CollectImages(ctx, species.ID)
		if err != nil {
			return false, err
		}
	} else {
		speciesLogger.Debug("Reusing stored images", "count", len(images))
	}

	// A record with no illustrative image is not useful; leave whatever is
	// stored untouched and move on.
	if len(images) == 0 {
		speciesLogger.Info("No images available, skipping species")
		return false, nil
	}

	// Truthiness check on purpose: a stored empty histogram reads as
	// missing and is fetched again on every run. Known inconsistency,
	// kept for parity with prior behaviour.
	seasonality := asAnySlice(existing[store.FieldSeasonality])
	if len(seasonality) == 0 {
		seasonality, err = p.inat.FetchSeasonality(ctx, species.ID)
		if err != nil {
			return false, err
		}
	}

	// A stored empty string means "checked, not found"; reuse needs a
	// non-empty value, so absence is re-checked on the next run.
	wikipediaHTML, hadHTML := existing[store.FieldWikipediaHTML].(string)
	if !hadHTML || wikipediaHTML == "" {
		wikipediaHTML, _ = p.wiki.FetchSummaryHTML(ctx, species.ScientificName)
	}

	imageURL := species.DefaultPhotoURL
	if imageURL == "" {
		imageURL = images[0]
	}

	vernacularNames := []string{}
	if species.PreferredCommonName != "" {
		vernacularNames = append(vernacularNames, species.PreferredCommonName)
	}

	fields := map[string]any{
		store.FieldID:              id,
		store.FieldTitle:           species.Title(),
		store.FieldScientificName:  species.ScientificName,
		store.FieldImageURL:        imageURL,
		store.FieldImages:          images,
		store.FieldSeasonality:     seasonality,
		store.FieldCategory:        category,
		store.FieldVernacularNames: vernacularNames,
		store.FieldWikipediaHTML:   wikipediaHTML,
		store.FieldWikipediaText:   excerptOf(p.wiki, wikipediaHTML),
	}
	// notes is deliberately absent from the write: it belongs to the
	// operator and survives through the merge.

	if err := p.store.SetMerge(ctx, id, fields); err != nil {
		return false, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryDatabase).
			Context("species_id", id).
			Build()
	}

	speciesLogger.Info("Species document upserted",
		"category", category,
		"images", len(images),
		"has_wikipedia", wikipediaHTML != "")
	return true, nil
}

func excerptOf(enricher *wiki.Enricher, pageHTML string) string {
	if pageHTML == "" {
		return ""
	}
	return enricher.Excerpt(pageHTML)
}

// asStringSlice coerces a stored document value into a string slice.
// Firestore hands back []interface{}; the in-memory store keeps []string.
func asStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// asAnySlice coerces a stored document value into a generic slice.
func asAnySlice(v any) []any {
	if vv, ok := v.([]any); ok {
		return vv
	}
	return nil
}
