package pipeline

import (
	"context"
	"math/rand"
	"time"

	"github.com/averlon/fieldatlas/internal/conf"
	"github.com/averlon/fieldatlas/internal/inat"
)

// Scheduler drives one full ingestion run: it picks a taxon group at
// random, lists its species, shuffles them, and feeds them through the
// pipeline one at a time. A failing species never halts the batch.
type Scheduler struct {
	pipeline *Pipeline
	inat     *inat.Client
	groups   []conf.TaxonGroup
	rng      *rand.Rand
}

// NewScheduler creates a scheduler over the fixed taxon group set. The
// random source is injectable so runs are reproducible in tests; pass nil
// for a time-seeded source.
func NewScheduler(p *Pipeline, inatClient *inat.Client, groups []conf.TaxonGroup, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // shuffle order, not security
	}
	return &Scheduler{pipeline: p, inat: inatClient, groups: groups, rng: rng}
}

// Run executes one ingestion run for a randomly chosen taxon group.
// Processing order is a uniform random permutation of the listing, so
// partial runs spread their effect evenly across species over time.
// Per-species errors are logged and swallowed; only a run-level failure
// (the listing itself) is returned.
func (s *Scheduler) Run(ctx context.Context) error {
	group := s.groups[s.rng.Intn(len(s.groups))]
	return s.RunGroup(ctx, group)
}

// RunGroup executes one ingestion run for a specific taxon group.
func (s *Scheduler) RunGroup(ctx context.Context, group conf.TaxonGroup) error {
	runLogger := logger.With("taxon_id", group.TaxonID, "category", group.Category)
	runLogger.Info("Starting ingestion run")

	species, err := s.inat.ListSpecies(ctx, group.TaxonID, group.IconicTaxon)
	if err != nil {
		runLogger.Error("Species listing failed, ending run", "error", err)
		return err
	}

	s.rng.Shuffle(len(species), func(i, j int) {
		species[i], species[j] = species[j], species[i]
	})

	var written, skipped, failed int
	for i := range species {
		if ctx.Err() != nil {
			runLogger.Warn("Run cancelled", "processed", i, "total", len(species))
			return ctx.Err()
		}
		ok, err := s.pipeline.Process(ctx, &species[i], group.Category)
		switch {
		case err != nil:
			failed++
			runLogger.Error("Species processing failed, continuing",
				"species_id", species[i].ID,
				"scientific_name", species[i].ScientificName,
				"error", err)
		case ok:
			written++
		default:
			skipped++
		}
	}

	runLogger.Info("Ingestion run complete",
		"species", len(species),
		"written", written,
		"skipped", skipped,
		"failed", failed)
	return nil
}
