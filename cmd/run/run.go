// Package run implements the run command: one foreground ingestion run,
// the same code path the server detaches on a trigger.
package run

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/averlon/fieldatlas/internal/conf"
	"github.com/averlon/fieldatlas/internal/logging"
	"github.com/averlon/fieldatlas/internal/runtime"
	"github.com/averlon/fieldatlas/internal/store"
	"github.com/spf13/cobra"
)

// Command creates the run command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		category string
		seed     int64
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single ingestion run in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), settings, category, seed, dryRun)
		},
	}

	cmd.Flags().StringVar(&category, "taxon", "", "Pin the run to one taxon group by category name (e.g. Frogs)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for taxon selection and shuffle order (0 = time-seeded)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Use an in-memory store instead of Firestore")

	return cmd
}

func runOnce(ctx context.Context, settings *conf.Settings, category string, seed int64, dryRun bool) error {
	var docs store.Store
	if dryRun {
		docs = store.NewMemory()
		logging.Info("Dry run: using in-memory document store")
	} else {
		var err error
		docs, err = store.NewFirestore(ctx, settings.Firestore)
		if err != nil {
			return fmt.Errorf("failed to open document store: %w", err)
		}
	}

	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewSource(seed)) //nolint:gosec // reproducibility, not security
	}

	app := runtime.Build(settings, docs, rng)
	defer func() {
		if err := app.Close(); err != nil {
			logging.Error("Error closing application resources", "error", err)
		}
	}()

	if category != "" {
		group, ok := findGroup(category)
		if !ok {
			return fmt.Errorf("unknown taxon group: %s", category)
		}
		return app.Scheduler.RunGroup(ctx, group)
	}

	return app.Scheduler.Run(ctx)
}

func findGroup(category string) (conf.TaxonGroup, bool) {
	for _, group := range conf.TaxonGroups() {
		if group.Category == category {
			return group, true
		}
	}
	return conf.TaxonGroup{}, false
}
