// Package runtime wires the application's long-lived dependencies: the
// shared HTTP transport, the retrying fetcher, the API clients, and the
// scheduler. The document store handle is constructed once by the caller
// and passed in, never reached through a process-wide singleton.
package runtime

import (
	"math/rand"

	"github.com/averlon/fieldatlas/internal/buildinfo"
	"github.com/averlon/fieldatlas/internal/conf"
	"github.com/averlon/fieldatlas/internal/fetch"
	"github.com/averlon/fieldatlas/internal/httpclient"
	"github.com/averlon/fieldatlas/internal/inat"
	"github.com/averlon/fieldatlas/internal/pipeline"
	"github.com/averlon/fieldatlas/internal/store"
	"github.com/averlon/fieldatlas/internal/wiki"
)

const contactURL = "https://github.com/averlon/fieldatlas"

// App bundles the wired components of one process.
type App struct {
	Settings  *conf.Settings
	Store     store.Store
	Scheduler *pipeline.Scheduler

	httpClient *httpclient.Client
}

// Build wires the scheduler and its dependencies on top of the given store
// handle. rng may be nil for a time-seeded random source.
func Build(settings *conf.Settings, docs store.Store, rng *rand.Rand) *App {
	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Fetch.Timeout,
		UserAgent:      httpclient.UserAgent(settings.Main.Name, buildinfo.Version, contactURL),
	})

	fetcher := fetch.New(client, settings.Fetch)
	inatClient := inat.NewClient(fetcher, settings.INat)
	wikiEnricher := wiki.NewEnricher(fetcher, settings.Wikipedia)

	p := pipeline.New(docs, inatClient, wikiEnricher)
	scheduler := pipeline.NewScheduler(p, inatClient, conf.TaxonGroups(), rng)

	return &App{
		Settings:   settings,
		Store:      docs,
		Scheduler:  scheduler,
		httpClient: client,
	}
}

// Close releases the app's transport and store resources.
func (a *App) Close() error {
	a.httpClient.Close()
	fetch.Close()
	return a.Store.Close()
}
