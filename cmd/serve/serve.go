// Package serve implements the serve command: the HTTP trigger server in
// front of the ingestion scheduler.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/averlon/fieldatlas/internal/conf"
	"github.com/averlon/fieldatlas/internal/logging"
	"github.com/averlon/fieldatlas/internal/runtime"
	"github.com/averlon/fieldatlas/internal/server"
	"github.com/averlon/fieldatlas/internal/store"
	"github.com/spf13/cobra"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP trigger server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), settings)
		},
	}
	return cmd
}

func runServer(ctx context.Context, settings *conf.Settings) error {
	docs, err := store.NewFirestore(ctx, settings.Firestore)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}

	app := runtime.Build(settings, docs, nil)
	defer func() {
		if err := app.Close(); err != nil {
			logging.Error("Error closing application resources", "error", err)
		}
	}()

	srv := server.New(app.Scheduler, settings.Server)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logging.Info("Shutting down on signal", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
