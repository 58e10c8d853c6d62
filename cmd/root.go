// Package cmd assembles the FieldAtlas command line interface.
package cmd

import (
	"github.com/averlon/fieldatlas/cmd/run"
	"github.com/averlon/fieldatlas/cmd/serve"
	"github.com/averlon/fieldatlas/internal/buildinfo"
	"github.com/averlon/fieldatlas/internal/conf"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fieldatlas",
		Short:   "FieldAtlas species ingestion service",
		Version: buildinfo.Version,
	}

	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	rootCmd.AddCommand(
		serve.Command(settings),
		run.Command(settings),
	)

	return rootCmd
}
