package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/cairn/internal/cli"
	"github.com/aretw0/cairn/pkg/domain"
)

var rootCmd = &cobra.Command{
	Use:   "cairn",
	Short: "Cairn is an adaptive workflow prediction engine",
	Long: `Cairn loads a workflow definition, learns from recorded transitions and
predicts the next likely action for each node. Learned weights decay over
time unless reinforced, so predictions track how the workflow is used now
rather than how it was used once.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", "", "Workflow definition: a loam directory or a .yaml/.json/.flow file (default: source.path from config, else the current directory)")
	rootCmd.PersistentFlags().String("config", "", "Path to a cairn.yaml config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
}

func buildOptions(cmd *cobra.Command) cli.Options {
	dir, _ := cmd.Flags().GetString("dir")
	config, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.Options{Dir: dir, ConfigPath: config, Debug: debug}
}

// restoreWeights pulls the persisted snapshot into the engine when storage
// is configured. A missing snapshot is not an error; the engine starts cold.
func restoreWeights(ctx context.Context, app *cli.App) {
	if !app.HasStorage() {
		return
	}
	if err := app.Engine.LoadWeights(ctx); err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
		app.Logger.Warn("could not restore persisted weights", "err", err)
	}
}
