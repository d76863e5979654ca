package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/cairn/internal/cli"
	"github.com/aretw0/cairn/pkg/schema"
	"github.com/aretw0/cairn/pkg/weights"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Manage persisted weight snapshots",
	Long: `Export, import, seed and maintain the learned weight snapshot.
Import, preload and decay require storage to be configured (see the
storage section of cairn.yaml); export prints whatever the engine holds.`,
}

var weightsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the current weight snapshot as JSON",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := buildWeightsApp(cmd)
		defer app.Close()

		restoreWeights(cmd.Context(), app)

		snap := app.Engine.Export()
		data, err := schema.Marshal(snap)
		if err != nil {
			fmt.Printf("Error encoding snapshot: %v\n", err)
			os.Exit(1)
		}

		if len(args) == 0 {
			fmt.Println(string(data))
			return
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			fmt.Printf("Error writing %s: %v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Printf("Exported %d weight entries to %s\n", len(snap.Weights), args[0])
	},
}

var weightsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore a weight snapshot from JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := buildWeightsApp(cmd)
		defer app.Close()
		requireStorage(app)

		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("Error reading %s: %v\n", args[0], err)
			os.Exit(1)
		}
		snap, err := schema.Unmarshal(data)
		if err != nil {
			fmt.Printf("Error parsing snapshot: %v\n", err)
			os.Exit(1)
		}
		if err := app.Engine.Import(snap); err != nil {
			fmt.Printf("Import failed: %v\n", err)
			os.Exit(1)
		}
		if err := app.Engine.SaveWeights(cmd.Context()); err != nil {
			fmt.Printf("Error persisting weights: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d weight entries\n", len(snap.Weights))
	},
}

var weightsPreloadCmd = &cobra.Command{
	Use:   "preload <file>",
	Short: "Seed weights from historical transition counts",
	Long: `Reads a JSON array of {from, to, actor, count} records and seeds the
weight store from them. Pairs missing from the graph are skipped.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := buildWeightsApp(cmd)
		defer app.Close()
		requireStorage(app)

		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("Error reading %s: %v\n", args[0], err)
			os.Exit(1)
		}
		var records []weights.PreloadRecord
		if err := json.Unmarshal(data, &records); err != nil {
			fmt.Printf("Error parsing records: %v\n", err)
			os.Exit(1)
		}

		restoreWeights(cmd.Context(), app)
		n := app.Engine.Preload(records)
		if err := app.Engine.SaveWeights(cmd.Context()); err != nil {
			fmt.Printf("Error persisting weights: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Preloaded %d of %d records\n", n, len(records))
	},
}

var weightsDecayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Run a maintenance decay pass over the persisted snapshot",
	Long: `Loads the persisted snapshot, applies decay for the elapsed time and
writes the result back. With redis storage the pass takes a distributed
lock so concurrent schedulers do not double-decay.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := buildWeightsApp(cmd)
		defer app.Close()
		requireStorage(app)

		ctx := cmd.Context()
		if app.Locker != nil {
			unlock, err := app.Locker.Lock(ctx, "maintenance", 30*time.Second)
			if err != nil {
				fmt.Printf("Could not acquire maintenance lock: %v\n", err)
				os.Exit(1)
			}
			defer func() { _ = unlock(ctx) }()
		}

		restoreWeights(ctx, app)
		res := app.Engine.ApplyDecay()
		if err := app.Engine.SaveWeights(ctx); err != nil {
			fmt.Printf("Error persisting weights: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Scanned %d entries: %d decayed, %d removed\n", res.Scanned, res.Touched, res.Removed)
	},
}

func buildWeightsApp(cmd *cobra.Command) *cli.App {
	app, err := cli.Build(buildOptions(cmd))
	if err != nil {
		fmt.Printf("Error initializing cairn: %v\n", err)
		os.Exit(1)
	}
	return app
}

func requireStorage(app *cli.App) {
	if !app.HasStorage() {
		fmt.Println("No storage configured. Set storage.type to 'file' or 'redis' in cairn.yaml.")
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(weightsCmd)
	weightsCmd.AddCommand(weightsExportCmd)
	weightsCmd.AddCommand(weightsImportCmd)
	weightsCmd.AddCommand(weightsPreloadCmd)
	weightsCmd.AddCommand(weightsDecayCmd)
}
