package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/cairn/internal/cli"
	mermaid "github.com/aretw0/cairn/internal/presentation/graph"
	"github.com/aretw0/cairn/pkg/domain"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow graph visualization",
	Long: `Loads the definition and outputs a Mermaid diagram (graph TD). Learned
weights and analyzer highlights (loops, bottlenecks) are optional overlays.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := buildOptions(cmd)
		if opts.Dir == "" && len(args) > 0 {
			opts.Dir = args[0]
		}

		app, err := cli.Build(opts)
		if err != nil {
			fmt.Printf("Error initializing cairn: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		withWeights, _ := cmd.Flags().GetBool("weights")
		actorName, _ := cmd.Flags().GetString("actor")
		highlights, _ := cmd.Flags().GetBool("highlights")

		var genOpts []mermaid.Option
		if withWeights {
			actor := domain.Actor(actorName)
			if !actor.Valid() {
				fmt.Printf("Unknown actor %q. Supported: user, system, automation\n", actorName)
				os.Exit(1)
			}
			restoreWeights(cmd.Context(), app)
			genOpts = append(genOpts, mermaid.WithWeights(func(from, to string) float64 {
				return app.Engine.Weight(from, to, actor)
			}))
		}
		if highlights {
			var bottlenecks []string
			for _, b := range app.Engine.Bottlenecks() {
				bottlenecks = append(bottlenecks, b.Node)
			}
			var loopNodes []string
			for _, l := range app.Engine.Loops() {
				loopNodes = append(loopNodes, l.SCC.Nodes...)
			}
			genOpts = append(genOpts,
				mermaid.WithBottlenecks(bottlenecks...),
				mermaid.WithLoopNodes(loopNodes...))
		}

		fmt.Print(mermaid.GenerateMermaid(app.Engine.Graph(), genOpts...))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().Bool("weights", false, "Label edges with current learned weights")
	graphCmd.Flags().String("actor", "user", "Actor whose weights to show (with --weights)")
	graphCmd.Flags().Bool("highlights", false, "Mark analyzer loops and bottlenecks")
}
