package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/cairn/internal/cli"
	"github.com/aretw0/cairn/internal/presentation/tui"
	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <events.jsonl>",
	Short: "Measure prediction accuracy against a recorded event log",
	Long: `Feeds an ordered JSONL event log through a fresh engine, predicting
before each transition is recorded, and reports the top-k hit rate
overall and per node. Events consumed by warmup train the engine but
are not scored.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := cli.Build(buildOptions(cmd))
		if err != nil {
			fmt.Printf("Error initializing cairn: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		topK, _ := cmd.Flags().GetInt("top-k")
		actorName, _ := cmd.Flags().GetString("actor")
		jsonOut, _ := cmd.Flags().GetBool("json")
		rich, _ := cmd.Flags().GetBool("rich")

		f, err := os.Open(args[0])
		if err != nil {
			fmt.Printf("Error opening log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()

		events, err := replay.ReadLog(f)
		if err != nil {
			fmt.Printf("Error reading log: %v\n", err)
			os.Exit(1)
		}

		ropts := []replay.Option{replay.WithTopK(topK), replay.WithLogger(app.Logger)}
		if actorName != "" {
			actor := domain.Actor(actorName)
			if !actor.Valid() {
				fmt.Printf("Unknown actor %q. Supported: user, system, automation\n", actorName)
				os.Exit(1)
			}
			ropts = append(ropts, replay.WithActor(actor))
		}

		report, err := replay.New(app.Engine, ropts...).Run(cmd.Context(), events)
		if err != nil {
			fmt.Printf("Replay failed: %v\n", err)
			os.Exit(1)
		}

		switch {
		case jsonOut:
			err = report.JSON(os.Stdout)
		case rich:
			render := tui.NewRenderer()
			out, rerr := render(markdownReport(report))
			if rerr != nil {
				err = report.Text(os.Stdout)
			} else {
				fmt.Print(out)
			}
		default:
			err = report.Text(os.Stdout)
		}
		if err != nil {
			fmt.Printf("Error writing report: %v\n", err)
			os.Exit(1)
		}
	},
}

// markdownReport renders the report for the glamour path.
func markdownReport(r *replay.Report) string {
	var sb strings.Builder
	sb.WriteString("# Replay Report\n\n")
	fmt.Fprintf(&sb, "Replayed **%d** events: %d scored, %d hits (**%.1f%%** top-%d).\n\n",
		r.Events, r.Scored, r.Hits, r.HitRate*100, r.TopK)
	fmt.Fprintf(&sb, "Warmup consumed %d, skipped %d, rejected %d.\n\n",
		r.Warmup, r.Skipped, r.Rejected)
	if len(r.Nodes) > 0 {
		sb.WriteString("| Node | Scored | Hits | Rate |\n")
		sb.WriteString("| --- | ---: | ---: | ---: |\n")
		for _, n := range r.Nodes {
			fmt.Fprintf(&sb, "| %s | %d | %d | %.1f%% |\n", n.Node, n.Scored, n.Hits, n.HitRate*100)
		}
	}
	return sb.String()
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().Int("top-k", replay.DefaultTopK, "Window size a prediction counts as a hit in")
	replayCmd.Flags().String("actor", "", "Override the actor on every event")
	replayCmd.Flags().Bool("json", false, "Emit the report as JSON")
	replayCmd.Flags().Bool("rich", false, "Render the report with terminal styling")
}
