package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/cairn/internal/cli"
	"github.com/aretw0/cairn/pkg/graph"
	"github.com/aretw0/cairn/pkg/rules"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the workflow definition for consistency",
	Long: `Loads the definition and reports structural findings (dead ends,
isolated nodes, broken procedure references) plus registered rule
findings (guard syntax, reachability). Warnings are printed but only
errors fail the check.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := buildOptions(cmd)
		if opts.Dir == "" && len(args) > 0 {
			opts.Dir = args[0]
		}

		if err := runValidate(opts); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Definition is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(opts cli.Options) error {
	app, err := cli.Build(opts)
	if err != nil {
		return fmt.Errorf("failed to init engine: %w", err)
	}
	defer app.Close()

	g := app.Engine.Graph()
	findings := g.Validate()
	findings = append(findings, rules.NewRegistry().RunAll(g)...)

	errs := 0
	for _, f := range findings {
		fmt.Printf("[%s] %s: %s\n", f.Severity, f.Code, f.Message)
		if f.Severity == graph.SeverityError {
			errs++
		}
	}
	if errs > 0 {
		return fmt.Errorf("%d error(s) in definition", errs)
	}
	return nil
}
