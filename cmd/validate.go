package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ggsql/ggsql/pkg/engine"
)

var validateCmd = &cobra.Command{
	Use:   "validate [query|file]",
	Short: "Check a visualization query's syntax without executing it",
	Long: `Validate parses every visualization clause in the input and reports
syntax errors with their position. No reader connection is made.

Examples:
  ggsql validate report.sql
  ggsql validate "SELECT 1 VISUALISE a AS x DRAW point"
  cat report.sql | ggsql validate`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	input, err := readInput(args)
	if err != nil {
		return err
	}
	if input == "" {
		return fmt.Errorf("no query given")
	}

	n, err := engine.Validate(input)
	if err != nil {
		fmt.Printf("❌ Validation failed: %v\n", err)
		return err
	}

	fmt.Printf("✅ Valid query with %d visualization clause(s)\n", n)
	return nil
}
