package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	ReaderConn   string
	OutputPath   string
	OutputPretty bool
)

var rootCmd = &cobra.Command{
	Use:   "ggsql [query|file]",
	Short: "SQL with a visualization clause",
	Long: `ggsql executes SQL queries whose trailing VISUALISE clause describes a
chart, and emits the chart as a Vega-Lite document.

Supports:
  - Inline queries: ggsql "SELECT ... VISUALISE date AS x, price AS y DRAW line"
  - Query files:    ggsql report.sql
  - Stdin:          cat report.sql | ggsql

Examples:
  ggsql --reader sqlite://sales.db "SELECT * FROM sales VISUALISE date AS x, price AS y DRAW line"
  ggsql render report.sql -o chart.vl.json
  ggsql validate report.sql
  ggsql interactive`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readInput(args)
		if err != nil {
			return err
		}
		if input == "" {
			return cmd.Help()
		}
		return RunRender(cmd.Context(), input)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// readInput resolves the query text: an existing file's contents, the
// argument itself, or stdin when piped.
func readInput(args []string) (string, error) {
	if len(args) == 1 {
		arg := args[0]
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			data, err := os.ReadFile(arg)
			if err != nil {
				return "", fmt.Errorf("failed to read %s: %w", arg, err)
			}
			return string(data), nil
		}
		return arg, nil
	}

	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	return "", nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&ReaderConn, "reader", "r", "sqlite://memory", "Reader connection string (sqlite://, mysql://, postgres://)")
	rootCmd.PersistentFlags().StringVarP(&OutputPath, "output", "o", "", "Write the document to a file instead of stdout")
	rootCmd.PersistentFlags().BoolVar(&OutputPretty, "pretty", true, "Pretty print output")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(interactiveCmd)
}
