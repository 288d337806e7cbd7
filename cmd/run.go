package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ggsql/ggsql/pkg/reader"
	"github.com/ggsql/ggsql/pkg/splitter"
)

var runCmd = &cobra.Command{
	Use:   "run [query|file]",
	Short: "Execute the relational part of a query and print its rows",
	Long: `run strips any visualization clause and executes the plain SQL against
the configured reader, printing the result as JSON records. Useful for
inspecting the data a chart would be built from.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readInput(args)
		if err != nil {
			return err
		}
		if input == "" {
			return fmt.Errorf("no query given")
		}

		prefix, frags := splitter.Split(input)
		if len(frags) > 0 {
			prefix = frags[0].Prefix
		}
		if strings.TrimSpace(prefix) == "" {
			return fmt.Errorf("input has no relational query")
		}

		r, err := reader.Open(ReaderConn)
		if err != nil {
			return fmt.Errorf("failed to open reader: %w", err)
		}
		defer r.Close()

		result, err := r.Execute(cmd.Context(), prefix)
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(os.Stdout)
		if OutputPretty {
			encoder.SetIndent("", "  ")
		}
		return encoder.Encode(result.Records())
	},
}
