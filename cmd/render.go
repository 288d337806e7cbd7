package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ggsql/ggsql/pkg/engine"
	"github.com/ggsql/ggsql/pkg/reader"
)

var renderCmd = &cobra.Command{
	Use:   "render [query|file]",
	Short: "Render a visualization query to a Vega-Lite document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readInput(args)
		if err != nil {
			return err
		}
		if input == "" {
			return fmt.Errorf("no query given")
		}
		return RunRender(cmd.Context(), input)
	},
}

// RunRender executes input against the configured reader and writes the
// resulting document(s). Several clauses produce a JSON array.
func RunRender(ctx context.Context, input string) error {
	r, err := reader.Open(ReaderConn)
	if err != nil {
		return fmt.Errorf("failed to open reader: %w", err)
	}
	defer r.Close()

	docs, err := engine.New(r).Render(ctx, input)
	if err != nil && len(docs) == 0 {
		return err
	}

	var payload any
	if len(docs) == 1 {
		payload = docs[0].Doc
	} else {
		all := make([]map[string]any, len(docs))
		for i, doc := range docs {
			all[i] = doc.Doc
		}
		payload = all
	}

	if werr := writeDocument(payload); werr != nil {
		return werr
	}
	// Partial failure: the rendered clauses were written, report the rest.
	return err
}

func writeDocument(payload any) error {
	var data []byte
	var err error
	if OutputPretty {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	data = append(data, '\n')

	if OutputPath != "" {
		return os.WriteFile(OutputPath, data, 0o644)
	}
	_, err = os.Stdout.Write(data)
	return err
}
