package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"papertimes/internal/core"
)

// NewAnalyzeCmd creates the analyze command that runs one analysis synchronously
func NewAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <document-id>",
		Short: "Run analysis for one pending document in the foreground",
		Long: `Run the analysis pipeline for a pending document without going through
the queue, then print the stored document. Useful for debugging prompts.

Example:
  papertimes analyze 6f1c0b9e-3f0e-4c55-9a53-1f0d7f2f6c1a`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), args[0])
		},
	}
}

func runAnalyze(ctx context.Context, id string) error {
	a, err := newApp(ctx, appOptions{ai: true, localFiles: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.analysis.Run(ctx, id); err != nil {
		return err
	}

	doc, err := a.db.Documents().Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status == core.StatusPending {
		return fmt.Errorf("document %s was not analyzed; only pending documents can be analyzed", id)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
