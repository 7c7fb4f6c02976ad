package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/semdoc/internal/embedder"
)

var embedSummarize bool

var embedCmd = &cobra.Command{
	Use:   "embed <text>",
	Short: "Check the configured embedding and summarization providers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEmbed,
}

func init() {
	embedCmd.Flags().BoolVarP(&embedSummarize, "summarize", "s", false, "also summarize the text")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text := strings.Join(args, " ")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	vector, err := embedder.Embed(ctx, a.Embedder, text)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Embedder:  %s/%s\n", a.Embedder.Provider(), a.Embedder.Model())
	fmt.Fprintf(out, "Dimension: %d\n", len(vector))
	fmt.Fprintf(out, "Norm:      %.4f\n", math.Sqrt(norm))

	if embedSummarize {
		summary, err := a.Summarizer.Summarize(ctx, text)
		if err != nil {
			return fmt.Errorf("summarization failed: %w", err)
		}
		fmt.Fprintf(out, "Summary:   %s\n", summary)
	}
	return nil
}
