package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	status, err := a.Storage.GetStatus(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Storage:    %s (%s) %s\n", status.Backend, status.BuildMode, a.Config.Storage.Path)
	fmt.Fprintf(out, "Documents:  %d\n", status.DocumentsCount)
	fmt.Fprintf(out, "Chunks:     %d\n", status.ChunksCount)
	fmt.Fprintf(out, "Dimension:  %d\n", status.Dimension)
	fmt.Fprintf(out, "Size:       %.2f MB\n", status.IndexSizeMB)
	fmt.Fprintf(out, "Embedder:   %s/%s\n", a.Embedder.Provider(), a.Embedder.Model())
	fmt.Fprintf(out, "Summarizer: %s/%s\n", a.Summarizer.Provider(), a.Summarizer.Model())
	if !status.LastIndexedAt.IsZero() {
		fmt.Fprintf(out, "Indexed at: %s\n", status.LastIndexedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
