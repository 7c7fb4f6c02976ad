package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/semdoc/internal/indexer"
)

var (
	indexURL   string
	indexForce bool
	indexJSON  bool
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a file, a directory, or stdin",
	Long: `Chunks, summarizes, embeds and stores documents.

A directory is walked for .md, .txt and .html files. A single file is stored
under its file:// URL unless --url is given. Use "-" to read stdin; --url is
then required.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexURL, "url", "", "document URL (default: file:// URL of the path)")
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "re-index unchanged documents")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if path != "-" {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			stats, err := a.Indexer.IndexPath(ctx, path, a.IndexConfig(indexForce))
			if err != nil {
				return fmt.Errorf("indexing failed: %w", err)
			}
			return printIndexStats(cmd, stats)
		}
	}

	text, url, err := readIndexInput(cmd, path)
	if err != nil {
		return err
	}

	var res *indexer.Result
	if indexForce {
		res, err = a.Indexer.Reindex(ctx, url, text)
	} else {
		res, err = a.Indexer.IndexDocument(ctx, url, text)
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if indexJSON {
		return json.NewEncoder(out).Encode(res)
	}
	if res.Skipped {
		fmt.Fprintf(out, "%s unchanged (%d chunks)\n", res.URL, res.Chunks)
		return nil
	}
	fmt.Fprintf(out, "%s indexed (%d chunks)\n", res.URL, res.Chunks)
	return nil
}

// readIndexInput returns the document text and URL for a file or stdin
func readIndexInput(cmd *cobra.Command, path string) (string, string, error) {
	if path == "-" {
		if indexURL == "" {
			return "", "", errors.New("--url is required when reading stdin")
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), indexURL, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	url := indexURL
	if url == "" {
		if url, err = indexer.FileURL(path); err != nil {
			return "", "", err
		}
	}
	return string(data), url, nil
}

func printIndexStats(cmd *cobra.Command, stats *indexer.Statistics) error {
	out := cmd.OutOrStdout()
	if indexJSON {
		return json.NewEncoder(out).Encode(stats)
	}
	fmt.Fprintf(out, "Indexed %d files (%d skipped, %d failed), %d chunks in %s\n",
		stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed, stats.ChunksCreated, stats.Duration)
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(out, "  error: %s\n", msg)
	}
	return nil
}
