package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/semdoc/internal/searcher"
	"github.com/dshills/semdoc/internal/storage"
)

var (
	searchLimit        int
	searchMode         string
	searchURLPattern   string
	searchField        string
	searchMinRelevance float64
	searchJSON         bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored document fragments",
	Long: `Searches chunk content and summaries. Hybrid mode combines keyword (BM25)
and semantic (vector) search with reciprocal rank fusion.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", searcher.DefaultLimit, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "", "hybrid, vector or keyword (default from config)")
	searchCmd.Flags().StringVar(&searchURLPattern, "url-pattern", "", "glob on document URLs")
	searchCmd.Flags().StringVar(&searchField, "field", "", "compare the query with content or summary embeddings only")
	searchCmd.Flags().Float64Var(&searchMinRelevance, "min-relevance", 0, "minimum relevance score (0-1)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	modeName := searchMode
	if modeName == "" {
		modeName = a.Config.Search.DefaultMode
	}
	mode, err := searcher.ParseMode(modeName)
	if err != nil {
		return err
	}

	var filters *storage.SearchFilters
	if searchURLPattern != "" || searchField != "" || searchMinRelevance > 0 {
		filters = &storage.SearchFilters{
			URLPattern:   searchURLPattern,
			Field:        searchField,
			MinRelevance: searchMinRelevance,
		}
	}

	resp, err := a.Searcher.Search(ctx, searcher.SearchRequest{
		Query:   strings.Join(args, " "),
		Limit:   searchLimit,
		Mode:    mode,
		Filters: filters,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp.Results)
	}

	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	for _, r := range resp.Results {
		fmt.Fprintf(out, "  [%d] %s #%d (%.3f)\n", r.Rank, r.Ref.URL, r.Ref.Position, r.RelevanceScore)
		if r.Summary != "" {
			fmt.Fprintf(out, "      %s\n", r.Summary)
		}
	}
	return nil
}
