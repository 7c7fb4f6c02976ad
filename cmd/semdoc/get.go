package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/semdoc/internal/storage"
	"github.com/dshills/semdoc/pkg/types"
)

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Show a stored document with its summaries",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "output the stored tuple as JSON")
	rootCmd.AddCommand(getCmd)
}

// chunkView is the printable form of one chunk
type chunkView struct {
	Position int         `json:"position"`
	Range    types.Range `json:"range"`
	Content  string      `json:"content"`
	Summary  string      `json:"summary"`
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	doc, err := a.Indexer.Get(ctx, args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("document %s is not indexed", args[0])
	}
	if err != nil {
		return err
	}

	summary, _ := doc.Summary()
	chunks := make([]chunkView, 0, doc.Len())
	for i, c := range doc.Chunks() {
		s, _ := c.Summary()
		chunks = append(chunks, chunkView{Position: i, Range: c.Range(), Content: c.Content(), Summary: s})
	}

	out := cmd.OutOrStdout()
	if getJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"url":     doc.URL(),
			"summary": summary,
			"chunks":  chunks,
		})
	}

	fmt.Fprintf(out, "%s\n  %s\n\n", doc.URL(), summary)
	for _, c := range chunks {
		fmt.Fprintf(out, "  [%d] bytes %d-%d: %s\n", c.Position, c.Range.Start, c.Range.End, c.Summary)
	}
	return nil
}
