package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semdoc/internal/indexer"
	"github.com/dshills/semdoc/internal/prompt"
	"github.com/dshills/semdoc/internal/searcher"
)

func resetFlags() {
	configPath, logLevel = "", ""
	indexURL, indexForce, indexJSON = "", false, false
	getJSON = false
	searchLimit, searchMode, searchURLPattern, searchField = searcher.DefaultLimit, "", "", ""
	searchMinRelevance, searchJSON = 0, false
	promptsPrefix, promptsLine, promptsJSON = "", -1, false
	embedSummarize = false
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// writeConfig writes a config using local providers and a temporary database
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "semdoc.toml")
	content := fmt.Sprintf(`[storage]
backend = "sqlite"
path = %q

[embedding]
provider = "local"
dimension = 32

[summarizer]
provider = "local"

[logging]
level = "error"
`, filepath.Join(dir, "db", "semdoc.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "semdoc dev")
	assert.Contains(t, out, "Build Mode:")
}

func TestIndexGetSearch(t *testing.T) {
	cfg := writeConfig(t)
	docPath := filepath.Join(t.TempDir(), "animals.md")
	require.NoError(t, os.WriteFile(docPath, []byte("Kangaroos hop across the outback.\n\nPenguins swim in cold water.\n"), 0o644))
	url, err := indexer.FileURL(docPath)
	require.NoError(t, err)

	out, err := execute(t, "", "index", "--config", cfg, docPath)
	require.NoError(t, err)
	assert.Equal(t, url+" indexed (1 chunks)\n", out)

	out, err = execute(t, "", "index", "--config", cfg, docPath)
	require.NoError(t, err)
	assert.Equal(t, url+" unchanged (1 chunks)\n", out)

	out, err = execute(t, "", "get", "--config", cfg, "--json", url)
	require.NoError(t, err)
	var doc struct {
		URL     string      `json:"url"`
		Summary string      `json:"summary"`
		Chunks  []chunkView `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, url, doc.URL)
	assert.NotEmpty(t, doc.Summary)
	require.Len(t, doc.Chunks, 1)
	assert.Equal(t, 0, doc.Chunks[0].Range.Start)

	out, err = execute(t, "", "search", "--config", cfg, "--mode", "keyword", "penguins")
	require.NoError(t, err)
	assert.Contains(t, out, url)

	out, err = execute(t, "", "search", "--config", cfg, "--mode", "keyword", "platypus")
	require.NoError(t, err)
	assert.Equal(t, "No results found.\n", out)

	out, err = execute(t, "", "status", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:  1")
}

func TestIndexCommand_Stdin(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "Wombats dig burrows.", "index", "--config", cfg, "-")
	assert.Error(t, err)

	out, err := execute(t, "Wombats dig burrows.", "index", "--config", cfg, "--url", "notes:wombats", "-")
	require.NoError(t, err)
	assert.Equal(t, "notes:wombats indexed (1 chunks)\n", out)
}

func TestIndexCommand_Directory(t *testing.T) {
	cfg := writeConfig(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("Alpha."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("Beta."), 0o644))

	out, err := execute(t, "", "index", "--config", cfg, "--json", dir)
	require.NoError(t, err)

	var stats indexer.Statistics
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 2, stats.ChunksCreated)
}

func TestGetCommand_NotIndexed(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "", "get", "--config", cfg, "file:///missing.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not indexed")
}

func TestPromptsCommand(t *testing.T) {
	text := "intro\n#$ write a haiku\n"

	out, err := execute(t, text, "prompts", "-")
	require.NoError(t, err)
	assert.Equal(t, "1:14\t write a haiku\n", out)

	out, err = execute(t, "// ai: fix\n", "prompts", "--prefix", "ai:", "--json", "-")
	require.NoError(t, err)
	var matches []prompt.Match
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, " fix", matches[0].Text)

	out, err = execute(t, text, "prompts", "--line", "0", "-")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEmbedCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "", "embed", "--config", cfg, "--summarize", "Wombats", "dig", "burrows.")
	require.NoError(t, err)
	assert.Contains(t, out, "Embedder:  local/")
	assert.Contains(t, out, "Dimension: 32\n")
	assert.Contains(t, out, "Summary:   Wombats dig burrows.")
}
