package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/semdoc/internal/prompt"
)

var (
	promptsPrefix string
	promptsLine   int
	promptsJSON   bool
)

var promptsCmd = &cobra.Command{
	Use:   "prompts <file>",
	Short: "List prompt markers in a file",
	Long: `Prints the text following each prompt marker with its zero-based line and
the character offset just past the prompt text. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrompts,
}

func init() {
	promptsCmd.Flags().StringVarP(&promptsPrefix, "prefix", "p", "", "marker prefix (default from config)")
	promptsCmd.Flags().IntVarP(&promptsLine, "line", "l", -1, "scan only this zero-based line")
	promptsCmd.Flags().BoolVar(&promptsJSON, "json", false, "output matches as JSON")
	rootCmd.AddCommand(promptsCmd)
}

func runPrompts(cmd *cobra.Command, args []string) error {
	prefix := promptsPrefix
	if prefix == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		prefix = cfg.Prompt.Prefix
	}

	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	scanner := prompt.New(prefix)
	matches := []prompt.Match{}
	if promptsLine >= 0 {
		if m, ok := scanner.ScanLine(string(data), promptsLine); ok {
			matches = append(matches, m)
		}
	} else {
		matches = scanner.ScanAll(string(data))
	}

	out := cmd.OutOrStdout()
	if promptsJSON {
		return json.NewEncoder(out).Encode(matches)
	}
	for _, m := range matches {
		fmt.Fprintf(out, "%d:%d\t%s\n", m.Position.Line, m.Position.Character, m.Text)
	}
	return nil
}
