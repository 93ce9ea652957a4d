package cli

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

var (
	queryText string
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search stored texts by meaning",
	Long: `Embed the query text and return the most similar stored texts,
most similar first.

Examples:
  semstore query -q "Find Hello"
  semstore query -q "database connection" --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	vs, release, err := openStore(cmd.Context(), GetConfig(), GetRootDir(), logger, nil)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer release()

	payloads, err := vs.Query(cmd.Context(), queryText)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		output, err := json.MarshalIndent(payloads, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(payloads) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d results for: %s\n\n", len(payloads), queryText)
	for i, p := range payloads {
		fmt.Fprintf(out, "--- [%d] %s ---\n", i+1, p.Ref)
		fmt.Fprintln(out, truncate(p.OriginalText, 500))
		fmt.Fprintln(out)
	}
	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
