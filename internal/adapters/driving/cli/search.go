package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcadia-bio/litindex/internal/core/domain"
)

var (
	searchLimit     int
	searchJSON      bool
	searchDocument  string
	searchLexical   float64
	searchSemantic  float64
	searchThreshold float64
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Performs hybrid search across the indexed literature.
Combines keyword (BM25) and semantic (vector) search for best results.

With --document the search is scoped to passages of a single document
and each hit carries a supporting snippet.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVarP(&searchDocument, "document", "d", "", "restrict to passages of this document")
	searchCmd.Flags().Float64Var(&searchLexical, "lexical-weight", 0, "weight of the keyword leg")
	searchCmd.Flags().Float64Var(&searchSemantic, "semantic-weight", 0, "weight of the vector leg")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum cosine similarity for semantic matches")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if err := ensureServices(cmd); err != nil {
		return err
	}
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	opts := domain.SearchOptions{
		Limit:     searchLimit,
		Weights:   domain.Weights{Lexical: searchLexical, Semantic: searchSemantic},
		Threshold: searchThreshold,
	}
	if searchDocument != "" {
		opts.Mode = domain.SearchModeDocument
		opts.DocumentID = searchDocument
	}

	resp, err := retrievalService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}

	return outputSearchTable(cmd, resp)
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if resp.Degraded {
		cmd.Printf("Warning: degraded results (%s)\n\n", resp.DegradedReason)
	}

	if len(resp.Hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, hit := range resp.Hits {
		cmd.Printf("  [%d] %s (%.2f, %s)\n", i+1, hit.DocumentID, hit.Score, hit.Source)
		if hit.ChunkNo != nil {
			cmd.Printf("      Chunk: %d\n", *hit.ChunkNo)
		}
		if hit.Snippet != "" {
			cmd.Printf("      %s\n", hit.Snippet)
		}
		cmd.Println()
	}

	return nil
}
