package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var strategy string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search chunks without generating an answer",
	Long: `Search the indexed chunks with one retrieval strategy.

Strategies:
  progressive  keyword, vector and semantic search until enough hits
  hybrid       fused vector and keyword scores
  keyword      full text search only

Example:
  pagegraph search --strategy keyword "api token"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hits, err := graph.Search(cmd.Context(), strategy, args[0], searchFilter())
		if err != nil {
			return err
		}

		if len(hits) == 0 {
			fmt.Println("No results found")
			return nil
		}

		for _, hit := range hits {
			content := strings.Join(strings.Fields(hit.Content), " ")
			if len(content) > 100 {
				content = content[:100] + "..."
			}
			fmt.Printf("[%.3f] %s %s (%s)\n        %s\n", hit.Score, hit.PageID, hit.Title, hit.ChunkType, content)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&strategy, "strategy", "progressive", "retrieval strategy")
	rootCmd.AddCommand(searchCmd)
}
