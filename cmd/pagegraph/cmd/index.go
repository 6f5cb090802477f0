package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siherrmann/pagegraph/core/pipeline"
)

var computeAfterIndex bool

var indexCmd = &cobra.Command{
	Use:   "index <pages.json>",
	Short: "Index pages from a JSON export",
	Long: `Index pages from a JSON array of pages with id, title, space_key,
parent_id, body and links. Pages are chunked and embedded, then parent
and link edges are written.

Example:
  pagegraph index export.json --metrics`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		var pages []pipeline.Page
		if err := json.Unmarshal(data, &pages); err != nil {
			return fmt.Errorf("error parsing %s: %w", args[0], err)
		}

		stats := graph.IndexPages(cmd.Context(), pages)
		fmt.Printf("Indexed %d pages with %d chunks and %d edges\n", stats.Pages, stats.Chunks, stats.Edges)
		if stats.Failed > 0 || stats.EdgeErrors > 0 {
			fmt.Printf("%d pages failed, %d edges could not be written\n", stats.Failed, stats.EdgeErrors)
		}

		if computeAfterIndex {
			return runMetrics(cmd)
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&computeAfterIndex, "metrics", false, "recompute graph metrics after indexing")
	rootCmd.AddCommand(indexCmd)
}
