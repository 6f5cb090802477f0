package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Recompute depth, child count and centrality of all pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMetrics(cmd)
	},
}

func runMetrics(cmd *cobra.Command) error {
	result, err := graph.ComputeMetrics(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Updated %d of %d pages in %s\n", result.NodesUpdated, result.UniqueNodes, result.Duration)
	if result.Failed > 0 {
		fmt.Printf("%d pages failed\n", result.Failed)
	}
	if result.SkippedEdges > 0 {
		fmt.Printf("%d edges skipped\n", result.SkippedEdges)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}
