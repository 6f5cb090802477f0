package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	popularLimit int
	similarLimit int
)

var pathCmd = &cobra.Command{
	Use:   "path <from> <to>",
	Short: "Print the shortest path between two pages",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := graph.FindPath(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if len(path) == 0 {
			fmt.Println("No path found")
			return nil
		}

		ids := make([]string, len(path))
		for i, ref := range path {
			ids[i] = ref.ID
		}
		fmt.Println(strings.Join(ids, " -> "))
		return nil
	},
}

var breadcrumbCmd = &cobra.Command{
	Use:   "breadcrumb <page>",
	Short: "Print the ancestors of a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refs, err := graph.Breadcrumb(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		titles := make([]string, len(refs))
		for i, ref := range refs {
			titles[i] = ref.Title
			if titles[i] == "" {
				titles[i] = ref.ID
			}
		}
		fmt.Println(strings.Join(titles, " > "))
		return nil
	},
}

var popularCmd = &cobra.Command{
	Use:   "popular",
	Short: "List the pages with the most inbound links",
	RunE: func(cmd *cobra.Command, args []string) error {
		space := ""
		if len(spaceKeys) > 0 {
			space = spaceKeys[0]
		}

		pages, err := graph.PopularPages(cmd.Context(), space, popularLimit)
		if err != nil {
			return err
		}
		for _, page := range pages {
			fmt.Printf("%4d  %.3f  %s %s\n", page.InLinks, page.CentralityScore, page.ID, page.Title)
		}
		return nil
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar <page>",
	Short: "List siblings and linked pages by centrality",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pages, err := graph.SimilarPages(cmd.Context(), args[0], similarLimit)
		if err != nil {
			return err
		}
		for _, page := range pages {
			fmt.Printf("%.3f  %s %s\n", page.CentralityScore, page.ID, page.Title)
		}
		return nil
	},
}

func init() {
	popularCmd.Flags().IntVarP(&popularLimit, "limit", "n", 10, "number of pages")
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "n", 5, "number of pages")
	rootCmd.AddCommand(pathCmd, breadcrumbCmd, popularCmd, similarCmd)
}
