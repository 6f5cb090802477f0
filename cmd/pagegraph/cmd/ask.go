package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	conversationID string
	askJSON        bool
	showThinking   bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed pages",
	Long: `Answer a question with citations and the page trees around the
pages the answer was built from.

Examples:
  pagegraph ask "How do I rotate the API token?"
  pagegraph ask --space ENG --json "Who approves production deployments?"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		response := graph.Ask(cmd.Context(), args[0], conversationID, searchFilter())

		if askJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(response)
		}

		fmt.Println(response.Answer)
		fmt.Printf("\nconfidence %.2f", response.Confidence)
		if response.Cached {
			fmt.Print(", cached")
		}
		if response.FallbackUsed {
			fmt.Print(", fallback")
		}
		if response.Timeout {
			fmt.Print(", timeout")
		}
		fmt.Printf(" (%s)\n", response.Duration)

		if len(response.Citations) > 0 {
			fmt.Println("\nSources:")
			for _, ref := range response.Citations {
				fmt.Printf("  %s %s\n", ref.ID, ref.Title)
			}
		}
		for _, tree := range response.PageTrees {
			fmt.Printf("\n%s", tree.Markdown)
		}

		if showThinking {
			fmt.Println("\nSteps:")
			for _, step := range response.ThinkingSteps {
				status := "ok"
				if !step.Succeeded {
					status = "failed"
				}
				fmt.Printf("  %-12s %-6s %s %s\n", step.Step, status, step.Elapsed, step.Detail)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&conversationID, "conversation", "", "conversation id to continue")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
	askCmd.Flags().BoolVar(&showThinking, "thinking", false, "print the answering steps")
	rootCmd.AddCommand(askCmd)
}
