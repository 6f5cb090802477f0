package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/siherrmann/pagegraph"
	"github.com/siherrmann/pagegraph/config"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/model"
)

var (
	configPath string
	logLevel   string
	spaceKeys  []string
	graph      *pagegraph.PageGraph
)

var rootCmd = &cobra.Command{
	Use:   "pagegraph",
	Short: "Graph aware question answering over documentation pages",
	Long: `pagegraph indexes documentation pages into PostgreSQL, computes the
structure of the page graph and answers questions with citations and
page trees.

The database is configured through the PAGEGRAPH_DB_* environment variables
or a .env file. Everything else is read from pagegraph.yaml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		dbConfig, err := helper.NewDatabaseConfiguration()
		if err != nil {
			return err
		}

		graph, err = pagegraph.NewPageGraph(cmd.Context(), dbConfig, cfg)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if graph == nil {
			return nil
		}
		return graph.Close()
	},
}

// Execute runs the root command until it finishes or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringSliceVarP(&spaceKeys, "space", "s", nil, "restrict to these space keys")
}

func searchFilter() model.SearchFilter {
	return model.SearchFilter{SpaceKeys: spaceKeys}
}
