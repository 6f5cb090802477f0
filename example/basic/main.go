package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/pagegraph"
	"github.com/siherrmann/pagegraph/config"
	"github.com/siherrmann/pagegraph/core/pipeline"
	"github.com/siherrmann/pagegraph/helper"
	"github.com/siherrmann/pagegraph/model"
)

var pages = []pipeline.Page{
	{
		ID:       "handbook",
		Title:    "Team handbook",
		SpaceKey: "ENG",
		Body:     "The handbook collects how the team works.",
	},
	{
		ID:       "onboarding",
		Title:    "Onboarding",
		SpaceKey: "ENG",
		ParentID: "handbook",
		Body: `# First week

Request a laptop from IT and join the team channel.

# Accounts

Ask your lead for access to the deployment dashboard. See the deployment guide for details.`,
		Links: []string{"deployment"},
	},
	{
		ID:       "deployment",
		Title:    "Deployment guide",
		SpaceKey: "ENG",
		ParentID: "handbook",
		Body: `Deployments run every weekday at 10:00.

| Environment | Approval |
| staging | none |
| production | lead |`,
	},
}

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Defaults use the local hugot embedder and an OpenAI compatible
	// server on localhost for answers.
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	p, err := pagegraph.NewPageGraph(ctx, dbConfig, cfg)
	if err != nil {
		log.Fatalf("Failed to create pagegraph: %v", err)
	}
	defer p.Close()

	stats := p.IndexPages(ctx, pages)
	fmt.Printf("Indexed %d pages, %d chunks and %d edges\n", stats.Pages, stats.Chunks, stats.Edges)

	result, err := p.ComputeMetrics(ctx)
	if err != nil {
		log.Fatalf("Failed to compute metrics: %v", err)
	}
	fmt.Printf("Updated metrics of %d pages in %s\n", result.NodesUpdated, result.Duration)

	filter := model.SearchFilter{SpaceKeys: []string{"ENG"}}
	hits, err := p.Search(ctx, "hybrid", "Who approves production deployments?", filter)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	fmt.Printf("\nFound %d results:\n", len(hits))
	for i, hit := range hits {
		fmt.Printf("%d. [%.4f] %s (%s): %s\n", i+1, hit.Score, hit.Title, hit.ChunkType, hit.Content)
	}

	breadcrumb, err := p.Breadcrumb(ctx, "deployment")
	if err != nil {
		log.Fatalf("Failed to build breadcrumb: %v", err)
	}
	fmt.Printf("\nBreadcrumb:")
	for _, ref := range breadcrumb {
		fmt.Printf(" > %s", ref.Title)
	}
	fmt.Println()

	response := p.Ask(ctx, "What do I need in my first week and how do deployments work?", "", filter)
	fmt.Printf("\nAnswer (confidence %.2f, fallback %t):\n%s\n", response.Confidence, response.FallbackUsed, response.Answer)
	for _, tree := range response.PageTrees {
		fmt.Println(tree.Markdown)
	}
	for _, step := range response.ThinkingSteps {
		fmt.Printf("- %s (%s)\n", step.Step, step.Elapsed)
	}

	fmt.Println("\nBasic example completed successfully!")
}
