// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/protocol-engine/internal/pubmed"
	"github.com/pdiddy/protocol-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search PubMed Central for open-access articles",
	Long: `Search queries PubMed Central for open-access articles matching a topic,
fetches each hit, and reports whether a methods section could be extracted.
Searches and fetches are cached, so repeating a query is free within the
cache TTL.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum number of results (default 5)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a search query")
	}
	query := strings.Join(args, " ")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	client := pubmed.NewClient(store, pubmedConfig(), logger)
	ctx := context.Background()

	ids, err := client.Search(ctx, query, maxResults)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No articles found.")
		return nil
	}

	articles := make([]*types.Article, 0, len(ids))
	for _, id := range ids {
		art, err := client.Fetch(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			continue
		}
		articles = append(articles, art)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(articles)
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-10s  %-50s  %-30s  %-6s  %s\n",
		"Rank", "PMC ID", "Title", "Authors", "Year", "Methods")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 115))
	for i, art := range articles {
		methods := "no"
		if art.HasMethods() {
			methods = "yes"
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-10s  %-50s  %-30s  %-6s  %s\n",
			i+1,
			"PMC"+art.PMCID,
			truncate(art.Title, 50),
			truncate(authorLine(art.Authors), 30),
			art.Year,
			methods)
	}
	fmt.Fprintf(os.Stdout, "\n%d articles\n", len(articles))
	return nil
}
