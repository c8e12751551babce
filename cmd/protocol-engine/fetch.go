// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/protocol-engine/internal/pubmed"
	"github.com/pdiddy/protocol-engine/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [pmc-id]",
	Short: "Fetch one article and extract its methods section",
	Long: `Fetch retrieves the full text of a single PubMed Central article, parses
its metadata, and extracts the methods section. The parsed article is cached;
use --output to also write the metadata to a YAML file.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("output", "", "write article metadata to a YAML file")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one PMC identifier")
	}
	pmcID := strings.TrimPrefix(strings.TrimSpace(args[0]), "PMC")
	output, _ := cmd.Flags().GetString("output")

	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	client := pubmed.NewClient(store, pubmedConfig(), logger)
	art, err := client.Fetch(context.Background(), pmcID)
	if err != nil {
		return err
	}

	printArticle(art)

	if output != "" {
		if err := writeArticleYAML(art, output); err != nil {
			return err
		}
		fmt.Printf("\nMetadata written to %s\n", output)
	}
	return nil
}

func printArticle(art *types.Article) {
	fmt.Printf("Title:    %s\n", art.Title)
	fmt.Printf("Authors:  %s\n", authorLine(art.Authors))
	fmt.Printf("Journal:  %s (%s)\n", art.Journal, art.Year)
	if art.DOI != "" {
		fmt.Printf("DOI:      %s\n", art.DOI)
	}
	fmt.Printf("URL:      %s\n", art.FullTextURL)
	if art.HasMethods() {
		fmt.Printf("Methods:  %d characters extracted\n", len(art.MethodsText))
	} else {
		fmt.Println("Methods:  no methods section found")
	}
}

// writeArticleYAML writes an article record to a YAML file, creating parent
// directories as needed.
func writeArticleYAML(art *types.Article, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	data, err := yaml.Marshal(art)
	if err != nil {
		return fmt.Errorf("marshaling article: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
