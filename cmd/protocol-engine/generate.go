// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/protocol-engine/internal/pubmed"
	"github.com/pdiddy/protocol-engine/internal/synth"
	"github.com/pdiddy/protocol-engine/pkg/types"
)

const defaultOutputDir = "output"

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a laboratory protocol from an article's methods section",
	Long: `Generate runs the full pipeline: it resolves an article (by --pmc-id, or by
--query taking the top search hit), extracts the methods section, and
synthesizes a standardized protocol with the configured AI backend.

The protocol is written as JSON, or as YAML when the output path ends in
.yaml or .yml. Articles without a recognizable methods section fail before
any AI call is made.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("pmc-id", "", "PubMed Central article identifier")
	generateCmd.Flags().String("query", "", "search query; the top hit with methods is used")
	generateCmd.Flags().String("style", "detailed", "protocol style: detailed, concise, or educational")
	generateCmd.Flags().String("output", "", "output file (default output/PMC<id>-<style>.json)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	pmcID, _ := cmd.Flags().GetString("pmc-id")
	query, _ := cmd.Flags().GetString("query")
	styleFlag, _ := cmd.Flags().GetString("style")
	output, _ := cmd.Flags().GetString("output")

	if pmcID == "" && query == "" {
		return fmt.Errorf("provide --pmc-id or --query")
	}

	style := types.Style(styleFlag)
	if !style.Valid() {
		return fmt.Errorf("unknown style %q: use detailed, concise, or educational", styleFlag)
	}

	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	client := pubmed.NewClient(store, pubmedConfig(), logger)
	ctx := context.Background()

	art, err := resolveArticle(ctx, client, pmcID, query)
	if err != nil {
		return err
	}
	if !art.HasMethods() {
		return fmt.Errorf("no methods section available in PMC%s", art.PMCID)
	}

	backend, err := synth.NewBackend(synthesisConfig())
	if err != nil {
		return err
	}
	synthesizer := synth.NewSynthesizer(backend, store, synthesisConfig(), logger)

	protocol, err := synthesizer.Synthesize(ctx, art, style)
	if err != nil {
		return err
	}

	if output == "" {
		output = filepath.Join(defaultOutputDir, fmt.Sprintf("PMC%s-%s.json", art.PMCID, style))
	}
	if err := writeProtocol(protocol, output); err != nil {
		return err
	}

	fmt.Printf("Protocol: %s\n", protocol.Title)
	fmt.Printf("Source:   %s (PMC%s)\n", truncate(art.Title, 60), art.PMCID)
	fmt.Printf("Steps:    %d procedure steps, %d reagents, %d warnings\n",
		len(protocol.Procedure), len(protocol.Reagents), len(protocol.SafetyWarnings))
	fmt.Printf("Written:  %s\n", output)
	return nil
}

// resolveArticle fetches by ID when given, otherwise searches and returns
// the first hit that has a methods section.
func resolveArticle(ctx context.Context, client *pubmed.Client, pmcID, query string) (*types.Article, error) {
	if pmcID != "" {
		return client.Fetch(ctx, strings.TrimPrefix(pmcID, "PMC"))
	}

	ids, err := client.Search(ctx, query, 0)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no articles found for query %q", query)
	}

	var firstErr error
	for _, id := range ids {
		art, err := client.Fetch(ctx, id)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if art.HasMethods() {
			return art, nil
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, fmt.Errorf("no article with a methods section found for query %q", query)
}

// writeProtocol writes the protocol as JSON, or YAML for .yaml/.yml paths.
func writeProtocol(p *types.Protocol, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(p)
	default:
		data, err = json.MarshalIndent(p, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling protocol: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
