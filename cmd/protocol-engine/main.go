// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the protocol-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/protocol-engine/internal/cache"
	"github.com/pdiddy/protocol-engine/internal/logging"
	"github.com/pdiddy/protocol-engine/internal/secrets"
	"github.com/pdiddy/protocol-engine/pkg/types"
)

const (
	defaultCachePath  = "cache/protocol-engine.db"
	defaultUserAgent  = "protocol-engine/0.1"
	defaultMaxResults = 5
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is built in PersistentPreRunE and shared by all commands.
var logger *zap.Logger

// secretDefault returns fallback if set, otherwise the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the protocol-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "protocol-engine",
	Short: "Turn published methods sections into reproducible lab protocols",
	Long: `protocol-engine searches PubMed Central for open-access articles, extracts
their methods sections, and synthesizes standardized step-by-step laboratory
protocols with a generative AI backend.

Each pipeline stage is a subcommand: search finds candidate articles, fetch
retrieves and parses one article, and generate runs the full pipeline from
query or article ID to a finished protocol. All network and AI calls are
cached, so repeated runs are free within the cache TTL.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		logFile, _ := cmd.Flags().GetString("log-file")
		logger, err = logging.New(verbose, logFile)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./protocol-engine.yaml or ~/.config/protocol-engine/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().String("log-file", "", "also append logs to this file")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("protocol-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "protocol-engine"))
		}
	}

	viper.SetEnvPrefix("PROTOCOL_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// openCache opens the configured cache store.
func openCache() (*cache.Store, error) {
	path := viper.GetString("cache.path")
	if path == "" {
		path = defaultCachePath
	}
	return cache.Open(path, viper.GetDuration("cache.ttl"), logger)
}

// pubmedConfig builds the PubMed client configuration from config file,
// environment, and secrets.
func pubmedConfig() types.PubMedConfig {
	maxResults := viper.GetInt("pubmed.max_results")
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return types.PubMedConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("pubmed.timeout"),
			UserAgent: defaultUserAgent,
		},
		FetchTimeout: viper.GetDuration("pubmed.fetch_timeout"),
		MaxResults:   maxResults,
		APIKey:       secretDefault("ncbi-api-key", viper.GetString("pubmed.api_key")),
	}
}

// synthesisConfig builds the synthesis configuration. The API key secret is
// selected by provider: openai-api-key, gemini-api-key, or anthropic-api-key.
func synthesisConfig() types.SynthesisConfig {
	provider := viper.GetString("synthesis.provider")
	if provider == "" {
		provider = "openai"
	}
	return types.SynthesisConfig{
		Provider:   provider,
		Model:      viper.GetString("synthesis.model"),
		APIKey:     secretDefault(provider+"-api-key", viper.GetString("synthesis.api_key")),
		Timeout:    viper.GetDuration("synthesis.timeout"),
		MaxRetries: viper.GetInt("synthesis.max_retries"),
	}
}

// truncate shortens s for table display.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// authorLine renders up to three authors, with "et al." beyond that.
func authorLine(authors []string) string {
	switch {
	case len(authors) == 0:
		return "unknown"
	case len(authors) <= 3:
		return joinAuthors(authors)
	default:
		return joinAuthors(authors[:3]) + " et al."
	}
}

func joinAuthors(authors []string) string {
	out := ""
	for i, a := range authors {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
