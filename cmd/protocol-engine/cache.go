// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
	Long: `Cache manages the local SQLite store that holds search results, fetched
articles, and synthesized protocols. Entries expire after the configured TTL
(7 days by default); clear drops everything immediately.`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(context.Background()); err != nil {
			return err
		}
		fmt.Println("Cache cleared.")
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and age",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.ReadStats(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Entries: %d\n", stats.Entries)
		if !stats.Oldest.IsZero() {
			fmt.Printf("Oldest:  %s (%s ago)\n",
				stats.Oldest.Format(time.RFC3339),
				time.Since(stats.Oldest).Round(time.Minute))
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)

	rootCmd.AddCommand(cacheCmd)
}
