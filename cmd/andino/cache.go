package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lcastrov/andino/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache connection state and key counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := buildStore(cfg)
		if err != nil {
			return err
		}
		return printJSON(store.Stats(cmd.Context()))
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached upstream responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := buildStore(cfg)
		if err != nil {
			return err
		}

		count := store.DeleteNamespace(cmd.Context(), cache.NamespaceUpstream)
		fmt.Printf("se eliminaron %d entradas del caché\n", count)
		return nil
	},
}

var cacheEntriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List cached upstream responses with TTL and preview",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := buildStore(cfg)
		if err != nil {
			return err
		}

		entries := store.Entries(cmd.Context(), cache.NamespaceUpstream, limit)
		if len(entries) == 0 {
			fmt.Println("el caché está vacío")
			return nil
		}
		return printJSON(entries)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheEntriesCmd)
	cacheEntriesCmd.Flags().Int("limit", 50, "maximum entries to list")
}
