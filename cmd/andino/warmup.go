package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcastrov/andino/internal/config"
	"github.com/lcastrov/andino/internal/warmup"
)

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Pre-populate the cache with the common indicator questions",
	Long:  `Runs one warmup pass: each configured question is fetched through the default strategy and its clean result cached, so the first user request finds a warm cache. Questions already cached are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildCore(cfg)
		if err != nil {
			return err
		}

		questions, err := warmupQuestions(cfg)
		if err != nil {
			return err
		}
		ttl, err := config.DurationOrDefault(cfg.Warmup.TTL, config.DefaultWarmupTTL)
		if err != nil {
			return fmt.Errorf("parse warmup TTL: %w", err)
		}

		stats := warmup.New(c.upstream, c.store, questions, ttl).Run(cmd.Context())
		fmt.Printf("warmup: %d preguntas, %d calentadas, %d ya en caché, %d fallidas (%s)\n",
			stats.Total, stats.Warmed, stats.Skipped, stats.Failed, stats.Elapsed.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(warmupCmd)
	warmupCmd.Flags().String("warmup.questions_file", "", "YAML file with the question list")
}
