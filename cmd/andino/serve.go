package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lcastrov/andino/internal/config"
	"github.com/lcastrov/andino/internal/server"
	"github.com/lcastrov/andino/internal/warmup"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Starts the long-running HTTP API: chat turns, session reset, and the cache administration endpoints. With --warmup the cache is pre-populated on schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withWarmup, _ := cmd.Flags().GetBool("warmup")

		c, err := buildCore(cfg)
		if err != nil {
			return err
		}

		srv, err := server.New(cfg.Server, c.router, c.store, c.sessions)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var warmer *warmup.Warmer
		if withWarmup {
			warmer, err = buildWarmer(ctx, cfg, c)
			if err != nil {
				return err
			}
		}

		srv.Start()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		fmt.Println("\nReceived shutdown signal...")

		cancel()
		if warmer != nil {
			warmer.Stop()
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Stop(shutdownCtx)
	},
}

func buildWarmer(ctx context.Context, cfg *config.Config, c *core) (*warmup.Warmer, error) {
	questions, err := warmupQuestions(cfg)
	if err != nil {
		return nil, err
	}
	ttl, err := config.DurationOrDefault(cfg.Warmup.TTL, config.DefaultWarmupTTL)
	if err != nil {
		return nil, fmt.Errorf("parse warmup TTL: %w", err)
	}

	warmer := warmup.New(c.upstream, c.store, questions, ttl)
	if err := warmer.Schedule(ctx, cfg.Warmup.Schedule); err != nil {
		return nil, err
	}
	return warmer, nil
}

func warmupQuestions(cfg *config.Config) ([]string, error) {
	if cfg.Warmup.QuestionsFile != "" {
		return warmup.LoadQuestions(cfg.Warmup.QuestionsFile)
	}
	questions := warmup.DefaultQuestions(time.Now(), cfg.Warmup.Days)
	slog.Debug("Using stock warmup questions", "count", len(questions))
	return questions, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("warmup", false, "run scheduled cache warmup alongside the server")
}
