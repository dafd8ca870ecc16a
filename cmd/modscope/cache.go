package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/modscope/backend/internal/cache"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the analysis cache",
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired cache entries",
	Long: `Delete every expired entry from the analysis cache. The serve command
does this hourly on its own; sweep covers deployments that only run
one-shot analyses.

Examples:
  modscope cache sweep`,
	RunE: runCacheSweep,
}

func init() {
	cacheCmd.AddCommand(cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}

// runCacheSweep opens the cache directly; no API key is needed.
func runCacheSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := cache.Open(filepath.Join(cfg.DataDir, "cache.db"))
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	removed, err := store.Sweep(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printResult(map[string]int64{"removed": removed})
	}
	fmt.Printf("Removed %d expired entries.\n", removed)
	return nil
}
