package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modscope/backend/internal/analysis"
	"github.com/modscope/backend/internal/archive"
	"github.com/modscope/backend/internal/cache"
	"github.com/modscope/backend/internal/config"
	"github.com/modscope/backend/internal/nexus"

	"github.com/spf13/cobra"
)

var (
	version = "0.3.0"

	// Global flags
	configDir  string
	dataDir    string
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "modscope",
	Short: "Mod collection analysis backend",
	Long: `modscope analyzes Nexus Mods collections: FOMOD installers, plugin
load order, and file conflicts between mods.

Use subcommands for operations. Run 'modscope --help' for available commands.`,
	Version:       version,
	SilenceUsage:  true, // Runtime errors should not print usage
	SilenceErrors: true, // We handle error output in Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory holding config.yaml")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default: from config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
}

// Execute runs the root command. Exit codes: 0 = success, 1 = error,
// 2 = cancelled. When --json is set and an error occurs, prints
// {"error":"..."} to stdout before exiting.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(2)
		}
		if jsonOutput {
			fmt.Printf(`{"error":%q}`+"\n", err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads configuration and applies the --data override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// app bundles the collaborators a command needs. Close releases the
// cache handle and any scratch directories left behind.
type app struct {
	cfg        *config.Config
	client     *nexus.Client
	service    *analysis.Service
	store      *cache.Cache
	downloader *archive.Downloader
}

func (a *app) Close() {
	if err := a.downloader.CleanupAll(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cleaning scratch: %v\n", err)
	}
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing cache: %v\n", err)
	}
}

// initApp builds the full service stack. The API key is required.
func initApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	client, err := nexus.NewClient(nexus.NewKeyring(cfg.APIKey), nexus.Options{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
	})
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(filepath.Join(cfg.DataDir, "cache.db"))
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	downloader := archive.NewDownloader(nil, filepath.Join(cfg.DataDir, "downloads"), cfg.MaxDownloadBytes)
	extractor := archive.NewExtractor(filepath.Join(cfg.DataDir, "extracted"), cfg.MaxExtractedFileBytes, cfg.MaxExtractedTotalBytes)

	service := analysis.NewService(client, downloader, extractor, store, analysis.Options{
		CacheTTL: cfg.CacheTTL(),
	})

	return &app{
		cfg:        cfg,
		client:     client,
		service:    service,
		store:      store,
		downloader: downloader,
	}, nil
}

// printResult writes v as indented JSON to stdout.
func printResult(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
