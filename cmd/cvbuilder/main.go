// Package main provides the cvbuilder command: the CV builder HTTP API
// server and offline rendering tools.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/cv-builder/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "cvbuilder",
	Short: "CV Builder HTTP API Server",
	Long:  "CV Builder edits structured resumes, previews them with example content and exports them to PDF via REST API or from the command line.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges the environment over the config file and validates the
// result. Flags are applied by each command afterwards.
func loadConfig() (config.Config, error) {
	var fileCfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		fileCfg = *loaded
	}

	envCfg := config.FromEnv()
	cfg := envCfg.MergeWithDefaults(fileCfg)
	cfg.Verbose = cfg.Verbose || verbose
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
