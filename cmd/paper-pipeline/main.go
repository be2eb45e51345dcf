// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-pipeline CLI.
// Implements: prd008-authoring, prd009-retrieval, prd010-generation (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-pipeline/internal/secrets"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the paper-pipeline CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-pipeline",
	Short: "Automated research paper authoring",
	Long: `paper-pipeline drives a research paper from topic to finished draft. A run
formulates a thesis, surveys the literature through web search, validates the
survey, drafts each section, revises for coherence and style, formats
citations, and assembles the final paper.

Finished and aborted runs are archived locally; use the archive subcommand to
list, inspect, or export past runs.`,
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
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-pipeline.yaml or ~/.config/paper-pipeline/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-pipeline")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-pipeline"))
		}
	}

	viper.SetEnvPrefix("PAPER_PIPELINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig builds the run configuration: shipped defaults, then
// config-file and environment overrides, then loaded secrets for any API
// key not set elsewhere.
func pipelineConfig() types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()

	if v := viper.GetString("generation.model"); v != "" {
		cfg.Generation.Model = v
	}
	if v := viper.GetString("generation.api_key"); v != "" {
		cfg.Generation.APIKey = v
	}
	if viper.IsSet("generation.temperature") {
		cfg.Generation.Temperature = viper.GetFloat64("generation.temperature")
	}
	if viper.IsSet("generation.max_tokens") {
		cfg.Generation.MaxTokens = viper.GetInt("generation.max_tokens")
	}
	if viper.IsSet("generation.max_retries") {
		cfg.Generation.MaxRetries = viper.GetInt("generation.max_retries")
	}

	if v := viper.GetString("retrieval.api_key"); v != "" {
		cfg.Retrieval.APIKey = v
	}
	if viper.IsSet("retrieval.max_results") {
		cfg.Retrieval.MaxResults = viper.GetInt("retrieval.max_results")
	}
	if viper.IsSet("retrieval.include_raw_content") {
		cfg.Retrieval.IncludeRawContent = viper.GetBool("retrieval.include_raw_content")
	}
	if viper.IsSet("retrieval.timeout_seconds") {
		cfg.Retrieval.Timeout = time.Duration(viper.GetInt("retrieval.timeout_seconds")) * time.Second
	}

	if viper.IsSet("workflow.max_targeted_research_attempts") {
		cfg.Workflow.MaxTargetedResearchAttempts = viper.GetInt("workflow.max_targeted_research_attempts")
	}
	if viper.IsSet("workflow.max_gap_cycles") {
		cfg.Workflow.MaxGapCycles = viper.GetInt("workflow.max_gap_cycles")
	}
	if viper.IsSet("workflow.max_steps") {
		cfg.Workflow.MaxSteps = viper.GetInt("workflow.max_steps")
	}
	if v := viper.GetString("workflow.citation_style"); v != "" {
		cfg.Workflow.CitationStyle = types.CitationStyle(v)
	}
	if v := viper.GetString("workflow.target_audience"); v != "" {
		cfg.Workflow.TargetAudience = v
	}
	if viper.IsSet("workflow.max_chars_per_source") {
		cfg.Workflow.MaxCharsPerSource = viper.GetInt("workflow.max_chars_per_source")
	}

	if v := viper.GetString("archive.dir"); v != "" {
		cfg.Archive.Dir = v
	}

	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = loadedSecrets["anthropic-api-key"]
	}
	if cfg.Retrieval.APIKey == "" {
		cfg.Retrieval.APIKey = loadedSecrets["tavily-api-key"]
	}

	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
