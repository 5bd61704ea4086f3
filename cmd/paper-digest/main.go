// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-digest CLI. Each pipeline
// stage is a subcommand; run executes them all once and schedule repeats
// the run on the configured weekdays.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/secrets"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the merged configuration: file, environment, then flags.
	cfg types.DigestConfig

	logger zerolog.Logger

	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets map[string]string
)

// rootCmd is the base command for the paper-digest CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-digest",
	Short: "Daily arXiv digests selected and summarized by an LLM",
	Long: `paper-digest searches arXiv for configured keyword combinations, lets an
LLM pick the papers most suitable for a general audience, downloads them, and
summarizes each one. Summaries are cached forever per paper, so a paper is
summarized at most once however many runs and topics find it.

Every stage is a subcommand that reads the previous stage's file under
root_dir/paper/YYYYMMDD/. Re-running a stage on the same day reuses its file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("%w: decoding configuration: %v", types.ErrConfig, err)
		}
		cfg.ApplyDefaults()
		logger = observability.NewLogger(cfg.Log, os.Stderr)

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(secretsDir, logger)
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
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		cfg.APIKey = secrets.APIKey(s, cfg.LLM.Provider, cfg.APIKey)
		return nil
	},
}

// envKeys are bound explicitly so environment values reach Unmarshal even
// without a config file.
var envKeys = []string{
	"api_key", "is_free_account", "topic", "root_dir", "language",
	"max_results_per_query", "judge_number",
	"llm.provider", "llm.base_url", "llm.model", "llm.summary_model", "llm.requests_per_minute",
	"log.level", "log.format",
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paper-digest.yaml or ~/.config/paper-digest/paper-digest.yaml)")
	pf.String("secrets-dir", ".secrets/", "directory of API key files")
	pf.String("root-dir", "", "directory holding the paper/ tree")
	pf.String("provider", "", "LLM provider: moonshot, openai, or anthropic")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: console or json")

	_ = viper.BindPFlag("root_dir", pf.Lookup("root-dir"))
	_ = viper.BindPFlag("llm.provider", pf.Lookup("provider"))
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-digest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-digest"))
		}
	}

	viper.SetEnvPrefix("PAPER_DIGEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, k := range envKeys {
		_ = viper.BindEnv(k)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
