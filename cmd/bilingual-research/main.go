// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bilingual-research CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bilingual-research/internal/bilingual"
	"github.com/pdiddy/bilingual-research/internal/config"
	"github.com/pdiddy/bilingual-research/internal/provider"
	"github.com/pdiddy/bilingual-research/internal/search"
	"github.com/pdiddy/bilingual-research/internal/secrets"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is loaded once per invocation by PersistentPreRunE.
var cfg types.PipelineConfig

// rootCmd is the base command for the bilingual-research CLI.
var rootCmd = &cobra.Command{
	Use:   "bilingual-research",
	Short: "Adaptive Chinese/English web research",
	Long: `bilingual-research searches the web in Chinese and English at once. It
translates and optimizes the query for each language, runs up to three
search rounds that either merge both languages or expand the stronger one
with alternate queries, and fuses everything into one ranked list.

Model providers (Ollama or any OpenAI-compatible API) and the SearXNG
endpoint are set in bilingual-research.yaml. API keys may be placed in
.secrets/<provider>-api-key.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}

		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loaded.LLM.Providers = secrets.ApplyProviderKeys(loaded.LLM.Providers, s)
		cfg = loaded

		slog.SetDefault(newLogger(cfg.Log))
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bilingual-research.yaml or ~/.config/bilingual-research/bilingual-research.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(config.Name)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", config.Name))
		}
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger returns a stderr logger for the configured level and format.
func newLogger(lc types.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newService builds the pipeline from the loaded configuration. The caller
// must Close it.
func newService(providerName string) (*bilingual.Service, error) {
	router, err := provider.New(cfg.LLM)
	if err != nil {
		return nil, err
	}
	backend := search.NewSearXNGBackend(cfg.Search)

	var opts []bilingual.Option
	if providerName != "" {
		opts = append(opts, bilingual.WithProvider(providerName))
	}
	return bilingual.New(cfg, router, backend, opts...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
