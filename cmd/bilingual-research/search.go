// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bilingual-research/internal/bilingual"
	"github.com/pdiddy/bilingual-research/internal/history"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a bilingual research query",
	Long: `Search classifies the query language, prepares a Chinese and an English
query, and runs up to --rounds search rounds. A round where one language is
strong (peak relevance above 0.7) and the other weak (below 0.3) expands the
strong language with alternate queries; every other round merges both
languages weighted by --balance. The combined results are deduplicated,
boosted for priority sources, scored, and truncated.

Use --save to write the run to a YAML file and --load to print a saved run
without searching again. Runs are also recorded in the history database
unless --no-history is given.`,
	Args: searchArgs,
	RunE: runSearch,
}

// searchArgs requires a non-blank query unless a run file is loaded.
func searchArgs(cmd *cobra.Command, args []string) error {
	if load, _ := cmd.Flags().GetString("load"); load != "" {
		return nil
	}
	if strings.TrimSpace(strings.Join(args, " ")) == "" {
		return fmt.Errorf("a query is required")
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()

	if load, _ := cmd.Flags().GetString("load"); load != "" {
		rf, err := bilingual.ReadRunFile(load)
		if err != nil {
			return err
		}
		return printOutput(w, &rf.Output, jsonOutput)
	}

	applySearchFlags(cmd, &cfg)

	providerName, _ := cmd.Flags().GetString("provider")
	svc, err := newService(providerName)
	if err != nil {
		return err
	}
	defer svc.Close()

	out, err := svc.Run(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetString("save"); save != "" {
		if err := bilingual.WriteRunFile(save, cfg, out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved run to %s\n", save)
	}

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if cfg.History.Enabled && !noHistory {
		recordRun(cmd, out)
	}

	return printOutput(w, out, jsonOutput)
}

// applySearchFlags copies explicitly set flags over the loaded config.
func applySearchFlags(cmd *cobra.Command, c *types.PipelineConfig) {
	flags := cmd.Flags()
	if flags.Changed("rounds") {
		c.Expansion.MaxRounds, _ = flags.GetInt("rounds")
	}
	if flags.Changed("balance") {
		balance, _ := flags.GetFloat64("balance")
		c.Expansion.Balance = types.Float(balance)
	}
	if flags.Changed("max-per-lang") {
		c.Fusion.MaxResultsPerLanguage, _ = flags.GetInt("max-per-lang")
	}
	if flags.Changed("rerank") {
		c.Rerank.Enabled, _ = flags.GetBool("rerank")
	}
}

// recordRun saves out to the history store. Failures are logged only.
func recordRun(cmd *cobra.Command, out *types.Output) {
	store, err := history.NewStore(cfg.History)
	if err != nil {
		slog.Warn("history unavailable", "err", err)
		return
	}
	defer store.Close()

	id, err := store.Save(cmd.Context(), out)
	if err != nil {
		slog.Warn("saving run to history failed", "err", err)
		return
	}
	slog.Info("run recorded", "run_id", id)
}

func init() {
	searchCmd.Flags().Int("rounds", 3, "maximum search rounds")
	searchCmd.Flags().Float64("balance", 0.5, "weight of Chinese results in merged rounds (English gets 1-balance)")
	searchCmd.Flags().Int("max-per-lang", 30, "results per language; the output keeps twice this many")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "write the run to a YAML file")
	searchCmd.Flags().String("load", "", "print a saved run file instead of searching")
	searchCmd.Flags().Bool("rerank", false, "rerank fused results with the rerank model")
	searchCmd.Flags().Bool("no-history", false, "do not record the run in the history database")
	searchCmd.Flags().String("provider", "", "route every model call to this provider")

	rootCmd.AddCommand(searchCmd)
}
