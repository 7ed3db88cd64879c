// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bilingual-research/internal/history"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past research runs",
	Long: `History manages the local SQLite database of past runs. Every search
records its query, the prepared zh/en queries, round decisions, and the
ranked results, which can be listed, reopened, searched, or deleted.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return printJSON(w, runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return nil
		}

		fmt.Fprintf(w, "%-36s  %-16s  %-5s  %-7s  %s\n", "Run", "Created", "Lang", "Results", "Query")
		fmt.Fprintln(w, strings.Repeat("-", 100))
		for _, r := range runs {
			fmt.Fprintf(w, "%-36s  %-16s  %-5s  %-7d  %s\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.DetectedLanguage, r.Total, r.Query)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		out, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return printOutput(cmd.OutOrStdout(), out, jsonOutput)
	},
}

var historyRetrieveCmd = &cobra.Command{
	Use:   "retrieve [text]",
	Short: "Search recorded results with full-text search and filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		language, _ := cmd.Flags().GetString("language")
		runID, _ := cmd.Flags().GetString("run")
		limit, _ := cmd.Flags().GetInt("limit")
		opts := history.QueryOptions{
			Text:       strings.Join(args, " "),
			Language:   types.Language(language),
			RunID:      runID,
			MaxResults: limit,
		}
		if opts.IsEmpty() {
			return fmt.Errorf("query or filter required: provide search text, --language, or --run")
		}

		results, err := store.Retrieve(cmd.Context(), opts)
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return formatRetrieveOutput(cmd.OutOrStdout(), results, jsonOutput)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteRun(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func formatRetrieveOutput(w io.Writer, results []history.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(w, results)
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-4s  %-6s  %-40s  %-20s  %s\n", "Rank", "Lang", "Score", "Title", "Run query", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range results {
		fmt.Fprintf(w, "%-4d  %-4s  %.3f   %-40s  %-20s  %s\n",
			r.Rank, r.Language, r.Score(), clip(r.Title, 40), clip(r.RunQuery, 20), r.URL)
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	hc := cfg.History
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		hc.Dir = dir
	}
	return history.NewStore(hc)
}

func init() {
	historyCmd.PersistentFlags().String("dir", "", "history directory (default from config)")
	historyCmd.PersistentFlags().Bool("json", false, "output as JSON")

	historyListCmd.Flags().Int("limit", 0, "maximum runs (0 = use default)")

	historyRetrieveCmd.Flags().String("language", "", "filter by result language: zh or en")
	historyRetrieveCmd.Flags().String("run", "", "filter by run ID")
	historyRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyRetrieveCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	rootCmd.AddCommand(historyCmd)
}
