// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bilingual-research/internal/lang"
	"github.com/pdiddy/bilingual-research/internal/query"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [query]",
	Short: "Analyze a query into intent, sub-queries, and keywords",
	Long: `Rewrite asks the query_rewrite model for the intent behind a research
query, 3-5 focused sub-queries, key terms, and a suggested search strategy.
When the model is unavailable the query itself is returned as the only
sub-query.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		providerName, _ := cmd.Flags().GetString("provider")
		depth, _ := cmd.Flags().GetString("depth")

		svc, err := newService(providerName)
		if err != nil {
			return err
		}
		defer svc.Close()

		q := strings.Join(args, " ")
		rw := svc.Preparer().Rewrite(cmd.Context(), q, lang.Classify(q), depth)

		w := cmd.OutOrStdout()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return printJSON(w, rw)
		}

		fmt.Fprintf(w, "Intent: %s\n", rw.Intent)
		fmt.Fprintln(w, "Sub-queries:")
		for _, sq := range rw.SubQueries {
			fmt.Fprintf(w, "  - %s\n", sq)
		}
		fmt.Fprintf(w, "Keywords: %s\n", strings.Join(rw.Keywords, ", "))
		if rw.Fallback {
			fmt.Fprintln(w, "(model unavailable; fallback analysis)")
		}
		return nil
	},
}

func init() {
	rewriteCmd.Flags().String("depth", query.DefaultDepth, "research depth: quick, standard, or deep")
	rewriteCmd.Flags().String("provider", "", "route the call to this provider")
	rewriteCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(rewriteCmd)
}
