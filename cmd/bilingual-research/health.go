// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bilingual-research/internal/bilingual"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the search backend and model providers",
	Long: `Health pings the SearXNG endpoint and every configured model provider.
Overall status is healthy when search is reachable and degraded otherwise;
provider failures are reported but do not change the overall status.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService("")
		if err != nil {
			return err
		}
		defer svc.Close()

		h := svc.Health(cmd.Context())
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), h); err != nil {
				return err
			}
		} else if err := bilingual.FormatHealth(cmd.OutOrStdout(), h); err != nil {
			return err
		}

		if h.Overall != bilingual.StatusHealthy {
			return fmt.Errorf("search backend unreachable")
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().Bool("json", false, "output status as JSON")
	rootCmd.AddCommand(healthCmd)
}
