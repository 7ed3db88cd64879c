// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bilingual

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pdiddy/bilingual-research/pkg/types"
)

// FormatJSON writes out as indented JSON.
func FormatJSON(w io.Writer, out *types.Output) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

// FormatTable writes a human-readable ranking followed by the per-round
// decisions.
func FormatTable(w io.Writer, out *types.Output) error {
	fmt.Fprintf(w, "Query: %s (%s)\n", out.Query, out.DetectedLanguage)
	fmt.Fprintf(w, "  zh: %s\n  en: %s\n\n", out.ZhQuery, out.EnQuery)

	if len(out.Results) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}

	fmt.Fprintf(w, "%-4s  %-6s  %-4s  %-5s  %-40s  %s\n",
		"Rank", "Score", "Lang", "Round", "Title", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range out.Results {
		boost := ""
		if r.PriorityBoost > types.BoostNone {
			boost = "*"
		}
		fmt.Fprintf(w, "%-4d  %.3f%-1s  %-4s  %-5d  %s  %s\n",
			i+1, r.Score(), boost, r.Language, r.Round, padRunes(truncate(r.Title, 40), 40), r.URL)
	}

	fmt.Fprintf(w, "\n%d results (%d zh, %d en)\n", out.TotalResults, out.ZhCount, out.EnCount)

	if len(out.Decisions) > 0 {
		fmt.Fprintln(w, "\nRounds:")
		for _, d := range out.Decisions {
			line := fmt.Sprintf("  %d  zh_peak=%.2f  en_peak=%.2f  %-9s  +%d",
				d.Round, d.ZhPeak, d.EnPeak, d.Action, d.Contributed)
			if len(d.Alternates) > 0 {
				line += "  [" + strings.Join(d.Alternates, "; ") + "]"
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

// FormatHealth writes a health report.
func FormatHealth(w io.Writer, h Health) error {
	fmt.Fprintf(w, "%-20s  %s\n", "search", h.Search)
	names := make([]string, 0, len(h.Providers))
	for name := range h.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		status := StatusOK
		if !h.Providers[name] {
			status = StatusError
		}
		fmt.Fprintf(w, "%-20s  %s\n", "provider "+name, status)
	}
	_, err := fmt.Fprintf(w, "\noverall: %s\n", h.Overall)
	return err
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func padRunes(s string, n int) string {
	if pad := n - len([]rune(s)); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}
