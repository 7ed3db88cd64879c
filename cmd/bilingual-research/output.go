// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"io"

	"github.com/pdiddy/bilingual-research/internal/bilingual"
	"github.com/pdiddy/bilingual-research/pkg/types"
)

func printOutput(w io.Writer, out *types.Output, jsonOutput bool) error {
	if jsonOutput {
		return bilingual.FormatJSON(w, out)
	}
	return bilingual.FormatTable(w, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
