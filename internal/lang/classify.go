// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lang classifies text as Chinese, English, or mixed by the share of
// CJK Unified Ideographs it contains.
package lang

import "github.com/pdiddy/bilingual-research/pkg/types"

// zhThreshold is the CJK share above which text counts as Chinese.
const zhThreshold = 0.3

const (
	cjkFirst = '\u4e00'
	cjkLast  = '\u9fff'
)

// IsCJK reports whether r is a CJK Unified Ideograph.
func IsCJK(r rune) bool {
	return r >= cjkFirst && r <= cjkLast
}

// CJKRatio returns the fraction of runes in text that are CJK ideographs.
// Empty text has ratio zero.
func CJKRatio(text string) float64 {
	var total, cjk int
	for _, r := range text {
		total++
		if IsCJK(r) {
			cjk++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(cjk) / float64(total)
}

// Classify returns zh when more than 30% of the runes are CJK ideographs,
// en when there are none, and mixed otherwise.
func Classify(text string) types.Language {
	ratio := CJKRatio(text)
	switch {
	case ratio > zhThreshold:
		return types.LanguageZh
	case ratio == 0:
		return types.LanguageEn
	default:
		return types.LanguageMixed
	}
}
