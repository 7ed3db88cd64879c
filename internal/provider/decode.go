// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Decoded is the result of decoding structured model output: either a
// value or a MalformedResponseError, never both.
type Decoded[T any] struct {
	Value T
	Err   *MalformedResponseError
}

// OK reports whether decoding produced a value.
func (d Decoded[T]) OK() bool { return d.Err == nil }

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFence  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
)

// DecodeJSON decodes model output into T. It strips reasoning blocks and
// markdown fences, tries a strict decode, then a repaired decode. Anything
// still undecodable is reported as malformed.
func DecodeJSON[T any](content string) Decoded[T] {
	cleaned := cleanModelJSON(content)
	if cleaned == "" {
		return Decoded[T]{Err: &MalformedResponseError{Content: content, Err: errors.New("empty response")}}
	}
	if cleaned[0] != '{' && cleaned[0] != '[' {
		return Decoded[T]{Err: &MalformedResponseError{Content: content, Err: errors.New("no JSON value")}}
	}

	var v T
	err := json.Unmarshal([]byte(cleaned), &v)
	if err == nil {
		return Decoded[T]{Value: v}
	}

	repaired, repairErr := jsonrepair.JSONRepair(cleaned)
	if repairErr != nil {
		return Decoded[T]{Err: &MalformedResponseError{Content: content, Err: err}}
	}
	var rv T
	if err := json.Unmarshal([]byte(repaired), &rv); err != nil {
		return Decoded[T]{Err: &MalformedResponseError{Content: content, Err: err}}
	}
	return Decoded[T]{Value: rv}
}

func cleanModelJSON(content string) string {
	s := thinkBlock.ReplaceAllString(content, "")
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimSpace(s)
	// Drop any prose before the first object or array.
	if i := strings.IndexAny(s, "{["); i > 0 {
		s = s[i:]
	}
	return s
}
