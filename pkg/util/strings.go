package util

import (
	"sort"
	"strconv"
	"strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// legacyTickers maps renamed symbols to their current listing.
var legacyTickers = map[string]string{
	"ABC": "COR", // AmerisourceBergen renamed to Cencora
}

// NormalizeTicker canonicalizes a raw ticker: trimmed, upper-cased, dots
// replaced by dashes (BRK.B -> BRK-B), legacy symbols remapped.
func NormalizeTicker(raw string) string {
	t := strings.ToUpper(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, ".", "-")
	if mapped, ok := legacyTickers[t]; ok {
		return mapped
	}
	return t
}

// NormalizeTickerSet normalizes, de-duplicates and sorts a caller-supplied
// ticker list. Empty entries are dropped.
func NormalizeTickerSet(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := NormalizeTicker(r)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// DedupeKeepOrder normalizes and de-duplicates while preserving the input
// order (universe lists are ranked, so order matters).
func DedupeKeepOrder(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := NormalizeTicker(r)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}