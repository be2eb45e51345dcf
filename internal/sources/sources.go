// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources aggregates retrieved web sources: URL deduplication,
// bounded prompt digests, and citation formatting.
// Implements: prd009-retrieval (R3, R4); docs/ARCHITECTURE § Source Aggregator.
package sources

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// Dedupe flattens raw search responses into source records, keeping the
// first record seen for each URL. Discovery order is preserved. Running
// Dedupe over its own output yields the same set (R3.1).
func Dedupe(responses []types.SearchResponse) []types.SourceRecord {
	seen := make(map[string]bool)
	var out []types.SourceRecord
	for _, resp := range responses {
		for _, r := range resp.Results {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			out = append(out, r)
		}
	}
	return out
}

// Merge appends incoming records to gathered, skipping URLs already
// present, and returns the records actually added. This is the only path
// by which sources enter the document state, which keeps the at-most-one-
// record-per-URL invariant (R3.2).
func Merge(gathered *[]types.SourceRecord, incoming []types.SourceRecord) []types.SourceRecord {
	seen := make(map[string]bool, len(*gathered))
	for _, r := range *gathered {
		seen[r.URL] = true
	}
	var added []types.SourceRecord
	for _, r := range incoming {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		*gathered = append(*gathered, r)
		added = append(added, r)
	}
	return added
}

// truncatedMarker is appended whenever raw content is cut at the cap.
const truncatedMarker = "... [truncated]"

// Truncate cuts s at a hard byte cap, backing up so the cut never splits
// a multi-byte rune. Strings at or under the cap come back unchanged.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Digest formats sources into a bounded textual block for inclusion in a
// generation prompt. Each source's raw content is cut at a hard cap, not
// word-aware, with an explicit marker when truncated (R4.1).
func Digest(srcs []types.SourceRecord, maxCharsPerSource int) string {
	var b strings.Builder
	b.WriteString("Sources:\n\n")
	for _, s := range srcs {
		fmt.Fprintf(&b, "Source %s:\n===\n", s.Title)
		fmt.Fprintf(&b, "URL: %s\n===\n", s.URL)
		fmt.Fprintf(&b, "Most relevant content from source: %s\n===\n", s.Snippet)
		if s.RawContent != "" && maxCharsPerSource > 0 {
			raw := s.RawContent
			if len(raw) > maxCharsPerSource {
				raw = Truncate(raw, maxCharsPerSource) + truncatedMarker
			}
			fmt.Fprintf(&b, "Full source content limited to %d chars: %s\n", maxCharsPerSource, raw)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// FormatList renders sources as a bullet list of title/URL pairs for
// prompt context where full digests would waste tokens.
func FormatList(srcs []types.SourceRecord) string {
	var b strings.Builder
	for _, s := range srcs {
		fmt.Fprintf(&b, "* %s : %s\n", s.Title, s.URL)
	}
	return strings.TrimSpace(b.String())
}
