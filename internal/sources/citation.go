// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// Placeholder text substituted for missing citation fields. Citation
// formatting is total: it never fails, whatever fields a record lacks.
const (
	noAuthor = "No author"
	noDate   = "n.d."
	noTitle  = "No title"
)

// now is the clock for "retrieved on" dates. Tests override it.
var now = time.Now

// Citation formats one source per the requested style. Unknown styles
// fall back to APA. Per prd009-retrieval R4.2.
func Citation(src types.SourceRecord, style types.CitationStyle) string {
	retrieved := now().Format("January 2, 2006")

	title := src.Title
	if title == "" {
		title = noTitle
	}
	author := src.Author
	if author == "" {
		author = noAuthor
	}
	date := src.PublishedDate
	if date == "" {
		date = noDate
	}

	switch style {
	case types.StyleMLA:
		return fmt.Sprintf("%s. %q Web. %s. <%s>.", author, title+".", retrieved, src.URL)
	case types.StyleChicago:
		return fmt.Sprintf("%s. %q Accessed %s. %s.", author, title+".", retrieved, src.URL)
	case types.StyleIEEE:
		return fmt.Sprintf("%s, %q %s, [Online]. Available: %s. [Accessed: %s].",
			author, title+",", date, src.URL, retrieved)
	default: // APA
		return fmt.Sprintf("%s. (%s). %s. Retrieved on %s from %s", author, date, title, retrieved, src.URL)
	}
}

// FormatAll formats every source per the style, preserving order.
func FormatAll(srcs []types.SourceRecord, style types.CitationStyle) []string {
	out := make([]string, len(srcs))
	for i, s := range srcs {
		out[i] = Citation(s, style)
	}
	return out
}

// Citation patterns counted in drafted text: [1] (IEEE) and (Author, 2024) (APA).
var (
	ieeeCitePattern = regexp.MustCompile(`\[\d+\]`)
	apaCitePattern  = regexp.MustCompile(`\([A-Za-z]+,?\s+\d{4}\)`)
)

// CountCitations counts inline citation occurrences in text. Used against
// the MinCitations validation threshold.
func CountCitations(text string) int {
	return len(ieeeCitePattern.FindAllString(text, -1)) +
		len(apaCitePattern.FindAllString(text, -1))
}

// ExtractCitationInfo fills a source's missing author and date from its
// content using byline and publication-marker heuristics. The heuristics
// are best-effort: a record that yields nothing still formats via the
// placeholder fallbacks.
func ExtractCitationInfo(src types.SourceRecord) types.SourceRecord {
	if src.Author == "" {
		src.Author = findByline(src.Snippet)
	}
	if src.PublishedDate == "" {
		src.PublishedDate = findPublishedDate(src.RawContent)
	}
	return src
}

// findByline looks for a "by <name>," byline in the snippet.
func findByline(content string) string {
	lower := strings.ToLower(content)
	idx := strings.Index(lower, "by ")
	if idx < 0 {
		return ""
	}
	rest := content[idx+3:]
	end := strings.Index(rest, ",")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// dateIndicators are markers that precede a publication date in page text.
var dateIndicators = []string{"published on", "published:", "date:", "published"}

// findPublishedDate scans raw content for a publication marker and takes
// the text up to the next period.
func findPublishedDate(raw string) string {
	lower := strings.ToLower(raw)
	for _, indicator := range dateIndicators {
		idx := strings.Index(lower, indicator)
		if idx < 0 {
			continue
		}
		rest := raw[idx+len(indicator):]
		end := strings.Index(rest, ".")
		if end < 0 {
			continue
		}
		if date := strings.TrimSpace(rest[:end]); date != "" {
			return date
		}
	}
	return ""
}

// GenerateBibTeX produces BibTeX @misc entries for the gathered sources,
// keyed src1, src2, ... in discovery order.
func GenerateBibTeX(srcs []types.SourceRecord) string {
	var b strings.Builder
	for i, s := range srcs {
		fmt.Fprintf(&b, "@misc{src%d,\n", i+1)
		fmt.Fprintf(&b, "  title = {%s},\n", s.Title)
		if s.Author != "" {
			fmt.Fprintf(&b, "  author = {%s},\n", s.Author)
		}
		if s.PublishedDate != "" {
			fmt.Fprintf(&b, "  year = {%s},\n", s.PublishedDate)
		}
		fmt.Fprintf(&b, "  howpublished = {\\url{%s}},\n", s.URL)
		fmt.Fprintf(&b, "}\n\n")
	}
	return b.String()
}
