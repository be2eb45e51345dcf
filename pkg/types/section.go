// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SectionName identifies one section of the paper. The set of sections is
// fixed; unknown names never enter the state. Per prd008-authoring R2.1.
type SectionName string

const (
	SectionAbstract         SectionName = "abstract"
	SectionIntroduction     SectionName = "introduction"
	SectionLiteratureReview SectionName = "literature_review"
	SectionMethodology      SectionName = "methodology"
	SectionResults          SectionName = "results"
	SectionDiscussion       SectionName = "discussion"
	SectionConclusion       SectionName = "conclusion"
	SectionReferences       SectionName = "references"
)

// SectionOrder is the fixed drafting order. References is excluded: it is
// written by the citation formatting stage, not drafted.
var SectionOrder = []SectionName{
	SectionAbstract,
	SectionIntroduction,
	SectionLiteratureReview,
	SectionMethodology,
	SectionResults,
	SectionDiscussion,
	SectionConclusion,
}

// RequiredSections is the set the completion check tests. Per prd008-authoring R2.2.
var RequiredSections = []SectionName{
	SectionAbstract,
	SectionIntroduction,
	SectionLiteratureReview,
	SectionMethodology,
	SectionResults,
	SectionDiscussion,
	SectionConclusion,
}

// CitationStyle selects the reference formatting templates.
type CitationStyle string

const (
	StyleAPA     CitationStyle = "APA"
	StyleMLA     CitationStyle = "MLA"
	StyleChicago CitationStyle = "Chicago"
	StyleIEEE    CitationStyle = "IEEE"
)

// Valid reports whether the style is one of the four supported values.
func (s CitationStyle) Valid() bool {
	switch s {
	case StyleAPA, StyleMLA, StyleChicago, StyleIEEE:
		return true
	}
	return false
}
