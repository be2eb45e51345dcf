// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"fmt"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// criticalSections must be present for a paper structure to be valid.
var criticalSections = []types.SectionName{
	types.SectionAbstract,
	types.SectionIntroduction,
	types.SectionMethodology,
	types.SectionResults,
	types.SectionConclusion,
}

// StructureChecks is the result of a paper structure validation pass.
type StructureChecks struct {
	// Valid reports whether the structure meets the minimum-section count
	// and contains every critical section.
	Valid bool `json:"valid" yaml:"valid"`

	// CompletedSections is the number of sections with content.
	CompletedSections int `json:"completed_sections" yaml:"completed_sections"`

	// MissingCritical lists critical sections with no content.
	MissingCritical []types.SectionName `json:"missing_critical,omitempty" yaml:"missing_critical,omitempty"`

	// AvgSectionLength is the mean length in characters of non-empty sections.
	AvgSectionLength float64 `json:"avg_section_length" yaml:"avg_section_length"`

	// Suggestions names the content still needed, one per missing section.
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// ValidatePaperStructure checks the drafted sections against the
// minimum-section threshold and the critical-section set.
func ValidatePaperStructure(sections map[types.SectionName]string, minSections int) StructureChecks {
	var checks StructureChecks

	totalLen := 0
	for _, content := range sections {
		if content == "" {
			continue
		}
		checks.CompletedSections++
		totalLen += len(content)
	}
	if checks.CompletedSections > 0 {
		checks.AvgSectionLength = float64(totalLen) / float64(checks.CompletedSections)
	}

	for _, name := range criticalSections {
		if sections[name] == "" {
			checks.MissingCritical = append(checks.MissingCritical, name)
			checks.Suggestions = append(checks.Suggestions, fmt.Sprintf("Add content for %s", name))
		}
	}

	checks.Valid = checks.CompletedSections >= minSections && len(checks.MissingCritical) == 0
	return checks
}
