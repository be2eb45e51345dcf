// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"testing"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

func TestValidatePaperStructure(t *testing.T) {
	complete := map[types.SectionName]string{
		types.SectionAbstract:     "abstract text",
		types.SectionIntroduction: "intro text",
		types.SectionMethodology:  "methods text",
		types.SectionResults:      "results text",
		types.SectionConclusion:   "conclusion text",
	}

	tests := []struct {
		name          string
		sections      map[types.SectionName]string
		minSections   int
		wantValid     bool
		wantCompleted int
		wantMissing   int
	}{
		{
			name:          "all critical present",
			sections:      complete,
			minSections:   4,
			wantValid:     true,
			wantCompleted: 5,
		},
		{
			name: "missing critical section",
			sections: map[types.SectionName]string{
				types.SectionAbstract:     "a",
				types.SectionIntroduction: "b",
				types.SectionMethodology:  "c",
				types.SectionResults:      "d",
			},
			minSections:   4,
			wantValid:     false,
			wantCompleted: 4,
			wantMissing:   1,
		},
		{
			name: "empty content counts as missing",
			sections: map[types.SectionName]string{
				types.SectionAbstract:     "",
				types.SectionIntroduction: "b",
				types.SectionMethodology:  "c",
				types.SectionResults:      "d",
				types.SectionConclusion:   "e",
			},
			minSections:   4,
			wantValid:     false,
			wantCompleted: 4,
			wantMissing:   1,
		},
		{
			name:          "below minimum count",
			sections:      complete,
			minSections:   6,
			wantValid:     false,
			wantCompleted: 5,
		},
		{
			name:          "empty paper",
			sections:      map[types.SectionName]string{},
			minSections:   4,
			wantValid:     false,
			wantCompleted: 0,
			wantMissing:   5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := ValidatePaperStructure(tt.sections, tt.minSections)
			if checks.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", checks.Valid, tt.wantValid)
			}
			if checks.CompletedSections != tt.wantCompleted {
				t.Errorf("CompletedSections = %d, want %d", checks.CompletedSections, tt.wantCompleted)
			}
			if len(checks.MissingCritical) != tt.wantMissing {
				t.Errorf("MissingCritical = %v, want %d entries", checks.MissingCritical, tt.wantMissing)
			}
			if len(checks.Suggestions) != len(checks.MissingCritical) {
				t.Error("one suggestion per missing section expected")
			}
		})
	}
}

func TestValidatePaperStructureAvgLength(t *testing.T) {
	checks := ValidatePaperStructure(map[types.SectionName]string{
		types.SectionAbstract:     "aaaa",
		types.SectionIntroduction: "aaaaaaaa",
	}, 1)
	if checks.AvgSectionLength != 6 {
		t.Errorf("AvgSectionLength = %v, want 6", checks.AvgSectionLength)
	}
}
