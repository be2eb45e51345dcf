// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pdiddy/paper-pipeline/internal/generate"
	"github.com/pdiddy/paper-pipeline/internal/retrieve"
	"github.com/pdiddy/paper-pipeline/internal/workflow"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

func testConfig() types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()
	cfg.Workflow.MaxTargetedResearchAttempts = 2
	cfg.Workflow.MaxGapCycles = 2
	return cfg
}

func testSources() []types.SourceRecord {
	return []types.SourceRecord{
		{Title: "Grid storage overview", URL: "https://x/1", Snippet: "s1", RawContent: "r1"},
		{Title: "Flow batteries", URL: "https://x/2", Snippet: "s2", RawContent: "r2"},
		{Title: "Pumped hydro", URL: "https://x/3", Snippet: "s3", RawContent: "r3"},
	}
}

const sufficientVerdict = `{"is_sufficient": true, "strengths": ["broad coverage"], "gaps": [], "recommendation": "proceed"}`

const insufficientVerdict = `{"is_sufficient": false, "strengths": [], "gaps": ["no cost data"], "recommendation": "find cost analyses"}`

const oneGapAnalysis = `{"knowledge_gaps": [{"gap": "missing cost data", "relevance": "needed for results", "section_affected": "results", "research_questions": ["what does storage cost?"]}], "priority_gap": "missing cost data"}`

const emptyGapAnalysis = `{"knowledge_gaps": [], "priority_gap": ""}`

func TestInitialize(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.CitationStyle = types.StyleIEEE
	cfg.Workflow.TargetAudience = "general"
	p := New(&generate.Script{}, &retrieve.Static{}, cfg)

	st, err := p.Initialize(context.Background(), types.NewDocumentState("renewable energy storage"))
	if err != nil {
		t.Fatal(err)
	}
	if st.WorkingTitle != "Research on renewable energy storage" {
		t.Errorf("WorkingTitle = %q", st.WorkingTitle)
	}
	if st.CitationStyle != types.StyleIEEE {
		t.Errorf("CitationStyle = %q", st.CitationStyle)
	}
	if st.TargetAudience != "general" {
		t.Errorf("TargetAudience = %q", st.TargetAudience)
	}
	if len(st.Outline) != len(types.SectionOrder) {
		t.Errorf("Outline has %d sections, want %d", len(st.Outline), len(types.SectionOrder))
	}
}

func TestThesisFormulation(t *testing.T) {
	gen := &generate.Script{Responses: []string{"  Storage is the linchpin of decarbonization.  "}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st, err := p.ThesisFormulation(context.Background(), types.NewDocumentState("storage"))
	if err != nil {
		t.Fatal(err)
	}
	if st.Thesis != "Storage is the linchpin of decarbonization." {
		t.Errorf("Thesis = %q", st.Thesis)
	}
	if !strings.Contains(gen.Calls[0].Prompt, "storage") {
		t.Error("thesis prompt missing the topic")
	}
}

func TestLiteratureSurvey(t *testing.T) {
	gen := &generate.Script{Responses: []string{`"grid scale storage literature"`, "Key findings summary."}}
	ret := &retrieve.Static{Results: testSources()}
	p := New(gen, ret, testConfig())

	st := types.NewDocumentState("storage")
	st.Thesis = "thesis"
	st, err := p.LiteratureSurvey(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}

	if st.SearchQuery != "grid scale storage literature" {
		t.Errorf("SearchQuery = %q, want surrounding quotes stripped", st.SearchQuery)
	}
	if len(st.WebResearchResults) != 1 {
		t.Errorf("WebResearchResults len = %d", len(st.WebResearchResults))
	}
	if len(st.SourcesGathered) != 3 {
		t.Errorf("SourcesGathered len = %d, want 3", len(st.SourcesGathered))
	}
	if st.LiteratureSummary != "Key findings summary." {
		t.Errorf("LiteratureSummary = %q", st.LiteratureSummary)
	}
	if st.ResearchLoopCount != 1 {
		t.Errorf("ResearchLoopCount = %d", st.ResearchLoopCount)
	}
	// Summarizer prompt carries the source digest.
	if !strings.Contains(gen.Calls[1].Prompt, "https://x/1") {
		t.Error("summary prompt missing source digest")
	}
}

func TestValidationCheckParsesVerdict(t *testing.T) {
	gen := &generate.Script{Responses: []string{insufficientVerdict}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st, err := p.ValidationCheck(context.Background(), types.NewDocumentState("t"))
	if err != nil {
		t.Fatal(err)
	}
	if st.Validation.Passed {
		t.Error("Passed = true for insufficient verdict")
	}
	if len(st.Validation.Gaps) != 1 || st.Validation.Gaps[0] != "no cost data" {
		t.Errorf("Gaps = %v", st.Validation.Gaps)
	}
	if st.Validation.Recommendation != "find cost analyses" {
		t.Errorf("Recommendation = %q", st.Validation.Recommendation)
	}
}

func TestValidationCheckFailsClosed(t *testing.T) {
	gen := &generate.Script{Responses: []string{"I think the survey is fine overall."}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st, err := p.ValidationCheck(context.Background(), types.NewDocumentState("t"))
	if err != nil {
		t.Fatal(err)
	}
	if st.Validation.Passed {
		t.Error("unparseable verdict must fail closed")
	}
	if st.Validation.Raw == "" {
		t.Error("raw response not retained")
	}
}

func TestValidationCheckRecordsLoopBound(t *testing.T) {
	gen := &generate.Script{Responses: []string{insufficientVerdict}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st := types.NewDocumentState("t")
	st.TargetedResearchAttempts = 2
	st, err := p.ValidationCheck(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if !st.LoopBoundHit {
		t.Error("exhausted attempts with failed verdict did not record the bound")
	}
}

func TestIdentifyGaps(t *testing.T) {
	gen := &generate.Script{Responses: []string{oneGapAnalysis}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st, err := p.IdentifyGaps(context.Background(), types.NewDocumentState("t"))
	if err != nil {
		t.Fatal(err)
	}
	if len(st.KnowledgeGaps) != 1 {
		t.Fatalf("KnowledgeGaps len = %d", len(st.KnowledgeGaps))
	}
	gap := st.KnowledgeGaps[0]
	if gap.ID != "gap-1" || gap.Description != "missing cost data" || gap.SectionAffected != "results" {
		t.Errorf("gap = %+v", gap)
	}
	if len(gap.ResearchQuestions) != 1 {
		t.Errorf("ResearchQuestions = %v", gap.ResearchQuestions)
	}
	// Pre-drafting analysis does not consume gap cycles.
	if st.GapCycles != 0 {
		t.Errorf("GapCycles = %d, want 0 before drafting", st.GapCycles)
	}
}

func TestIdentifyGapsMalformedYieldsSyntheticGap(t *testing.T) {
	gen := &generate.Script{Responses: []string{"the gaps are hard to enumerate"}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st, err := p.IdentifyGaps(context.Background(), types.NewDocumentState("t"))
	if err != nil {
		t.Fatal(err)
	}
	if len(st.KnowledgeGaps) != 1 {
		t.Fatalf("KnowledgeGaps len = %d, want 1 synthetic gap", len(st.KnowledgeGaps))
	}
	gap := st.KnowledgeGaps[0]
	if gap.ID != "gap-1" || gap.Description != syntheticGapDescription {
		t.Errorf("gap = %+v", gap)
	}
	if gap.SectionAffected != string(types.SectionAbstract) {
		t.Errorf("SectionAffected = %q, want current section", gap.SectionAffected)
	}
	// With the synthetic gap queued, routing proceeds to targeted research.
	if got := p.routeAfterGapAnalysis(st); got != StageTargetedResearch {
		t.Errorf("route = %q, want targeted_research", got)
	}
}

func TestIdentifyGapsCountsCyclesOnceDrafting(t *testing.T) {
	gen := &generate.Script{Responses: []string{emptyGapAnalysis}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st := types.NewDocumentState("t")
	st.SetSection(types.SectionAbstract, "drafted")
	st, err := p.IdentifyGaps(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if st.GapCycles != 1 {
		t.Errorf("GapCycles = %d, want 1", st.GapCycles)
	}
	if got := p.routeAfterGapAnalysis(st); got != StageDraftSection {
		t.Errorf("route with no gaps = %q, want draft_section", got)
	}
}

func TestTargetedResearchDrainsOneGap(t *testing.T) {
	gen := &generate.Script{Responses: []string{"cost of grid storage", "Addendum on costs."}}
	ret := &retrieve.Static{Results: []types.SourceRecord{
		{Title: "Cost study", URL: "https://x/new", Snippet: "s"},
	}}
	p := New(gen, ret, testConfig())

	st := types.NewDocumentState("t")
	st.LiteratureSummary = "Base summary."
	st.KnowledgeGaps = []types.KnowledgeGap{
		{ID: "gap-1", Description: "missing cost data"},
		{ID: "gap-2", Description: "missing policy analysis"},
	}

	st, err := p.TargetedResearch(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.KnowledgeGaps) != 1 || st.KnowledgeGaps[0].ID != "gap-2" {
		t.Errorf("KnowledgeGaps = %+v, want front gap drained", st.KnowledgeGaps)
	}
	if !strings.Contains(gen.Calls[0].Prompt, "missing cost data") {
		t.Error("query prompt missing the drained gap")
	}
	if len(st.SourcesGathered) != 1 {
		t.Errorf("SourcesGathered len = %d", len(st.SourcesGathered))
	}
	if st.LiteratureSummary != "Base summary.\n\nAddendum on costs." {
		t.Errorf("LiteratureSummary = %q", st.LiteratureSummary)
	}
	if st.TargetedResearchAttempts != 1 || st.ResearchLoopCount != 1 {
		t.Errorf("attempts = %d, loops = %d", st.TargetedResearchAttempts, st.ResearchLoopCount)
	}
}

func TestTargetedResearchNoNewSourcesSkipsAddendum(t *testing.T) {
	gen := &generate.Script{Responses: []string{"query"}}
	ret := &retrieve.Static{Results: testSources()}
	p := New(gen, ret, testConfig())

	st := types.NewDocumentState("t")
	st.SourcesGathered = testSources()
	st.LiteratureSummary = "Base."

	st, err := p.TargetedResearch(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if st.LiteratureSummary != "Base." {
		t.Errorf("summary changed with no new sources: %q", st.LiteratureSummary)
	}
	if len(gen.Calls) != 1 {
		t.Errorf("gen calls = %d, want query only", len(gen.Calls))
	}
}

func TestTargetedResearchFallsBackToRecommendation(t *testing.T) {
	gen := &generate.Script{Responses: []string{"query"}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st := types.NewDocumentState("t")
	st.Validation.Recommendation = "find cost analyses"

	if _, err := p.TargetedResearch(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gen.Calls[0].Prompt, "find cost analyses") {
		t.Error("query prompt missing validation recommendation fallback")
	}
}

func TestDraftSection(t *testing.T) {
	gen := &generate.Script{Responses: []string{"The abstract content."}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st := types.NewDocumentState("t")
	st.LiteratureSummary = "Summary."
	st, err := p.DraftSection(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if st.Sections[types.SectionAbstract] != "The abstract content." {
		t.Errorf("abstract = %q", st.Sections[types.SectionAbstract])
	}
	if !st.CompletedSections[types.SectionAbstract] {
		t.Error("drafted section not marked complete")
	}
	if st.CurrentSection() != types.SectionIntroduction {
		t.Errorf("CurrentSection = %q, want introduction", st.CurrentSection())
	}
	if !strings.Contains(gen.Calls[0].Prompt, "Summary.") {
		t.Error("draft prompt missing literature summary")
	}
}

func TestDraftSectionEmptyResponseDoesNotAdvance(t *testing.T) {
	gen := &generate.Script{Responses: []string{""}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st, err := p.DraftSection(context.Background(), types.NewDocumentState("t"))
	if err != nil {
		t.Fatal(err)
	}
	if st.CompletedSections[types.SectionAbstract] {
		t.Error("empty draft marked section complete")
	}
	if st.CurrentSection() != types.SectionAbstract {
		t.Errorf("CurrentSection = %q, index advanced on empty draft", st.CurrentSection())
	}
}

func TestCompletionCheck(t *testing.T) {
	p := New(&generate.Script{}, &retrieve.Static{}, testConfig())

	st := types.NewDocumentState("t")
	for _, name := range types.RequiredSections[:len(types.RequiredSections)-1] {
		st.SetSection(name, "content")
	}
	st, err := p.CompletionCheck(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if st.AllSectionsComplete {
		t.Error("incomplete paper reported complete")
	}
	if got := p.routeAfterCompletion(st); got != StageIdentifyGaps {
		t.Errorf("route = %q, want identify_knowledge_gaps", got)
	}

	st.SetSection(types.SectionConclusion, "done")
	st, _ = p.CompletionCheck(context.Background(), st)
	if !st.AllSectionsComplete {
		t.Error("complete paper reported incomplete")
	}
	if got := p.routeAfterCompletion(st); got != StageCoherence {
		t.Errorf("route = %q, want cross_section_coherence", got)
	}
}

func TestCompletionCheckGapBudgetSpent(t *testing.T) {
	p := New(&generate.Script{}, &retrieve.Static{}, testConfig())

	st := types.NewDocumentState("t")
	st.SetSection(types.SectionAbstract, "a")
	st.GapCycles = 2
	st, err := p.CompletionCheck(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if !st.LoopBoundHit {
		t.Error("spent gap budget not recorded")
	}
	if got := p.routeAfterCompletion(st); got != StageDraftSection {
		t.Errorf("route = %q, want drafting to continue directly", got)
	}
}

func TestCoherenceSummariesCutAtRuneBoundary(t *testing.T) {
	gen := &generate.Script{Responses: []string{"Analysis.", ""}}
	p := New(gen, &retrieve.Static{}, testConfig())

	// 451 bytes of three-byte runes offset by one, so a naive 300-byte cut
	// would land mid-rune.
	st := types.NewDocumentState("t")
	st.SetSection(types.SectionAbstract, "a"+strings.Repeat("日", 150))

	if _, err := p.Coherence(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	if !utf8.ValidString(gen.Calls[0].Prompt) {
		t.Error("section summary cut mid-rune")
	}
}

func TestRouteAfterValidation(t *testing.T) {
	p := New(&generate.Script{}, &retrieve.Static{}, testConfig())

	tests := []struct {
		name     string
		passed   bool
		attempts int
		want     string
	}{
		{"passed", true, 0, StageDraftSection},
		{"failed with budget", false, 1, StageIdentifyGaps},
		{"failed, budget spent", false, 2, StageDraftSection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := types.NewDocumentState("t")
			st.Validation.Passed = tt.passed
			st.TargetedResearchAttempts = tt.attempts
			if got := p.routeAfterValidation(st); got != tt.want {
				t.Errorf("route = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCitationFormattingFallback(t *testing.T) {
	gen := &generate.Script{Responses: []string{"these sources are tricky to format"}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st := types.NewDocumentState("t")
	st.SourcesGathered = testSources()
	st, err := p.CitationFormatting(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Citations.Formatted) != 3 {
		t.Fatalf("Formatted len = %d, want deterministic fallback for all sources", len(st.Citations.Formatted))
	}
	for _, c := range st.Citations.Formatted {
		if !strings.Contains(c, "Retrieved on") {
			t.Errorf("fallback citation %q not in APA form", c)
		}
	}
	refs := st.Sections[types.SectionReferences]
	if !strings.HasPrefix(refs, "# References") {
		t.Errorf("references = %q", refs)
	}
	if !strings.Contains(refs, "https://x/2") {
		t.Error("references missing a source URL")
	}
}

func TestCitationFormattingParsedResponse(t *testing.T) {
	gen := &generate.Script{Responses: []string{`["one", "two", "three"]`}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st := types.NewDocumentState("t")
	st.SourcesGathered = testSources()
	st, err := p.CitationFormatting(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Citations.Formatted) != 3 || st.Citations.Formatted[0] != "one" {
		t.Errorf("Formatted = %v", st.Citations.Formatted)
	}
}

func TestCitationFormattingNoSources(t *testing.T) {
	gen := &generate.Script{}
	p := New(gen, &retrieve.Static{}, testConfig())

	st, err := p.CitationFormatting(context.Background(), types.NewDocumentState("t"))
	if err != nil {
		t.Fatal(err)
	}
	if len(gen.Calls) != 0 {
		t.Error("generation called with no sources to format")
	}
	if len(st.Citations.Formatted) != 0 {
		t.Errorf("Formatted = %v", st.Citations.Formatted)
	}
	if st.Sections[types.SectionReferences] == "" {
		t.Error("references section not written")
	}
}

func TestAssembleFinalOutput(t *testing.T) {
	gen := &generate.Script{Responses: []string{"# Research on t\n\nThe polished paper."}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st := types.NewDocumentState("t")
	st.WorkingTitle = "Research on t"
	st.Thesis = "a thesis"
	st.LiteratureSummary = "summary"
	st.SetSection(types.SectionAbstract, "abstract body")
	st.SetSection(types.SectionLiteratureReview, "review body")
	st.SetSection(types.SectionReferences, "# References\n\ncite")

	st, err := p.AssembleFinalOutput(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if st.FinalPaper != "# Research on t\n\nThe polished paper." {
		t.Errorf("FinalPaper = %q, want the generated paper", st.FinalPaper)
	}
	if len(gen.Calls) != 1 {
		t.Fatalf("generation calls = %d, want exactly one assembly call", len(gen.Calls))
	}
	// The single assembly prompt carries every non-empty section and the
	// reference list.
	for _, want := range []string{"a thesis", "abstract body", "## Literature Review", "review body", "# References"} {
		if !strings.Contains(gen.Calls[0].Prompt, want) {
			t.Errorf("assembly prompt missing %q", want)
		}
	}
	if st.RunningSummary != "summary" {
		t.Errorf("RunningSummary = %q", st.RunningSummary)
	}
}

func TestAssembleFinalOutputEmptyResponseFallsBack(t *testing.T) {
	gen := &generate.Script{Responses: []string{""}}
	p := New(gen, &retrieve.Static{}, testConfig())

	st := types.NewDocumentState("t")
	st.WorkingTitle = "Research on t"
	st.SetSection(types.SectionAbstract, "abstract body")
	st.SetSection(types.SectionLiteratureReview, "review body")
	st.SetSection(types.SectionReferences, "# References\n\ncite")

	st, err := p.AssembleFinalOutput(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	paper := st.FinalPaper
	for _, want := range []string{"# Research on t", "## Abstract", "abstract body", "## Literature Review", "# References"} {
		if !strings.Contains(paper, want) {
			t.Errorf("paper missing %q", want)
		}
	}
	if strings.Index(paper, "## Abstract") > strings.Index(paper, "## Literature Review") {
		t.Error("sections out of order")
	}
}

func TestBuildGraph(t *testing.T) {
	p := New(&generate.Script{}, &retrieve.Static{}, testConfig())
	if _, err := p.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

// TestWorkflowEndToEnd drives a full run through the built graph with a
// scripted backend: the validation loop exhausts its budget after exactly
// two targeted passes, two drafting-time gap cycles come back empty, and
// citation formatting falls back to the deterministic formatter.
func TestWorkflowEndToEnd(t *testing.T) {
	responses := []string{
		"Storage is essential.",         // thesis
		"grid storage literature",       // survey query
		"Survey summary.",               // survey summary
		insufficientVerdict,             // validation 1
		oneGapAnalysis,                  // gap analysis 1
		"cost query",                    // targeted 1 (no new sources, no addendum)
		insufficientVerdict,             // validation 2
		oneGapAnalysis,                  // gap analysis 2
		"policy query",                  // targeted 2
		insufficientVerdict,             // validation 3: budget spent, drafting proceeds
		"Abstract body.",                // draft abstract
		emptyGapAnalysis,                // gap cycle 1: nothing to chase
		"Introduction body.",            // draft introduction
		emptyGapAnalysis,                // gap cycle 2
		"Review body.",                  // draft literature_review
		"Methodology body.",             // draft methodology (gap budget spent)
		"Results body.",                 // draft results
		"Discussion body.",              // draft discussion
		"Conclusion body.",              // draft conclusion
		"Coherence analysis.",           // coherence
		"", "", "", "", "", "", "",      // coherence revisions (empty keeps drafts)
		"", "", "", "", "", "", "",      // style refinements
		"unformattable citation reply",  // citation formatting: falls back
		"",                              // assembly: empty, deterministic fallback
	}

	gen := &generate.Script{Responses: responses}
	ret := &retrieve.Static{Results: testSources()}
	p := New(gen, ret, testConfig())

	graph, err := p.Build()
	if err != nil {
		t.Fatal(err)
	}

	st, err := workflow.Run(context.Background(), graph,
		types.NewDocumentState("renewable energy storage"), workflow.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if st.TargetedResearchAttempts != 2 {
		t.Errorf("TargetedResearchAttempts = %d, want exactly the budget", st.TargetedResearchAttempts)
	}
	if !st.LoopBoundHit {
		t.Error("loop bound not recorded")
	}
	if st.ResearchLoopCount != 3 {
		t.Errorf("ResearchLoopCount = %d, want 3 (survey + 2 targeted)", st.ResearchLoopCount)
	}
	if st.GapCycles != 2 {
		t.Errorf("GapCycles = %d, want 2", st.GapCycles)
	}
	if len(st.SourcesGathered) != 3 {
		t.Errorf("SourcesGathered len = %d, want 3 deduplicated", len(st.SourcesGathered))
	}
	if !st.AllSectionsComplete {
		t.Error("run finished with incomplete sections")
	}
	if len(st.Citations.Formatted) != 3 {
		t.Errorf("Formatted len = %d", len(st.Citations.Formatted))
	}
	for _, want := range []string{
		"# Research on renewable energy storage",
		"## Abstract", "Abstract body.",
		"## Conclusion", "Conclusion body.",
		"# References",
	} {
		if !strings.Contains(st.FinalPaper, want) {
			t.Errorf("final paper missing %q", want)
		}
	}
	if st.RunningSummary == "" {
		t.Error("RunningSummary not set")
	}
	if len(gen.Calls) != len(responses) {
		t.Errorf("generation calls = %d, want %d", len(gen.Calls), len(responses))
	}
	if len(ret.Queries) != 3 {
		t.Errorf("retrieval queries = %d, want 3", len(ret.Queries))
	}
}
