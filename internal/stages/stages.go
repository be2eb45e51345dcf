// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stages implements the authoring stages and wires them into the
// workflow graph. Each stage is a small transformation of the document
// state around at most a few generation or retrieval calls; routing
// decisions between stages live in the routers at the bottom of this
// file. Implements: prd008-authoring (R2-R5); docs/ARCHITECTURE § Stages.
package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-pipeline/internal/generate"
	"github.com/pdiddy/paper-pipeline/internal/retrieve"
	"github.com/pdiddy/paper-pipeline/internal/sources"
	"github.com/pdiddy/paper-pipeline/internal/workflow"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// Stage names. These are the routing vocabulary of the graph.
const (
	StageInitialize          = "initialize"
	StageThesisFormulation   = "thesis_formulation"
	StageLiteratureSurvey    = "literature_survey"
	StageValidationCheck     = "validation_check"
	StageIdentifyGaps        = "identify_knowledge_gaps"
	StageTargetedResearch    = "targeted_research"
	StageDraftSection        = "draft_section"
	StageCompletionCheck     = "completion_check"
	StageCoherence           = "cross_section_coherence"
	StageStyleRefinement     = "style_refinement"
	StageCitationFormatting  = "citation_formatting"
	StageAssembleFinalOutput = "assemble_final_output"
)

// systemPrompt frames every generation call.
const systemPrompt = "You are an expert academic writer and researcher producing a rigorous, well-sourced research paper."

// syntheticGapDescription is recorded when gap analysis returns output the
// stage cannot parse. The run proceeds with one generic gap rather than
// aborting.
const syntheticGapDescription = "Insufficient information to complete the paper"

// Pipeline holds the ports and configuration the stages close over.
type Pipeline struct {
	gen generate.Backend
	ret retrieve.Backend
	cfg types.PipelineConfig
}

// New binds the stages to their generation and retrieval backends.
func New(gen generate.Backend, ret retrieve.Backend, cfg types.PipelineConfig) *Pipeline {
	return &Pipeline{gen: gen, ret: ret, cfg: cfg}
}

// generate issues one generation call with the shared system prompt.
func (p *Pipeline) generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := p.gen.Generate(ctx, generate.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   p.cfg.Generation.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// Initialize seeds the run parameters: working title, citation style,
// target audience, and the per-section outline. Per prd008-authoring R2.1.
func (p *Pipeline) Initialize(_ context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	st.WorkingTitle = "Research on " + st.Topic
	if p.cfg.Workflow.CitationStyle.Valid() {
		st.CitationStyle = p.cfg.Workflow.CitationStyle
	}
	if p.cfg.Workflow.TargetAudience != "" {
		st.TargetAudience = p.cfg.Workflow.TargetAudience
	}
	st.CurrentSectionIndex = 0
	if st.Outline == nil {
		st.Outline = defaultOutline()
	}
	return st, nil
}

// ThesisFormulation produces the thesis statement that anchors every later
// prompt.
func (p *Pipeline) ThesisFormulation(ctx context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	prompt, err := render(thesisPromptTmpl, map[string]any{"Topic": st.Topic})
	if err != nil {
		return st, err
	}
	thesis, err := p.generate(ctx, prompt, 0.2)
	if err != nil {
		return st, fmt.Errorf("formulating thesis: %w", err)
	}
	st.Thesis = thesis
	return st, nil
}

// LiteratureSurvey generates a search query, retrieves sources, merges
// them into the gathered set, and summarizes the literature. A degraded
// retrieval (empty results) still produces a summary from whatever has
// been gathered so far.
func (p *Pipeline) LiteratureSurvey(ctx context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	prompt, err := render(queryPromptTmpl, map[string]any{"Topic": st.Topic, "Thesis": st.Thesis})
	if err != nil {
		return st, err
	}
	query, err := p.generate(ctx, prompt, 0.2)
	if err != nil {
		return st, fmt.Errorf("generating survey query: %w", err)
	}
	st.SearchQuery = strings.Trim(query, `"`)

	resp, err := p.ret.Search(ctx, st.SearchQuery, p.cfg.Retrieval.MaxResults, p.cfg.Retrieval.IncludeRawContent)
	if err != nil {
		return st, fmt.Errorf("literature search: %w", err)
	}
	st.WebResearchResults = append(st.WebResearchResults, resp)
	sources.Merge(&st.SourcesGathered, resp.Results)

	digest := sources.Digest(st.SourcesGathered, p.cfg.Workflow.MaxCharsPerSource)
	prompt, err = render(summarizerPromptTmpl, map[string]any{"Topic": st.Topic, "Sources": digest})
	if err != nil {
		return st, err
	}
	summary, err := p.generate(ctx, prompt, 0.1)
	if err != nil {
		return st, fmt.Errorf("summarizing literature: %w", err)
	}
	st.LiteratureSummary = summary
	st.ResearchLoopCount++
	return st, nil
}

// validationVerdict is the JSON shape expected from the sufficiency check.
type validationVerdict struct {
	IsSufficient   bool     `json:"is_sufficient"`
	Strengths      []string `json:"strengths"`
	Gaps           []string `json:"gaps"`
	Recommendation string   `json:"recommendation"`
}

// ValidationCheck judges whether the survey is sufficient to begin
// drafting. Unparseable verdicts fail closed: the survey is treated as
// insufficient and the raw response is kept for diagnostics. The stage
// also records when the validation loop has exhausted its attempt budget.
// Per prd008-authoring R4.2.
func (p *Pipeline) ValidationCheck(ctx context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	prompt, err := render(validationPromptTmpl, map[string]any{
		"Topic":       st.Topic,
		"Thesis":      st.Thesis,
		"Summary":     st.LiteratureSummary,
		"SourceCount": len(st.SourcesGathered),
		"MinSources":  p.cfg.Workflow.Validation.LiteratureSurveyMinSources,
	})
	if err != nil {
		return st, err
	}
	resp, err := p.generate(ctx, prompt, 0.1)
	if err != nil {
		return st, fmt.Errorf("validation check: %w", err)
	}

	var verdict validationVerdict
	if err := generate.ExtractJSON(resp, &verdict); err != nil {
		st.Validation = types.ValidationResult{Passed: false, Raw: resp}
	} else {
		st.Validation = types.ValidationResult{
			Passed:         verdict.IsSufficient,
			Strengths:      verdict.Strengths,
			Gaps:           verdict.Gaps,
			Recommendation: verdict.Recommendation,
			Raw:            resp,
		}
	}

	if !st.Validation.Passed && st.TargetedResearchAttempts >= p.cfg.Workflow.MaxTargetedResearchAttempts {
		st.LoopBoundHit = true
	}
	return st, nil
}

// gapAnalysis is the JSON shape expected from gap identification.
type gapAnalysis struct {
	KnowledgeGaps []struct {
		Gap               string   `json:"gap"`
		Relevance         string   `json:"relevance"`
		SectionAffected   string   `json:"section_affected"`
		ResearchQuestions []string `json:"research_questions"`
	} `json:"knowledge_gaps"`
	PriorityGap string `json:"priority_gap"`
}

// IdentifyGaps replaces the knowledge-gap queue with a fresh analysis.
// Gaps get stable identifiers in analysis order. A response the stage
// cannot parse yields one synthetic gap so targeted research still has
// something to chase. Per prd008-authoring R4.3.
func (p *Pipeline) IdentifyGaps(ctx context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	var completed []string
	for _, name := range types.SectionOrder {
		if st.CompletedSections[name] {
			completed = append(completed, string(name))
		}
	}
	prompt, err := render(gapPromptTmpl, map[string]any{
		"Topic":     st.Topic,
		"Thesis":    st.Thesis,
		"Completed": strings.Join(completed, ", "),
		"Current":   string(st.CurrentSection()),
	})
	if err != nil {
		return st, err
	}
	resp, err := p.generate(ctx, prompt, 0.2)
	if err != nil {
		return st, fmt.Errorf("identifying knowledge gaps: %w", err)
	}

	var analysis gapAnalysis
	if err := generate.ExtractJSON(resp, &analysis); err != nil {
		st.KnowledgeGaps = []types.KnowledgeGap{{
			ID:              "gap-1",
			Description:     syntheticGapDescription,
			SectionAffected: string(st.CurrentSection()),
		}}
	} else {
		gaps := make([]types.KnowledgeGap, 0, len(analysis.KnowledgeGaps))
		for i, g := range analysis.KnowledgeGaps {
			if g.Gap == "" {
				continue
			}
			gaps = append(gaps, types.KnowledgeGap{
				ID:                fmt.Sprintf("gap-%d", i+1),
				Description:       g.Gap,
				Importance:        g.Relevance,
				SectionAffected:   g.SectionAffected,
				ResearchQuestions: g.ResearchQuestions,
			})
		}
		st.KnowledgeGaps = gaps
	}

	// Gap cycles are counted only once drafting has begun; gap analysis
	// during the pre-drafting validation loop is bounded by the targeted
	// research attempt budget instead.
	if len(st.CompletedSections) > 0 {
		st.GapCycles++
	}
	return st, nil
}

// TargetedResearch drains one knowledge gap: it generates a gap-specific
// query, retrieves sources, merges the new ones, and appends an addendum
// to the literature summary. With no gaps queued it falls back to the
// validation recommendation, then to the topic itself.
func (p *Pipeline) TargetedResearch(ctx context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	desc := ""
	if gap, ok := st.PopGap(); ok {
		desc = gap.Description
	} else if st.Validation.Recommendation != "" {
		desc = st.Validation.Recommendation
	}
	if desc == "" {
		desc = "additional sources on " + st.Topic
	}

	prompt, err := render(gapQueryPromptTmpl, map[string]any{
		"Gap":    desc,
		"Topic":  st.Topic,
		"Thesis": st.Thesis,
	})
	if err != nil {
		return st, err
	}
	query, err := p.generate(ctx, prompt, 0.2)
	if err != nil {
		return st, fmt.Errorf("generating targeted query: %w", err)
	}
	st.SearchQuery = strings.Trim(query, `"`)

	resp, err := p.ret.Search(ctx, st.SearchQuery, p.cfg.Retrieval.MaxResults, p.cfg.Retrieval.IncludeRawContent)
	if err != nil {
		return st, fmt.Errorf("targeted search: %w", err)
	}
	st.WebResearchResults = append(st.WebResearchResults, resp)
	added := sources.Merge(&st.SourcesGathered, resp.Results)

	if len(added) > 0 {
		digest := sources.Digest(added, p.cfg.Workflow.MaxCharsPerSource)
		prompt, err = render(addendumPromptTmpl, map[string]any{
			"Topic":   st.Topic,
			"Summary": st.LiteratureSummary,
			"Sources": digest,
			"Gap":     desc,
		})
		if err != nil {
			return st, err
		}
		addendum, err := p.generate(ctx, prompt, 0.1)
		if err != nil {
			return st, fmt.Errorf("summarizing targeted findings: %w", err)
		}
		if st.LiteratureSummary == "" {
			st.LiteratureSummary = addendum
		} else {
			st.LiteratureSummary += "\n\n" + addendum
		}
	}

	st.ResearchLoopCount++
	st.TargetedResearchAttempts++
	return st, nil
}

// DraftSection drafts the current section from its outline guidance and
// the literature summary, then advances the section index. The index only
// advances when the draft is non-empty, so an empty response retries the
// same section on the next pass.
func (p *Pipeline) DraftSection(ctx context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	section := st.CurrentSection()
	bullets := st.Outline[section]
	if len(bullets) == 0 {
		bullets = defaultOutline()[section]
	}
	bullets = append(bullets, p.sectionParams(section)...)
	guidelines := strings.Join(bullets, "\n")

	prompt, err := render(draftPromptTmpl, map[string]any{
		"Section":    string(section),
		"Audience":   st.TargetAudience,
		"Topic":      st.Topic,
		"Thesis":     st.Thesis,
		"Guidelines": guidelines,
		"Summary":    st.LiteratureSummary,
	})
	if err != nil {
		return st, err
	}
	content, err := p.generate(ctx, prompt, 0.3)
	if err != nil {
		return st, fmt.Errorf("drafting %s: %w", section, err)
	}

	st.SetSection(section, content)
	if content != "" {
		st.AdvanceSection()
	}
	return st, nil
}

// CompletionCheck is pure bookkeeping: it recomputes AllSectionsComplete
// from the required-section set and records when the gap-closing loop has
// exhausted its budget. Per prd008-authoring R2.2.
func (p *Pipeline) CompletionCheck(_ context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	complete := true
	for _, name := range types.RequiredSections {
		if !st.CompletedSections[name] {
			complete = false
			break
		}
	}
	st.AllSectionsComplete = complete
	if !complete && st.GapCycles >= p.cfg.Workflow.MaxGapCycles {
		st.LoopBoundHit = true
	}
	return st, nil
}

// Coherence analyzes cross-section flow and then revises each drafted
// section against the analysis. Revisions that come back empty leave the
// section untouched.
func (p *Pipeline) Coherence(ctx context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	var b strings.Builder
	for _, name := range types.SectionOrder {
		content := st.Sections[name]
		if content == "" {
			continue
		}
		content = sources.Truncate(content, 300)
		fmt.Fprintf(&b, "## %s\n%s\n\n", name, content)
	}

	prompt, err := render(coherencePromptTmpl, map[string]any{
		"Topic":     st.Topic,
		"Thesis":    st.Thesis,
		"Summaries": strings.TrimSpace(b.String()),
	})
	if err != nil {
		return st, err
	}
	analysis, err := p.generate(ctx, prompt, 0.2)
	if err != nil {
		return st, fmt.Errorf("coherence analysis: %w", err)
	}
	st.CoherenceAnalysis = analysis

	if p.cfg.Workflow.MaxSectionRevisions < 1 {
		return st, nil
	}
	for _, name := range types.SectionOrder {
		if st.Sections[name] == "" {
			continue
		}
		prompt, err := render(coherenceReviseTmpl, map[string]any{
			"Analysis": analysis,
			"Section":  string(name),
			"Content":  st.Sections[name],
		})
		if err != nil {
			return st, err
		}
		revised, err := p.generate(ctx, prompt, 0.2)
		if err != nil {
			return st, fmt.Errorf("revising %s: %w", name, err)
		}
		if revised != "" {
			st.SetSection(name, revised)
		}
	}
	return st, nil
}

// StyleRefinement makes one style pass over every drafted section.
func (p *Pipeline) StyleRefinement(ctx context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	for _, name := range types.SectionOrder {
		if st.Sections[name] == "" {
			continue
		}
		prompt, err := render(styleRefineTmpl, map[string]any{
			"Section": string(name),
			"Topic":   st.Topic,
			"Content": st.Sections[name],
		})
		if err != nil {
			return st, err
		}
		refined, err := p.generate(ctx, prompt, 0.2)
		if err != nil {
			return st, fmt.Errorf("refining %s: %w", name, err)
		}
		if refined != "" {
			st.SetSection(name, refined)
		}
	}
	return st, nil
}

// CitationFormatting enriches gathered sources with extracted author and
// date information, asks the backend to format them in the configured
// style, and writes the references section. A response that is not a JSON
// array matching the source count falls back to the deterministic
// formatter, so the references section is always produced.
// Per prd009-retrieval R4.2.
func (p *Pipeline) CitationFormatting(ctx context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	enriched := make([]types.SourceRecord, len(st.SourcesGathered))
	for i, src := range st.SourcesGathered {
		enriched[i] = sources.ExtractCitationInfo(src)
	}
	st.Citations.Sources = enriched

	var formatted []string
	if len(enriched) > 0 {
		srcJSON, err := json.MarshalIndent(enriched, "", "  ")
		if err != nil {
			return st, fmt.Errorf("encoding sources: %w", err)
		}
		prompt, err := render(citationPromptTmpl, map[string]any{
			"Style":   string(st.CitationStyle),
			"Sources": string(srcJSON),
		})
		if err != nil {
			return st, err
		}
		resp, err := p.generate(ctx, prompt, 0.1)
		if err != nil {
			return st, fmt.Errorf("formatting citations: %w", err)
		}
		if err := generate.ExtractJSON(resp, &formatted); err != nil || len(formatted) != len(enriched) {
			formatted = sources.FormatAll(enriched, st.CitationStyle)
		}
	}
	st.Citations.Formatted = formatted

	var b strings.Builder
	b.WriteString("# References\n")
	for _, c := range formatted {
		b.WriteString("\n" + c + "\n")
	}
	st.SetSection(types.SectionReferences, b.String())
	return st, nil
}

// AssembleFinalOutput combines the non-empty sections into the final
// paper with one generation call. An empty response falls back to the
// deterministic concatenation, so a run that reaches assembly always
// ends with a paper.
func (p *Pipeline) AssembleFinalOutput(ctx context.Context, st *types.DocumentState) (*types.DocumentState, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", st.WorkingTitle)
	for _, name := range types.SectionOrder {
		content := st.Sections[name]
		if content == "" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", sectionHeading(name), content)
	}
	if refs := st.Sections[types.SectionReferences]; refs != "" {
		b.WriteString("\n" + refs)
	}
	assembled := b.String()

	prompt, err := render(assemblyPromptTmpl, map[string]any{
		"Title":    st.WorkingTitle,
		"Topic":    st.Topic,
		"Thesis":   st.Thesis,
		"Sections": assembled,
	})
	if err != nil {
		return st, err
	}
	paper, err := p.generate(ctx, prompt, 0.1)
	if err != nil {
		return st, fmt.Errorf("assembling final paper: %w", err)
	}
	if paper == "" {
		paper = assembled
	}
	st.FinalPaper = paper
	st.RunningSummary = st.LiteratureSummary
	return st, nil
}

// sectionParams renders the configured per-section drafting limits as
// extra guideline lines.
func (p *Pipeline) sectionParams(section types.SectionName) []string {
	params := p.cfg.Workflow.Sections
	switch section {
	case types.SectionAbstract:
		if params.AbstractWordLimit > 0 {
			return []string{fmt.Sprintf("Keep the abstract under %d words", params.AbstractWordLimit)}
		}
	case types.SectionIntroduction:
		if params.IntroductionMinSources > 0 {
			return []string{fmt.Sprintf("Cite at least %d sources", params.IntroductionMinSources)}
		}
	case types.SectionLiteratureReview:
		if params.LiteratureReviewMinSources > 0 {
			return []string{fmt.Sprintf("Cite at least %d sources", params.LiteratureReviewMinSources)}
		}
	case types.SectionMethodology:
		if params.MethodologyDetailLevel != "" {
			return []string{fmt.Sprintf("Write at a %s level of detail", params.MethodologyDetailLevel)}
		}
	}
	return nil
}

// sectionHeading renders a section name as a document heading.
func sectionHeading(name types.SectionName) string {
	words := strings.Split(string(name), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// defaultOutline returns the static per-section drafting guidance.
func defaultOutline() map[types.SectionName][]string {
	return map[types.SectionName][]string{
		types.SectionAbstract: {
			"Summarize the research question, approach, and key findings",
			"Stay within the configured word limit",
			"Avoid citations and undefined abbreviations",
		},
		types.SectionIntroduction: {
			"Motivate the research topic and its significance",
			"State the thesis and the paper's contributions",
			"Preview the paper's structure",
		},
		types.SectionLiteratureReview: {
			"Organize prior work by theme or chronology",
			"Name key researchers and their contributions",
			"Identify the gap this paper addresses",
		},
		types.SectionMethodology: {
			"Describe the research design and data sources",
			"Justify the chosen methods",
			"Note limitations of the approach",
		},
		types.SectionResults: {
			"Present findings without interpretation",
			"Organize results to mirror the methodology",
		},
		types.SectionDiscussion: {
			"Interpret the results against the thesis",
			"Relate findings to the reviewed literature",
			"Acknowledge limitations and alternative explanations",
		},
		types.SectionConclusion: {
			"Restate the thesis in light of the findings",
			"Summarize contributions",
			"Suggest directions for future work",
		},
	}
}

// routeAfterValidation continues to drafting when the survey passed or
// the validation loop is out of attempts; otherwise it enters gap
// analysis for another targeted pass. Per prd008-authoring R5.2.
func (p *Pipeline) routeAfterValidation(st *types.DocumentState) string {
	if st.Validation.Passed {
		return StageDraftSection
	}
	if st.TargetedResearchAttempts >= p.cfg.Workflow.MaxTargetedResearchAttempts {
		return StageDraftSection
	}
	return StageIdentifyGaps
}

// routeAfterGapAnalysis sends queued gaps to targeted research; with no
// gaps there is nothing to research, so drafting proceeds.
func (p *Pipeline) routeAfterGapAnalysis(st *types.DocumentState) string {
	if len(st.KnowledgeGaps) > 0 {
		return StageTargetedResearch
	}
	return StageDraftSection
}

// routeAfterCompletion moves a complete paper into coherence revision.
// An incomplete paper re-enters gap analysis until the gap-cycle budget
// is spent, after which remaining sections are drafted directly.
func (p *Pipeline) routeAfterCompletion(st *types.DocumentState) string {
	if st.AllSectionsComplete {
		return StageCoherence
	}
	if st.GapCycles >= p.cfg.Workflow.MaxGapCycles {
		return StageDraftSection
	}
	return StageIdentifyGaps
}

// Build compiles the authoring graph:
//
//	initialize -> thesis_formulation -> literature_survey -> validation_check
//	validation_check  -?-> draft_section | identify_knowledge_gaps
//	identify_knowledge_gaps -?-> targeted_research | draft_section
//	targeted_research -> validation_check
//	draft_section -> completion_check
//	completion_check -?-> cross_section_coherence | identify_knowledge_gaps | draft_section
//	cross_section_coherence -> style_refinement -> citation_formatting
//	  -> assemble_final_output -> terminal
func (p *Pipeline) Build() (*workflow.Graph, error) {
	g := workflow.NewGraph()

	add := []struct {
		name string
		fn   workflow.StageFunc
	}{
		{StageInitialize, p.Initialize},
		{StageThesisFormulation, p.ThesisFormulation},
		{StageLiteratureSurvey, p.LiteratureSurvey},
		{StageValidationCheck, p.ValidationCheck},
		{StageIdentifyGaps, p.IdentifyGaps},
		{StageTargetedResearch, p.TargetedResearch},
		{StageDraftSection, p.DraftSection},
		{StageCompletionCheck, p.CompletionCheck},
		{StageCoherence, p.Coherence},
		{StageStyleRefinement, p.StyleRefinement},
		{StageCitationFormatting, p.CitationFormatting},
		{StageAssembleFinalOutput, p.AssembleFinalOutput},
	}
	for _, s := range add {
		if err := g.AddStage(s.name, s.fn); err != nil {
			return nil, err
		}
	}

	edges := [][2]string{
		{StageInitialize, StageThesisFormulation},
		{StageThesisFormulation, StageLiteratureSurvey},
		{StageLiteratureSurvey, StageValidationCheck},
		{StageTargetedResearch, StageValidationCheck},
		{StageDraftSection, StageCompletionCheck},
		{StageCoherence, StageStyleRefinement},
		{StageStyleRefinement, StageCitationFormatting},
		{StageCitationFormatting, StageAssembleFinalOutput},
		{StageAssembleFinalOutput, workflow.Terminal},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}

	if err := g.AddConditionalEdge(StageValidationCheck, p.routeAfterValidation); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge(StageIdentifyGaps, p.routeAfterGapAnalysis); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdge(StageCompletionCheck, p.routeAfterCompletion); err != nil {
		return nil, err
	}

	if err := g.SetEntry(StageInitialize); err != nil {
		return nil, err
	}
	return g, nil
}
