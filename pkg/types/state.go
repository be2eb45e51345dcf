// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-pipeline workflow.
// Implements: prd008-authoring (DocumentState, R1.1-R1.6, R2.1-R2.4);
//
//	prd009-retrieval (SourceRecord, SearchResponse, R3.1-R3.3).
//
// See docs/ARCHITECTURE.md § Workflow Interface, § Data Structures.
package types

import "time"

// SourceRecord is one retrieved web source. URL is the dedup key: the
// sources gathered in a run contain at most one record per URL.
// Per prd009-retrieval R3.1.
type SourceRecord struct {
	// Title is the source title as returned by the retrieval backend.
	Title string `json:"title" yaml:"title"`

	// URL is the canonical source location and the uniqueness key.
	URL string `json:"url" yaml:"url"`

	// Snippet is the backend's relevance extract for the source.
	Snippet string `json:"snippet" yaml:"snippet"`

	// RawContent is the full page text when the backend supplies it.
	RawContent string `json:"raw_content,omitempty" yaml:"raw_content,omitempty"`

	// PublishedDate is the publication date if known ("" when unknown).
	PublishedDate string `json:"published_date,omitempty" yaml:"published_date,omitempty"`

	// Author is the author if known ("" when unknown).
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
}

// SearchResponse is one raw retrieval payload. Responses are retained
// verbatim on the state for audit and citation extraction.
type SearchResponse struct {
	// Query is the search query that produced this response.
	Query string `json:"query" yaml:"query"`

	// Results lists the returned sources in backend rank order.
	Results []SourceRecord `json:"results" yaml:"results"`
}

// ValidationResult is the structured sufficiency verdict from one
// validation pass. It is replaced wholesale each pass. Per prd008-authoring R4.2.
type ValidationResult struct {
	// Passed reports whether the literature survey was judged sufficient.
	Passed bool `json:"passed" yaml:"passed"`

	// Strengths lists aspects the survey covers well.
	Strengths []string `json:"strengths,omitempty" yaml:"strengths,omitempty"`

	// Gaps lists coverage gaps named by the verdict.
	Gaps []string `json:"gaps,omitempty" yaml:"gaps,omitempty"`

	// Recommendation is the verdict's free-text explanation.
	Recommendation string `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`

	// Raw is the unparsed backend response, kept for diagnostics.
	Raw string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// KnowledgeGap is a structured record of missing information the survey
// failed to cover. Gaps are drained front-first by targeted research.
// Per prd008-authoring R4.3.
type KnowledgeGap struct {
	// ID is a stable per-analysis identifier ("gap-1", "gap-2", ...).
	ID string `json:"id" yaml:"id"`

	// Description states what information is missing.
	Description string `json:"description" yaml:"description"`

	// Importance explains why the gap matters.
	Importance string `json:"importance,omitempty" yaml:"importance,omitempty"`

	// SectionAffected names the paper section weakened by the gap.
	SectionAffected string `json:"section_affected,omitempty" yaml:"section_affected,omitempty"`

	// ResearchQuestions lists questions a targeted pass should answer.
	ResearchQuestions []string `json:"research_questions,omitempty" yaml:"research_questions,omitempty"`
}

// Citations holds the per-run citation records and their formatted strings.
type Citations struct {
	Sources   []SourceRecord `json:"sources" yaml:"sources"`
	Formatted []string       `json:"formatted" yaml:"formatted"`
}

// VerificationRecord is one human verification interaction.
type VerificationRecord struct {
	Timestamp time.Time   `json:"timestamp" yaml:"timestamp"`
	Step      string      `json:"step" yaml:"step"`
	Feedback  string      `json:"feedback" yaml:"feedback"`
	Approved  bool        `json:"approved" yaml:"approved"`
	Section   SectionName `json:"section" yaml:"section"`
}

// DocumentState is the single mutable record threaded through every stage
// of a run. Stages mutate only their documented field sets; the engine
// never touches it outside stage execution. Per prd008-authoring R1.
type DocumentState struct {
	// Core research parameters, set once at the start of a run.
	Topic          string        `json:"topic" yaml:"topic"`
	WorkingTitle   string        `json:"working_title" yaml:"working_title"`
	Thesis         string        `json:"thesis" yaml:"thesis"`
	TargetAudience string        `json:"target_audience" yaml:"target_audience"`
	CitationStyle  CitationStyle `json:"citation_style" yaml:"citation_style"`

	// Research process tracking.
	SearchQuery        string           `json:"search_query" yaml:"search_query"`
	WebResearchResults []SearchResponse `json:"web_research_results" yaml:"web_research_results"`
	SourcesGathered    []SourceRecord   `json:"sources_gathered" yaml:"sources_gathered"`
	LiteratureSummary  string           `json:"literature_summary" yaml:"literature_summary"`

	// ResearchLoopCount counts retrieval passes (survey plus targeted).
	ResearchLoopCount int `json:"research_loop_count" yaml:"research_loop_count"`

	// TargetedResearchAttempts counts passes through the validation loop.
	TargetedResearchAttempts int `json:"targeted_research_attempts" yaml:"targeted_research_attempts"`

	// GapCycles counts passes through the drafting-time gap-closing loop.
	GapCycles int `json:"gap_cycles" yaml:"gap_cycles"`

	// LoopBoundHit records that a loop proceeded past its attempt cap with
	// best-effort state rather than looping further.
	LoopBoundHit bool `json:"loop_bound_hit" yaml:"loop_bound_hit"`

	// Validation tracking.
	Validation    ValidationResult `json:"validation" yaml:"validation"`
	KnowledgeGaps []KnowledgeGap   `json:"knowledge_gaps" yaml:"knowledge_gaps"`

	// Paper content.
	Outline             map[SectionName][]string   `json:"outline,omitempty" yaml:"outline,omitempty"`
	Sections            map[SectionName]string     `json:"sections" yaml:"sections"`
	CompletedSections   map[SectionName]bool       `json:"completed_sections" yaml:"completed_sections"`
	CurrentSectionIndex int                        `json:"current_section_index" yaml:"current_section_index"`
	AllSectionsComplete bool                       `json:"all_sections_complete" yaml:"all_sections_complete"`

	// Citation management and final assembly.
	Citations         Citations `json:"citations" yaml:"citations"`
	CoherenceAnalysis string    `json:"coherence_analysis,omitempty" yaml:"coherence_analysis,omitempty"`
	RunningSummary    string    `json:"running_summary,omitempty" yaml:"running_summary,omitempty"`
	FinalPaper        string    `json:"final_paper,omitempty" yaml:"final_paper,omitempty"`

	// Human verification plumbing.
	HumanVerificationRequired bool                 `json:"human_verification_required" yaml:"human_verification_required"`
	HumanFeedback             string               `json:"human_feedback,omitempty" yaml:"human_feedback,omitempty"`
	VerificationStep          string               `json:"verification_step,omitempty" yaml:"verification_step,omitempty"`
	VerificationHistory       []VerificationRecord `json:"verification_history,omitempty" yaml:"verification_history,omitempty"`
}

// NewDocumentState creates the state for a fresh run. Only the inputs are
// populated; every later field is filled by stages.
func NewDocumentState(topic string) *DocumentState {
	return &DocumentState{
		Topic:             topic,
		CitationStyle:     StyleAPA,
		TargetAudience:    "academic",
		Sections:          make(map[SectionName]string),
		CompletedSections: make(map[SectionName]bool),
	}
}

// CurrentSection returns the section currently being drafted.
func (s *DocumentState) CurrentSection() SectionName {
	idx := s.CurrentSectionIndex
	if idx < 0 {
		idx = 0
	}
	if idx >= len(SectionOrder) {
		idx = len(SectionOrder) - 1
	}
	return SectionOrder[idx]
}

// AdvanceSection moves the drafting index forward by one, clamped at the
// last section. The index never moves backward.
func (s *DocumentState) AdvanceSection() {
	if s.CurrentSectionIndex < len(SectionOrder)-1 {
		s.CurrentSectionIndex++
	}
}

// SetSection stores content for a section and records its completion when
// the content is non-empty. Non-empty content implies membership in
// CompletedSections (R1.3).
func (s *DocumentState) SetSection(name SectionName, content string) {
	if s.Sections == nil {
		s.Sections = make(map[SectionName]string)
	}
	if s.CompletedSections == nil {
		s.CompletedSections = make(map[SectionName]bool)
	}
	s.Sections[name] = content
	if content != "" {
		s.CompletedSections[name] = true
	}
}

// PopGap removes and returns the first knowledge gap in insertion order.
// The second return is false when no gaps remain.
func (s *DocumentState) PopGap() (KnowledgeGap, bool) {
	if len(s.KnowledgeGaps) == 0 {
		return KnowledgeGap{}, false
	}
	gap := s.KnowledgeGaps[0]
	s.KnowledgeGaps = s.KnowledgeGaps[1:]
	return gap, true
}

// RecordVerification appends a human verification interaction and clears
// the pending-verification flag.
func (s *DocumentState) RecordVerification(step, feedback string, approved bool) {
	s.VerificationHistory = append(s.VerificationHistory, VerificationRecord{
		Timestamp: time.Now(),
		Step:      step,
		Feedback:  feedback,
		Approved:  approved,
		Section:   s.CurrentSection(),
	})
	s.HumanVerificationRequired = false
	s.HumanFeedback = feedback
}

// RequestVerification flags the run as waiting on human review of step.
func (s *DocumentState) RequestVerification(step string) {
	s.HumanVerificationRequired = true
	s.VerificationStep = step
}

// RunOutput is the minimal projection of a finished run.
type RunOutput struct {
	FinalPaper     string               `json:"final_paper" yaml:"final_paper"`
	RunningSummary string               `json:"running_summary" yaml:"running_summary"`
	Verification   []VerificationRecord `json:"verification,omitempty" yaml:"verification,omitempty"`
}

// Output projects the state into its run output.
func (s *DocumentState) Output() RunOutput {
	return RunOutput{
		FinalPaper:     s.FinalPaper,
		RunningSummary: s.RunningSummary,
		Verification:   s.VerificationHistory,
	}
}
