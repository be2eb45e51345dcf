package types

import "time"

// HTTPConfig holds shared HTTP settings used by ports that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-pipeline/0.1"). Per prd009-retrieval R5.2.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for components that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for rate-limited API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// GenerationConfig holds settings for the Generation Port.
// Per prd010-generation R1.1-R1.3.
type GenerationConfig struct {
	AIConfig `yaml:",inline"`

	// Temperature is the default sampling temperature for generation calls.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxTokens caps tokens per generation call (default 1024).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// RetrievalConfig holds settings for the Retrieval Port.
// Per prd009-retrieval R5.1-R5.4.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the web search API key. When empty the port returns empty
	// result sets rather than failing, so a run degrades instead of aborting.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxResults is the maximum number of results per search (default 3).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// IncludeRawContent requests full page text with each result.
	IncludeRawContent bool `json:"include_raw_content" yaml:"include_raw_content"`
}

// SectionParams holds per-section drafting limits.
type SectionParams struct {
	// AbstractWordLimit caps the abstract length in words (default 200).
	AbstractWordLimit int `json:"abstract_word_limit" yaml:"abstract_word_limit"`

	// IntroductionMinSources is the minimum sources the introduction should cite.
	IntroductionMinSources int `json:"introduction_min_sources" yaml:"introduction_min_sources"`

	// LiteratureReviewMinSources is the minimum sources the review should cite.
	LiteratureReviewMinSources int `json:"literature_review_min_sources" yaml:"literature_review_min_sources"`

	// MethodologyDetailLevel selects the methodology register: "technical" or "general".
	MethodologyDetailLevel string `json:"methodology_detail_level" yaml:"methodology_detail_level"`
}

// ValidationThresholds holds the sufficiency criteria for the validation check.
type ValidationThresholds struct {
	// MinCitations is the minimum citation count across the paper.
	MinCitations int `json:"min_citations" yaml:"min_citations"`

	// MinSections is the minimum number of completed sections.
	MinSections int `json:"min_sections" yaml:"min_sections"`

	// LiteratureSurveyMinSources is the minimum gathered-source count.
	LiteratureSurveyMinSources int `json:"literature_survey_min_sources" yaml:"literature_survey_min_sources"`

	// CoherenceThreshold is the cross-section coherence threshold (0-1).
	CoherenceThreshold float64 `json:"coherence_threshold" yaml:"coherence_threshold"`
}

// WorkflowConfig holds run-level orchestration settings.
// Per prd008-authoring R5.1-R5.6.
type WorkflowConfig struct {
	// MaxResearchLoops caps total retrieval passes, reported in diagnostics.
	MaxResearchLoops int `json:"max_research_loops" yaml:"max_research_loops"`

	// MaxTargetedResearchAttempts bounds the validation loop. On exhaustion
	// the run proceeds to drafting with best-effort literature coverage.
	MaxTargetedResearchAttempts int `json:"max_targeted_research_attempts" yaml:"max_targeted_research_attempts"`

	// MaxGapCycles bounds the drafting-time gap-closing loop.
	MaxGapCycles int `json:"max_gap_cycles" yaml:"max_gap_cycles"`

	// MaxSectionRevisions caps coherence revisions per section.
	MaxSectionRevisions int `json:"max_section_revisions" yaml:"max_section_revisions"`

	// MaxSteps is the engine's defensive bound on total stage executions.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`

	// CitationStyle selects the reference format: APA, MLA, Chicago, IEEE.
	CitationStyle CitationStyle `json:"citation_style" yaml:"citation_style"`

	// TargetAudience tunes prompt register (default "academic").
	TargetAudience string `json:"target_audience" yaml:"target_audience"`

	// MaxCharsPerSource caps each source's block in prompt digests.
	MaxCharsPerSource int `json:"max_chars_per_source" yaml:"max_chars_per_source"`

	Sections   SectionParams        `json:"sections" yaml:"sections"`
	Validation ValidationThresholds `json:"validation" yaml:"validation"`
}

// ArchiveConfig holds settings for the run archive.
type ArchiveConfig struct {
	// Dir is the base directory for the archive database (contains index/).
	Dir string `json:"dir" yaml:"dir"`
}

// PipelineConfig groups all component configurations for a run.
type PipelineConfig struct {
	Workflow   WorkflowConfig   `json:"workflow" yaml:"workflow"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Retrieval  RetrievalConfig  `json:"retrieval" yaml:"retrieval"`
	Archive    ArchiveConfig    `json:"archive" yaml:"archive"`
}

// DefaultPipelineConfig returns the resource-conservative defaults the
// pipeline ships with. Callers overlay config-file and flag values on top.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Workflow: WorkflowConfig{
			MaxResearchLoops:            3,
			MaxTargetedResearchAttempts: 2,
			MaxGapCycles:                2,
			MaxSectionRevisions:         1,
			MaxSteps:                    100,
			CitationStyle:               StyleAPA,
			TargetAudience:              "academic",
			MaxCharsPerSource:           4000,
			Sections: SectionParams{
				AbstractWordLimit:          200,
				IntroductionMinSources:     2,
				LiteratureReviewMinSources: 5,
				MethodologyDetailLevel:     "technical",
			},
			Validation: ValidationThresholds{
				MinCitations:               3,
				MinSections:                4,
				LiteratureSurveyMinSources: 6,
				CoherenceThreshold:         0.7,
			},
		},
		Generation: GenerationConfig{
			AIConfig:    AIConfig{MaxRetries: 3},
			Temperature: 0.1,
			MaxTokens:   1024,
		},
		Retrieval: RetrievalConfig{
			HTTPConfig:        HTTPConfig{Timeout: 30 * time.Second, UserAgent: "paper-pipeline/0.1"},
			MaxResults:        3,
			IncludeRawContent: true,
		},
		Archive: ArchiveConfig{Dir: "archive"},
	}
}
