// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stages

import (
	"bytes"
	"fmt"
	"text/template"
)

// Prompt templates for each generation call. Parsed once at init; stages
// render them against the current state. Per prd008-authoring R3.1 the
// templates are package data, not process-wide mutable state.

var thesisPromptTmpl = template.Must(template.New("thesis").Parse(`You are an expert academic researcher. Based on the research topic: '{{.Topic}}', formulate a clear, concise thesis statement that will guide the research.

A good thesis statement should:
1. Be specific and focused
2. Make a claim that requires evidence and analysis
3. Be debatable rather than stating a fact
4. Provide direction for the research

Return your thesis statement and a brief explanation of its significance.`))

var queryPromptTmpl = template.Must(template.New("query").Parse(`Based on the research topic: '{{.Topic}}' and thesis statement: '{{.Thesis}}', generate a search query to find relevant academic literature. Focus on finding key papers, theories, and methodologies. Return only the query text.`))

var gapQueryPromptTmpl = template.Must(template.New("gapquery").Parse(`Generate a search query to address this specific gap in the literature: '{{.Gap}}'

The query should help find sources related to the research topic: '{{.Topic}}' and thesis statement: '{{.Thesis}}'. Return only the query text.`))

var summarizerPromptTmpl = template.Must(template.New("summarizer").Parse(`Summarize the key findings from the literature on: '{{.Topic}}'

Focus on:
1. Major theories and frameworks
2. Key researchers and their contributions
3. Methodological approaches
4. Gaps in the existing literature

Sources:
{{.Sources}}`))

var addendumPromptTmpl = template.Must(template.New("addendum").Parse(`Update the literature summary with new findings for the research topic: '{{.Topic}}'

Previous summary:
{{.Summary}}

New sources:
{{.Sources}}

Provide a concise addendum that integrates the new information addressing this gap: '{{.Gap}}'.`))

var validationPromptTmpl = template.Must(template.New("validation").Parse(`Evaluate the sufficiency of the literature survey for the research topic: '{{.Topic}}'

Thesis statement: '{{.Thesis}}'

Literature summary:
{{.Summary}}

The survey draws on {{.SourceCount}} distinct sources (threshold: {{.MinSources}}).

Assess whether the literature survey:
1. Covers the key theories and frameworks relevant to the topic
2. Includes seminal works and major contributors
3. Identifies methodological approaches
4. Reveals gaps that the research could address

Return a JSON object with your assessment:
{"is_sufficient": true/false, "strengths": ["..."], "gaps": ["..."], "recommendation": "..."}`))

var gapPromptTmpl = template.Must(template.New("gaps").Parse(`Analyze the current state of the research paper on: '{{.Topic}}'

Thesis statement: '{{.Thesis}}'

Sections completed so far: {{.Completed}}
Current section being worked on: {{.Current}}

Identify knowledge gaps that need to be addressed to strengthen the paper. Focus on missing evidence, theoretical frameworks that should be included, methodological details, counter-arguments, and connections between sections.

Return a JSON object:
{"knowledge_gaps": [{"gap": "...", "relevance": "...", "section_affected": "...", "research_questions": ["..."]}], "priority_gap": "..."}`))

var draftPromptTmpl = template.Must(template.New("draft").Parse(`You are writing the {{.Section}} section of an academic paper for a {{.Audience}} audience.

Research topic: '{{.Topic}}'
Thesis statement: '{{.Thesis}}'

Section guidelines:
{{.Guidelines}}

Literature summary:
{{.Summary}}

Write the complete {{.Section}} section.`))

var coherencePromptTmpl = template.Must(template.New("coherence").Parse(`Analyze the coherence and logical flow between sections of the research paper on: '{{.Topic}}'

Thesis statement: '{{.Thesis}}'

Section summaries:
{{.Summaries}}

Evaluate the logical progression of ideas, consistency in terminology, transitions between sections, alignment with the thesis, and balance in coverage. For each issue identified, suggest specific improvements.`))

var coherenceReviseTmpl = template.Must(template.New("coherencerevise").Parse(`Based on the coherence analysis:

{{.Analysis}}

Revise the {{.Section}} section to improve overall paper coherence.

Current content:
{{.Content}}

Provide an improved version that addresses the coherence issues while maintaining the original content and insights.`))

var styleRefineTmpl = template.Must(template.New("style").Parse(`Refine the writing style of the {{.Section}} section of a research paper on: '{{.Topic}}'

Focus on academic tone, clarity and precision, appropriate technical terminology, conciseness, and consistent voice. Maintain the original content and insights.

Current content:
{{.Content}}

Provide a refined version with improved writing style.`))

var assemblyPromptTmpl = template.Must(template.New("assembly").Parse(`Assemble the complete research paper titled '{{.Title}}' on: '{{.Topic}}'

Thesis statement: '{{.Thesis}}'

Sections:
{{.Sections}}

Combine the sections into a polished, well-formatted paper in Markdown. Keep every section's content and the reference list intact, keep the title as the top-level heading, and smooth the transitions between sections. Return only the paper.`))

var citationPromptTmpl = template.Must(template.New("citation").Parse(`Format the following sources as a reference list in {{.Style}} style.

Sources (JSON):
{{.Sources}}

Return a JSON array of formatted citation strings, one per source, in the same order. Do not include any text outside the JSON array.`))

// render executes a template against data.
func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
