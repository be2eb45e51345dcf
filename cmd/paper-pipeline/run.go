// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-pipeline/internal/archive"
	"github.com/pdiddy/paper-pipeline/internal/generate"
	"github.com/pdiddy/paper-pipeline/internal/retrieve"
	"github.com/pdiddy/paper-pipeline/internal/sources"
	"github.com/pdiddy/paper-pipeline/internal/stages"
	"github.com/pdiddy/paper-pipeline/internal/workflow"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Author a research paper on a topic",
	Long: `Run executes the full authoring workflow for a topic: thesis formulation,
literature survey with web retrieval, survey validation with bounded targeted
research, section drafting with gap-closing cycles, coherence and style
revision, citation formatting, and final assembly.

The finished paper is printed to stdout (or written with --output). The run is
archived either way, including aborted runs, which record the failing stage
and the state reached.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	cfg := pipelineConfig()

	if style, _ := cmd.Flags().GetString("style"); style != "" {
		s := types.CitationStyle(style)
		if !s.Valid() {
			return fmt.Errorf("unsupported citation style %q: use APA, MLA, Chicago, or IEEE", style)
		}
		cfg.Workflow.CitationStyle = s
	}
	if audience, _ := cmd.Flags().GetString("audience"); audience != "" {
		cfg.Workflow.TargetAudience = audience
	}
	if n, _ := cmd.Flags().GetInt("max-targeted-attempts"); cmd.Flags().Changed("max-targeted-attempts") {
		cfg.Workflow.MaxTargetedResearchAttempts = n
	}
	if n, _ := cmd.Flags().GetInt("max-gap-cycles"); cmd.Flags().Changed("max-gap-cycles") {
		cfg.Workflow.MaxGapCycles = n
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Generation.Model = model
	}

	if cfg.Generation.APIKey == "" {
		return fmt.Errorf("no generation API key: put it in .secrets/anthropic-api-key or set generation.api_key")
	}

	gen := &generate.ClaudeBackend{Config: cfg.Generation}
	ret := &retrieve.TavilyBackend{Config: cfg.Retrieval}

	graph, err := stages.New(gen, ret, cfg).Build()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	state := types.NewDocumentState(topic)
	final, runErr := workflow.Run(ctx, graph, state, workflow.Options{
		MaxSteps: cfg.Workflow.MaxSteps,
		Progress: os.Stderr,
	})

	// Archive the run whether it finished or aborted. Archive failures are
	// warnings: they must not mask the run result.
	if noArchive, _ := cmd.Flags().GetBool("no-archive"); !noArchive {
		failedStage := ""
		if se, ok := workflow.AsStageError(runErr); ok {
			failedStage = se.Stage
		}
		if err := archiveRun(final, failedStage, cfg.Archive); err != nil {
			fmt.Fprintf(os.Stderr, "warning: archiving run: %v\n", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	reportDiagnostics(final, cfg)

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(final.Output())
	}

	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		if err := os.WriteFile(outPath, []byte(final.FinalPaper), 0o644); err != nil {
			return fmt.Errorf("writing paper: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", outPath)
		return nil
	}

	fmt.Println(final.FinalPaper)
	return nil
}

// reportDiagnostics prints post-run quality signals to stderr: structure
// checks, citation density against the configured minimum, and retrieval
// pass counts against the research loop budget.
func reportDiagnostics(st *types.DocumentState, cfg types.PipelineConfig) {
	checks := sources.ValidatePaperStructure(st.Sections, cfg.Workflow.Validation.MinSections)
	fmt.Fprintf(os.Stderr, "Sections complete: %d", checks.CompletedSections)
	if len(checks.MissingCritical) > 0 {
		fmt.Fprintf(os.Stderr, " (missing: %v)", checks.MissingCritical)
	}
	fmt.Fprintln(os.Stderr)

	citations := sources.CountCitations(st.FinalPaper)
	if citations < cfg.Workflow.Validation.MinCitations {
		fmt.Fprintf(os.Stderr, "warning: %d inline citations, below the minimum of %d\n",
			citations, cfg.Workflow.Validation.MinCitations)
	}
	if st.ResearchLoopCount > cfg.Workflow.MaxResearchLoops {
		fmt.Fprintf(os.Stderr, "warning: %d retrieval passes exceeded the research loop budget of %d\n",
			st.ResearchLoopCount, cfg.Workflow.MaxResearchLoops)
	}
	if st.LoopBoundHit {
		fmt.Fprintln(os.Stderr, "note: a refinement loop hit its attempt bound; the paper is best-effort")
	}
}

func archiveRun(st *types.DocumentState, failedStage string, cfg types.ArchiveConfig) error {
	if st == nil {
		return errors.New("no state to archive")
	}
	store, err := archive.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rec := archive.NewRunRecord(st, failedStage)
	if err := store.SaveRun(context.Background(), rec); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Archived run %s\n", rec.ID)
	return nil
}

func init() {
	runCmd.Flags().String("style", "", "citation style: APA, MLA, Chicago, IEEE")
	runCmd.Flags().String("audience", "", "target audience register (default academic)")
	runCmd.Flags().Int("max-targeted-attempts", 0, "bound on targeted research passes before drafting proceeds")
	runCmd.Flags().Int("max-gap-cycles", 0, "bound on drafting-time gap-closing cycles")
	runCmd.Flags().String("model", "", "generation model identifier")
	runCmd.Flags().String("output", "", "write the final paper to a file instead of stdout")
	runCmd.Flags().Bool("json", false, "print the run output as JSON")
	runCmd.Flags().Bool("no-archive", false, "skip archiving this run")

	rootCmd.AddCommand(runCmd)
}
