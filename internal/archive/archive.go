// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists finished and aborted runs in a SQLite database
// so past papers and their source trails can be listed, inspected, and
// exported. Implements: prd008-authoring (R7); docs/ARCHITECTURE § Run Archive.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "runs.db"
)

// Run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// RunRecord is one archived run: the run's identity, its outcome, and the
// document state projected into archivable fields. Sections and sources
// are stored as JSON blobs; the scalar columns exist for listing without
// decoding.
type RunRecord struct {
	ID          string    `json:"id" yaml:"id"`
	Topic       string    `json:"topic" yaml:"topic"`
	Title       string    `json:"title" yaml:"title"`
	Thesis      string    `json:"thesis" yaml:"thesis"`
	Outcome     string    `json:"outcome" yaml:"outcome"`
	FailedStage string    `json:"failed_stage,omitempty" yaml:"failed_stage,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`

	CitationStyle   types.CitationStyle `json:"citation_style" yaml:"citation_style"`
	ResearchLoops   int                 `json:"research_loops" yaml:"research_loops"`
	TargetedPasses  int                 `json:"targeted_passes" yaml:"targeted_passes"`
	GapCycles       int                 `json:"gap_cycles" yaml:"gap_cycles"`
	LoopBoundHit    bool                `json:"loop_bound_hit" yaml:"loop_bound_hit"`
	SourceCount     int                 `json:"source_count" yaml:"source_count"`

	Sections       map[types.SectionName]string `json:"sections" yaml:"sections"`
	Sources        []types.SourceRecord         `json:"sources" yaml:"sources"`
	FinalPaper     string                       `json:"final_paper,omitempty" yaml:"final_paper,omitempty"`
	RunningSummary string                       `json:"running_summary,omitempty" yaml:"running_summary,omitempty"`
}

// NewRunRecord projects a document state into an archive record.
// failedStage is empty for a completed run.
func NewRunRecord(st *types.DocumentState, failedStage string) RunRecord {
	outcome := OutcomeCompleted
	if failedStage != "" {
		outcome = OutcomeFailed
	}
	now := time.Now().UTC()
	return RunRecord{
		ID:             runID(st.Topic, now),
		Topic:          st.Topic,
		Title:          st.WorkingTitle,
		Thesis:         st.Thesis,
		Outcome:        outcome,
		FailedStage:    failedStage,
		CreatedAt:      now,
		CitationStyle:  st.CitationStyle,
		ResearchLoops:  st.ResearchLoopCount,
		TargetedPasses: st.TargetedResearchAttempts,
		GapCycles:      st.GapCycles,
		LoopBoundHit:   st.LoopBoundHit,
		SourceCount:    len(st.SourcesGathered),
		Sections:       st.Sections,
		Sources:        st.SourcesGathered,
		FinalPaper:     st.FinalPaper,
		RunningSummary: st.RunningSummary,
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// runID derives a stable identifier from the topic and start time, e.g.
// "renewable-energy-storage-20260824T101500Z".
func runID(topic string, t time.Time) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(topic), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "run"
	}
	if len(slug) > 48 {
		slug = slug[:48]
	}
	return slug + "-" + t.Format("20060102T150405Z")
}

// RunSummary is the listing projection of an archived run.
type RunSummary struct {
	ID           string    `json:"id" yaml:"id"`
	Topic        string    `json:"topic" yaml:"topic"`
	Outcome      string    `json:"outcome" yaml:"outcome"`
	FailedStage  string    `json:"failed_stage,omitempty" yaml:"failed_stage,omitempty"`
	SourceCount  int       `json:"source_count" yaml:"source_count"`
	LoopBoundHit bool      `json:"loop_bound_hit" yaml:"loop_bound_hit"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// Store manages the run archive SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// NewStore opens or creates the archive database at dir/index/runs.db,
// creating the schema if it does not exist.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: cfg.Dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			title TEXT,
			thesis TEXT,
			outcome TEXT NOT NULL,
			failed_stage TEXT,
			created_at TEXT NOT NULL,
			citation_style TEXT,
			research_loops INTEGER,
			targeted_passes INTEGER,
			gap_cycles INTEGER,
			loop_bound_hit INTEGER,
			source_count INTEGER,
			sections TEXT,
			sources TEXT,
			final_paper TEXT,
			running_summary TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun persists one run record. Saving the same ID twice replaces the
// earlier record.
func (s *Store) SaveRun(ctx context.Context, rec RunRecord) error {
	sectionsJSON, err := json.Marshal(rec.Sections)
	if err != nil {
		return fmt.Errorf("encoding sections: %w", err)
	}
	sourcesJSON, err := json.Marshal(rec.Sources)
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}

	boundHit := 0
	if rec.LoopBoundHit {
		boundHit = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
			(id, topic, title, thesis, outcome, failed_stage, created_at,
			 citation_style, research_loops, targeted_passes, gap_cycles,
			 loop_bound_hit, source_count, sections, sources, final_paper, running_summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Topic, rec.Title, rec.Thesis, rec.Outcome, rec.FailedStage,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(rec.CitationStyle), rec.ResearchLoops, rec.TargetedPasses,
		rec.GapCycles, boundHit, rec.SourceCount,
		string(sectionsJSON), string(sourcesJSON), rec.FinalPaper, rec.RunningSummary,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", rec.ID, err)
	}
	return nil
}

// ListRuns returns summaries of all archived runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, outcome, failed_stage, source_count, loop_bound_hit, created_at
		 FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			sum       RunSummary
			failed    sql.NullString
			boundHit  int
			createdAt string
		)
		if err := rows.Scan(&sum.ID, &sum.Topic, &sum.Outcome, &failed,
			&sum.SourceCount, &boundHit, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		sum.FailedStage = failed.String
		sum.LoopBoundHit = boundHit != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			sum.CreatedAt = t
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// GetRun loads one archived run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, topic, title, thesis, outcome, failed_stage, created_at,
			citation_style, research_loops, targeted_passes, gap_cycles,
			loop_bound_hit, source_count, sections, sources, final_paper, running_summary
		 FROM runs WHERE id = ?`, id)

	var (
		rec          RunRecord
		failed       sql.NullString
		createdAt    string
		style        string
		boundHit     int
		sectionsJSON string
		sourcesJSON  string
	)
	err := row.Scan(&rec.ID, &rec.Topic, &rec.Title, &rec.Thesis, &rec.Outcome,
		&failed, &createdAt, &style, &rec.ResearchLoops, &rec.TargetedPasses,
		&rec.GapCycles, &boundHit, &rec.SourceCount,
		&sectionsJSON, &sourcesJSON, &rec.FinalPaper, &rec.RunningSummary)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	rec.FailedStage = failed.String
	rec.CitationStyle = types.CitationStyle(style)
	rec.LoopBoundHit = boundHit != 0
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if sectionsJSON != "" {
		if err := json.Unmarshal([]byte(sectionsJSON), &rec.Sections); err != nil {
			return nil, fmt.Errorf("decoding sections for %s: %w", id, err)
		}
	}
	if sourcesJSON != "" {
		if err := json.Unmarshal([]byte(sourcesJSON), &rec.Sources); err != nil {
			return nil, fmt.Errorf("decoding sources for %s: %w", id, err)
		}
	}
	return &rec, nil
}

// ExportYAML writes one archived run to dir/index/[id].yaml and returns
// the path written.
func (s *Store) ExportYAML(ctx context.Context, id string) (string, error) {
	rec, err := s.GetRun(ctx, id)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.dir, indexDir, id+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
