// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.ArchiveConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func completedState() *types.DocumentState {
	st := types.NewDocumentState("renewable energy storage")
	st.WorkingTitle = "Research on renewable energy storage"
	st.Thesis = "Storage is essential."
	st.ResearchLoopCount = 3
	st.TargetedResearchAttempts = 2
	st.GapCycles = 1
	st.LoopBoundHit = true
	st.SourcesGathered = []types.SourceRecord{
		{Title: "One", URL: "https://x/1"},
		{Title: "Two", URL: "https://x/2"},
	}
	st.SetSection(types.SectionAbstract, "abstract body")
	st.SetSection(types.SectionConclusion, "conclusion body")
	st.FinalPaper = "# The Paper"
	st.RunningSummary = "summary"
	return st
}

func TestSaveAndGetRun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := NewRunRecord(completedState(), "")
	assert.Equal(t, OutcomeCompleted, rec.Outcome)
	require.NoError(t, store.SaveRun(ctx, rec))

	got, err := store.GetRun(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, "renewable energy storage", got.Topic)
	assert.Equal(t, "Storage is essential.", got.Thesis)
	assert.Equal(t, 3, got.ResearchLoops)
	assert.Equal(t, 2, got.TargetedPasses)
	assert.Equal(t, 1, got.GapCycles)
	assert.True(t, got.LoopBoundHit)
	assert.Equal(t, 2, got.SourceCount)
	assert.Len(t, got.Sources, 2)
	assert.Equal(t, "abstract body", got.Sections[types.SectionAbstract])
	assert.Equal(t, "# The Paper", got.FinalPaper)
	assert.Equal(t, "summary", got.RunningSummary)
	assert.Equal(t, types.StyleAPA, got.CitationStyle)
}

func TestSaveAbortedRun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	st := types.NewDocumentState("topic")
	st.Thesis = "partial thesis"
	rec := NewRunRecord(st, "literature_survey")
	assert.Equal(t, OutcomeFailed, rec.Outcome)
	require.NoError(t, store.SaveRun(ctx, rec))

	got, err := store.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "literature_survey", got.FailedStage)
	assert.Equal(t, "partial thesis", got.Thesis, "partial state must survive the round trip")
}

func TestListRunsNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := NewRunRecord(completedState(), "")
	first.ID = "run-a"
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	second := NewRunRecord(completedState(), "draft_section")
	second.ID = "run-b"

	for _, rec := range []RunRecord{first, second} {
		require.NoError(t, store.SaveRun(ctx, rec))
	}

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, "run-a", runs[1].ID)
	assert.Equal(t, OutcomeFailed, runs[0].Outcome)
	assert.Equal(t, "draft_section", runs[0].FailedStage)
}

func TestSaveRunReplacesSameID(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := NewRunRecord(completedState(), "")
	require.NoError(t, store.SaveRun(ctx, rec))

	rec.Thesis = "revised thesis"
	require.NoError(t, store.SaveRun(ctx, rec))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	got, err := store.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "revised thesis", got.Thesis)
}

func TestGetRunNotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.GetRun(context.Background(), "nope")
	assert.Error(t, err)
}

func TestExportYAML(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := NewRunRecord(completedState(), "")
	require.NoError(t, store.SaveRun(ctx, rec))

	path, err := store.ExportYAML(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, ".yaml", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "topic: renewable energy storage")
	assert.Contains(t, string(data), "abstract body")
}

func TestRunID(t *testing.T) {
	ts := time.Date(2026, 8, 24, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, "renewable-energy-storage-20260824T101500Z",
		runID("Renewable Energy: Storage!", ts))

	longTopic := "a very long topic name that keeps going and going and going well past the slug cap"
	id := runID(longTopic, ts)
	assert.LessOrEqual(t, len(id), 48+1+16)

	assert.True(t, len(runID("", ts)) > 0)
	assert.Contains(t, runID("!!!", ts), "run-")
}
