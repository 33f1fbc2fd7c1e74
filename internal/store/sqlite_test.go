package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/priorart-engine/internal/assessment"
	"github.com/joelkehle/priorart-engine/internal/priorart"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("search-%d", n)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(at time.Time) priorart.PriorArtSearchResult {
	return priorart.PriorArtSearchResult{
		Query:        "Multi-strategy search: Robotics",
		TotalResults: 4,
		Patents: []priorart.PatentResult{
			{PatentID: "US20210123456A1", Title: "Gripper", Inventors: []string{"Ada"}, Classification: []string{}, PatentOffice: "USPTO", SimilarityScore: 0.82, RelevanceReason: "Related work by Acme"},
			{PatentID: "EP3456789B1", Title: "Arm", Inventors: []string{}, Classification: []string{}, PatentOffice: "EPO", SimilarityScore: 0.2},
		},
		SearchDurationMS: 1234,
		SearchTimestamp:  at,
		ConfidenceScore:  0.61,
		SearchStrategy:   priorart.SearchStrategyLabel,
		Request: priorart.SearchRequest{
			TechnicalField: "Robotics",
			Keywords:       []string{"gripper"},
			MaxResults:     20,
			DateRange:      &priorart.DateRange{Start: "2020-01-01", End: "2024-12-31"},
		},
	}
}

func TestSaveAndGetAssessment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 2, 17, 9, 30, 0, 0, time.UTC)
	res := sampleResult(created)

	a := assessment.Assessment{
		ID:                  "a-1",
		ProjectTitle:        "Gripper",
		Description:         "A soft robotic gripper.",
		TechnicalField:      "Robotics",
		Status:              assessment.StatusCompleted,
		NoveltyScore:        0.5,
		NonObviousnessScore: 0.42,
		UtilityScore:        0.9,
		EnablementScore:     0.7,
		OverallScore:        0.63,
		ConfidenceLevel:     0.8,
		Summary:             "Good.",
		Recommendations:     []string{"file"},
		KeyFeatures:         []string{"soft"},
		RiskFactors:         nil,
		PriorArt:            &res,
		PriorArtImpact:      &assessment.Impact{NoveltyReduction: 0.1},
		CreatedAt:           created,
		CompletedAt:         created.Add(2 * time.Second),
		ProcessingTimeMS:    2000,
	}
	require.NoError(t, s.SaveAssessment(ctx, a))

	got, err := s.GetAssessment(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, "Gripper", got.ProjectTitle)
	assert.Equal(t, assessment.StatusCompleted, got.Status)
	assert.Equal(t, 0.42, got.NonObviousnessScore)
	assert.Equal(t, 0.63, got.OverallScore)
	assert.Equal(t, []string{"file"}, got.Recommendations)
	assert.Equal(t, []string{}, got.RiskFactors)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, int64(2000), got.ProcessingTimeMS)
	assert.Nil(t, got.PriorArtImpact)

	require.NotNil(t, got.PriorArt)
	assert.Equal(t, res.Query, got.PriorArt.Query)
	assert.Equal(t, 4, got.PriorArt.TotalResults)
	assert.Equal(t, res.Patents, got.PriorArt.Patents)
	assert.Equal(t, 0.61, got.PriorArt.ConfidenceScore)
	assert.Equal(t, int64(1234), got.PriorArt.SearchDurationMS)
	assert.Equal(t, "2020-01-01", got.PriorArt.Request.DateRange.Start)

	var found string
	require.NoError(t, s.db.Get(&found, `SELECT prior_art_found FROM assessments WHERE id = ?`, "a-1"))
	assert.JSONEq(t, `["US20210123456A1","EP3456789B1"]`, found)

	rec, err := s.GetPriorArtSearch(ctx, "search-1")
	require.NoError(t, err)
	assert.Equal(t, "a-1", rec.AssessmentID)
	assert.Equal(t, priorart.SearchDatabase, rec.SearchDatabase)
	assert.Equal(t, 1, rec.RelevantResultsCount)
	assert.Equal(t, []string{"gripper"}, rec.Filters.Keywords)
}

func TestSaveAssessmentWithoutPriorArt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := assessment.Assessment{ID: "a-2", ProjectTitle: "T", Description: "D", Status: assessment.StatusCompleted, PriorArtError: "provider down", CreatedAt: time.Now()}
	require.NoError(t, s.SaveAssessment(ctx, a))

	got, err := s.GetAssessment(ctx, "a-2")
	require.NoError(t, err)
	assert.Nil(t, got.PriorArt)
	assert.Equal(t, "provider down", got.PriorArtError)

	list, err := s.ListPriorArtSearches(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaveAssessmentReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := assessment.Assessment{ID: "a-3", ProjectTitle: "T", Description: "D", Status: assessment.StatusProcessing, CreatedAt: time.Now()}
	require.NoError(t, s.SaveAssessment(ctx, a))
	a.Status = assessment.StatusCompleted
	require.NoError(t, s.SaveAssessment(ctx, a))

	got, err := s.GetAssessment(ctx, "a-3")
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusCompleted, got.Status)
}

func TestGetAssessmentNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetAssessment(context.Background(), "nope")
	require.ErrorIs(t, err, assessment.ErrNotFound)

	_, err = s.GetPriorArtSearch(context.Background(), "nope")
	require.ErrorIs(t, err, assessment.ErrNotFound)
}

func TestStandaloneSearches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		res := sampleResult(base.Add(time.Duration(i) * time.Hour))
		res.Query = fmt.Sprintf("Multi-strategy search: field-%d", i)
		id, err := s.SavePriorArtSearch(ctx, res)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("search-%d", i+1), id)
	}

	list, err := s.ListPriorArtSearches(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "search-3", list[0].ID)
	assert.Equal(t, "search-2", list[1].ID)
	assert.Empty(t, list[0].AssessmentID)
	assert.Len(t, list[0].Result.Patents, 2)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.SaveAssessment(context.Background(), assessment.Assessment{ID: "a-9", ProjectTitle: "T", Description: "D", CreatedAt: time.Now()}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Ping(context.Background()))
	got, err := s2.GetAssessment(context.Background(), "a-9")
	require.NoError(t, err)
	assert.Equal(t, "T", got.ProjectTitle)
}

func TestListSearchesOrdersWithinSameSecond(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)

	_, err := s.SavePriorArtSearch(ctx, sampleResult(base))
	require.NoError(t, err)
	_, err = s.SavePriorArtSearch(ctx, sampleResult(base.Add(500*time.Millisecond)))
	require.NoError(t, err)

	list, err := s.ListPriorArtSearches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "search-2", list[0].ID)
	assert.Equal(t, "search-1", list[1].ID)
	assert.True(t, list[0].Result.SearchTimestamp.Equal(base.Add(500*time.Millisecond)))
}

func TestGetAssessmentUsesLatestSearchWithinSameSecond(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)

	older := sampleResult(base)
	require.NoError(t, s.SaveAssessment(ctx, assessment.Assessment{ID: "a-1", ProjectTitle: "T", Description: "D", PriorArt: &older, CreatedAt: base}))
	newer := sampleResult(base.Add(250 * time.Millisecond))
	newer.Query = "Multi-strategy search: newer"
	require.NoError(t, s.SaveAssessment(ctx, assessment.Assessment{ID: "a-1", ProjectTitle: "T", Description: "D", PriorArt: &newer, CreatedAt: base}))

	got, err := s.GetAssessment(ctx, "a-1")
	require.NoError(t, err)
	require.NotNil(t, got.PriorArt)
	assert.Equal(t, "Multi-strategy search: newer", got.PriorArt.Query)
}

func TestCorruptSearchRowIsAnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SavePriorArtSearch(ctx, sampleResult(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE prior_art_searches SET results = 'not json' WHERE id = ?`, id)
	require.NoError(t, err)

	_, err = s.GetPriorArtSearch(ctx, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode results of search "+id)

	_, err = s.ListPriorArtSearches(ctx, 10)
	require.Error(t, err)
}
