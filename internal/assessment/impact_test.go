package assessment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/priorart-engine/internal/priorart"
)

func resultWithScores(scores ...float64) priorart.PriorArtSearchResult {
	res := priorart.PriorArtSearchResult{}
	for i, s := range scores {
		res.Patents = append(res.Patents, priorart.PatentResult{
			PatentID:        "US" + strings.Repeat("1", i+1),
			Title:           "Patent number " + strings.Repeat("x", i),
			SimilarityScore: s,
		})
	}
	return res
}

func TestComputeImpactHighSimilarity(t *testing.T) {
	imp := ComputeImpact(resultWithScores(0.9, 0.8, 0.75, 0.5))

	assert.Equal(t, 3, imp.HighSimilarityCount)
	assert.Equal(t, 1, imp.MediumSimilarityCount)
	assert.Equal(t, 0.3, imp.NoveltyReduction)
	assert.Equal(t, 0.24, imp.ObviousnessIncrease)
	require.Len(t, imp.AdditionalRiskFactors, 4)
	assert.Contains(t, imp.AdditionalRiskFactors[0], "3 highly similar")
	assert.Contains(t, imp.AdditionalRiskFactors[1], "US1")
	assert.Equal(t, []string{detailedComparisonAdvice}, imp.AdditionalRecommendations)
}

func TestComputeImpactCapsDeltas(t *testing.T) {
	imp := ComputeImpact(resultWithScores(0.95, 0.94, 0.93, 0.92, 0.91, 0.9))
	assert.Equal(t, 0.4, imp.NoveltyReduction)
	assert.Equal(t, 0.3, imp.ObviousnessIncrease)
	// count note plus the top three only
	assert.Len(t, imp.AdditionalRiskFactors, 4)
}

func TestComputeImpactMediumOnly(t *testing.T) {
	imp := ComputeImpact(resultWithScores(0.7, 0.4, 0.55, 0.1))
	assert.Equal(t, 0, imp.HighSimilarityCount)
	assert.Equal(t, 3, imp.MediumSimilarityCount)
	assert.Equal(t, 0.15, imp.NoveltyReduction)
	assert.Equal(t, 0.12, imp.ObviousnessIncrease)
	assert.Equal(t, []string{differentiationAdvice}, imp.AdditionalRecommendations)
	assert.Equal(t, []string{limitedConflictsNote}, imp.AdditionalRiskFactors)
}

func TestComputeImpactNoPatents(t *testing.T) {
	imp := ComputeImpact(priorart.PriorArtSearchResult{})
	assert.Equal(t, 0.0, imp.NoveltyReduction)
	assert.Equal(t, 0.0, imp.ObviousnessIncrease)
	assert.Equal(t, noPriorArtSummary, imp.Summary)
	assert.Equal(t, []string{broadenSearchAdvice}, imp.AdditionalRecommendations)
	assert.Equal(t, []string{limitedConflictsNote}, imp.AdditionalRiskFactors)
}

func TestComputeImpactIgnoresLowSimilarity(t *testing.T) {
	imp := ComputeImpact(resultWithScores(0.39, 0.2))
	assert.Equal(t, 0.0, imp.NoveltyReduction)
	assert.Equal(t, noPriorArtSummary, imp.Summary)
}

func TestImpactTruncatesLongTitles(t *testing.T) {
	res := priorart.PriorArtSearchResult{Patents: []priorart.PatentResult{{
		PatentID:        "EP1",
		Title:           strings.Repeat("t", 200),
		SimilarityScore: 0.99,
	}}}
	imp := ComputeImpact(res)
	require.Len(t, imp.AdditionalRiskFactors, 2)
	assert.Equal(t, "Similar patent: EP1 - "+strings.Repeat("t", impactTitleChars)+"...", imp.AdditionalRiskFactors[1])
}

func TestApplyNeverNegative(t *testing.T) {
	c := Criteria{Novelty: 0.2, NonObviousness: 0.1, Utility: 0.9, Enablement: 0.8, Recommendations: []string{"file early"}}
	imp := ComputeImpact(resultWithScores(0.9, 0.9, 0.9, 0.9))
	got := imp.Apply(c)

	assert.Equal(t, 0.0, got.Novelty)
	assert.Equal(t, 0.0, got.NonObviousness)
	assert.Equal(t, 0.9, got.Utility)
	assert.Equal(t, []string{"file early", detailedComparisonAdvice}, got.Recommendations)
	assert.Equal(t, []string{"file early"}, c.Recommendations)
}

func TestApplySubtractsDeltas(t *testing.T) {
	c := Criteria{Novelty: 0.85, NonObviousness: 0.7}
	got := ComputeImpact(resultWithScores(0.9, 0.8, 0.75, 0.5)).Apply(c)
	assert.Equal(t, 0.55, got.Novelty)
	assert.Equal(t, 0.46, got.NonObviousness)
}
