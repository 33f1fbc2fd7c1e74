package assessment

import (
	"fmt"
	"math"

	"github.com/joelkehle/priorart-engine/internal/priorart"
)

const (
	highSimilarityThreshold   = 0.7
	mediumSimilarityThreshold = 0.4
	impactTitleChars          = 60
	itemizedHighPatents       = 3

	noPriorArtSummary        = "No relevant prior art found"
	detailedComparisonAdvice = "Conduct detailed comparison with highly similar prior art patents before filing"
	differentiationAdvice    = "Review moderately similar patents to identify and emphasize points of differentiation"
	broadenSearchAdvice      = "Broaden the prior art search with additional keywords and classifications"
	limitedConflictsNote     = "Limited prior art conflicts identified in the searched corpus"
	favorableLandscapeNote   = "Prior art landscape appears favorable for a patent filing"
)

// Impact is the score adjustment derived from a prior-art search. It is
// computed per request and never stored.
type Impact struct {
	NoveltyReduction          float64  `json:"novelty_reduction"`
	ObviousnessIncrease       float64  `json:"obviousness_increase"`
	HighSimilarityCount       int      `json:"high_similarity_count"`
	MediumSimilarityCount     int      `json:"medium_similarity_count"`
	Summary                   string   `json:"summary"`
	AdditionalRecommendations []string `json:"additional_recommendations"`
	AdditionalRiskFactors     []string `json:"additional_risk_factors"`
}

// ComputeImpact buckets the ranked patents by similarity and derives the
// novelty and obviousness deltas. Patents below 0.4 do not count.
func ComputeImpact(result priorart.PriorArtSearchResult) Impact {
	var high, medium []priorart.PatentResult
	for _, p := range result.Patents {
		switch {
		case p.SimilarityScore > highSimilarityThreshold:
			high = append(high, p)
		case p.SimilarityScore >= mediumSimilarityThreshold:
			medium = append(medium, p)
		}
	}

	imp := Impact{
		HighSimilarityCount:       len(high),
		MediumSimilarityCount:     len(medium),
		AdditionalRecommendations: []string{},
		AdditionalRiskFactors:     []string{},
	}
	switch {
	case len(high) > 0:
		imp.NoveltyReduction = round2(math.Min(0.4, 0.1*float64(len(high))))
		imp.ObviousnessIncrease = round2(math.Min(0.3, 0.08*float64(len(high))))
		imp.Summary = fmt.Sprintf("Found %d highly similar and %d moderately similar patents", len(high), len(medium))
		imp.AdditionalRiskFactors = append(imp.AdditionalRiskFactors,
			fmt.Sprintf("%d highly similar patents may affect novelty", len(high)))
		for _, p := range high[:min(len(high), itemizedHighPatents)] {
			imp.AdditionalRiskFactors = append(imp.AdditionalRiskFactors,
				fmt.Sprintf("Similar patent: %s - %s", p.PatentID, truncateTitle(p.Title)))
		}
		imp.AdditionalRecommendations = append(imp.AdditionalRecommendations, detailedComparisonAdvice)
	case len(medium) > 0:
		imp.NoveltyReduction = round2(math.Min(0.2, 0.05*float64(len(medium))))
		imp.ObviousnessIncrease = round2(math.Min(0.15, 0.04*float64(len(medium))))
		imp.Summary = fmt.Sprintf("Found %d moderately similar patents", len(medium))
		imp.AdditionalRecommendations = append(imp.AdditionalRecommendations, differentiationAdvice)
	default:
		imp.Summary = noPriorArtSummary
		imp.AdditionalRecommendations = append(imp.AdditionalRecommendations, broadenSearchAdvice)
	}

	if len(imp.AdditionalRiskFactors) == 0 {
		imp.AdditionalRiskFactors = []string{limitedConflictsNote}
	}
	if len(imp.AdditionalRecommendations) == 0 {
		imp.AdditionalRecommendations = []string{favorableLandscapeNote}
	}
	return imp
}

// Apply lowers novelty and non-obviousness by the impact deltas, never below
// zero, and appends the impact's narrative items.
func (imp Impact) Apply(c Criteria) Criteria {
	c.Novelty = round2(math.Max(0, c.Novelty-imp.NoveltyReduction))
	c.NonObviousness = round2(math.Max(0, c.NonObviousness-imp.ObviousnessIncrease))
	c.Recommendations = append(append([]string{}, c.Recommendations...), imp.AdditionalRecommendations...)
	c.RiskFactors = append(append([]string{}, c.RiskFactors...), imp.AdditionalRiskFactors...)
	return c
}

func truncateTitle(title string) string {
	r := []rune(title)
	if len(r) <= impactTitleChars {
		return title
	}
	return string(r[:impactTitleChars]) + "..."
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
