package priorart

import "math"

const (
	confidenceResultTarget = 20.0
	confidenceQueryTarget  = 3.0
	duplicationFloor       = 0.5
)

// Confidence estimates search thoroughness from result volume, query
// diversity and duplication. It is 0 when the provider returned nothing.
func Confidence(uniqueResults, totalRawHits, executedQueries int) float64 {
	if totalRawHits <= 0 {
		return 0
	}
	volume := math.Min(1, float64(uniqueResults)/confidenceResultTarget)
	diversity := math.Min(1, float64(executedQueries)/confidenceQueryTarget)
	duplication := math.Max(duplicationFloor, float64(uniqueResults)/float64(max(1, totalRawHits)))
	mean := (volume + diversity + duplication) / 3
	return clamp01(math.Round(mean*100) / 100)
}
