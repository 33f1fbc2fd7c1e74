package priorart

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	recencyWindowYears = 20.0
	recencyMaxBoost    = 0.2
	reasonMinWordChars = 5
)

// Rank drops later duplicates of a patent identifier, scores the survivors
// against the invention description, and returns them ordered by
// similarity, truncated to maxResults.
func Rank(candidates []PatentResult, description string, maxResults int, now time.Time) []PatentResult {
	seen := map[string]struct{}{}
	unique := make([]PatentResult, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.PatentID]; dup {
			continue
		}
		seen[c.PatentID] = struct{}{}
		unique = append(unique, c)
	}

	for i := range unique {
		unique[i].SimilarityScore = SimilarityScore(unique[i], description, now.Year())
		unique[i].RelevanceReason = RelevanceReason(unique[i], description)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].SimilarityScore > unique[j].SimilarityScore
	})
	if maxResults >= 0 && len(unique) > maxResults {
		unique = unique[:maxResults]
	}
	return unique
}

// SimilarityScore is the Jaccard similarity of title+abstract words against
// the description words, boosted for recent publications and clamped to [0,1].
func SimilarityScore(p PatentResult, description string, currentYear int) float64 {
	patentWords := wordSet(p.Title+" "+p.Abstract, 0)
	inventionWords := wordSet(description, 0)

	inter := 0
	for w := range patentWords {
		if _, ok := inventionWords[w]; ok {
			inter++
		}
	}
	union := len(patentWords) + len(inventionWords) - inter
	if union == 0 {
		return 0
	}
	score := float64(inter) / float64(union)
	if year, ok := publicationYear(p.PublicationDate); ok {
		boost := math.Max(0, 1-float64(currentYear-year)/recencyWindowYears)
		score *= 1 + recencyMaxBoost*boost
	}
	return clamp01(score)
}

func RelevanceReason(p PatentResult, description string) string {
	patentWords := wordSet(p.Title+" "+p.Abstract, reasonMinWordChars)
	inventionWords := wordSet(description, reasonMinWordChars)
	common := []string{}
	for w := range patentWords {
		if _, ok := inventionWords[w]; ok {
			common = append(common, w)
		}
	}
	switch {
	case len(common) >= 3:
		sort.Strings(common)
		return fmt.Sprintf("Shares key concepts: %s", strings.Join(common[:3], ", "))
	case p.Assignee != "":
		return fmt.Sprintf("Related work by %s", p.Assignee)
	case p.PatentOffice == "USPTO":
		return "US patent in similar technical field"
	default:
		return "Similar technical approach"
	}
}

func publicationYear(date string) (int, bool) {
	if date == "" {
		return 0, false
	}
	year, err := strconv.Atoi(strings.TrimSpace(strings.SplitN(date, "-", 2)[0]))
	if err != nil {
		return 0, false
	}
	return year, true
}

func wordSet(text string, minChars int) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if utf8.RuneCountInString(w) < minChars {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
