// Package report renders assessments and prior-art searches as markdown,
// HTML and PDF.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/priorart-engine/internal/assessment"
	"github.com/joelkehle/priorart-engine/internal/priorart"
)

const Disclaimer = "> This report is an automated preliminary screen. It is not legal advice and does not replace a professional patentability opinion or a full prior-art search."

const topPatentsInTable = 20

func BuildAssessmentMarkdown(a assessment.Assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Patentability Assessment Report\n\n")
	fmt.Fprintf(&b, "- Assessment ID: %s\n", safe(a.ID))
	fmt.Fprintf(&b, "- Invention: %s\n", safe(a.ProjectTitle))
	fmt.Fprintf(&b, "- Technical field: %s\n", safe(a.TechnicalField))
	fmt.Fprintf(&b, "- Date: %s\n\n", formatTime(a.CompletedAt))
	fmt.Fprintf(&b, "%s\n\n", Disclaimer)

	fmt.Fprintf(&b, "## Executive Summary\n\n")
	fmt.Fprintf(&b, "**Overall patentability:** %s\n\n", percent(a.OverallScore))
	fmt.Fprintf(&b, "%s\n\n", safe(a.Summary))

	buildScores(&b, a)
	buildImpact(&b, a)
	if a.PriorArt != nil {
		buildPatentTable(&b, *a.PriorArt)
	}
	buildList(&b, "Key Features", a.KeyFeatures)
	buildList(&b, "Recommendations", a.Recommendations)
	buildList(&b, "Risk Factors", a.RiskFactors)
	if a.PriorArt != nil {
		buildSearchMetadata(&b, *a.PriorArt)
	}
	return b.String()
}

func BuildSearchMarkdown(res priorart.PriorArtSearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Prior Art Search Report\n\n")
	fmt.Fprintf(&b, "- Query: %s\n", safe(res.Query))
	fmt.Fprintf(&b, "- Date: %s\n\n", formatTime(res.SearchTimestamp))
	fmt.Fprintf(&b, "%s\n\n", Disclaimer)
	buildPatentTable(&b, res)
	buildSearchMetadata(&b, res)
	return b.String()
}

func buildScores(b *strings.Builder, a assessment.Assessment) {
	fmt.Fprintf(b, "## Scores\n\n")
	fmt.Fprintf(b, "| Criterion | Score |\n|---|---|\n")
	fmt.Fprintf(b, "| Novelty | %s |\n", percent(a.NoveltyScore))
	fmt.Fprintf(b, "| Non-obviousness | %s |\n", percent(a.NonObviousnessScore))
	fmt.Fprintf(b, "| Utility | %s |\n", percent(a.UtilityScore))
	fmt.Fprintf(b, "| Enablement | %s |\n", percent(a.EnablementScore))
	fmt.Fprintf(b, "| Overall | %s |\n", percent(a.OverallScore))
	fmt.Fprintf(b, "| Analysis confidence | %s |\n\n", percent(a.ConfidenceLevel))
}

func buildImpact(b *strings.Builder, a assessment.Assessment) {
	fmt.Fprintf(b, "## Prior Art Impact\n\n")
	switch {
	case a.PriorArtImpact != nil:
		imp := a.PriorArtImpact
		fmt.Fprintf(b, "%s.\n\n", strings.TrimSuffix(safe(imp.Summary), "."))
		fmt.Fprintf(b, "- Highly similar patents: %d\n", imp.HighSimilarityCount)
		fmt.Fprintf(b, "- Moderately similar patents: %d\n", imp.MediumSimilarityCount)
		fmt.Fprintf(b, "- Novelty reduction: %.2f\n", imp.NoveltyReduction)
		fmt.Fprintf(b, "- Obviousness increase: %.2f\n\n", imp.ObviousnessIncrease)
	case a.PriorArtError != "":
		fmt.Fprintf(b, "**Prior-art search unavailable.** Scores are not adjusted for prior art.\n\n")
		fmt.Fprintf(b, "- Reason: %s\n\n", safe(a.PriorArtError))
	default:
		fmt.Fprintf(b, "Prior-art search was not run for this assessment.\n\n")
	}
}

func buildPatentTable(b *strings.Builder, res priorart.PriorArtSearchResult) {
	fmt.Fprintf(b, "## Ranked Prior Art\n\n")
	if len(res.Patents) == 0 {
		fmt.Fprintf(b, "No candidate patents were found.\n\n")
		return
	}
	fmt.Fprintf(b, "| # | Patent | Title | Assignee | Published | Similarity | Why |\n")
	fmt.Fprintf(b, "|---|---|---|---|---|---|---|\n")
	for i, p := range res.Patents {
		if i == topPatentsInTable {
			break
		}
		fmt.Fprintf(b, "| %d | [%s](%s) | %s | %s | %s | %.2f | %s |\n",
			i+1, p.PatentID, p.URL, cell(p.Title), cell(p.Assignee), cell(p.PublicationDate), p.SimilarityScore, cell(p.RelevanceReason))
	}
	if len(res.Patents) > topPatentsInTable {
		fmt.Fprintf(b, "\n_%d more results omitted._\n", len(res.Patents)-topPatentsInTable)
	}
	b.WriteString("\n")
}

func buildList(b *strings.Builder, heading string, items []string) {
	fmt.Fprintf(b, "## %s\n\n", heading)
	if len(items) == 0 {
		fmt.Fprintf(b, "- (none)\n\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", safe(it))
	}
	b.WriteString("\n")
}

func buildSearchMetadata(b *strings.Builder, res priorart.PriorArtSearchResult) {
	fmt.Fprintf(b, "## Search Metadata\n\n")
	fmt.Fprintf(b, "- Strategy: %s\n", safe(res.SearchStrategy))
	fmt.Fprintf(b, "- Raw hits: %d\n", res.TotalResults)
	fmt.Fprintf(b, "- Unique patents: %d\n", len(res.Patents))
	fmt.Fprintf(b, "- Search confidence: %.2f\n", res.ConfidenceScore)
	fmt.Fprintf(b, "- Duration: %d ms\n", res.SearchDurationMS)
	for _, q := range res.Queries {
		fmt.Fprintf(b, "- Query `%s`: %s\n", q.Strategy, safe(q.Text))
	}
	b.WriteString("\n")
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "(unknown)"
	}
	return t.UTC().Format(time.RFC3339)
}

func safe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(none)"
	}
	return strings.ReplaceAll(s, "\n", " ")
}

// cell escapes pipes so free text cannot break a markdown table row.
func cell(s string) string {
	return strings.ReplaceAll(safe(s), "|", "\\|")
}
