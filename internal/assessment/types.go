// Package assessment combines an AI patentability analysis with a prior-art
// search and folds the search results back into the scores.
package assessment

import (
	"errors"
	"fmt"
	"time"

	"github.com/joelkehle/priorart-engine/internal/priorart"
)

var (
	ErrInvalidRequest = errors.New("invalid assessment request")
	ErrNotFound       = errors.New("assessment not found")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const (
	StageFieldIdentification = "field_identification"
	StageAnalysis            = "analysis"
	StagePersist             = "persist"
)

type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Criteria is the analyzer's view of an invention. Field names follow the
// JSON schema the model is asked to produce.
type Criteria struct {
	Novelty         float64  `json:"novelty_score"`
	NonObviousness  float64  `json:"non_obviousness_score"`
	Utility         float64  `json:"utility_score"`
	Enablement      float64  `json:"enablement_score"`
	Confidence      float64  `json:"confidence_level"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	KeyFeatures     []string `json:"key_features"`
	RiskFactors     []string `json:"risk_factors"`
}

func (c Criteria) Validate() error {
	scores := []struct {
		name  string
		value float64
	}{
		{"novelty_score", c.Novelty},
		{"non_obviousness_score", c.NonObviousness},
		{"utility_score", c.Utility},
		{"enablement_score", c.Enablement},
		{"confidence_level", c.Confidence},
	}
	for _, s := range scores {
		if s.value < 0 || s.value > 1 {
			return fmt.Errorf("%s must be between 0.0 and 1.0, got %v", s.name, s.value)
		}
	}
	return nil
}

// Overall is the unweighted mean of the four patentability criteria.
func (c Criteria) Overall() float64 {
	return (c.Novelty + c.NonObviousness + c.Utility + c.Enablement) / 4
}

type AssessRequest struct {
	ProjectTitle   string              `json:"project_title"`
	Description    string              `json:"description"`
	TechnicalField string              `json:"technical_field,omitempty"`
	Keywords       []string            `json:"keywords,omitempty"`
	MaxResults     int                 `json:"max_results,omitempty"`
	DateRange      *priorart.DateRange `json:"date_range,omitempty"`
	SkipPriorArt   bool                `json:"skip_prior_art,omitempty"`
}

func (r AssessRequest) validate() error {
	switch {
	case r.ProjectTitle == "":
		return fmt.Errorf("%w: project_title is required", ErrInvalidRequest)
	case r.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalidRequest)
	case r.MaxResults < 0:
		return fmt.Errorf("%w: max_results must be >= 0", ErrInvalidRequest)
	}
	return nil
}

type Assessment struct {
	ID             string `json:"assessment_id"`
	ProjectTitle   string `json:"project_title"`
	Description    string `json:"description"`
	TechnicalField string `json:"technical_field"`
	Status         Status `json:"status"`

	NoveltyScore        float64 `json:"novelty_score"`
	NonObviousnessScore float64 `json:"non_obviousness_score"`
	UtilityScore        float64 `json:"utility_score"`
	EnablementScore     float64 `json:"enablement_score"`
	OverallScore        float64 `json:"overall_patentability_score"`
	ConfidenceLevel     float64 `json:"confidence_level"`

	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	KeyFeatures     []string `json:"key_features"`
	RiskFactors     []string `json:"risk_factors"`

	PriorArt       *priorart.PriorArtSearchResult `json:"prior_art,omitempty"`
	PriorArtImpact *Impact                        `json:"prior_art_impact,omitempty"`
	PriorArtError  string                         `json:"prior_art_error,omitempty"`

	CreatedAt        time.Time `json:"created_at"`
	CompletedAt      time.Time `json:"completed_at"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
}

func (a *Assessment) setCriteria(c Criteria) {
	a.NoveltyScore = c.Novelty
	a.NonObviousnessScore = c.NonObviousness
	a.UtilityScore = c.Utility
	a.EnablementScore = c.Enablement
	a.OverallScore = round2(c.Overall())
	a.ConfidenceLevel = c.Confidence
	a.Summary = c.Summary
	a.Recommendations = nonNil(c.Recommendations)
	a.KeyFeatures = nonNil(c.KeyFeatures)
	a.RiskFactors = nonNil(c.RiskFactors)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
