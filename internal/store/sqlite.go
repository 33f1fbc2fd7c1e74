// Package store persists assessments and prior-art searches in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/priorart-engine/internal/assessment"
	"github.com/joelkehle/priorart-engine/internal/priorart"
)

const schema = `
CREATE TABLE IF NOT EXISTS assessments (
	id                          TEXT PRIMARY KEY,
	project_title               TEXT NOT NULL,
	description                 TEXT NOT NULL,
	technical_field             TEXT NOT NULL DEFAULT '',
	status                      TEXT NOT NULL DEFAULT 'pending',
	novelty_score               REAL NOT NULL DEFAULT 0,
	non_obviousness_score       REAL NOT NULL DEFAULT 0,
	utility_score               REAL NOT NULL DEFAULT 0,
	enablement_score            REAL NOT NULL DEFAULT 0,
	overall_patentability_score REAL NOT NULL DEFAULT 0,
	confidence_level            REAL NOT NULL DEFAULT 0,
	summary                     TEXT NOT NULL DEFAULT '',
	recommendations             TEXT NOT NULL DEFAULT '[]',
	key_features                TEXT NOT NULL DEFAULT '[]',
	risk_factors                TEXT NOT NULL DEFAULT '[]',
	prior_art_found             TEXT NOT NULL DEFAULT '[]',
	prior_art_error             TEXT NOT NULL DEFAULT '',
	created_at                  TEXT NOT NULL,
	completed_at                TEXT NOT NULL DEFAULT '',
	processing_time_ms          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS prior_art_searches (
	id                     TEXT PRIMARY KEY,
	assessment_id          TEXT NOT NULL DEFAULT '',
	search_query           TEXT NOT NULL,
	search_database        TEXT NOT NULL DEFAULT 'google_patents',
	search_filters         TEXT NOT NULL DEFAULT '{}',
	total_results_count    INTEGER NOT NULL DEFAULT 0,
	relevant_results_count INTEGER NOT NULL DEFAULT 0,
	results                TEXT NOT NULL DEFAULT '[]',
	confidence_score       REAL NOT NULL DEFAULT 0,
	search_strategy        TEXT NOT NULL DEFAULT '',
	search_duration_ms     INTEGER NOT NULL DEFAULT 0,
	searched_at            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prior_art_searches_assessment ON prior_art_searches (assessment_id, searched_at);
`

// timeLayout is fixed width so stored timestamps order correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// relevantSimilarity is the score at which a stored patent counts as relevant.
const relevantSimilarity = 0.4

type SQLiteStore struct {
	db    *sqlx.DB
	newID func() string
}

// Open opens (or creates) the database at path. ":memory:" is accepted for
// tests.
func Open(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, newID: uuid.NewString}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type assessmentRow struct {
	ID                  string  `db:"id"`
	ProjectTitle        string  `db:"project_title"`
	Description         string  `db:"description"`
	TechnicalField      string  `db:"technical_field"`
	Status              string  `db:"status"`
	NoveltyScore        float64 `db:"novelty_score"`
	NonObviousnessScore float64 `db:"non_obviousness_score"`
	UtilityScore        float64 `db:"utility_score"`
	EnablementScore     float64 `db:"enablement_score"`
	OverallScore        float64 `db:"overall_patentability_score"`
	ConfidenceLevel     float64 `db:"confidence_level"`
	Summary             string  `db:"summary"`
	Recommendations     string  `db:"recommendations"`
	KeyFeatures         string  `db:"key_features"`
	RiskFactors         string  `db:"risk_factors"`
	PriorArtFound       string  `db:"prior_art_found"`
	PriorArtError       string  `db:"prior_art_error"`
	CreatedAt           string  `db:"created_at"`
	CompletedAt         string  `db:"completed_at"`
	ProcessingTimeMS    int64   `db:"processing_time_ms"`
}

type searchRow struct {
	ID                   string  `db:"id"`
	AssessmentID         string  `db:"assessment_id"`
	SearchQuery          string  `db:"search_query"`
	SearchDatabase       string  `db:"search_database"`
	SearchFilters        string  `db:"search_filters"`
	TotalResultsCount    int     `db:"total_results_count"`
	RelevantResultsCount int     `db:"relevant_results_count"`
	Results              string  `db:"results"`
	ConfidenceScore      float64 `db:"confidence_score"`
	SearchStrategy       string  `db:"search_strategy"`
	SearchDurationMS     int64   `db:"search_duration_ms"`
	SearchedAt           string  `db:"searched_at"`
}

// SearchFilters is the stored form of a search request's optional narrowing.
type SearchFilters struct {
	TechnicalField string              `json:"technical_field,omitempty"`
	Keywords       []string            `json:"keywords,omitempty"`
	MaxResults     int                 `json:"max_results,omitempty"`
	DateRange      *priorart.DateRange `json:"date_range,omitempty"`
}

// SearchRecord is one stored prior-art search.
type SearchRecord struct {
	ID                   string                        `json:"search_id"`
	AssessmentID         string                        `json:"assessment_id,omitempty"`
	SearchDatabase       string                        `json:"search_database"`
	Filters              SearchFilters                 `json:"search_filters"`
	RelevantResultsCount int                           `json:"relevant_results_count"`
	Result               priorart.PriorArtSearchResult `json:"result"`
}

const insertAssessment = `INSERT OR REPLACE INTO assessments (
	id, project_title, description, technical_field, status,
	novelty_score, non_obviousness_score, utility_score, enablement_score,
	overall_patentability_score, confidence_level, summary,
	recommendations, key_features, risk_factors, prior_art_found, prior_art_error,
	created_at, completed_at, processing_time_ms
) VALUES (
	:id, :project_title, :description, :technical_field, :status,
	:novelty_score, :non_obviousness_score, :utility_score, :enablement_score,
	:overall_patentability_score, :confidence_level, :summary,
	:recommendations, :key_features, :risk_factors, :prior_art_found, :prior_art_error,
	:created_at, :completed_at, :processing_time_ms
)`

const insertSearch = `INSERT INTO prior_art_searches (
	id, assessment_id, search_query, search_database, search_filters,
	total_results_count, relevant_results_count, results,
	confidence_score, search_strategy, search_duration_ms, searched_at
) VALUES (
	:id, :assessment_id, :search_query, :search_database, :search_filters,
	:total_results_count, :relevant_results_count, :results,
	:confidence_score, :search_strategy, :search_duration_ms, :searched_at
)`

// SaveAssessment writes the assessment and, when present, its prior-art
// search in one transaction. The prior-art impact is not stored.
func (s *SQLiteStore) SaveAssessment(ctx context.Context, a assessment.Assessment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertAssessment, toAssessmentRow(a)); err != nil {
		return fmt.Errorf("save assessment %s: %w", a.ID, err)
	}
	if a.PriorArt != nil {
		if _, err := tx.NamedExecContext(ctx, insertSearch, toSearchRow(s.newID(), a.ID, *a.PriorArt)); err != nil {
			return fmt.Errorf("save prior art search for %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// GetAssessment loads an assessment with its most recent prior-art search.
func (s *SQLiteStore) GetAssessment(ctx context.Context, id string) (assessment.Assessment, error) {
	var row assessmentRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM assessments WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return assessment.Assessment{}, fmt.Errorf("%w: %s", assessment.ErrNotFound, id)
		}
		return assessment.Assessment{}, fmt.Errorf("load assessment %s: %w", id, err)
	}
	a := fromAssessmentRow(row)

	var srow searchRow
	err := s.db.GetContext(ctx, &srow,
		`SELECT * FROM prior_art_searches WHERE assessment_id = ? ORDER BY searched_at DESC LIMIT 1`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return assessment.Assessment{}, fmt.Errorf("load prior art search for %s: %w", id, err)
	default:
		rec, err := fromSearchRow(srow)
		if err != nil {
			return assessment.Assessment{}, err
		}
		a.PriorArt = &rec.Result
	}
	return a, nil
}

// SavePriorArtSearch stores a standalone search and returns its id.
func (s *SQLiteStore) SavePriorArtSearch(ctx context.Context, res priorart.PriorArtSearchResult) (string, error) {
	id := s.newID()
	if _, err := s.db.NamedExecContext(ctx, insertSearch, toSearchRow(id, "", res)); err != nil {
		return "", fmt.Errorf("save prior art search: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) GetPriorArtSearch(ctx context.Context, id string) (SearchRecord, error) {
	var row searchRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM prior_art_searches WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SearchRecord{}, fmt.Errorf("%w: search %s", assessment.ErrNotFound, id)
		}
		return SearchRecord{}, fmt.Errorf("load prior art search %s: %w", id, err)
	}
	return fromSearchRow(row)
}

// ListPriorArtSearches returns the most recent searches first.
func (s *SQLiteStore) ListPriorArtSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []searchRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM prior_art_searches ORDER BY searched_at DESC, id LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("list prior art searches: %w", err)
	}
	out := make([]SearchRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := fromSearchRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toAssessmentRow(a assessment.Assessment) assessmentRow {
	found := []string{}
	if a.PriorArt != nil {
		for _, p := range a.PriorArt.Patents {
			found = append(found, p.PatentID)
		}
	}
	return assessmentRow{
		ID:                  a.ID,
		ProjectTitle:        a.ProjectTitle,
		Description:         a.Description,
		TechnicalField:      a.TechnicalField,
		Status:              string(a.Status),
		NoveltyScore:        a.NoveltyScore,
		NonObviousnessScore: a.NonObviousnessScore,
		UtilityScore:        a.UtilityScore,
		EnablementScore:     a.EnablementScore,
		OverallScore:        a.OverallScore,
		ConfidenceLevel:     a.ConfidenceLevel,
		Summary:             a.Summary,
		Recommendations:     marshalList(a.Recommendations),
		KeyFeatures:         marshalList(a.KeyFeatures),
		RiskFactors:         marshalList(a.RiskFactors),
		PriorArtFound:       marshalList(found),
		PriorArtError:       a.PriorArtError,
		CreatedAt:           timeToString(a.CreatedAt),
		CompletedAt:         timeToString(a.CompletedAt),
		ProcessingTimeMS:    a.ProcessingTimeMS,
	}
}

func fromAssessmentRow(r assessmentRow) assessment.Assessment {
	return assessment.Assessment{
		ID:                  r.ID,
		ProjectTitle:        r.ProjectTitle,
		Description:         r.Description,
		TechnicalField:      r.TechnicalField,
		Status:              assessment.Status(r.Status),
		NoveltyScore:        r.NoveltyScore,
		NonObviousnessScore: r.NonObviousnessScore,
		UtilityScore:        r.UtilityScore,
		EnablementScore:     r.EnablementScore,
		OverallScore:        r.OverallScore,
		ConfidenceLevel:     r.ConfidenceLevel,
		Summary:             r.Summary,
		Recommendations:     unmarshalList(r.Recommendations),
		KeyFeatures:         unmarshalList(r.KeyFeatures),
		RiskFactors:         unmarshalList(r.RiskFactors),
		PriorArtError:       r.PriorArtError,
		CreatedAt:           stringToTime(r.CreatedAt),
		CompletedAt:         stringToTime(r.CompletedAt),
		ProcessingTimeMS:    r.ProcessingTimeMS,
	}
}

func toSearchRow(id, assessmentID string, res priorart.PriorArtSearchResult) searchRow {
	relevant := 0
	for _, p := range res.Patents {
		if p.SimilarityScore >= relevantSimilarity {
			relevant++
		}
	}
	filters := SearchFilters{
		TechnicalField: res.Request.TechnicalField,
		Keywords:       res.Request.Keywords,
		MaxResults:     res.Request.MaxResults,
		DateRange:      res.Request.DateRange,
	}
	patents := res.Patents
	if patents == nil {
		patents = []priorart.PatentResult{}
	}
	return searchRow{
		ID:                   id,
		AssessmentID:         assessmentID,
		SearchQuery:          res.Query,
		SearchDatabase:       priorart.SearchDatabase,
		SearchFilters:        marshalJSON(filters),
		TotalResultsCount:    res.TotalResults,
		RelevantResultsCount: relevant,
		Results:              marshalJSON(patents),
		ConfidenceScore:      res.ConfidenceScore,
		SearchStrategy:       res.SearchStrategy,
		SearchDurationMS:     res.SearchDurationMS,
		SearchedAt:           timeToString(res.SearchTimestamp),
	}
}

func fromSearchRow(r searchRow) (SearchRecord, error) {
	rec := SearchRecord{
		ID:                   r.ID,
		AssessmentID:         r.AssessmentID,
		SearchDatabase:       r.SearchDatabase,
		RelevantResultsCount: r.RelevantResultsCount,
		Result: priorart.PriorArtSearchResult{
			Query:            r.SearchQuery,
			TotalResults:     r.TotalResultsCount,
			Patents:          []priorart.PatentResult{},
			SearchDurationMS: r.SearchDurationMS,
			SearchTimestamp:  stringToTime(r.SearchedAt),
			ConfidenceScore:  r.ConfidenceScore,
			SearchStrategy:   r.SearchStrategy,
		},
	}
	if err := json.Unmarshal([]byte(r.SearchFilters), &rec.Filters); err != nil {
		return SearchRecord{}, fmt.Errorf("decode filters of search %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Results), &rec.Result.Patents); err != nil {
		return SearchRecord{}, fmt.Errorf("decode results of search %s: %w", r.ID, err)
	}
	if rec.Result.Patents == nil {
		rec.Result.Patents = []priorart.PatentResult{}
	}
	rec.Result.Request = priorart.SearchRequest{
		TechnicalField: rec.Filters.TechnicalField,
		Keywords:       rec.Filters.Keywords,
		MaxResults:     rec.Filters.MaxResults,
		DateRange:      rec.Filters.DateRange,
	}
	return rec, nil
}

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func stringToTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func marshalList(items []string) string {
	if items == nil {
		return "[]"
	}
	return marshalJSON(items)
}

func unmarshalList(s string) []string {
	out := []string{}
	_ = json.Unmarshal([]byte(s), &out)
	if out == nil {
		return []string{}
	}
	return out
}
