// Package priorart turns a free-text invention description into a bounded,
// deduplicated, relevance-ranked set of candidate conflicting patents.
package priorart

import (
	"errors"
	"time"
)

const (
	GooglePatentsSearchURL = "https://customsearch.googleapis.com/customsearch/v1"
	SearchDatabase         = "google_patents"
	SearchStrategyLabel    = "multi_query_deduplication"

	DefaultMaxResults         = 20
	DefaultMaxQueries         = 3
	DefaultMaxResultsPerQuery = 20
	DefaultPageSize           = 10
	DefaultMaxOffset          = 100
	DefaultPageDelay          = 100 * time.Millisecond
	DefaultRequestTimeout     = 30 * time.Second

	MaxGeneratedQueries = 5
	MaxQueryChars       = 100
	MaxQueryWords       = 15
	MaxAbstractChars    = 500
)

var (
	ErrNoQueries             = errors.New("no search queries could be generated")
	ErrMissingTechnicalField = errors.New("technical_field is required")
)

type Strategy string

const (
	StrategyTechnicalTerms Strategy = "technical_terms"
	StrategyProblemContext Strategy = "problem_context"
	StrategyFunction       Strategy = "function"
	StrategyUserKeywords   Strategy = "user_keywords"
	StrategyBroadField     Strategy = "broad_field"
)

// SearchQuery is a cleaned query string tagged with the strategy that produced it.
type SearchQuery struct {
	Text     string   `json:"text"`
	Strategy Strategy `json:"strategy"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SearchRequest struct {
	InventionDescription string     `json:"invention_description"`
	TechnicalField       string     `json:"technical_field"`
	Keywords             []string   `json:"keywords,omitempty"`
	MaxResults           int        `json:"max_results,omitempty"`
	DateRange            *DateRange `json:"date_range,omitempty"`
}

// PatentCandidate is one raw provider hit before identifier extraction.
// Metadata holds the provider's page-metadata blocks keyed by block name
// (person, organization, metatags, ...), each a list of string maps.
type PatentCandidate struct {
	Title    string
	Snippet  string
	URL      string
	Metadata map[string][]map[string]any
}

type PatentResult struct {
	PatentID        string   `json:"patent_id"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Inventors       []string `json:"inventors"`
	Assignee        string   `json:"assignee"`
	FilingDate      string   `json:"filing_date"`
	PublicationDate string   `json:"publication_date"`
	PatentOffice    string   `json:"patent_office"`
	Classification  []string `json:"classification"`
	URL             string   `json:"url"`
	SimilarityScore float64  `json:"similarity_score"`
	RelevanceReason string   `json:"relevance_reason"`
}

type PriorArtSearchResult struct {
	Query            string         `json:"query"`
	TotalResults     int            `json:"total_results"`
	Patents          []PatentResult `json:"patents"`
	SearchDurationMS int64          `json:"search_duration_ms"`
	SearchTimestamp  time.Time      `json:"search_timestamp"`
	ConfidenceScore  float64        `json:"confidence_score"`
	SearchStrategy   string         `json:"search_strategy"`

	Request         SearchRequest `json:"-"`
	Queries         []SearchQuery `json:"-"`
	QueriesExecuted int           `json:"-"`
}
