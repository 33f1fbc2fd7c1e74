package priorart

import (
	"strings"
	"time"
)

// Config carries everything the engine needs; it is passed in at
// construction and never read from the environment.
type Config struct {
	APIKey         string
	SearchEngineID string
	BaseURL        string

	RequestTimeout time.Duration
	PageDelay      time.Duration

	PageSize           int
	MaxQueries         int
	MaxResultsPerQuery int
	MaxOffset          int
	DefaultMaxResults  int
}

func (c Config) withDefaults() Config {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.SearchEngineID = strings.TrimSpace(c.SearchEngineID)
	if c.BaseURL == "" {
		c.BaseURL = GooglePatentsSearchURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	// Zero selects the default pacing; a negative delay disables it.
	switch {
	case c.PageDelay == 0:
		c.PageDelay = DefaultPageDelay
	case c.PageDelay < 0:
		c.PageDelay = 0
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxQueries <= 0 {
		c.MaxQueries = DefaultMaxQueries
	}
	if c.MaxResultsPerQuery <= 0 {
		c.MaxResultsPerQuery = DefaultMaxResultsPerQuery
	}
	if c.MaxOffset <= 0 {
		c.MaxOffset = DefaultMaxOffset
	}
	if c.DefaultMaxResults <= 0 {
		c.DefaultMaxResults = DefaultMaxResults
	}
	return c
}

// HasCredentials reports whether both provider identifiers are present.
func (c Config) HasCredentials() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.SearchEngineID) != ""
}
