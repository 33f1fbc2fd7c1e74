package priorart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxPageBytes = 4 << 20

// Client executes queries against the provider. Each Search call owns its
// own HTTP session, released on every return path.
type Client struct {
	cfg       Config
	log       *zap.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	transport http.RoundTripper
}

type providerPage struct {
	Items []json.RawMessage `json:"items"`
}

// Search runs at most cfg.MaxQueries queries sequentially and returns every
// parsed hit in provider order along with the number of queries attempted.
// Individual query failures are logged and skipped; Search never fails.
func (c *Client) Search(ctx context.Context, queries []SearchQuery, perQuery int, dr *DateRange) ([]PatentResult, int) {
	if !c.cfg.HasCredentials() {
		c.log.Warn("search_unconfigured", zap.String("reason", "provider api key or search engine id missing"))
		return []PatentResult{}, 0
	}

	session := c.newSession()
	defer session.CloseIdleConnections()

	executed := queries[:min(len(queries), c.cfg.MaxQueries)]
	out := []PatentResult{}
	for _, q := range executed {
		started := time.Now()
		results, err := c.runQuery(ctx, session, q, perQuery, dr)
		out = append(out, results...)
		if err != nil {
			c.metrics.query(outcomeFailed)
			c.log.Warn("query_failed",
				zap.String("query", q.Text),
				zap.String("strategy", string(q.Strategy)),
				zap.Int("kept_hits", len(results)),
				zap.Int64("elapsed_ms", time.Since(started).Milliseconds()),
				zap.Error(err),
			)
			continue
		}
		c.metrics.query(outcomeOK)
		c.log.Debug("query_done",
			zap.String("query", q.Text),
			zap.String("strategy", string(q.Strategy)),
			zap.Int("hits", len(results)),
			zap.Int64("elapsed_ms", time.Since(started).Milliseconds()),
		)
	}
	return out, len(executed)
}

func (c *Client) newSession() *http.Client {
	transport := c.transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	return &http.Client{Timeout: c.cfg.RequestTimeout, Transport: transport}
}

// runQuery pages through one query. Hits collected before a failing page
// are returned alongside the error.
func (c *Client) runQuery(ctx context.Context, session *http.Client, q SearchQuery, perQuery int, dr *DateRange) ([]PatentResult, error) {
	ctx, span := c.tracer.Start(ctx, "priorart.query", trace.WithAttributes(
		attribute.String("priorart.strategy", string(q.Strategy)),
		attribute.Int("priorart.per_query", perQuery),
	))
	defer span.End()

	num := min(perQuery, c.cfg.PageSize)
	pages := newPager(perQuery, c.cfg.PageSize, c.cfg.MaxOffset, c.cfg.PageDelay)
	results := []PatentResult{}
	for {
		start, ok, err := pages.Next(ctx)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return results, err
		}
		if !ok {
			return results, nil
		}
		items, err := c.fetchPage(ctx, session, q.Text, num, start, dr)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) {
				c.metrics.page(outcomeStatus)
			} else {
				c.metrics.page(outcomeFailed)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return results, err
		}
		if len(items) == 0 {
			c.metrics.page(outcomeEmpty)
			return results, nil
		}
		c.metrics.page(outcomeOK)

		for _, raw := range items {
			cand, err := decodeCandidate(raw)
			if err != nil {
				c.metrics.hit(outcomeDropped)
				c.log.Warn("hit_dropped", zap.String("query", q.Text), zap.Int("offset", start), zap.Error(err))
				continue
			}
			pat, ok := ParseCandidate(cand)
			if !ok {
				c.metrics.hit(outcomeDropped)
				c.log.Warn("hit_dropped", zap.String("query", q.Text), zap.Int("offset", start), zap.String("url", cand.URL), zap.String("reason", "no patent identifier in url"))
				continue
			}
			c.metrics.hit(outcomeParsed)
			results = append(results, pat)
		}
		span.SetAttributes(attribute.Int("priorart.hits", len(results)))

		if len(items) < c.cfg.PageSize {
			pages.Stop()
		}
	}
}

// StatusError reports a non-success provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider status code: %d body=%s", e.StatusCode, e.Body)
}

func (c *Client) fetchPage(ctx context.Context, session *http.Client, query string, num, start int, dr *DateRange) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("cx", c.cfg.SearchEngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	params.Set("start", strconv.Itoa(start))
	params.Set("fileType", "pdf")
	params.Set("siteSearch", "patents.google.com")
	params.Set("siteSearchFilter", "i")
	if sort := dateRangeSort(dr); sort != "" {
		params.Set("sort", sort)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	res, err := session.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the api key.
		var ue *url.Error
		if errors.As(err, &ue) {
			return nil, fmt.Errorf("provider request: %w", ue.Err)
		}
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: res.StatusCode, Body: clampRunes(string(b), 200)}
	}

	var page providerPage
	if err := json.Unmarshal(b, &page); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	return page.Items, nil
}

// dateRangeSort renders the provider's date-restrict sort directive,
// e.g. "date:r:20200101:20231231".
func dateRangeSort(dr *DateRange) string {
	if dr == nil {
		return ""
	}
	start := strings.ReplaceAll(strings.TrimSpace(dr.Start), "-", "")
	end := strings.ReplaceAll(strings.TrimSpace(dr.End), "-", "")
	if start == "" && end == "" {
		return ""
	}
	return fmt.Sprintf("date:r:%s:%s", start, end)
}
