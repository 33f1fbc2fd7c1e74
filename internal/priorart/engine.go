package priorart

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type Engine struct {
	cfg     Config
	client  *Client
	log     *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time

	transport http.RoundTripper
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithTransport sets the round tripper used for each session instead of a
// fresh clone of the default transport.
func WithTransport(rt http.RoundTripper) Option { return func(e *Engine) { e.transport = rt } }

func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg.withDefaults(),
		log:    zap.NewNop(),
		tracer: noop.NewTracerProvider().Tracer(""),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.client = &Client{
		cfg:       e.cfg,
		log:       e.log,
		metrics:   e.metrics,
		tracer:    e.tracer,
		transport: e.transport,
	}
	return e
}

func (e *Engine) Configured() bool { return e.cfg.HasCredentials() }

// Search runs one self-contained prior-art search session. Provider and
// parse failures degrade the result; only a request that yields no queries
// is returned as an error.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (PriorArtSearchResult, error) {
	started := e.now()
	ctx, span := e.tracer.Start(ctx, "priorart.search")
	defer span.End()

	field := strings.TrimSpace(req.TechnicalField)
	if field == "" {
		return PriorArtSearchResult{}, e.fatal(span, ErrMissingTechnicalField)
	}
	queries, err := GenerateQueries(req.InventionDescription, field, req.Keywords)
	if err != nil {
		return PriorArtSearchResult{}, e.fatal(span, err)
	}

	maxResults := e.maxResults(req.MaxResults)
	req.TechnicalField = field
	req.MaxResults = maxResults
	perQuery := max(1, min(maxResults/len(queries), e.cfg.MaxResultsPerQuery))
	e.log.Info("search_start",
		zap.String("technical_field", field),
		zap.Int("description_chars", len(req.InventionDescription)),
		zap.Int("queries_generated", len(queries)),
		zap.Int("max_results", maxResults),
		zap.Int("per_query", perQuery),
	)

	candidates, executed := e.client.Search(ctx, queries, perQuery, req.DateRange)
	ranked := Rank(candidates, req.InventionDescription, maxResults, started)
	confidence := Confidence(len(ranked), len(candidates), executed)

	elapsed := e.now().Sub(started)
	e.metrics.observeSearch(elapsed)
	span.SetAttributes(
		attribute.Int("priorart.queries_executed", executed),
		attribute.Int("priorart.raw_hits", len(candidates)),
		attribute.Int("priorart.patents", len(ranked)),
		attribute.Float64("priorart.confidence", confidence),
	)
	e.log.Info("search_done",
		zap.Int("queries_executed", executed),
		zap.Int("raw_hits", len(candidates)),
		zap.Int("patents", len(ranked)),
		zap.Float64("confidence", confidence),
		zap.Int64("elapsed_ms", elapsed.Milliseconds()),
	)

	return PriorArtSearchResult{
		Query:            "Multi-strategy search: " + field,
		TotalResults:     len(candidates),
		Patents:          ranked,
		SearchDurationMS: elapsed.Milliseconds(),
		SearchTimestamp:  started,
		ConfidenceScore:  confidence,
		SearchStrategy:   SearchStrategyLabel,
		Request:          req,
		Queries:          queries,
		QueriesExecuted:  executed,
	}, nil
}

func (e *Engine) maxResults(requested int) int {
	switch {
	case requested <= 0:
		return e.cfg.DefaultMaxResults
	case requested > e.cfg.MaxOffset:
		return e.cfg.MaxOffset
	default:
		return requested
	}
}

func (e *Engine) fatal(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.log.Error("search_failed", zap.Error(err))
	return fmt.Errorf("failed to search for prior art: %w", err)
}
