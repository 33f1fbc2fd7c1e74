package assessment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/joelkehle/priorart-engine/internal/priorart"
)

type Analyzer interface {
	Analyze(ctx context.Context, title, text, field string) (Criteria, error)
	IdentifyField(ctx context.Context, text string) string
}

type Searcher interface {
	Search(ctx context.Context, req priorart.SearchRequest) (priorart.PriorArtSearchResult, error)
}

// Repository persists assessments together with their prior-art search.
type Repository interface {
	SaveAssessment(ctx context.Context, a Assessment) error
	GetAssessment(ctx context.Context, id string) (Assessment, error)
}

type Service struct {
	analyzer Analyzer
	searcher Searcher
	repo     Repository
	log      *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// NewService wires the composite. repo may be nil, in which case assessments
// are returned but not stored.
func NewService(analyzer Analyzer, searcher Searcher, repo Repository, opts ...Option) *Service {
	s := &Service{
		analyzer: analyzer,
		searcher: searcher,
		repo:     repo,
		log:      zap.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer(""),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type analysisOutcome struct {
	criteria Criteria
	err      error
}

type searchOutcome struct {
	result priorart.PriorArtSearchResult
	err    error
}

// Assess runs the AI analysis and the prior-art search concurrently and
// joins them once both finish. An analysis failure fails the assessment; a
// search failure only leaves the scores unadjusted.
func (s *Service) Assess(ctx context.Context, req AssessRequest) (Assessment, error) {
	req.ProjectTitle = strings.TrimSpace(req.ProjectTitle)
	req.Description = strings.TrimSpace(req.Description)
	req.TechnicalField = strings.TrimSpace(req.TechnicalField)
	if err := req.validate(); err != nil {
		return Assessment{}, err
	}

	started := s.now()
	ctx, span := s.tracer.Start(ctx, "assessment.assess", trace.WithAttributes(
		attribute.String("assessment.project_title", req.ProjectTitle),
	))
	defer span.End()

	a := Assessment{
		ID:             s.newID(),
		ProjectTitle:   req.ProjectTitle,
		Description:    req.Description,
		TechnicalField: req.TechnicalField,
		Status:         StatusProcessing,
		CreatedAt:      started.UTC(),
	}
	log := s.log.With(zap.String("assessment_id", a.ID))
	log.Info("assess_start", zap.String("project_title", req.ProjectTitle), zap.Bool("skip_prior_art", req.SkipPriorArt))

	if a.TechnicalField == "" {
		a.TechnicalField = s.analyzer.IdentifyField(ctx, req.Description)
		log.Info("field_identified", zap.String("stage", StageFieldIdentification), zap.String("technical_field", a.TechnicalField))
	}

	var (
		wg       sync.WaitGroup
		analysis analysisOutcome
		search   searchOutcome
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		c, err := s.analyzer.Analyze(ctx, req.ProjectTitle, req.Description, a.TechnicalField)
		analysis = analysisOutcome{criteria: c, err: err}
	}()
	if !req.SkipPriorArt && s.searcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.searcher.Search(ctx, priorart.SearchRequest{
				InventionDescription: req.Description,
				TechnicalField:       a.TechnicalField,
				Keywords:             req.Keywords,
				MaxResults:           req.MaxResults,
				DateRange:            req.DateRange,
			})
			search = searchOutcome{result: res, err: err}
		}()
	}
	wg.Wait()

	if analysis.err != nil {
		span.RecordError(analysis.err)
		span.SetStatus(codes.Error, analysis.err.Error())
		log.Error("assess_failed", zap.String("stage", StageAnalysis), zap.Error(analysis.err))
		return Assessment{}, &StageError{Stage: StageAnalysis, Err: analysis.err}
	}

	criteria := analysis.criteria
	switch {
	case req.SkipPriorArt || s.searcher == nil:
	case search.err != nil:
		a.PriorArtError = search.err.Error()
		log.Warn("prior_art_unavailable", zap.Error(search.err))
	default:
		result := search.result
		imp := ComputeImpact(result)
		criteria = imp.Apply(criteria)
		a.PriorArt = &result
		a.PriorArtImpact = &imp
		log.Info("prior_art_applied",
			zap.Int("patents", len(result.Patents)),
			zap.Float64("novelty_reduction", imp.NoveltyReduction),
			zap.Float64("obviousness_increase", imp.ObviousnessIncrease),
		)
	}
	a.setCriteria(criteria)

	completed := s.now()
	a.Status = StatusCompleted
	a.CompletedAt = completed.UTC()
	a.ProcessingTimeMS = completed.Sub(started).Milliseconds()

	if s.repo != nil {
		if err := s.repo.SaveAssessment(ctx, a); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("assess_failed", zap.String("stage", StagePersist), zap.Error(err))
			return Assessment{}, &StageError{Stage: StagePersist, Err: err}
		}
	}

	span.SetAttributes(
		attribute.Float64("assessment.overall", a.OverallScore),
		attribute.Bool("assessment.prior_art", a.PriorArt != nil),
	)
	log.Info("assess_done",
		zap.Float64("overall", a.OverallScore),
		zap.Int64("elapsed_ms", a.ProcessingTimeMS),
	)
	return a, nil
}

// Get loads a stored assessment and recomputes the prior-art impact from its
// stored search, since the impact itself is never persisted.
func (s *Service) Get(ctx context.Context, id string) (Assessment, error) {
	if s.repo == nil {
		return Assessment{}, errors.New("assessment storage not configured")
	}
	a, err := s.repo.GetAssessment(ctx, id)
	if err != nil {
		return Assessment{}, err
	}
	if a.PriorArt != nil {
		imp := ComputeImpact(*a.PriorArt)
		a.PriorArtImpact = &imp
	}
	return a, nil
}
