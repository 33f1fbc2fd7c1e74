package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joelkehle/priorart-engine/internal/assessment"
	"github.com/joelkehle/priorart-engine/internal/config"
	"github.com/joelkehle/priorart-engine/internal/disclosure"
	"github.com/joelkehle/priorart-engine/internal/logging"
	"github.com/joelkehle/priorart-engine/internal/priorart"
	"github.com/joelkehle/priorart-engine/internal/store"
	"github.com/joelkehle/priorart-engine/internal/tracing"
)

// app holds the process-wide components built from configuration.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *priorart.Metrics
	tracer   trace.Tracer
	shutdown tracing.ShutdownFunc
	store    *store.SQLiteStore
}

func newApp(ctx context.Context, cfgFile, level string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if level != "" {
		if !logging.ValidLevel(level) {
			return nil, fmt.Errorf("unknown log level %q", level)
		}
		cfg.Log.Level = level
	}
	// stdout carries command output, so logs go to stderr.
	log, err := logging.NewWithOptions(logging.Options{Level: cfg.Log.Level, OutputPaths: []string{"stderr"}})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	tp, shutdown, err := tracing.Setup(ctx, tracing.Options{
		Endpoint:    cfg.Tracing.OTLPEndpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		metrics:  priorart.NewMetrics(reg),
		tracer:   tracing.Tracer(tp),
		shutdown: shutdown,
	}, nil
}

func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}
	_ = a.log.Sync()
	return errors.Join(errs...)
}

func (a *app) engine() *priorart.Engine {
	e := priorart.NewEngine(a.cfg.Search.EngineConfig(),
		priorart.WithLogger(a.log.Named("priorart")),
		priorart.WithMetrics(a.metrics),
		priorart.WithTracer(a.tracer),
	)
	if !e.Configured() {
		a.log.Warn("search_unconfigured", zap.String("hint", "set GOOGLE_PATENTS_API_KEY and GOOGLE_CUSTOM_SEARCH_ENGINE_ID"))
	}
	return e
}

// openStore opens the SQLite store once per process. An empty path leaves
// persistence disabled.
func (a *app) openStore() (*store.SQLiteStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.cfg.Store.Path == "" {
		return nil, nil
	}
	s, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.cfg.Store.Path, err)
	}
	a.log.Debug("store_open", zap.String("path", a.cfg.Store.Path))
	a.store = s
	return s, nil
}

// analyzer returns the AI analyzer, or one that fails every analysis when
// no API key is configured so that stored assessments stay readable.
func (a *app) analyzer() assessment.Analyzer {
	caller, err := assessment.NewAnthropicCaller(a.cfg.LLM.APIKey, a.cfg.LLM.Model)
	if err != nil {
		a.log.Warn("analysis_unconfigured", zap.Error(err))
		return unavailableAnalyzer{err: err}
	}
	return assessment.NewAnthropicAnalyzer(caller, a.log.Named("analysis"), a.cfg.LLM.MaxTextChars)
}

func (a *app) service() (*assessment.Service, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, err
	}
	var repo assessment.Repository
	if st != nil {
		repo = st
	}
	return assessment.NewService(a.analyzer(), a.engine(), repo,
		assessment.WithLogger(a.log.Named("assessment")),
		assessment.WithTracer(a.tracer),
	), nil
}

type unavailableAnalyzer struct{ err error }

func (u unavailableAnalyzer) Analyze(context.Context, string, string, string) (assessment.Criteria, error) {
	return assessment.Criteria{}, u.err
}

func (u unavailableAnalyzer) IdentifyField(context.Context, string) string {
	return assessment.FallbackField
}

// readDescription returns the inline description or the text of the
// disclosure file at path; "-" reads standard input.
func readDescription(ctx context.Context, inline, path string) (string, error) {
	switch path {
	case "":
		return strings.TrimSpace(inline), nil
	case "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read description: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	text, err := disclosure.Read(ctx, path)
	if err != nil {
		return "", fmt.Errorf("read description: %w", err)
	}
	if text.Truncated && current != nil {
		current.log.Warn("description_truncated", zap.String("path", path), zap.String("method", text.Method))
	}
	return text.Body, nil
}

func splitKeywords(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func dateRange(from, to string) *priorart.DateRange {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil
	}
	return &priorart.DateRange{Start: from, End: to}
}

func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
