// Package httpapi exposes prior-art search and patentability assessment
// over HTTP.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/joelkehle/priorart-engine/internal/assessment"
	"github.com/joelkehle/priorart-engine/internal/disclosure"
	"github.com/joelkehle/priorart-engine/internal/priorart"
	"github.com/joelkehle/priorart-engine/internal/report"
	"github.com/joelkehle/priorart-engine/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodyBytes     = 1 << 20
)

type Searcher interface {
	Search(ctx context.Context, req priorart.SearchRequest) (priorart.PriorArtSearchResult, error)
}

type Assessor interface {
	Assess(ctx context.Context, req assessment.AssessRequest) (assessment.Assessment, error)
	Get(ctx context.Context, id string) (assessment.Assessment, error)
}

// SearchStore records standalone searches. Optional.
type SearchStore interface {
	SavePriorArtSearch(ctx context.Context, res priorart.PriorArtSearchResult) (string, error)
	GetPriorArtSearch(ctx context.Context, id string) (store.SearchRecord, error)
	ListPriorArtSearches(ctx context.Context, limit int) ([]store.SearchRecord, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type PDFRenderer interface {
	Render(ctx context.Context, htmlDoc string) ([]byte, error)
}

type Deps struct {
	Searcher Searcher
	Assessor Assessor
	Searches SearchStore
	DB       Pinger
	PDF      PDFRenderer
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
	Version  string
	Now      func() time.Time
}

type Server struct {
	searcher Searcher
	assessor Assessor
	searches SearchStore
	db       Pinger
	pdf      PDFRenderer
	gatherer prometheus.Gatherer
	log      *zap.Logger
	version  string
	now      func() time.Time
}

func NewServer(d Deps) *Server {
	s := &Server{
		searcher: d.Searcher,
		assessor: d.Assessor,
		searches: d.Searches,
		db:       d.DB,
		pdf:      d.PDF,
		gatherer: d.Gatherer,
		log:      d.Logger,
		version:  d.Version,
		now:      d.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.version == "" {
		s.version = "dev"
	}
	return s
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(recoveryMiddleware(s.log), loggerMiddleware(s.log))

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.handleHealth)

		pa := v1.Group("/prior-art")
		pa.POST("/search", s.handleSearch)
		pa.GET("/searches", s.handleListSearches)
		pa.GET("/searches/:id", s.handleGetSearch)

		v1.POST("/documents/extract", s.handleExtract)

		v1.POST("/assess", s.handleAssess)
		v1.GET("/assess/:id", s.handleGetAssessment)
		v1.GET("/assess/:id/report", s.handleReport)
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	body := gin.H{"timestamp": s.now().UTC(), "version": s.version}
	if s.db != nil {
		if err := s.db.Ping(c.Request.Context()); err != nil {
			s.log.Warn("health_db_failed", zap.Error(err))
			status, code = "degraded", http.StatusServiceUnavailable
			body["database"] = "unavailable"
		} else {
			body["database"] = "ok"
		}
	}
	body["status"] = status
	c.JSON(code, body)
}

func bindJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		writeValidation(c, "invalid json: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleSearch(c *gin.Context) {
	if s.searcher == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorEnvelope{
			Error: apiError{Code: CodeUnavailable, Message: "prior art search not configured"},
		})
		return
	}
	var req priorart.SearchRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.InventionDescription) == "" {
		writeValidation(c, "invention_description is required")
		return
	}
	if req.MaxResults < 0 {
		writeValidation(c, "max_results must be >= 0")
		return
	}

	res, err := s.searcher.Search(c.Request.Context(), req)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	if s.searches != nil {
		id, err := s.searches.SavePriorArtSearch(c.Request.Context(), res)
		if err != nil {
			s.log.Warn("search_persist_failed", zap.Error(err))
		} else {
			c.Header("X-Search-Id", id)
		}
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleListSearches(c *gin.Context) {
	if s.searches == nil {
		c.JSON(http.StatusOK, gin.H{"searches": []store.SearchRecord{}})
		return
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeValidation(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	recs, err := s.searches.ListPriorArtSearches(c.Request.Context(), limit)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"searches": recs})
}

func (s *Server) handleGetSearch(c *gin.Context) {
	if s.searches == nil {
		writeError(c, s.log, fmt.Errorf("%w: search %s", assessment.ErrNotFound, c.Param("id")))
		return
	}
	rec, err := s.searches.GetPriorArtSearch(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleExtract turns an uploaded disclosure document into plain text that
// can be sent back as an invention description.
func (s *Server) handleExtract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, disclosure.MaxFileBytes+maxBodyBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		writeValidation(c, "multipart field \"file\" is required: "+err.Error())
		return
	}
	if fh.Size > disclosure.MaxFileBytes {
		writeValidation(c, fmt.Sprintf("file too large: %d bytes (max %d)", fh.Size, disclosure.MaxFileBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	defer f.Close()
	blob, err := io.ReadAll(f)
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	text, err := disclosure.ReadBytes(c.Request.Context(), fh.Filename, blob)
	if err != nil {
		writeValidation(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filename":  fh.Filename,
		"size":      len(blob),
		"method":    text.Method,
		"truncated": text.Truncated,
		"text":      text.Body,
	})
}

func (s *Server) handleAssess(c *gin.Context) {
	var req assessment.AssessRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := s.assessor.Assess(c.Request.Context(), req)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	a, err := s.assessor.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleReport(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "markdown"))
	switch format {
	case "markdown", "md", "html", "pdf":
	default:
		writeValidation(c, "format must be one of markdown, html, pdf")
		return
	}

	a, err := s.assessor.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	md := report.BuildAssessmentMarkdown(a)
	if format == "markdown" || format == "md" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}

	doc, err := report.RenderHTML(a.ProjectTitle, md)
	if err != nil {
		writeError(c, s.log, fmt.Errorf("render html: %w", err))
		return
	}
	if format == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
		return
	}

	if s.pdf == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorEnvelope{
			Error: apiError{Code: CodeUnavailable, Message: "pdf rendering not configured"},
		})
		return
	}
	pdf, err := s.pdf.Render(c.Request.Context(), doc)
	if err != nil {
		s.log.Warn("pdf_render_failed", zap.String("assessment_id", a.ID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorEnvelope{
			Error: apiError{Code: CodeUnavailable, Message: "pdf rendering failed: " + err.Error(), Transient: true},
		})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="assessment-%s.pdf"`, a.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
