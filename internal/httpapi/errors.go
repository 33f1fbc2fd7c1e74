package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joelkehle/priorart-engine/internal/assessment"
	"github.com/joelkehle/priorart-engine/internal/priorart"
)

const (
	CodeValidation  = "validation"
	CodeNotFound    = "not_found"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal"
)

// apiError is the body carried by every non-2xx response.
type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Transient bool   `json:"transient"`
}

type errorEnvelope struct {
	OK    bool     `json:"ok"`
	Error apiError `json:"error"`
}

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// classify maps domain errors onto API error codes.
func classify(err error) apiError {
	var stage *assessment.StageError
	switch {
	case errors.Is(err, assessment.ErrInvalidRequest),
		errors.Is(err, priorart.ErrMissingTechnicalField),
		errors.Is(err, priorart.ErrNoQueries):
		return apiError{Code: CodeValidation, Message: err.Error()}
	case errors.Is(err, assessment.ErrNotFound):
		return apiError{Code: CodeNotFound, Message: err.Error()}
	case errors.As(err, &stage) && stage.Stage == assessment.StageAnalysis:
		return apiError{Code: CodeUnavailable, Message: err.Error(), Transient: true}
	default:
		return apiError{Code: CodeInternal, Message: err.Error(), Transient: true}
	}
}

func writeError(c *gin.Context, log *zap.Logger, err error) {
	ae := classify(err)
	status := statusForCode(ae.Code)
	if status >= http.StatusInternalServerError {
		log.Error("request_failed", zap.String("path", c.FullPath()), zap.String("code", ae.Code), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorEnvelope{Error: ae})
}

func writeValidation(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorEnvelope{
		Error: apiError{Code: CodeValidation, Message: message},
	})
}
