package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	textrdf "github.com/soundprediction/go-textrdf"
	"github.com/soundprediction/go-textrdf/pkg/server/dto"
	"github.com/soundprediction/go-textrdf/pkg/validation"
)

// ExtractHandler handles knowledge graph extraction requests
type ExtractHandler struct {
	extractor *textrdf.Extractor
	validator *validation.Validator
}

// NewExtractHandler creates a new extract handler
func NewExtractHandler(extractor *textrdf.Extractor, validator *validation.Validator) *ExtractHandler {
	if validator == nil {
		validator = validation.NewDefault()
	}
	return &ExtractHandler{
		extractor: extractor,
		validator: validator,
	}
}

// Extract handles POST /extract
func (h *ExtractHandler) Extract(c *gin.Context) {
	var req dto.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	doc, err := h.extractor.ExtractFromDocument(c.Request.Context(), req.Text)
	if err != nil {
		status, code := classifyError(err)
		c.JSON(status, dto.ErrorResponse{
			Error:   code,
			Message: err.Error(),
			Code:    status,
		})
		return
	}

	c.JSON(http.StatusOK, dto.ExtractResponse{
		Success:  true,
		Document: doc.Data,
		Entities: doc.EntityNames(),
	})
}

// Validate handles POST /validate
func (h *ExtractHandler) Validate(c *gin.Context) {
	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	res := h.validator.Validate(req.Document)

	resp := dto.ValidateResponse{
		Valid:      res.Valid,
		Confidence: res.Confidence,
	}
	for _, v := range res.Violations {
		switch v.Severity {
		case validation.SeverityError:
			resp.Errors = append(resp.Errors, v.Message)
		default:
			resp.Warnings = append(resp.Warnings, v.Message)
		}
	}

	c.JSON(http.StatusOK, resp)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, textrdf.ErrService):
		return http.StatusBadGateway, "llm_service_error"
	case errors.Is(err, textrdf.ErrAllWindowsFailed):
		return http.StatusUnprocessableEntity, "extraction_failed"
	case errors.Is(err, textrdf.ErrValidation), errors.Is(err, textrdf.ErrParse):
		return http.StatusUnprocessableEntity, "extraction_failed"
	case errors.Is(err, textrdf.ErrConfiguration):
		return http.StatusInternalServerError, "configuration_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
