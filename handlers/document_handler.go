package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexdraft-backend/apperr"
	"lexdraft-backend/logger"
	"lexdraft-backend/models"
	"lexdraft-backend/service"
)

// DocumentService is the generation pipeline used by DocumentHandler
type DocumentService interface {
	Generate(ctx context.Context, req service.GenerateRequest) (*service.DraftResult, error)
	Revise(ctx context.Context, req service.RevisionRequest) (*service.DraftResult, error)
	Collect(raw models.RawFormData) (models.DocumentType, *models.CaseRecord, error)
}

// DocumentHandler handles HTTP requests for document generation
type DocumentHandler struct {
	drafts            DocumentService
	validateByDefault bool
	logger            logger.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(drafts DocumentService, validateByDefault bool, log logger.Logger) *DocumentHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &DocumentHandler{drafts: drafts, validateByDefault: validateByDefault, logger: log}
}

// RegisterRoutes mounts the document endpoints on api
func (h *DocumentHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/documents", h.GenerateDocument)
	api.POST("/documents/revise", h.ReviseDocument)
	api.POST("/documents/collect", h.CollectDocument)
	api.GET("/document-types", h.ListDocumentTypes)
}

// ReviseDocumentRequest represents the request body for a revision
type ReviseDocumentRequest struct {
	RequestID       string         `json:"request_id"`
	FormData        map[string]any `json:"form_data" binding:"required"`
	DocumentHTML    string         `json:"document_html"`
	Recommendations []string       `json:"recommendations" binding:"required,min=1"`
}

// GenerateDocument handles POST /api/documents.
// The body is either the raw form payload or {"form_data": {...}, "validate": bool}.
func (h *DocumentHandler) GenerateDocument(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, apperr.New(models.StageCollecting, apperr.CodeInvalidRequest, "invalid JSON body", err), nil)
		return
	}

	req := service.GenerateRequest{
		RequestID: c.GetHeader("X-Request-ID"),
		FormData:  models.RawFormData(body),
		Validate:  h.validateByDefault,
	}
	if fd, ok := body["form_data"].(map[string]any); ok {
		req.FormData = models.RawFormData(fd)
		if v, ok := body["validate"].(bool); ok {
			req.Validate = v
		}
		if id, ok := body["request_id"].(string); ok && id != "" {
			req.RequestID = id
		}
	}
	if q := c.Query("validate"); q != "" {
		req.Validate = q == "true" || q == "1"
	}

	result, err := h.drafts.Generate(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, result)
		return
	}
	c.JSON(http.StatusOK, documentResponse(result))
}

// ReviseDocument handles POST /api/documents/revise
func (h *DocumentHandler) ReviseDocument(c *gin.Context) {
	var req ReviseDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.New(models.StageRevising, apperr.CodeInvalidRequest, err.Error(), err), nil)
		return
	}

	result, err := h.drafts.Revise(c.Request.Context(), service.RevisionRequest{
		RequestID:       req.RequestID,
		FormData:        models.RawFormData(req.FormData),
		PreviousHTML:    req.DocumentHTML,
		Recommendations: req.Recommendations,
	})
	if err != nil {
		h.respondError(c, err, result)
		return
	}
	c.JSON(http.StatusOK, documentResponse(result))
}

// CollectDocument handles POST /api/documents/collect and runs only
// classification and collection
func (h *DocumentHandler) CollectDocument(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, apperr.New(models.StageCollecting, apperr.CodeInvalidRequest, "invalid JSON body", err), nil)
		return
	}
	if fd, ok := body["form_data"].(map[string]any); ok {
		body = fd
	}

	docType, record, err := h.drafts.Collect(models.RawFormData(body))
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"document_type":   docType,
		"structured_data": record,
		"sections":        service.SectionNames(service.SectionsFor(docType, record)),
	})
}

// ListDocumentTypes handles GET /api/document-types
func (h *DocumentHandler) ListDocumentTypes(c *gin.Context) {
	types := make([]gin.H, 0, len(models.DocumentTypes))
	for _, t := range models.DocumentTypes {
		types = append(types, gin.H{
			"type":     t,
			"label":    t.Label(),
			"sections": service.SectionNames(service.SectionsFor(t, nil)),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   types,
	})
}

func documentResponse(r *service.DraftResult) gin.H {
	return gin.H{
		"status":          "success",
		"request_id":      r.RequestID,
		"document_type":   r.DocumentType,
		"document_html":   r.HTML,
		"structured_data": r.Record,
		"validation":      r.Validation,
		"trace":           r.Trace,
	}
}

func (h *DocumentHandler) respondError(c *gin.Context, err error, result *service.DraftResult) {
	appErr := apperr.As(err, models.StageFailed)
	body := gin.H{
		"status":  "error",
		"message": appErr.Message,
		"stage":   appErr.Stage,
		"code":    appErr.Code,
	}
	if result != nil {
		body["request_id"] = result.RequestID
		body["trace"] = result.Trace
	}

	status := statusFor(appErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("Request failed", logger.Fields{"path": c.FullPath(), "code": appErr.Code})
	}
	c.JSON(status, body)
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidRequest:
		return http.StatusBadRequest
	case apperr.CodeUnsupportedType, apperr.CodeCollectorFailed:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

var _ DocumentService = (*service.DraftService)(nil)
