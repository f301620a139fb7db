package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"lexdraft-backend/collector"
	"lexdraft-backend/logger"
	"lexdraft-backend/storage"
)

const defaultMaxCatalogSize = 1 << 20 // 1MB

// MappingHandler serves and publishes the document-type catalog (field
// mappings, extraction rules) kept in object storage. A published catalog is
// picked up on the next server start.
type MappingHandler struct {
	storage          storage.Storage
	key              string
	maxFileSize      int64
	allowedMimeTypes map[string]bool
	logger           logger.Logger
}

// NewMappingHandler creates a new mapping handler for the catalog stored under key
func NewMappingHandler(store storage.Storage, key string, log logger.Logger) *MappingHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &MappingHandler{
		storage:     store,
		key:         key,
		maxFileSize: defaultMaxCatalogSize,
		allowedMimeTypes: map[string]bool{
			"application/yaml":         true,
			"application/x-yaml":       true,
			"text/yaml":                true,
			"text/x-yaml":              true,
			"text/plain":               true,
			"application/octet-stream": true,
		},
		logger: log,
	}
}

// RegisterRoutes mounts the mapping endpoints on api
func (h *MappingHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/mappings", h.GetCatalog)
	api.POST("/mappings", h.UploadCatalog)
}

// GetCatalog handles GET /api/mappings. Falls back to the embedded catalog
// when nothing has been published.
func (h *MappingHandler) GetCatalog(c *gin.Context) {
	if h.storage == nil || h.key == "" {
		h.serveEmbedded(c)
		return
	}

	data, err := storage.ReadAll(c.Request.Context(), h.storage, h.key)
	if errors.Is(err, storage.ErrNotFound) {
		h.serveEmbedded(c)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"code":    "DOWNLOAD_FAILED",
			"message": fmt.Sprintf("Failed to download catalog: %v", err),
		})
		return
	}

	c.Header("X-Catalog-Source", "storage")
	c.Data(http.StatusOK, "application/yaml", data)
}

func (h *MappingHandler) serveEmbedded(c *gin.Context) {
	c.Header("X-Catalog-Source", "embedded")
	c.Data(http.StatusOK, "application/yaml", collector.DefaultCatalogBytes())
}

// UploadCatalog handles POST /api/mappings (multipart field "file").
// The catalog is validated before it replaces the published one.
func (h *MappingHandler) UploadCatalog(c *gin.Context) {
	if h.storage == nil || h.key == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"code":    "STORAGE_DISABLED",
			"message": "Catalog storage is not configured",
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"code":    "MISSING_FILE",
			"message": "File is required",
		})
		return
	}

	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"code":    "FILE_TOO_LARGE",
			"message": fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize),
		})
		return
	}

	ext := strings.ToLower(path.Ext(fileHeader.Filename))
	mimeType := strings.TrimSpace(strings.Split(fileHeader.Header.Get("Content-Type"), ";")[0])
	if (ext != ".yaml" && ext != ".yml") || (mimeType != "" && !h.allowedMimeTypes[mimeType]) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"code":    "INVALID_FILE_TYPE",
			"message": "File type not allowed. Upload a .yaml catalog",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"code":    "FILE_OPEN_ERROR",
			"message": err.Error(),
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"code":    "FILE_READ_ERROR",
			"message": err.Error(),
		})
		return
	}

	cat, err := collector.Load(bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":  "error",
			"code":    "INVALID_CATALOG",
			"message": err.Error(),
		})
		return
	}

	archived, err := storage.PublishVersioned(c.Request.Context(), h.storage, h.key, data)
	if err != nil {
		h.logger.WithError(err).Error("Failed to publish catalog", logger.Fields{"key": h.key})
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"code":    "UPLOAD_FAILED",
			"message": fmt.Sprintf("Failed to publish catalog: %v", err),
		})
		return
	}

	h.logger.Info("Catalog published", logger.Fields{"key": h.key, "archive": archived, "types": len(cat.Types)})
	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data": gin.H{
			"key":     h.key,
			"archive": archived,
			"types":   len(cat.Types),
			"size":    len(data),
		},
	})
}
