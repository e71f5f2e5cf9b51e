package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docask/docask/internal/model"
	"github.com/docask/docask/internal/pkg/errcode"
	"github.com/docask/docask/internal/pkg/response"
	"github.com/docask/docask/internal/service"
)

type DocumentHandler struct {
	ingest    *service.IngestService
	documents *service.DocumentService
}

func NewDocumentHandler(ingest *service.IngestService, documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest, documents: documents}
}

type uploadResponse struct {
	Document *model.Document `json:"document"`
	Message  string          `json:"message"`
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "failed to read file")
		return
	}
	contentType := file.Header.Get("Content-Type")
	doc, err := h.ingest.Upload(c.Request.Context(), getUserID(c), file.Filename, contentType, data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, uploadResponse{
		Document: doc,
		Message:  "upload accepted, processing in background",
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	status := c.Query("status")
	limit := parseUintQuery(c, "limit", 50)
	offset := parseUintQuery(c, "offset", 0)
	docs, err := h.documents.List(c.Request.Context(), getUserID(c), status, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *DocumentHandler) Stats(c *gin.Context) {
	stats, err := h.documents.Stats(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

func parseUintQuery(c *gin.Context, name string, fallback uint) uint {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return uint(value)
}
