package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/docask/docask/internal/pkg/errcode"
	"github.com/docask/docask/internal/pkg/response"
	"github.com/docask/docask/internal/service"
)

type QueryHandler struct {
	queries *service.QueryService
}

func NewQueryHandler(queries *service.QueryService) *QueryHandler {
	return &QueryHandler{queries: queries}
}

type askRequest struct {
	Question    string   `json:"question"`
	DocumentIDs []string `json:"document_ids"`
	MaxChunks   int      `json:"max_chunks"`
	Temperature float32  `json:"temperature"`
}

type searchRequest struct {
	Query       string   `json:"query"`
	DocumentIDs []string `json:"document_ids"`
	MaxChunks   int      `json:"max_chunks"`
}

func (h *QueryHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.queries.Ask(c.Request.Context(), getUserID(c), service.AskRequest{
		Question:    req.Question,
		DocumentIDs: req.DocumentIDs,
		MaxChunks:   req.MaxChunks,
		Temperature: req.Temperature,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *QueryHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.queries.Search(c.Request.Context(), getUserID(c), service.SearchRequest{
		Query:       req.Query,
		DocumentIDs: req.DocumentIDs,
		MaxChunks:   req.MaxChunks,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *QueryHandler) Health(c *gin.Context) {
	response.Success(c, h.queries.Health(c.Request.Context()))
}
