package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/support-backend/internal/http/response"
	"github.com/neurobridge/support-backend/internal/modules/query"
	"github.com/neurobridge/support-backend/internal/platform/apierr"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

// respondQueryError maps a context deadline to 504 Gateway Timeout before
// falling back to the generic status every other query failure uses.
func respondQueryError(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		response.RespondError(c, http.StatusGatewayTimeout, apierr.Timeout(err), "")
		return
	}
	response.RespondError(c, http.StatusInternalServerError, err, "")
}

type QueryHandler struct {
	log *logger.Logger
	svc *query.Service
}

func NewQueryHandler(log *logger.Logger, svc *query.Service) *QueryHandler {
	return &QueryHandler{log: log.With("handler", "QueryHandler"), svc: svc}
}

type queryRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
	Question string `json:"question" binding:"required"`
}

// Query handles POST /query and, via the same body, POST /query/hybrid —
// per spec §9's open-question resolution, hybrid retrieval is not yet
// implemented as a distinct path, so both routes call this handler.
func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}
	result, err := h.svc.Query(c.Request.Context(), req.TenantID, req.Question, query.Options{})
	if err != nil {
		respondQueryError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// Stream handles POST /query/stream via Server-Sent Events. The request
// body is the same shape as POST /query; SSE framing is in the response
// only, so there's no EventSource compatibility reason to read it from
// query params instead of JSON.
func (h *QueryHandler) Stream(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}

	chunks, err := h.svc.StreamQuery(c.Request.Context(), req.TenantID, req.Question, query.Options{})
	if err != nil {
		respondQueryError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return false
			}
			c.SSEvent(chunk.Type, chunk)
			return chunk.Type != query.StreamChunkDone && chunk.Type != query.StreamChunkError
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type semanticSearchRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
	Question string `json:"question" binding:"required"`
	Limit    int    `json:"limit"`
}

// SemanticSearch handles POST /query/semantic-search.
func (h *QueryHandler) SemanticSearch(c *gin.Context) {
	var req semanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}
	hits, err := h.svc.SemanticSearch(c.Request.Context(), req.TenantID, req.Question, req.Limit)
	if err != nil {
		respondQueryError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"results": hits})
}
