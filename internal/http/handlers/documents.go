package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/support-backend/internal/http/response"
	"github.com/neurobridge/support-backend/internal/modules/ingestion"
	"github.com/neurobridge/support-backend/internal/modules/tenant"
	"github.com/neurobridge/support-backend/internal/platform/apierr"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

// respondIngestError maps a context deadline to 504 Gateway Timeout before
// falling back to the generic status every other ingestion failure uses.
func respondIngestError(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		response.RespondError(c, http.StatusGatewayTimeout, apierr.Timeout(err), "")
		return
	}
	response.RespondError(c, http.StatusInternalServerError, err, "")
}

type DocumentHandler struct {
	log    *logger.Logger
	ingest *ingestion.Service
	tenant *tenant.Service
}

func NewDocumentHandler(log *logger.Logger, ingest *ingestion.Service, tenantSvc *tenant.Service) *DocumentHandler {
	return &DocumentHandler{log: log.With("handler", "DocumentHandler"), ingest: ingest, tenant: tenantSvc}
}

// Upload handles POST /documents/upload — a single multipart file. Temp
// files never touch disk here: the multipart part is read fully into memory
// and handed straight to the Ingestion Core, matching spec §6's "after
// indexing, temp files are deleted" by never creating one in the first
// place.
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenantID := c.PostForm("tenant_id")
	if tenantID == "" {
		response.RespondError(c, http.StatusBadRequest, fmt.Errorf("missing tenant_id"), "tenant_id")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, fmt.Errorf("missing file"), "file")
		return
	}

	raw, err := readMultipartFile(fh)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "file")
		return
	}

	result, err := h.ingest.IndexDocument(c.Request.Context(), tenantID, fh.Filename, raw, ingestion.IndexOptions{})
	if err != nil {
		respondIngestError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// BatchUpload handles POST /documents/batch-upload — multiple multipart
// files indexed independently; one file's failure never blocks the rest.
func (h *DocumentHandler) BatchUpload(c *gin.Context) {
	tenantID := c.PostForm("tenant_id")
	if tenantID == "" {
		response.RespondError(c, http.StatusBadRequest, fmt.Errorf("missing tenant_id"), "tenant_id")
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		response.RespondError(c, http.StatusBadRequest, fmt.Errorf("no files provided"), "files")
		return
	}

	docs := make(map[string][]byte, len(files))
	for _, fh := range files {
		raw, err := readMultipartFile(fh)
		if err != nil {
			h.log.Warn("skipping unreadable upload part", "filename", fh.Filename, "error", err)
			continue
		}
		docs[fh.Filename] = raw
	}

	results := h.ingest.IndexMultiple(c.Request.Context(), tenantID, docs, nil, nil)
	response.RespondOK(c, gin.H{"results": results})
}

// Delete handles DELETE /documents/:tenant_id?document_id=.
func (h *DocumentHandler) Delete(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	documentID := c.Query("document_id")
	if err := h.ingest.DeleteDocuments(c.Request.Context(), tenantID, documentID); err != nil {
		respondIngestError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

// Stats handles GET /documents/stats/:tenant_id.
func (h *DocumentHandler) Stats(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	stats, err := h.tenant.GetStats(c.Request.Context(), tenantID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, err, "tenant_id")
		return
	}
	response.RespondOK(c, stats)
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, 64<<20))
	if err != nil {
		return nil, err
	}
	return raw, nil
}
