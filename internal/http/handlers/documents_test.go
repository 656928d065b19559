package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/support-backend/internal/modules/ingestion"
	"github.com/neurobridge/support-backend/internal/modules/tenant"
)

func newTestDocumentHandler(t *testing.T) (*DocumentHandler, *fakeQueryVectorStore) {
	t.Helper()
	vs := &fakeQueryVectorStore{}
	ingestSvc := ingestion.New(newTestLogger(t), &fakeQueryEmbedder{dim: 3}, vs, nil, nil, ingestion.Config{
		ChunkSize: 200, ChunkOverlap: 20, EmbedBatchSize: 10, EmbedConcurrency: 2,
		IndexJobConcurrency: 2, OperationTimeout: 5 * time.Second,
	})
	tenantSvc := tenant.New(newTestLogger(t), vs, tenant.Config{CacheTTL: time.Minute, ScrollPage: 100})
	return NewDocumentHandler(newTestLogger(t), ingestSvc, tenantSvc), vs
}

func multipartUploadRequest(t *testing.T, tenantID, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("tenant_id", tenantID); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestDocumentHandlerUploadIndexesFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTestDocumentHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartUploadRequest(t, "acme", "faq.txt", []byte("Our support hours are 9 to 5 on weekdays."))

	h.Upload(c)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Chunks int `json:"chunks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success || resp.Data.Chunks == 0 {
		t.Fatalf("expected a successfully indexed document, got %+v", resp)
	}
}

func TestDocumentHandlerUploadRequiresTenantID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTestDocumentHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "faq.txt")
	part.Write([]byte("content"))
	mw.Close()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/documents/upload", &buf)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())

	h.Upload(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for missing tenant_id, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDocumentHandlerDeleteReturnsDeleted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTestDocumentHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/documents/acme", nil)
	c.Params = gin.Params{{Key: "tenant_id", Value: "acme"}}

	h.Delete(c)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
}
