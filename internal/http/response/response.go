package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/support-backend/internal/platform/apierr"
)

// Envelope is the success:bool envelope used by every JSON endpoint.
// Field is populated only for InvalidInput errors that are qualified to a
// single request field. Code is populated when the error carries one of
// the taxonomy's stable machine-readable codes (apierr.Error.Code).
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// RespondError writes the error envelope. When err is (or wraps) an
// *apierr.Error, its Status/Code override the status argument and the
// field's Code, so callers that already know the taxonomy class — timeouts,
// upstream failures — can pass apierr.Timeout(err) etc. and get the right
// HTTP status without the handler hand-mapping it. Plain errors fall back
// to the passed-in status unchanged.
func RespondError(c *gin.Context, status int, err error, field string) {
	msg := "unknown error"
	code := ""
	if err != nil {
		msg = err.Error()
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) {
			status = apiErr.Status
			code = apiErr.Code
		}
	}
	c.JSON(status, Envelope{Success: false, Error: msg, Code: code, Field: field})
}

// RespondOK writes payload merged with success:true. payload must marshal to
// a JSON object (a struct or gin.H), never a bare scalar or array.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, mergeSuccess(payload))
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, mergeSuccess(payload))
}

func mergeSuccess(payload any) gin.H {
	out := gin.H{"success": true}
	switch v := payload.(type) {
	case gin.H:
		for k, val := range v {
			out[k] = val
		}
	case map[string]any:
		for k, val := range v {
			out[k] = val
		}
	case nil:
	default:
		out["data"] = v
	}
	return out
}
