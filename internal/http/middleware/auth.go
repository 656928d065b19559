package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/support-backend/internal/http/response"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid or expired token")
	errForbidden    = errors.New("forbidden")
)

// Principal is the caller identity produced by JWT verification. Token
// verification itself is an external collaborator (§1 Out of scope); this
// package only consumes the result through TokenVerifier.
type Principal struct {
	UserID   string
	TenantID string
	IsAdmin  bool
}

// TokenVerifier is the narrow contract this backend requires from an
// upstream authentication provider: turn a bearer token into a Principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

type AuthMiddleware struct {
	log      *logger.Logger
	verifier TokenVerifier
}

func NewAuthMiddleware(log *logger.Logger, verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), verifier: verifier}
}

const principalContextKey = "principal"

// RequireAuth rejects requests without a valid bearer token and attaches the
// resolved Principal to the gin context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			response.RespondError(c, http.StatusUnauthorized, errMissingToken, "")
			c.Abort()
			return
		}
		principal, err := am.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			am.log.Debug("token verification failed", "error", err)
			response.RespondError(c, http.StatusUnauthorized, errInvalidToken, "")
			c.Abort()
			return
		}
		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// RequireAdmin builds on RequireAuth, additionally rejecting non-admin
// principals. Used for the tenant admin surface.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok || !p.IsAdmin {
			response.RespondError(c, http.StatusForbidden, errForbidden, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func PrincipalFromContext(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func extractBearerToken(c *gin.Context) string {
	if q := c.Query("token"); q != "" {
		return q
	}
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return ""
}
