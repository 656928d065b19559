// Package authjwt implements bearer-token verification for the narrow
// contract the HTTP layer needs (internal/http/middleware.TokenVerifier),
// grounded on the teacher's golang-jwt/jwt usage in
// internal/services/auth.go's SetContextFromToken — HS256-signed claims
// parsed and validated in one call, without that file's refresh-token
// bookkeeping, which belongs to an upstream identity provider per this
// backend's own auth scope.
package authjwt

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/utils"
)

type Config struct {
	SecretKey string
}

func ResolveConfigFromEnv(log *logger.Logger) Config {
	return Config{SecretKey: utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)}
}

// Claims is the shape an upstream identity provider is expected to embed:
// subject carries the caller's user id, tenant_id scopes them to one
// tenant, is_admin gates the tenant administration surface.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	IsAdmin  bool   `json:"is_admin"`
}

// Result is the decoded identity. The http-layer adapter maps this onto
// middleware.Principal; authjwt itself has no dependency on the http layer.
type Result struct {
	UserID   string
	TenantID string
	IsAdmin  bool
}

type Verifier struct {
	cfg Config
}

func New(cfg Config) *Verifier {
	return &Verifier{cfg: cfg}
}

func (v *Verifier) Verify(tokenString string) (Result, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Result{}, fmt.Errorf("empty token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.cfg.SecretKey), nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Result{}, fmt.Errorf("invalid token")
	}
	return Result{UserID: claims.Subject, TenantID: claims.TenantID, IsAdmin: claims.IsAdmin}, nil
}
