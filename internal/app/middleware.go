package app

import (
	"context"

	httpMW "github.com/neurobridge/support-backend/internal/http/middleware"
	"github.com/neurobridge/support-backend/internal/platform/authjwt"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

// jwtVerifierAdapter satisfies middleware.TokenVerifier by delegating to
// authjwt.Verifier, translating its provider-agnostic Result into the
// http layer's Principal. Kept as a thin adapter rather than having
// authjwt import the http package, per the pinecone/qdrant-under-one-
// interface split this module already uses elsewhere.
type jwtVerifierAdapter struct {
	verifier *authjwt.Verifier
}

func (a *jwtVerifierAdapter) Verify(ctx context.Context, token string) (httpMW.Principal, error) {
	result, err := a.verifier.Verify(token)
	if err != nil {
		return httpMW.Principal{}, err
	}
	return httpMW.Principal{UserID: result.UserID, TenantID: result.TenantID, IsAdmin: result.IsAdmin}, nil
}

func wireMiddleware(log *logger.Logger, cfg Config) *httpMW.AuthMiddleware {
	verifier := &jwtVerifierAdapter{verifier: authjwt.New(cfg.JWT)}
	return httpMW.NewAuthMiddleware(log, verifier)
}
