package app

import (
	"github.com/gin-gonic/gin"

	nbhttp "github.com/neurobridge/support-backend/internal/http"
	httpMW "github.com/neurobridge/support-backend/internal/http/middleware"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, handlers Handlers, auth *httpMW.AuthMiddleware) *gin.Engine {
	return nbhttp.NewRouter(nbhttp.RouterConfig{
		Log:             log,
		AuthMiddleware:  auth,
		HealthHandler:   handlers.Health,
		ChatHandler:     handlers.Chat,
		DocumentHandler: handlers.Document,
		QueryHandler:    handlers.Query,
		TenantHandler:   handlers.Tenant,
		RealtimeHandler: handlers.Realtime,
	})
}
