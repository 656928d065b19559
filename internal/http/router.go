package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/neurobridge/support-backend/internal/http/handlers"
	httpMW "github.com/neurobridge/support-backend/internal/http/middleware"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	ChatHandler     *httpH.ChatHandler
	DocumentHandler *httpH.DocumentHandler
	QueryHandler    *httpH.QueryHandler
	TenantHandler   *httpH.TenantHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	if cfg.ChatHandler != nil {
		chat := r.Group("/chat")
		chat.POST("/session", cfg.ChatHandler.Session)
		chat.POST("/message", cfg.ChatHandler.Message)
		chat.GET("/history/:roomId", cfg.ChatHandler.History)
		chat.GET("/conversations/:clientId", cfg.ChatHandler.Conversations)
		chat.POST("/escalate", cfg.ChatHandler.Escalate)
		chat.POST("/close", cfg.ChatHandler.Close)
		chat.POST("/agent/message", cfg.ChatHandler.AgentMessage)
	}

	if cfg.DocumentHandler != nil {
		docs := r.Group("/documents")
		if cfg.AuthMiddleware != nil {
			docs.Use(cfg.AuthMiddleware.RequireAuth())
		}
		docs.POST("/upload", cfg.DocumentHandler.Upload)
		docs.POST("/batch-upload", cfg.DocumentHandler.BatchUpload)
		docs.DELETE("/:tenant_id", cfg.DocumentHandler.Delete)
		docs.GET("/stats/:tenant_id", cfg.DocumentHandler.Stats)
	}

	if cfg.QueryHandler != nil {
		query := r.Group("/query")
		query.POST("", cfg.QueryHandler.Query)
		query.POST("/stream", cfg.QueryHandler.Stream)
		query.POST("/semantic-search", cfg.QueryHandler.SemanticSearch)
		query.POST("/hybrid", cfg.QueryHandler.Query)
	}

	if cfg.TenantHandler != nil {
		tenants := r.Group("/tenants")
		if cfg.AuthMiddleware != nil {
			tenants.Use(cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireAdmin())
		}
		tenants.GET("", cfg.TenantHandler.List)
		tenants.GET("/:tenant_id", cfg.TenantHandler.Get)
		tenants.DELETE("/:tenant_id", cfg.TenantHandler.Delete)
	}

	if cfg.RealtimeHandler != nil {
		rt := r.Group("/realtime")
		rt.GET("/stream", cfg.RealtimeHandler.Stream)
		rt.POST("/join_room", cfg.RealtimeHandler.JoinRoom)
		rt.POST("/typing", cfg.RealtimeHandler.Typing)

		// get-active-conversations/start-conversation/end-conversation are
		// Chat Core operations under their realtime-protocol names; no
		// separate handler, see internal/http/handlers/realtime.go's doc
		// comment.
		if cfg.ChatHandler != nil {
			rt.GET("/get-active-conversations/:clientId", cfg.ChatHandler.Conversations)
			rt.POST("/start-conversation", cfg.ChatHandler.Session)
			rt.POST("/end-conversation", cfg.ChatHandler.Close)
		}
	}

	return r
}
