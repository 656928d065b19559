package app

import (
	httpH "github.com/neurobridge/support-backend/internal/http/handlers"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/realtime"
)

// Handlers groups every HTTP handler, constructed once at startup from the
// wired services and handed to the router.
type Handlers struct {
	Health   *httpH.HealthHandler
	Chat     *httpH.ChatHandler
	Document *httpH.DocumentHandler
	Query    *httpH.QueryHandler
	Tenant   *httpH.TenantHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, cfg Config, repos Repos, svc Services, hub *realtime.SSEHub) Handlers {
	return Handlers{
		Health:   httpH.NewHealthHandler(svc.Vector, svc.Gen, cfg.Environment),
		Chat:     httpH.NewChatHandler(log, repos.Rooms, repos.Messages, svc.Conversation, svc.Agents),
		Document: httpH.NewDocumentHandler(log, svc.Ingestion, svc.Tenant),
		Query:    httpH.NewQueryHandler(log, svc.Query),
		Tenant:   httpH.NewTenantHandler(log, svc.Tenant),
		Realtime: httpH.NewRealtimeHandler(log, hub, repos.Rooms),
	}
}
