// Package app wires the support backend's modules, handlers, and router
// together, grounded on the teacher's internal/app package: a single
// New()/Start()/Run()/Close() lifecycle built from smaller wireX helpers
// rather than one large main().
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron"
	"gorm.io/gorm"

	"github.com/neurobridge/support-backend/internal/data/db"
	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/realtime"
	"github.com/neurobridge/support-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Handlers Handlers
	SSEHub   *realtime.SSEHub
	Bus      bus.Bus

	queueSweep *cron.Cron
	roomSweep  *cron.Cron
	cancel     context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	hub := realtime.NewSSEHub(log)
	sseBus, err := resolveBus(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init sse bus: %w", err)
	}
	if sseBus != nil {
		hub.AttachPublisher(sseBus)
	}
	repos := wireRepos(theDB, log)

	services, err := wireServices(log, cfg, repos, hub)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("wire services: %w", err)
	}

	handlers := wireHandlers(log, cfg, repos, services, hub)
	auth := wireMiddleware(log, cfg)
	router := wireRouter(log, handlers, auth)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    repos,
		Services: services,
		Handlers: handlers,
		SSEHub:   hub,
		Bus:      sseBus,
	}, nil
}

// Start launches the app's background loops: the agent queue's stale-entry
// sweep, the room inactivity-TTL closure sweep, and the external agent
// bridge's reconnecting websocket client. All are no-ops if their feature
// isn't configured.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.Agents != nil {
		sweep, err := a.Services.Agents.StartQueueSweep(ctx)
		if err != nil {
			a.Log.Warn("failed to start queue sweep", "error", err)
		} else {
			a.queueSweep = sweep
		}
		roomSweep, err := a.Services.Agents.StartRoomTTLSweep(ctx)
		if err != nil {
			a.Log.Warn("failed to start room ttl sweep", "error", err)
		} else {
			a.roomSweep = roomSweep
		}
	}

	if a.Services.Bridge != nil && a.Services.Bridge.Enabled() {
		go func() {
			if err := a.Services.Bridge.Run(ctx); err != nil && ctx.Err() == nil {
				a.Log.Warn("external agent bridge stopped", "error", err)
			}
		}()
	}

	if a.Bus != nil {
		if err := a.Bus.StartForwarder(ctx, a.SSEHub.DeliverRemote); err != nil {
			a.Log.Warn("failed to start sse bus forwarder", "error", err)
		}
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.queueSweep != nil {
		a.queueSweep.Stop()
	}
	if a.roomSweep != nil {
		a.roomSweep.Stop()
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
