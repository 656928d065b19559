package app

import (
	"os"
	"strings"

	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/realtime/bus"
)

// resolveBus builds the cross-instance SSE transport when REDIS_ADDR is
// configured, and returns (nil, nil) otherwise so single-instance deployments
// never pay for a Redis dependency they didn't configure.
func resolveBus(log *logger.Logger) (bus.Bus, error) {
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) == "" {
		return nil, nil
	}
	return bus.NewSSEBus(log)
}
