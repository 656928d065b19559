package app

import (
	"testing"

	"github.com/neurobridge/support-backend/internal/platform/logger"
)

func TestResolveBusDisabledWithoutRedisAddr(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	defer log.Sync()

	t.Setenv("REDIS_ADDR", "")

	b, err := resolveBus(log)
	if err != nil {
		t.Fatalf("resolveBus: %v", err)
	}
	if b != nil {
		t.Fatalf("expected nil bus when REDIS_ADDR is unset")
	}
}
