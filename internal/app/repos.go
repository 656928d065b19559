package app

import (
	"gorm.io/gorm"

	supportrepo "github.com/neurobridge/support-backend/internal/data/repos/support"
	"github.com/neurobridge/support-backend/internal/platform/logger"
)

// Repos groups every GORM-backed repository the support domain needs.
type Repos struct {
	Agents   supportrepo.AgentRepo
	Queue    supportrepo.QueueRepo
	Rooms    supportrepo.RoomRepo
	Messages supportrepo.MessageRepo
	Sessions supportrepo.SessionContextRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Agents:   supportrepo.NewAgentRepo(db, log),
		Queue:    supportrepo.NewQueueRepo(db, log),
		Rooms:    supportrepo.NewRoomRepo(db, log),
		Messages: supportrepo.NewMessageRepo(db, log),
		Sessions: supportrepo.NewSessionContextRepo(db, log),
	}
}
