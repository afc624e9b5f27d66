package app

import (
	"github.com/gin-gonic/gin"

	"github.com/gracechapel/outreach-backend/internal/db"
	"github.com/gracechapel/outreach-backend/internal/handlers"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/server"
)

type Handlers struct {
	Intake *handlers.IntakeHandler
	Ready  *handlers.ReadyHandler
}

func wireHandlers(log *logger.Logger, services Services, ledger *db.LedgerService, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Intake: handlers.NewIntakeHandler(services.Dispatcher, log),
		Ready:  handlers.NewReadyHandler(ledger, clients.Store, log),
	}
}

func wireRouter(handlerset Handlers, cfg Config) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		IntakeHandler: handlerset.Intake,
		ReadyHandler:  handlerset.Ready,
		CORSOrigins:   cfg.CORSOrigins,
	})
}
