package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gracechapel/outreach-backend/internal/clients/recordstore"
	"github.com/gracechapel/outreach-backend/internal/db"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
)

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// ReadyHandler answers readiness by probing the ledger database and the
// remote record base. It never touches the reconciliation locks.
type ReadyHandler struct {
	ledger *db.LedgerService
	store  recordstore.Client
	log    *logger.Logger
}

func NewReadyHandler(ledger *db.LedgerService, store recordstore.Client, baseLog *logger.Logger) *ReadyHandler {
	return &ReadyHandler{ledger: ledger, store: store, log: baseLog.With("handler", "ReadyHandler")}
}

func (h *ReadyHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if h.ledger != nil {
		ok := h.ledger.Healthy()
		checks["ledger"] = ok
		healthy = healthy && ok
	}
	if h.store != nil {
		err := h.store.Ping(ctx)
		checks["record_store"] = err == nil
		if err != nil {
			h.log.Warn("record store readiness probe failed", "error", err)
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": healthy, "checks": checks})
}
