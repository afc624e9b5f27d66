package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/services"
	"github.com/gracechapel/outreach-backend/internal/types"
)

// IntakeHandler exposes one webhook endpoint per intake channel. A 200
// means accepted-for-processing, not processed: reconciliation runs on the
// dispatcher's workers after the response goes out.
type IntakeHandler struct {
	dispatcher *services.Dispatcher
	log        *logger.Logger
}

func NewIntakeHandler(dispatcher *services.Dispatcher, baseLog *logger.Logger) *IntakeHandler {
	return &IntakeHandler{dispatcher: dispatcher, log: baseLog.With("handler", "IntakeHandler")}
}

type contactPayload struct {
	RecordID  string `json:"record_id" binding:"required"`
	Phone     string `json:"phone" binding:"omitempty,contactphone"`
	Email     string `json:"email" binding:"omitempty,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
}

type evangelismPayload struct {
	contactPayload
	CapturedBy string     `json:"captured_by" binding:"required"`
	CapturedAt *time.Time `json:"captured_at"`
}

type visitPayload struct {
	contactPayload
	ServiceID   string     `json:"service_id"`
	ServiceDate *time.Time `json:"service_date"`
	SourceForm  string     `json:"source_form"`
	CapturedAt  *time.Time `json:"captured_at"`
}

type programPayload struct {
	RecordID string `json:"record_id" binding:"required"`
}

func (p *contactPayload) requireContact(c *gin.Context) bool {
	if p.Phone == "" && p.Email == "" {
		RespondError(c, http.StatusBadRequest, "missing_contact", errors.New("at least one of phone or email is required"))
		return false
	}
	return true
}

func (h *IntakeHandler) Evangelism(c *gin.Context) {
	var p evangelismPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if !p.requireContact(c) {
		return
	}
	ev := &types.IntakeEvent{
		Channel:        types.ChannelEvangelism,
		SourceRecordID: p.RecordID,
		Phone:          p.Phone,
		Email:          p.Email,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Address:        p.Address,
		CapturedBy:     p.CapturedBy,
		SourceForm:     "Evangelism Capture",
	}
	if p.CapturedAt != nil {
		ev.CapturedAt = *p.CapturedAt
	}
	h.accept(c, ev)
}

func (h *IntakeHandler) FirstTimer(c *gin.Context) {
	h.visit(c, types.ChannelFirstTimer, "First Timer Registration")
}

func (h *IntakeHandler) Returner(c *gin.Context) {
	h.visit(c, types.ChannelReturner, "Returner Registration")
}

func (h *IntakeHandler) visit(c *gin.Context, ch types.Channel, defaultForm string) {
	var p visitPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if !p.requireContact(c) {
		return
	}
	form := p.SourceForm
	if form == "" {
		form = defaultForm
	}
	ev := &types.IntakeEvent{
		Channel:        ch,
		SourceRecordID: p.RecordID,
		Phone:          p.Phone,
		Email:          p.Email,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Address:        p.Address,
		ServiceID:      p.ServiceID,
		ServiceDate:    p.ServiceDate,
		SourceForm:     form,
	}
	if p.CapturedAt != nil {
		ev.CapturedAt = *p.CapturedAt
	}
	h.accept(c, ev)
}

func (h *IntakeHandler) ProgramSession(c *gin.Context) {
	var p programPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	h.accept(c, &types.IntakeEvent{
		Channel:         types.ChannelProgramSession,
		SourceRecordID:  p.RecordID,
		ProgramRecordID: p.RecordID,
	})
}

func (h *IntakeHandler) accept(c *gin.Context, ev *types.IntakeEvent) {
	if err := h.dispatcher.Enqueue(ev); err != nil {
		if errors.Is(err, services.ErrQueueFull) {
			c.Header("Retry-After", "5")
			RespondError(c, http.StatusServiceUnavailable, "queue_full", err)
			return
		}
		RespondError(c, http.StatusServiceUnavailable, "not_accepting", err)
		return
	}
	RespondOK(c, gin.H{"status": "accepted", "record_id": ev.SourceRecordID})
}
