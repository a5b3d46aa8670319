package http

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trialogue/internal/domain"
	"trialogue/internal/repository"
	"trialogue/internal/service"
)

// SessionHandler mantiene dependencias para los endpoints de diálogo.
type SessionHandler struct {
	logger   *zap.Logger
	store    repository.SessionStore
	machine  *service.DialogueMachine
	narrator *service.Narrator

	// Un turno en vuelo por sesión: los Advance concurrentes sobre el mismo id
	// se serializan aquí.
	turnLocks sync.Map
}

// NewSessionHandler crea una instancia de SessionHandler con dependencias necesarias.
func NewSessionHandler(
	logger *zap.Logger,
	store repository.SessionStore,
	machine *service.DialogueMachine,
	narrator *service.Narrator,
) *SessionHandler {
	return &SessionHandler{
		logger:   logger,
		store:    store,
		machine:  machine,
		narrator: narrator,
	}
}

func (h *SessionHandler) lockSession(id string) *sync.Mutex {
	mu, _ := h.turnLocks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// CreateSession maneja POST /session. Con patient_id en el body la sesión
// avanza de inmediato a la introducción.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req struct {
		PatientID string `json:"patient_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.logger.Warn("invalid create session request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session := h.machine.NewSession()
	var facts domain.Facts
	if req.PatientID != "" {
		var err error
		facts, err = h.machine.Advance(c.Request.Context(), session, req.PatientID)
		if err != nil {
			h.respondAdvanceError(c, err)
			return
		}
	}

	if err := h.store.Save(c.Request.Context(), session); err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	resp := gin.H{"session_id": session.ID, "stage": session.Stage}
	if req.PatientID != "" {
		resp["facts"] = facts
		resp["message"] = h.narrator.Narrate(c.Request.Context(), facts)
	}
	c.JSON(http.StatusCreated, resp)
}

// Advance maneja POST /session/:id/advance.
func (h *SessionHandler) Advance(c *gin.Context) {
	var req struct {
		Input string `json:"input"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid advance request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	id := c.Param("id")
	mu := h.lockSession(id)
	mu.Lock()
	defer mu.Unlock()

	session, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.respondAdvanceError(c, err)
		return
	}

	facts, err := h.machine.Advance(c.Request.Context(), session, req.Input)
	if err != nil {
		h.respondAdvanceError(c, err)
		return
	}

	if err := h.store.Save(c.Request.Context(), session); err != nil {
		h.logger.Error("save session failed", zap.Error(err), zap.String("session_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"stage":      session.Stage,
		"facts":      facts,
		"message":    h.narrator.Narrate(c.Request.Context(), facts),
	})
}

// GetSession maneja GET /session/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondAdvanceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// respondAdvanceError mapea la taxonomía de errores del dominio a HTTP.
func (h *SessionHandler) respondAdvanceError(c *gin.Context, err error) {
	var violation *domain.StateTransitionViolation
	var schemaErr *domain.SchemaError

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &violation):
		c.JSON(http.StatusConflict, gin.H{"error": violation.Error(), "stage": violation.From})
	case errors.As(err, &schemaErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": schemaErr.Error()})
	default:
		h.logger.Error("advance failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not advance dialogue"})
	}
}
