package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trialogue/internal/repository"
)

// CatalogHandler expone el catálogo de pacientes y el health check.
type CatalogHandler struct {
	logger   *zap.Logger
	patients repository.PatientRepository
}

func NewCatalogHandler(logger *zap.Logger, patients repository.PatientRepository) *CatalogHandler {
	return &CatalogHandler{logger: logger, patients: patients}
}

// ListPatients maneja GET /patients: id y nombre, sin atributos clínicos.
func (h *CatalogHandler) ListPatients(c *gin.Context) {
	patients, err := h.patients.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list patients failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list patients"})
		return
	}

	type entry struct {
		ID   string `json:"id"`
		Name string `json:"name,omitempty"`
		Note string `json:"note,omitempty"`
	}
	out := make([]entry, 0, len(patients))
	for _, p := range patients {
		out = append(out, entry{ID: p.ID, Name: p.Name, Note: p.Note})
	}
	c.JSON(http.StatusOK, gin.H{"patients": out})
}

// Health maneja GET /health.
func (h *CatalogHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
