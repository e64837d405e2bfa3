package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/search"
	"github.com/navojoa/electoral-map/internal/service"
	"github.com/navojoa/electoral-map/pkg/response"
)

// SearchHandler handles the affiliate search box
type SearchHandler struct {
	personService *service.PersonService
	logger        *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(personService *service.PersonService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		personService: personService,
		logger:        logger,
	}
}

// Search handles GET /api/v1/search?q=
func (h *SearchHandler) Search(c *gin.Context) {
	snap, err := h.personService.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	results := search.Suggest(snap.Persons, c.Query("q"))
	if results == nil {
		results = []models.Person{}
	}
	response.Success(c, gin.H{
		"data":  results,
		"count": len(results),
	})
}
