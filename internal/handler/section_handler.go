package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/service"
	"github.com/navojoa/electoral-map/pkg/response"
)

// SectionHandler handles HTTP requests for electoral sections
type SectionHandler struct {
	sectionService *service.SectionService
	personService  *service.PersonService
	fallbackKm     float64
	logger         *zap.Logger
}

// NewSectionHandler creates a new section handler
func NewSectionHandler(sectionService *service.SectionService, personService *service.PersonService, fallbackKm float64, logger *zap.Logger) *SectionHandler {
	return &SectionHandler{
		sectionService: sectionService,
		personService:  personService,
		fallbackKm:     fallbackKm,
		logger:         logger,
	}
}

// GetStats handles GET /api/v1/sections
func (h *SectionHandler) GetStats(c *gin.Context) {
	stats, err := h.sectionService.Stats(c.Request.Context(), nil)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, gin.H{
		"data":  stats,
		"count": len(stats),
	})
}

// AggregateStats handles POST /api/v1/sections/stats with hierarchical data in the body
func (h *SectionHandler) AggregateStats(c *gin.Context) {
	var forest []*models.HierarchyNode
	if err := c.ShouldBindJSON(&forest); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if forest == nil {
		forest = []*models.HierarchyNode{}
	}
	stats, err := h.sectionService.Stats(c.Request.Context(), forest)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, gin.H{
		"data":  stats,
		"count": len(stats),
	})
}

// GetOverview handles GET /api/v1/sections/overview
func (h *SectionHandler) GetOverview(c *gin.Context) {
	response.Success(c, h.sectionService.Overview(c.Request.Context()))
}

// GetGeoJSON handles GET /api/v1/sections/geojson; the body is the bare
// FeatureCollection so it can be used as a map source URL
func (h *SectionHandler) GetGeoJSON(c *gin.Context) {
	ov := h.sectionService.Overview(c.Request.Context())
	c.Header("X-Sections-State", string(ov.State))
	c.JSON(http.StatusOK, ov.Polygons)
}

// AssignSections handles POST /api/v1/sections/assign
func (h *SectionHandler) AssignSections(c *gin.Context) {
	overwrite := c.Query("overwrite") == "true"

	loc, err := h.sectionService.Locator(c.Request.Context())
	if err != nil {
		h.logger.Warn("section polygons unavailable for assignment", zap.Error(err))
		response.Unavailable(c, "Section polygons are not available")
		return
	}
	res, err := h.personService.AssignSections(c.Request.Context(), loc, h.fallbackKm, overwrite)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, res)
}
