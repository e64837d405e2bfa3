package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/service"
	"github.com/navojoa/electoral-map/pkg/response"
)

// MapHandler handles HTTP requests for marker sources and map style
type MapHandler struct {
	mapService *service.MapService
	logger     *zap.Logger
}

// NewMapHandler creates a new map handler
func NewMapHandler(mapService *service.MapService, logger *zap.Logger) *MapHandler {
	return &MapHandler{
		mapService: mapService,
		logger:     logger,
	}
}

// GetGeoJSON handles GET /api/v1/map/geojson. With ?role= the body is the
// bare FeatureCollection of that role; otherwise all sources keyed by id.
func (h *MapHandler) GetGeoJSON(c *gin.Context) {
	if roleParam := c.Query("role"); roleParam != "" {
		role, err := models.ParseRole(roleParam)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		sources, err := h.mapService.GeoJSON(c.Request.Context(), models.RoleFilter(role))
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, sources[role.Descriptor().SourceID])
		return
	}

	filter, err := models.ParseRoleFilter(c.DefaultQuery("filter", "all"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sources, err := h.mapService.GeoJSON(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, sources)
}

// GetLayers handles GET /api/v1/map/layers?editMode=&filter=
func (h *MapHandler) GetLayers(c *gin.Context) {
	editMode, err := strconv.ParseBool(c.DefaultQuery("editMode", "false"))
	if err != nil {
		response.BadRequest(c, "Invalid editMode parameter")
		return
	}
	filter, err := models.ParseRoleFilter(c.DefaultQuery("filter", "all"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, h.mapService.Style(filter, editMode, "/api/v1/map/geojson", "/api/v1/sections/geojson"))
}

// GetClusters handles GET /api/v1/map/clusters
func (h *MapHandler) GetClusters(c *gin.Context) {
	var filter models.ClusterFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	fc, err := h.mapService.Clusters(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, fc)
}

// GetExpansionZoom handles GET /api/v1/map/clusters/:id/expansion?role=
func (h *MapHandler) GetExpansionZoom(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid cluster ID")
		return
	}
	role, err := models.ParseRole(c.Query("role"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	zoom, err := h.mapService.ExpansionZoom(c.Request.Context(), role, id)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, gin.H{"cluster_id": id, "zoom": zoom})
}

// GetIcons handles GET /api/v1/map/icons
func (h *MapHandler) GetIcons(c *gin.Context) {
	response.Success(c, h.mapService.Icons())
}

// GetIcon handles GET /api/v1/map/icons/:name and serves the SVG itself
func (h *MapHandler) GetIcon(c *gin.Context) {
	icon, ok := h.mapService.Icon(c.Param("name"))
	if !ok {
		response.NotFound(c, "Icon not found")
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/svg+xml", []byte(icon.SVG))
}
