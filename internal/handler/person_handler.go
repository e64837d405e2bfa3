package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/models"
	"github.com/navojoa/electoral-map/internal/service"
	"github.com/navojoa/electoral-map/pkg/response"
)

// PersonHandler handles HTTP requests for affiliates
type PersonHandler struct {
	personService *service.PersonService
	logger        *zap.Logger
}

// NewPersonHandler creates a new person handler
func NewPersonHandler(personService *service.PersonService, logger *zap.Logger) *PersonHandler {
	return &PersonHandler{
		personService: personService,
		logger:        logger,
	}
}

// GetPersons handles GET /api/v1/persons
func (h *PersonHandler) GetPersons(c *gin.Context) {
	var filter models.PersonFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.personService.GetPersons(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, result)
}

// GetPerson handles GET /api/v1/persons/:id
func (h *PersonHandler) GetPerson(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.personService.GetPerson(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, p)
}

// CreatePerson handles POST /api/v1/persons
func (h *PersonHandler) CreatePerson(c *gin.Context) {
	var p models.Person
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	p.ID = 0
	if err := h.personService.CreatePerson(c.Request.Context(), &p); err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Created(c, p)
}

// UpdatePerson handles PUT /api/v1/persons/:id
func (h *PersonHandler) UpdatePerson(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var p models.Person
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	p.ID = id
	if err := h.personService.UpdatePerson(c.Request.Context(), &p); err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, p)
}

// DeletePerson handles DELETE /api/v1/persons/:id
func (h *PersonHandler) DeletePerson(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.personService.DeletePerson(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

// LocationRequest is the body of a manual location correction
type LocationRequest struct {
	Role          string               `json:"role" binding:"required"`
	Lat           *float64             `json:"lat" binding:"required"`
	Lng           *float64             `json:"lng" binding:"required"`
	GeocodeStatus models.GeocodeStatus `json:"geocode_status"`
}

// UpdateLocation handles PUT /api/v1/persons/:id/location
func (h *PersonHandler) UpdateLocation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	update := models.GeoUpdate{Lat: *req.Lat, Lng: *req.Lng, GeocodeStatus: req.GeocodeStatus}
	if err := h.personService.UpdateGeolocatedPerson(c.Request.Context(), id, role, update); err != nil {
		writeError(c, h.logger, err)
		return
	}

	p, err := h.personService.GetPerson(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, p)
}

// GetHierarchy handles GET /api/v1/persons/hierarchy
func (h *PersonHandler) GetHierarchy(c *gin.Context) {
	forest, err := h.personService.GetAllHierarchicalData(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if forest == nil {
		forest = []*models.HierarchyNode{}
	}
	response.Success(c, forest)
}
