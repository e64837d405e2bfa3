package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/session"
	"github.com/navojoa/electoral-map/pkg/response"
)

// SessionHandler handles map sessions driven by browser events
type SessionHandler struct {
	store  *session.Store
	logger *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *session.Store, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:  store,
		logger: logger,
	}
}

// CreateSession handles POST /api/v1/map/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	sess := h.store.Create()
	response.Created(c, gin.H{
		"session_id": sess.ID,
		"state":      sess.State(),
	})
}

// GetSession handles GET /api/v1/map/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, gin.H{
		"session_id": sess.ID,
		"state":      sess.State(),
	})
}

// PostEvent handles POST /api/v1/map/sessions/:id/events
func (h *SessionHandler) PostEvent(c *gin.Context) {
	var ev session.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		response.BadRequest(c, "Invalid event")
		return
	}
	res, err := h.store.Dispatch(c.Request.Context(), c.Param("id"), ev)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, res)
}

// DeleteSession handles DELETE /api/v1/map/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Success(c, gin.H{"session_id": c.Param("id")})
}
