package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/service"
	"github.com/navojoa/electoral-map/internal/session"
	"github.com/navojoa/electoral-map/pkg/response"
)

// writeError maps service errors to HTTP responses
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrPersonNotFound), errors.Is(err, session.ErrSessionNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidCoordinates),
		errors.Is(err, service.ErrInvalidPerson),
		errors.Is(err, session.ErrInvalidEvent):
		response.BadRequest(c, err.Error())
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.InternalError(c, "internal error")
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid person ID")
		return 0, false
	}
	return id, true
}
