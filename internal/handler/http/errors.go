package http

import (
	"errors"
	"net/http"

	"pixelgrid/internal/domain"
	"pixelgrid/internal/hub"
	"pixelgrid/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HandleServiceError 将 Service 层错误映射为 HTTP 状态码，内部错误不暴露细节。
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrRegistrationFailed),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNoImage),
		errors.Is(err, service.ErrInvalidImage),
		errors.Is(err, service.ErrInvalidCanvasSize),
		errors.Is(err, service.ErrInvalidDocument),
		errors.Is(err, domain.ErrInvalidDocument):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrImageTooLarge):
		ErrorResponse(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrBoardNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, hub.ErrRoomClosed), errors.Is(err, hub.ErrHubClosed):
		ErrorResponse(c, http.StatusServiceUnavailable, err.Error())
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
