package api

import (
	"errors"
	"net/http"

	"goldennest/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// statusFor maps a service error onto an HTTP status and the message returned to the client
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrExecutionFailure):
		return http.StatusInternalServerError, "execution failed"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// respondError writes err and logs failures the client cannot fix
func respondError(c *gin.Context, err error) {
	status, message := statusFor(err)

	if status >= http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"userID": GetUserID(c),
			"error":  err,
		}).Error("Request failed")
	}

	c.JSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
