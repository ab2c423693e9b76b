package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/structiq/soqtender/service"
)

// respondError maps engine error kinds to HTTP statuses and emits the
// structured cause. Anything that is not a service.Error is a 500.
func respondError(c *gin.Context, err error) {
	var e *service.Error
	if !errors.As(err, &e) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var status int
	switch e.Kind {
	case service.KindInvalidArgument:
		status = http.StatusBadRequest
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindInvalidState, service.KindConflict, service.KindAlreadyAwarded:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	body := gin.H{"error": e.Msg, "kind": e.Kind}
	if e.Entity != "" {
		body["entity"] = e.Entity
	}
	if e.ID != "" {
		body["id"] = e.ID
	}
	if e.Field != "" {
		body["field"] = e.Field
	}
	if e.State != "" {
		body["state"] = e.State
	}
	c.JSON(status, body)
}
