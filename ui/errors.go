package ui

import (
	stderrors "errors"
	"net/http"

	"screenscan/domain/core"
	"screenscan/internal/errors"

	"github.com/gin-gonic/gin"
)

// statusOf maps an application error to its HTTP status
func statusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, core.ErrSuperseded):
		return http.StatusConflict
	case errors.HasCode(err, errors.CodeValidationError):
		return http.StatusUnprocessableEntity
	case errors.HasCode(err, errors.CodeUnauthorized):
		return http.StatusUnauthorized
	case errors.HasCode(err, errors.CodeExternalService), errors.HasCode(err, errors.CodeNetworkError):
		return http.StatusBadGateway
	case errors.HasCode(err, errors.CodeReadError):
		// pages still render, with an empty view and the error text
		return http.StatusOK
	case errors.HasCode(err, errors.CodeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorText is the message shown to the user
func errorText(err error) string {
	if err == nil {
		return ""
	}
	if errors.HasCode(err, errors.CodeUnauthorized) || errors.HasCode(err, errors.CodeValidationError) {
		return err.Error()
	}
	return errors.Message(err)
}

// notFound answers 404, with the error text for JSON clients
func notFound(c *gin.Context, resource string) {
	err := errors.NotFound(resource)
	if wantsJSON(c) {
		c.JSON(statusOf(err), gin.H{"error": errorText(err)})
		return
	}
	c.String(statusOf(err), errorText(err))
}
