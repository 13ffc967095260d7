package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var errInvalidRequestBody = errors.New("invalid request body")

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func (e apiError) withDetails(details string) apiError {
	e.Details = details
	return e
}

func abort(c *gin.Context, err apiError) {
	body := gin.H{"error": err.Message}
	if err.Details != "" {
		body["details"] = err.Details
	}
	c.AbortWithStatusJSON(err.Code, body)
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newInternalError(message string) apiError {
	return newAPIError(http.StatusInternalServerError, message)
}
