package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/nemoguigrat/uralintern/internal/models"
	"github.com/nemoguigrat/uralintern/internal/services"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
	Field string `json:"field,omitempty" example:"competence1"`
}

type MessageResponse struct {
	Message string `json:"message" example:"operation successful"`
}

// Type aliases so swag can resolve models in annotations.
type Grade = models.Grade
type Stage = models.Stage
type Trainee = models.Trainee

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrStageClosed):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func errorBody(err error) (int, ErrorResponse) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		return status, ErrorResponse{Error: "internal server error"}
	}
	resp := ErrorResponse{Error: err.Error()}
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	return status, resp
}

func respondError(c *gin.Context, err error) {
	status, body := errorBody(err)
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name, Field: name})
		return 0, false
	}
	return uint(id), true
}

// parseDate reads a YYYY-MM-DD date; empty means today.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		y, m, d := time.Now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, &services.ValidationError{Field: field, Message: "date must be YYYY-MM-DD"}
	}
	return t, nil
}
