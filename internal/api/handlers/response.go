// Package handlers implements the HTTP controllers of the /api/v1 surface.
// Every response uses the {data, message, success} envelope; failures use
// {success: false, message, errors}.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/middleware"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/services"
	"go.uber.org/zap"
)

type envelope struct {
	Data       any                `json:"data"`
	Message    string             `json:"message"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	Success    bool               `json:"success"`
}

type errorEnvelope struct {
	Message string `json:"message"`
	Errors  any    `json:"errors,omitempty"`
	Success bool   `json:"success"`
}

func respondSuccess(c *gin.Context, status int, data any, message string) {
	if message == "" {
		message = "Success"
	}
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}
	c.JSON(status, envelope{Data: data, Message: message, Success: true})
}

func respondList(c *gin.Context, data any, pagination models.Pagination) {
	c.JSON(http.StatusOK, envelope{Data: data, Message: "Success", Pagination: &pagination, Success: true})
}

// responder turns service errors into error envelopes.
type responder struct {
	logger *logging.StandardLogger
}

func newResponder(logger *logging.StandardLogger) responder {
	if logger == nil {
		logger = logging.NewFromZap(nil)
	}
	return responder{logger: logger}
}

func (r responder) fail(c *gin.Context, err error, operation string) {
	appErr, ok := services.AsAppError(err)
	if !ok {
		appErr = services.NewInternal("Internal Server Error", err)
	}

	if appErr.Status >= http.StatusInternalServerError {
		r.logger.WithOperation(operation).WithRequestID(c.GetString(middleware.ContextRequestID)).
			Error("Request failed", zap.Error(err), zap.String("path", c.FullPath()))
		middleware.RecordError(c, err, operation)
	}

	c.AbortWithStatusJSON(appErr.Status, errorEnvelope{
		Message: appErr.Message,
		Errors:  appErr.Errors,
		Success: false,
	})
}

// bindFailed answers a request whose body or query did not bind.
func (r responder) bindFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = validationMessage(fe)
		}
		r.fail(c, services.NewValidation("Validation failed", details), "bind")
		return
	}
	r.fail(c, services.NewBadRequest("Invalid request body"), "bind")
}

// pathID reads a positive integer route parameter.
func (r responder) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		r.fail(c, services.NewBadRequest("Invalid "+name), "path")
		return 0, false
	}
	return id, true
}

func bindPage(c *gin.Context) models.Page {
	var page models.Page
	// Garbled paging falls back to the defaults.
	_ = c.ShouldBindQuery(&page)
	return page.Normalize()
}
