package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nam-ha/human-detection-app/internal/detection"
	"github.com/nam-ha/human-detection-app/internal/imagecodec"
	"github.com/nam-ha/human-detection-app/internal/query"
)

const (
	msgInvalidBody   = "Invalid JSON body."
	msgModelNotReady = "Model not ready."
	msgInternal      = "Internal server error."
)

type errorDetail struct {
	Msg string `json:"msg"`
}

// errorResponse follows the {"detail":[{"msg":...}]} shape existing clients parse
type errorResponse struct {
	Detail []errorDetail `json:"detail"`
}

// Response helpers
func (h *Handler) writeJSON(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func (h *Handler) writeError(c *gin.Context, message string, code int) {
	c.AbortWithStatusJSON(code, errorResponse{Detail: []errorDetail{{Msg: message}}})
}

// writeFailure maps service errors onto status codes
func (h *Handler) writeFailure(c *gin.Context, err error) {
	var imageErr *imagecodec.ValidationError
	var queryErr *query.ValidationError

	switch {
	case errors.As(err, &imageErr):
		slog.Info("Rejected request", "path", c.Request.URL.Path, "reason", imageErr.Msg)
		h.writeError(c, imageErr.Msg, http.StatusUnprocessableEntity)
	case errors.As(err, &queryErr):
		slog.Info("Rejected request", "path", c.Request.URL.Path, "field", queryErr.Field, "reason", queryErr.Msg)
		h.writeError(c, queryErr.Msg, http.StatusUnprocessableEntity)
	case errors.Is(err, detection.ErrModelNotReady):
		slog.Warn("Prediction requested without a model", "path", c.Request.URL.Path)
		h.writeError(c, msgModelNotReady, http.StatusServiceUnavailable)
	default:
		slog.Error("Request failed", "path", c.Request.URL.Path, "err", err)
		h.writeError(c, msgInternal, http.StatusInternalServerError)
	}
}
