package handler

import (
	"errors"
	"fmt"
	"net/http"

	"elearning-backend/internal/apperror"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewErrorHandler renders every error as {"success": false, "message": ...}.
func NewErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := statusOf(err), apperror.MessageOf(err)
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status, message = httpErr.Code, fmt.Sprint(httpErr.Message)
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, errorResponse{Success: false, Message: message})
		}
		if err != nil {
			logger.Warn("write error response", zap.Error(err))
		}
	}
}

func statusOf(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindConsistency:
		return http.StatusBadRequest
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
