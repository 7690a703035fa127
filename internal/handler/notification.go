package handler

import (
	"net/http"

	"elearning-backend/internal/middleware"
	"elearning-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	user := middleware.CurrentUser(c)
	notifications, err := h.notificationService.ListForUser(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"notifications": notifications,
	})
}
