package handler

import (
	"io"
	"net/http"

	"elearning-backend/internal/apperror"
	"elearning-backend/internal/dto"
	"elearning-backend/internal/middleware"
	"elearning-backend/internal/model"
	"elearning-backend/internal/service"

	"github.com/labstack/echo/v4"
)

const maxWebhookBytes = 64 << 10

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func (h *OrderHandler) CreatePaymentIntent(c echo.Context) error {
	var req dto.CreatePaymentIntentRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}

	user := middleware.CurrentUser(c)
	resp, err := h.orderService.CreatePaymentIntent(c.Request().Context(), user.ID, req.CourseID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":      true,
		"clientSecret": resp.ClientSecret,
		"orderId":      resp.OrderID,
	})
}

func (h *OrderHandler) ConfirmOrder(c echo.Context) error {
	var req dto.ConfirmOrderRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}

	result, err := h.orderService.ConfirmOrder(c.Request().Context(), req.PaymentIntentID, req.OrderID)
	if err != nil {
		return err
	}

	body := echo.Map{
		"success": true,
		"order":   result.Order,
	}
	if result.AlreadyCompleted {
		body["message"] = "Order already completed"
	}
	return c.JSON(http.StatusOK, body)
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	orders, err := h.orderService.ListOrders(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"orders":  orders,
	})
}

// GetOrder is open to the order's owner and to admins.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	order, err := h.orderService.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	user := middleware.CurrentUser(c)
	if order.UserID != user.ID && user.Role != model.RoleAdmin {
		return service.ErrOrderNotFound
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"order":   order,
	})
}

func (h *OrderHandler) GetUserOrders(c echo.Context) error {
	user := middleware.CurrentUser(c)
	orders, err := h.orderService.GetUserOrders(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"orders":  orders,
	})
}

func (h *OrderHandler) DeleteOrder(c echo.Context) error {
	if err := h.orderService.DeleteOrder(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Order deleted successfully",
	})
}

func (h *OrderHandler) PublishableKey(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"publishableKey": h.orderService.PublishableKey(),
	})
}

func (h *OrderHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes+1))
	if err != nil {
		return apperror.Validation("failed to read webhook body")
	}
	if len(payload) > maxWebhookBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "webhook payload too large")
	}

	if err := h.orderService.HandleWebhook(c.Request().Context(), c.Request().Header, payload); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
