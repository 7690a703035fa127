package server

import (
	"context"
	"net/http"

	"elearning-backend/internal/handler"
	appmiddleware "elearning-backend/internal/middleware"
	"elearning-backend/internal/model"
	"elearning-backend/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Server struct {
	echo                *echo.Echo
	orderHandler        *handler.OrderHandler
	notificationHandler *handler.NotificationHandler
	authenticate        echo.MiddlewareFunc
}

func NewServer(
	orderService service.OrderService,
	userService service.UserService,
	notificationService service.NotificationService,
	accessTokenSecret string,
	logger *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewErrorHandler(logger)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:                e,
		orderHandler:        handler.NewOrderHandler(orderService),
		notificationHandler: handler.NewNotificationHandler(notificationService),
		authenticate:        appmiddleware.Authenticate(accessTokenSecret, userService),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := s.echo.Group("/api/v1")
	admin := appmiddleware.RequireRoles(model.RoleAdmin)

	// -------- orders --------
	api.POST("/create-payment-intent", s.orderHandler.CreatePaymentIntent, s.authenticate)
	api.POST("/confirm-order", s.orderHandler.ConfirmOrder, s.authenticate)
	api.GET("/get-orders", s.orderHandler.GetOrders, s.authenticate, admin)
	api.GET("/get-order/:id", s.orderHandler.GetOrder, s.authenticate)
	api.GET("/get-user-orders", s.orderHandler.GetUserOrders, s.authenticate)
	api.DELETE("/delete-order/:id", s.orderHandler.DeleteOrder, s.authenticate, admin)

	// -------- payment gateway --------
	api.GET("/payment/stripepublishablekey", s.orderHandler.PublishableKey)
	api.POST("/payment/webhook", s.orderHandler.Webhook)

	api.GET("/notifications", s.notificationHandler.GetNotifications, s.authenticate)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
