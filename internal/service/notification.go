package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"elearning-backend/internal/apperror"
	"elearning-backend/internal/client"
	"elearning-backend/internal/model"
	"elearning-backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const mailTimeout = 30 * time.Second

type NotificationService interface {
	// OrderCompleted records an in-app notification and mails a receipt.
	// Failures are logged; the purchase has already succeeded.
	OrderCompleted(ctx context.Context, order *model.Order, user *model.User, course *model.Course)
	ListForUser(ctx context.Context, userID string) ([]*model.Notification, error)
	// Wait blocks until queued emails have been handed to the mailer.
	Wait()
}

type notificationServiceImpl struct {
	notificationRepo repository.NotificationRepository
	mailer           client.Mailer
	logger           *zap.Logger
	pending          sync.WaitGroup
}

func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	mailer client.Mailer,
	logger *zap.Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		mailer:           mailer,
		logger:           logger,
	}
}

func (s *notificationServiceImpl) OrderCompleted(ctx context.Context, order *model.Order, user *model.User, course *model.Course) {
	courseName := "a course"
	if course != nil {
		courseName = course.Name
	}

	err := s.notificationRepo.Create(ctx, &model.Notification{
		UserID:  order.UserID,
		Title:   "Order Completed",
		Message: "Your order for " + courseName + " has been completed",
	})
	if err != nil {
		s.logger.Warn("create order notification", zap.String("order_id", order.ID), zap.Error(err))
	}

	if user == nil || course == nil {
		return
	}

	msg := client.Mail{
		To:       user.Email,
		Subject:  "Order Confirmation",
		Template: "order-confirmation.html",
		Data:     confirmationMailData(order, user, course),
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
		defer cancel()

		if err := s.mailer.Send(mailCtx, msg); err != nil {
			s.logger.Error("send order confirmation email",
				zap.String("order_id", order.ID),
				zap.String("email", user.Email),
				zap.Error(err))
		}
	}()
}

func (s *notificationServiceImpl) ListForUser(ctx context.Context, userID string) ([]*model.Notification, error) {
	notifications, err := s.notificationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal("failed to load notifications", err)
	}
	return notifications, nil
}

func (s *notificationServiceImpl) Wait() {
	s.pending.Wait()
}

func confirmationMailData(order *model.Order, user *model.User, course *model.Course) map[string]any {
	shortID := order.ID
	if len(shortID) > 6 {
		shortID = shortID[:6]
	}

	return map[string]any{
		"Order": map[string]any{
			"ID":       shortID,
			"Name":     course.Name,
			"Price":    decimal.New(order.PaymentInfo.Amount, -2).StringFixed(2),
			"Currency": strings.ToUpper(order.PaymentInfo.Currency),
			"Date":     time.Now().Format("January 2, 2006"),
		},
		"User": map[string]any{
			"Name":  user.Name,
			"Email": user.Email,
		},
	}
}
