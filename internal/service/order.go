package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"elearning-backend/internal/apperror"
	"elearning-backend/internal/client"
	"elearning-backend/internal/dto"
	"elearning-backend/internal/model"
	"elearning-backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	exportServiceType = "Educational Services"
	exportSACCode     = "998316"
)

type OrderService interface {
	CreatePaymentIntent(ctx context.Context, userID, courseID string) (*dto.PaymentIntentResponse, error)
	ConfirmOrder(ctx context.Context, intentID, orderID string) (*dto.ConfirmOrderResult, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	GetUserOrders(ctx context.Context, userID string) ([]*model.Order, error)
	ListOrders(ctx context.Context) ([]*model.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
	HandleWebhook(ctx context.Context, headers http.Header, payload []byte) error
	PublishableKey() string
}

type OrderSettings struct {
	Currency       string
	PublishableKey string
	CacheTTL       time.Duration
}

type orderServiceImpl struct {
	db                  *gorm.DB
	gateway             client.PaymentGateway
	cache               client.Cache
	orderRepo           repository.OrderRepository
	userRepo            repository.UserRepository
	courseRepo          repository.CourseRepository
	webhookEventRepo    repository.WebhookEventRepository
	notificationService NotificationService
	settings            OrderSettings
	logger              *zap.Logger
}

func NewOrderService(
	db *gorm.DB,
	gateway client.PaymentGateway,
	cache client.Cache,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	courseRepo repository.CourseRepository,
	webhookEventRepo repository.WebhookEventRepository,
	notificationService NotificationService,
	settings OrderSettings,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		db:                  db,
		gateway:             gateway,
		cache:               cache,
		orderRepo:           orderRepo,
		userRepo:            userRepo,
		courseRepo:          courseRepo,
		webhookEventRepo:    webhookEventRepo,
		notificationService: notificationService,
		settings:            settings,
		logger:              logger,
	}
}

func (s *orderServiceImpl) CreatePaymentIntent(ctx context.Context, userID, courseID string) (*dto.PaymentIntentResponse, error) {
	if !isValidID(courseID) {
		return nil, ErrInvalidCourseID
	}
	if !isValidID(userID) {
		return nil, ErrInvalidUserID
	}

	user, err := s.userRepo.FindByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperror.Internal("failed to load user", err)
	}

	course, err := s.courseRepo.FindByID(ctx, nil, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, apperror.Internal("failed to load course", err)
	}

	if user.HasCourse(course.ID) {
		return nil, ErrAlreadyPurchased
	}

	amount := course.PriceMinorUnits()
	if amount <= 0 {
		return nil, ErrInvalidPrice
	}

	export := model.ExportDetails{
		Description: "Purchase of online course: " + course.Name,
		SACCode:     exportSACCode,
		IsExport:    true,
		ServiceType: exportServiceType,
	}

	intent, err := s.gateway.CreateIntent(ctx, client.IntentRequest{
		AmountMinorUnits: amount,
		Currency:         s.settings.Currency,
		Description:      export.Description,
		CustomerName:     user.Name,
		Metadata: map[string]string{
			"courseId":     course.ID,
			"userId":       user.ID,
			"export_type":  "service",
			"service_type": export.ServiceType,
			"hs_code":      export.HSCode,
			"sac_code":     export.SACCode,
		},
	})
	if err != nil {
		s.logger.Error("create payment intent",
			zap.String("user_id", user.ID),
			zap.String("course_id", course.ID),
			zap.Error(err))
		return nil, apperror.Upstream("failed to create payment intent", err)
	}

	order := &model.Order{
		CourseID:      course.ID,
		UserID:        user.ID,
		TotalAmount:   amount,
		Currency:      strings.ToUpper(s.settings.Currency),
		PaymentMethod: model.PaymentMethodCard,
		Status:        model.OrderStatusPending,
		PaymentInfo: model.PaymentInfo{
			IntentID: intent.ID,
			Status:   intent.RawStatus,
			Amount:   amount,
			Currency: intent.Currency,
		},
		ExportDetails: export,
	}
	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		return nil, apperror.Internal("failed to create order", err)
	}

	s.logger.Info("payment intent created",
		zap.String("order_id", order.ID),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount", amount))

	return &dto.PaymentIntentResponse{
		ClientSecret: intent.ClientSecret,
		OrderID:      order.ID,
	}, nil
}

// ConfirmOrder completes an order once the gateway reports the payment as
// succeeded. Repeated and concurrent calls for the same order grant the
// course and count the purchase once.
func (s *orderServiceImpl) ConfirmOrder(ctx context.Context, intentID, orderID string) (*dto.ConfirmOrderResult, error) {
	if intentID == "" {
		return nil, ErrMissingIntentID
	}
	if !isValidID(orderID) {
		return nil, ErrInvalidOrderID
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case model.OrderStatusCompleted:
		return &dto.ConfirmOrderResult{Order: order, AlreadyCompleted: true}, nil
	case model.OrderStatusPending:
	default:
		return nil, errOrderNotPending(string(order.Status))
	}

	// Retrieving may capture the payment (PayPal), so only the order's own
	// intent is ever sent to the gateway.
	if intentID != order.PaymentInfo.IntentID {
		s.logger.Warn("payment intent mismatch",
			zap.String("order_id", order.ID),
			zap.String("expected", order.PaymentInfo.IntentID),
			zap.String("got", intentID))
		return nil, ErrIntentMismatch
	}

	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		s.logger.Error("retrieve payment intent",
			zap.String("order_id", order.ID),
			zap.String("intent_id", intentID),
			zap.Error(err))
		return nil, apperror.Upstream("failed to verify payment", err)
	}

	if intent.ID != order.PaymentInfo.IntentID {
		s.logger.Warn("payment intent mismatch",
			zap.String("order_id", order.ID),
			zap.String("expected", order.PaymentInfo.IntentID),
			zap.String("got", intent.ID))
		return nil, ErrIntentMismatch
	}

	if !intent.Succeeded() {
		return nil, errPaymentNotCompleted(intent.RawStatus)
	}

	transitioned := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		info := model.PaymentInfo{
			Status:   intent.RawStatus,
			Amount:   intent.Amount,
			Currency: intent.Currency,
		}
		ok, err := s.orderRepo.MarkCompleted(ctx, tx, order.ID, info)
		if err != nil {
			return fmt.Errorf("mark order completed: %w", err)
		}
		if !ok {
			return nil
		}
		transitioned = true

		if _, err := s.userRepo.GrantCourse(ctx, tx, order.UserID, order.CourseID); err != nil {
			return fmt.Errorf("grant course: %w", err)
		}

		// Checked after the grant so a concurrent confirmation of another
		// order for the same course has committed by the time we read.
		owned, err := s.orderRepo.HasCompletedPurchase(ctx, tx, order.UserID, order.CourseID, order.ID)
		if err != nil {
			return fmt.Errorf("check completed purchase: %w", err)
		}
		if owned {
			return ErrAlreadyPurchased
		}

		if err := s.courseRepo.IncrementPurchased(ctx, tx, order.CourseID); err != nil {
			return fmt.Errorf("increment purchased: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyPurchased) {
			s.logger.Error("payment succeeded for a course the user already owns",
				zap.String("order_id", order.ID),
				zap.String("intent_id", intent.ID),
				zap.String("user_id", order.UserID),
				zap.String("course_id", order.CourseID))
			return nil, err
		}
		s.logger.Error("complete order", zap.String("order_id", order.ID), zap.Error(err))
		return nil, apperror.Internal("failed to complete order", err)
	}

	fresh, err := s.findOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	if !transitioned {
		if fresh.Status != model.OrderStatusCompleted {
			return nil, errOrderNotPending(string(fresh.Status))
		}
		return &dto.ConfirmOrderResult{Order: fresh, AlreadyCompleted: true}, nil
	}

	s.logger.Info("order completed",
		zap.String("order_id", fresh.ID),
		zap.String("intent_id", intent.ID),
		zap.String("user_id", fresh.UserID),
		zap.String("course_id", fresh.CourseID))

	s.afterCompletion(ctx, fresh)

	return &dto.ConfirmOrderResult{Order: fresh}, nil
}

// afterCompletion runs once the purchase is committed. Nothing here may fail
// the confirmation.
func (s *orderServiceImpl) afterCompletion(ctx context.Context, order *model.Order) {
	cacheInvalidate(ctx, s.cache, s.logger, orderCacheKey(order.ID), userCacheKey(order.UserID))

	user, err := s.userRepo.FindByID(ctx, nil, order.UserID)
	if err != nil {
		s.logger.Warn("load user for notification", zap.String("order_id", order.ID), zap.Error(err))
		user = nil
	}
	course, err := s.courseRepo.FindByID(ctx, nil, order.CourseID)
	if err != nil {
		s.logger.Warn("load course for notification", zap.String("order_id", order.ID), zap.Error(err))
		course = nil
	}

	s.notificationService.OrderCompleted(ctx, order, user, course)
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	if !isValidID(orderID) {
		return nil, ErrInvalidOrderID
	}

	key := orderCacheKey(orderID)
	if order, ok := cacheGet[model.Order](ctx, s.cache, s.logger, key); ok {
		return order, nil
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	cacheSet(ctx, s.cache, s.logger, key, order, s.settings.CacheTTL)
	return order, nil
}

func (s *orderServiceImpl) GetUserOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	if !isValidID(userID) {
		return nil, ErrInvalidUserID
	}

	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal("failed to load orders", err)
	}
	return orders, nil
}

func (s *orderServiceImpl) ListOrders(ctx context.Context) ([]*model.Order, error) {
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to load orders", err)
	}
	return orders, nil
}

// DeleteOrder removes an order. Deleting a completed order also takes the
// course back from the user and decrements the purchase counter.
func (s *orderServiceImpl) DeleteOrder(ctx context.Context, orderID string) error {
	if !isValidID(orderID) {
		return ErrInvalidOrderID
	}

	var deleted *model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.Delete(ctx, tx, orderID)
		if err != nil {
			return err
		}
		deleted = order

		if order.Status != model.OrderStatusCompleted {
			return nil
		}
		if err := s.courseRepo.DecrementPurchased(ctx, tx, order.CourseID); err != nil {
			return fmt.Errorf("decrement purchased: %w", err)
		}
		if err := s.userRepo.RevokeCourse(ctx, tx, order.UserID, order.CourseID); err != nil {
			return fmt.Errorf("revoke course: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return apperror.Internal("failed to delete order", err)
	}

	cacheInvalidate(ctx, s.cache, s.logger, orderCacheKey(deleted.ID), userCacheKey(deleted.UserID))

	s.logger.Info("order deleted",
		zap.String("order_id", deleted.ID),
		zap.String("status", string(deleted.Status)))
	return nil
}

// HandleWebhook confirms orders from gateway notifications. Each event is
// processed once; events for unknown intents are acknowledged and dropped.
func (s *orderServiceImpl) HandleWebhook(ctx context.Context, headers http.Header, payload []byte) error {
	event, err := s.gateway.ParseWebhook(ctx, headers, payload)
	if err != nil {
		s.logger.Warn("reject webhook", zap.Error(err))
		return apperror.Wrap(apperror.KindValidation, "invalid webhook payload", err)
	}
	if event.ID == "" {
		return ErrInvalidWebhook
	}

	logger := s.logger.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	processed, err := s.webhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		return apperror.Internal("failed to check webhook event", err)
	}
	if processed {
		logger.Info("webhook event already processed")
		return nil
	}

	if event.Succeeded && event.IntentID != "" {
		order, err := s.orderRepo.FindByIntentID(ctx, event.IntentID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			logger.Warn("webhook for unknown payment intent", zap.String("intent_id", event.IntentID))
		case err != nil:
			return apperror.Internal("failed to load order", err)
		default:
			_, err := s.ConfirmOrder(ctx, event.IntentID, order.ID)
			if err != nil && !isPermanentWebhookFailure(err) {
				return err
			}
			if err != nil {
				// Redelivery cannot change the outcome; ConfirmOrder already logged it.
				logger.Error("webhook order cannot be completed",
					zap.String("intent_id", event.IntentID),
					zap.String("order_id", order.ID),
					zap.Error(err))
			}
		}
	}

	if err := s.webhookEventRepo.MarkProcessed(ctx, event.ID, event.Type); err != nil {
		return apperror.Internal("failed to record webhook event", err)
	}
	return nil
}

// isPermanentWebhookFailure reports confirmation failures that the same event
// will hit again on every delivery.
func isPermanentWebhookFailure(err error) bool {
	return apperror.KindOf(err) == apperror.KindConflict
}

func (s *orderServiceImpl) PublishableKey() string {
	return s.settings.PublishableKey
}

func (s *orderServiceImpl) findOrder(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, apperror.Internal("failed to load order", err)
	}
	return order, nil
}
