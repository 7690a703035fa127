package repository

import (
	"context"
	"time"

	"elearning-backend/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error)
	FindByIntentID(ctx context.Context, intentID string) (*model.Order, error)
	List(ctx context.Context) ([]*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, orderID string, info model.PaymentInfo) (bool, error)
	HasCompletedPurchase(ctx context.Context, tx *gorm.DB, userID, courseID, excludeOrderID string) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return conn(r.db, tx).WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error) {
	var order model.Order
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByIntentID(ctx context.Context, intentID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", intentID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) List(ctx context.Context) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

// MarkCompleted moves a pending order to completed and reports whether this
// call made the transition. A false result with a nil error means another
// confirmation got there first.
func (r *orderRepoImpl) MarkCompleted(ctx context.Context, tx *gorm.DB, orderID string, info model.PaymentInfo) (bool, error) {
	now := time.Now()
	result := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":               model.OrderStatusCompleted,
			"payment_status":       info.Status,
			"payment_amount":       info.Amount,
			"payment_currency":     info.Currency,
			"payment_last_updated": now,
			"updated_at":           now,
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *orderRepoImpl) HasCompletedPurchase(ctx context.Context, tx *gorm.DB, userID, courseID, excludeOrderID string) (bool, error) {
	var count int64
	err := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Where("status = ?", model.OrderStatusCompleted).
		Where("id <> ?", excludeOrderID).
		Count(&count).Error

	return count > 0, err
}

// Delete removes the order and returns it as it was just before deletion.
func (r *orderRepoImpl) Delete(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error) {
	order, err := r.FindByID(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	result := conn(r.db, tx).WithContext(ctx).
		Where("id = ?", orderID).
		Delete(&model.Order{})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return order, nil
}
