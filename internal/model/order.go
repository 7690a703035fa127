package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled, OrderStatusFailed:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodApplePay  PaymentMethod = "apple_pay"
	PaymentMethodGooglePay PaymentMethod = "google_pay"
	PaymentMethodOther     PaymentMethod = "other"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodApplePay, PaymentMethodGooglePay, PaymentMethodOther:
		return true
	default:
		return false
	}
}

// PaymentInfo mirrors the gateway's view of the payment. Amount is in minor units.
type PaymentInfo struct {
	IntentID    string     `gorm:"size:128;index" json:"id"`
	Status      string     `gorm:"size:64" json:"status"`
	Amount      int64      `json:"amount"`
	Currency    string     `gorm:"size:8" json:"currency"`
	LastUpdated *time.Time `json:"updatedAt,omitempty"`
}

type ExportDetails struct {
	Description string `json:"description"`
	HSCode      string `gorm:"size:16" json:"hs_code"`
	SACCode     string `gorm:"size:16" json:"sac_code"`
	IsExport    bool   `json:"is_export"`
	ServiceType string `gorm:"size:64" json:"service_type"`
}

type Order struct {
	ID            string        `gorm:"primaryKey;size:36;not null" json:"id"`
	CourseID      string        `gorm:"size:36;index;not null" json:"courseId"`
	UserID        string        `gorm:"size:36;index;not null" json:"userId"`
	TotalAmount   int64         `gorm:"not null" json:"totalAmount"` // minor units
	Currency      string        `gorm:"size:8;not null" json:"currency"`
	PaymentMethod PaymentMethod `gorm:"size:16;not null;default:card" json:"paymentMethod"`
	Status        OrderStatus   `gorm:"size:16;index;not null;default:pending" json:"status"`
	PaymentInfo   PaymentInfo   `gorm:"embedded;embeddedPrefix:payment_" json:"payment_info"`
	ExportDetails ExportDetails `gorm:"embedded;embeddedPrefix:export_" json:"export_details"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
