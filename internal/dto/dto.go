package dto

import "elearning-backend/internal/model"

type CreatePaymentIntentRequest struct {
	CourseID string `json:"courseId"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	OrderID      string `json:"orderId"`
}

type ConfirmOrderRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	OrderID         string `json:"orderId"`
}

type ConfirmOrderResult struct {
	Order *model.Order
	// AlreadyCompleted is set when the order had been confirmed before this call.
	AlreadyCompleted bool
}
