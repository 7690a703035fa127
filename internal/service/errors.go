package service

import (
	"fmt"

	"elearning-backend/internal/apperror"

	"github.com/google/uuid"
)

var (
	ErrInvalidCourseID  = apperror.Validation("valid course id is required")
	ErrInvalidUserID    = apperror.Validation("invalid user id")
	ErrInvalidOrderID   = apperror.Validation("valid order id is required")
	ErrMissingIntentID  = apperror.Validation("payment intent id is required")
	ErrInvalidPrice     = apperror.Validation("course price must be greater than zero")
	ErrInvalidWebhook   = apperror.Validation("invalid webhook payload")
	ErrUserNotFound     = apperror.NotFound("user not found")
	ErrCourseNotFound   = apperror.NotFound("course not found")
	ErrOrderNotFound    = apperror.NotFound("order not found")
	ErrAlreadyPurchased = apperror.Conflict("you have already purchased this course")
	ErrIntentMismatch   = apperror.New(apperror.KindConsistency, "payment intent does not match order")
)

func errOrderNotPending(status string) error {
	return apperror.Conflict("order is %s and can no longer be confirmed", status)
}

func errPaymentNotCompleted(status string) error {
	return apperror.New(apperror.KindConsistency, fmt.Sprintf("payment not completed. status: %s", status))
}

func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
