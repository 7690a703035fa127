package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Course struct {
	ID             string          `gorm:"primaryKey;size:36;not null" json:"id"`
	Name           string          `gorm:"size:255;not null" json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	EstimatedPrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"estimatedPrice"`
	Purchased      int64           `gorm:"not null;default:0" json:"purchased"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// PriceMinorUnits converts the decimal price to integer minor units, rounding
// half away from zero.
func (c *Course) PriceMinorUnits() int64 {
	return c.Price.Mul(hundred).Round(0).IntPart()
}
