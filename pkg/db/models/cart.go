package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mateoreyes/storefront-pos/pkg/enums"
)

// Cart is a customer's in-progress selection. Exactly one of CustomerID and
// AnonymousID is set; the service layer enforces it. Total is derived from
// the items and persisted for audit.
type Cart struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID  *uuid.UUID       `gorm:"column:customer_id;type:uuid"`
	AnonymousID *string          `gorm:"column:anonymous_id"`
	Status      enums.CartStatus `gorm:"column:status;not null;default:'active'"`
	Total       decimal.Decimal  `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	Items       []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
