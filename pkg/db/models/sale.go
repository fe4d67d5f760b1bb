package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mateoreyes/storefront-pos/pkg/enums"
)

// Sale is a finalized, priced transaction. Total is derived: after every
// line-item mutation commits, it equals the sum of the live items'
// subtotals. Sales are soft-deleted, never hard-deleted.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Status        enums.SaleStatus    `gorm:"column:status;not null;default:'draft'"`
	EmployeeID    *uuid.UUID          `gorm:"column:employee_id;type:uuid"`
	EmployeeName  string              `gorm:"column:employee_name;not null"`
	CustomerName  *string             `gorm:"column:customer_name"`
	Notes         *string             `gorm:"column:notes"`
	Items         []SaleLineItem      `gorm:"foreignKey:SaleID"`
	Payments      []Payment           `gorm:"foreignKey:SaleID"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt     gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

func (s *Sale) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
