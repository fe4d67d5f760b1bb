package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mateoreyes/storefront-pos/pkg/enums"
)

// Payment records a simulated payment outcome for a sale. Amount always
// equals the sale total at creation time. Only the chosen method's fields
// are populated; the other method's fields stay null.
type Payment struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SaleID         uuid.UUID           `gorm:"column:sale_id;type:uuid;not null;index"`
	Method         enums.PaymentMethod `gorm:"column:method;not null"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status         enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	CardLastDigits *string             `gorm:"column:card_last_digits"`
	CardHolder     *string             `gorm:"column:card_holder"`
	QRReference    *string             `gorm:"column:qr_reference"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
