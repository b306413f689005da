package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is never negative.
type Product struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU                  string    `gorm:"column:sku;uniqueIndex;not null"`
	Name                 string    `gorm:"index;not null"`
	Description          *string
	PriceHT              decimal.Decimal `gorm:"column:price_ht;type:decimal(10,2);not null"`
	PriceTTC             decimal.Decimal `gorm:"column:price_ttc;type:decimal(10,2);not null"`
	Stock                int             `gorm:"not null;default:0"`
	LowStockThreshold    int             `gorm:"not null;default:5"`
	RequiresPrescription bool            `gorm:"not null;default:false"`
	CategoryID           *uuid.UUID      `gorm:"type:uuid;index"`
	SupplierID           *uuid.UUID      `gorm:"type:uuid;index"`
	Active               bool            `gorm:"not null;default:true"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Category *Category `gorm:"foreignKey:CategoryID"`
	Supplier *Supplier `gorm:"foreignKey:SupplierID"`
}

// IsLowStock reports whether stock reached the alert threshold.
func (p *Product) IsLowStock() bool { return p.Stock <= p.LowStockThreshold }
