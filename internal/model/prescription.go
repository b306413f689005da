package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PrescriptionPending   = "pending"
	PrescriptionValidated = "validated"
	PrescriptionRejected  = "rejected"
	PrescriptionPrepared  = "prepared"
	PrescriptionDelivered = "delivered"
)

var prescriptionNext = map[string][]string{
	PrescriptionPending:   {PrescriptionValidated, PrescriptionRejected},
	PrescriptionValidated: {PrescriptionPrepared},
	PrescriptionPrepared:  {PrescriptionDelivered},
}

// PrescriptionCanMove reports whether the workflow allows from -> to.
// Rejected and delivered are terminal.
func PrescriptionCanMove(from, to string) bool {
	for _, s := range prescriptionNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Prescription is an uploaded prescription going through pharmacist review.
type Prescription struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClientID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ImagePath     string    `gorm:"not null"`
	ImageType     string    `gorm:"not null"`
	Status        string    `gorm:"type:varchar(20);not null;default:'pending';index"`
	Note          *string
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PaymentMethod *string
	HandledBy     *uuid.UUID `gorm:"type:uuid"`
	ValidatedAt   *time.Time
	PreparedAt    *time.Time
	DeliveredAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Items  []PrescriptionItem `gorm:"foreignKey:PrescriptionID"`
	Client *User              `gorm:"foreignKey:ClientID"`
}

// PrescriptionItem is one medication line set at validation time.
type PrescriptionItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PrescriptionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName    string          `gorm:"not null"`
	Quantity       int             `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Available      bool            `gorm:"not null;default:false"`
}
