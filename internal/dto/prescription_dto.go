package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type MedicationLine struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity"  validate:"required,min=1"`
}

type ValidatePrescriptionRequest struct {
	Medications []MedicationLine `json:"medications" validate:"required,min=1,dive"`
	Description *string          `json:"description" validate:"omitempty,max=1000"`
}

type RejectPrescriptionRequest struct {
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type PaymentRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=cash card insurance"`
}

// UpdatePrescriptionRequest is the generic status change payload of
// PUT /api/prescriptions/:id.
type UpdatePrescriptionRequest struct {
	Status        string           `json:"status"        validate:"required,oneof=validated rejected prepared delivered"`
	Description   *string          `json:"description"   validate:"omitempty,max=1000"`
	Medications   []MedicationLine `json:"medications"   validate:"omitempty,dive"`
	PaymentMethod *string          `json:"paymentMethod" validate:"omitempty,oneof=cash card insurance"`
}

type PrescriptionFilter struct {
	Status string `form:"status"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=50"`
}

type PrescriptionItemResponse struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Available   bool            `json:"available"`
}

type PrescriptionResponse struct {
	ID            string                     `json:"id"`
	ClientID      string                     `json:"clientId"`
	ClientName    string                     `json:"clientName,omitempty"`
	Status        string                     `json:"status"`
	Description   *string                    `json:"description,omitempty"`
	Medications   []PrescriptionItemResponse `json:"medications"`
	Total         decimal.Decimal            `json:"total"`
	PaymentMethod *string                    `json:"paymentMethod,omitempty"`
	ImageURL      string                     `json:"imageUrl"`
	ValidatedAt   *time.Time                 `json:"validatedAt,omitempty"`
	PreparedAt    *time.Time                 `json:"preparedAt,omitempty"`
	DeliveredAt   *time.Time                 `json:"deliveredAt,omitempty"`
	CreatedAt     time.Time                  `json:"createdAt"`
}

type PrescriptionListResponse struct {
	Prescriptions []PrescriptionResponse `json:"prescriptions"`
	Total         int64                  `json:"total"`
}
