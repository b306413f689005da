package dto

import "time"

// StockMovementRequest records a manual movement. For "adjustment" quantity is
// a signed delta; for "in" / "out" it must be positive.
type StockMovementRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Type      string `json:"type"      validate:"required,oneof=in out adjustment"`
	Quantity  int    `json:"quantity"  validate:"required,ne=0"`
	Reason    string `json:"reason"    validate:"required,min=3,max=250"`
}

type StockMovementFilter struct {
	ProductID string `form:"productId"`
	Type      string `form:"type"`
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=50"`
}

type StockMovementResponse struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName,omitempty"`
	Type        string    `json:"type"`
	Quantity    int       `json:"quantity"`
	StockBefore int       `json:"stockBefore"`
	StockAfter  int       `json:"stockAfter"`
	Reason      string    `json:"reason"`
	ReferenceID *string   `json:"referenceId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type StockMovementListResponse struct {
	Data  []StockMovementResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}

type LowStockAlert struct {
	ProductID string `json:"productId"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}
