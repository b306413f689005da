package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type RecordSaleRequest struct {
	ProductID  string  `json:"productId"  validate:"required,uuid"`
	Quantity   int     `json:"quantity"   validate:"required,min=1"`
	ClientName *string `json:"clientName" validate:"omitempty,max=120"`
}

type SaleFilter struct {
	From      string `form:"from"` // YYYY-MM-DD
	To        string `form:"to"`
	ProductID string `form:"productId"`
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=50"`
}

type SaleResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
	ClientName  *string         `json:"clientName,omitempty"`
	SellerID    string          `json:"sellerId"`
	StockAfter  *int            `json:"stockAfter,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
