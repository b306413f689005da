package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	SKU                  string          `json:"sku"                  validate:"required,min=3,max=40"`
	Name                 string          `json:"name"                 validate:"required,min=2,max=160"`
	Description          *string         `json:"description"`
	PriceHT              decimal.Decimal `json:"priceHT"              validate:"required,gt=0"`
	PriceTTC             decimal.Decimal `json:"priceTTC"             validate:"required,gt=0"`
	Stock                int             `json:"stock"                validate:"min=0"`
	LowStockThreshold    *int            `json:"lowStockThreshold"    validate:"omitempty,min=0"`
	RequiresPrescription bool            `json:"requiresPrescription"`
	CategoryID           *string         `json:"categoryId"           validate:"omitempty,uuid"`
	SupplierID           *string         `json:"supplierId"           validate:"omitempty,uuid"`
}

// UpdateProductRequest never touches stock; stock only moves through the ledger.
type UpdateProductRequest struct {
	SKU                  *string          `json:"sku"                  validate:"omitempty,min=3,max=40"`
	Name                 *string          `json:"name"                 validate:"omitempty,min=2,max=160"`
	Description          *string          `json:"description"`
	PriceHT              *decimal.Decimal `json:"priceHT"`
	PriceTTC             *decimal.Decimal `json:"priceTTC"`
	LowStockThreshold    *int             `json:"lowStockThreshold"    validate:"omitempty,min=0"`
	RequiresPrescription *bool            `json:"requiresPrescription"`
	CategoryID           *string          `json:"categoryId"           validate:"omitempty,uuid"`
	SupplierID           *string          `json:"supplierId"           validate:"omitempty,uuid"`
	Active               *bool            `json:"active"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductFilter struct {
	Search     string `form:"search"`
	CategoryID string `form:"categoryId"`
	SupplierID string `form:"supplierId"`
	Active     string `form:"active"` // "false" = inactive, "all" = both, default active
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID                   string          `json:"id"`
	SKU                  string          `json:"sku"`
	Name                 string          `json:"name"`
	Description          *string         `json:"description,omitempty"`
	PriceHT              decimal.Decimal `json:"priceHT"`
	PriceTTC             decimal.Decimal `json:"priceTTC"`
	Stock                int             `json:"stock"`
	LowStockThreshold    int             `json:"lowStockThreshold"`
	LowStock             bool            `json:"lowStock"`
	RequiresPrescription bool            `json:"requiresPrescription"`
	CategoryID           *string         `json:"categoryId,omitempty"`
	SupplierID           *string         `json:"supplierId,omitempty"`
	Active               bool            `json:"active"`
}

type ProductListResponse struct {
	Data       []ProductResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
}
