package service

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"

	"officine/internal/apierror"
	"officine/internal/dto"
	"officine/internal/infra"
	"officine/internal/model"
	"officine/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProductService defines the business logic contract for the catalog.
type ProductService interface {
	Create(ctx context.Context, userID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	GetBySKU(ctx context.Context, sku string) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Export(ctx context.Context, w io.Writer) error
}

type productService struct {
	repo       repository.ProductRepository
	categories repository.CategoryRepository
	suppliers  repository.SupplierRepository
	ledger     ledger
	cache      *infra.JSONCache
}

func NewProductService(
	repo repository.ProductRepository,
	categories repository.CategoryRepository,
	suppliers repository.SupplierRepository,
	movements repository.StockMovementRepository,
	cache *infra.JSONCache,
) ProductService {
	return &productService{
		repo:       repo,
		categories: categories,
		suppliers:  suppliers,
		ledger:     ledger{products: repo, movements: movements},
		cache:      cache,
	}
}

func mapProduct(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:                   p.ID.String(),
		SKU:                  p.SKU,
		Name:                 p.Name,
		Description:          p.Description,
		PriceHT:              p.PriceHT,
		PriceTTC:             p.PriceTTC,
		Stock:                p.Stock,
		LowStockThreshold:    p.LowStockThreshold,
		LowStock:             p.IsLowStock(),
		RequiresPrescription: p.RequiresPrescription,
		CategoryID:           idString(p.CategoryID),
		SupplierID:           idString(p.SupplierID),
		Active:               p.Active,
	}
}

func duplicateSKU(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apierror.FieldErrors(map[string]string{"sku": "unique"})
	}
	return translate(err, "product")
}

// references resolves and checks the optional category and supplier ids.
func (s *productService) references(ctx context.Context, categoryRaw, supplierRaw *string) (*uuid.UUID, *uuid.UUID, error) {
	categoryID, err := parseOptionalID(categoryRaw, "categoryId")
	if err != nil {
		return nil, nil, err
	}
	supplierID, err := parseOptionalID(supplierRaw, "supplierId")
	if err != nil {
		return nil, nil, err
	}
	if categoryID != nil {
		if _, err := s.categories.FindByID(ctx, *categoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, apierror.FieldErrors(map[string]string{"categoryId": "exists"})
			}
			return nil, nil, err
		}
	}
	if supplierID != nil {
		if _, err := s.suppliers.FindByID(ctx, *supplierID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, apierror.FieldErrors(map[string]string{"supplierId": "exists"})
			}
			return nil, nil, err
		}
	}
	return categoryID, supplierID, nil
}

func (s *productService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	categoryID, supplierID, err := s.references(ctx, req.CategoryID, req.SupplierID)
	if err != nil {
		return nil, err
	}
	if req.PriceTTC.LessThan(req.PriceHT) {
		return nil, apierror.FieldErrors(map[string]string{"priceTTC": "gtefield"})
	}
	threshold := 5
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	}

	p := &model.Product{
		SKU:                  strings.TrimSpace(req.SKU),
		Name:                 strings.TrimSpace(req.Name),
		Description:          req.Description,
		PriceHT:              req.PriceHT,
		PriceTTC:             req.PriceTTC,
		LowStockThreshold:    threshold,
		RequiresPrescription: req.RequiresPrescription,
		CategoryID:           categoryID,
		SupplierID:           supplierID,
		Active:               true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, duplicateSKU(err)
	}

	// Opening stock goes through the ledger so the history starts at zero.
	if req.Stock > 0 {
		change, _, err := s.ledger.apply(nil, stockEntry{
			productID: p.ID,
			kind:      model.MovementIn,
			delta:     req.Stock,
			reason:    "opening stock",
			user:      &userID,
		})
		if err != nil {
			log.Error().Err(err).Str("product_id", p.ID.String()).Msg("opening stock not recorded")
		} else {
			p.Stock = change.StockAfter
		}
	}

	resp := mapProduct(p)
	return &resp, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "product")
	}
	resp := mapProduct(p)
	return &resp, nil
}

// GetBySKU is the counter scan path; active products are cached in Redis.
func (s *productService) GetBySKU(ctx context.Context, sku string) (*dto.ProductResponse, error) {
	sku = strings.TrimSpace(sku)
	var cached dto.ProductResponse
	if s.cache.Get(ctx, sku, &cached) {
		return &cached, nil
	}
	p, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, translate(err, "product")
	}
	resp := mapProduct(p)
	s.cache.Set(ctx, sku, resp)
	return &resp, nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	page, limit, _ := repository.Page(filter.Page, filter.Limit, 20, 100)
	data := make([]dto.ProductResponse, len(list))
	for i := range list {
		data[i] = mapProduct(&list[i])
	}
	return &dto.ProductListResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "product")
	}
	oldSKU := p.SKU

	if req.SKU != nil {
		p.SKU = strings.TrimSpace(*req.SKU)
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.PriceHT != nil {
		p.PriceHT = *req.PriceHT
	}
	if req.PriceTTC != nil {
		p.PriceTTC = *req.PriceTTC
	}
	if !p.PriceHT.IsPositive() {
		return nil, apierror.FieldErrors(map[string]string{"priceHT": "gt"})
	}
	if p.PriceTTC.LessThan(p.PriceHT) {
		return nil, apierror.FieldErrors(map[string]string{"priceTTC": "gtefield"})
	}
	if req.LowStockThreshold != nil {
		p.LowStockThreshold = *req.LowStockThreshold
	}
	if req.RequiresPrescription != nil {
		p.RequiresPrescription = *req.RequiresPrescription
	}
	if req.CategoryID != nil || req.SupplierID != nil {
		categoryID, supplierID, err := s.references(ctx, req.CategoryID, req.SupplierID)
		if err != nil {
			return nil, err
		}
		if req.CategoryID != nil {
			p.CategoryID = categoryID
		}
		if req.SupplierID != nil {
			p.SupplierID = supplierID
		}
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, duplicateSKU(err)
	}
	s.cache.Invalidate(ctx, oldSKU, p.SKU)
	resp := mapProduct(p)
	return &resp, nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return translate(err, "product")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return translate(err, "product")
	}
	s.cache.Invalidate(ctx, p.SKU)
	return nil
}

func (s *productService) Export(ctx context.Context, w io.Writer) error {
	products, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	return infra.WriteProductsXLSX(w, products)
}
