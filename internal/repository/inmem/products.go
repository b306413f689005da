package inmem

import (
	"context"
	"sort"

	"officine/internal/dto"
	"officine/internal/model"
	"officine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Products struct{ s *Store }

func NewProducts(s *Store) *Products { return &Products{s: s} }

var _ repository.ProductRepository = (*Products)(nil)

func (r *Products) DB() *gorm.DB { return nil }

func (r *Products) skuTaken(sku string, except uuid.UUID) bool {
	for id, p := range r.s.products {
		if p.SKU == sku && id != except {
			return true
		}
	}
	return false
}

func (r *Products) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.skuTaken(p.SKU, uuid.Nil) {
		return gorm.ErrDuplicatedKey
	}
	ensureID(&p.ID)
	p.CreatedAt = r.s.tick()
	p.UpdatedAt = p.CreatedAt
	r.s.products[p.ID] = *p
	return nil
}

func (r *Products) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *Products) FindBySKU(_ context.Context, sku string) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.products {
		if p.SKU == sku && p.Active {
			cp := p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Products) sorted(keep func(model.Product) bool) []model.Product {
	out := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Products) List(_ context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.sorted(func(p model.Product) bool {
		switch filter.Active {
		case "false":
			if p.Active {
				return false
			}
		case "all":
		default:
			if !p.Active {
				return false
			}
		}
		if filter.Search != "" && !containsFold(p.Name, filter.Search) && !containsFold(p.SKU, filter.Search) {
			return false
		}
		if filter.CategoryID != "" && (p.CategoryID == nil || p.CategoryID.String() != filter.CategoryID) {
			return false
		}
		if filter.SupplierID != "" && (p.SupplierID == nil || p.SupplierID.String() != filter.SupplierID) {
			return false
		}
		return true
	})
	_, limit, offset := repository.Page(filter.Page, filter.Limit, 20, 100)
	return window(out, offset, limit), int64(len(out)), nil
}

func (r *Products) ListLowStock(_ context.Context) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.sorted(func(p model.Product) bool { return p.Active && p.IsLowStock() })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

func (r *Products) ListAll(_ context.Context) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(model.Product) bool { return true }), nil
}

func (r *Products) Update(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if r.skuTaken(p.SKU, p.ID) {
		return gorm.ErrDuplicatedKey
	}
	next := *p
	next.Stock = cur.Stock
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = r.s.tick()
	r.s.products[p.ID] = next
	return nil
}

func (r *Products) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Active = false
	r.s.products[id] = p
	return nil
}

func (r *Products) LockTx(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(context.Background(), id)
}

func (r *Products) AdjustStockTx(_ *gorm.DB, id uuid.UUID, delta int) (*repository.StockChange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	after := p.Stock + delta
	if after < 0 {
		return nil, repository.ErrInsufficientStock
	}
	before := p.Stock
	p.Stock = after
	r.s.products[id] = p
	return &repository.StockChange{Product: p, StockBefore: before, StockAfter: after}, nil
}
