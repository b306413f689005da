package inmem

import (
	"context"
	"time"

	"officine/internal/model"
	"officine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Stock movements ──────────────────────────────────────────────────────────

type StockMovements struct{ s *Store }

func NewStockMovements(s *Store) *StockMovements { return &StockMovements{s: s} }

var _ repository.StockMovementRepository = (*StockMovements)(nil)

func (r *StockMovements) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ensureID(&m.ID)
	m.CreatedAt = r.s.tick()
	r.s.movements = append(r.s.movements, *m)
	return nil
}

func (r *StockMovements) List(_ context.Context, filter repository.StockMovementFilter) ([]model.StockMovement, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.StockMovement, 0)
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.ReferenceID != nil && (m.ReferenceID == nil || *m.ReferenceID != *filter.ReferenceID) {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if p, ok := r.s.products[m.ProductID]; ok {
			cp := p
			m.Product = &cp
		}
		out = append(out, m)
	}
	_, limit, offset := repository.Page(filter.Page, filter.Limit, 100, 500)
	return window(out, offset, limit), int64(len(out)), nil
}

// ── Sales ────────────────────────────────────────────────────────────────────

type Sales struct{ s *Store }

func NewSales(s *Store) *Sales { return &Sales{s: s} }

var _ repository.SaleRepository = (*Sales)(nil)

func (r *Sales) DB() *gorm.DB { return nil }

func (r *Sales) CreateTx(_ *gorm.DB, sale *model.Sale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ensureID(&sale.ID)
	sale.CreatedAt = r.s.tick()
	r.s.sales[sale.ID] = *sale
	return nil
}

func (r *Sales) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sale, ok := r.s.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &sale, nil
}

func (r *Sales) List(_ context.Context, filter repository.SaleFilter) ([]model.Sale, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Sale, 0, len(r.s.sales))
	for _, sale := range r.s.sales {
		if filter.From != nil && sale.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !sale.CreatedAt.Before(*filter.To) {
			continue
		}
		if filter.ProductID != nil && sale.ProductID != *filter.ProductID {
			continue
		}
		out = append(out, sale)
	}
	sortByTimeDesc(out, func(s model.Sale) time.Time { return s.CreatedAt })
	_, limit, offset := repository.Page(filter.Page, filter.Limit, 50, 500)
	return window(out, offset, limit), int64(len(out)), nil
}
