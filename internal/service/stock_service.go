package service

import (
	"context"
	"sort"

	"officine/internal/apierror"
	"officine/internal/dto"
	"officine/internal/model"
	"officine/internal/realtime"
	"officine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockService owns the movement ledger and low-stock alerts.
type StockService interface {
	RecordMovement(ctx context.Context, userID uuid.UUID, req dto.StockMovementRequest) (*dto.StockMovementResponse, error)
	ListMovements(ctx context.Context, filter dto.StockMovementFilter) (*dto.StockMovementListResponse, error)
	LowStock(ctx context.Context) ([]dto.LowStockAlert, error)
	// ScanLowStock publishes one low-stock event per product under its
	// threshold and returns how many were published.
	ScanLowStock(ctx context.Context) (int, error)
}

type stockService struct {
	ledger ledger
	events realtime.Publisher
}

func NewStockService(products repository.ProductRepository, movements repository.StockMovementRepository, events realtime.Publisher) StockService {
	return &stockService{ledger: ledger{products: products, movements: movements}, events: events}
}

// ledger applies stock changes and records the matching movement with the
// same transaction handle.
type ledger struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
}

type stockEntry struct {
	productID uuid.UUID
	kind      string
	delta     int
	reason    string
	reference *uuid.UUID
	user      *uuid.UUID
}

func (l ledger) apply(tx *gorm.DB, e stockEntry) (*repository.StockChange, *model.StockMovement, error) {
	change, err := l.products.AdjustStockTx(tx, e.productID, e.delta)
	if err != nil {
		return nil, nil, err
	}
	qty := e.delta
	if e.kind != model.MovementAdjustment && qty < 0 {
		qty = -qty
	}
	m := &model.StockMovement{
		ProductID:   e.productID,
		Type:        e.kind,
		Quantity:    qty,
		StockBefore: change.StockBefore,
		StockAfter:  change.StockAfter,
		Reason:      e.reason,
		ReferenceID: e.reference,
		UserID:      e.user,
	}
	if err := l.movements.CreateTx(tx, m); err != nil {
		return nil, nil, err
	}
	return change, m, nil
}

// lockAll locks every product of demand in id order and checks that current
// stock covers the requested quantity. Nothing is written.
func (l ledger) lockAll(tx *gorm.DB, demand map[uuid.UUID]int) (map[uuid.UUID]*model.Product, error) {
	ids := make([]uuid.UUID, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	locked := make(map[uuid.UUID]*model.Product, len(ids))
	for _, id := range ids {
		p, err := l.products.LockTx(tx, id)
		if err != nil {
			return nil, err
		}
		if p.Stock < demand[id] {
			return nil, apierror.InsufficientStock("insufficient stock for " + p.Name)
		}
		locked[id] = p
	}
	return locked, nil
}

func alertIfLow(events realtime.Publisher, p *model.Product) {
	if p.Active && p.IsLowStock() {
		events.Publish(realtime.EventLowStock, lowStockAlert(p), realtime.StaffRooms...)
	}
}

func lowStockAlert(p *model.Product) dto.LowStockAlert {
	return dto.LowStockAlert{
		ProductID: p.ID.String(),
		SKU:       p.SKU,
		Name:      p.Name,
		Stock:     p.Stock,
		Threshold: p.LowStockThreshold,
	}
}

func mapMovement(m *model.StockMovement) dto.StockMovementResponse {
	resp := dto.StockMovementResponse{
		ID:          m.ID.String(),
		ProductID:   m.ProductID.String(),
		Type:        m.Type,
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Reason:      m.Reason,
		ReferenceID: idString(m.ReferenceID),
		CreatedAt:   m.CreatedAt,
	}
	if m.Product != nil {
		resp.ProductName = m.Product.Name
	}
	return resp
}

func (s *stockService) RecordMovement(ctx context.Context, userID uuid.UUID, req dto.StockMovementRequest) (*dto.StockMovementResponse, error) {
	productID, err := parseID(req.ProductID, "productId")
	if err != nil {
		return nil, err
	}
	delta := req.Quantity
	switch req.Type {
	case model.MovementIn, model.MovementOut:
		if req.Quantity < 1 {
			return nil, apierror.FieldErrors(map[string]string{"quantity": "min"})
		}
		if req.Type == model.MovementOut {
			delta = -req.Quantity
		}
	case model.MovementAdjustment:
	default:
		return nil, apierror.FieldErrors(map[string]string{"type": "oneof"})
	}

	var change *repository.StockChange
	var movement *model.StockMovement
	err = runTx(ctx, s.ledger.products.DB(), func(tx *gorm.DB) error {
		var err error
		change, movement, err = s.ledger.apply(tx, stockEntry{
			productID: productID,
			kind:      req.Type,
			delta:     delta,
			reason:    req.Reason,
			user:      &userID,
		})
		return err
	})
	if err != nil {
		return nil, stockConflict(err, "product")
	}

	alertIfLow(s.events, &change.Product)
	movement.Product = &change.Product
	resp := mapMovement(movement)
	return &resp, nil
}

func (s *stockService) ListMovements(ctx context.Context, filter dto.StockMovementFilter) (*dto.StockMovementListResponse, error) {
	f := repository.StockMovementFilter{Type: filter.Type, Page: filter.Page, Limit: filter.Limit}
	if filter.ProductID != "" {
		id, err := parseID(filter.ProductID, "productId")
		if err != nil {
			return nil, err
		}
		f.ProductID = &id
	}
	list, total, err := s.ledger.movements.List(ctx, f)
	if err != nil {
		return nil, err
	}
	page, limit, _ := repository.Page(filter.Page, filter.Limit, 100, 500)
	out := make([]dto.StockMovementResponse, len(list))
	for i := range list {
		out[i] = mapMovement(&list[i])
	}
	return &dto.StockMovementListResponse{Data: out, Total: total, Page: page, Limit: limit}, nil
}

func (s *stockService) LowStock(ctx context.Context) ([]dto.LowStockAlert, error) {
	products, err := s.ledger.products.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockAlert, len(products))
	for i := range products {
		out[i] = lowStockAlert(&products[i])
	}
	return out, nil
}

func (s *stockService) ScanLowStock(ctx context.Context) (int, error) {
	products, err := s.ledger.products.ListLowStock(ctx)
	if err != nil {
		return 0, err
	}
	for i := range products {
		s.events.Publish(realtime.EventLowStock, lowStockAlert(&products[i]), realtime.StaffRooms...)
	}
	return len(products), nil
}
