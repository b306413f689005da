package service

import (
	"context"
	"errors"
	"fmt"

	"officine/internal/apierror"
	"officine/internal/dto"
	"officine/internal/model"
	"officine/internal/realtime"
	"officine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService is the storefront checkout and the order desk.
type OrderService interface {
	Checkout(ctx context.Context, customerID uuid.UUID, req dto.CheckoutRequest) (*dto.OrderResponse, error)
	UpdateStatus(ctx context.Context, staffID, id uuid.UUID, status string) (*dto.OrderResponse, error)
	Get(ctx context.Context, caller Actor, id uuid.UUID) (*dto.OrderResponse, error)
	List(ctx context.Context, filter dto.OrderFilter) (*dto.OrderListResponse, error)
	ListMine(ctx context.Context, customerID uuid.UUID, filter dto.OrderFilter) (*dto.OrderListResponse, error)
}

type orderService struct {
	repo   repository.OrderRepository
	ledger ledger
	events realtime.Publisher
}

func NewOrderService(
	repo repository.OrderRepository,
	products repository.ProductRepository,
	movements repository.StockMovementRepository,
	events realtime.Publisher,
) OrderService {
	return &orderService{
		repo:   repo,
		ledger: ledger{products: products, movements: movements},
		events: events,
	}
}

func mapOrder(o *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = dto.OrderItemResponse{
			ProductID:   it.ProductID.String(),
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		}
	}
	return dto.OrderResponse{
		ID:              o.ID.String(),
		CustomerID:      o.CustomerID.String(),
		Status:          o.Status,
		Items:           items,
		Total:           o.Total,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// Checkout snapshots current prices and takes the stock of every line in one
// transaction. Prescription-only products cannot be ordered online.
func (s *orderService) Checkout(ctx context.Context, customerID uuid.UUID, req dto.CheckoutRequest) (*dto.OrderResponse, error) {
	if len(req.Items) == 0 {
		return nil, apierror.FieldErrors(map[string]string{"items": "required"})
	}
	demand := make(map[uuid.UUID]int, len(req.Items))
	order := []uuid.UUID{}
	for i, line := range req.Items {
		id, err := parseID(line.ProductID, fmt.Sprintf("items[%d].productId", i))
		if err != nil {
			return nil, err
		}
		if line.Quantity < 1 {
			return nil, apierror.FieldErrors(map[string]string{fmt.Sprintf("items[%d].quantity", i): "min"})
		}
		if _, seen := demand[id]; !seen {
			order = append(order, id)
		}
		demand[id] += line.Quantity
	}

	o := &model.Order{
		ID:              uuid.New(),
		CustomerID:      customerID,
		Status:          model.OrderPending,
		ShippingAddress: req.ShippingAddress,
	}
	var changed []repository.StockChange

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.ledger.lockAll(tx, demand)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, id := range order {
			p := locked[id]
			if !p.Active {
				return apierror.Validation(p.Name + " is no longer sold")
			}
			if p.RequiresPrescription {
				return apierror.Validation(p.Name + " requires a prescription")
			}
			qty := demand[id]
			line := p.PriceTTC.Mul(decimal.NewFromInt(int64(qty)))
			o.Items = append(o.Items, model.OrderItem{
				ProductID:   id,
				ProductName: p.Name,
				Quantity:    qty,
				UnitPrice:   p.PriceTTC,
				LineTotal:   line,
			})
			total = total.Add(line)
		}
		o.Total = total

		for _, it := range o.Items {
			change, _, err := s.ledger.apply(tx, stockEntry{
				productID: it.ProductID,
				kind:      model.MovementOut,
				delta:     -it.Quantity,
				reason:    "online order",
				reference: &o.ID,
				user:      &customerID,
			})
			if err != nil {
				return err
			}
			changed = append(changed, *change)
		}
		return s.repo.CreateTx(tx, o)
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return nil, apierror.Validation("unknown product in order")
		}
		return nil, stockConflict(txErr, "order")
	}

	resp := mapOrder(o)
	s.events.Publish(realtime.EventNewOrder, resp, realtime.StaffRooms...)
	for i := range changed {
		alertIfLow(s.events, &changed[i].Product)
	}
	return &resp, nil
}

// UpdateStatus advances the order. Cancelling a pending order puts its
// stock back.
func (s *orderService) UpdateStatus(ctx context.Context, staffID, id uuid.UUID, status string) (*dto.OrderResponse, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "order")
	}
	if !model.OrderCanMove(o.Status, status) {
		return nil, apierror.InvalidState(fmt.Sprintf("cannot move order from %s to %s", o.Status, status))
	}

	from := o.Status
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdateStatusTx(tx, o.ID, from, status); err != nil {
			return err
		}
		if status != model.OrderCancelled {
			return nil
		}
		for _, it := range o.Items {
			if _, _, err := s.ledger.apply(tx, stockEntry{
				productID: it.ProductID,
				kind:      model.MovementIn,
				delta:     it.Quantity,
				reason:    "order cancelled",
				reference: &o.ID,
				user:      &staffID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, translate(txErr, "order")
	}

	o.Status = status
	resp := mapOrder(o)
	rooms := append([]string{realtime.UserRoom(o.CustomerID.String())}, realtime.StaffRooms...)
	s.events.Publish(realtime.EventOrderUpdated, resp, rooms...)
	return &resp, nil
}

func (s *orderService) Get(ctx context.Context, caller Actor, id uuid.UUID) (*dto.OrderResponse, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "order")
	}
	if !caller.Role.IsStaff() && o.CustomerID != caller.ID {
		return nil, apierror.Forbidden("not your order")
	}
	resp := mapOrder(o)
	return &resp, nil
}

func (s *orderService) List(ctx context.Context, filter dto.OrderFilter) (*dto.OrderListResponse, error) {
	return s.list(ctx, repository.OrderFilter{Status: filter.Status, Page: filter.Page, Limit: filter.Limit})
}

func (s *orderService) ListMine(ctx context.Context, customerID uuid.UUID, filter dto.OrderFilter) (*dto.OrderListResponse, error) {
	return s.list(ctx, repository.OrderFilter{CustomerID: &customerID, Status: filter.Status, Page: filter.Page, Limit: filter.Limit})
}

func (s *orderService) list(ctx context.Context, f repository.OrderFilter) (*dto.OrderListResponse, error) {
	list, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]dto.OrderResponse, len(list))
	for i := range list {
		out[i] = mapOrder(&list[i])
	}
	return &dto.OrderListResponse{Data: out, Total: total}, nil
}
