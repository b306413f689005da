package service

import (
	"context"
	"io"
	"time"

	"officine/internal/apierror"
	"officine/internal/dto"
	"officine/internal/infra"
	"officine/internal/model"
	"officine/internal/realtime"
	"officine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleService interface {
	RecordSale(ctx context.Context, sellerID uuid.UUID, req dto.RecordSaleRequest) (*dto.SaleResponse, error)
	List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	Receipt(ctx context.Context, id uuid.UUID, w io.Writer) error
}

type saleService struct {
	repo         repository.SaleRepository
	ledger       ledger
	events       realtime.Publisher
	pharmacyName string
}

func NewSaleService(
	repo repository.SaleRepository,
	products repository.ProductRepository,
	movements repository.StockMovementRepository,
	events realtime.Publisher,
	pharmacyName string,
) SaleService {
	return &saleService{
		repo:         repo,
		ledger:       ledger{products: products, movements: movements},
		events:       events,
		pharmacyName: pharmacyName,
	}
}

func mapSale(s *model.Sale) dto.SaleResponse {
	return dto.SaleResponse{
		ID:          s.ID.String(),
		ProductID:   s.ProductID.String(),
		ProductName: s.ProductName,
		Quantity:    s.Quantity,
		UnitPrice:   s.UnitPrice,
		Total:       s.Total,
		ClientName:  s.ClientName,
		SellerID:    s.SellerID.String(),
		CreatedAt:   s.CreatedAt,
	}
}

// RecordSale decrements stock, appends the out movement and stores the sale
// in one transaction. Stock is checked under the row lock, so concurrent
// sales on the same product serialize and the first committer wins.
func (s *saleService) RecordSale(ctx context.Context, sellerID uuid.UUID, req dto.RecordSaleRequest) (*dto.SaleResponse, error) {
	productID, err := parseID(req.ProductID, "productId")
	if err != nil {
		return nil, err
	}
	if req.Quantity < 1 {
		return nil, apierror.FieldErrors(map[string]string{"quantity": "min"})
	}

	var sale model.Sale
	var change *repository.StockChange
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.ledger.products.LockTx(tx, productID)
		if err != nil {
			return err
		}
		if !p.Active {
			return apierror.NotFound("product not found")
		}
		if p.Stock < req.Quantity {
			return repository.ErrInsufficientStock
		}

		sale = model.Sale{
			ID:          uuid.New(),
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    req.Quantity,
			UnitPrice:   p.PriceTTC,
			Total:       p.PriceTTC.Mul(decimal.NewFromInt(int64(req.Quantity))),
			ClientName:  req.ClientName,
			SellerID:    sellerID,
		}
		change, _, err = s.ledger.apply(tx, stockEntry{
			productID: p.ID,
			kind:      model.MovementOut,
			delta:     -req.Quantity,
			reason:    "counter sale",
			reference: &sale.ID,
			user:      &sellerID,
		})
		if err != nil {
			return err
		}
		return s.repo.CreateTx(tx, &sale)
	})
	if txErr != nil {
		return nil, stockConflict(txErr, "product")
	}

	resp := mapSale(&sale)
	resp.StockAfter = &change.StockAfter
	s.events.Publish(realtime.EventNewSale, resp, realtime.StaffRooms...)
	alertIfLow(s.events, &change.Product)
	return &resp, nil
}

func parseDay(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, apierror.FieldErrors(map[string]string{field: "date"})
	}
	return &t, nil
}

// List filters by calendar days; both bounds are inclusive.
func (s *saleService) List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	from, err := parseDay(filter.From, "from")
	if err != nil {
		return nil, err
	}
	to, err := parseDay(filter.To, "to")
	if err != nil {
		return nil, err
	}
	if to != nil {
		next := to.AddDate(0, 0, 1)
		to = &next
	}
	f := repository.SaleFilter{From: from, To: to, Page: filter.Page, Limit: filter.Limit}
	if filter.ProductID != "" {
		id, err := parseID(filter.ProductID, "productId")
		if err != nil {
			return nil, err
		}
		f.ProductID = &id
	}

	list, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	page, limit, _ := repository.Page(filter.Page, filter.Limit, 50, 500)
	data := make([]dto.SaleResponse, len(list))
	for i := range list {
		data[i] = mapSale(&list[i])
	}
	return &dto.SaleListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "sale")
	}
	resp := mapSale(sale)
	return &resp, nil
}

func (s *saleService) Receipt(ctx context.Context, id uuid.UUID, w io.Writer) error {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return translate(err, "sale")
	}
	return infra.RenderSaleReceipt(w, s.pharmacyName, sale)
}
