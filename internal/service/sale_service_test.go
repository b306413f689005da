package service

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"officine/internal/apierror"
	"officine/internal/authz"
	"officine/internal/dto"
	"officine/internal/model"
	"officine/internal/realtime"
	"officine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSale_DecrementsStockAndNotifiesStaff(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, authz.RolePharmacist)
	p := e.product(t, "DOLI500", "2.15", 10)
	client := "Mme Martin"

	sale, err := e.sales.RecordSale(context.Background(), seller.ID, dto.RecordSaleRequest{
		ProductID: p.ID.String(), Quantity: 3, ClientName: &client,
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("6.45").Equal(sale.Total))
	require.NotNil(t, sale.StockAfter)
	assert.Equal(t, 7, *sale.StockAfter)
	assert.Equal(t, 7, e.stockOf(t, p.ID))

	ref := uuid.MustParse(sale.ID)
	moves, _, err := e.movements.List(context.Background(), repository.StockMovementFilter{ReferenceID: &ref})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, model.MovementOut, moves[0].Type)
	assert.Equal(t, 10, moves[0].StockBefore)
	assert.Equal(t, 7, moves[0].StockAfter)

	events := e.events.named(realtime.EventNewSale)
	require.Len(t, events, 1)
	assert.ElementsMatch(t, realtime.StaffRooms, events[0].Rooms)
	assert.NotContains(t, events[0].Rooms, realtime.RoomClient)
	assert.Empty(t, e.events.named(realtime.EventLowStock))
}

func TestRecordSale_InsufficientStockLeavesStockAlone(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, authz.RolePharmacist)
	p := e.product(t, "P2", "5.00", 3)

	_, err := e.sales.RecordSale(context.Background(), seller.ID, dto.RecordSaleRequest{ProductID: p.ID.String(), Quantity: 5})
	assert.True(t, apierror.Is(err, apierror.KindInsufficientStock))
	assert.Equal(t, 3, e.stockOf(t, p.ID))
	assert.Empty(t, e.events.named(realtime.EventNewSale))
}

func TestRecordSale_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.user(t, authz.RolePharmacist)
	p := e.product(t, "GONE", "1.00", 10)
	require.NoError(t, e.products.SoftDelete(ctx, p.ID))

	_, err := e.sales.RecordSale(ctx, seller.ID, dto.RecordSaleRequest{ProductID: p.ID.String(), Quantity: 1})
	assert.True(t, apierror.Is(err, apierror.KindNotFound))

	_, err = e.sales.RecordSale(ctx, seller.ID, dto.RecordSaleRequest{ProductID: uuid.NewString(), Quantity: 1})
	assert.True(t, apierror.Is(err, apierror.KindNotFound))

	_, err = e.sales.RecordSale(ctx, seller.ID, dto.RecordSaleRequest{ProductID: "nope", Quantity: 1})
	assert.True(t, apierror.Is(err, apierror.KindValidation))

	_, err = e.sales.RecordSale(ctx, seller.ID, dto.RecordSaleRequest{ProductID: p.ID.String(), Quantity: 0})
	assert.True(t, apierror.Is(err, apierror.KindValidation))
}

func TestRecordSale_ConcurrentSalesNeverOversell(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, authz.RolePharmacist)
	p := e.product(t, "RUSH", "1.00", 10)

	var ok, refused atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.sales.RecordSale(context.Background(), seller.ID, dto.RecordSaleRequest{ProductID: p.ID.String(), Quantity: 1})
			switch {
			case err == nil:
				ok.Add(1)
			case apierror.Is(err, apierror.KindInsufficientStock):
				refused.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, ok.Load())
	assert.EqualValues(t, 10, refused.Load())
	assert.Equal(t, 0, e.stockOf(t, p.ID))
	assert.Len(t, e.events.named(realtime.EventNewSale), 10)
}

func TestRecordSale_LowStockAlert(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, authz.RolePharmacist)
	p := e.product(t, "LAST", "1.00", 2)

	_, err := e.sales.RecordSale(context.Background(), seller.ID, dto.RecordSaleRequest{ProductID: p.ID.String(), Quantity: 1})
	require.NoError(t, err)

	alerts := e.events.named(realtime.EventLowStock)
	require.Len(t, alerts, 1)
	alert := alerts[0].Payload.(dto.LowStockAlert)
	assert.Equal(t, "LAST", alert.SKU)
	assert.Equal(t, 1, alert.Stock)
}

func TestSales_ListAndReceipt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.user(t, authz.RolePharmacist)
	a := e.product(t, "AAA", "1.00", 10)
	b := e.product(t, "BBB", "2.00", 10)

	first, err := e.sales.RecordSale(ctx, seller.ID, dto.RecordSaleRequest{ProductID: a.ID.String(), Quantity: 1})
	require.NoError(t, err)
	_, err = e.sales.RecordSale(ctx, seller.ID, dto.RecordSaleRequest{ProductID: b.ID.String(), Quantity: 2})
	require.NoError(t, err)

	all, err := e.sales.List(ctx, dto.SaleFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	onlyA, err := e.sales.List(ctx, dto.SaleFilter{ProductID: a.ID.String()})
	require.NoError(t, err)
	require.Len(t, onlyA.Data, 1)
	assert.Equal(t, first.ID, onlyA.Data[0].ID)

	today := time.Now().Format("2006-01-02")
	sameDay, err := e.sales.List(ctx, dto.SaleFilter{From: today, To: today})
	require.NoError(t, err)
	assert.EqualValues(t, 2, sameDay.Total)

	_, err = e.sales.List(ctx, dto.SaleFilter{From: "15/01/2026"})
	assert.True(t, apierror.Is(err, apierror.KindValidation))

	var buf bytes.Buffer
	require.NoError(t, e.sales.Receipt(ctx, uuid.MustParse(first.ID), &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	err = e.sales.Receipt(ctx, uuid.New(), &buf)
	assert.True(t, apierror.Is(err, apierror.KindNotFound))
}
