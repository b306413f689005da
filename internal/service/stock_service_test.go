package service

import (
	"context"
	"testing"

	"officine/internal/apierror"
	"officine/internal/authz"
	"officine/internal/dto"
	"officine/internal/model"
	"officine/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStock_Movements(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	staff := e.user(t, authz.RolePharmacist)
	p := e.product(t, "MOVE", "1.00", 10)

	in, err := e.stock.RecordMovement(ctx, staff.ID, dto.StockMovementRequest{ProductID: p.ID.String(), Type: model.MovementIn, Quantity: 5, Reason: "delivery"})
	require.NoError(t, err)
	assert.Equal(t, 10, in.StockBefore)
	assert.Equal(t, 15, in.StockAfter)
	assert.NotEmpty(t, in.ID)
	assert.Equal(t, "Product MOVE", in.ProductName)

	out, err := e.stock.RecordMovement(ctx, staff.ID, dto.StockMovementRequest{ProductID: p.ID.String(), Type: model.MovementOut, Quantity: 4, Reason: "broken box"})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Quantity)
	assert.Equal(t, 11, out.StockAfter)

	adj, err := e.stock.RecordMovement(ctx, staff.ID, dto.StockMovementRequest{ProductID: p.ID.String(), Type: model.MovementAdjustment, Quantity: -3, Reason: "inventory count"})
	require.NoError(t, err)
	assert.Equal(t, -3, adj.Quantity)
	assert.Equal(t, 8, e.stockOf(t, p.ID))

	_, err = e.stock.RecordMovement(ctx, staff.ID, dto.StockMovementRequest{ProductID: p.ID.String(), Type: model.MovementOut, Quantity: 9, Reason: "too much"})
	assert.True(t, apierror.Is(err, apierror.KindInsufficientStock))
	assert.Equal(t, 8, e.stockOf(t, p.ID))

	_, err = e.stock.RecordMovement(ctx, staff.ID, dto.StockMovementRequest{ProductID: p.ID.String(), Type: model.MovementIn, Quantity: -1, Reason: "negative"})
	assert.True(t, apierror.Is(err, apierror.KindValidation))

	list, err := e.stock.ListMovements(ctx, dto.StockMovementFilter{ProductID: p.ID.String()})
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.Total)
	assert.Equal(t, model.MovementAdjustment, list.Data[0].Type)

	onlyOut, err := e.stock.ListMovements(ctx, dto.StockMovementFilter{Type: model.MovementOut})
	require.NoError(t, err)
	assert.EqualValues(t, 1, onlyOut.Total)
}

func TestStock_LowStockScan(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.product(t, "OK", "1.00", 50)
	e.product(t, "LOW", "1.00", 1)
	e.product(t, "EMPTY", "1.00", 0)

	alerts, err := e.stock.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "EMPTY", alerts[0].SKU)

	n, err := e.stock.ScanLowStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	published := e.events.named(realtime.EventLowStock)
	require.Len(t, published, 2)
	assert.ElementsMatch(t, realtime.StaffRooms, published[0].Rooms)
}
