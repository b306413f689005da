package router

import (
	"context"
	"testing"

	"officine/internal/config"
	"officine/internal/dto"
	"officine/internal/infra"
	"officine/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailDispatcher_DisabledWithoutSMTP(t *testing.T) {
	// never dialled: the dispatcher must refuse before touching Redis
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	tests := []struct {
		name string
		deps Deps
	}{
		{"redis without mailer", Deps{Redis: rdb}},
		{"redis with smtp host unset", Deps{Redis: rdb, Mailer: infra.NewMailer(&config.Config{})}},
		{"smtp without redis", Deps{Mailer: infra.NewMailer(&config.Config{SMTPHost: "smtp.example.test", SMTPPort: 25})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mailDispatcher(tt.deps).EnqueueEmail(ctx, worker.EmailJobPayload{ToEmail: "c@example.test"})
			assert.ErrorIs(t, err, worker.ErrQueueDisabled)
		})
	}
}

func TestNewServices_WithoutHubDoesNotPanic(t *testing.T) {
	cfg := &config.Config{JWTSecret: "s", JWTExpirationHours: 1, JWTRefreshHours: 2, PharmacyName: "Officine"}
	s := NewServices(Deps{Config: cfg})
	ctx := context.Background()

	p, err := s.Products.Create(ctx, uuid.New(), dto.CreateProductRequest{
		SKU: "ZYRTEC10", Name: "Zyrtec", PriceHT: decimal.RequireFromString("4.10"),
		PriceTTC: decimal.RequireFromString("4.51"), Stock: 3,
	})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		_, err = s.Sales.RecordSale(ctx, uuid.New(), dto.RecordSaleRequest{ProductID: p.ID, Quantity: 3})
	})
	assert.NoError(t, err)
}
