package service

import (
	"context"
	"sync"
	"testing"

	"officine/internal/authz"
	"officine/internal/config"
	"officine/internal/infra"
	"officine/internal/model"
	"officine/internal/repository/inmem"
	"officine/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// pngScan is enough of a PNG for content sniffing.
var pngScan = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type published struct {
	Event   string
	Payload any
	Rooms   []string
}

// recorder is a realtime.Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(event string, payload any, rooms ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{Event: event, Payload: payload, Rooms: rooms})
}

func (r *recorder) named(event string) []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []published
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type outbox struct {
	mu   sync.Mutex
	sent []worker.EmailJobPayload
}

func (o *outbox) EnqueueEmail(_ context.Context, p worker.EmailJobPayload) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, p)
	return nil
}

type env struct {
	store     *inmem.Store
	users     *inmem.Users
	products  *inmem.Products
	movements *inmem.StockMovements
	events    *recorder
	mail      *outbox

	auth          AuthService
	catalog       ProductService
	categories    CategoryService
	suppliers     SupplierService
	stock         StockService
	sales         SaleService
	prescriptions PrescriptionService
	orders        OrderService
	chats         ChatService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := inmem.NewStore()
	e := &env{
		store:     s,
		users:     inmem.NewUsers(s),
		products:  inmem.NewProducts(s),
		movements: inmem.NewStockMovements(s),
		events:    &recorder{},
		mail:      &outbox{},
	}
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1, JWTRefreshHours: 2}
	uploads, err := infra.NewUploadStore(t.TempDir(), 1)
	require.NoError(t, err)

	auth := NewAuthService(e.users, cfg)
	auth.(*authService).cost = bcrypt.MinCost
	e.auth = auth

	categories := inmem.NewCategories(s)
	suppliers := inmem.NewSuppliers(s)
	e.catalog = NewProductService(e.products, categories, suppliers, e.movements, nil)
	e.categories = NewCategoryService(categories)
	e.suppliers = NewSupplierService(suppliers)
	e.stock = NewStockService(e.products, e.movements, e.events)
	e.sales = NewSaleService(inmem.NewSales(s), e.products, e.movements, e.events, "Pharmacie Test")
	e.prescriptions = NewPrescriptionService(inmem.NewPrescriptions(s), e.users, e.products, e.movements, uploads, e.events, e.mail, "Pharmacie Test")
	e.orders = NewOrderService(inmem.NewOrders(s), e.products, e.movements, e.events)
	e.chats = NewChatService(inmem.NewChats(s), e.users, e.events)
	return e
}

func (e *env) user(t *testing.T, role authz.Role) *model.User {
	t.Helper()
	u := &model.User{
		Email:        uuid.NewString()[:8] + "@officine.test",
		FullName:     "User " + string(role),
		PasswordHash: "x",
		Role:         string(role),
		Active:       true,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *env) product(t *testing.T, sku, price string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		SKU:               sku,
		Name:              "Product " + sku,
		PriceHT:           decimal.RequireFromString(price),
		PriceTTC:          decimal.RequireFromString(price),
		Stock:             stock,
		LowStockThreshold: 1,
		Active:            true,
	}
	require.NoError(t, e.products.Create(context.Background(), p))
	return p
}

func (e *env) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := e.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}
