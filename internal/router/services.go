package router

import (
	"time"

	"officine/internal/config"
	"officine/internal/infra"
	"officine/internal/realtime"
	"officine/internal/repository"
	"officine/internal/repository/inmem"
	"officine/internal/service"
	"officine/internal/worker"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// skuCacheTTL stays short because cached products carry their stock level.
const skuCacheTTL = 30 * time.Second

// Deps are the process-wide resources the API is built from.
// A nil DB selects the in-memory repositories; a nil Redis disables the SKU
// cache, the job queue and the cross-instance relay.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Hub     *realtime.Hub
	Events  realtime.Publisher // defaults to Hub
	Mailer  *infra.Mailer
	Uploads *infra.UploadStore
}

// Services is every business service of the API.
type Services struct {
	Auth          service.AuthService
	Products      service.ProductService
	Categories    service.CategoryService
	Suppliers     service.SupplierService
	Stock         service.StockService
	Sales         service.SaleService
	Prescriptions service.PrescriptionService
	Orders        service.OrderService
	Chats         service.ChatService
}

type repos struct {
	users         repository.UserRepository
	products      repository.ProductRepository
	categories    repository.CategoryRepository
	suppliers     repository.SupplierRepository
	movements     repository.StockMovementRepository
	sales         repository.SaleRepository
	prescriptions repository.PrescriptionRepository
	orders        repository.OrderRepository
	chats         repository.ChatRepository
}

func newRepos(db *gorm.DB) repos {
	if db == nil {
		s := inmem.NewStore()
		return repos{
			users:         inmem.NewUsers(s),
			products:      inmem.NewProducts(s),
			categories:    inmem.NewCategories(s),
			suppliers:     inmem.NewSuppliers(s),
			movements:     inmem.NewStockMovements(s),
			sales:         inmem.NewSales(s),
			prescriptions: inmem.NewPrescriptions(s),
			orders:        inmem.NewOrders(s),
			chats:         inmem.NewChats(s),
		}
	}
	return repos{
		users:         repository.NewUserRepository(db),
		products:      repository.NewProductRepository(db),
		categories:    repository.NewCategoryRepository(db),
		suppliers:     repository.NewSupplierRepository(db),
		movements:     repository.NewStockMovementRepository(db),
		sales:         repository.NewSaleRepository(db),
		prescriptions: repository.NewPrescriptionRepository(db),
		orders:        repository.NewOrderRepository(db),
		chats:         repository.NewChatRepository(db),
	}
}

// NewServices wires repositories into services.
// Dependency graph: Service ← Repository ← DB/Redis
func NewServices(d Deps) *Services {
	events := d.Events
	if events == nil {
		events = realtime.Nop{}
		if d.Hub != nil {
			events = d.Hub
		}
	}
	r := newRepos(d.DB)
	cfg := d.Config
	dispatcher := mailDispatcher(d)
	cache := infra.NewJSONCache(d.Redis, "officine:sku:", skuCacheTTL)

	return &Services{
		Auth:          service.NewAuthService(r.users, cfg),
		Products:      service.NewProductService(r.products, r.categories, r.suppliers, r.movements, cache),
		Categories:    service.NewCategoryService(r.categories),
		Suppliers:     service.NewSupplierService(r.suppliers),
		Stock:         service.NewStockService(r.products, r.movements, events),
		Sales:         service.NewSaleService(r.sales, r.products, r.movements, events, cfg.PharmacyName),
		Prescriptions: service.NewPrescriptionService(r.prescriptions, r.users, r.products, r.movements, d.Uploads, events, dispatcher, cfg.PharmacyName),
		Orders:        service.NewOrderService(r.orders, r.products, r.movements, events),
		Chats:         service.NewChatService(r.chats, r.users, events),
	}
}

// mailDispatcher only queues e-mail when a worker will be there to send it:
// serve registers the e-mail handler only for an enabled mailer.
func mailDispatcher(d Deps) *worker.Dispatcher {
	if !d.Mailer.Enabled() {
		return worker.NewDispatcher(nil)
	}
	return worker.NewDispatcher(d.Redis)
}
