package router

import (
	"time"

	"officine/internal/authz"
	"officine/internal/handler"
	"officine/internal/metrics"
	"officine/internal/middleware"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
)

// Limiters are exposed so the caller can schedule their purge.
type Limiters struct {
	General *middleware.Limiter
	Login   *middleware.Limiter
}

func NewLimiters() Limiters {
	return Limiters{
		General: middleware.NewLimiter("general", 1000, time.Minute), // per IP
		Login:   middleware.NewLimiter("login", 10, time.Minute),
	}
}

// New returns the configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(d Deps, s *Services, lim Limiters) *gin.Engine {
	cfg := d.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler())
	if lim.General != nil {
		r.Use(lim.General.Handler())
	}

	authH := handler.NewAuthHandler(s.Auth)
	personnelH := handler.NewPersonnelHandler(s.Auth)
	productsH := handler.NewProductsHandler(s.Products, s.Stock)
	categoriesH := handler.NewCategoriesHandler(s.Categories)
	suppliersH := handler.NewSuppliersHandler(s.Suppliers)
	prescriptionsH := handler.NewPrescriptionsHandler(s.Prescriptions)
	salesH := handler.NewSalesHandler(s.Sales)
	stockH := handler.NewStockHandler(s.Stock)
	ordersH := handler.NewOrdersHandler(s.Orders)
	chatsH := handler.NewChatsHandler(s.Chats)
	jobsH := handler.NewJobsHandler(d.Redis)

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.Mailer))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if d.Hub != nil {
		wsH := handler.NewWSHandler(d.Hub, cfg.JWTSecret, cfg.AllowedOrigins())
		r.GET("/ws", wsH.Serve)
	}

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		login := []gin.HandlerFunc{authH.Login}
		if lim.Login != nil {
			login = append([]gin.HandlerFunc{lim.Login.Handler()}, login...)
		}
		auth.POST("/register", authH.Register)
		auth.POST("/login", login...)
		auth.POST("/refresh", authH.Refresh)
	}

	// Catalog reads need no account
	api.GET("/products", productsH.List)
	api.GET("/products/sku/:sku", productsH.GetBySKU)
	api.GET("/products/:id", productsH.Get)
	api.GET("/categories", categoriesH.List)
	api.GET("/categories/:id", categoriesH.Get)

	// Protected routes
	p := api.Group("", middleware.JWTAuth(cfg.JWTSecret))
	{
		p.GET("/auth/me", middleware.Require(authz.Profile), authH.Me)

		p.GET("/products/low-stock", middleware.Require(authz.StockRead), productsH.LowStock)
		p.GET("/products/export", middleware.Require(authz.ProductExport), productsH.Export)
		prods := p.Group("/products", middleware.Require(authz.ProductWrite))
		{
			prods.POST("", productsH.Create)
			prods.PUT("/:id", productsH.Update)
			prods.DELETE("/:id", productsH.Delete)
		}

		cats := p.Group("/categories", middleware.Require(authz.CategoryWrite))
		{
			cats.POST("", categoriesH.Create)
			cats.PUT("/:id", categoriesH.Update)
			cats.DELETE("/:id", categoriesH.Delete)
		}

		sup := p.Group("/suppliers", middleware.Require(authz.SupplierManage))
		{
			sup.POST("", suppliersH.Create)
			sup.GET("", suppliersH.List)
			sup.GET("/:id", suppliersH.Get)
			sup.PUT("/:id", suppliersH.Update)
			sup.DELETE("/:id", suppliersH.Delete)
		}

		rx := p.Group("/prescriptions")
		{
			rx.POST("", middleware.Require(authz.PrescriptionSubmit), prescriptionsH.Submit)
			rx.GET("/mine", middleware.Require(authz.PrescriptionOwn), prescriptionsH.ListMine)
			rx.GET("/all", middleware.Require(authz.PrescriptionReview), prescriptionsH.ListAll)
			rx.GET("/:id", middleware.Require(authz.PrescriptionRead), prescriptionsH.Get)
			rx.GET("/:id/image", middleware.Require(authz.PrescriptionRead), prescriptionsH.Image)

			review := rx.Group("/:id", middleware.Require(authz.PrescriptionReview))
			review.PUT("", prescriptionsH.Update)
			review.POST("/validate", prescriptionsH.Validate)
			review.POST("/reject", prescriptionsH.Reject)
			review.POST("/prepare", prescriptionsH.Prepare)
			review.POST("/payment", prescriptionsH.Payment)
		}

		p.POST("/sales", middleware.Require(authz.SaleRecord), salesH.Record)
		sales := p.Group("/sales", middleware.Require(authz.SaleRead))
		{
			sales.GET("", salesH.List)
			sales.GET("/:id", salesH.Get)
			sales.GET("/:id/receipt", salesH.Receipt)
		}

		p.GET("/stock/movements", middleware.Require(authz.StockRead), stockH.List)
		p.POST("/stock/movements", middleware.Require(authz.StockWrite), stockH.Record)

		orders := p.Group("/orders")
		{
			orders.POST("", middleware.Require(authz.OrderPlace), ordersH.Checkout)
			orders.GET("/mine", middleware.Require(authz.OrderPlace), ordersH.Mine)
			orders.GET("", middleware.Require(authz.OrderManage), ordersH.List)
			orders.GET("/:id", middleware.Require(authz.OrderRead), ordersH.Get)
			orders.PUT("/:id/status", middleware.Require(authz.OrderManage), ordersH.UpdateStatus)
		}

		chats := p.Group("/chats", middleware.Require(authz.Chat))
		{
			chats.POST("", chatsH.Send)
			chats.GET("/:userId", chatsH.Conversation)
			chats.PUT("/:id", chatsH.Edit)
			chats.DELETE("/:id", chatsH.Delete)
		}

		staff := p.Group("/personnel", middleware.Require(authz.PersonnelManage))
		{
			staff.POST("", personnelH.Create)
			staff.GET("", personnelH.List)
			staff.GET("/:id", personnelH.Get)
			staff.PUT("/:id", personnelH.Update)
			staff.DELETE("/:id", personnelH.Deactivate)
			staff.PATCH("/:id/reactivate", personnelH.Reactivate)
		}

		p.GET("/jobs/failed", middleware.Require(authz.JobsInspect), jobsH.Failed)
	}

	// Swagger UI outside production only
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
