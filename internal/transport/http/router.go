package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/truongnx/plantshop/internal/handlers"
	"github.com/truongnx/plantshop/internal/handlers/cart"
	"github.com/truongnx/plantshop/internal/handlers/order"
	"github.com/truongnx/plantshop/internal/handlers/payment"
	"github.com/truongnx/plantshop/internal/middleware/auth"
)

type Deps struct {
	DB                  *gorm.DB
	AuthHandler         *handlers.AuthHandler
	AdminHandler        *handlers.AdminHandler
	ProductHandler      *handlers.ProductHandler
	SearchHandler       *handlers.SearchHandler
	DashboardHandler    *handlers.DashboardHandler
	CareScheduleHandler *handlers.CareScheduleHandler
	CartHandler         *cart.CartHandler
	OrderHandler        *order.OrderHandler
	PaymentHandler      *payment.PaymentHandler
	Tokens              *auth.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	users := v1.Group("/users")
	users.POST("/register", d.AuthHandler.Register)
	users.POST("/login", d.AuthHandler.Login)
	users.GET("/me", d.AuthHandler.GetMe, d.Tokens.RequireLogin)

	admins := v1.Group("/admins")
	admins.POST("/register", d.AdminHandler.Register)
	admins.POST("/login", d.AdminHandler.Login)
	admins.GET("/me", d.AdminHandler.GetMe, d.Tokens.AdminOnly)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("", d.ProductHandler.CreateProduct, d.Tokens.AdminOnly)
	products.PUT("/:id", d.ProductHandler.UpdateProduct, d.Tokens.AdminOnly)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct, d.Tokens.AdminOnly)

	v1.GET("/search", d.SearchHandler.Search)

	carts := v1.Group("/carts", d.Tokens.RequireLogin)
	carts.GET("", d.CartHandler.GetCart)
	carts.POST("/add", d.CartHandler.AddToCart)
	carts.PUT("/:product_id", d.CartHandler.UpdateItem)
	carts.DELETE("/:product_id", d.CartHandler.RemoveItem)

	orders := v1.Group("/orders")
	orders.POST("", d.OrderHandler.CreateOrder, d.Tokens.RequireLogin)
	orders.GET("/me", d.OrderHandler.GetMyOrders, d.Tokens.RequireLogin)
	orders.GET("", d.OrderHandler.GetOrders, d.Tokens.AdminOnly)
	orders.PUT("/:order_id", d.OrderHandler.UpdateStatus, d.Tokens.AdminOnly)

	payments := v1.Group("/payments")
	payments.POST("", d.PaymentHandler.CreatePayment, d.Tokens.RequireLogin)
	payments.GET("/callback", d.PaymentHandler.Callback)
	payments.POST("/payOs", d.PaymentHandler.CreatePayOSPayment, d.Tokens.RequireLogin)
	payments.POST("/payOs/webhook", d.PaymentHandler.PayOSWebhook)
	payments.GET("/payOs/success", d.PaymentHandler.PayOSSuccess)
	payments.GET("/payOs/failed", d.PaymentHandler.PayOSFailed)

	v1.GET("/dashboard", d.DashboardHandler.GetMetrics, d.Tokens.AdminOnly)

	schedules := v1.Group("/care-schedules", d.Tokens.RequireLogin)
	schedules.POST("", d.CareScheduleHandler.Create)
	schedules.GET("", d.CareScheduleHandler.GetAll)
	schedules.GET("/:id", d.CareScheduleHandler.GetByID)
	schedules.PUT("/:id", d.CareScheduleHandler.Update)
	schedules.DELETE("/:id", d.CareScheduleHandler.Delete)
}
