package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/middleware"
	"github.com/GTDGit/groupbuy_api/internal/models"
)

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health   *HealthHandler
	Auth     *AuthHandler
	Product  *ProductHandler
	Order    *OrderHandler
	Request  *RequestHandler
	User     *UserHandler
	Category *CategoryHandler
	Admin    *AdminHandler
	SSE      *SSEHandler
}

// SetupRoutes registers all routes.
func SetupRoutes(router *gin.Engine, h *Handlers, jwt *middleware.JWTMiddleware) {
	router.GET("/health", h.Health.GetHealth)

	api := router.Group("/api")

	// Public storefront routes
	api.POST("/login", h.Auth.Login)
	api.GET("/products", h.Product.GetProducts)
	api.GET("/products/:id", h.Product.GetProduct)
	api.GET("/categories", h.Category.GetCategories)
	api.POST("/orders", h.Order.CreateOrder)
	api.GET("/orders/lookup", h.Order.LookupOrders)
	api.POST("/requests", h.Request.CreateRequest)

	// Event stream accepts ?token= because EventSource cannot set headers
	api.GET("/admin/events", jwt.HandleStream(), h.SSE.Stream)

	// Back office, any signed-in role
	staff := api.Group("")
	staff.Use(jwt.Handle())
	{
		staff.PATCH("/user/password", h.Auth.ChangePassword)

		staff.GET("/orders", h.Order.GetOrders)
		staff.PATCH("/orders/:id/status", h.Order.UpdateOrderStatus)

		staff.GET("/requests", h.Request.GetRequests)
		staff.PATCH("/requests/:id/status", h.Request.UpdateRequestStatus)

		staff.GET("/notifications/summary", h.Admin.GetNotificationSummary)
		staff.GET("/dashboard-summary", h.Admin.GetDashboardSummary)
	}

	// Back office, admin only
	admin := api.Group("")
	admin.Use(jwt.Handle(), middleware.RequireRole(models.RoleAdmin))
	{
		// Catalog management
		admin.GET("/admin/products", h.Product.AdminGetProducts)
		admin.GET("/admin/products/:id", h.Product.AdminGetProduct)
		admin.POST("/products", h.Product.CreateProduct)
		admin.PUT("/products/:id", h.Product.UpdateProduct)
		admin.DELETE("/products/:id", h.Product.DeleteProduct)
		admin.PATCH("/products/order", h.Product.ReorderProducts)

		// Order deletion is not offered; the route answers 501
		admin.DELETE("/orders/:id", h.Order.DeleteOrder)

		// User management
		admin.GET("/users", h.User.GetUsers)
		admin.POST("/users", h.User.CreateUser)
		admin.DELETE("/users/:username", h.User.DeleteUser)
	}
}
