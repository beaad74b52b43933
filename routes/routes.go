package routes

import (
	"net/http"

	"cropcart/auth"
	"cropcart/cart"
	"cropcart/catalog"
	"cropcart/middleware"
	"cropcart/notify"
	"cropcart/orders"
	"cropcart/ratelim"
	"cropcart/session"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, h *auth.Handlers, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(h.Register))
	router.POST("/api/auth/login", rl.Limit(h.Login))
	router.POST("/api/auth/refresh", rl.Limit(h.RefreshToken))
	router.POST("/api/auth/logout", middleware.Authenticate(h.Logout))
}

func AddSessionRoutes(router *httprouter.Router, h *session.Handlers) {
	router.GET("/api/profile", middleware.Authenticate(h.GetProfile))
	router.PUT("/api/profile", middleware.Authenticate(h.EditProfile))
}

func AddCatalogRoutes(router *httprouter.Router, h *catalog.Handlers) {
	// Catalog reads are public; mutations require a signed-in farmer.
	router.GET("/api/crops", middleware.OptionalAuth(h.GetCatalog))
	router.GET("/api/crops/filter", middleware.OptionalAuth(h.GetFilteredCrops))
	router.GET("/api/crops/:cropid", middleware.OptionalAuth(h.GetCrop))
	router.POST("/api/crops", middleware.Authenticate(h.AddCrop))
	router.PUT("/api/crops/:cropid", middleware.Authenticate(h.EditCrop))
	router.DELETE("/api/crops/:cropid", middleware.Authenticate(h.DeleteCrop))
}

func AddCartRoutes(router *httprouter.Router, h *cart.Handlers) {
	router.GET("/api/cart", middleware.Authenticate(h.GetCart))
	router.POST("/api/cart", middleware.Authenticate(h.AddToCart))
	router.PUT("/api/cart/:cropid", middleware.Authenticate(h.SetCartQuantity))
	router.DELETE("/api/cart/:cropid", middleware.Authenticate(h.RemoveFromCart))
	router.DELETE("/api/cart", middleware.Authenticate(h.ClearCart))

	router.GET("/api/wishlist", middleware.Authenticate(h.GetWishlist))
	router.POST("/api/wishlist", middleware.Authenticate(h.AddToWishlist))
	router.DELETE("/api/wishlist/:cropid", middleware.Authenticate(h.RemoveFromWishlist))
}

func AddOrderRoutes(router *httprouter.Router, h *orders.Handlers) {
	router.POST("/api/orders", middleware.Authenticate(h.PlaceOrder))
	router.GET("/api/orders", middleware.Authenticate(h.GetOrders))
	router.GET("/api/orders/:orderid", middleware.Authenticate(h.GetOrder))
	router.PUT("/api/orders/:orderid/status", middleware.Authenticate(h.UpdateOrderStatus))
	router.GET("/api/orders/:orderid/receipt", middleware.Authenticate(h.DownloadReceipt))
}

func AddNotifyRoutes(router *httprouter.Router, hub *notify.Hub) {
	router.GET("/ws/orders", hub.HandleWS)
}

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/*filepath", http.Dir("static"))
}
