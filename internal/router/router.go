package router

import (
	"net/http"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Direct-buy throttle: orders per caller within the window.
const (
	orderNowLimit  = 10
	orderNowWindow = time.Minute
)

// Deps carries everything the router wires together.
type Deps struct {
	Products *handler.ProductHandler
	Carts    *handler.CartHandler
	Orders   *handler.OrderHandler
	Payments *handler.PaymentHandler
	Verifier *auth.Verifier
	Cache    *cache.Cache
	Logger   zerolog.Logger
}

// New creates the HTTP router with all routes and middleware configured.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.CORS)
	r.Use(middleware.Identity(d.Verifier, d.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", d.Products.List)
		r.Get("/{id}/", d.Products.GetByID)

		// Catalogue and inventory management is admin-only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(d.Logger))
			r.Post("/", d.Products.Create)
			r.Put("/{id}/", d.Products.Update)
			r.Delete("/{id}/", d.Products.Delete)
			r.Post("/{id}/stock-movement/", d.Products.StockMovement)
			r.Get("/{id}/stock-movement/", d.Products.ListMovements)
			r.Post("/{id}/image/", d.Products.UploadImage)
		})
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", d.Carts.Get)
		r.Post("/cart-items/", d.Carts.AddItem)
		r.Patch("/cart-items/{id}/", d.Carts.UpdateItem)
		r.Delete("/cart-items/{id}/", d.Carts.RemoveItem)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Logger))
			r.Post("/merge/", d.Carts.Merge)
		})
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", d.Orders.List)
		r.Get("/{id}/", d.Orders.GetByID)
		r.Post("/checkout/", d.Orders.Checkout)
		r.Post("/{id}/cancel/", d.Orders.Cancel)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(d.Cache, orderNowLimit, orderNowWindow, d.Logger))
			r.Post("/now/", d.Orders.OrderNow)
		})
	})

	// Gateway webhook; authenticated by the gateway's transaction ID, not a
	// user token.
	r.Post("/api/payments/confirm-payment/", d.Payments.Confirm)

	return r
}
