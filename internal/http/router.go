package http

import (
	"net/http"

	"github.com/fjod/natal_store/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Services is everything the HTTP layer talks to.
type Services struct {
	Auth            AuthService
	Catalog         CatalogService
	Cart            CartService
	Wishlist        WishlistService
	Checkout        CheckoutService
	Orders          OrderService
	Promotions      PromotionService
	PaymentSettings PaymentSettingsService
	Uploads         ImageUploader
}

func NewRouter(s Services, cfg config.HTTPConfig, logger zerolog.Logger) http.Handler {
	catalogHandler := NewCatalogHandler(s.Catalog)
	authHandler := NewAuthHandler(s.Auth, s.Cart)
	cartHandler := NewCartHandler(s.Cart, s.Wishlist)
	orderHandler := NewOrderHandler(s.Checkout, s.Orders)
	adminHandler := NewAdminHandler(s.Auth, s.Catalog, s.Orders, s.Promotions, s.PaymentSettings, s.Uploads)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, errRouteNotFound)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(s.Auth))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Group(func(r chi.Router) {
			r.Use(LimitBody(cfg.MaxRequestBodySize))

			r.Route("/catalog", func(r chi.Router) {
				r.Get("/categories", catalogHandler.Categories)
				r.Get("/products", catalogHandler.Products)
				r.Get("/products/{id}", catalogHandler.Product)
				r.Get("/products/{id}/shipping", catalogHandler.ShippingQuote)
				r.Get("/featured", catalogHandler.Featured)
				r.Get("/testimonials", catalogHandler.Testimonials)
			})
			r.Get("/support/faq", SupportFAQ)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register/verify", authHandler.RequestVerification)
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/admin/login", authHandler.AdminLogin)
				r.Post("/password-strength", authHandler.PasswordStrength)
				r.Post("/password/forgot", authHandler.ForgotPassword)
				r.Post("/password/reset", authHandler.ResetPassword)
				r.Post("/logout", authHandler.Logout)

				r.Group(func(r chi.Router) {
					r.Use(RequireUser)
					r.Get("/session", authHandler.Session)
					r.Put("/address", authHandler.UpdateAddress)
				})
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Get("/shipping", cartHandler.EstimateShipping)
				r.Post("/items", cartHandler.AddItem)
				r.Patch("/items/{product_id}", cartHandler.ChangeQuantity)
				r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireUser)
				r.Get("/wishlist", cartHandler.Wishlist)
				r.Post("/wishlist/{product_id}", cartHandler.ToggleWishlist)
				r.Post("/checkout", orderHandler.Checkout)
				r.Get("/orders", orderHandler.ListOrders)
				r.Get("/orders/{order_id}", orderHandler.GetOrder)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)

			r.With(LimitBody(cfg.MaxUploadSize)).Post("/uploads", adminHandler.UploadImages)

			r.Group(func(r chi.Router) {
				r.Use(LimitBody(cfg.MaxRequestBodySize))

				r.Get("/users", adminHandler.ListUsers)
				r.Patch("/users/{user_id}/status", adminHandler.SetUserStatus)
				r.Post("/users/{user_id}/password-reset", adminHandler.SendPasswordReset)

				r.Get("/orders", adminHandler.SearchOrders)
				r.Patch("/orders/{order_id}/status", adminHandler.UpdateOrderStatus)
				r.Get("/orders/{order_id}/invoice", adminHandler.Invoice)

				r.Get("/products", adminHandler.SearchProducts)
				r.Post("/products", adminHandler.CreateProduct)
				r.Put("/products/{id}", adminHandler.UpdateProduct)
				r.Delete("/products/{id}", adminHandler.DeleteProduct)

				r.Get("/promotions", adminHandler.ListPromotions)
				r.Post("/promotions", adminHandler.CreatePromotion)
				r.Delete("/promotions/{id}", adminHandler.DeletePromotion)
				r.Post("/promotions/{id}/deactivate", adminHandler.DeactivatePromotion)

				r.Get("/payment-settings", adminHandler.PaymentSettings)
				r.Put("/payment-settings", adminHandler.SavePaymentSettings)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
