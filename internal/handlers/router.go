package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/kouprey/storefront/internal/models"
)

// Router assembles every handler behind one chi mux.
type Router struct {
	Home     *HomeHandler
	Checkout *CheckoutHandler
	Payment  *PaymentHandler
	Orders   *OrderHandler
	Products *ProductHandler
	Reviews  *ReviewHandler
	Uploads  *UploadHandler
	Auth     *AuthHandler
	Health   *HealthHandler
	Hash     *HashHandler

	Sessions sessions.Store
	// CSRF guards the checkout form and the staff API. Nil disables it.
	CSRF         func(http.Handler) http.Handler
	LoginLimiter *RateLimiter
	// UploadDir is served read-only under /uploads/ when set.
	UploadDir string
}

func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware, SecurityHeadersMiddleware)

	// Public pages and provider callbacks. The provider posts cross-site,
	// so these never see the CSRF check.
	r.Get("/", rt.Home.Index)
	r.Get("/track", rt.Home.Track)
	r.Post("/payu/success", rt.Payment.Success)
	r.Post("/payu/failure", rt.Payment.Failure)
	if rt.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(rt.UploadDir))))
	}

	r.Post("/api/orders", rt.Orders.Create)
	r.Get("/api/orders/track/{id}", rt.Orders.Track)
	r.Get("/api/orders/track/phone/{phone}", rt.Orders.TrackByPhone)
	r.Get("/api/products", rt.Products.List)
	r.Get("/api/products/{id}", rt.Products.Get)
	r.Get("/api/reviews", rt.Reviews.List)
	r.Post("/api/reviews", rt.Reviews.Create)

	r.Group(func(r chi.Router) {
		if rt.LoginLimiter != nil {
			r.Use(rt.LoginLimiter.Middleware)
		}
		r.Post("/api/master/login", rt.Auth.MasterLogin)
		r.Post("/api/store/login", rt.Auth.StoreLogin)
	})

	r.Group(func(r chi.Router) {
		if rt.CSRF != nil {
			r.Use(rt.CSRF)
		}

		r.Get("/checkout", rt.Checkout.Form)
		r.Post("/checkout", rt.Checkout.Submit)
		r.Get("/api/csrf-token", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"token": csrf.Token(r)})
		})
		r.Post("/api/logout", rt.Auth.Logout)

		// Master accounts can do anything store staff can.
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(rt.Sessions, models.RoleStore, models.RoleMaster))

			r.Get("/api/orders", rt.Orders.List)
			r.Get("/api/orders/{id}", rt.Orders.Get)
			r.Put("/api/orders/{id}", rt.Orders.Update)
			r.Post("/api/products", rt.Products.Create)
			r.Put("/api/products/{id}", rt.Products.Update)
			r.Delete("/api/products/{id}", rt.Products.Delete)
			r.Post("/api/uploads", rt.Uploads.Upload)
			r.Get("/api/store/stats", rt.Health.Stats)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(rt.Sessions, models.RoleMaster))

			r.Get("/api/health", rt.Health.Health)
			r.Post("/api/master/hash", rt.Hash.Hash)
			r.Get("/api/master/store-users", rt.Auth.ListUsers(models.RoleStore))
			r.Post("/api/master/store-users", rt.Auth.CreateUser(models.RoleStore))
			r.Delete("/api/master/store-users", rt.Auth.DeleteStoreUser)
			r.Post("/api/master/store-users/reset", rt.Auth.ResetStorePassword)
			r.Get("/api/master/master-users", rt.Auth.ListUsers(models.RoleMaster))
			r.Post("/api/master/master-users", rt.Auth.CreateUser(models.RoleMaster))
			r.Get("/api/master/audit-logs", rt.Auth.AuditLogs)
		})
	})

	return r
}
