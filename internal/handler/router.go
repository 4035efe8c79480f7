package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/foodshare/internal/middleware"
	"github.com/mmeshcher/foodshare/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(custommiddleware.TrustedRealIP(h.trustedProxies))
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.OpenCORS())
				r.Post("/signup", h.Signup)
				r.Options("/signup", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				})
			})
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.With(h.authMiddleware.Middleware).Get("/session", h.Session)
		})

		r.Get("/listings", h.BrowseListings)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/listings", h.CreateListing)
			r.Get("/listings/mine", h.MyListings)
			r.Get("/listings/{id}/claims", h.ListingClaims)
			r.Post("/listings/{id}/claim", h.ClaimListing)
			r.Post("/listings/{id}/complete", h.CompleteListing)
			r.Post("/listings/{id}/images", h.UploadImage)
			r.Delete("/listings/{id}/images", h.DeleteImage)

			r.Get("/claims", h.MyClaims)
			r.Post("/claims/{id}/receive", h.ReceiveClaim)
			r.Post("/claims/{id}/collect", h.CollectClaim)
			r.Post("/claims/{id}/cancel", h.CancelClaim)

			r.Get("/notifications", h.ListNotifications)
			r.Post("/notifications/read-all", h.ReadAllNotifications)
			r.Post("/notifications/{id}/read", h.ReadNotification)
			r.Delete("/notifications/{id}", h.DeleteNotification)

			r.Get("/dashboard", h.Dashboard)
			r.With(custommiddleware.RequireRole(model.RoleAdmin)).Get("/admin/stats", h.AdminStats)

			if h.realtime != nil {
				r.Handle("/realtime", h.realtime)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
