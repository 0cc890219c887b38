package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/ndenisov/webstudio-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса webstudio.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/api/templates", h.GetTemplates)
	r.Post("/api/recommendations", h.Recommend)
	r.Post("/api/bookings", h.CreateBooking)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/cart", h.AddCartItem)
			r.Get("/cart", h.GetCart)
			r.Delete("/cart/{itemID}", h.RemoveCartItem)
			r.Get("/cart/quote", h.QuoteCart)

			r.Post("/checkout", h.Checkout)
			r.Get("/orders", h.GetOrders)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(h.authMiddleware.RequireAdmin)

		r.Get("/offers", h.GetOffers)
		r.Post("/offers", h.CreateOffer)
		r.Put("/offers/{offerID}", h.UpdateOffer)
		r.Delete("/offers/{offerID}", h.DeleteOffer)

		r.Get("/orders", h.GetAdminOrders)
		r.Post("/orders/{orderID}/status", h.UpdateOrderStatus)

		r.Get("/bookings", h.GetAdminBookings)
		r.Post("/bookings/{bookingID}/status", h.UpdateBookingStatus)
		r.Delete("/bookings/{bookingID}", h.DeleteBooking)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
