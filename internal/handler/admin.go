package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ndenisov/webstudio-system/internal/listing"
	"github.com/ndenisov/webstudio-system/internal/model"
	"github.com/ndenisov/webstudio-system/internal/repository"
	"github.com/ndenisov/webstudio-system/internal/service"
	"github.com/ndenisov/webstudio-system/internal/validation"
)

type offerRequest struct {
	Code string `json:"code" validate:"required"`

	// Либо явные kind/value, либо текстовая метка вида "15% OFF".
	DiscountKind  string `json:"discount_kind" validate:"omitempty,discount_kind"`
	DiscountValue int64  `json:"discount_value" validate:"gte=0"`
	Label         string `json:"label"`

	IsActive   bool   `json:"is_active"`
	ValidUntil string `json:"valid_until"`
}

type offerResponse struct {
	ID            int64  `json:"id"`
	Code          string `json:"code"`
	DiscountKind  string `json:"discount_kind"`
	DiscountValue int64  `json:"discount_value"`
	IsActive      bool   `json:"is_active"`
	ValidUntil    string `json:"valid_until,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toOfferResponse(o model.Offer) offerResponse {
	resp := offerResponse{
		ID:            o.ID,
		Code:          o.Code,
		DiscountKind:  string(o.Discount.Kind),
		DiscountValue: o.Discount.Value,
		IsActive:      o.IsActive,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
	if o.ValidUntil != nil {
		resp.ValidUntil = o.ValidUntil.Format(time.RFC3339)
	}
	return resp
}

// offerFromRequest собирает предложение из запроса: явные поля скидки
// имеют приоритет, текстовая метка разбирается как запасной вариант.
func (h *Handler) offerFromRequest(req offerRequest) (model.Offer, error) {
	offer := model.Offer{
		Code:     req.Code,
		IsActive: req.IsActive,
	}

	switch {
	case req.DiscountKind != "":
		offer.Discount = model.Discount{
			Kind:  model.DiscountKind(req.DiscountKind),
			Value: req.DiscountValue,
		}
	case req.Label != "":
		d, err := validation.ParseDiscountLabel(req.Label)
		if err != nil {
			return model.Offer{}, err
		}
		offer.Discount = d
	default:
		return model.Offer{}, validation.ErrBadDiscountLabel
	}

	if req.ValidUntil != "" {
		t, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil {
			return model.Offer{}, err
		}
		offer.ValidUntil = &t
	}

	return offer, nil
}

// CreateOffer создаёт новое предложение с промокодом.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req offerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	offer, err := h.offerFromRequest(req)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	id, err := h.service.CreateOffer(r.Context(), offer)
	if err != nil {
		if errors.Is(err, repository.ErrOfferCodeTaken) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("create offer error", zap.Error(err), zap.String("code", req.Code))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	offer.ID = id

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toOfferResponse(offer))
}

// UpdateOffer обновляет существующее предложение.
func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "offerID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req offerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	offer, err := h.offerFromRequest(req)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}
	offer.ID = id

	if err := h.service.UpdateOffer(r.Context(), offer); err != nil {
		switch {
		case errors.Is(err, repository.ErrOfferNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrOfferCodeTaken):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("update offer error", zap.Error(err), zap.Int64("offerID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteOffer удаляет предложение.
func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "offerID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteOffer(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete offer error", zap.Error(err), zap.Int64("offerID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetOffers возвращает все предложения, включая неактивные.
func (h *Handler) GetOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.ListOffers(r.Context())
	if err != nil {
		h.logger.Error("list offers error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]offerResponse, 0, len(offers))
	for _, o := range offers {
		resp = append(resp, toOfferResponse(o))
	}

	h.writeJSON(w, resp)
}

// sortStateFromQuery читает параметры sort и dir.
// Направление по умолчанию — убывающее.
func sortStateFromQuery(r *http.Request) listing.SortState {
	return listing.SortState{
		Key:  r.URL.Query().Get("sort"),
		Desc: r.URL.Query().Get("dir") != "asc",
	}
}

// GetAdminOrders возвращает все заказы с фильтрацией и сортировкой.
// Параметры: query, status, sort, dir.
func (h *Handler) GetAdminOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	orders, err := h.service.ListOrders(r.Context(), q.Get("query"), q.Get("status"), sortStateFromQuery(r))
	if err != nil {
		h.logger.Error("list orders error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	h.writeJSON(w, resp)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatus устанавливает новый статус заказа.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateOrderStatus(r.Context(), orderID, model.OrderStatus(req.Status)); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownStatus):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("update order status error", zap.Error(err), zap.String("orderID", orderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetAdminBookings возвращает все бронирования с фильтрацией и сортировкой.
func (h *Handler) GetAdminBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	bookings, err := h.service.ListBookings(r.Context(), q.Get("query"), q.Get("status"), sortStateFromQuery(r))
	if err != nil {
		h.logger.Error("list bookings error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingResponse(b))
	}

	h.writeJSON(w, resp)
}

// UpdateBookingStatus устанавливает новый статус бронирования.
func (h *Handler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateBookingStatus(r.Context(), bookingID, model.BookingStatus(req.Status)); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownStatus):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrBookingNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("update booking status error", zap.Error(err), zap.String("bookingID", bookingID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteBooking удаляет бронирование.
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")

	if err := h.service.DeleteBooking(r.Context(), bookingID); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete booking error", zap.Error(err), zap.String("bookingID", bookingID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
