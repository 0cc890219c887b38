// Package handler содержит HTTP-обработчики API сервиса webstudio.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ndenisov/webstudio-system/internal/listing"
	"github.com/ndenisov/webstudio-system/internal/middleware"
	"github.com/ndenisov/webstudio-system/internal/model"
	"github.com/ndenisov/webstudio-system/internal/pricing"
	"github.com/ndenisov/webstudio-system/internal/repository"
	"github.com/ndenisov/webstudio-system/internal/service"
	"github.com/ndenisov/webstudio-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (*model.User, error)
	ListTemplates(ctx context.Context) ([]model.Template, error)
	AddCartItem(ctx context.Context, userID, templateID, price int64, customizations map[string]string) (*model.CartItem, error)
	GetCartItems(ctx context.Context, userID int64) ([]model.CartItem, error)
	RemoveCartItem(ctx context.Context, userID int64, itemID string) error
	QuoteCart(ctx context.Context, userID int64, offerCode string) (*model.OrderTotals, error)
	Checkout(ctx context.Context, userID int64, offerCode, paymentMethod, customerName, customerEmail string) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	Recommend(websiteType string, features []string, category string) service.Recommendation
	CreateOffer(ctx context.Context, offer model.Offer) (int64, error)
	UpdateOffer(ctx context.Context, offer model.Offer) error
	DeleteOffer(ctx context.Context, id int64) error
	ListOffers(ctx context.Context) ([]model.Offer, error)
	ListOrders(ctx context.Context, query, status string, sortState listing.SortState) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
	CreateBooking(ctx context.Context, b model.Booking) (*model.Booking, error)
	ListBookings(ctx context.Context, query, status string, sortState listing.SortState) ([]model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) error
	DeleteBooking(ctx context.Context, id string) error
}

// Handler реализует HTTP-обработчики API сервиса webstudio.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	validate       *validatorv10.Validate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		validate:       validation.New(),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type credentialsRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID, model.RoleCustomer)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.ID, user.Role)
	w.WriteHeader(http.StatusOK)
}

type templateResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BasePrice   int64  `json:"base_price"`
	Category    string `json:"category"`
}

// GetTemplates возвращает каталог шаблонов сайтов.
func (h *Handler) GetTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.service.ListTemplates(r.Context())
	if err != nil {
		h.logger.Error("list templates error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		resp = append(resp, templateResponse{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			BasePrice:   t.BasePrice,
			Category:    t.Category,
		})
	}

	h.writeJSON(w, resp)
}

type recommendRequest struct {
	WebsiteType string   `json:"website_type" validate:"required"`
	Features    []string `json:"features"`
	Category    string   `json:"category"`
}

type technologyResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Score      int    `json:"score"`
	MatchPct   int    `json:"match_percent"`
	Popularity int    `json:"popularity"`
	Complexity int    `json:"complexity"`
}

type recommendResponse struct {
	Stack        map[string]*technologyResponse `json:"stack"`
	Technologies []technologyResponse           `json:"technologies"`
}

func toTechnologyResponse(ts model.TechnologyScore) technologyResponse {
	return technologyResponse{
		ID:         ts.Technology.ID,
		Name:       ts.Technology.Name,
		Category:   ts.Technology.Category,
		Score:      ts.Score,
		MatchPct:   ts.MatchPct,
		Popularity: ts.Technology.Popularity,
		Complexity: ts.Technology.Complexity,
	}
}

// Recommend подбирает технологии под описание будущего сайта.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rec := h.service.Recommend(req.WebsiteType, req.Features, req.Category)

	resp := recommendResponse{
		Stack:        make(map[string]*technologyResponse, 3),
		Technologies: make([]technologyResponse, 0, len(rec.Ranked)),
	}

	stack := map[string]*model.TechnologyScore{
		"frontend": rec.Stack.Frontend,
		"backend":  rec.Stack.Backend,
		"database": rec.Stack.Database,
	}
	for name, ts := range stack {
		if ts == nil {
			continue
		}
		tr := toTechnologyResponse(*ts)
		resp.Stack[name] = &tr
	}

	for _, ts := range rec.Ranked {
		resp.Technologies = append(resp.Technologies, toTechnologyResponse(ts))
	}

	h.writeJSON(w, resp)
}

type addCartItemRequest struct {
	TemplateID     int64             `json:"template_id" validate:"required"`
	Price          int64             `json:"price"`
	Customizations map[string]string `json:"customizations"`
}

type cartItemResponse struct {
	ID             string            `json:"id"`
	TemplateID     int64             `json:"template_id"`
	Price          int64             `json:"price"`
	Customizations map[string]string `json:"customizations,omitempty"`
	CreatedAt      string            `json:"created_at"`
}

// AddCartItem добавляет настроенный шаблон в корзину текущего пользователя.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	item, err := h.service.AddCartItem(r.Context(), userID, req.TemplateID, req.Price, req.Customizations)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNegativePrice):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrTemplateNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("add cart item error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(cartItemResponse{
		ID:             item.ID,
		TemplateID:     item.TemplateID,
		Price:          item.Price,
		Customizations: item.Customizations,
		CreatedAt:      item.CreatedAt.Format(time.RFC3339),
	})
}

// GetCart возвращает корзину текущего пользователя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	items, err := h.service.GetCartItems(r.Context(), userID)
	if err != nil {
		h.logger.Error("get cart error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]cartItemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, cartItemResponse{
			ID:             it.ID,
			TemplateID:     it.TemplateID,
			Price:          it.Price,
			Customizations: it.Customizations,
			CreatedAt:      it.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, resp)
}

// RemoveCartItem удаляет позицию из корзины текущего пользователя.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	itemID := chi.URLParam(r, "itemID")

	if err := h.service.RemoveCartItem(r.Context(), userID, itemID); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("remove cart item error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// QuoteCart возвращает расчёт сумм корзины с необязательным промокодом
// из параметра offer.
func (h *Handler) QuoteCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	totals, err := h.service.QuoteCart(r.Context(), userID, r.URL.Query().Get("offer"))
	if err != nil {
		if errors.Is(err, pricing.ErrOfferNotFound) || errors.Is(err, pricing.ErrOfferExpired) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error("quote cart error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, totals)
}

type checkoutRequest struct {
	OfferCode     string `json:"offer_code"`
	PaymentMethod string `json:"payment_method" validate:"required"`
	CustomerName  string `json:"customer_name" validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

type orderResponse struct {
	ID            string            `json:"id"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Items         []model.OrderItem `json:"items"`
	Totals        model.OrderTotals `json:"totals"`
	OfferCode     string            `json:"offer_code,omitempty"`
	PaymentMethod string            `json:"payment_method"`
	Status        string            `json:"status"`
	CreatedAt     string            `json:"created_at"`
}

func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Items:         o.Items,
		Totals:        o.Totals,
		OfferCode:     o.OfferCode,
		PaymentMethod: o.PaymentMethod,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
}

// Checkout оформляет заказ из корзины текущего пользователя.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.Checkout(r.Context(), userID, req.OfferCode, req.PaymentMethod, req.CustomerName, req.CustomerEmail)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, pricing.ErrOfferNotFound), errors.Is(err, pricing.ErrOfferExpired):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			h.logger.Error("checkout error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toOrderResponse(*order))
}

// GetOrders возвращает заказы текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	h.writeJSON(w, resp)
}

type bookingRequest struct {
	ClientName   string `json:"client_name" validate:"required"`
	ClientEmail  string `json:"client_email" validate:"required,email"`
	ProjectName  string `json:"project_name" validate:"required"`
	Service      string `json:"service" validate:"required"`
	ScheduledFor string `json:"scheduled_for" validate:"required"`
	TotalPrice   int64  `json:"total_price" validate:"gte=0"`
}

type bookingResponse struct {
	ID           string `json:"id"`
	ClientName   string `json:"client_name"`
	ClientEmail  string `json:"client_email"`
	ProjectName  string `json:"project_name"`
	Service      string `json:"service"`
	Status       string `json:"status"`
	ScheduledFor string `json:"scheduled_for"`
	TotalPrice   int64  `json:"total_price"`
	CreatedAt    string `json:"created_at"`
}

func toBookingResponse(b model.Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		ClientName:   b.ClientName,
		ClientEmail:  b.ClientEmail,
		ProjectName:  b.ProjectName,
		Service:      b.Service,
		Status:       string(b.Status),
		ScheduledFor: b.ScheduledFor.Format(time.RFC3339),
		TotalPrice:   b.TotalPrice,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
	}
}

// CreateBooking принимает заявку клиента на бронирование услуги студии.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	scheduledFor, err := time.Parse(time.RFC3339, req.ScheduledFor)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), model.Booking{
		ClientName:   req.ClientName,
		ClientEmail:  req.ClientEmail,
		ProjectName:  req.ProjectName,
		Service:      req.Service,
		ScheduledFor: scheduledFor,
		TotalPrice:   req.TotalPrice,
	})
	if err != nil {
		h.logger.Error("create booking error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toBookingResponse(*booking))
}
