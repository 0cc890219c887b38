package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ndenisov/webstudio-system/internal/listing"
	"github.com/ndenisov/webstudio-system/internal/middleware"
	"github.com/ndenisov/webstudio-system/internal/model"
	"github.com/ndenisov/webstudio-system/internal/pricing"
	"github.com/ndenisov/webstudio-system/internal/recommend"
	"github.com/ndenisov/webstudio-system/internal/repository"
	"github.com/ndenisov/webstudio-system/internal/service"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUser *model.User
	authErr  error

	templatesResp []model.Template

	cartItem    *model.CartItem
	cartItemErr error
	cartResp    []model.CartItem

	quoteResp *model.OrderTotals
	quoteErr  error

	checkoutOrder *model.Order
	checkoutErr   error

	ordersResp []model.Order

	offerID        int64
	offerErr       error
	createdOffer   *model.Offer
	offersResp     []model.Offer
	orderStatusErr error

	booking     *model.Booking
	bookingErr  error
	bookingsRsp []model.Booking

	listQuery  string
	listStatus string
	listSort   listing.SortState
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	return s.authUser, s.authErr
}

func (s *stubService) ListTemplates(ctx context.Context) ([]model.Template, error) {
	return s.templatesResp, nil
}

func (s *stubService) AddCartItem(ctx context.Context, userID, templateID, price int64, customizations map[string]string) (*model.CartItem, error) {
	return s.cartItem, s.cartItemErr
}

func (s *stubService) GetCartItems(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return s.cartResp, nil
}

func (s *stubService) RemoveCartItem(ctx context.Context, userID int64, itemID string) error {
	return nil
}

func (s *stubService) QuoteCart(ctx context.Context, userID int64, offerCode string) (*model.OrderTotals, error) {
	return s.quoteResp, s.quoteErr
}

func (s *stubService) Checkout(ctx context.Context, userID int64, offerCode, paymentMethod, customerName, customerEmail string) (*model.Order, error) {
	return s.checkoutOrder, s.checkoutErr
}

func (s *stubService) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.ordersResp, nil
}

func (s *stubService) Recommend(websiteType string, features []string, category string) service.Recommendation {
	ranked := recommend.Rank(recommend.Catalog, websiteType, features)
	return service.Recommendation{
		Stack:  recommend.RecommendedStack(ranked),
		Ranked: ranked,
	}
}

func (s *stubService) CreateOffer(ctx context.Context, offer model.Offer) (int64, error) {
	s.createdOffer = &offer
	return s.offerID, s.offerErr
}

func (s *stubService) UpdateOffer(ctx context.Context, offer model.Offer) error {
	s.createdOffer = &offer
	return s.offerErr
}

func (s *stubService) DeleteOffer(ctx context.Context, id int64) error { return s.offerErr }

func (s *stubService) ListOffers(ctx context.Context) ([]model.Offer, error) {
	return s.offersResp, nil
}

func (s *stubService) ListOrders(ctx context.Context, query, status string, sortState listing.SortState) ([]model.Order, error) {
	s.listQuery = query
	s.listStatus = status
	s.listSort = sortState
	return s.ordersResp, nil
}

func (s *stubService) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	return s.orderStatusErr
}

func (s *stubService) CreateBooking(ctx context.Context, b model.Booking) (*model.Booking, error) {
	return s.booking, s.bookingErr
}

func (s *stubService) ListBookings(ctx context.Context, query, status string, sortState listing.SortState) ([]model.Booking, error) {
	s.listQuery = query
	s.listStatus = status
	s.listSort = sortState
	return s.bookingsRsp, nil
}

func (s *stubService) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) error {
	return nil
}

func (s *stubService) DeleteBooking(ctx context.Context, id string) error { return nil }

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

func authCookie(h *Handler, userID int64, role model.Role) *http.Cookie {
	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, userID, role)
	return rec.Result().Cookies()[0]
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerUserID: 42,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("auth cookie must be set")
	}
}

func TestLogin_Unauthorized(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidCredentials,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "wrong",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestQuoteCart_InvalidOffer(t *testing.T) {
	svc := &stubService{
		quoteErr: pricing.ErrOfferNotFound,
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/user/cart/quote?offer=NOSUCH", nil)
	req.AddCookie(authCookie(h, 1, model.RoleCustomer))

	rec := httptest.NewRecorder()
	h.authMiddleware.Middleware(http.HandlerFunc(h.QuoteCart)).ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestQuoteCart_JSONResponse(t *testing.T) {
	svc := &stubService{
		quoteResp: &model.OrderTotals{Subtotal: 10000, Discount: 1000, Tax: 1620, Total: 9620},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/user/cart/quote?offer=TEN", nil)
	req.AddCookie(authCookie(h, 1, model.RoleCustomer))

	rec := httptest.NewRecorder()
	h.authMiddleware.Middleware(http.HandlerFunc(h.QuoteCart)).ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var totals model.OrderTotals
	if err := json.NewDecoder(res.Body).Decode(&totals); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if totals.Total != 9620 {
		t.Fatalf("total = %d, want 9620", totals.Total)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc := &stubService{
		checkoutErr: service.ErrEmptyCart,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(checkoutRequest{
		PaymentMethod: "card",
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/checkout", bytes.NewReader(body))
	req.AddCookie(authCookie(h, 1, model.RoleCustomer))

	rec := httptest.NewRecorder()
	h.authMiddleware.Middleware(http.HandlerFunc(h.Checkout)).ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestCheckout_Created(t *testing.T) {
	svc := &stubService{
		checkoutOrder: &model.Order{
			ID:     "ord-1",
			Totals: model.OrderTotals{Subtotal: 10000, Discount: 1000, Tax: 1620, Total: 9620},
			Status: model.OrderStatusPending,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(checkoutRequest{
		OfferCode:     "TEN",
		PaymentMethod: "card",
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/checkout", bytes.NewReader(body))
	req.AddCookie(authCookie(h, 1, model.RoleCustomer))

	rec := httptest.NewRecorder()
	h.authMiddleware.Middleware(http.HandlerFunc(h.Checkout)).ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp orderResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "ord-1" || resp.Status != "pending" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRecommend_JSONResponse(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(recommendRequest{
		WebsiteType: "E-commerce",
		Features:    []string{"ecommerce"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/recommendations", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Recommend(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp recommendResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Technologies) == 0 {
		t.Fatalf("empty technology list")
	}
	if resp.Stack["frontend"] == nil || resp.Stack["backend"] == nil || resp.Stack["database"] == nil {
		t.Fatalf("incomplete stack: %+v", resp.Stack)
	}
}

func TestCreateOffer_FromLabel(t *testing.T) {
	svc := &stubService{offerID: 7}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(offerRequest{
		Code:     "save15",
		Label:    "15% OFF",
		IsActive: true,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/offers", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOffer(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	if svc.createdOffer == nil {
		t.Fatalf("offer was not passed to service")
	}
	want := model.Discount{Kind: model.DiscountPercent, Value: 15}
	if svc.createdOffer.Discount != want {
		t.Fatalf("discount = %+v, want %+v", svc.createdOffer.Discount, want)
	}
}

func TestCreateOffer_BadDiscount(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(offerRequest{
		Code:  "BROKEN",
		Label: "no numbers here",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/offers", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOffer(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestUpdateOffer_CodeTaken(t *testing.T) {
	svc := &stubService{offerErr: repository.ErrOfferCodeTaken}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(offerRequest{
		Code:          "TAKEN",
		DiscountKind:  "percent",
		DiscountValue: 10,
	})

	req := httptest.NewRequest(http.MethodPut, "/api/admin/offers/1", bytes.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("offerID", "1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.UpdateOffer(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestGetAdminOrders_PassesListingParams(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders?query=jane&status=pending&sort=total&dir=asc", nil)
	rec := httptest.NewRecorder()

	h.GetAdminOrders(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	if svc.listQuery != "jane" || svc.listStatus != "pending" {
		t.Fatalf("filter params = %q/%q, want jane/pending", svc.listQuery, svc.listStatus)
	}
	want := listing.SortState{Key: "total", Desc: false}
	if svc.listSort != want {
		t.Fatalf("sort state = %+v, want %+v", svc.listSort, want)
	}
}

func TestAdminRoutes_ForbiddenForCustomer(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.AddCookie(authCookie(h, 1, model.RoleCustomer))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}
}

func TestAdminRoutes_AllowedForAdmin(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.AddCookie(authCookie(h, 1, model.RoleAdmin))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestCreateBooking_Created(t *testing.T) {
	scheduled := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubService{
		booking: &model.Booking{
			ID:           "bk-1",
			ClientName:   "Bob",
			Status:       model.BookingStatusPending,
			ScheduledFor: scheduled,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(bookingRequest{
		ClientName:   "Bob",
		ClientEmail:  "bob@example.com",
		ProjectName:  "Landing",
		Service:      "design",
		ScheduledFor: scheduled.Format(time.RFC3339),
		TotalPrice:   5000,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateBooking(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp bookingResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "bk-1" || resp.Status != "pending" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
