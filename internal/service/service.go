// Package service реализует бизнес-логику сервиса webstudio.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndenisov/webstudio-system/internal/cache"
	"github.com/ndenisov/webstudio-system/internal/listing"
	"github.com/ndenisov/webstudio-system/internal/model"
	"github.com/ndenisov/webstudio-system/internal/payment"
	"github.com/ndenisov/webstudio-system/internal/pricing"
	"github.com/ndenisov/webstudio-system/internal/recommend"
	"github.com/ndenisov/webstudio-system/internal/repository"
)

// ErrEmptyCart возвращается при попытке оформить заказ с пустой корзиной.
var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidCredentials возвращается при неверном логине или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNegativePrice возвращается при попытке добавить позицию с отрицательной ценой.
	ErrNegativePrice = errors.New("price must not be negative")
	// ErrUnknownStatus возвращается при попытке установить неизвестный статус.
	ErrUnknownStatus = errors.New("unknown status")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	ListTemplates(ctx context.Context) ([]model.Template, error)
	GetTemplate(ctx context.Context, id int64) (*model.Template, error)
	AddCartItem(ctx context.Context, item model.CartItem) error
	GetCartItems(ctx context.Context, userID int64) ([]model.CartItem, error)
	RemoveCartItem(ctx context.Context, userID int64, itemID string) error
	CreateOffer(ctx context.Context, offer model.Offer) (int64, error)
	UpdateOffer(ctx context.Context, offer model.Offer) error
	DeleteOffer(ctx context.Context, id int64) error
	ListOffers(ctx context.Context) ([]model.Offer, error)
	ListActiveOffers(ctx context.Context) ([]model.Offer, error)
	CreateOrder(ctx context.Context, order model.Order, cartItemIDs []string) error
	ListOrders(ctx context.Context) ([]model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
	GetOrdersForPayment(ctx context.Context, limit int) ([]repository.OrderForPayment, error)
	CreateBooking(ctx context.Context, b model.Booking) error
	ListBookings(ctx context.Context) ([]model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) error
	DeleteBooking(ctx context.Context, id string) error
}

// Service содержит бизнес-логику сервиса webstudio.
type Service struct {
	repo          Repository
	paymentClient *payment.Client
	offerCache    *cache.OfferCache
}

// NewService создаёт новый сервис с указанным репозиторием, клиентом платёжной
// системы и кешем предложений. Клиент и кеш могут быть nil.
func NewService(repo Repository, paymentClient *payment.Client, offerCache *cache.OfferCache) *Service {
	return &Service{
		repo:          repo,
		paymentClient: paymentClient,
		offerCache:    offerCache,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя с ролью customer.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed, model.RoleCustomer)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его учётную запись.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// ListTemplates возвращает каталог шаблонов сайтов.
func (s *Service) ListTemplates(ctx context.Context) ([]model.Template, error) {
	return s.repo.ListTemplates(ctx)
}

// AddCartItem добавляет настроенный шаблон в корзину пользователя.
// Нулевая цена заменяется базовой ценой шаблона.
func (s *Service) AddCartItem(ctx context.Context, userID, templateID, price int64, customizations map[string]string) (*model.CartItem, error) {
	if price < 0 {
		return nil, ErrNegativePrice
	}

	tpl, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if price == 0 {
		price = tpl.BasePrice
	}

	item := model.CartItem{
		ID:             uuid.NewString(),
		UserID:         userID,
		TemplateID:     templateID,
		Price:          price,
		Customizations: customizations,
		CreatedAt:      time.Now(),
	}

	if err := s.repo.AddCartItem(ctx, item); err != nil {
		return nil, err
	}

	return &item, nil
}

// GetCartItems возвращает корзину пользователя.
func (s *Service) GetCartItems(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return s.repo.GetCartItems(ctx, userID)
}

// RemoveCartItem удаляет позицию из корзины пользователя.
func (s *Service) RemoveCartItem(ctx context.Context, userID int64, itemID string) error {
	return s.repo.RemoveCartItem(ctx, userID, itemID)
}

// activeOffers возвращает активные предложения, используя кеш при наличии.
func (s *Service) activeOffers(ctx context.Context) ([]model.Offer, error) {
	if offers, ok := s.offerCache.GetActiveOffers(ctx); ok {
		return offers, nil
	}

	offers, err := s.repo.ListActiveOffers(ctx)
	if err != nil {
		return nil, err
	}

	_ = s.offerCache.SetActiveOffers(ctx, offers)

	return offers, nil
}

// resolveOffer находит применимое предложение по промокоду.
// Пустой код означает отсутствие скидки.
func (s *Service) resolveOffer(ctx context.Context, code string) (*model.Offer, error) {
	if code == "" {
		return nil, nil
	}

	offers, err := s.activeOffers(ctx)
	if err != nil {
		return nil, err
	}

	return pricing.ResolveOffer(code, offers, time.Now())
}

// QuoteCart вычисляет суммы корзины с необязательным промокодом.
// Пустая корзина — допустимое нулевое состояние, не ошибка.
func (s *Service) QuoteCart(ctx context.Context, userID int64, offerCode string) (*model.OrderTotals, error) {
	items, err := s.repo.GetCartItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	offer, err := s.resolveOffer(ctx, offerCode)
	if err != nil {
		return nil, err
	}

	totals := pricing.Totals(items, offer)
	return &totals, nil
}

// Checkout оформляет заказ из корзины пользователя: применяет предложение,
// фиксирует снимок позиций и очищает корзину.
func (s *Service) Checkout(ctx context.Context, userID int64, offerCode, paymentMethod, customerName, customerEmail string) (*model.Order, error) {
	items, err := s.repo.GetCartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	offer, err := s.resolveOffer(ctx, offerCode)
	if err != nil {
		return nil, err
	}

	totals := pricing.Totals(items, offer)

	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(templates))
	for _, t := range templates {
		names[t.ID] = t.Name
	}

	snapshot := make([]model.OrderItem, 0, len(items))
	itemIDs := make([]string, 0, len(items))
	for _, it := range items {
		snapshot = append(snapshot, model.OrderItem{
			TemplateID:   it.TemplateID,
			TemplateName: names[it.TemplateID],
			Price:        it.Price,
			Custom:       it.Customizations,
		})
		itemIDs = append(itemIDs, it.ID)
	}

	appliedCode := ""
	if offer != nil {
		appliedCode = offer.Code
	}

	order := model.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Items:         snapshot,
		Totals:        totals,
		OfferCode:     appliedCode,
		PaymentMethod: paymentMethod,
		Status:        model.OrderStatusPending,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.CreateOrder(ctx, order, itemIDs); err != nil {
		return nil, err
	}

	// Регистрация в платёжной системе необязательна: статус заказа
	// подтянет фоновый опрос.
	if s.paymentClient != nil {
		_ = s.paymentClient.RegisterOrder(ctx, order.ID, order.Totals.Total)
	}

	return &order, nil
}

// CreateOffer создаёт предложение. Промокод нормализуется к верхнему регистру.
func (s *Service) CreateOffer(ctx context.Context, offer model.Offer) (int64, error) {
	offer.Code = strings.ToUpper(strings.TrimSpace(offer.Code))

	id, err := s.repo.CreateOffer(ctx, offer)
	if err != nil {
		return 0, err
	}

	_ = s.offerCache.Invalidate(ctx)

	return id, nil
}

// UpdateOffer обновляет предложение и сбрасывает кеш.
// Промокод нормализуется так же, как при создании.
func (s *Service) UpdateOffer(ctx context.Context, offer model.Offer) error {
	offer.Code = strings.ToUpper(strings.TrimSpace(offer.Code))

	if err := s.repo.UpdateOffer(ctx, offer); err != nil {
		return err
	}

	_ = s.offerCache.Invalidate(ctx)

	return nil
}

// DeleteOffer удаляет предложение и сбрасывает кеш.
func (s *Service) DeleteOffer(ctx context.Context, id int64) error {
	if err := s.repo.DeleteOffer(ctx, id); err != nil {
		return err
	}

	_ = s.offerCache.Invalidate(ctx)

	return nil
}

// ListOffers возвращает все предложения для административного списка.
func (s *Service) ListOffers(ctx context.Context) ([]model.Offer, error) {
	return s.repo.ListOffers(ctx)
}

// ListOrders возвращает отфильтрованный и отсортированный список всех заказов.
func (s *Service) ListOrders(ctx context.Context, query, status string, sortState listing.SortState) ([]model.Order, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	orders = listing.FilterOrders(orders, query, status)
	listing.SortOrders(orders, sortState)

	return orders, nil
}

// GetOrdersByUser возвращает заказы пользователя.
func (s *Service) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

var orderStatuses = map[model.OrderStatus]bool{
	model.OrderStatusPending:    true,
	model.OrderStatusProcessing: true,
	model.OrderStatusCompleted:  true,
	model.OrderStatusCancelled:  true,
}

// UpdateOrderStatus устанавливает новый статус заказа.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	if !orderStatuses[status] {
		return ErrUnknownStatus
	}
	return s.repo.UpdateOrderStatus(ctx, id, status)
}

// CreateBooking создаёт бронирование услуги со статусом pending.
func (s *Service) CreateBooking(ctx context.Context, b model.Booking) (*model.Booking, error) {
	b.ID = uuid.NewString()
	b.Status = model.BookingStatusPending
	b.CreatedAt = time.Now()

	if err := s.repo.CreateBooking(ctx, b); err != nil {
		return nil, err
	}

	return &b, nil
}

// ListBookings возвращает отфильтрованный и отсортированный список бронирований.
func (s *Service) ListBookings(ctx context.Context, query, status string, sortState listing.SortState) ([]model.Booking, error) {
	bookings, err := s.repo.ListBookings(ctx)
	if err != nil {
		return nil, err
	}

	bookings = listing.FilterBookings(bookings, query, status)
	listing.SortBookings(bookings, sortState)

	return bookings, nil
}

var bookingStatuses = map[model.BookingStatus]bool{
	model.BookingStatusPending:    true,
	model.BookingStatusConfirmed:  true,
	model.BookingStatusInProgress: true,
	model.BookingStatusCompleted:  true,
	model.BookingStatusCancelled:  true,
}

// UpdateBookingStatus устанавливает новый статус бронирования.
func (s *Service) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) error {
	if !bookingStatuses[status] {
		return ErrUnknownStatus
	}
	return s.repo.UpdateBookingStatus(ctx, id, status)
}

// DeleteBooking удаляет бронирование.
func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	return s.repo.DeleteBooking(ctx, id)
}

// Recommendation — результат подбора технологий.
type Recommendation struct {
	Stack  recommend.Stack
	Ranked []model.TechnologyScore
}

// Recommend ранжирует каталог технологий под тип сайта и выбранные возможности.
// Категория ограничивает возвращаемый список; стек всегда строится по полному каталогу.
func (s *Service) Recommend(websiteType string, features []string, category string) Recommendation {
	ranked := recommend.Rank(recommend.Catalog, websiteType, features)

	return Recommendation{
		Stack:  recommend.RecommendedStack(ranked),
		Ranked: recommend.FilterByCategory(ranked, category),
	}
}

// StartPaymentUpdates запускает фоновый процесс обновления статусов оплаты заказов.
func (s *Service) StartPaymentUpdates(ctx context.Context) {
	if s.paymentClient == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processPaymentBatch(ctx)
			}
		}
	}()
}

func (s *Service) processPaymentBatch(ctx context.Context) {
	orders, err := s.repo.GetOrdersForPayment(ctx, 100)
	if err != nil {
		return
	}

	for _, o := range orders {
		resp, statusCode, retryAfter, err := s.paymentClient.GetOrderPayment(ctx, o.ID)
		if err != nil {
			continue
		}

		if statusCode == 0 {
			continue
		}

		if statusCode == 429 {
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		if resp == nil {
			continue
		}

		var status model.OrderStatus

		switch resp.Status {
		case payment.StatusRegistered, payment.StatusProcessing:
			status = model.OrderStatusProcessing
		case payment.StatusConfirmed:
			status = model.OrderStatusCompleted
		case payment.StatusDeclined:
			status = model.OrderStatusCancelled
		default:
			continue
		}

		_ = s.repo.UpdateOrderStatus(ctx, o.ID, status)
	}
}
