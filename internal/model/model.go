// Package model содержит доменные сущности сервиса webstudio.
package model

import "time"

// Role описывает роль пользователя в системе.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User представляет зарегистрированного пользователя витрины.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// DiscountKind описывает вид скидки предложения.
type DiscountKind string

const (
	// DiscountPercent — скидка в процентах от суммы корзины.
	DiscountPercent DiscountKind = "percent"
	// DiscountFlat — фиксированная скидка в денежных единицах.
	DiscountFlat DiscountKind = "flat"
)

// Discount описывает скидку как помеченное объединение: вид и величина.
// Для процентной скидки Value — проценты, для фиксированной — денежные единицы.
type Discount struct {
	Kind  DiscountKind
	Value int64
}

// Offer представляет промокод, создаваемый администратором.
// Если ValidUntil в прошлом, предложение считается истёкшим независимо от IsActive.
type Offer struct {
	ID         int64
	Code       string
	Discount   Discount
	IsActive   bool
	ValidUntil *time.Time
	CreatedAt  time.Time
}

// Template описывает шаблон сайта из каталога.
type Template struct {
	ID          int64
	Name        string
	Description string
	BasePrice   int64
	Category    string
}

// CartItem представляет одну позицию корзины: настроенный шаблон с ценой.
type CartItem struct {
	ID             string
	UserID         int64
	TemplateID     int64
	Price          int64
	Customizations map[string]string
	CreatedAt      time.Time
}

// OrderTotals содержит производные суммы заказа.
// Инвариант: Total = Subtotal - Discount + Tax. Не сохраняется в БД.
type OrderTotals struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderItem — снимок позиции корзины, зафиксированный на момент оформления заказа.
type OrderItem struct {
	TemplateID   int64             `json:"template_id"`
	TemplateName string            `json:"template_name"`
	Price        int64             `json:"price"`
	Custom       map[string]string `json:"customizations,omitempty"`
}

// Order описывает оформленный заказ пользователя.
type Order struct {
	ID            string
	UserID        int64
	CustomerName  string
	CustomerEmail string
	Items         []OrderItem
	Totals        OrderTotals
	OfferCode     string
	PaymentMethod string
	Status        OrderStatus
	CreatedAt     time.Time
}

// BookingStatus описывает статус бронирования услуги.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// Booking описывает бронирование услуги студии клиентом.
type Booking struct {
	ID           string
	ClientName   string
	ClientEmail  string
	ProjectName  string
	Service      string
	Status       BookingStatus
	ScheduledFor time.Time
	TotalPrice   int64
	CreatedAt    time.Time
}

// Technology — элемент статического каталога технологий.
// Каталог неизменяем и поставляется вместе с приложением.
type Technology struct {
	ID         string
	Name       string
	Category   string
	Tags       []string
	Popularity int
	Complexity int
}

// HasTag сообщает, помечена ли технология указанным тегом.
func (t Technology) HasTag(tag string) bool {
	for _, v := range t.Tags {
		if v == tag {
			return true
		}
	}
	return false
}

// TechnologyScore — результат оценки технологии рекомендателем.
type TechnologyScore struct {
	Technology Technology
	Score      int
	MatchPct   int
}
