// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/ndenisov/webstudio-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrTemplateNotFound возвращается, если шаблон не найден в каталоге.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrCartItemNotFound возвращается, если позиция корзины не найдена у пользователя.
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrOfferCodeTaken возвращается при попытке создать предложение с занятым промокодом.
	ErrOfferCodeTaken = errors.New("offer code already taken")
	// ErrOfferNotFound возвращается, если предложение не найдено.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrBookingNotFound возвращается, если бронирование не найдено.
	ErrBookingNotFound = errors.New("booking not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
// Первичная проверка соединения повторяется с фибоначчиевой задержкой.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure и Deadlock.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя с указанной ролью.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash, role) VALUES ($1, $2, $3) RETURNING id`,
		login, passwordHash, string(role),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, role, created_at FROM users WHERE login = $1`,
		login,
	)

	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)

	return &u, nil
}

// ListTemplates возвращает каталог шаблонов сайтов.
func (r *PostgresRepository) ListTemplates(ctx context.Context) ([]model.Template, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, base_price, category FROM templates ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select templates: %w", err)
	}
	defer rows.Close()

	var res []model.Template
	for rows.Next() {
		var t model.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.BasePrice, &t.Category); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetTemplate возвращает шаблон по идентификатору.
func (r *PostgresRepository) GetTemplate(ctx context.Context, id int64) (*model.Template, error) {
	var t model.Template
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, base_price, category FROM templates WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.BasePrice, &t.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &t, nil
}

// AddCartItem сохраняет позицию корзины пользователя.
func (r *PostgresRepository) AddCartItem(ctx context.Context, item model.CartItem) error {
	custom, err := json.Marshal(item.Customizations)
	if err != nil {
		return fmt.Errorf("marshal customizations: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO cart_items (id, user_id, template_id, price, customizations) VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.UserID, item.TemplateID, item.Price, custom,
	)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

// GetCartItems возвращает позиции корзины пользователя в порядке добавления.
func (r *PostgresRepository) GetCartItems(ctx context.Context, userID int64) ([]model.CartItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, template_id, price, customizations, created_at
		 FROM cart_items
		 WHERE user_id = $1
		 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	var res []model.CartItem
	for rows.Next() {
		var (
			it     model.CartItem
			custom []byte
		)
		if err := rows.Scan(&it.ID, &it.UserID, &it.TemplateID, &it.Price, &custom, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		if len(custom) > 0 {
			if err := json.Unmarshal(custom, &it.Customizations); err != nil {
				return nil, fmt.Errorf("unmarshal customizations: %w", err)
			}
		}
		res = append(res, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// RemoveCartItem удаляет позицию корзины пользователя.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID int64, itemID string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND user_id = $2`,
		itemID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// CreateOffer создаёт предложение и возвращает его идентификатор.
func (r *PostgresRepository) CreateOffer(ctx context.Context, offer model.Offer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO offers (code, discount_kind, discount_value, is_active, valid_until)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		offer.Code, string(offer.Discount.Kind), offer.Discount.Value, offer.IsActive, offer.ValidUntil,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrOfferCodeTaken, offer.Code)
		}
		return 0, fmt.Errorf("create offer: %w", err)
	}
	return id, nil
}

// UpdateOffer обновляет промокод, скидку, активность и срок действия предложения.
func (r *PostgresRepository) UpdateOffer(ctx context.Context, offer model.Offer) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE offers
		 SET code = $2, discount_kind = $3, discount_value = $4, is_active = $5, valid_until = $6
		 WHERE id = $1`,
		offer.ID, offer.Code, string(offer.Discount.Kind), offer.Discount.Value, offer.IsActive, offer.ValidUntil,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrOfferCodeTaken, offer.Code)
		}
		return fmt.Errorf("update offer: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOfferNotFound
	}
	return nil
}

// DeleteOffer удаляет предложение.
func (r *PostgresRepository) DeleteOffer(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOfferNotFound
	}
	return nil
}

func scanOffers(rows pgx.Rows) ([]model.Offer, error) {
	var res []model.Offer
	for rows.Next() {
		var (
			o    model.Offer
			kind string
		)
		if err := rows.Scan(&o.ID, &o.Code, &kind, &o.Discount.Value, &o.IsActive, &o.ValidUntil, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		o.Discount.Kind = model.DiscountKind(kind)
		res = append(res, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListOffers возвращает все предложения для административного списка.
func (r *PostgresRepository) ListOffers(ctx context.Context) ([]model.Offer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, discount_kind, discount_value, is_active, valid_until, created_at
		 FROM offers
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select offers: %w", err)
	}
	defer rows.Close()

	return scanOffers(rows)
}

// ListActiveOffers возвращает только активные предложения.
// Проверка срока действия остаётся за движком расчёта цен.
func (r *PostgresRepository) ListActiveOffers(ctx context.Context) ([]model.Offer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, discount_kind, discount_value, is_active, valid_until, created_at
		 FROM offers
		 WHERE is_active
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select active offers: %w", err)
	}
	defer rows.Close()

	return scanOffers(rows)
}

// CreateOrder сохраняет заказ и удаляет вошедшие в него позиции корзины
// в одной транзакции. Удаляются только перечисленные позиции: добавленная
// параллельно позиция остаётся в корзине, а не пропадает без следа.
// Строка пользователя блокируется для сериализации параллельных оформлений.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order model.Order, cartItemIDs []string) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var dummy int
		err = tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, order.UserID).Scan(&dummy)
		if err != nil {
			return fmt.Errorf("lock user for update: %w", err)
		}

		items, err := json.Marshal(order.Items)
		if err != nil {
			return fmt.Errorf("marshal order items: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO orders (id, user_id, customer_name, customer_email, items, subtotal, discount, tax, total, offer_code, payment_method, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			order.ID, order.UserID, order.CustomerName, order.CustomerEmail, items,
			order.Totals.Subtotal, order.Totals.Discount, order.Totals.Tax, order.Totals.Total,
			order.OfferCode, order.PaymentMethod, string(order.Status),
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		_, err = tx.Exec(ctx,
			`DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)`,
			order.UserID, cartItemIDs,
		)
		if err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

const orderColumns = `id, user_id, customer_name, customer_email, items,
	 subtotal, discount, tax, total, offer_code, payment_method, status, created_at`

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		var (
			o      model.Order
			items  []byte
			status string
		)
		err := rows.Scan(
			&o.ID, &o.UserID, &o.CustomerName, &o.CustomerEmail, &items,
			&o.Totals.Subtotal, &o.Totals.Discount, &o.Totals.Tax, &o.Totals.Total,
			&o.OfferCode, &o.PaymentMethod, &status, &o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = model.OrderStatus(status)
		if len(items) > 0 {
			if err := json.Unmarshal(items, &o.Items); err != nil {
				return nil, fmt.Errorf("unmarshal order items: %w", err)
			}
		}
		res = append(res, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListOrders возвращает все заказы для административного списка.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 ORDER BY created_at DESC`,
	)
}

// GetOrdersByUser возвращает заказы пользователя.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
}

// UpdateOrderStatus обновляет статус заказа.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// OrderForPayment описывает заказ, ожидающий подтверждения оплаты.
type OrderForPayment struct {
	ID     string
	Status model.OrderStatus
}

// GetOrdersForPayment возвращает заказы, статус оплаты которых нужно запросить.
func (r *PostgresRepository) GetOrdersForPayment(ctx context.Context, limit int) ([]OrderForPayment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, status
		 FROM orders
		 WHERE status IN ($1, $2)
		 ORDER BY created_at
		 LIMIT $3`,
		string(model.OrderStatusPending),
		string(model.OrderStatusProcessing),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders for payment: %w", err)
	}
	defer rows.Close()

	var res []OrderForPayment
	for rows.Next() {
		var (
			id     string
			status string
		)
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		res = append(res, OrderForPayment{
			ID:     id,
			Status: model.OrderStatus(status),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateBooking сохраняет бронирование услуги.
func (r *PostgresRepository) CreateBooking(ctx context.Context, b model.Booking) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bookings (id, client_name, client_email, project_name, service, status, scheduled_for, total_price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.ClientName, b.ClientEmail, b.ProjectName, b.Service, string(b.Status), b.ScheduledFor, b.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// ListBookings возвращает все бронирования для административного списка.
func (r *PostgresRepository) ListBookings(ctx context.Context) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, client_name, client_email, project_name, service, status, scheduled_for, total_price, created_at
		 FROM bookings
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select bookings: %w", err)
	}
	defer rows.Close()

	var res []model.Booking
	for rows.Next() {
		var (
			b      model.Booking
			status string
		)
		if err := rows.Scan(&b.ID, &b.ClientName, &b.ClientEmail, &b.ProjectName, &b.Service, &status, &b.ScheduledFor, &b.TotalPrice, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Status = model.BookingStatus(status)
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateBookingStatus обновляет статус бронирования.
func (r *PostgresRepository) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE bookings SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// DeleteBooking удаляет бронирование. Удаление доступно только администратору.
func (r *PostgresRepository) DeleteBooking(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}
