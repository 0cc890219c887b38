// Package pricing реализует расчёт сумм корзины: подытог, скидка, налог, итог.
package pricing

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/ndenisov/webstudio-system/internal/model"
)

// TaxRate — ставка налога, применяемая к сумме после вычета скидки.
const TaxRate = 0.18

// ErrOfferNotFound возвращается, если промокод не найден среди предложений.
var (
	ErrOfferNotFound = errors.New("offer not found")
	// ErrOfferExpired возвращается, если предложение найдено, но срок его действия истёк.
	ErrOfferExpired = errors.New("offer expired")
)

// Subtotal возвращает сумму цен всех позиций корзины. Пустая корзина — 0.
func Subtotal(items []model.CartItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Price
	}
	return sum
}

// ResolveOffer ищет предложение по промокоду без учёта регистра.
// Возвращается первое совпадение. Найденное предложение дополнительно
// отклоняется как истёкшее, если ValidUntil строго раньше now,
// независимо от значения IsActive.
func ResolveOffer(code string, offers []model.Offer, now time.Time) (*model.Offer, error) {
	for i := range offers {
		if !strings.EqualFold(offers[i].Code, code) {
			continue
		}
		if offers[i].ValidUntil != nil && offers[i].ValidUntil.Before(now) {
			return nil, ErrOfferExpired
		}
		return &offers[i], nil
	}
	return nil, ErrOfferNotFound
}

// DiscountAmount вычисляет величину скидки для указанного подытога.
// Процентная скидка округляется до ближайшей целой денежной единицы.
// Оба вида ограничиваются подытогом, чтобы итог не стал отрицательным:
// процент свыше 100 означает бесплатный заказ, не доплату.
func DiscountAmount(subtotal int64, d model.Discount) int64 {
	var amount int64
	switch d.Kind {
	case model.DiscountPercent:
		amount = roundHalfUp(float64(subtotal) * float64(d.Value) / 100)
	case model.DiscountFlat:
		amount = d.Value
	}
	if amount > subtotal {
		return subtotal
	}
	return amount
}

// TaxAmount вычисляет налог от суммы после вычета скидки.
// Порядок «скидка, затем налог» фиксирован: обратный порядок даёт другой итог.
func TaxAmount(subtotal, discount int64) int64 {
	return roundHalfUp(float64(subtotal-discount) * TaxRate)
}

// Totals вычисляет все четыре суммы для корзины и необязательного предложения.
// Предложение nil означает отсутствие скидки.
func Totals(items []model.CartItem, offer *model.Offer) model.OrderTotals {
	subtotal := Subtotal(items)

	var discount int64
	if offer != nil {
		discount = DiscountAmount(subtotal, offer.Discount)
	}

	tax := TaxAmount(subtotal, discount)

	return model.OrderTotals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    subtotal - discount + tax,
	}
}

func roundHalfUp(v float64) int64 {
	return int64(math.Round(v))
}
