package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndenisov/webstudio-system/internal/model"
)

func items(prices ...int64) []model.CartItem {
	res := make([]model.CartItem, 0, len(prices))
	for _, p := range prices {
		res = append(res, model.CartItem{Price: p})
	}
	return res
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name   string
		prices []int64
		want   int64
	}{
		{
			name:   "empty cart",
			prices: nil,
			want:   0,
		},
		{
			name:   "single item",
			prices: []int64{4999},
			want:   4999,
		},
		{
			name:   "several items",
			prices: []int64{1000, 2500, 6500},
			want:   10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subtotal(items(tt.prices...))
			if got != tt.want {
				t.Fatalf("Subtotal = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSubtotalOrderIndependent(t *testing.T) {
	a := Subtotal(items(100, 2000, 30))
	b := Subtotal(items(30, 100, 2000))
	if a != b {
		t.Fatalf("subtotal depends on item order: %d vs %d", a, b)
	}
}

func TestResolveOffer(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	offers := []model.Offer{
		{Code: "WELCOME10", Discount: model.Discount{Kind: model.DiscountPercent, Value: 10}, IsActive: true, ValidUntil: &future},
		{Code: "OLDCODE", Discount: model.Discount{Kind: model.DiscountFlat, Value: 500}, IsActive: true, ValidUntil: &past},
		{Code: "FOREVER", Discount: model.Discount{Kind: model.DiscountFlat, Value: 200}, IsActive: true},
	}

	t.Run("case-insensitive match", func(t *testing.T) {
		offer, err := ResolveOffer("welcome10", offers, now)
		require.NoError(t, err)
		assert.Equal(t, "WELCOME10", offer.Code)
	})

	t.Run("no expiry means valid", func(t *testing.T) {
		offer, err := ResolveOffer("forever", offers, now)
		require.NoError(t, err)
		assert.Equal(t, int64(200), offer.Discount.Value)
	})

	t.Run("expired beats active flag", func(t *testing.T) {
		_, err := ResolveOffer("OLDCODE", offers, now)
		require.ErrorIs(t, err, ErrOfferExpired)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := ResolveOffer("NOSUCH", offers, now)
		require.ErrorIs(t, err, ErrOfferNotFound)
	})
}

func TestDiscountAmount(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		discount model.Discount
		want     int64
	}{
		{
			name:     "percent",
			subtotal: 10000,
			discount: model.Discount{Kind: model.DiscountPercent, Value: 10},
			want:     1000,
		},
		{
			name:     "percent rounds half up",
			subtotal: 333,
			discount: model.Discount{Kind: model.DiscountPercent, Value: 15},
			want:     50, // 49.95 -> 50
		},
		{
			name:     "flat below subtotal",
			subtotal: 10000,
			discount: model.Discount{Kind: model.DiscountFlat, Value: 5000},
			want:     5000,
		},
		{
			name:     "flat capped at subtotal",
			subtotal: 500,
			discount: model.Discount{Kind: model.DiscountFlat, Value: 5000},
			want:     500,
		},
		{
			name:     "percent over 100 capped at subtotal",
			subtotal: 1000,
			discount: model.Discount{Kind: model.DiscountPercent, Value: 150},
			want:     1000,
		},
		{
			name:     "zero subtotal",
			subtotal: 0,
			discount: model.Discount{Kind: model.DiscountPercent, Value: 50},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscountAmount(tt.subtotal, tt.discount)
			if got != tt.want {
				t.Fatalf("DiscountAmount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDiscountNeverExceedsSubtotal(t *testing.T) {
	subtotals := []int64{0, 1, 99, 500, 10000}
	discounts := []model.Discount{
		{Kind: model.DiscountPercent, Value: 50},
		{Kind: model.DiscountPercent, Value: 100},
		{Kind: model.DiscountPercent, Value: 150},
		{Kind: model.DiscountPercent, Value: 10000},
		{Kind: model.DiscountFlat, Value: 1 << 40},
	}

	for _, s := range subtotals {
		for _, d := range discounts {
			if got := DiscountAmount(s, d); got > s {
				t.Fatalf("discount %d exceeds subtotal %d (%+v)", got, s, d)
			}
			totals := Totals(items(s), &model.Offer{Discount: d})
			if totals.Total < 0 || totals.Tax < 0 {
				t.Fatalf("negative totals for subtotal %d (%+v): %+v", s, d, totals)
			}
		}
	}
}

func TestTotalsScenarios(t *testing.T) {
	// Сценарий: подытог 10000, предложение 10% ⇒ скидка 1000, налог 1620, итог 9620.
	t.Run("percent offer", func(t *testing.T) {
		offer := &model.Offer{
			Code:     "TEN",
			Discount: model.Discount{Kind: model.DiscountPercent, Value: 10},
			IsActive: true,
		}

		got := Totals(items(10000), offer)

		want := model.OrderTotals{Subtotal: 10000, Discount: 1000, Tax: 1620, Total: 9620}
		assert.Equal(t, want, got)
	})

	// Сценарий: подытог 500, фиксированная скидка 5000 ⇒ скидка 500, налог 0, итог 0.
	t.Run("flat offer capped", func(t *testing.T) {
		offer := &model.Offer{
			Code:     "BIGFLAT",
			Discount: model.Discount{Kind: model.DiscountFlat, Value: 5000},
			IsActive: true,
		}

		got := Totals(items(500), offer)

		want := model.OrderTotals{Subtotal: 500, Discount: 500, Tax: 0, Total: 0}
		assert.Equal(t, want, got)
	})

	t.Run("no offer", func(t *testing.T) {
		got := Totals(items(1000), nil)

		want := model.OrderTotals{Subtotal: 1000, Discount: 0, Tax: 180, Total: 1180}
		assert.Equal(t, want, got)
	})

	t.Run("empty cart", func(t *testing.T) {
		got := Totals(nil, nil)

		assert.Equal(t, model.OrderTotals{}, got)
	})
}

func TestTotalsInvariant(t *testing.T) {
	offers := []*model.Offer{
		nil,
		{Discount: model.Discount{Kind: model.DiscountPercent, Value: 18}},
		{Discount: model.Discount{Kind: model.DiscountFlat, Value: 730}},
	}
	carts := [][]model.CartItem{
		nil,
		items(1),
		items(333, 667),
		items(9999, 1, 4500),
	}

	for _, offer := range offers {
		for _, cart := range carts {
			got := Totals(cart, offer)
			if got.Total != got.Subtotal-got.Discount+got.Tax {
				t.Fatalf("invariant violated: %+v", got)
			}
			if got.Tax != TaxAmount(got.Subtotal, got.Discount) {
				t.Fatalf("tax mismatch: %+v", got)
			}
		}
	}
}

func TestExpiredOfferDoesNotChangeTotal(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	offers := []model.Offer{
		{Code: "GONE", Discount: model.Discount{Kind: model.DiscountPercent, Value: 50}, IsActive: true, ValidUntil: &past},
	}

	offer, err := ResolveOffer("GONE", offers, now)
	if !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("expected ErrOfferExpired, got %v", err)
	}
	if offer != nil {
		t.Fatalf("expected nil offer for expired code, got %+v", offer)
	}

	// Истёкшее предложение не применяется: итог считается без скидки.
	got := Totals(items(10000), offer)
	want := model.OrderTotals{Subtotal: 10000, Discount: 0, Tax: 1800, Total: 11800}
	assert.Equal(t, want, got)
}
