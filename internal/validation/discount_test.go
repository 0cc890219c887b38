package validation

import (
	"errors"
	"testing"

	"github.com/ndenisov/webstudio-system/internal/model"
)

func TestParseDiscountLabel(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  model.Discount
	}{
		{
			name:  "percent with word",
			label: "15% OFF",
			want:  model.Discount{Kind: model.DiscountPercent, Value: 15},
		},
		{
			name:  "flat with currency and thousands separator",
			label: "₹5,000 OFF",
			want:  model.Discount{Kind: model.DiscountFlat, Value: 5000},
		},
		{
			name:  "bare percent",
			label: "10%",
			want:  model.Discount{Kind: model.DiscountPercent, Value: 10},
		},
		{
			name:  "bare number",
			label: "250",
			want:  model.Discount{Kind: model.DiscountFlat, Value: 250},
		},
		{
			name:  "decimal rounds to integer unit",
			label: "99.5 OFF",
			want:  model.Discount{Kind: model.DiscountFlat, Value: 100},
		},
		{
			name:  "percent sign after words",
			label: "SAVE 20 %",
			want:  model.Discount{Kind: model.DiscountPercent, Value: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDiscountLabel(tt.label)
			if err != nil {
				t.Fatalf("ParseDiscountLabel(%q) error: %v", tt.label, err)
			}
			if got != tt.want {
				t.Fatalf("ParseDiscountLabel(%q) = %+v, want %+v", tt.label, got, tt.want)
			}
		})
	}
}

func TestParseDiscountLabelErrors(t *testing.T) {
	for _, label := range []string{"", "OFF", "₹ nothing"} {
		_, err := ParseDiscountLabel(label)
		if !errors.Is(err, ErrBadDiscountLabel) {
			t.Fatalf("ParseDiscountLabel(%q) = %v, want ErrBadDiscountLabel", label, err)
		}
	}
}
