// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/ndenisov/webstudio-system/internal/model"
)

// ErrBadDiscountLabel возвращается, если из строки скидки не удалось извлечь величину.
var ErrBadDiscountLabel = errors.New("cannot parse discount label")

// ParseDiscountLabel разбирает отображаемую строку скидки в помеченный вариант.
// Поддерживаются формы вида "15% OFF", "₹5,000 OFF", "15%", "5000":
// извлекается первая числовая величина независимо от окружающих символов
// валюты и слов, затем по наличию знака % выбирается вид скидки.
func ParseDiscountLabel(label string) (model.Discount, error) {
	var (
		num     strings.Builder
		started bool
	)

loop:
	for _, r := range label {
		switch {
		case unicode.IsDigit(r):
			num.WriteRune(r)
			started = true
		case r == '.' && started:
			num.WriteRune(r)
		case r == ',' && started:
			// разделитель тысяч внутри числа
		default:
			if started {
				break loop
			}
		}
	}

	if num.Len() == 0 {
		return model.Discount{}, ErrBadDiscountLabel
	}

	value, err := strconv.ParseFloat(num.String(), 64)
	if err != nil {
		return model.Discount{}, ErrBadDiscountLabel
	}

	kind := model.DiscountFlat
	if strings.ContainsRune(label, '%') {
		kind = model.DiscountPercent
	}

	return model.Discount{
		Kind:  kind,
		Value: int64(math.Round(value)),
	}, nil
}
