package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/ndenisov/webstudio-system/internal/model"
)

// New возвращает настроенный валидатор запросов с зарегистрированными
// дополнительными правилами.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// discount_kind ограничивает поле значениями percent|flat.
	_ = v.RegisterValidation("discount_kind", func(fl validatorv10.FieldLevel) bool {
		switch model.DiscountKind(fl.Field().String()) {
		case model.DiscountPercent, model.DiscountFlat:
			return true
		}
		return false
	})

	return v
}
