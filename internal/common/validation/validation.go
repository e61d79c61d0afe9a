package validation

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "avastore-backend/internal/common/errors"
)

const (
	// Максимальные длины для различных полей
	MaxNameLength            = 255
	MaxDescriptionLength     = 5000
	MaxShippingAddressLength = 1000
	MaxCommentLength         = 2000
	MaxSKULength             = 100
	MaxPhoneLength           = 20
	MaxImages                = 10

	MinQuantity = 1
	MaxQuantity = 1000
	MinRating   = 1
	MaxRating   = 5
)

var (
	paymentMethods = map[string]struct{}{
		"cash":   {},
		"card":   {},
		"online": {},
	}

	phoneRegex = regexp.MustCompile(`^\+?[0-9 ()-]{5,20}$`)

	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Struct проверяет теги `validate` и возвращает первую ошибку как VALIDATION_ERROR
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewValidationError(fieldName(fe), describe(fe))
	}
	return apperrors.Wrap(err, apperrors.ErrCodeValidation, "Validation failed")
}

// FromBinding переводит ошибку gin binding в VALIDATION_ERROR
func FromBinding(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewValidationError(fieldName(fe), describe(fe))
	}
	return apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body")
}

func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "email":
		return "must be a valid email"
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}

// ValidateShippingAddress проверяет адрес доставки; пустой адрес допустим
func ValidateShippingAddress(address string) error {
	if len(strings.TrimSpace(address)) > MaxShippingAddressLength {
		return apperrors.NewValidationError("shipping_address",
			fmt.Sprintf("cannot exceed %d characters", MaxShippingAddressLength))
	}
	return nil
}

// ValidatePaymentMethod проверяет способ оплаты
func ValidatePaymentMethod(method string) error {
	if _, ok := paymentMethods[method]; !ok {
		return apperrors.NewValidationError("payment_method", "must be one of [cash card online]")
	}
	return nil
}

// ValidateQuantity проверяет количество товара в корзине
func ValidateQuantity(quantity int) error {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return apperrors.NewValidationError("quantity",
			fmt.Sprintf("must be between %d and %d", MinQuantity, MaxQuantity))
	}
	return nil
}

// ValidateRating проверяет оценку отзыва
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return apperrors.NewValidationError("rating",
			fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}
	return nil
}

// ValidatePrice: цена положительна и не больше двух знаков после запятой
func ValidatePrice(field string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return apperrors.NewValidationError(field, "must be positive")
	}
	if !price.Equal(price.Round(2)) {
		return apperrors.NewValidationError(field, "must have at most 2 decimal places")
	}
	return nil
}

// ValidatePhone проверяет телефон в свободном международном формате
func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return apperrors.NewValidationError("phone", "must be a valid phone number")
	}
	return nil
}
