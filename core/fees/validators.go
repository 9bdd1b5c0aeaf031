package fees

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/pratikpatil/academy-fees/core"
)

var (
	// custom validation tags & texts
	paymentModeTag  = "paymentmode"
	paymentModeText = "invalid payment mode"

	academicYearTag   = "academicyear"
	academicYearText  = "must be formatted like 2025-2026"
	academicYearRegex = regexp.MustCompile(`^\d{4}-\d{4}$`)
)

func init() {
	_ = core.Validate.RegisterValidation(paymentModeTag, paymentModeValidation)
	core.RegisterCustomTranslation(paymentModeTag, paymentModeText)

	_ = core.Validate.RegisterValidation(academicYearTag, academicYearValidation)
	core.RegisterCustomTranslation(academicYearTag, academicYearText)
}

func paymentModeValidation(fl validator.FieldLevel) bool {
	return ValidPaymentMode(PaymentMode(fl.Field().String()))
}

func academicYearValidation(fl validator.FieldLevel) bool {
	return academicYearRegex.MatchString(fl.Field().String())
}
