package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"comercialpereira/backend/internal/domain"
)

var (
	phonePattern       = regexp.MustCompile(`^\(\d{2}\) \d{4,5}-\d{4}$`)
	zipPattern         = regexp.MustCompile(`^\d{5}-?\d{3}$`)
	productCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,20}$`)
	barcodePattern     = regexp.MustCompile(`^\d{8,14}$`)
	cnaePattern        = regexp.MustCompile(`^\d{2}\.\d{2}-\d-\d{2}$`)
	personNamePattern  = regexp.MustCompile(`^[\p{L} ]+$`)
)

var brazilianStates = map[string]struct{}{
	"AC": {}, "AL": {}, "AP": {}, "AM": {}, "BA": {}, "CE": {}, "DF": {}, "ES": {}, "GO": {},
	"MA": {}, "MT": {}, "MS": {}, "MG": {}, "PA": {}, "PB": {}, "PR": {}, "PE": {}, "PI": {},
	"RJ": {}, "RN": {}, "RS": {}, "RO": {}, "RR": {}, "SC": {}, "SP": {}, "SE": {}, "TO": {},
}

var commonPasswordPrefixes = []string{"password", "123456", "qwerty", "admin"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]func(string) bool{
		"br_phone":        phonePattern.MatchString,
		"br_zip":          zipPattern.MatchString,
		"br_state":        ValidState,
		"product_code":    productCodePattern.MatchString,
		"barcode":         barcodePattern.MatchString,
		"cnae":            func(s string) bool { return cnaePattern.MatchString(s) && domain.ValidCNAE(s) },
		"strong_password": StrongPassword,
		"person_name":     personNamePattern.MatchString,
	}
	for tag, rule := range rules {
		rule := rule
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return rule(fl.Field().String())
		})
	}
	return v
}

func ValidState(uf string) bool {
	_, ok := brazilianStates[uf]
	return ok
}

// StrongPassword requires lower and upper case letters, a digit and a symbol.
func StrongPassword(pw string) bool {
	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return lower && upper && digit && special
}

// passwordWeakness returns why an otherwise strong password is still refused,
// or "" when it is acceptable.
func passwordWeakness(pw string) string {
	runes := []rune(pw)
	for i := 2; i < len(runes); i++ {
		if runes[i] == runes[i-1] && runes[i] == runes[i-2] {
			return "must not repeat the same character three times in a row"
		}
	}
	lower := strings.ToLower(pw)
	for _, prefix := range commonPasswordPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "must not start with a common word or sequence"
		}
	}
	return ""
}

func checkPassword(field string, pw string) error {
	if reason := passwordWeakness(pw); reason != "" {
		return fieldError(field, reason)
	}
	return nil
}

// validateRequest runs struct tag validation and converts the result into a
// VALIDATION_ERROR with one detail per field.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return validationError(err.Error())
	}
	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{Field: fieldPath(fe), Message: validationMessage(fe)})
	}
	return validationError("Request validation failed", details...)
}

// fieldPath drops the top-level struct name, "SaleCreateRequest.items[0].quantity"
// becomes "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if fe.Kind() == reflect.String {
			return "Must be at least " + fe.Param() + " characters"
		}
		if fe.Kind() == reflect.Slice {
			return "Must contain at least " + fe.Param() + " items"
		}
		return "Must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters"
		}
		if fe.Kind() == reflect.Slice {
			return "Must contain at most " + fe.Param() + " items"
		}
		return "Must be at most " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	case "ne":
		return "Must not be " + fe.Param()
	case "eqfield":
		return "Must match " + strings.ToLower(fe.Param())
	case "url":
		return "Invalid URL format"
	case "br_phone":
		return "Phone must look like (11) 99999-9999"
	case "br_zip":
		return "Zip code must look like 00000-000"
	case "br_state":
		return "Must be a valid state code (UF)"
	case "product_code":
		return "Code must be 3 to 20 upper case letters, digits, - or _"
	case "barcode":
		return "Barcode must have 8 to 14 digits"
	case "cnae":
		return "Unknown CNAE code"
	case "strong_password":
		return "Password must contain upper and lower case letters, a digit and a special character"
	case "person_name":
		return "Must contain only letters and spaces"
	default:
		return "Invalid value"
	}
}
