// Package validation holds the form rules shared by registration, checkout
// and the back-office, plus struct-tag validation of request bodies.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	bankNumberPattern = regexp.MustCompile(`^\d+(-\d+)?$`)
)

const passwordSymbols = "@$!%*?&"

// MinPasswordLength is the minimum length of a strong password.
const MinPasswordLength = 12

func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// Digits strips everything but ASCII digits from s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Phone accepts a Brazilian number with area code: 10 or 11 digits.
func Phone(s string) bool {
	n := len(Digits(s))
	return n == 10 || n == 11
}

// StrongPassword requires at least 12 characters drawn from letters, digits
// and @$!%*?&, with at least one lowercase, uppercase, digit and symbol.
func StrongPassword(pw string) bool {
	if len(pw) < MinPasswordLength {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		default:
			return false
		}
	}
	return lower && upper && digit && symbol
}

// PasswordStrength scores pw from 0 to 5, one point each for length, A-Z,
// a-z, 0-9 and anything else. Accented letters count as "anything else".
func PasswordStrength(pw string) int {
	score := 0
	if len(pw) >= MinPasswordLength {
		score++
	}
	var upper, lower, digit, other bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			other = true
		}
	}
	for _, ok := range []bool{upper, lower, digit, other} {
		if ok {
			score++
		}
	}
	return score
}

// PixKey accepts the key formats the central bank allows: e-mail, random
// key (UUID), CPF or CNPJ (11 or 14 digits) and phone (10 or 11 digits).
func PixKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	if Email(key) {
		return true
	}
	// uuid.Parse also takes braced, urn and bare-hex forms; only the
	// hyphenated 36-character form is a random key.
	if _, err := uuid.Parse(key); err == nil && len(key) == 36 {
		return true
	}
	d := Digits(key)
	switch len(d) {
	case 10, 11, 14:
		return true
	}
	return false
}

// BankNumber validates agency and account numbers: digits with an optional
// hyphenated check digit.
func BankNumber(s string) bool {
	return bankNumberPattern.MatchString(s)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates v's `validate` tags and returns field -> message, keyed by
// the json name of the field. It returns nil when v is valid.
func Struct(v any) map[string]string {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.Index(key, "."); i >= 0 {
			key = key[i+1:]
		}
		out[key] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Campo obrigatório."
	case "email":
		return "Digite um e-mail válido (ex: nome@dominio.com)."
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Informe pelo menos %s.", fe.Param())
		}
		return fmt.Sprintf("O valor mínimo é %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Informe no máximo %s.", fe.Param())
		}
		return fmt.Sprintf("O valor máximo é %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("O valor deve ser maior ou igual a %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("O valor deve ser maior que %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("O valor deve ser menor ou igual a %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Valor inválido. Opções: %s.", fe.Param())
	case "url":
		return "Digite uma URL válida."
	default:
		return "Valor inválido."
	}
}
