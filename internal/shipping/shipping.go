// Package shipping normalises CEPs and prices deliveries.
package shipping

import (
	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/validation"
	"github.com/shopspring/decimal"
)

const ZipLength = 8

var ErrInvalidZip = apperr.Invalid("invalid_zip", "CEP inválido. Digite os 8 dígitos.")

var flatRate = decimal.RequireFromString("18.50")

// Quote is the per-product delivery estimate shown on the product page.
type Quote struct {
	Zip     string          `json:"zip"`
	Price   decimal.Decimal `json:"price"`
	MinDays int             `json:"min_days"`
	MaxDays int             `json:"max_days"`
}

// NormalizeZip strips everything but ASCII digits and requires exactly
// eight.
func NormalizeZip(s string) (string, error) {
	digits := validation.Digits(s)
	if len(digits) != ZipLength {
		return "", ErrInvalidZip
	}
	return digits, nil
}

// Format renders a normalised CEP as 00000-000.
func Format(zip string) string {
	if len(zip) != ZipLength {
		return zip
	}
	return zip[:5] + "-" + zip[5:]
}

// QuoteFor derives a deterministic price and delivery window from the CEP:
// 15 plus the last two digits mod 20, in 3 plus the last digit mod 5 days.
func QuoteFor(zip string) (Quote, error) {
	zip, err := NormalizeZip(zip)
	if err != nil {
		return Quote{}, err
	}
	lastTwo := int(zip[6]-'0')*10 + int(zip[7]-'0')
	last := int(zip[7] - '0')

	days := 3 + last%5
	return Quote{
		Zip:     Format(zip),
		Price:   decimal.NewFromInt(int64(15 + lastTwo%20)),
		MinDays: days,
		MaxDays: days + 2,
	}, nil
}

// FlatRate is the shipping charged on every order.
func FlatRate() decimal.Decimal {
	return flatRate
}
