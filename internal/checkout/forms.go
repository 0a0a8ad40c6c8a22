package checkout

import (
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/validation"
)

const (
	CountryGreece = "Greece"
	CountryCyprus = "Cyprus"

	maxCardDigits   = 16
	maxExpiryDigits = 4
	maxCVVDigits    = 4
)

// ShippingAddress is the first checkout step.
type ShippingAddress struct {
	FirstName          string `json:"first_name" validate:"required,max=100"`
	LastName           string `json:"last_name" validate:"required,max=100"`
	Email              string `json:"email" validate:"required,email"`
	Phone              string `json:"phone" validate:"omitempty,max=32"`
	Address            string `json:"address" validate:"required,max=200"`
	City               string `json:"city" validate:"required,max=100"`
	ZipCode            string `json:"zip_code" validate:"required,max=16"`
	Country            string `json:"country" validate:"required,oneof=Greece Cyprus"`
	BillingSameAddress bool   `json:"billing_same_address"`
}

// PaymentInfo is the second checkout step.
type PaymentInfo struct {
	CardNumber string `json:"card_number" validate:"required,numeric,min=13,max=16"`
	ExpiryDate string `json:"expiry_date" validate:"required,len=5"`
	CVV        string `json:"cvv" validate:"required,numeric,min=3,max=4"`
	NameOnCard string `json:"name_on_card" validate:"required,max=100"`
}

// Request is a full checkout submission.
type Request struct {
	Shipping ShippingAddress `json:"shipping"`
	Payment  PaymentInfo     `json:"payment"`
}

// Normalize trims the fields and applies the default country.
func (a ShippingAddress) Normalize() ShippingAddress {
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Email = strings.TrimSpace(a.Email)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Address = strings.TrimSpace(a.Address)
	a.City = strings.TrimSpace(a.City)
	a.ZipCode = strings.TrimSpace(a.ZipCode)
	a.Country = strings.TrimSpace(a.Country)
	if a.Country == "" {
		a.Country = CountryGreece
	}
	return a
}

// Normalize strips formatting from the card fields.
func (p PaymentInfo) Normalize() PaymentInfo {
	p.CardNumber = digits(p.CardNumber, 0)
	p.ExpiryDate = FormatExpiryDate(p.ExpiryDate)
	p.CVV = digits(p.CVV, 0)
	p.NameOnCard = strings.TrimSpace(p.NameOnCard)
	return p
}

// ValidateShipping normalises and validates the shipping step.
func ValidateShipping(addr ShippingAddress) (ShippingAddress, error) {
	addr = addr.Normalize()
	if err := validation.Struct(&addr); err != nil {
		return addr, err
	}
	return addr, nil
}

// ValidateRequest normalises and validates both checkout steps.
func ValidateRequest(req Request) (Request, error) {
	req.Shipping = req.Shipping.Normalize()
	req.Payment = req.Payment.Normalize()
	if err := validation.Struct(&req); err != nil {
		return req, err
	}
	if !validExpiryMonth(req.Payment.ExpiryDate) {
		return req, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"payment.expiry_date": "must be a valid MM/YY date"})
	}
	return req, nil
}

// FormatCardNumber keeps at most 16 digits and groups them in fours.
func FormatCardNumber(input string) string {
	d := digits(input, maxCardDigits)
	var b strings.Builder
	for i, r := range d {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatExpiryDate turns typed digits into MM/YY.
func FormatExpiryDate(input string) string {
	d := digits(input, maxExpiryDigits)
	if len(d) >= 2 {
		return d[:2] + "/" + d[2:]
	}
	return d
}

// FormatCVV keeps at most four digits.
func FormatCVV(input string) string {
	return digits(input, maxCVVDigits)
}

// LastFour returns the trailing four digits of a card number.
func LastFour(cardNumber string) string {
	d := digits(cardNumber, 0)
	if len(d) <= 4 {
		return d
	}
	return d[len(d)-4:]
}

func validExpiryMonth(expiry string) bool {
	if len(expiry) != 5 || expiry[2] != '/' {
		return false
	}
	month, err := strconv.Atoi(expiry[:2])
	if err != nil || month < 1 || month > 12 {
		return false
	}
	_, err = strconv.Atoi(expiry[3:])
	return err == nil
}

func digits(input string, limit int) string {
	var b strings.Builder
	for _, r := range input {
		if r < '0' || r > '9' {
			continue
		}
		if limit > 0 && b.Len() >= limit {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
