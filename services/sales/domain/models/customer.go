package models

import (
	"fmt"
	"strings"

	"github.com/ttacon/libphonenumber"

	pkgvalidator "github.com/ghuser/branchpos/pkg/validator"
)

// Customer is the optional walk-in contact attached to a sale.
// Phone is stored in E.164 form.
type Customer struct {
	Name  string
	Phone string
	Email string
}

// NewCustomer trims every field, normalizes the phone number against
// defaultRegion (an ISO 3166 code such as "IN") and checks the email.
// It returns nil, nil when all fields are empty.
func NewCustomer(name, phone, email, defaultRegion string) (*Customer, error) {
	c := Customer{
		Name:  strings.TrimSpace(name),
		Phone: strings.TrimSpace(phone),
		Email: strings.TrimSpace(email),
	}
	if c == (Customer{}) {
		return nil, nil
	}
	if len(c.Name) > 255 {
		return nil, fmt.Errorf("customer name must be at most 255 characters")
	}

	if c.Phone != "" {
		normalized, err := NormalizePhone(c.Phone, defaultRegion)
		if err != nil {
			return nil, err
		}
		c.Phone = normalized
	}

	if c.Email != "" {
		if err := pkgvalidator.Var(c.Email, "email"); err != nil {
			return nil, fmt.Errorf("customer email %q is not a valid address", c.Email)
		}
		c.Email = strings.ToLower(c.Email)
	}
	return &c, nil
}

// NormalizePhone parses raw in the given region and formats it as E.164.
func NormalizePhone(raw, region string) (string, error) {
	num, err := libphonenumber.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("customer phone %q: %w", raw, err)
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", fmt.Errorf("customer phone %q is not a valid number", raw)
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}
