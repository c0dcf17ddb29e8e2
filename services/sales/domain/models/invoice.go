package models

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultInvoicePrefix is used when no prefix is configured.
const DefaultInvoicePrefix = "INV"

// InvoiceGenerator produces invoice numbers of the form
// <prefix><yy><mm><dd><4 random digits>, dated in loc.
// Numbers are not guaranteed unique; the sale store's unique constraint is
// the arbiter.
type InvoiceGenerator struct {
	prefix string
	loc    *time.Location
	suffix func() int
}

func NewInvoiceGenerator(prefix string, loc *time.Location) *InvoiceGenerator {
	if prefix == "" {
		prefix = DefaultInvoicePrefix
	}
	if loc == nil {
		loc = time.UTC
	}
	return &InvoiceGenerator{
		prefix: prefix,
		loc:    loc,
		suffix: func() int { return rand.IntN(10000) },
	}
}

// Next returns an invoice number for a sale made at t.
func (g *InvoiceGenerator) Next(t time.Time) string {
	return fmt.Sprintf("%s%s%04d", g.prefix, t.In(g.loc).Format("060102"), g.suffix())
}
