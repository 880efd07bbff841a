package service

import (
	"github.com/freightdesk/backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// DefaultGSTPercent applies when a generation request does not carry
	// an explicit GST percentage.
	DefaultGSTPercent = decimal.NewFromInt(18)
)

// FuelSurchargeTotal computes subtotal * percent / 100, rounded to paise.
func FuelSurchargeTotal(subtotal, percent decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(percent).Div(hundred).Round(2)
}

// GSTAmount computes base * percent / 100, rounded to paise.
func GSTAmount(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(percent).Div(hundred).Round(2)
}

// BatchTotals derives the batch-variant amounts from a customer's bookings:
// subtotal is the sum of booking totals, GST applies to the subtotal, and
// net is their sum.
func BatchTotals(bookings []domain.Booking, gstPercent decimal.Decimal) (subtotal, gst, net decimal.Decimal) {
	for _, b := range bookings {
		subtotal = subtotal.Add(b.Total)
	}
	gst = GSTAmount(subtotal, gstPercent)
	net = subtotal.Add(gst)
	return subtotal, gst, net
}

func gstPercentOrDefault(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return DefaultGSTPercent
	}
	return *p
}
