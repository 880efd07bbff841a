package service

import (
	"github.com/freightdesk/backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentPolicy decides whether a requested payment update may be applied to
// an invoice. The write path never inspects the transition itself; swapping
// the policy is the only change needed to tighten the rules.
type PaymentPolicy func(inv *domain.Invoice, status domain.PaymentStatus, paid decimal.Decimal) error

// AllowAnyPayment accepts every transition, including paid amounts above the
// net amount and regressions from paid back to unpaid.
func AllowAnyPayment(*domain.Invoice, domain.PaymentStatus, decimal.Decimal) error {
	return nil
}

// RejectOverpayment refuses paid amounts above the invoice net amount.
// Not installed by default.
func RejectOverpayment(inv *domain.Invoice, _ domain.PaymentStatus, paid decimal.Decimal) error {
	if paid.GreaterThan(inv.NetAmount) {
		return domain.Invalid("invoice.update", "Paid amount exceeds invoice net amount")
	}
	return nil
}
