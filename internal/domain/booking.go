package domain

import "github.com/shopspring/decimal"

// Booking is a shipment record owned by the bookings subsystem. The invoice
// writer reads it to source line items; it is never written here.
type Booking struct {
	ID            int64           `json:"id"`
	FranchiseID   int64           `json:"franchise_id"`
	CustomerRef   string          `json:"customer_id"`
	ConsignmentNo string          `json:"consignment_no"`
	BookingDate   Date            `json:"booking_date"`
	Total         decimal.Decimal `json:"total"`
}
