package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Invoice-related domain errors.
var (
	ErrInvoiceNotFound = &Error{Code: ENOTFOUND, Message: "Invoice not found"}

	// ErrDuplicateInvoiceNumber surfaces the unique index on
	// (franchise_id, invoice_number). The writer retries number generation
	// a bounded number of times when it sees this.
	ErrDuplicateInvoiceNumber = &Error{Code: ECONFLICT, Message: "Invoice number already exists"}

	ErrNoCustomersSelected = &Error{Code: EINVALID, Message: "Please select at least one customer"}
	ErrPeriodRequired      = &Error{Code: EINVALID, Message: "Period From and Period To are required"}
)

// PaymentStatus tracks how much of an invoice has been settled.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// InvoiceStatus is the lifecycle dimension, independent of payment status.
// Cancelled invoices are retained for audit and listed in the recycle bin.
type InvoiceStatus string

const (
	InvoiceActive    InvoiceStatus = "active"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Invoice is a franchise-scoped billing document.
type Invoice struct {
	ID                   int64           `json:"id"`
	FranchiseID          int64           `json:"franchise_id"`
	InvoiceNumber        string          `json:"invoice_number"`
	InvoiceDate          Date            `json:"invoice_date"`
	CustomerRef          string          `json:"customer_id"`
	Address              string          `json:"address"`
	PeriodFrom           Date            `json:"period_from"`
	PeriodTo             Date            `json:"period_to"`
	ConsignmentNo        *string         `json:"consignment_no"`
	InvoiceDiscount      bool            `json:"invoice_discount"`
	ReverseCharge        bool            `json:"reverse_charge"`
	FuelSurchargePercent decimal.Decimal `json:"fuel_surcharge_percent"`
	FuelSurchargeTotal   decimal.Decimal `json:"fuel_surcharge_total"`
	GSTPercent           decimal.Decimal `json:"gst_percent"`
	GSTAmount            decimal.Decimal `json:"gst_amount"`
	OtherCharge          decimal.Decimal `json:"other_charge"`
	RoyaltyCharge        decimal.Decimal `json:"royalty_charge"`
	DocketCharge         decimal.Decimal `json:"docket_charge"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	SubtotalAmount       decimal.Decimal `json:"subtotal_amount"`
	NetAmount            decimal.Decimal `json:"net_amount"`
	PaymentStatus        PaymentStatus   `json:"payment_status"`
	PaidAmount           decimal.Decimal `json:"paid_amount"`
	BalanceAmount        decimal.Decimal `json:"balance_amount"`
	Status               InvoiceStatus   `json:"status"`
}

// InvoiceItem is a line attached to an invoice, optionally referencing the
// booking it was sourced from. Items are created only inside writer
// transactions and removed with their invoice.
type InvoiceItem struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	BookingID   *int64          `json:"booking_id"`
	Description string          `json:"description"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	// ConsignmentNo is left-joined from bookings; nil when the source
	// booking no longer exists.
	ConsignmentNo *string `json:"consignment_no"`
}

// InvoiceDetail aggregates an invoice with its line items.
type InvoiceDetail struct {
	Invoice Invoice
	Items   []InvoiceItem
}

// InvoiceRef identifies a freshly created invoice.
type InvoiceRef struct {
	ID            int64  `json:"id"`
	InvoiceNumber string `json:"invoice_number"`
}

// RecycledInvoice is the list-view row for cancelled invoices. The total
// amount is reported as net_amount for consistency with active listings.
type RecycledInvoice struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerRef   string          `json:"customer_id"`
	InvoiceDate   Date            `json:"invoice_date"`
	NetAmount     decimal.Decimal `json:"net_amount"`
}

// InvoiceSummary holds the dashboard aggregates. All fields are zero, never
// null, when no invoices match.
type InvoiceSummary struct {
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	UnpaidAmount decimal.Decimal `json:"unpaid_amount"`
	TotalSale    decimal.Decimal `json:"total_sale"`
	PartialPaid  decimal.Decimal `json:"partial_paid"`
}

// InvoiceFilter narrows invoice listings. All fields are optional and
// AND-combined.
type InvoiceFilter struct {
	Status        PaymentStatus // exact payment-status match
	Search        string        // substring on invoice_number or customer_ref
	CompanyName   string        // substring on customer_ref
	InvoiceNumber string        // substring on invoice_number
	FromDate      Date          // invoice_date >=
	ToDate        Date          // invoice_date <=
	SingleOnly    bool          // restrict to rows with a consignment number
	WithoutGST    bool          // restrict to rows with gst_percent = 0
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// GenerateInvoiceParams creates an invoice covering multiple bookings.
type GenerateInvoiceParams struct {
	CustomerRef          string
	Address              string
	InvoiceNo            string // used verbatim when supplied
	InvoiceDate          Date   // defaults to today
	PeriodFrom           Date
	PeriodTo             Date
	InvoiceDiscount      bool
	ReverseCharge        bool
	GSTPercent           *decimal.Decimal // nil defaults to 18
	FuelSurchargePercent decimal.Decimal
	Subtotal             decimal.Decimal
	Total                decimal.Decimal
	NetAmount            decimal.Decimal
	RoyaltyCharge        decimal.Decimal
	DocketCharge         decimal.Decimal
	OtherCharge          decimal.Decimal
	BookingIDs           []int64
}

// GenerateSingleParams creates an invoice for one consignment.
type GenerateSingleParams struct {
	CustomerRef          string
	Address              string
	InvoiceNo            string
	InvoiceDate          Date
	PeriodFrom           Date
	PeriodTo             Date
	ConsignmentNo        string
	InvoiceDiscount      bool
	ReverseCharge        bool
	GSTPercent           *decimal.Decimal
	FuelSurchargePercent decimal.Decimal
	Subtotal             decimal.Decimal
	Total                decimal.Decimal
	NetAmount            decimal.Decimal
	RoyaltyCharge        decimal.Decimal
	DocketCharge         decimal.Decimal
	OtherCharge          decimal.Decimal
	BookingID            int64
}

// GenerateBatchParams creates one invoice per customer from their bookings
// within the period.
type GenerateBatchParams struct {
	CustomerRefs []string
	InvoiceDate  Date
	PeriodFrom   Date
	PeriodTo     Date
	GSTPercent   *decimal.Decimal
}

// GenerateWithoutGSTParams creates an invoice with GST forced to zero.
type GenerateWithoutGSTParams struct {
	CustomerRef     string
	Address         string
	InvoiceDate     Date
	PeriodFrom      Date
	PeriodTo        Date
	InvoiceDiscount bool
	ReverseCharge   bool
	Subtotal        decimal.Decimal
	Total           decimal.Decimal
	NetAmount       decimal.Decimal
	RoyaltyCharge   decimal.Decimal
	DocketCharge    decimal.Decimal
	OtherCharge     decimal.Decimal
	BookingIDs      []int64
}

// UpdatePaymentParams sets the settlement state of an invoice.
// BalanceAmount is always recomputed as net_amount - paid_amount.
type UpdatePaymentParams struct {
	PaymentStatus PaymentStatus
	PaidAmount    decimal.Decimal
}

// InvoiceService is the invoicing core: filtered listings, aggregate
// summaries, the four transactional generation variants, and the
// tenant-scoped mutators. Every method resolves the franchise from ctx.
type InvoiceService interface {
	List(ctx context.Context, filter InvoiceFilter, page, limit int) ([]Invoice, Pagination, error)
	Summary(ctx context.Context) (*InvoiceSummary, error)
	SingleConsignmentSummary(ctx context.Context) (*InvoiceSummary, error)
	Generate(ctx context.Context, params GenerateInvoiceParams) (*InvoiceRef, error)
	GenerateBatch(ctx context.Context, params GenerateBatchParams) (int, error)
	GenerateSingle(ctx context.Context, params GenerateSingleParams) (*InvoiceRef, error)
	GenerateWithoutGST(ctx context.Context, params GenerateWithoutGSTParams) (*InvoiceRef, error)
	Get(ctx context.Context, id int64) (*InvoiceDetail, error)
	UpdatePayment(ctx context.Context, id int64, params UpdatePaymentParams) error
	Delete(ctx context.Context, id int64) error
	ListRecycled(ctx context.Context, search string, page, limit int) ([]RecycledInvoice, Pagination, error)
}

// InvoiceStore is the persistence capability the service is built on.
// Reads run on a shared pool; Begin hands out an exclusively-owned
// transactional handle that the caller must Commit or Rollback.
type InvoiceStore interface {
	Begin(ctx context.Context) (InvoiceTx, error)

	List(ctx context.Context, franchiseID int64, filter InvoiceFilter, limit, offset int) ([]Invoice, int64, error)
	Summarize(ctx context.Context, franchiseID int64, singleOnly bool) (*InvoiceSummary, error)
	Get(ctx context.Context, franchiseID, id int64) (*Invoice, error)
	Items(ctx context.Context, invoiceID int64) ([]InvoiceItem, error)
	UpdatePayment(ctx context.Context, franchiseID, id int64, status PaymentStatus, paid decimal.Decimal) (bool, error)
	Delete(ctx context.Context, franchiseID, id int64) (bool, error)
	ListRecycled(ctx context.Context, franchiseID int64, search string, limit, offset int) ([]RecycledInvoice, int64, error)
}

// InvoiceTx is the writer's transactional handle. All statements run on one
// dedicated connection; nothing persists until Commit.
type InvoiceTx interface {
	// CountInvoicesInYear counts the franchise's invoices dated in the
	// given calendar year. Feeds the sequential invoice number.
	CountInvoicesInYear(ctx context.Context, franchiseID int64, year int) (int64, error)

	// InsertInvoice writes the invoice row and returns its id.
	// Translates a (franchise_id, invoice_number) unique violation into
	// ErrDuplicateInvoiceNumber.
	InsertInvoice(ctx context.Context, inv *Invoice) (int64, error)

	// InsertItemFromBooking sources one line item from a booking row via a
	// select-based insert. Returns the number of rows written: zero when
	// the booking id does not exist.
	InsertItemFromBooking(ctx context.Context, invoiceID, bookingID int64) (int64, error)

	// InsertItem writes an explicit line item row.
	InsertItem(ctx context.Context, item *InvoiceItem) error

	// BookingsInPeriod lists a customer's bookings with booking_date in
	// [from, to], for the batch variant.
	BookingsInPeriod(ctx context.Context, franchiseID int64, customerRef string, from, to Date) ([]Booking, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
