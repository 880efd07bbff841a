package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/freightdesk/backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// uniqueViolation is the PostgreSQL error code raised by the unique index
// on (franchise_id, invoice_number).
const uniqueViolation = "23505"

const invoiceColumns = `id, franchise_id, invoice_number, invoice_date, customer_ref, address,
	period_from, period_to, consignment_no, invoice_discount, reverse_charge,
	fuel_surcharge_percent, fuel_surcharge_total, gst_percent, gst_amount,
	other_charge, royalty_charge, docket_charge, total_amount, subtotal_amount,
	net_amount, payment_status, paid_amount, balance_amount, status`

// recycledColumns exposes total_amount under the net_amount name the list
// views share.
const recycledColumns = `id, invoice_number, customer_ref, invoice_date, total_amount AS net_amount`

// InvoiceStore implements domain.InvoiceStore over a pgx connection pool.
type InvoiceStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that InvoiceStore implements domain.InvoiceStore.
var _ domain.InvoiceStore = (*InvoiceStore)(nil)

// NewInvoiceStore creates a PostgreSQL-backed invoice store.
func NewInvoiceStore(pool *pgxpool.Pool) *InvoiceStore {
	return &InvoiceStore{pool: pool}
}

// Begin opens a writer transaction. The caller owns the returned handle and
// must Commit or Rollback it.
func (s *InvoiceStore) Begin(ctx context.Context) (domain.InvoiceTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &invoiceTx{tx: tx}, nil
}

// List returns one page of invoices plus the unpaginated match count.
func (s *InvoiceStore) List(ctx context.Context, franchiseID int64, filter domain.InvoiceFilter, limit, offset int) ([]domain.Invoice, int64, error) {
	where, args := listConditions(franchiseID, filter)

	var total int64
	countQuery := "SELECT COUNT(*) FROM invoices WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM invoices WHERE %s ORDER BY invoice_date DESC, id DESC LIMIT $%d OFFSET $%d",
		invoiceColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

// listConditions builds the AND-combined WHERE clause shared by the count
// and page queries.
func listConditions(franchiseID int64, filter domain.InvoiceFilter) (string, []any) {
	conds := []string{"franchise_id = $1"}
	args := []any{franchiseID}

	add := func(cond string, vals ...any) {
		n := len(args)
		for i := range vals {
			cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", n+i+1), 1)
		}
		conds = append(conds, cond)
		args = append(args, vals...)
	}

	if filter.Status != "" {
		add("payment_status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		add("(invoice_number ILIKE ? OR customer_ref ILIKE ?)", pattern, pattern)
	}
	if filter.CompanyName != "" {
		add("customer_ref ILIKE ?", "%"+filter.CompanyName+"%")
	}
	if filter.InvoiceNumber != "" {
		add("invoice_number ILIKE ?", "%"+filter.InvoiceNumber+"%")
	}
	if !filter.FromDate.IsZero() {
		add("invoice_date >= ?", filter.FromDate)
	}
	if !filter.ToDate.IsZero() {
		add("invoice_date <= ?", filter.ToDate)
	}
	if filter.SingleOnly {
		conds = append(conds, "consignment_no IS NOT NULL")
	}
	if filter.WithoutGST {
		conds = append(conds, "gst_percent = 0")
	}

	return strings.Join(conds, " AND "), args
}

// Summarize computes the dashboard aggregates in one pass. Empty result sets
// yield zeros, never nulls.
func (s *InvoiceStore) Summarize(ctx context.Context, franchiseID int64, singleOnly bool) (*domain.InvoiceSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN payment_status = 'paid' THEN net_amount ELSE 0 END), 0) AS paid_amount,
			COALESCE(SUM(CASE WHEN payment_status = 'unpaid' THEN net_amount ELSE 0 END), 0) AS unpaid_amount,
			COALESCE(SUM(net_amount), 0) AS total_sale,
			COALESCE(SUM(CASE WHEN payment_status = 'partial' THEN net_amount ELSE 0 END), 0) AS partial_paid
		FROM invoices
		WHERE franchise_id = $1`
	args := []any{franchiseID}
	if singleOnly {
		query += " AND consignment_no IS NOT NULL"
	}

	var sum domain.InvoiceSummary
	err := s.pool.QueryRow(ctx, query, args...).Scan(&sum.PaidAmount, &sum.UnpaidAmount, &sum.TotalSale, &sum.PartialPaid)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// Get fetches one invoice scoped to the franchise.
func (s *InvoiceStore) Get(ctx context.Context, franchiseID, id int64) (*domain.Invoice, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM invoices WHERE id = $1 AND franchise_id = $2",
		invoiceColumns,
	)
	inv, err := scanInvoice(s.pool.QueryRow(ctx, query, id, franchiseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// Items lists an invoice's lines with the source consignment number joined
// in; the join is left so lines survive booking deletion.
func (s *InvoiceStore) Items(ctx context.Context, invoiceID int64) ([]domain.InvoiceItem, error) {
	query := `
		SELECT ii.id, ii.invoice_id, ii.booking_id, ii.description, ii.quantity,
			ii.unit_price, ii.amount, b.consignment_no
		FROM invoice_items ii
		LEFT JOIN bookings b ON b.id = ii.booking_id
		WHERE ii.invoice_id = $1
		ORDER BY ii.id`

	rows, err := s.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.InvoiceItem
	for rows.Next() {
		var it domain.InvoiceItem
		err := rows.Scan(&it.ID, &it.InvoiceID, &it.BookingID, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.Amount, &it.ConsignmentNo)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdatePayment sets the settlement state and recomputes the balance from
// net_amount. Returns whether a row matched.
func (s *InvoiceStore) UpdatePayment(ctx context.Context, franchiseID, id int64, status domain.PaymentStatus, paid decimal.Decimal) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE invoices
		SET payment_status = $1, paid_amount = $2, balance_amount = net_amount - $2, updated_at = now()
		WHERE id = $3 AND franchise_id = $4`,
		status, paid, id, franchiseID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes an invoice row. Line items go with it via the foreign key
// cascade on invoice_items.invoice_id.
func (s *InvoiceStore) Delete(ctx context.Context, franchiseID, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM invoices WHERE id = $1 AND franchise_id = $2",
		id, franchiseID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListRecycled pages through cancelled invoices, optionally filtered by a
// substring of the invoice number or customer reference.
func (s *InvoiceStore) ListRecycled(ctx context.Context, franchiseID int64, search string, limit, offset int) ([]domain.RecycledInvoice, int64, error) {
	where := "franchise_id = $1 AND status = $2"
	args := []any{franchiseID, domain.InvoiceCancelled}
	if search != "" {
		where += " AND (invoice_number ILIKE $3 OR customer_ref ILIKE $3)"
		args = append(args, "%"+search+"%")
	}

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM invoices
		WHERE %s
		ORDER BY invoice_date DESC, id DESC
		LIMIT $%d OFFSET $%d`, recycledColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []domain.RecycledInvoice
	for rows.Next() {
		var inv domain.RecycledInvoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerRef, &inv.InvoiceDate, &inv.NetAmount); err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

// invoiceTx implements domain.InvoiceTx over a pgx transaction.
type invoiceTx struct {
	tx pgx.Tx
}

func (t *invoiceTx) CountInvoicesInYear(ctx context.Context, franchiseID int64, year int) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM invoices WHERE franchise_id = $1 AND EXTRACT(YEAR FROM invoice_date) = $2",
		franchiseID, year,
	).Scan(&n)
	return n, err
}

func (t *invoiceTx) InsertInvoice(ctx context.Context, inv *domain.Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (
			franchise_id, invoice_number, invoice_date, customer_ref, address,
			period_from, period_to, consignment_no, invoice_discount, reverse_charge,
			fuel_surcharge_percent, fuel_surcharge_total, gst_percent, gst_amount,
			other_charge, royalty_charge, docket_charge, total_amount, subtotal_amount,
			net_amount, payment_status, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22
		)
		RETURNING id`,
		inv.FranchiseID, inv.InvoiceNumber, inv.InvoiceDate, inv.CustomerRef, inv.Address,
		inv.PeriodFrom, inv.PeriodTo, inv.ConsignmentNo, inv.InvoiceDiscount, inv.ReverseCharge,
		inv.FuelSurchargePercent, inv.FuelSurchargeTotal, inv.GSTPercent, inv.GSTAmount,
		inv.OtherCharge, inv.RoyaltyCharge, inv.DocketCharge, inv.TotalAmount, inv.SubtotalAmount,
		inv.NetAmount, inv.PaymentStatus, inv.Status,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, domain.ErrDuplicateInvoiceNumber
		}
		return 0, err
	}
	inv.ID = id
	return id, nil
}

// InsertItemFromBooking sources the line directly from the booking row. A
// missing booking inserts nothing and reports zero rows.
func (t *invoiceTx) InsertItemFromBooking(ctx context.Context, invoiceID, bookingID int64) (int64, error) {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO invoice_items (invoice_id, booking_id, description, quantity, unit_price, amount)
		SELECT $1, id, 'Booking: ' || consignment_no, 1, total, total
		FROM bookings
		WHERE id = $2`,
		invoiceID, bookingID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *invoiceTx) InsertItem(ctx context.Context, item *domain.InvoiceItem) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO invoice_items (invoice_id, booking_id, description, quantity, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.InvoiceID, item.BookingID, item.Description, item.Quantity, item.UnitPrice, item.Amount,
	)
	return err
}

func (t *invoiceTx) BookingsInPeriod(ctx context.Context, franchiseID int64, customerRef string, from, to domain.Date) ([]domain.Booking, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, franchise_id, customer_ref, consignment_no, booking_date, total
		FROM bookings
		WHERE franchise_id = $1 AND customer_ref = $2 AND booking_date BETWEEN $3 AND $4
		ORDER BY booking_date, id`,
		franchiseID, customerRef, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.FranchiseID, &b.CustomerRef, &b.ConsignmentNo, &b.BookingDate, &b.Total); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (t *invoiceTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback is safe to defer past a Commit; the closed-transaction error is
// swallowed.
func (t *invoiceTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func scanInvoice(row pgx.Row) (domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(
		&inv.ID, &inv.FranchiseID, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.CustomerRef,
		&inv.Address, &inv.PeriodFrom, &inv.PeriodTo, &inv.ConsignmentNo, &inv.InvoiceDiscount,
		&inv.ReverseCharge, &inv.FuelSurchargePercent, &inv.FuelSurchargeTotal, &inv.GSTPercent,
		&inv.GSTAmount, &inv.OtherCharge, &inv.RoyaltyCharge, &inv.DocketCharge, &inv.TotalAmount,
		&inv.SubtotalAmount, &inv.NetAmount, &inv.PaymentStatus, &inv.PaidAmount, &inv.BalanceAmount,
		&inv.Status,
	)
	return inv, err
}
