package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/freightdesk/backoffice/internal/domain"
	"github.com/freightdesk/backoffice/internal/franchise"
	"github.com/shopspring/decimal"
)

const defaultListLimit = 20
const defaultRecycledLimit = 10

type invoiceService struct {
	store  domain.InvoiceStore
	policy PaymentPolicy
	logger *slog.Logger
	now    func() time.Time
}

var _ domain.InvoiceService = (*invoiceService)(nil)

// NewInvoiceService creates the invoicing core over a store.
// A nil policy defaults to AllowAnyPayment.
func NewInvoiceService(store domain.InvoiceStore, policy PaymentPolicy, logger *slog.Logger) domain.InvoiceService {
	if policy == nil {
		policy = AllowAnyPayment
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceService{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// franchiseID resolves the request's franchise or fails the operation.
func franchiseID(ctx context.Context) (int64, error) {
	id, ok := franchise.IDFromContext(ctx)
	if !ok {
		return 0, domain.ErrFranchiseRequired
	}
	return id, nil
}

func (s *invoiceService) List(ctx context.Context, filter domain.InvoiceFilter, page, limit int) ([]domain.Invoice, domain.Pagination, error) {
	fid, err := franchiseID(ctx)
	if err != nil {
		return nil, domain.Pagination{}, err
	}

	page, limit = normalizePage(page, limit, defaultListLimit)
	offset := (page - 1) * limit

	invoices, total, err := s.store.List(ctx, fid, filter, limit, offset)
	if err != nil {
		return nil, domain.Pagination{}, domain.Internal(err, "invoice.list", "failed to list invoices")
	}

	return invoices, paginate(total, page, limit), nil
}

func (s *invoiceService) Summary(ctx context.Context) (*domain.InvoiceSummary, error) {
	fid, err := franchiseID(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.store.Summarize(ctx, fid, false)
	if err != nil {
		return nil, domain.Internal(err, "invoice.summary", "failed to fetch summary")
	}
	return summary, nil
}

func (s *invoiceService) SingleConsignmentSummary(ctx context.Context) (*domain.InvoiceSummary, error) {
	fid, err := franchiseID(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.store.Summarize(ctx, fid, true)
	if err != nil {
		return nil, domain.Internal(err, "invoice.summary_single", "failed to fetch summary")
	}
	return summary, nil
}

// Generate creates one invoice covering zero or more bookings.
func (s *invoiceService) Generate(ctx context.Context, params domain.GenerateInvoiceParams) (*domain.InvoiceRef, error) {
	fid, err := franchiseID(ctx)
	if err != nil {
		return nil, err
	}

	if params.CustomerRef == "" || params.PeriodFrom.IsZero() || params.PeriodTo.IsZero() {
		return nil, domain.Invalid("invoice.generate", "Customer ID, Period From, and Period To are required")
	}

	gstPercent := gstPercentOrDefault(params.GSTPercent)

	return s.withNumberRetry(params.InvoiceNo != "", func() (*domain.InvoiceRef, error) {
		tx, err := s.store.Begin(ctx)
		if err != nil {
			return nil, domain.Internal(err, "invoice.generate", "failed to begin transaction")
		}
		defer tx.Rollback(ctx)

		number := params.InvoiceNo
		if number == "" {
			count, err := tx.CountInvoicesInYear(ctx, fid, s.now().Year())
			if err != nil {
				return nil, domain.Internal(err, "invoice.generate", "failed to count invoices")
			}
			number = formatInvoiceNumber(s.now().Year(), count+1, "")
		}

		inv := domain.Invoice{
			FranchiseID:          fid,
			InvoiceNumber:        number,
			InvoiceDate:          dateOrToday(params.InvoiceDate, s.now),
			CustomerRef:          params.CustomerRef,
			Address:              params.Address,
			PeriodFrom:           params.PeriodFrom,
			PeriodTo:             params.PeriodTo,
			InvoiceDiscount:      params.InvoiceDiscount,
			ReverseCharge:        params.ReverseCharge,
			FuelSurchargePercent: params.FuelSurchargePercent,
			FuelSurchargeTotal:   FuelSurchargeTotal(params.Subtotal, params.FuelSurchargePercent),
			GSTPercent:           gstPercent,
			GSTAmount:            GSTAmount(params.NetAmount, gstPercent),
			OtherCharge:          params.OtherCharge,
			RoyaltyCharge:        params.RoyaltyCharge,
			DocketCharge:         params.DocketCharge,
			TotalAmount:          params.Total,
			SubtotalAmount:       params.Subtotal,
			NetAmount:            params.NetAmount,
			PaymentStatus:        domain.PaymentUnpaid,
			Status:               domain.InvoiceActive,
		}

		id, err := tx.InsertInvoice(ctx, &inv)
		if err != nil {
			return nil, wrapInsertErr(err, "invoice.generate")
		}

		if err := s.insertBookingItems(ctx, tx, id, params.BookingIDs); err != nil {
			return nil, err
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, wrapInsertErr(err, "invoice.generate")
		}

		return &domain.InvoiceRef{ID: id, InvoiceNumber: number}, nil
	})
}

// GenerateBatch creates one invoice per customer from their bookings in the
// period, all inside a single transaction. Customers with no bookings are
// skipped and not counted.
func (s *invoiceService) GenerateBatch(ctx context.Context, params domain.GenerateBatchParams) (int, error) {
	fid, err := franchiseID(ctx)
	if err != nil {
		return 0, err
	}

	if len(params.CustomerRefs) == 0 {
		return 0, domain.ErrNoCustomersSelected
	}
	if params.PeriodFrom.IsZero() || params.PeriodTo.IsZero() {
		return 0, domain.ErrPeriodRequired
	}

	gstPercent := gstPercentOrDefault(params.GSTPercent)

	var created int
	for attempt := 0; attempt < numberAttempts; attempt++ {
		created, err = s.generateBatchOnce(ctx, fid, params, gstPercent)
		if err == nil || !errors.Is(err, domain.ErrDuplicateInvoiceNumber) {
			break
		}
	}
	return created, err
}

func (s *invoiceService) generateBatchOnce(ctx context.Context, fid int64, params domain.GenerateBatchParams, gstPercent decimal.Decimal) (int, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return 0, domain.Internal(err, "invoice.generate_batch", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	year := s.now().Year()

	// One count for the whole batch; members take consecutive offsets.
	count, err := tx.CountInvoicesInYear(ctx, fid, year)
	if err != nil {
		return 0, domain.Internal(err, "invoice.generate_batch", "failed to count invoices")
	}

	created := 0
	for _, customerRef := range params.CustomerRefs {
		bookings, err := tx.BookingsInPeriod(ctx, fid, customerRef, params.PeriodFrom, params.PeriodTo)
		if err != nil {
			return 0, domain.Internal(err, "invoice.generate_batch", "failed to fetch bookings")
		}
		if len(bookings) == 0 {
			continue
		}

		subtotal, gst, net := BatchTotals(bookings, gstPercent)
		number := formatInvoiceNumber(year, count+int64(created)+1, "")

		inv := domain.Invoice{
			FranchiseID:    fid,
			InvoiceNumber:  number,
			InvoiceDate:    dateOrToday(params.InvoiceDate, s.now),
			CustomerRef:    customerRef,
			PeriodFrom:     params.PeriodFrom,
			PeriodTo:       params.PeriodTo,
			GSTPercent:     gstPercent,
			GSTAmount:      gst,
			TotalAmount:    subtotal,
			SubtotalAmount: subtotal,
			NetAmount:      net,
			PaymentStatus:  domain.PaymentUnpaid,
			Status:         domain.InvoiceActive,
		}

		id, err := tx.InsertInvoice(ctx, &inv)
		if err != nil {
			return 0, wrapInsertErr(err, "invoice.generate_batch")
		}

		for _, b := range bookings {
			bookingID := b.ID
			item := domain.InvoiceItem{
				InvoiceID:   id,
				BookingID:   &bookingID,
				Description: "Booking: " + b.ConsignmentNo,
				Quantity:    1,
				UnitPrice:   b.Total,
				Amount:      b.Total,
			}
			if err := tx.InsertItem(ctx, &item); err != nil {
				return 0, domain.Internal(err, "invoice.generate_batch", "failed to insert invoice item")
			}
		}

		created++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, wrapInsertErr(err, "invoice.generate_batch")
	}

	return created, nil
}

// GenerateSingle creates an invoice for one consignment.
func (s *invoiceService) GenerateSingle(ctx context.Context, params domain.GenerateSingleParams) (*domain.InvoiceRef, error) {
	fid, err := franchiseID(ctx)
	if err != nil {
		return nil, err
	}

	if params.CustomerRef == "" || params.BookingID == 0 {
		return nil, domain.Invalid("invoice.generate_single", "Customer ID and Booking ID are required")
	}

	gstPercent := gstPercentOrDefault(params.GSTPercent)

	return s.withNumberRetry(params.InvoiceNo != "", func() (*domain.InvoiceRef, error) {
		tx, err := s.store.Begin(ctx)
		if err != nil {
			return nil, domain.Internal(err, "invoice.generate_single", "failed to begin transaction")
		}
		defer tx.Rollback(ctx)

		number := params.InvoiceNo
		if number == "" {
			count, err := tx.CountInvoicesInYear(ctx, fid, s.now().Year())
			if err != nil {
				return nil, domain.Internal(err, "invoice.generate_single", "failed to count invoices")
			}
			number = formatInvoiceNumber(s.now().Year(), count+1, "")
		}

		var consignmentNo *string
		if params.ConsignmentNo != "" {
			consignmentNo = &params.ConsignmentNo
		}

		inv := domain.Invoice{
			FranchiseID:          fid,
			InvoiceNumber:        number,
			InvoiceDate:          dateOrToday(params.InvoiceDate, s.now),
			CustomerRef:          params.CustomerRef,
			Address:              params.Address,
			PeriodFrom:           params.PeriodFrom,
			PeriodTo:             params.PeriodTo,
			ConsignmentNo:        consignmentNo,
			InvoiceDiscount:      params.InvoiceDiscount,
			ReverseCharge:        params.ReverseCharge,
			FuelSurchargePercent: params.FuelSurchargePercent,
			FuelSurchargeTotal:   FuelSurchargeTotal(params.Subtotal, params.FuelSurchargePercent),
			GSTPercent:           gstPercent,
			GSTAmount:            GSTAmount(params.NetAmount, gstPercent),
			OtherCharge:          params.OtherCharge,
			RoyaltyCharge:        params.RoyaltyCharge,
			DocketCharge:         params.DocketCharge,
			TotalAmount:          params.Total,
			SubtotalAmount:       params.Subtotal,
			NetAmount:            params.NetAmount,
			PaymentStatus:        domain.PaymentUnpaid,
			Status:               domain.InvoiceActive,
		}

		id, err := tx.InsertInvoice(ctx, &inv)
		if err != nil {
			return nil, wrapInsertErr(err, "invoice.generate_single")
		}

		if err := s.insertBookingItems(ctx, tx, id, []int64{params.BookingID}); err != nil {
			return nil, err
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, wrapInsertErr(err, "invoice.generate_single")
		}

		return &domain.InvoiceRef{ID: id, InvoiceNumber: number}, nil
	})
}

// GenerateWithoutGST creates an invoice with GST forced to zero. The number
// is always generated, in the WG series.
func (s *invoiceService) GenerateWithoutGST(ctx context.Context, params domain.GenerateWithoutGSTParams) (*domain.InvoiceRef, error) {
	fid, err := franchiseID(ctx)
	if err != nil {
		return nil, err
	}

	if params.CustomerRef == "" || params.PeriodFrom.IsZero() || params.PeriodTo.IsZero() {
		return nil, domain.Invalid("invoice.generate_without_gst", "Customer ID, Period From, and Period To are required")
	}

	return s.withNumberRetry(false, func() (*domain.InvoiceRef, error) {
		tx, err := s.store.Begin(ctx)
		if err != nil {
			return nil, domain.Internal(err, "invoice.generate_without_gst", "failed to begin transaction")
		}
		defer tx.Rollback(ctx)

		count, err := tx.CountInvoicesInYear(ctx, fid, s.now().Year())
		if err != nil {
			return nil, domain.Internal(err, "invoice.generate_without_gst", "failed to count invoices")
		}
		number := formatInvoiceNumber(s.now().Year(), count+1, noGSTSeries)

		inv := domain.Invoice{
			FranchiseID:     fid,
			InvoiceNumber:   number,
			InvoiceDate:     dateOrToday(params.InvoiceDate, s.now),
			CustomerRef:     params.CustomerRef,
			Address:         params.Address,
			PeriodFrom:      params.PeriodFrom,
			PeriodTo:        params.PeriodTo,
			InvoiceDiscount: params.InvoiceDiscount,
			ReverseCharge:   params.ReverseCharge,
			OtherCharge:     params.OtherCharge,
			RoyaltyCharge:   params.RoyaltyCharge,
			DocketCharge:    params.DocketCharge,
			TotalAmount:     params.Total,
			SubtotalAmount:  params.Subtotal,
			NetAmount:       params.NetAmount,
			PaymentStatus:   domain.PaymentUnpaid,
			Status:          domain.InvoiceActive,
		}

		id, err := tx.InsertInvoice(ctx, &inv)
		if err != nil {
			return nil, wrapInsertErr(err, "invoice.generate_without_gst")
		}

		if err := s.insertBookingItems(ctx, tx, id, params.BookingIDs); err != nil {
			return nil, err
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, wrapInsertErr(err, "invoice.generate_without_gst")
		}

		return &domain.InvoiceRef{ID: id, InvoiceNumber: number}, nil
	})
}

func (s *invoiceService) Get(ctx context.Context, id int64) (*domain.InvoiceDetail, error) {
	fid, err := franchiseID(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := s.store.Get(ctx, fid, id)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, err
		}
		return nil, domain.Internal(err, "invoice.get", "failed to fetch invoice")
	}

	items, err := s.store.Items(ctx, id)
	if err != nil {
		return nil, domain.Internal(err, "invoice.get", "failed to fetch invoice items")
	}

	return &domain.InvoiceDetail{Invoice: *inv, Items: items}, nil
}

// UpdatePayment applies a payment-state change. The balance is recomputed
// as net_amount - paid_amount by the store.
func (s *invoiceService) UpdatePayment(ctx context.Context, id int64, params domain.UpdatePaymentParams) error {
	fid, err := franchiseID(ctx)
	if err != nil {
		return err
	}

	inv, err := s.store.Get(ctx, fid, id)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return err
		}
		return domain.Internal(err, "invoice.update", "failed to fetch invoice")
	}

	if err := s.policy(inv, params.PaymentStatus, params.PaidAmount); err != nil {
		return err
	}

	matched, err := s.store.UpdatePayment(ctx, fid, id, params.PaymentStatus, params.PaidAmount)
	if err != nil {
		return domain.Internal(err, "invoice.update", "failed to update invoice")
	}
	if !matched {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (s *invoiceService) Delete(ctx context.Context, id int64) error {
	fid, err := franchiseID(ctx)
	if err != nil {
		return err
	}

	matched, err := s.store.Delete(ctx, fid, id)
	if err != nil {
		return domain.Internal(err, "invoice.delete", "failed to delete invoice")
	}
	if !matched {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (s *invoiceService) ListRecycled(ctx context.Context, search string, page, limit int) ([]domain.RecycledInvoice, domain.Pagination, error) {
	fid, err := franchiseID(ctx)
	if err != nil {
		return nil, domain.Pagination{}, err
	}

	page, limit = normalizePage(page, limit, defaultRecycledLimit)
	offset := (page - 1) * limit

	invoices, total, err := s.store.ListRecycled(ctx, fid, search, limit, offset)
	if err != nil {
		return nil, domain.Pagination{}, domain.Internal(err, "invoice.list_recycled", "failed to list recycled invoices")
	}

	return invoices, paginate(total, page, limit), nil
}

// insertBookingItems inserts one line item per referenced booking. A booking
// id that matches no row inserts nothing; that is logged, not failed.
func (s *invoiceService) insertBookingItems(ctx context.Context, tx domain.InvoiceTx, invoiceID int64, bookingIDs []int64) error {
	for _, bookingID := range bookingIDs {
		n, err := tx.InsertItemFromBooking(ctx, invoiceID, bookingID)
		if err != nil {
			return domain.Internal(err, "invoice.generate", "failed to insert invoice item")
		}
		if n == 0 {
			s.logger.Warn("invoice item skipped: booking not found",
				"invoice_id", invoiceID,
				"booking_id", bookingID,
			)
		}
	}
	return nil
}

// withNumberRetry re-runs the writer when a generated number collides with a
// concurrent insert. Explicit numbers are never retried: the conflict is the
// caller's to resolve.
func (s *invoiceService) withNumberRetry(explicit bool, fn func() (*domain.InvoiceRef, error)) (*domain.InvoiceRef, error) {
	var ref *domain.InvoiceRef
	var err error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		ref, err = fn()
		if err == nil || explicit || !errors.Is(err, domain.ErrDuplicateInvoiceNumber) {
			break
		}
	}
	return ref, err
}

func wrapInsertErr(err error, op string) error {
	if errors.Is(err, domain.ErrDuplicateInvoiceNumber) {
		return err
	}
	return domain.Internal(err, op, "failed to create invoice")
}

func dateOrToday(d domain.Date, now func() time.Time) domain.Date {
	if d.IsZero() {
		return domain.NewDate(now())
	}
	return d
}

func normalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

func paginate(total int64, page, limit int) domain.Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return domain.Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
