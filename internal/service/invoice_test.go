package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/freightdesk/backoffice/internal/domain"
	"github.com/freightdesk/backoffice/internal/franchise"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory domain.InvoiceStore. Writer transactions stage
// rows and publish them on Commit, so a rollback leaves the store untouched.
type fakeStore struct {
	invoices []domain.Invoice
	items    []domain.InvoiceItem
	bookings []domain.Booking
	nextID   int64

	// failDupInserts makes the next N InsertInvoice calls fail with a
	// duplicate-number conflict.
	failDupInserts int
	beginErr       error

	begun      int
	committed  int
	rolledBack int
}

func (f *fakeStore) Begin(ctx context.Context) (domain.InvoiceTx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.begun++
	return &fakeTx{store: f}, nil
}

func (f *fakeStore) List(ctx context.Context, franchiseID int64, filter domain.InvoiceFilter, limit, offset int) ([]domain.Invoice, int64, error) {
	var rows []domain.Invoice
	for _, inv := range f.invoices {
		if inv.FranchiseID == franchiseID {
			rows = append(rows, inv)
		}
	}
	total := int64(len(rows))
	if offset >= len(rows) {
		return nil, total, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, total, nil
}

func (f *fakeStore) Summarize(ctx context.Context, franchiseID int64, singleOnly bool) (*domain.InvoiceSummary, error) {
	sum := &domain.InvoiceSummary{}
	for _, inv := range f.invoices {
		if inv.FranchiseID != franchiseID {
			continue
		}
		if singleOnly && inv.ConsignmentNo == nil {
			continue
		}
		sum.TotalSale = sum.TotalSale.Add(inv.NetAmount)
		switch inv.PaymentStatus {
		case domain.PaymentPaid:
			sum.PaidAmount = sum.PaidAmount.Add(inv.NetAmount)
		case domain.PaymentPartial:
			sum.PartialPaid = sum.PartialPaid.Add(inv.NetAmount)
		default:
			sum.UnpaidAmount = sum.UnpaidAmount.Add(inv.NetAmount)
		}
	}
	return sum, nil
}

func (f *fakeStore) Get(ctx context.Context, franchiseID, id int64) (*domain.Invoice, error) {
	for i := range f.invoices {
		inv := f.invoices[i]
		if inv.ID == id && inv.FranchiseID == franchiseID {
			return &inv, nil
		}
	}
	return nil, domain.ErrInvoiceNotFound
}

func (f *fakeStore) Items(ctx context.Context, invoiceID int64) ([]domain.InvoiceItem, error) {
	var items []domain.InvoiceItem
	for _, it := range f.items {
		if it.InvoiceID == invoiceID {
			items = append(items, it)
		}
	}
	return items, nil
}

func (f *fakeStore) UpdatePayment(ctx context.Context, franchiseID, id int64, status domain.PaymentStatus, paid decimal.Decimal) (bool, error) {
	for i := range f.invoices {
		inv := &f.invoices[i]
		if inv.ID == id && inv.FranchiseID == franchiseID {
			inv.PaymentStatus = status
			inv.PaidAmount = paid
			inv.BalanceAmount = inv.NetAmount.Sub(paid)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Delete(ctx context.Context, franchiseID, id int64) (bool, error) {
	for i := range f.invoices {
		if f.invoices[i].ID == id && f.invoices[i].FranchiseID == franchiseID {
			f.invoices = append(f.invoices[:i], f.invoices[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListRecycled(ctx context.Context, franchiseID int64, search string, limit, offset int) ([]domain.RecycledInvoice, int64, error) {
	var rows []domain.RecycledInvoice
	for _, inv := range f.invoices {
		if inv.FranchiseID == franchiseID && inv.Status == domain.InvoiceCancelled {
			rows = append(rows, domain.RecycledInvoice{
				ID:            inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				CustomerRef:   inv.CustomerRef,
				InvoiceDate:   inv.InvoiceDate,
				NetAmount:     inv.TotalAmount,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].InvoiceDate.Time.Equal(rows[j].InvoiceDate.Time) {
			return rows[i].InvoiceDate.Time.After(rows[j].InvoiceDate.Time)
		}
		return rows[i].ID > rows[j].ID
	})
	total := int64(len(rows))
	if offset >= len(rows) {
		return nil, total, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, total, nil
}

type fakeTx struct {
	store    *fakeStore
	invoices []domain.Invoice
	items    []domain.InvoiceItem
	done     bool
}

func (t *fakeTx) CountInvoicesInYear(ctx context.Context, franchiseID int64, year int) (int64, error) {
	var n int64
	for _, inv := range t.store.invoices {
		if inv.FranchiseID == franchiseID && inv.InvoiceDate.Year() == year {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) InsertInvoice(ctx context.Context, inv *domain.Invoice) (int64, error) {
	if t.store.failDupInserts > 0 {
		t.store.failDupInserts--
		return 0, domain.ErrDuplicateInvoiceNumber
	}
	t.store.nextID++
	inv.ID = t.store.nextID
	t.invoices = append(t.invoices, *inv)
	return inv.ID, nil
}

func (t *fakeTx) InsertItemFromBooking(ctx context.Context, invoiceID, bookingID int64) (int64, error) {
	for _, b := range t.store.bookings {
		if b.ID == bookingID {
			t.items = append(t.items, domain.InvoiceItem{
				InvoiceID:   invoiceID,
				BookingID:   &b.ID,
				Description: "Booking: " + b.ConsignmentNo,
				Quantity:    1,
				UnitPrice:   b.Total,
				Amount:      b.Total,
			})
			return 1, nil
		}
	}
	return 0, nil
}

func (t *fakeTx) InsertItem(ctx context.Context, item *domain.InvoiceItem) error {
	t.items = append(t.items, *item)
	return nil
}

func (t *fakeTx) BookingsInPeriod(ctx context.Context, franchiseID int64, customerRef string, from, to domain.Date) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range t.store.bookings {
		if b.FranchiseID != franchiseID || b.CustomerRef != customerRef {
			continue
		}
		if b.BookingDate.Time.Before(from.Time) || b.BookingDate.Time.After(to.Time) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.done = true
	t.store.committed++
	t.store.invoices = append(t.store.invoices, t.invoices...)
	t.store.items = append(t.store.items, t.items...)
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.done {
		t.store.rolledBack++
		t.done = true
	}
	return nil
}

func newTestService(store *fakeStore) *invoiceService {
	return &invoiceService{
		store:  store,
		policy: AllowAnyPayment,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) },
	}
}

func testCtx() context.Context {
	return franchise.NewContext(context.Background(), &franchise.Franchise{ID: 1, Code: "FR-001"})
}

func day(y, m, d int) domain.Date {
	return domain.NewDate(time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedInvoice(store *fakeStore, inv domain.Invoice) int64 {
	store.nextID++
	inv.ID = store.nextID
	if inv.FranchiseID == 0 {
		inv.FranchiseID = 1
	}
	if inv.Status == "" {
		inv.Status = domain.InvoiceActive
	}
	if inv.PaymentStatus == "" {
		inv.PaymentStatus = domain.PaymentUnpaid
	}
	store.invoices = append(store.invoices, inv)
	return inv.ID
}

func TestGenerateRequiresFranchise(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.Generate(context.Background(), domain.GenerateInvoiceParams{
		CustomerRef: "ACME",
		PeriodFrom:  day(2025, 6, 1),
		PeriodTo:    day(2025, 6, 30),
	})
	require.Error(t, err)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestGenerateValidation(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	_, err := svc.Generate(testCtx(), domain.GenerateInvoiceParams{
		PeriodFrom: day(2025, 6, 1),
		PeriodTo:   day(2025, 6, 30),
	})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, "Customer ID, Period From, and Period To are required", domain.ErrorMessage(err))
	assert.Zero(t, store.begun, "validation must fail before any transaction starts")
}

func TestGenerateNumbersSequentially(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 7; i++ {
		seedInvoice(store, domain.Invoice{InvoiceNumber: "seed", InvoiceDate: day(2025, 1, 1)})
	}
	svc := newTestService(store)

	ref, err := svc.Generate(testCtx(), domain.GenerateInvoiceParams{
		CustomerRef: "ACME",
		PeriodFrom:  day(2025, 6, 1),
		PeriodTo:    day(2025, 6, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, "INV/2025/0008", ref.InvoiceNumber)
}

func TestGenerateCountsCurrentYearOnly(t *testing.T) {
	store := &fakeStore{}
	seedInvoice(store, domain.Invoice{InvoiceNumber: "old", InvoiceDate: day(2024, 12, 31)})
	svc := newTestService(store)

	ref, err := svc.Generate(testCtx(), domain.GenerateInvoiceParams{
		CustomerRef: "ACME",
		PeriodFrom:  day(2025, 6, 1),
		PeriodTo:    day(2025, 6, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, "INV/2025/0001", ref.InvoiceNumber)
}

func TestGenerateExplicitNumber(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	ref, err := svc.Generate(testCtx(), domain.GenerateInvoiceParams{
		CustomerRef: "ACME",
		InvoiceNo:   "CUSTOM-42",
		PeriodFrom:  day(2025, 6, 1),
		PeriodTo:    day(2025, 6, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM-42", ref.InvoiceNumber)
}

func TestGenerateRetriesOnDuplicateNumber(t *testing.T) {
	store := &fakeStore{failDupInserts: 1}
	svc := newTestService(store)

	ref, err := svc.Generate(testCtx(), domain.GenerateInvoiceParams{
		CustomerRef: "ACME",
		PeriodFrom:  day(2025, 6, 1),
		PeriodTo:    day(2025, 6, 30),
	})
	require.NoError(t, err)
	assert.NotNil(t, ref)
	assert.Equal(t, 2, store.begun)
	assert.Equal(t, 1, store.rolledBack)
	assert.Equal(t, 1, store.committed)
}

func TestGenerateExplicitNumberNotRetried(t *testing.T) {
	store := &fakeStore{failDupInserts: 1}
	svc := newTestService(store)

	_, err := svc.Generate(testCtx(), domain.GenerateInvoiceParams{
		CustomerRef: "ACME",
		InvoiceNo:   "CUSTOM-42",
		PeriodFrom:  day(2025, 6, 1),
		PeriodTo:    day(2025, 6, 30),
	})
	require.ErrorIs(t, err, domain.ErrDuplicateInvoiceNumber)
	assert.Equal(t, 1, store.begun)
	assert.Zero(t, store.committed)
}

func TestGenerateGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := &fakeStore{failDupInserts: 10}
	svc := newTestService(store)

	_, err := svc.Generate(testCtx(), domain.GenerateInvoiceParams{
		CustomerRef: "ACME",
		PeriodFrom:  day(2025, 6, 1),
		PeriodTo:    day(2025, 6, 30),
	})
	require.ErrorIs(t, err, domain.ErrDuplicateInvoiceNumber)
	assert.Equal(t, numberAttempts, store.begun)
	assert.Zero(t, store.committed)
}

func TestGenerateComputesCharges(t *testing.T) {
	store := &fakeStore{
		bookings: []domain.Booking{
			{ID: 11, FranchiseID: 1, CustomerRef: "ACME", ConsignmentNo: "CN-11", BookingDate: day(2025, 6, 5), Total: dec("400")},
			{ID: 12, FranchiseID: 1, CustomerRef: "ACME", ConsignmentNo: "CN-12", BookingDate: day(2025, 6, 9), Total: dec("600")},
		},
	}
	svc := newTestService(store)

	ref, err := svc.Generate(testCtx(), domain.GenerateInvoiceParams{
		CustomerRef:          "ACME",
		PeriodFrom:           day(2025, 6, 1),
		PeriodTo:             day(2025, 6, 30),
		Subtotal:             dec("1000"),
		NetAmount:            dec("1050"),
		Total:                dec("1000"),
		FuelSurchargePercent: dec("5"),
		BookingIDs:           []int64{11, 12},
	})
	require.NoError(t, err)

	inv := store.invoices[len(store.invoices)-1]
	assert.True(t, inv.FuelSurchargeTotal.Equal(dec("50")), "fuel surcharge, got %s", inv.FuelSurchargeTotal)
	assert.True(t, inv.GSTAmount.Equal(dec("189")), "gst on net, got %s", inv.GSTAmount)
	assert.True(t, inv.GSTPercent.Equal(dec("18")))
	assert.Equal(t, domain.PaymentUnpaid, inv.PaymentStatus)
	assert.Equal(t, domain.InvoiceActive, inv.Status)

	items, err := store.Items(context.Background(), ref.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Booking: CN-11", items[0].Description)
	assert.True(t, items[0].Amount.Equal(dec("400")))
}

func TestGenerateSkipsMissingBookings(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	ref, err := svc.Generate(testCtx(), domain.GenerateInvoiceParams{
		CustomerRef: "ACME",
		PeriodFrom:  day(2025, 6, 1),
		PeriodTo:    day(2025, 6, 30),
		BookingIDs:  []int64{999},
	})
	require.NoError(t, err)

	items, err := store.Items(context.Background(), ref.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, store.committed)
}

func TestGenerateCustomGSTPercent(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	pct := dec("12")
	_, err := svc.Generate(testCtx(), domain.GenerateInvoiceParams{
		CustomerRef: "ACME",
		PeriodFrom:  day(2025, 6, 1),
		PeriodTo:    day(2025, 6, 30),
		NetAmount:   dec("100"),
		GSTPercent:  &pct,
	})
	require.NoError(t, err)

	inv := store.invoices[0]
	assert.True(t, inv.GSTPercent.Equal(dec("12")))
	assert.True(t, inv.GSTAmount.Equal(dec("12")))
}

func TestGenerateSingleValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.GenerateSingle(testCtx(), domain.GenerateSingleParams{CustomerRef: "ACME"})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, "Customer ID and Booking ID are required", domain.ErrorMessage(err))
}

func TestGenerateSingle(t *testing.T) {
	store := &fakeStore{
		bookings: []domain.Booking{
			{ID: 21, FranchiseID: 1, CustomerRef: "ACME", ConsignmentNo: "CN-21", BookingDate: day(2025, 6, 2), Total: dec("250")},
		},
	}
	svc := newTestService(store)

	ref, err := svc.GenerateSingle(testCtx(), domain.GenerateSingleParams{
		CustomerRef:   "ACME",
		BookingID:     21,
		ConsignmentNo: "CN-21",
		Subtotal:      dec("250"),
		NetAmount:     dec("250"),
		Total:         dec("250"),
	})
	require.NoError(t, err)
	assert.Equal(t, "INV/2025/0001", ref.InvoiceNumber)

	inv := store.invoices[0]
	require.NotNil(t, inv.ConsignmentNo)
	assert.Equal(t, "CN-21", *inv.ConsignmentNo)

	items, err := store.Items(context.Background(), ref.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestGenerateWithoutGST(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	ref, err := svc.GenerateWithoutGST(testCtx(), domain.GenerateWithoutGSTParams{
		CustomerRef: "ACME",
		PeriodFrom:  day(2025, 6, 1),
		PeriodTo:    day(2025, 6, 30),
		Subtotal:    dec("500"),
		NetAmount:   dec("500"),
		Total:       dec("500"),
	})
	require.NoError(t, err)
	assert.Equal(t, "INV/2025/WG/0001", ref.InvoiceNumber)

	inv := store.invoices[0]
	assert.True(t, inv.GSTPercent.IsZero())
	assert.True(t, inv.GSTAmount.IsZero())
}

func TestGenerateBatch(t *testing.T) {
	store := &fakeStore{
		bookings: []domain.Booking{
			{ID: 1, FranchiseID: 1, CustomerRef: "ACME", ConsignmentNo: "CN-1", BookingDate: day(2025, 6, 3), Total: dec("100")},
			{ID: 2, FranchiseID: 1, CustomerRef: "ACME", ConsignmentNo: "CN-2", BookingDate: day(2025, 6, 8), Total: dec("200")},
			{ID: 3, FranchiseID: 1, CustomerRef: "GLOBEX", ConsignmentNo: "CN-3", BookingDate: day(2025, 6, 10), Total: dec("300")},
			// outside the period
			{ID: 4, FranchiseID: 1, CustomerRef: "GLOBEX", ConsignmentNo: "CN-4", BookingDate: day(2025, 7, 1), Total: dec("999")},
		},
	}
	svc := newTestService(store)

	created, err := svc.GenerateBatch(testCtx(), domain.GenerateBatchParams{
		CustomerRefs: []string{"ACME", "INITECH", "GLOBEX"},
		PeriodFrom:   day(2025, 6, 1),
		PeriodTo:     day(2025, 6, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created, "customers without bookings are skipped")
	assert.Equal(t, 1, store.committed, "whole batch commits once")

	require.Len(t, store.invoices, 2)
	acme, globex := store.invoices[0], store.invoices[1]

	assert.Equal(t, "INV/2025/0001", acme.InvoiceNumber)
	assert.True(t, acme.SubtotalAmount.Equal(dec("300")))
	assert.True(t, acme.GSTAmount.Equal(dec("54")))
	assert.True(t, acme.NetAmount.Equal(dec("354")))

	assert.Equal(t, "INV/2025/0002", globex.InvoiceNumber)
	assert.True(t, globex.SubtotalAmount.Equal(dec("300")))

	items, err := store.Items(context.Background(), acme.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Booking: CN-1", items[0].Description)
	assert.True(t, items[0].UnitPrice.Equal(dec("100")))
	assert.Equal(t, int32(1), items[0].Quantity)
}

func TestGenerateBatchValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.GenerateBatch(testCtx(), domain.GenerateBatchParams{
		PeriodFrom: day(2025, 6, 1),
		PeriodTo:   day(2025, 6, 30),
	})
	require.ErrorIs(t, err, domain.ErrNoCustomersSelected)

	_, err = svc.GenerateBatch(testCtx(), domain.GenerateBatchParams{
		CustomerRefs: []string{"ACME"},
	})
	require.ErrorIs(t, err, domain.ErrPeriodRequired)
}

func TestGetReturnsItems(t *testing.T) {
	store := &fakeStore{}
	id := seedInvoice(store, domain.Invoice{InvoiceNumber: "INV/2025/0001", InvoiceDate: day(2025, 6, 1), NetAmount: dec("100")})
	store.items = append(store.items, domain.InvoiceItem{InvoiceID: id, Description: "Booking: CN-1", Quantity: 1, Amount: dec("100")})
	svc := newTestService(store)

	detail, err := svc.Get(testCtx(), id)
	require.NoError(t, err)
	assert.Equal(t, "INV/2025/0001", detail.Invoice.InvoiceNumber)
	require.Len(t, detail.Items, 1)
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.Get(testCtx(), 42)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestGetScopedToFranchise(t *testing.T) {
	store := &fakeStore{}
	id := seedInvoice(store, domain.Invoice{FranchiseID: 2, InvoiceNumber: "INV/2025/0001", InvoiceDate: day(2025, 6, 1)})
	svc := newTestService(store)

	_, err := svc.Get(testCtx(), id)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestUpdatePayment(t *testing.T) {
	store := &fakeStore{}
	id := seedInvoice(store, domain.Invoice{InvoiceNumber: "INV/2025/0001", InvoiceDate: day(2025, 6, 1), NetAmount: dec("500")})
	svc := newTestService(store)

	err := svc.UpdatePayment(testCtx(), id, domain.UpdatePaymentParams{
		PaymentStatus: domain.PaymentPartial,
		PaidAmount:    dec("200"),
	})
	require.NoError(t, err)

	inv := store.invoices[0]
	assert.Equal(t, domain.PaymentPartial, inv.PaymentStatus)
	assert.True(t, inv.PaidAmount.Equal(dec("200")))
	assert.True(t, inv.BalanceAmount.Equal(dec("300")), "balance is net minus paid")
}

func TestUpdatePaymentNotFound(t *testing.T) {
	svc := newTestService(&fakeStore{})

	err := svc.UpdatePayment(testCtx(), 42, domain.UpdatePaymentParams{PaymentStatus: domain.PaymentPaid})
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestUpdatePaymentPolicyRejection(t *testing.T) {
	store := &fakeStore{}
	id := seedInvoice(store, domain.Invoice{InvoiceNumber: "INV/2025/0001", InvoiceDate: day(2025, 6, 1), NetAmount: dec("100")})
	svc := newTestService(store)
	svc.policy = RejectOverpayment

	err := svc.UpdatePayment(testCtx(), id, domain.UpdatePaymentParams{
		PaymentStatus: domain.PaymentPaid,
		PaidAmount:    dec("150"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, domain.PaymentUnpaid, store.invoices[0].PaymentStatus, "rejected update must not persist")
}

func TestDelete(t *testing.T) {
	store := &fakeStore{}
	id := seedInvoice(store, domain.Invoice{InvoiceNumber: "INV/2025/0001", InvoiceDate: day(2025, 6, 1), NetAmount: dec("100")})
	svc := newTestService(store)

	require.NoError(t, svc.Delete(testCtx(), id))
	assert.Empty(t, store.invoices, "row and its items ride the cascade")

	_, err := svc.Get(testCtx(), id)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	// and deleting again reports not found
	err = svc.Delete(testCtx(), id)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestListPagination(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 45; i++ {
		seedInvoice(store, domain.Invoice{InvoiceNumber: "x", InvoiceDate: day(2025, 6, 1)})
	}
	svc := newTestService(store)

	rows, pg, err := svc.List(testCtx(), domain.InvoiceFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 20, "default limit")
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, int64(45), pg.Total)
	assert.Equal(t, 3, pg.TotalPages)

	rows, pg, err = svc.List(testCtx(), domain.InvoiceFilter{}, 3, 20)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.Equal(t, 3, pg.Page)
}

func TestListRecycledDefaults(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 12; i++ {
		seedInvoice(store, domain.Invoice{InvoiceNumber: "x", InvoiceDate: day(2025, 6, 1), Status: domain.InvoiceCancelled})
	}
	svc := newTestService(store)

	rows, pg, err := svc.ListRecycled(testCtx(), "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 10, "recycle bin defaults to 10 per page")
	assert.Equal(t, int64(12), pg.Total)
	assert.Equal(t, 2, pg.TotalPages)
}

func TestListRecycledNewestFirst(t *testing.T) {
	store := &fakeStore{}
	seedInvoice(store, domain.Invoice{InvoiceNumber: "INV/2025/0001", InvoiceDate: day(2025, 3, 1), Status: domain.InvoiceCancelled})
	seedInvoice(store, domain.Invoice{InvoiceNumber: "INV/2025/0002", InvoiceDate: day(2025, 5, 1), Status: domain.InvoiceCancelled})
	seedInvoice(store, domain.Invoice{InvoiceNumber: "INV/2025/0003", InvoiceDate: day(2025, 4, 1), Status: domain.InvoiceCancelled})
	svc := newTestService(store)

	rows, _, err := svc.ListRecycled(testCtx(), "", 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "INV/2025/0002", rows[0].InvoiceNumber)
	assert.Equal(t, "INV/2025/0003", rows[1].InvoiceNumber)
	assert.Equal(t, "INV/2025/0001", rows[2].InvoiceNumber)
}

func TestListRecycledReportsTotalAmount(t *testing.T) {
	store := &fakeStore{}
	// GST-bearing invoice: total_amount is the pre-tax figure.
	seedInvoice(store, domain.Invoice{
		InvoiceNumber: "INV/2025/0001",
		InvoiceDate:   day(2025, 6, 1),
		TotalAmount:   dec("300"),
		NetAmount:     dec("354"),
		Status:        domain.InvoiceCancelled,
	})
	svc := newTestService(store)

	rows, _, err := svc.ListRecycled(testCtx(), "", 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].NetAmount.Equal(dec("300")), "recycled rows surface total_amount under the net_amount name")
}

func TestSummary(t *testing.T) {
	store := &fakeStore{}
	cn := "CN-1"
	seedInvoice(store, domain.Invoice{InvoiceNumber: "a", InvoiceDate: day(2025, 6, 1), NetAmount: dec("100"), PaymentStatus: domain.PaymentPaid})
	seedInvoice(store, domain.Invoice{InvoiceNumber: "b", InvoiceDate: day(2025, 6, 1), NetAmount: dec("200"), PaymentStatus: domain.PaymentUnpaid})
	seedInvoice(store, domain.Invoice{InvoiceNumber: "c", InvoiceDate: day(2025, 6, 1), NetAmount: dec("300"), PaidAmount: dec("120"), BalanceAmount: dec("180"), PaymentStatus: domain.PaymentPartial, ConsignmentNo: &cn})
	svc := newTestService(store)

	sum, err := svc.Summary(testCtx())
	require.NoError(t, err)
	assert.True(t, sum.TotalSale.Equal(dec("600")))
	assert.True(t, sum.PaidAmount.Equal(dec("100")))
	assert.True(t, sum.UnpaidAmount.Equal(dec("200")), "unpaid sums net_amount of unpaid rows only")
	assert.True(t, sum.PartialPaid.Equal(dec("300")), "partial sums net_amount, not paid_amount")

	single, err := svc.SingleConsignmentSummary(testCtx())
	require.NoError(t, err)
	assert.True(t, single.TotalSale.Equal(dec("300")), "only consignment-backed invoices count")
}
