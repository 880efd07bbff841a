package postgres

import (
	"testing"

	"github.com/freightdesk/backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestListConditionsBase(t *testing.T) {
	where, args := listConditions(7, domain.InvoiceFilter{})

	assert.Equal(t, "franchise_id = $1", where)
	assert.Equal(t, []any{int64(7)}, args)
}

func TestListConditionsPlaceholdersStayAligned(t *testing.T) {
	where, args := listConditions(7, domain.InvoiceFilter{
		Status:        domain.PaymentPaid,
		Search:        "INV",
		CompanyName:   "acme",
		InvoiceNumber: "2025",
	})

	assert.Contains(t, where, "payment_status = $2")
	assert.Contains(t, where, "(invoice_number ILIKE $3 OR customer_ref ILIKE $4)")
	assert.Contains(t, where, "customer_ref ILIKE $5")
	assert.Contains(t, where, "invoice_number ILIKE $6")
	assert.Len(t, args, 6)
	assert.Equal(t, "%INV%", args[2])
	assert.Equal(t, "%acme%", args[4])
}

func TestRecycledColumnsReportTotalAmount(t *testing.T) {
	assert.Contains(t, recycledColumns, "total_amount AS net_amount",
		"recycled rows surface the pre-tax total under the shared net_amount name")
}

func TestListConditionsFlags(t *testing.T) {
	where, args := listConditions(1, domain.InvoiceFilter{
		SingleOnly: true,
		WithoutGST: true,
	})

	assert.Contains(t, where, "consignment_no IS NOT NULL")
	assert.Contains(t, where, "gst_percent = 0")
	assert.Len(t, args, 1, "flag conditions carry no arguments")
}
