package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/freightdesk/backoffice/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// InvoiceHandler exposes the invoicing core as a JSON API.
type InvoiceHandler struct {
	service  domain.InvoiceService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewInvoiceHandler creates a new invoice API handler.
func NewInvoiceHandler(service domain.InvoiceService, logger *slog.Logger) *InvoiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// generateRequest is the multi-booking generation payload. Field names match
// what the dashboard sends.
type generateRequest struct {
	CustomerID              string           `json:"customer_id"`
	Address                 string           `json:"address"`
	InvoiceNo               string           `json:"invoice_no"`
	InvoiceDate             domain.Date      `json:"invoice_date"`
	PeriodFrom              domain.Date      `json:"period_from"`
	PeriodTo                domain.Date      `json:"period_to"`
	InvoiceDiscount         bool             `json:"invoice_discount"`
	ReverseCharge           bool             `json:"reverse_charge"`
	FuelSurchargeTaxPercent decimal.Decimal  `json:"fuel_surcharge_tax_percent"`
	GSTPercent              *decimal.Decimal `json:"gst_percent"`
	Subtotal                decimal.Decimal  `json:"subtotal"`
	Total                   decimal.Decimal  `json:"total"`
	NetAmount               decimal.Decimal  `json:"net_amount"`
	RoyaltyCharge           decimal.Decimal  `json:"royalty_charge"`
	DocketCharge            decimal.Decimal  `json:"docket_charge"`
	OtherCharge             decimal.Decimal  `json:"other_charge"`
	Bookings                []int64          `json:"bookings"`
}

type generateSingleRequest struct {
	generateRequest
	BookingID     int64  `json:"booking_id"`
	ConsignmentNo string `json:"consignment_no"`
}

type generateBatchRequest struct {
	Customers   []string         `json:"customers"`
	InvoiceDate domain.Date      `json:"invoice_date"`
	PeriodFrom  domain.Date      `json:"period_from"`
	PeriodTo    domain.Date      `json:"period_to"`
	GSTPercent  *decimal.Decimal `json:"gst_percent"`
}

type updatePaymentRequest struct {
	PaymentStatus string          `json:"payment_status" validate:"required,oneof=unpaid partial paid"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
}

// List handles GET /api/invoices.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.InvoiceFilter{
		Status:        domain.PaymentStatus(q.Get("status")),
		Search:        q.Get("search"),
		CompanyName:   q.Get("company_name"),
		InvoiceNumber: q.Get("invoice_number"),
		FromDate:      parseDate(q.Get("from_date")),
		ToDate:        parseDate(q.Get("to_date")),
		SingleOnly:    q.Get("type") == "single",
		WithoutGST:    q.Get("without_gst") == "true",
	}

	invoices, pagination, err := h.service.List(r.Context(), filter, intQuery(q.Get("page")), intQuery(q.Get("limit")))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if invoices == nil {
		invoices = []domain.Invoice{}
	}

	respondJSON(w, http.StatusOK, envelope{
		"success":    true,
		"data":       invoices,
		"pagination": pagination,
	})
}

// Summary handles GET /api/invoices/summary.
func (h *InvoiceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"success": true, "data": summary})
}

// SingleSummary handles GET /api/invoices/summary/single.
func (h *InvoiceHandler) SingleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.SingleConsignmentSummary(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"success": true, "data": summary})
}

// Generate handles POST /api/invoices.
func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, domain.Invalid("invoice.generate", "Invalid request body"))
		return
	}

	ref, err := h.service.Generate(r.Context(), req.toParams())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Invoice generated successfully",
		"data":    ref,
	})
}

// GenerateBatch handles POST /api/invoices/batch.
func (h *InvoiceHandler) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req generateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, domain.Invalid("invoice.generate_batch", "Invalid request body"))
		return
	}

	count, err := h.service.GenerateBatch(r.Context(), domain.GenerateBatchParams{
		CustomerRefs: req.Customers,
		InvoiceDate:  req.InvoiceDate,
		PeriodFrom:   req.PeriodFrom,
		PeriodTo:     req.PeriodTo,
		GSTPercent:   req.GSTPercent,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": fmt.Sprintf("%d invoices generated successfully", count),
		"count":   count,
	})
}

// GenerateSingle handles POST /api/invoices/single.
func (h *InvoiceHandler) GenerateSingle(w http.ResponseWriter, r *http.Request) {
	var req generateSingleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, domain.Invalid("invoice.generate_single", "Invalid request body"))
		return
	}

	ref, err := h.service.GenerateSingle(r.Context(), domain.GenerateSingleParams{
		CustomerRef:          req.CustomerID,
		Address:              req.Address,
		InvoiceNo:            req.InvoiceNo,
		InvoiceDate:          req.InvoiceDate,
		PeriodFrom:           req.PeriodFrom,
		PeriodTo:             req.PeriodTo,
		ConsignmentNo:        req.ConsignmentNo,
		InvoiceDiscount:      req.InvoiceDiscount,
		ReverseCharge:        req.ReverseCharge,
		GSTPercent:           req.GSTPercent,
		FuelSurchargePercent: req.FuelSurchargeTaxPercent,
		Subtotal:             req.Subtotal,
		Total:                req.Total,
		NetAmount:            req.NetAmount,
		RoyaltyCharge:        req.RoyaltyCharge,
		DocketCharge:         req.DocketCharge,
		OtherCharge:          req.OtherCharge,
		BookingID:            req.BookingID,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Single invoice generated successfully",
		"data":    ref,
	})
}

// GenerateWithoutGST handles POST /api/invoices/without-gst.
func (h *InvoiceHandler) GenerateWithoutGST(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, domain.Invalid("invoice.generate_without_gst", "Invalid request body"))
		return
	}

	ref, err := h.service.GenerateWithoutGST(r.Context(), domain.GenerateWithoutGSTParams{
		CustomerRef:     req.CustomerID,
		Address:         req.Address,
		InvoiceDate:     req.InvoiceDate,
		PeriodFrom:      req.PeriodFrom,
		PeriodTo:        req.PeriodTo,
		InvoiceDiscount: req.InvoiceDiscount,
		ReverseCharge:   req.ReverseCharge,
		Subtotal:        req.Subtotal,
		Total:           req.Total,
		NetAmount:       req.NetAmount,
		RoyaltyCharge:   req.RoyaltyCharge,
		DocketCharge:    req.DocketCharge,
		OtherCharge:     req.OtherCharge,
		BookingIDs:      req.Bookings,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Invoice without GST generated successfully",
		"data":    ref,
	})
}

// Get handles GET /api/invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	items := detail.Items
	if items == nil {
		items = []domain.InvoiceItem{}
	}

	respondJSON(w, http.StatusOK, envelope{
		"success": true,
		"data": invoiceDetailPayload{
			Invoice: detail.Invoice,
			Items:   items,
		},
	})
}

// invoiceDetailPayload flattens the invoice fields with an items array, the
// shape the dashboard's detail view expects.
type invoiceDetailPayload struct {
	domain.Invoice
	Items []domain.InvoiceItem `json:"items"`
}

// UpdatePayment handles PUT /api/invoices/{id}.
func (h *InvoiceHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, domain.Invalid("invoice.update", "Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, h.logger, domain.Invalid("invoice.update", "payment_status must be one of unpaid, partial, paid"))
		return
	}

	err = h.service.UpdatePayment(r.Context(), id, domain.UpdatePaymentParams{
		PaymentStatus: domain.PaymentStatus(req.PaymentStatus),
		PaidAmount:    req.PaidAmount,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Invoice updated successfully",
	})
}

// Delete handles DELETE /api/invoices/{id}.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Invoice deleted successfully",
	})
}

// ListRecycled handles GET /api/invoices/recycled.
func (h *InvoiceHandler) ListRecycled(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	invoices, pagination, err := h.service.ListRecycled(r.Context(), q.Get("search"), intQuery(q.Get("page")), intQuery(q.Get("limit")))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if invoices == nil {
		invoices = []domain.RecycledInvoice{}
	}

	// The recycle bin's page-count key is "pages", not "totalPages", and the
	// whole payload nests under data. Clients depend on both.
	respondJSON(w, http.StatusOK, envelope{
		"success": true,
		"data": envelope{
			"invoices": invoices,
			"pagination": recycledPagination{
				Total: pagination.Total,
				Page:  pagination.Page,
				Limit: pagination.Limit,
				Pages: pagination.TotalPages,
			},
		},
	})
}

type recycledPagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

func (req generateRequest) toParams() domain.GenerateInvoiceParams {
	return domain.GenerateInvoiceParams{
		CustomerRef:          req.CustomerID,
		Address:              req.Address,
		InvoiceNo:            req.InvoiceNo,
		InvoiceDate:          req.InvoiceDate,
		PeriodFrom:           req.PeriodFrom,
		PeriodTo:             req.PeriodTo,
		InvoiceDiscount:      req.InvoiceDiscount,
		ReverseCharge:        req.ReverseCharge,
		GSTPercent:           req.GSTPercent,
		FuelSurchargePercent: req.FuelSurchargeTaxPercent,
		Subtotal:             req.Subtotal,
		Total:                req.Total,
		NetAmount:            req.NetAmount,
		RoyaltyCharge:        req.RoyaltyCharge,
		DocketCharge:         req.DocketCharge,
		OtherCharge:          req.OtherCharge,
		BookingIDs:           req.Bookings,
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, domain.Invalid("invoice", "Invalid invoice id")
	}
	return id, nil
}

func intQuery(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseDate(s string) domain.Date {
	if s == "" {
		return domain.Date{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return domain.Date{}
	}
	return domain.NewDate(t)
}
