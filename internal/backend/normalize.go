package backend

import (
	"strings"
	"time"

	"dukaanbill/backend/internal/domain"
)

// The backend has accumulated several generations of field names for the
// same data (invoice_number vs invoiceNo, flat customer_name vs a nested
// customer object). NormalizeInvoice is the single place those variants are
// tolerated; everything past this function reads canonical fields only.

var invoiceNoKeys = []string{"invoice_no", "invoice_number", "invoiceNo", "invoiceNumber", "bill_no"}
var paidAmountKeys = []string{"paid_amount", "paidAmount", "amount_paid"}
var totalKeys = []string{"total", "total_amount", "totalAmount", "grand_total", "net_payable"}
var subtotalKeys = []string{"subtotal", "sub_total", "subTotal"}
var taxRateKeys = []string{"tax_rate", "taxRate", "gst_percentage", "gst_percent"}
var dateKeys = []string{"date", "invoice_date", "created_at", "createdAt"}

// NormalizeInvoice converts a raw backend invoice payload into the canonical
// InvoiceRecord. Missing monetary fields are derived from the ones present
// (total from subtotal+tax, CGST/SGST as half of the tax when only a combined
// figure exists) and payment status is recomputed from paid vs total.
func NormalizeInvoice(raw map[string]any) domain.InvoiceRecord {
	rec := domain.InvoiceRecord{
		ID:        pickString(raw, "id", "_id", "invoice_id"),
		InvoiceNo: pickString(raw, invoiceNoKeys...),
		Date:      pickTime(raw, dateKeys...),
		Subtotal:  pickFloat(raw, subtotalKeys...),
		CGST:      pickFloat(raw, "cgst", "cgst_amount"),
		SGST:      pickFloat(raw, "sgst", "sgst_amount"),
		IGST:      pickFloat(raw, "igst", "igst_amount"),
		Total:     pickFloat(raw, totalKeys...),
		TaxRate:   pickFloat(raw, taxRateKeys...),

		PaidAmount:  pickFloat(raw, paidAmountKeys...),
		PaymentMode: domain.PaymentMode(strings.ToLower(pickString(raw, "payment_mode", "paymentMode", "payment_method"))),
		BillingMode: normalizeBillingMode(pickString(raw, "billing_mode", "billingMode", "bill_type")),
	}

	rec.CustomerName = pickString(raw, "customer_name", "customerName")
	rec.CustomerPhone = pickString(raw, "customer_phone", "customerPhone", "phone")
	rec.CustomerGSTIN = pickString(raw, "customer_gstin", "gstin")
	rec.CustomerAddress = pickString(raw, "customer_address", "address")
	if nested, ok := raw["customer"].(map[string]any); ok {
		if rec.CustomerName == "" {
			rec.CustomerName = pickString(nested, "name", "customer_name")
		}
		if rec.CustomerPhone == "" {
			rec.CustomerPhone = pickString(nested, "phone", "mobile")
		}
		if rec.CustomerGSTIN == "" {
			rec.CustomerGSTIN = pickString(nested, "gstin")
		}
		if rec.CustomerAddress == "" {
			rec.CustomerAddress = pickString(nested, "address")
		}
	}

	if items, ok := raw["items"].([]any); ok {
		rec.Items = make([]domain.InvoiceItem, 0, len(items))
		for _, entry := range items {
			item, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			rec.Items = append(rec.Items, domain.InvoiceItem{
				Name:       pickString(item, "name", "product_name", "productName", "description"),
				HSN:        pickString(item, "hsn", "hsn_code", "hsn_sac_code"),
				Qty:        int(pickFloat(item, "qty", "quantity")),
				Price:      pickFloat(item, "price", "unit_price", "unitPrice", "rate"),
				Discount:   pickFloat(item, "discount", "discount_amount"),
				TaxPercent: pickFloat(item, "tax_percent", "taxPercent", "gst_percent"),
			})
		}
	}

	if rec.Subtotal == 0 && len(rec.Items) > 0 {
		for _, item := range rec.Items {
			contribution := item.Price*float64(item.Qty) - item.Discount
			if contribution > 0 {
				rec.Subtotal += contribution
			}
		}
	}
	if rec.Total == 0 {
		rec.Total = rec.Subtotal + rec.CGST + rec.SGST + rec.IGST
	}
	if rec.BillingMode == domain.ModeGST && rec.CGST == 0 && rec.SGST == 0 && rec.IGST == 0 && rec.TaxRate > 0 {
		half := rec.Subtotal * rec.TaxRate / 200
		rec.CGST, rec.SGST = half, half
	}

	rec.PaymentStatus = normalizePaymentStatus(pickString(raw, "payment_status", "paymentStatus", "status"), rec.PaidAmount, rec.Total)
	return rec
}

func normalizeBillingMode(raw string) domain.BillingMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "walkin", "walk-in", "walk_in":
		return domain.ModeWalkIn
	case "customer", "regular":
		return domain.ModeCustomer
	case "credit", "pending_bill", "udhaar":
		return domain.ModeCredit
	case "gst", "tax":
		return domain.ModeGST
	case "nongst", "non-gst", "non_gst", "estimate":
		return domain.ModeNonGST
	}
	return domain.ModeWalkIn
}

func normalizePaymentStatus(raw string, paid float64, total float64) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "paid", "complete":
		return domain.PaymentStatusCompleted
	case "pending", "unpaid", "partial":
		return domain.PaymentStatusPending
	}
	if total > 0 && paid >= total {
		return domain.PaymentStatusCompleted
	}
	return domain.PaymentStatusPending
}

func pickString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if val, ok := m[key]; ok {
			if s, ok := val.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func pickFloat(m map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch val := m[key].(type) {
		case float64:
			return val
		case int:
			return float64(val)
		case int64:
			return float64(val)
		}
	}
	return 0
}

func pickTime(m map[string]any, keys ...string) time.Time {
	for _, key := range keys {
		raw, ok := m[key].(string)
		if !ok || raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
