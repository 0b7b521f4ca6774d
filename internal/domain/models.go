package domain

import "time"

type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	HSN      string  `json:"hsn,omitempty"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	ImageRef string  `json:"image_ref,omitempty"`
	Active   bool    `json:"active"`
}

// CartLine is one product entry in a billing session cart. Identity is
// ProductID: re-adding the same product merges quantity into the existing
// line rather than appending a second one.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	HSN       string  `json:"hsn,omitempty"`
	UnitPrice float64 `json:"unit_price"`
	Qty       int     `json:"qty"`
	Discount  float64 `json:"discount"`
	ImageRef  string  `json:"image_ref,omitempty"`
}

// Customer is either a persisted backend record (ID set, Manual false) or an
// ephemeral walk-in name typed by the operator (Manual true, ID empty).
// Manual customers are never sent upstream as a foreign key, only as a
// display label on the invoice.
type Customer struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
	Address string `json:"address,omitempty"`
	Manual  bool   `json:"manual,omitempty"`
}

type BillingMode string

const (
	ModeWalkIn   BillingMode = "walkin"
	ModeCustomer BillingMode = "customer"
	ModeCredit   BillingMode = "credit"
	ModeGST      BillingMode = "gst"
	ModeNonGST   BillingMode = "nongst"
)

func (m BillingMode) Valid() bool {
	switch m {
	case ModeWalkIn, ModeCustomer, ModeCredit, ModeGST, ModeNonGST:
		return true
	}
	return false
}

// RequiresCustomer reports whether a submit in this mode must carry a
// selected customer.
func (m BillingMode) RequiresCustomer() bool {
	return m == ModeCustomer || m == ModeCredit
}

type PaymentMode string

const (
	PaymentCash    PaymentMode = "cash"
	PaymentCard    PaymentMode = "card"
	PaymentUPI     PaymentMode = "upi"
	PaymentPending PaymentMode = "pending"
)

func (p PaymentMode) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentPending:
		return true
	}
	return false
}

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// TaxConfig is the active tax configuration polled from the backend settings
// endpoint. Read-only for every billing view.
type TaxConfig struct {
	GSTEnabled      bool    `json:"gst_enabled"`
	GSTPercentage   float64 `json:"gst_percentage"`
	CGSTSGSTEnabled bool    `json:"cgst_sgst_enabled"`
	IGSTEnabled     bool    `json:"igst_enabled"`
	TaxMode         string  `json:"tax_mode"`
}

type CompanyDetails struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	GSTIN   string `json:"gstin"`
	LogoRef string `json:"logo_ref,omitempty"`
}

// InvoiceDraft is the payload submitted to the backend. Ephemeral: built at
// submit time, discarded once the backend accepts or rejects it.
type InvoiceDraft struct {
	CustomerID    string      `json:"customer_id,omitempty"`
	CustomerLabel string      `json:"customer_label,omitempty"`
	BillingMode   BillingMode `json:"billing_mode"`
	PaymentMode   PaymentMode `json:"payment_mode"`
	PaymentStatus string      `json:"payment_status"`
	TaxRate       float64     `json:"tax_rate"`
	InvoiceNoHint string      `json:"invoice_no_hint,omitempty"`
	AttemptID     string      `json:"attempt_id"`
	Lines         []CartLine  `json:"lines"`
}

type InvoiceItem struct {
	Name       string  `json:"name"`
	HSN        string  `json:"hsn,omitempty"`
	Qty        int     `json:"qty"`
	Price      float64 `json:"price"`
	Discount   float64 `json:"discount"`
	TaxPercent float64 `json:"tax_percent,omitempty"`
}

// InvoiceRecord is the canonical, normalized invoice shape. Every consumer
// (rendering, history list, payment recording, export) reads these fields
// only; raw backend field-name variants stop at the gateway normalizer.
type InvoiceRecord struct {
	ID              string        `json:"id"`
	InvoiceNo       string        `json:"invoice_no"`
	Date            time.Time     `json:"date"`
	CustomerName    string        `json:"customer_name"`
	CustomerPhone   string        `json:"customer_phone,omitempty"`
	CustomerGSTIN   string        `json:"customer_gstin,omitempty"`
	CustomerAddress string        `json:"customer_address,omitempty"`
	Items           []InvoiceItem `json:"items"`
	Subtotal        float64       `json:"subtotal"`
	CGST            float64       `json:"cgst"`
	SGST            float64       `json:"sgst"`
	IGST            float64       `json:"igst,omitempty"`
	Total           float64       `json:"total"`
	TaxRate         float64       `json:"tax_rate"`
	PaidAmount      float64       `json:"paid_amount"`
	PaymentStatus   string        `json:"payment_status"`
	PaymentMode     PaymentMode   `json:"payment_mode"`
	BillingMode     BillingMode   `json:"billing_mode"`
}

// PendingBalance is the remaining amount due on the invoice, never negative.
func (r InvoiceRecord) PendingBalance() float64 {
	if bal := r.Total - r.PaidAmount; bal > 0 {
		return bal
	}
	return 0
}

// PaymentRecord is the ephemeral payment form state validated client-side
// before submission.
type PaymentRecord struct {
	InvoiceID string  `json:"invoice_id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
}

type SubmitResult struct {
	InvoiceNo   string        `json:"invoice_no"`
	TotalAmount float64       `json:"total_amount"`
	PaidAmount  float64       `json:"paid_amount"`
	Balance     float64       `json:"balance"`
	Record      InvoiceRecord `json:"record"`
}

// SessionSnapshot is the derived cart-sidebar view of a billing session.
type SessionSnapshot struct {
	SessionID     string      `json:"session_id"`
	BillingMode   BillingMode `json:"billing_mode"`
	PaymentMode   PaymentMode `json:"payment_mode"`
	GSTEnabled    bool        `json:"gst_enabled"`
	Customer      *Customer   `json:"customer,omitempty"`
	Lines         []CartLine  `json:"lines"`
	TaxRate       float64     `json:"tax_rate"`
	Subtotal      float64     `json:"subtotal"`
	Tax           float64     `json:"tax"`
	CGST          float64     `json:"cgst"`
	SGST          float64     `json:"sgst"`
	Total         float64     `json:"total"`
	InvoiceNoHint string      `json:"invoice_no_hint,omitempty"`
}

type AddLineRequest struct {
	ProductID string  `json:"product_id"`
	Qty       int     `json:"qty"`
	Discount  float64 `json:"discount"`
}

type UpdateLineRequest struct {
	Qty      *int     `json:"qty,omitempty"`
	Discount *float64 `json:"discount,omitempty"`
}

type SwitchModeRequest struct {
	Mode BillingMode `json:"mode"`
}

type SelectCustomerRequest struct {
	CustomerID  string `json:"customer_id,omitempty"`
	ManualName  string `json:"manual_name,omitempty"`
	ManualPhone string `json:"manual_phone,omitempty"`
	Clear       bool   `json:"clear,omitempty"`
}

type SetPaymentModeRequest struct {
	PaymentMode PaymentMode `json:"payment_mode"`
}

type RecordPaymentRequest struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
}

// InvoiceFilter is the client-side history filter; all predicates compose
// with AND over the normalized list.
type InvoiceFilter struct {
	Query         string     `json:"query,omitempty"`
	PaymentStatus string     `json:"payment_status,omitempty"`
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
}

type Actor struct {
	Username string
	Role     string
}
