// Package render produces the printable HTML invoice document from a
// normalized invoice record plus company details.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"strings"

	"dukaanbill/backend/internal/domain"
	"dukaanbill/backend/internal/words"
)

// Target selects the document variant: screen preview or the print layout
// that fires the browser print dialog on load.
type Target string

const (
	TargetScreen Target = "screen"
	TargetPrint  Target = "print"
)

func ParseTarget(raw string) (Target, error) {
	switch Target(strings.ToLower(strings.TrimSpace(raw))) {
	case TargetScreen, "":
		return TargetScreen, nil
	case TargetPrint:
		return TargetPrint, nil
	}
	return "", fmt.Errorf("unknown render target %q", raw)
}

const minItemRows = 5

type Engine struct {
	backendOrigin string
	tmpl          *template.Template
}

// New builds the engine. backendOrigin is prefixed onto relative logo paths
// so the document resolves images against the system of record, not the
// billing tier.
func New(backendOrigin string) *Engine {
	return &Engine{
		backendOrigin: strings.TrimRight(strings.TrimSpace(backendOrigin), "/"),
		tmpl:          invoiceTmpl,
	}
}

type itemRow struct {
	Index    string
	Name     string
	HSN      string
	Qty      string
	Price    string
	Discount string
	Amount   string
	Blank    bool
}

type invoiceView struct {
	Title    string
	Print    bool
	ShowGST  bool
	ShowHSN  bool
	LogoURL  string
	Company  domain.CompanyDetails
	Invoice  domain.InvoiceRecord
	DateText string

	CustomerLabel   string
	WalkInCustomer  bool
	ShowCustomerIDs bool

	Rows []itemRow

	Subtotal string
	HalfRate string
	CGST     string
	SGST     string
	ShowIGST bool
	IGST     string
	TaxRate  string
	Total    string

	AmountWords string

	Paid        string
	ShowChange  bool
	ChangeDue   string
	ShowBalance bool
	BalanceDue  string
}

// Render produces the invoice document. The amount-in-words line degrades to
// absent when the amount cannot be converted; everything else still renders.
func (e *Engine) Render(rec domain.InvoiceRecord, company domain.CompanyDetails, target Target) ([]byte, error) {
	view := invoiceView{
		Title:       titleFor(rec.BillingMode),
		Print:       target == TargetPrint,
		ShowGST:     rec.BillingMode == domain.ModeGST,
		LogoURL:     e.resolveLogo(company.LogoRef),
		Company:     company,
		Invoice:     rec,
		DateText:    rec.Date.Format("02-Jan-2006 03:04 PM"),
		Subtotal:    FormatINR(rec.Subtotal),
		HalfRate:    trimRate(rec.TaxRate / 2),
		CGST:        FormatINR(rec.CGST),
		SGST:        FormatINR(rec.SGST),
		ShowIGST:    rec.IGST > 0,
		IGST:        FormatINR(rec.IGST),
		TaxRate:     trimRate(rec.TaxRate),
		Total:       FormatINR(rec.Total),
		Paid:        FormatINR(rec.PaidAmount),
	}
	view.ShowHSN = view.ShowGST

	// Walk-in bills always carry the generic label, even when normalized
	// historical data left a residual customer on the record. Contact details
	// only appear in modes where the customer is a real selection; GSTIN and
	// address are meaningful for Customer, Credit and GST bills.
	if rec.BillingMode == domain.ModeWalkIn || rec.CustomerName == "" {
		view.CustomerLabel = "Walk-in Customer"
		view.WalkInCustomer = true
	} else {
		view.CustomerLabel = rec.CustomerName
		switch rec.BillingMode {
		case domain.ModeCustomer, domain.ModeCredit, domain.ModeGST:
			view.ShowCustomerIDs = true
		}
	}

	for i, item := range rec.Items {
		amount := item.Price*float64(item.Qty) - item.Discount
		if amount < 0 {
			amount = 0
		}
		discount := ""
		if item.Discount > 0 {
			discount = FormatINR(item.Discount)
		}
		view.Rows = append(view.Rows, itemRow{
			Index:    fmt.Sprintf("%d", i+1),
			Name:     item.Name,
			HSN:      item.HSN,
			Qty:      fmt.Sprintf("%d", item.Qty),
			Price:    FormatINR(item.Price),
			Discount: discount,
			Amount:   FormatINR(amount),
		})
	}
	for len(view.Rows) < minItemRows {
		view.Rows = append(view.Rows, itemRow{Blank: true})
	}

	if inWords, err := words.AmountInWords(rec.Total); err != nil {
		log.Printf("[render] WARN: amount in words unavailable for %s: %v", rec.InvoiceNo, err)
	} else {
		view.AmountWords = inWords
	}

	if change := rec.PaidAmount - rec.Total; change > 0 {
		view.ShowChange = true
		view.ChangeDue = FormatINR(change)
	}
	if balance := rec.PendingBalance(); balance > 0 {
		view.ShowBalance = true
		view.BalanceDue = FormatINR(balance)
	}

	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", rec.InvoiceNo, err)
	}
	return buf.Bytes(), nil
}

func titleFor(mode domain.BillingMode) string {
	switch mode {
	case domain.ModeGST:
		return "TAX INVOICE"
	case domain.ModeCredit:
		return "INVOICE (PENDING)"
	case domain.ModeNonGST:
		return "ESTIMATE / NON-GST"
	default:
		return "SALES INVOICE"
	}
}

// resolveLogo passes absolute and data URLs through untouched and anchors
// relative paths on the backend origin.
func (e *Engine) resolveLogo(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return ref
	}
	if e.backendOrigin == "" {
		return ref
	}
	return e.backendOrigin + "/" + strings.TrimLeft(ref, "/")
}

// FormatINR renders an amount with Indian digit grouping and two decimals:
// 1234567.5 becomes "12,34,567.50".
func FormatINR(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	intPart := s[:len(s)-3]
	frac := s[len(s)-3:]

	if len(intPart) > 3 {
		head := intPart[:len(intPart)-3]
		tail := intPart[len(intPart)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		intPart = strings.Join(groups, ",") + "," + tail
	}

	if neg {
		return "-" + intPart + frac
	}
	return intPart + frac
}

// trimRate renders tax percentages without trailing zeros: 18, not 18.00,
// while 2.5 stays 2.5.
func trimRate(rate float64) string {
	return fmt.Sprintf("%g", rate)
}
