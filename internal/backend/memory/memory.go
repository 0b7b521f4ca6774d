package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"dukaanbill/backend/internal/backend"
	"dukaanbill/backend/internal/domain"
	"dukaanbill/backend/internal/xid"
)

// Gateway is a seeded in-memory stand-in for the system of record, used by
// tests and dev mode when BACKEND_BASE_URL is unset. It mirrors the server's
// behavior closely enough to exercise the billing flows: it assigns invoice
// numbers, recomputes totals server-side (rounded to paise, so client totals
// stay provisional) and tracks payments against invoices.
type Gateway struct {
	mu          sync.RWMutex
	taxConfig   domain.TaxConfig
	company     domain.CompanyDetails
	products    map[string]domain.Product
	customers   map[string]domain.Customer
	invoices    map[string]*domain.InvoiceRecord
	invoiceSeq  int
	createCalls int
}

func NewSeeded() *Gateway {
	products := []domain.Product{
		{ID: "prod-atta-01", Name: "Aashirvaad Atta 5kg", HSN: "1101", Price: 265, Stock: 80, Active: true},
		{ID: "prod-rice-01", Name: "Sona Masoori Rice 10kg", HSN: "1006", Price: 620, Stock: 45, Active: true},
		{ID: "prod-oil-01", Name: "Fortune Sunflower Oil 1L", HSN: "1512", Price: 145, Stock: 120, Active: true},
		{ID: "prod-dal-01", Name: "Toor Dal 1kg", HSN: "0713", Price: 160, Stock: 95, Active: true},
		{ID: "prod-tea-01", Name: "Red Label Tea 500g", HSN: "0902", Price: 255, Stock: 60, Active: true},
		{ID: "prod-soap-01", Name: "Lifebuoy Soap 4x100g", HSN: "3401", Price: 112, Stock: 150, Active: true},
		{ID: "prod-sugar-01", Name: "Sugar 1kg", HSN: "1701", Price: 44, Stock: 200, Active: true},
		{ID: "prod-milk-01", Name: "Amul Taaza 1L", HSN: "0401", Price: 56, Stock: 70, Active: true},
	}
	customers := []domain.Customer{
		{ID: "cust-01", Name: "Asha Traders", Phone: "9876500001", GSTIN: "29AAACA1111A1Z5", Address: "14 MG Road, Bengaluru"},
		{ID: "cust-02", Name: "Ravi Kumar", Phone: "9876500002", Address: "8 Gandhi Nagar, Mysuru"},
		{ID: "cust-03", Name: "Sharma Stores", Phone: "9876500003", GSTIN: "29AABCS2222B1Z3", Address: "22 Market Street, Hubli"},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	customerMap := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		customerMap[c.ID] = c
	}

	return &Gateway{
		taxConfig: domain.TaxConfig{
			GSTEnabled:      true,
			GSTPercentage:   18,
			CGSTSGSTEnabled: true,
			TaxMode:         "exclusive",
		},
		company: domain.CompanyDetails{
			Name:    "Dukaan Bill Demo Store",
			Address: "45 Commercial Street, Bengaluru 560001",
			Phone:   "080-22334455",
			Email:   "billing@dukaanbill.example",
			GSTIN:   "29AADCD3333C1Z1",
		},
		products:  productMap,
		customers: customerMap,
		invoices:  make(map[string]*domain.InvoiceRecord),
	}
}

func (g *Gateway) GetTaxConfig(_ context.Context) (domain.TaxConfig, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.taxConfig, nil
}

// SetTaxConfig lets tests and the dev console flip tax settings between polls.
func (g *Gateway) SetTaxConfig(cfg domain.TaxConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.taxConfig = cfg
}

func (g *Gateway) GetCompanyDetails(_ context.Context) (domain.CompanyDetails, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.company, nil
}

func (g *Gateway) ListProducts(_ context.Context) ([]domain.Product, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Product, 0, len(g.products))
	for _, p := range g.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *Gateway) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.products[productID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &p, nil
}

func (g *Gateway) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Customer, 0, len(g.customers))
	for _, c := range g.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *Gateway) GetCustomer(_ context.Context, customerID string) (*domain.Customer, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.customers[customerID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &c, nil
}

func (g *Gateway) NextInvoiceNumber(_ context.Context) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fmt.Sprintf("INV-%04d", g.invoiceSeq+1), nil
}

func (g *Gateway) CreateInvoice(_ context.Context, draft domain.InvoiceDraft) (*domain.InvoiceRecord, error) {
	if len(draft.Lines) == 0 {
		return nil, fmt.Errorf("%w: invoice requires at least one line", backend.ErrBackend)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++

	customerName := strings.TrimSpace(draft.CustomerLabel)
	var customerPhone, customerGSTIN, customerAddress string
	if draft.CustomerID != "" {
		c, ok := g.customers[draft.CustomerID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown customer", backend.ErrBackend)
		}
		customerName = c.Name
		customerPhone = c.Phone
		customerGSTIN = c.GSTIN
		customerAddress = c.Address
	}

	subtotal := 0.0
	items := make([]domain.InvoiceItem, 0, len(draft.Lines))
	for _, line := range draft.Lines {
		p, ok := g.products[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown product %s", backend.ErrBackend, line.ProductID)
		}
		if line.Qty > p.Stock {
			return nil, fmt.Errorf("%w: insufficient stock for %s", backend.ErrBackend, p.Name)
		}
		p.Stock -= line.Qty
		g.products[p.ID] = p

		contribution := line.UnitPrice*float64(line.Qty) - line.Discount
		if contribution < 0 {
			contribution = 0
		}
		subtotal += contribution
		items = append(items, domain.InvoiceItem{
			Name:       line.Name,
			HSN:        line.HSN,
			Qty:        line.Qty,
			Price:      line.UnitPrice,
			Discount:   line.Discount,
			TaxPercent: draft.TaxRate,
		})
	}

	// Server-side rounding to paise; the client figure is provisional.
	subtotal = roundPaise(subtotal)
	tax := roundPaise(subtotal * draft.TaxRate / 100)
	total := roundPaise(subtotal + tax)

	g.invoiceSeq++
	rec := &domain.InvoiceRecord{
		ID:              xid.New("inv"),
		InvoiceNo:       fmt.Sprintf("INV-%04d", g.invoiceSeq),
		Date:            time.Now().UTC(),
		CustomerName:    customerName,
		CustomerPhone:   customerPhone,
		CustomerGSTIN:   customerGSTIN,
		CustomerAddress: customerAddress,
		Items:           items,
		Subtotal:        subtotal,
		CGST:            roundPaise(tax / 2),
		SGST:            roundPaise(tax / 2),
		Total:           total,
		TaxRate:         draft.TaxRate,
		PaymentMode:     draft.PaymentMode,
		BillingMode:     draft.BillingMode,
	}
	if draft.PaymentMode == domain.PaymentPending {
		rec.PaidAmount = 0
		rec.PaymentStatus = domain.PaymentStatusPending
	} else {
		rec.PaidAmount = total
		rec.PaymentStatus = domain.PaymentStatusCompleted
	}

	g.invoices[rec.ID] = rec
	out := *rec
	return &out, nil
}

func (g *Gateway) ListInvoices(_ context.Context) ([]domain.InvoiceRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.InvoiceRecord, 0, len(g.invoices))
	for _, rec := range g.invoices {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (g *Gateway) GetInvoice(_ context.Context, invoiceID string) (*domain.InvoiceRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.invoices[invoiceID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (g *Gateway) DeleteInvoice(_ context.Context, invoiceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.invoices[invoiceID]; !ok {
		return backend.ErrNotFound
	}
	delete(g.invoices, invoiceID)
	return nil
}

func (g *Gateway) RecordPayment(_ context.Context, payment domain.PaymentRecord) (*domain.InvoiceRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.invoices[payment.InvoiceID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	if payment.Amount <= 0 || payment.Amount > rec.PendingBalance() {
		return nil, fmt.Errorf("%w: payment amount out of range", backend.ErrBackend)
	}
	rec.PaidAmount = roundPaise(rec.PaidAmount + payment.Amount)
	if rec.PaidAmount >= rec.Total {
		rec.PaymentStatus = domain.PaymentStatusCompleted
	} else {
		rec.PaymentStatus = domain.PaymentStatusPending
	}
	out := *rec
	return &out, nil
}

// CreateInvoiceCalls reports how many times the system of record was asked to
// create an invoice; tests use it to assert that guard failures never reach
// the network.
func (g *Gateway) CreateInvoiceCalls() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.createCalls
}

func roundPaise(v float64) float64 {
	return math.Round(v*100) / 100
}
