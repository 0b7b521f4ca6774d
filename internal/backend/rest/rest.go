package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dukaanbill/backend/internal/backend"
	"dukaanbill/backend/internal/domain"
)

// Gateway talks JSON over HTTP to the system of record. Responses carrying
// invoices are decoded as raw maps and pushed through the normalization
// boundary before leaving this package.
type Gateway struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) (*Gateway, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("backend base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	return &Gateway{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

func (g *Gateway) GetTaxConfig(ctx context.Context) (domain.TaxConfig, error) {
	var cfg domain.TaxConfig
	if err := g.do(ctx, http.MethodGet, "/api/v1/settings/tax", nil, &cfg); err != nil {
		return domain.TaxConfig{}, err
	}
	return cfg, nil
}

func (g *Gateway) GetCompanyDetails(ctx context.Context) (domain.CompanyDetails, error) {
	var details domain.CompanyDetails
	if err := g.do(ctx, http.MethodGet, "/api/v1/settings/company", nil, &details); err != nil {
		return domain.CompanyDetails{}, err
	}
	return details, nil
}

func (g *Gateway) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var payload struct {
		Products []domain.Product `json:"products"`
	}
	if err := g.do(ctx, http.MethodGet, "/api/v1/products", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

func (g *Gateway) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var payload struct {
		Product domain.Product `json:"product"`
	}
	if err := g.do(ctx, http.MethodGet, "/api/v1/products/"+url.PathEscape(productID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload.Product, nil
}

func (g *Gateway) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var payload struct {
		Customers []domain.Customer `json:"customers"`
	}
	if err := g.do(ctx, http.MethodGet, "/api/v1/customers", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Customers, nil
}

func (g *Gateway) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	var payload struct {
		Customer domain.Customer `json:"customer"`
	}
	if err := g.do(ctx, http.MethodGet, "/api/v1/customers/"+url.PathEscape(customerID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload.Customer, nil
}

// NextInvoiceNumber fetches the display hint for the upcoming invoice. The
// server re-derives the authoritative number at submission time, so failures
// here are not fatal to billing.
func (g *Gateway) NextInvoiceNumber(ctx context.Context) (string, error) {
	var payload struct {
		InvoiceNumber string `json:"invoice_number"`
		NextNumber    string `json:"next_number"`
	}
	if err := g.do(ctx, http.MethodGet, "/api/v1/invoices/next-number", nil, &payload); err != nil {
		return "", err
	}
	if payload.InvoiceNumber != "" {
		return payload.InvoiceNumber, nil
	}
	return payload.NextNumber, nil
}

func (g *Gateway) CreateInvoice(ctx context.Context, draft domain.InvoiceDraft) (*domain.InvoiceRecord, error) {
	var raw map[string]any
	if err := g.do(ctx, http.MethodPost, "/api/v1/invoices", draft, &raw); err != nil {
		return nil, err
	}
	rec := backend.NormalizeInvoice(unwrap(raw, "invoice"))
	return &rec, nil
}

func (g *Gateway) ListInvoices(ctx context.Context) ([]domain.InvoiceRecord, error) {
	var payload struct {
		Invoices []map[string]any `json:"invoices"`
	}
	if err := g.do(ctx, http.MethodGet, "/api/v1/invoices", nil, &payload); err != nil {
		return nil, err
	}
	records := make([]domain.InvoiceRecord, 0, len(payload.Invoices))
	for _, raw := range payload.Invoices {
		records = append(records, backend.NormalizeInvoice(raw))
	}
	return records, nil
}

func (g *Gateway) GetInvoice(ctx context.Context, invoiceID string) (*domain.InvoiceRecord, error) {
	var raw map[string]any
	if err := g.do(ctx, http.MethodGet, "/api/v1/invoices/"+url.PathEscape(invoiceID), nil, &raw); err != nil {
		return nil, err
	}
	rec := backend.NormalizeInvoice(unwrap(raw, "invoice"))
	return &rec, nil
}

func (g *Gateway) DeleteInvoice(ctx context.Context, invoiceID string) error {
	return g.do(ctx, http.MethodDelete, "/api/v1/invoices/"+url.PathEscape(invoiceID), nil, nil)
}

func (g *Gateway) RecordPayment(ctx context.Context, payment domain.PaymentRecord) (*domain.InvoiceRecord, error) {
	var raw map[string]any
	if err := g.do(ctx, http.MethodPost, "/api/v1/payments", payment, &raw); err != nil {
		return nil, err
	}
	rec := backend.NormalizeInvoice(unwrap(raw, "invoice"))
	return &rec, nil
}

// unwrap tolerates both enveloped ({"invoice": {...}}) and bare payloads.
func unwrap(raw map[string]any, key string) map[string]any {
	if nested, ok := raw[key].(map[string]any); ok {
		return nested
	}
	return raw
}

func (g *Gateway) do(ctx context.Context, method string, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return backend.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s", backend.ErrBackend, extractErrorMessage(resp.Body, resp.StatusCode))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractErrorMessage pulls the structured error field out of a failure body
// when present, else returns a generic status-based message.
func extractErrorMessage(body io.Reader, status int) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fmt.Sprintf("status %d", status)
}
