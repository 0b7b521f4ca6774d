package backend

import (
	"context"
	"errors"

	"dukaanbill/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrBackend wraps a structured error message returned by the system of
	// record; the message is safe to surface to the operator.
	ErrBackend = errors.New("backend rejected request")
)

// Client is the gateway to the backend system of record. This tier persists
// nothing itself: every catalog read, invoice write and payment goes through
// here, and everything coming back crosses the normalization boundary before
// any other package sees it.
type Client interface {
	GetTaxConfig(ctx context.Context) (domain.TaxConfig, error)
	GetCompanyDetails(ctx context.Context) (domain.CompanyDetails, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
	NextInvoiceNumber(ctx context.Context) (string, error)
	CreateInvoice(ctx context.Context, draft domain.InvoiceDraft) (*domain.InvoiceRecord, error)
	ListInvoices(ctx context.Context) ([]domain.InvoiceRecord, error)
	GetInvoice(ctx context.Context, invoiceID string) (*domain.InvoiceRecord, error)
	DeleteInvoice(ctx context.Context, invoiceID string) error
	RecordPayment(ctx context.Context, payment domain.PaymentRecord) (*domain.InvoiceRecord, error)
}
