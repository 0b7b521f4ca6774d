package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"dukaanbill/backend/internal/backend"
	"dukaanbill/backend/internal/cache"
	"dukaanbill/backend/internal/domain"
	"dukaanbill/backend/internal/xid"
)

var (
	ErrSessionNotFound  = errors.New("billing session not found")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCustomerRequired = errors.New("customer required for this billing mode")
	ErrSubmitInFlight   = errors.New("submit already in progress")
	ErrInvalidAmount    = errors.New("invalid payment amount")
	ErrInvalidRequest   = errors.New("invalid request")
)

// TaxSource supplies the current tax configuration; satisfied by the
// taxconfig polling provider.
type TaxSource interface {
	Current() domain.TaxConfig
}

const (
	productsCacheKey  = "catalog:products"
	companyCacheKey   = "settings:company"
	catalogCacheTTL   = 30 * time.Second
	companyCacheTTL   = 5 * time.Minute
	defaultSessionTTL = 12 * time.Hour
)

type Service struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	gateway    backend.Client
	taxes      TaxSource
	cache      cache.Cache
	sessionTTL time.Duration
}

func New(gateway backend.Client, taxes TaxSource, cacheStore cache.Cache, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}
	return &Service{
		sessions:   make(map[string]*Session),
		gateway:    gateway,
		taxes:      taxes,
		cache:      cacheStore,
		sessionTTL: sessionTTL,
	}
}

// OpenSession creates a fresh billing session for a terminal. The invoice
// number hint is fetched best-effort: the server re-derives the real number
// at submit time, so a failed hint fetch never blocks billing.
func (s *Service) OpenSession(ctx context.Context, terminalID string) (domain.SessionSnapshot, error) {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		terminalID = "terminal-1"
	}

	session := newSession(xid.New("sess"), terminalID)
	if hint, err := s.gateway.NextInvoiceNumber(ctx); err != nil {
		log.Printf("[billing] WARN: invoice number hint unavailable: %v", err)
	} else {
		session.InvoiceNoHint = hint
	}

	s.mu.Lock()
	s.pruneIdleLocked()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return s.snapshot(session), nil
}

// pruneIdleLocked drops sessions idle past the TTL so abandoned carts do not
// accumulate. Caller holds s.mu.
func (s *Service) pruneIdleLocked() {
	cutoff := time.Now().UTC().Add(-s.sessionTTL)
	for id, session := range s.sessions {
		if session.idleSince(cutoff) {
			delete(s.sessions, id)
		}
	}
}

func (s *Service) session(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *Service) Snapshot(sessionID string) (domain.SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return s.snapshot(session), nil
}

func (s *Service) snapshot(session *Session) domain.SessionSnapshot {
	cfg := s.taxes.Current()

	var snap domain.SessionSnapshot
	_ = session.withLock(func() error {
		rate := session.Mode.TaxRate(cfg)
		subtotal := session.Cart.Subtotal()
		tax := session.Cart.Tax(rate)
		snap = domain.SessionSnapshot{
			SessionID:     session.ID,
			BillingMode:   session.Mode.Mode,
			PaymentMode:   session.Mode.PaymentMode,
			GSTEnabled:    session.Mode.GSTEnabled,
			Customer:      session.Mode.Customer,
			Lines:         session.Cart.Lines(),
			TaxRate:       rate,
			Subtotal:      subtotal,
			Tax:           tax,
			Total:         subtotal + tax,
			InvoiceNoHint: session.InvoiceNoHint,
		}
		if cfg.CGSTSGSTEnabled {
			snap.CGST = tax / 2
			snap.SGST = tax / 2
		}
		return nil
	})
	return snap
}

func (s *Service) AddLine(ctx context.Context, sessionID string, req domain.AddLineRequest) (domain.SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return domain.SessionSnapshot{}, fmt.Errorf("%w: product id required", ErrInvalidRequest)
	}
	if req.Qty < 1 {
		req.Qty = 1
	}

	product, err := s.gateway.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	if !product.Active {
		return domain.SessionSnapshot{}, fmt.Errorf("%w: product is inactive", ErrInvalidRequest)
	}

	if err := session.withLock(func() error {
		return session.Cart.AddLine(*product, req.Qty, req.Discount)
	}); err != nil {
		return domain.SessionSnapshot{}, err
	}
	return s.snapshot(session), nil
}

func (s *Service) UpdateLine(ctx context.Context, sessionID string, productID string, req domain.UpdateLineRequest) (domain.SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	if req.Qty == nil && req.Discount == nil {
		return domain.SessionSnapshot{}, fmt.Errorf("%w: qty or discount required", ErrInvalidRequest)
	}

	// Stock is only consulted for quantity increases; look it up outside the
	// session lock.
	stock := 0
	if req.Qty != nil {
		if product, err := s.gateway.GetProduct(ctx, productID); err == nil {
			stock = product.Stock
		} else if !errors.Is(err, backend.ErrNotFound) {
			return domain.SessionSnapshot{}, err
		}
	}

	if err := session.withLock(func() error {
		if req.Qty != nil {
			if err := session.Cart.SetQty(productID, *req.Qty, stock); err != nil {
				return err
			}
		}
		if req.Discount != nil {
			if err := session.Cart.SetDiscount(productID, *req.Discount); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return domain.SessionSnapshot{}, err
	}
	return s.snapshot(session), nil
}

func (s *Service) RemoveLine(sessionID string, productID string) (domain.SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	if err := session.withLock(func() error {
		return session.Cart.Remove(productID)
	}); err != nil {
		return domain.SessionSnapshot{}, err
	}
	return s.snapshot(session), nil
}

func (s *Service) SwitchMode(sessionID string, mode domain.BillingMode) (domain.SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	if !mode.Valid() {
		return domain.SessionSnapshot{}, fmt.Errorf("%w: unknown billing mode %q", ErrInvalidRequest, mode)
	}
	_ = session.withLock(func() error {
		session.Mode.Apply(mode)
		return nil
	})
	return s.snapshot(session), nil
}

func (s *Service) SelectCustomer(ctx context.Context, sessionID string, req domain.SelectCustomerRequest) (domain.SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	var customer *domain.Customer
	switch {
	case req.Clear:
		customer = nil
	case req.CustomerID != "":
		persisted, err := s.gateway.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return domain.SessionSnapshot{}, err
		}
		customer = persisted
	case strings.TrimSpace(req.ManualName) != "":
		// Walk-in name capture: ephemeral, display label only, no backend id.
		customer = &domain.Customer{
			Name:   strings.TrimSpace(req.ManualName),
			Phone:  strings.TrimSpace(req.ManualPhone),
			Manual: true,
		}
	default:
		return domain.SessionSnapshot{}, fmt.Errorf("%w: customer_id, manual_name or clear required", ErrInvalidRequest)
	}

	_ = session.withLock(func() error {
		session.Mode.Customer = customer
		return nil
	})
	return s.snapshot(session), nil
}

func (s *Service) SetPaymentMode(sessionID string, mode domain.PaymentMode) (domain.SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	if !mode.Valid() {
		return domain.SessionSnapshot{}, fmt.Errorf("%w: unknown payment mode %q", ErrInvalidRequest, mode)
	}

	if err := session.withLock(func() error {
		// Pending is the credit-bill payment state, reachable only through
		// Credit mode; WalkIn stays cash-only per the mode table.
		if mode == domain.PaymentPending && session.Mode.Mode != domain.ModeCredit {
			return fmt.Errorf("%w: pending payment requires credit mode", ErrInvalidRequest)
		}
		if session.Mode.Mode == domain.ModeWalkIn && mode != domain.PaymentCash {
			return fmt.Errorf("%w: walk-in bills are cash only", ErrInvalidRequest)
		}
		if session.Mode.Mode == domain.ModeCredit && mode != domain.PaymentPending {
			return fmt.Errorf("%w: credit bills stay pending until paid", ErrInvalidRequest)
		}
		session.Mode.PaymentMode = mode
		return nil
	}); err != nil {
		return domain.SessionSnapshot{}, err
	}
	return s.snapshot(session), nil
}

func (s *Service) Clear(sessionID string) (domain.SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	_ = session.withLock(func() error {
		session.Cart.Clear()
		return nil
	})
	return s.snapshot(session), nil
}

// Submit converts the session into an InvoiceDraft and posts it to the system
// of record. Guard failures never reach the network. On success the cart is
// cleared, the mode machine resets per its after-sale rule and a fresh
// invoice-number hint is fetched; on failure cart and mode are preserved
// untouched for an operator-initiated retry.
func (s *Service) Submit(ctx context.Context, sessionID string) (domain.SubmitResult, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	if !session.beginSubmit() {
		return domain.SubmitResult{}, ErrSubmitInFlight
	}
	defer session.endSubmit()

	cfg := s.taxes.Current()

	var draft domain.InvoiceDraft
	if err := session.withLock(func() error {
		if session.Cart.Empty() {
			return ErrEmptyCart
		}
		if session.Mode.Mode.RequiresCustomer() && session.Mode.Customer == nil {
			return ErrCustomerRequired
		}

		draft = domain.InvoiceDraft{
			BillingMode:   session.Mode.Mode,
			PaymentMode:   session.Mode.PaymentMode,
			TaxRate:       session.Mode.TaxRate(cfg),
			InvoiceNoHint: session.InvoiceNoHint,
			AttemptID:     xid.New("attempt"),
			Lines:         session.Cart.Lines(),
		}
		if draft.PaymentMode == domain.PaymentPending {
			draft.PaymentStatus = domain.PaymentStatusPending
		} else {
			draft.PaymentStatus = domain.PaymentStatusCompleted
		}

		// The mode invariant wins over a stale customer selection: WalkIn
		// drafts carry no customer even if one is still held locally.
		if session.Mode.Mode != domain.ModeWalkIn && session.Mode.Customer != nil {
			customer := session.Mode.Customer
			if customer.Manual {
				draft.CustomerLabel = customer.Name
			} else {
				draft.CustomerID = customer.ID
			}
		}
		return nil
	}); err != nil {
		return domain.SubmitResult{}, err
	}

	record, err := s.gateway.CreateInvoice(ctx, draft)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	_ = session.withLock(func() error {
		session.Cart.Clear()
		session.Mode.ResetAfterSale()
		return nil
	})
	if hint, err := s.gateway.NextInvoiceNumber(ctx); err != nil {
		log.Printf("[billing] WARN: invoice number hint refresh failed: %v", err)
	} else {
		_ = session.withLock(func() error {
			session.InvoiceNoHint = hint
			return nil
		})
	}

	return domain.SubmitResult{
		InvoiceNo:   record.InvoiceNo,
		TotalAmount: record.Total,
		PaidAmount:  record.PaidAmount,
		Balance:     record.PendingBalance(),
		Record:      *record,
	}, nil
}

// RecordPayment validates the amount against the pending balance, posts the
// payment, then re-fetches the invoice so the server's canonical paid amount
// replaces the optimistic local figure (rounding drift protection).
func (s *Service) RecordPayment(ctx context.Context, invoiceID string, req domain.RecordPaymentRequest) (*domain.InvoiceRecord, error) {
	method := strings.ToLower(strings.TrimSpace(req.Method))
	switch method {
	case "cash", "card", "upi":
	default:
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidRequest, req.Method)
	}

	invoice, err := s.gateway.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if req.Amount <= 0 || req.Amount > invoice.PendingBalance() {
		return nil, ErrInvalidAmount
	}

	updated, err := s.gateway.RecordPayment(ctx, domain.PaymentRecord{
		InvoiceID: invoiceID,
		Amount:    req.Amount,
		Method:    method,
	})
	if err != nil {
		return nil, err
	}

	if canonical, err := s.gateway.GetInvoice(ctx, invoiceID); err != nil {
		log.Printf("[billing] WARN: payment reconciliation re-fetch failed for %s: %v", invoiceID, err)
	} else {
		updated = canonical
	}
	return updated, nil
}

func (s *Service) ListInvoices(ctx context.Context) ([]domain.InvoiceRecord, error) {
	return s.gateway.ListInvoices(ctx)
}

func (s *Service) GetInvoice(ctx context.Context, invoiceID string) (*domain.InvoiceRecord, error) {
	return s.gateway.GetInvoice(ctx, invoiceID)
}

// DeleteInvoice forwards the destructive call and returns the refreshed list;
// local removal alone is never trusted as final state.
func (s *Service) DeleteInvoice(ctx context.Context, invoiceID string) ([]domain.InvoiceRecord, error) {
	if err := s.gateway.DeleteInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.gateway.ListInvoices(ctx)
}

// Products returns the catalog, cached briefly so the billing grid does not
// hammer the backend on every keystroke.
func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	if payload, ok, err := s.cache.Get(ctx, productsCacheKey); err == nil && ok {
		var products []domain.Product
		if err := json.Unmarshal(payload, &products); err == nil {
			return products, nil
		}
	}

	products, err := s.gateway.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(products); err == nil {
		if err := s.cache.Set(ctx, productsCacheKey, payload, catalogCacheTTL); err != nil {
			log.Printf("[billing] WARN: product cache write failed: %v", err)
		}
	}
	return products, nil
}

func (s *Service) Customers(ctx context.Context) ([]domain.Customer, error) {
	return s.gateway.ListCustomers(ctx)
}

// CompanyDetails is cached: rendering reads it on every invoice document.
func (s *Service) CompanyDetails(ctx context.Context) (domain.CompanyDetails, error) {
	if payload, ok, err := s.cache.Get(ctx, companyCacheKey); err == nil && ok {
		var details domain.CompanyDetails
		if err := json.Unmarshal(payload, &details); err == nil {
			return details, nil
		}
	}

	details, err := s.gateway.GetCompanyDetails(ctx)
	if err != nil {
		return domain.CompanyDetails{}, err
	}
	if payload, err := json.Marshal(details); err == nil {
		if err := s.cache.Set(ctx, companyCacheKey, payload, companyCacheTTL); err != nil {
			log.Printf("[billing] WARN: company cache write failed: %v", err)
		}
	}
	return details, nil
}

func (s *Service) TaxConfig() domain.TaxConfig {
	return s.taxes.Current()
}
