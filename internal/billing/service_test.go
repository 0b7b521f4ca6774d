package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"dukaanbill/backend/internal/backend/memory"
	"dukaanbill/backend/internal/domain"
)

type staticTaxes struct {
	cfg domain.TaxConfig
}

func (s staticTaxes) Current() domain.TaxConfig { return s.cfg }

func newTestService(t *testing.T, cfg domain.TaxConfig) (*Service, *memory.Gateway, string) {
	t.Helper()
	gw := memory.NewSeeded()
	svc := New(gw, staticTaxes{cfg: cfg}, nil, time.Hour)
	snap, err := svc.OpenSession(context.Background(), "till-1")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	return svc, gw, snap.SessionID
}

func gstConfig() domain.TaxConfig {
	return domain.TaxConfig{GSTEnabled: true, GSTPercentage: 18, CGSTSGSTEnabled: true, TaxMode: "exclusive"}
}

func TestOpenSessionDefaults(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())

	snap, err := svc.Snapshot(sessionID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.BillingMode != domain.ModeWalkIn {
		t.Fatalf("expected walk-in default, got %s", snap.BillingMode)
	}
	if snap.PaymentMode != domain.PaymentCash {
		t.Fatalf("expected cash default, got %s", snap.PaymentMode)
	}
	if snap.GSTEnabled {
		t.Fatal("GST must start disabled")
	}
	if snap.InvoiceNoHint != "INV-0001" {
		t.Fatalf("expected invoice hint INV-0001, got %q", snap.InvoiceNoHint)
	}
}

func TestModeTransitionTable(t *testing.T) {
	cases := []struct {
		name        string
		sequence    []domain.BillingMode
		wantMode    domain.BillingMode
		wantPayment domain.PaymentMode
		wantGST     bool
	}{
		{"credit forces pending", []domain.BillingMode{domain.ModeCredit}, domain.ModeCredit, domain.PaymentPending, false},
		{"customer after credit resets to cash", []domain.BillingMode{domain.ModeCredit, domain.ModeCustomer}, domain.ModeCustomer, domain.PaymentCash, false},
		{"gst enables tax", []domain.BillingMode{domain.ModeGST}, domain.ModeGST, domain.PaymentCash, true},
		{"nongst disables tax", []domain.BillingMode{domain.ModeGST, domain.ModeNonGST}, domain.ModeNonGST, domain.PaymentCash, false},
		{"walkin resets everything", []domain.BillingMode{domain.ModeCredit, domain.ModeWalkIn}, domain.ModeWalkIn, domain.PaymentCash, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, sessionID := newTestService(t, gstConfig())
			var snap domain.SessionSnapshot
			var err error
			for _, mode := range tc.sequence {
				snap, err = svc.SwitchMode(sessionID, mode)
				if err != nil {
					t.Fatalf("SwitchMode(%s): %v", mode, err)
				}
			}
			if snap.BillingMode != tc.wantMode {
				t.Fatalf("mode = %s, want %s", snap.BillingMode, tc.wantMode)
			}
			if snap.PaymentMode != tc.wantPayment {
				t.Fatalf("payment = %s, want %s", snap.PaymentMode, tc.wantPayment)
			}
			if snap.GSTEnabled != tc.wantGST {
				t.Fatalf("gst = %v, want %v", snap.GSTEnabled, tc.wantGST)
			}
		})
	}
}

func TestSwitchToWalkInDropsCustomer(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())
	ctx := context.Background()

	if _, err := svc.SwitchMode(sessionID, domain.ModeCustomer); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	snap, err := svc.SelectCustomer(ctx, sessionID, domain.SelectCustomerRequest{CustomerID: "cust-01"})
	if err != nil {
		t.Fatalf("SelectCustomer: %v", err)
	}
	if snap.Customer == nil || snap.Customer.Name != "Asha Traders" {
		t.Fatalf("expected persisted customer attached, got %+v", snap.Customer)
	}

	snap, err = svc.SwitchMode(sessionID, domain.ModeWalkIn)
	if err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	if snap.Customer != nil {
		t.Fatalf("walk-in must drop the customer, got %+v", snap.Customer)
	}
}

func TestSnapshotGSTTotals(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())
	ctx := context.Background()

	if _, err := svc.SwitchMode(sessionID, domain.ModeGST); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	// 2 x sugar @44 + 1 x oil @145 with 33 discount = 200 subtotal.
	if _, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-sugar-01", Qty: 2}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	snap, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-oil-01", Qty: 1, Discount: 33})
	if err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	if snap.Subtotal != 200 {
		t.Fatalf("subtotal = %v, want 200", snap.Subtotal)
	}
	if snap.Tax != 36 || snap.Total != 236 {
		t.Fatalf("tax/total = %v/%v, want 36/236", snap.Tax, snap.Total)
	}
	if snap.CGST != 18 || snap.SGST != 18 {
		t.Fatalf("cgst/sgst = %v/%v, want 18/18", snap.CGST, snap.SGST)
	}
}

func TestSnapshotNoTaxOutsideGSTMode(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())
	ctx := context.Background()

	snap, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-sugar-01", Qty: 2})
	if err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if snap.Tax != 0 || snap.Total != snap.Subtotal {
		t.Fatalf("walk-in cart must not carry tax, got tax=%v total=%v", snap.Tax, snap.Total)
	}
}

func TestSubmitEmptyCartNeverReachesBackend(t *testing.T) {
	svc, gw, sessionID := newTestService(t, gstConfig())

	if _, err := svc.Submit(context.Background(), sessionID); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if gw.CreateInvoiceCalls() != 0 {
		t.Fatalf("guard failure must not call the backend, got %d calls", gw.CreateInvoiceCalls())
	}
}

func TestSubmitCreditWithoutCustomerRejected(t *testing.T) {
	svc, gw, sessionID := newTestService(t, gstConfig())
	ctx := context.Background()

	if _, err := svc.SwitchMode(sessionID, domain.ModeCredit); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	if _, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-dal-01", Qty: 1}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	if _, err := svc.Submit(ctx, sessionID); !errors.Is(err, ErrCustomerRequired) {
		t.Fatalf("expected ErrCustomerRequired, got %v", err)
	}
	if gw.CreateInvoiceCalls() != 0 {
		t.Fatalf("guard failure must not call the backend, got %d calls", gw.CreateInvoiceCalls())
	}

	// Cart survives the failed submit for retry.
	snap, err := svc.Snapshot(sessionID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Lines) != 1 {
		t.Fatalf("cart must be preserved on guard failure, got %d lines", len(snap.Lines))
	}
}

func TestSubmitWalkInCashSale(t *testing.T) {
	svc, gw, sessionID := newTestService(t, gstConfig())
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-milk-01", Qty: 3}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	result, err := svc.Submit(ctx, sessionID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.InvoiceNo != "INV-0001" {
		t.Fatalf("invoice no = %q, want INV-0001", result.InvoiceNo)
	}
	if result.TotalAmount != 168 {
		t.Fatalf("total = %v, want 168", result.TotalAmount)
	}
	if result.Balance != 0 {
		t.Fatalf("cash sale balance = %v, want 0", result.Balance)
	}
	if result.Record.CustomerName != "" {
		t.Fatalf("walk-in invoice must carry no customer, got %q", result.Record.CustomerName)
	}
	if result.Record.PaymentStatus != domain.PaymentStatusCompleted {
		t.Fatalf("cash sale must be completed, got %s", result.Record.PaymentStatus)
	}

	// Cart cleared, hint refreshed.
	snap, err := svc.Snapshot(sessionID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Lines) != 0 {
		t.Fatalf("cart must clear after submit, got %d lines", len(snap.Lines))
	}
	if snap.InvoiceNoHint != "INV-0002" {
		t.Fatalf("expected refreshed hint INV-0002, got %q", snap.InvoiceNoHint)
	}

	// Stock decremented server-side.
	product, err := gw.GetProduct(ctx, "prod-milk-01")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if product.Stock != 67 {
		t.Fatalf("stock = %d, want 67", product.Stock)
	}
}

func TestSubmitWalkInForcesCustomerNull(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())
	ctx := context.Background()

	// Attach a customer without leaving WalkIn; the mode invariant must win
	// over the lingering selection at submit time.
	snap, err := svc.SelectCustomer(ctx, sessionID, domain.SelectCustomerRequest{ManualName: "Meena", ManualPhone: "9876512345"})
	if err != nil {
		t.Fatalf("SelectCustomer: %v", err)
	}
	if snap.BillingMode != domain.ModeWalkIn || snap.Customer == nil {
		t.Fatalf("expected walk-in session with customer attached, got %+v", snap)
	}

	if _, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-sugar-01", Qty: 1}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	result, err := svc.Submit(ctx, sessionID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Record.CustomerName != "" {
		t.Fatalf("walk-in draft must carry no customer, got %q", result.Record.CustomerName)
	}
	if result.Record.CustomerPhone != "" {
		t.Fatalf("walk-in draft must carry no customer phone, got %q", result.Record.CustomerPhone)
	}
}

func TestSubmitGSTInvoiceTotals(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())
	ctx := context.Background()

	if _, err := svc.SwitchMode(sessionID, domain.ModeGST); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	if _, err := svc.SelectCustomer(ctx, sessionID, domain.SelectCustomerRequest{CustomerID: "cust-01"}); err != nil {
		t.Fatalf("SelectCustomer: %v", err)
	}
	if _, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-sugar-01", Qty: 2}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if _, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-oil-01", Qty: 1, Discount: 33}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	result, err := svc.Submit(ctx, sessionID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rec := result.Record
	if rec.Subtotal != 200 || rec.Total != 236 {
		t.Fatalf("subtotal/total = %v/%v, want 200/236", rec.Subtotal, rec.Total)
	}
	if rec.CGST != 18 || rec.SGST != 18 {
		t.Fatalf("cgst/sgst = %v/%v, want 18/18", rec.CGST, rec.SGST)
	}
	if rec.CustomerGSTIN != "29AAACA1111A1Z5" {
		t.Fatalf("customer gstin = %q", rec.CustomerGSTIN)
	}

	// GST mode survives the sale; the customer does not.
	snap, err := svc.Snapshot(sessionID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.BillingMode != domain.ModeGST {
		t.Fatalf("expected GST mode preserved after sale, got %s", snap.BillingMode)
	}
	if snap.Customer != nil {
		t.Fatalf("customer must be dropped after sale, got %+v", snap.Customer)
	}
}

func TestSubmitInFlightRejected(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-tea-01", Qty: 1}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	session, err := svc.session(sessionID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if !session.beginSubmit() {
		t.Fatal("beginSubmit should succeed on idle session")
	}
	if _, err := svc.Submit(ctx, sessionID); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	session.endSubmit()

	if _, err := svc.Submit(ctx, sessionID); err != nil {
		t.Fatalf("submit after latch release: %v", err)
	}
}

func TestCreditSaleAndPaymentReconciliation(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())
	ctx := context.Background()

	if _, err := svc.SwitchMode(sessionID, domain.ModeCredit); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	if _, err := svc.SelectCustomer(ctx, sessionID, domain.SelectCustomerRequest{CustomerID: "cust-02"}); err != nil {
		t.Fatalf("SelectCustomer: %v", err)
	}
	if _, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-rice-01", Qty: 1}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	result, err := svc.Submit(ctx, sessionID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Record.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("credit sale must be pending, got %s", result.Record.PaymentStatus)
	}
	if result.Balance != 620 {
		t.Fatalf("balance = %v, want 620", result.Balance)
	}

	// Overpayment rejected without touching the backend record.
	if _, err := svc.RecordPayment(ctx, result.Record.ID, domain.RecordPaymentRequest{Amount: 700, Method: "cash"}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for overpayment, got %v", err)
	}
	if _, err := svc.RecordPayment(ctx, result.Record.ID, domain.RecordPaymentRequest{Amount: -5, Method: "cash"}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative amount, got %v", err)
	}
	if _, err := svc.RecordPayment(ctx, result.Record.ID, domain.RecordPaymentRequest{Amount: 100, Method: "cheque"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for unsupported method, got %v", err)
	}

	// Partial payment keeps pending status.
	updated, err := svc.RecordPayment(ctx, result.Record.ID, domain.RecordPaymentRequest{Amount: 400, Method: "upi"})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("partial payment must stay pending, got %s", updated.PaymentStatus)
	}
	if updated.PendingBalance() != 220 {
		t.Fatalf("balance = %v, want 220", updated.PendingBalance())
	}

	// Settling the balance flips to completed.
	updated, err = svc.RecordPayment(ctx, result.Record.ID, domain.RecordPaymentRequest{Amount: 220, Method: "cash"})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusCompleted {
		t.Fatalf("settled invoice must be completed, got %s", updated.PaymentStatus)
	}
}

func TestSetPaymentModeGuards(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())

	if _, err := svc.SetPaymentMode(sessionID, domain.PaymentPending); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("pending outside credit mode must fail, got %v", err)
	}
	if _, err := svc.SetPaymentMode(sessionID, domain.PaymentUPI); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("walk-in must stay cash only, got %v", err)
	}

	if _, err := svc.SwitchMode(sessionID, domain.ModeCustomer); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	snap, err := svc.SetPaymentMode(sessionID, domain.PaymentUPI)
	if err != nil {
		t.Fatalf("SetPaymentMode: %v", err)
	}
	if snap.PaymentMode != domain.PaymentUPI {
		t.Fatalf("payment = %s, want upi", snap.PaymentMode)
	}
}

func TestManualCustomerOnDraft(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())
	ctx := context.Background()

	if _, err := svc.SwitchMode(sessionID, domain.ModeCustomer); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	snap, err := svc.SelectCustomer(ctx, sessionID, domain.SelectCustomerRequest{ManualName: "  Meena  ", ManualPhone: "9876512345"})
	if err != nil {
		t.Fatalf("SelectCustomer: %v", err)
	}
	if snap.Customer == nil || !snap.Customer.Manual || snap.Customer.Name != "Meena" {
		t.Fatalf("expected trimmed manual customer, got %+v", snap.Customer)
	}

	if _, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-soap-01", Qty: 1}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	result, err := svc.Submit(ctx, sessionID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Record.CustomerName != "Meena" {
		t.Fatalf("manual customer label lost, got %q", result.Record.CustomerName)
	}
}

func TestDeleteInvoiceRefreshesList(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, sessionID, domain.AddLineRequest{ProductID: "prod-atta-01", Qty: 1}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	result, err := svc.Submit(ctx, sessionID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	remaining, err := svc.DeleteInvoice(ctx, result.Record.ID)
	if err != nil {
		t.Fatalf("DeleteInvoice: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty list after delete, got %d", len(remaining))
	}
}

func TestStockExceededOnAdd(t *testing.T) {
	svc, _, sessionID := newTestService(t, gstConfig())

	_, err := svc.AddLine(context.Background(), sessionID, domain.AddLineRequest{ProductID: "prod-milk-01", Qty: 71})
	if err == nil {
		t.Fatal("expected stock error for qty over stock")
	}
}

func TestSessionNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, gstConfig())

	if _, err := svc.Snapshot("sess-missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
