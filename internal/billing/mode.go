package billing

import (
	"dukaanbill/backend/internal/domain"
)

// ModeState tracks the billing mode of one session together with the fields
// the mode governs: payment mode, GST flag and the selected customer. Only
// Apply mutates the governed fields as a group; there are no implicit
// transitions.
type ModeState struct {
	Mode        domain.BillingMode
	PaymentMode domain.PaymentMode
	GSTEnabled  bool
	Customer    *domain.Customer
}

func NewModeState() ModeState {
	return ModeState{
		Mode:        domain.ModeWalkIn,
		PaymentMode: domain.PaymentCash,
		GSTEnabled:  false,
	}
}

// Apply transitions to the newly selected mode, forcing the dependent fields
// the mode table demands. It never leaves payment mode and GST flag in a
// combination the mode forbids.
func (s *ModeState) Apply(mode domain.BillingMode) {
	switch mode {
	case domain.ModeWalkIn:
		s.PaymentMode = domain.PaymentCash
		s.GSTEnabled = false
		s.Customer = nil
	case domain.ModeCustomer:
		if s.PaymentMode == domain.PaymentPending {
			s.PaymentMode = domain.PaymentCash
		}
	case domain.ModeCredit:
		s.PaymentMode = domain.PaymentPending
	case domain.ModeGST:
		s.GSTEnabled = true
	case domain.ModeNonGST:
		s.GSTEnabled = false
	}
	s.Mode = mode
}

// ResetAfterSale runs after a successful submit. Walk-in-family modes revert
// to a fresh WalkIn state; Customer/Credit/GST are preserved so the operator
// can run consecutive sales in the same mode, though the customer selection
// is always dropped with the finished sale.
func (s *ModeState) ResetAfterSale() {
	s.Customer = nil
	if s.Mode == domain.ModeWalkIn || s.Mode == domain.ModeNonGST {
		*s = NewModeState()
	}
}

// TaxRate resolves the effective tax rate for the session: the configured GST
// percentage when the mode has GST enabled, zero otherwise.
func (s *ModeState) TaxRate(cfg domain.TaxConfig) float64 {
	if !s.GSTEnabled || !cfg.GSTEnabled {
		return 0
	}
	return cfg.GSTPercentage
}
