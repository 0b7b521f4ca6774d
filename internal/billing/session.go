package billing

import (
	"sync"
	"time"

	"dukaanbill/backend/internal/cart"
)

// Session is one operator's billing workspace: a cart plus the mode state
// machine plus the next-invoice-number hint. Exactly one cart exists per
// session, so all mutation is serialized through the session mutex.
type Session struct {
	mu             sync.Mutex
	ID             string
	TerminalID     string
	Cart           *cart.Cart
	Mode           ModeState
	InvoiceNoHint  string
	submitInFlight bool
	lastActive     time.Time
}

func newSession(id string, terminalID string) *Session {
	return &Session{
		ID:         id,
		TerminalID: terminalID,
		Cart:       cart.New(),
		Mode:       NewModeState(),
		lastActive: time.Now().UTC(),
	}
}

// withLock runs fn with the session locked and refreshes the idle timestamp.
func (s *Session) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now().UTC()
	return fn()
}

// beginSubmit latches the submit-in-flight flag. A second submit while one is
// pending fails fast instead of double-posting the invoice.
func (s *Session) beginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitInFlight {
		return false
	}
	s.submitInFlight = true
	return true
}

func (s *Session) endSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitInFlight = false
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive.Before(cutoff)
}
