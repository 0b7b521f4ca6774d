package taxconfig

import (
	"context"
	"log"
	"sync"
	"time"

	"dukaanbill/backend/internal/backend"
	"dukaanbill/backend/internal/domain"
)

// Provider polls the system of record for tax settings and serves the latest
// successful fetch to billing sessions. A poll failure is logged and swallowed:
// the previous configuration stays in effect, so billing never stalls because
// the settings endpoint is down.
type Provider struct {
	mu      sync.RWMutex
	current domain.TaxConfig
	gen     uint64

	gateway  backend.Client
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func New(gateway backend.Client, seed domain.TaxConfig, interval time.Duration) *Provider {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Provider{
		current:  seed,
		gateway:  gateway,
		interval: interval,
	}
}

// Current returns the latest known tax configuration. Before the first
// successful poll this is the seeded default.
func (p *Provider) Current() domain.TaxConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Start fetches once synchronously, then polls on the interval until Stop.
func (p *Provider) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	p.refresh(ctx, p.nextGen())

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.refresh(ctx, p.nextGen())
			}
		}
	}()
}

func (p *Provider) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *Provider) nextGen() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	return p.gen
}

// refresh applies a fetched configuration only if no newer fetch has already
// landed, so a slow response cannot clobber a fresher one.
func (p *Provider) refresh(ctx context.Context, gen uint64) {
	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg, err := p.gateway.GetTaxConfig(fetchCtx)
	if err != nil {
		log.Printf("[taxconfig] WARN: poll failed, keeping previous settings: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen < p.gen {
		return
	}
	p.current = cfg
}
