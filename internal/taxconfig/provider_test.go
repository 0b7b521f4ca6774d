package taxconfig

import (
	"context"
	"testing"
	"time"

	"dukaanbill/backend/internal/backend/memory"
	"dukaanbill/backend/internal/domain"
)

func TestCurrentBeforeStartReturnsSeed(t *testing.T) {
	seed := domain.TaxConfig{GSTEnabled: true, GSTPercentage: 12}
	p := New(memory.NewSeeded(), seed, time.Minute)

	got := p.Current()
	if got.GSTPercentage != 12 || !got.GSTEnabled {
		t.Fatalf("expected seeded config, got %+v", got)
	}
}

func TestStartFetchesImmediately(t *testing.T) {
	gw := memory.NewSeeded()
	gw.SetTaxConfig(domain.TaxConfig{GSTEnabled: true, GSTPercentage: 5, TaxMode: "exclusive"})

	p := New(gw, domain.TaxConfig{GSTPercentage: 18}, time.Hour)
	p.Start(context.Background())
	defer p.Stop()

	if got := p.Current().GSTPercentage; got != 5 {
		t.Fatalf("expected first poll to replace seed, got rate %v", got)
	}
}

func TestPollPicksUpChange(t *testing.T) {
	gw := memory.NewSeeded()
	p := New(gw, domain.TaxConfig{}, 10*time.Millisecond)
	p.Start(context.Background())
	defer p.Stop()

	gw.SetTaxConfig(domain.TaxConfig{GSTEnabled: true, GSTPercentage: 28})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Current().GSTPercentage == 28 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("poll never observed updated tax rate, got %+v", p.Current())
}

func TestStopTerminatesPolling(t *testing.T) {
	p := New(memory.NewSeeded(), domain.TaxConfig{}, 10*time.Millisecond)
	p.Start(context.Background())
	p.Stop()

	select {
	case <-p.done:
	default:
		t.Fatal("poll goroutine still running after Stop")
	}
}
