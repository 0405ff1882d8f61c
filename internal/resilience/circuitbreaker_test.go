package resilience_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/touchline/internal/resilience"
)

var errEndpoint = errors.New("endpoint unavailable")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock { return &fakeClock{now: time.Date(2015, 10, 24, 18, 45, 0, 0, time.UTC)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func fail(context.Context) error { return errEndpoint }
func pass(context.Context) error { return nil }

func newBreaker(clock *fakeClock) *resilience.Breaker {
	return resilience.NewBreaker(resilience.BreakerConfig{
		Name:        "llm",
		MaxFailures: 2,
		Cooldown:    time.Minute,
		Probes:      2,
		Now:         clock.Now,
	})
}

func trip(t *testing.T, b *resilience.Breaker) {
	t.Helper()
	ctx := context.Background()
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	if b.State() != resilience.StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
}

func TestBreaker_ClosedForwardsCalls(t *testing.T) {
	t.Parallel()

	b := resilience.NewBreaker(resilience.BreakerConfig{Name: "llm"})
	called := false
	err := b.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("Execute: called=%v err=%v", called, err)
	}
	if b.State() != resilience.StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := newBreaker(newClock())
	trip(t, b)

	called := false
	err := b.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn ran while the circuit was open")
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := newBreaker(newClock())
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, pass)
	_ = b.Execute(ctx, fail)
	if b.State() != resilience.StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_CancelledContextIsNotAFailure(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newBreaker(newClock())
	for range 5 {
		err := b.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	}
	if b.State() != resilience.StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_HalfOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		probes []func(context.Context) error
		want   resilience.State
	}{
		{name: "successful probes close", probes: []func(context.Context) error{pass, pass}, want: resilience.StateClosed},
		{name: "one success stays half-open", probes: []func(context.Context) error{pass}, want: resilience.StateHalfOpen},
		{name: "failed probe re-opens", probes: []func(context.Context) error{pass, fail}, want: resilience.StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock := newClock()
			b := newBreaker(clock)
			trip(t, b)

			clock.Advance(59 * time.Second)
			if b.State() != resilience.StateOpen {
				t.Fatalf("state before cooldown = %v, want open", b.State())
			}
			clock.Advance(time.Second)
			if b.State() != resilience.StateHalfOpen {
				t.Fatalf("state after cooldown = %v, want half-open", b.State())
			}

			for _, p := range tt.probes {
				_ = b.Execute(context.Background(), p)
			}
			if got := b.State(); got != tt.want {
				t.Errorf("state = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	t.Parallel()

	clock := newClock()
	b := newBreaker(clock)
	trip(t, b)
	clock.Advance(time.Minute)

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func(context.Context) error {
				started <- struct{}{}
				<-release
				return nil
			})
		}()
	}
	<-started
	<-started

	if err := b.Execute(context.Background(), pass); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("third probe err = %v, want ErrCircuitOpen", err)
	}
	close(release)
	wg.Wait()

	if b.State() != resilience.StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()

	b := newBreaker(newClock())
	trip(t, b)
	b.Reset()
	if b.State() != resilience.StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
	if err := b.Execute(context.Background(), pass); err != nil {
		t.Errorf("Execute after reset: %v", err)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state resilience.State
		want  string
	}{
		{resilience.StateClosed, "closed"},
		{resilience.StateOpen, "open"},
		{resilience.StateHalfOpen, "half-open"},
		{resilience.State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
