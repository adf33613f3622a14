package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a request
// without calling the provider.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the current circuit breaker state.
type CircuitState int

const (
	// CircuitClosed passes requests through normally.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects requests until the cooldown elapses.
	CircuitOpen
	// CircuitHalfOpen lets one probe request test recovery.
	CircuitHalfOpen
)

// circuitBreakerLLM opens after consecutive failures so a dead provider
// fails fast for the remainder of its cooldown instead of burning the
// per-call timeout on every fan-out.
type circuitBreakerLLM struct {
	next CoreLLM

	mu          sync.Mutex
	state       CircuitState
	failures    int
	maxFailures int
	cooldown    time.Duration
	lastFailure time.Time
}

// CircuitBreakerMiddleware opens the circuit after maxFailures consecutive
// errors and probes recovery after cooldown.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &circuitBreakerLLM{
			next:        next,
			state:       CircuitClosed,
			maxFailures: maxFailures,
			cooldown:    cooldown,
		}
	}
}

func (cb *circuitBreakerLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if !cb.allow() {
		return "", 0, 0, ErrCircuitOpen
	}

	response, tokensIn, tokensOut, err := cb.next.DoRequest(ctx, prompt, opts)
	cb.record(err)
	return response, tokensIn, tokensOut, err
}

func (cb *circuitBreakerLLM) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if time.Since(cb.lastFailure) < cb.cooldown {
			return false
		}
		cb.state = CircuitHalfOpen
	}
	return true
}

func (cb *circuitBreakerLLM) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failures = 0
		cb.state = CircuitClosed
		return
	}

	cb.failures++
	cb.lastFailure = time.Now()
	if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

// State returns the current breaker state, for tests and metrics.
func (cb *circuitBreakerLLM) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreakerLLM) GetModel() string { return cb.next.GetModel() }
