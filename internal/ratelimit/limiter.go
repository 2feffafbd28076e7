package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Rule is a single limit: no more than Limit writes per Window.
type Rule struct {
	Window Window
	Limit  int64
}

// Limiter enforces a set of Rules per namespace over a Store.
type Limiter struct {
	enabled bool
	rules   []Rule
	store   *Store
	mu      sync.Mutex
}

// NewLimiter builds a Limiter. An empty rule set or enabled=false makes
// every CheckAndRecord a no-op allow.
func NewLimiter(enabled bool, rules []Rule, store *Store) *Limiter {
	return &Limiter{enabled: enabled, rules: rules, store: store}
}

// CheckAndRecord checks every rule for namespace and, if none is
// exceeded, records one request against each window atomically with
// respect to other callers of this Limiter.
func (l *Limiter) CheckAndRecord(ctx context.Context, namespace string) (*CheckResult, error) {
	if !l.enabled || len(l.rules) == 0 {
		return &CheckResult{Allowed: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	result, err := l.check(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if !result.Allowed {
		return result, nil
	}

	for _, rule := range l.rules {
		if _, _, err := l.store.IncrementUsage(ctx, namespace, rule.Window, 1); err != nil {
			return nil, fmt.Errorf("ratelimit: record %s/%s: %w", namespace, rule.Window, err)
		}
	}
	return result, nil
}

func (l *Limiter) check(ctx context.Context, namespace string) (*CheckResult, error) {
	result := &CheckResult{Allowed: true, Usages: make([]Usage, 0, len(l.rules))}
	now := time.Now()
	var earliestRetry *time.Time

	for _, rule := range l.rules {
		current, windowEnd, err := l.store.GetUsage(ctx, namespace, rule.Window)
		if err != nil {
			return nil, fmt.Errorf("ratelimit: check %s/%s: %w", namespace, rule.Window, err)
		}
		if windowEnd.Before(now) {
			current, windowEnd = 0, now.Add(rule.Window.Duration())
		}

		remaining := rule.Limit - current
		if remaining < 0 {
			remaining = 0
		}
		result.Usages = append(result.Usages, Usage{
			Window: rule.Window, Current: current, Limit: rule.Limit,
			WindowEnd: windowEnd, Remaining: remaining,
		})

		if current >= rule.Limit {
			result.Allowed = false
			if result.Reason == "" {
				result.Reason = fmt.Sprintf("write limit exceeded for %s window (%d/%d)", rule.Window, current, rule.Limit)
			}
			if earliestRetry == nil || windowEnd.Before(*earliestRetry) {
				earliestRetry = &windowEnd
			}
		}
	}

	if !result.Allowed && earliestRetry != nil {
		if d := time.Until(*earliestRetry); d > 0 {
			result.RetryAfter = &d
		}
	}
	return result, nil
}
