package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrNoProviderConfigured is the only failure the router raises itself;
// adapter errors propagate unmodified.
var ErrNoProviderConfigured = errors.New("no payment provider configured")

// RoutingConfig holds the preferred-provider slots and the ordered fallback
// chain. Writes take effect immediately for subsequent routing decisions.
type RoutingConfig struct {
	Default       string   `json:"default"`
	Crypto        string   `json:"crypto"`
	International string   `json:"international"`
	InPerson      string   `json:"in_person"`
	POS           string   `json:"pos"`
	FallbackChain []string `json:"fallback_chain"`
}

// Stats are read-only routing diagnostics.
type Stats struct {
	TotalRouted   int64            `json:"total_routed"`
	FallbacksUsed int64            `json:"fallbacks_used"`
	ByProvider    map[string]int64 `json:"by_provider"`
}

// ProviderStatus describes one registry entry for the status endpoint.
type ProviderStatus struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

// Router owns the adapter registry and routing policy. A single long-lived
// instance is shared by all request handlers.
type Router struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	keys     []string // registration order, for deterministic listings
	cfg      RoutingConfig

	statsMu       sync.Mutex
	totalRouted   int64
	fallbacksUsed int64
	byProvider    map[string]int64
}

func NewRouter(cfg RoutingConfig, adapters ...Adapter) *Router {
	r := &Router{
		adapters:   make(map[string]Adapter, len(adapters)),
		cfg:        cfg,
		byProvider: make(map[string]int64),
	}
	for _, a := range adapters {
		r.adapters[a.Key()] = a
		r.keys = append(r.keys, a.Key())
	}
	return r
}

// Route turns a PaymentOrder into a PaymentResult using exactly one adapter,
// falling back along the configured chain when the preferred backend is
// unconfigured.
func (r *Router) Route(ctx context.Context, order PaymentOrder) (*PaymentResult, error) {
	adapter, usedFallback, err := r.resolve(order)
	if err != nil {
		return nil, err
	}

	r.recordRouted(adapter.Key(), usedFallback)

	slog.Info("payment_routed",
		"order_id", order.OrderID,
		"provider", adapter.Key(),
		"order_type", string(order.Type),
		"fallback", usedFallback,
	)

	return adapter.CreatePayment(ctx, order)
}

// resolve picks the preferred adapter from the order attributes and applies
// configured-fallback resolution.
func (r *Router) resolve(order PaymentOrder) (Adapter, bool, error) {
	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()

	preferred := cfg.Default
	switch {
	case order.Type == OrderTypeCrypto:
		preferred = cfg.Crypto
	case order.International:
		preferred = cfg.International
	case order.Type == OrderTypeInPerson:
		preferred = cfg.InPerson
	case order.Type == OrderTypePOS:
		preferred = cfg.POS
	}

	if a, ok := r.adapters[preferred]; ok && a.IsConfigured() {
		return a, false, nil
	}

	for _, key := range cfg.FallbackChain {
		if key == preferred {
			continue
		}
		if a, ok := r.adapters[key]; ok && a.IsConfigured() {
			return a, true, nil
		}
	}

	slog.Warn("no_provider_configured",
		"order_id", order.OrderID,
		"preferred", preferred,
	)
	return nil, false, ErrNoProviderConfigured
}

func (r *Router) recordRouted(key string, usedFallback bool) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.totalRouted++
	r.byProvider[key]++
	if usedFallback {
		r.fallbacksUsed++
	}
}

// adapterFor returns the named adapter; the caller must already know which
// backend handled the original transaction.
func (r *Router) adapterFor(key string) (Adapter, error) {
	a, ok := r.adapters[key]
	if !ok {
		return nil, fmt.Errorf("unknown payment provider %q", key)
	}
	return a, nil
}

func (r *Router) Capture(ctx context.Context, intentID, providerKey string) error {
	a, err := r.adapterFor(providerKey)
	if err != nil {
		return err
	}
	return a.Capture(ctx, intentID)
}

func (r *Router) Cancel(ctx context.Context, intentID, providerKey string) error {
	a, err := r.adapterFor(providerKey)
	if err != nil {
		return err
	}
	return a.Cancel(ctx, intentID)
}

func (r *Router) Refund(ctx context.Context, intentID, providerKey string, amount decimal.Decimal) error {
	a, err := r.adapterFor(providerKey)
	if err != nil {
		return err
	}
	return a.Refund(ctx, intentID, amount)
}

func (r *Router) Status(ctx context.Context, intentID, providerKey string) (string, error) {
	a, err := r.adapterFor(providerKey)
	if err != nil {
		return "", err
	}
	return a.Status(ctx, intentID)
}

// HandleDispute dispatches a raw backend webhook payload to the named adapter
// for classification. The router never interprets payloads itself.
func (r *Router) HandleDispute(payload map[string]any, providerKey string) (DisputeOutcome, error) {
	a, err := r.adapterFor(providerKey)
	if err != nil {
		return DisputeOutcome{}, err
	}

	outcome := a.ClassifyDispute(payload)
	slog.Info("dispute_classified",
		"provider", providerKey,
		"dispute_id", outcome.DisputeID,
		"resolution", string(outcome.Resolution),
	)
	return outcome, nil
}

// FeeComparison estimates fees across every registered backend.
func (r *Router) FeeComparison(amount decimal.Decimal) map[string]FeeQuote {
	quotes := make(map[string]FeeQuote, len(r.adapters))
	for key, a := range r.adapters {
		quotes[key] = a.EstimateFees(amount)
	}
	return quotes
}

// ProviderStatuses reports the configuration state of every registered backend.
func (r *Router) ProviderStatuses() map[string]ProviderStatus {
	statuses := make(map[string]ProviderStatus, len(r.adapters))
	for key, a := range r.adapters {
		statuses[key] = ProviderStatus{Name: a.Name(), Configured: a.IsConfigured()}
	}
	return statuses
}

func (r *Router) Config() RoutingConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// SetConfig replaces the routing policy; effective for subsequent calls.
func (r *Router) SetConfig(cfg RoutingConfig) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()

	slog.Info("routing_config_updated",
		"default", cfg.Default,
		"crypto", cfg.Crypto,
		"international", cfg.International,
	)
}

func (r *Router) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	byProvider := make(map[string]int64, len(r.byProvider))
	for k, v := range r.byProvider {
		byProvider[k] = v
	}
	return Stats{
		TotalRouted:   r.totalRouted,
		FallbacksUsed: r.fallbacksUsed,
		ByProvider:    byProvider,
	}
}
