package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter is a deterministic in-memory backend.
type fakeAdapter struct {
	key        string
	configured bool
	failWith   error
	created    int
	lastOrder  PaymentOrder
}

func newFakeAdapter(key string, configured bool) *fakeAdapter {
	return &fakeAdapter{key: key, configured: configured}
}

func (a *fakeAdapter) Key() string        { return a.key }
func (a *fakeAdapter) Name() string       { return a.key }
func (a *fakeAdapter) IsConfigured() bool { return a.configured }

func (a *fakeAdapter) CreatePayment(ctx context.Context, order PaymentOrder) (*PaymentResult, error) {
	a.created++
	a.lastOrder = order
	if a.failWith != nil {
		return nil, a.failWith
	}
	return &PaymentResult{
		Provider: a.key,
		IntentID: a.key + "-intent-1",
		Amount:   order.Amount,
		Currency: order.Currency,
	}, nil
}

func (a *fakeAdapter) Capture(ctx context.Context, intentID string) error { return nil }
func (a *fakeAdapter) Cancel(ctx context.Context, intentID string) error  { return nil }
func (a *fakeAdapter) Refund(ctx context.Context, intentID string, amount decimal.Decimal) error {
	return nil
}
func (a *fakeAdapter) Status(ctx context.Context, intentID string) (string, error) {
	return "settled", nil
}

func (a *fakeAdapter) ClassifyDispute(payload map[string]any) DisputeOutcome {
	return DisputeOutcome{Resolution: DisputeNoAction, DisputeID: stringField(payload, "id")}
}

func (a *fakeAdapter) EstimateFees(amount decimal.Decimal) FeeQuote {
	return percentPlusFlat(amount, decimal.NewFromFloat(0.02), decimal.NewFromFloat(0.25), a.configured)
}

func testConfig() RoutingConfig {
	return RoutingConfig{
		Default:       "card",
		Crypto:        "chain",
		International: "intl",
		InPerson:      "terminal",
		POS:           "terminal",
		FallbackChain: []string{"card", "intl", "terminal"},
	}
}

func order(orderType OrderType, international bool) PaymentOrder {
	return PaymentOrder{
		OrderID:       "ord-1",
		Amount:        decimal.NewFromFloat(42.50),
		Currency:      "USD",
		Type:          orderType,
		International: international,
	}
}

func TestRoute_PreferredByOrderAttributes(t *testing.T) {
	tests := []struct {
		name          string
		orderType     OrderType
		international bool
		want          string
	}{
		{"online goes to default", OrderTypeOnline, false, "card"},
		{"crypto goes to crypto slot", OrderTypeCrypto, false, "chain"},
		{"crypto beats international", OrderTypeCrypto, true, "chain"},
		{"international beats in-person", OrderTypeInPerson, true, "intl"},
		{"in-person goes to terminal", OrderTypeInPerson, false, "terminal"},
		{"pos goes to terminal", OrderTypePOS, false, "terminal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(testConfig(),
				newFakeAdapter("card", true),
				newFakeAdapter("chain", true),
				newFakeAdapter("intl", true),
				newFakeAdapter("terminal", true),
			)

			result, err := r.Route(context.Background(), order(tt.orderType, tt.international))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Provider)
		})
	}
}

func TestRoute_NoFallbackWhenPreferredConfigured(t *testing.T) {
	card := newFakeAdapter("card", true)
	r := NewRouter(testConfig(), card, newFakeAdapter("intl", true))

	_, err := r.Route(context.Background(), order(OrderTypeOnline, false))
	require.NoError(t, err)

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.TotalRouted)
	assert.Equal(t, int64(0), stats.FallbacksUsed)
	assert.Equal(t, int64(1), stats.ByProvider["card"])
	assert.Equal(t, 1, card.created)
}

func TestRoute_FallbackWalksChainInOrder(t *testing.T) {
	r := NewRouter(testConfig(),
		newFakeAdapter("card", false),
		newFakeAdapter("intl", false),
		newFakeAdapter("terminal", true),
	)

	result, err := r.Route(context.Background(), order(OrderTypeOnline, false))
	require.NoError(t, err)
	assert.Equal(t, "terminal", result.Provider)

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.FallbacksUsed)
	assert.Equal(t, int64(1), stats.ByProvider["terminal"])
}

func TestRoute_FallbackSkipsRejectedPreferred(t *testing.T) {
	// "card" is both preferred and first in the chain; it must not be retried
	card := newFakeAdapter("card", false)
	intl := newFakeAdapter("intl", true)
	r := NewRouter(testConfig(), card, intl)

	result, err := r.Route(context.Background(), order(OrderTypeOnline, false))
	require.NoError(t, err)
	assert.Equal(t, "intl", result.Provider)
	assert.Equal(t, 0, card.created)
}

func TestRoute_NoProviderConfigured(t *testing.T) {
	r := NewRouter(testConfig(),
		newFakeAdapter("card", false),
		newFakeAdapter("intl", false),
		newFakeAdapter("terminal", false),
	)

	_, err := r.Route(context.Background(), order(OrderTypeOnline, false))
	assert.ErrorIs(t, err, ErrNoProviderConfigured)
	assert.Equal(t, int64(0), r.Stats().TotalRouted)
}

func TestRoute_CryptoWithOnlyCardConfiguredOutsideChain(t *testing.T) {
	// crypto preference unconfigured and nothing in the chain is configured:
	// routing fails even though a backend exists outside the chain
	cfg := testConfig()
	cfg.FallbackChain = []string{"intl", "terminal"}

	r := NewRouter(cfg,
		newFakeAdapter("card", true),
		newFakeAdapter("chain", false),
		newFakeAdapter("intl", false),
		newFakeAdapter("terminal", false),
	)

	_, err := r.Route(context.Background(), order(OrderTypeCrypto, false))
	assert.ErrorIs(t, err, ErrNoProviderConfigured)
}

func TestRoute_CryptoFallsBackThroughChain(t *testing.T) {
	r := NewRouter(testConfig(),
		newFakeAdapter("card", true),
		newFakeAdapter("chain", false),
	)

	result, err := r.Route(context.Background(), order(OrderTypeCrypto, false))
	require.NoError(t, err)
	assert.Equal(t, "card", result.Provider)
	assert.Equal(t, int64(1), r.Stats().FallbacksUsed)
}

func TestRoute_AdapterErrorPropagatesUnmodified(t *testing.T) {
	backendErr := errors.New("card declined")
	card := newFakeAdapter("card", true)
	card.failWith = backendErr
	r := NewRouter(testConfig(), card)

	_, err := r.Route(context.Background(), order(OrderTypeOnline, false))
	assert.ErrorIs(t, err, backendErr)
}

func TestRouter_LifecycleCallsRequireKnownProvider(t *testing.T) {
	r := NewRouter(testConfig(), newFakeAdapter("card", true))

	require.NoError(t, r.Capture(context.Background(), "intent-1", "card"))

	err := r.Capture(context.Background(), "intent-1", "ghost")
	assert.Error(t, err)

	_, err = r.HandleDispute(map[string]any{}, "ghost")
	assert.Error(t, err)
}

func TestRouter_HandleDisputeDispatchesToNamedAdapter(t *testing.T) {
	r := NewRouter(testConfig(), newFakeAdapter("card", true))

	outcome, err := r.HandleDispute(map[string]any{"id": "dsp-9"}, "card")
	require.NoError(t, err)
	assert.Equal(t, DisputeNoAction, outcome.Resolution)
	assert.Equal(t, "dsp-9", outcome.DisputeID)
}

func TestRouter_FeeComparisonMarksUnconfigured(t *testing.T) {
	r := NewRouter(testConfig(),
		newFakeAdapter("card", true),
		newFakeAdapter("chain", false),
	)

	quotes := r.FeeComparison(decimal.NewFromInt(100))
	require.Len(t, quotes, 2)
	assert.True(t, quotes["card"].Configured)
	assert.False(t, quotes["chain"].Configured)
	assert.Equal(t, "2.25", quotes["card"].Estimated.String())
}

func TestRouter_SetConfigTakesEffectImmediately(t *testing.T) {
	card := newFakeAdapter("card", true)
	intl := newFakeAdapter("intl", true)
	r := NewRouter(testConfig(), card, intl)

	cfg := r.Config()
	cfg.Default = "intl"
	r.SetConfig(cfg)

	result, err := r.Route(context.Background(), order(OrderTypeOnline, false))
	require.NoError(t, err)
	assert.Equal(t, "intl", result.Provider)
	assert.Equal(t, 0, card.created)
}

func TestRouter_ProviderStatuses(t *testing.T) {
	r := NewRouter(testConfig(),
		newFakeAdapter("card", true),
		newFakeAdapter("chain", false),
	)

	statuses := r.ProviderStatuses()
	assert.True(t, statuses["card"].Configured)
	assert.False(t, statuses["chain"].Configured)
}
