package usecase

import (
	"math"
	"sync"
	"testing"

	"KellyMux/internal/domain/models"
	applogger "KellyMux/pkg/logger"
)

type fakeMetrics struct {
	mu         sync.Mutex
	updates    int
	published  int
	rosterSize int
	errors     map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: make(map[string]int)}
}

func (m *fakeMetrics) RecordUpdate(string) {
	m.mu.Lock()
	m.updates++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordAggregatePublished(int) {
	m.mu.Lock()
	m.published++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordClientScalar(string, float64) {}

func (m *fakeMetrics) RecordRosterSize(n int) {
	m.mu.Lock()
	m.rosterSize = n
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testEngine(t *testing.T, cfg AggregateConfig) *Engine {
	t.Helper()
	return NewEngine(cfg, testLogger(t), newFakeMetrics())
}

var (
	aapl = models.NewInstrument("stock", "AAPL", "US")
	tsla = models.NewInstrument("stock", "TSLA", "US")
)

func portfolio(owner string, weights map[models.Instrument]float64) models.TargetPortfolio {
	return models.TargetPortfolio{OwnerID: owner, Weights: weights}
}

func TestEngineTwoClientsSharedInstrument(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3})
	e.AddOrUpdateClient("StratA", 0.05, 0.10) // scalar 1.5
	e.AddOrUpdateClient("StratB", 0.10, 0.20) // scalar 0.75

	e.RecordUpdate(portfolio("StratA", map[models.Instrument]float64{aapl: 1.0}))
	agg := e.RecordUpdate(portfolio("StratB", map[models.Instrument]float64{aapl: 1.0}))

	if agg.OwnerID != AggregateOwnerID {
		t.Fatalf("expected owner %q, got %q", AggregateOwnerID, agg.OwnerID)
	}
	if got := agg.Weights[aapl]; math.Abs(got-2.25) > 1e-9 {
		t.Fatalf("expected AAPL 2.25, got %v", got)
	}
}

func TestEngineEmptyStore(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3})
	e.AddOrUpdateClient("StratA", 0.05, 0.10)

	// Admin-only traffic: no portfolios stored, nothing to publish.
	if got := e.Clients(); len(got) != 1 {
		t.Fatalf("expected 1 registered client, got %d", len(got))
	}
}

func TestEngineFirstUpdateBootstrap(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3})
	e.AddOrUpdateClient("StratA", 0.05, 0.10)

	agg := e.RecordUpdate(portfolio("StratA", map[models.Instrument]float64{}))
	if agg.IsEmpty() {
		t.Fatalf("expected a non-empty aggregate owner for an empty weight vector")
	}
	if len(agg.Weights) != 0 {
		t.Fatalf("expected empty weights, got %v", agg.Weights)
	}
}

func TestEngineAutoRegistersUnknownClient(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3})

	agg := e.RecordUpdate(portfolio("Mystery", map[models.Instrument]float64{aapl: 1.0}))

	// Defaults mu=0.05 sigma=0.20 -> raw 1.25, scaled 0.375.
	if got := agg.Weights[aapl]; math.Abs(got-0.375) > 1e-9 {
		t.Fatalf("expected AAPL 0.375, got %v", got)
	}

	roster := e.Clients()
	p, ok := roster["Mystery"]
	if !ok {
		t.Fatalf("expected auto-registered client in roster")
	}
	if p.Mu != DefaultMu || p.Sigma != DefaultSigma {
		t.Fatalf("expected default params, got %+v", p)
	}

	// A second identical update must produce the identical aggregate: the
	// auto-registration is durable, not re-synthesized per recompute.
	again := e.RecordUpdate(portfolio("Mystery", map[models.Instrument]float64{aapl: 1.0}))
	if again.Weights[aapl] != agg.Weights[aapl] {
		t.Fatalf("aggregate drifted across identical updates: %v then %v",
			agg.Weights[aapl], again.Weights[aapl])
	}
}

func TestEngineDropPolicySkipsUnknownClient(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3, UnknownClients: DropUnknown})
	e.AddOrUpdateClient("StratA", 0.05, 0.10)

	e.RecordUpdate(portfolio("Mystery", map[models.Instrument]float64{aapl: 1.0}))
	agg := e.RecordUpdate(portfolio("StratA", map[models.Instrument]float64{aapl: 1.0}))

	if got := agg.Weights[aapl]; math.Abs(got-1.5) > 1e-9 {
		t.Fatalf("expected only StratA's 1.5, got %v", got)
	}
	if _, ok := e.Clients()["Mystery"]; ok {
		t.Fatalf("drop policy must not register unknown clients")
	}
}

func TestEngineRemoveClientPurgesPortfolio(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3})
	e.AddOrUpdateClient("StratA", 0.05, 0.10)
	e.AddOrUpdateClient("StratB", 0.10, 0.20)

	e.RecordUpdate(portfolio("StratA", map[models.Instrument]float64{aapl: 1.0}))
	e.RecordUpdate(portfolio("StratB", map[models.Instrument]float64{tsla: 1.0}))

	e.RemoveClient("StratB")

	agg := e.RecordUpdate(portfolio("StratA", map[models.Instrument]float64{aapl: 1.0}))
	if _, ok := agg.Weights[tsla]; ok {
		t.Fatalf("removed client's weights leaked into aggregate: %v", agg.Weights)
	}
	if _, ok := e.Clients()["StratB"]; ok {
		t.Fatalf("expected StratB gone from roster")
	}
}

func TestEngineRemoveUnknownClientNoop(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3})
	e.AddOrUpdateClient("StratA", 0.05, 0.10)

	e.RemoveClient("NeverSeen")

	if got := len(e.Clients()); got != 1 {
		t.Fatalf("expected roster untouched, got %d entries", got)
	}
}

func TestEngineUpdateReplacesParams(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3})
	e.AddOrUpdateClient("StratA", 0.05, 0.10)
	e.RecordUpdate(portfolio("StratA", map[models.Instrument]float64{aapl: 1.0}))

	// Lazy semantics: the admin change alone does not recompute, the next
	// data update picks it up.
	e.AddOrUpdateClient("StratA", 0.10, 0.20) // scalar 0.75

	agg := e.RecordUpdate(portfolio("StratA", map[models.Instrument]float64{aapl: 1.0}))
	if got := agg.Weights[aapl]; math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("expected 0.75 after param update, got %v", got)
	}
}

func TestEngineZeroVolatilityClientContributesNothing(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3})
	e.AddOrUpdateClient("Degenerate", 0.50, 0)
	e.AddOrUpdateClient("StratA", 0.05, 0.10)

	e.RecordUpdate(portfolio("Degenerate", map[models.Instrument]float64{aapl: 1.0}))
	agg := e.RecordUpdate(portfolio("StratA", map[models.Instrument]float64{aapl: 1.0}))

	if got := agg.Weights[aapl]; math.Abs(got-1.5) > 1e-9 {
		t.Fatalf("zero-volatility client must contribute 0, got total %v", got)
	}
}

func TestEngineOpposingPositionsCancel(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3})
	e.AddOrUpdateClient("Long", 0.05, 0.10)
	e.AddOrUpdateClient("Short", 0.05, 0.10)

	e.RecordUpdate(portfolio("Long", map[models.Instrument]float64{aapl: 1.0}))
	agg := e.RecordUpdate(portfolio("Short", map[models.Instrument]float64{aapl: -1.0}))

	if got := agg.Weights[aapl]; math.Abs(got) > 1e-9 {
		t.Fatalf("expected net-zero AAPL, got %v", got)
	}
}

func TestEngineUpdateIsolatedFromCaller(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3})
	e.AddOrUpdateClient("StratA", 0.05, 0.10)

	weights := map[models.Instrument]float64{aapl: 1.0}
	e.RecordUpdate(portfolio("StratA", weights))

	// Mutating the caller's map must not affect stored state.
	weights[aapl] = 100.0

	agg := e.RecordUpdate(portfolio("StratB", map[models.Instrument]float64{}))
	if got := agg.Weights[aapl]; math.Abs(got-1.5) > 1e-9 {
		t.Fatalf("stored portfolio was mutated through caller's map: %v", got)
	}
}

func TestEngineConcurrentUpdatesAndAdmin(t *testing.T) {
	e := testEngine(t, AggregateConfig{KellyFraction: 0.3})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('A' + n))
			for j := 0; j < 100; j++ {
				e.AddOrUpdateClient(id, 0.05, 0.10)
				e.RecordUpdate(portfolio(id, map[models.Instrument]float64{aapl: 1.0}))
				if j%10 == 0 {
					e.Clients()
				}
			}
		}(i)
	}
	wg.Wait()

	agg := e.RecordUpdate(portfolio("A", map[models.Instrument]float64{aapl: 1.0}))
	// 8 clients, each scalar 1.5 and weight 1.0.
	if got := agg.Weights[aapl]; math.Abs(got-12.0) > 1e-9 {
		t.Fatalf("expected 12.0 across 8 clients, got %v", got)
	}
}
