package usecase

import (
	"context"
	"errors"
	"testing"

	"KellyMux/internal/domain/models"
)

type fakePublisher struct {
	published []models.TargetPortfolio
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, portfolio models.TargetPortfolio) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, portfolio)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeSnapshots struct {
	aggregate models.TargetPortfolio
	hasAgg    bool
	rosterLen int
	err       error
}

func (s *fakeSnapshots) StoreAggregate(_ context.Context, p models.TargetPortfolio) error {
	if s.err != nil {
		return s.err
	}
	s.aggregate, s.hasAgg = p, true
	return nil
}

func (s *fakeSnapshots) LoadAggregate(context.Context) (models.TargetPortfolio, bool, error) {
	return s.aggregate, s.hasAgg, nil
}

func (s *fakeSnapshots) StoreRoster(_ context.Context, clients map[string]models.RiskParams) error {
	if s.err != nil {
		return s.err
	}
	s.rosterLen = len(clients)
	return nil
}

func (s *fakeSnapshots) Close() error { return nil }

type fakeStream struct {
	broadcasts int
}

func (s *fakeStream) Broadcast(models.TargetPortfolio) { s.broadcasts++ }

func newTestHandler(t *testing.T, cfg AggregateConfig) (*PortfolioUpdateHandler, *fakePublisher, *fakeSnapshots, *fakeStream, *fakeMetrics) {
	t.Helper()
	pub := &fakePublisher{}
	snaps := &fakeSnapshots{}
	stream := &fakeStream{}
	m := newFakeMetrics()
	engine := NewEngine(cfg, testLogger(t), m)
	h := NewPortfolioUpdateHandler("portfolio.updates", engine, pub, snaps, stream, m, testLogger(t))
	return h, pub, snaps, stream, m
}

func TestHandlePublishesAggregate(t *testing.T) {
	h, pub, snaps, stream, _ := newTestHandler(t, AggregateConfig{KellyFraction: 0.3})
	h.engine.AddOrUpdateClient("StratA", 0.05, 0.10)

	msg := []byte(`{"owner_id":"StratA","weights":{"stock:AAPL:US":1.0}}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published aggregate, got %d", len(pub.published))
	}
	agg := pub.published[0]
	if agg.OwnerID != AggregateOwnerID {
		t.Fatalf("expected owner %q, got %q", AggregateOwnerID, agg.OwnerID)
	}
	if got := agg.Weights[models.NewInstrument("stock", "AAPL", "US")]; got != 1.5 {
		t.Fatalf("expected AAPL 1.5, got %v", got)
	}
	if stream.broadcasts != 1 {
		t.Fatalf("expected 1 broadcast, got %d", stream.broadcasts)
	}
	if !snaps.hasAgg {
		t.Fatalf("expected aggregate snapshot stored")
	}
	if snaps.rosterLen != 1 {
		t.Fatalf("expected roster snapshot with 1 client, got %d", snaps.rosterLen)
	}
}

func TestHandleRejectsMalformedJSON(t *testing.T) {
	h, pub, _, _, m := newTestHandler(t, AggregateConfig{KellyFraction: 0.3})

	if err := h.Handle(context.Background(), []byte(`{not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if len(pub.published) != 0 {
		t.Fatalf("malformed input must not publish")
	}
	if m.errors["input_unmarshal"] != 1 {
		t.Fatalf("expected input_unmarshal error recorded, got %v", m.errors)
	}
}

func TestHandleRejectsMissingOwner(t *testing.T) {
	h, _, _, _, _ := newTestHandler(t, AggregateConfig{KellyFraction: 0.3})

	err := h.Handle(context.Background(), []byte(`{"weights":{"stock:AAPL:US":1.0}}`))
	if err == nil {
		t.Fatalf("expected missing owner_id error")
	}
}

func TestHandleRejectsOwnAggregate(t *testing.T) {
	h, pub, _, _, _ := newTestHandler(t, AggregateConfig{KellyFraction: 0.3})

	msg := []byte(`{"owner_id":"` + AggregateOwnerID + `","weights":{"stock:AAPL:US":1.0}}`)
	if err := h.Handle(context.Background(), msg); err == nil {
		t.Fatalf("expected loop-guard rejection")
	}
	if len(pub.published) != 0 {
		t.Fatalf("own aggregate must not re-enter the engine")
	}
}

func TestHandlePropagatesPublishFailure(t *testing.T) {
	h, pub, _, _, _ := newTestHandler(t, AggregateConfig{KellyFraction: 0.3})
	pub.err = errors.New("broker down")
	h.engine.AddOrUpdateClient("StratA", 0.05, 0.10)

	msg := []byte(`{"owner_id":"StratA","weights":{"stock:AAPL:US":1.0}}`)
	if err := h.Handle(context.Background(), msg); err == nil {
		t.Fatalf("expected publish error to propagate for retry")
	}
}

func TestHandleSnapshotFailureIsBestEffort(t *testing.T) {
	h, pub, snaps, _, _ := newTestHandler(t, AggregateConfig{KellyFraction: 0.3})
	snaps.err = errors.New("cache down")
	h.engine.AddOrUpdateClient("StratA", 0.05, 0.10)

	msg := []byte(`{"owner_id":"StratA","weights":{"stock:AAPL:US":1.0}}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("snapshot failure must not fail the update: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected publish despite cache outage")
	}
}

func TestHandleDropPolicyEmptyAggregate(t *testing.T) {
	// Sole client unknown under the drop policy: aggregate computes to an
	// empty weight vector but still has the sentinel owner, so it publishes.
	h, pub, _, _, _ := newTestHandler(t, AggregateConfig{KellyFraction: 0.3, UnknownClients: DropUnknown})

	msg := []byte(`{"owner_id":"Mystery","weights":{"stock:AAPL:US":1.0}}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected aggregate published, got %d", len(pub.published))
	}
	if len(pub.published[0].Weights) != 0 {
		t.Fatalf("expected empty weights under drop policy, got %v", pub.published[0].Weights)
	}
}
