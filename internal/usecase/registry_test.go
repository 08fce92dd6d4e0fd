package usecase

import (
	"testing"

	"KellyMux/internal/domain/models"
)

func TestClientRegistryUpsertReplaces(t *testing.T) {
	r := NewClientRegistry()
	r.Upsert("StratA", models.RiskParams{Mu: 0.05, Sigma: 0.10})
	r.Upsert("StratA", models.RiskParams{Mu: 0.10, Sigma: 0.20})

	p, ok := r.Get("StratA")
	if !ok {
		t.Fatalf("expected StratA present")
	}
	if p.Mu != 0.10 || p.Sigma != 0.20 {
		t.Fatalf("expected replaced params, got %+v", p)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", r.Len())
	}
}

func TestClientRegistrySnapshotIsCopy(t *testing.T) {
	r := NewClientRegistry()
	r.Upsert("StratA", models.RiskParams{Mu: 0.05, Sigma: 0.10})

	snap := r.Snapshot()
	snap["StratA"] = models.RiskParams{Mu: 99, Sigma: 99}

	p, _ := r.Get("StratA")
	if p.Mu != 0.05 {
		t.Fatalf("snapshot mutation leaked into registry: %+v", p)
	}
}

func TestPortfolioStorePutOverwrites(t *testing.T) {
	s := NewPortfolioStore()
	inst := models.NewInstrument("stock", "AAPL", "US")

	s.Put(models.TargetPortfolio{OwnerID: "StratA", Weights: map[models.Instrument]float64{inst: 1.0}})
	s.Put(models.TargetPortfolio{OwnerID: "StratA", Weights: map[models.Instrument]float64{inst: -1.0}})

	if s.Len() != 1 {
		t.Fatalf("expected single portfolio per owner, got %d", s.Len())
	}
	s.Each(func(id string, p models.TargetPortfolio) {
		if p.Weights[inst] != -1.0 {
			t.Fatalf("expected latest weights to win, got %v", p.Weights[inst])
		}
	})
}

func TestPortfolioStoreRemove(t *testing.T) {
	s := NewPortfolioStore()
	s.Put(models.TargetPortfolio{OwnerID: "StratA"})
	s.Remove("StratA")
	s.Remove("NeverSeen")

	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}
