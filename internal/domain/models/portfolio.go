package models

// RiskParams holds a client's annualized risk figures. Entries are replaced
// wholesale on update; there is no partial-field mutation.
type RiskParams struct {
	Mu    float64 `json:"mu"`    // annualized expected return
	Sigma float64 `json:"sigma"` // annualized volatility
}

// TargetPortfolio is one client's desired exposure per instrument.
// Weights are conviction values, conventionally in [-1, 1], but the range is
// not enforced on input.
type TargetPortfolio struct {
	OwnerID string                 `json:"owner_id"`
	Weights map[Instrument]float64 `json:"weights"`
}

// IsEmpty reports whether the portfolio carries no owner, the "nothing to
// publish" signal for engine-produced aggregates.
func (p TargetPortfolio) IsEmpty() bool {
	return p.OwnerID == ""
}

// Clone returns a deep copy so stored snapshots cannot be mutated by callers.
func (p TargetPortfolio) Clone() TargetPortfolio {
	out := TargetPortfolio{OwnerID: p.OwnerID}
	if p.Weights != nil {
		out.Weights = make(map[Instrument]float64, len(p.Weights))
		for k, v := range p.Weights {
			out.Weights[k] = v
		}
	}
	return out
}
