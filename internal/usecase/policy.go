package usecase

import "KellyMux/internal/domain/models"

// Defaults synthesized for clients seen in the data flow before any admin
// registration.
const (
	DefaultMu    = 0.05
	DefaultSigma = 0.20
)

// sigmaEpsilon guards the quadratic denominator: at or below this volatility
// the Kelly fraction is forced to zero instead of blowing up.
const sigmaEpsilon = 1e-6

// scalarClamp bounds any single client's leverage contribution regardless of
// how extreme its reported risk parameters are.
const scalarClamp = 2.0

// UnknownClientPolicy selects what recompute does with a client that has no
// registry entry.
type UnknownClientPolicy string

const (
	// RegisterUnknown auto-registers the client with default parameters.
	RegisterUnknown UnknownClientPolicy = "register"
	// DropUnknown skips the client's contribution with a warning, matching
	// the earlier revision of the recompute policy.
	DropUnknown UnknownClientPolicy = "drop"
)

// AggregateConfig is the process-wide aggregation tunable set.
type AggregateConfig struct {
	KellyFraction  float64
	UnknownClients UnknownClientPolicy
}

// DefaultRiskParams returns the parameters synthesized on auto-registration.
func DefaultRiskParams() models.RiskParams {
	return models.RiskParams{Mu: DefaultMu, Sigma: DefaultSigma}
}

// KellyScalar computes the clamped sizing scalar for one client.
//
// Kelly formula: f = (mu - r) / sigma^2, with r = 0 (assumed embedded in mu
// as excess return). The result is scaled by the global kelly fraction and
// clamped to [-2, 2].
func KellyScalar(params models.RiskParams, kellyFraction float64) float64 {
	raw := 0.0
	if params.Sigma > sigmaEpsilon {
		raw = params.Mu / (params.Sigma * params.Sigma)
	}

	scalar := kellyFraction * raw
	if scalar > scalarClamp {
		scalar = scalarClamp
	}
	if scalar < -scalarClamp {
		scalar = -scalarClamp
	}
	return scalar
}

// accumulateScaled adds weight*scalar for every instrument in the client's
// vector to the running aggregate sums.
func accumulateScaled(agg map[models.Instrument]float64, weights map[models.Instrument]float64, scalar float64) {
	for instrument, weight := range weights {
		agg[instrument] += weight * scalar
	}
}
