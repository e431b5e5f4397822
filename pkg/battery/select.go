package battery

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Input is the shared contract for the selector's two input variants:
// raw interval telemetry, or a precomputed load-shape summary. When both
// are present the explicit shape wins.
type Input struct {
	IntervalKw      []float64
	IntervalMinutes int
	Shape           *LoadShape
}

// Selection is one full screening run over a catalog.
type Selection struct {
	Target     SizingTarget      `json:"target"`
	Candidates []CandidateResult `json:"candidates"`

	// RequiredInputsMissing aggregates sizing-level missing inputs for the
	// assembler to merge with gate-level strings.
	RequiredInputsMissing []string `json:"requiredInputsMissing,omitempty"`
}

// Select runs the full deterministic pipeline: sizing, disqualification,
// scoring, ranking.
//
// The returned candidate order is total for fixed inputs: fit score
// descending, then fewer disqualifiers, then vendor+SKU lexical. Running
// twice over the same inputs yields the same bytes.
func Select(in Input, catalog []LibraryItem, cons Constraints, policy SizingPolicy) Selection {
	shape := in.Shape
	if shape == nil && len(in.IntervalKw) > 0 {
		shape = DeriveLoadShape(in.IntervalKw, in.IntervalMinutes)
	}

	target := SizeTarget(shape, policy)

	results := make([]CandidateResult, 0, len(catalog))
	for _, item := range catalog {
		results = append(results, screen(item, target, cons, policy))
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.FitScore != b.FitScore {
			return a.FitScore > b.FitScore
		}
		if len(a.Disqualifiers) != len(b.Disqualifiers) {
			return len(a.Disqualifiers) < len(b.Disqualifiers)
		}
		return a.sortKey() < b.sortKey()
	})

	return Selection{
		Target:                target,
		Candidates:            results,
		RequiredInputsMissing: target.RequiredInputsMissing,
	}
}

// screen evaluates one catalog entry against the target and constraints.
func screen(item LibraryItem, target SizingTarget, cons Constraints, policy SizingPolicy) CandidateResult {
	var dq []string

	if item.RatedPowerKw <= 0 || math.IsNaN(item.RatedPowerKw) || math.IsInf(item.RatedPowerKw, 0) {
		dq = append(dq, "invalid rated power")
	}
	if item.RatedEnergyKwh <= 0 || math.IsNaN(item.RatedEnergyKwh) || math.IsInf(item.RatedEnergyKwh, 0) {
		dq = append(dq, "invalid rated energy")
	}
	if item.RoundTripEfficiency <= 0 || item.RoundTripEfficiency > 1 {
		dq = append(dq, "invalid round-trip efficiency")
	}
	if item.MinSOC < 0 || item.MaxSOC > 1 || item.MinSOC >= item.MaxSOC {
		dq = append(dq, "invalid SOC bounds")
	}
	if item.MaxCRate > 0 && item.RatedEnergyKwh > 0 && item.CRate() > item.MaxCRate {
		dq = append(dq, fmt.Sprintf("C-rate %.2f exceeds declared max %.2f", item.CRate(), item.MaxCRate))
	}
	if containsFold(cons.BlockedVendors, item.Vendor) {
		dq = append(dq, fmt.Sprintf("vendor %s is blocked", item.Vendor))
	}
	if containsFold(cons.BlockedChemistries, item.Chemistry) {
		dq = append(dq, fmt.Sprintf("chemistry %s is blocked", item.Chemistry))
	}
	if cons.RequireBackup && !item.BackupCapable {
		dq = append(dq, "backup capability required")
	}
	if cons.MaxFootprintSqft > 0 && item.FootprintSqft > cons.MaxFootprintSqft {
		dq = append(dq, fmt.Sprintf("footprint %.0f sqft exceeds limit %.0f sqft", item.FootprintSqft, cons.MaxFootprintSqft))
	}

	if len(dq) > 0 {
		// Hard disqualification: no score, so a disqualified unit can
		// never outrank a clean one.
		return CandidateResult{Item: item, FitScore: 0, Disqualifiers: dq}
	}

	power := logRatioMatch(item.RatedPowerKw, target.TargetKw)
	energy := logRatioMatch(item.UsableEnergyKwh(), target.TargetKwh)
	eff := clamp01(item.RoundTripEfficiency)

	wSum := policy.PowerWeight + policy.EnergyWeight + policy.EfficiencyWeight
	if wSum <= 0 {
		wSum = 1
	}
	score := (policy.PowerWeight*power + policy.EnergyWeight*energy + policy.EfficiencyWeight*eff) / wSum

	return CandidateResult{
		Item:     item,
		FitScore: clamp01(score),
		Explain: CandidateExplain{
			PowerMatch:      power,
			EnergyMatch:     energy,
			EfficiencyScore: eff,
			Summary:         summarize(item, target, power, energy),
		},
	}
}

// logRatioMatch scores how well actual matches target: 1.0 at exact match,
// falling off symmetrically for under- and over-sizing, 0 at a factor of e
// or beyond. Both directions are penalized equally because an oversized
// unit wastes capital just as an undersized one misses the shave.
func logRatioMatch(actual, target float64) float64 {
	if actual <= 0 || target <= 0 {
		return 0
	}
	return clamp01(1 - math.Abs(math.Log(actual/target)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func containsFold(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
