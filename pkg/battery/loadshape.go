package battery

import (
	"math"
	"sort"
)

// LoadShape is a precomputed summary of a facility's demand profile.
// Either variant of the selector input reduces to this.
type LoadShape struct {
	PeakKw           float64 `json:"peakKw"`
	P95Kw            float64 `json:"p95Kw"`
	BaseloadKw       float64 `json:"baseloadKw"`
	ShiftWindowHours float64 `json:"shiftWindowHours"` // observed daily above-midpoint window
	Source           string  `json:"source,omitempty"`
}

// minIntervalsForPercentiles is the floor below which p95/p10 are too noisy
// to trust; shorter series fall back to peak/min.
const minIntervalsForPercentiles = 20

// DeriveLoadShape summarizes an interval-kW series.
//
// Percentiles: p95 as the demand reference, p10 as baseload. Non-finite
// and negative samples are dropped (tolerant ingestion). The shift window
// is the average daily hours the load spends above the midpoint between
// baseload and peak - the stretch a battery would plausibly discharge
// across.
//
// Returns nil when no usable samples remain; the caller reports the
// missing input and sizes from fallbacks.
func DeriveLoadShape(intervalKw []float64, intervalMinutes int) *LoadShape {
	samples := make([]float64, 0, len(intervalKw))
	for _, v := range intervalKw {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		samples = append(samples, v)
	}
	if len(samples) == 0 {
		return nil
	}
	if intervalMinutes <= 0 {
		intervalMinutes = 15
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	peak := sorted[len(sorted)-1]
	var p95, baseload float64
	if len(sorted) >= minIntervalsForPercentiles {
		p95 = percentile(sorted, 0.95)
		baseload = percentile(sorted, 0.10)
	} else {
		p95 = peak
		baseload = sorted[0]
	}

	mid := baseload + (peak-baseload)/2
	above := 0
	for _, v := range samples {
		if v > mid {
			above++
		}
	}
	intervalsPerDay := float64(24*60) / float64(intervalMinutes)
	days := float64(len(samples)) / intervalsPerDay
	if days < 1 {
		days = 1
	}
	shiftHours := float64(above) * float64(intervalMinutes) / 60.0 / days

	return &LoadShape{
		PeakKw:           peak,
		P95Kw:            p95,
		BaseloadKw:       baseload,
		ShiftWindowHours: shiftHours,
		Source:           "interval_telemetry",
	}
}

// percentile over a pre-sorted slice, nearest-rank with linear
// interpolation between neighbors.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// SizeTarget derives the deterministic sizing target from a load shape
// under a policy. A nil shape sizes from the policy fallbacks and reports
// the missing input.
func SizeTarget(shape *LoadShape, policy SizingPolicy) SizingTarget {
	var missing []string

	p95 := policy.FallbackP95Kw
	baseload := policy.FallbackBaseloadKw
	duration := policy.DefaultDurationHours

	if shape == nil {
		missing = append(missing,
			"interval kW telemetry or a load-shape summary is required to size storage; using conservative defaults")
	} else {
		switch {
		case shape.P95Kw > 0:
			p95 = shape.P95Kw
		case policy.UsePeakWhenNoP95 && shape.PeakKw > 0:
			p95 = shape.PeakKw
			missing = append(missing,
				"p95 demand unavailable; sized from peak demand instead")
		default:
			missing = append(missing,
				"load shape carries no usable demand statistics; using conservative defaults")
		}
		if shape.BaseloadKw >= 0 && shape.BaseloadKw < p95 {
			baseload = shape.BaseloadKw
		} else {
			baseload = 0
		}
		if shape.ShiftWindowHours > 0 {
			duration = shape.ShiftWindowHours
		} else {
			missing = append(missing,
				"observed shift window unavailable; using default discharge duration")
		}
	}

	duration = clamp(duration, policy.MinDurationHours, policy.MaxDurationHours)
	targetKw := clamp(policy.PeakShaveFraction*(p95-baseload), policy.MinTargetKw, policy.MaxTargetKw)

	return SizingTarget{
		TargetKw:              round1(targetKw),
		TargetDurationHours:   round1(duration),
		TargetKwh:             round1(targetKw * duration),
		RequiredInputsMissing: missing,
	}
}

func clamp(v, lo, hi float64) float64 {
	if lo > 0 && v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

// round1 keeps sizing outputs stable and readable to one decimal.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
