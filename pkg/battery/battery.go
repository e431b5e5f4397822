// Package battery screens a hardware catalog for battery-storage fit
// against a facility's load shape.
//
// The pipeline is deterministic end to end:
//
//	telemetry or load shape -> sizing target -> disqualify -> score -> rank
//
// Sizing derives a target power (a bounded fraction of p95-minus-baseload
// demand), a target duration from observed shift windows, and the implied
// target energy. Candidates with physically invalid ratings or violated
// constraints are hard-disqualified; survivors get a weighted fit score
// whose sub-scores penalize both under- and over-sizing via a log-ratio
// match. The final ranking is a total order: fit score descending, fewer
// disqualifiers, then vendor+SKU lexical.
//
// Missing inputs never fail the run. They surface as explicit
// requiredInputsMissing strings and the sizing falls back to conservative
// defaults, so the ranking stays useful while loudly unquantified.
//
// All sizing constants are named, overridable fields on SizingPolicy - v1
// policy values, not derived numbers.
package battery

import "fmt"

// LibraryItem is one hardware catalog entry.
//
// Ratings are nameplate values as published by the vendor. SOC bounds and
// round-trip efficiency are fractions in [0,1].
type LibraryItem struct {
	Vendor              string  `yaml:"vendor" json:"vendor"`
	SKU                 string  `yaml:"sku" json:"sku"`
	Chemistry           string  `yaml:"chemistry,omitempty" json:"chemistry,omitempty"`
	RatedPowerKw        float64 `yaml:"ratedPowerKw" json:"ratedPowerKw"`
	RatedEnergyKwh      float64 `yaml:"ratedEnergyKwh" json:"ratedEnergyKwh"`
	RoundTripEfficiency float64 `yaml:"roundTripEfficiency" json:"roundTripEfficiency"`
	MinSOC              float64 `yaml:"minSoc" json:"minSoc"`
	MaxSOC              float64 `yaml:"maxSoc" json:"maxSoc"`
	MaxCRate            float64 `yaml:"maxCRate,omitempty" json:"maxCRate,omitempty"`
	FootprintSqft       float64 `yaml:"footprintSqft,omitempty" json:"footprintSqft,omitempty"`
	BackupCapable       bool    `yaml:"backupCapable,omitempty" json:"backupCapable,omitempty"`
}

// CRate returns rated power over rated energy, or 0 when energy is not
// positive (that case disqualifies on its own).
func (it LibraryItem) CRate() float64 {
	if it.RatedEnergyKwh <= 0 {
		return 0
	}
	return it.RatedPowerKw / it.RatedEnergyKwh
}

// UsableEnergyKwh is the rated energy restricted to the SOC window.
func (it LibraryItem) UsableEnergyKwh() float64 {
	window := it.MaxSOC - it.MinSOC
	if window <= 0 || window > 1 {
		return 0
	}
	return it.RatedEnergyKwh * window
}

// SizingPolicy carries the named v1 sizing constants. Every field is
// overridable by the caller; DefaultSizingPolicy returns the stock values.
type SizingPolicy struct {
	// PeakShaveFraction of (p95 - baseload) demand becomes target power.
	PeakShaveFraction float64

	// UsePeakWhenNoP95 falls back to peak demand when the shape has no
	// p95 (too few intervals).
	UsePeakWhenNoP95 bool

	// Duration bounds and default, in hours.
	DefaultDurationHours float64
	MinDurationHours     float64
	MaxDurationHours     float64

	// Target power bounds, in kW.
	MinTargetKw float64
	MaxTargetKw float64

	// Conservative fallbacks when no telemetry or load shape exists.
	FallbackP95Kw      float64
	FallbackBaseloadKw float64

	// Fit score weights (normalized at scoring time).
	PowerWeight      float64
	EnergyWeight     float64
	EfficiencyWeight float64
}

// DefaultSizingPolicy returns the stock v1 policy.
func DefaultSizingPolicy() SizingPolicy {
	return SizingPolicy{
		PeakShaveFraction:    0.35,
		UsePeakWhenNoP95:     true,
		DefaultDurationHours: 2.0,
		MinDurationHours:     1.5,
		MaxDurationHours:     4.0,
		MinTargetKw:          10,
		MaxTargetKw:          10_000,
		FallbackP95Kw:        100,
		FallbackBaseloadKw:   40,
		PowerWeight:          0.4,
		EnergyWeight:         0.4,
		EfficiencyWeight:     0.2,
	}
}

// Constraints are site-level screening rules applied to every candidate.
type Constraints struct {
	BlockedVendors     []string `yaml:"blockedVendors,omitempty" json:"blockedVendors,omitempty"`
	BlockedChemistries []string `yaml:"blockedChemistries,omitempty" json:"blockedChemistries,omitempty"`
	RequireBackup      bool     `yaml:"requireBackup,omitempty" json:"requireBackup,omitempty"`
	MaxFootprintSqft   float64  `yaml:"maxFootprintSqft,omitempty" json:"maxFootprintSqft,omitempty"`
}

// SizingTarget is the deterministic sizing result the screen runs against.
type SizingTarget struct {
	TargetKw              float64  `json:"targetKw"`
	TargetDurationHours   float64  `json:"targetDurationHours"`
	TargetKwh             float64  `json:"targetKwh"`
	RequiredInputsMissing []string `json:"requiredInputsMissing,omitempty"`
}

// CandidateExplain breaks a fit score into its sub-scores.
type CandidateExplain struct {
	PowerMatch      float64 `json:"powerMatch"`
	EnergyMatch     float64 `json:"energyMatch"`
	EfficiencyScore float64 `json:"efficiencyScore"`
	Summary         string  `json:"summary"`
}

// CandidateResult is one catalog entry's screening outcome.
//
// A candidate with any disqualifier carries FitScore 0, which is what
// guarantees a disqualified unit never outranks a clean one.
type CandidateResult struct {
	Item          LibraryItem      `json:"item"`
	FitScore      float64          `json:"fitScore"`
	Disqualifiers []string         `json:"disqualifiers,omitempty"`
	Explain       CandidateExplain `json:"explain"`
}

func (r CandidateResult) disqualified() bool {
	return len(r.Disqualifiers) > 0
}

func (r CandidateResult) sortKey() string {
	return r.Item.Vendor + "\x00" + r.Item.SKU
}

func summarize(it LibraryItem, target SizingTarget, power, energy float64) string {
	return fmt.Sprintf("%s %s: %.0f kW / %.0f kWh usable vs target %.0f kW / %.0f kWh (power match %.2f, energy match %.2f)",
		it.Vendor, it.SKU, it.RatedPowerKw, it.UsableEnergyKwh(),
		target.TargetKw, target.TargetKwh, power, energy)
}
