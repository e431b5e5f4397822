package measures

import (
	"fmt"

	"github.com/everwatt/evercore/pkg/graph"
)

// Requirement is one fact a measure type needs before any quantitative
// claim about it is defensible.
//
// A requirement is satisfied when every non-empty criterion holds against
// the target project graph:
//   - Telemetry: the named telemetry kind is available
//   - AssetType: at least one asset of the type exists
//   - AssetProperty: at least one asset of AssetType carries the property
//
// Description is the literal string reported when the requirement is unmet.
// It is written for humans; downstream code must never parse it.
type Requirement struct {
	Description   string
	Telemetry     string
	AssetType     string
	AssetProperty string
}

// Registry maps canonical measure types to their static requirement lists.
// It is immutable constant data passed into MissingInputs, never a
// singleton with mutable state.
type Registry map[string][]Requirement

// DefaultRequirements returns the v1 requirement registry.
func DefaultRequirements() Registry {
	return Registry{
		LEDLightingRetrofit: {
			{Description: "lighting fixture inventory is required (no lighting_fixture assets on record)",
				AssetType: "lighting_fixture"},
			{Description: "fixture wattage is required (wattage property on lighting_fixture assets)",
				AssetType: "lighting_fixture", AssetProperty: "wattage"},
		},
		LightingControls: {
			{Description: "lighting fixture inventory is required (no lighting_fixture assets on record)",
				AssetType: "lighting_fixture"},
			{Description: "occupancy schedule telemetry is required (bas_trend)",
				Telemetry: "bas_trend"},
		},
		HVACScheduling: {
			{Description: "BAS trend data is required to verify current schedules (bas_trend)",
				Telemetry: "bas_trend"},
			{Description: "air handler inventory is required (no ahu assets on record)",
				AssetType: "ahu"},
		},
		VFDRetrofit: {
			{Description: "15-minute interval kW data is required to size drive savings (interval_kw)",
				Telemetry: "interval_kw"},
			{Description: "motor horsepower ratings are required (hp property on motor assets)",
				AssetType: "motor", AssetProperty: "hp"},
		},
		PumpVFD: {
			{Description: "pump inventory is required (no pump assets on record)",
				AssetType: "pump"},
			{Description: "pump motor horsepower is required (hp property on pump assets)",
				AssetType: "pump", AssetProperty: "hp"},
			{Description: "15-minute interval kW data is required to size drive savings (interval_kw)",
				Telemetry: "interval_kw"},
		},
		ChillerReplacement: {
			{Description: "chiller inventory is required (no chiller assets on record)",
				AssetType: "chiller"},
			{Description: "chiller capacity is required (tons property on chiller assets)",
				AssetType: "chiller", AssetProperty: "tons"},
			{Description: "cooling season interval data is required (interval_kw)",
				Telemetry: "interval_kw"},
		},
		BoilerReplacement: {
			{Description: "boiler inventory is required (no boiler assets on record)",
				AssetType: "boiler"},
			{Description: "gas meter data is required to establish heating baseline (gas_meter)",
				Telemetry: "gas_meter"},
		},
		SteamOptimization: {
			{Description: "boiler inventory is required (no boiler assets on record)",
				AssetType: "boiler"},
			{Description: "gas meter data is required to establish steam baseline (gas_meter)",
				Telemetry: "gas_meter"},
		},
		SteamTrapRepair: {
			{Description: "steam trap survey is required (no steam_trap assets on record)",
				AssetType: "steam_trap"},
		},
		BuildingEnvelope: {
			{Description: "weather-normalized utility history is required (monthly_utility)",
				Telemetry: "monthly_utility"},
		},
		DemandResponse: {
			{Description: "15-minute interval kW data is required to evaluate curtailable load (interval_kw)",
				Telemetry: "interval_kw"},
		},
		BatteryStorage: {
			{Description: "15-minute interval kW data is required to derive the load shape (interval_kw)",
				Telemetry: "interval_kw"},
			{Description: "utility tariff with demand charges is required (tariff)",
				Telemetry: "tariff"},
		},
		SolarPV: {
			{Description: "monthly utility history is required to size the array (monthly_utility)",
				Telemetry: "monthly_utility"},
		},
		RetroCommissioning: {
			{Description: "BAS trend data is required for functional testing (bas_trend)",
				Telemetry: "bas_trend"},
		},
		BASUpgrade: {
			{Description: "air handler inventory is required (no ahu assets on record)",
				AssetType: "ahu"},
		},
		HeatRecovery: {
			{Description: "exhaust airflow quantities are required (cfm property on ahu assets)",
				AssetType: "ahu", AssetProperty: "cfm"},
		},
		WaterHeating: {
			{Description: "water heater inventory is required (no water_heater assets on record)",
				AssetType: "water_heater"},
		},
		CompressedAirOptimization: {
			{Description: "compressor inventory is required (no compressor assets on record)",
				AssetType: "compressor"},
			{Description: "compressor power trending is required (interval_kw)",
				Telemetry: "interval_kw"},
		},
		Other: {
			{Description: "measure could not be mapped to the canonical taxonomy; manual scoping required"},
		},
	}
}

// MissingInputs evaluates a measure's requirements against the target
// project and returns every unmet requirement as a literal human-readable
// string.
//
// Behavior:
//   - Unknown measure type (no registry entry): conservatively fully
//     missing - a single explanatory line is returned rather than an error.
//   - A requirement with no criteria (like the Other entry) is always
//     unmet; it exists purely to force human scoping.
//   - Affected asset types the measure declares but the target lacks each
//     contribute one line.
//   - The result is deduplicated, first occurrence wins, order stable.
//
// A non-empty result is the primary signal that no quantitative claim may
// accompany the suggestion.
func MissingInputs(g *graph.ProjectGraph, m graph.Measure, reg Registry) []string {
	var missing []string

	reqs, known := reg[m.MeasureType]
	if !known {
		missing = append(missing,
			fmt.Sprintf("no input requirements registered for measure type %q; all inputs unverified", m.MeasureType))
	}
	for _, req := range reqs {
		if !req.satisfied(g) {
			missing = append(missing, req.Description)
		}
	}

	for _, at := range m.AffectedAssetTypes {
		if !g.HasAssetType(at) {
			missing = append(missing,
				fmt.Sprintf("measure targets %s assets but the project has none on record", at))
		}
	}

	return dedupeStrings(missing)
}

func (r Requirement) satisfied(g *graph.ProjectGraph) bool {
	if r.Telemetry == "" && r.AssetType == "" && r.AssetProperty == "" {
		return false // criteria-free requirements always demand human attention
	}
	if r.Telemetry != "" && !g.HasTelemetry(r.Telemetry) {
		return false
	}
	if r.AssetType != "" {
		if !g.HasAssetType(r.AssetType) {
			return false
		}
		if r.AssetProperty != "" && !anyAssetHasProperty(g, r.AssetType, r.AssetProperty) {
			return false
		}
	}
	return true
}

func anyAssetHasProperty(g *graph.ProjectGraph, assetType, property string) bool {
	for i := range g.Assets {
		a := &g.Assets[i]
		if a.AssetType != assetType {
			continue
		}
		if _, ok := a.Properties[property]; ok {
			return true
		}
		if a.Baseline != nil {
			if _, ok := a.Baseline.Properties[property]; ok {
				return true
			}
		}
	}
	return false
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
