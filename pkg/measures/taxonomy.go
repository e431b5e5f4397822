// Package measures maps freeform measure descriptions onto the canonical
// measure taxonomy and computes the missing-input obligations that gate
// quantitative claims.
//
// Two concerns live here:
//
//  1. Normalization: "Install variable speed drives on CHW pumps" and
//     "Pump VFDs" both mean PUMP_VFD. Resolution order is direct canonical
//     match, then ordered synonym-phrase rules (first match wins), then
//     OTHER.
//
//  2. The requirements gate: each canonical measure type declares the
//     telemetry and asset facts a defensible recommendation needs.
//     MissingInputs reports every unmet requirement as a literal
//     human-readable string - never a code - and a non-empty result is the
//     system-wide signal that no savings number may accompany the
//     suggestion.
//
// Both registries are immutable constant data passed into pure functions;
// there is no mutable module state.
//
// Example Usage:
//
//	mt := measures.NormalizeMeasureType("Add VSDs to condenser water pumps")
//	// mt == measures.PumpVFD
//
//	missing := measures.MissingInputs(projectGraph, measure, measures.DefaultRequirements())
//	if len(missing) > 0 {
//		// surface the strings, suppress quantitative claims
//	}
package measures

// Canonical measure types. This is the fixed v1 taxonomy; freeform text
// resolves into exactly one of these (or Other).
const (
	LEDLightingRetrofit       = "LED_LIGHTING_RETROFIT"
	LightingControls          = "LIGHTING_CONTROLS"
	HVACScheduling            = "HVAC_SCHEDULING"
	VFDRetrofit               = "VFD_RETROFIT"
	PumpVFD                   = "PUMP_VFD"
	ChillerReplacement        = "CHILLER_REPLACEMENT"
	BoilerReplacement         = "BOILER_REPLACEMENT"
	SteamOptimization         = "STEAM_OPTIMIZATION"
	SteamTrapRepair           = "STEAM_TRAP_REPAIR"
	BuildingEnvelope          = "BUILDING_ENVELOPE"
	DemandResponse            = "DEMAND_RESPONSE"
	BatteryStorage            = "BATTERY_STORAGE"
	SolarPV                   = "SOLAR_PV"
	RetroCommissioning        = "RETRO_COMMISSIONING"
	BASUpgrade                = "BAS_UPGRADE"
	HeatRecovery              = "HEAT_RECOVERY"
	WaterHeating              = "WATER_HEATING"
	CompressedAirOptimization = "COMPRESSED_AIR_OPTIMIZATION"
	Other                     = "OTHER"
)

// AllMeasureTypes lists every canonical type, Other last.
var AllMeasureTypes = []string{
	LEDLightingRetrofit,
	LightingControls,
	HVACScheduling,
	VFDRetrofit,
	PumpVFD,
	ChillerReplacement,
	BoilerReplacement,
	SteamOptimization,
	SteamTrapRepair,
	BuildingEnvelope,
	DemandResponse,
	BatteryStorage,
	SolarPV,
	RetroCommissioning,
	BASUpgrade,
	HeatRecovery,
	WaterHeating,
	CompressedAirOptimization,
	Other,
}

var canonicalSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(AllMeasureTypes))
	for _, t := range AllMeasureTypes {
		m[t] = struct{}{}
	}
	return m
}()

// IsCanonical reports whether t is a canonical measure type.
func IsCanonical(t string) bool {
	_, ok := canonicalSet[t]
	return ok
}
