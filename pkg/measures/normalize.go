package measures

import "strings"

// synonymRule resolves freeform text to one canonical measure type. A rule
// matches when every allOf phrase is present and, if anyOf is non-empty, at
// least one anyOf phrase is present. Matching is case-insensitive substring
// search over the raw text.
type synonymRule struct {
	measureType string
	allOf       []string
	anyOf       []string
}

// synonymRules is ordered; the first matching rule wins. Order encodes
// specificity: PUMP_VFD sits above VFD_RETROFIT so a drive mention in pump
// context resolves to the pump measure even without the literal token
// "vfd", and STEAM_TRAP_REPAIR sits above the general steam rule.
var synonymRules = []synonymRule{
	{measureType: PumpVFD, allOf: []string{"pump"},
		anyOf: []string{"vfd", "vsd", "variable frequency", "variable speed", "drive"}},
	{measureType: VFDRetrofit,
		anyOf: []string{"vfd", "vsd", "variable frequency drive", "variable speed drive", "adjustable speed drive"}},
	{measureType: LightingControls, allOf: []string{"lighting"},
		anyOf: []string{"control", "occupancy sensor", "daylight", "dimming"}},
	{measureType: LEDLightingRetrofit,
		anyOf: []string{"led", "lighting retrofit", "relamp", "lamp replacement"}},
	{measureType: HVACScheduling,
		anyOf: []string{"hvac schedul", "night setback", "setback", "occupancy schedul", "equipment schedul"}},
	{measureType: ChillerReplacement, allOf: []string{"chiller"},
		anyOf: []string{"replace", "upgrade", "new", "high-efficiency", "high efficiency"}},
	{measureType: BoilerReplacement, allOf: []string{"boiler"},
		anyOf: []string{"replace", "upgrade", "new", "condensing"}},
	{measureType: SteamTrapRepair, allOf: []string{"steam trap"}},
	{measureType: SteamOptimization, allOf: []string{"steam"}},
	{measureType: BatteryStorage,
		anyOf: []string{"battery", "energy storage", "bess"}},
	{measureType: SolarPV,
		anyOf: []string{"solar", "photovoltaic", "pv array", "pv system"}},
	{measureType: DemandResponse,
		anyOf: []string{"demand response", "load shed", "curtailment", "peak shaving"}},
	{measureType: RetroCommissioning,
		anyOf: []string{"retro-commissioning", "retrocommissioning", "retro commissioning", "recommissioning", "rcx"}},
	{measureType: BASUpgrade,
		anyOf: []string{"bas ", "building automation", "ems upgrade", "controls upgrade", "ddc"}},
	{measureType: HeatRecovery,
		anyOf: []string{"heat recovery", "energy recovery", "heat exchanger", "economizer"}},
	{measureType: CompressedAirOptimization,
		anyOf: []string{"compressed air", "air leak", "compressor sequencing"}},
	{measureType: BuildingEnvelope,
		anyOf: []string{"envelope", "insulation", "window film", "weatherization", "air sealing", "roof upgrade"}},
	{measureType: WaterHeating,
		anyOf: []string{"water heater", "water heating", "domestic hot water", "dhw"}},
}

// NormalizeMeasureType maps a freeform measure description to its canonical
// type.
//
// Resolution order:
//  1. Direct match: the text, canonicalized (upper snake case), is already
//     a taxonomy value.
//  2. Ordered synonym-phrase rules: first match wins.
//  3. Fallback: Other.
//
// Example:
//
//	measures.NormalizeMeasureType("PUMP_VFD")                          // PUMP_VFD
//	measures.NormalizeMeasureType("variable speed drives on pumps")   // PUMP_VFD
//	measures.NormalizeMeasureType("Install LED fixtures throughout")  // LED_LIGHTING_RETROFIT
//	measures.NormalizeMeasureType("something exotic")                 // OTHER
func NormalizeMeasureType(text string) string {
	direct := canonicalizeToken(text)
	if IsCanonical(direct) {
		return direct
	}

	lower := strings.ToLower(text)
	for _, rule := range synonymRules {
		if rule.matches(lower) {
			return rule.measureType
		}
	}
	return Other
}

func (r synonymRule) matches(lower string) bool {
	for _, p := range r.allOf {
		if !strings.Contains(lower, p) {
			return false
		}
	}
	if len(r.anyOf) == 0 {
		return len(r.allOf) > 0
	}
	for _, p := range r.anyOf {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// canonicalizeToken converts text to the taxonomy token form: trimmed,
// uppercased, separator runs collapsed to single underscores.
func canonicalizeToken(text string) string {
	s := strings.ToUpper(strings.TrimSpace(text))
	var b strings.Builder
	lastSep := false
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		default:
			if !lastSep && b.Len() > 0 {
				b.WriteByte('_')
				lastSep = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
