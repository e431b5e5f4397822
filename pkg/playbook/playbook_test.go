package playbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everwatt/evercore/pkg/features"
	"github.com/everwatt/evercore/pkg/graph"
	"github.com/everwatt/evercore/pkg/measures"
)

func testLibrary() []Playbook {
	return []Playbook{
		{
			Name:         "office-low",
			BuildingType: "office",
			Priority:     PriorityLow,
			Preferred:    []RankedMeasure{{MeasureType: measures.SteamOptimization}},
		},
		{
			Name:         "office-core",
			BuildingType: "Office",
			Priority:     PriorityHigh,
			Preferred: []RankedMeasure{
				{MeasureType: measures.VFDRetrofit, Rationale: "central air handling"},
			},
			Discouraged: []RankedMeasure{
				{MeasureType: measures.SteamOptimization, Rationale: "steam rare in offices"},
			},
		},
		{
			Name:         "big-office",
			BuildingType: "office",
			Priority:     PriorityMed,
			Conditions: []ConditionSet{
				{MinSqFt: 150_000},
			},
			Preferred: []RankedMeasure{{MeasureType: measures.ChillerReplacement}},
		},
		{
			Name:         "hospital-core",
			BuildingType: "hospital",
			Priority:     PriorityHigh,
			Preferred:    []RankedMeasure{{MeasureType: measures.SteamTrapRepair}},
		},
	}
}

func TestMatchFiltersAndSorts(t *testing.T) {
	target := Target{BuildingType: "Office", SqFt: 80_000, ScheduleBucket: features.ScheduleBusiness}

	matches := Match(target, testLibrary())
	require.Len(t, matches, 2, "hospital and oversize playbooks excluded")
	assert.Equal(t, "office-core", matches[0].Name, "HIGH priority first")
	assert.Equal(t, "office-low", matches[1].Name)
}

func TestMatchConditionSets(t *testing.T) {
	lib := []Playbook{{
		Name:         "pumps-or-chillers",
		BuildingType: "office",
		Priority:     PriorityMed,
		Conditions: []ConditionSet{
			{AssetTypesAllOf: []string{"pump", "chiller"}},
			{ScheduleBucket: features.Schedule24x7},
		},
	}}

	// Neither set satisfied.
	assert.Empty(t, Match(Target{BuildingType: "office", AssetTypes: []string{"pump"}}, lib))

	// First set: both asset types present.
	assert.Len(t, Match(Target{
		BuildingType: "office",
		AssetTypes:   []string{"chiller", "pump"},
	}, lib), 1)

	// Second set: schedule alone is enough (sets are OR'd).
	assert.Len(t, Match(Target{
		BuildingType:   "office",
		ScheduleBucket: features.Schedule24x7,
	}, lib), 1)
}

func TestMatchAnyOfCondition(t *testing.T) {
	lib := []Playbook{{
		Name:         "steam-plants",
		BuildingType: "hospital",
		Priority:     PriorityHigh,
		Conditions: []ConditionSet{
			{AssetTypesAnyOf: []string{"boiler", "steam_trap"}},
		},
	}}

	assert.Len(t, Match(Target{BuildingType: "hospital", AssetTypes: []string{"boiler"}}, lib), 1)
	assert.Empty(t, Match(Target{BuildingType: "hospital", AssetTypes: []string{"pump"}}, lib))
}

func TestMatchStableForPriorityTies(t *testing.T) {
	lib := []Playbook{
		{Name: "first", BuildingType: "office", Priority: PriorityMed},
		{Name: "second", BuildingType: "office", Priority: PriorityMed},
	}
	matches := Match(Target{BuildingType: "office"}, lib)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].Name)
	assert.Equal(t, "second", matches[1].Name)
}

func TestAlignmentPriorityOrder(t *testing.T) {
	target := Target{BuildingType: "office", SqFt: 80_000}
	matches := Match(target, testLibrary())

	// office-core (HIGH) discourages steam; office-low (LOW) prefers it.
	// The HIGH stance wins.
	res := Alignment(matches, measures.SteamOptimization)
	assert.Equal(t, AlignDiscouraged, res.Alignment)
	assert.Equal(t, "office-core", res.PlaybookName)
	assert.Equal(t, DiscouragedMultiplier, res.Multiplier())

	res = Alignment(matches, measures.VFDRetrofit)
	assert.Equal(t, AlignPreferred, res.Alignment)
	assert.Equal(t, PreferredMultiplier, res.Multiplier())

	res = Alignment(matches, measures.BatteryStorage)
	assert.Equal(t, AlignNeutral, res.Alignment)
	assert.Empty(t, res.PlaybookName)
	assert.Equal(t, NeutralMultiplier, res.Multiplier())
}

func TestTargetFromGraph(t *testing.T) {
	g := &graph.ProjectGraph{
		BuildingType: "Office Tower",
		SqFt:         220_000,
		Schedule:     "business hours",
		Assets: []graph.AssetNode{
			{ID: "a1", AssetType: "pump"},
			{ID: "a2", AssetType: "ahu"},
			{ID: "a3", AssetType: "pump"},
		},
	}
	target := TargetFromGraph(g)
	assert.Equal(t, "Office Tower", target.BuildingType)
	assert.Equal(t, 220_000.0, target.SqFt)
	assert.Equal(t, features.ScheduleBusiness, target.ScheduleBucket)
	assert.Equal(t, []string{"ahu", "pump"}, target.AssetTypes)
}

func TestParseLibrary(t *testing.T) {
	data := []byte(`
playbooks:
  - name: office-core
    buildingType: office
    priority: HIGH
    conditions:
      - minSqFt: 50000
        maxSqFt: 500000
    preferred:
      - measureType: VFD_RETROFIT
        rationale: Central air handling benefits first from drives.
    discouraged:
      - measureType: STEAM_OPTIMIZATION
`)
	lib, err := ParseLibrary(data)
	require.NoError(t, err)
	require.Len(t, lib, 1)
	assert.Equal(t, "office-core", lib[0].Name)
	assert.Equal(t, 50_000.0, lib[0].Conditions[0].MinSqFt)
	assert.Equal(t, measures.VFDRetrofit, lib[0].Preferred[0].MeasureType)
}

func TestParseLibraryValidation(t *testing.T) {
	_, err := ParseLibrary([]byte("playbooks:\n  - name: x\n    buildingType: office\n    priority: URGENT\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "priority")

	_, err = ParseLibrary([]byte("playbooks:\n  - name: \"\"\n    buildingType: office\n    priority: LOW\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}
