package measures

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/everwatt/evercore/pkg/graph"
)

func pumpProject() *graph.ProjectGraph {
	return &graph.ProjectGraph{
		ProjectID: "proj-1",
		Telemetry: []string{"interval_kw"},
		Assets: []graph.AssetNode{
			{ID: "a1", AssetType: "pump", Properties: map[string]any{"hp": 25.0}},
			{ID: "a2", AssetType: "pump"},
		},
	}
}

func TestMissingInputsAllSatisfied(t *testing.T) {
	g := pumpProject()
	m := graph.Measure{MeasureType: PumpVFD, Label: "Pump VFDs"}

	missing := MissingInputs(g, m, DefaultRequirements())
	assert.Empty(t, missing)
}

func TestMissingInputsReportsLiteralStrings(t *testing.T) {
	g := &graph.ProjectGraph{ProjectID: "proj-1"} // no assets, no telemetry
	m := graph.Measure{MeasureType: PumpVFD}

	missing := MissingInputs(g, m, DefaultRequirements())
	assert.Equal(t, []string{
		"pump inventory is required (no pump assets on record)",
		"pump motor horsepower is required (hp property on pump assets)",
		"15-minute interval kW data is required to size drive savings (interval_kw)",
	}, missing)
}

func TestMissingInputsPropertyCheckedOnBaseline(t *testing.T) {
	g := &graph.ProjectGraph{
		Telemetry: []string{"interval_kw"},
		Assets: []graph.AssetNode{
			{ID: "a1", AssetType: "pump",
				Baseline: &graph.Baseline{Properties: map[string]any{"hp": 15.0}}},
		},
	}
	m := graph.Measure{MeasureType: PumpVFD}

	assert.Empty(t, MissingInputs(g, m, DefaultRequirements()),
		"hp on the baseline block satisfies the property requirement")
}

func TestMissingInputsUnknownTypeFullyMissing(t *testing.T) {
	g := pumpProject()
	m := graph.Measure{MeasureType: "NOT_IN_TAXONOMY"}

	missing := MissingInputs(g, m, DefaultRequirements())
	assert.Len(t, missing, 1)
	assert.Contains(t, missing[0], "NOT_IN_TAXONOMY")
	assert.Contains(t, missing[0], "unverified")
}

func TestMissingInputsAffectedAssetTypesAbsent(t *testing.T) {
	g := pumpProject()
	m := graph.Measure{
		MeasureType:        PumpVFD,
		AffectedAssetTypes: []string{"pump", "chiller"},
	}

	missing := MissingInputs(g, m, DefaultRequirements())
	assert.Equal(t, []string{
		"measure targets chiller assets but the project has none on record",
	}, missing)
}

func TestMissingInputsDeduplicated(t *testing.T) {
	g := &graph.ProjectGraph{}
	m := graph.Measure{
		MeasureType:        SteamTrapRepair,
		AffectedAssetTypes: []string{"steam_trap", "steam_trap"},
	}

	missing := MissingInputs(g, m, DefaultRequirements())
	assert.Equal(t, []string{
		"steam trap survey is required (no steam_trap assets on record)",
		"measure targets steam_trap assets but the project has none on record",
	}, missing)
}

func TestMissingInputsOtherAlwaysDemandsScoping(t *testing.T) {
	g := pumpProject()
	m := graph.Measure{MeasureType: Other}

	missing := MissingInputs(g, m, DefaultRequirements())
	assert.Len(t, missing, 1)
	assert.Contains(t, missing[0], "manual scoping")
}
