package recommend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everwatt/evercore/pkg/battery"
	"github.com/everwatt/evercore/pkg/features"
	"github.com/everwatt/evercore/pkg/graph"
	"github.com/everwatt/evercore/pkg/measures"
	"github.com/everwatt/evercore/pkg/playbook"
)

const testNow = "2026-08-27T12:00:00Z"

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

// officeTarget matches historical records on buildingType, climateZone,
// and territory only: similarity 0.30+0.10+0.10 = 0.50 exactly.
func officeTarget() *graph.ProjectGraph {
	return &graph.ProjectGraph{
		ProjectID:    "proj-target",
		OrgID:        "org-1",
		BuildingType: "office",
		SqFt:         80_000,
		Schedule:     "business hours",
		ClimateZone:  "3C",
		Territory:    "PG&E",
	}
}

func halfSimilarRecord(id string, tags ...string) graph.CompletedProjectRecord {
	return graph.CompletedProjectRecord{
		ID:           id,
		OrgID:        "org-1",
		BuildingType: "office",
		SqFt:         600_000, // two bins away: no size credit
		ClimateZone:  "3C",
		Territory:    "PG&E",
		MeasureTags:  tags,
	}
}

func officePlaybooks() []playbook.Playbook {
	return []playbook.Playbook{{
		Name:         "office-core",
		BuildingType: "office",
		Priority:     playbook.PriorityHigh,
		Preferred: []playbook.RankedMeasure{
			{MeasureType: measures.VFDRetrofit, Rationale: "central air handling"},
		},
		Discouraged: []playbook.RankedMeasure{
			{MeasureType: measures.SteamOptimization, Rationale: "steam rare in offices"},
		},
	}}
}

func TestAssembleOfficeOverlayScenario(t *testing.T) {
	idx := features.BuildIndex("org-1", 1, []graph.CompletedProjectRecord{
		halfSimilarRecord("proj-vfd", "vfd_retrofit"),
		halfSimilarRecord("proj-steam", "steam_optimization"),
	})

	out, err := Assemble(Params{
		Graph:     officeTarget(),
		Index:     idx,
		Playbooks: officePlaybooks(),
		NowISO:    testNow,
		NewID:     seqIDs(),
	})
	require.NoError(t, err)
	require.Len(t, out.Suggestions, 2)

	// 0.5 base x 1.15 = 0.575 preferred; 0.5 x 0.85 = 0.425 discouraged.
	vfd := out.Suggestions[0]
	steam := out.Suggestions[1]
	assert.Equal(t, measures.VFDRetrofit, vfd.Measure.MeasureType)
	assert.InDelta(t, 0.575, vfd.Score, 1e-9)
	assert.Equal(t, playbook.AlignPreferred, vfd.Alignment.Alignment)

	assert.Equal(t, measures.SteamOptimization, steam.Measure.MeasureType)
	assert.InDelta(t, 0.425, steam.Score, 1e-9)
	assert.Equal(t, playbook.AlignDiscouraged, steam.Alignment.Alignment)

	// Confidence derives from base, not from the overlaid score.
	assert.InDelta(t, vfd.Confidence, steam.Confidence, 1e-9)
	assert.InDelta(t, ConfidenceFloor+ConfidenceSlope*0.5, vfd.Confidence, 1e-9)
}

func TestAssembleExplainPayload(t *testing.T) {
	idx := features.BuildIndex("org-1", 1, []graph.CompletedProjectRecord{
		halfSimilarRecord("proj-1", "vfd_retrofit"),
		halfSimilarRecord("proj-2", "vfd_retrofit"),
		halfSimilarRecord("proj-3", "vfd_retrofit"),
		halfSimilarRecord("proj-4", "vfd_retrofit"),
		halfSimilarRecord("proj-5", "hvac_scheduling"),
	})

	out, err := Assemble(Params{
		Graph:     officeTarget(),
		Index:     idx,
		Playbooks: officePlaybooks(),
		NowISO:    testNow,
		NewID:     seqIDs(),
	})
	require.NoError(t, err)

	var vfd *Suggestion
	for i := range out.Suggestions {
		if out.Suggestions[i].Measure.MeasureType == measures.VFDRetrofit {
			vfd = &out.Suggestions[i]
		}
	}
	require.NotNil(t, vfd)

	assert.Len(t, vfd.Explain.Contributors, MaxExplainContributors, "capped at top 3")
	assert.Equal(t, "seen in 4 of 5 similar projects", vfd.Explain.Frequency)
	assert.Equal(t, []string{"office-core"}, vfd.Explain.AppliedPlaybooks)
	for _, c := range vfd.Explain.Contributors {
		assert.InDelta(t, 0.5, c.SimilarityScore, 1e-9)
		assert.NotEmpty(t, c.MatchedFeatures)
	}
	assert.Equal(t, testNow, vfd.CreatedAt)
}

func TestAssembleOneSuggestionPerMeasureType(t *testing.T) {
	// Same tag spelled differently still collapses to one suggestion.
	idx := features.BuildIndex("org-1", 1, []graph.CompletedProjectRecord{
		halfSimilarRecord("proj-1", "vfd_retrofit"),
		halfSimilarRecord("proj-2", "VFD Retrofit on fans"),
	})

	out, err := Assemble(Params{
		Graph:  officeTarget(),
		Index:  idx,
		NowISO: testNow,
		NewID:  seqIDs(),
	})
	require.NoError(t, err)

	types := make(map[string]int)
	for _, s := range out.Suggestions {
		types[s.Measure.MeasureType]++
	}
	for mt, n := range types {
		assert.Equal(t, 1, n, "duplicate suggestion for %s", mt)
	}
}

func TestAssembleRequiredInputsGateSuggestions(t *testing.T) {
	idx := features.BuildIndex("org-1", 1, []graph.CompletedProjectRecord{
		halfSimilarRecord("proj-1", "pump_vfd"),
	})

	out, err := Assemble(Params{
		Graph:  officeTarget(), // no pumps, no telemetry
		Index:  idx,
		NowISO: testNow,
		NewID:  seqIDs(),
	})
	require.NoError(t, err)
	require.Len(t, out.Suggestions, 1)

	missing := out.Suggestions[0].RequiredInputsMissing
	assert.NotEmpty(t, missing, "pump VFD needs pump inventory the target lacks")
	assert.Contains(t, missing[0], "pump")
}

func TestAssemblePairedInboxItems(t *testing.T) {
	idx := features.BuildIndex("org-1", 1, []graph.CompletedProjectRecord{
		halfSimilarRecord("proj-1", "vfd_retrofit"),
	})

	out, err := Assemble(Params{
		Graph:  officeTarget(),
		Index:  idx,
		NowISO: testNow,
		NewID:  seqIDs(),
	})
	require.NoError(t, err)
	require.Len(t, out.Suggestions, 1)
	require.Len(t, out.InboxItems, 1)

	item := out.InboxItems[0]
	assert.Equal(t, graph.KindSuggestedMeasure, item.Kind)
	assert.Equal(t, graph.StatusInferred, item.Status)
	assert.Equal(t, out.Suggestions[0].ID, item.Evidence.SourceID, "provenance-linked to the suggestion")
	assert.Equal(t, "recommendation", item.Evidence.SourceType)
	require.NotNil(t, item.SuggestedMeasure)
	assert.Equal(t, measures.VFDRetrofit, item.SuggestedMeasure.MeasureType)
	assert.NotEmpty(t, item.Rationale)
	assert.LessOrEqual(t, len([]rune(item.Rationale)), MaxRationaleLen)
	assert.Equal(t,
		graph.SourceKey("proj-target", graph.KindSuggestedMeasure, measures.VFDRetrofit),
		item.SourceKey)
}

func TestAssembleSourceKeyDedupe(t *testing.T) {
	idx := features.BuildIndex("org-1", 1, []graph.CompletedProjectRecord{
		halfSimilarRecord("proj-1", "vfd_retrofit"),
	})
	g := officeTarget()
	g.Inbox = []graph.InboxItem{{
		ID:        "existing",
		Kind:      graph.KindSuggestedMeasure,
		Status:    graph.StatusInferred,
		SourceKey: graph.SourceKey("proj-target", graph.KindSuggestedMeasure, measures.VFDRetrofit),
	}}

	out, err := Assemble(Params{Graph: g, Index: idx, NowISO: testNow, NewID: seqIDs()})
	require.NoError(t, err)

	assert.Len(t, out.Suggestions, 1, "suggestion still produced")
	assert.Empty(t, out.InboxItems, "re-run must not duplicate the inbox item")
}

func TestAssembleBatterySuggestion(t *testing.T) {
	idx := features.BuildIndex("org-1", 1, []graph.CompletedProjectRecord{
		halfSimilarRecord("proj-1", "vfd_retrofit"),
	})

	sel := battery.Select(
		battery.Input{Shape: &battery.LoadShape{P95Kw: 300, ShiftWindowHours: 2}},
		[]battery.LibraryItem{{
			Vendor: "Acme", SKU: "PS-100", Chemistry: "LFP",
			RatedPowerKw: 100, RatedEnergyKwh: 250, RoundTripEfficiency: 0.9,
			MinSOC: 0.1, MaxSOC: 0.9,
		}},
		battery.Constraints{}, battery.DefaultSizingPolicy())

	out, err := Assemble(Params{
		Graph:   officeTarget(),
		Index:   idx,
		Battery: &sel,
		NowISO:  testNow,
		NewID:   seqIDs(),
	})
	require.NoError(t, err)

	var bat *Suggestion
	for i := range out.Suggestions {
		if out.Suggestions[i].Measure.MeasureType == measures.BatteryStorage {
			bat = &out.Suggestions[i]
		}
	}
	require.NotNil(t, bat)
	assert.Equal(t, "Acme", bat.Measure.Parameters["vendor"])
	assert.Greater(t, bat.Score, 0.0)
	// Battery gate requirements (interval_kw, tariff) are unmet on this
	// target, so the suggestion is loudly unquantified.
	assert.NotEmpty(t, bat.RequiredInputsMissing)
}

func TestAssembleBatterySkippedWhenAllDisqualified(t *testing.T) {
	idx := features.BuildIndex("org-1", 1, []graph.CompletedProjectRecord{
		halfSimilarRecord("proj-1", "vfd_retrofit"),
	})
	sel := battery.Select(
		battery.Input{Shape: &battery.LoadShape{P95Kw: 300, ShiftWindowHours: 2}},
		[]battery.LibraryItem{{Vendor: "Acme", SKU: "BAD", RatedPowerKw: 0}},
		battery.Constraints{}, battery.DefaultSizingPolicy())

	out, err := Assemble(Params{Graph: officeTarget(), Index: idx, Battery: &sel,
		NowISO: testNow, NewID: seqIDs()})
	require.NoError(t, err)

	for _, s := range out.Suggestions {
		assert.NotEqual(t, measures.BatteryStorage, s.Measure.MeasureType)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	idx := features.BuildIndex("org-1", 1, []graph.CompletedProjectRecord{
		halfSimilarRecord("proj-1", "vfd_retrofit", "hvac_scheduling"),
		halfSimilarRecord("proj-2", "led_lighting_retrofit"),
		halfSimilarRecord("proj-3", "vfd_retrofit"),
	})

	run := func() *Output {
		out, err := Assemble(Params{
			Graph:     officeTarget(),
			Index:     idx,
			Playbooks: officePlaybooks(),
			NowISO:    testNow,
			NewID:     seqIDs(),
		})
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, run(), run(), "identical inputs and id sequence, identical output")
}

func TestAssembleInvalidCallShapes(t *testing.T) {
	idx := features.BuildIndex("org-1", 1, nil)
	g := officeTarget()
	ids := seqIDs()

	_, err := Assemble(Params{Index: idx, NowISO: testNow, NewID: ids})
	assert.ErrorIs(t, err, ErrNilGraph)

	_, err = Assemble(Params{Graph: g, NowISO: testNow, NewID: ids})
	assert.ErrorIs(t, err, ErrNilIndex)

	_, err = Assemble(Params{Graph: g, Index: idx, NowISO: testNow})
	assert.ErrorIs(t, err, ErrNilIDFactory)

	_, err = Assemble(Params{Graph: g, Index: idx, NewID: ids})
	assert.ErrorIs(t, err, ErrEmptyNow)
}

func TestAssembleEmptyIndex(t *testing.T) {
	idx := features.BuildIndex("org-1", 1, nil)
	out, err := Assemble(Params{Graph: officeTarget(), Index: idx, NowISO: testNow, NewID: seqIDs()})
	require.NoError(t, err, "empty history is routine, not an error")
	assert.Empty(t, out.Suggestions)
	assert.Empty(t, out.InboxItems)
}
