// Package playbook implements the rule-based applicability engine that
// overlays domain judgment onto similarity-derived scores.
//
// A playbook is a named rule set for one building archetype: which measure
// types engineers prefer there, which they discourage, and under what
// applicability conditions the playbook speaks at all. Playbooks never
// generate scores - they only nudge scores that similarity already
// produced, through a fixed multiplier:
//
//	preferred   x1.15
//	neutral     x1.00
//	discouraged x0.85
//
// Playbooks are immutable constant data (typically loaded from YAML) passed
// into pure matcher functions; there is no mutable module state.
//
// Example Usage:
//
//	lib, err := playbook.LoadLibrary("playbooks.yaml")
//	if err != nil { ... }
//
//	target := playbook.TargetFromGraph(projectGraph)
//	matches := playbook.Match(target, lib)
//
//	res := playbook.Alignment(matches, measures.VFDRetrofit)
//	final := similarityScore * res.Multiplier()
package playbook

import (
	"sort"
	"strings"

	"github.com/everwatt/evercore/pkg/features"
	"github.com/everwatt/evercore/pkg/graph"
)

// Playbook priorities. Higher-priority playbooks are consulted first when
// resolving alignment; ties keep library order (stable sort).
const (
	PriorityHigh = "HIGH"
	PriorityMed  = "MED"
	PriorityLow  = "LOW"
)

var priorityRank = map[string]int{
	PriorityHigh: 0,
	PriorityMed:  1,
	PriorityLow:  2,
}

// Alignment values for one measure type under a set of matched playbooks.
const (
	AlignPreferred   = "preferred"
	AlignDiscouraged = "discouraged"
	AlignNeutral     = "neutral"
)

// Fixed alignment multipliers. Applied as an overlay on top of the
// similarity-derived score, never replacing it.
const (
	PreferredMultiplier   = 1.15
	DiscouragedMultiplier = 0.85
	NeutralMultiplier     = 1.0
)

// RankedMeasure is one entry of a preferred or discouraged list. Order in
// the list is rank; Rationale explains the stance to the reviewer.
type RankedMeasure struct {
	MeasureType string `yaml:"measureType" json:"measureType"`
	Rationale   string `yaml:"rationale,omitempty" json:"rationale,omitempty"`
}

// ConditionSet is one AND-group of applicability conditions. A playbook's
// condition sets are OR'd: the playbook applies if any set is satisfied.
// Zero-valued fields are unconstrained.
type ConditionSet struct {
	MinSqFt         float64  `yaml:"minSqFt,omitempty" json:"minSqFt,omitempty"`
	MaxSqFt         float64  `yaml:"maxSqFt,omitempty" json:"maxSqFt,omitempty"`
	ScheduleBucket  string   `yaml:"scheduleBucket,omitempty" json:"scheduleBucket,omitempty"`
	AssetTypesAnyOf []string `yaml:"assetTypesAnyOf,omitempty" json:"assetTypesAnyOf,omitempty"`
	AssetTypesAllOf []string `yaml:"assetTypesAllOf,omitempty" json:"assetTypesAllOf,omitempty"`
}

// Playbook is one named rule set for a building archetype.
type Playbook struct {
	Name         string          `yaml:"name" json:"name"`
	BuildingType string          `yaml:"buildingType" json:"buildingType"`
	Priority     string          `yaml:"priority" json:"priority"` // HIGH, MED, LOW
	Conditions   []ConditionSet  `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Preferred    []RankedMeasure `yaml:"preferred,omitempty" json:"preferred,omitempty"`
	Discouraged  []RankedMeasure `yaml:"discouraged,omitempty" json:"discouraged,omitempty"`
}

// Target is the slice of a project that playbook matching looks at.
type Target struct {
	BuildingType   string
	SqFt           float64
	ScheduleBucket string
	AssetTypes     []string
}

// TargetFromGraph projects a project graph onto the matcher's view of it.
func TargetFromGraph(g *graph.ProjectGraph) Target {
	types := make([]string, 0, 8)
	seen := make(map[string]struct{}, 8)
	for i := range g.Assets {
		at := g.Assets[i].AssetType
		if _, dup := seen[at]; dup || at == "" {
			continue
		}
		seen[at] = struct{}{}
		types = append(types, at)
	}
	sort.Strings(types)
	return Target{
		BuildingType:   g.BuildingType,
		SqFt:           g.SqFt,
		ScheduleBucket: features.ScheduleBucket(g.Schedule),
		AssetTypes:     types,
	}
}

// Match filters the library down to the playbooks that apply to the target
// and sorts them by priority (stable for ties).
//
// A playbook applies when its building type matches the target's exactly
// (after normalization) and at least one condition set is satisfied. A
// playbook with no condition sets applies to every project of its building
// type.
func Match(target Target, library []Playbook) []Playbook {
	targetBucket := features.NormalizeBuildingType(target.BuildingType)

	matches := make([]Playbook, 0, len(library))
	for _, pb := range library {
		if features.NormalizeBuildingType(pb.BuildingType) != targetBucket {
			continue
		}
		if !conditionsSatisfied(target, pb.Conditions) {
			continue
		}
		matches = append(matches, pb)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return rankOf(matches[i].Priority) < rankOf(matches[j].Priority)
	})
	return matches
}

func rankOf(priority string) int {
	if r, ok := priorityRank[strings.ToUpper(priority)]; ok {
		return r
	}
	return len(priorityRank) // unknown priorities sort last
}

func conditionsSatisfied(target Target, sets []ConditionSet) bool {
	if len(sets) == 0 {
		return true
	}
	for _, set := range sets {
		if set.satisfied(target) {
			return true
		}
	}
	return false
}

func (c ConditionSet) satisfied(t Target) bool {
	if c.MinSqFt > 0 && t.SqFt < c.MinSqFt {
		return false
	}
	if c.MaxSqFt > 0 && t.SqFt >= c.MaxSqFt {
		return false
	}
	if c.ScheduleBucket != "" && c.ScheduleBucket != t.ScheduleBucket {
		return false
	}
	if len(c.AssetTypesAllOf) > 0 {
		for _, at := range c.AssetTypesAllOf {
			if !containsString(t.AssetTypes, at) {
				return false
			}
		}
	}
	if len(c.AssetTypesAnyOf) > 0 {
		hit := false
		for _, at := range c.AssetTypesAnyOf {
			if containsString(t.AssetTypes, at) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Result is the alignment of one measure type under the matched playbooks.
type Result struct {
	Alignment    string `json:"alignment"` // preferred, discouraged, neutral
	PlaybookName string `json:"playbookName,omitempty"`
	Rationale    string `json:"rationale,omitempty"`
}

// Multiplier returns the fixed score multiplier for the alignment.
func (r Result) Multiplier() float64 {
	switch r.Alignment {
	case AlignPreferred:
		return PreferredMultiplier
	case AlignDiscouraged:
		return DiscouragedMultiplier
	default:
		return NeutralMultiplier
	}
}

// Alignment scans the matched playbooks in priority order and returns the
// first preferred or discouraged hit for the measure type, else neutral.
//
// matches must already be sorted by Match; the scan order is what makes a
// HIGH playbook's stance beat a LOW playbook's opposite stance.
func Alignment(matches []Playbook, measureType string) Result {
	for _, pb := range matches {
		for _, rm := range pb.Preferred {
			if rm.MeasureType == measureType {
				return Result{Alignment: AlignPreferred, PlaybookName: pb.Name, Rationale: rm.Rationale}
			}
		}
		for _, rm := range pb.Discouraged {
			if rm.MeasureType == measureType {
				return Result{Alignment: AlignDiscouraged, PlaybookName: pb.Name, Rationale: rm.Rationale}
			}
		}
	}
	return Result{Alignment: AlignNeutral}
}
