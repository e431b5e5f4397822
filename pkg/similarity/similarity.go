// Package similarity scores how alike two projects are on their bucketed
// feature vectors.
//
// v1 is deliberately not machine learning: it is a weighted comparison of
// five categorical features plus an asset-mix overlap, chosen so every
// score is explainable by naming the features that matched. The governing
// property is monotonicity - a candidate matching strictly more features
// than another, all else equal, never scores lower.
//
// Weights (sum 1.0):
//
//	buildingType   0.30
//	sizeBucket     0.15  (adjacent bucket earns half credit)
//	scheduleBucket 0.15
//	climateZone    0.10
//	territory      0.10
//	assetMix       0.20  (Ruzicka overlap over the fixed 12-key vector)
//
// The asset-mix term uses Ruzicka similarity, sum(min)/sum(max): symmetric,
// monotonic in overlap, 1.0 on identical non-zero vectors. Two projects
// with no recorded assets at all score 0 on this term - absence of data is
// not evidence of sameness.
package similarity

import (
	"sort"

	"github.com/everwatt/evercore/pkg/features"
)

// Feature weights. Exported so the assembler's explain payload and the
// tests can reference the exact policy.
const (
	WeightBuildingType = 0.30
	WeightSizeBucket   = 0.15
	WeightSchedule     = 0.15
	WeightClimateZone  = 0.10
	WeightTerritory    = 0.10
	WeightAssetMix     = 0.20

	// AdjacentSizeCredit is the fraction of the size weight granted when
	// buckets differ by exactly one bin.
	AdjacentSizeCredit = 0.5

	// AssetMixMatchThreshold is the overlap above which "assetMix" is
	// reported as a matched feature.
	AssetMixMatchThreshold = 0.5
)

// Matched feature names surfaced for explainability.
const (
	FeatureBuildingType = "buildingType"
	FeatureSizeBucket   = "sizeBucket"
	FeatureSizeAdjacent = "sizeBucket_adjacent"
	FeatureSchedule     = "scheduleBucket"
	FeatureClimateZone  = "climateZone"
	FeatureTerritory    = "territory"
	FeatureAssetMix     = "assetMix"
)

// Score is one target-vs-candidate comparison result.
type Score struct {
	Value   float64  `json:"value"`   // clamped to [0,1]
	Matched []string `json:"matched"` // feature names, fixed order
}

// Compare scores the target's features against one candidate's.
//
// The score is the weighted sum of per-feature matches, clamped to [0,1].
// Matched lists the features that contributed, in a fixed order, for the
// explain payload.
func Compare(target, candidate features.ProjectFeaturesV1) Score {
	var value float64
	var matched []string

	if target.BuildingTypeBucket != "" && target.BuildingTypeBucket == candidate.BuildingTypeBucket {
		value += WeightBuildingType
		matched = append(matched, FeatureBuildingType)
	}

	switch features.SqftBucketDistance(target.SqftBucket, candidate.SqftBucket) {
	case 0:
		value += WeightSizeBucket
		matched = append(matched, FeatureSizeBucket)
	case 1:
		value += WeightSizeBucket * AdjacentSizeCredit
		matched = append(matched, FeatureSizeAdjacent)
	}

	if target.ScheduleBucket != features.ScheduleUnknown &&
		target.ScheduleBucket == candidate.ScheduleBucket {
		value += WeightSchedule
		matched = append(matched, FeatureSchedule)
	}

	if target.ClimateZone != "" && target.ClimateZone == candidate.ClimateZone {
		value += WeightClimateZone
		matched = append(matched, FeatureClimateZone)
	}

	if target.Territory != "" && target.Territory == candidate.Territory {
		value += WeightTerritory
		matched = append(matched, FeatureTerritory)
	}

	overlap := ruzicka(target.AssetVector, candidate.AssetVector)
	value += WeightAssetMix * overlap
	if overlap >= AssetMixMatchThreshold {
		matched = append(matched, FeatureAssetMix)
	}

	return Score{Value: clamp01(value), Matched: matched}
}

// ruzicka computes sum(min)/sum(max) over the fixed-order vectors. Both
// vectors all-zero returns 0: no asset evidence, no credit.
func ruzicka(a, b [12]float64) float64 {
	var sumMin, sumMax float64
	for i := range a {
		if a[i] < b[i] {
			sumMin += a[i]
			sumMax += b[i]
		} else {
			sumMin += b[i]
			sumMax += a[i]
		}
	}
	if sumMax == 0 {
		return 0
	}
	return sumMin / sumMax
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

// ProjectScore pairs an indexed project with its comparison result.
type ProjectScore struct {
	ProjectID string   `json:"projectId"`
	Value     float64  `json:"value"`
	Matched   []string `json:"matched"`
}

// Rank compares the target against every project in the index and returns
// the top n, ordered by score descending then project id ascending - a
// total, deterministic order for fixed inputs.
//
// n <= 0 returns all scored projects.
func Rank(target features.ProjectFeaturesV1, idx *features.MemoryIndex, n int) []ProjectScore {
	out := make([]ProjectScore, 0, len(idx.Features))
	for _, id := range idx.ProjectIDs() {
		s := Compare(target, idx.Features[id])
		out = append(out, ProjectScore{ProjectID: id, Value: s.Value, Matched: s.Matched})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].ProjectID < out[j].ProjectID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
