// Package features normalizes completed-project records into comparable
// feature vectors and builds the per-organization memory index.
//
// Historical projects arrive with freeform building types, raw square
// footage, loose schedule text, and arbitrary asset inventories. Before any
// similarity math can run, each record is collapsed into ProjectFeaturesV1:
// a small set of bucketed, fixed-order features that two projects can be
// compared on without caring how either was originally described.
//
// Features Extracted:
//   - buildingTypeBucket: normalized free text ("Office Tower " -> "office_tower")
//   - sqftBucket: one of 4 fixed bins (<50k, 50-150k, 150-500k, 500k+)
//   - scheduleBucket: 24_7 / business_hours / mixed / unknown
//   - climateZone, territory: passthrough (empty when absent)
//   - assetVector: counts over a fixed 12-key asset ordering
//   - measureTags: lowercased, deduplicated, capped at 24, sorted
//
// Determinism:
//
// Extraction and index building are pure. Building the index twice over
// identical, order-stable input yields byte-identical output: postings lists
// are sorted and the asset vector ordering is a package constant.
//
// Example Usage:
//
//	idx := features.BuildIndex("org-1", 3, records)
//
//	for _, projectID := range idx.ByMeasureTag["vfd_retrofit"] {
//		f := idx.Features[projectID]
//		fmt.Printf("%s: %s / %s\n", projectID, f.BuildingTypeBucket, f.SqftBucket)
//	}
//
// ELI12:
//
// Imagine sorting a huge box of old report cards so you can find "kids like
// me" quickly:
//
//  1. First you rewrite every card onto an identical form (extraction) - same
//     boxes, same order, messy handwriting cleaned up.
//
//  2. Then you make three lookup lists (inverted indexes): "everyone who took
//     chemistry", "everyone at a big school", "everyone with a pool". Now you
//     never have to re-read the whole box to answer those questions.
//
// If a card has no name on it, you just skip it - a nameless card can't be
// looked up later anyway.
package features

import (
	"math"
	"sort"
	"strings"

	"github.com/everwatt/evercore/pkg/graph"
)

// Square-footage buckets, smallest to largest. Adjacency is meaningful:
// the similarity scorer gives partial credit for neighboring buckets.
const (
	SqftBucketSmall  = "lt_50k"
	SqftBucketMedium = "50k_150k"
	SqftBucketLarge  = "150k_500k"
	SqftBucketXLarge = "gte_500k"
)

// Schedule buckets.
const (
	Schedule24x7     = "24_7"
	ScheduleBusiness = "business_hours"
	ScheduleMixed    = "mixed"
	ScheduleUnknown  = "unknown"
)

// MaxMeasureTags caps the normalized tag list per project.
const MaxMeasureTags = 24

// AssetKeys is the fixed 12-key ordering for asset-count vectors.
//
// Every feature vector uses exactly this order so vectors from different
// projects (and different index versions) stay positionally comparable.
// Changing this list is an index-version-breaking change.
var AssetKeys = [12]string{
	"ahu",
	"boiler",
	"chiller",
	"compressor",
	"cooling_tower",
	"ev_charger",
	"lighting_fixture",
	"motor",
	"pump",
	"rtu",
	"steam_trap",
	"water_heater",
}

// ProjectFeaturesV1 is the bucketed feature vector derived from one
// completed project record. The V1 suffix is part of the contract: stored
// snapshots carry the version, and a future V2 extraction gets a new type.
type ProjectFeaturesV1 struct {
	ProjectID          string      `json:"projectId"`
	BuildingTypeBucket string      `json:"buildingTypeBucket"`
	SqftBucket         string      `json:"sqftBucket"`
	ScheduleBucket     string      `json:"scheduleBucket"`
	ClimateZone        string      `json:"climateZone,omitempty"`
	Territory          string      `json:"territory,omitempty"`
	AssetVector        [12]float64 `json:"assetVector"`
	MeasureTags        []string    `json:"measureTags,omitempty"`
}

// ExtractFeatures derives ProjectFeaturesV1 from one record.
//
// All inputs are tolerated: missing asset counts become 0, negative counts
// clamp to 0, non-finite square footage falls into the smallest bin, and
// unrecognized schedule text becomes "unknown". Extraction never fails.
func ExtractFeatures(rec graph.CompletedProjectRecord) ProjectFeaturesV1 {
	return ProjectFeaturesV1{
		ProjectID:          rec.ID,
		BuildingTypeBucket: NormalizeBuildingType(rec.BuildingType),
		SqftBucket:         SqftBucket(rec.SqFt),
		ScheduleBucket:     ScheduleBucket(rec.Schedule),
		ClimateZone:        strings.TrimSpace(rec.ClimateZone),
		Territory:          strings.TrimSpace(rec.Territory),
		AssetVector:        AssetVector(rec.AssetCounts),
		MeasureTags:        NormalizeMeasureTags(rec.MeasureTags),
	}
}

// FromGraph derives the same feature shape for a live target project, so a
// target can be compared against indexed historical features. Asset counts
// come from the asset list; measure tags from measures already on the graph.
func FromGraph(g *graph.ProjectGraph) ProjectFeaturesV1 {
	counts := make(map[string]float64)
	for i := range g.Assets {
		counts[g.Assets[i].AssetType]++
	}
	tags := make([]string, 0, len(g.Measures))
	for i := range g.Measures {
		tags = append(tags, g.Measures[i].Measure.MeasureType)
	}
	return ProjectFeaturesV1{
		ProjectID:          g.ProjectID,
		BuildingTypeBucket: NormalizeBuildingType(g.BuildingType),
		SqftBucket:         SqftBucket(g.SqFt),
		ScheduleBucket:     ScheduleBucket(g.Schedule),
		ClimateZone:        strings.TrimSpace(g.ClimateZone),
		Territory:          strings.TrimSpace(g.Territory),
		AssetVector:        AssetVector(counts),
		MeasureTags:        NormalizeMeasureTags(tags),
	}
}

// NormalizeBuildingType collapses freeform building-type text into a bucket
// key: trimmed, lowercased, inner whitespace runs and separators replaced
// with single underscores. Empty input normalizes to "unknown".
func NormalizeBuildingType(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "unknown"
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "unknown"
	}
	return out
}

// SqftBucket maps square footage into one of the 4 fixed bins. Non-finite
// or non-positive values fall into the smallest bin.
func SqftBucket(sqft float64) string {
	if math.IsNaN(sqft) || math.IsInf(sqft, 0) || sqft <= 0 {
		return SqftBucketSmall
	}
	switch {
	case sqft < 50_000:
		return SqftBucketSmall
	case sqft < 150_000:
		return SqftBucketMedium
	case sqft < 500_000:
		return SqftBucketLarge
	default:
		return SqftBucketXLarge
	}
}

// sqftBucketRank gives adjacency ordering for partial-credit scoring.
var sqftBucketRank = map[string]int{
	SqftBucketSmall:  0,
	SqftBucketMedium: 1,
	SqftBucketLarge:  2,
	SqftBucketXLarge: 3,
}

// SqftBucketDistance returns the number of bins between two buckets, or -1
// if either bucket is unrecognized.
func SqftBucketDistance(a, b string) int {
	ra, okA := sqftBucketRank[a]
	rb, okB := sqftBucketRank[b]
	if !okA || !okB {
		return -1
	}
	d := ra - rb
	if d < 0 {
		d = -d
	}
	return d
}

// ScheduleBucket maps loose schedule text into one of the four schedule
// buckets. Anything unrecognized is "unknown".
func ScheduleBucket(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return ScheduleUnknown
	case strings.Contains(s, "24/7"), strings.Contains(s, "24x7"),
		strings.Contains(s, "24_7"), strings.Contains(s, "around the clock"),
		strings.Contains(s, "continuous"):
		return Schedule24x7
	case strings.Contains(s, "business"), strings.Contains(s, "office hours"),
		strings.Contains(s, "9-5"), strings.Contains(s, "weekday"):
		return ScheduleBusiness
	case strings.Contains(s, "mixed"), strings.Contains(s, "varies"),
		strings.Contains(s, "variable"):
		return ScheduleMixed
	default:
		return ScheduleUnknown
	}
}

// AssetVector builds the fixed-order 12-key count vector. Missing keys are
// 0, counts are rounded to the nearest integer, and negative or non-finite
// counts clamp to 0.
func AssetVector(counts map[string]float64) [12]float64 {
	var v [12]float64
	for i, key := range AssetKeys {
		c, ok := counts[key]
		if !ok || math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			continue
		}
		v[i] = math.Round(c)
	}
	return v
}

// NormalizeMeasureTags lowercases, trims, deduplicates, sorts, and caps the
// tag list at MaxMeasureTags. The cap is applied after sorting so the kept
// subset is deterministic.
func NormalizeMeasureTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	if len(out) > MaxMeasureTags {
		out = out[:MaxMeasureTags]
	}
	return out
}
