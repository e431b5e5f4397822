package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/everwatt/evercore/pkg/graph"
)

func TestNormalizeBuildingType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Office", "office"},
		{"  Office Tower  ", "office_tower"},
		{"K-12 School", "k_12_school"},
		{"WAREHOUSE / DISTRIBUTION", "warehouse_distribution"},
		{"", "unknown"},
		{"   ", "unknown"},
		{"---", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeBuildingType(tt.in), "input %q", tt.in)
	}
}

func TestSqftBucket(t *testing.T) {
	tests := []struct {
		sqft float64
		want string
	}{
		{10_000, SqftBucketSmall},
		{49_999, SqftBucketSmall},
		{50_000, SqftBucketMedium},
		{149_999, SqftBucketMedium},
		{150_000, SqftBucketLarge},
		{499_999, SqftBucketLarge},
		{500_000, SqftBucketXLarge},
		{2_000_000, SqftBucketXLarge},
		{0, SqftBucketSmall},
		{-100, SqftBucketSmall},
		{math.NaN(), SqftBucketSmall},
		{math.Inf(1), SqftBucketSmall},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SqftBucket(tt.sqft), "sqft %v", tt.sqft)
	}
}

func TestSqftBucketDistance(t *testing.T) {
	assert.Equal(t, 0, SqftBucketDistance(SqftBucketSmall, SqftBucketSmall))
	assert.Equal(t, 1, SqftBucketDistance(SqftBucketSmall, SqftBucketMedium))
	assert.Equal(t, 3, SqftBucketDistance(SqftBucketSmall, SqftBucketXLarge))
	assert.Equal(t, -1, SqftBucketDistance("bogus", SqftBucketSmall))
}

func TestScheduleBucket(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"24/7 operation", Schedule24x7},
		{"Runs 24x7", Schedule24x7},
		{"continuous process", Schedule24x7},
		{"Business hours only", ScheduleBusiness},
		{"weekdays 9-5", ScheduleBusiness},
		{"mixed occupancy", ScheduleMixed},
		{"varies by season", ScheduleMixed},
		{"", ScheduleUnknown},
		{"whenever", ScheduleUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScheduleBucket(tt.in), "input %q", tt.in)
	}
}

func TestAssetVector(t *testing.T) {
	v := AssetVector(map[string]float64{
		"ahu":     3.4,  // rounds to 3
		"pump":    -2,   // clamps to 0
		"chiller": 2,    // kept
		"boiler":  math.NaN(), // clamps to 0
		"not_a_key": 99, // ignored
	})

	assert.Equal(t, 3.0, v[assetKeyIndex(t, "ahu")])
	assert.Equal(t, 0.0, v[assetKeyIndex(t, "pump")])
	assert.Equal(t, 2.0, v[assetKeyIndex(t, "chiller")])
	assert.Equal(t, 0.0, v[assetKeyIndex(t, "boiler")])
}

func assetKeyIndex(t *testing.T, key string) int {
	t.Helper()
	for i, k := range AssetKeys {
		if k == key {
			return i
		}
	}
	t.Fatalf("unknown asset key %q", key)
	return -1
}

func TestNormalizeMeasureTags(t *testing.T) {
	got := NormalizeMeasureTags([]string{" VFD_Retrofit ", "led_lighting", "vfd_retrofit", "", "LED_LIGHTING"})
	assert.Equal(t, []string{"led_lighting", "vfd_retrofit"}, got)

	assert.Nil(t, NormalizeMeasureTags(nil))
	assert.Nil(t, NormalizeMeasureTags([]string{"", "  "}))
}

func TestNormalizeMeasureTagsCap(t *testing.T) {
	tags := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		tags = append(tags, string(rune('a'+i))+"_measure")
	}
	got := NormalizeMeasureTags(tags)
	assert.Len(t, got, MaxMeasureTags)
	assert.True(t, sortedStrings(got), "capped subset stays sorted")
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}

func TestExtractFeatures(t *testing.T) {
	rec := graph.CompletedProjectRecord{
		ID:           "proj-1",
		OrgID:        "org-1",
		BuildingType: "Office Tower",
		SqFt:         220_000,
		Schedule:     "business hours",
		ClimateZone:  "3C",
		Territory:    "PG&E",
		AssetCounts:  map[string]float64{"ahu": 4, "pump": 6},
		MeasureTags:  []string{"VFD_RETROFIT", "hvac_scheduling"},
	}

	f := ExtractFeatures(rec)
	assert.Equal(t, "proj-1", f.ProjectID)
	assert.Equal(t, "office_tower", f.BuildingTypeBucket)
	assert.Equal(t, SqftBucketLarge, f.SqftBucket)
	assert.Equal(t, ScheduleBusiness, f.ScheduleBucket)
	assert.Equal(t, "3C", f.ClimateZone)
	assert.Equal(t, "PG&E", f.Territory)
	assert.Equal(t, []string{"hvac_scheduling", "vfd_retrofit"}, f.MeasureTags)
}
