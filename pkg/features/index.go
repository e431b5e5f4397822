package features

import (
	"sort"

	"github.com/everwatt/evercore/pkg/graph"
)

// MemoryIndex is a versioned, per-organization snapshot of extracted
// features plus three inverted indexes over them.
//
// Indexes are rebuilt wholesale, never patched incrementally: a rebuild
// replaces the whole snapshot under a new (orgID, version) key. Postings
// lists are sorted, so identical input always produces identical output.
type MemoryIndex struct {
	OrgID   string `json:"orgId"`
	Version int    `json:"version"`

	// Features keyed by project id.
	Features map[string]ProjectFeaturesV1 `json:"features"`

	// Inverted indexes: term -> sorted project ids.
	ByMeasureTag   map[string][]string `json:"byMeasureTag"`
	ByBuildingType map[string][]string `json:"byBuildingType"`
	ByAssetType    map[string][]string `json:"byAssetType"`
}

// BuildIndex extracts features for every record and assembles the inverted
// indexes for one organization.
//
// Ingestion is tolerant: records without an id are silently skipped (they
// could never be looked up again anyway), and a later record with a
// duplicate id wins, mirroring last-write semantics of the importer.
//
// Parameters:
//   - orgID: owning organization
//   - version: snapshot version supplied by the caller
//   - records: completed project records, any order
//
// Returns:
//   - MemoryIndex whose contents are byte-identical across repeated runs on
//     identical input
func BuildIndex(orgID string, version int, records []graph.CompletedProjectRecord) *MemoryIndex {
	idx := &MemoryIndex{
		OrgID:          orgID,
		Version:        version,
		Features:       make(map[string]ProjectFeaturesV1),
		ByMeasureTag:   make(map[string][]string),
		ByBuildingType: make(map[string][]string),
		ByAssetType:    make(map[string][]string),
	}

	for _, rec := range records {
		if rec.ID == "" {
			continue // tolerant ingestion, not an error
		}
		idx.Features[rec.ID] = ExtractFeatures(rec)
	}

	// Build postings from the final feature set so duplicate record ids
	// contribute exactly one posting each.
	ids := make([]string, 0, len(idx.Features))
	for id := range idx.Features {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		f := idx.Features[id]
		for _, tag := range f.MeasureTags {
			idx.ByMeasureTag[tag] = append(idx.ByMeasureTag[tag], id)
		}
		idx.ByBuildingType[f.BuildingTypeBucket] = append(idx.ByBuildingType[f.BuildingTypeBucket], id)
		for i, key := range AssetKeys {
			if f.AssetVector[i] > 0 {
				idx.ByAssetType[key] = append(idx.ByAssetType[key], id)
			}
		}
	}

	return idx
}

// ProjectIDs returns all indexed project ids, sorted.
func (m *MemoryIndex) ProjectIDs() []string {
	ids := make([]string, 0, len(m.Features))
	for id := range m.Features {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
