package graph

import "encoding/json"

// Asset returns a pointer to the asset with the given id, or nil.
func (g *ProjectGraph) Asset(id string) *AssetNode {
	for i := range g.Assets {
		if g.Assets[i].ID == id {
			return &g.Assets[i]
		}
	}
	return nil
}

// HasAssetType reports whether any asset of the given type exists.
func (g *ProjectGraph) HasAssetType(assetType string) bool {
	for i := range g.Assets {
		if g.Assets[i].AssetType == assetType {
			return true
		}
	}
	return false
}

// HasTelemetry reports whether the named telemetry kind is available for
// this project. Telemetry kinds are free strings ("interval_kw",
// "gas_meter", "bas_trend") registered by the importer.
func (g *ProjectGraph) HasTelemetry(kind string) bool {
	for _, t := range g.Telemetry {
		if t == kind {
			return true
		}
	}
	return false
}

// HasMeasureID reports whether a measure node with the given id exists.
func (g *ProjectGraph) HasMeasureID(id string) bool {
	for i := range g.Measures {
		if g.Measures[i].ID == id {
			return true
		}
	}
	return false
}

// InboxItemByID returns the live inbox item with the given id, or nil.
func (g *ProjectGraph) InboxItemByID(id string) *InboxItem {
	for i := range g.Inbox {
		if g.Inbox[i].ID == id {
			return &g.Inbox[i]
		}
	}
	return nil
}

// HasSourceKey reports whether the given source key already exists in the
// live inbox or in inbox history. Producers use this for cross-run dedupe:
// an already-seen key must not create a second inbox item.
func (g *ProjectGraph) HasSourceKey(key string) bool {
	if key == "" {
		return false
	}
	for i := range g.Inbox {
		if g.Inbox[i].SourceKey == key {
			return true
		}
	}
	for i := range g.InboxHistory {
		if g.InboxHistory[i].Item.SourceKey == key {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the graph.
//
// The decision state machine operates read-snapshot/compute/write-snapshot:
// it clones, mutates the clone, and returns it as a full replacement. JSON
// round-tripping is the copy mechanism so nested property maps are never
// shared between the input and output graphs.
func (g *ProjectGraph) Clone() *ProjectGraph {
	data, err := json.Marshal(g)
	if err != nil {
		// ProjectGraph contains only JSON-serializable fields; a marshal
		// failure here is a programmer error.
		panic("graph: clone marshal: " + err.Error())
	}
	out := &ProjectGraph{}
	if err := json.Unmarshal(data, out); err != nil {
		panic("graph: clone unmarshal: " + err.Error())
	}
	return out
}
