// Package graph defines the authoritative project graph for EverCore.
//
// The project graph is the single source of truth for a target facility:
// its assets, the efficiency measures attached to them, bill-of-material
// records, and the review surfaces (inbox, inbox history, decision ledger)
// that gate every mutation behind an explicit human decision.
//
// Design Principles:
//   - Facts enter the graph only through an accepted inbox item
//   - Baselines freeze: once FrozenAt is set, baseline properties are immutable
//   - Decisions are append-only and provenance-linked
//   - Timestamps and identifiers are supplied by the caller, never generated
//     from an ambient clock or random source
//
// Example Usage:
//
//	g := &graph.ProjectGraph{
//		ProjectID:    "proj-42",
//		OrgID:        "org-1",
//		BuildingType: "office",
//		Assets: []graph.AssetNode{
//			{ID: "asset-ahu-1", AssetType: "ahu", Name: "AHU-1"},
//		},
//	}
//
//	item := graph.InboxItem{
//		ID:     "inbox-1",
//		Kind:   graph.KindSuggestedMeasure,
//		Status: graph.StatusInferred,
//		SuggestedMeasure: &graph.Measure{
//			MeasureType: "VFD_RETROFIT",
//			Label:       "VFD retrofit on AHU supply fans",
//		},
//		Evidence:  graph.EvidenceRef{SourceType: "recommendation", SourceID: "run-7"},
//		SourceKey: graph.SourceKey("proj-42", "suggestedMeasure", "VFD_RETROFIT"),
//	}
//	g.Inbox = append(g.Inbox, item)
//
// ELI12:
//
// Think of the project graph like a school record book with a locked cover:
//
//  1. **Assets and measures** are the official pages - what the building has
//     and what we decided to do about it.
//
//  2. **The inbox** is a stack of sticky notes on the cover: "I think this
//     building should get new fans." Sticky notes are NOT official.
//
//  3. **A teacher (human reviewer)** reads each sticky note and either copies
//     it into the book (accept) or bins it (reject) - and either way writes
//     down why in the decision ledger, in pen, forever.
//
// Nothing gets into the book without a teacher's signature. That's the whole
// point of this package.
package graph

import "errors"

// Common errors
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidID      = errors.New("invalid id")
	ErrBaselineFrozen = errors.New("baseline frozen")
)

// Inbox item kinds. The accept branch of the decision state machine
// dispatches exhaustively on these.
const (
	KindSuggestedAsset    = "suggestedAsset"
	KindSuggestedProperty = "suggestedProperty"
	KindSuggestedMeasure  = "suggestedMeasure"
	KindSuggestedBomItems = "suggestedBomItems"
)

// Inbox item status. Items are always inferred until decided; decided items
// live in history, never in the live inbox.
const (
	StatusInferred = "inferred"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// EvidenceRef points a fact at the source artifact that supports it.
//
// Provenance is carried as string-keyed references rather than embedded
// object graphs so re-linking and dedupe stay storage-agnostic.
type EvidenceRef struct {
	SourceType string `json:"sourceType"`        // e.g. "recommendation", "import", "utility_bill"
	SourceID   string `json:"sourceId"`          // artifact identifier in the source system
	Locator    string `json:"locator,omitempty"` // page, cell range, run number
	Note       string `json:"note,omitempty"`
}

// Measure is a canonical efficiency measure.
//
// MeasureType is always one of the canonical taxonomy values (see
// pkg/measures); Label is the human-readable name. Tags and Parameters carry
// free-form detail; AffectedAssetTypes/IDs scope the measure to equipment.
type Measure struct {
	MeasureType        string         `json:"measureType"`
	Label              string         `json:"label"`
	Tags               []string       `json:"tags,omitempty"`
	Parameters         map[string]any `json:"parameters,omitempty"`
	AffectedAssetTypes []string       `json:"affectedAssetTypes,omitempty"`
	AffectedAssetIDs   []string       `json:"affectedAssetIds,omitempty"`
}

// Baseline is the frozen pre-intervention description of an asset.
//
// Properties may be edited freely until FrozenAt is set. After that the
// block is immutable: property writes become silent no-ops at the decision
// layer and ErrBaselineFrozen at the direct API.
type Baseline struct {
	Properties map[string]any `json:"properties,omitempty"`
	FrozenAt   string         `json:"frozenAt,omitempty"` // ISO 8601; empty = not frozen
}

// AssetNode is an authoritative piece of equipment in the project graph.
type AssetNode struct {
	ID         string         `json:"id"`
	AssetTag   string         `json:"assetTag,omitempty"` // human-facing, globally unique per graph
	AssetType  string         `json:"assetType"`          // e.g. "ahu", "chiller", "pump"
	Name       string         `json:"name,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Baseline   *Baseline      `json:"baseline,omitempty"`
	CreatedAt  string         `json:"createdAt,omitempty"`
}

// MeasureNode is an authoritative measure attached to the project graph.
type MeasureNode struct {
	ID        string  `json:"id"`
	Measure   Measure `json:"measure"`
	Status    string  `json:"status,omitempty"` // e.g. "proposed", "approved", "installed"
	CreatedAt string  `json:"createdAt,omitempty"`
}

// BomItem is one line of a bill of materials.
type BomItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	PartNumber  string  `json:"partNumber,omitempty"`
}

// BomItemsRecord groups bill-of-material lines under one measure.
type BomItemsRecord struct {
	ID        string    `json:"id"`
	MeasureID string    `json:"measureId"`
	Items     []BomItem `json:"items"`
	CreatedAt string    `json:"createdAt,omitempty"`
}

// InboxItem is a non-authoritative candidate fact awaiting human review.
//
// Exactly one of the Suggested* payload fields is set, matching Kind. Status
// is always StatusInferred while the item sits in the live inbox.
//
// SourceKey is the cross-run dedupe handle: re-running a recommendation with
// the same inputs produces the same SourceKey, and appending an item whose
// SourceKey already exists in the inbox is a no-op for the producer.
type InboxItem struct {
	ID        string      `json:"id"`
	Kind      string      `json:"kind"`
	Status    string      `json:"status"`
	Title     string      `json:"title,omitempty"`
	Rationale string      `json:"rationale,omitempty"`
	Evidence  EvidenceRef `json:"evidence"`
	SourceKey string      `json:"sourceKey,omitempty"`
	CreatedAt string      `json:"createdAt,omitempty"`

	// Payload (exactly one set, matching Kind)
	SuggestedMeasure  *Measure          `json:"suggestedMeasure,omitempty"`
	SuggestedAsset    *AssetProposal    `json:"suggestedAsset,omitempty"`
	SuggestedProperty *PropertyProposal `json:"suggestedProperty,omitempty"`
	SuggestedBomItems *BomItemsProposal `json:"suggestedBomItems,omitempty"`
}

// AssetProposal is the payload of a suggestedAsset inbox item.
type AssetProposal struct {
	AssetType  string         `json:"assetType"`
	Name       string         `json:"name,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// PropertyProposal is the payload of a suggestedProperty inbox item. It
// targets one asset's baseline block.
type PropertyProposal struct {
	AssetID    string         `json:"assetId"`
	Properties map[string]any `json:"properties"`
}

// BomItemsProposal is the payload of a suggestedBomItems inbox item.
type BomItemsProposal struct {
	MeasureID string    `json:"measureId"`
	Items     []BomItem `json:"items"`
}

// InboxHistoryItem is the terminal record of a decided inbox item.
type InboxHistoryItem struct {
	Item        InboxItem `json:"item"`
	Disposition string    `json:"disposition"` // StatusAccepted or StatusRejected
	Reason      string    `json:"reason"`
	DecidedAt   string    `json:"decidedAt"`
}

// DecisionEntry is one append-only ledger line recording a human decision.
//
// Entries reference the originating inbox item's id and source key plus any
// asset/measure/bom ids the acceptance created, so every authoritative fact
// can be traced back through the decision to its evidence.
type DecisionEntry struct {
	ID          string      `json:"id"`
	InboxItemID string      `json:"inboxItemId"`
	SourceKey   string      `json:"sourceKey,omitempty"`
	Evidence    EvidenceRef `json:"evidence"`
	Decision    string      `json:"decision"` // StatusAccepted or StatusRejected
	Reason      string      `json:"reason"`
	CreatedIDs  []string    `json:"createdIds,omitempty"`
	DecidedAt   string      `json:"decidedAt"`
}

// CompletedProjectRecord is immutable historical ground truth: one finished
// project mined for recommendations. Records are created by import and never
// mutated afterwards.
type CompletedProjectRecord struct {
	ID           string             `json:"id"`
	OrgID        string             `json:"orgId"`
	Name         string             `json:"name,omitempty"`
	BuildingType string             `json:"buildingType,omitempty"`
	SqFt         float64            `json:"sqFt,omitempty"`
	Schedule     string             `json:"schedule,omitempty"` // freeform, bucketed at extraction
	ClimateZone  string             `json:"climateZone,omitempty"`
	Territory    string             `json:"territory,omitempty"` // utility territory
	AssetCounts  map[string]float64 `json:"assetCounts,omitempty"`
	MeasureTags  []string           `json:"measureTags,omitempty"` // canonical measures implemented
	Evidence     []EvidenceRef      `json:"evidence,omitempty"`
}

// ProjectGraph is the full authoritative state for one target project.
//
// The decision state machine returns a full replacement graph; callers
// persist it transactionally.
type ProjectGraph struct {
	ProjectID    string             `json:"projectId"`
	OrgID        string             `json:"orgId"`
	Name         string             `json:"name,omitempty"`
	BuildingType string             `json:"buildingType,omitempty"`
	SqFt         float64            `json:"sqFt,omitempty"`
	Schedule     string             `json:"schedule,omitempty"`
	ClimateZone  string             `json:"climateZone,omitempty"`
	Territory    string             `json:"territory,omitempty"`
	Telemetry    []string           `json:"telemetry,omitempty"` // available telemetry kinds, e.g. "interval_kw"
	Assets       []AssetNode        `json:"assets,omitempty"`
	Measures     []MeasureNode      `json:"measures,omitempty"`
	BomItems     []BomItemsRecord   `json:"bomItems,omitempty"`
	Inbox        []InboxItem        `json:"inbox,omitempty"`
	InboxHistory []InboxHistoryItem `json:"inboxHistory,omitempty"`
	Decisions    []DecisionEntry    `json:"decisions,omitempty"`
}
