// Package inbox implements the decision state machine that turns
// non-authoritative inbox items into authoritative graph facts - or into
// documented rejections.
//
// State machine:
//
//	inferred -> accepted | rejected     (terminal, exactly once)
//
// Every decision, either way:
//   - requires a non-empty reason (invalid input is returned as a
//     structured result, never thrown)
//   - removes the item from the live inbox and appends it to history with
//     its final disposition
//   - appends exactly one append-only DecisionEntry carrying the item's
//     provenance and any created ids
//
// Accept additionally dispatches on the item kind:
//   - suggestedMeasure: appends a MeasureNode (id-deduplicated)
//   - suggestedAsset: appends an AssetNode with a generated, sanitized,
//     globally-unique asset tag (collision-safe incrementing suffix)
//   - suggestedProperty: merges properties into the target asset's
//     baseline, unless the baseline is frozen (frozen -> silent no-op)
//   - suggestedBomItems: appends a BomItemsRecord keyed to a measure id
//
// Reject never touches assets, measures, or bom items.
//
// The function is pure over snapshots: it clones the input graph, mutates
// the clone, and returns it as a full replacement for the caller to
// persist. Time and id generation are injected.
package inbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/everwatt/evercore/pkg/graph"
)

// Programmer-error-class call shapes. Routine domain variability (empty
// reason, unknown item) comes back as a structured Result instead.
var (
	ErrNilGraph     = errors.New("inbox: nil project graph")
	ErrNilIDFactory = errors.New("inbox: nil id factory")
	ErrEmptyNow     = errors.New("inbox: empty timestamp")
)

// Decision is one human accept/reject call on an inbox item.
type Decision struct {
	InboxItemID string
	Accept      bool
	Reason      string
	DecidedBy   string // optional reviewer handle, recorded on the ledger reason line
}

// Result is the structured outcome of a decision.
//
// When OK is false, Invalid holds a human-renderable explanation and the
// graph was not touched (Graph is nil). When OK is true, Graph is the full
// replacement graph to persist, Entry the appended ledger line, and
// CreatedIDs any asset/measure/bom ids the acceptance created.
type Result struct {
	OK         bool                 `json:"ok"`
	Invalid    string               `json:"invalid,omitempty"`
	Graph      *graph.ProjectGraph  `json:"graph,omitempty"`
	Entry      *graph.DecisionEntry `json:"entry,omitempty"`
	CreatedIDs []string             `json:"createdIds,omitempty"`
}

func invalid(format string, args ...any) Result {
	return Result{Invalid: fmt.Sprintf(format, args...)}
}

// Decide applies one human decision to the graph.
//
// The input graph is never mutated; the returned Result carries a deep
// copy with the decision applied. Errors are reserved for programmer-error
// call shapes (nil graph, nil id factory, empty timestamp); malformed
// decisions return OK=false with a renderable Invalid string.
func Decide(g *graph.ProjectGraph, d Decision, nowISO string, newID func() string) (Result, error) {
	switch {
	case g == nil:
		return Result{}, ErrNilGraph
	case newID == nil:
		return Result{}, ErrNilIDFactory
	case strings.TrimSpace(nowISO) == "":
		return Result{}, ErrEmptyNow
	}

	if strings.TrimSpace(d.Reason) == "" {
		return invalid("a non-empty reason is required to decide an inbox item"), nil
	}

	out := g.Clone()
	item := out.InboxItemByID(d.InboxItemID)
	if item == nil {
		return invalid("inbox item %q not found", d.InboxItemID), nil
	}
	decided := *item // copy before the inbox slice is rewritten

	var createdIDs []string
	disposition := graph.StatusRejected
	if d.Accept {
		disposition = graph.StatusAccepted
		var inv string
		createdIDs, inv = applyAccept(out, decided, nowISO, newID)
		if inv != "" {
			return invalid("%s", inv), nil
		}
	}

	removeInboxItem(out, decided.ID)
	out.InboxHistory = append(out.InboxHistory, graph.InboxHistoryItem{
		Item:        decided,
		Disposition: disposition,
		Reason:      d.Reason,
		DecidedAt:   nowISO,
	})

	reason := d.Reason
	if d.DecidedBy != "" {
		reason = d.DecidedBy + ": " + reason
	}
	entry := graph.DecisionEntry{
		ID:          newID(),
		InboxItemID: decided.ID,
		SourceKey:   decided.SourceKey,
		Evidence:    decided.Evidence,
		Decision:    disposition,
		Reason:      reason,
		CreatedIDs:  createdIDs,
		DecidedAt:   nowISO,
	}
	out.Decisions = append(out.Decisions, entry)

	return Result{OK: true, Graph: out, Entry: &entry, CreatedIDs: createdIDs}, nil
}

// applyAccept dispatches on the item kind and mutates the clone. Returns
// created ids, or a non-empty invalid string when the item is malformed.
func applyAccept(g *graph.ProjectGraph, item graph.InboxItem, nowISO string, newID func() string) ([]string, string) {
	switch item.Kind {
	case graph.KindSuggestedMeasure:
		if item.SuggestedMeasure == nil {
			return nil, fmt.Sprintf("inbox item %q has kind %s but no measure payload", item.ID, item.Kind)
		}
		id := newID()
		if g.HasMeasureID(id) {
			return nil, "" // id already applied; nothing to create
		}
		g.Measures = append(g.Measures, graph.MeasureNode{
			ID:        id,
			Measure:   *item.SuggestedMeasure,
			Status:    "proposed",
			CreatedAt: nowISO,
		})
		return []string{id}, ""

	case graph.KindSuggestedAsset:
		if item.SuggestedAsset == nil {
			return nil, fmt.Sprintf("inbox item %q has kind %s but no asset payload", item.ID, item.Kind)
		}
		id := newID()
		g.Assets = append(g.Assets, graph.AssetNode{
			ID:         id,
			AssetTag:   uniqueAssetTag(g, item.SuggestedAsset),
			AssetType:  item.SuggestedAsset.AssetType,
			Name:       item.SuggestedAsset.Name,
			Properties: item.SuggestedAsset.Properties,
			CreatedAt:  nowISO,
		})
		return []string{id}, ""

	case graph.KindSuggestedProperty:
		if item.SuggestedProperty == nil {
			return nil, fmt.Sprintf("inbox item %q has kind %s but no property payload", item.ID, item.Kind)
		}
		applyBaselineProperties(g, item.SuggestedProperty)
		return nil, "" // mutation, not creation; frozen/missing is a silent no-op

	case graph.KindSuggestedBomItems:
		if item.SuggestedBomItems == nil {
			return nil, fmt.Sprintf("inbox item %q has kind %s but no bom payload", item.ID, item.Kind)
		}
		id := newID()
		g.BomItems = append(g.BomItems, graph.BomItemsRecord{
			ID:        id,
			MeasureID: item.SuggestedBomItems.MeasureID,
			Items:     item.SuggestedBomItems.Items,
			CreatedAt: nowISO,
		})
		return []string{id}, ""

	default:
		return nil, fmt.Sprintf("inbox item %q has unsupported kind %q", item.ID, item.Kind)
	}
}

// applyBaselineProperties merges proposed properties into the target
// asset's baseline. Frozen baselines and unknown assets are silent no-ops:
// the decision still completes and lands in the ledger, but authoritative
// state stays untouched.
func applyBaselineProperties(g *graph.ProjectGraph, prop *graph.PropertyProposal) {
	asset := g.Asset(prop.AssetID)
	if asset == nil {
		return
	}
	if asset.Baseline != nil && asset.Baseline.FrozenAt != "" {
		return // freeze-once guard
	}
	if asset.Baseline == nil {
		asset.Baseline = &graph.Baseline{}
	}
	if asset.Baseline.Properties == nil {
		asset.Baseline.Properties = make(map[string]any, len(prop.Properties))
	}
	for k, v := range prop.Properties {
		asset.Baseline.Properties[k] = v
	}
}

func removeInboxItem(g *graph.ProjectGraph, id string) {
	kept := g.Inbox[:0]
	for _, it := range g.Inbox {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	g.Inbox = kept
}

// uniqueAssetTag generates a sanitized, globally-unique tag for a new
// asset: the proposal's name (or asset type) upper-snaked, with an
// incrementing numeric suffix on collision.
func uniqueAssetTag(g *graph.ProjectGraph, prop *graph.AssetProposal) string {
	base := sanitizeTag(prop.Name)
	if base == "" {
		base = sanitizeTag(prop.AssetType)
	}
	if base == "" {
		base = "ASSET"
	}
	if !tagExists(g, base) {
		return base
	}
	for i := 2; ; i++ {
		tag := fmt.Sprintf("%s-%d", base, i)
		if !tagExists(g, tag) {
			return tag
		}
	}
}

func tagExists(g *graph.ProjectGraph, tag string) bool {
	for i := range g.Assets {
		if g.Assets[i].AssetTag == tag {
			return true
		}
	}
	return false
}

func sanitizeTag(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	lastSep := false
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		default:
			if !lastSep && b.Len() > 0 {
				b.WriteByte('-')
				lastSep = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
