// Package recommend assembles ranked, explainable measure suggestions for
// a target project by mining the memory index, overlaying playbooks, and
// optionally folding in the battery screen.
//
// Every suggestion is non-authoritative: the assembler emits a paired,
// provenance-linked inbox item for each one, and only a human decision
// (pkg/inbox) can move a suggestion's content into the authoritative graph.
//
// Scoring composition, in order:
//
//	baseScore  = similarity-weighted support among the top-N similar projects
//	score      = clamp01(baseScore x playbook multiplier)
//	confidence = clamp01(ConfidenceFloor + ConfidenceSlope x baseScore)
//
// Confidence is deliberately a separate bounded function of baseScore, not
// a copy of the score: playbook overlays shift ranking, not certainty.
//
// Determinism: the caller supplies the timestamp and the id factory, so one
// assembly run shares one timestamp and identical inputs plus an identical
// id sequence reproduce identical output.
package recommend

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/everwatt/evercore/pkg/battery"
	"github.com/everwatt/evercore/pkg/features"
	"github.com/everwatt/evercore/pkg/graph"
	"github.com/everwatt/evercore/pkg/measures"
	"github.com/everwatt/evercore/pkg/playbook"
	"github.com/everwatt/evercore/pkg/similarity"
)

// Assembly policy constants.
const (
	// DefaultTopN similar projects are sampled when Params.TopN is unset.
	DefaultTopN = 5

	// MaxExplainContributors caps the per-suggestion contributor list.
	MaxExplainContributors = 3

	// Confidence mapping from baseScore.
	ConfidenceFloor = 0.2
	ConfidenceSlope = 0.7

	// MaxRationaleLen truncates inbox rationales to stay scannable.
	MaxRationaleLen = 240
)

// Errors for programmer-error-class call shapes. Routine domain
// variability (empty index, no playbooks, missing telemetry) never errors.
var (
	ErrNilGraph     = errors.New("recommend: nil project graph")
	ErrNilIndex     = errors.New("recommend: nil memory index")
	ErrNilIDFactory = errors.New("recommend: nil id factory")
	ErrEmptyNow     = errors.New("recommend: empty timestamp")
)

// Contributor is one historical project supporting a suggestion.
type Contributor struct {
	ProjectID       string   `json:"projectId"`
	SimilarityScore float64  `json:"similarityScore"`
	MatchedFeatures []string `json:"matchedFeatures,omitempty"`
}

// Explain is the suggestion's explainability payload.
type Explain struct {
	Contributors     []Contributor `json:"contributors,omitempty"` // top 3 by similarity
	Frequency        string        `json:"frequency"`              // "seen in X of Y similar projects"
	AppliedPlaybooks []string      `json:"appliedPlaybooks,omitempty"`
}

// Suggestion is one scored, explainable measure proposal. Immutable once
// created; unique per measureType within one assembly run.
type Suggestion struct {
	ID                    string          `json:"id"`
	ProjectID             string          `json:"projectId"`
	Measure               graph.Measure   `json:"measure"`
	Score                 float64         `json:"score"`      // [0,1]
	Confidence            float64         `json:"confidence"` // [0,1]
	Alignment             playbook.Result `json:"alignment"`
	Explain               Explain         `json:"explain"`
	RequiredInputsMissing []string        `json:"requiredInputsMissing,omitempty"`
	CreatedAt             string          `json:"createdAt"`
}

// Params carries one assembly run's inputs. Graph, Index, NewID, and
// NowISO are required; everything else degrades gracefully when absent.
type Params struct {
	Graph        *graph.ProjectGraph
	Index        *features.MemoryIndex
	Playbooks    []playbook.Playbook
	Requirements measures.Registry
	Battery      *battery.Selection // optional precomputed battery screen
	TopN         int

	NowISO string
	NewID  func() string
}

// Output pairs the suggestions with their inbox items. InboxItems excludes
// items whose sourceKey already exists on the graph (cross-run dedupe), so
// it can be appended to the graph's inbox as-is.
type Output struct {
	Suggestions []Suggestion      `json:"suggestions"`
	InboxItems  []graph.InboxItem `json:"inboxItems"`
}

// candidate accumulates support for one measure type during assembly.
type candidate struct {
	measureType string
	supporters  []similarity.ProjectScore
}

// Assemble runs one recommendation pass.
//
// For each measure type surfaced by the top-N most similar historical
// projects (plus the top clean battery candidate when a battery screen is
// supplied), it emits exactly one Suggestion and, unless the sourceKey is
// already known to the graph, one paired inbox item.
func Assemble(p Params) (*Output, error) {
	switch {
	case p.Graph == nil:
		return nil, ErrNilGraph
	case p.Index == nil:
		return nil, ErrNilIndex
	case p.NewID == nil:
		return nil, ErrNilIDFactory
	case strings.TrimSpace(p.NowISO) == "":
		return nil, ErrEmptyNow
	}
	topN := p.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	reg := p.Requirements
	if reg == nil {
		reg = measures.DefaultRequirements()
	}

	target := features.FromGraph(p.Graph)
	sampled := similarity.Rank(target, p.Index, topN)
	matches := playbook.Match(playbook.TargetFromGraph(p.Graph), p.Playbooks)

	var totalSim float64
	for _, ps := range sampled {
		totalSim += ps.Value
	}

	// Gather support per canonical measure type. Tag order within a
	// project is already sorted; sampled order is deterministic; so the
	// candidate map contents are reproducible.
	byType := make(map[string]*candidate)
	var typeOrder []string
	for _, ps := range sampled {
		f := p.Index.Features[ps.ProjectID]
		seenHere := make(map[string]struct{})
		for _, tag := range f.MeasureTags {
			mt := measures.NormalizeMeasureType(tag)
			if mt == measures.Other {
				continue // unmappable history is not a recommendation basis
			}
			if _, dup := seenHere[mt]; dup {
				continue
			}
			seenHere[mt] = struct{}{}
			c, ok := byType[mt]
			if !ok {
				c = &candidate{measureType: mt}
				byType[mt] = c
				typeOrder = append(typeOrder, mt)
			}
			c.supporters = append(c.supporters, ps)
		}
	}

	out := &Output{}
	for _, mt := range typeOrder {
		c := byType[mt]
		base := supportScore(c.supporters, sampled, totalSim)
		s := buildSuggestion(p, reg, matches, graph.Measure{
			MeasureType: mt,
			Label:       labelFor(mt),
		}, base, c.supporters, len(sampled))
		out.Suggestions = append(out.Suggestions, s)
	}

	if bs := batterySuggestion(p, reg, matches, len(sampled)); bs != nil {
		if existing := findByType(out.Suggestions, measures.BatteryStorage); existing != nil {
			// History already surfaced storage; fold the screen's missing
			// inputs and hardware pick into the existing suggestion
			// rather than emitting a duplicate measureType.
			existing.RequiredInputsMissing = mergeMissing(existing.RequiredInputsMissing, bs.RequiredInputsMissing)
			existing.Measure.Parameters = bs.Measure.Parameters
		} else {
			out.Suggestions = append(out.Suggestions, *bs)
		}
	}

	sort.SliceStable(out.Suggestions, func(i, j int) bool {
		a, b := out.Suggestions[i], out.Suggestions[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Measure.MeasureType < b.Measure.MeasureType
	})

	for _, s := range out.Suggestions {
		item := inboxItemFor(p, s)
		if p.Graph.HasSourceKey(item.SourceKey) {
			continue // sourceKey re-use must not create duplicates
		}
		out.InboxItems = append(out.InboxItems, item)
	}

	return out, nil
}

// supportScore is the similarity-weighted support: the supporters' share
// of total sampled similarity. Falls back to a plain frequency ratio when
// every sampled similarity is zero.
func supportScore(supporters, sampled []similarity.ProjectScore, totalSim float64) float64 {
	if len(sampled) == 0 {
		return 0
	}
	if totalSim <= 0 {
		return clamp01(float64(len(supporters)) / float64(len(sampled)))
	}
	var sum float64
	for _, s := range supporters {
		sum += s.Value
	}
	return clamp01(sum / totalSim)
}

func buildSuggestion(p Params, reg measures.Registry, matches []playbook.Playbook,
	m graph.Measure, base float64, supporters []similarity.ProjectScore, sampleSize int) Suggestion {

	align := playbook.Alignment(matches, m.MeasureType)
	score := clamp01(base * align.Multiplier())
	confidence := clamp01(ConfidenceFloor + ConfidenceSlope*base)

	contributors := topContributors(supporters)
	names := make([]string, 0, len(matches))
	for _, pb := range matches {
		names = append(names, pb.Name)
	}

	return Suggestion{
		ID:         p.NewID(),
		ProjectID:  p.Graph.ProjectID,
		Measure:    m,
		Score:      score,
		Confidence: confidence,
		Alignment:  align,
		Explain: Explain{
			Contributors:     contributors,
			Frequency:        fmt.Sprintf("seen in %d of %d similar projects", len(supporters), sampleSize),
			AppliedPlaybooks: names,
		},
		RequiredInputsMissing: measures.MissingInputs(p.Graph, m, reg),
		CreatedAt:             p.NowISO,
	}
}

// batterySuggestion builds the storage suggestion from the battery screen,
// taking the top zero-disqualifier candidate. Returns nil when no screen
// was supplied or no candidate survives.
func batterySuggestion(p Params, reg measures.Registry, matches []playbook.Playbook, sampleSize int) *Suggestion {
	if p.Battery == nil {
		return nil
	}
	var top *battery.CandidateResult
	for i := range p.Battery.Candidates {
		if len(p.Battery.Candidates[i].Disqualifiers) == 0 {
			top = &p.Battery.Candidates[i]
			break
		}
	}
	if top == nil {
		return nil
	}

	m := graph.Measure{
		MeasureType: measures.BatteryStorage,
		Label:       fmt.Sprintf("Battery storage: %s %s", top.Item.Vendor, top.Item.SKU),
		Parameters: map[string]any{
			"vendor":              top.Item.Vendor,
			"sku":                 top.Item.SKU,
			"targetKw":            p.Battery.Target.TargetKw,
			"targetKwh":           p.Battery.Target.TargetKwh,
			"targetDurationHours": p.Battery.Target.TargetDurationHours,
			"fitScore":            top.FitScore,
		},
	}

	s := buildSuggestion(p, reg, matches, m, top.FitScore, nil, sampleSize)
	s.Explain.Frequency = fmt.Sprintf("top catalog fit %.2f across %d screened candidates",
		top.FitScore, len(p.Battery.Candidates))
	s.RequiredInputsMissing = mergeMissing(s.RequiredInputsMissing, p.Battery.RequiredInputsMissing)
	return &s
}

func topContributors(supporters []similarity.ProjectScore) []Contributor {
	ranked := append([]similarity.ProjectScore(nil), supporters...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].ProjectID < ranked[j].ProjectID
	})
	if len(ranked) > MaxExplainContributors {
		ranked = ranked[:MaxExplainContributors]
	}
	out := make([]Contributor, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, Contributor{
			ProjectID:       s.ProjectID,
			SimilarityScore: s.Value,
			MatchedFeatures: s.Matched,
		})
	}
	return out
}

func inboxItemFor(p Params, s Suggestion) graph.InboxItem {
	measure := s.Measure
	rationale := fmt.Sprintf("%s; %s; score %.2f, confidence %.2f",
		s.Explain.Frequency, alignmentPhrase(s.Alignment), s.Score, s.Confidence)

	return graph.InboxItem{
		ID:        p.NewID(),
		Kind:      graph.KindSuggestedMeasure,
		Status:    graph.StatusInferred,
		Title:     measure.Label,
		Rationale: truncate(rationale, MaxRationaleLen),
		Evidence: graph.EvidenceRef{
			SourceType: "recommendation",
			SourceID:   s.ID,
			Locator:    s.Explain.Frequency,
		},
		SourceKey:        graph.SourceKey(p.Graph.ProjectID, graph.KindSuggestedMeasure, measure.MeasureType),
		CreatedAt:        p.NowISO,
		SuggestedMeasure: &measure,
	}
}

func alignmentPhrase(r playbook.Result) string {
	switch r.Alignment {
	case playbook.AlignPreferred:
		return fmt.Sprintf("preferred by playbook %s", r.PlaybookName)
	case playbook.AlignDiscouraged:
		return fmt.Sprintf("discouraged by playbook %s", r.PlaybookName)
	default:
		return "no playbook stance"
	}
}

func findByType(suggestions []Suggestion, measureType string) *Suggestion {
	for i := range suggestions {
		if suggestions[i].Measure.MeasureType == measureType {
			return &suggestions[i]
		}
	}
	return nil
}

func mergeMissing(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
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

// labelFor gives a human label for a canonical measure type surfaced from
// history (history carries tags, not labels).
func labelFor(measureType string) string {
	words := strings.Split(strings.ToLower(measureType), "_")
	for i, w := range words {
		switch w {
		case "vfd", "led", "hvac", "bas", "pv":
			words[i] = strings.ToUpper(w)
		default:
			if len(w) > 0 {
				words[i] = strings.ToUpper(w[:1]) + w[1:]
			}
		}
	}
	return strings.Join(words, " ")
}
