// Package main provides the EverCore CLI entry point.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/everwatt/evercore/pkg/audit"
	"github.com/everwatt/evercore/pkg/battery"
	"github.com/everwatt/evercore/pkg/config"
	"github.com/everwatt/evercore/pkg/features"
	"github.com/everwatt/evercore/pkg/graph"
	"github.com/everwatt/evercore/pkg/inbox"
	"github.com/everwatt/evercore/pkg/measures"
	"github.com/everwatt/evercore/pkg/playbook"
	"github.com/everwatt/evercore/pkg/recommend"
	"github.com/everwatt/evercore/pkg/storage"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "evercore",
		Short: "EverCore - Energy Efficiency Recommendation Engine",
		Long: `EverCore mines completed energy efficiency projects for patterns and
turns them into explainable, human-confirmed recommendations.

Features:
  • Versioned memory indexes over completed project records
  • Similarity-weighted measure suggestions with playbook alignment
  • Deterministic battery storage sizing and screening
  • Inbox review flow: nothing becomes fact without a human decision
  • Append-only decision ledger with full provenance`,
	}

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("EverCore v%s (%s)\n", version, commit)
		},
	})

	// Import commands
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import records and project graphs",
	}
	importCmd.AddCommand(&cobra.Command{
		Use:   "records [file.json]",
		Short: "Import completed project records from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportRecords,
	})
	importCmd.AddCommand(&cobra.Command{
		Use:   "graph [file.json]",
		Short: "Import a project graph from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportGraph,
	})
	rootCmd.AddCommand(importCmd)

	// Index commands
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Memory index operations",
	}
	indexCmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the memory index from completed project records",
		Long:  "Rebuild the whole index snapshot for the configured org under the next version",
		RunE:  runIndexRebuild,
	})
	rootCmd.AddCommand(indexCmd)

	// Recommend command
	recommendCmd := &cobra.Command{
		Use:   "recommend [project-id]",
		Short: "Generate measure suggestions for a project",
		Long: `Generate explainable measure suggestions for a project from the latest
memory index, apply playbook alignment, and stage the results as inbox
items on the project graph for human review.`,
		Args: cobra.ExactArgs(1),
		RunE: runRecommend,
	}
	recommendCmd.Flags().String("intervals", "", "Interval kW file, one sample per line (enables battery sizing)")
	recommendCmd.Flags().Int("interval-minutes", 15, "Minutes per interval sample")
	rootCmd.AddCommand(recommendCmd)

	// Battery commands
	batteryCmd := &cobra.Command{
		Use:   "battery",
		Short: "Battery storage sizing and screening",
	}
	screenCmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen the hardware catalog against a sizing target",
		RunE:  runBatteryScreen,
	}
	screenCmd.Flags().String("intervals", "", "Interval kW file, one sample per line")
	screenCmd.Flags().Int("interval-minutes", 15, "Minutes per interval sample")
	screenCmd.Flags().Float64("p95", 0, "95th percentile demand in kW (overrides --intervals)")
	screenCmd.Flags().Float64("peak", 0, "Peak demand in kW")
	screenCmd.Flags().Float64("baseload", 0, "Baseload demand in kW")
	screenCmd.Flags().Float64("window", 0, "Shiftable window in hours")
	batteryCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(batteryCmd)

	// Inbox commands
	inboxCmd := &cobra.Command{
		Use:   "inbox",
		Short: "Inbox review operations",
	}
	listCmd := &cobra.Command{
		Use:   "list [project-id]",
		Short: "List pending inbox items for a project",
		Args:  cobra.ExactArgs(1),
		RunE:  runInboxList,
	}
	inboxCmd.AddCommand(listCmd)
	decideCmd := &cobra.Command{
		Use:   "decide [project-id] [item-id]",
		Short: "Accept or reject an inbox item",
		Long: `Apply a human decision to a pending inbox item. Accepting writes the
proposed fact into the project graph; rejecting only archives the item.
Either way the decision lands in the inbox history and the append-only
decision ledger with the given reason.`,
		Args: cobra.ExactArgs(2),
		RunE: runInboxDecide,
	}
	decideCmd.Flags().Bool("accept", false, "Accept the item")
	decideCmd.Flags().Bool("reject", false, "Reject the item")
	decideCmd.Flags().String("reason", "", "Reason for the decision (required)")
	decideCmd.Flags().String("by", "", "Reviewer handle")
	inboxCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(inboxCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates environment configuration.
func loadConfig() (*config.Config, error) {
	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured storage engine.
func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.InMemory {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewBadgerStoreWithOptions(storage.BadgerOptions{
		DataDir:    cfg.Storage.DataDir,
		SyncWrites: cfg.Storage.SyncWrites,
	})
}

func newID() string {
	return uuid.NewString()
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func runImportRecords(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading records file: %w", err)
	}
	var records []graph.CompletedProjectRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing records file: %w", err)
	}

	fmt.Printf("📥 Importing %d records into org %s\n", len(records), cfg.Recommend.OrgID)
	ctx := context.Background()
	imported := 0
	for i := range records {
		rec := &records[i]
		if rec.OrgID == "" {
			rec.OrgID = cfg.Recommend.OrgID
		}
		if err := store.PutRecord(ctx, rec); err != nil {
			return fmt.Errorf("record %q: %w", rec.ID, err)
		}
		imported++
	}
	fmt.Printf("✅ Imported %d records\n", imported)
	fmt.Println("Next step: evercore index rebuild")
	return nil
}

func runImportGraph(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading graph file: %w", err)
	}
	var g graph.ProjectGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("parsing graph file: %w", err)
	}
	if g.OrgID == "" {
		g.OrgID = cfg.Recommend.OrgID
	}

	if err := store.PutGraph(context.Background(), &g); err != nil {
		return err
	}
	fmt.Printf("✅ Imported project graph %s (%d assets, %d measures)\n",
		g.ProjectID, len(g.Assets), len(g.Measures))
	return nil
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()

	records, err := store.RecordsByOrg(ctx, cfg.Recommend.OrgID)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no completed project records for org %s; run 'evercore import records' first", cfg.Recommend.OrgID)
	}

	nextVersion := 1
	if latest, err := store.LatestIndex(ctx, cfg.Recommend.OrgID); err == nil {
		nextVersion = latest.Version + 1
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("loading latest index: %w", err)
	}

	fmt.Printf("🔨 Rebuilding index for org %s from %d records...\n", cfg.Recommend.OrgID, len(records))
	start := time.Now()
	idx := features.BuildIndex(cfg.Recommend.OrgID, nextVersion, records)
	if err := store.PutIndex(ctx, idx); err != nil {
		return fmt.Errorf("storing index: %w", err)
	}

	fmt.Printf("✅ Index v%d ready in %v\n", nextVersion, time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Projects:       %d\n", len(idx.Features))
	fmt.Printf("   Measure tags:   %d\n", len(idx.ByMeasureTag))
	fmt.Printf("   Building types: %d\n", len(idx.ByBuildingType))
	fmt.Printf("   Asset types:    %d\n", len(idx.ByAssetType))
	return nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	projectID := args[0]
	intervalsPath, _ := cmd.Flags().GetString("intervals")
	intervalMinutes, _ := cmd.Flags().GetInt("interval-minutes")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()

	g, err := store.Graph(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading project graph %s: %w", projectID, err)
	}
	idx, err := store.LatestIndex(ctx, g.OrgID)
	if err != nil {
		return fmt.Errorf("loading index for org %s (run 'evercore index rebuild'): %w", g.OrgID, err)
	}

	// Playbooks and catalog are optional collaborators.
	var playbooks []playbook.Playbook
	if lib, err := playbook.LoadLibrary(cfg.Recommend.PlaybookPath); err == nil {
		playbooks = lib
	} else if !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("⚠️  Playbook library: %v\n", err)
	}

	var batterySel *battery.Selection
	if catalog, err := battery.LoadCatalog(cfg.Recommend.CatalogPath); err == nil {
		in := battery.Input{IntervalMinutes: intervalMinutes}
		if intervalsPath != "" {
			in.IntervalKw, err = readIntervalFile(intervalsPath)
			if err != nil {
				return err
			}
		}
		sel := battery.Select(in, catalog, battery.Constraints{
			BlockedVendors:     cfg.Recommend.BlockedVendors,
			BlockedChemistries: cfg.Recommend.BlockedChemistries,
		}, battery.DefaultSizingPolicy())
		batterySel = &sel
	} else if !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("⚠️  Battery catalog: %v\n", err)
	}

	fmt.Printf("🔎 Assembling suggestions for %s against index v%d (%d projects)...\n",
		projectID, idx.Version, len(idx.Features))

	out, err := recommend.Assemble(recommend.Params{
		Graph:        g,
		Index:        idx,
		Playbooks:    playbooks,
		Requirements: measures.DefaultRequirements(),
		Battery:      batterySel,
		TopN:         cfg.Recommend.TopN,
		NowISO:       nowISO(),
		NewID:        newID,
	})
	if err != nil {
		return fmt.Errorf("assembling suggestions: %w", err)
	}

	// Stage new inbox items on the graph.
	if len(out.InboxItems) > 0 {
		g.Inbox = append(g.Inbox, out.InboxItems...)
		if err := store.PutGraph(ctx, g); err != nil {
			return fmt.Errorf("staging inbox items: %w", err)
		}
	}

	fmt.Println()
	fmt.Printf("✅ %d suggestions (%d new inbox items)\n", len(out.Suggestions), len(out.InboxItems))
	for _, s := range out.Suggestions {
		fmt.Printf("  • %-28s score=%.2f confidence=%.2f  %s\n",
			s.Measure.MeasureType, s.Score, s.Confidence, s.Explain.Frequency)
		if len(s.RequiredInputsMissing) > 0 {
			fmt.Printf("      missing: %s\n", strings.Join(s.RequiredInputsMissing, "; "))
		}
	}
	if len(out.InboxItems) > 0 {
		fmt.Println()
		fmt.Printf("Next step: evercore inbox list %s\n", projectID)
	}
	return nil
}

func runBatteryScreen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := battery.LoadCatalog(cfg.Recommend.CatalogPath)
	if err != nil {
		return err
	}

	in := battery.Input{}
	in.IntervalMinutes, _ = cmd.Flags().GetInt("interval-minutes")
	p95, _ := cmd.Flags().GetFloat64("p95")
	peak, _ := cmd.Flags().GetFloat64("peak")
	baseload, _ := cmd.Flags().GetFloat64("baseload")
	window, _ := cmd.Flags().GetFloat64("window")
	if p95 > 0 || peak > 0 {
		in.Shape = &battery.LoadShape{
			PeakKw:           peak,
			P95Kw:            p95,
			BaseloadKw:       baseload,
			ShiftWindowHours: window,
			Source:           "cli",
		}
	} else if path, _ := cmd.Flags().GetString("intervals"); path != "" {
		in.IntervalKw, err = readIntervalFile(path)
		if err != nil {
			return err
		}
	}

	sel := battery.Select(in, catalog, battery.Constraints{
		BlockedVendors:     cfg.Recommend.BlockedVendors,
		BlockedChemistries: cfg.Recommend.BlockedChemistries,
	}, battery.DefaultSizingPolicy())

	fmt.Printf("⚡ Sizing target: %.1f kW / %.1f kWh over %.1f h\n",
		sel.Target.TargetKw, sel.Target.TargetKwh, sel.Target.TargetDurationHours)
	for _, missing := range sel.RequiredInputsMissing {
		fmt.Printf("   ⚠️  %s\n", missing)
	}
	fmt.Println()
	fmt.Printf("Candidates (%d):\n", len(sel.Candidates))
	for _, c := range sel.Candidates {
		if len(c.Disqualifiers) > 0 {
			fmt.Printf("  ✗ %s %s: %s\n", c.Item.Vendor, c.Item.SKU, strings.Join(c.Disqualifiers, "; "))
			continue
		}
		fmt.Printf("  • %s %s: fit=%.3f (%s)\n", c.Item.Vendor, c.Item.SKU, c.FitScore, c.Explain.Summary)
	}
	return nil
}

func runInboxList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	g, err := store.Graph(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("loading project graph %s: %w", args[0], err)
	}

	if len(g.Inbox) == 0 {
		fmt.Printf("Inbox for %s is empty\n", g.ProjectID)
		return nil
	}
	fmt.Printf("📋 Inbox for %s (%d pending):\n", g.ProjectID, len(g.Inbox))
	for _, item := range g.Inbox {
		fmt.Printf("  • %s  [%s]  %s\n", item.ID, item.Kind, item.Title)
		if item.Rationale != "" {
			fmt.Printf("      %s\n", item.Rationale)
		}
	}
	return nil
}

func runInboxDecide(cmd *cobra.Command, args []string) error {
	projectID, itemID := args[0], args[1]
	accept, _ := cmd.Flags().GetBool("accept")
	reject, _ := cmd.Flags().GetBool("reject")
	reason, _ := cmd.Flags().GetString("reason")
	decidedBy, _ := cmd.Flags().GetString("by")

	if accept == reject {
		return fmt.Errorf("exactly one of --accept or --reject is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()

	g, err := store.Graph(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading project graph %s: %w", projectID, err)
	}

	res, err := inbox.Decide(g, inbox.Decision{
		InboxItemID: itemID,
		Accept:      accept,
		Reason:      reason,
		DecidedBy:   decidedBy,
	}, nowISO(), newID)
	if err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("%s", res.Invalid)
	}

	if err := store.PutGraph(ctx, res.Graph); err != nil {
		return fmt.Errorf("persisting replacement graph: %w", err)
	}

	ledger, err := audit.NewLedger(audit.Config{
		Enabled:    cfg.Ledger.Enabled,
		LedgerPath: cfg.Ledger.Path,
		SyncWrites: true,
	})
	if err != nil {
		return fmt.Errorf("opening decision ledger: %w", err)
	}
	defer ledger.Close()
	if err := ledger.Record(audit.Event{
		ProjectID: res.Graph.ProjectID,
		OrgID:     res.Graph.OrgID,
		Entry:     *res.Entry,
	}); err != nil {
		return fmt.Errorf("recording decision: %w", err)
	}

	if accept {
		fmt.Printf("✅ Accepted %s", itemID)
		if len(res.CreatedIDs) > 0 {
			fmt.Printf(" (created %s)", strings.Join(res.CreatedIDs, ", "))
		}
		fmt.Println()
	} else {
		fmt.Printf("🗑  Rejected %s\n", itemID)
	}
	fmt.Printf("   Ledger entry: %s\n", res.Entry.ID)
	return nil
}

// readIntervalFile reads one kW sample per line, skipping blanks and
// comment lines.
func readIntervalFile(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading interval file: %w", err)
	}
	defer file.Close()

	var out []float64
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("interval file line %d: %w", line, err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading interval file: %w", err)
	}
	return out, nil
}
