package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mnemo/internal/config"
	"mnemo/internal/memory"
	"mnemo/internal/types"
)

var (
	// Global flags
	verbose   bool
	storeRoot string
	asJSON    bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "mnemo - persistent content-addressed memory store",
	Long: `mnemo stores experience units durably on disk, scores them with a
multi-factor importance model, tiers them hot/warm/cold/archive, and
retrieves them by semantic similarity with importance and emotion
boosts. Every unit survives restarts; consolidation is lossless.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [content]",
	Short: "Store content as a new unit",
	Long: `Stores content durably and prints its unit id. Identical content is
deduplicated: re-ingesting returns the existing id without a write.

Metadata pairs are passed as --meta key=value and preserve order.

Example:
  mnemo ingest "Hiking the coastal trail at dawn" --meta type=episode`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve the most similar units",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRetrieve,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	RunE:  runStats,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run a full storage optimization pass",
	Long: `Rescores every unit, moves units whose tier no longer matches their
combined importance and access-frequency score, and consolidates groups
of low-value archive units into batch files. Safe to re-run; a second
pass with no intervening ingests changes nothing.`,
	RunE: runOptimize,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the current session and recent session history",
	RunE:  runSession,
}

var (
	metaPairs    []string
	retrieveK    int
	historyLimit int
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&storeRoot, "root", defaultRoot(), "Store root directory")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Emit machine-readable json")

	ingestCmd.Flags().StringArrayVar(&metaPairs, "meta", nil, "Metadata pair key=value (repeatable)")
	retrieveCmd.Flags().IntVarP(&retrieveK, "top", "k", 5, "Maximum results")
	sessionCmd.Flags().IntVar(&historyLimit, "history", 10, "History entries to show")

	rootCmd.AddCommand(ingestCmd, retrieveCmd, statsCmd, optimizeCmd, sessionCmd)
}

func defaultRoot() string {
	if env := os.Getenv("MNEMO_ROOT"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mnemo-store"
	}
	return filepath.Join(home, ".mnemo-store")
}

// open loads config (falling back to defaults on first run) and builds
// the memory manager.
func open() (*memory.Manager, error) {
	cfg, err := config.Load(storeRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	m, err := memory.Open(cfg)
	if err != nil {
		return nil, err
	}
	if m.Health() == types.HealthPartial {
		logger.Warn("store loaded partially; some unit files were skipped",
			zap.String("root", storeRoot))
	}
	return m, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	m, err := open()
	if err != nil {
		return err
	}
	defer m.Close()

	meta := types.NewMetadata()
	for _, pair := range metaPairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid --meta %q, want key=value", pair)
		}
		meta.Set(k, v)
	}

	ctx, cancel := signalContext()
	defer cancel()

	content := strings.Join(args, " ")
	id, err := m.Ingest(ctx, content, meta)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(map[string]string{"unit_id": id})
	}
	fmt.Println(id)
	return nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	m, err := open()
	if err != nil {
		return err
	}
	defer m.Close()

	ctx, cancel := signalContext()
	defer cancel()

	results, err := m.Retrieve(ctx, strings.Join(args, " "), retrieveK)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(results)
	}
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. [%.3f] %s  %s\n", i+1, r.Score, r.UnitID[:12], firstLine(r.Content, 80))
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	m, err := open()
	if err != nil {
		return err
	}
	defer m.Close()

	stats, err := m.GetStats()
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(stats)
	}
	fmt.Printf("Units:     %d\n", stats.TotalUnits)
	fmt.Printf("Storage:   %s\n", humanBytes(stats.StorageBytes))
	fmt.Printf("Health:    %s\n", stats.Health)
	fmt.Printf("Sessions:  %d\n", stats.SessionCount)
	fmt.Println("Tiers:")
	tiers := make([]types.Tier, 0, len(stats.TierDistribution))
	for t := range stats.TierDistribution {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	for _, t := range tiers {
		fmt.Printf("  %-8s %d\n", t, stats.TierDistribution[t])
	}
	return nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	m, err := open()
	if err != nil {
		return err
	}
	defer m.Close()

	report := m.OptimizeStorage()
	if asJSON {
		return printJSON(map[string]interface{}{
			"processed":    report.Processed,
			"moved":        report.Moved,
			"consolidated": report.Consolidated,
			"bytes_saved":  report.BytesSaved,
			"duration_ms":  report.Duration.Milliseconds(),
			"errors":       len(report.Errors),
		})
	}
	fmt.Printf("Processed:    %d\n", report.Processed)
	fmt.Printf("Moved:        %d\n", report.Moved)
	fmt.Printf("Consolidated: %d\n", report.Consolidated)
	fmt.Printf("Bytes saved:  %s\n", humanBytes(report.BytesSaved))
	fmt.Printf("Duration:     %s\n", report.Duration.Round(time.Millisecond))
	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "warning: %v\n", e)
	}
	return nil
}

func runSession(cmd *cobra.Command, args []string) error {
	m, err := open()
	if err != nil {
		return err
	}
	defer m.Close()

	current := m.Session()
	history, err := m.SessionHistory()
	if err != nil {
		return err
	}
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	if asJSON {
		return printJSON(map[string]interface{}{"current": current, "history": history})
	}
	if current != nil {
		fmt.Printf("Current session: %s (started %s)\n", current.ID, current.StartedAt.Format(time.RFC3339))
	}
	for i := len(history) - 1; i >= 0; i-- {
		s := history[i]
		state := "clean"
		if !s.Clean {
			state = "unclean"
		}
		fmt.Printf("  %s  %s  %d ingests, %d retrievals (%s)\n",
			s.StartedAt.Format(time.RFC3339), s.ID[:8], s.Ingests, s.Retrievals, state)
	}
	return nil
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMG"[exp])
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
