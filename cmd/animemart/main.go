package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/animemart/animemart/internal/config"
	"github.com/animemart/animemart/internal/database"
	"github.com/animemart/animemart/internal/ingest"
	"github.com/animemart/animemart/internal/loader"
	"github.com/animemart/animemart/internal/pipeline"
	"github.com/animemart/animemart/internal/unfold"
	"github.com/animemart/animemart/internal/view"
	"github.com/animemart/animemart/internal/watch"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "animemart",
	Short:   "Snapshot statistics warehouse",
	Long:    "Animemart ingests per-entity statistics snapshots, loads deduplicated fact tables, and materializes a wide analytical view.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(queryCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("animemart", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/animemart/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the data and landing directories.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show warehouse and landing-buffer status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n\n", database.GetToday())
		fmt.Println("Landing buffer:")
		fmt.Printf("  Catalog deltas: %d (%d pending)\n", stats.StagedCatalog, stats.PendingCatalog)
		fmt.Printf("  Stats records:  %d (%d pending)\n", stats.StagedStats, stats.PendingStats)
		fmt.Println("\nFact tables:")
		fmt.Printf("  Catalog entries: %d\n", stats.CatalogEntries)
		fmt.Printf("  Status facts:    %d\n", stats.StatusFacts)
		fmt.Printf("  Score facts:     %d\n", stats.ScoreFacts)
		fmt.Printf("  Snapshot days:   %d\n", stats.SnapshotDays)
		fmt.Println("\nAnalytical view:")
		fmt.Printf("  Rows: %d\n", stats.ViewRows)

		report, err := db.LastRunReport()
		if err != nil {
			return err
		}
		if report != nil {
			fmt.Println("\nLast run:")
			fmt.Printf("  Batch:    %s\n", report.BatchID)
			fmt.Printf("  Started:  %s\n", report.StartedAt)
			fmt.Printf("  Records:  %d seen, %d rejected\n", report.RecordsSeen, report.RecordsRejected)
			fmt.Printf("  Facts:    %d inserted, %d deduped\n", report.FactsInserted, report.FactsDeduped)
			fmt.Printf("  Catalog:  %d inserted, %d deduped\n", report.CatalogInserted, report.CatalogDeduped)
		}
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Stage deposited batch files into the landing buffer",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := ingest.New(db, cfg.GetLandingDir()).Run()
		if err != nil {
			return err
		}

		fmt.Println("Ingest complete:")
		fmt.Printf("  Files processed: %d (%d failed)\n", result.Files, result.FailedFiles)
		fmt.Printf("  Catalog staged:  %d\n", result.CatalogStaged)
		fmt.Printf("  Stats staged:    %d\n", result.StatsStaged)
		fmt.Printf("  Rejected:        %d\n", result.RecordsRejected)
		return nil
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Consume the landing buffer into the fact tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		domain := unfold.Domain{Min: cfg.Scores.Min, Max: cfg.Scores.Max}
		result, err := loader.New(db, domain).Run()
		if result != nil {
			fmt.Println("Transform complete:")
			fmt.Printf("  Records:  %d seen, %d rejected, %d entries dropped\n",
				result.RecordsSeen, result.RecordsRejected, result.EntriesDropped)
			fmt.Printf("  Status:   %d inserted, %d deduped\n", result.StatusInserted, result.StatusDeduped)
			fmt.Printf("  Scores:   %d inserted, %d deduped\n", result.ScoresInserted, result.ScoresDeduped)
			fmt.Printf("  Catalog:  %d inserted, %d deduped\n", result.CatalogInserted, result.CatalogDeduped)
		}
		return err
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Fully recompute and publish the analytical view",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := view.New(db).Rebuild()
		if err != nil {
			return err
		}

		fmt.Println("Rebuild complete:")
		fmt.Printf("  Rows:          %d\n", result.Rows)
		fmt.Printf("  Score columns: %d\n", len(result.Columns))
		fmt.Printf("  Join gaps:     %d without score data, %d without titles\n",
			result.MissingScore, result.MissingTitle)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: ingest -> transform -> rebuild",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result := pipeline.New(cfg, db).Run()
		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/3: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}
		if result.Failed() {
			return fmt.Errorf("pipeline failed")
		}
		return nil
	},
}

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the landing directory and run the pipeline on new batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		landingDir := cfg.GetLandingDir()
		if err := os.MkdirAll(landingDir, 0o755); err != nil {
			return fmt.Errorf("creating landing directory: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching %s\n", landingDir)
		fmt.Println("Press Ctrl+C to stop")

		pipe := pipeline.New(cfg, db)
		w := watch.New(landingDir, watchDebounce, func() error {
			result := pipe.Run()
			for _, step := range result.Steps {
				if step.Err != nil {
					return fmt.Errorf("%s: %w", step.Name, step.Err)
				}
				log.Printf("%s: %s", step.Name, step.Summary)
			}
			return nil
		})
		return w.Watch(ctx)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "Quiet period before a deposited batch is processed")
}

var queryCmd = &cobra.Command{
	Use:   "query [title-prefix | entity-id date]",
	Short: "Look up analytical view rows by title prefix or (entity, date)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		exists, err := db.AnalyticsViewExists()
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("no analytical view yet; run 'animemart rebuild' first")
		}

		if len(args) == 2 {
			entityID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entity id: %s", args[0])
			}
			row, err := db.GetAnalyticsRow(entityID, args[1])
			if err != nil {
				return err
			}
			if row == nil {
				fmt.Printf("No row for entity %d on %s\n", entityID, args[1])
				return nil
			}
			printRow(row)
			return nil
		}

		rows, err := db.SearchAnalyticsByTitle(args[0])
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Printf("No rows with title prefix %q\n", args[0])
			return nil
		}
		for _, r := range rows {
			title := ""
			if r.Title != nil {
				title = *r.Title
			}
			fmt.Printf("%8d  %s  %-40s  total=%d\n", r.EntityID, r.SnapshotDate, title, r.Total)
		}
		return nil
	},
}

func printRow(r *database.AnalyticsRow) {
	title := "(no title)"
	if r.Title != nil {
		title = *r.Title
	}
	fmt.Printf("Entity %d  %s  %s\n", r.EntityID, r.SnapshotDate, title)
	fmt.Printf("  watching=%d completed=%d on_hold=%d dropped=%d plan_to_watch=%d total=%d\n",
		r.Watching, r.Completed, r.OnHold, r.Dropped, r.PlanToWatch, r.Total)
	fmt.Print("  scores: ")
	for i, cell := range r.Scores {
		if i > 0 {
			fmt.Print(" ")
		}
		if cell == nil {
			fmt.Print("-")
		} else {
			fmt.Printf("%d", *cell)
		}
	}
	fmt.Println()
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "animemart.db")
	return database.Open(dbPath)
}
