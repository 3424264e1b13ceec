package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nobodyclimb/crag-sync/pkg/audit"
	"github.com/nobodyclimb/crag-sync/pkg/config"
	"github.com/nobodyclimb/crag-sync/pkg/database"
	"github.com/nobodyclimb/crag-sync/pkg/repositories"
	"github.com/nobodyclimb/crag-sync/pkg/retry"
	"github.com/nobodyclimb/crag-sync/pkg/schema"
	"github.com/nobodyclimb/crag-sync/pkg/services"
	"github.com/nobodyclimb/crag-sync/pkg/sheets"
	"github.com/nobodyclimb/crag-sync/pkg/validate"
)

// Version is set at build time via ldflags
var Version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `crag-sync %s - spreadsheet to store reconciliation pipeline

Usage:
  crag-sync sync [--dry-run] [--crags-only] [--routes-only]
  crag-sync validate
  crag-sync migrate-json [--dry-run] [--dir <path>]

Row-level errors are reported in the summary and exit 0; configuration,
connectivity, and exhausted-retry failures exit 1.
`, Version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := schema.CheckAll(); err != nil {
		logger.Fatal("Schema self-check failed", zap.Error(err))
	}

	var runErr error
	switch os.Args[1] {
	case "sync":
		runErr = runSync(cfg, logger, os.Args[2:])
	case "validate":
		runErr = runValidate(cfg, logger)
	case "migrate-json":
		runErr = runMigrateJSON(cfg, logger, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if runErr != nil {
		logger.Error("Run failed", zap.Error(runErr))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	var zcfg zap.Config
	if cfg.Env == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func runSync(cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "compute and report the change plan without writing")
	cragsOnly := fs.Bool("crags-only", false, "write crags only")
	routesOnly := fs.Bool("routes-only", false, "write routes only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cragsOnly && *routesOnly {
		return fmt.Errorf("--crags-only and --routes-only are mutually exclusive")
	}

	scope := services.ScopeAll
	if *cragsOnly {
		scope = services.ScopeCragsOnly
	}
	if *routesOnly {
		scope = services.ScopeRoutesOnly
	}

	if err := cfg.Validate(config.Needs{Sheets: true, Database: true}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.Timeout)
	defer cancel()

	svc, db, err := buildSyncService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := svc.Sync(ctx, services.Options{DryRun: *dryRun, Scope: scope})
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func runValidate(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(config.Needs{Sheets: true}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.Timeout)
	defer cancel()

	client, err := sheets.NewClient(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile)
	if err != nil {
		return err
	}

	// The validate command never touches the store, so the service gets nil
	// repositories and a nil recorder; Validate reads the sheets only.
	svc := services.NewSyncService(client, nil, nil, nil, nil, nil, logger)
	report, err := svc.Validate(ctx)
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

func runMigrateJSON(cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("migrate-json", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report the plan without writing")
	dir := fs.String("dir", "", "snapshot directory (defaults to SNAPSHOT_DIR)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		*dir = cfg.Snapshot.Dir
	}

	if err := cfg.Validate(config.Needs{Database: true, Snapshot: true}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.Timeout)
	defer cancel()

	db, err := connectStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	routes := repositories.NewRouteRepository(db)
	svc := services.NewMigrateService(
		repositories.NewCragRepository(db),
		repositories.NewAreaRepository(db),
		routes,
		logger,
	)

	summary, err := svc.Migrate(ctx, services.MigrateOptions{Dir: *dir, DryRun: *dryRun})
	if err != nil {
		return err
	}

	mode := "migrated"
	if summary.DryRun {
		mode = "would migrate"
	}
	fmt.Printf("%s %d crags, %d areas, %d routes from %d files\n",
		mode, summary.Crags, summary.Areas, summary.Routes, summary.Files)
	return nil
}

func buildSyncService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.SyncService, *database.DB, error) {
	client, err := sheets.NewClient(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile)
	if err != nil {
		return nil, nil, err
	}

	db, err := connectStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	svc := services.NewSyncService(
		client,
		repositories.NewCragRepository(db),
		repositories.NewAreaRepository(db),
		repositories.NewRouteRepository(db),
		audit.NewWriter(client, logger),
		retryConfig(cfg),
		logger,
	)
	return svc, db, nil
}

func connectStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, err
	}

	if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func retryConfig(cfg *config.Config) *retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = cfg.Sync.MaxRetries
	rc.InitialDelay = cfg.Sync.RetryDelay
	rc.MaxDelay = cfg.Sync.RetryMaxWait
	return rc
}

func printSummary(s *services.Summary) {
	mode := "sync"
	if s.DryRun {
		mode = "dry run"
	}
	fmt.Printf("%s %s (scope %s) finished in %s\n", s.RunID, mode, s.Scope, s.Duration.Round(time.Millisecond))
	fmt.Printf("  %-7s created %d, updated %d, skipped %d, errors %d\n", "crags", s.Crags.Created, s.Crags.Updated, s.Crags.Skipped, s.Crags.Errors)
	fmt.Printf("  %-7s created %d, updated %d, skipped %d, errors %d\n", "areas", s.Areas.Created, s.Areas.Updated, s.Areas.Skipped, s.Areas.Errors)
	fmt.Printf("  %-7s created %d, updated %d, skipped %d, errors %d\n", "routes", s.Routes.Created, s.Routes.Updated, s.Routes.Skipped, s.Routes.Errors)
	printErrors(s.Errors)
}

func printReport(r *services.Report) {
	for _, sh := range r.Sheets {
		fmt.Printf("%-7s %d rows (%d blank), %d valid, %d approved, %d pending\n",
			sh.Sheet, sh.Rows, sh.Blank, sh.Valid, sh.Approved, sh.Pending)
	}
	printErrors(r.Errors)
}

func printErrors(errs []validate.RowError) {
	if len(errs) == 0 {
		return
	}
	fmt.Printf("%d rows need attention:\n", len(errs))
	for _, e := range errs {
		fmt.Printf("  %s\n", e.Error())
	}
}
