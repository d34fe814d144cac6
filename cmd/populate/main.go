package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ikkim/gamecatalog-backend/config"
	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/app/service"
	"github.com/ikkim/gamecatalog-backend/internal/bootstrap"
	"github.com/ikkim/gamecatalog-backend/internal/db"
	"github.com/ikkim/gamecatalog-backend/internal/report"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"github.com/ikkim/gamecatalog-backend/pkg/redis"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var errBatchFailed = errors.New("populate batch failed")

var (
	rootCmd = &cobra.Command{
		Use:           "populate",
		Short:         "Import games from the storefront catalog",
		RunE:          runPopulate,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "List recent ingestion runs",
		RunE:  runListRuns,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE:  runMigrate,
	}

	// Flags
	params     []string
	reportPath string
	strict     bool
	limit      int
)

func init() {
	rootCmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Catalog filter as key=value, repeatable. Defaults to INGEST_DEFAULT_QUERY")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "Write the batch report to this .xlsx file")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "Reject products with unresolved taxonomy relations")
	runsCmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	rootCmd.AddCommand(runsCmd, migrateCmd)
}

// parseParams turns key=value flags into catalog params
func parseParams(values []string) (map[string]string, error) {
	parsed := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q, expected key=value", v)
		}
		parsed[key] = value
	}
	return parsed, nil
}

func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Initialize(bootstrap.LoggerConfig(cfg))

	if err := db.Initialize(&cfg.Database); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPopulate(cmd *cobra.Command, args []string) error {
	batchParams, err := parseParams(params)
	if err != nil {
		return err
	}

	cfg, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	if strict {
		cfg.Ingest.StrictRelations = true
	}
	if len(batchParams) == 0 {
		batchParams = cfg.Ingest.DefaultParams()
	}

	var opts []service.PopulateOption
	if cfg.Redis.Enabled() {
		redisClient, err := redis.Connect(cmd.Context(), &cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		opts = append(opts, service.WithLocker(redis.NewLocker(redisClient), cfg.Ingest.LockTTL))
	}

	populateService, err := bootstrap.NewPopulateService(cfg, db.GetDB(), opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := populateService.Populate(ctx, batchParams)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s finished with status %s\n", result.RunID, result.Status)
	fmt.Printf("Products fetched: %d\n", result.ProductsFetched)
	fmt.Printf("Games created: %d, skipped: %d, failed: %d\n", result.GamesCreated, result.GamesSkipped, result.GamesFailed)
	fmt.Printf("Assets uploaded: %d, failed: %d\n", result.AssetsUploaded, result.AssetsFailed)
	for _, o := range result.Outcomes {
		if o.Status == service.OutcomeFailed {
			fmt.Printf("  failed %s (%s): %s\n", o.Title, o.Stage, o.Error)
		}
	}

	if reportPath != "" {
		if err := report.WriteXLSX(result, reportPath); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", reportPath)
	}

	if result.Status == model.IngestionFailed {
		return fmt.Errorf("%w: %s", errBatchFailed, result.Error)
	}
	return nil
}

func runListRuns(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	populateService, err := bootstrap.NewPopulateService(cfg, db.GetDB())
	if err != nil {
		return err
	}

	runs, err := populateService.ListRuns(limit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s\t%s\t%s\tcreated=%d skipped=%d failed=%d\n",
			run.RunID, run.StartedAt.Format("2006-01-02 15:04:05"), run.Status,
			run.GamesCreated, run.GamesSkipped, run.GamesFailed)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if _, err := setup(); err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}
	fmt.Println("Migrations applied")
	return nil
}
