package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-claims-checker/internal/adapter"
	"github.com/feral-file/ff-claims-checker/internal/checker"
	"github.com/feral-file/ff-claims-checker/internal/claims"
	"github.com/feral-file/ff-claims-checker/internal/config"
	"github.com/feral-file/ff-claims-checker/internal/dataset"
	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/eligibility"
	"github.com/feral-file/ff-claims-checker/internal/logger"
	"github.com/feral-file/ff-claims-checker/internal/messaging"
	"github.com/feral-file/ff-claims-checker/internal/providers/jetstream"
	"github.com/feral-file/ff-claims-checker/internal/scheduler"
	"github.com/feral-file/ff-claims-checker/internal/store"
	"github.com/feral-file/ff-claims-checker/internal/traits"
)

var (
	configFile     string
	envPath        string
	conditionsPath string
	contracts      []string
)

var rootCmd = &cobra.Command{
	Use:   "claims-checker",
	Short: "Compute claimable addresses from collection ownership",
	Long: `claims-checker reads the scraped ownership dataset, evaluates the reward
conditions against every owner and rewrites the claimable address list of each
contract whose claims changed.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single claims pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			results, err := rt.checker.Run(ctx)
			if err == nil {
				return nil
			}
			if !rt.cfg.Retry.Enabled || !persistFailuresOnly(err) {
				return err
			}
			return retryFailedWrites(ctx, rt, results)
		})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run claims passes on the configured cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			claimsScheduler, err := scheduler.NewClaimsScheduler(&scheduler.ClaimsSchedulerConfig{
				Schedule:   rt.cfg.Scheduler.Schedule,
				RunTimeout: rt.cfg.Scheduler.RunTimeout,
				RunOnStart: rt.cfg.Scheduler.RunOnStart,
			}, rt.checker)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			errChan := make(chan error, 1)
			go func() {
				if err := claimsScheduler.Start(ctx); err != nil {
					errChan <- err
				}
			}()

			// Wait for interrupt signal or error
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
			case err := <-errChan:
				return err
			}

			// Give an in-flight run time to finish its write
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := claimsScheduler.Stop(shutdownCtx); err != nil {
				logger.ErrorCtx(shutdownCtx, err)
			}
			logger.InfoCtx(shutdownCtx, "Claims scheduler stopped")
			return nil
		})
	},
}

var conditionsCmd = &cobra.Command{
	Use:   "conditions",
	Short: "Print the effective conditions as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		conditions, err := config.LoadConditions(cfg.ConditionsPath)
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(map[string][]domain.Condition{"conditions": conditions})
		if err != nil {
			return fmt.Errorf("failed to marshal conditions: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "config/", "Path to environment files")
	rootCmd.PersistentFlags().StringVar(&conditionsPath, "conditions", "", "Path to a conditions file (overrides conditions_path)")
	rootCmd.PersistentFlags().StringSliceVar(&contracts, "contracts", nil, "Contracts to check (overrides contracts)")

	rootCmd.AddCommand(runCmd, scheduleCmd, conditionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runtime holds the wired components of a command
type runtime struct {
	cfg     *config.ClaimsCheckerConfig
	checker checker.Checker
	store   store.ClaimsStore
}

func loadConfig() (*config.ClaimsCheckerConfig, error) {
	config.ChdirRepoRoot()
	cfg, err := config.LoadClaimsCheckerConfig(configFile, envPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if conditionsPath != "" {
		cfg.ConditionsPath = conditionsPath
	}
	if len(contracts) > 0 {
		cfg.Contracts = contracts
	}
	return cfg, nil
}

// withRuntime loads the configuration, wires every component and releases them after fn returns
func withRuntime(ctx context.Context, fn func(context.Context, *runtime) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": config.SERVICE_NAME,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Flush(2 * time.Second)

	conditions, err := config.LoadConditions(cfg.ConditionsPath)
	if err != nil {
		return err
	}

	fileSystem := adapter.NewFileSystem()
	jsonAdapter := adapter.NewJSON()
	clock := adapter.NewClock()

	// Initialize claims store
	var claimsStore store.ClaimsStore
	switch cfg.Claims.Backend {
	case store.BACKEND_POSTGRES:
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			return fmt.Errorf("failed to configure connection pool: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer func() { _ = sqlDB.Close() }()
		}
		logger.InfoCtx(ctx, "Connected to database",
			zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
			zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
		)
		claimsStore = store.NewPGStore(db, jsonAdapter)
	default:
		claimsStore = store.NewFileStore(cfg.Claims.Dir, fileSystem, jsonAdapter)
	}

	// Change notifications are optional
	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(jetstream.Config{
			URL:            cfg.NATS.URL,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream(), jsonAdapter)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer publisher.Close()
	}

	catalog := traits.New(cfg.Catalog.CatalogOptions()...)
	aggregator := claims.NewAggregator(claims.Config{Concurrency: cfg.Concurrency}, eligibility.NewEvaluator(catalog))

	c := checker.NewChecker(
		checker.Config{Contracts: cfg.Contracts, Conditions: conditions},
		dataset.NewFileProvider(cfg.Dataset.Path, fileSystem, jsonAdapter),
		aggregator,
		claimsStore,
		publisher,
		clock,
	)

	logger.InfoCtx(ctx, "Initialized claims checker",
		zap.String("dataset", cfg.Dataset.Path),
		zap.String("backend", cfg.Claims.Backend),
		zap.Int("conditions", len(conditions)),
		zap.Strings("contracts", cfg.Contracts),
		zap.Bool("notifications", publisher != nil),
	)

	err = fn(ctx, &runtime{cfg: cfg, checker: c, store: claimsStore})
	if err != nil {
		logger.ErrorCtx(ctx, err)
	}
	return err
}

// persistFailuresOnly reports whether every joined error is a persist stage failure
func persistFailuresOnly(err error) bool {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		var stageErr *domain.StageError
		if !errors.As(e, &stageErr) || stageErr.Stage != domain.StagePersist {
			return false
		}
	}
	return true
}

// retryFailedWrites rewrites the claims of every contract whose write failed
func retryFailedWrites(ctx context.Context, rt *runtime, results []checker.RunResult) error {
	policy := checker.RetryPolicy{
		InitialInterval: rt.cfg.Retry.InitialInterval,
		MaxInterval:     rt.cfg.Retry.MaxInterval,
		MaxElapsedTime:  rt.cfg.Retry.MaxElapsedTime,
		Multiplier:      rt.cfg.Retry.Multiplier,
	}

	var errs []error
	for i := range results {
		if results[i].Err == nil {
			continue
		}
		if err := checker.PersistWithRetry(ctx, rt.store, &results[i], policy); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
