package checker

import (
	"context"
	"errors"
	"sort"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-claims-checker/internal/adapter"
	"github.com/feral-file/ff-claims-checker/internal/claims"
	"github.com/feral-file/ff-claims-checker/internal/dataset"
	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/logger"
	"github.com/feral-file/ff-claims-checker/internal/messaging"
	"github.com/feral-file/ff-claims-checker/internal/store"
)

// Checker runs one load, evaluate, compare and persist pass over the dataset
//
//go:generate mockgen -source=checker.go -destination=../mocks/checker.go -package=mocks -mock_names=Checker=MockChecker
type Checker interface {
	// Run evaluates every selected contract and rewrites the claims of those that changed.
	// Results are returned even when err is non-nil so the caller can retry a failed write.
	Run(ctx context.Context) ([]RunResult, error)
}

// Config holds checker configuration
type Config struct {
	// Contracts restricts the run to these contracts; empty means every contract in the dataset
	Contracts []string
	// Conditions are evaluated in order for every owner
	Conditions []domain.Condition
}

// RunResult is the outcome of one contract in a run
type RunResult struct {
	RunID    string
	Contract string
	Claims   []domain.ClaimableAddress
	Added    []domain.ClaimableAddress
	Removed  []domain.ClaimableAddress
	Changed  bool
	Written  bool
	// Err is the persist failure of this contract, if any
	Err error
}

type checker struct {
	config     Config
	provider   dataset.Provider
	aggregator claims.Aggregator
	store      store.ClaimsStore
	publisher  messaging.Publisher
	clock      adapter.Clock
}

// NewChecker creates a new checker. publisher may be nil to disable change notifications.
func NewChecker(
	cfg Config,
	provider dataset.Provider,
	aggregator claims.Aggregator,
	st store.ClaimsStore,
	publisher messaging.Publisher,
	clock adapter.Clock,
) Checker {
	return &checker{
		config:     cfg,
		provider:   provider,
		aggregator: aggregator,
		store:      st,
		publisher:  publisher,
		clock:      clock,
	}
}

// Run executes a single pass.
// Load and evaluate failures abort the run. A persist failure is recorded on its contract's
// result and the remaining contracts are still processed.
func (c *checker) Run(ctx context.Context) ([]RunResult, error) {
	startTime := c.clock.Now()
	runID := ulid.MustNewDefault(startTime).String()
	ctx = logger.WithRunInfo(ctx, logger.RunInfo{RunID: runID})

	for _, condition := range c.config.Conditions {
		if err := condition.Normalize().Validate(); err != nil {
			return nil, domain.NewStageError("", domain.StageEvaluate, err)
		}
	}

	logger.InfoCtx(ctx, "Starting claims run", zap.Int("conditions", len(c.config.Conditions)))

	ds, err := c.provider.Load(ctx)
	if err != nil {
		return nil, domain.NewStageError("", domain.StageLoad, err)
	}
	if ds == nil {
		return nil, domain.NewStageError("", domain.StageLoad, domain.ErrDataset)
	}

	var (
		results []RunResult
		errs    []error
	)
	for _, contract := range c.selectContracts(ctx, ds) {
		cctx := logger.WithRunInfo(ctx, logger.RunInfo{RunID: runID, Contract: contract})

		result, err := c.runContract(cctx, runID, contract, ds[contract])
		if err != nil {
			var stageErr *domain.StageError
			if errors.As(err, &stageErr) && stageErr.Stage == domain.StagePersist {
				result.Err = err
				results = append(results, result)
				errs = append(errs, err)
				logger.ErrorCtx(cctx, err)
				continue
			}
			return results, err
		}
		results = append(results, result)
	}

	logger.InfoCtx(ctx, "Finished claims run",
		zap.Int("contracts", len(results)),
		zap.Int("failed", len(errs)),
		zap.Duration("duration", c.clock.Since(startTime)),
	)

	return results, errors.Join(errs...)
}

// selectContracts returns the configured contracts present in the dataset, or all of them, sorted
func (c *checker) selectContracts(ctx context.Context, ds domain.CollectionDataset) []string {
	var contracts []string
	if len(c.config.Contracts) == 0 {
		for contract := range ds {
			contracts = append(contracts, contract)
		}
	} else {
		seen := make(map[string]bool, len(c.config.Contracts))
		for _, configured := range c.config.Contracts {
			contract := dataset.NormalizeAddress(configured)
			if seen[contract] {
				continue
			}
			seen[contract] = true

			if _, ok := ds[contract]; !ok {
				logger.WarnCtx(ctx, "Configured contract not found in dataset, skipping", zap.String("contract", contract))
				continue
			}
			contracts = append(contracts, contract)
		}
	}

	sort.Strings(contracts)
	return contracts
}

func (c *checker) runContract(ctx context.Context, runID, contract string, owners map[string]*domain.OwnerHolding) (RunResult, error) {
	result := RunResult{RunID: runID, Contract: contract}

	computed, err := c.aggregator.AggregateContract(ctx, owners, c.config.Conditions)
	if err != nil {
		return result, domain.NewStageError(contract, domain.StageEvaluate, err)
	}
	result.Claims = computed

	previous, err := c.store.ReadExisting(ctx, contract)
	if err != nil {
		return result, domain.NewStageError(contract, domain.StagePersist, err)
	}

	result.Added, result.Removed = claims.Diff(previous, computed)
	result.Changed = claims.HasChanged(previous, computed)
	if !result.Changed {
		logger.InfoCtx(ctx, "Claims unchanged", zap.Int("claims", len(computed)))
		return result, nil
	}

	if err := c.store.WriteAll(ctx, contract, computed); err != nil {
		return result, domain.NewStageError(contract, domain.StagePersist, err)
	}
	result.Written = true

	logger.InfoCtx(ctx, "Claims updated",
		zap.Int("claims", len(computed)),
		zap.Int("added", len(result.Added)),
		zap.Int("removed", len(result.Removed)),
	)

	c.notify(ctx, result)
	return result, nil
}

// notify publishes the change; the claims are already persisted so failures are only logged
func (c *checker) notify(ctx context.Context, result RunResult) {
	if c.publisher == nil {
		return
	}

	event := &domain.ClaimsChangedEvent{
		RunID:           result.RunID,
		ContractAddress: result.Contract,
		Total:           len(result.Claims),
		Added:           result.Added,
		Removed:         result.Removed,
		Timestamp:       c.clock.Now().Unix(),
	}
	if err := c.publisher.PublishClaimsChanged(ctx, event); err != nil {
		logger.WarnCtx(ctx, "Failed to publish claims changed event", zap.Error(err))
	}
}
