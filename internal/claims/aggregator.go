package claims

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/eligibility"
	"github.com/feral-file/ff-claims-checker/internal/logger"
)

const (
	DEFAULT_CONCURRENCY = 8
)

// Aggregator runs conditions over every owner of a dataset and collects claimable addresses
//
//go:generate mockgen -source=aggregator.go -destination=../mocks/aggregator.go -package=mocks -mock_names=Aggregator=MockAggregator
type Aggregator interface {
	// Aggregate evaluates every (contract, owner) pair and returns the claims grouped by contract
	Aggregate(ctx context.Context, dataset domain.CollectionDataset, conditions []domain.Condition) (map[string][]domain.ClaimableAddress, error)

	// AggregateContract evaluates the owners of a single contract
	AggregateContract(ctx context.Context, owners map[string]*domain.OwnerHolding, conditions []domain.Condition) ([]domain.ClaimableAddress, error)
}

// Config holds aggregator configuration
type Config struct {
	// Concurrency is the number of owner evaluations in flight; 1 runs them one at a time
	Concurrency int
}

type aggregator struct {
	evaluator   eligibility.Evaluator
	concurrency int
}

// NewAggregator creates a new aggregator
func NewAggregator(cfg Config, evaluator eligibility.Evaluator) Aggregator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DEFAULT_CONCURRENCY
	}
	return &aggregator{
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

// Aggregate evaluates every (contract, owner) pair and returns the claims grouped by contract
func (a *aggregator) Aggregate(ctx context.Context, dataset domain.CollectionDataset, conditions []domain.Condition) (map[string][]domain.ClaimableAddress, error) {
	if dataset == nil {
		return nil, fmt.Errorf("%w: dataset is nil", domain.ErrDataset)
	}

	result := make(map[string][]domain.ClaimableAddress, len(dataset))
	for contract, owners := range dataset {
		claims, err := a.AggregateContract(ctx, owners, conditions)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate contract %s: %w", contract, err)
		}
		result[contract] = claims
	}

	return result, nil
}

// AggregateContract evaluates the owners of a single contract.
// Owners whose data cannot be evaluated are logged and skipped.
func (a *aggregator) AggregateContract(ctx context.Context, owners map[string]*domain.OwnerHolding, conditions []domain.Condition) ([]domain.ClaimableAddress, error) {
	normalized := make([]domain.Condition, len(conditions))
	for i, c := range conditions {
		c = c.Normalize()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		normalized[i] = c
	}

	if len(owners) == 0 || len(normalized) == 0 {
		return []domain.ClaimableAddress{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addresses := make([]string, 0, len(owners))
	for address := range owners {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	pool := pond.NewResultPool[[]domain.ClaimableAddress](a.concurrency, pond.WithContext(ctx))
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)

	for _, address := range addresses {
		holding := owners[address]
		group.Submit(func() []domain.ClaimableAddress {
			return a.evaluateOwner(ctx, address, holding, normalized)
		})
	}

	results, err := group.Wait()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to evaluate owners: %w", err)
	}

	var claims []domain.ClaimableAddress
	for _, r := range results {
		claims = append(claims, r...)
	}
	Sort(claims)

	if claims == nil {
		claims = []domain.ClaimableAddress{}
	}
	return claims, nil
}

// evaluateOwner runs every condition against one owner; it only reads its arguments
func (a *aggregator) evaluateOwner(ctx context.Context, address string, holding *domain.OwnerHolding, conditions []domain.Condition) []domain.ClaimableAddress {
	var claims []domain.ClaimableAddress
	for _, condition := range conditions {
		result, err := a.evaluator.Evaluate(holding, condition)
		if err != nil {
			logger.WarnCtx(ctx, "Skipping owner for condition",
				zap.String("owner", address),
				zap.Int("claim_index", condition.ClaimIndex),
				zap.Error(err),
			)
			continue
		}
		if !result.Satisfied {
			continue
		}

		for _, m := range result.Matches {
			claims = append(claims, domain.ClaimableAddress{
				Address:    address,
				Claimable:  true,
				ClaimIndex: condition.ClaimIndex,
				Quantity:   condition.Quantity,
				Song:       m.Song,
				Frame:      m.Frame,
			})
		}
		logger.DebugCtx(ctx, "Owner satisfies condition",
			zap.String("owner", address),
			zap.Int("claim_index", condition.ClaimIndex),
			zap.Int("matches", len(result.Matches)),
		)
	}
	return claims
}

// Sort orders claims by address, claim index, song and frame
func Sort(claims []domain.ClaimableAddress) {
	sort.SliceStable(claims, func(i, j int) bool {
		a, b := claims[i], claims[j]
		if a.Address != b.Address {
			return a.Address < b.Address
		}
		if a.ClaimIndex != b.ClaimIndex {
			return a.ClaimIndex < b.ClaimIndex
		}
		if a.Song != b.Song {
			return a.Song < b.Song
		}
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return a.Quantity < b.Quantity
	})
}
