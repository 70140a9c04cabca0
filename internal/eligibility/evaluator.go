package eligibility

import (
	"fmt"
	"sort"

	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/traits"
)

// Match identifies the trait value that satisfied a coverage rule.
// Both fields are empty for holding rules without a coverage flag.
type Match struct {
	Song  string
	Frame string
}

// Result is the outcome of evaluating one condition against one owner
type Result struct {
	Satisfied bool
	Matches   []Match
}

// Evaluator decides whether an owner satisfies a condition
//
//go:generate mockgen -source=evaluator.go -destination=../mocks/evaluator.go -package=mocks -mock_names=Evaluator=MockEvaluator
type Evaluator interface {
	// Evaluate checks a single holding against a single condition.
	// It never mutates its arguments and is safe for concurrent use.
	Evaluate(holding *domain.OwnerHolding, condition domain.Condition) (Result, error)
}

type evaluator struct {
	catalog *traits.Catalog
}

// NewEvaluator creates an evaluator over the given trait catalog
func NewEvaluator(catalog *traits.Catalog) Evaluator {
	return &evaluator{catalog: catalog}
}

func (e *evaluator) Evaluate(holding *domain.OwnerHolding, condition domain.Condition) (Result, error) {
	if holding == nil {
		return Result{}, fmt.Errorf("%w: holding is nil", domain.ErrOwnerEvaluation)
	}
	if holding.Malformed != nil {
		return Result{}, fmt.Errorf("%w: owner %s: %w", domain.ErrOwnerEvaluation, holding.OwnerAddress, holding.Malformed)
	}

	condition = condition.Normalize()
	if err := condition.Validate(); err != nil {
		return Result{}, err
	}

	if !e.passesGates(holding, condition) {
		return Result{}, nil
	}

	if !condition.RequiresCoverage() {
		return Result{Satisfied: true, Matches: []Match{{}}}, nil
	}

	values := e.coveringValues(holding, condition.IfCategory, condition.MustHaveCategory)
	if len(values) == 0 {
		return Result{}, nil
	}

	matches := make([]Match, 0, len(values))
	for _, v := range values {
		var m Match
		switch condition.IfCategory {
		case domain.CategorySong:
			m.Song = v
		case domain.CategoryFrame:
			m.Frame = v
		}
		matches = append(matches, m)
	}

	return Result{Satisfied: true, Matches: matches}, nil
}

// passesGates applies the token-holding requirements of a condition
func (e *evaluator) passesGates(holding *domain.OwnerHolding, condition domain.Condition) bool {
	if len(holding.TokenIDs) == 0 {
		return false
	}

	if len(condition.RequiredTokenIDs) > 0 && !holding.HoldsAny(condition.RequiredTokenIDs) {
		return false
	}

	if condition.MinTokenQuantity != nil && len(holding.TokenIDs) < *condition.MinTokenQuantity {
		return false
	}

	return true
}

// coveringValues returns every value of ifCategory whose co-occurring mustHaveCategory values,
// gathered across the owner's tokens, cover the whole canonical universe of mustHaveCategory.
// Co-occurrence means both attributes appear on the same token.
func (e *evaluator) coveringValues(holding *domain.OwnerHolding, ifCategory, mustHaveCategory domain.TraitCategory) []string {
	required := e.catalog.CanonicalValues(mustHaveCategory)
	if len(required) == 0 {
		return nil
	}

	paired := make(map[string]map[string]struct{})
	for _, tokenID := range holding.TokenIDs {
		metadata := holding.Metadata[tokenID]
		if metadata == nil {
			continue
		}

		var ifValues, mustValues []string
		for _, attr := range metadata.Attributes {
			switch e.catalog.Canonicalize(attr.TraitType) {
			case ifCategory:
				ifValues = append(ifValues, attr.Value)
			case mustHaveCategory:
				mustValues = append(mustValues, attr.Value)
			}
		}

		for _, iv := range ifValues {
			set, ok := paired[iv]
			if !ok {
				set = make(map[string]struct{})
				paired[iv] = set
			}
			for _, mv := range mustValues {
				set[mv] = struct{}{}
			}
		}
	}

	var covering []string
	for value, seen := range paired {
		if covers(seen, required) {
			covering = append(covering, value)
		}
	}

	e.sortByCatalog(ifCategory, covering)
	return covering
}

// sortByCatalog orders values by catalog position, then lexically for values outside the universe
func (e *evaluator) sortByCatalog(category domain.TraitCategory, values []string) {
	sort.Slice(values, func(i, j int) bool {
		ri, iok := e.catalog.Rank(category, values[i])
		rj, jok := e.catalog.Rank(category, values[j])
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return values[i] < values[j]
		}
	})
}

func covers(seen map[string]struct{}, required []string) bool {
	for _, r := range required {
		if _, ok := seen[r]; !ok {
			return false
		}
	}
	return true
}
