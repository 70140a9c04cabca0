package store

import (
	"context"
	"strings"

	"github.com/feral-file/ff-claims-checker/internal/domain"
)

const (
	BACKEND_FILE     = "file"
	BACKEND_POSTGRES = "postgres"
)

// ClaimsStore defines the interface for reading and replacing a contract's claims
//
//go:generate mockgen -source=store.go -destination=../mocks/claims_store.go -package=mocks -mock_names=ClaimsStore=MockClaimsStore
type ClaimsStore interface {
	// ReadExisting returns the previously persisted claims of a contract; a contract never written returns an empty list
	ReadExisting(ctx context.Context, contract string) ([]domain.ClaimableAddress, error)

	// WriteAll replaces the persisted claims of a contract with records.
	// Readers observe either the previous list or the new one, never a partial write.
	WriteAll(ctx context.Context, contract string, records []domain.ClaimableAddress) error
}

// ContractKey is the storage key of a contract address
func ContractKey(contract string) string {
	return strings.ToLower(strings.TrimSpace(contract))
}
