package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-claims-checker/internal/adapter"
	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/logger"
)

// Provider loads the collection dataset produced by the scraper
//
//go:generate mockgen -source=provider.go -destination=../mocks/dataset_provider.go -package=mocks -mock_names=Provider=MockDatasetProvider
type Provider interface {
	// Load returns a snapshot of every contract, owner and token known to the store
	Load(ctx context.Context) (domain.CollectionDataset, error)
}

// ownerEntry is the on-disk shape of one owner.
// Older scraper output names the id list "tokenId".
type ownerEntry struct {
	TokenIDs      []json.Number              `json:"tokenIds"`
	LegacyTokenID []json.Number              `json:"tokenId"`
	Metadata      map[string]json.RawMessage `json:"metadata"`
}

// metadataEntry wraps token metadata the way the scraper stores it: {"tokenId": 1, "metadata": {...}}
type metadataEntry struct {
	Metadata *domain.TokenMetadata `json:"metadata"`
}

type fileProvider struct {
	path string
	fs   adapter.FileSystem
	json adapter.JSON
}

// NewFileProvider creates a provider reading the dataset JSON file at path
func NewFileProvider(path string, fs adapter.FileSystem, jsonAdapter adapter.JSON) Provider {
	return &fileProvider{
		path: path,
		fs:   fs,
		json: jsonAdapter,
	}
}

// Load reads and decodes the dataset file.
// An unreadable file or a document that is not an object of contracts fails with domain.ErrDataset.
// Owners that cannot be decoded are returned with Malformed set so evaluation can skip them.
func (p *fileProvider) Load(ctx context.Context) (domain.CollectionDataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := p.fs.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read dataset file %s: %w", domain.ErrDataset, p.path, err)
	}

	var raw map[string]map[string]json.RawMessage
	if err := p.json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse dataset JSON: %w", domain.ErrDataset, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: dataset is not an object", domain.ErrDataset)
	}

	dataset := make(domain.CollectionDataset, len(raw))
	malformed := 0
	for contract, owners := range raw {
		contractKey := NormalizeAddress(contract)
		if dataset[contractKey] == nil {
			dataset[contractKey] = make(map[string]*domain.OwnerHolding, len(owners))
		}

		for owner, entry := range owners {
			ownerKey := NormalizeAddress(owner)
			holding := p.decodeOwner(ownerKey, entry)
			if holding.Malformed != nil {
				malformed++
				logger.WarnCtx(ctx, "Malformed owner entry",
					zap.String("contract", contractKey),
					zap.String("owner", ownerKey),
					zap.Error(holding.Malformed),
				)
			}
			dataset[contractKey][ownerKey] = merge(dataset[contractKey][ownerKey], holding)
		}
	}

	logger.InfoCtx(ctx, "Loaded dataset",
		zap.String("path", p.path),
		zap.Int("contracts", len(dataset)),
		zap.Int("malformed_owners", malformed),
	)

	return dataset, nil
}

func (p *fileProvider) decodeOwner(owner string, data json.RawMessage) *domain.OwnerHolding {
	holding := &domain.OwnerHolding{
		OwnerAddress: owner,
		TokenIDs:     []uint64{},
		Metadata:     map[uint64]*domain.TokenMetadata{},
	}

	var entry ownerEntry
	if err := p.json.Unmarshal(data, &entry); err != nil {
		holding.Malformed = fmt.Errorf("invalid owner entry: %w", err)
		return holding
	}

	ids := entry.TokenIDs
	if len(ids) == 0 {
		ids = entry.LegacyTokenID
	}
	for _, n := range ids {
		id, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			holding.Malformed = fmt.Errorf("invalid token id %q: %w", n.String(), err)
			return holding
		}
		holding.TokenIDs = append(holding.TokenIDs, id)
	}

	for key, rawMetadata := range entry.Metadata {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			holding.Malformed = fmt.Errorf("invalid metadata key %q: %w", key, err)
			return holding
		}

		metadata, err := p.decodeMetadata(rawMetadata)
		if err != nil {
			holding.Malformed = fmt.Errorf("invalid metadata for token %d: %w", id, err)
			return holding
		}
		if metadata != nil {
			holding.Metadata[id] = metadata
		}
	}

	return holding
}

// decodeMetadata accepts both the wrapped scraper entry and bare token metadata.
// A null entry means the metadata has not been fetched yet.
func (p *fileProvider) decodeMetadata(data json.RawMessage) (*domain.TokenMetadata, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}

	var entry metadataEntry
	if err := p.json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	if entry.Metadata != nil {
		return entry.Metadata, nil
	}

	var metadata domain.TokenMetadata
	if err := p.json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

// merge folds two entries that normalize to the same owner address
func merge(existing, holding *domain.OwnerHolding) *domain.OwnerHolding {
	if existing == nil {
		return holding
	}
	if existing.Malformed != nil {
		return existing
	}
	if holding.Malformed != nil {
		return holding
	}

	seen := make(map[uint64]bool, len(existing.TokenIDs))
	for _, id := range existing.TokenIDs {
		seen[id] = true
	}
	for _, id := range holding.TokenIDs {
		if !seen[id] {
			existing.TokenIDs = append(existing.TokenIDs, id)
			seen[id] = true
		}
	}
	sort.Slice(existing.TokenIDs, func(i, j int) bool { return existing.TokenIDs[i] < existing.TokenIDs[j] })

	for id, metadata := range holding.Metadata {
		if _, ok := existing.Metadata[id]; !ok {
			existing.Metadata[id] = metadata
		}
	}
	return existing
}

// NormalizeAddress lower-cases valid hex addresses and leaves any other key untouched
func NormalizeAddress(address string) string {
	trimmed := strings.TrimSpace(address)
	if common.IsHexAddress(trimmed) {
		return strings.ToLower(common.HexToAddress(trimmed).Hex())
	}
	return address
}
