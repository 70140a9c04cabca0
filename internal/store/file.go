package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/feral-file/ff-claims-checker/internal/adapter"
	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/logger"
)

type fileStore struct {
	dir  string
	fs   adapter.FileSystem
	json adapter.JSON
}

// NewFileStore creates a claims store keeping one JSON array per contract under dir
func NewFileStore(dir string, fileSystem adapter.FileSystem, jsonAdapter adapter.JSON) ClaimsStore {
	return &fileStore{
		dir:  dir,
		fs:   fileSystem,
		json: jsonAdapter,
	}
}

// FilePath returns the claims file of a contract: <dir>/<contract>_claimableAddresses.json
func FilePath(dir, contract string) string {
	return filepath.Join(dir, ContractKey(contract)+domain.CLAIMS_FILE_SUFFIX)
}

// ReadExisting reads the claims file of a contract; a missing file is an empty list
func (s *fileStore) ReadExisting(ctx context.Context, contract string) ([]domain.ClaimableAddress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := FilePath(s.dir, contract)
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.ClaimableAddress{}, nil
		}
		return nil, fmt.Errorf("%w: failed to read claims file %s: %w", domain.ErrPersistence, path, err)
	}

	records := []domain.ClaimableAddress{}
	if err := s.json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to parse claims file %s: %w", domain.ErrPersistence, path, err)
	}
	if records == nil {
		records = []domain.ClaimableAddress{}
	}

	return records, nil
}

// WriteAll writes records to a temp file in the same directory and renames it over the claims file
func (s *fileStore) WriteAll(ctx context.Context, contract string, records []domain.ClaimableAddress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []domain.ClaimableAddress{}
	}

	data, err := s.json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal claims: %w", domain.ErrPersistence, err)
	}
	data = append(data, '\n')

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create claims directory %s: %w", domain.ErrPersistence, s.dir, err)
	}

	path := FilePath(s.dir, contract)
	tmp, err := s.fs.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", domain.ErrPersistence, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		s.cleanup(ctx, tmpName)
		return fmt.Errorf("%w: failed to write temp file: %w", domain.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		s.cleanup(ctx, tmpName)
		return fmt.Errorf("%w: failed to close temp file: %w", domain.ErrPersistence, err)
	}

	if err := s.fs.Rename(tmpName, path); err != nil {
		s.cleanup(ctx, tmpName)
		return fmt.Errorf("%w: failed to replace claims file %s: %w", domain.ErrPersistence, path, err)
	}

	logger.InfoCtx(ctx, "Wrote claims file",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)

	return nil
}

func (s *fileStore) cleanup(ctx context.Context, name string) {
	if err := s.fs.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.WarnCtx(ctx, "Failed to remove temp file", zap.String("path", name), zap.Error(err))
	}
}
