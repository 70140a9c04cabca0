package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/feral-file/ff-claims-checker/internal/adapter"
	"github.com/feral-file/ff-claims-checker/internal/claims"
	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/logger"
	"github.com/feral-file/ff-claims-checker/internal/store/schema"
)

// claimFields is the number of bind parameters one claimable_addresses row consumes on insert
const claimFields = 10

type pgStore struct {
	db   *gorm.DB
	json adapter.JSON
}

// NewPGStore creates a new PostgreSQL claims store
func NewPGStore(db *gorm.DB, jsonAdapter adapter.JSON) ClaimsStore {
	return &pgStore{db: db, json: jsonAdapter}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// If any of the pool settings are 0, defaults from NormalizeConnectionPoolSettings are used.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings.
//
// Defaults (when zero):
//   - MaxOpenConns: 4
//   - MaxIdleConns: 2
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 4
	}
	if maxIdleConns == 0 {
		maxIdleConns = 2
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// calculateSafeBatchSize keeps a bulk insert under PostgreSQL's 65535 bind parameter limit
func calculateSafeBatchSize(totalRecords int, fieldsPerRecord int) int {
	const maxParams = 65535
	const totalHeadroom = 1000

	availableParams := maxParams - totalHeadroom
	safeBatchSize := max(availableParams/fieldsPerRecord, 1)

	if safeBatchSize > totalRecords {
		return totalRecords
	}

	return safeBatchSize
}

// ReadExisting returns the claims of a contract in the order they were written
func (s *pgStore) ReadExisting(ctx context.Context, contract string) ([]domain.ClaimableAddress, error) {
	var rows []schema.ClaimableAddress
	err := s.db.WithContext(ctx).
		Where("contract_address = ?", ContractKey(contract)).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read claims: %w", domain.ErrPersistence, err)
	}

	records := make([]domain.ClaimableAddress, 0, len(rows))
	for _, row := range rows {
		record, err := s.fromRow(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// WriteAll replaces the claims of a contract inside one transaction
func (s *pgStore) WriteAll(ctx context.Context, contract string, records []domain.ClaimableAddress) error {
	key := ContractKey(contract)

	rows := make([]schema.ClaimableAddress, 0, len(records))
	for i, record := range records {
		row, err := toRow(key, i, record)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contract_address = ?", key).Delete(&schema.ClaimableAddress{}).Error; err != nil {
			return fmt.Errorf("failed to delete previous claims: %w", err)
		}

		if len(rows) == 0 {
			return nil
		}

		if err := tx.CreateInBatches(&rows, calculateSafeBatchSize(len(rows), claimFields)).Error; err != nil {
			return fmt.Errorf("failed to insert claims: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	logger.InfoCtx(ctx, "Wrote claims to database",
		zap.String("contract", key),
		zap.Int("records", len(rows)),
	)

	return nil
}

// toRow builds the row for the claim at position i. Record holds the canonical JSON
// the claim is read back from; the typed columns exist for querying.
func toRow(contract string, position int, record domain.ClaimableAddress) (schema.ClaimableAddress, error) {
	canonical, err := claims.Fingerprint(record)
	if err != nil {
		return schema.ClaimableAddress{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	return schema.ClaimableAddress{
		ContractAddress: contract,
		Position:        position,
		Address:         record.Address,
		Claimable:       record.Claimable,
		ClaimIndex:      record.ClaimIndex,
		Quantity:        record.Quantity,
		Song:            optional(record.Song),
		Frame:           optional(record.Frame),
		Record:          datatypes.JSON(canonical),
	}, nil
}

// fromRow decodes the claim stored in Record, falling back to the typed columns
// for rows written without one
func (s *pgStore) fromRow(row schema.ClaimableAddress) (domain.ClaimableAddress, error) {
	var record domain.ClaimableAddress
	if len(row.Record) > 0 {
		if err := s.json.Unmarshal(row.Record, &record); err != nil {
			return domain.ClaimableAddress{}, fmt.Errorf("%w: failed to decode claim at position %d: %w", domain.ErrPersistence, row.Position, err)
		}
		return record, nil
	}

	record = domain.ClaimableAddress{
		Address:    row.Address,
		Claimable:  row.Claimable,
		ClaimIndex: row.ClaimIndex,
		Quantity:   row.Quantity,
	}
	if row.Song != nil {
		record.Song = *row.Song
	}
	if row.Frame != nil {
		record.Frame = *row.Frame
	}
	return record, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
