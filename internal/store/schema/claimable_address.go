package schema

import (
	"time"

	"gorm.io/datatypes"
)

// ClaimableAddress represents the claimable_addresses table - the current claims of every contract
type ClaimableAddress struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ContractAddress is the lower-cased contract the claim belongs to
	ContractAddress string `gorm:"column:contract_address;not null;type:text;index:idx_claimable_addresses_contract_position,priority:1"`
	// Position keeps the order the claims were written in
	Position int `gorm:"column:position;not null;index:idx_claimable_addresses_contract_position,priority:2"`
	// Address is the owner address that satisfied the condition
	Address    string `gorm:"column:address;not null;type:text"`
	Claimable  bool   `gorm:"column:claimable;not null;default:true"`
	ClaimIndex int    `gorm:"column:claim_index;not null"`
	Quantity   int    `gorm:"column:quantity;not null"`
	// Song is set for claims produced by a one-song-all-colors rule
	Song *string `gorm:"column:song;type:text"`
	// Frame is set for claims produced by an all-songs-one-color rule
	Frame *string `gorm:"column:frame;type:text"`
	// Record is the canonical JSON of the claim as written to the claims file
	Record    datatypes.JSON `gorm:"column:record;type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ClaimableAddress model
func (ClaimableAddress) TableName() string {
	return "claimable_addresses"
}
