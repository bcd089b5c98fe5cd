package schema

import (
	"time"
)

// RightsPool represents the rights_pools table - the depletable leasable
// quantity per property, lazily initialized to the title size on first seal
type RightsPool struct {
	// TokenID is the property the pool belongs to
	TokenID uint64 `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	// Remaining is the quantity still available for lease, in scaled units
	Remaining uint64 `gorm:"column:remaining;not null"`
	// Claimed indicates the pool has been initialized from the title size
	Claimed bool `gorm:"column:claimed;not null;default:false"`
	// UpdatedAt is the timestamp of the last seal or reclaim
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the RightsPool model
func (RightsPool) TableName() string {
	return "rights_pools"
}

// TransferredRights represents the transferred_rights table - the running
// total of currently-outstanding leased quantity per property, bookkeeping
// cross-checked against the rights pool
type TransferredRights struct {
	// TokenID is the property the counter belongs to
	TokenID uint64 `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	// Outstanding is the currently leased quantity in scaled units
	Outstanding uint64 `gorm:"column:outstanding;not null;default:0"`
	// UpdatedAt is the timestamp of the last seal or reclaim
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the TransferredRights model
func (TransferredRights) TableName() string {
	return "transferred_rights"
}

// AccountProperty represents the account_properties table - the per-attestor
// 0-based index of properties, appended on each successful attestation
type AccountProperty struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Attestor is the hex address the index belongs to
	Attestor string `gorm:"column:attestor;not null;type:text;uniqueIndex:idx_account_properties_idx,priority:1"`
	// Idx is the 0-based position within the attestor's property list
	Idx uint64 `gorm:"column:idx;not null;uniqueIndex:idx_account_properties_idx,priority:2"`
	// TokenID is the attested property
	TokenID uint64 `gorm:"column:token_id;not null"`
	// CreatedAt is the timestamp when the property was attested
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the AccountProperty model
func (AccountProperty) TableName() string {
	return "account_properties"
}
