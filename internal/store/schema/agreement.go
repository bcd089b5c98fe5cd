package schema

import (
	"time"
)

// ActiveAgreement represents the active_agreements table - at most one row
// per tenant address, overwritten when the slot is reused after fulfillment
type ActiveAgreement struct {
	// Tenant is the hex address of the lessee
	Tenant string `gorm:"column:tenant;primaryKey;type:text"`
	// Purpose is the free-text usage intent both parties signed
	Purpose string `gorm:"column:purpose;not null;type:text"`
	// Size is the leased quantity in scaled units; zeroed on reclaim
	Size uint64 `gorm:"column:size;not null"`
	// Duration is the absolute expiry timestamp in unix seconds
	Duration uint64 `gorm:"column:duration;not null"`
	// Cost is the agreed price; recorded, never transferred
	Cost uint64 `gorm:"column:cost;not null"`
	// TokenID references the leased property
	TokenID uint64 `gorm:"column:token_id;not null;index:idx_active_agreements_token"`
	// Owner is the hex address of the property owner at sealing time
	Owner string `gorm:"column:owner;not null;type:text"`
	// Fulfilled is set when the agreement has been reclaimed
	Fulfilled bool `gorm:"column:fulfilled;not null;default:false"`
	// CreatedAt is the timestamp when the slot was first written
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when the slot was last overwritten
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ActiveAgreement model
func (ActiveAgreement) TableName() string {
	return "active_agreements"
}

// TenantAgreement represents the tenant_agreements table - the per-tenant
// append-only history of fulfilled agreements. Idx is 1-based: the recorded
// count is also the last valid index.
type TenantAgreement struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Tenant is the hex address the history belongs to
	Tenant string `gorm:"column:tenant;not null;type:text;uniqueIndex:idx_tenant_agreements_idx,priority:1"`
	// Idx is the 1-based position within the tenant's history
	Idx uint64 `gorm:"column:idx;not null;uniqueIndex:idx_tenant_agreements_idx,priority:2"`
	// Purpose is the archived usage intent
	Purpose string `gorm:"column:purpose;not null;type:text"`
	// Size is the archived quantity; zero, since slots are cleared before archiving
	Size uint64 `gorm:"column:size;not null"`
	// Duration is the archived expiry timestamp
	Duration uint64 `gorm:"column:duration;not null"`
	// Cost is the archived price
	Cost uint64 `gorm:"column:cost;not null"`
	// TokenID references the leased property
	TokenID uint64 `gorm:"column:token_id;not null"`
	// Owner is the archived owner address
	Owner string `gorm:"column:owner;not null;type:text"`
	// Fulfilled is always true for archived rows
	Fulfilled bool `gorm:"column:fulfilled;not null"`
	// CreatedAt is the timestamp when the agreement was archived
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the TenantAgreement model
func (TenantAgreement) TableName() string {
	return "tenant_agreements"
}

// PropertyAgreement represents the property_agreements table - the
// per-property append-only history of fulfilled agreements, 1-based like
// the tenant history.
type PropertyAgreement struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TokenID is the property the history belongs to
	TokenID uint64 `gorm:"column:token_id;not null;uniqueIndex:idx_property_agreements_idx,priority:1"`
	// Idx is the 1-based position within the property's history
	Idx uint64 `gorm:"column:idx;not null;uniqueIndex:idx_property_agreements_idx,priority:2"`
	// Purpose is the archived usage intent
	Purpose string `gorm:"column:purpose;not null;type:text"`
	// Size is the archived quantity; zero, since slots are cleared before archiving
	Size uint64 `gorm:"column:size;not null"`
	// Duration is the archived expiry timestamp
	Duration uint64 `gorm:"column:duration;not null"`
	// Cost is the archived price
	Cost uint64 `gorm:"column:cost;not null"`
	// Tenant is the archived tenant address
	Tenant string `gorm:"column:tenant;not null;type:text"`
	// Owner is the archived owner address
	Owner string `gorm:"column:owner;not null;type:text"`
	// Fulfilled is always true for archived rows
	Fulfilled bool `gorm:"column:fulfilled;not null"`
	// CreatedAt is the timestamp when the agreement was archived
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the PropertyAgreement model
func (PropertyAgreement) TableName() string {
	return "property_agreements"
}
