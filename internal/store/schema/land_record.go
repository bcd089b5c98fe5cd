package schema

import (
	"time"
)

// LandRecord represents the land_records table - one row per attested title,
// immutable after creation
type LandRecord struct {
	// TokenID is the property identifier and ownership token key
	TokenID uint64 `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	// DocumentHash is the content hash of the attested title document
	DocumentHash string `gorm:"column:document_hash;not null;uniqueIndex:idx_land_records_document"`
	// Size is the declared leasable quantity in scaled units
	Size uint64 `gorm:"column:size;not null"`
	// Attestor is the hex address the ownership token was minted to
	Attestor string `gorm:"column:attestor;not null;type:text;index:idx_land_records_attestor"`
	// CreatedAt is the timestamp when the title was attested
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the LandRecord model
func (LandRecord) TableName() string {
	return "land_records"
}
