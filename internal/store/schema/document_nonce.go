package schema

import (
	"time"
)

// DocumentNonce represents the document_nonces table - the append-only set of
// title document hashes that have already been attested. Rows are never
// removed, giving permanent duplicate protection across token IDs and callers.
type DocumentNonce struct {
	// Hash is the content hash of the title document
	Hash string `gorm:"column:hash;primaryKey;type:text"`
	// CreatedAt is the timestamp when the hash was first attested
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the DocumentNonce model
func (DocumentNonce) TableName() string {
	return "document_nonces"
}
