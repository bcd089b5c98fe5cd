package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/terrafield/landledger/internal/domain"
)

// Store defines the interface for protocol state persistence.
// Lookup methods return nil (or a nil pointer) rather than an error when the
// requested row does not exist; callers decide which absence is a failure.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// GetLandRecord retrieves the attested title for a tokenID
	GetLandRecord(ctx context.Context, tokenID uint64) (*domain.LandRecord, error)
	// HasDocument checks the document-nonce set for a title document hash
	HasDocument(ctx context.Context, documentHash string) (bool, error)
	// CreateLandRecord persists a new attested title
	CreateLandRecord(ctx context.Context, record *domain.LandRecord) error
	// MarkDocumentUsed appends a document hash to the nonce set
	MarkDocumentUsed(ctx context.Context, documentHash string) error
	// AppendAccountProperty appends a tokenID to the attestor's property index
	AppendAccountProperty(ctx context.Context, attestor common.Address, tokenID uint64) error
	// GetAccountProperty retrieves the tokenID at a 0-based position in the attestor's index
	GetAccountProperty(ctx context.Context, attestor common.Address, idx uint64) (*uint64, error)
	// CountLandRecords returns the total number of attested titles
	CountLandRecords(ctx context.Context) (uint64, error)

	// GetActiveAgreement retrieves the tenant's current agreement slot
	GetActiveAgreement(ctx context.Context, tenant common.Address) (*domain.Agreement, error)
	// PutActiveAgreement stores or overwrites the tenant's agreement slot
	PutActiveAgreement(ctx context.Context, agreement *domain.Agreement) error
	// AppendTenantHistory archives an agreement at the next 1-based index of the tenant's log
	AppendTenantHistory(ctx context.Context, agreement *domain.Agreement) (uint64, error)
	// AppendPropertyHistory archives an agreement at the next 1-based index of the property's log
	AppendPropertyHistory(ctx context.Context, agreement *domain.Agreement) (uint64, error)
	// TenantHistoryCount returns the number of archived agreements for a tenant
	TenantHistoryCount(ctx context.Context, tenant common.Address) (uint64, error)
	// PropertyHistoryCount returns the number of archived agreements for a property
	PropertyHistoryCount(ctx context.Context, tokenID uint64) (uint64, error)
	// TenantHistoryAt retrieves the archived agreement at a 1-based index
	TenantHistoryAt(ctx context.Context, tenant common.Address, idx uint64) (*domain.Agreement, error)
	// PropertyHistoryAt retrieves the archived agreement at a 1-based index
	PropertyHistoryAt(ctx context.Context, tokenID uint64, idx uint64) (*domain.Agreement, error)
	// ListElapsedAgreements returns active agreements whose duration passed before now
	ListElapsedAgreements(ctx context.Context, now uint64, limit int) ([]*domain.Agreement, error)

	// GetRightsPool retrieves the rights pool for a property, nil if never claimed
	GetRightsPool(ctx context.Context, tokenID uint64) (*domain.RightsPool, error)
	// PutRightsPool stores or overwrites the rights pool for a property
	PutRightsPool(ctx context.Context, tokenID uint64, pool domain.RightsPool) error
	// GetTransferred returns the outstanding leased quantity for a property
	GetTransferred(ctx context.Context, tokenID uint64) (domain.Quantity, error)
	// SetTransferred overwrites the outstanding leased quantity for a property
	SetTransferred(ctx context.Context, tokenID uint64, quantity domain.Quantity) error

	// WithTransaction runs fn against a transactional view of the store.
	// All mutations made through the passed store commit together or not at
	// all.
	WithTransaction(ctx context.Context, fn func(Store) error) error
}
