package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"github.com/terrafield/landledger/internal/domain"
	"github.com/terrafield/landledger/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the protocol tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.LandRecord{},
		&schema.DocumentNonce{},
		&schema.ActiveAgreement{},
		&schema.TenantAgreement{},
		&schema.PropertyAgreement{},
		&schema.RightsPool{},
		&schema.TransferredRights{},
		&schema.AccountProperty{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults: 20 open, 5 idle,
// 5m lifetime, 10m idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
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

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// GetLandRecord retrieves the attested title for a tokenID
func (s *pgStore) GetLandRecord(ctx context.Context, tokenID uint64) (*domain.LandRecord, error) {
	var record schema.LandRecord
	err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get land record: %w", err)
	}

	return &domain.LandRecord{
		TokenID:      record.TokenID,
		DocumentHash: record.DocumentHash,
		Size:         domain.Quantity(record.Size),
		Attestor:     common.HexToAddress(record.Attestor),
	}, nil
}

// HasDocument checks the document-nonce set for a title document hash
func (s *pgStore) HasDocument(ctx context.Context, documentHash string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.DocumentNonce{}).
		Where("hash = ?", documentHash).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check document nonce: %w", err)
	}
	return count > 0, nil
}

// CreateLandRecord persists a new attested title
func (s *pgStore) CreateLandRecord(ctx context.Context, record *domain.LandRecord) error {
	row := schema.LandRecord{
		TokenID:      record.TokenID,
		DocumentHash: record.DocumentHash,
		Size:         uint64(record.Size),
		Attestor:     record.Attestor.Hex(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create land record: %w", err)
	}
	return nil
}

// MarkDocumentUsed appends a document hash to the nonce set
func (s *pgStore) MarkDocumentUsed(ctx context.Context, documentHash string) error {
	row := schema.DocumentNonce{Hash: documentHash}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to mark document used: %w", err)
	}
	return nil
}

// AppendAccountProperty appends a tokenID to the attestor's property index
func (s *pgStore) AppendAccountProperty(ctx context.Context, attestor common.Address, tokenID uint64) error {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.AccountProperty{}).
		Where("attestor = ?", attestor.Hex()).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to count account properties: %w", err)
	}

	row := schema.AccountProperty{
		Attestor: attestor.Hex(),
		Idx:      uint64(count),
		TokenID:  tokenID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append account property: %w", err)
	}
	return nil
}

// GetAccountProperty retrieves the tokenID at a 0-based position in the attestor's index
func (s *pgStore) GetAccountProperty(ctx context.Context, attestor common.Address, idx uint64) (*uint64, error) {
	var row schema.AccountProperty
	err := s.db.WithContext(ctx).
		Where("attestor = ? AND idx = ?", attestor.Hex(), idx).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account property: %w", err)
	}
	return &row.TokenID, nil
}

// CountLandRecords returns the total number of attested titles
func (s *pgStore) CountLandRecords(ctx context.Context) (uint64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.LandRecord{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count land records: %w", err)
	}
	return uint64(count), nil
}

// GetActiveAgreement retrieves the tenant's current agreement slot
func (s *pgStore) GetActiveAgreement(ctx context.Context, tenant common.Address) (*domain.Agreement, error) {
	var row schema.ActiveAgreement
	err := s.db.WithContext(ctx).Where("tenant = ?", tenant.Hex()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active agreement: %w", err)
	}
	return activeToDomain(&row), nil
}

// PutActiveAgreement stores or overwrites the tenant's agreement slot
func (s *pgStore) PutActiveAgreement(ctx context.Context, agreement *domain.Agreement) error {
	row := schema.ActiveAgreement{
		Tenant:    agreement.Tenant.Hex(),
		Purpose:   agreement.Purpose,
		Size:      uint64(agreement.Size),
		Duration:  agreement.Duration,
		Cost:      agreement.Cost,
		TokenID:   agreement.TokenID,
		Owner:     agreement.Owner.Hex(),
		Fulfilled: agreement.Fulfilled,
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("failed to put active agreement: %w", err)
	}
	return nil
}

// AppendTenantHistory archives an agreement at the next 1-based index of the tenant's log
func (s *pgStore) AppendTenantHistory(ctx context.Context, agreement *domain.Agreement) (uint64, error) {
	count, err := s.TenantHistoryCount(ctx, agreement.Tenant)
	if err != nil {
		return 0, err
	}

	idx := count + 1
	row := schema.TenantAgreement{
		Tenant:    agreement.Tenant.Hex(),
		Idx:       idx,
		Purpose:   agreement.Purpose,
		Size:      uint64(agreement.Size),
		Duration:  agreement.Duration,
		Cost:      agreement.Cost,
		TokenID:   agreement.TokenID,
		Owner:     agreement.Owner.Hex(),
		Fulfilled: agreement.Fulfilled,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to append tenant history: %w", err)
	}
	return idx, nil
}

// AppendPropertyHistory archives an agreement at the next 1-based index of the property's log
func (s *pgStore) AppendPropertyHistory(ctx context.Context, agreement *domain.Agreement) (uint64, error) {
	count, err := s.PropertyHistoryCount(ctx, agreement.TokenID)
	if err != nil {
		return 0, err
	}

	idx := count + 1
	row := schema.PropertyAgreement{
		TokenID:   agreement.TokenID,
		Idx:       idx,
		Purpose:   agreement.Purpose,
		Size:      uint64(agreement.Size),
		Duration:  agreement.Duration,
		Cost:      agreement.Cost,
		Tenant:    agreement.Tenant.Hex(),
		Owner:     agreement.Owner.Hex(),
		Fulfilled: agreement.Fulfilled,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to append property history: %w", err)
	}
	return idx, nil
}

// TenantHistoryCount returns the number of archived agreements for a tenant
func (s *pgStore) TenantHistoryCount(ctx context.Context, tenant common.Address) (uint64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.TenantAgreement{}).
		Where("tenant = ?", tenant.Hex()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tenant history: %w", err)
	}
	return uint64(count), nil
}

// PropertyHistoryCount returns the number of archived agreements for a property
func (s *pgStore) PropertyHistoryCount(ctx context.Context, tokenID uint64) (uint64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.PropertyAgreement{}).
		Where("token_id = ?", tokenID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count property history: %w", err)
	}
	return uint64(count), nil
}

// TenantHistoryAt retrieves the archived agreement at a 1-based index
func (s *pgStore) TenantHistoryAt(ctx context.Context, tenant common.Address, idx uint64) (*domain.Agreement, error) {
	var row schema.TenantAgreement
	err := s.db.WithContext(ctx).
		Where("tenant = ? AND idx = ?", tenant.Hex(), idx).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tenant history: %w", err)
	}
	return &domain.Agreement{
		AgreementTerms: domain.AgreementTerms{
			Purpose:  row.Purpose,
			Size:     domain.Quantity(row.Size),
			Duration: row.Duration,
			Cost:     row.Cost,
			TokenID:  row.TokenID,
		},
		Owner:     common.HexToAddress(row.Owner),
		Tenant:    common.HexToAddress(row.Tenant),
		Fulfilled: row.Fulfilled,
	}, nil
}

// PropertyHistoryAt retrieves the archived agreement at a 1-based index
func (s *pgStore) PropertyHistoryAt(ctx context.Context, tokenID uint64, idx uint64) (*domain.Agreement, error) {
	var row schema.PropertyAgreement
	err := s.db.WithContext(ctx).
		Where("token_id = ? AND idx = ?", tokenID, idx).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get property history: %w", err)
	}
	return &domain.Agreement{
		AgreementTerms: domain.AgreementTerms{
			Purpose:  row.Purpose,
			Size:     domain.Quantity(row.Size),
			Duration: row.Duration,
			Cost:     row.Cost,
			TokenID:  row.TokenID,
		},
		Owner:     common.HexToAddress(row.Owner),
		Tenant:    common.HexToAddress(row.Tenant),
		Fulfilled: row.Fulfilled,
	}, nil
}

// ListElapsedAgreements returns active agreements whose duration passed before now
func (s *pgStore) ListElapsedAgreements(ctx context.Context, now uint64, limit int) ([]*domain.Agreement, error) {
	var rows []schema.ActiveAgreement
	err := s.db.WithContext(ctx).
		Where("fulfilled = ? AND size > 0 AND duration < ?", false, now).
		Order("duration ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list elapsed agreements: %w", err)
	}

	agreements := make([]*domain.Agreement, 0, len(rows))
	for i := range rows {
		agreements = append(agreements, activeToDomain(&rows[i]))
	}
	return agreements, nil
}

// GetRightsPool retrieves the rights pool for a property, nil if never claimed
func (s *pgStore) GetRightsPool(ctx context.Context, tokenID uint64) (*domain.RightsPool, error) {
	var row schema.RightsPool
	err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rights pool: %w", err)
	}
	return &domain.RightsPool{
		Remaining: domain.Quantity(row.Remaining),
		Claimed:   row.Claimed,
	}, nil
}

// PutRightsPool stores or overwrites the rights pool for a property
func (s *pgStore) PutRightsPool(ctx context.Context, tokenID uint64, pool domain.RightsPool) error {
	row := schema.RightsPool{
		TokenID:   tokenID,
		Remaining: uint64(pool.Remaining),
		Claimed:   pool.Claimed,
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to put rights pool: %w", err)
	}
	return nil
}

// GetTransferred returns the outstanding leased quantity for a property
func (s *pgStore) GetTransferred(ctx context.Context, tokenID uint64) (domain.Quantity, error) {
	var row schema.TransferredRights
	err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get transferred rights: %w", err)
	}
	return domain.Quantity(row.Outstanding), nil
}

// SetTransferred overwrites the outstanding leased quantity for a property
func (s *pgStore) SetTransferred(ctx context.Context, tokenID uint64, quantity domain.Quantity) error {
	row := schema.TransferredRights{
		TokenID:     tokenID,
		Outstanding: uint64(quantity),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to set transferred rights: %w", err)
	}
	return nil
}

// WithTransaction runs fn against a transactional view of the store
func (s *pgStore) WithTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

func activeToDomain(row *schema.ActiveAgreement) *domain.Agreement {
	return &domain.Agreement{
		AgreementTerms: domain.AgreementTerms{
			Purpose:  row.Purpose,
			Size:     domain.Quantity(row.Size),
			Duration: row.Duration,
			Cost:     row.Cost,
			TokenID:  row.TokenID,
		},
		Owner:     common.HexToAddress(row.Owner),
		Tenant:    common.HexToAddress(row.Tenant),
		Fulfilled: row.Fulfilled,
	}
}
