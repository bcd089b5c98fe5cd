// Package ledger implements the usage ledger: the rights-accounting state
// machine that seals lease agreements against a property's rights pool,
// answers usage-rights claims, and reclaims elapsed agreements back into
// the pool.
package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/terrafield/landledger/internal/adapter"
	"github.com/terrafield/landledger/internal/domain"
	"github.com/terrafield/landledger/internal/logger"
	"github.com/terrafield/landledger/internal/messaging"
	"github.com/terrafield/landledger/internal/signature"
	"github.com/terrafield/landledger/internal/store"
	"github.com/terrafield/landledger/internal/token"
)

// elapsedBatchSize bounds a single sweep query over active agreements
const elapsedBatchSize = 100

// UsageLedger defines the rights-accounting operations. Mutating operations
// take the caller's authenticated address; ClaimUsageRights is a pure check
// that signals validity through its result, not through errors.
//
//go:generate mockgen -source=ledger.go -destination=../mocks/ledger.go -package=mocks -mock_names=UsageLedger=MockUsageLedger
type UsageLedger interface {
	// SealAgreement finalizes an off-chain-negotiated lease. Both parties'
	// signatures over the terms are verified, the property's rights pool is
	// depleted by the leased size, and the agreement becomes the tenant's
	// active slot.
	SealAgreement(ctx context.Context, caller common.Address, terms domain.AgreementTerms, ownerSig, tenantSig []byte) (*domain.Agreement, error)

	// ClaimUsageRights checks whether the claimant currently holds valid
	// usage rights under the submitted terms. The result echoes the stored
	// agreement's expiry and tokenID so callers can tell a stale claim from
	// a missing one. The error return is reserved for malformed signatures
	// and store failures.
	ClaimUsageRights(ctx context.Context, terms domain.AgreementTerms, claimantSig []byte) (domain.ClaimResult, error)

	// ReclaimRights closes an elapsed agreement: the owner submits the
	// tenant's original signature, the leased size flows back into the
	// rights pool, and the cleared agreement is archived in both history
	// logs.
	ReclaimRights(ctx context.Context, caller common.Address, terms domain.AgreementTerms, tenantSig []byte) (*domain.Agreement, error)

	// GetRights returns the remaining leasable quantity of a property's
	// pool, zero while the pool is uninitialized
	GetRights(ctx context.Context, tokenID uint64) (domain.Quantity, error)

	// Transferred returns the currently-outstanding leased quantity of a
	// property
	Transferred(ctx context.Context, tokenID uint64) (domain.Quantity, error)

	// UserAgreementAt returns the archived agreement at a 1-based index of
	// the tenant's history log
	UserAgreementAt(ctx context.Context, tenant common.Address, idx uint64) (*domain.Agreement, error)

	// PropertyAgreementAt returns the archived agreement at a 1-based index
	// of the property's history log
	PropertyAgreementAt(ctx context.Context, tokenID uint64, idx uint64) (*domain.Agreement, error)

	// UserAgreementCount returns the number of archived agreements for a
	// tenant; also the highest valid index for UserAgreementAt
	UserAgreementCount(ctx context.Context, tenant common.Address) (uint64, error)

	// PropertyAgreementCount returns the number of archived agreements for
	// a property
	PropertyAgreementCount(ctx context.Context, tokenID uint64) (uint64, error)

	// ListElapsedAgreements returns up to elapsedBatchSize active agreements
	// whose term passed before now, for the expiry sweeper
	ListElapsedAgreements(ctx context.Context, now uint64) ([]*domain.Agreement, error)
}

type usageLedger struct {
	store     store.Store
	tokens    token.Collaborator
	publisher messaging.Publisher
	clock     adapter.Clock

	tokenLocks  lockTable[uint64]
	tenantLocks lockTable[common.Address]
}

// New creates a new usage ledger
func New(st store.Store, tokens token.Collaborator, pub messaging.Publisher, clock adapter.Clock) UsageLedger {
	return &usageLedger{
		store:     st,
		tokens:    tokens,
		publisher: pub,
		clock:     clock,
	}
}

// SealAgreement finalizes a lease after authenticating both parties
func (l *usageLedger) SealAgreement(
	ctx context.Context,
	caller common.Address,
	terms domain.AgreementTerms,
	ownerSig, tenantSig []byte,
) (*domain.Agreement, error) {
	// Both recoveries are pure, so malformed signatures are rejected
	// before any state read or lock acquisition
	digest := signature.AgreementDigest(terms)
	ownerSigner, err := signature.RecoverSigner(digest, ownerSig)
	if err != nil {
		return nil, err
	}
	tenantSigner, err := signature.RecoverSigner(digest, tenantSig)
	if err != nil {
		return nil, err
	}

	// Token lock before tenant lock, the fixed order across the ledger
	unlockToken := l.tokenLocks.lock(terms.TokenID)
	defer unlockToken()
	unlockTenant := l.tenantLocks.lock(caller)
	defer unlockTenant()

	var agreement *domain.Agreement
	err = l.store.WithTransaction(ctx, func(tx store.Store) error {
		record, err := tx.GetLandRecord(ctx, terms.TokenID)
		if err != nil {
			return err
		}
		if record == nil || record.Size == 0 {
			return domain.ErrNonexistentTitle
		}
		if terms.Size > record.Size {
			return domain.ErrSizeExceedsTitle
		}

		// Renewal gate: a tenant with a running paid agreement may only
		// seal again for a strictly longer term
		latest, err := tx.GetActiveAgreement(ctx, caller)
		if err != nil {
			return err
		}
		if latest != nil && latest.Cost != 0 && terms.Duration <= latest.Duration {
			return domain.ErrRunningAgreement
		}

		owner, err := l.tokens.OwnerOf(ctx, terms.TokenID)
		if err != nil {
			return err
		}
		if ownerSigner != owner {
			return domain.ErrOwnerAuthentication
		}
		if tenantSigner != caller {
			return domain.ErrTenantAuthentication
		}

		pool, err := tx.GetRightsPool(ctx, terms.TokenID)
		if err != nil {
			return err
		}
		if pool == nil || !pool.Claimed {
			pool = &domain.RightsPool{Remaining: record.Size, Claimed: true}
		}
		if pool.Remaining == 0 || pool.Remaining < terms.Size {
			return domain.ErrInsufficientRights
		}
		pool.Remaining -= terms.Size
		if err := tx.PutRightsPool(ctx, terms.TokenID, *pool); err != nil {
			return err
		}

		transferred, err := tx.GetTransferred(ctx, terms.TokenID)
		if err != nil {
			return err
		}
		if err := tx.SetTransferred(ctx, terms.TokenID, transferred+terms.Size); err != nil {
			return err
		}

		agreement = &domain.Agreement{
			AgreementTerms: terms,
			Owner:          owner,
			Tenant:         caller,
		}
		return tx.PutActiveAgreement(ctx, agreement)
	})
	if err != nil {
		return nil, err
	}

	l.publishSealed(ctx, agreement)

	return agreement, nil
}

// ClaimUsageRights checks a usage-rights claim against the stored agreement
func (l *usageLedger) ClaimUsageRights(ctx context.Context, terms domain.AgreementTerms, claimantSig []byte) (domain.ClaimResult, error) {
	digest := signature.AgreementDigest(terms)
	claimant, err := signature.RecoverSigner(digest, claimantSig)
	if err != nil {
		return domain.ClaimResult{}, err
	}

	stored, err := l.store.GetActiveAgreement(ctx, claimant)
	if err != nil {
		return domain.ClaimResult{}, err
	}
	if stored == nil {
		return domain.ClaimResult{TokenID: terms.TokenID}, nil
	}

	// The claim is valid only when the submitted terms reproduce the stored
	// agreement's digest exactly; any divergence recovers a different
	// address or fails the comparison below. Expiry and tokenID come from
	// the stored agreement either way.
	valid := stored.Active() &&
		claimant == stored.Tenant &&
		uint64(l.clock.Now().Unix()) < stored.Duration &&
		signature.AgreementDigest(stored.AgreementTerms) == digest

	return domain.ClaimResult{
		Valid:   valid,
		Expiry:  stored.Duration,
		TokenID: stored.TokenID,
	}, nil
}

// ReclaimRights closes an elapsed agreement and replenishes the rights pool
func (l *usageLedger) ReclaimRights(
	ctx context.Context,
	caller common.Address,
	terms domain.AgreementTerms,
	tenantSig []byte,
) (*domain.Agreement, error) {
	// The submitted terms identify the tenant slot; authentication proper
	// happens against the stored agreement's digest inside the transaction
	digest := signature.AgreementDigest(terms)
	tenant, err := signature.RecoverSigner(digest, tenantSig)
	if err != nil {
		return nil, err
	}

	unlockToken := l.tokenLocks.lock(terms.TokenID)
	defer unlockToken()
	unlockTenant := l.tenantLocks.lock(tenant)
	defer unlockTenant()

	var (
		archived  *domain.Agreement
		remaining domain.Quantity
	)
	err = l.store.WithTransaction(ctx, func(tx store.Store) error {
		stored, err := tx.GetActiveAgreement(ctx, tenant)
		if err != nil {
			return err
		}
		if !stored.Active() {
			return domain.ErrNoActiveAgreement
		}

		// Re-verify the tenant signature against the stored terms, so a
		// signature over divergent terms cannot release this agreement
		storedDigest := signature.AgreementDigest(stored.AgreementTerms)
		signer, err := signature.RecoverSigner(storedDigest, tenantSig)
		if err != nil {
			return err
		}
		if signer != stored.Tenant {
			return domain.ErrTenantMismatch
		}

		// The agreement stays reclaimable only by whoever owns the
		// property now; a title transfer since sealing voids the old
		// owner's claim
		owner, err := l.tokens.OwnerOf(ctx, stored.TokenID)
		if err != nil {
			return err
		}
		if stored.Owner != owner {
			return domain.ErrOwnerMismatch
		}
		if caller != owner {
			return domain.ErrClaimerMismatch
		}

		if uint64(l.clock.Now().Unix()) <= stored.Duration {
			return domain.ErrAgreementNotElapsed
		}

		pool, err := tx.GetRightsPool(ctx, stored.TokenID)
		if err != nil {
			return err
		}
		if pool == nil {
			return fmt.Errorf("rights pool missing for token %d with active agreement", stored.TokenID)
		}
		pool.Remaining += stored.Size
		if err := tx.PutRightsPool(ctx, stored.TokenID, *pool); err != nil {
			return err
		}
		remaining = pool.Remaining

		transferred, err := tx.GetTransferred(ctx, stored.TokenID)
		if err != nil {
			return err
		}
		if err := tx.SetTransferred(ctx, stored.TokenID, transferred-stored.Size); err != nil {
			return err
		}

		// Archive the cleared agreement, size zeroed, in both logs
		stored.Size = 0
		stored.Fulfilled = true
		if err := tx.PutActiveAgreement(ctx, stored); err != nil {
			return err
		}
		if _, err := tx.AppendTenantHistory(ctx, stored); err != nil {
			return err
		}
		if _, err := tx.AppendPropertyHistory(ctx, stored); err != nil {
			return err
		}
		archived = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publishReclaimed(ctx, archived, remaining)

	return archived, nil
}

// GetRights returns the remaining leasable quantity for a property
func (l *usageLedger) GetRights(ctx context.Context, tokenID uint64) (domain.Quantity, error) {
	pool, err := l.store.GetRightsPool(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	if pool == nil {
		return 0, nil
	}
	return pool.Remaining, nil
}

// Transferred returns the outstanding leased quantity for a property
func (l *usageLedger) Transferred(ctx context.Context, tokenID uint64) (domain.Quantity, error) {
	return l.store.GetTransferred(ctx, tokenID)
}

// UserAgreementAt returns the archived agreement at a 1-based tenant index
func (l *usageLedger) UserAgreementAt(ctx context.Context, tenant common.Address, idx uint64) (*domain.Agreement, error) {
	count, err := l.store.TenantHistoryCount(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if idx < 1 || idx > count {
		return nil, domain.ErrIndexOutOfRange
	}
	agreement, err := l.store.TenantHistoryAt(ctx, tenant, idx)
	if err != nil {
		return nil, err
	}
	if agreement == nil {
		return nil, domain.ErrIndexOutOfRange
	}
	return agreement, nil
}

// PropertyAgreementAt returns the archived agreement at a 1-based property index
func (l *usageLedger) PropertyAgreementAt(ctx context.Context, tokenID uint64, idx uint64) (*domain.Agreement, error) {
	count, err := l.store.PropertyHistoryCount(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if idx < 1 || idx > count {
		return nil, domain.ErrIndexOutOfRange
	}
	agreement, err := l.store.PropertyHistoryAt(ctx, tokenID, idx)
	if err != nil {
		return nil, err
	}
	if agreement == nil {
		return nil, domain.ErrIndexOutOfRange
	}
	return agreement, nil
}

// UserAgreementCount returns the number of archived agreements for a tenant
func (l *usageLedger) UserAgreementCount(ctx context.Context, tenant common.Address) (uint64, error) {
	return l.store.TenantHistoryCount(ctx, tenant)
}

// PropertyAgreementCount returns the number of archived agreements for a property
func (l *usageLedger) PropertyAgreementCount(ctx context.Context, tokenID uint64) (uint64, error) {
	return l.store.PropertyHistoryCount(ctx, tokenID)
}

// ListElapsedAgreements returns a batch of active agreements past their term
func (l *usageLedger) ListElapsedAgreements(ctx context.Context, now uint64) ([]*domain.Agreement, error) {
	return l.store.ListElapsedAgreements(ctx, now, elapsedBatchSize)
}

func (l *usageLedger) publishSealed(ctx context.Context, agreement *domain.Agreement) {
	if l.publisher == nil {
		return
	}

	event := &domain.ProtocolEvent{
		EventID:   ulid.MustNewDefault(l.clock.Now()).String(),
		Type:      domain.EventTypeSealed,
		Timestamp: l.clock.Now(),
		Sealed: &domain.SealedPayload{
			Purpose:  agreement.Purpose,
			Size:     agreement.Size,
			Duration: agreement.Duration,
			Cost:     agreement.Cost,
			TokenID:  agreement.TokenID,
			Owner:    agreement.Owner,
			Tenant:   agreement.Tenant,
		},
	}
	if err := l.publisher.PublishEvent(ctx, event); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to publish sealed event: %w", err),
			zap.Uint64("token_id", agreement.TokenID),
			zap.String("tenant", agreement.Tenant.Hex()))
	}
}

func (l *usageLedger) publishReclaimed(ctx context.Context, agreement *domain.Agreement, remaining domain.Quantity) {
	if l.publisher == nil {
		return
	}

	event := &domain.ProtocolEvent{
		EventID:   ulid.MustNewDefault(l.clock.Now()).String(),
		Type:      domain.EventTypeReclaimed,
		Timestamp: l.clock.Now(),
		Reclaimed: &domain.ReclaimedPayload{
			TokenID:   agreement.TokenID,
			Tenant:    agreement.Tenant,
			Remaining: remaining,
			Fulfilled: agreement.Fulfilled,
		},
	}
	if err := l.publisher.PublishEvent(ctx, event); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to publish reclaimed event: %w", err),
			zap.Uint64("token_id", agreement.TokenID),
			zap.String("tenant", agreement.Tenant.Hex()))
	}
}
