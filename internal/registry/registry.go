// Package registry implements the title registry: attestation of land
// titles, duplicate-document protection, and ownership verification.
package registry

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

// TitleRegistry defines the title registry operations. The caller address is
// the transaction's authenticated identity, resolved by the transport layer.
//
//go:generate mockgen -source=registry.go -destination=../mocks/registry.go -package=mocks -mock_names=TitleRegistry=MockTitleRegistry
type TitleRegistry interface {
	// AttestProperty registers a land title, binding it to the signer and
	// minting the ownership token. The only place identity is irrevocably
	// bound to a tokenID.
	AttestProperty(ctx context.Context, caller common.Address, tokenID uint64, documentHash string, size domain.Quantity, unit string, sig []byte) (*domain.LandRecord, error)

	// ClaimOwnership verifies that the caller signed the stored title
	// payload and is the recorded attestor. Pure verification, no state
	// change.
	ClaimOwnership(ctx context.Context, caller common.Address, tokenID uint64, sig []byte) (bool, error)

	// Title returns the attested land record, ErrNonexistentTitle when the
	// tokenID is unknown
	Title(ctx context.Context, tokenID uint64) (*domain.LandRecord, error)

	// TitleSize returns the declared size of an attested property, zero
	// when the tokenID has no land record
	TitleSize(ctx context.Context, tokenID uint64) (domain.Quantity, error)

	// AccountProperty returns the tokenID at a 0-based index within the
	// caller's attested properties; the index must be below the caller's
	// current token balance
	AccountProperty(ctx context.Context, caller common.Address, idx uint64) (uint64, error)

	// TotalLands returns the total number of attested titles
	TotalLands(ctx context.Context) (uint64, error)

	// LandCount returns the number of ownership tokens an address holds
	LandCount(ctx context.Context, owner common.Address) (uint64, error)
}

type titleRegistry struct {
	store     store.Store
	tokens    token.Collaborator
	publisher messaging.Publisher
	clock     adapter.Clock
}

// New creates a new title registry
func New(st store.Store, tokens token.Collaborator, pub messaging.Publisher, clock adapter.Clock) TitleRegistry {
	return &titleRegistry{
		store:     st,
		tokens:    tokens,
		publisher: pub,
		clock:     clock,
	}
}

// AttestProperty registers a land title after authenticating the attestor
func (r *titleRegistry) AttestProperty(
	ctx context.Context,
	caller common.Address,
	tokenID uint64,
	documentHash string,
	size domain.Quantity,
	unit string,
	sig []byte,
) (*domain.LandRecord, error) {
	// Malformed signatures are rejected before any state read
	digest := signature.AttestationDigest(tokenID, documentHash, size)
	signer, err := signature.RecoverSigner(digest, sig)
	if err != nil {
		return nil, err
	}

	record := &domain.LandRecord{
		TokenID:      tokenID,
		DocumentHash: documentHash,
		Size:         size,
		Attestor:     signer,
	}

	err = r.store.WithTransaction(ctx, func(tx store.Store) error {
		used, err := tx.HasDocument(ctx, documentHash)
		if err != nil {
			return err
		}
		if used {
			return domain.ErrDuplicateDocument
		}

		if signer != caller {
			return domain.ErrSignerMismatch
		}

		if err := tx.MarkDocumentUsed(ctx, documentHash); err != nil {
			return err
		}
		if err := tx.CreateLandRecord(ctx, record); err != nil {
			return err
		}
		if err := tx.AppendAccountProperty(ctx, signer, tokenID); err != nil {
			return err
		}

		// Mint is the final commit point: a mint failure (already-minted
		// tokenID) rolls back every store write above
		return r.tokens.Mint(ctx, signer, tokenID)
	})
	if err != nil {
		return nil, err
	}

	r.publishAttestation(ctx, record, unit)

	return record, nil
}

// ClaimOwnership verifies the caller signed the stored title payload
func (r *titleRegistry) ClaimOwnership(ctx context.Context, caller common.Address, tokenID uint64, sig []byte) (bool, error) {
	record, err := r.store.GetLandRecord(ctx, tokenID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, domain.ErrNonexistentTitle
	}

	// The claim payload is the original attestation payload re-derived from
	// stored state, so an ownership claim is a re-signature of the title
	digest := signature.AttestationDigest(record.TokenID, record.DocumentHash, record.Size)
	signer, err := signature.RecoverSigner(digest, sig)
	if err != nil {
		return false, err
	}

	return signer == caller && signer == record.Attestor, nil
}

// Title returns the attested land record
func (r *titleRegistry) Title(ctx context.Context, tokenID uint64) (*domain.LandRecord, error) {
	record, err := r.store.GetLandRecord(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNonexistentTitle
	}
	return record, nil
}

// TitleSize returns the declared size of an attested property
func (r *titleRegistry) TitleSize(ctx context.Context, tokenID uint64) (domain.Quantity, error) {
	record, err := r.store.GetLandRecord(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, nil
	}
	return record.Size, nil
}

// AccountProperty returns the tokenID at an index within the caller's properties
func (r *titleRegistry) AccountProperty(ctx context.Context, caller common.Address, idx uint64) (uint64, error) {
	balance, err := r.tokens.BalanceOf(ctx, caller)
	if err != nil {
		return 0, err
	}
	if idx >= balance {
		return 0, domain.ErrIndexOutOfRange
	}

	tokenID, err := r.store.GetAccountProperty(ctx, caller, idx)
	if err != nil {
		return 0, err
	}
	if tokenID == nil {
		return 0, domain.ErrIndexOutOfRange
	}
	return *tokenID, nil
}

// TotalLands returns the total number of attested titles
func (r *titleRegistry) TotalLands(ctx context.Context) (uint64, error) {
	return r.store.CountLandRecords(ctx)
}

// LandCount returns the number of ownership tokens an address holds
func (r *titleRegistry) LandCount(ctx context.Context, owner common.Address) (uint64, error) {
	return r.tokens.BalanceOf(ctx, owner)
}

// publishAttestation emits the attestation event. Publication is
// best-effort: registry state is already committed.
func (r *titleRegistry) publishAttestation(ctx context.Context, record *domain.LandRecord, unit string) {
	if r.publisher == nil {
		return
	}

	event := &domain.ProtocolEvent{
		EventID:   ulid.MustNewDefault(r.clock.Now()).String(),
		Type:      domain.EventTypeAttestation,
		Timestamp: r.clock.Now(),
		Attestation: &domain.AttestationPayload{
			TokenID:      record.TokenID,
			DocumentHash: record.DocumentHash,
			Size:         record.Size,
			Unit:         unit,
			Attestor:     record.Attestor,
		},
	}
	if err := r.publisher.PublishEvent(ctx, event); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to publish attestation event: %w", err),
			zap.Uint64("token_id", record.TokenID))
	}
}
