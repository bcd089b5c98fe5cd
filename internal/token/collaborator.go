// Package token is the boundary with the ownership subsystem. The registry
// and ledger consume it only through the Collaborator interface; whether the
// tokens live in this process or on a chain is a wiring decision.
package token

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Collaborator defines the operations the protocol needs from the
// non-fungible ownership registry
//
//go:generate mockgen -source=collaborator.go -destination=../mocks/collaborator.go -package=mocks -mock_names=Collaborator=MockCollaborator
type Collaborator interface {
	// OwnerOf returns the current owner of a token, ErrNonexistentToken if unminted
	OwnerOf(ctx context.Context, tokenID uint64) (common.Address, error)
	// Mint creates a token for an address; fails with ErrTokenAlreadyMinted
	// when the tokenID is taken and ErrZeroAddress when to is the zero address
	Mint(ctx context.Context, to common.Address, tokenID uint64) error
	// BalanceOf returns the number of tokens an address holds
	BalanceOf(ctx context.Context, owner common.Address) (uint64, error)
}
