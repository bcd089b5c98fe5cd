package token

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/terrafield/landledger/internal/domain"
)

// memoryLedger is the in-process ownership registry, used when this service
// is the ownership authority rather than a chain observer
type memoryLedger struct {
	mu       sync.RWMutex
	owners   map[uint64]common.Address
	balances map[common.Address]uint64
}

// NewMemoryLedger creates a new in-memory token ledger
func NewMemoryLedger() Collaborator {
	return &memoryLedger{
		owners:   make(map[uint64]common.Address),
		balances: make(map[common.Address]uint64),
	}
}

// OwnerOf returns the current owner of a token
func (l *memoryLedger) OwnerOf(_ context.Context, tokenID uint64) (common.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	owner, ok := l.owners[tokenID]
	if !ok {
		return common.Address{}, domain.ErrNonexistentToken
	}
	return owner, nil
}

// Mint creates a token for an address
func (l *memoryLedger) Mint(_ context.Context, to common.Address, tokenID uint64) error {
	if to == (common.Address{}) {
		return domain.ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.owners[tokenID]; ok {
		return domain.ErrTokenAlreadyMinted
	}
	l.owners[tokenID] = to
	l.balances[to]++
	return nil
}

// BalanceOf returns the number of tokens an address holds
func (l *memoryLedger) BalanceOf(_ context.Context, owner common.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[owner], nil
}
