// Package ethereum provides a read-only token collaborator backed by an
// on-chain ownership contract. It serves deployments where the ownership
// tokens live on a chain this service does not write to.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/terrafield/landledger/internal/adapter"
	"github.com/terrafield/landledger/internal/domain"
	"github.com/terrafield/landledger/internal/token"
)

const (
	callTimeout     = 30 * time.Second
	maxCallInterval = 5 * time.Second
	maxCallElapsed  = 30 * time.Second
)

// nonexistentTokenReverts are revert reason fragments ERC-721 contracts use
// for unminted tokens
var nonexistentTokenReverts = []string{
	"nonexistent token",
	"invalid token",
	"owner query for nonexistent",
}

type onchainCollaborator struct {
	contract common.Address
	client   adapter.EthClient
}

// NewCollaborator creates a read-only token collaborator over an ownership
// contract. Mint is unsupported; attestation deployments using this
// collaborator mint through their own chain pipeline.
func NewCollaborator(contract common.Address, client adapter.EthClient) token.Collaborator {
	return &onchainCollaborator{contract: contract, client: client}
}

// OwnerOf fetches the current owner of a token from the ownership contract
func (c *onchainCollaborator) OwnerOf(ctx context.Context, tokenID uint64) (common.Address, error) {
	ownerOfABI, err := abi.JSON(strings.NewReader(`[{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"}]`))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to parse ownerOf ABI: %w", err)
	}

	data, err := ownerOfABI.Pack("ownerOf", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack ownerOf call: %w", err)
	}

	result, err := c.call(ctx, data)
	if err != nil {
		if isNonexistentTokenRevert(err) {
			return common.Address{}, domain.ErrNonexistentToken
		}
		return common.Address{}, fmt.Errorf("ownerOf call failed: %w", err)
	}

	var owner common.Address
	if err := ownerOfABI.UnpackIntoInterface(&owner, "ownerOf", result); err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack ownerOf result: %w", err)
	}
	if owner == (common.Address{}) {
		return common.Address{}, domain.ErrNonexistentToken
	}
	return owner, nil
}

// Mint is unsupported on the read-only collaborator
func (c *onchainCollaborator) Mint(_ context.Context, _ common.Address, _ uint64) error {
	return domain.ErrMintUnsupported
}

// BalanceOf fetches the number of ownership tokens an address holds
func (c *onchainCollaborator) BalanceOf(ctx context.Context, owner common.Address) (uint64, error) {
	balanceOfABI, err := abi.JSON(strings.NewReader(`[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`))
	if err != nil {
		return 0, fmt.Errorf("failed to parse balanceOf ABI: %w", err)
	}

	data, err := balanceOfABI.Pack("balanceOf", owner)
	if err != nil {
		return 0, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	result, err := c.call(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("balanceOf call failed: %w", err)
	}

	var balance *big.Int
	if err := balanceOfABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return 0, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}
	return balance.Uint64(), nil
}

// call executes a read-only contract call with exponential-backoff retries
// for transient RPC failures. Reverts are permanent and surface immediately.
func (c *onchainCollaborator) call(ctx context.Context, data []byte) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = maxCallInterval
	b.MaxElapsedTime = maxCallElapsed

	var result []byte
	operation := func() error {
		var err error
		result, err = c.client.CallContract(timeoutCtx, ethereum.CallMsg{
			To:   &c.contract,
			Data: data,
		}, nil)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "revert") {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, timeoutCtx)); err != nil {
		return nil, err
	}
	return result, nil
}

// isNonexistentTokenRevert reports whether an RPC error is an ERC-721
// unminted-token revert rather than a transport failure
func isNonexistentTokenRevert(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, fragment := range nonexistentTokenReverts {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
