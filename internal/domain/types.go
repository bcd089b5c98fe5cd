package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// QuantityScale is the fixed-point scale for land quantities: one whole
// unit of area equals 10^4 scaled units, so 0.35 units is Quantity(3500).
// The same scaled integers are what off-chain signers encode into digests.
const QuantityScale = 10_000

// Quantity represents a fixed-point scaled area amount
type Quantity uint64

// Units returns the quantity as whole units for display purposes
func (q Quantity) Units() float64 {
	return float64(q) / QuantityScale
}

func (q Quantity) String() string {
	return fmt.Sprintf("%.4f", q.Units())
}

// LandRecord represents an attested property title.
// Created once on successful attestation and immutable thereafter.
type LandRecord struct {
	// TokenID is the property identifier, shared with the ownership token
	TokenID uint64 `json:"token_id"`
	// DocumentHash is the content hash of the title document
	DocumentHash string `json:"document_hash"`
	// Size is the declared leasable area of the property
	Size Quantity `json:"size"`
	// Attestor is the authenticated signer the ownership token was minted to
	Attestor common.Address `json:"attestor"`
}

// AgreementTerms are the lease terms both parties sign off-chain.
// The field order here is the canonical digest encoding order (schema v1).
type AgreementTerms struct {
	// Purpose is free-text usage intent
	Purpose string `json:"purpose"`
	// Size is the leased quantity; never exceeds the property's declared size
	Size Quantity `json:"size"`
	// Duration is the absolute expiry timestamp in unix seconds, not a length
	Duration uint64 `json:"duration"`
	// Cost is the agreed price; recorded, never transferred
	Cost uint64 `json:"cost"`
	// TokenID references the attested property
	TokenID uint64 `json:"token_id"`
}

// Agreement is one lease: signed terms plus the resolved parties.
// Exactly one active agreement exists per tenant address at a time.
type Agreement struct {
	AgreementTerms
	// Owner is the property owner at sealing time
	Owner common.Address `json:"owner"`
	// Tenant is the authenticated lessee
	Tenant common.Address `json:"tenant"`
	// Fulfilled is set when the agreement has been reclaimed and archived
	Fulfilled bool `json:"fulfilled"`
}

// Active reports whether the agreement currently occupies the tenant's slot
func (a *Agreement) Active() bool {
	return a != nil && a.Size != 0 && !a.Fulfilled
}

// RightsPool is the depletable ledger of leasable quantity for one property
type RightsPool struct {
	// Remaining is the quantity still available for lease
	Remaining Quantity `json:"remaining"`
	// Claimed indicates the pool has been initialized from the title size
	Claimed bool `json:"claimed"`
}

// ClaimResult is the outcome of a usage-rights check.
// Valid is the only authoritative signal; Expiry and TokenID echo the
// stored agreement so callers can distinguish a stale claim from a missing
// one.
type ClaimResult struct {
	Valid   bool   `json:"valid"`
	Expiry  uint64 `json:"expiry"`
	TokenID uint64 `json:"token_id"`
}
