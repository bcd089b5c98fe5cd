package dto

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/terrafield/landledger/internal/domain"
)

// AttestRequest is the payload for registering a new land title
type AttestRequest struct {
	TokenID      uint64 `json:"token_id" binding:"required"`
	DocumentHash string `json:"document_hash" binding:"required"`
	Size         uint64 `json:"size" binding:"required"`
	Unit         string `json:"unit"`
	Signature    string `json:"signature" binding:"required"`
}

// AgreementTermsRequest carries lease terms as signed by both parties
type AgreementTermsRequest struct {
	Purpose  string `json:"purpose" binding:"required"`
	Size     uint64 `json:"size" binding:"required"`
	Duration uint64 `json:"duration" binding:"required"`
	Cost     uint64 `json:"cost"`
	TokenID  uint64 `json:"token_id" binding:"required"`
}

// ToDomain converts the request terms to domain terms
func (r AgreementTermsRequest) ToDomain() domain.AgreementTerms {
	return domain.AgreementTerms{
		Purpose:  r.Purpose,
		Size:     domain.Quantity(r.Size),
		Duration: r.Duration,
		Cost:     r.Cost,
		TokenID:  r.TokenID,
	}
}

// SealRequest is the payload for sealing a lease agreement
type SealRequest struct {
	Terms           AgreementTermsRequest `json:"terms" binding:"required"`
	OwnerSignature  string                `json:"owner_signature" binding:"required"`
	TenantSignature string                `json:"tenant_signature" binding:"required"`
}

// ReclaimRequest is the payload for reclaiming an elapsed agreement
type ReclaimRequest struct {
	Terms           AgreementTermsRequest `json:"terms" binding:"required"`
	TenantSignature string                `json:"tenant_signature" binding:"required"`
}

// ClaimCheckRequest is the payload for a usage-rights validity check
type ClaimCheckRequest struct {
	Terms     AgreementTermsRequest `json:"terms" binding:"required"`
	Signature string                `json:"signature" binding:"required"`
}

// OwnershipClaimRequest is the payload for proving title ownership
type OwnershipClaimRequest struct {
	Signature string `json:"signature" binding:"required"`
}

// DecodeSignature decodes a hex signature with optional 0x prefix
func DecodeSignature(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	sig, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, errors.New("signature is not valid hex")
	}
	return sig, nil
}
