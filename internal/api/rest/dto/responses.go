package dto

import (
	"github.com/terrafield/landledger/internal/domain"
)

// TitleResponse represents an attested land title
type TitleResponse struct {
	TokenID      uint64 `json:"token_id"`
	DocumentHash string `json:"document_hash"`
	Size         uint64 `json:"size"`
	Attestor     string `json:"attestor"`
}

// AgreementResponse represents a sealed or archived lease agreement
type AgreementResponse struct {
	Purpose   string `json:"purpose"`
	Size      uint64 `json:"size"`
	Duration  uint64 `json:"duration"`
	Cost      uint64 `json:"cost"`
	TokenID   uint64 `json:"token_id"`
	Owner     string `json:"owner"`
	Tenant    string `json:"tenant"`
	Fulfilled bool   `json:"fulfilled"`
}

// RightsResponse reports the rights-pool state of a property
type RightsResponse struct {
	TokenID     uint64 `json:"token_id"`
	Remaining   uint64 `json:"remaining"`
	Transferred uint64 `json:"transferred"`
}

// OwnershipClaimResponse reports the outcome of an ownership proof
type OwnershipClaimResponse struct {
	TokenID uint64 `json:"token_id"`
	Owned   bool   `json:"owned"`
}

// ClaimCheckResponse reports the outcome of a usage-rights check
type ClaimCheckResponse struct {
	Valid   bool   `json:"valid"`
	Expiry  uint64 `json:"expiry"`
	TokenID uint64 `json:"token_id"`
}

// AgreementCountResponse reports an archived-agreement count
type AgreementCountResponse struct {
	Count uint64 `json:"count"`
}

// AccountPropertyResponse reports one attested property of an account
type AccountPropertyResponse struct {
	Owner   string `json:"owner"`
	Index   uint64 `json:"index"`
	TokenID uint64 `json:"token_id"`
}

// RegistryStatsResponse reports aggregate registry counters
type RegistryStatsResponse struct {
	TotalLands uint64 `json:"total_lands"`
}

// MapTitleToDTO maps a domain.LandRecord to TitleResponse
func MapTitleToDTO(record *domain.LandRecord) *TitleResponse {
	return &TitleResponse{
		TokenID:      record.TokenID,
		DocumentHash: record.DocumentHash,
		Size:         uint64(record.Size),
		Attestor:     record.Attestor.Hex(),
	}
}

// MapAgreementToDTO maps a domain.Agreement to AgreementResponse
func MapAgreementToDTO(agreement *domain.Agreement) *AgreementResponse {
	return &AgreementResponse{
		Purpose:   agreement.Purpose,
		Size:      uint64(agreement.Size),
		Duration:  agreement.Duration,
		Cost:      agreement.Cost,
		TokenID:   agreement.TokenID,
		Owner:     agreement.Owner.Hex(),
		Tenant:    agreement.Tenant.Hex(),
		Fulfilled: agreement.Fulfilled,
	}
}
