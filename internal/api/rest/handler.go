package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/terrafield/landledger/internal/api/middleware"
	"github.com/terrafield/landledger/internal/api/rest/dto"
	"github.com/terrafield/landledger/internal/domain"
	"github.com/terrafield/landledger/internal/ledger"
	"github.com/terrafield/landledger/internal/registry"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// AttestProperty registers a new land title and mints its ownership token
	// POST /api/v1/titles
	AttestProperty(c *gin.Context)

	// ClaimOwnership verifies the caller is the attestor of a title
	// POST /api/v1/titles/:token_id/ownership-claims
	ClaimOwnership(c *gin.Context)

	// GetTitle retrieves an attested land title
	// GET /api/v1/titles/:token_id
	GetTitle(c *gin.Context)

	// GetRights reports the remaining and outstanding leased quantity of a
	// property
	// GET /api/v1/titles/:token_id/rights
	GetRights(c *gin.Context)

	// GetPropertyAgreementCount reports how many agreements a property has
	// archived
	// GET /api/v1/titles/:token_id/agreements
	GetPropertyAgreementCount(c *gin.Context)

	// GetPropertyAgreement retrieves an archived agreement of a property by
	// its 1-based index
	// GET /api/v1/titles/:token_id/agreements/:idx
	GetPropertyAgreement(c *gin.Context)

	// GetUserAgreementCount reports how many agreements a tenant has archived
	// GET /api/v1/accounts/:address/agreements
	GetUserAgreementCount(c *gin.Context)

	// GetUserAgreement retrieves an archived agreement of a tenant by its
	// 1-based index
	// GET /api/v1/accounts/:address/agreements/:idx
	GetUserAgreement(c *gin.Context)

	// GetAccountPropertyCount reports how many titles an account attested
	// GET /api/v1/accounts/:address/properties
	GetAccountPropertyCount(c *gin.Context)

	// GetAccountProperty retrieves a title tokenID of an account by its
	// 0-based index
	// GET /api/v1/accounts/:address/properties/:idx
	GetAccountProperty(c *gin.Context)

	// SealAgreement seals a dual-signed lease agreement
	// POST /api/v1/agreements
	SealAgreement(c *gin.Context)

	// ReclaimRights closes an elapsed agreement and replenishes the pool
	// POST /api/v1/agreements/reclaim
	ReclaimRights(c *gin.Context)

	// CheckClaim verifies a submitted usage-rights claim (open, read-only)
	// POST /api/v1/agreements/claims
	CheckClaim(c *gin.Context)

	// GetStats reports aggregate registry counters (requires authentication)
	// GET /api/v1/stats
	GetStats(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	registry registry.TitleRegistry
	ledger   ledger.UsageLedger
}

// NewHandler creates a new REST API handler over the registry and ledger
func NewHandler(reg registry.TitleRegistry, led ledger.UsageLedger) Handler {
	return &handler{
		registry: reg,
		ledger:   led,
	}
}

// caller extracts the authenticated caller address, aborting when missing
func (h *handler) caller(c *gin.Context) (common.Address, bool) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		respondBadRequest(c, "Missing authenticated caller")
		return common.Address{}, false
	}
	return caller, true
}

// pathUint64 parses a uint64 path parameter
func pathUint64(c *gin.Context, name string) (uint64, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid "+name)
		return 0, false
	}
	return value, true
}

// pathAddress parses a hex address path parameter
func pathAddress(c *gin.Context, name string) (common.Address, bool) {
	raw := c.Param(name)
	if !common.IsHexAddress(raw) {
		respondBadRequest(c, "Invalid "+name)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// AttestProperty registers a new land title and mints its ownership token
func (h *handler) AttestProperty(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req dto.AttestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	sig, err := dto.DecodeSignature(req.Signature)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	record, err := h.registry.AttestProperty(
		c.Request.Context(),
		caller,
		req.TokenID,
		req.DocumentHash,
		domain.Quantity(req.Size),
		req.Unit,
		sig,
	)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.MapTitleToDTO(record))
}

// ClaimOwnership verifies the caller is the attestor of a title
func (h *handler) ClaimOwnership(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	tokenID, ok := pathUint64(c, "token_id")
	if !ok {
		return
	}

	var req dto.OwnershipClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	sig, err := dto.DecodeSignature(req.Signature)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	owned, err := h.registry.ClaimOwnership(c.Request.Context(), caller, tokenID, sig)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OwnershipClaimResponse{
		TokenID: tokenID,
		Owned:   owned,
	})
}

// GetTitle retrieves an attested land title
func (h *handler) GetTitle(c *gin.Context) {
	tokenID, ok := pathUint64(c, "token_id")
	if !ok {
		return
	}

	record, err := h.registry.Title(c.Request.Context(), tokenID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapTitleToDTO(record))
}

// GetRights reports the remaining and outstanding leased quantity of a property
func (h *handler) GetRights(c *gin.Context) {
	tokenID, ok := pathUint64(c, "token_id")
	if !ok {
		return
	}

	remaining, err := h.ledger.GetRights(c.Request.Context(), tokenID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	transferred, err := h.ledger.Transferred(c.Request.Context(), tokenID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RightsResponse{
		TokenID:     tokenID,
		Remaining:   uint64(remaining),
		Transferred: uint64(transferred),
	})
}

// GetPropertyAgreementCount reports how many agreements a property has archived
func (h *handler) GetPropertyAgreementCount(c *gin.Context) {
	tokenID, ok := pathUint64(c, "token_id")
	if !ok {
		return
	}

	count, err := h.ledger.PropertyAgreementCount(c.Request.Context(), tokenID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AgreementCountResponse{Count: count})
}

// GetPropertyAgreement retrieves an archived agreement of a property
func (h *handler) GetPropertyAgreement(c *gin.Context) {
	tokenID, ok := pathUint64(c, "token_id")
	if !ok {
		return
	}

	idx, ok := pathUint64(c, "idx")
	if !ok {
		return
	}

	agreement, err := h.ledger.PropertyAgreementAt(c.Request.Context(), tokenID, idx)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapAgreementToDTO(agreement))
}

// GetUserAgreementCount reports how many agreements a tenant has archived
func (h *handler) GetUserAgreementCount(c *gin.Context) {
	tenant, ok := pathAddress(c, "address")
	if !ok {
		return
	}

	count, err := h.ledger.UserAgreementCount(c.Request.Context(), tenant)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AgreementCountResponse{Count: count})
}

// GetUserAgreement retrieves an archived agreement of a tenant
func (h *handler) GetUserAgreement(c *gin.Context) {
	tenant, ok := pathAddress(c, "address")
	if !ok {
		return
	}

	idx, ok := pathUint64(c, "idx")
	if !ok {
		return
	}

	agreement, err := h.ledger.UserAgreementAt(c.Request.Context(), tenant, idx)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapAgreementToDTO(agreement))
}

// GetAccountPropertyCount reports how many titles an account attested
func (h *handler) GetAccountPropertyCount(c *gin.Context) {
	owner, ok := pathAddress(c, "address")
	if !ok {
		return
	}

	count, err := h.registry.LandCount(c.Request.Context(), owner)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AgreementCountResponse{Count: count})
}

// GetAccountProperty retrieves a title tokenID of an account by index
func (h *handler) GetAccountProperty(c *gin.Context) {
	owner, ok := pathAddress(c, "address")
	if !ok {
		return
	}

	idx, ok := pathUint64(c, "idx")
	if !ok {
		return
	}

	tokenID, err := h.registry.AccountProperty(c.Request.Context(), owner, idx)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AccountPropertyResponse{
		Owner:   owner.Hex(),
		Index:   idx,
		TokenID: tokenID,
	})
}

// SealAgreement seals a dual-signed lease agreement
func (h *handler) SealAgreement(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req dto.SealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	ownerSig, err := dto.DecodeSignature(req.OwnerSignature)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	tenantSig, err := dto.DecodeSignature(req.TenantSignature)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	agreement, err := h.ledger.SealAgreement(c.Request.Context(), caller, req.Terms.ToDomain(), ownerSig, tenantSig)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.MapAgreementToDTO(agreement))
}

// ReclaimRights closes an elapsed agreement and replenishes the pool
func (h *handler) ReclaimRights(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req dto.ReclaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	tenantSig, err := dto.DecodeSignature(req.TenantSignature)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	agreement, err := h.ledger.ReclaimRights(c.Request.Context(), caller, req.Terms.ToDomain(), tenantSig)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapAgreementToDTO(agreement))
}

// CheckClaim verifies a submitted usage-rights claim
func (h *handler) CheckClaim(c *gin.Context) {
	var req dto.ClaimCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	sig, err := dto.DecodeSignature(req.Signature)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	result, err := h.ledger.ClaimUsageRights(c.Request.Context(), req.Terms.ToDomain(), sig)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignatureLength) {
			respondValidationError(c, err.Error())
			return
		}
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ClaimCheckResponse{
		Valid:   result.Valid,
		Expiry:  result.Expiry,
		TokenID: result.TokenID,
	})
}

// GetStats reports aggregate registry counters
func (h *handler) GetStats(c *gin.Context) {
	total, err := h.registry.TotalLands(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RegistryStatsResponse{TotalLands: total})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
