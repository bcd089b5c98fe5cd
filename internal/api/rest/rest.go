package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/terrafield/landledger/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Title attestation (requires an authenticated caller address)
		v1.POST("/titles", middleware.Auth(authCfg), handler.AttestProperty)

		// Ownership proof against the stored attestation (requires authentication)
		v1.POST("/titles/:token_id/ownership-claims", middleware.Auth(authCfg), handler.ClaimOwnership)

		// Title endpoints (public read access)
		v1.GET("/titles/:token_id", handler.GetTitle)
		v1.GET("/titles/:token_id/rights", handler.GetRights)
		v1.GET("/titles/:token_id/agreements", handler.GetPropertyAgreementCount)
		v1.GET("/titles/:token_id/agreements/:idx", handler.GetPropertyAgreement)

		// Account endpoints (public read access)
		v1.GET("/accounts/:address/agreements", handler.GetUserAgreementCount)
		v1.GET("/accounts/:address/agreements/:idx", handler.GetUserAgreement)
		v1.GET("/accounts/:address/properties", handler.GetAccountPropertyCount)
		v1.GET("/accounts/:address/properties/:idx", handler.GetAccountProperty)

		// Agreement sealing and reclaim (requires an authenticated caller address)
		v1.POST("/agreements", middleware.Auth(authCfg), handler.SealAgreement)
		v1.POST("/agreements/reclaim", middleware.Auth(authCfg), handler.ReclaimRights)

		// Usage-rights claim check (open, pure verification)
		v1.POST("/agreements/claims", handler.CheckClaim)

		// Registry counters (requires API key or JWT authentication)
		v1.GET("/stats", middleware.APIKeyAuth(authCfg), handler.GetStats)
	}
}
