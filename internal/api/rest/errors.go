package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/terrafield/landledger/internal/api/shared/errors"
	"github.com/terrafield/landledger/internal/domain"
	"github.com/terrafield/landledger/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(message))
}

// respondInternalError responds with an internal server error
func respondInternalError(c *gin.Context, err error, message string, details ...string) {
	logger.ErrorCtx(c.Request.Context(), err,
		zap.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message, details...))
}

// respondDomainError maps protocol sentinel errors to HTTP responses.
// Unknown errors fall through as internal errors.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSignatureLength),
		errors.Is(err, domain.ErrZeroAddress):
		respondValidationError(c, err.Error())

	case errors.Is(err, domain.ErrNonexistentTitle),
		errors.Is(err, domain.ErrNonexistentToken),
		errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, domain.ErrNoActiveAgreement):
		respondNotFound(c, err.Error())

	case errors.Is(err, domain.ErrSignerMismatch),
		errors.Is(err, domain.ErrOwnerAuthentication),
		errors.Is(err, domain.ErrTenantAuthentication),
		errors.Is(err, domain.ErrTenantMismatch),
		errors.Is(err, domain.ErrOwnerMismatch),
		errors.Is(err, domain.ErrClaimerMismatch):
		c.JSON(http.StatusForbidden, apierrors.NewForbiddenError(err.Error()))

	case errors.Is(err, domain.ErrDuplicateDocument),
		errors.Is(err, domain.ErrTokenAlreadyMinted),
		errors.Is(err, domain.ErrRunningAgreement),
		errors.Is(err, domain.ErrAgreementNotElapsed):
		c.JSON(http.StatusConflict, apierrors.NewConflictError(err.Error()))

	case errors.Is(err, domain.ErrSizeExceedsTitle),
		errors.Is(err, domain.ErrInsufficientRights):
		respondValidationError(c, err.Error())

	default:
		respondInternalError(c, err, "Internal server error")
	}
}
