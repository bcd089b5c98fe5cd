package domain

import "errors"

// Malformed input, rejected before any state read.
var (
	// ErrInvalidSignatureLength is returned when a signature is not exactly 65 bytes
	ErrInvalidSignatureLength = errors.New("signature must be 65 bytes")

	// ErrZeroAddress is returned when the zero address appears where disallowed
	ErrZeroAddress = errors.New("zero address not allowed")
)

// Authentication failures: a recovered signer did not match the expected party.
var (
	// ErrSignerMismatch is returned when the attestation signer is not the caller
	ErrSignerMismatch = errors.New("attestation signer does not match caller")

	// ErrOwnerAuthentication is returned when the owner signature does not recover the token owner
	ErrOwnerAuthentication = errors.New("owner signature authentication failed")

	// ErrTenantAuthentication is returned when the tenant signature does not recover the caller
	ErrTenantAuthentication = errors.New("tenant signature authentication failed")
)

// Invariant violations.
var (
	// ErrDuplicateDocument is returned when a document hash has already been attested
	ErrDuplicateDocument = errors.New("document already attested")

	// ErrTokenAlreadyMinted is returned when the ownership token for a tokenID already exists
	ErrTokenAlreadyMinted = errors.New("token already minted")

	// ErrNonexistentToken is returned when an ownership token does not exist
	ErrNonexistentToken = errors.New("token does not exist")

	// ErrNonexistentTitle is returned when a tokenID has no attested land record
	ErrNonexistentTitle = errors.New("title does not exist")

	// ErrSizeExceedsTitle is returned when requested size exceeds the property's declared size
	ErrSizeExceedsTitle = errors.New("requested size exceeds title size")

	// ErrRunningAgreement is returned when the tenant's latest agreement is still running
	ErrRunningAgreement = errors.New("latest running agreement not settled")

	// ErrInsufficientRights is returned when the rights pool cannot cover the requested size
	ErrInsufficientRights = errors.New("insufficient rights remaining")

	// ErrNoActiveAgreement is returned when reclaim finds no active agreement for the tenant
	ErrNoActiveAgreement = errors.New("no active agreement")

	// ErrTenantMismatch is returned when the recovered tenant differs from the stored agreement
	ErrTenantMismatch = errors.New("tenant does not match agreement")

	// ErrOwnerMismatch is returned when the resolved owner differs from the stored agreement
	ErrOwnerMismatch = errors.New("owner does not match agreement")

	// ErrClaimerMismatch is returned when the reclaiming caller is not the agreement owner
	ErrClaimerMismatch = errors.New("caller is not the agreement owner")

	// ErrAgreementNotElapsed is returned when reclaim is attempted before the term expires
	ErrAgreementNotElapsed = errors.New("agreement term has not elapsed")

	// ErrIndexOutOfRange is returned when a history or property index exceeds the recorded count
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Collaborator capability errors.
var (
	// ErrMintUnsupported is returned by read-only token collaborators
	ErrMintUnsupported = errors.New("mint not supported by this collaborator")
)
