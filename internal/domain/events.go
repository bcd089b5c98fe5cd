package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType represents the type of protocol event
type EventType string

const (
	EventTypeAttestation EventType = "attestation"
	EventTypeSealed      EventType = "sealed"
	EventTypeReclaimed   EventType = "reclaimed"
	EventTypeReclaimable EventType = "reclaimable"
)

// AttestationPayload carries the full land record of a new attestation
type AttestationPayload struct {
	TokenID      uint64         `json:"token_id"`
	DocumentHash string         `json:"document_hash"`
	Size         Quantity       `json:"size"`
	Unit         string         `json:"unit,omitempty"`
	Attestor     common.Address `json:"attestor"`
}

// SealedPayload carries the full terms of a sealed agreement
type SealedPayload struct {
	Purpose  string         `json:"purpose"`
	Size     Quantity       `json:"size"`
	Duration uint64         `json:"duration"`
	Cost     uint64         `json:"cost"`
	TokenID  uint64         `json:"token_id"`
	Owner    common.Address `json:"owner"`
	Tenant   common.Address `json:"tenant"`
}

// ReclaimedPayload reports a closed agreement and the replenished pool
type ReclaimedPayload struct {
	TokenID   uint64         `json:"token_id"`
	Tenant    common.Address `json:"tenant"`
	Remaining Quantity       `json:"remaining"`
	Fulfilled bool           `json:"fulfilled"`
}

// ReclaimablePayload is a sweeper notice that an agreement's term has elapsed
type ReclaimablePayload struct {
	TokenID uint64         `json:"token_id"`
	Owner   common.Address `json:"owner"`
	Tenant  common.Address `json:"tenant"`
	Expiry  uint64         `json:"expiry"`
}

// ProtocolEvent is the normalized event envelope published to NATS.
// EventID is a ULID, unique and time-sortable.
type ProtocolEvent struct {
	EventID   string    `json:"event_id"`
	Type      EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`

	Attestation *AttestationPayload `json:"attestation,omitempty"`
	Sealed      *SealedPayload      `json:"sealed,omitempty"`
	Reclaimed   *ReclaimedPayload   `json:"reclaimed,omitempty"`
	Reclaimable *ReclaimablePayload `json:"reclaimable,omitempty"`
}

// Valid checks that the envelope carries the payload its type declares
func (e *ProtocolEvent) Valid() bool {
	if e.EventID == "" {
		return false
	}
	switch e.Type {
	case EventTypeAttestation:
		return e.Attestation != nil
	case EventTypeSealed:
		return e.Sealed != nil
	case EventTypeReclaimed:
		return e.Reclaimed != nil
	case EventTypeReclaimable:
		return e.Reclaimable != nil
	default:
		return false
	}
}
