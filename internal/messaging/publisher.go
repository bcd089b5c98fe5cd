package messaging

import (
	"context"

	"github.com/terrafield/landledger/internal/domain"
)

// Publisher defines the interface for publishing protocol events to the
// message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishEvent publishes a protocol event
	PublishEvent(ctx context.Context, event *domain.ProtocolEvent) error
	// Close closes the connection
	Close()
}
