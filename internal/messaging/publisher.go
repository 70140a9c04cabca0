package messaging

import (
	"context"

	"github.com/feral-file/ff-claims-checker/internal/domain"
)

// Publisher defines the interface for announcing claim changes to the message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishClaimsChanged publishes the change summary of a contract whose claims were rewritten
	PublishClaimsChanged(ctx context.Context, event *domain.ClaimsChangedEvent) error
	// Close closes the connection
	Close()
}
