package ports

import (
	"context"

	"github.com/aretw0/exposer/pkg/domain"
)

// ChangePublisher receives Field changes. Publish is called on the goroutine
// that set the Field and must not block for long.
type ChangePublisher interface {
	Publish(ctx context.Context, change domain.Change) error
}

// ChangeSubscriber delivers the changes of a single model.
// The returned cancel function releases the subscription and closes the channel.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, model string) (<-chan domain.Change, func(), error)
}

// ChangeBroker is both ends of a change channel.
type ChangeBroker interface {
	ChangePublisher
	ChangeSubscriber
}
