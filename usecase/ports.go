package usecase

import (
	"context"

	"github.com/agendly/agenda/domain"
)

// EventBus abstracts the broker publisher so use cases stay transport-agnostic.
// Implemented by broker.Bus.
type EventBus interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Suggester abstracts the text-generation collaborator: appointment
// description in, one short tip out, or a failure. Implemented by openai.Client.
type Suggester interface {
	Suggest(ctx context.Context, description string) (string, error)
}
