package appointment

import (
	"context"

	"go.uber.org/zap"

	"github.com/agendly/agenda/domain"
	"github.com/agendly/agenda/repository"
	"github.com/agendly/agenda/usecase"
)

// UseCase covers the appointments service: local writes followed by event
// publication. A failed write never publishes; a failed publish after a
// successful write is logged and dropped, never surfaced to the caller.
type UseCase struct {
	appointments repository.AppointmentRepository
	bus          usecase.EventBus
	logger       *zap.Logger
}

func New(appointments repository.AppointmentRepository, bus usecase.EventBus, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		appointments: appointments,
		bus:          bus,
		logger:       logger,
	}
}

// Create persists a new appointment and announces it.
func (uc *UseCase) Create(ctx context.Context, appointment *domain.Appointment) (*domain.Appointment, error) {
	created, err := uc.appointments.Create(ctx, appointment)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "create appointment", err)
	}

	uc.publish(ctx, domain.AppointmentCreated{
		ID:          created.ID,
		Description: created.Description,
		Date:        created.Date,
		Time:        created.Time,
	})
	return created, nil
}

// Delete removes an appointment and announces the deletion. Consumers
// cascade it to details referencing the id.
func (uc *UseCase) Delete(ctx context.Context, id int64) error {
	rows, err := uc.appointments.Delete(ctx, id)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "delete appointment", err)
	}
	if rows == 0 {
		return domain.ErrAppointmentNotFound
	}

	uc.publish(ctx, domain.AppointmentDeleted{ID: id})
	return nil
}

func (uc *UseCase) publish(ctx context.Context, event domain.Event) {
	if err := uc.bus.Publish(ctx, event); err != nil {
		uc.logger.Error("event publish failed",
			zap.String("event_type", string(event.EventType())),
			zap.Error(err),
		)
	}
}
