package detail

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/agendly/agenda/domain"
	"github.com/agendly/agenda/repository"
	"github.com/agendly/agenda/usecase"
)

// UseCase covers the details service: manual detail writes over HTTP and
// the reactive consumption of appointment lifecycle events, including the
// text-generation side effect.
type UseCase struct {
	details repository.DetailRepository
	bus     usecase.EventBus
	ai      usecase.Suggester
	logger  *zap.Logger
}

func New(details repository.DetailRepository, bus usecase.EventBus, ai usecase.Suggester, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		details: details,
		bus:     bus,
		ai:      ai,
		logger:  logger,
	}
}

// CreateManual persists a manually entered detail and announces it.
func (uc *UseCase) CreateManual(ctx context.Context, appointmentID int64, text string) (*domain.Detail, error) {
	detail := &domain.Detail{
		AppointmentID: appointmentID,
		Text:          text,
		Generated:     false,
	}
	created, err := uc.details.Create(ctx, detail)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "create detail", err)
	}

	uc.publish(ctx, domain.DetailCreated{
		AppointmentID: created.AppointmentID,
		Text:          created.Text,
		Generated:     false,
	})
	return created, nil
}

// Delete removes a detail and announces the deletion.
func (uc *UseCase) Delete(ctx context.Context, id int64) error {
	rows, err := uc.details.Delete(ctx, id)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "delete detail", err)
	}
	if rows == 0 {
		return domain.ErrDetailNotFound
	}

	uc.publish(ctx, domain.DetailDeleted{ID: id})
	return nil
}

// Apply reacts to one event body from the broadcast subscription. Decode
// failures and unknown tags are logged and swallowed so the consume loop
// acknowledges and moves on. Detail events are the service's own echoes and
// are ignored.
func (uc *UseCase) Apply(ctx context.Context, body []byte) error {
	event, err := domain.DecodeEvent(body)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEventType) || errors.Is(err, domain.ErrMalformedEvent) {
			uc.logger.Warn("ignoring undecodable event", zap.Error(err))
			return nil
		}
		return err
	}

	switch e := event.(type) {
	case domain.AppointmentCreated:
		return uc.generateDetail(ctx, e)
	case domain.AppointmentDeleted:
		rows, err := uc.details.DeleteByAppointment(ctx, e.ID)
		if err != nil {
			return err
		}
		uc.logger.Info("cascaded detail deletion",
			zap.Int64("appointment_id", e.ID),
			zap.Int64("rows", rows),
		)
		return nil
	case domain.DetailCreated, domain.DetailDeleted:
		uc.logger.Debug("ignoring own event type", zap.String("event_type", string(event.EventType())))
		return nil
	default:
		uc.logger.Debug("ignoring event type", zap.String("event_type", string(event.EventType())))
		return nil
	}
}

// generateDetail performs the react-and-emit side effect: ask the
// text-generation service for a tip, persist it as a generated detail, then
// announce it. An AI failure is an accepted silent degradation: nothing is
// persisted, nothing is published, and no error propagates so the event is
// still acknowledged. The consume loop blocks while the call is outstanding.
func (uc *UseCase) generateDetail(ctx context.Context, e domain.AppointmentCreated) error {
	text, err := uc.ai.Suggest(ctx, e.Description)
	if err != nil {
		uc.logger.Warn("text generation failed, skipping auto detail",
			zap.Int64("appointment_id", e.ID),
			zap.Error(err),
		)
		return nil
	}

	detail := &domain.Detail{
		AppointmentID: e.ID,
		Text:          text,
		Generated:     true,
	}
	if _, err := uc.details.Create(ctx, detail); err != nil {
		return err
	}

	// Persist-then-publish: the publish may still fail after a successful
	// insert, leaving downstream replicas unaware of this detail. Accepted
	// at-least-once gap; there is no compensating mechanism.
	uc.publish(ctx, domain.DetailCreated{
		AppointmentID: e.ID,
		Text:          text,
		Generated:     true,
	})

	uc.logger.Info("generated detail created",
		zap.Int64("appointment_id", e.ID),
		zap.Int64("detail_id", detail.ID),
	)
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
