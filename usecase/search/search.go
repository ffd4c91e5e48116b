package search

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/agendly/agenda/domain"
	"github.com/agendly/agenda/repository"
)

// AppointmentView is the combined read served by the search service.
type AppointmentView struct {
	Appointment domain.Appointment `json:"appointment"`
	Details     []domain.Detail    `json:"details"`
}

// UseCase projects every domain event into the read model's local replicas
// and serves combined reads from them. Replicas are mutated only here.
type UseCase struct {
	store  repository.SearchRepository
	logger *zap.Logger
}

func New(store repository.SearchRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		store:  store,
		logger: logger,
	}
}

// Get returns an appointment joined with its details.
func (uc *UseCase) Get(ctx context.Context, id int64) (*AppointmentView, error) {
	appointment, details, err := uc.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if details == nil {
		details = []domain.Detail{}
	}
	return &AppointmentView{
		Appointment: *appointment,
		Details:     details,
	}, nil
}

// Apply projects one event body into the replicas. Every apply is
// idempotent with respect to the record it carries: upserts replace,
// deletes tolerate zero rows. Undecodable events are logged and swallowed
// so the consume loop acknowledges and moves on.
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
		if err := uc.store.UpsertAppointment(ctx, &domain.Appointment{
			ID:          e.ID,
			Description: e.Description,
			Date:        e.Date,
			Time:        e.Time,
		}); err != nil {
			return err
		}
		uc.logger.Info("appointment replicated", zap.Int64("appointment_id", e.ID))
		return nil

	case domain.AppointmentDeleted:
		// Two independent deletes with no shared outcome check: a failure
		// between them can leave orphaned detail rows.
		detailRows, err := uc.store.DeleteDetailsByAppointment(ctx, e.ID)
		if err != nil {
			return err
		}
		appointmentRows, err := uc.store.DeleteAppointment(ctx, e.ID)
		if err != nil {
			return err
		}
		uc.logger.Info("appointment removed from replica",
			zap.Int64("appointment_id", e.ID),
			zap.Int64("detail_rows", detailRows),
			zap.Int64("appointment_rows", appointmentRows),
		)
		return nil

	case domain.DetailCreated:
		detail, err := uc.store.InsertDetail(ctx, &domain.Detail{
			AppointmentID: e.AppointmentID,
			Text:          e.Text,
			Generated:     e.Generated,
		})
		if err != nil {
			return err
		}
		uc.logger.Info("detail replicated",
			zap.Int64("appointment_id", e.AppointmentID),
			zap.Int64("detail_id", detail.ID),
		)
		return nil

	case domain.DetailDeleted:
		rows, err := uc.store.DeleteDetail(ctx, e.ID)
		if err != nil {
			return err
		}
		uc.logger.Info("detail removed from replica",
			zap.Int64("detail_id", e.ID),
			zap.Int64("rows", rows),
		)
		return nil

	default:
		uc.logger.Debug("ignoring event type", zap.String("event_type", string(event.EventType())))
		return nil
	}
}
