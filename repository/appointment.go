package repository

import (
	"context"

	"github.com/agendly/agenda/domain"
)

// AppointmentRepository covers the appointments service's master store.
// Delete reports the number of removed rows instead of failing on zero so
// callers can decide whether a miss matters: HTTP handlers treat it as
// not-found, event appliers treat it as already done.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *domain.Appointment) (*domain.Appointment, error)
	Delete(ctx context.Context, id int64) (int64, error)
}
