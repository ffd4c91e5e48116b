package repository

import (
	"context"

	"github.com/agendly/agenda/domain"
)

// DetailRepository covers the details service's master store. Both delete
// variants tolerate zero matching rows and report the affected count.
type DetailRepository interface {
	Create(ctx context.Context, detail *domain.Detail) (*domain.Detail, error)
	Delete(ctx context.Context, id int64) (int64, error)
	DeleteByAppointment(ctx context.Context, appointmentID int64) (int64, error)
}
