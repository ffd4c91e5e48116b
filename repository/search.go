package repository

import (
	"context"

	"github.com/agendly/agenda/domain"
)

// SearchRepository covers the read model's local replicas of both record
// kinds. It is mutated only by event application, never by direct writes.
//
// UpsertAppointment must be idempotent per id so redelivered creation events
// apply cleanly. InsertDetail assigns a local detail id: creation events
// carry no id from the owning store. Deletes tolerate zero matching rows.
type SearchRepository interface {
	UpsertAppointment(ctx context.Context, appointment *domain.Appointment) error
	DeleteAppointment(ctx context.Context, id int64) (int64, error)
	InsertDetail(ctx context.Context, detail *domain.Detail) (*domain.Detail, error)
	DeleteDetail(ctx context.Context, id int64) (int64, error)
	DeleteDetailsByAppointment(ctx context.Context, appointmentID int64) (int64, error)
	GetAppointment(ctx context.Context, id int64) (*domain.Appointment, []domain.Detail, error)
}
