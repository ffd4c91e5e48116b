package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendly/agenda/domain"
	"github.com/agendly/agenda/repository"
)

type appointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository returns a Postgres-backed implementation of AppointmentRepository.
func NewAppointmentRepository(pool *pgxpool.Pool) repository.AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *domain.Appointment) (*domain.Appointment, error) {
	if appointment == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO appointments (description, date, time)
	VALUES ($1, $2, $3)
	RETURNING id
	`

	if err := r.pool.QueryRow(ctx, query,
		appointment.Description,
		appointment.Date,
		appointment.Time,
	).Scan(&appointment.ID); err != nil {
		return nil, err
	}

	return appointment, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id int64) (int64, error) {
	const query = `DELETE FROM appointments WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
