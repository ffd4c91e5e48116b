package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendly/agenda/domain"
	"github.com/agendly/agenda/repository"
)

type detailRepository struct {
	pool *pgxpool.Pool
}

// NewDetailRepository returns a Postgres-backed implementation of DetailRepository.
func NewDetailRepository(pool *pgxpool.Pool) repository.DetailRepository {
	return &detailRepository{pool: pool}
}

func (r *detailRepository) Create(ctx context.Context, detail *domain.Detail) (*domain.Detail, error) {
	if detail == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO details (appointment_id, text, generated)
	VALUES ($1, $2, $3)
	RETURNING id
	`

	if err := r.pool.QueryRow(ctx, query,
		detail.AppointmentID,
		detail.Text,
		detail.Generated,
	).Scan(&detail.ID); err != nil {
		return nil, err
	}

	return detail, nil
}

func (r *detailRepository) Delete(ctx context.Context, id int64) (int64, error) {
	const query = `DELETE FROM details WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *detailRepository) DeleteByAppointment(ctx context.Context, appointmentID int64) (int64, error) {
	const query = `DELETE FROM details WHERE appointment_id = $1`
	tag, err := r.pool.Exec(ctx, query, appointmentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
