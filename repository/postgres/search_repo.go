package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendly/agenda/domain"
	"github.com/agendly/agenda/repository"
)

type searchRepository struct {
	pool *pgxpool.Pool
}

// NewSearchRepository returns a Postgres-backed implementation of SearchRepository.
func NewSearchRepository(pool *pgxpool.Pool) repository.SearchRepository {
	return &searchRepository{pool: pool}
}

func (r *searchRepository) UpsertAppointment(ctx context.Context, appointment *domain.Appointment) error {
	if appointment == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO appointments (id, description, date, time)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET description = EXCLUDED.description,
		date = EXCLUDED.date,
		time = EXCLUDED.time
	`

	_, err := r.pool.Exec(ctx, query,
		appointment.ID,
		appointment.Description,
		appointment.Date,
		appointment.Time,
	)
	return err
}

func (r *searchRepository) DeleteAppointment(ctx context.Context, id int64) (int64, error) {
	const query = `DELETE FROM appointments WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *searchRepository) InsertDetail(ctx context.Context, detail *domain.Detail) (*domain.Detail, error) {
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

func (r *searchRepository) DeleteDetail(ctx context.Context, id int64) (int64, error) {
	const query = `DELETE FROM details WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *searchRepository) DeleteDetailsByAppointment(ctx context.Context, appointmentID int64) (int64, error) {
	const query = `DELETE FROM details WHERE appointment_id = $1`
	tag, err := r.pool.Exec(ctx, query, appointmentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *searchRepository) GetAppointment(ctx context.Context, id int64) (*domain.Appointment, []domain.Detail, error) {
	const appointmentQuery = `
	SELECT id, description, date, time
	FROM appointments
	WHERE id = $1
	`

	var appointment domain.Appointment
	if err := r.pool.QueryRow(ctx, appointmentQuery, id).Scan(
		&appointment.ID,
		&appointment.Description,
		&appointment.Date,
		&appointment.Time,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrAppointmentNotFound
		}
		return nil, nil, err
	}

	const detailQuery = `
	SELECT id, appointment_id, text, generated
	FROM details
	WHERE appointment_id = $1
	ORDER BY id
	`

	rows, err := r.pool.Query(ctx, detailQuery, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var details []domain.Detail
	for rows.Next() {
		var detail domain.Detail
		if err := rows.Scan(&detail.ID, &detail.AppointmentID, &detail.Text, &detail.Generated); err != nil {
			return nil, nil, err
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return &appointment, details, nil
}
