package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/db"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const appointmentCols = `id, doctor_first_name, doctor_last_name, patient_first_name, patient_last_name,
	appointment_date::text, to_char(appointment_time, 'HH24:MI'), created_at, updated_at`

func (r *appointmentRepoPG) scan(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorFirstName, &a.DoctorLastName, &a.PatientFirstName, &a.PatientLastName,
		&a.Date, &a.Time, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, doctor_first_name, doctor_last_name, patient_first_name, patient_last_name,
			appointment_date, appointment_time)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7::time)
		RETURNING created_at, updated_at`,
		a.ID, a.DoctorFirstName, a.DoctorLastName, a.PatientFirstName, a.PatientLastName,
		a.Date, a.Time).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.get(ctx, id, "")
}

func (r *appointmentRepoPG) get(ctx context.Context, id uuid.UUID, lock string) (*Appointment, error) {
	a, err := r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointment WHERE id = $1`+lock, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	return a, nil
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, firstName, lastName string) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+appointmentCols+` FROM appointment
		WHERE doctor_first_name = $1 AND doctor_last_name = $2
		ORDER BY appointment_date, appointment_time`, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	items := []*Appointment{}
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) Update(ctx context.Context, id uuid.UUID, fn func(*Appointment) error) (*Appointment, error) {
	var out *Appointment
	err := db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		a, err := r.get(ctx, id, " FOR UPDATE")
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		err = r.conn(ctx).QueryRow(ctx, `
			UPDATE appointment SET patient_first_name = $2, patient_last_name = $3,
				appointment_date = $4::date, appointment_time = $5::time, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`,
			a.ID, a.PatientFirstName, a.PatientLastName, a.Date, a.Time).Scan(&a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update appointment %s: %w", id, err)
		}
		out = a
		return nil
	})
	return out, err
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment", id.String())
	}
	return nil
}
