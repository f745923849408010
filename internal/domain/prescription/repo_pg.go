package prescription

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

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const prescriptionCols = `id, doctor_first_name, doctor_last_name, name, dosage, status, created_at, updated_at`

func (r *prescriptionRepoPG) scan(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var dosage int16
	var status string
	err := row.Scan(&p.ID, &p.DoctorFirstName, &p.DoctorLastName, &p.Name, &dosage, &status,
		&p.CreatedAt, &p.UpdatedAt)
	p.Dosage = int(dosage)
	p.Status = Status(status)
	return &p, err
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription (id, doctor_first_name, doctor_last_name, name, dosage, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		p.ID, p.DoctorFirstName, p.DoctorLastName, p.Name, int16(p.Dosage), string(p.Status),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return r.get(ctx, id, "")
}

func (r *prescriptionRepoPG) get(ctx context.Context, id uuid.UUID, lock string) (*Prescription, error) {
	p, err := r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`+lock, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("prescription", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get prescription %s: %w", id, err)
	}
	return p, nil
}

func (r *prescriptionRepoPG) ListByDoctor(ctx context.Context, firstName, lastName string) ([]*Prescription, error) {
	return r.list(ctx, `WHERE doctor_first_name = $1 AND doctor_last_name = $2`, firstName, lastName)
}

func (r *prescriptionRepoPG) ListByStatus(ctx context.Context, status Status) ([]*Prescription, error) {
	return r.list(ctx, `WHERE status = $1`, string(status))
}

func (r *prescriptionRepoPG) list(ctx context.Context, where string, args ...interface{}) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+prescriptionCols+` FROM prescription `+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	defer rows.Close()

	items := []*Prescription{}
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prescription: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *prescriptionRepoPG) Update(ctx context.Context, id uuid.UUID, fn func(*Prescription) error) (*Prescription, error) {
	var out *Prescription
	err := db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		p, err := r.get(ctx, id, " FOR UPDATE")
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		err = r.conn(ctx).QueryRow(ctx, `
			UPDATE prescription SET name = $2, dosage = $3, status = $4, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`,
			p.ID, p.Name, int16(p.Dosage), string(p.Status)).Scan(&p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update prescription %s: %w", id, err)
		}
		out = p
		return nil
	})
	return out, err
}

func (r *prescriptionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescription WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete prescription %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("prescription", id.String())
	}
	return nil
}
