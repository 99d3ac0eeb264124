package suppliers

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists suppliers.
type Repository interface {
	List(ctx context.Context, ownerID int64) ([]Supplier, error)
	Get(ctx context.Context, ownerID, id int64) (Supplier, error)
	Create(ctx context.Context, ownerID int64, input NewSupplier) (Supplier, error)
	Update(ctx context.Context, ownerID, id int64, fields UpdateFields) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed supplier repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, ownerID int64) ([]Supplier, error) {
	const query = `SELECT id, owner_id, name, terms_label, tax_id, created_at, updated_at
		FROM suppliers WHERE owner_id = $1 ORDER BY name`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.TermsLabel, &s.TaxID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, ownerID, id int64) (Supplier, error) {
	const query = `SELECT id, owner_id, name, terms_label, tax_id, created_at, updated_at
		FROM suppliers WHERE owner_id = $1 AND id = $2`
	var s Supplier
	err := r.db.QueryRow(ctx, query, ownerID, id).Scan(&s.ID, &s.OwnerID, &s.Name, &s.TermsLabel, &s.TaxID, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, ownerID int64, input NewSupplier) (Supplier, error) {
	const query = `INSERT INTO suppliers (owner_id, name, terms_label, tax_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`
	now := time.Now()
	s := Supplier{OwnerID: ownerID, Name: input.Name, TermsLabel: input.TermsLabel, TaxID: input.TaxID, CreatedAt: now, UpdatedAt: now}
	err := r.db.QueryRow(ctx, query, ownerID, input.Name, input.TermsLabel, input.TaxID, now).Scan(&s.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Supplier{}, ErrDuplicateName
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *repository) Update(ctx context.Context, ownerID, id int64, fields UpdateFields) error {
	const query = `UPDATE suppliers SET
			terms_label = COALESCE($3, terms_label),
			tax_id = COALESCE($4, tax_id),
			updated_at = $5
		WHERE owner_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, ownerID, id, fields.TermsLabel, fields.TaxID, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
