package inventory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads and writes the inventory catalog.
type Repository interface {
	Snapshot(ctx context.Context, ownerID int64) ([]CatalogItem, error)
	Upsert(ctx context.Context, ownerID int64, items []UpsertItem) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed catalog repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// Snapshot returns the full catalog for an owner. Callers treat the result
// as a point-in-time view; prices are authoritative at read time.
func (r *repository) Snapshot(ctx context.Context, ownerID int64) ([]CatalogItem, error) {
	const query = `SELECT id, owner_id, catalog_number, barcode, description,
			unit_price, sale_price, min_stock, max_stock, updated_at
		FROM catalog_items WHERE owner_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CatalogItem
	for rows.Next() {
		var it CatalogItem
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.CatalogNumber, &it.Barcode, &it.Description,
			&it.UnitPrice, &it.SalePrice, &it.MinStock, &it.MaxStock, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Upsert merges synced records into the catalog, updating rows matched by id
// and inserting the rest.
func (r *repository) Upsert(ctx context.Context, ownerID int64, items []UpsertItem) error {
	const update = `UPDATE catalog_items SET
			catalog_number = $3, barcode = $4, description = $5, unit_price = $6,
			sale_price = COALESCE($7, sale_price),
			min_stock = COALESCE($8, min_stock),
			max_stock = COALESCE($9, max_stock),
			updated_at = $10
		WHERE owner_id = $1 AND id = $2`
	const insert = `INSERT INTO catalog_items
			(owner_id, catalog_number, barcode, description, unit_price, sale_price, min_stock, max_stock, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	now := time.Now()
	for _, it := range items {
		if it.InventoryID != 0 {
			tag, err := r.db.Exec(ctx, update, ownerID, it.InventoryID, it.CatalogNumber, it.Barcode,
				it.Description, it.UnitPrice, it.SalePrice, it.MinStock, it.MaxStock, now)
			if err != nil {
				return err
			}
			if tag.RowsAffected() > 0 {
				continue
			}
		}
		if _, err := r.db.Exec(ctx, insert, ownerID, it.CatalogNumber, it.Barcode,
			it.Description, it.UnitPrice, it.SalePrice, it.MinStock, it.MaxStock, now); err != nil {
			return err
		}
	}
	return nil
}
