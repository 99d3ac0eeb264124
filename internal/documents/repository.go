package documents

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doculedger/doculedger/internal/platform/db"
)

// Repository persists committed documents and staging artifacts.
type Repository interface {
	Persist(ctx context.Context, ownerID int64, input CommitInput) (CommitResult, error)
	CreateStaging(ctx context.Context, ownerID int64, payload []byte) (StagingArtifact, error)
	GetStaging(ctx context.Context, ownerID, id int64) (StagingArtifact, error)
	DeleteStaging(ctx context.Context, ownerID, id int64) error
	SweepStaging(ctx context.Context, olderThan time.Duration) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed document repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// Persist writes the document, its lines, and the catalog merge in one
// transaction, removing the replaced staging artifact so retries after a
// failure still find it.
func (r *repository) Persist(ctx context.Context, ownerID int64, input CommitInput) (CommitResult, error) {
	if input.Document.DocumentType == "" {
		return CommitResult{}, ErrValidation
	}
	var result CommitResult
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		now := time.Now()
		doc := input.Document
		doc.OwnerID = ownerID
		doc.CreatedAt = now
		const insertDoc = `INSERT INTO documents
				(owner_id, document_type, supplier_name, invoice_number, file_name, total_amount,
				 invoice_date, payment_method, payment_due_date, terms_label, raw_extraction, error_note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
		if err := tx.QueryRow(ctx, insertDoc,
			ownerID, doc.DocumentType, doc.SupplierName, doc.InvoiceNumber, doc.FileName, doc.TotalAmount,
			doc.InvoiceDate, doc.PaymentMethod, doc.PaymentDueDate, doc.TermsLabel, doc.RawExtraction, doc.ErrorNote, now,
		).Scan(&doc.ID); err != nil {
			return err
		}

		lines := make([]Line, 0, len(input.Lines))
		for _, line := range input.Lines {
			line.DocumentID = doc.ID
			inventoryID, err := mergeCatalog(ctx, tx, ownerID, line, now)
			if err != nil {
				return err
			}
			line.InventoryID = inventoryID
			const insertLine = `INSERT INTO document_lines
					(document_id, inventory_id, catalog_number, barcode, description,
					 quantity, unit_price, line_total, sale_price, min_stock, max_stock)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
			if err := tx.QueryRow(ctx, insertLine,
				line.DocumentID, line.InventoryID, line.CatalogNumber, line.Barcode, line.Description,
				line.Quantity, line.UnitPrice, line.LineTotal, line.SalePrice, line.MinStock, line.MaxStock,
			).Scan(&line.ID); err != nil {
				return err
			}
			lines = append(lines, line)
		}

		if input.SourceArtifactID != 0 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM staging_artifacts WHERE owner_id = $1 AND id = $2`,
				ownerID, input.SourceArtifactID); err != nil {
				return err
			}
		}
		result = CommitResult{Document: doc, Lines: lines}
		return nil
	})
	if err != nil {
		return CommitResult{}, err
	}
	return result, nil
}

// mergeCatalog merges one committed line into the catalog: an existing record
// (matched by id) is updated with the incoming price, anything else is
// inserted as a new catalog item. Returns the catalog id the line refers to.
func mergeCatalog(ctx context.Context, tx pgx.Tx, ownerID int64, line Line, now time.Time) (int64, error) {
	if line.InventoryID != 0 {
		const update = `UPDATE catalog_items SET
				unit_price = $3,
				sale_price = COALESCE($4, sale_price),
				min_stock = COALESCE($5, min_stock),
				max_stock = COALESCE($6, max_stock),
				updated_at = $7
			WHERE owner_id = $1 AND id = $2`
		tag, err := tx.Exec(ctx, update, ownerID, line.InventoryID,
			line.UnitPrice, line.SalePrice, line.MinStock, line.MaxStock, now)
		if err != nil {
			return 0, err
		}
		if tag.RowsAffected() > 0 {
			return line.InventoryID, nil
		}
	}
	const insert = `INSERT INTO catalog_items
			(owner_id, catalog_number, barcode, description, unit_price, sale_price, min_stock, max_stock, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	var id int64
	err := tx.QueryRow(ctx, insert, ownerID, line.CatalogNumber, line.Barcode, line.Description,
		line.UnitPrice, line.SalePrice, line.MinStock, line.MaxStock, now).Scan(&id)
	return id, err
}

func (r *repository) CreateStaging(ctx context.Context, ownerID int64, payload []byte) (StagingArtifact, error) {
	const query = `INSERT INTO staging_artifacts (owner_id, payload, created_at)
		VALUES ($1, $2, $3) RETURNING id`
	artifact := StagingArtifact{OwnerID: ownerID, Payload: payload, CreatedAt: time.Now()}
	err := r.db.QueryRow(ctx, query, ownerID, payload, artifact.CreatedAt).Scan(&artifact.ID)
	if err != nil {
		return StagingArtifact{}, err
	}
	return artifact, nil
}

func (r *repository) GetStaging(ctx context.Context, ownerID, id int64) (StagingArtifact, error) {
	const query = `SELECT id, owner_id, payload, created_at FROM staging_artifacts
		WHERE owner_id = $1 AND id = $2`
	var artifact StagingArtifact
	err := r.db.QueryRow(ctx, query, ownerID, id).Scan(&artifact.ID, &artifact.OwnerID, &artifact.Payload, &artifact.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StagingArtifact{}, ErrNotFound
	}
	return artifact, err
}

func (r *repository) DeleteStaging(ctx context.Context, ownerID, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM staging_artifacts WHERE owner_id = $1 AND id = $2`, ownerID, id)
	return err
}

// SweepStaging removes staging artifacts older than the retention window.
func (r *repository) SweepStaging(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := r.db.Exec(ctx, `DELETE FROM staging_artifacts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
