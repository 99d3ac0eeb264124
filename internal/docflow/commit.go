package docflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/doculedger/doculedger/internal/documents"
	"github.com/doculedger/doculedger/internal/inventory"
	"github.com/doculedger/doculedger/internal/shared"
)

// DocumentPort is the persistence contract consumed by the committer.
type DocumentPort interface {
	Persist(ctx context.Context, ownerID int64, input documents.CommitInput) (documents.CommitResult, error)
}

// SyncEnqueuer schedules the best-effort catalog synchronization.
type SyncEnqueuer interface {
	EnqueueCatalogSync(ownerID int64, items []inventory.UpsertItem) error
}

// Committer derives the final document fields and persists atomically.
type Committer struct {
	logger      *slog.Logger
	documents   DocumentPort
	sync        SyncEnqueuer
	idempotency *shared.IdempotencyStore
}

// NewCommitter builds the committer. sync and idempotency may be nil.
func NewCommitter(logger *slog.Logger, docs DocumentPort, sync SyncEnqueuer, idem *shared.IdempotencyStore) *Committer {
	return &Committer{logger: logger, documents: docs, sync: sync, idempotency: idem}
}

// Commit finalizes a fully resolved draft: derived totals, normalized dates,
// terms label, stable filename, then one atomic persist that replaces the
// staging artifact. The catalog sync afterwards is fire and forget.
func (c *Committer) Commit(ctx context.Context, ownerID int64, draft Draft) (documents.CommitResult, error) {
	if draft.DocumentType == DocumentTypeDeliveryNote && len(draft.LineItems) == 0 {
		return documents.CommitResult{}, ErrNoLineItems
	}

	total := 0.0
	if draft.TotalAmount != nil {
		total = *draft.TotalAmount
	} else if len(draft.LineItems) > 0 {
		total = SumLineTotals(draft.LineItems)
	}

	doc := documents.Document{
		DocumentType:   string(draft.DocumentType),
		SupplierName:   strings.TrimSpace(draft.SupplierName),
		InvoiceNumber:  strings.TrimSpace(draft.InvoiceNumber),
		TotalAmount:    total,
		InvoiceDate:    normalizeDate(draft.InvoiceDate),
		PaymentMethod:  draft.PaymentMethod,
		PaymentDueDate: normalizeDate(draft.PaymentDueDate),
		TermsLabel:     FormatTermsLabel(draft.PaymentTermOption, draft.PaymentDueDate, draft.RawTermsLabel),
		RawExtraction:  draft.RawExtraction,
		ErrorNote:      draft.ErrorNote,
	}
	doc.FileName = deriveFileName(doc.SupplierName, doc.InvoiceNumber, draft.DocumentType)

	lines := make([]documents.Line, 0, len(draft.LineItems))
	for _, li := range draft.LineItems {
		inventoryID := int64(0)
		if li.Identity == IdentityPersisted {
			inventoryID = li.InventoryID
		}
		lines = append(lines, documents.Line{
			InventoryID:   inventoryID,
			CatalogNumber: li.CatalogNumber,
			Barcode:       li.Barcode,
			Description:   li.Description,
			Quantity:      li.Quantity,
			UnitPrice:     li.UnitPrice,
			LineTotal:     li.LineTotal,
			SalePrice:     li.SalePrice,
			MinStock:      li.MinStock,
			MaxStock:      li.MaxStock,
		})
	}

	idemKey := ""
	if c.idempotency != nil && draft.SourceArtifactID != 0 {
		idemKey = fmt.Sprintf("ARTIFACT:%d", draft.SourceArtifactID)
		if err := c.idempotency.CheckAndInsert(ctx, idemKey, "docflow.commit"); err != nil {
			return documents.CommitResult{}, fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}
	}

	result, err := c.documents.Persist(ctx, ownerID, documents.CommitInput{
		Document:         doc,
		Lines:            lines,
		SourceArtifactID: draft.SourceArtifactID,
	})
	if err != nil {
		if idemKey != "" {
			_ = c.idempotency.Delete(ctx, idemKey)
		}
		return documents.CommitResult{}, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	c.enqueueSync(ownerID, result.Lines)
	return result, nil
}

// enqueueSync schedules catalog synchronization for the committed lines.
// Failures are logged and never surfaced; a successful commit stands.
func (c *Committer) enqueueSync(ownerID int64, lines []documents.Line) {
	if c.sync == nil || len(lines) == 0 {
		return
	}
	items := make([]inventory.UpsertItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, inventory.UpsertItem{
			InventoryID:   line.InventoryID,
			CatalogNumber: line.CatalogNumber,
			Barcode:       line.Barcode,
			Description:   line.Description,
			UnitPrice:     line.UnitPrice,
			SalePrice:     line.SalePrice,
			MinStock:      line.MinStock,
			MaxStock:      line.MaxStock,
		})
	}
	if err := c.sync.EnqueueCatalogSync(ownerID, items); err != nil {
		c.logger.Warn("catalog sync enqueue failed",
			slog.Int64("owner_id", ownerID),
			slog.Any("error", err))
	}
}

// normalizeDate collapses timestamps to UTC midnight, the single internal
// date representation.
func normalizeDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.UTC().Date()
	normalized := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &normalized
}

const maxFileNameLen = 80

// deriveFileName builds a stable filename from supplier and invoice number,
// falling back to whichever is present, then to the document type and date.
func deriveFileName(supplier, invoiceNumber string, docType DocumentType) string {
	var base string
	switch {
	case supplier != "" && invoiceNumber != "":
		base = supplier + "_" + invoiceNumber
	case supplier != "":
		base = supplier
	case invoiceNumber != "":
		base = invoiceNumber
	default:
		base = strings.ToLower(string(docType)) + "_" + time.Now().UTC().Format("20060102")
	}
	return sanitizeFileName(base)
}

// sanitizeFileName restricts to a safe character set and caps the length.
func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "document"
	}
	if len(out) > maxFileNameLen {
		out = out[:maxFileNameLen]
	}
	return out
}
