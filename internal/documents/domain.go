package documents

import (
	"encoding/json"
	"errors"
	"time"
)

// Document is a committed purchase document.
type Document struct {
	ID             int64           `json:"id"`
	OwnerID        int64           `json:"-"`
	DocumentType   string          `json:"document_type"`
	SupplierName   string          `json:"supplier_name"`
	InvoiceNumber  string          `json:"invoice_number"`
	FileName       string          `json:"file_name"`
	TotalAmount    float64         `json:"total_amount"`
	InvoiceDate    *time.Time      `json:"invoice_date,omitempty"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	PaymentDueDate *time.Time      `json:"payment_due_date,omitempty"`
	TermsLabel     string          `json:"terms_label"`
	RawExtraction  json.RawMessage `json:"-"`
	ErrorNote      string          `json:"error_note,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Line is a committed line item row.
type Line struct {
	ID            int64    `json:"id"`
	DocumentID    int64    `json:"document_id"`
	InventoryID   int64    `json:"inventory_id"`
	CatalogNumber string   `json:"catalog_number"`
	Barcode       string   `json:"barcode"`
	Description   string   `json:"description"`
	Quantity      float64  `json:"quantity"`
	UnitPrice     float64  `json:"unit_price"`
	LineTotal     float64  `json:"line_total"`
	SalePrice     *float64 `json:"sale_price,omitempty"`
	MinStock      *float64 `json:"min_stock,omitempty"`
	MaxStock      *float64 `json:"max_stock,omitempty"`
}

// StagingArtifact is the temporary record holding extraction output before a
// document is finalized.
type StagingArtifact struct {
	ID        int64           `json:"id"`
	OwnerID   int64           `json:"-"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// CommitInput is the fully derived document handed to Persist.
type CommitInput struct {
	Document Document
	Lines    []Line
	// SourceArtifactID, when non-zero, makes Persist replace the staging
	// artifact in place instead of creating a duplicate.
	SourceArtifactID int64
}

// CommitResult returns the committed rows.
type CommitResult struct {
	Document Document
	Lines    []Line
}

var (
	// ErrNotFound indicates a missing document or staging artifact.
	ErrNotFound = errors.New("documents: not found")
	// ErrValidation indicates invalid commit input.
	ErrValidation = errors.New("documents: invalid input")
)
