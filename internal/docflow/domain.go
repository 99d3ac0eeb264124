package docflow

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DocumentType enumerates the purchase document kinds handled by the flow.
type DocumentType string

const (
	// DocumentTypeDeliveryNote marks goods-received documents.
	DocumentTypeDeliveryNote DocumentType = "DELIVERY_NOTE"
	// DocumentTypeInvoice marks supplier invoices.
	DocumentTypeInvoice DocumentType = "INVOICE"
)

// PaymentTermOption enumerates supported payment terms.
type PaymentTermOption string

const (
	TermImmediate  PaymentTermOption = "IMMEDIATE"
	TermNet30      PaymentTermOption = "NET_30"
	TermNet60      PaymentTermOption = "NET_60"
	TermEndOfMonth PaymentTermOption = "END_OF_MONTH"
	TermCustom     PaymentTermOption = "CUSTOM"
	TermNone       PaymentTermOption = "NONE"
)

// FlowState is the single active state of an in-progress document flow.
type FlowState string

const (
	StateIdle                   FlowState = "IDLE"
	StateSupplierPaymentDetails FlowState = "SUPPLIER_PAYMENT_DETAILS"
	StateNewProductDetails      FlowState = "NEW_PRODUCT_DETAILS"
	StateReadyToSave            FlowState = "READY_TO_SAVE"
	StateError                  FlowState = "ERROR"
)

// ItemIdentity tags whether a line item's InventoryID refers to a persisted
// catalog record or was generated locally for a freshly extracted row.
type ItemIdentity string

const (
	// IdentityProvisional is assigned to extracted or manually added rows.
	// A provisional id never counts as a catalog match.
	IdentityProvisional ItemIdentity = "PROVISIONAL"
	// IdentityPersisted refers to an existing catalog record.
	IdentityPersisted ItemIdentity = "PERSISTED"
)

// CatalogNumberNA is the sentinel catalog number excluded from matching.
const CatalogNumberNA = "N/A"

// LineItem is one product row on a draft document.
type LineItem struct {
	LocalID       string            `json:"local_id"`
	Identity      ItemIdentity      `json:"identity"`
	InventoryID   int64             `json:"inventory_id"`
	CatalogNumber string            `json:"catalog_number"`
	Barcode       string            `json:"barcode"`
	Description   string            `json:"description"`
	Quantity      float64           `json:"quantity"`
	UnitPrice     float64           `json:"unit_price"`
	LineTotal     float64           `json:"line_total"`
	SalePrice     *float64          `json:"sale_price,omitempty"`
	MinStock      *float64          `json:"min_stock,omitempty"`
	MaxStock      *float64          `json:"max_stock,omitempty"`
}

// NewLineItem builds a provisional line item with a fresh local identity.
func NewLineItem(description string, qty, unitPrice float64) LineItem {
	return LineItem{
		LocalID:     uuid.NewString(),
		Identity:    IdentityProvisional,
		Description: description,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		LineTotal:   Round2(qty * unitPrice),
	}
}

// Draft is one scanned purchase document before commit.
type Draft struct {
	DocumentType      DocumentType      `json:"document_type"`
	SupplierName      string            `json:"supplier_name,omitempty"`
	InvoiceNumber     string            `json:"invoice_number,omitempty"`
	TotalAmount       *float64          `json:"total_amount,omitempty"`
	InvoiceDate       *time.Time        `json:"invoice_date,omitempty"`
	PaymentMethod     string            `json:"payment_method,omitempty"`
	PaymentDueDate    *time.Time        `json:"payment_due_date,omitempty"`
	PaymentTermOption PaymentTermOption `json:"payment_term_option"`
	// RawTermsLabel keeps an unparseable supplier terms label verbatim so a
	// custom option without a due date is persisted without guessing.
	RawTermsLabel    string          `json:"raw_terms_label,omitempty"`
	LineItems        []LineItem      `json:"line_items"`
	RawExtraction    json.RawMessage `json:"raw_extraction,omitempty"`
	SourceArtifactID int64           `json:"source_artifact_id,omitempty"`
	ErrorNote        string          `json:"error_note,omitempty"`
}

// Discrepancy is produced during save for a line item whose matched catalog
// record carries a materially different price. It lives only between
// detection and resolution.
type Discrepancy struct {
	Line              LineItem `json:"line"`
	ExistingUnitPrice float64  `json:"existing_unit_price"`
	IncomingUnitPrice float64  `json:"incoming_unit_price"`
}

// ResolutionChoice selects how a single discrepancy is settled.
type ResolutionChoice string

const (
	ResolutionAcceptIncoming ResolutionChoice = "ACCEPT_INCOMING"
	ResolutionKeepExisting   ResolutionChoice = "KEEP_EXISTING"
	ResolutionOverride       ResolutionChoice = "OVERRIDE"
)

// Resolution settles one discrepancy by line local id.
type Resolution struct {
	LineLocalID   string           `json:"line_local_id"`
	Choice        ResolutionChoice `json:"choice"`
	OverridePrice float64          `json:"override_price,omitempty"`
}

var (
	// ErrInvalidState occurs when an entry point is called in the wrong flow state.
	ErrInvalidState = errors.New("docflow: invalid flow state")
	// ErrBusy rejects a re-entrant mutating call while one is in flight.
	ErrBusy = errors.New("docflow: operation already in flight")
	// ErrLookupFailed indicates a required supplier or inventory fetch failed.
	ErrLookupFailed = errors.New("docflow: lookup failed")
	// ErrSupplierWrite indicates supplier create/update failed; the step may be retried.
	ErrSupplierWrite = errors.New("docflow: supplier write failed")
	// ErrPersistFailed indicates the final commit failed; the draft is unchanged.
	ErrPersistFailed = errors.New("docflow: persist failed")
	// ErrNoLineItems rejects a delivery-note save with zero line items.
	ErrNoLineItems = errors.New("docflow: delivery note requires at least one line item")
	// ErrFlowNotFound indicates an unknown or expired flow id.
	ErrFlowNotFound = errors.New("docflow: flow not found")
	// ErrUnknownResolution indicates a resolution referenced no open discrepancy.
	ErrUnknownResolution = errors.New("docflow: resolution does not match an open discrepancy")
	// ErrUnknownReviewItem indicates a reviewed item outside the review subset.
	ErrUnknownReviewItem = errors.New("docflow: reviewed item is not in the review subset")
	// ErrUnresolvedDiscrepancies indicates not every open discrepancy was settled.
	ErrUnresolvedDiscrepancies = errors.New("docflow: unresolved price discrepancies remain")
)
