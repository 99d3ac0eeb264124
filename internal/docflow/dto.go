package docflow

import (
	"time"

	"github.com/doculedger/doculedger/internal/suppliers"
)

// StartFlowRequest begins a confirmation flow for an extracted draft.
type StartFlowRequest struct {
	// Existing marks an already-saved document, which bypasses the flow.
	Existing bool  `json:"existing"`
	Draft    Draft `json:"draft" validate:"required"`
}

// ConfirmSupplierRequest carries the supplier-step user result.
type ConfirmSupplierRequest struct {
	Name       string     `json:"name" validate:"required"`
	Option     string     `json:"option" validate:"required,oneof=IMMEDIATE NET_30 NET_60 END_OF_MONTH CUSTOM NONE"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	TaxID      string     `json:"tax_id,omitempty"`
	CreateNew  bool       `json:"create_new"`
	ExistingID int64      `json:"existing_id,omitempty" validate:"gte=0"`
}

// CompleteReviewRequest finishes the product-details step. A null items
// field is an explicit cancel; line items stay untouched.
type CompleteReviewRequest struct {
	Items *[]ReviewedItem `json:"items" validate:"omitempty,dive"`
}

// ResolveDiscrepanciesRequest settles a halted save. A null resolutions
// field aborts the save with no side effects.
type ResolveDiscrepanciesRequest struct {
	Resolutions *[]Resolution `json:"resolutions" validate:"omitempty,dive"`
}

// FlowResponse is the state snapshot returned to the presentation layer.
type FlowResponse struct {
	ID                    string               `json:"id"`
	State                 FlowState            `json:"state"`
	Draft                 Draft                `json:"draft"`
	AwaitingSupplierInput bool                 `json:"awaiting_supplier_input"`
	CandidateSupplier     string               `json:"candidate_supplier,omitempty"`
	KnownSuppliers        []suppliers.Supplier `json:"known_suppliers,omitempty"`
	ReviewItems           []LineItem           `json:"review_items,omitempty"`
	Discrepancies         []Discrepancy        `json:"discrepancies,omitempty"`
}

func flowResponse(f *Flow) FlowResponse {
	return FlowResponse{
		ID:                    f.ID,
		State:                 f.State,
		Draft:                 f.Draft,
		AwaitingSupplierInput: f.AwaitingSupplierInput,
		CandidateSupplier:     f.CandidateSupplier,
		KnownSuppliers:        f.KnownSuppliers,
		ReviewItems:           f.ReviewItems,
		Discrepancies:         f.Discrepancies,
	}
}
