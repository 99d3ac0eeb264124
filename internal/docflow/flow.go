package docflow

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/doculedger/doculedger/internal/suppliers"
)

// Flow is the serialized state of one in-progress document confirmation
// sequence. Exactly one state is active at a time; the draft is owned by
// whichever step is currently active and handed off by value.
type Flow struct {
	ID      string    `json:"id"`
	OwnerID int64     `json:"owner_id"`
	State   FlowState `json:"state"`
	Draft   Draft     `json:"draft"`
	// ExistingDocument marks previously saved documents, which bypass the
	// confirmation steps entirely.
	ExistingDocument bool `json:"existing_document"`

	// Prompt data for the presentation layer.
	AwaitingSupplierInput bool                 `json:"awaiting_supplier_input"`
	CandidateSupplier     string               `json:"candidate_supplier,omitempty"`
	KnownSuppliers        []suppliers.Supplier `json:"known_suppliers,omitempty"`
	ReviewItems           []LineItem           `json:"review_items,omitempty"`
	Discrepancies         []Discrepancy        `json:"discrepancies,omitempty"`

	// Re-entrancy guards. Supplier writes are not idempotent, and a second
	// save must not fire while one is outstanding.
	SupplierWriteInFlight bool `json:"supplier_write_in_flight"`
	SaveInFlight          bool `json:"save_in_flight"`

	CreatedAt time.Time `json:"created_at"`
}

// foldCaser performs Unicode case folding for supplier name comparison.
var foldCaser = cases.Fold()

// matchSupplierByName finds a case-insensitive exact name match.
func matchSupplierByName(list []suppliers.Supplier, name string) (suppliers.Supplier, bool) {
	folded := foldCaser.String(strings.TrimSpace(name))
	if folded == "" {
		return suppliers.Supplier{}, false
	}
	for _, s := range list {
		if foldCaser.String(s.Name) == folded {
			return s, true
		}
	}
	return suppliers.Supplier{}, false
}

// applyTerms writes a parsed terms resolution onto the draft.
func (f *Flow) applyTerms(res TermsResolution) {
	f.Draft.PaymentTermOption = res.Option
	f.Draft.PaymentDueDate = res.DueDate
	f.Draft.RawTermsLabel = res.Raw
}

// advanceAfterSupplier decides the step following supplier confirmation:
// delivery notes with items still needing review enter the product-details
// step, everything else is ready to save.
func (f *Flow) advanceAfterSupplier(review []LineItem) EventKind {
	f.AwaitingSupplierInput = false
	if f.Draft.DocumentType == DocumentTypeDeliveryNote && len(review) > 0 {
		f.State = StateNewProductDetails
		f.ReviewItems = review
		return EventAwaitingReview
	}
	f.State = StateReadyToSave
	f.ReviewItems = nil
	return EventReadyToSave
}

// fail moves the flow into the terminal error state; it is exited only by
// restarting the flow.
func (f *Flow) fail() {
	f.State = StateError
	f.AwaitingSupplierInput = false
	f.SupplierWriteInFlight = false
	f.SaveInFlight = false
}

// Active reports whether a confirmation step is currently in progress.
func (f *Flow) Active() bool {
	switch f.State {
	case StateIdle, StateReadyToSave:
		return false
	default:
		return f.State != StateError
	}
}
