package docflow

import "github.com/doculedger/doculedger/internal/documents"

// EventKind names a flow transition outcome.
type EventKind string

const (
	// EventAwaitingSupplier means the supplier step needs user input.
	EventAwaitingSupplier EventKind = "AWAITING_SUPPLIER"
	// EventAwaitingReview means line items need onboarding input.
	EventAwaitingReview EventKind = "AWAITING_REVIEW"
	// EventReadyToSave means the pre-save flow is complete.
	EventReadyToSave EventKind = "READY_TO_SAVE"
	// EventDiscrepanciesFound means the save halted on price discrepancies.
	EventDiscrepanciesFound EventKind = "DISCREPANCIES_FOUND"
	// EventSaveAborted means a nil resolution cancelled the save, no side effects.
	EventSaveAborted EventKind = "SAVE_ABORTED"
	// EventCommitted means the document was persisted.
	EventCommitted EventKind = "COMMITTED"
	// EventFlowFailed means a required lookup failed irrecoverably.
	EventFlowFailed EventKind = "FLOW_FAILED"
)

// Event is a typed transition result. The flow never mutates caller-owned
// state; callers apply the draft copy carried here to their own view.
type Event struct {
	Kind          EventKind               `json:"kind"`
	State         FlowState               `json:"state"`
	Draft         Draft                   `json:"draft"`
	ReviewItems   []LineItem              `json:"review_items,omitempty"`
	Discrepancies []Discrepancy           `json:"discrepancies,omitempty"`
	Committed     *documents.CommitResult `json:"committed,omitempty"`
}

func (f *Flow) event(kind EventKind) Event {
	return Event{
		Kind:          kind,
		State:         f.State,
		Draft:         f.Draft,
		ReviewItems:   CloneLineItems(f.ReviewItems),
		Discrepancies: append([]Discrepancy(nil), f.Discrepancies...),
	}
}
