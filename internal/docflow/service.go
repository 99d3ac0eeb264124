package docflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doculedger/doculedger/internal/documents"
	"github.com/doculedger/doculedger/internal/inventory"
	"github.com/doculedger/doculedger/internal/shared"
	"github.com/doculedger/doculedger/internal/suppliers"
)

// SupplierPort exposes the supplier store operations used by the flow.
type SupplierPort interface {
	List(ctx context.Context, ownerID int64) ([]suppliers.Supplier, error)
	Create(ctx context.Context, ownerID int64, input suppliers.NewSupplier) (suppliers.Supplier, error)
	Update(ctx context.Context, ownerID, id int64, fields suppliers.UpdateFields) error
}

// InventoryPort exposes the catalog snapshot read.
type InventoryPort interface {
	Snapshot(ctx context.Context, ownerID int64) ([]inventory.CatalogItem, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the confirmation flow for one document at a time per flow
// id: supplier and payment terms, product onboarding for delivery notes,
// then the price-gated commit.
type Service struct {
	logger    *slog.Logger
	store     FlowStore
	suppliers SupplierPort
	catalog   InventoryPort
	committer *Committer
	audit     AuditPort
}

// NewService constructs the flow service.
func NewService(logger *slog.Logger, store FlowStore, sup SupplierPort, catalog InventoryPort, committer *Committer, audit AuditPort) *Service {
	return &Service{logger: logger, store: store, suppliers: sup, catalog: catalog, committer: committer, audit: audit}
}

// SupplierDecision carries the user's supplier-step result.
type SupplierDecision struct {
	Name       string
	Option     PaymentTermOption
	DueDate    *time.Time
	TaxID      string
	CreateNew  bool
	ExistingID int64
}

// StartFlow begins the confirmation sequence for a draft. Previously saved
// documents bypass every step and start ready to save. New documents enter
// the supplier step, which auto-resolves when the scanned name matches an
// existing supplier that already has payment terms on file.
func (s *Service) StartFlow(ctx context.Context, ownerID int64, draft Draft, existing bool) (*Flow, Event, error) {
	flow := &Flow{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		State:            StateIdle,
		Draft:            draft,
		ExistingDocument: existing,
		CreatedAt:        time.Now(),
	}
	normalizeDraft(&flow.Draft)
	if existing {
		flow.State = StateReadyToSave
		if err := s.store.Save(ctx, flow); err != nil {
			return nil, Event{}, err
		}
		return flow, flow.event(EventReadyToSave), nil
	}

	list, err := s.suppliers.List(ctx, ownerID)
	if err != nil {
		flow.fail()
		_ = s.store.Save(ctx, flow)
		return flow, flow.event(EventFlowFailed), fmt.Errorf("%w: suppliers: %v", ErrLookupFailed, err)
	}
	flow.State = StateSupplierPaymentDetails
	flow.CandidateSupplier = draft.SupplierName
	flow.KnownSuppliers = list

	matched, ok := matchSupplierByName(list, draft.SupplierName)
	if ok && strings.TrimSpace(matched.TermsLabel) != "" {
		res := ParseTermsLabel(matched.TermsLabel)
		if res.Raw != "" {
			s.logger.Warn("supplier terms label not parseable, keeping custom option without due date",
				slog.Int64("owner_id", ownerID),
				slog.String("supplier", matched.Name),
				slog.String("label", res.Raw))
		}
		flow.Draft.SupplierName = matched.Name
		flow.applyTerms(res)
		s.recordAudit(ctx, ownerID, "SUPPLIER_AUTO_RESOLVE", flow.ID, map[string]any{"supplier": matched.Name})
		kind, err := s.advance(ctx, flow)
		if err != nil {
			_ = s.store.Save(ctx, flow)
			return flow, flow.event(kind), err
		}
		if err := s.store.Save(ctx, flow); err != nil {
			return nil, Event{}, err
		}
		return flow, flow.event(kind), nil
	}

	flow.AwaitingSupplierInput = true
	if err := s.store.Save(ctx, flow); err != nil {
		return nil, Event{}, err
	}
	return flow, flow.event(EventAwaitingSupplier), nil
}

// GetFlow returns the current flow state and per-step prompt data.
func (s *Service) GetFlow(ctx context.Context, ownerID int64, id string) (*Flow, error) {
	return s.store.Get(ctx, ownerID, id)
}

// ConfirmSupplier applies the supplier-step result. The draft fields are
// written before the supplier store write, so a failed write keeps them and
// the step may be retried.
func (s *Service) ConfirmSupplier(ctx context.Context, ownerID int64, flowID string, decision SupplierDecision) (Event, error) {
	flow, err := s.store.Get(ctx, ownerID, flowID)
	if err != nil {
		return Event{}, err
	}
	if flow.State != StateSupplierPaymentDetails || !flow.AwaitingSupplierInput {
		return Event{}, ErrInvalidState
	}
	if flow.SupplierWriteInFlight {
		return Event{}, ErrBusy
	}
	flow.SupplierWriteInFlight = true
	if err := s.store.Save(ctx, flow); err != nil {
		return Event{}, err
	}

	name := strings.TrimSpace(decision.Name)
	flow.Draft.SupplierName = name
	flow.Draft.PaymentTermOption = decision.Option
	flow.Draft.PaymentDueDate = decision.DueDate
	flow.Draft.RawTermsLabel = ""

	if err := s.writeSupplier(ctx, ownerID, flow, decision, name); err != nil {
		flow.SupplierWriteInFlight = false
		_ = s.store.Save(ctx, flow)
		return Event{}, fmt.Errorf("%w: %v", ErrSupplierWrite, err)
	}
	flow.SupplierWriteInFlight = false

	s.recordAudit(ctx, ownerID, "SUPPLIER_RESOLVE", flow.ID, map[string]any{"supplier": name, "new": decision.CreateNew})
	kind, advErr := s.advance(ctx, flow)
	if saveErr := s.store.Save(ctx, flow); saveErr != nil && advErr == nil {
		return Event{}, saveErr
	}
	return flow.event(kind), advErr
}

// writeSupplier creates a declared-new supplier, or updates an existing one
// only when the derived terms label or tax id actually differs.
func (s *Service) writeSupplier(ctx context.Context, ownerID int64, flow *Flow, decision SupplierDecision, name string) error {
	label := FormatTermsLabel(decision.Option, decision.DueDate, "")
	if decision.CreateNew {
		_, err := s.suppliers.Create(ctx, ownerID, suppliers.NewSupplier{
			Name:       name,
			TermsLabel: label,
			TaxID:      decision.TaxID,
		})
		return err
	}
	if decision.ExistingID == 0 {
		return nil
	}
	var current *suppliers.Supplier
	for i := range flow.KnownSuppliers {
		if flow.KnownSuppliers[i].ID == decision.ExistingID {
			current = &flow.KnownSuppliers[i]
			break
		}
	}
	if current == nil {
		return suppliers.ErrNotFound
	}
	var fields suppliers.UpdateFields
	if label != current.TermsLabel {
		fields.TermsLabel = &label
	}
	if decision.TaxID != "" && decision.TaxID != current.TaxID {
		fields.TaxID = &decision.TaxID
	}
	if fields.TermsLabel == nil && fields.TaxID == nil {
		return nil
	}
	return s.suppliers.Update(ctx, ownerID, decision.ExistingID, fields)
}

// CancelSupplierStep advances the flow as if the step completed. Fields
// already written by auto-resolve or a partial action are not rolled back.
func (s *Service) CancelSupplierStep(ctx context.Context, ownerID int64, flowID string) (Event, error) {
	flow, err := s.store.Get(ctx, ownerID, flowID)
	if err != nil {
		return Event{}, err
	}
	if flow.State != StateSupplierPaymentDetails {
		return Event{}, ErrInvalidState
	}
	if flow.SupplierWriteInFlight {
		return Event{}, ErrBusy
	}
	kind, advErr := s.advance(ctx, flow)
	if saveErr := s.store.Save(ctx, flow); saveErr != nil && advErr == nil {
		return Event{}, saveErr
	}
	return flow.event(kind), advErr
}

// advance runs product reconciliation for delivery notes and moves the flow
// to the next state. A failed inventory fetch is irrecoverable for the run.
func (s *Service) advance(ctx context.Context, flow *Flow) (EventKind, error) {
	var review []LineItem
	if flow.Draft.DocumentType == DocumentTypeDeliveryNote && len(flow.Draft.LineItems) > 0 {
		snapshot, err := s.catalog.Snapshot(ctx, flow.OwnerID)
		if err != nil {
			flow.fail()
			return EventFlowFailed, fmt.Errorf("%w: inventory: %v", ErrLookupFailed, err)
		}
		review = NeedsReview(flow.Draft.LineItems, snapshot)
	}
	return flow.advanceAfterSupplier(review), nil
}

// CompleteProductReview merges onboarding edits back into the draft. A nil
// result is an explicit cancel: line items stay untouched and the flow still
// advances to ready-to-save.
func (s *Service) CompleteProductReview(ctx context.Context, ownerID int64, flowID string, reviewed []ReviewedItem) (Event, error) {
	flow, err := s.store.Get(ctx, ownerID, flowID)
	if err != nil {
		return Event{}, err
	}
	if flow.State != StateNewProductDetails {
		return Event{}, ErrInvalidState
	}
	if reviewed != nil {
		merged, err := MergeReviewed(flow.Draft.LineItems, flow.ReviewItems, reviewed)
		if err != nil {
			return Event{}, err
		}
		flow.Draft.LineItems = merged
	}
	flow.State = StateReadyToSave
	flow.ReviewItems = nil
	if err := s.store.Save(ctx, flow); err != nil {
		return Event{}, err
	}
	return flow.event(EventReadyToSave), nil
}

// SaveDocument runs the pre-commit price check and either commits or halts
// with the discrepancy set awaiting resolution. Re-entrant saves are
// rejected while one is outstanding.
func (s *Service) SaveDocument(ctx context.Context, ownerID int64, flowID string) (Event, error) {
	flow, err := s.store.Get(ctx, ownerID, flowID)
	if err != nil {
		return Event{}, err
	}
	if flow.State != StateReadyToSave {
		return Event{}, ErrInvalidState
	}
	if flow.SaveInFlight {
		return Event{}, ErrBusy
	}
	if flow.Draft.DocumentType == DocumentTypeDeliveryNote && len(flow.Draft.LineItems) == 0 {
		return Event{}, ErrNoLineItems
	}
	flow.SaveInFlight = true
	if err := s.store.Save(ctx, flow); err != nil {
		return Event{}, err
	}

	if flow.Draft.DocumentType == DocumentTypeDeliveryNote {
		snapshot, err := s.catalog.Snapshot(ctx, ownerID)
		if err != nil {
			flow.SaveInFlight = false
			_ = s.store.Save(ctx, flow)
			return Event{}, fmt.Errorf("%w: inventory: %v", ErrLookupFailed, err)
		}
		// Resolve each line to its catalog record so the persist merges
		// matched lines instead of inserting duplicates.
		flow.Draft.LineItems = StampMatches(flow.Draft.LineItems, snapshot)
		if disc := DetectDiscrepancies(flow.Draft.LineItems, snapshot); len(disc) > 0 {
			flow.Discrepancies = disc
			if err := s.store.Save(ctx, flow); err != nil {
				return Event{}, err
			}
			return flow.event(EventDiscrepanciesFound), nil
		}
	}

	event, err := s.commit(ctx, flow)
	if err != nil {
		flow.SaveInFlight = false
		_ = s.store.Save(ctx, flow)
		return Event{}, err
	}
	return event, nil
}

// ResolveDiscrepancies settles the open discrepancy set produced by a halted
// save. A nil resolution aborts the entire save with zero side effects.
func (s *Service) ResolveDiscrepancies(ctx context.Context, ownerID int64, flowID string, resolutions []Resolution) (Event, error) {
	flow, err := s.store.Get(ctx, ownerID, flowID)
	if err != nil {
		return Event{}, err
	}
	if len(flow.Discrepancies) == 0 || !flow.SaveInFlight {
		return Event{}, ErrInvalidState
	}
	if resolutions == nil {
		flow.Discrepancies = nil
		flow.SaveInFlight = false
		if err := s.store.Save(ctx, flow); err != nil {
			return Event{}, err
		}
		return flow.event(EventSaveAborted), nil
	}

	items, err := ApplyResolutions(flow.Draft.LineItems, flow.Discrepancies, resolutions)
	if err != nil {
		return Event{}, err
	}
	prevItems := flow.Draft.LineItems
	flow.Draft.LineItems = items
	flow.Discrepancies = nil

	event, err := s.commit(ctx, flow)
	if err != nil {
		// A failed persist aborts the whole save run with the draft as it
		// was before the resolutions; a retried save re-detects.
		flow.Draft.LineItems = prevItems
		flow.SaveInFlight = false
		_ = s.store.Save(ctx, flow)
		return Event{}, err
	}
	return event, nil
}

// commit hands the resolved draft to the committer and retires the flow.
// Failure handling is the caller's: each entry point restores its own
// pre-commit state before re-saving the flow.
func (s *Service) commit(ctx context.Context, flow *Flow) (Event, error) {
	result, err := s.committer.Commit(ctx, flow.OwnerID, flow.Draft)
	if err != nil {
		return Event{}, err
	}
	s.recordAudit(ctx, flow.OwnerID, "DOC_COMMIT", flow.ID, map[string]any{
		"document_id": result.Document.ID,
		"file_name":   result.Document.FileName,
		"total":       result.Document.TotalAmount,
	})
	if err := s.store.Delete(ctx, flow.OwnerID, flow.ID); err != nil {
		s.logger.Warn("delete committed flow", slog.String("flow_id", flow.ID), slog.Any("error", err))
	}
	flow.SaveInFlight = false
	event := flow.event(EventCommitted)
	event.Committed = &result
	return event, nil
}

// normalizeDraft assigns a provisional identity to rows arriving without
// one, so freshly extracted items never alias a catalog id.
func normalizeDraft(d *Draft) {
	for i := range d.LineItems {
		if d.LineItems[i].LocalID == "" {
			d.LineItems[i].LocalID = uuid.NewString()
		}
		if d.LineItems[i].Identity == "" {
			d.LineItems[i].Identity = IdentityProvisional
		}
	}
}

func (s *Service) recordAudit(ctx context.Context, ownerID int64, action, flowID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{OwnerID: ownerID, Action: action, Entity: "docflow", EntityID: flowID, Meta: meta})
}

var _ DocumentPort = (documents.Repository)(nil)
