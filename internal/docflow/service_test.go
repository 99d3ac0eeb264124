package docflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doculedger/doculedger/internal/inventory"
	"github.com/doculedger/doculedger/internal/shared"
	"github.com/doculedger/doculedger/internal/suppliers"
)

type memoryFlowStore struct {
	flows map[string][]byte
}

func newMemoryFlowStore() *memoryFlowStore {
	return &memoryFlowStore{flows: make(map[string][]byte)}
}

func (s *memoryFlowStore) key(ownerID int64, id string) string {
	return fmt.Sprintf("%d:%s", ownerID, id)
}

func (s *memoryFlowStore) Save(ctx context.Context, flow *Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return err
	}
	s.flows[s.key(flow.OwnerID, flow.ID)] = data
	return nil
}

func (s *memoryFlowStore) Get(ctx context.Context, ownerID int64, id string) (*Flow, error) {
	data, ok := s.flows[s.key(ownerID, id)]
	if !ok {
		return nil, ErrFlowNotFound
	}
	var flow Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (s *memoryFlowStore) Delete(ctx context.Context, ownerID int64, id string) error {
	delete(s.flows, s.key(ownerID, id))
	return nil
}

type memorySuppliers struct {
	list     []suppliers.Supplier
	created  []suppliers.NewSupplier
	updates  map[int64]suppliers.UpdateFields
	listErr  error
	writeErr error
	nextID   int64
}

func newMemorySuppliers(list ...suppliers.Supplier) *memorySuppliers {
	return &memorySuppliers{list: list, updates: make(map[int64]suppliers.UpdateFields), nextID: 100}
}

func (m *memorySuppliers) List(ctx context.Context, ownerID int64) ([]suppliers.Supplier, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]suppliers.Supplier(nil), m.list...), nil
}

func (m *memorySuppliers) Create(ctx context.Context, ownerID int64, input suppliers.NewSupplier) (suppliers.Supplier, error) {
	if m.writeErr != nil {
		return suppliers.Supplier{}, m.writeErr
	}
	m.nextID++
	m.created = append(m.created, input)
	return suppliers.Supplier{ID: m.nextID, OwnerID: ownerID, Name: input.Name, TermsLabel: input.TermsLabel, TaxID: input.TaxID}, nil
}

func (m *memorySuppliers) Update(ctx context.Context, ownerID, id int64, fields suppliers.UpdateFields) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.updates[id] = fields
	return nil
}

type memoryCatalog struct {
	snapshot []inventory.CatalogItem
	err      error
}

func (m *memoryCatalog) Snapshot(ctx context.Context, ownerID int64) ([]inventory.CatalogItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]inventory.CatalogItem(nil), m.snapshot...), nil
}

type memoryAudit struct {
	records []shared.AuditLog
}

func (m *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.records = append(m.records, log)
	return nil
}

type serviceFixture struct {
	service   *Service
	store     *memoryFlowStore
	suppliers *memorySuppliers
	catalog   *memoryCatalog
	docs      *memoryDocuments
	audit     *memoryAudit
}

func newServiceFixture(sup *memorySuppliers, catalog *memoryCatalog) *serviceFixture {
	store := newMemoryFlowStore()
	docs := &memoryDocuments{}
	audit := &memoryAudit{}
	committer := NewCommitter(testLogger(), docs, nil, nil)
	svc := NewService(testLogger(), store, sup, catalog, committer, audit)
	return &serviceFixture{service: svc, store: store, suppliers: sup, catalog: catalog, docs: docs, audit: audit}
}

const ownerID = int64(7)

func acmeSupplier(terms string) suppliers.Supplier {
	return suppliers.Supplier{ID: 1, OwnerID: ownerID, Name: "Acme Corp", TermsLabel: terms}
}

func TestStartFlowExistingDocumentBypassesSteps(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	ctx := context.Background()

	flow, event, err := fx.service.StartFlow(ctx, ownerID, deliveryDraft(), true)
	require.NoError(t, err)
	require.Equal(t, StateReadyToSave, flow.State)
	require.Equal(t, EventReadyToSave, event.Kind)
}

func TestStartFlowAutoResolvesMatchingSupplier(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(acmeSupplier("Net 30")), &memoryCatalog{})
	ctx := context.Background()

	draft := Draft{DocumentType: DocumentTypeInvoice, SupplierName: "acme corp", TotalAmount: ptr(50.0)}
	flow, event, err := fx.service.StartFlow(ctx, ownerID, draft, false)
	require.NoError(t, err)
	require.Equal(t, StateReadyToSave, flow.State)
	require.Equal(t, EventReadyToSave, event.Kind)
	require.Equal(t, "Acme Corp", flow.Draft.SupplierName, "canonical name replaces the scanned one")
	require.Equal(t, TermNet30, flow.Draft.PaymentTermOption)
	require.False(t, flow.AwaitingSupplierInput)
}

func TestStartFlowAutoResolvePreservesUnparseableLabel(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(acmeSupplier("upon delivery")), &memoryCatalog{})
	ctx := context.Background()

	draft := Draft{DocumentType: DocumentTypeInvoice, SupplierName: "Acme Corp"}
	flow, _, err := fx.service.StartFlow(ctx, ownerID, draft, false)
	require.NoError(t, err)
	require.Equal(t, TermCustom, flow.Draft.PaymentTermOption)
	require.Nil(t, flow.Draft.PaymentDueDate)
	require.Equal(t, "upon delivery", flow.Draft.RawTermsLabel)
}

func TestStartFlowMatchWithoutTermsPrompts(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(acmeSupplier("")), &memoryCatalog{})
	ctx := context.Background()

	draft := Draft{DocumentType: DocumentTypeInvoice, SupplierName: "Acme Corp"}
	flow, event, err := fx.service.StartFlow(ctx, ownerID, draft, false)
	require.NoError(t, err)
	require.Equal(t, StateSupplierPaymentDetails, flow.State)
	require.Equal(t, EventAwaitingSupplier, event.Kind)
	require.True(t, flow.AwaitingSupplierInput)
	require.Len(t, flow.KnownSuppliers, 1)
}

func TestStartFlowUnknownSupplierPrompts(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(acmeSupplier("Net 30")), &memoryCatalog{})
	ctx := context.Background()

	draft := Draft{DocumentType: DocumentTypeInvoice, SupplierName: "Nova Ltd"}
	flow, event, err := fx.service.StartFlow(ctx, ownerID, draft, false)
	require.NoError(t, err)
	require.Equal(t, EventAwaitingSupplier, event.Kind)
	require.Equal(t, "Nova Ltd", flow.CandidateSupplier)
}

func TestStartFlowSupplierListFailure(t *testing.T) {
	sup := newMemorySuppliers()
	sup.listErr = errors.New("pg down")
	fx := newServiceFixture(sup, &memoryCatalog{})
	ctx := context.Background()

	flow, event, err := fx.service.StartFlow(ctx, ownerID, deliveryDraft(), false)
	require.ErrorIs(t, err, ErrLookupFailed)
	require.Equal(t, StateError, flow.State)
	require.Equal(t, EventFlowFailed, event.Kind)

	stored, err := fx.store.Get(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, StateError, stored.State)
}

func TestStartFlowNormalizesLineItems(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	ctx := context.Background()

	draft := Draft{DocumentType: DocumentTypeDeliveryNote, LineItems: []LineItem{{Description: "Widget", Quantity: 1, UnitPrice: 2, LineTotal: 2}}}
	flow, _, err := fx.service.StartFlow(ctx, ownerID, draft, false)
	require.NoError(t, err)
	require.NotEmpty(t, flow.Draft.LineItems[0].LocalID)
	require.Equal(t, IdentityProvisional, flow.Draft.LineItems[0].Identity)
}

func startAwaitingSupplier(t *testing.T, fx *serviceFixture, draft Draft) *Flow {
	t.Helper()
	flow, event, err := fx.service.StartFlow(context.Background(), ownerID, draft, false)
	require.NoError(t, err)
	require.Equal(t, EventAwaitingSupplier, event.Kind)
	return flow
}

func TestConfirmSupplierCreateNewAdvancesToReview(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	flow := startAwaitingSupplier(t, fx, deliveryDraft())
	ctx := context.Background()

	event, err := fx.service.ConfirmSupplier(ctx, ownerID, flow.ID, SupplierDecision{
		Name: "Nova Ltd", Option: TermNet60, CreateNew: true, TaxID: "514000000",
	})
	require.NoError(t, err)
	require.Equal(t, EventAwaitingReview, event.Kind, "unknown delivery-note items need onboarding")
	require.Len(t, event.ReviewItems, 1)
	require.Len(t, fx.suppliers.created, 1)
	require.Equal(t, "Net 60", fx.suppliers.created[0].TermsLabel)
	require.Equal(t, "Nova Ltd", event.Draft.SupplierName)
	require.Equal(t, TermNet60, event.Draft.PaymentTermOption)
}

func TestConfirmSupplierExistingNoChangeSkipsWrite(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(acmeSupplier("")), &memoryCatalog{})
	draft := Draft{DocumentType: DocumentTypeInvoice, SupplierName: "Acme Corp"}
	flow := startAwaitingSupplier(t, fx, draft)
	ctx := context.Background()

	_, err := fx.service.ConfirmSupplier(ctx, ownerID, flow.ID, SupplierDecision{
		Name: "Acme Corp", Option: TermNone, ExistingID: 1,
	})
	require.NoError(t, err)
	require.Empty(t, fx.suppliers.updates)
}

func TestConfirmSupplierExistingUpdatesChangedTerms(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(acmeSupplier("")), &memoryCatalog{})
	draft := Draft{DocumentType: DocumentTypeInvoice, SupplierName: "Acme Corp"}
	flow := startAwaitingSupplier(t, fx, draft)
	ctx := context.Background()

	_, err := fx.service.ConfirmSupplier(ctx, ownerID, flow.ID, SupplierDecision{
		Name: "Acme Corp", Option: TermNet30, ExistingID: 1,
	})
	require.NoError(t, err)
	fields, ok := fx.suppliers.updates[1]
	require.True(t, ok)
	require.Equal(t, "Net 30", *fields.TermsLabel)
	require.Nil(t, fields.TaxID)
}

func TestConfirmSupplierWriteFailureIsRetryable(t *testing.T) {
	sup := newMemorySuppliers()
	fx := newServiceFixture(sup, &memoryCatalog{})
	flow := startAwaitingSupplier(t, fx, deliveryDraft())
	ctx := context.Background()

	sup.writeErr = errors.New("pg down")
	_, err := fx.service.ConfirmSupplier(ctx, ownerID, flow.ID, SupplierDecision{
		Name: "Nova Ltd", Option: TermNet30, CreateNew: true,
	})
	require.ErrorIs(t, err, ErrSupplierWrite)

	stored, getErr := fx.store.Get(ctx, ownerID, flow.ID)
	require.NoError(t, getErr)
	require.Equal(t, StateSupplierPaymentDetails, stored.State)
	require.Equal(t, "Nova Ltd", stored.Draft.SupplierName, "entered fields survive the failed write")
	require.False(t, stored.SupplierWriteInFlight)

	sup.writeErr = nil
	event, err := fx.service.ConfirmSupplier(ctx, ownerID, flow.ID, SupplierDecision{
		Name: "Nova Ltd", Option: TermNet30, CreateNew: true,
	})
	require.NoError(t, err)
	require.Equal(t, EventAwaitingReview, event.Kind)
}

func TestConfirmSupplierRejectsWrongState(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	ctx := context.Background()

	flow, _, err := fx.service.StartFlow(ctx, ownerID, deliveryDraft(), true)
	require.NoError(t, err)

	_, err = fx.service.ConfirmSupplier(ctx, ownerID, flow.ID, SupplierDecision{Name: "X"})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmSupplierRejectsReentrantWrite(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	flow := startAwaitingSupplier(t, fx, deliveryDraft())
	ctx := context.Background()

	stored, err := fx.store.Get(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	stored.SupplierWriteInFlight = true
	require.NoError(t, fx.store.Save(ctx, stored))

	_, err = fx.service.ConfirmSupplier(ctx, ownerID, flow.ID, SupplierDecision{Name: "X"})
	require.ErrorIs(t, err, ErrBusy)
}

func TestCancelSupplierStepAdvances(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	flow := startAwaitingSupplier(t, fx, deliveryDraft())
	ctx := context.Background()

	event, err := fx.service.CancelSupplierStep(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, EventAwaitingReview, event.Kind)
	require.Empty(t, fx.suppliers.created)
	require.Empty(t, fx.suppliers.updates)
}

func startInReview(t *testing.T, fx *serviceFixture) *Flow {
	t.Helper()
	flow := startAwaitingSupplier(t, fx, deliveryDraft())
	ctx := context.Background()
	event, err := fx.service.CancelSupplierStep(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, EventAwaitingReview, event.Kind)
	stored, err := fx.store.Get(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	return stored
}

func TestCompleteProductReviewNilCancelsWithoutChanges(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	flow := startInReview(t, fx)
	ctx := context.Background()

	before := flow.Draft.LineItems
	event, err := fx.service.CompleteProductReview(ctx, ownerID, flow.ID, nil)
	require.NoError(t, err)
	require.Equal(t, EventReadyToSave, event.Kind)
	require.Equal(t, before, event.Draft.LineItems)
	require.Empty(t, event.ReviewItems)
}

func TestCompleteProductReviewMergesEdits(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	flow := startInReview(t, fx)
	ctx := context.Background()

	localID := flow.Draft.LineItems[0].LocalID
	event, err := fx.service.CompleteProductReview(ctx, ownerID, flow.ID, []ReviewedItem{
		{LocalID: localID, Barcode: strPtr("729000"), SalePrice: ptr(15.0)},
	})
	require.NoError(t, err)
	require.Equal(t, StateReadyToSave, event.State)
	require.Equal(t, "729000", event.Draft.LineItems[0].Barcode)
	require.Equal(t, 15.0, *event.Draft.LineItems[0].SalePrice)
}

func TestCompleteProductReviewRejectsItemOutsideSubset(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	flow := startInReview(t, fx)
	ctx := context.Background()

	_, err := fx.service.CompleteProductReview(ctx, ownerID, flow.ID, []ReviewedItem{
		{LocalID: "not-under-review", SalePrice: ptr(15.0)},
	})
	require.ErrorIs(t, err, ErrUnknownReviewItem)

	stored, getErr := fx.store.Get(ctx, ownerID, flow.ID)
	require.NoError(t, getErr)
	require.Equal(t, StateNewProductDetails, stored.State)
	require.Nil(t, stored.Draft.LineItems[0].SalePrice)
}

func TestCompleteProductReviewRejectsWrongState(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	flow := startAwaitingSupplier(t, fx, deliveryDraft())

	_, err := fx.service.CompleteProductReview(context.Background(), ownerID, flow.ID, nil)
	require.ErrorIs(t, err, ErrInvalidState)
}

func readyToSaveFixture(t *testing.T, catalog *memoryCatalog) (*serviceFixture, *Flow) {
	t.Helper()
	fx := newServiceFixture(newMemorySuppliers(), catalog)
	flow := startInReview(t, fx)
	ctx := context.Background()
	_, err := fx.service.CompleteProductReview(ctx, ownerID, flow.ID, nil)
	require.NoError(t, err)
	stored, err := fx.store.Get(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	return fx, stored
}

func TestSaveDocumentCommitsAndRetiresFlow(t *testing.T) {
	fx, flow := readyToSaveFixture(t, &memoryCatalog{})
	ctx := context.Background()

	event, err := fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, EventCommitted, event.Kind)
	require.NotNil(t, event.Committed)
	require.Equal(t, 30.0, event.Committed.Document.TotalAmount)
	require.Len(t, fx.docs.persisted, 1)

	_, err = fx.store.Get(ctx, ownerID, flow.ID)
	require.ErrorIs(t, err, ErrFlowNotFound)

	var actions []string
	for _, rec := range fx.audit.records {
		actions = append(actions, rec.Action)
	}
	require.Contains(t, actions, "DOC_COMMIT")
}

func TestSaveDocumentPersistsMatchedCatalogIdentity(t *testing.T) {
	catalog := &memoryCatalog{snapshot: []inventory.CatalogItem{
		{ID: 5, Barcode: "111", Description: "Widget", UnitPrice: 10, SalePrice: ptr(12.0)},
	}}
	fx := newServiceFixture(newMemorySuppliers(), catalog)
	ctx := context.Background()

	draft := deliveryDraft()
	draft.LineItems[0].Barcode = "111"
	flow, _, err := fx.service.StartFlow(ctx, ownerID, draft, false)
	require.NoError(t, err)
	event, err := fx.service.CancelSupplierStep(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, EventReadyToSave, event.Kind, "matched item with a sale price skips onboarding")

	event, err = fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, EventCommitted, event.Kind)

	// The barcode-matched line carries the catalog id into the persist, so
	// the commit merges into the existing record instead of inserting a
	// duplicate.
	require.Len(t, fx.docs.persisted, 1)
	require.Equal(t, int64(5), fx.docs.persisted[0].Lines[0].InventoryID)
}

func TestSaveDocumentHaltsOnDiscrepancy(t *testing.T) {
	catalog := &memoryCatalog{snapshot: []inventory.CatalogItem{
		{ID: 1, Description: "Widget", UnitPrice: 9, SalePrice: ptr(12.0)},
	}}
	fx := newServiceFixture(newMemorySuppliers(), catalog)
	ctx := context.Background()

	draft := deliveryDraft()
	draft.LineItems[0].Barcode = "111"
	catalog.snapshot[0].Barcode = "111"
	flow, _, err := fx.service.StartFlow(ctx, ownerID, draft, false)
	require.NoError(t, err)
	_, err = fx.service.CancelSupplierStep(ctx, ownerID, flow.ID)
	require.NoError(t, err)

	event, err := fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, EventDiscrepanciesFound, event.Kind)
	require.Len(t, event.Discrepancies, 1)
	require.Equal(t, 9.0, event.Discrepancies[0].ExistingUnitPrice)
	require.Empty(t, fx.docs.persisted)

	// The halted save still counts as in flight.
	_, err = fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.ErrorIs(t, err, ErrBusy)
}

func TestResolveDiscrepanciesNilAbortsWithoutSideEffects(t *testing.T) {
	catalog := &memoryCatalog{snapshot: []inventory.CatalogItem{
		{ID: 1, Barcode: "111", Description: "Widget", UnitPrice: 9, SalePrice: ptr(12.0)},
	}}
	fx := newServiceFixture(newMemorySuppliers(), catalog)
	ctx := context.Background()

	draft := deliveryDraft()
	draft.LineItems[0].Barcode = "111"
	flow, _, err := fx.service.StartFlow(ctx, ownerID, draft, false)
	require.NoError(t, err)
	_, err = fx.service.CancelSupplierStep(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	_, err = fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.NoError(t, err)

	event, err := fx.service.ResolveDiscrepancies(ctx, ownerID, flow.ID, nil)
	require.NoError(t, err)
	require.Equal(t, EventSaveAborted, event.Kind)
	require.Empty(t, fx.docs.persisted)
	require.Equal(t, 10.0, event.Draft.LineItems[0].UnitPrice, "draft stays as entered")

	// The flow is back to a saveable state.
	stored, err := fx.store.Get(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, StateReadyToSave, stored.State)
	require.False(t, stored.SaveInFlight)
	require.Empty(t, stored.Discrepancies)
}

func TestResolveDiscrepanciesCommitsAdjustedPrices(t *testing.T) {
	catalog := &memoryCatalog{snapshot: []inventory.CatalogItem{
		{ID: 1, Barcode: "111", Description: "Widget", UnitPrice: 9, SalePrice: ptr(12.0)},
	}}
	fx := newServiceFixture(newMemorySuppliers(), catalog)
	ctx := context.Background()

	draft := deliveryDraft()
	draft.LineItems[0].Barcode = "111"
	flow, _, err := fx.service.StartFlow(ctx, ownerID, draft, false)
	require.NoError(t, err)
	_, err = fx.service.CancelSupplierStep(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	event, err := fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.NoError(t, err)

	localID := event.Discrepancies[0].Line.LocalID
	event, err = fx.service.ResolveDiscrepancies(ctx, ownerID, flow.ID, []Resolution{
		{LineLocalID: localID, Choice: ResolutionKeepExisting},
	})
	require.NoError(t, err)
	require.Equal(t, EventCommitted, event.Kind)
	require.Len(t, fx.docs.persisted, 1)
	require.Equal(t, 9.0, fx.docs.persisted[0].Lines[0].UnitPrice)
	require.Equal(t, 27.0, fx.docs.persisted[0].Lines[0].LineTotal)
}

func TestResolveDiscrepanciesRejectsWithoutOpenSet(t *testing.T) {
	fx, flow := readyToSaveFixture(t, &memoryCatalog{})
	_, err := fx.service.ResolveDiscrepancies(context.Background(), ownerID, flow.ID, nil)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSaveDocumentRejectsEmptyDeliveryNote(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	ctx := context.Background()

	draft := Draft{DocumentType: DocumentTypeDeliveryNote}
	flow, _, err := fx.service.StartFlow(ctx, ownerID, draft, false)
	require.NoError(t, err)
	_, err = fx.service.CancelSupplierStep(ctx, ownerID, flow.ID)
	require.NoError(t, err)

	_, err = fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.ErrorIs(t, err, ErrNoLineItems)
	require.Empty(t, fx.docs.persisted)
}

func TestSaveDocumentSnapshotFailureKeepsFlowSaveable(t *testing.T) {
	catalog := &memoryCatalog{}
	fx, flow := readyToSaveFixture(t, catalog)
	ctx := context.Background()

	catalog.err = errors.New("pg down")
	_, err := fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.ErrorIs(t, err, ErrLookupFailed)

	stored, getErr := fx.store.Get(ctx, ownerID, flow.ID)
	require.NoError(t, getErr)
	require.Equal(t, StateReadyToSave, stored.State)
	require.False(t, stored.SaveInFlight)

	catalog.err = nil
	event, err := fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, EventCommitted, event.Kind)
}

func TestSaveDocumentPersistFailureKeepsDraft(t *testing.T) {
	fx, flow := readyToSaveFixture(t, &memoryCatalog{})
	ctx := context.Background()

	fx.docs.failWith = errors.New("tx aborted")
	_, err := fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.ErrorIs(t, err, ErrPersistFailed)

	stored, getErr := fx.store.Get(ctx, ownerID, flow.ID)
	require.NoError(t, getErr)
	require.Equal(t, StateReadyToSave, stored.State)
	require.False(t, stored.SaveInFlight)
	require.Len(t, stored.Draft.LineItems, 1)

	fx.docs.failWith = nil
	event, err := fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, EventCommitted, event.Kind)
}

func TestResolveDiscrepanciesPersistFailureRestoresDraft(t *testing.T) {
	catalog := &memoryCatalog{snapshot: []inventory.CatalogItem{
		{ID: 1, Barcode: "111", Description: "Widget", UnitPrice: 9, SalePrice: ptr(12.0)},
	}}
	fx := newServiceFixture(newMemorySuppliers(), catalog)
	ctx := context.Background()

	draft := deliveryDraft()
	draft.LineItems[0].Barcode = "111"
	flow, _, err := fx.service.StartFlow(ctx, ownerID, draft, false)
	require.NoError(t, err)
	_, err = fx.service.CancelSupplierStep(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	event, err := fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, EventDiscrepanciesFound, event.Kind)

	fx.docs.failWith = errors.New("tx aborted")
	localID := event.Discrepancies[0].Line.LocalID
	_, err = fx.service.ResolveDiscrepancies(ctx, ownerID, flow.ID, []Resolution{
		{LineLocalID: localID, Choice: ResolutionKeepExisting},
	})
	require.ErrorIs(t, err, ErrPersistFailed)

	// The resolved prices are rolled back with the rest of the save run.
	stored, getErr := fx.store.Get(ctx, ownerID, flow.ID)
	require.NoError(t, getErr)
	require.Equal(t, 10.0, stored.Draft.LineItems[0].UnitPrice, "draft stays as entered")
	require.False(t, stored.SaveInFlight)
	require.Empty(t, stored.Discrepancies)

	// A retried save re-detects against the catalog.
	fx.docs.failWith = nil
	event, err = fx.service.SaveDocument(ctx, ownerID, flow.ID)
	require.NoError(t, err)
	require.Equal(t, EventDiscrepanciesFound, event.Kind)
	require.Len(t, event.Discrepancies, 1)
}

func TestSaveDocumentRejectsWrongState(t *testing.T) {
	fx := newServiceFixture(newMemorySuppliers(), &memoryCatalog{})
	flow := startAwaitingSupplier(t, fx, deliveryDraft())

	_, err := fx.service.SaveDocument(context.Background(), ownerID, flow.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}
