package docflow

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/doculedger/doculedger/internal/platform/httpx"
)

// Handler exposes the flow entry points to the presentation layer.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the flow handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func ownerIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "ownerID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) StartFlow(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner id")
		return
	}
	var req StartFlowRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	flow, event, err := h.service.StartFlow(r.Context(), ownerID, req.Draft, req.Existing)
	if err != nil {
		h.respondFlowError(w, "start flow", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"flow": flowResponse(flow), "event": event})
}

func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner id")
		return
	}
	flow, err := h.service.GetFlow(r.Context(), ownerID, chi.URLParam(r, "flowID"))
	if err != nil {
		h.respondFlowError(w, "get flow", err)
		return
	}
	httpx.JSON(w, http.StatusOK, flowResponse(flow))
}

func (h *Handler) ConfirmSupplier(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner id")
		return
	}
	var req ConfirmSupplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	event, err := h.service.ConfirmSupplier(r.Context(), ownerID, chi.URLParam(r, "flowID"), SupplierDecision{
		Name:       req.Name,
		Option:     PaymentTermOption(req.Option),
		DueDate:    req.DueDate,
		TaxID:      req.TaxID,
		CreateNew:  req.CreateNew,
		ExistingID: req.ExistingID,
	})
	if err != nil {
		h.respondFlowError(w, "confirm supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, event)
}

func (h *Handler) CancelSupplierStep(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner id")
		return
	}
	event, err := h.service.CancelSupplierStep(r.Context(), ownerID, chi.URLParam(r, "flowID"))
	if err != nil {
		h.respondFlowError(w, "cancel supplier step", err)
		return
	}
	httpx.JSON(w, http.StatusOK, event)
}

func (h *Handler) CompleteProductReview(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner id")
		return
	}
	var req CompleteReviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var reviewed []ReviewedItem
	if req.Items != nil {
		reviewed = *req.Items
		if reviewed == nil {
			reviewed = []ReviewedItem{}
		}
	}
	event, err := h.service.CompleteProductReview(r.Context(), ownerID, chi.URLParam(r, "flowID"), reviewed)
	if err != nil {
		h.respondFlowError(w, "complete product review", err)
		return
	}
	httpx.JSON(w, http.StatusOK, event)
}

func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner id")
		return
	}
	event, err := h.service.SaveDocument(r.Context(), ownerID, chi.URLParam(r, "flowID"))
	if err != nil {
		h.respondFlowError(w, "save document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, event)
}

func (h *Handler) ResolveDiscrepancies(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerIDFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid owner id")
		return
	}
	var req ResolveDiscrepanciesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var resolutions []Resolution
	if req.Resolutions != nil {
		resolutions = *req.Resolutions
		if resolutions == nil {
			resolutions = []Resolution{}
		}
	}
	event, err := h.service.ResolveDiscrepancies(r.Context(), ownerID, chi.URLParam(r, "flowID"), resolutions)
	if err != nil {
		h.respondFlowError(w, "resolve discrepancies", err)
		return
	}
	httpx.JSON(w, http.StatusOK, event)
}

func (h *Handler) respondFlowError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrFlowNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrBusy):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNoLineItems),
		errors.Is(err, ErrUnknownResolution),
		errors.Is(err, ErrUnknownReviewItem),
		errors.Is(err, ErrUnresolvedDiscrepancies):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrLookupFailed):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Lookup Failed", "a required lookup failed, restart the flow")
	case errors.Is(err, ErrSupplierWrite):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Supplier Write Failed", "supplier save failed, retry the step")
	case errors.Is(err, ErrPersistFailed):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Persist Failed", "document save failed, the draft is unchanged")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
