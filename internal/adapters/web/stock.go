package web

import (
	"net/http"

	"stock-engine/internal/core"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) apiStockLevels(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetStockLevels(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) apiRawMaterialLevels(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetRawMaterialLevels(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiItemLedger handles GET /api/stock/ledger/{kind}/{id}, kind being
// "product" or "raw_material".
func (h *Handler) apiItemLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item := core.ItemRef{Kind: core.ItemKind(chi.URLParam(r, "kind")), ID: id}
	if err := item.Validate(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	res, err := h.svc.GetItemLedger(r.Context(), item)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiIntakeStock handles POST /api/stock/intake.
func (h *Handler) apiIntakeStock(w http.ResponseWriter, r *http.Request) {
	var in core.IntakeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	rec, err := h.svc.IntakeStock(r.Context(), actorFromRequest(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, rec)
}

// apiTransferStock handles POST /api/stock/transfer.
func (h *Handler) apiTransferStock(w http.ResponseWriter, r *http.Request) {
	var in core.TransferInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.svc.TransferStock(r.Context(), actorFromRequest(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, t)
}

// apiListTransfers handles GET /api/stock/transfers?limit=N.
func (h *Handler) apiListTransfers(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListTransfers(r.Context(), queryLimit(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiRecomputeStatus handles POST /api/products/{id}/status/recompute.
func (h *Handler) apiRecomputeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.svc.RecomputeStatus(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiRefreshStatuses handles POST /api/stock/status/refresh. Admin only.
func (h *Handler) apiRefreshStatuses(w http.ResponseWriter, r *http.Request) {
	if actorFromRequest(r).Role != core.RoleAdmin {
		writeError(w, r, "admin role required", "FORBIDDEN", http.StatusForbidden)
		return
	}
	res, err := h.svc.RefreshStatuses(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
