package web

import (
	"net/http"

	"stock-engine/internal/core"
)

// apiCreateInvoice handles POST /api/invoices. The whole invoice commits or
// nothing does; a shortage on any line returns 409 INSUFFICIENT_STOCK.
func (h *Handler) apiCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var in core.InvoiceInput
	if !decodeJSON(w, r, &in) {
		return
	}
	inv, err := h.svc.CreateInvoice(r.Context(), actorFromRequest(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, inv)
}

func (h *Handler) apiGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListInvoices(r.Context(), queryLimit(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
