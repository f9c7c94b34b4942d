package web

import (
	"net/http"

	"stock-engine/internal/core"
)

func (h *Handler) apiListRequirements(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListRequirements(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) apiGetRequirement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	req, err := h.svc.GetRequirement(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, req)
}

func (h *Handler) apiGetRequirementByProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	req, err := h.svc.GetRequirementByProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, req)
}

func (h *Handler) apiCreateRequirement(w http.ResponseWriter, r *http.Request) {
	var in core.RequirementInput
	if !decodeJSON(w, r, &in) {
		return
	}
	req, err := h.svc.CreateRequirement(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, req)
}

// apiReplaceRequirementItems handles PUT /api/production-requirements/{id}.
// The body's item list replaces the stored one entirely.
func (h *Handler) apiReplaceRequirementItems(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Items []core.RequirementItemInput `json:"items"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := h.svc.ReplaceRequirementItems(r.Context(), id, body.Items)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, req)
}

func (h *Handler) apiDeleteRequirement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteRequirement(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// calculateRequest is the body of POST /api/production/calculate.
type calculateRequest struct {
	ProductID int `json:"product_id" jsonschema:"minimum=1"`
	Quantity  int `json:"quantity" jsonschema:"minimum=1"`
}

// apiCalculateMaterials is read-only: it reports shortfalls without consuming anything.
func (h *Handler) apiCalculateMaterials(w http.ResponseWriter, r *http.Request) {
	var in calculateRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	calc, err := h.svc.CalculateMaterials(r.Context(), in.ProductID, in.Quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, calc)
}

// apiApproveProduction handles POST /api/production/approve. Either every
// raw material is consumed or none is.
func (h *Handler) apiApproveProduction(w http.ResponseWriter, r *http.Request) {
	var in core.ProductionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.svc.ApproveProduction(r.Context(), actorFromRequest(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
