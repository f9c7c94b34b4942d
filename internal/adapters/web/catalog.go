package web

import (
	"net/http"

	"stock-engine/internal/core"
)

// apiListProducts handles GET /api/products.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiCreateProduct handles POST /api/products.
func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in core.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, p)
}

// apiListRawMaterials handles GET /api/raw-materials.
func (h *Handler) apiListRawMaterials(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListRawMaterials(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiCreateRawMaterial handles POST /api/raw-materials.
func (h *Handler) apiCreateRawMaterial(w http.ResponseWriter, r *http.Request) {
	var in core.RawMaterialInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.svc.CreateRawMaterial(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, m)
}

// apiReceiveRawMaterial handles POST /api/raw-materials/{id}/intake.
// The path id wins over any raw_material_id in the body.
func (h *Handler) apiReceiveRawMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in core.RawMaterialIntakeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.RawMaterialID = id
	m, err := h.svc.ReceiveRawMaterial(r.Context(), actorFromRequest(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, m)
}

// apiListWarehouses handles GET /api/warehouses.
func (h *Handler) apiListWarehouses(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListWarehouses(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiCreateWarehouse handles POST /api/warehouses.
func (h *Handler) apiCreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var in core.WarehouseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	wh, err := h.svc.CreateWarehouse(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, wh)
}
