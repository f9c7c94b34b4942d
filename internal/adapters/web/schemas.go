package web

import (
	"net/http"

	"stock-engine/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"
)

// intentTypes lists the request bodies a client can ask a JSON Schema for.
var intentTypes = map[string]func() any{
	"product":      func() any { return &core.ProductInput{} },
	"raw-material": func() any { return &core.RawMaterialInput{} },
	"warehouse":    func() any { return &core.WarehouseInput{} },
	"raw-intake":   func() any { return &core.RawMaterialIntakeInput{} },
	"intake":       func() any { return &core.IntakeInput{} },
	"transfer":     func() any { return &core.TransferInput{} },
	"invoice":      func() any { return &core.InvoiceInput{} },
	"requirement":  func() any { return &core.RequirementInput{} },
	"calculate":    func() any { return &calculateRequest{} },
	"production":   func() any { return &core.ProductionInput{} },
}

func generateSchema(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}

// schema handles GET /api/schemas/{intent}.
func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	newIntent, ok := intentTypes[chi.URLParam(r, "intent")]
	if !ok {
		writeError(w, r, "unknown intent", "NOT_FOUND", http.StatusNotFound)
		return
	}
	writeJSON(w, generateSchema(newIntent()))
}
