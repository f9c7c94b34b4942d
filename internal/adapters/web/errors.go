package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"stock-engine/internal/core"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}

type errorMapping struct {
	target error
	code   string
	status int
}

// Order matters: ShortageError unwraps to one of the insufficient sentinels
// and AccessDeniedError to ErrWarehouseAccessDenied.
var serviceErrors = []errorMapping{
	{core.ErrInsufficientStock, "INSUFFICIENT_STOCK", http.StatusConflict},
	{core.ErrInsufficientRawMaterial, "INSUFFICIENT_RAW_MATERIAL", http.StatusConflict},
	{core.ErrWarehouseAccessDenied, "WAREHOUSE_ACCESS_DENIED", http.StatusForbidden},
	{core.ErrProductNotFound, "PRODUCT_NOT_FOUND", http.StatusNotFound},
	{core.ErrRawMaterialNotFound, "RAW_MATERIAL_NOT_FOUND", http.StatusNotFound},
	{core.ErrWarehouseNotFound, "WAREHOUSE_NOT_FOUND", http.StatusNotFound},
	{core.ErrRequirementNotFound, "REQUIREMENT_NOT_FOUND", http.StatusNotFound},
	{core.ErrInvoiceNotFound, "INVOICE_NOT_FOUND", http.StatusNotFound},
	{core.ErrInvalidQuantity, "INVALID_QUANTITY", http.StatusBadRequest},
	{core.ErrInvalidItem, "INVALID_ITEM", http.StatusBadRequest},
	{core.ErrSameWarehouse, "SAME_WAREHOUSE", http.StatusBadRequest},
	{core.ErrInvalidTransfer, "INVALID_TRANSFER", http.StatusBadRequest},
	{core.ErrInvalidInvoice, "INVALID_INVOICE", http.StatusBadRequest},
	{core.ErrInvalidRequirement, "INVALID_REQUIREMENT", http.StatusBadRequest},
	{core.ErrInvalidCatalogEntry, "INVALID_CATALOG_ENTRY", http.StatusBadRequest},
	{core.ErrDuplicateInvoiceNumber, "DUPLICATE_INVOICE_NUMBER", http.StatusConflict},
	{core.ErrDuplicateCode, "DUPLICATE_CODE", http.StatusConflict},
	{core.ErrRequirementExists, "REQUIREMENT_EXISTS", http.StatusConflict},
}

// classify maps a service error to its wire code and HTTP status.
func classify(err error) (string, int) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			return m.code, m.status
		}
	}
	return "INTERNAL_ERROR", http.StatusInternalServerError
}

// writeServiceError writes err using the sentinel table. Unclassified errors
// are logged and reported without their internal message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, status := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, r, "internal server error", code, status)
		return
	}
	writeError(w, r, err.Error(), code, status)
}
