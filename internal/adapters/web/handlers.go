package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"stock-engine/internal/app"
	"stock-engine/internal/idempotency"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc           app.ApplicationService
	router        chi.Router
	jwtSecret     string
	secureCookies bool
	logger        *zap.Logger
	idem          idempotency.Store
}

// NewHandler creates and wires the chi router with all routes.
// A nil idem disables Idempotency-Key handling.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string, logger *zap.Logger, idem idempotency.Store, secureCookies bool) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idem == nil {
		idem = idempotency.Noop()
	}
	h := &Handler{
		svc:           svc,
		jwtSecret:     jwtSecret,
		secureCookies: secureCookies,
		logger:        logger,
		idem:          idem,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)
	r.Get("/api/schemas/{intent}", h.schema)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// Catalog
		r.Get("/api/products", h.apiListProducts)
		r.Get("/api/raw-materials", h.apiListRawMaterials)
		r.Get("/api/warehouses", h.apiListWarehouses)

		// Stock
		r.Get("/api/stock/products", h.apiStockLevels)
		r.Get("/api/stock/raw-materials", h.apiRawMaterialLevels)
		r.Get("/api/stock/ledger/{kind}/{id}", h.apiItemLedger)
		r.Get("/api/stock/transfers", h.apiListTransfers)

		// Invoices
		r.Get("/api/invoices", h.apiListInvoices)
		r.Get("/api/invoices/{id}", h.apiGetInvoice)

		// Production
		r.Get("/api/production-requirements", h.apiListRequirements)
		r.Get("/api/production-requirements/{id}", h.apiGetRequirement)
		r.Get("/api/production-requirements/by-product/{productID}", h.apiGetRequirementByProduct)
		r.Post("/api/production/calculate", h.apiCalculateMaterials)

		// Mutations honour Idempotency-Key.
		r.Group(func(r chi.Router) {
			r.Use(h.Idempotent)

			r.Post("/api/products", h.apiCreateProduct)
			r.Post("/api/raw-materials", h.apiCreateRawMaterial)
			r.Post("/api/raw-materials/{id}/intake", h.apiReceiveRawMaterial)
			r.Post("/api/warehouses", h.apiCreateWarehouse)

			r.Post("/api/stock/intake", h.apiIntakeStock)
			r.Post("/api/stock/transfer", h.apiTransferStock)
			r.Post("/api/products/{id}/status/recompute", h.apiRecomputeStatus)
			r.Post("/api/stock/status/refresh", h.apiRefreshStatuses)

			r.Post("/api/invoices", h.apiCreateInvoice)

			r.Post("/api/production-requirements", h.apiCreateRequirement)
			r.Put("/api/production-requirements/{id}", h.apiReplaceRequirementItems)
			r.Delete("/api/production-requirements/{id}", h.apiDeleteRequirement)
			r.Post("/api/production/approve", h.apiApproveProduction)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter, writing 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid "+name, "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryLimit reads ?limit=; zero lets the service pick its default.
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
