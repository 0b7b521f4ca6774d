package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dukaanbill/backend/internal/backend"
	"dukaanbill/backend/internal/billing"
	"dukaanbill/backend/internal/cart"
	"dukaanbill/backend/internal/domain"
	"dukaanbill/backend/internal/export"
	"dukaanbill/backend/internal/history"
	"dukaanbill/backend/internal/render"
)

type API struct {
	svc           *billing.Service
	auth          *AuthManager
	renderer      *render.Engine
	allowedOrigin string
}

func New(svc *billing.Service, auth *AuthManager, renderer *render.Engine, allowedOrigin string) *API {
	return &API{
		svc:           svc,
		auth:          auth,
		renderer:      renderer,
		allowedOrigin: allowedOrigin,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/v1/sessions", a.requireAuth(a.handleSessions, "cashier", "admin"))
	mux.HandleFunc("/api/v1/sessions/", a.requireAuth(a.handleSessionActions, "cashier", "admin"))
	mux.HandleFunc("/api/v1/invoices", a.requireAuth(a.handleInvoices, "cashier", "admin"))
	mux.HandleFunc("/api/v1/invoices/", a.requireAuth(a.handleInvoiceActions, "cashier", "admin"))
	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, "cashier", "admin"))
	mux.HandleFunc("/api/v1/customers", a.requireAuth(a.handleCustomers, "cashier", "admin"))
	mux.HandleFunc("/api/v1/tax-config", a.requireAuth(a.handleTaxConfig, "cashier", "admin"))
	mux.HandleFunc("/api/v1/company", a.requireAuth(a.handleCompany, "cashier", "admin"))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(withActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		TerminalID string `json:"terminal_id"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	snap, err := a.svc.OpenSession(r.Context(), req.TerminalID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session": snap})
}

// handleSessionActions dispatches /api/v1/sessions/{id}[/{action}[/{productID}]].
func (a *API) handleSessionActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, errors.New("session id required"))
		return
	}
	sessionID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		snap, err := a.svc.Snapshot(sessionID)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session": snap})
		return
	}

	switch parts[1] {
	case "lines":
		a.handleSessionLines(w, r, sessionID, parts[2:])
	case "mode":
		a.handleSessionMode(w, r, sessionID)
	case "customer":
		a.handleSessionCustomer(w, r, sessionID)
	case "payment-mode":
		a.handleSessionPaymentMode(w, r, sessionID)
	case "submit":
		a.handleSessionSubmit(w, r, sessionID)
	case "clear":
		a.handleSessionClear(w, r, sessionID)
	default:
		writeError(w, http.StatusBadRequest, errors.New("invalid session action path"))
	}
}

func (a *API) handleSessionLines(w http.ResponseWriter, r *http.Request, sessionID string, rest []string) {
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.AddLineRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		snap, err := a.svc.AddLine(r.Context(), sessionID, req)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session": snap})

	case len(rest) == 1 && rest[0] != "":
		productID := rest[0]
		switch r.Method {
		case http.MethodPatch:
			var req domain.UpdateLineRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			snap, err := a.svc.UpdateLine(r.Context(), sessionID, productID, req)
			if err != nil {
				writeError(w, statusForError(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"session": snap})
		case http.MethodDelete:
			snap, err := a.svc.RemoveLine(sessionID, productID)
			if err != nil {
				writeError(w, statusForError(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"session": snap})
		default:
			writeMethodNotAllowed(w)
		}

	default:
		writeError(w, http.StatusBadRequest, errors.New("invalid line path"))
	}
}

func (a *API) handleSessionMode(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.SwitchModeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, err := a.svc.SwitchMode(sessionID, req.Mode)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": snap})
}

func (a *API) handleSessionCustomer(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.SelectCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, err := a.svc.SelectCustomer(r.Context(), sessionID, req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": snap})
}

func (a *API) handleSessionPaymentMode(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.SetPaymentModeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, err := a.svc.SetPaymentMode(sessionID, req.PaymentMode)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": snap})
}

func (a *API) handleSessionSubmit(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	result, err := a.svc.Submit(r.Context(), sessionID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	snap, err := a.svc.Snapshot(sessionID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"result": result, "session": snap})
}

func (a *API) handleSessionClear(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	snap, err := a.svc.Clear(sessionID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": snap})
}

func (a *API) handleInvoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	records, err := a.svc.ListInvoices(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	filter := domain.InvoiceFilter{
		Query:         r.URL.Query().Get("q"),
		PaymentStatus: r.URL.Query().Get("status"),
	}
	if from, ok := parseDate(r.URL.Query().Get("from"), false); ok {
		filter.From = &from
	}
	if to, ok := parseDate(r.URL.Query().Get("to"), true); ok {
		filter.To = &to
	}

	filtered := history.Filter(records, filter)
	page := parsePositiveLimit(r.URL.Query().Get("page"), 1, 0)
	perPage := parsePositiveLimit(r.URL.Query().Get("per_page"), 20, 100)
	paged, total := history.Paginate(filtered, page, perPage)

	writeJSON(w, http.StatusOK, map[string]any{
		"invoices": paged,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// handleInvoiceActions dispatches /api/v1/invoices/{id}[/{action}].
func (a *API) handleInvoiceActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/invoices/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, errors.New("invoice id required"))
		return
	}
	invoiceID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			rec, err := a.svc.GetInvoice(r.Context(), invoiceID)
			if err != nil {
				writeError(w, statusForError(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"invoice": rec})
		case http.MethodDelete:
			a.handleInvoiceDelete(w, r, invoiceID)
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	switch parts[1] {
	case "document":
		a.handleInvoiceDocument(w, r, invoiceID)
	case "export":
		a.handleInvoiceExport(w, r, invoiceID)
	case "payments":
		a.handleInvoicePayments(w, r, invoiceID)
	default:
		writeError(w, http.StatusBadRequest, errors.New("invalid invoice action path"))
	}
}

// handleInvoiceDelete requires an explicit confirm=true flag and the admin
// role; a misfired DELETE from the history screen must not destroy records.
func (a *API) handleInvoiceDelete(w http.ResponseWriter, r *http.Request, invoiceID string) {
	actor, _ := ActorFrom(r.Context())
	if actor.Role != "admin" {
		writeError(w, http.StatusForbidden, errors.New("forbidden role"))
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, errors.New("confirm=true required to delete an invoice"))
		return
	}

	remaining, err := a.svc.DeleteInvoice(r.Context(), invoiceID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "invoices": remaining})
}

func (a *API) handleInvoiceDocument(w http.ResponseWriter, r *http.Request, invoiceID string) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	target, err := render.ParseTarget(r.URL.Query().Get("target"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := a.svc.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	company, err := a.svc.CompanyDetails(r.Context())
	if err != nil {
		// Render with an empty letterhead rather than failing the print.
		log.Printf("[httpapi] WARN: company details unavailable: %v", err)
		company = domain.CompanyDetails{}
	}

	doc, err := a.renderer.Render(*rec, company, target)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (a *API) handleInvoiceExport(w http.ResponseWriter, r *http.Request, invoiceID string) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	rec, err := a.svc.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	payload, err := export.Invoice(*rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(*rec)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (a *API) handleInvoicePayments(w http.ResponseWriter, r *http.Request, invoiceID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.RecordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := a.svc.RecordPayment(r.Context(), invoiceID, req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice": updated})
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	products, err := a.svc.Products(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	customers, err := a.svc.Customers(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (a *API) handleTaxConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tax_config": a.svc.TaxConfig()})
}

func (a *API) handleCompany(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	company, err := a.svc.CompanyDetails(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"company": company})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")
		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// statusForError maps service and gateway sentinels onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, billing.ErrSessionNotFound),
		errors.Is(err, backend.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, billing.ErrSubmitInFlight),
		errors.Is(err, cart.ErrStockExceeded):
		return http.StatusConflict
	case errors.Is(err, billing.ErrEmptyCart),
		errors.Is(err, billing.ErrCustomerRequired),
		errors.Is(err, billing.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, billing.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, backend.ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseDate(raw string, endOfDay bool) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, true
	}
	if day, err := time.Parse("2006-01-02", raw); err == nil {
		if endOfDay {
			return day.Add(24*time.Hour - time.Nanosecond), true
		}
		return day, true
	}
	return time.Time{}, false
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx details stay in the log; clients get a generic message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
