// Package server exposes the ledger over a JSON HTTP API. Handlers stay
// thin: decode, call the service, map the error taxonomy to status codes.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"partnerledger/internal/auth"
	"partnerledger/internal/errs"
	"partnerledger/internal/metrics"
	"partnerledger/internal/middleware"
	"partnerledger/internal/roster"
	"partnerledger/internal/service"
)

// Server holds the handler dependencies.
type Server struct {
	svc    *service.TransactionService
	roster *roster.Resolver
	authn  auth.Authenticator
	jwt    *auth.JWTManager
}

// New wires a Server over the given collaborators.
func New(svc *service.TransactionService, r *roster.Resolver, authn auth.Authenticator, jwt *auth.JWTManager) *Server {
	return &Server{svc: svc, roster: r, authn: authn, jwt: jwt}
}

// Routes builds the full route table. Everything under /api except the
// auth endpoints requires a Bearer token.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/transactions", s.handleList)
	protected.HandleFunc("POST /api/transactions", s.handleCreate)
	protected.HandleFunc("DELETE /api/transactions", s.handleClearAll)
	protected.HandleFunc("GET /api/transactions/feed", s.handleFeed)
	protected.HandleFunc("POST /api/transactions/import", s.handleImport)
	protected.HandleFunc("GET /api/transactions/{id}", s.handleGet)
	protected.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdate)
	protected.HandleFunc("DELETE /api/transactions/{id}", s.handleDelete)
	protected.HandleFunc("GET /api/roster/partners", s.handleListPartners)
	protected.HandleFunc("GET /api/roster/bosses", s.handleListBosses)
	protected.HandleFunc("GET /api/summary", s.handleSummary)
	mux.Handle("/api/", middleware.RequireAuth(s.jwt, protected))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	return middleware.Logging(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrEmailExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validationf("malformed request body: %v", err)
	}
	return nil
}
