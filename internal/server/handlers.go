package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"partnerledger/internal/errs"
	"partnerledger/internal/middleware"
	"partnerledger/internal/models"
	"partnerledger/internal/service"
)

type registerRequest struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	Password string      `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := s.authn.Register(r.Context(), req.Email, req.Name, req.Role, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := s.jwt.Generate(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := s.authn.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := s.jwt.Generate(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

type createTransactionRequest struct {
	PartnerID         string               `json:"partner_id"`
	CounterpartyID    string               `json:"counterparty_id"`
	CustomerName      string               `json:"customer_name"`
	Date              string               `json:"date"`
	TotalRevenue      decimal.Decimal      `json:"total_revenue"`
	Expenses          []models.ExpenseItem `json:"expenses"`
	PartnerPercentage int64                `json:"partner_percentage"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tx, err := s.svc.Create(r.Context(), middleware.GetActor(r.Context()), service.CreateInput{
		PartnerID:         req.PartnerID,
		CounterpartyID:    req.CounterpartyID,
		CustomerName:      req.CustomerName,
		Date:              req.Date,
		TotalRevenue:      req.TotalRevenue,
		Expenses:          req.Expenses,
		PartnerPercentage: req.PartnerPercentage,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.List(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Get(r.Context(), middleware.GetActor(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// updateTransactionRequest mirrors the patchable input fields. Absent
// keys stay nil and leave the stored field alone.
type updateTransactionRequest struct {
	PartnerID         *string               `json:"partner_id"`
	CounterpartyID    *string               `json:"counterparty_id"`
	CustomerName      *string               `json:"customer_name"`
	Date              *string               `json:"date"`
	TotalRevenue      *decimal.Decimal      `json:"total_revenue"`
	Expenses          *[]models.ExpenseItem `json:"expenses"`
	PartnerPercentage *int64                `json:"partner_percentage"`
	IsPaidToPartner   *bool                 `json:"is_paid_to_partner"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	patch := models.TransactionPatch{
		PartnerID:         req.PartnerID,
		CounterpartyID:    req.CounterpartyID,
		CustomerName:      req.CustomerName,
		Date:              req.Date,
		TotalRevenue:      req.TotalRevenue,
		Expenses:          req.Expenses,
		PartnerPercentage: req.PartnerPercentage,
		IsPaidToPartner:   req.IsPaidToPartner,
	}
	tx, err := s.svc.Update(r.Context(), middleware.GetActor(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), middleware.GetActor(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.svc.ClearAll(r.Context(), middleware.GetActor(r.Context()))
	if err != nil && !errors.Is(err, errs.ErrPartialFailure) {
		writeError(w, err)
		return
	}

	resp := map[string]any{"deleted": deleted}
	if err != nil {
		resp["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var legacy []models.LegacyRecord
	if err := decodeJSON(r, &legacy); err != nil {
		writeError(w, err)
		return
	}

	imported, err := s.svc.Import(r.Context(), middleware.GetActor(r.Context()), legacy)
	if err != nil && !errors.Is(err, errs.ErrPartialFailure) {
		writeError(w, err)
		return
	}

	resp := map[string]any{"imported": imported}
	if err != nil {
		resp["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// The roster endpoints back the party-selection controls on the create
// and edit forms, which are boss-only surfaces.
func (s *Server) handleListPartners(w http.ResponseWriter, r *http.Request) {
	if !middleware.GetActor(r.Context()).IsBoss() {
		writeError(w, errs.Unauthorizedf("roster listing requires the boss role"))
		return
	}
	users, err := s.roster.ListPartners(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleListBosses(w http.ResponseWriter, r *http.Request) {
	if !middleware.GetActor(r.Context()).IsBoss() {
		writeError(w, errs.Unauthorizedf("roster listing requires the boss role"))
		return
	}
	users, err := s.roster.ListBosses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type summaryResponse struct {
	Totals   service.Totals       `json:"totals"`
	Partners []service.PartnerRef `json:"partners"`
	Count    int                  `json:"count"`
}

// handleSummary aggregates the actor's visible records. The optional
// partner query parameter narrows the totals to one partner; "all" (or
// omitting it) covers everything visible.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.List(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	filtered := service.FilterByPartner(records, r.URL.Query().Get("partner"))
	writeJSON(w, http.StatusOK, summaryResponse{
		Totals:   service.Aggregate(filtered),
		Partners: service.UniquePartners(records),
		Count:    len(filtered),
	})
}

// handleFeed streams the actor's visible records over server-sent events.
// Every event carries the full refreshed listing; the client replaces its
// view wholesale, so a missed event is repaired by the next one.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming unsupported by the connection"))
		return
	}

	events := make(chan []models.Transaction, 1)
	cancel, err := s.svc.Subscribe(r.Context(), middleware.GetActor(r.Context()), func(records []models.Transaction) {
		select {
		case events <- records:
		case <-r.Context().Done():
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case records := <-events:
			if err := writeEvent(w, records); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, records []models.Transaction) error {
	if records == nil {
		records = []models.Transaction{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
