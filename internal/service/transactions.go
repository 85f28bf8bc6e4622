// Package service implements the business rules of the ledger: actor
// authorization, split bookkeeping, the live feed, and the edit workflow.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"partnerledger/internal/calculator"
	"partnerledger/internal/errs"
	"partnerledger/internal/events"
	"partnerledger/internal/feed"
	"partnerledger/internal/metrics"
	"partnerledger/internal/models"
	"partnerledger/internal/roster"
	"partnerledger/internal/storage"
)

// TransactionService owns every mutation of the transaction set. The
// store persists, the hub fans out in-process refreshes, and the
// publisher mirrors change events to an external broker.
type TransactionService struct {
	store     storage.Store
	roster    *roster.Resolver
	hub       *feed.Hub
	publisher events.Publisher
}

// NewTransactionService wires a service over the given collaborators.
func NewTransactionService(store storage.Store, r *roster.Resolver, hub *feed.Hub, publisher events.Publisher) *TransactionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TransactionService{
		store:     store,
		roster:    r,
		hub:       hub,
		publisher: publisher,
	}
}

// CreateInput is the client-provided part of a new transaction. Derived
// fields and the counterparty percentage are computed, never accepted.
type CreateInput struct {
	PartnerID         string
	CounterpartyID    string
	CustomerName      string
	Date              string
	TotalRevenue      decimal.Decimal
	Expenses          []models.ExpenseItem
	PartnerPercentage int64
}

func requireActor(actor models.Actor) error {
	if !actor.Authenticated() {
		return errs.Unauthorizedf("authentication required")
	}
	return nil
}

func requireBoss(actor models.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsBoss() {
		return errs.Unauthorizedf("operation requires the boss role")
	}
	return nil
}

// Create validates, computes, and persists a new transaction. Boss only.
func (s *TransactionService) Create(ctx context.Context, actor models.Actor, in CreateInput) (tx *models.Transaction, err error) {
	defer func() { metrics.ObserveOp("create", err) }()

	if err = requireBoss(actor); err != nil {
		return nil, err
	}
	if in.PartnerID == "" || in.CounterpartyID == "" {
		return nil, errs.Validationf("partner and counterparty must both be set")
	}

	partner, err := s.roster.RequireRole(ctx, in.PartnerID, models.RolePartner)
	if err != nil {
		return nil, err
	}
	counterparty, err := s.roster.RequireRole(ctx, in.CounterpartyID, models.RoleBoss)
	if err != nil {
		return nil, err
	}

	pct, complement := calculator.MirrorPercent(in.PartnerPercentage)
	tx = &models.Transaction{
		PartnerID:              partner.ID,
		PartnerName:            partner.Name,
		CounterpartyID:         counterparty.ID,
		CounterpartyName:       counterparty.Name,
		CustomerName:           in.CustomerName,
		Date:                   in.Date,
		TotalRevenue:           in.TotalRevenue,
		Expenses:               append([]models.ExpenseItem(nil), in.Expenses...),
		PartnerPercentage:      pct,
		CounterpartyPercentage: complement,
	}
	tx.ApplyDefaults(time.Now())
	tx.Recompute()
	if err = tx.Validate(); err != nil {
		return nil, err
	}

	if err = s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	slog.Info("transaction created",
		"record_id", tx.ID,
		"partner_id", tx.PartnerID,
		"net_profit", tx.NetProfit,
	)
	s.notify(events.OpCreate, tx.ID, tx.PartnerID, actor)
	return tx, nil
}

// Get returns a single record if the actor is allowed to see it.
func (s *TransactionService) Get(ctx context.Context, actor models.Actor, id string) (*models.Transaction, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, tx) {
		// Hidden records are indistinguishable from absent ones.
		return nil, errs.NotFoundf("transaction %s", id)
	}
	return tx, nil
}

func canSee(actor models.Actor, tx *models.Transaction) bool {
	return actor.IsBoss() || tx.PartnerID == actor.UserID
}

// List returns the actor's visible records, newest first: everything for
// a boss, own records for a partner.
func (s *TransactionService) List(ctx context.Context, actor models.Actor) ([]models.Transaction, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	q := storage.TransactionQuery{}
	if !actor.IsBoss() {
		q.PartnerID = actor.UserID
	}
	return s.store.ListTransactions(ctx, q)
}

// Update applies a partial edit to an existing record. Boss only. Party
// reassignments refresh the cached display names; any change to revenue,
// expenses, or percentages recomputes the derived fields from the merged
// record.
func (s *TransactionService) Update(ctx context.Context, actor models.Actor, id string, patch models.TransactionPatch) (tx *models.Transaction, err error) {
	defer func() { metrics.ObserveOp("update", err) }()

	if err = requireBoss(actor); err != nil {
		return nil, err
	}

	if patch.PartnerID != nil {
		partner, err := s.roster.RequireRole(ctx, *patch.PartnerID, models.RolePartner)
		if err != nil {
			return nil, err
		}
		patch.PartnerName = &partner.Name
	}
	if patch.CounterpartyID != nil {
		counterparty, err := s.roster.RequireRole(ctx, *patch.CounterpartyID, models.RoleBoss)
		if err != nil {
			return nil, err
		}
		patch.CounterpartyName = &counterparty.Name
	}

	// Setting either percentage fixes the other side to its complement.
	if patch.PartnerPercentage != nil {
		pct, complement := calculator.MirrorPercent(*patch.PartnerPercentage)
		patch.PartnerPercentage = &pct
		patch.CounterpartyPercentage = &complement
	} else if patch.CounterpartyPercentage != nil {
		pct, complement := calculator.MirrorPercent(*patch.CounterpartyPercentage)
		patch.CounterpartyPercentage = &pct
		patch.PartnerPercentage = &complement
	}

	if patch.Date != nil {
		if _, err := time.Parse(models.DateLayout, *patch.Date); err != nil {
			return nil, errs.Validationf("date must be %s formatted: %q", models.DateLayout, *patch.Date)
		}
	}
	if patch.TotalRevenue != nil && patch.TotalRevenue.IsNegative() {
		return nil, errs.Validationf("total revenue must not be negative: %s", patch.TotalRevenue)
	}
	if patch.Expenses != nil {
		for _, e := range *patch.Expenses {
			if err := e.Validate(); err != nil {
				return nil, err
			}
		}
	}

	if patch.TouchesFinancials() {
		current, err := s.store.GetTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		merged := current.Clone()
		patch.ApplyTo(merged)
		merged.Recompute()
		patch.TotalExpenses = &merged.TotalExpenses
		patch.NetProfit = &merged.NetProfit
		patch.PartnerShare = &merged.PartnerShare
		patch.CounterpartyShare = &merged.CounterpartyShare
	}

	tx, err = s.store.UpdateTransaction(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	slog.Info("transaction updated", "record_id", id, "actor_id", actor.UserID)
	s.notify(events.OpUpdate, tx.ID, tx.PartnerID, actor)
	return tx, nil
}

// SetPaid toggles the settlement flag. Boss only; a convenience wrapper
// over Update.
func (s *TransactionService) SetPaid(ctx context.Context, actor models.Actor, id string, paid bool) (*models.Transaction, error) {
	return s.Update(ctx, actor, id, models.TransactionPatch{IsPaidToPartner: &paid})
}

// Delete removes a record. A boss may delete any record; a partner only
// their own.
func (s *TransactionService) Delete(ctx context.Context, actor models.Actor, id string) (err error) {
	defer func() { metrics.ObserveOp("delete", err) }()

	if err = requireActor(actor); err != nil {
		return err
	}

	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if !canSee(actor, tx) {
		return errs.NotFoundf("transaction %s", id)
	}
	if !actor.IsBoss() && tx.PartnerID != actor.UserID {
		return errs.Unauthorizedf("only the owning partner or a boss may delete")
	}

	if err = s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	slog.Info("transaction deleted", "record_id", id, "actor_id", actor.UserID)
	s.notify(events.OpDelete, id, tx.PartnerID, actor)
	return nil
}

// ClearAll deletes every record the actor may clear: all of them for a
// boss, the actor's own for a partner. Deletes run in parallel; a partial
// failure is reported as an aggregate error, never swallowed.
func (s *TransactionService) ClearAll(ctx context.Context, actor models.Actor) (deleted int, err error) {
	defer func() { metrics.ObserveOp("clear_all", err) }()

	targets, err := s.List(ctx, actor)
	if err != nil {
		return 0, err
	}
	if len(targets) == 0 {
		return 0, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)
	for _, target := range targets {
		wg.Add(1)
		go func(tx models.Transaction) {
			defer wg.Done()
			if err := s.store.DeleteTransaction(ctx, tx.ID); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("record %s: %w", tx.ID, err))
				mu.Unlock()
				return
			}
			mu.Lock()
			deleted++
			mu.Unlock()
		}(target)
	}
	wg.Wait()

	if deleted > 0 {
		s.notify(events.OpDelete, "", "", actor)
	}
	if len(failures) > 0 {
		slog.Warn("clear all incomplete",
			"deleted", deleted, "failed", len(failures), "actor_id", actor.UserID)
		if deleted > 0 {
			return deleted, fmt.Errorf("%w: removed %d of %d records: %w",
				errs.ErrPartialFailure, deleted, len(targets), errors.Join(failures...))
		}
		return 0, errors.Join(failures...)
	}

	slog.Info("history cleared", "deleted", deleted, "actor_id", actor.UserID)
	return deleted, nil
}

// Subscribe opens a live feed for the actor. onChange receives an
// immediate snapshot of the visible record set, then a fresh listing
// after every change that may intersect it. The returned cancel is
// idempotent; once it returns no further callbacks are started and
// in-flight ones are dropped.
func (s *TransactionService) Subscribe(ctx context.Context, actor models.Actor, onChange func([]models.Transaction)) (cancel func(), err error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	sub := s.hub.Subscribe()
	metrics.LiveSubscribers.Inc()

	go func() {
		defer metrics.LiveSubscribers.Dec()

		deliver := func() {
			records, err := s.List(ctx, actor)
			if err != nil {
				slog.Warn("feed refresh failed", "actor_id", actor.UserID, "error", err)
				return
			}
			select {
			case <-sub.Done():
				// Cancelled while listing; drop the delivery.
			default:
				onChange(records)
			}
		}

		deliver()
		for {
			select {
			case <-sub.Done():
				return
			case <-ctx.Done():
				sub.Cancel()
				return
			case <-sub.Refresh():
				deliver()
			}
		}
	}()

	return sub.Cancel, nil
}

// notify wakes in-process subscribers and mirrors the event to the
// broker. Broker failures are logged, never propagated: the mutation has
// already committed.
func (s *TransactionService) notify(op events.Op, recordID, partnerID string, actor models.Actor) {
	s.hub.Broadcast()

	event := events.TransactionChanged{
		Op:         op,
		RecordID:   recordID,
		PartnerID:  partnerID,
		ActorID:    actor.UserID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(events.Topic, event); err != nil {
		slog.Warn("event publish failed", "op", op, "record_id", recordID, "error", err)
	}
}
