package service

import (
	"context"
	"sync"

	"partnerledger/internal/errs"
	"partnerledger/internal/models"
)

// EditState is the editor's position in the edit workflow.
type EditState int

const (
	// StateIdle means no edit is in progress.
	StateIdle EditState = iota
	// StateEditing means a working copy is open for one record.
	StateEditing
	// StateSaving means a save is in flight. No second save may start.
	StateSaving
)

// Editor drives in-place edits of one record at a time for a single actor
// session. Entering an edit takes a working copy; the copy is independent
// of the live record until the save commits, and concurrent external
// edits surface only after the editor returns to idle.
//
// The reassign-only variant restricts the patch to the party-assignment
// fields but runs through the same machine and the same update call.
type Editor struct {
	svc   *TransactionService
	actor models.Actor

	mu           sync.Mutex
	state        EditState
	recordID     string
	working      *models.Transaction
	reassignOnly bool
}

// NewEditor returns an idle editor for the given actor session.
func NewEditor(svc *TransactionService, actor models.Actor) *Editor {
	return &Editor{svc: svc, actor: actor}
}

// State returns the editor's current state.
func (e *Editor) State() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Begin opens a full edit of the record, populating the working copy from
// the live record. Only one edit may be open per session.
func (e *Editor) Begin(ctx context.Context, recordID string) (*models.Transaction, error) {
	return e.begin(ctx, recordID, false)
}

// BeginReassign opens the restricted variant that may only change the
// partner and counterparty assignment.
func (e *Editor) BeginReassign(ctx context.Context, recordID string) (*models.Transaction, error) {
	return e.begin(ctx, recordID, true)
}

func (e *Editor) begin(ctx context.Context, recordID string, reassignOnly bool) (*models.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return nil, errs.Validationf("an edit of record %s is already in progress", e.recordID)
	}

	live, err := e.svc.Get(ctx, e.actor, recordID)
	if err != nil {
		return nil, err
	}

	e.state = StateEditing
	e.recordID = recordID
	e.working = live.Clone()
	e.reassignOnly = reassignOnly
	return e.working.Clone(), nil
}

// BeginFrom opens an edit seeded from a last-known record, for when the
// caller holds a snapshot that may already be stale. If the live record
// was deleted in the meantime the failure surfaces at save time.
func (e *Editor) BeginFrom(record *models.Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return errs.Validationf("an edit of record %s is already in progress", e.recordID)
	}
	if record == nil || record.ID == "" {
		return errs.Validationf("cannot edit an unsaved record")
	}

	e.state = StateEditing
	e.recordID = record.ID
	e.working = record.Clone()
	e.reassignOnly = false
	return nil
}

// Working returns a copy of the working record, or nil when idle.
func (e *Editor) Working() *models.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.working == nil {
		return nil
	}
	return e.working.Clone()
}

// Save commits the patch through the transaction service. On success the
// editor returns to idle and discards the working copy; on failure it
// stays in editing with the working copy intact, so the caller can fix
// the input or retry.
func (e *Editor) Save(ctx context.Context, patch models.TransactionPatch) (*models.Transaction, error) {
	e.mu.Lock()
	switch e.state {
	case StateIdle:
		e.mu.Unlock()
		return nil, errs.Validationf("no edit in progress")
	case StateSaving:
		e.mu.Unlock()
		return nil, errs.Validationf("a save is already in flight for record %s", e.recordID)
	}
	if e.reassignOnly && patch.TouchesRestricted() {
		e.mu.Unlock()
		return nil, errs.Validationf("reassignment may only change the party fields")
	}
	recordID := e.recordID
	e.state = StateSaving
	e.mu.Unlock()

	updated, err := e.svc.Update(ctx, e.actor, recordID, patch)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = StateEditing
		return nil, err
	}
	e.state = StateIdle
	e.recordID = ""
	e.working = nil
	e.reassignOnly = false
	return updated, nil
}

// Cancel discards the working copy unconditionally and returns to idle.
// Cancelling an idle editor is a no-op.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateIdle
	e.recordID = ""
	e.working = nil
	e.reassignOnly = false
}
