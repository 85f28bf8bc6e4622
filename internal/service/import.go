package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"partnerledger/internal/errs"
	"partnerledger/internal/events"
	"partnerledger/internal/metrics"
	"partnerledger/internal/models"
	"partnerledger/internal/roster"
)

// Import normalizes legacy calculator exports and persists them as
// canonical records. Boss only. Party references are resolved against the
// current roster; a record pointing at a since-deleted (or never present)
// account is silently reassigned to the roster's first entry, with the
// reassignment logged.
func (s *TransactionService) Import(ctx context.Context, actor models.Actor, legacy []models.LegacyRecord) (imported int, err error) {
	defer func() { metrics.ObserveOp("import", err) }()

	if err = requireBoss(actor); err != nil {
		return 0, err
	}

	partners, err := s.roster.ListPartners(ctx)
	if err != nil {
		return 0, err
	}
	bosses, err := s.roster.ListBosses(ctx)
	if err != nil {
		return 0, err
	}
	if len(partners) == 0 || len(bosses) == 0 {
		return 0, errs.Validationf("import needs at least one partner and one boss in the roster")
	}

	var failures []error
	for i, l := range legacy {
		tx := l.Normalize()

		partner, reassigned, _ := roster.ResolveOrFallback(tx.PartnerID, partners)
		if reassigned {
			slog.Warn("legacy partner reference reassigned",
				"record", i, "was", tx.PartnerID, "now", partner.ID)
		}
		tx.PartnerID = partner.ID
		tx.PartnerName = partner.Name

		counterparty, reassigned, _ := roster.ResolveOrFallback(tx.CounterpartyID, bosses)
		if reassigned {
			slog.Warn("legacy counterparty reference reassigned",
				"record", i, "was", tx.CounterpartyID, "now", counterparty.ID)
		}
		tx.CounterpartyID = counterparty.ID
		tx.CounterpartyName = counterparty.Name

		tx.ApplyDefaults(recordTime(tx))
		if err := tx.Validate(); err != nil {
			failures = append(failures, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		if err := s.store.CreateTransaction(ctx, tx); err != nil {
			failures = append(failures, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		imported++
	}

	if imported > 0 {
		s.notify(events.OpCreate, "", "", actor)
	}
	if len(failures) > 0 {
		if imported > 0 {
			return imported, fmt.Errorf("%w: imported %d of %d records: %w",
				errs.ErrPartialFailure, imported, len(legacy), errors.Join(failures...))
		}
		return 0, errors.Join(failures...)
	}

	slog.Info("legacy import finished", "imported", imported, "actor_id", actor.UserID)
	return imported, nil
}

// recordTime anchors blank-date defaulting to the legacy record's own
// creation time when it carried one.
func recordTime(tx *models.Transaction) time.Time {
	if tx.CreatedAt > 0 {
		return time.UnixMilli(tx.CreatedAt)
	}
	return time.Now()
}
