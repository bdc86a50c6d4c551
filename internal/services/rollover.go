package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/events"
	"spendwise/internal/models"
)

// closeAndRollover archives an elapsed cycle and credits its remainder to savings.
//
// Claim, aggregation, credit and the audit row commit together or not at all. A
// lost claim returns ErrConcurrentCloseLost. When the body finished but the commit
// failed the outcome is unknown and ErrRolloverPartiallyApplied is returned; it
// must not be retried.
func (s *budgetCycleService) closeAndRollover(ctx context.Context, cycle *models.BudgetCycle, end, now time.Time) error {
	var spent, credited decimal.Decimal
	bodyDone := false

	err := s.transact(ctx, func(tx *gorm.DB) error {
		won, err := s.cycles.ClaimArchive(tx, cycle.ID, now)
		if err != nil {
			return err
		}
		if !won {
			return apperrors.ErrConcurrentCloseLost
		}

		// bounds come from the cycle, never from now
		expenses, err := s.ledger.ListExpenses(tx, cycle.UserID, cycle.StartedAt, end)
		if err != nil {
			return err
		}
		spent = sumExpenses(expenses)
		credited = s.remainder(cycle.Amount.Sub(spent))
		if credited.IsNegative() {
			credited = decimal.Zero
		}

		if err := s.cycles.RecordRollover(tx, cycle.ID, spent, credited); err != nil {
			return err
		}
		if err := s.savings.CreditSavings(tx, cycle.UserID, credited); err != nil {
			return err
		}
		if err := recordAudit(tx, auditEntry{
			UserID:       cycle.UserID,
			Action:       models.AuditActionCloseCycle,
			ResourceType: "budget_cycle",
			ResourceID:   cycle.ID,
			Changes: map[string]interface{}{
				"amount":   cycle.Amount,
				"spent":    spent,
				"credited": credited,
			},
		}); err != nil {
			return err
		}

		bodyDone = true
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrConcurrentCloseLost):
		return err
	case bodyDone:
		s.log.Errorw("Budget rollover commit failed, outcome unknown: manual reconciliation required",
			"error", err,
			"user_id", cycle.UserID,
			"cycle_id", cycle.ID,
			"spent", spent,
			"credited", credited,
		)
		return apperrors.Wrap(apperrors.ErrRolloverPartiallyApplied, err)
	default:
		s.log.Warnw("Budget rollover rolled back",
			"error", err,
			"user_id", cycle.UserID,
			"cycle_id", cycle.ID,
		)
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.log.Infow("Budget cycle closed",
		"user_id", cycle.UserID,
		"cycle_id", cycle.ID,
		"spent", spent,
		"credited", credited,
	)

	s.publishCycleClosed(ctx, &events.CycleClosed{
		CycleID:   cycle.ID,
		UserID:    cycle.UserID,
		Period:    string(cycle.Period),
		Amount:    cycle.Amount,
		Spent:     spent,
		Credited:  credited,
		StartedAt: cycle.StartedAt,
		EndedAt:   end,
		ClosedAt:  now,
	})
	return nil
}

// publishCycleClosed is best effort: the rollover has already committed.
func (s *budgetCycleService) publishCycleClosed(ctx context.Context, event *events.CycleClosed) {
	if err := s.publisher.PublishCycleClosed(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warnw("Failed to publish cycle closed event",
			"error", err,
			"user_id", event.UserID,
			"cycle_id", event.CycleID,
		)
	}
}
