package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/events"
	"spendwise/internal/logger"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/store"
)

// DefaultEditWindow is how long after creation a cycle may still be changed in place.
const DefaultEditWindow = 24 * time.Hour

const maxWriteAttempts = 2

// errCycleChanged means the active cycle changed between read and write.
var errCycleChanged = errors.New("active budget cycle changed concurrently")

// RemainderPolicy maps a closed cycle's remainder (amount - spent) to the amount
// credited to savings. It must never return a negative value.
type RemainderPolicy func(remainder decimal.Decimal) decimal.Decimal

// ClampAtZero credits unspent money and ignores overspend.
func ClampAtZero(remainder decimal.Decimal) decimal.Decimal {
	if remainder.IsNegative() {
		return decimal.Zero
	}
	return remainder
}

// budgetCycleService tracks each user's current budget cycle and closes it lazily
// on read once its period has elapsed.
type budgetCycleService struct {
	db         *gorm.DB
	cycles     store.BudgetCycleStore
	ledger     store.ExpenseLedger
	savings    store.SavingsStore
	publisher  events.Publisher
	editWindow time.Duration
	remainder  RemainderPolicy
	now        func() time.Time
	reads      singleflight.Group
	log        *zap.SugaredLogger

	// transact runs fn in one database transaction.
	transact func(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BudgetCycleOption customizes a budget cycle service.
type BudgetCycleOption func(*budgetCycleService)

// WithEditWindow overrides DefaultEditWindow.
func WithEditWindow(d time.Duration) BudgetCycleOption {
	return func(s *budgetCycleService) {
		if d > 0 {
			s.editWindow = d
		}
	}
}

// WithPublisher sets where cycle-closed events go.
func WithPublisher(p events.Publisher) BudgetCycleOption {
	return func(s *budgetCycleService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) BudgetCycleOption {
	return func(s *budgetCycleService) {
		s.now = now
	}
}

// WithRemainderPolicy replaces ClampAtZero.
func WithRemainderPolicy(p RemainderPolicy) BudgetCycleOption {
	return func(s *budgetCycleService) {
		s.remainder = p
	}
}

// NewBudgetCycleService creates a new BudgetCycleServicer.
func NewBudgetCycleService(
	db *gorm.DB,
	cycles store.BudgetCycleStore,
	ledger store.ExpenseLedger,
	savings store.SavingsStore,
	opts ...BudgetCycleOption,
) BudgetCycleServicer {
	s := &budgetCycleService{
		db:         db,
		cycles:     cycles,
		ledger:     ledger,
		savings:    savings,
		publisher:  events.NopPublisher{},
		editWindow: DefaultEditWindow,
		remainder:  ClampAtZero,
		now:        time.Now,
		log:        logger.Named("budget_cycle"),
	}
	s.transact = func(ctx context.Context, fn func(tx *gorm.DB) error) error {
		return s.db.WithContext(ctx).Transaction(fn)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock returns the current instant in UTC at the precision the database keeps.
func (s *budgetCycleService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// EvaluateAndGetActiveCycle returns the active cycle, closing it first if it has elapsed.
// Concurrent calls for the same user inside this process share one evaluation.
func (s *budgetCycleService) EvaluateAndGetActiveCycle(ctx context.Context, userID string) (*models.BudgetCycle, error) {
	v, err, _ := s.reads.Do(userID, func() (interface{}, error) {
		// shared by every waiter, so one caller's cancellation must not fail the others
		cycle, err := s.evaluate(context.WithoutCancel(ctx), userID)
		return cycle, err
	})
	if err != nil {
		return nil, err
	}

	cycle := v.(*models.BudgetCycle)
	if cycle == nil {
		return nil, nil
	}
	c := *cycle
	return &c, nil
}

func (s *budgetCycleService) evaluate(ctx context.Context, userID string) (*models.BudgetCycle, error) {
	db := s.db.WithContext(ctx)

	cycle, err := s.cycles.FindActiveCycle(db, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if cycle == nil {
		return nil, nil
	}

	now := s.clock()
	end := PeriodEnd(cycle.StartedAt, cycle.Period)
	if now.Before(end) {
		return cycle, nil
	}

	if err := s.closeAndRollover(ctx, cycle, end, now); err != nil {
		if !errors.Is(err, apperrors.ErrConcurrentCloseLost) {
			return nil, err
		}
		s.log.Debugw("Budget cycle already closed by another evaluator",
			"user_id", userID,
			"cycle_id", cycle.ID,
		)
	}

	// a competing request may have created a fresh cycle meanwhile
	cycle, err = s.cycles.FindActiveCycle(db, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return cycle, nil
}

// IsEditable reports whether cycle may still be changed in place.
func (s *budgetCycleService) IsEditable(cycle *models.BudgetCycle) bool {
	return s.isEditableAt(cycle, s.clock())
}

func (s *budgetCycleService) isEditableAt(cycle *models.BudgetCycle, now time.Time) bool {
	if cycle == nil || cycle.Archived {
		return false
	}
	return now.Sub(cycle.StartedAt) < s.editWindow
}

// SetOrUpdateCycle creates the user's cycle, or changes the active one while it is
// still inside its edit window.
func (s *budgetCycleService) SetOrUpdateCycle(
	ctx context.Context,
	userID string,
	amount decimal.Decimal,
	period models.BudgetPeriod,
) (*CycleWriteResult, error) {
	if err := validateCycleInput(amount, period); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		// an elapsed cycle is closed before anything is written
		if _, err := s.EvaluateAndGetActiveCycle(ctx, userID); err != nil {
			return nil, err
		}

		result, err := s.writeCycle(ctx, userID, amount, period)
		if errors.Is(err, errCycleChanged) {
			s.log.Debugw("Budget cycle changed during write, retrying", "user_id", userID, "attempt", attempt+1)
			continue
		}
		return result, err
	}

	return nil, apperrors.ErrBudgetConflict
}

func validateCycleInput(amount decimal.Decimal, period models.BudgetPeriod) error {
	if !amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidBudgetInput, "Budget amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return apperrors.WithMessage(apperrors.ErrInvalidBudgetInput, "Budget amount can have at most two decimal places")
	}
	if !period.IsValid() {
		return apperrors.WithMessage(apperrors.ErrInvalidBudgetInput, "Budget period must be daily, weekly or monthly")
	}
	return nil
}

func (s *budgetCycleService) writeCycle(
	ctx context.Context,
	userID string,
	amount decimal.Decimal,
	period models.BudgetPeriod,
) (*CycleWriteResult, error) {
	now := s.clock()

	var result *CycleWriteResult
	err := s.transact(ctx, func(tx *gorm.DB) error {
		cycle, err := s.cycles.FindActiveCycle(tx, userID)
		if err != nil {
			return err
		}

		if cycle == nil {
			cycle = &models.BudgetCycle{
				UserID:    userID,
				Amount:    amount,
				Period:    period,
				StartedAt: now,
			}
			if err := s.cycles.CreateCycle(tx, cycle); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return errCycleChanged
				}
				return err
			}
			result = &CycleWriteResult{Cycle: cycle, Created: true, Message: "Budget created"}
			return nil
		}

		if !now.Before(PeriodEnd(cycle.StartedAt, cycle.Period)) {
			// elapsed after evaluation; close it on the next attempt
			return errCycleChanged
		}
		if !s.isEditableAt(cycle, now) {
			return apperrors.ErrEditWindowExpired
		}

		updated, err := s.cycles.UpdateCycle(tx, cycle.ID, amount, period, now.Add(-s.editWindow))
		if err != nil {
			return err
		}
		if !updated {
			return errCycleChanged
		}
		cycle.Amount = amount
		cycle.Period = period
		result = &CycleWriteResult{Cycle: cycle, Message: "Budget updated"}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.Is(err, errCycleChanged) || errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return result, nil
}

// GetBudgetView evaluates the active cycle and computes its running totals.
func (s *budgetCycleService) GetBudgetView(ctx context.Context, userID string) (*BudgetView, error) {
	cycle, err := s.EvaluateAndGetActiveCycle(ctx, userID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	balance, err := s.savings.GetSavingsBalance(db, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	view := &BudgetView{SavingsBalance: balance}
	if cycle == nil {
		return view, nil
	}

	end := PeriodEnd(cycle.StartedAt, cycle.Period)
	expenses, err := s.ledger.ListExpenses(db, userID, cycle.StartedAt, end)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	spent := sumExpenses(expenses)

	view.Budget = cycle
	view.IsEditable = s.IsEditable(cycle)
	view.EndsAt = &end
	view.SpentSoFar = spent
	view.Remaining = cycle.Amount.Sub(spent)
	return view, nil
}

// GetCycleHistory returns the user's closed cycles, newest first.
func (s *budgetCycleService) GetCycleHistory(
	ctx context.Context,
	userID string,
	page pagination.PageRequest,
) (*pagination.PageResponse[models.BudgetCycle], error) {
	if _, err := s.EvaluateAndGetActiveCycle(ctx, userID); err != nil {
		return nil, err
	}

	result, err := s.cycles.ListArchivedCycles(s.db.WithContext(ctx), userID, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func sumExpenses(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}
