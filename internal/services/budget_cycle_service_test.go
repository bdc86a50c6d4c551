package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/events"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/store"
	"spendwise/internal/testutil"
)

// testClock is a settable clock shared by every engine in a test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.CycleClosed
	err    error
}

func (p *recordingPublisher) PublishCycleClosed(_ context.Context, e *events.CycleClosed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// failingLedger fails every range query.
type failingLedger struct {
	store.ExpenseLedger
	err error
}

func (l *failingLedger) ListExpenses(*gorm.DB, string, time.Time, time.Time) ([]models.Expense, error) {
	return nil, l.err
}

// countingCycleStore counts reads of the active cycle.
type countingCycleStore struct {
	store.BudgetCycleStore
	mu    sync.Mutex
	finds int
}

func (s *countingCycleStore) FindActiveCycle(db *gorm.DB, userID string) (*models.BudgetCycle, error) {
	s.mu.Lock()
	s.finds++
	s.mu.Unlock()
	return s.BudgetCycleStore.FindActiveCycle(db, userID)
}

var t0 = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

func newTestEngine(db *gorm.DB, clock *testClock, opts ...BudgetCycleOption) *budgetCycleService {
	opts = append([]BudgetCycleOption{WithClock(clock.Now)}, opts...)
	return NewBudgetCycleService(db, store.NewBudgetCycleStore(), store.NewExpenseLedger(), store.NewSavingsStore(), opts...).(*budgetCycleService)
}

func countAuditRows(t *testing.T, db *gorm.DB, action string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.AuditLog{}).Where("action = ?", action).Count(&n).Error; err != nil {
		t.Fatalf("failed to count audit rows: %v", err)
	}
	return n
}

func TestEvaluateAndGetActiveCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("no_active_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEngine(db, newTestClock(t0))
		user := testutil.CreateTestUser(t, db)

		cycle, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if cycle != nil {
			t.Fatalf("expected no active budget, got %+v", cycle)
		}
	})

	t.Run("active_cycle_unchanged", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		pub := &recordingPublisher{}
		svc := newTestEngine(db, newTestClock(t0.Add(6*24*time.Hour)), WithPublisher(pub))
		user := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestBudgetCycle(t, db, user.ID, "300", models.BudgetPeriodWeekly, t0)

		cycle, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if cycle == nil || cycle.ID != created.ID {
			t.Fatalf("expected active cycle %s, got %+v", created.ID, cycle)
		}
		if cycle.Archived {
			t.Error("expected cycle to stay unarchived")
		}
		if pub.count() != 0 {
			t.Errorf("expected no events, got %d", pub.count())
		}
	})

	t.Run("closes_at_exact_end", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEngine(db, newTestClock(t0.Add(24*time.Hour)))
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudgetCycle(t, db, user.ID, "20", models.BudgetPeriodDaily, t0)

		cycle, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if cycle != nil {
			t.Fatal("expected cycle to close when now equals its end")
		}
		testutil.AssertDecimal(t, "20", testutil.GetSavingsBalance(t, db, user.ID))
	})

	t.Run("weekly_scenario", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		clock := newTestClock(t0)
		pub := &recordingPublisher{}
		svc := newTestEngine(db, clock, WithPublisher(pub))
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, "Groceries")

		result, err := svc.SetOrUpdateCycle(ctx, user.ID, decimal.NewFromInt(300), models.BudgetPeriodWeekly)
		testutil.AssertNoError(t, err)

		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "80", t0.Add(time.Hour))
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "50", t0.Add(3*24*time.Hour))
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "40", t0.Add(7*24*time.Hour-time.Minute))
		// outside the cycle
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "999", t0.Add(-time.Minute))
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "999", t0.Add(7*24*time.Hour))

		clock.Set(t0.Add(7*24*time.Hour + time.Minute))
		cycle, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if cycle != nil {
			t.Fatalf("expected no active budget after closure, got %+v", cycle)
		}

		closed := testutil.ReloadBudgetCycle(t, db, result.Cycle.ID)
		if !closed.Archived {
			t.Fatal("expected cycle to be archived")
		}
		testutil.AssertDecimal(t, "170", closed.Spent.Decimal)
		testutil.AssertDecimal(t, "130", closed.Credited.Decimal)
		testutil.AssertDecimal(t, "130", testutil.GetSavingsBalance(t, db, user.ID))

		if pub.count() != 1 {
			t.Fatalf("expected 1 event, got %d", pub.count())
		}
		evt := pub.events[0]
		if evt.CycleID != closed.ID || !evt.Credited.Equal(decimal.NewFromInt(130)) {
			t.Errorf("unexpected event %+v", evt)
		}
		if !evt.EndedAt.Equal(t0.Add(7 * 24 * time.Hour)) {
			t.Errorf("expected event end %v, got %v", t0.Add(7*24*time.Hour), evt.EndedAt)
		}
		if n := countAuditRows(t, db, models.AuditActionCloseCycle); n != 1 {
			t.Errorf("expected 1 close audit row, got %d", n)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		pub := &recordingPublisher{}
		svc := newTestEngine(db, newTestClock(t0.Add(8*24*time.Hour)), WithPublisher(pub))
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, "Dining Out")
		testutil.CreateTestBudgetCycle(t, db, user.ID, "200", models.BudgetPeriodWeekly, t0)
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "150", t0.Add(time.Hour))

		for i := 0; i < 2; i++ {
			cycle, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
			testutil.AssertNoError(t, err)
			if cycle != nil {
				t.Fatalf("call %d: expected no active budget", i+1)
			}
		}

		testutil.AssertDecimal(t, "50", testutil.GetSavingsBalance(t, db, user.ID))
		if pub.count() != 1 {
			t.Errorf("expected exactly 1 event, got %d", pub.count())
		}
	})

	t.Run("returns_copy", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEngine(db, newTestClock(t0.Add(time.Hour)))
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudgetCycle(t, db, user.ID, "100", models.BudgetPeriodDaily, t0)

		first, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertNoError(t, err)
		first.Amount = decimal.NewFromInt(1)

		second, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "100", second.Amount)
	})
}

func TestRolloverRemainderPolicy(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		amount   string
		spent    []string
		credited string
	}{
		{name: "underspend", amount: "200", spent: []string{"100", "50"}, credited: "50"},
		{name: "overspend_clamped", amount: "200", spent: []string{"200", "50"}, credited: "0"},
		{name: "exact", amount: "200", spent: []string{"200"}, credited: "0"},
		{name: "no_expenses", amount: "75.25", credited: "75.25"},
		{name: "cents", amount: "100", spent: []string{"33.33", "33.33"}, credited: "33.34"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			defer testutil.TeardownTestDB(t, db)
			svc := newTestEngine(db, newTestClock(t0.Add(31*24*time.Hour)))
			user := testutil.CreateTestUser(t, db)
			cat := testutil.CreateTestCategory(t, db, user.ID, "Shopping")
			testutil.CreateTestSavingsAccount(t, db, user.ID, "10")
			cycle := testutil.CreateTestBudgetCycle(t, db, user.ID, tt.amount, models.BudgetPeriodMonthly, t0)
			for i, amount := range tt.spent {
				testutil.CreateTestExpense(t, db, user.ID, cat.ID, amount, t0.Add(time.Duration(i+1)*time.Hour))
			}

			_, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
			testutil.AssertNoError(t, err)

			closed := testutil.ReloadBudgetCycle(t, db, cycle.ID)
			testutil.AssertDecimal(t, tt.credited, closed.Credited.Decimal)
			want := decimal.RequireFromString(tt.credited).Add(decimal.NewFromInt(10))
			testutil.AssertDecimal(t, want.String(), testutil.GetSavingsBalance(t, db, user.ID))
		})
	}

	t.Run("custom_policy", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		half := func(r decimal.Decimal) decimal.Decimal { return ClampAtZero(r).Div(decimal.NewFromInt(2)) }
		svc := newTestEngine(db, newTestClock(t0.Add(2*24*time.Hour)), WithRemainderPolicy(half))
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudgetCycle(t, db, user.ID, "100", models.BudgetPeriodDaily, t0)

		_, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "50", testutil.GetSavingsBalance(t, db, user.ID))
	})
}

func TestRolloverConcurrency(t *testing.T) {
	ctx := context.Background()

	t.Run("independent_evaluators", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		clock := newTestClock(t0.Add(8 * 24 * time.Hour))
		pub := &recordingPublisher{}
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, "Travel")
		cycle := testutil.CreateTestBudgetCycle(t, db, user.ID, "300", models.BudgetPeriodWeekly, t0)
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "120", t0.Add(time.Hour))

		// separate engines behave like separate processes: no shared in-memory state
		const evaluators = 10
		var g errgroup.Group
		for i := 0; i < evaluators; i++ {
			svc := newTestEngine(db, clock, WithPublisher(pub))
			g.Go(func() error {
				c, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
				if err != nil {
					return err
				}
				if c != nil {
					return errors.New("expected no active budget")
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("evaluation failed: %v", err)
		}

		testutil.AssertDecimal(t, "180", testutil.GetSavingsBalance(t, db, user.ID))
		testutil.AssertDecimal(t, "180", testutil.ReloadBudgetCycle(t, db, cycle.ID).Credited.Decimal)
		if pub.count() != 1 {
			t.Errorf("expected exactly 1 event, got %d", pub.count())
		}
		if n := countAuditRows(t, db, models.AuditActionCloseCycle); n != 1 {
			t.Errorf("expected exactly 1 close audit row, got %d", n)
		}
	})

	t.Run("shared_engine", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		pub := &recordingPublisher{}
		svc := newTestEngine(db, newTestClock(t0.Add(2*24*time.Hour)), WithPublisher(pub))
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudgetCycle(t, db, user.ID, "40", models.BudgetPeriodDaily, t0)

		var g errgroup.Group
		for i := 0; i < 10; i++ {
			g.Go(func() error {
				_, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("evaluation failed: %v", err)
		}

		testutil.AssertDecimal(t, "40", testutil.GetSavingsBalance(t, db, user.ID))
		if pub.count() != 1 {
			t.Errorf("expected exactly 1 event, got %d", pub.count())
		}
	})

	t.Run("lost_claim_is_noop", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		now := t0.Add(2 * 24 * time.Hour)
		svc := newTestEngine(db, newTestClock(now))
		user := testutil.CreateTestUser(t, db)
		cycle := testutil.CreateTestBudgetCycle(t, db, user.ID, "40", models.BudgetPeriodDaily, t0)

		stale := *cycle
		testutil.AssertNoError(t, svc.closeAndRollover(ctx, cycle, PeriodEnd(cycle.StartedAt, cycle.Period), now))

		err := svc.closeAndRollover(ctx, &stale, PeriodEnd(stale.StartedAt, stale.Period), now)
		if !errors.Is(err, apperrors.ErrConcurrentCloseLost) {
			t.Fatalf("expected lost claim, got %v", err)
		}
		testutil.AssertDecimal(t, "40", testutil.GetSavingsBalance(t, db, user.ID))
	})
}

func TestRolloverFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("ledger_failure_rolls_back_claim", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		clock := newTestClock(t0.Add(8 * 24 * time.Hour))
		pub := &recordingPublisher{}
		broken := NewBudgetCycleService(db, store.NewBudgetCycleStore(),
			&failingLedger{ExpenseLedger: store.NewExpenseLedger(), err: errors.New("ledger unavailable")},
			store.NewSavingsStore(), WithClock(clock.Now), WithPublisher(pub))
		user := testutil.CreateTestUser(t, db)
		cycle := testutil.CreateTestBudgetCycle(t, db, user.ID, "300", models.BudgetPeriodWeekly, t0)

		_, err := broken.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertAppError(t, err, "INTERNAL_ERROR")

		if testutil.ReloadBudgetCycle(t, db, cycle.ID).Archived {
			t.Fatal("expected failed rollover to leave the cycle unarchived")
		}
		if !testutil.GetSavingsBalance(t, db, user.ID).IsZero() {
			t.Fatal("expected no credit after failed rollover")
		}
		if n := countAuditRows(t, db, models.AuditActionCloseCycle); n != 0 {
			t.Errorf("expected no close audit row, got %d", n)
		}
		if pub.count() != 0 {
			t.Errorf("expected no events, got %d", pub.count())
		}

		// the next read retries from a clean state
		healthy := newTestEngine(db, clock, WithPublisher(pub))
		c, err := healthy.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if c != nil {
			t.Fatal("expected no active budget after retry")
		}
		testutil.AssertDecimal(t, "300", testutil.GetSavingsBalance(t, db, user.ID))
		if pub.count() != 1 {
			t.Errorf("expected 1 event, got %d", pub.count())
		}
	})

	t.Run("commit_failure_reports_partial_rollover", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		pub := &recordingPublisher{}
		svc := newTestEngine(db, newTestClock(t0.Add(2*24*time.Hour)), WithPublisher(pub))
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudgetCycle(t, db, user.ID, "40", models.BudgetPeriodDaily, t0)

		commitErr := errors.New("connection reset during commit")
		svc.transact = func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				if err := fn(tx); err != nil {
					return err
				}
				return commitErr
			})
			return err
		}

		_, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertAppError(t, err, "ROLLOVER_PARTIALLY_APPLIED")
		if !errors.Is(err, commitErr) {
			t.Error("expected the commit error to be wrapped")
		}
		if pub.count() != 0 {
			t.Errorf("expected no events for an unconfirmed rollover, got %d", pub.count())
		}
	})

	t.Run("publish_failure_does_not_fail_read", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		pub := &recordingPublisher{err: errors.New("broker down")}
		svc := newTestEngine(db, newTestClock(t0.Add(2*24*time.Hour)), WithPublisher(pub))
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestBudgetCycle(t, db, user.ID, "40", models.BudgetPeriodDaily, t0)

		cycle, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if cycle != nil {
			t.Fatal("expected no active budget")
		}
		testutil.AssertDecimal(t, "40", testutil.GetSavingsBalance(t, db, user.ID))
	})
}

func TestIsEditable(t *testing.T) {
	clock := newTestClock(t0)
	svc := NewBudgetCycleService(nil, nil, nil, nil, WithClock(clock.Now))

	tests := []struct {
		name  string
		cycle *models.BudgetCycle
		now   time.Time
		want  bool
	}{
		{name: "nil", cycle: nil, now: t0, want: false},
		{name: "just_created", cycle: &models.BudgetCycle{StartedAt: t0}, now: t0, want: true},
		{name: "inside_window", cycle: &models.BudgetCycle{StartedAt: t0}, now: t0.Add(23*time.Hour + 59*time.Minute), want: true},
		{name: "at_window_end", cycle: &models.BudgetCycle{StartedAt: t0}, now: t0.Add(24 * time.Hour), want: false},
		{name: "after_window", cycle: &models.BudgetCycle{StartedAt: t0}, now: t0.Add(24*time.Hour + time.Minute), want: false},
		{name: "archived", cycle: &models.BudgetCycle{StartedAt: t0, Archived: true}, now: t0.Add(time.Hour), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.Set(tt.now)
			if got := svc.IsEditable(tt.cycle); got != tt.want {
				t.Errorf("IsEditable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetOrUpdateCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("creates_monthly_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEngine(db, newTestClock(t0))
		user := testutil.CreateTestUser(t, db)

		result, err := svc.SetOrUpdateCycle(ctx, user.ID, decimal.NewFromInt(500), models.BudgetPeriodMonthly)
		testutil.AssertNoError(t, err)

		if !result.Created || result.Message != "Budget created" {
			t.Errorf("unexpected result %+v", result)
		}
		if result.Cycle.ID == "" {
			t.Fatal("expected cycle ID")
		}
		if !result.Cycle.StartedAt.Equal(t0) {
			t.Errorf("expected started_at %v, got %v", t0, result.Cycle.StartedAt)
		}
		if !svc.IsEditable(result.Cycle) {
			t.Error("expected new cycle to be editable")
		}

		active, err := svc.EvaluateAndGetActiveCycle(ctx, user.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "500", active.Amount)
		if active.Period != models.BudgetPeriodMonthly {
			t.Errorf("expected monthly, got %s", active.Period)
		}
	})

	t.Run("update_inside_edit_window", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		clock := newTestClock(t0)
		svc := newTestEngine(db, clock)
		user := testutil.CreateTestUser(t, db)

		created, err := svc.SetOrUpdateCycle(ctx, user.ID, decimal.NewFromInt(300), models.BudgetPeriodWeekly)
		testutil.AssertNoError(t, err)

		clock.Set(t0.Add(23*time.Hour + 59*time.Minute))
		result, err := svc.SetOrUpdateCycle(ctx, user.ID, decimal.RequireFromString("350.50"), models.BudgetPeriodMonthly)
		testutil.AssertNoError(t, err)

		if result.Created || result.Message != "Budget updated" {
			t.Errorf("unexpected result %+v", result)
		}
		if result.Cycle.ID != created.Cycle.ID {
			t.Error("expected the same cycle to be updated in place")
		}

		reloaded := testutil.ReloadBudgetCycle(t, db, created.Cycle.ID)
		testutil.AssertDecimal(t, "350.50", reloaded.Amount)
		if reloaded.Period != models.BudgetPeriodMonthly {
			t.Errorf("expected monthly, got %s", reloaded.Period)
		}
		if !reloaded.StartedAt.Equal(t0) {
			t.Errorf("expected started_at to stay %v, got %v", t0, reloaded.StartedAt)
		}
	})

	t.Run("update_after_edit_window", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		clock := newTestClock(t0)
		svc := newTestEngine(db, clock)
		user := testutil.CreateTestUser(t, db)

		created, err := svc.SetOrUpdateCycle(ctx, user.ID, decimal.NewFromInt(300), models.BudgetPeriodWeekly)
		testutil.AssertNoError(t, err)

		clock.Set(t0.Add(24*time.Hour + time.Minute))
		_, err = svc.SetOrUpdateCycle(ctx, user.ID, decimal.NewFromInt(900), models.BudgetPeriodWeekly)
		testutil.AssertAppError(t, err, "EDIT_WINDOW_EXPIRED")

		testutil.AssertDecimal(t, "300", testutil.ReloadBudgetCycle(t, db, created.Cycle.ID).Amount)
	})

	t.Run("custom_edit_window", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		clock := newTestClock(t0)
		svc := newTestEngine(db, clock, WithEditWindow(time.Hour))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.SetOrUpdateCycle(ctx, user.ID, decimal.NewFromInt(300), models.BudgetPeriodWeekly)
		testutil.AssertNoError(t, err)

		clock.Set(t0.Add(2 * time.Hour))
		_, err = svc.SetOrUpdateCycle(ctx, user.ID, decimal.NewFromInt(100), models.BudgetPeriodWeekly)
		testutil.AssertAppError(t, err, "EDIT_WINDOW_EXPIRED")
	})

	t.Run("elapsed_cycle_closed_before_new_one", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		clock := newTestClock(t0.Add(3 * 24 * time.Hour))
		svc := newTestEngine(db, clock)
		user := testutil.CreateTestUser(t, db)
		old := testutil.CreateTestBudgetCycle(t, db, user.ID, "25", models.BudgetPeriodDaily, t0)

		result, err := svc.SetOrUpdateCycle(ctx, user.ID, decimal.NewFromInt(60), models.BudgetPeriodDaily)
		testutil.AssertNoError(t, err)

		if !result.Created {
			t.Error("expected a new cycle")
		}
		if result.Cycle.ID == old.ID {
			t.Error("expected a different cycle than the elapsed one")
		}
		if !testutil.ReloadBudgetCycle(t, db, old.ID).Archived {
			t.Error("expected elapsed cycle to be archived")
		}
		testutil.AssertDecimal(t, "25", testutil.GetSavingsBalance(t, db, user.ID))
	})

	t.Run("concurrent_creates_leave_one_active_cycle", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		clock := newTestClock(t0)
		user := testutil.CreateTestUser(t, db)

		var g errgroup.Group
		for i := 0; i < 5; i++ {
			svc := newTestEngine(db, clock)
			amount := decimal.NewFromInt(int64(100 + i))
			g.Go(func() error {
				_, err := svc.SetOrUpdateCycle(ctx, user.ID, amount, models.BudgetPeriodWeekly)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("concurrent writes failed: %v", err)
		}

		var active int64
		db.Model(&models.BudgetCycle{}).Where("user_id = ? AND archived = ?", user.ID, false).Count(&active)
		if active != 1 {
			t.Errorf("expected exactly 1 active cycle, got %d", active)
		}
	})
}

func TestSetOrUpdateCycle_invalid_input(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		amount decimal.Decimal
		period models.BudgetPeriod
	}{
		{name: "zero_amount", amount: decimal.Zero, period: models.BudgetPeriodDaily},
		{name: "negative_amount", amount: decimal.NewFromInt(-5), period: models.BudgetPeriodWeekly},
		{name: "sub_cent_amount", amount: decimal.RequireFromString("10.005"), period: models.BudgetPeriodWeekly},
		{name: "unknown_period", amount: decimal.NewFromInt(100), period: models.BudgetPeriod("yearly")},
		{name: "empty_period", amount: decimal.NewFromInt(100), period: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			defer testutil.TeardownTestDB(t, db)
			cycles := &countingCycleStore{BudgetCycleStore: store.NewBudgetCycleStore()}
			svc := NewBudgetCycleService(db, cycles, store.NewExpenseLedger(), store.NewSavingsStore(), WithClock(newTestClock(t0).Now))
			user := testutil.CreateTestUser(t, db)

			_, err := svc.SetOrUpdateCycle(ctx, user.ID, tt.amount, tt.period)
			testutil.AssertAppError(t, err, "INVALID_BUDGET_INPUT")

			if cycles.finds != 0 {
				t.Errorf("expected no store access for invalid input, got %d reads", cycles.finds)
			}
		})
	}
}

func TestGetBudgetView(t *testing.T) {
	ctx := context.Background()

	t.Run("no_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEngine(db, newTestClock(t0))
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestSavingsAccount(t, db, user.ID, "12.50")

		view, err := svc.GetBudgetView(ctx, user.ID)
		testutil.AssertNoError(t, err)

		if view.Budget != nil || view.EndsAt != nil || view.IsEditable {
			t.Errorf("expected empty view, got %+v", view)
		}
		testutil.AssertDecimal(t, "12.50", view.SavingsBalance)
	})

	t.Run("running_totals", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEngine(db, newTestClock(t0.Add(2*24*time.Hour)))
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, "Utilities")
		testutil.CreateTestBudgetCycle(t, db, user.ID, "300", models.BudgetPeriodWeekly, t0)
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "80", t0.Add(time.Hour))
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "50", t0.Add(25*time.Hour))

		view, err := svc.GetBudgetView(ctx, user.ID)
		testutil.AssertNoError(t, err)

		if view.Budget == nil {
			t.Fatal("expected an active budget")
		}
		if view.IsEditable {
			t.Error("expected a two-day-old cycle not to be editable")
		}
		if view.EndsAt == nil || !view.EndsAt.Equal(t0.Add(7*24*time.Hour)) {
			t.Errorf("unexpected ends_at %v", view.EndsAt)
		}
		testutil.AssertDecimal(t, "130", view.SpentSoFar)
		testutil.AssertDecimal(t, "170", view.Remaining)
		testutil.AssertDecimal(t, "0", view.SavingsBalance)
	})

	t.Run("fails_closed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		user := testutil.CreateTestUser(t, db)
		svc := newTestEngine(db, newTestClock(t0))
		testutil.TeardownTestDB(t, db)

		view, err := svc.GetBudgetView(ctx, user.ID)
		testutil.AssertAppError(t, err, "INTERNAL_ERROR")
		if view != nil {
			t.Error("expected no partial view on failure")
		}
	})
}

func TestGetCycleHistory(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	clock := newTestClock(t0)
	svc := newTestEngine(db, clock)
	user := testutil.CreateTestUser(t, db)

	for i := 0; i < 3; i++ {
		clock.Set(t0.Add(time.Duration(i) * 48 * time.Hour))
		_, err := svc.SetOrUpdateCycle(ctx, user.ID, decimal.NewFromInt(int64(10*(i+1))), models.BudgetPeriodDaily)
		testutil.AssertNoError(t, err)
	}
	clock.Set(t0.Add(10 * 24 * time.Hour))

	history, err := svc.GetCycleHistory(ctx, user.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)

	if history.TotalItems != 3 {
		t.Fatalf("expected 3 closed cycles, got %d", history.TotalItems)
	}
	testutil.AssertDecimal(t, "30", history.Data[0].Amount)
	testutil.AssertDecimal(t, "30", history.Data[0].Credited.Decimal)
	testutil.AssertDecimal(t, "60", testutil.GetSavingsBalance(t, db, user.ID))
}
