//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
	"subscription-commerce/internal/usecase"
)

type reconcileDeps struct {
	gateway  *MockPaymentGateway
	plans    *MockPlanRepo
	attempts *MockAttemptRepo
	subs     *MockSubscriptionRepo
	payments *MockPaymentRepo
	coupons  *MockCouponRepo
	audit    *MockFinancialLogRepo
	tm       *MockTxManager
	uc       usecase.ReconcileUseCase
}

func newReconcileDeps() *reconcileDeps {
	d := &reconcileDeps{
		gateway:  &MockPaymentGateway{},
		plans:    NewMockPlanRepo(),
		attempts: NewMockAttemptRepo(),
		subs:     NewMockSubscriptionRepo(),
		payments: NewMockPaymentRepo(),
		coupons:  NewMockCouponRepo(),
		audit:    NewMockFinancialLogRepo(),
		tm:       NewMockTxManager(),
	}
	logger := newTestLogger()
	resolver := usecase.NewPlanResolver(d.plans, logger)
	d.uc = usecase.NewReconcileUseCase(
		d.gateway, resolver, d.attempts, d.subs, d.payments, d.coupons, d.audit, d.tm, logger)
	return d
}

func (d *reconcileDeps) addPlan(id, name string, price float64, interval model.BillingInterval) *model.Plan {
	p := &model.Plan{
		ID:              id,
		Name:            name,
		Price:           price,
		BillingInterval: interval,
		Active:          true,
		CreatedAt:       time.Now(),
	}
	_ = d.plans.Save(context.Background(), p)
	return p
}

func (d *reconcileDeps) addPendingAttempt(id, userID string, plan *model.Plan, couponID *string, createdAt time.Time) *model.PaymentAttempt {
	a := &model.PaymentAttempt{
		ID:           id,
		UserID:       userID,
		PreferenceID: "pref-" + id,
		PlanID:       plan.ID,
		PlanName:     plan.Name,
		PlanPrice:    plan.Price,
		PlanInterval: plan.BillingInterval,
		Status:       model.AttemptStatusPending,
		CouponID:     couponID,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	_ = d.attempts.Save(context.Background(), repository.NoTX, a)
	return a
}

func (d *reconcileDeps) stubPayment(rec *adapter.PaymentRecord) {
	d.gateway.GetPaymentFunc = func(ctx context.Context, id string) (*adapter.PaymentRecord, error) {
		if id == rec.ID {
			return rec, nil
		}
		return nil, domain.ErrNotFound
	}
}

func approvedRecord(id, userID string, amount float64, meta map[string]any) *adapter.PaymentRecord {
	return &adapter.PaymentRecord{
		ID:                id,
		Status:            "approved",
		LiveMode:          true,
		TransactionAmount: amount,
		CurrencyID:        "BRL",
		PaymentMethodID:   "pix",
		ExternalReference: userID,
		Metadata:          meta,
		DateCreated:       time.Now(),
	}
}

const testUserID = "3f0e8a3c-9f64-4c21-9a14-1b2d3c4e5f60"

func TestReconcile_ProcessPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("gateway test id never touches state", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		d.stubPayment(&adapter.PaymentRecord{ID: "123456", Status: "approved", LiveMode: true, TransactionAmount: 59.90})

		// --- Act ---
		res, err := d.uc.ProcessPayment(ctx, "123456")

		// --- Assert ---
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Success || !res.TestMode {
			t.Fatalf("want success test-mode result, got %+v", res)
		}
		if d.tm.Commits != 0 {
			t.Fatalf("expected no transaction, got %d commits", d.tm.Commits)
		}
		if got := len(d.payments.All()); got != 0 {
			t.Fatalf("expected no payments recorded, got %d", got)
		}
	})

	t.Run("sandbox notification short-circuits", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		d.stubPayment(&adapter.PaymentRecord{ID: "777", Status: "approved", LiveMode: false, TransactionAmount: 59.90})

		// --- Act ---
		res, err := d.uc.ProcessPayment(ctx, "777")

		// --- Assert ---
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.TestMode {
			t.Fatalf("want test-mode result, got %+v", res)
		}
		if d.tm.Commits != 0 {
			t.Fatal("sandbox notification must not open a transaction")
		}
	})

	t.Run("live payment without user reference fails loudly", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		d.stubPayment(&adapter.PaymentRecord{ID: "888", Status: "approved", LiveMode: true, TransactionAmount: 59.90})

		// --- Act ---
		_, err := d.uc.ProcessPayment(ctx, "888")

		// --- Assert ---
		if !errors.Is(err, domain.ErrMissingUserReference) {
			t.Fatalf("want ErrMissingUserReference, got %v", err)
		}
	})

	t.Run("approved payment creates subscription and ledger entry", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		plan := d.addPlan("b6f1d7e2-0a3b-4c5d-8e9f-001122334455", "Plano Premium", 59.90, model.IntervalMonthly)
		attempt := d.addPendingAttempt("a1", testUserID, plan, nil, time.Now().Add(-time.Minute))
		rec := approvedRecord("mp-1001", testUserID, 59.90, map[string]any{
			"user_id": testUserID, "plan_id": plan.ID, "plan_interval": "mensal",
		})
		d.stubPayment(rec)

		// --- Act ---
		res, err := d.uc.ProcessPayment(ctx, "mp-1001")

		// --- Assert ---
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Success || res.Status != "approved" {
			t.Fatalf("unexpected result: %+v", res)
		}
		got, _ := d.attempts.FindByID(ctx, repository.NoTX, attempt.ID)
		if got.Status != model.AttemptStatusApproved {
			t.Fatalf("attempt status = %s, want approved", got.Status)
		}
		sub, err := d.subs.FindActiveByUser(ctx, repository.NoTX, testUserID)
		if err != nil {
			t.Fatalf("no active subscription created: %v", err)
		}
		if sub.PlanID != plan.ID {
			t.Fatalf("subscription plan = %s, want %s", sub.PlanID, plan.ID)
		}
		wantEnd := model.IntervalMonthly.AddTo(sub.StartDate)
		if !sub.EndDate.Equal(wantEnd) {
			t.Fatalf("end date = %v, want %v", sub.EndDate, wantEnd)
		}
		p, err := d.payments.FindByTransactionID(ctx, repository.NoTX, "mp-1001")
		if err != nil {
			t.Fatalf("payment not recorded: %v", err)
		}
		if p.SubscriptionID == nil || *p.SubscriptionID != sub.ID {
			t.Fatal("payment not linked to the subscription")
		}
		if len(d.tm.LockedUsers) != 1 || d.tm.LockedUsers[0] != testUserID {
			t.Fatalf("user lock not taken: %v", d.tm.LockedUsers)
		}
		actions := d.audit.Actions()
		if len(actions) != 1 || actions[0] != model.LogPaymentProcessed {
			t.Fatalf("audit actions = %v", actions)
		}
	})

	t.Run("approval cancels stale sibling attempts", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		plan := d.addPlan("b6f1d7e2-0a3b-4c5d-8e9f-001122334455", "Plano Premium", 59.90, model.IntervalMonthly)
		stale := d.addPendingAttempt("old", testUserID, plan, nil, time.Now().Add(-time.Hour))
		latest := d.addPendingAttempt("new", testUserID, plan, nil, time.Now().Add(-time.Minute))
		d.stubPayment(approvedRecord("mp-1002", testUserID, 59.90, nil))

		// --- Act ---
		if _, err := d.uc.ProcessPayment(ctx, "mp-1002"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// --- Assert ---
		gotStale, _ := d.attempts.FindByID(ctx, repository.NoTX, stale.ID)
		if gotStale.Status != model.AttemptStatusCancelled {
			t.Fatalf("stale attempt status = %s, want cancelled", gotStale.Status)
		}
		gotLatest, _ := d.attempts.FindByID(ctx, repository.NoTX, latest.ID)
		if gotLatest.Status != model.AttemptStatusApproved {
			t.Fatalf("latest attempt status = %s, want approved", gotLatest.Status)
		}
	})

	t.Run("redelivery inside the dedup window is acknowledged without writes", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		existing := &model.Payment{
			ID: "pay-1", UserID: testUserID, Amount: 59.90, Currency: "BRL",
			TransactionID: "mp-first", Status: "approved", CreatedAt: time.Now().Add(-time.Hour),
		}
		_ = d.payments.Insert(ctx, repository.NoTX, existing)
		d.stubPayment(approvedRecord("mp-redelivered", testUserID, 59.90, nil))

		// --- Act ---
		res, err := d.uc.ProcessPayment(ctx, "mp-redelivered")

		// --- Assert ---
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Success || res.Message != "já processado anteriormente" {
			t.Fatalf("unexpected result: %+v", res)
		}
		if res.PaymentID != existing.ID {
			t.Fatalf("result should reference the existing payment, got %s", res.PaymentID)
		}
		if got := len(d.payments.All()); got != 1 {
			t.Fatalf("expected no new payment row, have %d", got)
		}
	})

	t.Run("unique transaction violation reads as already processed", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		plan := d.addPlan("b6f1d7e2-0a3b-4c5d-8e9f-001122334455", "Plano Premium", 59.90, model.IntervalMonthly)
		d.addPendingAttempt("a1", testUserID, plan, nil, time.Now())
		d.payments.InsertFunc = func(ctx context.Context, tx repository.Tx, p *model.Payment) error {
			return domain.ErrDuplicatePayment
		}
		d.stubPayment(approvedRecord("mp-raced", testUserID, 59.90, nil))

		// --- Act ---
		res, err := d.uc.ProcessPayment(ctx, "mp-raced")

		// --- Assert ---
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Success || res.Message != "já processado anteriormente" {
			t.Fatalf("unexpected result: %+v", res)
		}
		if d.tm.Rollbacks != 1 {
			t.Fatalf("expected the racing transaction to roll back, rollbacks=%d", d.tm.Rollbacks)
		}
	})

	t.Run("rejected payment only updates attempt status", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		plan := d.addPlan("b6f1d7e2-0a3b-4c5d-8e9f-001122334455", "Plano Premium", 59.90, model.IntervalMonthly)
		attempt := d.addPendingAttempt("a1", testUserID, plan, nil, time.Now())
		rec := approvedRecord("mp-rej", testUserID, 59.90, nil)
		rec.Status = "rejected"
		d.stubPayment(rec)

		// --- Act ---
		res, err := d.uc.ProcessPayment(ctx, "mp-rej")

		// --- Assert ---
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Success || res.Status != "rejected" {
			t.Fatalf("unexpected result: %+v", res)
		}
		got, _ := d.attempts.FindByID(ctx, repository.NoTX, attempt.ID)
		if got.Status != model.AttemptStatusRejected {
			t.Fatalf("attempt status = %s, want rejected", got.Status)
		}
		if _, err := d.subs.FindActiveByUser(ctx, repository.NoTX, testUserID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatal("rejected payment must not create a subscription")
		}
		if got := len(d.payments.All()); got != 0 {
			t.Fatalf("rejected payment must not be persisted, have %d", got)
		}
	})

	t.Run("orphan approval records the money without a subscription", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		d.addPlan("b6f1d7e2-0a3b-4c5d-8e9f-001122334455", "Plano Premium", 59.90, model.IntervalMonthly)
		// No attempt and no plan metadata: only the external reference.
		d.stubPayment(approvedRecord("mp-orphan", testUserID, 42.00, nil))

		// --- Act ---
		res, err := d.uc.ProcessPayment(ctx, "mp-orphan")

		// --- Assert ---
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Success {
			t.Fatalf("unexpected result: %+v", res)
		}
		if _, err := d.payments.FindByTransactionID(ctx, repository.NoTX, "mp-orphan"); err != nil {
			t.Fatalf("orphan payment not recorded: %v", err)
		}
		if _, err := d.subs.FindActiveByUser(ctx, repository.NoTX, testUserID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatal("orphan payment must not create a subscription")
		}
		actions := d.audit.Actions()
		if len(actions) != 1 || actions[0] != model.LogPaymentReceived {
			t.Fatalf("audit actions = %v", actions)
		}
	})

	t.Run("reactivation reuses the latest inactive subscription row", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		plan := d.addPlan("b6f1d7e2-0a3b-4c5d-8e9f-001122334455", "Plano Premium", 59.90, model.IntervalMonthly)
		old := &model.Subscription{
			ID: "sub-old", UserID: testUserID, PlanID: plan.ID,
			Status:    model.SubscriptionStatusExpired,
			StartDate: time.Now().AddDate(0, -2, 0), EndDate: time.Now().AddDate(0, -1, 0),
			CreatedAt: time.Now().AddDate(0, -2, 0), UpdatedAt: time.Now().AddDate(0, -1, 0),
		}
		_ = d.subs.Save(ctx, repository.NoTX, old)
		d.addPendingAttempt("a1", testUserID, plan, nil, time.Now())
		d.stubPayment(approvedRecord("mp-react", testUserID, 59.90, nil))

		// --- Act ---
		if _, err := d.uc.ProcessPayment(ctx, "mp-react"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// --- Assert ---
		sub, err := d.subs.FindActiveByUser(ctx, repository.NoTX, testUserID)
		if err != nil {
			t.Fatalf("no active subscription: %v", err)
		}
		if sub.ID != old.ID {
			t.Fatalf("expected row %s reactivated, got new row %s", old.ID, sub.ID)
		}
	})

	t.Run("renewal extends the active subscription in place", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		plan := d.addPlan("b6f1d7e2-0a3b-4c5d-8e9f-001122334455", "Plano Premium", 59.90, model.IntervalMonthly)
		current := &model.Subscription{
			ID: "sub-live", UserID: testUserID, PlanID: plan.ID,
			Status:    model.SubscriptionStatusActive,
			StartDate: time.Now().AddDate(0, -1, 0), EndDate: time.Now().AddDate(0, 0, 2),
			CreatedAt: time.Now().AddDate(0, -1, 0), UpdatedAt: time.Now().AddDate(0, -1, 0),
		}
		_ = d.subs.Save(ctx, repository.NoTX, current)
		d.addPendingAttempt("a1", testUserID, plan, nil, time.Now())
		d.stubPayment(approvedRecord("mp-renew", testUserID, 59.90, nil))

		// --- Act ---
		if _, err := d.uc.ProcessPayment(ctx, "mp-renew"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// --- Assert ---
		sub, _ := d.subs.FindActiveByUser(ctx, repository.NoTX, testUserID)
		if sub.ID != current.ID {
			t.Fatalf("renewal must reuse row %s, got %s", current.ID, sub.ID)
		}
		if !sub.EndDate.After(current.EndDate) {
			t.Fatalf("end date not extended: %v -> %v", current.EndDate, sub.EndDate)
		}
	})

	t.Run("coupon from the attempt is redeemed once after commit", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		plan := d.addPlan("b6f1d7e2-0a3b-4c5d-8e9f-001122334455", "Plano Premium", 59.90, model.IntervalMonthly)
		coupon := &model.Coupon{ID: "c1", Code: "BEMVINDO10", DiscountType: model.DiscountPercent, DiscountValue: 10, Active: true}
		d.coupons.Add(coupon)
		couponID := coupon.ID
		d.addPendingAttempt("a1", testUserID, plan, &couponID, time.Now())
		d.stubPayment(approvedRecord("mp-coupon", testUserID, 53.91, nil))

		// --- Act ---
		if _, err := d.uc.ProcessPayment(ctx, "mp-coupon"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// --- Assert ---
		if got := d.coupons.UsageCount(coupon.ID); got != 1 {
			t.Fatalf("coupon usage count = %d, want 1", got)
		}
		actions := d.audit.Actions()
		if len(actions) != 2 || actions[0] != model.LogCouponUsed || actions[1] != model.LogPaymentProcessed {
			t.Fatalf("audit actions = %v", actions)
		}
	})

	t.Run("already redeemed coupon does not fail the approval", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		plan := d.addPlan("b6f1d7e2-0a3b-4c5d-8e9f-001122334455", "Plano Premium", 59.90, model.IntervalMonthly)
		coupon := &model.Coupon{ID: "c1", Code: "BEMVINDO10", DiscountType: model.DiscountPercent, DiscountValue: 10, Active: true}
		d.coupons.Add(coupon)
		_ = d.coupons.RecordUsage(ctx, repository.NoTX, coupon.ID, testUserID)
		couponID := coupon.ID
		d.addPendingAttempt("a1", testUserID, plan, &couponID, time.Now())
		d.stubPayment(approvedRecord("mp-coupon2", testUserID, 53.91, nil))

		// --- Act ---
		res, err := d.uc.ProcessPayment(ctx, "mp-coupon2")

		// --- Assert ---
		if err != nil || !res.Success {
			t.Fatalf("approval must survive a redeemed coupon: res=%+v err=%v", res, err)
		}
		if got := d.coupons.UsageCount(coupon.ID); got != 1 {
			t.Fatalf("coupon usage count = %d, want 1", got)
		}
	})

	t.Run("empty catalog surfaces ErrNoActivePlans", func(t *testing.T) {
		// --- Arrange ---
		d := newReconcileDeps()
		d.stubPayment(approvedRecord("mp-noplans", testUserID, 59.90, map[string]any{
			"user_id": testUserID, "plan_id": "b6f1d7e2-0a3b-4c5d-8e9f-001122334455",
		}))

		// --- Act ---
		_, err := d.uc.ProcessPayment(ctx, "mp-noplans")

		// --- Assert ---
		if !errors.Is(err, domain.ErrNoActivePlans) {
			t.Fatalf("want ErrNoActivePlans, got %v", err)
		}
	})
}
