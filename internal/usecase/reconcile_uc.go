package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
	"subscription-commerce/internal/infra/logging"
)

// testPaymentID is the id the gateway sends on its connectivity checks.
const testPaymentID = "123456"

// recentPaymentWindow bounds the duplicate-delivery guard: an approved
// payment already recorded for the user inside this window means the
// notification is a redelivery.
const recentPaymentWindow = 24 * time.Hour

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ProcessResult is the reconciliation outcome relayed to the gateway.
type ProcessResult struct {
	Success   bool   `json:"success"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	TestMode  bool   `json:"test_mode,omitempty"`

	Amount   float64 `json:"-"` // for metrics only
	Currency string  `json:"-"`
}

// ReconcileUseCase drives the payment webhook reconciliation pipeline:
// match a gateway-reported payment to local billing state and apply the
// correct idempotent transition.
type ReconcileUseCase interface {
	ProcessPayment(ctx context.Context, paymentID string) (*ProcessResult, error)
}

type reconcileUC struct {
	gateway  adapter.PaymentGateway
	resolver *PlanResolver
	attempts repository.PaymentAttemptRepository
	subs     repository.SubscriptionRepository
	payments repository.PaymentRepository
	coupons  repository.CouponRepository
	audit    repository.FinancialLogRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewReconcileUseCase(
	gateway adapter.PaymentGateway,
	resolver *PlanResolver,
	attempts repository.PaymentAttemptRepository,
	subs repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	coupons repository.CouponRepository,
	audit repository.FinancialLogRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *reconcileUC {
	return &reconcileUC{
		gateway:  gateway,
		resolver: resolver,
		attempts: attempts,
		subs:     subs,
		payments: payments,
		coupons:  coupons,
		audit:    audit,
		tm:       tm,
		log:      logger,
	}
}

// ProcessPayment fetches the full payment record from the gateway and
// reconciles it against local state. The whole read-modify-write runs
// in one transaction under a per-user advisory lock, so concurrent
// redeliveries for the same user serialize instead of racing the
// duplicate check.
func (u *reconcileUC) ProcessPayment(ctx context.Context, paymentID string) (*ProcessResult, error) {
	defer logging.TraceDuration(u.log, "ReconcileUC.ProcessPayment")()

	rec, err := u.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}

	// Gateway connectivity tests must never touch persistent state.
	if paymentID == testPaymentID || !rec.LiveMode {
		u.log.Info().Str("payment_id", paymentID).Bool("live_mode", rec.LiveMode).Msg("test notification ignored")
		return &ProcessResult{Success: true, TestMode: true, Message: "test notification ignored"}, nil
	}

	meta := model.ParsePaymentMetadata(rec.Metadata)
	userID := meta.UserID
	if userID == "" {
		userID = rec.ExternalReference
	}
	if userID == "" {
		// Unreconcilable revenue; make it loud.
		u.log.Error().Str("payment_id", paymentID).Str("status", rec.Status).
			Float64("amount", rec.TransactionAmount).Msg("live payment without user reference")
		return nil, domain.ErrMissingUserReference
	}
	ctx = logging.WithUserID(ctx, userID)

	var result *ProcessResult
	var post []postCommit
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.tm.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		r, p, err := u.reconcile(ctx, tx, rec, meta, userID)
		result, post = r, p
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicatePayment) {
			// Another delivery won the insert race; nothing to redo.
			return &ProcessResult{Success: true, Status: rec.Status, Message: "já processado anteriormente", PaymentID: rec.ID}, nil
		}
		return nil, err
	}

	// Audit-trail and coupon bookkeeping run after commit: their
	// failure must never roll back the money-moving writes.
	for _, fn := range post {
		fn(ctx)
	}
	return result, nil
}

// postCommit is best-effort work deferred past the transaction.
type postCommit func(ctx context.Context)

func (u *reconcileUC) reconcile(ctx context.Context, tx repository.Tx, rec *adapter.PaymentRecord, meta model.PaymentMetadata, userID string) (*ProcessResult, []postCommit, error) {
	now := time.Now()

	// Primary at-most-once guard: gateways redeliver notifications.
	if rec.Status == "approved" {
		recent, err := u.payments.FindRecentApprovedByUser(ctx, tx, userID, now.Add(-recentPaymentWindow))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, err
		}
		if recent != nil {
			u.log.Info().Str("payment_id", rec.ID).Str("existing", recent.ID).Msg("duplicate approved payment ignored")
			return &ProcessResult{Success: true, Status: rec.Status, Message: "já processado anteriormente", PaymentID: recent.ID}, nil, nil
		}
	}

	attempt, err := u.attempts.FindLatestByUser(ctx, tx, userID, "")
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	if attempt != nil {
		if err := u.attempts.UpdateStatus(ctx, tx, attempt.ID, model.MapGatewayStatus(rec.Status)); err != nil {
			return nil, nil, err
		}
	}

	if rec.Status != "approved" {
		// Status bookkeeping only; no subscription mutation.
		return &ProcessResult{Success: true, Status: rec.Status, PaymentID: rec.ID}, nil, nil
	}

	if attempt == nil && meta.PlanID == "" {
		// Approved payment with neither attempt nor usable metadata:
		// record the money so the confirmation is never dropped, skip
		// subscription linkage.
		return u.recordOrphanPayment(ctx, tx, rec, userID, now)
	}

	return u.applyApproval(ctx, tx, rec, meta, attempt, userID, now)
}

// applyApproval runs the subscription create/renew/reactivate path for
// an approved payment that has attempt context or usable metadata.
func (u *reconcileUC) applyApproval(ctx context.Context, tx repository.Tx, rec *adapter.PaymentRecord, meta model.PaymentMetadata, attempt *model.PaymentAttempt, userID string, now time.Time) (*ProcessResult, []postCommit, error) {
	keepID := ""
	planIDHint := meta.PlanID
	planNameHint := ""
	interval := meta.PlanInterval
	var couponID *string

	if attempt != nil {
		keepID = attempt.ID
		if attempt.PlanID != "" {
			planIDHint = attempt.PlanID
		}
		planNameHint = attempt.PlanName
		if attempt.PlanInterval != "" {
			interval = attempt.PlanInterval
		}
		couponID = attempt.CouponID
	}

	// At most one attempt stays relevant after an approval.
	if cancelled, err := u.attempts.CancelPendingExcept(ctx, tx, userID, keepID); err != nil {
		return nil, nil, err
	} else if cancelled > 0 {
		u.log.Debug().Str("user_id", userID).Int64("cancelled", cancelled).Msg("sibling attempts cancelled")
	}

	plan, err := u.resolver.Resolve(ctx, planIDHint, planNameHint, interval)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		plan, err = u.resolver.ClosestByAmount(ctx, rec.TransactionAmount, interval)
		if err != nil {
			return nil, nil, err
		}
	}
	if plan == nil {
		return nil, nil, fmt.Errorf("payment %s: %w", rec.ID, domain.ErrNoActivePlans)
	}
	if interval == "" {
		interval = plan.BillingInterval
	}

	sub, err := u.upsertSubscription(ctx, tx, userID, plan, interval, couponID, now)
	if err != nil {
		return nil, nil, err
	}

	payment := &model.Payment{
		ID:             uuid.NewString(),
		UserID:         userID,
		Amount:         rec.TransactionAmount,
		Currency:       currencyOrDefault(rec.CurrencyID),
		PaymentMethod:  rec.PaymentMethodID,
		TransactionID:  rec.ID,
		Status:         rec.Status,
		SubscriptionID: &sub.ID,
		CreatedAt:      now,
	}
	if err := u.payments.Insert(ctx, tx, payment); err != nil {
		return nil, nil, err
	}

	var post []postCommit
	if couponID != nil {
		post = append(post, u.redeemCoupon(*couponID, userID))
	}
	post = append(post, u.appendAudit(&model.FinancialLog{
		UserID:      userID,
		Action:      model.LogPaymentProcessed,
		Description: fmt.Sprintf("pagamento aprovado: %s (%s)", plan.Name, interval),
		Payload: map[string]any{
			"transaction_id": rec.ID,
			"plan_id":        plan.ID,
			"plan_name":      plan.Name,
			"plan_interval":  string(interval),
			"amount":         rec.TransactionAmount,
		},
	}))

	logging.With(ctx, u.log).Info().Str("payment_id", rec.ID).
		Str("plan", plan.Name).Str("subscription_id", sub.ID).
		Float64("amount", rec.TransactionAmount).Msg("payment reconciled")

	return &ProcessResult{
		Success:   true,
		Status:    rec.Status,
		PaymentID: payment.ID,
		Amount:    rec.TransactionAmount,
		Currency:  payment.Currency,
	}, post, nil
}

// upsertSubscription renews the active subscription if one exists,
// otherwise reactivates the most recent inactive one, and only inserts
// a brand-new row when the user has no history at all.
func (u *reconcileUC) upsertSubscription(ctx context.Context, tx repository.Tx, userID string, plan *model.Plan, interval model.BillingInterval, couponID *string, now time.Time) (*model.Subscription, error) {
	sub, err := u.subs.FindActiveByUser(ctx, tx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if sub == nil {
		sub, err = u.subs.FindLatestInactiveByUser(ctx, tx, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if sub != nil {
		sub.Renew(plan, now)
		sub.EndDate = interval.AddTo(now)
	} else {
		sub, err = model.NewSubscription(uuid.NewString(), userID, plan, now)
		if err != nil {
			return nil, err
		}
		sub.EndDate = interval.AddTo(now)
	}
	if couponID != nil {
		sub.CouponID = couponID
	}
	if err := u.subs.Save(ctx, tx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// recordOrphanPayment persists a minimal ledger entry for an approved
// payment that cannot be tied to a plan.
func (u *reconcileUC) recordOrphanPayment(ctx context.Context, tx repository.Tx, rec *adapter.PaymentRecord, userID string, now time.Time) (*ProcessResult, []postCommit, error) {
	payment := &model.Payment{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        rec.TransactionAmount,
		Currency:      currencyOrDefault(rec.CurrencyID),
		PaymentMethod: rec.PaymentMethodID,
		TransactionID: rec.ID,
		Status:        rec.Status,
		CreatedAt:     now,
	}
	if err := u.payments.Insert(ctx, tx, payment); err != nil {
		return nil, nil, err
	}

	logging.With(ctx, u.log).Warn().Str("payment_id", rec.ID).
		Float64("amount", rec.TransactionAmount).Msg("approved payment recorded without attempt context")

	post := []postCommit{u.appendAudit(&model.FinancialLog{
		UserID:      userID,
		Action:      model.LogPaymentReceived,
		Description: "pagamento aprovado sem tentativa associada",
		Payload: map[string]any{
			"transaction_id": rec.ID,
			"amount":         rec.TransactionAmount,
			"description":    rec.Description,
		},
	})}
	return &ProcessResult{
		Success:   true,
		Status:    rec.Status,
		Message:   "payment recorded without plan linkage",
		PaymentID: payment.ID,
		Amount:    rec.TransactionAmount,
		Currency:  payment.Currency,
	}, post, nil
}

// redeemCoupon records usage once per (coupon, user); the unique
// constraint makes replays harmless.
func (u *reconcileUC) redeemCoupon(couponID, userID string) postCommit {
	return func(ctx context.Context) {
		err := u.coupons.RecordUsage(ctx, repository.NoTX, couponID, userID)
		switch {
		case err == nil:
			u.appendAudit(&model.FinancialLog{
				UserID:      userID,
				Action:      model.LogCouponUsed,
				Description: "cupom aplicado",
				Payload:     map[string]any{"coupon_id": couponID},
			})(ctx)
		case errors.Is(err, domain.ErrAlreadyExists):
			u.log.Debug().Str("coupon_id", couponID).Str("user_id", userID).Msg("coupon already redeemed")
		default:
			u.log.Warn().Err(err).Str("coupon_id", couponID).Str("user_id", userID).Msg("coupon usage not recorded")
		}
	}
}

// appendAudit writes a financial log entry, swallowing failures:
// audit-log loss must not block money-moving operations.
func (u *reconcileUC) appendAudit(entry *model.FinancialLog) postCommit {
	return func(ctx context.Context) {
		entry.ID = ulid.Make().String()
		entry.CreatedAt = time.Now()
		if err := u.audit.Append(ctx, repository.NoTX, entry); err != nil {
			u.log.Warn().Err(err).Str("action", entry.Action).Str("user_id", entry.UserID).Msg("financial log append failed")
		}
	}
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "BRL"
	}
	return c
}
