package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutResult carries what the frontend needs to hand the user to
// the gateway's checkout.
type CheckoutResult struct {
	PreferenceID string  `json:"preference_id"`
	InitPoint    string  `json:"init_point"`
	AttemptID    string  `json:"attempt_id"`
	FinalPrice   float64 `json:"final_price"`
}

// CheckoutUseCase creates gateway checkout preferences and the local
// payment attempt the webhook pipeline later reconciles against.
type CheckoutUseCase interface {
	Initiate(ctx context.Context, userID, planID, couponCode string) (*CheckoutResult, error)
}

// CheckoutURLs are the redirect targets registered on each preference.
type CheckoutURLs struct {
	Success string
	Failure string
	Pending string
}

type checkoutUC struct {
	users    repository.UserRepository
	plans    repository.PlanRepository
	coupons  repository.CouponRepository
	attempts repository.PaymentAttemptRepository
	gateway  adapter.PaymentGateway
	urls     CheckoutURLs
	log      *zerolog.Logger
}

func NewCheckoutUseCase(
	users repository.UserRepository,
	plans repository.PlanRepository,
	coupons repository.CouponRepository,
	attempts repository.PaymentAttemptRepository,
	gateway adapter.PaymentGateway,
	urls CheckoutURLs,
	logger *zerolog.Logger,
) *checkoutUC {
	return &checkoutUC{users: users, plans: plans, coupons: coupons, attempts: attempts, gateway: gateway, urls: urls, log: logger}
}

func (u *checkoutUC) Initiate(ctx context.Context, userID, planID, couponCode string) (*CheckoutResult, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("checkout user: %w", err)
	}
	plan, err := u.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("checkout plan: %w", err)
	}
	if !plan.Active {
		return nil, domain.ErrInvalidArgument
	}

	price := plan.Price
	var couponID *string
	if couponCode != "" {
		coupon, err := u.coupons.FindByCode(ctx, repository.NoTX, couponCode)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrCouponInactive
			}
			return nil, err
		}
		if err := coupon.Validate(time.Now()); err != nil {
			return nil, err
		}
		price = coupon.Apply(price)
		couponID = &coupon.ID
	}

	pref, err := u.gateway.CreatePreference(ctx, &adapter.PreferenceRequest{
		Items: []adapter.PreferenceItem{{
			Title:      plan.Name,
			Quantity:   1,
			UnitPrice:  price,
			CurrencyID: "BRL",
		}},
		Payer: adapter.PreferencePayer{Name: user.Name, Email: user.Email},
		BackURLs: adapter.BackURLs{
			Success: u.urls.Success,
			Failure: u.urls.Failure,
			Pending: u.urls.Pending,
		},
		AutoReturn:        "approved",
		ExternalReference: userID,
		Metadata: map[string]any{
			"user_id":       userID,
			"plan_id":       plan.ID,
			"plan_interval": string(plan.BillingInterval),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}

	now := time.Now()
	attempt := &model.PaymentAttempt{
		ID:           uuid.NewString(),
		UserID:       userID,
		PreferenceID: pref.PreferenceID,
		PlanID:       plan.ID,
		PlanName:     plan.Name,
		PlanPrice:    price,
		PlanInterval: plan.BillingInterval,
		Status:       model.AttemptStatusPending,
		CouponID:     couponID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.attempts.Save(ctx, repository.NoTX, attempt); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}

	u.log.Info().Str("user_id", userID).Str("plan_id", plan.ID).
		Str("preference_id", pref.PreferenceID).Float64("price", price).Msg("checkout initiated")

	return &CheckoutResult{
		PreferenceID: pref.PreferenceID,
		InitPoint:    pref.InitPoint,
		AttemptID:    attempt.ID,
		FinalPrice:   price,
	}, nil
}
