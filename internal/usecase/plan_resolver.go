package usecase

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
)

// PlanResolver maps the ambiguous plan hints carried by gateway events
// (raw ids, human names, billing intervals, charged amounts) onto
// canonical catalog rows. Webhooks arrive with anything from a proper
// UUID to a legacy slug like "plano_premium_mensal", so resolution is a
// prioritized fallback chain: first hit wins.
type PlanResolver struct {
	plans repository.PlanRepository
	log   *zerolog.Logger
}

func NewPlanResolver(plans repository.PlanRepository, logger *zerolog.Logger) *PlanResolver {
	return &PlanResolver{plans: plans, log: logger}
}

// Resolve runs the fallback chain. A nil plan with nil error means no
// active plan exists at all; callers must treat that as fatal when a
// subscription has to be created.
func (r *PlanResolver) Resolve(ctx context.Context, idHint, nameHint string, intervalHint model.BillingInterval) (*model.Plan, error) {
	// 1. UUID-shaped id: exact lookup.
	if looksLikeUUID(idHint) {
		p, err := r.plans.FindByID(ctx, idHint)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	// 2. Legacy slug: derive the bare name token and fuzzy-match.
	if idHint != "" && !looksLikeUUID(idHint) {
		if token := slugNameToken(idHint); token != "" {
			p, err := r.searchToken(ctx, token, intervalHint)
			if err != nil {
				return nil, err
			}
			if p == nil {
				// Targeted retry for the two catalog families the slugs
				// most often mangle.
				for _, kw := range []string{"basic", "premium"} {
					if strings.Contains(token, kw) {
						if p, err = r.searchToken(ctx, kw, intervalHint); err != nil {
							return nil, err
						}
						break
					}
				}
			}
			if p != nil {
				return p, nil
			}
		}
	}

	// 3. Explicit name hint.
	if nameHint != "" {
		p, err := r.plans.SearchByName(ctx, normalizeName(nameHint), "")
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}

	// 4. Interval alone.
	if intervalHint != "" {
		p, err := r.plans.FindByInterval(ctx, intervalHint)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}

	// 5. Any active plan, so the pipeline never stalls while a catalog
	// exists. 6. nil when even that fails.
	active, err := r.plans.ListActive(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if len(active) == 0 {
		r.log.Warn().Str("id_hint", idHint).Str("name_hint", nameHint).Msg("plan resolution exhausted: no active plans")
		return nil, nil
	}
	r.log.Warn().Str("id_hint", idHint).Str("plan", active[0].Name).Msg("plan resolved by last-resort fallback")
	return active[0], nil
}

// searchToken tries the token with the interval filter, then without.
func (r *PlanResolver) searchToken(ctx context.Context, token string, interval model.BillingInterval) (*model.Plan, error) {
	p, err := r.plans.SearchByName(ctx, token, interval)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if p == nil && interval != "" {
		p, err = r.plans.SearchByName(ctx, token, "")
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return p, nil
}

// ClosestByAmount picks the active plan whose price is nearest to the
// charged amount, accepted only when the relative difference stays
// under 5%. Gateway payment records carry a reliable amount even when
// their metadata is junk.
func (r *PlanResolver) ClosestByAmount(ctx context.Context, amount float64, intervalHint model.BillingInterval) (*model.Plan, error) {
	if amount <= 0 {
		return nil, nil
	}
	active, err := r.plans.ListActive(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var best *model.Plan
	bestDiff := math.MaxFloat64
	for _, p := range active {
		if intervalHint != "" && p.BillingInterval != intervalHint {
			continue
		}
		if d := math.Abs(p.Price - amount); d < bestDiff {
			best, bestDiff = p, d
		}
	}
	if best == nil && intervalHint != "" {
		// No plan on that interval; retry across the whole catalog.
		return r.ClosestByAmount(ctx, amount, "")
	}
	if best == nil || bestDiff/amount >= 0.05 {
		return nil, nil
	}
	return best, nil
}

// looksLikeUUID checks the canonical 8-4-4-4-12 shape.
func looksLikeUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, c := range s {
		switch i {
		case 8, 13, 18, 23:
			if c != '-' {
				return false
			}
		default:
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
				return false
			}
		}
	}
	return true
}

// slugNameToken derives the bare plan name from a legacy slug id:
// "plano_premium_mensal" -> "premium". Interval suffixes are dropped;
// ids without the slug shape normalize to themselves.
func slugNameToken(id string) string {
	token := normalizeName(id)
	token = strings.TrimPrefix(token, "plano_")
	token = strings.TrimPrefix(token, "plan_")
	parts := strings.Split(token, "_")
	if len(parts) > 1 {
		if model.ParseInterval(parts[len(parts)-1]) != "" {
			parts = parts[:len(parts)-1]
		}
	}
	return strings.Join(parts, " ")
}

var diacritics = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func normalizeName(s string) string {
	return diacritics.Replace(strings.ToLower(strings.TrimSpace(s)))
}
