package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
	"subscription-commerce/internal/infra/metrics"
	red "subscription-commerce/internal/infra/redis"
)

var _ repository.PlanRepository = (*planRepoCacheDecorator)(nil)

// planRepoCacheDecorator caches single-plan and active-list lookups.
// Search queries stay uncached: the resolver's fuzzy matching hits too
// many key shapes to be worth invalidating.
type planRepoCacheDecorator struct {
	inner repository.PlanRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPlanRepoCacheDecorator(inner repository.PlanRepository, cache red.RedisClient) repository.PlanRepository {
	return &planRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   1 * time.Hour,
	}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	key := fmt.Sprintf("plan:%s", id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("plan", "hit")
		var plan model.Plan
		if json.Unmarshal([]byte(val), &plan) == nil {
			return &plan, nil
		}
	}
	if err != nil && err != redis.Nil {
		// Redis errors degrade to a database read.
	}

	metrics.IncCacheRequest("plan", "miss")
	plan, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		bytes, _ := json.Marshal(plan)
		d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return plan, nil
}

func (d *planRepoCacheDecorator) ListActive(ctx context.Context) ([]*model.Plan, error) {
	key := "plans:active"
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("plan_list", "hit")
		var plans []*model.Plan
		if json.Unmarshal([]byte(val), &plans) == nil {
			return plans, nil
		}
	}

	metrics.IncCacheRequest("plan_list", "miss")
	plans, err := d.inner.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		bytes, _ := json.Marshal(plans)
		d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return plans, nil
}

// For write operations, we must invalidate the cache.
func (d *planRepoCacheDecorator) Save(ctx context.Context, plan *model.Plan) error {
	d.cache.Del(ctx, fmt.Sprintf("plan:%s", plan.ID))
	d.cache.Del(ctx, "plans:active")
	return d.inner.Save(ctx, plan)
}

func (d *planRepoCacheDecorator) Delete(ctx context.Context, id string) error {
	d.cache.Del(ctx, fmt.Sprintf("plan:%s", id))
	d.cache.Del(ctx, "plans:active")
	return d.inner.Delete(ctx, id)
}

func (d *planRepoCacheDecorator) SearchByName(ctx context.Context, nameToken string, interval model.BillingInterval) (*model.Plan, error) {
	return d.inner.SearchByName(ctx, nameToken, interval)
}

func (d *planRepoCacheDecorator) FindByInterval(ctx context.Context, interval model.BillingInterval) (*model.Plan, error) {
	return d.inner.FindByInterval(ctx, interval)
}
