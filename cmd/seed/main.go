package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"subscription-commerce/internal/config"
	pg "subscription-commerce/internal/infra/db/postgres"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)
	planUC := usecase.NewPlanUseCase(planRepo)

	// If plans already exist, do nothing
	plans, err := planUC.ListActive(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (%s, R$ %.2f)\n", p.Name, p.BillingInterval, p.Price)
		}
		return
	}

	seed := []struct {
		Name     string
		Price    float64
		Interval model.BillingInterval
	}{
		{"Plano Básico", 29.90, model.IntervalMonthly},
		{"Plano Básico", 79.90, model.IntervalQuarterly},
		{"Plano Básico", 299.90, model.IntervalYearly},
		{"Plano Premium", 59.90, model.IntervalMonthly},
		{"Plano Premium", 159.90, model.IntervalQuarterly},
		{"Plano Premium", 599.90, model.IntervalYearly},
	}

	for _, s := range seed {
		p, err := planUC.Create(ctx, s.Name, s.Price, s.Interval, "")
		if err != nil {
			log.Fatalf("create plan %q (%s): %v", s.Name, s.Interval, err)
		}
		fmt.Printf("seeded: %s (id=%s, %s, R$ %.2f)\n", p.Name, p.ID, p.BillingInterval, p.Price)
	}

	fmt.Println("Seeding complete.")
}
