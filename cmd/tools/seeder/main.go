package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-comissoes/internal/auth"
	"github.com/noah-isme/backend-comissoes/internal/commission"
	"github.com/noah-isme/backend-comissoes/internal/config"
	"github.com/noah-isme/backend-comissoes/internal/order"
	"github.com/noah-isme/backend-comissoes/internal/sku"
	"github.com/noah-isme/backend-comissoes/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	seedRates(ctx, sku.Store{DB: pool})
	seedOrders(ctx, order.Store{Pool: pool})

	printDemoToken(cfg)
	log.Println("seeding completed")
}

func seedRates(ctx context.Context, store sku.Store) {
	log.Println("seeding sku rates...")
	rates := []sku.Rate{
		{SKU: "BOMBA-001", Description: "Bomba centrífuga 1cv", Percentage: decimal.RequireFromString("2.5")},
		{SKU: "FILTRO-020", Description: "Filtro de areia 20m³", Percentage: decimal.RequireFromString("3")},
		{SKU: "CLORO-10KG", Description: "Cloro granulado balde 10kg", Percentage: decimal.RequireFromString("1.5")},
		{SKU: "LED-RGB", Description: "Refletor LED RGB", Percentage: decimal.RequireFromString("4")},
		{SKU: "CAPA-58", Description: "Capa térmica 5x8m", Percentage: decimal.RequireFromString("2")},
	}
	for _, rate := range rates {
		if err := store.Create(ctx, rate); err != nil {
			if errors.Is(err, sku.ErrDuplicate) {
				continue
			}
			log.Fatalf("seed rate %s: %v", rate.SKU, err)
		}
	}
}

func seedOrders(ctx context.Context, store order.Store) {
	log.Println("seeding orders and deliveries...")
	orders := []commission.Order{
		{
			ID:   "PED-2024-0101",
			Date: date(2024, time.January, 8),
			Items: []commission.OrderLineItem{
				{SKU: "BOMBA-001", Quantity: 2, UnitValue: decimal.RequireFromString("1450"), DiscCom: decimal.RequireFromString("5")},
				{SKU: "FILTRO-020", Quantity: 1, UnitValue: decimal.RequireFromString("2190"), DiscCom: decimal.RequireFromString("5"), DiscAdi: decimal.RequireFromString("2")},
			},
		},
		{
			ID:   "PED-2024-0102",
			Date: date(2024, time.January, 22),
			Items: []commission.OrderLineItem{
				{SKU: "CLORO-10KG", Quantity: 10, UnitValue: decimal.RequireFromString("289.9")},
				{SKU: "LED-RGB", Quantity: 4, UnitValue: decimal.RequireFromString("399"), IPI: decimal.RequireFromString("10")},
			},
		},
		{
			ID:   "PED-2024-0201",
			Date: date(2024, time.February, 5),
			Items: []commission.OrderLineItem{
				{SKU: "CAPA-58", Quantity: 1, UnitValue: decimal.RequireFromString("1890"), DiscCom: decimal.RequireFromString("10")},
			},
		},
	}
	if err := store.SaveOrders(ctx, orders); err != nil {
		log.Fatalf("seed orders: %v", err)
	}

	// PED-2024-0201 is left without a delivery so the missing-deliveries
	// report has something to show.
	deliveries := []commission.DeliveryRecord{
		{OrderID: "PED-2024-0101", SKU: "BOMBA-001", ExpectedDelivery: date(2024, time.January, 18)},
		{OrderID: "PED-2024-0101", SKU: "FILTRO-020", ExpectedDelivery: date(2024, time.January, 25)},
		{OrderID: "PED-2024-0102", SKU: "CLORO-10KG", ExpectedDelivery: date(2024, time.February, 2)},
		{OrderID: "PED-2024-0102", SKU: "LED-RGB", ExpectedDelivery: date(2024, time.February, 9)},
	}
	if err := store.SaveDeliveries(ctx, deliveries); err != nil {
		log.Fatalf("seed deliveries: %v", err)
	}
}

func printDemoToken(cfg *config.Config) {
	svc, err := auth.NewService(auth.Config{
		Secret:         cfg.JWTSecret,
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		log.Fatalf("initialise auth service: %v", err)
	}
	token, expiry, err := svc.SignAccessToken("seed-admin")
	if err != nil {
		log.Fatalf("sign demo token: %v", err)
	}
	log.Printf("demo token (valid until %s): %s", expiry.Format(time.RFC3339), token)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
