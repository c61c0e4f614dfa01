// Command seed fills a local database with plausible store metrics so the
// dashboard can be exercised without real POS exports.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/caratlabs/storepulse/internal/domain/etl/extractor"
	"github.com/caratlabs/storepulse/internal/domain/etl/repository"
	"github.com/caratlabs/storepulse/pkg/db"
)

// storeProfile shapes a store's generated numbers so KPIs differ per store.
type storeProfile struct {
	id            string
	baseCustomers float64
	baseSpend     float64
	baseLabor     float64
}

func main() {
	dbPath := flag.String("db", "./data/storepulse.db", "path to the SQLite database")
	days := flag.Int("days", 730, "days of history to generate")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	faker := gofakeit.New(*seed)

	database, err := db.New(*dbPath, logger)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	repo := repository.NewSQLiteRepository(database.SQL)

	stores := []storeProfile{
		{id: "ST001", baseCustomers: 120, baseSpend: 3200, baseLabor: 40},
		{id: "ST002", baseCustomers: 85, baseSpend: 4100, baseLabor: 32},
		{id: "ST003", baseCustomers: 150, baseSpend: 2700, baseLabor: 48},
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -*days)

	var records []repository.MetricRecord
	for _, store := range stores {
		for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
			records = append(records, dailyRecords(faker, store, d)...)
		}
	}

	result, err := repo.UpsertDaily(context.Background(), records)
	if err != nil {
		logger.Error("failed to seed metrics", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("seed completed",
		slog.Int("stores", len(stores)),
		slog.Int("days", *days),
		slog.Int("inserted", result.Inserted),
		slog.Int("updated", result.Updated),
	)
}

// dailyRecords generates one day of the four metrics with weekly rhythm,
// yearly seasonality and noise.
func dailyRecords(faker *gofakeit.Faker, store storeProfile, day time.Time) []repository.MetricRecord {
	weekday := 1.0
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		weekday = 1.35
	}
	// Peak season around December, trough in early summer.
	seasonal := 1 + 0.15*math.Cos(2*math.Pi*float64(day.YearDay()-350)/365)

	customers := store.baseCustomers * weekday * seasonal * faker.Float64Range(0.85, 1.15)
	spend := store.baseSpend * faker.Float64Range(0.9, 1.1)
	labor := store.baseLabor * weekday * faker.Float64Range(0.9, 1.1)
	sales := customers * spend

	return []repository.MetricRecord{
		{StoreID: store.id, Date: day, Metric: extractor.MetricCustomerCount, Value: math.Round(customers)},
		{StoreID: store.id, Date: day, Metric: extractor.MetricAverageSpend, Value: math.Round(spend)},
		{StoreID: store.id, Date: day, Metric: extractor.MetricLaborHours, Value: math.Round(labor*10) / 10},
		{StoreID: store.id, Date: day, Metric: extractor.MetricSalesAmount, Value: math.Round(sales)},
	}
}
