package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"biasclean/adapters/memory"
	"biasclean/adapters/postgres"
	"biasclean/adapters/postgres/migrations"
	"biasclean/adapters/report"
	"biasclean/adapters/rng"
	"biasclean/app"
	"biasclean/internal"
	"biasclean/internal/config"
	"biasclean/internal/errors"
	"biasclean/internal/metrics"
	"biasclean/internal/mitigation"
	"biasclean/ports"
	"biasclean/ui"
)

// initDatabase connects to postgres and applies pending migrations
func initDatabase(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to ping database", err)
	}

	if cfg.Database.MigrateOnBoot {
		if err := migrations.NewMigrator(db.DB, logger).Up(ctx); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "database migration failed")
		}
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reports ports.ReportRepository
	if cfg.Database.Enabled() {
		db, err := initDatabase(ctx, cfg, logger)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		reports = postgres.NewReportRepository(db)
		logger.Info("reports stored in postgres")
	} else {
		reports = memory.NewReportRepository()
		logger.Warn("DATABASE_URL not set; reports are kept in memory only")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := mitigation.NewEngine(rng.New(), logger)
	service := app.NewMitigationService(engine, reports, report.NewRenderer(), metrics.New(registry), cfg.Server.MaxConcurrentRuns, logger)
	server := ui.NewServer(cfg, service, registry, logger)

	logger.Info("listening on :%s", cfg.Server.Port)
	if err := server.Start(ctx, ":"+cfg.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
