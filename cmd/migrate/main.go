package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"biasclean/adapters/postgres"
	"biasclean/adapters/postgres/migrations"
	"biasclean/domain/core"
	"biasclean/domain/fairness"
	"biasclean/internal"
	"biasclean/ports"
)

const usage = `Usage:
  migrate <database_url> up
  migrate <database_url> status
  migrate <database_url> import <report_dir>`

func main() {
	if len(os.Args) < 3 {
		log.Fatal(usage)
	}
	databaseURL, command := os.Args[1], os.Args[2]

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	migrator := migrations.NewMigrator(db.DB, internal.NewDefaultLogger())

	switch command {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Schema is up to date")
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%s_%s\t%s\n", s.Version, s.Name, state)
		}
	case "import":
		if len(os.Args) < 4 {
			log.Fatal(usage)
		}
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		importReports(ctx, postgres.NewReportRepository(db), os.Args[3])
	default:
		log.Fatalf("Unknown command %q\n%s", command, usage)
	}
}

// importReports loads report JSON files exported by the API into the store
func importReports(ctx context.Context, repo ports.ReportRepository, dir string) {
	files, err := findReportFiles(dir)
	if err != nil {
		log.Fatalf("Failed to find report files: %v", err)
	}
	log.Printf("Found %d report files to import", len(files))

	imported, skipped := 0, 0
	for _, file := range files {
		report, err := loadReportFromFile(file)
		if err != nil {
			log.Printf("Failed to load report from %s: %v", file, err)
			skipped++
			continue
		}
		if err := repo.Save(ctx, report); err != nil {
			log.Printf("Failed to save report %s: %v", report.RunID, err)
			skipped++
			continue
		}
		imported++
		log.Printf("Imported report %s from %s", report.RunID, filepath.Base(file))
	}

	log.Printf("Import complete: %d imported, %d skipped", imported, skipped)
}

func findReportFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// loadReportFromFile decodes a report. Reports without a run ID get one
// derived from the file path so repeated imports upsert the same row.
func loadReportFromFile(path string) (*fairness.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var report fairness.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	if report.Domain == "" {
		return nil, fmt.Errorf("%s is not a mitigation report", filepath.Base(path))
	}
	if report.RunID == "" {
		report.RunID = core.RunID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String())
	}
	return &report, nil
}
