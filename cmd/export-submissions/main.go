// Package main is a one-off tool that writes a CSV of every form's
// submissions to the export bucket. It reads the database and never
// modifies it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"sync"
	"sync/atomic"

	"github.com/NomadCrew/formflow-backend/internal/storage"
	"github.com/NomadCrew/formflow-backend/internal/store/postgres"
	"github.com/NomadCrew/formflow-backend/services"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "List forms that would be exported without uploading")
	concurrency := flag.Int("concurrency", 4, "Number of parallel uploads")
	status := flag.String("status", string(types.FormStatusApproved), "Only export forms in this status (empty for all)")
	flag.Parse()

	if *concurrency < 1 {
		*concurrency = 1
	}
	if *status != "" && !types.FormStatus(*status).IsValid() {
		log.Fatalf("Unknown form status %q", *status)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, buildDatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}
	log.Println("Connected to database")

	st := postgres.NewStore(pool)
	forms, err := st.ListForms(ctx)
	if err != nil {
		log.Fatalf("Failed to list forms: %v", err)
	}
	subs, err := st.ListSubmissions(ctx)
	if err != nil {
		log.Fatalf("Failed to list submissions: %v", err)
	}

	byForm := make(map[string][]*types.Submission)
	for _, s := range subs {
		byForm[s.FormID] = append(byForm[s.FormID], s)
	}

	var selected []*types.Form
	for _, f := range forms {
		if *status == "" || string(f.Status) == *status {
			selected = append(selected, f)
		}
	}
	total := len(selected)
	log.Printf("Found %d forms to export", total)
	if total == 0 {
		return
	}

	if *dryRun {
		log.Println("=== DRY RUN: forms that would be exported ===")
		for i, f := range selected {
			fmt.Printf("  [%d/%d] %s (%s) %d submissions\n", i+1, total, f.Slug, f.Status, len(byForm[f.ID]))
		}
		return
	}

	fs, err := storage.NewS3Storage(ctx, storage.Options{
		Bucket:          requireEnv("STORAGE_BUCKET"),
		Region:          os.Getenv("STORAGE_REGION"),
		Endpoint:        os.Getenv("STORAGE_ENDPOINT"),
		AccessKeyID:     requireEnv("STORAGE_ACCESS_KEY_ID"),
		SecretAccessKey: requireEnv("STORAGE_SECRET_ACCESS_KEY"),
	})
	if err != nil {
		log.Fatalf("Failed to create storage client: %v", err)
	}
	exporter := services.NewExportService(fs)

	var (
		exported int64
		rows     int64
		errCount int64
		wg       sync.WaitGroup
		sem      = make(chan struct{}, *concurrency)
	)
	for i, f := range selected {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, f *types.Form) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := exporter.ExportSubmissions(ctx, f, byForm[f.ID])
			if err != nil {
				log.Printf("ERROR form %d/%d: export failed for %s: %v", idx+1, total, f.Slug, err)
				atomic.AddInt64(&errCount, 1)
				return
			}
			log.Printf("Exported form %d/%d: %s -> %s (%d rows)", idx+1, total, f.Slug, result.Key, result.Rows)
			atomic.AddInt64(&exported, 1)
			atomic.AddInt64(&rows, int64(result.Rows))
		}(i, f)
	}
	wg.Wait()

	log.Println("=== Export Summary ===")
	log.Printf("  Forms:    %d", total)
	log.Printf("  Exported: %d", exported)
	log.Printf("  Rows:     %d", rows)
	log.Printf("  Errors:   %d", errCount)

	if errCount > 0 {
		os.Exit(1)
	}
}

// buildDatabaseURL uses DATABASE_URL directly, or the individual DB_* vars.
func buildDatabaseURL() string {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u
	}

	host := envOrDefault("DB_HOST", "localhost")
	port := envOrDefault("DB_PORT", "5432")
	user := envOrDefault("DB_USER", "postgres")
	pass := envOrDefault("DB_PASSWORD", "")
	name := envOrDefault("DB_NAME", "formflow")
	ssl := envOrDefault("DB_SSL_MODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(user), url.QueryEscape(pass), host, port, name, ssl)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("Required environment variable %s is not set", key)
	}
	return v
}
