package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/stemsi/interview-backend/internal/catalog"
	"github.com/stemsi/interview-backend/internal/config"
	"github.com/stemsi/interview-backend/internal/database"
	"github.com/stemsi/interview-backend/internal/enrichment"
	"github.com/stemsi/interview-backend/internal/logger"
	"github.com/stemsi/interview-backend/internal/repository"
)

// seed-problems enriches catalog problems ahead of time so the first
// interviews on a fresh deployment do not wait on detail fetches.
func main() {
	var (
		difficulties string
		topics       string
		perFilter    int
	)
	flag.StringVar(&difficulties, "difficulties", "easy,medium,hard", "Comma-separated difficulties to seed")
	flag.StringVar(&topics, "topics", "array,string,hash-table,dynamic-programming,tree,graph", "Comma-separated topic tags to seed")
	flag.IntVar(&perFilter, "per", 5, "Problems to enrich per difficulty and topic")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	source := catalog.NewGraphQLClient(cfg.CatalogURL, cfg.CatalogTimeout, log)
	enricher := enrichment.NewEnricher(source, repository.NewProblemRepository(pool), cfg.TargetLanguage, cfg.CatalogTimeout, log)

	fmt.Println("=== Seeding Problem Store ===")

	seen := make(map[string]struct{})
	successCount, failCount := 0, 0
	for _, difficulty := range splitList(difficulties) {
		for _, topic := range splitList(topics) {
			list, err := source.ListProblems(ctx, catalog.ListFilter{
				Difficulty: difficulty,
				Topic:      topic,
				Limit:      perFilter,
			})
			if err != nil {
				log.Warn().Err(err).Str("difficulty", difficulty).Str("topic", topic).Msg("Listing failed")
				continue
			}

			for _, summary := range list {
				if _, ok := seen[summary.CatalogID]; ok {
					continue
				}
				seen[summary.CatalogID] = struct{}{}

				if _, err := enricher.Enrich(ctx, summary); err != nil {
					failCount++
					fmt.Printf("Error enriching %s (%s): %v\n", summary.Title, summary.Slug, err)
					continue
				}
				successCount++
				if successCount%10 == 0 {
					fmt.Printf("Enriched %d problems...\n", successCount)
				}
			}
		}
	}

	fmt.Printf("\nSeed completed! Enriched %d problems, %d failed.\n", successCount, failCount)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
