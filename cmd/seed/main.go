// Command seed loads hazard reports from a CSV file into the configured store,
// owned by a single user. It runs every row through the same validation and
// geocoding rules as the API.
//
// Usage:
//
//	go run ./cmd/seed -csv data/seed/reports.csv -owner 6f1c0e1a-... [-geocode]
//
// The CSV header must name the columns type, description, latitude and
// longitude; address and date are optional.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/hazard-report-service/internal/app"
	"github.com/couchcryptid/hazard-report-service/internal/config"
	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
	"github.com/couchcryptid/hazard-report-service/internal/reports"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "path to the reports CSV file")
	owner := flag.String("owner", "", "user id that will own every seeded report")
	geocode := flag.Bool("geocode", false, "resolve blank addresses through the configured geocoder")
	flag.Parse()

	if *csvPath == "" || *owner == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -owner")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()
	ctx := context.Background()

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		return err
	}

	backing, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backing.Close(logger)

	var resolver domain.AddressResolver
	if *geocode {
		cache, err := app.NewGeocodeCache(ctx, cfg, clock, metrics, logger, backing)
		if err != nil {
			return err
		}
		resolver = cache
	}

	svc := reports.NewService(backing.Reports, resolver, nil, clock, metrics, logger)
	created, err := seed(ctx, svc, *owner, rows)
	if err != nil {
		return err
	}
	log.Printf("seeded %d reports for %s", len(created), *owner)
	printStats(created)
	return nil
}

// creator is the slice of reports.Service the seed needs.
type creator interface {
	Create(ctx context.Context, callerID string, in domain.ReportInput) (domain.Report, error)
}

func seed(ctx context.Context, svc creator, owner string, rows []row) ([]domain.Report, error) {
	out := make([]domain.Report, 0, len(rows))
	for _, r := range rows {
		rep, err := svc.Create(ctx, owner, r.input)
		if err != nil {
			return out, fmt.Errorf("line %d: %w", r.line, err)
		}
		out = append(out, rep)
	}
	return out, nil
}

type typeCount struct {
	typ   string
	count int
}

func printStats(created []domain.Report) {
	counts := map[string]int{}
	var blank int
	for i := range created {
		counts[created[i].Type]++
		if created[i].Address == "" {
			blank++
		}
	}
	tc := make([]typeCount, 0, len(counts))
	for t, c := range counts {
		tc = append(tc, typeCount{t, c})
	}
	sort.Slice(tc, func(i, j int) bool { return tc[i].count > tc[j].count })

	fmt.Printf("Types (%d):", len(tc))
	for _, t := range tc {
		fmt.Printf(" %s=%d", t.typ, t.count)
	}
	fmt.Printf("\nWithout address: %d\n", blank)
}
