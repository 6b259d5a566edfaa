// Command etl runs the IPEDS harvest pipeline: fetch paginated API data into
// the raw archive, then rebuild typed core tables from it. One invocation is
// one batch of work; a scheduler owns the cadence.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"ipedsetl/internal/corestore"
	"ipedsetl/internal/fetch"
	"ipedsetl/internal/harvest"
	"ipedsetl/internal/platform/config"
	"ipedsetl/internal/platform/httpserver"
	"ipedsetl/internal/platform/logger"
	"ipedsetl/internal/platform/metrics"
	"ipedsetl/internal/platform/postgres"
	"ipedsetl/internal/rawstore"
	"ipedsetl/internal/registry"
)

const usage = `usage: etl <command> [flags]

commands:
  harvest   -dataset NAME -year YYYY        fetch one year into the raw archive
  load      -dataset NAME [-years Y1,Y2]    rebuild core rows from the archive
  run       -job FILE                       harvest+load per a YAML job file
  datasets                                  list registered datasets
`

func main() {
	logg := logger.New()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	if command == "datasets" {
		for _, name := range registry.Names() {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		logg.Fatalf("config: %v", err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logg.Fatalf("database: %v", err)
	}
	defer db.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	raw := rawstore.NewPostgres(db, cfg, logg, m)
	core := corestore.NewPostgres(db)
	loader, err := corestore.NewLoader(raw, core, cfg.LoadBatchSize, logg, m)
	if err != nil {
		logg.Fatalf("loader: %v", err)
	}
	fetcher, err := fetch.New(cfg, logg, m)
	if err != nil {
		logg.Fatalf("fetcher: %v", err)
	}
	svc, err := harvest.New(fetcher, raw, loader, logg, m)
	if err != nil {
		logg.Fatalf("service: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.OpsAddr != "" {
		srv := httpserver.New(cfg.OpsAddr, opsRouter(db))
		logg.Printf("ops server listening on %s", cfg.OpsAddr)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			return srv.Shutdown(shutCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		return dispatch(gctx, command, args, svc, logg)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Fatalf("%s: %v", command, err)
	}
}

func dispatch(ctx context.Context, command string, args []string, svc *harvest.Service, logg *log.Logger) error {
	switch command {
	case "harvest":
		fs := flag.NewFlagSet("harvest", flag.ExitOnError)
		dataset := fs.String("dataset", "", "dataset name")
		year := fs.Int("year", 0, "year to fetch")
		fs.Parse(args)
		if *dataset == "" || *year == 0 {
			return fmt.Errorf("harvest requires -dataset and -year")
		}
		_, err := svc.Harvest(ctx, *dataset, *year)
		return err

	case "load":
		fs := flag.NewFlagSet("load", flag.ExitOnError)
		dataset := fs.String("dataset", "", "dataset name")
		yearList := fs.String("years", "", "comma-separated years (empty means all archived years)")
		fs.Parse(args)
		if *dataset == "" {
			return fmt.Errorf("load requires -dataset")
		}
		years, err := parseYears(*yearList)
		if err != nil {
			return err
		}
		count, err := svc.Load(ctx, *dataset, years)
		if err != nil {
			return err
		}
		logg.Printf("loaded %d record(s) for %s", count, *dataset)
		return nil

	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		jobPath := fs.String("job", "", "path to YAML job file")
		fs.Parse(args)
		if *jobPath == "" {
			return fmt.Errorf("run requires -job")
		}
		job, err := harvest.LoadJob(*jobPath)
		if err != nil {
			return err
		}
		return svc.Run(ctx, job)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func parseYears(list string) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	years := make([]int, 0, len(parts))
	for _, p := range parts {
		y, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", p)
		}
		years = append(years, y)
	}
	return years, nil
}

// opsRouter exposes liveness, database readiness, and Prometheus metrics.
func opsRouter(db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := postgres.Health(req.Context(), db); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
