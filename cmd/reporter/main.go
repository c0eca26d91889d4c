// Command reporter runs one end-to-end reporting pass: read lodging rows,
// validate and normalize them, skip already-registered people, submit the
// rest in batches, and resolve every record from the returned confirmation
// documents. While the run is active it also serves read-only HTTP views
// over the record store and the submission ledger.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"stayreg/internal/platform/config"
	"stayreg/internal/platform/httpserver"
	"stayreg/internal/platform/logger"
	"stayreg/internal/platform/redis"
	"stayreg/internal/platform/runlock"
	"stayreg/internal/report/dedupe"
	"stayreg/internal/report/metrics"
	"stayreg/internal/report/normalize"
	"stayreg/internal/report/ports"
	"stayreg/internal/report/reconcile"
	"stayreg/internal/report/remote"
	"stayreg/internal/report/store/document"
	"stayreg/internal/report/store/ledger"
	"stayreg/internal/report/store/person"
	"stayreg/internal/report/submit"
	"stayreg/internal/report/validate"
	httptransport "stayreg/internal/transport/http"
	"stayreg/pkg/platform/audit"
)

const runLockKey = "stayreg:run"

func main() {
	input := flag.String("input", "", "CSV file with lodging rows (omit for a recovery-only pass)")
	dryRun := flag.Bool("dry-run", false, "stop after validation and dedup, submit nothing")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, *input, *dryRun, *yes); err != nil {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, input string, dryRun, yes bool) error {
	if cfg.ServiceURL == "" && !dryRun {
		return fmt.Errorf("STAYREG_SERVICE_URL is required outside --dry-run")
	}

	persons, ledgerStore, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	documents, err := document.NewFilesystem(cfg.DocumentDir)
	if err != nil {
		return err
	}

	publisher, closePublisher, err := buildAuditPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	// advisory lock so two operators cannot drive the same store at once
	if cfg.RedisURL != "" {
		client, err := redis.New(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		lock, err := runlock.Acquire(ctx, client, runLockKey, 30*time.Minute)
		if err != nil {
			if errors.Is(err, runlock.ErrHeld) {
				return fmt.Errorf("another run is active: %w", err)
			}
			return fmt.Errorf("acquiring run lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				log.Warn("releasing run lock", "error", err)
			}
		}()
	}

	m := metrics.New()

	var submitter ports.Submitter = remote.NewHTTPSubmitter(cfg.ServiceURL, cfg.ServiceAPIKey, cfg.ServiceTimeout)
	engine, err := reconcile.New(reconcile.PlainTextExtractor{}, reconcile.WithLogger(log))
	if err != nil {
		return err
	}
	orch, err := submit.New(submitter, persons, ledgerStore, documents, engine,
		submit.WithLogger(log),
		submit.WithMetrics(m),
		submit.WithAuditPublisher(publisher),
		submit.WithBatchSize(cfg.BatchSize),
	)
	if err != nil {
		return err
	}
	resolver, err := dedupe.New(persons,
		dedupe.WithLogger(log),
		dedupe.WithMetrics(m),
		dedupe.WithAuditPublisher(publisher),
	)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.HTTPAddr, httptransport.NewRouter(httptransport.New(persons, ledgerStore, log)))
	log.Info("serving views", "addr", cfg.HTTPAddr)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
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
	g.Go(func() error {
		defer cancel()
		return pipeline(gctx, cfg, log, m, resolver, orch, input, dryRun, yes)
	})
	return g.Wait()
}

// pipeline is the actual run: recovery pass, then ingest, validate, dedup,
// confirm, submit.
func pipeline(ctx context.Context, cfg config.Config, log *slog.Logger, m *metrics.Metrics, resolver *dedupe.Resolver, orch *submit.Orchestrator, input string, dryRun, yes bool) error {
	if !dryRun {
		recovered, err := orch.Recover(ctx)
		if err != nil {
			return fmt.Errorf("recovery pass: %w", err)
		}
		if recovered.Submitted > 0 {
			log.Info("recovery pass complete",
				"resubmitted", recovered.Submitted,
				"confirmed", recovered.Confirmed,
				"rejected", recovered.Rejected,
			)
		}
	}

	if input == "" {
		log.Info("no input file, recovery-only run")
		return nil
	}

	source := newCSVSource(input)
	headers, err := source.Headers(ctx)
	if err != nil {
		return err
	}
	fields, err := normalize.MapHeaders(headers)
	if err != nil {
		return err
	}
	rows, err := source.Rows(ctx)
	if err != nil {
		return err
	}
	m.AddRowsIngested(len(rows))

	validator := validate.New(normalize.New(cfg.HostCountry))
	result := validator.Rows(fields, rows)
	m.AddRowsRejected(len(result.Rejected))
	for _, rejected := range result.Rejected {
		log.Warn("row excluded",
			"row", rejected.Row,
			"name", rejected.Name,
			"reasons", strings.Join(rejected.Reasons, "; "),
		)
	}

	part, err := resolver.Partition(ctx, result.Admissible)
	if err != nil {
		return err
	}

	log.Info("input processed",
		"rows", len(rows),
		"excluded", len(result.Rejected),
		"already_registered", len(part.Known),
		"to_submit", len(part.New),
	)

	if dryRun {
		log.Info("dry run, submitting nothing")
		return nil
	}
	if len(part.New) == 0 {
		log.Info("nothing to submit")
		return nil
	}
	if !yes && !confirm(len(part.New)) {
		log.Info("submission declined")
		return nil
	}

	report, err := orch.Submit(ctx, part.New)
	if err != nil {
		return err
	}
	report.RowsRead = len(rows)
	report.ValidationRejected = len(result.Rejected)
	report.DuplicatesSkipped = len(part.Known)
	report.RejectedRows = result.Rejected

	log.Info("run complete",
		"rows_read", report.RowsRead,
		"validation_rejected", report.ValidationRejected,
		"duplicates_skipped", report.DuplicatesSkipped,
		"submitted", report.Submitted,
		"confirmed", report.Confirmed,
		"rejected", report.Rejected,
		"remote_call_failures", report.RemoteCallFailures,
	)
	return nil
}

func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (ports.PersonStore, ports.LedgerStore, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, using in-memory stores; state will not survive this process")
		return person.NewInMemory(), ledger.NewInMemory(), nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	persons := person.NewPostgres(db)
	if err := persons.Init(ctx); err != nil {
		return nil, nil, fmt.Errorf("init persons schema: %w", err)
	}
	ledgerStore := ledger.NewPostgres(db)
	if err := ledgerStore.Init(ctx); err != nil {
		return nil, nil, fmt.Errorf("init ledger schema: %w", err)
	}
	return persons, ledgerStore, nil
}

func buildAuditPublisher(cfg config.Config, log *slog.Logger) (ports.AuditPublisher, func(), error) {
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka audit publisher: %w", err)
		}
		return publisher, publisher.Close, nil
	}
	return audit.NewSlogPublisher(log), func() {}, nil
}

func confirm(count int) bool {
	fmt.Printf("Submit %d records to the registration service? [y/N] ", count)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
