// Package main is the entry point for the academy platform API.
//
// The service runs the advisor onboarding pipeline: pre-registration
// intake, assessment scoring (manual and dynamically graded exams),
// threshold-based finalization with credential issuance, and group
// assignment with bulk student reassignment.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries/Sagas)
// - Infrastructure: repository implementations, caching
// - Interface: HTTP endpoints
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/academy-hub/academy-platform/config"

	// Application layer
	"github.com/academy-hub/academy-platform/internal/application/command"
	"github.com/academy-hub/academy-platform/internal/application/query"
	"github.com/academy-hub/academy-platform/internal/application/saga"

	// Domain layer
	"github.com/academy-hub/academy-platform/internal/domain/exam"
	"github.com/academy-hub/academy-platform/internal/domain/student"

	// Infrastructure layer
	"github.com/academy-hub/academy-platform/internal/infrastructure/persistence/postgres"
	"github.com/academy-hub/academy-platform/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/academy-hub/academy-platform/internal/interface/http"

	// Packages
	"github.com/academy-hub/academy-platform/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.Observability.LogLevel)).
		With(logger.F("app", cfg.App.Name), logger.F("version", cfg.App.Version))

	log.Info("starting", logger.F("env", string(cfg.App.Environment)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Persistence ──────────────────────────────────────────────────────

	conn, err := postgres.NewConnection(ctx, postgres.Config{
		URL:               cfg.Database.URL,
		MaxConns:          int32(cfg.Database.MaxConns),
		MinConns:          int32(cfg.Database.MinConns),
		MaxConnLifetime:   cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime:   cfg.Database.ConnMaxIdleTime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close()

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, conn); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied")
	}

	preregRepo := postgres.NewPreregistrationRepository(conn)
	assessmentRepo := postgres.NewAssessmentRepository(conn)
	credentialRepo := postgres.NewCredentialRepository(conn)
	advisorRepo := postgres.NewAdvisorRepository(conn)
	studentRepo := postgres.NewStudentRepository(conn)
	questionRepo := postgres.NewQuestionRepository(conn)
	formRepo := postgres.NewFormRepository(conn)

	// ── Question pool caching (optional) ─────────────────────────────────

	var questionSource exam.QuestionSource = questionRepo
	if !cfg.Redis.Disabled {
		cache, err := redis.NewCache(ctx, redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, cfg.App.Name)
		if err != nil {
			// The pipeline works without a cache; form generation just
			// hits Postgres every time.
			log.Warn("redis unavailable, question pool caching disabled", logger.Err(err))
		} else {
			defer cache.Close()
			questionSource = redis.NewQuestionPoolCache(questionRepo, cache, cfg.Exams.QuestionPoolTTL, log)
			log.Info("question pool cache enabled")
		}
	}

	bank := exam.NewBank(questionSource, formRepo)

	// ── Application layer ────────────────────────────────────────────────

	reassigner := student.NewReassignmentService(studentRepo, log)

	createPrereg := command.NewCreatePreregistrationHandler(preregRepo, log)
	recordScores := command.NewRecordScoresHandler(preregRepo, assessmentRepo, log)
	generateForm := command.NewGenerateExamFormHandler(preregRepo, bank, log)
	submitExam := command.NewSubmitExamHandler(preregRepo, formRepo, bank, assessmentRepo, log)
	setGroups := command.NewSetGroupsHandler(preregRepo, advisorRepo, reassigner, log)

	finalization := saga.NewFinalizationSaga(preregRepo, assessmentRepo, credentialRepo, saga.FinalizationConfig{
		OrgSuffix:         cfg.Issuance.OrgSuffix,
		SecretLength:      cfg.Issuance.SecretLength,
		HashCost:          cfg.Issuance.HashCost,
		HandleMaxAttempts: cfg.Issuance.HandleMaxAttempts,
	}, log)

	assessmentDetail := query.NewGetAssessmentDetailHandler(preregRepo, assessmentRepo)
	history := query.NewListHistoryHandler(assessmentRepo)
	groupCounts := query.NewGroupCountsHandler(studentRepo)

	// ── HTTP interface ───────────────────────────────────────────────────

	handlers := httpserver.NewHandlers(
		createPrereg,
		recordScores,
		generateForm,
		submitExam,
		setGroups,
		finalization,
		assessmentDetail,
		history,
		groupCounts,
		preregRepo,
		log,
	)

	server := httpserver.NewServer(httpserver.Config{
		Host:            cfg.HTTP.Host,
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, handlers, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("stopped")
	return nil
}
