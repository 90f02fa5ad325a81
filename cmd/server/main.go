package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-path/mindpath-server/internal/api/http"
	"github.com/mind-path/mindpath-server/internal/auth"
	"github.com/mind-path/mindpath-server/internal/config"
	"github.com/mind-path/mindpath-server/internal/db"
	"github.com/mind-path/mindpath-server/internal/events"
	"github.com/mind-path/mindpath-server/internal/grading"
	"github.com/mind-path/mindpath-server/internal/quiz"
	"github.com/mind-path/mindpath-server/internal/rbac"
	"github.com/mind-path/mindpath-server/internal/report"
	"github.com/mind-path/mindpath-server/internal/sweeper"
)

func main() {
	cfg := config.FromEnv()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := quiz.NewSQLStore(dbh)
	eventLog := events.NewRepo(dbh)

	// --- Auth ---
	authSvc := auth.NewService(cfg.AuthSecret)

	// --- Services ---
	sessions := quiz.NewSessionService(store, eventLog, logger, time.Now)

	grader := grading.NewHTTPGrader(grading.HTTPGraderConfig{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	})
	orch := grading.NewOrchestrator(store, grader, logger, time.Now)
	worker := grading.NewWorker(orch, cfg.GradeQueueSize, cfg.GradeWorkers, logger)

	attempts := quiz.NewAttemptService(store, sessions, worker, eventLog, logger, time.Now)
	reports := report.NewService(store)

	// --- Background loops ---
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker.Start(runCtx)

	sw := sweeper.New(attempts, sessions, logger)
	sw.AttemptEvery = cfg.AttemptSweepEvery
	sw.SessionEvery = cfg.SessionSweepEvery
	go sw.Run(runCtx)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/register", api.RegisterHandler(dbh))
	r.Post("/auth/login", api.LoginHandler(dbh, authSvc))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", api.CreateQuizHandler(store, time.Now))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", api.GetQuizHandler(store))
		pr.With(rbac.Require("quiz:manage")).
			Patch("/quizzes/{quizID}/status", api.UpdateQuizStatusHandler(store))

		pr.With(rbac.Require("session:create")).
			Post("/sessions", api.CreateSessionHandler(sessions))

		// Student flow
		pr.With(rbac.Require("attempt:create")).
			Post("/attempts", api.StartAttemptHandler(attempts))
		pr.With(rbac.Require("attempt:save")).
			Post("/attempts/{attemptID}/answers", api.SubmitAnswerHandler(attempts))
		pr.With(rbac.Require("attempt:save")).
			Post("/attempts/{attemptID}/progress", api.SaveProgressHandler(attempts))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(attempts))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(attempts))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}/results", api.AttemptResultsHandler(attempts))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/attempts/in-progress", api.ListInProgressHandler(attempts))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/attempts/completed", api.ListCompletedHandler(attempts))

		// Teacher grading
		pr.With(rbac.Require("attempt:grade")).
			Post("/attempts/{attemptID}/questions/{questionID}/grade", api.GradeOpenEndedHandler(orch))
		pr.With(rbac.Require("attempt:grade")).
			Post("/attempts/{attemptID}/regrade", api.RegradeHandler(worker))

		pr.With(rbac.Require("report:view-all")).
			Get("/reports/weakness/{studentID}", api.WeaknessReportHandler(reports))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Printf("mindpath server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-runCtx.Done()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	worker.Wait()
}
