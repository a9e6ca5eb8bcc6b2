package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"github.com/GermanBurdin1/lesson-service/internal/clock"
	"github.com/GermanBurdin1/lesson-service/internal/config"
	lessonBook "github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/lessons/book"
	lessonCancel "github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/lessons/cancel"
	lessonEnd "github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/lessons/end"
	lessonGet "github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/lessons/get"
	lessonRespond "github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/lessons/respond"
	lessonStart "github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/lessons/start"
	lessonStudentRespond "github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/lessons/studentrespond"
	slotGet "github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/slots/get"
	statsGet "github.com/GermanBurdin1/lesson-service/internal/http-server/handlers/stats/get"
	"github.com/GermanBurdin1/lesson-service/internal/lock"
	"github.com/GermanBurdin1/lesson-service/internal/notify"
	"github.com/GermanBurdin1/lesson-service/internal/profile"
	svc "github.com/GermanBurdin1/lesson-service/internal/service"
	"github.com/GermanBurdin1/lesson-service/internal/storage/postgres"
	"github.com/GermanBurdin1/lesson-service/pkg/handlers/slogpretty"
	"github.com/GermanBurdin1/lesson-service/pkg/middleware/mwlogger"
	"github.com/GermanBurdin1/lesson-service/pkg/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting lesson service", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	locker, err := lock.NewRedisLock(cfg.RedisAddr)
	if err != nil {
		log.Error("Failed to init redis lock", sl.Err(err))
		os.Exit(1)
	}

	publisher, err := notify.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange, cfg.Rabbit.PublishTimeout)
	if err != nil {
		log.Error("Failed to init notification publisher", sl.Err(err))
		os.Exit(1)
	}

	profiles := profile.NewClient(cfg.AuthService.BaseURL, cfg.AuthService.Timeout)

	service := svc.NewService(log, storage, locker, publisher, profiles, clock.System())

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwlogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)

	// Booking lifecycle
	router.Post("/lessons", lessonBook.New(log, service))
	router.Post("/lessons/{id}/respond", lessonRespond.New(log, service))
	router.Post("/lessons/{id}/student-response", lessonStudentRespond.New(log, service))
	router.Post("/lessons/{id}/start", lessonStart.New(log, service))
	router.Post("/lessons/{id}/end", lessonEnd.New(log, service))
	router.Put("/lessons/{id}/cancel", lessonCancel.New(log, service))

	// Queries
	router.Get("/lessons/{id}", lessonGet.New(log, service))
	router.Get("/lessons/user/{userId}", lessonGet.NewForUser(log, service))
	router.Get("/lessons/student/{studentId}/confirmed", lessonGet.NewConfirmedForStudent(log, service))
	router.Get("/lessons/teacher/{teacherId}/confirmed", lessonGet.NewConfirmedForTeacher(log, service))
	router.Get("/lessons/student/{studentId}/teachers", lessonGet.NewTeachers(log, service))
	router.Get("/lessons/teacher/{teacherId}/students", lessonGet.NewStudents(log, service))
	router.Get("/lessons/student/{studentId}/requests", lessonGet.NewStudentRequests(log, service))
	router.Get("/lessons/student/{studentId}/completed-count", lessonGet.NewCompletedCount(log, service))

	// Slots
	router.Get("/slots", slotGet.New(log, service))

	// Stats
	router.Get("/stats", statsGet.New(log, service))

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if err := storage.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if err := locker.Close(); err != nil {
		log.Error("Failed to close locker", sl.Err(err))
	} else {
		log.Info("Locker closed")
	}

	if err := publisher.Close(); err != nil {
		log.Error("Failed to close publisher", sl.Err(err))
	} else {
		log.Info("Publisher closed")
	}

	log.Info("Shutdown finished, server stopped")

}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
