package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-api/internal/config"
	"github.com/BuzzLyutic/task-api/internal/events"
	"github.com/BuzzLyutic/task-api/internal/handler"
	"github.com/BuzzLyutic/task-api/internal/repo"
	"github.com/BuzzLyutic/task-api/internal/service"
)

func main() {
	// Подключаем логгер
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config.")
	}

	// Подключаем БД
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to Database.") // Fatal потому что дальнейшая работа теряет смысл
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal("Failed to ping the Database.")
	}
	logger.Info("Successfully connected to the Database!")

	// Сборка слоев
	taskRepo := repo.NewTaskRepo(pool)
	userRepo := repo.NewUserRepo(pool)

	hub := events.NewHub(logger)
	defer hub.Close()

	taskService := service.NewTaskService(taskRepo, hub)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)

	limiter := handler.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	defer limiter.Stop()
	taskHandler := handler.NewTaskHandler(taskService, logger)
	authHandler := handler.NewAuthHandler(authService, limiter, logger)
	wsHandler := handler.NewWSHandler(hub, logger)

	r := chi.NewRouter() // Создаем роутер
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handler.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(handler.Metrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(authHandler.Authenticate).Get("/me", authHandler.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(authHandler.Authenticate)

		r.Route("/api/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.Create)
			r.Get("/", taskHandler.List)
			r.Get("/{id}", taskHandler.Get)
			r.Put("/{id}", taskHandler.Update)
			r.Delete("/{id}", taskHandler.Delete)
		})

		r.Get("/api/stats", taskHandler.Stats)
		r.Get("/ws", wsHandler.Serve)
	})

	srv := http.Server{ // Создаем сервер
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started at ", zap.String("port", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed: ", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Shutdown error: ", zap.Error(err))
	}
	logger.Info("Server stopped succsessfully!")
}
