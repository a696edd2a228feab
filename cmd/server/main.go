package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gallery-backend/internal/ai"
	"github.com/ignatzorin/gallery-backend/internal/config"
	"github.com/ignatzorin/gallery-backend/internal/db"
	httpHandlers "github.com/ignatzorin/gallery-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/gallery-backend/internal/http/router"
	"github.com/ignatzorin/gallery-backend/internal/logger"
	"github.com/ignatzorin/gallery-backend/internal/repository"
	"github.com/ignatzorin/gallery-backend/internal/service"
	"github.com/ignatzorin/gallery-backend/internal/storage"
	s3storage "github.com/ignatzorin/gallery-backend/internal/storage/s3"
	"github.com/ignatzorin/gallery-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Объектное хранилище и локальный спул.
	blobStorage, err := s3storage.New(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("main: не удалось подготовить объектное хранилище: %v", err)
	}

	spool, err := storage.NewSpool(cfg.SpoolPath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить спул: %v", err)
	}
	if err := spool.Sweep(); err != nil {
		log.Printf("main: не удалось очистить спул: %v", err)
	}

	// Репозитории.
	imageRepo := repository.NewImageRepository(dbConn)
	principalRepo := repository.NewPrincipalRepository(dbConn)

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)
	authService := service.NewAuthService(principalRepo, tokenManager)
	persistence := service.NewPersistenceGateway(imageRepo, blobStorage, principalRepo)
	galleryService := service.NewGalleryService(persistence, ai.NewClient(cfg.AIBaseURL, cfg.AIModel), spool)

	// Вебсокеты: события галереи для всех подключённых вкладок.
	hub := ws.NewHub(ctx)
	go hub.Run()
	galleryService.SetHub(hub)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	galleryHandler := httpHandlers.NewGalleryHandler(galleryService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, galleryHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
