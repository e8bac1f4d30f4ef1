package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/facturia/sii-gateway/internal/application/submission"
	"github.com/facturia/sii-gateway/internal/domain/repository"
	"github.com/facturia/sii-gateway/internal/infrastructure/cache"
	"github.com/facturia/sii-gateway/internal/infrastructure/memory"
	"github.com/facturia/sii-gateway/internal/infrastructure/postgres"
	"github.com/facturia/sii-gateway/internal/infrastructure/ratelimit"
	infrasii "github.com/facturia/sii-gateway/internal/infrastructure/sii"
	httpRouter "github.com/facturia/sii-gateway/internal/interfaces/http"
	"github.com/facturia/sii-gateway/pkg/config"
	"github.com/facturia/sii-gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("sii_env", cfg.SII.Environment).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()

	// PostgreSQL es opcional: sin DATABASE_URL la auditoría vive en memoria y
	// no hay archivo durable de envíos. Suficiente para desarrollo local.
	var (
		auditRepo   repository.AuditLogRepository
		archiveRepo repository.SubmissionArchiveRepository
	)
	if cfg.DB.DatabaseURL != "" || cfg.App.Env == "production" {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		auditRepo = postgres.NewAuditLogRepository(pool)
		archiveRepo = postgres.NewSubmissionArchiveRepository(pool)
	} else {
		log.Warn().Msg("sin DATABASE_URL: auditoría en memoria, sin archivo durable")
		auditRepo = memory.NewAuditLog()
	}

	// Certificado de cliente para el TLS mutuo con la AEAT.
	cert, err := infrasii.ReadClientCertificate(cfg.SII.CertPath, cfg.SII.CertKeyPath, cfg.SII.CertPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("cargar certificado de cliente")
	}

	limiter := ratelimit.New(cfg.SII.RatePerSecond, cfg.SII.RateBurst)
	client, err := infrasii.NewClient(infrasii.ClientConfig{
		Environment:  cfg.SII.Environment,
		BaseURL:      cfg.SII.BaseURL,
		Certificate:  cert,
		MaxAttempts:  cfg.SII.MaxAttempts,
		InitialDelay: cfg.SII.InitialDelay,
		MaxDelay:     cfg.SII.MaxDelay,
		Multiplier:   cfg.SII.Multiplier,
		Timeout:      cfg.SII.RequestTimeout,
	}, limiter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("crear cliente SII")
	}

	statusCache := cache.New(cfg.SII.CacheTTL)

	// Orquestador: Validación → Partición por libro → XML → Envío SOAP → Merge
	orchestrator := submission.NewOrchestrator(
		infrasii.NewXMLBuilder(), client,
		statusCache, archiveRepo, auditRepo,
		log, submission.Config{
			LargeFiler: cfg.SII.LargeFiler,
			CacheTTL:   cfg.SII.CacheTTL,
		},
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Orchestrator: orchestrator,
		AuditLog:     auditRepo,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
