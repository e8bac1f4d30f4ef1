package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/facturia/sii-gateway/internal/application/submission"
	"github.com/facturia/sii-gateway/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Orchestrator *submission.Orchestrator
	AuditLog     repository.AuditLogRepository
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Salud del proceso (público, sin dependencias)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Suministro al SII
	sii := api.Group("/sii")
	handler := NewSubmissionHandler(deps.Orchestrator, deps.AuditLog)
	sii.Post("/issued", handler.SubmitIssued)
	sii.Post("/received", handler.SubmitReceived)
	sii.Get("/submissions/:id", handler.GetStatus)
	sii.Get("/audit", handler.ListAudit)
}
