package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/facturia/sii-gateway/internal/application/dto"
	"github.com/facturia/sii-gateway/internal/application/submission"
	"github.com/facturia/sii-gateway/internal/domain"
	"github.com/facturia/sii-gateway/internal/domain/entity"
	"github.com/facturia/sii-gateway/internal/domain/repository"
)

// SubmissionHandler expone el envío de facturas al SII y la consulta de estado.
type SubmissionHandler struct {
	orch  *submission.Orchestrator
	audit repository.AuditLogRepository
}

// NewSubmissionHandler construye el handler.
func NewSubmissionHandler(orch *submission.Orchestrator, audit repository.AuditLogRepository) *SubmissionHandler {
	return &SubmissionHandler{orch: orch, audit: audit}
}

// SubmitIssued envía un lote de facturas emitidas.
// POST /api/sii/issued
func (h *SubmissionHandler) SubmitIssued(c *fiber.Ctx) error {
	var in dto.SubmitIssuedRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	batch, err := in.ToBatch()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: err.Error()})
	}
	return h.submit(c, batch, in.Book)
}

// SubmitReceived envía un lote de facturas recibidas.
// POST /api/sii/received
func (h *SubmissionHandler) SubmitReceived(c *fiber.Ctx) error {
	var in dto.SubmitReceivedRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	batch, err := in.ToBatch()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: err.Error()})
	}
	return h.submit(c, batch, in.Book)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx, batch *entity.SubmissionBatch, book string) error {
	var (
		result *entity.SubmissionResult
		err    error
	)
	if book != "" {
		result, err = h.orch.SubmitBook(c.Context(), batch, book)
	} else {
		result, err = h.orch.SubmitBatch(c.Context(), batch)
	}
	if err != nil {
		return h.mapError(c, err)
	}
	status := fiber.StatusCreated
	if !result.Success {
		// Éxito parcial o rechazo total: el envío se procesó igualmente.
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(dto.NewSubmissionResponse(result))
}

// GetStatus consulta el estado de un envío previo.
// GET /api/sii/submissions/:id
func (h *SubmissionHandler) GetStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	sub, err := h.orch.GetStatus(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(dto.NewStatusResponse(sub))
}

// ListAudit lista las entradas de auditoría de un titular, más recientes primero.
// GET /api/sii/audit?holder=B76365789&limit=50
func (h *SubmissionHandler) ListAudit(c *fiber.Ctx) error {
	holder := c.Query("holder")
	if holder == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetro holder requerido"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()

	recs, err := h.audit.ListByHolder(c.Context(), holder, page.Limit)
	if err != nil {
		return h.mapError(c, err)
	}
	entries := make([]dto.AuditEntryResponse, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, dto.NewAuditEntryResponse(r))
	}
	return c.JSON(dto.AuditListResponse{
		Entries: entries,
		Page:    dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(entries)},
	})
}

// mapError traduce la taxonomía de errores de dominio a estados HTTP.
// Los errores de autenticación y rechazo vienen del servicio de la AEAT, no
// del llamador: se reportan como fallo de pasarela, no como 401 propio.
func (h *SubmissionHandler) mapError(c *fiber.Ctx, err error) error {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.NewValidationErrorResponse(verrs))
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "envío no encontrado"})
	case errors.Is(err, domain.ErrEmptyPartition):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "EMPTY_BOOK", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrBatchConsumed):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "BATCH_CONSUMED", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "UPSTREAM_AUTH", Message: err.Error()})
	case errors.Is(err, domain.ErrBadRequest):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "UPSTREAM_REJECTED", Message: err.Error()})
	case errors.Is(err, domain.ErrServiceUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "UPSTREAM_UNAVAILABLE", Message: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
