// Package submission orquesta el ciclo completo de suministro al SII:
//
//	Validación → Partición por libro → XML → Envío SOAP → Merge → Caché + Auditoría
//
// La validación corta antes de cualquier actividad de red; las particiones de
// libro se envían en paralelo porque no comparten estado mutable; el éxito
// parcial (unos libros aceptados y otros no) es un resultado de primera
// clase, nunca una excepción.
package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facturia/sii-gateway/internal/domain"
	"github.com/facturia/sii-gateway/internal/domain/entity"
	"github.com/facturia/sii-gateway/internal/domain/repository"
	domsii "github.com/facturia/sii-gateway/internal/domain/sii"
	infrasii "github.com/facturia/sii-gateway/internal/infrastructure/sii"
	"github.com/facturia/sii-gateway/pkg/logger"
)

// Config parámetros del orquestador.
type Config struct {
	LargeFiler bool          // régimen de grandes empresas: plazo de 8 días
	CacheTTL   time.Duration // TTL del registro de estado (horas)
}

// Orchestrator compone validador, router, serializador y transporte, y
// persiste el resultado en la caché de estado y el registro de auditoría.
type Orchestrator struct {
	validator *domsii.Validator
	builder   *infrasii.XMLBuilder
	transport infrasii.Transport
	cache     repository.SubmissionStatusCache
	archive   repository.SubmissionArchiveRepository // puede ser nil (sin DB)
	audit     repository.AuditLogRepository
	log       *logger.Logger
	cfg       Config

	// now se puede sustituir en tests.
	now func() time.Time
}

// NewOrchestrator construye el orquestador con todas sus dependencias.
// archive puede ser nil si no hay base de datos configurada.
func NewOrchestrator(
	builder *infrasii.XMLBuilder,
	transport infrasii.Transport,
	cache repository.SubmissionStatusCache,
	archive repository.SubmissionArchiveRepository,
	audit repository.AuditLogRepository,
	log *logger.Logger,
	cfg Config,
) *Orchestrator {
	validator := domsii.NewValidator()
	if cfg.LargeFiler {
		validator = domsii.NewLargeFilerValidator()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		validator: validator,
		builder:   builder,
		transport: transport,
		cache:     cache,
		archive:   archive,
		audit:     audit,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SubmitBatch envía un lote completo: todas sus particiones de libro.
func (o *Orchestrator) SubmitBatch(ctx context.Context, batch *entity.SubmissionBatch) (*entity.SubmissionResult, error) {
	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Validación completa del lote: si algo falla, no se toca la red y el
	//    llamador recibe la lista entera de errores por factura.
	// ═══════════════════════════════════════════════════════════════════════════
	if errs := o.validator.ValidateBatch(batch, o.now()); errs != nil {
		return nil, errs
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. Partición por libro (orden relativo preservado dentro de cada libro)
	// ═══════════════════════════════════════════════════════════════════════════
	partitions := domsii.Partition(batch)

	return o.submitPartitions(ctx, batch, partitions)
}

// SubmitBook envía solo el libro solicitado. Una partición vacía es un error
// de negocio: pedir explícitamente un libro y no enviar nada sería un éxito
// silencioso engañoso.
func (o *Orchestrator) SubmitBook(ctx context.Context, batch *entity.SubmissionBatch, bookCode string) (*entity.SubmissionResult, error) {
	if errs := o.validator.ValidateBatch(batch, o.now()); errs != nil {
		return nil, errs
	}
	part, err := domsii.PartitionForBook(batch, bookCode)
	if err != nil {
		return nil, err
	}
	return o.submitPartitions(ctx, batch, []entity.BookPartition{part})
}

// GetStatus consulta el estado de un envío: primero la caché, después el
// archivo durable si está configurado.
func (o *Orchestrator) GetStatus(ctx context.Context, submissionID string) (*entity.CachedSubmission, error) {
	if sub, ok := o.cache.Get(submissionID); ok {
		return &sub, nil
	}
	if o.archive != nil {
		sub, err := o.archive.GetByID(ctx, submissionID)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			return sub, nil
		}
	}
	return nil, fmt.Errorf("%w: envío %s", domain.ErrNotFound, submissionID)
}

// partitionOutcome resultado crudo de una partición antes del merge.
type partitionOutcome struct {
	part entity.BookPartition
	resp *infrasii.SubmitResponse
	err  error
}

func (o *Orchestrator) submitPartitions(ctx context.Context, batch *entity.SubmissionBatch, partitions []entity.BookPartition) (*entity.SubmissionResult, error) {
	// Un lote se consume una sola vez: reenviar el mismo puntero es un error
	// del llamador, no un reintento.
	if err := batch.Consume(); err != nil {
		return nil, err
	}

	submissionID := uuid.NewString()
	startedAt := o.now()

	// Registro PROCESSING visible durante el procesado.
	o.cache.Put(entity.CachedSubmission{
		SubmissionID: submissionID,
		Status:       entity.SubmissionStatusProcessing,
		SubmittedAt:  startedAt,
		InvoiceCount: len(batch.Invoices),
	})

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Serialización y envío por partición, en paralelo. Cada goroutine
	//    escribe solo su índice; los reintentos dentro de una partición son
	//    secuenciales y no afectan a las hermanas.
	// ═══════════════════════════════════════════════════════════════════════════
	outcomes := make([]partitionOutcome, len(partitions))
	var wg sync.WaitGroup
	for i, part := range partitions {
		wg.Add(1)
		go func(i int, part entity.BookPartition) {
			defer wg.Done()
			outcomes[i] = o.submitPartition(ctx, batch, part)
		}(i, part)
	}
	wg.Wait()

	// ═══════════════════════════════════════════════════════════════════════════
	// 4. Merge: éxito global = AND de particiones; los contadores suman y las
	//    listas de resultados se concatenan en orden estable de libro.
	// ═══════════════════════════════════════════════════════════════════════════
	result, mergeErr := o.merge(submissionID, outcomes)

	// ═══════════════════════════════════════════════════════════════════════════
	// 5. Persistir estado (caché con TTL + archivo durable si existe)
	// ═══════════════════════════════════════════════════════════════════════════
	status := entity.SubmissionStatusRejected
	if result != nil {
		status = result.Status()
	}
	cached := entity.CachedSubmission{
		SubmissionID: submissionID,
		Status:       status,
		SubmittedAt:  startedAt,
		ProcessedAt:  o.now(),
		InvoiceCount: len(batch.Invoices),
		ExpiresAt:    o.now().Add(o.cfg.CacheTTL),
	}
	if result != nil {
		cached.VerificationRef = result.VerificationRef
		cached.AcceptedCount = result.AcceptedCount
		cached.RejectedCount = result.RejectedCount
	}
	if mergeErr == nil {
		o.cache.Put(cached)
		if o.archive != nil {
			if err := o.archive.Save(ctx, &cached); err != nil {
				o.log.Warn().Err(err).Str("submission", submissionID).
					Msg("no se pudo archivar el estado del envío")
			}
		}
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 6. Auditoría: siempre, también en fallo. Best-effort: un error aquí se
	//    loguea y jamás tumba el envío.
	// ═══════════════════════════════════════════════════════════════════════════
	auditStatus := status
	if mergeErr != nil {
		auditStatus = "ERROR"
	}
	rec := &entity.AuditRecord{
		HolderTaxID:  batch.Holder.TaxID,
		SubmissionID: submissionID,
		Status:       auditStatus,
		InvoiceCount: len(batch.Invoices),
		CreatedAt:    o.now(),
	}
	if result != nil {
		rec.AcceptedCount = result.AcceptedCount
		rec.RejectedCount = result.RejectedCount
	}
	if err := o.audit.Append(ctx, rec); err != nil {
		o.log.Warn().Err(err).Str("submission", submissionID).
			Msg("fallo escribiendo auditoría (ignorado)")
	}

	if mergeErr != nil {
		return nil, mergeErr
	}

	o.log.Info().Str("submission", submissionID).Str("status", status).
		Int("accepted", result.AcceptedCount).Int("rejected", result.RejectedCount).
		Msg("envío procesado")
	return result, nil
}

// submitPartition serializa y envía una partición.
func (o *Orchestrator) submitPartition(ctx context.Context, batch *entity.SubmissionBatch, part entity.BookPartition) partitionOutcome {
	payload, err := o.builder.Build(batch.Holder, batch.FiscalYear, batch.Period, part)
	if err != nil {
		return partitionOutcome{part: part, err: fmt.Errorf("serializar libro %s: %w", part.BookCode, err)}
	}
	resp, err := o.transport.Submit(ctx, part.BookCode, payload)
	if err != nil {
		return partitionOutcome{part: part, err: err}
	}
	return partitionOutcome{part: part, resp: resp}
}

// merge combina los resultados de todas las particiones. Si ninguna llegó a
// obtener respuesta del servicio, el intento entero es irrecuperable y se
// devuelve el error mejor clasificado disponible.
func (o *Orchestrator) merge(submissionID string, outcomes []partitionOutcome) (*entity.SubmissionResult, error) {
	anyResponse := false
	for _, po := range outcomes {
		if po.err == nil {
			anyResponse = true
			break
		}
	}
	if !anyResponse {
		return nil, bestClassified(outcomes)
	}

	result := &entity.SubmissionResult{
		Success:      true,
		Timestamp:    o.now(),
		SubmissionID: submissionID,
	}

	for _, po := range outcomes {
		if po.err != nil {
			// Partición fallida: sus facturas quedan rechazadas, las hermanas
			// no se ven afectadas.
			result.Success = false
			code := ""
			var subErr *domain.SubmissionError
			if errors.As(po.err, &subErr) {
				code = subErr.Code
			}
			for _, inv := range po.part.Invoices {
				result.Outcomes = append(result.Outcomes, entity.InvoiceOutcome{
					InvoiceNumber: inv.Identity().Number,
					BookCode:      po.part.BookCode,
					Accepted:      false,
					ErrorCode:     code,
					ErrorMessage:  po.err.Error(),
				})
				result.RejectedCount++
			}
			continue
		}

		if result.VerificationRef == "" {
			result.VerificationRef = po.resp.CSV
		}
		lines := make(map[string]infrasii.LineResult, len(po.resp.Lines))
		for _, l := range po.resp.Lines {
			lines[l.InvoiceNumber] = l
		}
		for _, inv := range po.part.Invoices {
			num := inv.Identity().Number
			line, hasLine := lines[num]
			accepted := po.resp.Accepted()
			if hasLine {
				accepted = line.Accepted
			}
			outcome := entity.InvoiceOutcome{
				InvoiceNumber: num,
				BookCode:      po.part.BookCode,
				Accepted:      accepted,
			}
			if accepted {
				result.AcceptedCount++
			} else {
				result.RejectedCount++
				result.Success = false
				outcome.ErrorCode = line.ErrorCode
				outcome.ErrorMessage = line.ErrorMessage
			}
			result.Outcomes = append(result.Outcomes, outcome)
		}
	}
	return result, nil
}

// bestClassified elige el error más específico entre particiones fallidas:
// preferimos un SubmissionError clasificado a un error de transporte crudo.
func bestClassified(outcomes []partitionOutcome) error {
	var first error
	for _, po := range outcomes {
		if po.err == nil {
			continue
		}
		if first == nil {
			first = po.err
		}
		var subErr *domain.SubmissionError
		if errors.As(po.err, &subErr) {
			return po.err
		}
	}
	if first == nil {
		return fmt.Errorf("%w: lote sin particiones", domain.ErrInvalidInput)
	}
	return first
}
