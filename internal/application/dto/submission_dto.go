package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturia/sii-gateway/internal/domain"
	"github.com/facturia/sii-gateway/internal/domain/entity"
)

// Las fechas viajan en la API como YYYY-MM-DD; la conversión al formato del
// SII (DD-MM-YYYY) ocurre en la capa de serialización, no aquí.
const apiDateLayout = "2006-01-02"

// PartyDTO parte fiscal (titular, destinatario o proveedor).
type PartyDTO struct {
	TaxID       string `json:"tax_id"`
	Name        string `json:"name"`
	CountryCode string `json:"country_code,omitempty"`
}

func (p PartyDTO) toEntity() entity.Party {
	cc := p.CountryCode
	if cc == "" {
		cc = "ES"
	}
	return entity.Party{TaxID: p.TaxID, Name: p.Name, CountryCode: cc}
}

// VatLineDTO línea de desglose de IVA.
type VatLineDTO struct {
	VatKey          string          `json:"vat_key"`
	TaxableBase     decimal.Decimal `json:"taxable_base"`
	VatRate         decimal.Decimal `json:"vat_rate"`
	VatAmount       decimal.Decimal `json:"vat_amount"`
	SurchargeRate   decimal.Decimal `json:"surcharge_rate,omitempty"`
	SurchargeAmount decimal.Decimal `json:"surcharge_amount,omitempty"`
}

func (l VatLineDTO) toEntity() entity.VatLine {
	return entity.VatLine{
		VatKey:          l.VatKey,
		TaxableBase:     l.TaxableBase,
		VatRate:         l.VatRate,
		VatAmount:       l.VatAmount,
		SurchargeRate:   l.SurchargeRate,
		SurchargeAmount: l.SurchargeAmount,
		HasSurcharge:    !l.SurchargeRate.IsZero() || !l.SurchargeAmount.IsZero(),
	}
}

// RectificationDTO referencia a la factura rectificada.
type RectificationDTO struct {
	OriginalNumber    string `json:"original_number"`
	OriginalIssueDate string `json:"original_issue_date"`
	Kind              string `json:"kind"` // S sustitutiva, I por diferencias
}

func (r *RectificationDTO) toEntity() (*entity.RectificationDetail, error) {
	if r == nil {
		return nil, nil
	}
	d, err := time.Parse(apiDateLayout, r.OriginalIssueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: original_issue_date %q no es YYYY-MM-DD", domain.ErrInvalidInput, r.OriginalIssueDate)
	}
	return &entity.RectificationDetail{
		OriginalNumber:    r.OriginalNumber,
		OriginalIssueDate: d,
		Kind:              r.Kind,
	}, nil
}

// IssuedInvoiceDTO factura emitida en el body de POST /api/sii/issued.
type IssuedInvoiceDTO struct {
	Number           string            `json:"number"`
	IssueDate        string            `json:"issue_date"`
	TypeCode         string            `json:"type_code"`
	Recipient        PartyDTO          `json:"recipient"`
	OperationType    string            `json:"operation_type,omitempty"`
	Description      string            `json:"description"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	VatLines         []VatLineDTO      `json:"vat_lines"`
	Rectification    *RectificationDTO `json:"rectification,omitempty"`
	IsIntraCommunity bool              `json:"is_intra_community,omitempty"`
}

// ReceivedInvoiceDTO factura recibida en el body de POST /api/sii/received.
type ReceivedInvoiceDTO struct {
	Number           string            `json:"number"`
	IssueDate        string            `json:"issue_date"`
	TypeCode         string            `json:"type_code"`
	Supplier         PartyDTO          `json:"supplier"`
	OperationType    string            `json:"operation_type,omitempty"`
	Description      string            `json:"description"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	VatLines         []VatLineDTO      `json:"vat_lines"`
	Rectification    *RectificationDTO `json:"rectification,omitempty"`
	IsIntraCommunity bool              `json:"is_intra_community,omitempty"`
	IsImport         bool              `json:"is_import,omitempty"`
	DeductionPct     decimal.Decimal   `json:"deduction_pct,omitempty"`
}

// SubmitIssuedRequest body para POST /api/sii/issued.
// Book opcional: si se indica, solo se envía ese libro del lote.
type SubmitIssuedRequest struct {
	Holder     PartyDTO           `json:"holder"`
	FiscalYear int                `json:"fiscal_year"`
	Period     string             `json:"period"`
	Book       string             `json:"book,omitempty"`
	Invoices   []IssuedInvoiceDTO `json:"invoices"`
}

// ToBatch convierte la petición al lote de dominio.
func (r SubmitIssuedRequest) ToBatch() (*entity.SubmissionBatch, error) {
	holder := r.Holder.toEntity()
	batch := &entity.SubmissionBatch{
		Holder:     holder,
		FiscalYear: r.FiscalYear,
		Period:     r.Period,
		Direction:  entity.DirectionIssued,
	}
	for _, in := range r.Invoices {
		d, err := time.Parse(apiDateLayout, in.IssueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: factura %s: issue_date %q no es YYYY-MM-DD", domain.ErrInvalidInput, in.Number, in.IssueDate)
		}
		rect, err := in.Rectification.toEntity()
		if err != nil {
			return nil, fmt.Errorf("factura %s: %w", in.Number, err)
		}
		inv := &entity.IssuedInvoice{
			InvoiceIdentity:  entity.InvoiceIdentity{Number: in.Number, IssueDate: d, TypeCode: in.TypeCode},
			Issuer:           holder,
			Recipient:        in.Recipient.toEntity(),
			OperationType:    in.OperationType,
			Description:      in.Description,
			TotalAmount:      in.TotalAmount,
			Rectification:    rect,
			IsIntraCommunity: in.IsIntraCommunity,
		}
		for _, l := range in.VatLines {
			inv.VatLines = append(inv.VatLines, l.toEntity())
		}
		batch.Invoices = append(batch.Invoices, inv)
	}
	return batch, nil
}

// SubmitReceivedRequest body para POST /api/sii/received.
type SubmitReceivedRequest struct {
	Holder     PartyDTO             `json:"holder"`
	FiscalYear int                  `json:"fiscal_year"`
	Period     string               `json:"period"`
	Book       string               `json:"book,omitempty"`
	Invoices   []ReceivedInvoiceDTO `json:"invoices"`
}

// ToBatch convierte la petición al lote de dominio.
func (r SubmitReceivedRequest) ToBatch() (*entity.SubmissionBatch, error) {
	holder := r.Holder.toEntity()
	batch := &entity.SubmissionBatch{
		Holder:     holder,
		FiscalYear: r.FiscalYear,
		Period:     r.Period,
		Direction:  entity.DirectionReceived,
	}
	for _, in := range r.Invoices {
		d, err := time.Parse(apiDateLayout, in.IssueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: factura %s: issue_date %q no es YYYY-MM-DD", domain.ErrInvalidInput, in.Number, in.IssueDate)
		}
		rect, err := in.Rectification.toEntity()
		if err != nil {
			return nil, fmt.Errorf("factura %s: %w", in.Number, err)
		}
		pct := in.DeductionPct
		if pct.IsZero() {
			pct = decimal.NewFromInt(100)
		}
		inv := &entity.ReceivedInvoice{
			InvoiceIdentity:  entity.InvoiceIdentity{Number: in.Number, IssueDate: d, TypeCode: in.TypeCode},
			Issuer:           in.Supplier.toEntity(),
			Recipient:        holder,
			OperationType:    in.OperationType,
			Description:      in.Description,
			TotalAmount:      in.TotalAmount,
			Rectification:    rect,
			IsIntraCommunity: in.IsIntraCommunity,
			IsImport:         in.IsImport,
			DeductionPct:     pct,
		}
		for _, l := range in.VatLines {
			inv.VatLines = append(inv.VatLines, l.toEntity())
		}
		batch.Invoices = append(batch.Invoices, inv)
	}
	return batch, nil
}

// ── Respuestas ────────────────────────────────────────────────────────────────

// InvoiceOutcomeDTO resultado por factura dentro de la respuesta de envío.
type InvoiceOutcomeDTO struct {
	InvoiceNumber string `json:"invoice_number"`
	Book          string `json:"book"`
	Accepted      bool   `json:"accepted"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// SubmissionResponse respuesta de POST /api/sii/issued|received.
type SubmissionResponse struct {
	SubmissionID    string              `json:"submission_id"`
	Status          string              `json:"status"`
	Timestamp       string              `json:"timestamp"`
	AcceptedCount   int                 `json:"accepted_count"`
	RejectedCount   int                 `json:"rejected_count"`
	VerificationRef string              `json:"verification_ref,omitempty"`
	Outcomes        []InvoiceOutcomeDTO `json:"outcomes"`
}

// NewSubmissionResponse proyecta el resultado de dominio.
func NewSubmissionResponse(r *entity.SubmissionResult) SubmissionResponse {
	out := SubmissionResponse{
		SubmissionID:    r.SubmissionID,
		Status:          r.Status(),
		Timestamp:       r.Timestamp.UTC().Format(time.RFC3339),
		AcceptedCount:   r.AcceptedCount,
		RejectedCount:   r.RejectedCount,
		VerificationRef: r.VerificationRef,
	}
	for _, o := range r.Outcomes {
		out.Outcomes = append(out.Outcomes, InvoiceOutcomeDTO{
			InvoiceNumber: o.InvoiceNumber,
			Book:          o.BookCode,
			Accepted:      o.Accepted,
			ErrorCode:     o.ErrorCode,
			ErrorMessage:  o.ErrorMessage,
		})
	}
	return out
}

// StatusResponse respuesta de GET /api/sii/submissions/:id.
type StatusResponse struct {
	SubmissionID    string `json:"submission_id"`
	Status          string `json:"status"`
	SubmittedAt     string `json:"submitted_at"`
	ProcessedAt     string `json:"processed_at,omitempty"`
	VerificationRef string `json:"verification_ref,omitempty"`
	InvoiceCount    int    `json:"invoice_count"`
	AcceptedCount   int    `json:"accepted_count"`
	RejectedCount   int    `json:"rejected_count"`
	ExpiresAt       string `json:"expires_at,omitempty"`
}

// NewStatusResponse proyecta el registro de estado.
func NewStatusResponse(s *entity.CachedSubmission) StatusResponse {
	out := StatusResponse{
		SubmissionID:    s.SubmissionID,
		Status:          s.Status,
		SubmittedAt:     s.SubmittedAt.UTC().Format(time.RFC3339),
		VerificationRef: s.VerificationRef,
		InvoiceCount:    s.InvoiceCount,
		AcceptedCount:   s.AcceptedCount,
		RejectedCount:   s.RejectedCount,
	}
	if !s.ProcessedAt.IsZero() {
		out.ProcessedAt = s.ProcessedAt.UTC().Format(time.RFC3339)
	}
	if !s.ExpiresAt.IsZero() {
		out.ExpiresAt = s.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return out
}

// AuditEntryResponse entrada del registro de auditoría.
type AuditEntryResponse struct {
	ID            string `json:"id"`
	SubmissionID  string `json:"submission_id"`
	Status        string `json:"status"`
	InvoiceCount  int    `json:"invoice_count"`
	AcceptedCount int    `json:"accepted_count"`
	RejectedCount int    `json:"rejected_count"`
	CreatedAt     string `json:"created_at"`
}

// NewAuditEntryResponse proyecta una entrada de auditoría.
func NewAuditEntryResponse(r *entity.AuditRecord) AuditEntryResponse {
	return AuditEntryResponse{
		ID:            r.ID,
		SubmissionID:  r.SubmissionID,
		Status:        r.Status,
		InvoiceCount:  r.InvoiceCount,
		AcceptedCount: r.AcceptedCount,
		RejectedCount: r.RejectedCount,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// AuditListResponse página de entradas de auditoría de un titular.
type AuditListResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
	Page    PageResponse         `json:"page"`
}

// FieldErrorDTO error de validación a nivel de campo.
type FieldErrorDTO struct {
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Field         string `json:"field"`
	Message       string `json:"message"`
}

// ValidationErrorResponse cuerpo 400 con el informe completo de validación.
type ValidationErrorResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Errors  []FieldErrorDTO `json:"errors"`
}

// NewValidationErrorResponse proyecta la lista acumulada del validador.
func NewValidationErrorResponse(errs domain.ValidationErrors) ValidationErrorResponse {
	out := ValidationErrorResponse{Code: "VALIDATION", Message: "el lote no supera la validación"}
	for _, e := range errs {
		out.Errors = append(out.Errors, FieldErrorDTO{
			InvoiceNumber: e.InvoiceNumber,
			Field:         e.Field,
			Message:       e.Message,
		})
	}
	return out
}
