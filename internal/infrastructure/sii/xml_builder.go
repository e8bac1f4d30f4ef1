package sii

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/facturia/sii-gateway/internal/domain/entity"
	pkgsii "github.com/facturia/sii-gateway/pkg/sii"
)

// Namespaces del suministro SII v1.1.
const (
	nsSoapEnv = "http://schemas.xmlsoap.org/soap/envelope/"
	nsSii     = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/ssii/fact/ws/SuministroInformacion.xsd"
	nsSiiLR   = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/ssii/fact/ws/SuministroLR.xsd"

	siiVersion = "1.1"
	// TipoComunicacion A0: alta de registros.
	communicationKindAlta = "A0"
)

// dateLayout formato de fecha exigido por el SII en los campos de factura.
const dateLayout = "02-01-2006"

// bookEnvelopeTags sobre raíz de cada libro. El sobre identifica el libro al
// que pertenece todo el contenido de la llamada.
var bookEnvelopeTags = map[string]string{
	pkgsii.BookIssuedStandard:         "SuministroLRFacturasEmitidas",
	pkgsii.BookIssuedRectified:        "SuministroLRFacturasEmitidasRectificativas",
	pkgsii.BookReceivedStandard:       "SuministroLRFacturasRecibidas",
	pkgsii.BookReceivedCorrected:      "SuministroLRFacturasRecibidasRectificativas",
	pkgsii.BookReceivedIntraCommunity: "SuministroLRAdquisicionesIntracomunitarias",
	pkgsii.BookReceivedImport:         "SuministroLRImportacionesDUA",
}

// XMLBuilder construye el payload de suministro de un libro.
//
// Garantías: las facturas y sus líneas se serializan en el orden de entrada,
// las fechas van como DD-MM-YYYY y todo texto libre queda escapado por el
// encoder. La salida es estable: sirve para tests de fichero dorado.
type XMLBuilder struct{}

// NewXMLBuilder crea el servicio.
func NewXMLBuilder() *XMLBuilder {
	return &XMLBuilder{}
}

// Build genera el payload para una partición homogénea de libro.
// holder es el titular del suministro; year/period el periodo de liquidación.
func (b *XMLBuilder) Build(holder entity.Party, year int, period string, part entity.BookPartition) (string, error) {
	rootTag, ok := bookEnvelopeTags[part.BookCode]
	if !ok {
		return "", fmt.Errorf("sii: libro %q sin sobre definido", part.BookCode)
	}
	if len(part.Invoices) == 0 {
		return "", fmt.Errorf("sii: partición %s vacía", part.BookCode)
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	envelope := start("soapenv:Envelope",
		attr("xmlns:soapenv", nsSoapEnv),
		attr("xmlns:sii", nsSii),
		attr("xmlns:siiLR", nsSiiLR),
	)
	if err := enc.EncodeToken(envelope); err != nil {
		return "", err
	}
	writeEmpty(enc, "soapenv:Header")

	body := start("soapenv:Body")
	_ = enc.EncodeToken(body)

	root := start("siiLR:" + rootTag)
	_ = enc.EncodeToken(root)

	// ---- sii:Cabecera: versión, titular y tipo de comunicación
	b.writeHeader(enc, holder)

	// ---- un registro por factura, en orden de entrada
	for _, inv := range part.Invoices {
		if err := b.writeRegister(enc, inv, part.BookCode, year, period); err != nil {
			return "", err
		}
	}

	_ = enc.EncodeToken(root.End())
	_ = enc.EncodeToken(body.End())
	if err := enc.EncodeToken(envelope.End()); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (b *XMLBuilder) writeHeader(enc *xml.Encoder, holder entity.Party) {
	cab := start("sii:Cabecera")
	_ = enc.EncodeToken(cab)
	writeSii(enc, "IDVersionSii", siiVersion)

	tit := start("sii:Titular")
	_ = enc.EncodeToken(tit)
	writeSii(enc, "NombreRazon", holder.Name)
	writeSii(enc, "NIF", pkgsii.NormalizeTaxID(holder.TaxID))
	_ = enc.EncodeToken(tit.End())

	writeSii(enc, "TipoComunicacion", communicationKindAlta)
	_ = enc.EncodeToken(cab.End())
}

// writeRegister escribe el registro completo de una factura.
func (b *XMLBuilder) writeRegister(enc *xml.Encoder, inv entity.Invoice, bookCode string, year int, period string) error {
	registerTag := "siiLR:RegistroLRFacturasEmitidas"
	if !pkgsii.IsIssuedBook(bookCode) {
		registerTag = "siiLR:RegistroLRFacturasRecibidas"
	}
	reg := start(registerTag)
	_ = enc.EncodeToken(reg)

	// Periodo de liquidación
	per := start("sii:PeriodoLiquidacion")
	_ = enc.EncodeToken(per)
	writeSii(enc, "Ejercicio", strconv.Itoa(year))
	writeSii(enc, "Periodo", period)
	_ = enc.EncodeToken(per.End())

	// Identidad de la factura: emisor + número + fecha de expedición
	id := inv.Identity()
	idFac := start("siiLR:IDFactura")
	_ = enc.EncodeToken(idFac)
	emisor := start("sii:IDEmisorFactura")
	_ = enc.EncodeToken(emisor)
	writeSii(enc, "NIF", pkgsii.NormalizeTaxID(issuerOf(inv).TaxID))
	_ = enc.EncodeToken(emisor.End())
	writeSii(enc, "NumSerieFacturaEmisor", id.Number)
	writeSii(enc, "FechaExpedicionFacturaEmisor", id.IssueDate.Format(dateLayout))
	_ = enc.EncodeToken(idFac.End())

	switch v := inv.(type) {
	case *entity.IssuedInvoice:
		b.writeIssuedDetail(enc, v)
	case *entity.ReceivedInvoice:
		b.writeReceivedDetail(enc, v)
	default:
		return fmt.Errorf("sii: variante de factura desconocida %T", inv)
	}

	_ = enc.EncodeToken(reg.End())
	return nil
}

func (b *XMLBuilder) writeIssuedDetail(enc *xml.Encoder, inv *entity.IssuedInvoice) {
	fac := start("siiLR:FacturaExpedida")
	_ = enc.EncodeToken(fac)

	writeSii(enc, "TipoFactura", inv.TypeCode)
	writeSii(enc, "ClaveRegimenEspecialOTrascendencia", operationKey(inv.OperationType))

	if inv.Rectification != nil {
		b.writeRectification(enc, inv.Rectification)
	}

	writeSii(enc, "DescripcionOperacion", inv.Description)
	writeSii(enc, "ImporteTotal", formatDecimal(inv.TotalAmount))

	// Contraparte (destinatario)
	b.writeCounterparty(enc, inv.Recipient)

	// Desglose de IVA: cada línea aparece exactamente una vez, sin agregación
	// por tipo (si hay que agregar, lo hace el sistema remoto).
	des := start("sii:DesgloseFactura")
	_ = enc.EncodeToken(des)
	for _, l := range inv.VatLines {
		b.writeVatLine(enc, l, "CuotaRepercutida")
	}
	_ = enc.EncodeToken(des.End())

	_ = enc.EncodeToken(fac.End())
}

func (b *XMLBuilder) writeReceivedDetail(enc *xml.Encoder, inv *entity.ReceivedInvoice) {
	fac := start("siiLR:FacturaRecibida")
	_ = enc.EncodeToken(fac)

	writeSii(enc, "TipoFactura", inv.TypeCode)
	writeSii(enc, "ClaveRegimenEspecialOTrascendencia", operationKey(inv.OperationType))

	if inv.Rectification != nil {
		b.writeRectification(enc, inv.Rectification)
	}

	writeSii(enc, "DescripcionOperacion", inv.Description)
	writeSii(enc, "ImporteTotal", formatDecimal(inv.TotalAmount))

	// Contraparte (proveedor que expidió)
	b.writeCounterparty(enc, inv.Issuer)

	des := start("sii:DesgloseFactura")
	_ = enc.EncodeToken(des)
	for _, l := range inv.VatLines {
		b.writeVatLine(enc, l, "CuotaSoportada")
	}
	_ = enc.EncodeToken(des.End())

	if !inv.DeductionPct.IsZero() {
		writeSii(enc, "PorcentDeduccion", formatDecimal(inv.DeductionPct))
	}

	_ = enc.EncodeToken(fac.End())
}

func (b *XMLBuilder) writeRectification(enc *xml.Encoder, r *entity.RectificationDetail) {
	writeSii(enc, "TipoRectificativa", r.Kind)
	rect := start("sii:FacturasRectificadas")
	_ = enc.EncodeToken(rect)
	idr := start("sii:IDFacturaRectificada")
	_ = enc.EncodeToken(idr)
	writeSii(enc, "NumSerieFacturaEmisor", r.OriginalNumber)
	writeSii(enc, "FechaExpedicionFacturaEmisor", r.OriginalIssueDate.Format(dateLayout))
	_ = enc.EncodeToken(idr.End())
	_ = enc.EncodeToken(rect.End())
}

func (b *XMLBuilder) writeCounterparty(enc *xml.Encoder, p entity.Party) {
	cp := start("sii:Contraparte")
	_ = enc.EncodeToken(cp)
	writeSii(enc, "NombreRazon", p.Name)
	writeSii(enc, "NIF", pkgsii.NormalizeTaxID(p.TaxID))
	_ = enc.EncodeToken(cp.End())
}

// writeVatLine escribe el detalle de una línea. cuotaTag distingue la cuota
// repercutida (emitidas) de la soportada (recibidas).
func (b *XMLBuilder) writeVatLine(enc *xml.Encoder, l entity.VatLine, cuotaTag string) {
	det := start("sii:DetalleIVA")
	_ = enc.EncodeToken(det)
	writeSii(enc, "TipoImpositivo", formatDecimal(l.VatRate))
	writeSii(enc, "BaseImponible", formatDecimal(l.TaxableBase))
	writeSii(enc, cuotaTag, formatDecimal(l.VatAmount))
	if l.HasSurcharge {
		writeSii(enc, "TipoRecargoEquivalencia", formatDecimal(l.SurchargeRate))
		writeSii(enc, "CuotaRecargoEquivalencia", formatDecimal(l.SurchargeAmount))
	}
	_ = enc.EncodeToken(det.End())
}

// ── helpers ───────────────────────────────────────────────────────────────────

func issuerOf(inv entity.Invoice) entity.Party {
	switch v := inv.(type) {
	case *entity.IssuedInvoice:
		return v.Issuer
	case *entity.ReceivedInvoice:
		return v.Issuer
	}
	return entity.Party{}
}

func operationKey(key string) string {
	if key == "" {
		return pkgsii.RegimeKeyGeneral
	}
	return key
}

func start(local string, attrs ...xml.Attr) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: local}, Attr: attrs}
}

func attr(local, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: local}, Value: value}
}

func writeSii(enc *xml.Encoder, local, value string) {
	el := start("sii:" + local)
	_ = enc.EncodeToken(el)
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(el.End())
}

func writeEmpty(enc *xml.Encoder, local string) {
	el := start(local)
	_ = enc.EncodeToken(el)
	_ = enc.EncodeToken(el.End())
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
