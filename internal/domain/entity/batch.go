package entity

import "github.com/facturia/sii-gateway/internal/domain"

// Direction sentido de las facturas de un lote: emitidas o recibidas.
type Direction string

const (
	DirectionIssued   Direction = "ISSUED"
	DirectionReceived Direction = "RECEIVED"
)

// SubmissionBatch lote de envío: titular + ejercicio + periodo + facturas de
// un único sentido, en el orden dado por el llamador. Se consume una sola vez.
type SubmissionBatch struct {
	Holder     Party
	FiscalYear int    // Ejercicio (ej: 2026)
	Period     string // Periodo de liquidación (L1): "01".."12" o "0A"
	Direction  Direction
	Invoices   []Invoice

	consumed bool
}

// Consume marca el lote como consumido. Un lote se envía una sola vez; el
// segundo intento falla sin tocar la red. Una validación fallida no consume:
// el lote nunca llegó a enviarse.
func (b *SubmissionBatch) Consume() error {
	if b.consumed {
		return domain.ErrBatchConsumed
	}
	b.consumed = true
	return nil
}

// BookPartition agrupación derivada de un lote por código de libro.
// Nunca se persiste; se recalcula en cada envío. El orden relativo de las
// facturas dentro de cada libro es el del lote original.
type BookPartition struct {
	BookCode string
	Invoices []Invoice
}
