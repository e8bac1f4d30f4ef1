package sii

import (
	"fmt"

	"github.com/facturia/sii-gateway/internal/domain"
	"github.com/facturia/sii-gateway/internal/domain/entity"
	pkgsii "github.com/facturia/sii-gateway/pkg/sii"
)

// RouteBook clasifica una factura ya validada en exactamente un libro.
// Orden de decisión determinista; la rectificación tiene prioridad sobre
// intracomunitaria e importación.
func RouteBook(inv entity.Invoice) string {
	switch v := inv.(type) {
	case *entity.IssuedInvoice:
		if v.Rectification != nil {
			return pkgsii.BookIssuedRectified
		}
		return pkgsii.BookIssuedStandard
	case *entity.ReceivedInvoice:
		switch {
		case v.Rectification != nil:
			return pkgsii.BookReceivedCorrected
		case v.IsIntraCommunity:
			return pkgsii.BookReceivedIntraCommunity
		case v.IsImport:
			return pkgsii.BookReceivedImport
		default:
			return pkgsii.BookReceivedStandard
		}
	}
	// El conjunto de variantes es cerrado; esto solo puede pasar con un tipo
	// nuevo sin caso en el switch.
	panic(fmt.Sprintf("sii: variante de factura desconocida %T", inv))
}

// bookOrder orden estable de serialización y merge de particiones.
var bookOrder = []string{
	pkgsii.BookIssuedStandard, pkgsii.BookIssuedRectified,
	pkgsii.BookReceivedStandard, pkgsii.BookReceivedCorrected,
	pkgsii.BookReceivedIntraCommunity, pkgsii.BookReceivedImport,
}

// Partition agrupa las facturas del lote por libro, preservando el orden
// relativo original dentro de cada grupo. Devuelve las particiones no vacías
// en orden de libro estable.
func Partition(batch *entity.SubmissionBatch) []entity.BookPartition {
	grouped := make(map[string][]entity.Invoice)
	for _, inv := range batch.Invoices {
		book := RouteBook(inv)
		grouped[book] = append(grouped[book], inv)
	}

	var parts []entity.BookPartition
	for _, book := range bookOrder {
		if invs, ok := grouped[book]; ok {
			parts = append(parts, entity.BookPartition{BookCode: book, Invoices: invs})
		}
	}
	return parts
}

// PartitionForBook extrae la partición de un libro concreto solicitado por el
// llamador. Si queda vacía devuelve ErrEmptyPartition: pedir explícitamente
// un libro y no enviar nada sería un éxito silencioso engañoso.
func PartitionForBook(batch *entity.SubmissionBatch, bookCode string) (entity.BookPartition, error) {
	if !pkgsii.ValidBookCodes[bookCode] {
		return entity.BookPartition{}, fmt.Errorf("%w: libro %q desconocido", domain.ErrInvalidInput, bookCode)
	}
	for _, p := range Partition(batch) {
		if p.BookCode == bookCode {
			return p, nil
		}
	}
	return entity.BookPartition{}, fmt.Errorf("%w: libro %s", domain.ErrEmptyPartition, bookCode)
}
