package sii

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Patrones de identificación fiscal española aceptados por el SII.
// DNI/NIF: 8 dígitos + letra de control; NIE: X/Y/Z + 7 dígitos + letra;
// CIF: letra de sociedad + 7 dígitos + dígito o letra de control.
var (
	nifPattern = regexp.MustCompile(`^[0-9]{8}[A-Za-z]$`)
	niePattern = regexp.MustCompile(`^[XYZxyz][0-9]{7}[A-Za-z]$`)
	cifPattern = regexp.MustCompile(`^[ABCDEFGHJKLMNPQRSUVWabcdefghjklmnpqrsuvw][0-9]{7}[0-9A-Ja-j]$`)
)

// letras de control del NIF/NIE (orden oficial, resto módulo 23).
const nifControlLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

// IsValidTaxID indica si el identificador coincide con alguno de los tres
// patrones admitidos (NIF, NIE o CIF). No valida la letra de control.
func IsValidTaxID(taxID string) bool {
	id := NormalizeTaxID(taxID)
	return nifPattern.MatchString(id) || niePattern.MatchString(id) || cifPattern.MatchString(id)
}

// NormalizeTaxID elimina espacios, puntos y guiones y pasa a mayúsculas.
func NormalizeTaxID(taxID string) string {
	id := strings.ToUpper(strings.TrimSpace(taxID))
	id = strings.NewReplacer(".", "", "-", "", " ", "").Replace(id)
	return id
}

// ValidateNIFControlLetter valida la letra de control de un NIF o NIE según
// el algoritmo oficial (número módulo 23 sobre la tabla de letras).
// Para NIE, el prefijo X/Y/Z se sustituye por 0/1/2 antes del cálculo.
func ValidateNIFControlLetter(taxID string) error {
	id := NormalizeTaxID(taxID)
	switch {
	case nifPattern.MatchString(id):
		// sin cambios
	case niePattern.MatchString(id):
		prefix := map[byte]byte{'X': '0', 'Y': '1', 'Z': '2'}[id[0]]
		id = string(prefix) + id[1:]
	default:
		return fmt.Errorf("sii: %q no es un NIF/NIE con letra de control verificable", taxID)
	}

	number, err := strconv.Atoi(id[:len(id)-1])
	if err != nil {
		return fmt.Errorf("sii: parte numérica de %q inválida: %w", taxID, err)
	}
	expected := nifControlLetters[number%23]
	if id[len(id)-1] != expected {
		return fmt.Errorf("sii: letra de control del NIF inválida: esperada %c, recibida %c",
			expected, id[len(id)-1])
	}
	return nil
}
