package entity

// Party identifica a una parte fiscal (titular, emisor o contraparte).
// Inmutable una vez asociada a una factura.
type Party struct {
	TaxID       string // NIF, NIE o CIF
	Name        string // Nombre o razón social
	CountryCode string // ISO 3166-1 alfa-2; vacío = ES
}
