package entity

import "time"

// Tipos de documento generados por el motor de layout.
const (
	DocumentKindRequest = "request" // pedido de cotización al proveedor
	DocumentKindClient  = "client"  // oferta valorizada al cliente
)

// StoredDocument es un artefacto generado (PDF) guardado junto a su RFQ.
// Se conserva tal cual fue despachado; una recarga de layout no lo afecta.
type StoredDocument struct {
	ID        string
	RFQID     string
	Kind      string
	Filename  string
	Data      []byte
	CreatedAt time.Time
}
