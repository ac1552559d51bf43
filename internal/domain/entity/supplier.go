package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier representa un proveedor al que se le piden cotizaciones.
// DeletedAt marca borrado lógico: mientras exista una RFQ que lo referencie
// nunca se elimina físicamente.
type Supplier struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	Address       string
	TaxID         string
	Brands        []Brand
	MarginDefault *decimal.Decimal // override de margen a nivel proveedor (opcional)
	DeletedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Brand representa una marca ofrecida por un proveedor, con su margen por defecto.
type Brand struct {
	ID            string
	Name          string
	MarginDefault decimal.Decimal // fracción en [0, 1); un margen negativo se rechaza al configurar
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
