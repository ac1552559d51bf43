package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de una RFQ. La secuencia comprometida es siempre
// una subsecuencia de DRAFT → AWAITING_SUPPLIER → RESPONDED → PRICED →
// SENT_TO_CLIENT → ARCHIVED; CANCELLED es alcanzable desde cualquier estado
// no terminal.
const (
	RFQStatusDraft            = "DRAFT"
	RFQStatusAwaitingSupplier = "AWAITING_SUPPLIER"
	RFQStatusResponded        = "RESPONDED"
	RFQStatusPriced           = "PRICED"
	RFQStatusSentToClient     = "SENT_TO_CLIENT"
	RFQStatusArchived         = "ARCHIVED"
	RFQStatusCancelled        = "CANCELLED"
)

// IsTerminalStatus indica si un estado no admite más transiciones.
func IsTerminalStatus(status string) bool {
	return status == RFQStatusArchived || status == RFQStatusCancelled
}

// RFQ (Request for Quotation) es el registro de compra que se sigue a través
// de su ciclo de vida. Es dueña exclusiva de sus items y de las respuestas
// del proveedor; las cotizaciones derivadas se versionan (append-only).
type RFQ struct {
	ID             string
	Reference      string // número secuencial anual, ej. QT2026-17
	Status         string
	RequesterName  string
	RequesterEmail string
	SupplierID     string
	BrandID        string
	Notes          string
	Items          []RFQItem
	Responses      []SupplierResponse
	Quotations     []Quotation // revisiones, orden ascendente
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LatestQuotation devuelve la última revisión de cotización o nil.
func (r *RFQ) LatestQuotation() *Quotation {
	if len(r.Quotations) == 0 {
		return nil
	}
	return &r.Quotations[len(r.Quotations)-1]
}

// ItemByID busca un item por su ID.
func (r *RFQ) ItemByID(id string) *RFQItem {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return &r.Items[i]
		}
	}
	return nil
}

// RFQItem es una línea del pedido de cotización.
type RFQItem struct {
	ID              string
	RFQID           string
	Position        int // orden dentro de la RFQ; fija el orden canónico de suma
	ArticleCode     string
	Description     string
	Quantity        int64
	Unit            string
	TargetUnitPrice *decimal.Decimal // precio objetivo opcional, nunca negativo
}

// SupplierResponse es la respuesta del proveedor para un item concreto.
// Existe como máximo un conjunto de respuestas por (RFQ, proveedor).
type SupplierResponse struct {
	ID           string
	RFQID        string
	RFQItemID    string
	UnitCost     decimal.Decimal
	LeadTimeDays int
	Notes        string
	RespondedAt  time.Time
}
