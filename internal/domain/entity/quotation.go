package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quotation es la derivada valorizada de una RFQ: respuesta del proveedor más
// margen aplicado. Una vez despachado el documento al cliente la revisión es
// inmutable; una nueva valorización crea la revisión siguiente, nunca muta la
// enviada.
type Quotation struct {
	ID           string
	RFQID        string
	Revision     int
	Currency     string
	Precision    int32 // decimales de la moneda (2 para EUR)
	Items        []QuotationItem
	Total        decimal.Decimal // suma de los totales de línea ya redondeados, en orden de items
	GeneratedAt  time.Time
	DispatchedAt *time.Time // no nil una vez enviado el documento al cliente
}

// Dispatched indica si esta revisión ya fue enviada al cliente.
func (q *Quotation) Dispatched() bool { return q.DispatchedAt != nil }

// QuotationItem es la línea valorizada: costo del proveedor, margen aplicado
// y precio de venta unitario redondeado a la precisión de la moneda.
type QuotationItem struct {
	ID            string
	QuotationID   string
	RFQItemID     string
	Position      int
	ArticleCode   string
	Description   string
	Quantity      int64
	UnitCost      decimal.Decimal
	Margin        decimal.Decimal // fracción aplicada
	UnitSellPrice decimal.Decimal // redondeado half-up a la precisión
	LineTotal     decimal.Decimal // UnitSellPrice * Quantity
}
