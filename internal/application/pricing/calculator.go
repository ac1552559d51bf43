// Package pricing implementa la capa pura de valorización: dado el costo del
// proveedor y la regla de margen, calcula el precio de venta al cliente.
package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/cotiza-pro/internal/domain"
	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
)

var one = decimal.NewFromInt(1)

// Calculator calcula precios de venta a partir del costo y el margen.
// Precision es la cantidad de decimales de la moneda (2 para EUR).
type Calculator struct {
	Currency  string
	Precision int32
}

// NewCalculator construye el calculador para la moneda dada.
func NewCalculator(currency string, precision int32) *Calculator {
	return &Calculator{Currency: currency, Precision: precision}
}

// Compute aplica el margen al costo unitario y redondea half-up a la
// precisión de la moneda: sell = cost * (1 + margin).
// Un costo cero o negativo se rechaza: no existe aplicación de margen con
// sentido sobre una base de costo nula.
func (c *Calculator) Compute(unitCost, margin decimal.Decimal) (decimal.Decimal, error) {
	if !unitCost.IsPositive() {
		return decimal.Zero, domain.NewValidation("unit_cost", "el costo unitario debe ser mayor que cero")
	}
	if margin.IsNegative() {
		return decimal.Zero, domain.NewValidation("margin", "el margen no puede ser negativo")
	}
	if margin.GreaterThanOrEqual(one) {
		return decimal.Zero, domain.NewValidation("margin", "el margen debe ser una fracción menor que 1")
	}
	// Round de shopspring es half away from zero; para montos positivos
	// equivale a half-up, que es la política del documento.
	return unitCost.Mul(one.Add(margin)).Round(c.Precision), nil
}

// ResolveMargin aplica el orden de resolución: override de llamada →
// override del proveedor → margen por defecto de la marca. Si ninguno está
// presente la valorización no es posible y falla con ConfigurationError.
func ResolveMargin(override *decimal.Decimal, supplier *entity.Supplier, brand *entity.Brand) (decimal.Decimal, error) {
	switch {
	case override != nil:
		return *override, nil
	case supplier != nil && supplier.MarginDefault != nil:
		return *supplier.MarginDefault, nil
	case brand != nil:
		return brand.MarginDefault, nil
	}
	return decimal.Zero, domain.NewConfiguration("sin margen configurado: ni override, ni proveedor, ni marca")
}

// Price valoriza una RFQ completa: una línea por item en el orden de la
// secuencia, precio unitario redondeado por línea, y total canónico como
// suma de los totales de línea ya redondeados (evita disputas de redondeo
// entre el total recalculado y la suma de líneas).
func (c *Calculator) Price(rfq *entity.RFQ, margin decimal.Decimal, revision int, now time.Time) (*entity.Quotation, error) {
	costs := make(map[string]entity.SupplierResponse, len(rfq.Responses))
	for _, resp := range rfq.Responses {
		costs[resp.RFQItemID] = resp
	}

	q := &entity.Quotation{
		ID:          uuid.New().String(),
		RFQID:       rfq.ID,
		Revision:    revision,
		Currency:    c.Currency,
		Precision:   c.Precision,
		GeneratedAt: now,
	}

	total := decimal.Zero
	for _, item := range rfq.Items {
		resp, ok := costs[item.ID]
		if !ok {
			return nil, domain.NewValidation("responses", "falta la respuesta del proveedor para el item "+item.ArticleCode)
		}
		sell, err := c.Compute(resp.UnitCost, margin)
		if err != nil {
			return nil, err
		}
		lineTotal := sell.Mul(decimal.NewFromInt(item.Quantity))
		q.Items = append(q.Items, entity.QuotationItem{
			ID:            uuid.New().String(),
			QuotationID:   q.ID,
			RFQItemID:     item.ID,
			Position:      item.Position,
			ArticleCode:   item.ArticleCode,
			Description:   item.Description,
			Quantity:      item.Quantity,
			UnitCost:      resp.UnitCost,
			Margin:        margin,
			UnitSellPrice: sell,
			LineTotal:     lineTotal,
		})
		total = total.Add(lineTotal)
	}
	q.Total = total
	return q, nil
}
