package pricing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/cotiza-pro/internal/application/pricing"
	"github.com/tu-usuario/cotiza-pro/internal/domain"
	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// ──────────────────────────────────────────────────────────────────────────────
// Compute: contrato sell = cost * (1 + margin), redondeo half-up a 2 decimales.
// ──────────────────────────────────────────────────────────────────────────────

func TestCompute_CasosBasicos(t *testing.T) {
	calc := pricing.NewCalculator("EUR", 2)

	cases := []struct {
		name   string
		cost   string
		margin string
		want   string
	}{
		{"margen veinte por ciento", "100", "0.20", "120.00"},
		{"margen cero", "57.30", "0", "57.30"},
		{"redondeo half-up hacia arriba", "10.01", "0.125", "11.26"},   // 11.26125 → 11.26
		{"mitad exacta sube", "1.25", "0.10", "1.38"},                  // 1.375 → 1.38
		{"margen veinticinco sobre ocho", "8", "0.25", "10.00"},
		{"margen veinticinco sobre cuarenta y cinco", "45", "0.25", "56.25"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := calc.Compute(dec(tc.cost), dec(tc.margin))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestCompute_CostoInvalido(t *testing.T) {
	calc := pricing.NewCalculator("EUR", 2)

	var vErr *domain.ValidationError

	_, err := calc.Compute(dec("0"), dec("0.20"))
	require.ErrorAs(t, err, &vErr, "costo cero debe rechazarse")

	_, err = calc.Compute(dec("-5"), dec("0.20"))
	require.ErrorAs(t, err, &vErr, "costo negativo debe rechazarse")
}

func TestCompute_MargenInvalido(t *testing.T) {
	calc := pricing.NewCalculator("EUR", 2)

	var vErr *domain.ValidationError

	_, err := calc.Compute(dec("100"), dec("-0.10"))
	require.ErrorAs(t, err, &vErr, "margen negativo debe rechazarse")

	_, err = calc.Compute(dec("100"), dec("1"))
	require.ErrorAs(t, err, &vErr, "margen >= 1 debe rechazarse")
}

// Compute es monótono no decreciente en costo y en margen.
func TestCompute_Monotonia(t *testing.T) {
	calc := pricing.NewCalculator("EUR", 2)

	costs := []string{"0.01", "1", "9.99", "100", "12345.67"}
	margins := []string{"0", "0.05", "0.20", "0.50", "0.99"}

	for _, m := range margins {
		prev := decimal.Zero
		for _, c := range costs {
			got, err := calc.Compute(dec(c), dec(m))
			require.NoError(t, err)
			assert.True(t, got.GreaterThanOrEqual(prev), "creciente en costo: %s con margen %s", c, m)
			prev = got
		}
	}
	for _, c := range costs {
		prev := decimal.Zero
		for _, m := range margins {
			got, err := calc.Compute(dec(c), dec(m))
			require.NoError(t, err)
			assert.True(t, got.GreaterThanOrEqual(prev), "creciente en margen: %s sobre costo %s", m, c)
			prev = got
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// ResolveMargin: override de llamada → proveedor → marca → ConfigurationError.
// ──────────────────────────────────────────────────────────────────────────────

func TestResolveMargin_OrdenDeResolucion(t *testing.T) {
	supplier := &entity.Supplier{ID: "s1", MarginDefault: decPtr("0.18")}
	brand := &entity.Brand{ID: "b1", MarginDefault: dec("0.15")}

	m, err := pricing.ResolveMargin(decPtr("0.30"), supplier, brand)
	require.NoError(t, err)
	assert.Equal(t, "0.3", m.String(), "el override de llamada gana")

	m, err = pricing.ResolveMargin(nil, supplier, brand)
	require.NoError(t, err)
	assert.Equal(t, "0.18", m.String(), "luego el override del proveedor")

	m, err = pricing.ResolveMargin(nil, &entity.Supplier{ID: "s1"}, brand)
	require.NoError(t, err)
	assert.Equal(t, "0.15", m.String(), "por último el defecto de la marca")
}

func TestResolveMargin_SinConfiguracion(t *testing.T) {
	var cfgErr *domain.ConfigurationError
	_, err := pricing.ResolveMargin(nil, &entity.Supplier{ID: "s1"}, nil)
	require.ErrorAs(t, err, &cfgErr)
}

// ──────────────────────────────────────────────────────────────────────────────
// Price: escenario completo de la oferta — 2 items (qty 3 @ costo 8, qty 1 @
// costo 45), margen de marca 0.25 → venta 10.00 y 56.25, total 86.25.
// ──────────────────────────────────────────────────────────────────────────────

func TestPrice_EscenarioCompleto(t *testing.T) {
	calc := pricing.NewCalculator("EUR", 2)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	rfq := &entity.RFQ{
		ID: "rfq-1",
		Items: []entity.RFQItem{
			{ID: "i1", Position: 1, ArticleCode: "ART-001", Quantity: 3, TargetUnitPrice: decPtr("10")},
			{ID: "i2", Position: 2, ArticleCode: "ART-002", Quantity: 1, TargetUnitPrice: decPtr("50")},
		},
		Responses: []entity.SupplierResponse{
			{RFQItemID: "i1", UnitCost: dec("8"), LeadTimeDays: 5},
			{RFQItemID: "i2", UnitCost: dec("45"), LeadTimeDays: 10},
		},
	}

	q, err := calc.Price(rfq, dec("0.25"), 1, now)
	require.NoError(t, err)
	require.Len(t, q.Items, 2)

	assert.Equal(t, "10.00", q.Items[0].UnitSellPrice.StringFixed(2))
	assert.Equal(t, "30.00", q.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "56.25", q.Items[1].UnitSellPrice.StringFixed(2))
	assert.Equal(t, "56.25", q.Items[1].LineTotal.StringFixed(2))
	assert.Equal(t, "86.25", q.Total.StringFixed(2), "total canónico = suma de líneas redondeadas")
	assert.Equal(t, "EUR", q.Currency)
	assert.Equal(t, 1, q.Revision)
	assert.Nil(t, q.DispatchedAt)
}

// El total canónico es la suma de líneas ya redondeadas, no el redondeo del
// total exacto. Tres líneas de 1.115 × (1+0) con qty 1: cada línea redondea a
// 1.12 (half-up), total 3.36 — mientras que 3 × 1.115 = 3.345 redondearía 3.35.
func TestPrice_TotalSumaDeLineasRedondeadas(t *testing.T) {
	calc := pricing.NewCalculator("EUR", 2)

	rfq := &entity.RFQ{
		ID: "rfq-2",
		Items: []entity.RFQItem{
			{ID: "a", Position: 1, ArticleCode: "A", Quantity: 1},
			{ID: "b", Position: 2, ArticleCode: "B", Quantity: 1},
			{ID: "c", Position: 3, ArticleCode: "C", Quantity: 1},
		},
		Responses: []entity.SupplierResponse{
			{RFQItemID: "a", UnitCost: dec("1.115")},
			{RFQItemID: "b", UnitCost: dec("1.115")},
			{RFQItemID: "c", UnitCost: dec("1.115")},
		},
	}

	q, err := calc.Price(rfq, dec("0"), 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "3.36", q.Total.StringFixed(2))
}

func TestPrice_RespuestaFaltante(t *testing.T) {
	calc := pricing.NewCalculator("EUR", 2)

	rfq := &entity.RFQ{
		ID: "rfq-3",
		Items: []entity.RFQItem{
			{ID: "i1", Position: 1, ArticleCode: "ART-001", Quantity: 2},
		},
	}

	var vErr *domain.ValidationError
	_, err := calc.Price(rfq, dec("0.10"), 1, time.Now())
	require.ErrorAs(t, err, &vErr)
}
