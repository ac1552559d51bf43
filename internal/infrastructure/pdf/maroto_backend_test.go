package pdf

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/cotiza-pro/internal/infrastructure/render"
)

func sampleDocument() *render.Document {
	// Mezcla texto en regular y negrita: título, etiquetas y cabeceras de
	// tabla usan Bold, los valores y celdas la fuente por defecto.
	return &render.Document{
		Kind:  "request",
		Title: "SOLICITUD DE COTIZACIÓN",
		Texts: []render.Text{
			{Key: "reference", Label: "Referencia", Value: "QT2026-0007", Placement: render.Placement{X: 10, Y: 30, Size: 9, Page: 1}},
			{Key: "date", Label: "Fecha", Value: "15/03/2026", Placement: render.Placement{X: 120, Y: 30, Size: 9, Page: 1}},
			{Key: "supplier_name", Label: "Proveedor", Value: "Aceros del Norte", Placement: render.Placement{X: 10, Y: 38, Size: 9, Page: 1}},
			{Key: "notes", Label: "Notas", Value: "entrega parcial aceptada", Placement: render.Placement{X: 10, Y: 46, Size: 8, Page: 1}},
		},
		Table:   render.TableLayout{Y: 60, Widths: []float64{10, 25, 95, 20, 15}, Size: 8},
		Headers: []string{"#", "Código", "Descripción", "Cantidad", "Unidad"},
		Rows: [][]string{
			{"1", "TUB-20", "Tubo estructural 20mm", "10", "un"},
			{"2", "CHA-3", "Chapa laminada 3mm", "4", "un"},
			{"3", "PER-L50", "Perfil L 50x50", "12", "un"},
		},
	}
}

// ─────────────────────────────────────────────────────────────
// Determinismo del artefacto real
// ─────────────────────────────────────────────────────────────

// El motor subyacente emite los objetos de fuente en orden de mapa y sella
// /ModDate con el reloj; generaciones repetidas deben producir exactamente
// los mismos bytes de todos modos.
func TestRender_MismoModeloMismosBytes(t *testing.T) {
	b := NewMarotoBackend()

	primero, err := b.Render(sampleDocument())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(primero, []byte("%PDF-")), "debe ser un PDF")

	// Varias pasadas: con dos fuentes, el orden de iteración del mapa
	// interno varía entre generaciones.
	for i := 0; i < 8; i++ {
		otro, err := b.Render(sampleDocument())
		require.NoError(t, err)
		if !assert.True(t, bytes.Equal(primero, otro), "pasada %d difiere", i+1) {
			break
		}
	}
}

func TestRender_FechasFijadasEnElInfo(t *testing.T) {
	b := NewMarotoBackend()

	pdf, err := b.Render(sampleDocument())
	require.NoError(t, err)

	creation := regexp.MustCompile(`/CreationDate \(D:(\d{14})\)`).FindSubmatch(pdf)
	mod := regexp.MustCompile(`/ModDate \(D:(\d{14})\)`).FindSubmatch(pdf)
	require.NotNil(t, creation)
	require.NotNil(t, mod)
	assert.Equal(t, "20240101000000", string(creation[1]))
	assert.Equal(t, string(creation[1]), string(mod[1]), "/ModDate debe igualar /CreationDate")
}

// canonicalize reordena objetos y recalcula offsets; la xref resultante debe
// seguir apuntando al inicio real de cada objeto.
func TestCanonicalize_XrefConsistente(t *testing.T) {
	b := NewMarotoBackend()

	pdf, err := b.Render(sampleDocument())
	require.NoError(t, err)

	sx := bytes.LastIndex(pdf, []byte("startxref\n"))
	require.GreaterOrEqual(t, sx, 0)

	// Una segunda canonicalización no debe cambiar nada.
	again, err := canonicalize(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(pdf, again), "canonicalize debe ser idempotente")
}

// ─────────────────────────────────────────────────────────────
// Grilla de columnas
// ─────────────────────────────────────────────────────────────

func TestColumnSpans_SumaExacta12(t *testing.T) {
	casos := []struct {
		nombre string
		widths []float64
		n      int
	}{
		{"anchos del layout", []float64{10, 25, 95, 20, 15}, 5},
		{"sin anchos", nil, 4},
		{"columna dominante", []float64{2, 2, 200}, 3},
		{"mas columnas que anchos", []float64{50}, 3},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			spans := columnSpans(c.widths, c.n)
			require.Len(t, spans, c.n)
			total := 0
			for _, s := range spans {
				require.GreaterOrEqual(t, s, 1)
				total += s
			}
			assert.Equal(t, 12, total)
		})
	}
}
