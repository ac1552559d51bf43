// Package pdf implementa el backend Maroto del motor de render: recibe el
// modelo intermedio ya resuelto (layout + snapshot) y lo dibuja en A4.
//
// Layout de la página:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  TÍTULO (según tipo de documento)                           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CAMPOS: referencia, fecha, proveedor/cliente, ...          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: items del pedido / líneas de la oferta              │
//	│  ─────────────────────────────────────────────────────────  │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"sort"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/tu-usuario/cotiza-pro/internal/infrastructure/render"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Backend ───────────────────────────────────────────────────────────────────

// MarotoBackend implementa render.Backend usando Maroto v2.
type MarotoBackend struct{}

// NewMarotoBackend construye el backend PDF.
func NewMarotoBackend() *MarotoBackend { return &MarotoBackend{} }

// renderEpoch fija /CreationDate: el mismo documento debe producir los
// mismos bytes sin importar cuándo se genere.
var renderEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Render dibuja el modelo intermedio y devuelve los bytes del PDF.
func (b *MarotoBackend) Render(doc *render.Document) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(doc.Title, true).
		WithCreationDate(renderEpoch).
		Build()

	m := maroto.New(cfg)

	m.AddRows(titleRow(doc.Title))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	for _, r := range fieldRows(doc.Texts) {
		m.AddRows(r)
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	spans := columnSpans(doc.Table.Widths, len(doc.Headers))
	m.AddRows(tableHeaderRow(doc.Headers, spans, doc.Table.Size))
	for _, r := range tableRows(doc.Rows, spans, doc.Table.Size) {
		m.AddRows(r)
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	stable, err := canonicalize(out.GetBytes())
	if err != nil {
		return nil, fmt.Errorf("pdf: canonicalizar documento: %w", err)
	}
	return stable, nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func titleRow(title string) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 14, Color: colorPrimary, Top: 2,
			}),
		),
	)
}

// fieldRows: una fila "Etiqueta: valor" por campo, en el orden que dicta el
// placement del layout (página, luego Y, luego X).
func fieldRows(texts []render.Text) []core.Row {
	ordered := append([]render.Text(nil), texts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Placement, ordered[j].Placement
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	result := make([]core.Row, 0, len(ordered))
	for _, t := range ordered {
		size := t.Placement.Size
		if size == 0 {
			size = 9
		}
		result = append(result, row.New(6).Add(
			col.New(3).Add(text.New(t.Label+":", props.Text{
				Style: fontstyle.Bold, Size: size, Top: 1, Color: colorPrimary,
			})),
			col.New(9).Add(text.New(t.Value, props.Text{
				Size: size, Top: 1, Left: 1,
			})),
		))
	}
	return result
}

func tableHeaderRow(headers []string, spans []int, size float64) core.Row {
	if size == 0 {
		size = 8
	}
	cols := make([]core.Col, 0, len(headers))
	for i, h := range headers {
		cols = append(cols, col.New(spans[i]).Add(text.New(h, props.Text{
			Style: fontstyle.Bold, Size: size, Align: align.Center,
			Color: colorPrimary, Top: 2,
		})))
	}
	return row.New(8).Add(cols...)
}

func tableRows(rows [][]string, spans []int, size float64) []core.Row {
	if size == 0 {
		size = 8
	}
	result := make([]core.Row, 0, len(rows))
	for _, cells := range rows {
		cols := make([]core.Col, 0, len(cells))
		for i, c := range cells {
			span := 1
			if i < len(spans) {
				span = spans[i]
			}
			a := align.Left
			if i == 0 {
				a = align.Center
			}
			cols = append(cols, col.New(span).Add(text.New(c, props.Text{
				Size: size, Align: a, Top: 1, Left: 1,
			})))
		}
		result = append(result, row.New(7).Add(cols...))
	}
	return result
}

// ── helpers ───────────────────────────────────────────────────────────────────

// columnSpans reparte las 12 columnas de la grilla de Maroto en proporción a
// los anchos del layout. Garantiza al menos 1 por columna y suma exacta 12.
func columnSpans(widths []float64, n int) []int {
	if n == 0 {
		return nil
	}
	spans := make([]int, n)
	var total float64
	for i := 0; i < n; i++ {
		if i < len(widths) {
			total += widths[i]
		}
	}
	if total == 0 {
		// sin anchos configurados: reparto uniforme
		for i := range spans {
			spans[i] = 12 / n
			if spans[i] == 0 {
				spans[i] = 1
			}
		}
		spans[n-1] = 12 - sum(spans[:n-1])
		return spans
	}
	used := 0
	for i := 0; i < n; i++ {
		w := 0.0
		if i < len(widths) {
			w = widths[i]
		}
		s := int(w / total * 12)
		if s < 1 {
			s = 1
		}
		spans[i] = s
		used += s
	}
	// ajustar la columna más ancha para cuadrar en 12
	widest := 0
	for i, s := range spans {
		if s > spans[widest] {
			widest = i
		}
		_ = s
	}
	spans[widest] += 12 - used
	if spans[widest] < 1 {
		spans[widest] = 1
	}
	return spans
}

func sum(xs []int) int {
	t := 0
	for _, x := range xs {
		t += x
	}
	return t
}
