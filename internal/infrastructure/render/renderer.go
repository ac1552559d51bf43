package render

import (
	"github.com/rs/zerolog"

	"github.com/tu-usuario/cotiza-pro/internal/application/quotation"
	"github.com/tu-usuario/cotiza-pro/internal/domain"
)

// Text un valor ya posicionado, listo para dibujar.
type Text struct {
	Key       string
	Label     string
	Value     string
	Placement Placement
}

// Document modelo intermedio determinista que consume el backend. Todo lo
// que depende del layout o del snapshot se resuelve antes de llegar aquí; el
// backend se limita a dibujar.
type Document struct {
	Kind    string
	Title   string
	Texts   []Text
	Table   TableLayout
	Headers []string
	Rows    [][]string
}

// Backend dibuja el modelo intermedio en el formato final (PDF en
// producción).
type Backend interface {
	Render(doc *Document) ([]byte, error)
}

// Renderer cruza plantilla, layout y snapshot. Implementa
// quotation.Renderer.
type Renderer struct {
	store   *Store
	backend Backend
	logger  zerolog.Logger
}

// NewRenderer constructor del renderer de documentos.
func NewRenderer(store *Store, backend Backend, logger zerolog.Logger) *Renderer {
	return &Renderer{
		store:   store,
		backend: backend,
		logger:  logger.With().Str("component", "render").Logger(),
	}
}

// Render genera el documento del tipo pedido a partir del snapshot. Falla
// completo o produce el artefacto completo: una clave de plantilla sin
// placement en el layout es ConfigurationError, un campo ausente en el
// snapshot es RenderError, y en ambos casos no se emite nada.
func (r *Renderer) Render(kind string, data quotation.DocumentData) ([]byte, error) {
	tmpl, ok := TemplateFor(kind)
	if !ok {
		return nil, &domain.RenderError{Kind: kind, Msg: "tipo de documento desconocido"}
	}
	layout, err := r.store.Get(kind)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Kind:    kind,
		Title:   layout.Title,
		Table:   layout.Table,
		Headers: tmpl.Headers,
	}
	for _, f := range tmpl.Fields {
		p, ok := layout.Fields[f.Key]
		if !ok {
			return nil, domain.NewConfiguration("layout %q sin placement para el campo %q", kind, f.Key)
		}
		value, ok := data.Fields[f.Key]
		if !ok {
			return nil, &domain.RenderError{Kind: kind, Msg: "snapshot sin el campo " + f.Key}
		}
		doc.Texts = append(doc.Texts, Text{Key: f.Key, Label: f.Label, Value: value, Placement: p})
	}
	for _, row := range data.Rows {
		cells := append([]string(nil), row...)
		for len(cells) < len(tmpl.Headers) {
			cells = append(cells, tmpl.PadCell)
		}
		doc.Rows = append(doc.Rows, cells)
	}

	out, err := r.backend.Render(doc)
	if err != nil {
		r.logger.Error().Err(err).Str("kind", kind).Msg("backend de render falló")
		return nil, &domain.RenderError{Kind: kind, Msg: err.Error()}
	}
	return out, nil
}
