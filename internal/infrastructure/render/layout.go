// Package render implementa el motor de layout de documentos: una
// configuración declarativa (clave de campo → placement) y un renderer puro
// que la cruza con el snapshot de datos. El backend de dibujo (PDF) queda
// detrás de una interfaz.
package render

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tu-usuario/cotiza-pro/internal/domain"
	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
)

// Placement posición y tipografía de un campo en el documento.
type Placement struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Font string  `json:"font"`
	Size float64 `json:"size"`
	Page int     `json:"page"`
}

// TableLayout posición y geometría de la tabla de items.
type TableLayout struct {
	Y      float64   `json:"y"`
	Widths []float64 `json:"widths"`
	Font   string    `json:"font"`
	Size   float64   `json:"size"`
}

// Layout configuración completa para un tipo de documento.
type Layout struct {
	Title  string               `json:"title"`
	Fields map[string]Placement `json:"fields"`
	Table  TableLayout          `json:"table"`
}

// clone copia profunda; los renders en vuelo nunca comparten el mapa vivo.
func (l Layout) clone() Layout {
	cp := l
	cp.Fields = make(map[string]Placement, len(l.Fields))
	for k, v := range l.Fields {
		cp.Fields[k] = v
	}
	cp.Table.Widths = append([]float64(nil), l.Table.Widths...)
	return cp
}

// Store mantiene los layouts por tipo de documento con semántica
// load-then-copy: la recarga intercambia el mapa completo y solo afecta a
// renders posteriores.
type Store struct {
	path string

	mu      sync.RWMutex
	layouts map[string]Layout
}

// NewStore construye el store con los layouts por defecto y, si el archivo
// existe, los sobreescribe con su contenido.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, layouts: DefaultLayouts()}
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload relee el archivo completo y sustituye los layouts en un solo
// intercambio. Un render en vuelo sigue usando la copia que ya obtuvo.
func (s *Store) Reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("leer layout %s: %w", s.path, err)
	}
	loaded := make(map[string]Layout)
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return fmt.Errorf("parsear layout %s: %w", s.path, err)
	}
	next := DefaultLayouts()
	for kind, l := range loaded {
		next[kind] = l
	}
	s.mu.Lock()
	s.layouts = next
	s.mu.Unlock()
	return nil
}

// Get devuelve una copia del layout del tipo pedido.
func (s *Store) Get(kind string) (Layout, error) {
	s.mu.RLock()
	l, ok := s.layouts[kind]
	s.mu.RUnlock()
	if !ok {
		return Layout{}, domain.NewConfiguration("sin layout para el documento %q", kind)
	}
	return l.clone(), nil
}

// Update reemplaza el layout de un tipo, lo persiste y lo activa para los
// renders siguientes. Documentos ya generados no se ven afectados.
func (s *Store) Update(kind string, l Layout) error {
	if kind != entity.DocumentKindRequest && kind != entity.DocumentKindClient {
		return domain.NewValidation("kind", "tipo de documento desconocido")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]Layout, len(s.layouts))
	for k, v := range s.layouts {
		next[k] = v
	}
	next[kind] = l.clone()
	if s.path != "" {
		raw, err := json.MarshalIndent(next, "", "  ")
		if err != nil {
			return fmt.Errorf("serializar layout: %w", err)
		}
		if err := os.WriteFile(s.path, raw, 0o644); err != nil {
			return fmt.Errorf("guardar layout %s: %w", s.path, err)
		}
	}
	s.layouts = next
	return nil
}

// DefaultLayouts layouts de fábrica para ambos tipos de documento. Cubren
// todas las claves que referencian las plantillas (§ fallo rápido: una clave
// de plantilla sin placement es error de configuración, no omisión
// silenciosa).
func DefaultLayouts() map[string]Layout {
	return map[string]Layout{
		entity.DocumentKindRequest: {
			Title: "PEDIDO DE COTIZACIÓN",
			Fields: map[string]Placement{
				"reference":      {X: 10, Y: 34, Font: "helvetica", Size: 11, Page: 1},
				"date":           {X: 10, Y: 42, Font: "helvetica", Size: 11, Page: 1},
				"supplier_name":  {X: 10, Y: 50, Font: "helvetica", Size: 11, Page: 1},
				"requester_name": {X: 10, Y: 58, Font: "helvetica", Size: 11, Page: 1},
				"notes":          {X: 10, Y: 66, Font: "helvetica", Size: 9, Page: 1},
			},
			Table: TableLayout{
				Y:      80,
				Widths: []float64{10, 25, 85, 18, 20, 25},
				Font:   "helvetica",
				Size:   9,
			},
		},
		entity.DocumentKindClient: {
			Title: "OFERTA",
			Fields: map[string]Placement{
				"reference":     {X: 10, Y: 34, Font: "helvetica", Size: 11, Page: 1},
				"date":          {X: 10, Y: 42, Font: "helvetica", Size: 11, Page: 1},
				"client_name":   {X: 10, Y: 50, Font: "helvetica", Size: 11, Page: 1},
				"supplier_name": {X: 10, Y: 58, Font: "helvetica", Size: 9, Page: 1},
				"revision":      {X: 160, Y: 34, Font: "helvetica", Size: 9, Page: 1},
				"currency":      {X: 160, Y: 42, Font: "helvetica", Size: 9, Page: 1},
				"total":         {X: 140, Y: 240, Font: "helvetica", Size: 12, Page: 1},
			},
			Table: TableLayout{
				Y:      80,
				Widths: []float64{8, 22, 70, 15, 22, 22, 18},
				Font:   "helvetica",
				Size:   9,
			},
		},
	}
}
