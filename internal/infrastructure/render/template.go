package render

import "github.com/tu-usuario/cotiza-pro/internal/domain/entity"

// FieldSpec clave de snapshot y etiqueta impresa delante del valor.
type FieldSpec struct {
	Key   string
	Label string
}

// Template define, por tipo de documento, los campos en orden de impresión y
// las columnas de la tabla de items. El orden es fijo: dos renders del mismo
// snapshot recorren exactamente la misma secuencia.
type Template struct {
	Kind    string
	Fields  []FieldSpec
	Headers []string
	// PadCell rellena las columnas que el snapshot no trae. En el pedido al
	// proveedor la columna de precio va en blanco para que la complete él.
	PadCell string
}

var templates = map[string]Template{
	entity.DocumentKindRequest: {
		Kind: entity.DocumentKindRequest,
		Fields: []FieldSpec{
			{Key: "reference", Label: "Referencia"},
			{Key: "date", Label: "Fecha"},
			{Key: "supplier_name", Label: "Proveedor"},
			{Key: "requester_name", Label: "Solicitante"},
			{Key: "notes", Label: "Observaciones"},
		},
		Headers: []string{"#", "Artículo", "Descripción", "Cant.", "Unidad", "Precio Unit."},
		PadCell: "____________",
	},
	entity.DocumentKindClient: {
		Kind: entity.DocumentKindClient,
		Fields: []FieldSpec{
			{Key: "reference", Label: "Referencia"},
			{Key: "date", Label: "Fecha"},
			{Key: "client_name", Label: "Cliente"},
			{Key: "supplier_name", Label: "Proveedor"},
			{Key: "revision", Label: "Revisión"},
			{Key: "currency", Label: "Moneda"},
			{Key: "total", Label: "Total"},
		},
		Headers: []string{"#", "Artículo", "Descripción", "Cant.", "P. Unit.", "Total", "Plazo"},
	},
}

// TemplateFor devuelve la plantilla del tipo de documento, o false si no
// existe.
func TemplateFor(kind string) (Template, bool) {
	t, ok := templates[kind]
	return t, ok
}
