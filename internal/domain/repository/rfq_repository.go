package repository

import (
	"time"

	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
)

// RFQFilter filtros de listado (paginado).
type RFQFilter struct {
	Reference  string // coincidencia parcial sobre el número de referencia
	Status     string
	SupplierID string
	Limit      int
	Offset     int
}

// RFQSummary fila ligera para listados.
type RFQSummary struct {
	ID           string
	Reference    string
	Status       string
	SupplierName string
	CreatedAt    time.Time
}

// RFQRepository define el puerto de persistencia para RFQ y sus agregados.
// El almacén es el único árbitro del orden de mutación: UpdateStatus aplica
// el chequeo optimista (estado leído == estado al confirmar) y devuelve
// ConflictError al segundo escritor.
type RFQRepository interface {
	Create(rfq *entity.RFQ) error
	GetByID(id string) (*entity.RFQ, error)
	List(filter RFQFilter) ([]RFQSummary, int, error)
	// UpdateStatus transiciona id de from a to de forma atómica.
	// Devuelve domain.ErrNotFound si la RFQ no existe y *domain.ConflictError
	// si el estado actual ya no es from.
	UpdateStatus(id, from, to string, at time.Time) error
	// ReplaceResponses sustituye el conjunto de respuestas del proveedor.
	ReplaceResponses(rfqID string, responses []entity.SupplierResponse) error
	// SaveQuotation persiste una revisión. Si replacePending es true elimina
	// antes la revisión no despachada con el mismo número (re-pricing).
	SaveQuotation(q *entity.Quotation, replacePending bool) error
	MarkQuotationDispatched(quotationID string, at time.Time) error
	// NextReference reserva el siguiente número QT<año>-<n>.
	NextReference(year int) (string, error)
	CountByStatus() (map[string]int, error)
	HasRFQsForSupplier(supplierID string) (bool, error)
}

// DocumentRepository guarda y recupera artefactos generados (PDF) por RFQ.
type DocumentRepository interface {
	Save(doc *entity.StoredDocument) error
	Get(rfqID, kind string) (*entity.StoredDocument, error)
}
