package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
	"github.com/tu-usuario/cotiza-pro/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo guarda los artefactos generados (PDF) junto a su RFQ. Los
// documentos se conservan tal cual fueron despachados: Save siempre inserta
// y Get devuelve el más reciente por tipo.
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Save persiste el artefacto.
func (r *DocumentRepo) Save(doc *entity.StoredDocument) error {
	_, err := r.q.Exec(context.Background(), `
		INSERT INTO rfq_documents (id, rfq_id, kind, filename, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.RFQID, doc.Kind, doc.Filename, doc.Data, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Get devuelve el documento más reciente del tipo pedido, o nil.
func (r *DocumentRepo) Get(rfqID, kind string) (*entity.StoredDocument, error) {
	var doc entity.StoredDocument
	err := r.q.QueryRow(context.Background(), `
		SELECT id, rfq_id, kind, filename, data, created_at
		FROM rfq_documents WHERE rfq_id = $1 AND kind = $2
		ORDER BY created_at DESC LIMIT 1`, rfqID, kind).Scan(
		&doc.ID, &doc.RFQID, &doc.Kind, &doc.Filename, &doc.Data, &doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}
