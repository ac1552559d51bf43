package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/cotiza-pro/internal/domain"
	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
	"github.com/tu-usuario/cotiza-pro/internal/domain/repository"
)

var _ repository.RFQRepository = (*RFQRepo)(nil)

// RFQRepo implementación de RFQRepository (usable con pool o tx).
type RFQRepo struct {
	q Querier
}

// NewRFQRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRFQRepository(q Querier) *RFQRepo {
	return &RFQRepo{q: q}
}

// Create persiste la RFQ con sus items en orden de posición.
func (r *RFQRepo) Create(rfq *entity.RFQ) error {
	query := `
		INSERT INTO rfqs (id, reference, status, requester_name, requester_email,
			supplier_id, brand_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(context.Background(), query,
		rfq.ID, rfq.Reference, rfq.Status, rfq.RequesterName, rfq.RequesterEmail,
		rfq.SupplierID, rfq.BrandID, rfq.Notes, rfq.CreatedAt, rfq.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidation("reference", "número de referencia duplicado")
		}
		return fmt.Errorf("insert rfq: %w", err)
	}
	for _, it := range rfq.Items {
		_, err := r.q.Exec(context.Background(), `
			INSERT INTO rfq_items (id, rfq_id, position, article_code, description,
				quantity, unit, target_unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, it.RFQID, it.Position, it.ArticleCode, it.Description,
			it.Quantity, it.Unit, it.TargetUnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert rfq item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la RFQ completa: items, respuestas y revisiones.
func (r *RFQRepo) GetByID(id string) (*entity.RFQ, error) {
	var rfq entity.RFQ
	err := r.q.QueryRow(context.Background(), `
		SELECT id, reference, status, requester_name, requester_email,
			supplier_id, brand_id, notes, created_at, updated_at
		FROM rfqs WHERE id = $1`, id).Scan(
		&rfq.ID, &rfq.Reference, &rfq.Status, &rfq.RequesterName, &rfq.RequesterEmail,
		&rfq.SupplierID, &rfq.BrandID, &rfq.Notes, &rfq.CreatedAt, &rfq.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rfq: %w", err)
	}
	if rfq.Items, err = r.itemsFor(id); err != nil {
		return nil, err
	}
	if rfq.Responses, err = r.responsesFor(id); err != nil {
		return nil, err
	}
	if rfq.Quotations, err = r.quotationsFor(id); err != nil {
		return nil, err
	}
	return &rfq, nil
}

func (r *RFQRepo) itemsFor(rfqID string) ([]entity.RFQItem, error) {
	rows, err := r.q.Query(context.Background(), `
		SELECT id, rfq_id, position, article_code, description, quantity, unit, target_unit_price
		FROM rfq_items WHERE rfq_id = $1 ORDER BY position`, rfqID)
	if err != nil {
		return nil, fmt.Errorf("list rfq items: %w", err)
	}
	defer rows.Close()
	var items []entity.RFQItem
	for rows.Next() {
		var it entity.RFQItem
		if err := rows.Scan(&it.ID, &it.RFQID, &it.Position, &it.ArticleCode,
			&it.Description, &it.Quantity, &it.Unit, &it.TargetUnitPrice); err != nil {
			return nil, fmt.Errorf("scan rfq item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *RFQRepo) responsesFor(rfqID string) ([]entity.SupplierResponse, error) {
	rows, err := r.q.Query(context.Background(), `
		SELECT sr.id, sr.rfq_id, sr.rfq_item_id, sr.unit_cost, sr.lead_time_days, sr.notes, sr.responded_at
		FROM supplier_responses sr
		JOIN rfq_items i ON i.id = sr.rfq_item_id
		WHERE sr.rfq_id = $1 ORDER BY i.position`, rfqID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()
	var responses []entity.SupplierResponse
	for rows.Next() {
		var sr entity.SupplierResponse
		if err := rows.Scan(&sr.ID, &sr.RFQID, &sr.RFQItemID, &sr.UnitCost,
			&sr.LeadTimeDays, &sr.Notes, &sr.RespondedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, sr)
	}
	return responses, rows.Err()
}

func (r *RFQRepo) quotationsFor(rfqID string) ([]entity.Quotation, error) {
	rows, err := r.q.Query(context.Background(), `
		SELECT id, rfq_id, revision, currency, currency_precision, total, generated_at, dispatched_at
		FROM quotations WHERE rfq_id = $1 ORDER BY revision, generated_at`, rfqID)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	defer rows.Close()
	var quotations []entity.Quotation
	for rows.Next() {
		var q entity.Quotation
		if err := rows.Scan(&q.ID, &q.RFQID, &q.Revision, &q.Currency,
			&q.Precision, &q.Total, &q.GeneratedAt, &q.DispatchedAt); err != nil {
			return nil, fmt.Errorf("scan quotation: %w", err)
		}
		quotations = append(quotations, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range quotations {
		items, err := r.quotationItemsFor(quotations[i].ID)
		if err != nil {
			return nil, err
		}
		quotations[i].Items = items
	}
	return quotations, nil
}

func (r *RFQRepo) quotationItemsFor(quotationID string) ([]entity.QuotationItem, error) {
	rows, err := r.q.Query(context.Background(), `
		SELECT id, quotation_id, rfq_item_id, position, article_code, description,
			quantity, unit_cost, margin, unit_sell_price, line_total
		FROM quotation_items WHERE quotation_id = $1 ORDER BY position`, quotationID)
	if err != nil {
		return nil, fmt.Errorf("list quotation items: %w", err)
	}
	defer rows.Close()
	var items []entity.QuotationItem
	for rows.Next() {
		var it entity.QuotationItem
		if err := rows.Scan(&it.ID, &it.QuotationID, &it.RFQItemID, &it.Position,
			&it.ArticleCode, &it.Description, &it.Quantity, &it.UnitCost,
			&it.Margin, &it.UnitSellPrice, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("scan quotation item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// List devuelve el listado paginado con el total de coincidencias.
func (r *RFQRepo) List(filter repository.RFQFilter) ([]repository.RFQSummary, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	n := 0
	if filter.Reference != "" {
		n++
		where += fmt.Sprintf(" AND r.reference ILIKE $%d", n)
		args = append(args, "%"+filter.Reference+"%")
	}
	if filter.Status != "" {
		n++
		where += fmt.Sprintf(" AND r.status = $%d", n)
		args = append(args, filter.Status)
	}
	if filter.SupplierID != "" {
		n++
		where += fmt.Sprintf(" AND r.supplier_id = $%d", n)
		args = append(args, filter.SupplierID)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM rfqs r" + where
	if err := r.q.QueryRow(context.Background(), countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count rfqs: %w", err)
	}

	query := `
		SELECT r.id, r.reference, r.status, s.name, r.created_at
		FROM rfqs r JOIN suppliers s ON s.id = r.supplier_id` + where +
		fmt.Sprintf(" ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list rfqs: %w", err)
	}
	defer rows.Close()
	var list []repository.RFQSummary
	for rows.Next() {
		var row repository.RFQSummary
		if err := rows.Scan(&row.ID, &row.Reference, &row.Status, &row.SupplierName, &row.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan rfq summary: %w", err)
		}
		list = append(list, row)
	}
	return list, total, rows.Err()
}

// UpdateStatus transiciona id de from a to con chequeo optimista: el UPDATE
// condicionado al estado leído no toca filas si otro escritor llegó antes, y
// en ese caso se distingue inexistencia de conflicto releyendo el estado.
func (r *RFQRepo) UpdateStatus(id, from, to string, at time.Time) error {
	tag, err := r.q.Exec(context.Background(), `
		UPDATE rfqs SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`, id, from, to, at)
	if err != nil {
		return fmt.Errorf("update rfq status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var actual string
	err = r.q.QueryRow(context.Background(),
		`SELECT status FROM rfqs WHERE id = $1`, id).Scan(&actual)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reread rfq status: %w", err)
	}
	return &domain.ConflictError{RFQID: id, Expected: from, Actual: actual}
}

// ReplaceResponses sustituye el conjunto completo de respuestas de la RFQ.
func (r *RFQRepo) ReplaceResponses(rfqID string, responses []entity.SupplierResponse) error {
	if _, err := r.q.Exec(context.Background(),
		`DELETE FROM supplier_responses WHERE rfq_id = $1`, rfqID); err != nil {
		return fmt.Errorf("delete responses: %w", err)
	}
	for _, sr := range responses {
		_, err := r.q.Exec(context.Background(), `
			INSERT INTO supplier_responses (id, rfq_id, rfq_item_id, unit_cost,
				lead_time_days, notes, responded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sr.ID, sr.RFQID, sr.RFQItemID, sr.UnitCost, sr.LeadTimeDays, sr.Notes, sr.RespondedAt,
		)
		if err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
	}
	return nil
}

// SaveQuotation persiste una revisión con sus líneas. Con replacePending
// elimina antes la revisión no despachada del mismo número (re-valorización
// previa al despacho); las despachadas nunca se tocan.
func (r *RFQRepo) SaveQuotation(q *entity.Quotation, replacePending bool) error {
	if replacePending {
		_, err := r.q.Exec(context.Background(), `
			DELETE FROM quotations
			WHERE rfq_id = $1 AND revision = $2 AND dispatched_at IS NULL`,
			q.RFQID, q.Revision)
		if err != nil {
			return fmt.Errorf("delete pending quotation: %w", err)
		}
	}
	_, err := r.q.Exec(context.Background(), `
		INSERT INTO quotations (id, rfq_id, revision, currency, currency_precision,
			total, generated_at, dispatched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID, q.RFQID, q.Revision, q.Currency, q.Precision, q.Total, q.GeneratedAt, q.DispatchedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quotation: %w", err)
	}
	for _, it := range q.Items {
		_, err := r.q.Exec(context.Background(), `
			INSERT INTO quotation_items (id, quotation_id, rfq_item_id, position,
				article_code, description, quantity, unit_cost, margin,
				unit_sell_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			it.ID, it.QuotationID, it.RFQItemID, it.Position, it.ArticleCode,
			it.Description, it.Quantity, it.UnitCost, it.Margin, it.UnitSellPrice, it.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert quotation item: %w", err)
		}
	}
	return nil
}

// MarkQuotationDispatched sella la revisión como enviada; desde entonces es
// inmutable.
func (r *RFQRepo) MarkQuotationDispatched(quotationID string, at time.Time) error {
	tag, err := r.q.Exec(context.Background(), `
		UPDATE quotations SET dispatched_at = $2
		WHERE id = $1 AND dispatched_at IS NULL`, quotationID, at)
	if err != nil {
		return fmt.Errorf("mark quotation dispatched: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// NextReference reserva el siguiente número QT<año>-<secuencia>. El UPSERT
// sobre el contador por año deja la reserva bajo el lock de fila de la
// transacción: dos creadores concurrentes obtienen números distintos.
func (r *RFQRepo) NextReference(year int) (string, error) {
	var seq int
	err := r.q.QueryRow(context.Background(), `
		INSERT INTO rfq_sequences (year, last_value) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = rfq_sequences.last_value + 1
		RETURNING last_value`, year).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next reference: %w", err)
	}
	return fmt.Sprintf("QT%d-%04d", year, seq), nil
}

// CountByStatus agrupa las RFQs por estado.
func (r *RFQRepo) CountByStatus() (map[string]int, error) {
	rows, err := r.q.Query(context.Background(),
		`SELECT status, COUNT(*) FROM rfqs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[status] = count
	}
	return out, rows.Err()
}

// HasRFQsForSupplier indica si alguna RFQ referencia al proveedor.
func (r *RFQRepo) HasRFQsForSupplier(supplierID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM rfqs WHERE supplier_id = $1)`, supplierID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check supplier rfqs: %w", err)
	}
	return exists, nil
}
