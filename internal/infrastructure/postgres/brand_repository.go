package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/cotiza-pro/internal/domain"
	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
	"github.com/tu-usuario/cotiza-pro/internal/domain/repository"
)

var _ repository.BrandRepository = (*BrandRepo)(nil)

// BrandRepo implementación de BrandRepository (usable con pool o tx).
type BrandRepo struct {
	q Querier
}

// NewBrandRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBrandRepository(q Querier) *BrandRepo {
	return &BrandRepo{q: q}
}

// Create persiste una nueva marca.
func (r *BrandRepo) Create(b *entity.Brand) error {
	query := `
		INSERT INTO brands (id, name, margin_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(context.Background(), query,
		b.ID, b.Name, b.MarginDefault, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidation("name", "ya existe una marca con ese nombre")
		}
		return fmt.Errorf("insert brand: %w", err)
	}
	return nil
}

// GetByID obtiene una marca por ID.
func (r *BrandRepo) GetByID(id string) (*entity.Brand, error) {
	var b entity.Brand
	err := r.q.QueryRow(context.Background(), `
		SELECT id, name, margin_default, created_at, updated_at
		FROM brands WHERE id = $1`, id).Scan(
		&b.ID, &b.Name, &b.MarginDefault, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return &b, nil
}

// List lista marcas con paginación.
func (r *BrandRepo) List(limit, offset int) ([]*entity.Brand, error) {
	rows, err := r.q.Query(context.Background(), `
		SELECT id, name, margin_default, created_at, updated_at
		FROM brands ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()
	var list []*entity.Brand
	for rows.Next() {
		var b entity.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.MarginDefault, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}

// Update actualiza una marca. El margen nuevo solo afecta a valorizaciones
// posteriores; las cotizaciones existentes guardan el margen aplicado.
func (r *BrandRepo) Update(b *entity.Brand) error {
	tag, err := r.q.Exec(context.Background(), `
		UPDATE brands SET name = $2, margin_default = $3, updated_at = $4
		WHERE id = $1`, b.ID, b.Name, b.MarginDefault, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidation("name", "ya existe una marca con ese nombre")
		}
		return fmt.Errorf("update brand: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
