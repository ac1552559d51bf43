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

var _ repository.SupplierRepository = (*SupplierRepo)(nil)

// SupplierRepo implementación de SupplierRepository (usable con pool o tx).
type SupplierRepo struct {
	q Querier
}

// NewSupplierRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSupplierRepository(q Querier) *SupplierRepo {
	return &SupplierRepo{q: q}
}

// Create persiste un nuevo proveedor.
func (r *SupplierRepo) Create(s *entity.Supplier) error {
	query := `
		INSERT INTO suppliers (id, name, email, phone, address, tax_id,
			margin_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(context.Background(), query,
		s.ID, s.Name, s.Email, s.Phone, s.Address, s.TaxID,
		s.MarginDefault, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidation("name", "ya existe un proveedor con ese nombre")
		}
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

// GetByID obtiene un proveedor con sus marcas. Incluye borrados lógicos: las
// RFQs históricas siguen necesitando resolverlos.
func (r *SupplierRepo) GetByID(id string) (*entity.Supplier, error) {
	var s entity.Supplier
	err := r.q.QueryRow(context.Background(), `
		SELECT id, name, email, phone, address, tax_id, margin_default,
			deleted_at, created_at, updated_at
		FROM suppliers WHERE id = $1`, id).Scan(
		&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address, &s.TaxID,
		&s.MarginDefault, &s.DeletedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	if s.Brands, err = r.brandsFor(id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SupplierRepo) brandsFor(supplierID string) ([]entity.Brand, error) {
	rows, err := r.q.Query(context.Background(), `
		SELECT b.id, b.name, b.margin_default, b.created_at, b.updated_at
		FROM brands b
		JOIN supplier_brands sb ON sb.brand_id = b.id
		WHERE sb.supplier_id = $1 ORDER BY b.name`, supplierID)
	if err != nil {
		return nil, fmt.Errorf("list supplier brands: %w", err)
	}
	defer rows.Close()
	var brands []entity.Brand
	for rows.Next() {
		var b entity.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.MarginDefault, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

// List lista proveedores activos con paginación.
func (r *SupplierRepo) List(limit, offset int) ([]*entity.Supplier, error) {
	rows, err := r.q.Query(context.Background(), `
		SELECT id, name, email, phone, address, tax_id, margin_default,
			deleted_at, created_at, updated_at
		FROM suppliers WHERE deleted_at IS NULL
		ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()
	var list []*entity.Supplier
	for rows.Next() {
		var s entity.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address, &s.TaxID,
			&s.MarginDefault, &s.DeletedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		list = append(list, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, s := range list {
		if s.Brands, err = r.brandsFor(s.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Update actualiza los datos del proveedor.
func (r *SupplierRepo) Update(s *entity.Supplier) error {
	query := `
		UPDATE suppliers SET name = $2, email = $3, phone = $4, address = $5,
			tax_id = $6, margin_default = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.q.Exec(context.Background(), query,
		s.ID, s.Name, s.Email, s.Phone, s.Address, s.TaxID, s.MarginDefault, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidation("name", "ya existe un proveedor con ese nombre")
		}
		return fmt.Errorf("update supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SoftDelete marca el proveedor como borrado sin eliminar la fila.
func (r *SupplierRepo) SoftDelete(id string) error {
	tag, err := r.q.Exec(context.Background(), `
		UPDATE suppliers SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`, id, time.Now())
	if err != nil {
		return fmt.Errorf("soft delete supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddBrand asocia una marca al proveedor (idempotente).
func (r *SupplierRepo) AddBrand(supplierID, brandID string) error {
	_, err := r.q.Exec(context.Background(), `
		INSERT INTO supplier_brands (supplier_id, brand_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, supplierID, brandID)
	if err != nil {
		return fmt.Errorf("add supplier brand: %w", err)
	}
	return nil
}

// RemoveBrand desasocia una marca del proveedor.
func (r *SupplierRepo) RemoveBrand(supplierID, brandID string) error {
	_, err := r.q.Exec(context.Background(), `
		DELETE FROM supplier_brands WHERE supplier_id = $1 AND brand_id = $2`,
		supplierID, brandID)
	if err != nil {
		return fmt.Errorf("remove supplier brand: %w", err)
	}
	return nil
}
