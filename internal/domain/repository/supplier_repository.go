package repository

import "github.com/tu-usuario/cotiza-pro/internal/domain/entity"

// SupplierRepository define el puerto de persistencia para Supplier y sus marcas.
type SupplierRepository interface {
	Create(supplier *entity.Supplier) error
	GetByID(id string) (*entity.Supplier, error)
	List(limit, offset int) ([]*entity.Supplier, error)
	Update(supplier *entity.Supplier) error
	// SoftDelete marca el proveedor como borrado; el caller verifica antes que
	// ninguna RFQ lo referencie.
	SoftDelete(id string) error
	AddBrand(supplierID, brandID string) error
	RemoveBrand(supplierID, brandID string) error
}

// BrandRepository define el puerto de persistencia para Brand.
type BrandRepository interface {
	Create(brand *entity.Brand) error
	GetByID(id string) (*entity.Brand, error)
	List(limit, offset int) ([]*entity.Brand, error)
	Update(brand *entity.Brand) error
}
