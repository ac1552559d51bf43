// Package catalog administra proveedores, marcas y sus márgenes por defecto.
package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/cotiza-pro/internal/application/dto"
	"github.com/tu-usuario/cotiza-pro/internal/domain"
	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
	"github.com/tu-usuario/cotiza-pro/internal/domain/repository"
)

var one = decimal.NewFromInt(1)

// UseCase casos de uso de catálogo (proveedores y marcas).
type UseCase struct {
	suppliers repository.SupplierRepository
	brands    repository.BrandRepository
	rfqs      repository.RFQRepository
}

// NewUseCase construye el caso de uso.
func NewUseCase(suppliers repository.SupplierRepository, brands repository.BrandRepository, rfqs repository.RFQRepository) *UseCase {
	return &UseCase{suppliers: suppliers, brands: brands, rfqs: rfqs}
}

// validMargin verifica que un margen sea fracción en [0, 1).
func validMargin(m decimal.Decimal) error {
	if m.IsNegative() {
		return domain.NewValidation("margin_default", "el margen no puede ser negativo")
	}
	if m.GreaterThanOrEqual(one) {
		return domain.NewValidation("margin_default", "el margen debe ser una fracción menor que 1")
	}
	return nil
}

// CreateSupplier alta de proveedor.
func (uc *UseCase) CreateSupplier(in dto.CreateSupplierRequest) (*dto.SupplierResponse, error) {
	if in.Name == "" {
		return nil, domain.NewValidation("name", "nombre obligatorio")
	}
	if in.MarginDefault != nil {
		if err := validMargin(*in.MarginDefault); err != nil {
			return nil, err
		}
	}
	now := time.Now()
	s := &entity.Supplier{
		ID:            uuid.New().String(),
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		TaxID:         in.TaxID,
		MarginDefault: in.MarginDefault,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.suppliers.Create(s); err != nil {
		return nil, err
	}
	return dto.ToSupplierResponse(s), nil
}

// GetSupplier devuelve un proveedor con sus marcas.
func (uc *UseCase) GetSupplier(id string) (*dto.SupplierResponse, error) {
	s, err := uc.suppliers.GetByID(id)
	if err != nil {
		return nil, err
	}
	if s == nil || s.DeletedAt != nil {
		return nil, domain.ErrNotFound
	}
	return dto.ToSupplierResponse(s), nil
}

// ListSuppliers listado paginado.
func (uc *UseCase) ListSuppliers(limit, offset int) ([]dto.SupplierResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := uc.suppliers.List(limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SupplierResponse, 0, len(list))
	for _, s := range list {
		out = append(out, *dto.ToSupplierResponse(s))
	}
	return out, nil
}

// UpdateSupplier edición parcial.
func (uc *UseCase) UpdateSupplier(id string, in dto.UpdateSupplierRequest) (*dto.SupplierResponse, error) {
	s, err := uc.suppliers.GetByID(id)
	if err != nil {
		return nil, err
	}
	if s == nil || s.DeletedAt != nil {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, domain.NewValidation("name", "nombre obligatorio")
		}
		s.Name = *in.Name
	}
	if in.Email != nil {
		s.Email = *in.Email
	}
	if in.Phone != nil {
		s.Phone = *in.Phone
	}
	if in.Address != nil {
		s.Address = *in.Address
	}
	if in.TaxID != nil {
		s.TaxID = *in.TaxID
	}
	if in.MarginDefault != nil {
		if err := validMargin(*in.MarginDefault); err != nil {
			return nil, err
		}
		s.MarginDefault = in.MarginDefault
	}
	s.UpdatedAt = time.Now()
	if err := uc.suppliers.Update(s); err != nil {
		return nil, err
	}
	return dto.ToSupplierResponse(s), nil
}

// DeleteSupplier borrado lógico. Mientras alguna RFQ referencie al proveedor
// la eliminación se rechaza (invariante de integridad referencial).
func (uc *UseCase) DeleteSupplier(id string) error {
	s, err := uc.suppliers.GetByID(id)
	if err != nil {
		return err
	}
	if s == nil || s.DeletedAt != nil {
		return domain.ErrNotFound
	}
	inUse, err := uc.rfqs.HasRFQsForSupplier(id)
	if err != nil {
		return err
	}
	if inUse {
		return domain.ErrSupplierInUse
	}
	return uc.suppliers.SoftDelete(id)
}

// CreateBrand alta de marca; el margen por defecto se valida en [0, 1).
func (uc *UseCase) CreateBrand(in dto.CreateBrandRequest) (*dto.BrandResponse, error) {
	if in.Name == "" {
		return nil, domain.NewValidation("name", "nombre obligatorio")
	}
	if err := validMargin(in.MarginDefault); err != nil {
		return nil, err
	}
	now := time.Now()
	b := &entity.Brand{
		ID:            uuid.New().String(),
		Name:          in.Name,
		MarginDefault: in.MarginDefault,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.brands.Create(b); err != nil {
		return nil, err
	}
	return dto.ToBrandResponse(b), nil
}

// ListBrands listado paginado.
func (uc *UseCase) ListBrands(limit, offset int) ([]dto.BrandResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := uc.brands.List(limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.BrandResponse, 0, len(list))
	for _, b := range list {
		out = append(out, *dto.ToBrandResponse(b))
	}
	return out, nil
}

// SetBrandMargin ajusta el margen por defecto de una marca. Afecta solo a
// valorizaciones posteriores; las cotizaciones ya generadas no cambian.
func (uc *UseCase) SetBrandMargin(id string, in dto.SetBrandMarginRequest) (*dto.BrandResponse, error) {
	if err := validMargin(in.MarginDefault); err != nil {
		return nil, err
	}
	b, err := uc.brands.GetByID(id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	b.MarginDefault = in.MarginDefault
	b.UpdatedAt = time.Now()
	if err := uc.brands.Update(b); err != nil {
		return nil, err
	}
	return dto.ToBrandResponse(b), nil
}

// AssignBrand asocia una marca al proveedor.
func (uc *UseCase) AssignBrand(supplierID, brandID string) error {
	s, err := uc.suppliers.GetByID(supplierID)
	if err != nil {
		return err
	}
	if s == nil || s.DeletedAt != nil {
		return domain.ErrNotFound
	}
	b, err := uc.brands.GetByID(brandID)
	if err != nil {
		return err
	}
	if b == nil {
		return domain.ErrNotFound
	}
	return uc.suppliers.AddBrand(supplierID, brandID)
}

// UnassignBrand quita la asociación marca-proveedor.
func (uc *UseCase) UnassignBrand(supplierID, brandID string) error {
	return uc.suppliers.RemoveBrand(supplierID, brandID)
}
