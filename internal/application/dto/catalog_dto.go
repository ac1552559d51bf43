package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
)

// CreateSupplierRequest entrada para alta de proveedor.
type CreateSupplierRequest struct {
	Name          string           `json:"name" validate:"required"`
	Email         string           `json:"email"`
	Phone         string           `json:"phone"`
	Address       string           `json:"address"`
	TaxID         string           `json:"tax_id"`
	MarginDefault *decimal.Decimal `json:"margin_default"`
}

// UpdateSupplierRequest entrada para edición parcial de proveedor.
type UpdateSupplierRequest struct {
	Name          *string          `json:"name"`
	Email         *string          `json:"email"`
	Phone         *string          `json:"phone"`
	Address       *string          `json:"address"`
	TaxID         *string          `json:"tax_id"`
	MarginDefault *decimal.Decimal `json:"margin_default"`
}

// CreateBrandRequest entrada para alta de marca con su margen por defecto.
type CreateBrandRequest struct {
	Name          string          `json:"name" validate:"required"`
	MarginDefault decimal.Decimal `json:"margin_default"`
}

// SetBrandMarginRequest entrada para ajustar el margen de una marca.
type SetBrandMarginRequest struct {
	MarginDefault decimal.Decimal `json:"margin_default"`
}

// BrandResponse salida de una marca.
type BrandResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	MarginDefault decimal.Decimal `json:"margin_default"`
}

// SupplierResponse salida de un proveedor con sus marcas.
type SupplierResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Email         string           `json:"email,omitempty"`
	Phone         string           `json:"phone,omitempty"`
	Address       string           `json:"address,omitempty"`
	TaxID         string           `json:"tax_id,omitempty"`
	MarginDefault *decimal.Decimal `json:"margin_default,omitempty"`
	Brands        []BrandResponse  `json:"brands,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ToSupplierResponse mapea la entidad a su DTO de salida.
func ToSupplierResponse(s *entity.Supplier) *SupplierResponse {
	if s == nil {
		return nil
	}
	out := &SupplierResponse{
		ID:            s.ID,
		Name:          s.Name,
		Email:         s.Email,
		Phone:         s.Phone,
		Address:       s.Address,
		TaxID:         s.TaxID,
		MarginDefault: s.MarginDefault,
		CreatedAt:     s.CreatedAt,
	}
	for _, b := range s.Brands {
		out.Brands = append(out.Brands, BrandResponse{ID: b.ID, Name: b.Name, MarginDefault: b.MarginDefault})
	}
	return out
}

// ToBrandResponse mapea la entidad a su DTO de salida.
func ToBrandResponse(b *entity.Brand) *BrandResponse {
	if b == nil {
		return nil
	}
	return &BrandResponse{ID: b.ID, Name: b.Name, MarginDefault: b.MarginDefault}
}
