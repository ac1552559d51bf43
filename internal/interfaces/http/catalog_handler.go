package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/cotiza-pro/internal/application/catalog"
	"github.com/tu-usuario/cotiza-pro/internal/application/dto"
)

// CatalogHandler maneja la administración de proveedores y marcas (protegido).
type CatalogHandler struct {
	uc *catalog.UseCase
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(uc *catalog.UseCase) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

// ── Proveedores ───────────────────────────────────────────────────────────────

// CreateSupplier godoc
// @Summary      Crear proveedor
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSupplierRequest  true  "Datos del proveedor"
// @Success      201   {object}  dto.SupplierResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/suppliers [post]
func (h *CatalogHandler) CreateSupplier(c *fiber.Ctx) error {
	var in dto.CreateSupplierRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.CreateSupplier(in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListSuppliers godoc
// @Summary      Listar proveedores activos
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {array}  dto.SupplierResponse
// @Router       /api/suppliers [get]
func (h *CatalogHandler) ListSuppliers(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	out, err := h.uc.ListSuppliers(limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetSupplier godoc
// @Summary      Obtener proveedor por ID
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del proveedor"
// @Success      200  {object}  dto.SupplierResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/suppliers/{id} [get]
func (h *CatalogHandler) GetSupplier(c *fiber.Ctx) error {
	out, err := h.uc.GetSupplier(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// UpdateSupplier godoc
// @Summary      Actualizar proveedor
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del proveedor"
// @Param        body  body  dto.UpdateSupplierRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.SupplierResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/suppliers/{id} [put]
func (h *CatalogHandler) UpdateSupplier(c *fiber.Ctx) error {
	var in dto.UpdateSupplierRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.UpdateSupplier(c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// DeleteSupplier godoc
// @Summary      Borrar proveedor (lógico; bloqueado si tiene RFQs)
// @Tags         catalog
// @Security     Bearer
// @Param        id   path  string  true  "ID del proveedor"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/suppliers/{id} [delete]
func (h *CatalogHandler) DeleteSupplier(c *fiber.Ctx) error {
	if err := h.uc.DeleteSupplier(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AssignBrand godoc
// @Summary      Asociar marca a proveedor
// @Tags         catalog
// @Security     Bearer
// @Param        id       path  string  true  "ID del proveedor"
// @Param        brandId  path  string  true  "ID de la marca"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/suppliers/{id}/brands/{brandId} [post]
func (h *CatalogHandler) AssignBrand(c *fiber.Ctx) error {
	if err := h.uc.AssignBrand(c.Params("id"), c.Params("brandId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnassignBrand godoc
// @Summary      Desasociar marca de proveedor
// @Tags         catalog
// @Security     Bearer
// @Param        id       path  string  true  "ID del proveedor"
// @Param        brandId  path  string  true  "ID de la marca"
// @Success      204
// @Router       /api/suppliers/{id}/brands/{brandId} [delete]
func (h *CatalogHandler) UnassignBrand(c *fiber.Ctx) error {
	if err := h.uc.UnassignBrand(c.Params("id"), c.Params("brandId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ── Marcas ────────────────────────────────────────────────────────────────────

// CreateBrand godoc
// @Summary      Crear marca con su margen por defecto
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateBrandRequest  true  "Datos de la marca"
// @Success      201   {object}  dto.BrandResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/brands [post]
func (h *CatalogHandler) CreateBrand(c *fiber.Ctx) error {
	var in dto.CreateBrandRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.CreateBrand(in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListBrands godoc
// @Summary      Listar marcas
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {array}  dto.BrandResponse
// @Router       /api/brands [get]
func (h *CatalogHandler) ListBrands(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	out, err := h.uc.ListBrands(limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// SetBrandMargin godoc
// @Summary      Ajustar el margen por defecto de una marca
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la marca"
// @Param        body  body  dto.SetBrandMarginRequest  true  "Margen en [0, 1)"
// @Success      200   {object}  dto.BrandResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/brands/{id}/margin [put]
func (h *CatalogHandler) SetBrandMargin(c *fiber.Ctx) error {
	var in dto.SetBrandMarginRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.SetBrandMargin(c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// pageParams lee limit/offset con los topes del listado.
func pageParams(c *fiber.Ctx) (int, int) {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
