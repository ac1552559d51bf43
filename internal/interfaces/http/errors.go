package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/cotiza-pro/internal/application/dto"
	"github.com/tu-usuario/cotiza-pro/internal/domain"
)

// respondError traduce la taxonomía de errores de dominio a códigos HTTP:
// entrada inválida 400, no encontrado 404, transición ilegal y conflicto de
// escritura 409, configuración y render 500, transporte agotado 502.
func respondError(c *fiber.Ctx, err error) error {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: vErr.Error()})
	}
	var sErr *domain.InvalidStateError
	if errors.As(err, &sErr) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: sErr.Error()})
	}
	var cErr *domain.ConflictError
	if errors.As(err, &cErr) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: cErr.Error()})
	}
	if errors.Is(err, domain.ErrSupplierInUse) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "SUPPLIER_IN_USE", Message: err.Error()})
	}
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	}
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "CONFIGURATION", Message: cfgErr.Error()})
	}
	var rErr *domain.RenderError
	if errors.As(err, &rErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "RENDER", Message: rErr.Error()})
	}
	var tErr *domain.TransportError
	if errors.As(err, &tErr) {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "TRANSPORT", Message: tErr.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
