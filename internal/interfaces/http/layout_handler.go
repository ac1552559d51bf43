package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/cotiza-pro/internal/application/dto"
	"github.com/tu-usuario/cotiza-pro/internal/infrastructure/mail"
	"github.com/tu-usuario/cotiza-pro/internal/infrastructure/render"
)

// AdminHandler expone la configuración administrable en caliente: layouts de
// documentos y plantillas de email. Los cambios afectan solo a documentos y
// envíos posteriores; nada ya generado se regenera.
type AdminHandler struct {
	layouts   *render.Store
	templates *mail.TemplateStore
}

// NewAdminHandler construye el handler de configuración.
func NewAdminHandler(layouts *render.Store, templates *mail.TemplateStore) *AdminHandler {
	return &AdminHandler{layouts: layouts, templates: templates}
}

// GetLayout godoc
// @Summary      Obtener el layout de un tipo de documento
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        kind  path  string  true  "request | client"
// @Success      200   {object}  render.Layout
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/admin/layouts/{kind} [get]
func (h *AdminHandler) GetLayout(c *fiber.Ctx) error {
	layout, err := h.layouts.Get(c.Params("kind"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(layout)
}

// UpdateLayout godoc
// @Summary      Reemplazar el layout de un tipo de documento
// @Tags         admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        kind  path  string         true  "request | client"
// @Param        body  body  render.Layout  true  "Layout completo"
// @Success      200   {object}  render.Layout
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/admin/layouts/{kind} [put]
func (h *AdminHandler) UpdateLayout(c *fiber.Ctx) error {
	var in render.Layout
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	kind := c.Params("kind")
	if err := h.layouts.Update(kind, in); err != nil {
		return respondError(c, err)
	}
	layout, err := h.layouts.Get(kind)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(layout)
}

// ReloadLayouts godoc
// @Summary      Recargar los layouts desde el archivo en disco
// @Description  Releen el archivo de layouts editado a mano. Solo afecta a renders posteriores.
// @Tags         admin
// @Security     Bearer
// @Success      204
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/admin/layouts/reload [post]
func (h *AdminHandler) ReloadLayouts(c *fiber.Ctx) error {
	if err := h.layouts.Reload(); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetEmailTemplate godoc
// @Summary      Obtener la plantilla de email de un tipo de mensaje
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        kind  path  string  true  "request | client"
// @Success      200   {object}  mail.EmailTemplate
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/admin/email-templates/{kind} [get]
func (h *AdminHandler) GetEmailTemplate(c *fiber.Ctx) error {
	tmpl, err := h.templates.Get(c.Params("kind"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tmpl)
}

// UpdateEmailTemplate godoc
// @Summary      Reemplazar la plantilla de email de un tipo de mensaje
// @Tags         admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        kind  path  string              true  "request | client"
// @Param        body  body  mail.EmailTemplate  true  "Asunto y cuerpo"
// @Success      200   {object}  mail.EmailTemplate
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/admin/email-templates/{kind} [put]
func (h *AdminHandler) UpdateEmailTemplate(c *fiber.Ctx) error {
	var in mail.EmailTemplate
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	kind := c.Params("kind")
	if err := h.templates.Set(kind, in); err != nil {
		return respondError(c, err)
	}
	tmpl, err := h.templates.Get(kind)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tmpl)
}

// ResetEmailTemplate godoc
// @Summary      Restaurar la plantilla de fábrica de un tipo de mensaje
// @Tags         admin
// @Security     Bearer
// @Param        kind  path  string  true  "request | client"
// @Success      204
// @Router       /api/admin/email-templates/{kind} [delete]
func (h *AdminHandler) ResetEmailTemplate(c *fiber.Ctx) error {
	if err := h.templates.Reset(c.Params("kind")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
