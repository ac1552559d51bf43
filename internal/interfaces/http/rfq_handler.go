package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/cotiza-pro/internal/application/dto"
	"github.com/tu-usuario/cotiza-pro/internal/application/quotation"
	"github.com/tu-usuario/cotiza-pro/internal/domain/repository"
)

// RFQHandler maneja las peticiones HTTP del ciclo de vida de las RFQ (protegido).
type RFQHandler struct {
	uc *quotation.Lifecycle
}

// NewRFQHandler construye el handler.
func NewRFQHandler(uc *quotation.Lifecycle) *RFQHandler {
	return &RFQHandler{uc: uc}
}

// Create godoc
// @Summary      Crear RFQ en estado DRAFT
// @Tags         rfqs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateRFQRequest  true  "Datos de la RFQ"
// @Success      201   {object}  dto.RFQResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/rfqs [post]
func (h *RFQHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateRFQRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Create(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar RFQs
// @Tags         rfqs
// @Security     Bearer
// @Produce      json
// @Param        reference    query  string  false  "Filtro por referencia (parcial)"
// @Param        status       query  string  false  "Filtro por estado"
// @Param        supplier_id  query  string  false  "Filtro por proveedor"
// @Param        limit        query  int     false  "Límite"   default(10)
// @Param        offset       query  int     false  "Offset"   default(0)
// @Success      200  {array}  dto.RFQSummaryResponse
// @Router       /api/rfqs [get]
func (h *RFQHandler) List(c *fiber.Ctx) error {
	filter := repository.RFQFilter{
		Reference:  c.Query("reference"),
		Status:     c.Query("status"),
		SupplierID: c.Query("supplier_id"),
		Limit:      c.QueryInt("limit", 10),
		Offset:     c.QueryInt("offset", 0),
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	items, total, err := h.uc.List(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"items": items,
		"page":  dto.PageResponse{Limit: filter.Limit, Offset: filter.Offset, Total: total},
	})
}

// Stats godoc
// @Summary      Conteo de RFQs por estado
// @Tags         rfqs
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]int
// @Router       /api/rfqs/stats [get]
func (h *RFQHandler) Stats(c *fiber.Ctx) error {
	out, err := h.uc.Stats(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener RFQ por ID
// @Tags         rfqs
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la RFQ"
// @Success      200  {object}  dto.RFQResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/rfqs/{id} [get]
func (h *RFQHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// SendToSupplier godoc
// @Summary      Enviar pedido de cotización al proveedor (DRAFT → AWAITING_SUPPLIER)
// @Tags         rfqs
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la RFQ"
// @Success      200  {object}  dto.RFQResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/rfqs/{id}/send-to-supplier [post]
func (h *RFQHandler) SendToSupplier(c *fiber.Ctx) error {
	out, err := h.uc.SendToSupplier(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// RecordResponses godoc
// @Summary      Registrar respuesta del proveedor (AWAITING_SUPPLIER → RESPONDED)
// @Tags         rfqs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la RFQ"
// @Param        body  body  dto.RecordResponsesRequest  true  "Una respuesta por item"
// @Success      200   {object}  dto.RFQResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/rfqs/{id}/responses [post]
func (h *RFQHandler) RecordResponses(c *fiber.Ctx) error {
	var in dto.RecordResponsesRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.RecordSupplierResponse(c.Context(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Price godoc
// @Summary      Valorizar la RFQ (RESPONDED → PRICED)
// @Tags         rfqs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la RFQ"
// @Param        body  body  dto.PriceRequest  false  "Override de margen opcional"
// @Success      200   {object}  dto.QuotationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/rfqs/{id}/price [post]
func (h *RFQHandler) Price(c *fiber.Ctx) error {
	var in dto.PriceRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	out, err := h.uc.Price(c.Context(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// SendToClient godoc
// @Summary      Despachar la oferta al cliente (PRICED → SENT_TO_CLIENT)
// @Tags         rfqs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la RFQ"
// @Param        body  body  dto.SendToClientRequest  true  "Destinatario"
// @Success      200   {object}  dto.RFQResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/rfqs/{id}/send-to-client [post]
func (h *RFQHandler) SendToClient(c *fiber.Ctx) error {
	var in dto.SendToClientRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.SendToClient(c.Context(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Archive godoc
// @Summary      Archivar la RFQ (SENT_TO_CLIENT → ARCHIVED)
// @Tags         rfqs
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la RFQ"
// @Success      200  {object}  dto.RFQResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rfqs/{id}/archive [post]
func (h *RFQHandler) Archive(c *fiber.Ctx) error {
	out, err := h.uc.Archive(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar la RFQ (cualquier estado no terminal → CANCELLED)
// @Tags         rfqs
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la RFQ"
// @Success      200  {object}  dto.RFQResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rfqs/{id}/cancel [post]
func (h *RFQHandler) Cancel(c *fiber.Ctx) error {
	out, err := h.uc.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetDocument godoc
// @Summary      Descargar el documento generado (pedido u oferta)
// @Tags         rfqs
// @Security     Bearer
// @Produce      application/pdf
// @Param        id    path  string  true  "ID de la RFQ"
// @Param        kind  path  string  true  "request | client"
// @Success      200   {file}    binary
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/rfqs/{id}/documents/{kind} [get]
func (h *RFQHandler) GetDocument(c *fiber.Ctx) error {
	doc, err := h.uc.GetDocument(c.Context(), c.Params("id"), c.Params("kind"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+doc.Filename+`"`)
	return c.Send(doc.Data)
}
