package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
)

// CreateRFQItem línea de entrada para crear una RFQ.
type CreateRFQItem struct {
	ArticleCode     string           `json:"article_code" validate:"required"`
	Description     string           `json:"description"`
	Quantity        int64            `json:"quantity" validate:"required,gt=0"`
	Unit            string           `json:"unit"`
	TargetUnitPrice *decimal.Decimal `json:"target_unit_price"`
}

// CreateRFQRequest entrada para crear una RFQ en estado DRAFT.
type CreateRFQRequest struct {
	RequesterName  string          `json:"requester_name" validate:"required"`
	RequesterEmail string          `json:"requester_email"`
	SupplierID     string          `json:"supplier_id" validate:"required"`
	BrandID        string          `json:"brand_id" validate:"required"`
	Notes          string          `json:"notes"`
	Items          []CreateRFQItem `json:"items" validate:"required,min=1"`
}

// SupplierResponseItem respuesta del proveedor para un item.
type SupplierResponseItem struct {
	RFQItemID    string          `json:"rfq_item_id" validate:"required"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	LeadTimeDays int             `json:"lead_time_days"`
	Notes        string          `json:"notes"`
}

// RecordResponsesRequest entrada para registrar la respuesta del proveedor.
type RecordResponsesRequest struct {
	Responses []SupplierResponseItem `json:"responses" validate:"required,min=1"`
}

// PriceRequest entrada para valorizar; el override de margen es opcional.
type PriceRequest struct {
	MarginOverride *decimal.Decimal `json:"margin_override"`
}

// SendToClientRequest entrada para despachar la oferta al cliente.
type SendToClientRequest struct {
	Recipient string `json:"recipient" validate:"required,email"`
}

// RFQItemResponse línea de salida.
type RFQItemResponse struct {
	ID              string           `json:"id"`
	Position        int              `json:"position"`
	ArticleCode     string           `json:"article_code"`
	Description     string           `json:"description"`
	Quantity        int64            `json:"quantity"`
	Unit            string           `json:"unit"`
	TargetUnitPrice *decimal.Decimal `json:"target_unit_price,omitempty"`
}

// SupplierResponseOut respuesta registrada del proveedor.
type SupplierResponseOut struct {
	RFQItemID    string          `json:"rfq_item_id"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	LeadTimeDays int             `json:"lead_time_days"`
	Notes        string          `json:"notes,omitempty"`
	RespondedAt  time.Time       `json:"responded_at"`
}

// QuotationItemResponse línea valorizada.
type QuotationItemResponse struct {
	RFQItemID     string          `json:"rfq_item_id"`
	ArticleCode   string          `json:"article_code"`
	Quantity      int64           `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Margin        decimal.Decimal `json:"margin"`
	UnitSellPrice decimal.Decimal `json:"unit_sell_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// QuotationResponse revisión de cotización.
type QuotationResponse struct {
	ID           string                  `json:"id"`
	Revision     int                     `json:"revision"`
	Currency     string                  `json:"currency"`
	Total        decimal.Decimal         `json:"total"`
	GeneratedAt  time.Time               `json:"generated_at"`
	DispatchedAt *time.Time              `json:"dispatched_at,omitempty"`
	Items        []QuotationItemResponse `json:"items"`
}

// RFQResponse salida completa de una RFQ.
type RFQResponse struct {
	ID             string                `json:"id"`
	Reference      string                `json:"reference"`
	Status         string                `json:"status"`
	RequesterName  string                `json:"requester_name"`
	RequesterEmail string                `json:"requester_email,omitempty"`
	SupplierID     string                `json:"supplier_id"`
	BrandID        string                `json:"brand_id"`
	Notes          string                `json:"notes,omitempty"`
	Items          []RFQItemResponse     `json:"items"`
	Responses      []SupplierResponseOut `json:"responses,omitempty"`
	Quotations     []QuotationResponse   `json:"quotations,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// RFQSummaryResponse fila de listado.
type RFQSummaryResponse struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	Status       string    `json:"status"`
	SupplierName string    `json:"supplier_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToRFQResponse mapea la entidad a su DTO de salida.
func ToRFQResponse(r *entity.RFQ) *RFQResponse {
	if r == nil {
		return nil
	}
	out := &RFQResponse{
		ID:             r.ID,
		Reference:      r.Reference,
		Status:         r.Status,
		RequesterName:  r.RequesterName,
		RequesterEmail: r.RequesterEmail,
		SupplierID:     r.SupplierID,
		BrandID:        r.BrandID,
		Notes:          r.Notes,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	for _, it := range r.Items {
		out.Items = append(out.Items, RFQItemResponse{
			ID:              it.ID,
			Position:        it.Position,
			ArticleCode:     it.ArticleCode,
			Description:     it.Description,
			Quantity:        it.Quantity,
			Unit:            it.Unit,
			TargetUnitPrice: it.TargetUnitPrice,
		})
	}
	for _, resp := range r.Responses {
		out.Responses = append(out.Responses, SupplierResponseOut{
			RFQItemID:    resp.RFQItemID,
			UnitCost:     resp.UnitCost,
			LeadTimeDays: resp.LeadTimeDays,
			Notes:        resp.Notes,
			RespondedAt:  resp.RespondedAt,
		})
	}
	for i := range r.Quotations {
		out.Quotations = append(out.Quotations, *ToQuotationResponse(&r.Quotations[i]))
	}
	return out
}

// ToQuotationResponse mapea una revisión de cotización a su DTO.
func ToQuotationResponse(q *entity.Quotation) *QuotationResponse {
	if q == nil {
		return nil
	}
	out := &QuotationResponse{
		ID:           q.ID,
		Revision:     q.Revision,
		Currency:     q.Currency,
		Total:        q.Total,
		GeneratedAt:  q.GeneratedAt,
		DispatchedAt: q.DispatchedAt,
	}
	for _, it := range q.Items {
		out.Items = append(out.Items, QuotationItemResponse{
			RFQItemID:     it.RFQItemID,
			ArticleCode:   it.ArticleCode,
			Quantity:      it.Quantity,
			UnitCost:      it.UnitCost,
			Margin:        it.Margin,
			UnitSellPrice: it.UnitSellPrice,
			LineTotal:     it.LineTotal,
		})
	}
	return out
}
