// Package quotation implementa la máquina de estados del ciclo de vida de una
// RFQ: creación, envío al proveedor, registro de respuestas, valorización,
// despacho al cliente y archivo. Orquesta el calculador de precios, el motor
// de documentos y el despachador de notificaciones; cada transición se
// confirma de forma atómica contra el almacén con chequeo optimista.
package quotation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/cotiza-pro/internal/application/dto"
	"github.com/tu-usuario/cotiza-pro/internal/application/pricing"
	"github.com/tu-usuario/cotiza-pro/internal/domain"
	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
	"github.com/tu-usuario/cotiza-pro/internal/domain/repository"
)

// Eventos del ciclo de vida (para InvalidStateError).
const (
	eventSendToSupplier = "sendToSupplier"
	eventRecordResponse = "recordSupplierResponse"
	eventPrice          = "price"
	eventSendToClient   = "sendToClient"
	eventArchive        = "archive"
	eventCancel         = "cancel"
)

// Lifecycle orquesta el ciclo de vida de las RFQ.
type Lifecycle struct {
	tx         TxRunner
	rfqs       repository.RFQRepository
	suppliers  repository.SupplierRepository
	brands     repository.BrandRepository
	docs       repository.DocumentRepository
	calc       *pricing.Calculator
	renderer   Renderer
	dispatcher Dispatcher
	templates  Templater
}

// NewLifecycle construye el caso de uso con sus colaboradores.
func NewLifecycle(
	tx TxRunner,
	rfqs repository.RFQRepository,
	suppliers repository.SupplierRepository,
	brands repository.BrandRepository,
	docs repository.DocumentRepository,
	calc *pricing.Calculator,
	renderer Renderer,
	dispatcher Dispatcher,
	templates Templater,
) *Lifecycle {
	return &Lifecycle{
		tx:         tx,
		rfqs:       rfqs,
		suppliers:  suppliers,
		brands:     brands,
		docs:       docs,
		calc:       calc,
		renderer:   renderer,
		dispatcher: dispatcher,
		templates:  templates,
	}
}

// Create valida la entrada y persiste una RFQ en DRAFT con su número de
// referencia anual reservado en la misma transacción.
func (uc *Lifecycle) Create(ctx context.Context, in dto.CreateRFQRequest) (*dto.RFQResponse, error) {
	if len(in.Items) == 0 {
		return nil, domain.NewValidation("items", "la RFQ necesita al menos un item")
	}
	for i, it := range in.Items {
		if it.ArticleCode == "" {
			return nil, domain.NewValidation(fmt.Sprintf("items[%d].article_code", i), "código de artículo vacío")
		}
		if it.Quantity <= 0 {
			return nil, domain.NewValidation(fmt.Sprintf("items[%d].quantity", i), "la cantidad debe ser positiva")
		}
		if it.TargetUnitPrice != nil && it.TargetUnitPrice.IsNegative() {
			return nil, domain.NewValidation(fmt.Sprintf("items[%d].target_unit_price", i), "el precio objetivo no puede ser negativo")
		}
	}
	if in.RequesterName == "" {
		return nil, domain.NewValidation("requester_name", "solicitante obligatorio")
	}

	supplier, err := uc.suppliers.GetByID(in.SupplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil || supplier.DeletedAt != nil {
		return nil, domain.NewValidation("supplier_id", "proveedor inexistente")
	}
	brand, err := uc.brands.GetByID(in.BrandID)
	if err != nil {
		return nil, err
	}
	if brand == nil {
		return nil, domain.NewValidation("brand_id", "marca inexistente")
	}

	now := time.Now()
	rfq := &entity.RFQ{
		ID:             uuid.New().String(),
		Status:         entity.RFQStatusDraft,
		RequesterName:  in.RequesterName,
		RequesterEmail: in.RequesterEmail,
		SupplierID:     in.SupplierID,
		BrandID:        in.BrandID,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for i, it := range in.Items {
		rfq.Items = append(rfq.Items, entity.RFQItem{
			ID:              uuid.New().String(),
			RFQID:           rfq.ID,
			Position:        i + 1,
			ArticleCode:     it.ArticleCode,
			Description:     it.Description,
			Quantity:        it.Quantity,
			Unit:            it.Unit,
			TargetUnitPrice: it.TargetUnitPrice,
		})
	}

	err = uc.tx.Run(ctx, func(rfqRepo repository.RFQRepository, _ repository.DocumentRepository) error {
		ref, err := rfqRepo.NextReference(now.Year())
		if err != nil {
			return err
		}
		rfq.Reference = ref
		return rfqRepo.Create(rfq)
	})
	if err != nil {
		return nil, err
	}
	return dto.ToRFQResponse(rfq), nil
}

// Get devuelve la RFQ completa.
func (uc *Lifecycle) Get(ctx context.Context, id string) (*dto.RFQResponse, error) {
	rfq, err := uc.rfqs.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rfq == nil {
		return nil, domain.ErrNotFound
	}
	return dto.ToRFQResponse(rfq), nil
}

// List devuelve el listado paginado de RFQs.
func (uc *Lifecycle) List(ctx context.Context, filter repository.RFQFilter) ([]dto.RFQSummaryResponse, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 10
	}
	rows, total, err := uc.rfqs.List(filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.RFQSummaryResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.RFQSummaryResponse{
			ID:           r.ID,
			Reference:    r.Reference,
			Status:       r.Status,
			SupplierName: r.SupplierName,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, total, nil
}

// Stats devuelve el conteo de RFQs por estado.
func (uc *Lifecycle) Stats(ctx context.Context) (map[string]int, error) {
	return uc.rfqs.CountByStatus()
}

// SendToSupplier transiciona DRAFT → AWAITING_SUPPLIER: genera el documento
// de pedido, lo despacha al proveedor y solo entonces confirma la transición.
// Un fallo de render o de transporte deja la RFQ en DRAFT.
func (uc *Lifecycle) SendToSupplier(ctx context.Context, id string) (*dto.RFQResponse, error) {
	rfq, err := uc.load(id)
	if err != nil {
		return nil, err
	}
	if rfq.Status != entity.RFQStatusDraft {
		return nil, &domain.InvalidStateError{State: rfq.Status, Event: eventSendToSupplier}
	}
	supplier, err := uc.suppliers.GetByID(rfq.SupplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, domain.NewConfiguration("proveedor %s no encontrado", rfq.SupplierID)
	}

	pdfBytes, err := uc.renderer.Render(entity.DocumentKindRequest, requestSnapshot(rfq, supplier))
	if err != nil {
		return nil, err
	}
	filename := rfq.Reference + "_pedido.pdf"

	if supplier.Email != "" {
		subject, body, err := uc.templates.Build(entity.DocumentKindRequest, map[string]string{
			"reference":      rfq.Reference,
			"supplier_name":  supplier.Name,
			"requester_name": rfq.RequesterName,
		})
		if err != nil {
			return nil, err
		}
		msg := Message{
			To:      supplier.Email,
			Subject: subject,
			Body:    body,
			Attachments: []Attachment{
				{Filename: filename, Data: pdfBytes, MIME: "application/pdf"},
			},
		}
		if err := uc.dispatcher.Dispatch(ctx, msg); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	err = uc.tx.Run(ctx, func(rfqRepo repository.RFQRepository, docRepo repository.DocumentRepository) error {
		if err := rfqRepo.UpdateStatus(id, entity.RFQStatusDraft, entity.RFQStatusAwaitingSupplier, now); err != nil {
			return err
		}
		return docRepo.Save(&entity.StoredDocument{
			ID:        uuid.New().String(),
			RFQID:     id,
			Kind:      entity.DocumentKindRequest,
			Filename:  filename,
			Data:      pdfBytes,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, id)
}

// RecordSupplierResponse transiciona AWAITING_SUPPLIER → RESPONDED. Exige
// exactamente una respuesta por item; valores negativos se rechazan.
func (uc *Lifecycle) RecordSupplierResponse(ctx context.Context, id string, in dto.RecordResponsesRequest) (*dto.RFQResponse, error) {
	rfq, err := uc.load(id)
	if err != nil {
		return nil, err
	}
	if rfq.Status != entity.RFQStatusAwaitingSupplier {
		return nil, &domain.InvalidStateError{State: rfq.Status, Event: eventRecordResponse}
	}

	seen := make(map[string]bool, len(in.Responses))
	now := time.Now()
	responses := make([]entity.SupplierResponse, 0, len(in.Responses))
	for i, r := range in.Responses {
		item := rfq.ItemByID(r.RFQItemID)
		if item == nil {
			return nil, domain.NewValidation(fmt.Sprintf("responses[%d].rfq_item_id", i), "item desconocido")
		}
		if seen[r.RFQItemID] {
			return nil, domain.NewValidation(fmt.Sprintf("responses[%d].rfq_item_id", i), "respuesta duplicada para el item")
		}
		seen[r.RFQItemID] = true
		if r.UnitCost.IsNegative() {
			return nil, domain.NewValidation(fmt.Sprintf("responses[%d].unit_cost", i), "el costo no puede ser negativo")
		}
		if r.LeadTimeDays < 0 {
			return nil, domain.NewValidation(fmt.Sprintf("responses[%d].lead_time_days", i), "el plazo de entrega no puede ser negativo")
		}
		responses = append(responses, entity.SupplierResponse{
			ID:           uuid.New().String(),
			RFQID:        id,
			RFQItemID:    r.RFQItemID,
			UnitCost:     r.UnitCost,
			LeadTimeDays: r.LeadTimeDays,
			Notes:        r.Notes,
			RespondedAt:  now,
		})
	}
	if len(responses) != len(rfq.Items) {
		return nil, domain.NewValidation("responses", "se requiere una respuesta por cada item de la RFQ")
	}

	err = uc.tx.Run(ctx, func(rfqRepo repository.RFQRepository, _ repository.DocumentRepository) error {
		if err := rfqRepo.ReplaceResponses(id, responses); err != nil {
			return err
		}
		return rfqRepo.UpdateStatus(id, entity.RFQStatusAwaitingSupplier, entity.RFQStatusResponded, now)
	})
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, id)
}

// Price transiciona RESPONDED → PRICED invocando el calculador. Es
// idempotente antes del despacho: una nueva llamada reemplaza la revisión
// pendiente en lugar de acumular. Tras un despacho, valorizar de nuevo crea
// la revisión siguiente (historial append-only).
func (uc *Lifecycle) Price(ctx context.Context, id string, in dto.PriceRequest) (*dto.QuotationResponse, error) {
	rfq, err := uc.load(id)
	if err != nil {
		return nil, err
	}
	if rfq.Status != entity.RFQStatusResponded && rfq.Status != entity.RFQStatusPriced {
		return nil, &domain.InvalidStateError{State: rfq.Status, Event: eventPrice}
	}
	if in.MarginOverride != nil && in.MarginOverride.IsNegative() {
		return nil, domain.NewValidation("margin_override", "el margen no puede ser negativo")
	}

	supplier, err := uc.suppliers.GetByID(rfq.SupplierID)
	if err != nil {
		return nil, err
	}
	brand, err := uc.brands.GetByID(rfq.BrandID)
	if err != nil {
		return nil, err
	}
	margin, err := pricing.ResolveMargin(in.MarginOverride, supplier, brand)
	if err != nil {
		return nil, err
	}

	revision := 1
	replacePending := false
	if last := rfq.LatestQuotation(); last != nil {
		if last.Dispatched() {
			revision = last.Revision + 1
		} else {
			revision = last.Revision
			replacePending = true
		}
	}

	q, err := uc.calc.Price(rfq, margin, revision, time.Now())
	if err != nil {
		return nil, err
	}

	previous := rfq.Status
	err = uc.tx.Run(ctx, func(rfqRepo repository.RFQRepository, _ repository.DocumentRepository) error {
		// El chequeo optimista serializa a dos valorizadores concurrentes: el
		// segundo encuentra el estado ya avanzado y recibe ConflictError.
		if err := rfqRepo.UpdateStatus(id, previous, entity.RFQStatusPriced, q.GeneratedAt); err != nil {
			return err
		}
		return rfqRepo.SaveQuotation(q, replacePending)
	})
	if err != nil {
		return nil, err
	}
	return dto.ToQuotationResponse(q), nil
}

// SendToClient transiciona PRICED → SENT_TO_CLIENT: genera el documento de
// oferta, lo despacha al destinatario y solo confirma la transición tras la
// confirmación del envío. Ante un fallo de transporte el estado queda en
// PRICED y el error se propaga para reintento.
func (uc *Lifecycle) SendToClient(ctx context.Context, id string, in dto.SendToClientRequest) (*dto.RFQResponse, error) {
	if in.Recipient == "" {
		return nil, domain.NewValidation("recipient", "destinatario obligatorio")
	}
	rfq, err := uc.load(id)
	if err != nil {
		return nil, err
	}
	if rfq.Status != entity.RFQStatusPriced {
		return nil, &domain.InvalidStateError{State: rfq.Status, Event: eventSendToClient}
	}
	q := rfq.LatestQuotation()
	if q == nil {
		return nil, domain.NewConfiguration("RFQ %s en PRICED sin cotización persistida", id)
	}
	supplier, err := uc.suppliers.GetByID(rfq.SupplierID)
	if err != nil {
		return nil, err
	}

	pdfBytes, err := uc.renderer.Render(entity.DocumentKindClient, clientSnapshot(rfq, supplier, q))
	if err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("%s_oferta_rev%d.pdf", rfq.Reference, q.Revision)

	subject, body, err := uc.templates.Build(entity.DocumentKindClient, map[string]string{
		"reference":      rfq.Reference,
		"client_name":    rfq.RequesterName,
		"requester_name": rfq.RequesterName,
		"total":          q.Total.StringFixed(q.Precision),
		"currency":       q.Currency,
		"revision":       strconv.Itoa(q.Revision),
	})
	if err != nil {
		return nil, err
	}
	msg := Message{
		To:      in.Recipient,
		Subject: subject,
		Body:    body,
		Attachments: []Attachment{
			{Filename: filename, Data: pdfBytes, MIME: "application/pdf"},
		},
	}
	// Envío con efecto primero; la transición solo se confirma con el envío
	// confirmado. Así nunca queda una RFQ en SENT_TO_CLIENT sin email salido.
	if err := uc.dispatcher.Dispatch(ctx, msg); err != nil {
		return nil, err
	}

	now := time.Now()
	err = uc.tx.Run(ctx, func(rfqRepo repository.RFQRepository, docRepo repository.DocumentRepository) error {
		if err := rfqRepo.UpdateStatus(id, entity.RFQStatusPriced, entity.RFQStatusSentToClient, now); err != nil {
			return err
		}
		if err := rfqRepo.MarkQuotationDispatched(q.ID, now); err != nil {
			return err
		}
		return docRepo.Save(&entity.StoredDocument{
			ID:        uuid.New().String(),
			RFQID:     id,
			Kind:      entity.DocumentKindClient,
			Filename:  filename,
			Data:      pdfBytes,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, id)
}

// Archive transiciona SENT_TO_CLIENT → ARCHIVED; no se permite más mutación.
func (uc *Lifecycle) Archive(ctx context.Context, id string) (*dto.RFQResponse, error) {
	rfq, err := uc.load(id)
	if err != nil {
		return nil, err
	}
	if rfq.Status != entity.RFQStatusSentToClient {
		return nil, &domain.InvalidStateError{State: rfq.Status, Event: eventArchive}
	}
	err = uc.tx.Run(ctx, func(rfqRepo repository.RFQRepository, _ repository.DocumentRepository) error {
		return rfqRepo.UpdateStatus(id, entity.RFQStatusSentToClient, entity.RFQStatusArchived, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, id)
}

// Cancel transiciona cualquier estado no terminal → CANCELLED.
func (uc *Lifecycle) Cancel(ctx context.Context, id string) (*dto.RFQResponse, error) {
	rfq, err := uc.load(id)
	if err != nil {
		return nil, err
	}
	if entity.IsTerminalStatus(rfq.Status) {
		return nil, &domain.InvalidStateError{State: rfq.Status, Event: eventCancel}
	}
	previous := rfq.Status
	err = uc.tx.Run(ctx, func(rfqRepo repository.RFQRepository, _ repository.DocumentRepository) error {
		return rfqRepo.UpdateStatus(id, previous, entity.RFQStatusCancelled, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return uc.Get(ctx, id)
}

// GetDocument recupera un artefacto generado (pedido u oferta) de una RFQ.
func (uc *Lifecycle) GetDocument(ctx context.Context, rfqID, kind string) (*entity.StoredDocument, error) {
	if kind != entity.DocumentKindRequest && kind != entity.DocumentKindClient {
		return nil, domain.NewValidation("kind", "tipo de documento desconocido")
	}
	doc, err := uc.docs.Get(rfqID, kind)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// load obtiene la RFQ o ErrNotFound.
func (uc *Lifecycle) load(id string) (*entity.RFQ, error) {
	rfq, err := uc.rfqs.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rfq == nil {
		return nil, domain.ErrNotFound
	}
	return rfq, nil
}

// requestSnapshot arma el snapshot del documento de pedido al proveedor.
// Las fechas salen del estado persistido, no del reloj: re-renderizar con el
// mismo layout produce bytes idénticos.
func requestSnapshot(rfq *entity.RFQ, supplier *entity.Supplier) DocumentData {
	rows := make([][]string, 0, len(rfq.Items))
	for _, it := range rfq.Items {
		rows = append(rows, []string{
			strconv.Itoa(it.Position),
			it.ArticleCode,
			it.Description,
			strconv.FormatInt(it.Quantity, 10),
			it.Unit,
		})
	}
	return DocumentData{
		Fields: map[string]string{
			"reference":      rfq.Reference,
			"date":           rfq.CreatedAt.Format("02/01/2006"),
			"supplier_name":  supplier.Name,
			"requester_name": rfq.RequesterName,
			"notes":          rfq.Notes,
		},
		Rows: rows,
	}
}

// clientSnapshot arma el snapshot del documento de oferta al cliente a partir
// de la revisión valorizada.
func clientSnapshot(rfq *entity.RFQ, supplier *entity.Supplier, q *entity.Quotation) DocumentData {
	lead := make(map[string]int, len(rfq.Responses))
	for _, r := range rfq.Responses {
		lead[r.RFQItemID] = r.LeadTimeDays
	}
	rows := make([][]string, 0, len(q.Items))
	for _, it := range q.Items {
		rows = append(rows, []string{
			strconv.Itoa(it.Position),
			it.ArticleCode,
			it.Description,
			strconv.FormatInt(it.Quantity, 10),
			it.UnitSellPrice.StringFixed(q.Precision),
			it.LineTotal.StringFixed(q.Precision),
			strconv.Itoa(lead[it.RFQItemID]),
		})
	}
	supplierName := ""
	if supplier != nil {
		supplierName = supplier.Name
	}
	return DocumentData{
		Fields: map[string]string{
			"reference":     rfq.Reference,
			"date":          q.GeneratedAt.Format("02/01/2006"),
			"client_name":   rfq.RequesterName,
			"supplier_name": supplierName,
			"currency":      q.Currency,
			"total":         q.Total.StringFixed(q.Precision),
			"revision":      strconv.Itoa(q.Revision),
		},
		Rows: rows,
	}
}
