package quotation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/cotiza-pro/internal/application/dto"
	"github.com/tu-usuario/cotiza-pro/internal/application/pricing"
	"github.com/tu-usuario/cotiza-pro/internal/application/quotation"
	"github.com/tu-usuario/cotiza-pro/internal/domain"
	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
	"github.com/tu-usuario/cotiza-pro/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria. El repo aplica el mismo chequeo optimista que el almacén
// real: UpdateStatus falla con ConflictError si el estado actual no es `from`.
// ──────────────────────────────────────────────────────────────────────────────

type memRFQRepo struct {
	mu   sync.Mutex
	txMu sync.RWMutex // simula el aislamiento de la transacción del almacén
	rfqs map[string]*entity.RFQ
	seq  int
	docs map[string]*entity.StoredDocument
}

func newMemRepo() *memRFQRepo {
	return &memRFQRepo{
		rfqs: make(map[string]*entity.RFQ),
		docs: make(map[string]*entity.StoredDocument),
	}
}

func (m *memRFQRepo) Create(rfq *entity.RFQ) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rfq
	m.rfqs[rfq.ID] = &cp
	return nil
}

func (m *memRFQRepo) GetByID(id string) (*entity.RFQ, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rfqs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memRFQRepo) List(repository.RFQFilter) ([]repository.RFQSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.RFQSummary
	for _, r := range m.rfqs {
		out = append(out, repository.RFQSummary{ID: r.ID, Reference: r.Reference, Status: r.Status})
	}
	return out, len(out), nil
}

func (m *memRFQRepo) UpdateStatus(id, from, to string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rfqs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if r.Status != from {
		return &domain.ConflictError{RFQID: id, Expected: from, Actual: r.Status}
	}
	r.Status = to
	r.UpdatedAt = at
	return nil
}

func (m *memRFQRepo) ReplaceResponses(rfqID string, responses []entity.SupplierResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rfqs[rfqID]
	if !ok {
		return domain.ErrNotFound
	}
	r.Responses = responses
	return nil
}

func (m *memRFQRepo) SaveQuotation(q *entity.Quotation, replacePending bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rfqs[q.RFQID]
	if !ok {
		return domain.ErrNotFound
	}
	if replacePending && len(r.Quotations) > 0 && !r.Quotations[len(r.Quotations)-1].Dispatched() {
		r.Quotations = r.Quotations[:len(r.Quotations)-1]
	}
	r.Quotations = append(r.Quotations, *q)
	return nil
}

func (m *memRFQRepo) MarkQuotationDispatched(quotationID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rfqs {
		for i := range r.Quotations {
			if r.Quotations[i].ID == quotationID {
				r.Quotations[i].DispatchedAt = &at
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

func (m *memRFQRepo) NextReference(year int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("QT%d-%d", year, m.seq), nil
}

func (m *memRFQRepo) CountByStatus() (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, r := range m.rfqs {
		out[r.Status]++
	}
	return out, nil
}

func (m *memRFQRepo) HasRFQsForSupplier(supplierID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rfqs {
		if r.SupplierID == supplierID {
			return true, nil
		}
	}
	return false, nil
}

// DocumentRepository sobre el mismo fake.
func (m *memRFQRepo) Save(doc *entity.StoredDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.RFQID+"/"+doc.Kind] = doc
	return nil
}

func (m *memRFQRepo) Get(rfqID, kind string) (*entity.StoredDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[rfqID+"/"+kind], nil
}

// memTx ejecuta fn directamente contra el repo compartido (las operaciones del
// fake ya son atómicas por mutex).
type memTx struct{ repo *memRFQRepo }

func (t *memTx) Run(_ context.Context, fn func(repository.RFQRepository, repository.DocumentRepository) error) error {
	t.repo.txMu.Lock()
	defer t.repo.txMu.Unlock()
	return fn(t.repo, t.repo)
}

// gateRFQRepo intercala una barrera tras la lectura: con gate armado, GetByID
// no retorna hasta que los dos lectores concurrentes hayan leído. Así ambos
// parten del mismo estado y el perdedor se decide en el commit, no en la
// validación previa.
type gateRFQRepo struct {
	*memRFQRepo
	gate *sync.WaitGroup
}

func (g *gateRFQRepo) GetByID(id string) (*entity.RFQ, error) {
	r, err := g.memRFQRepo.GetByID(id)
	if g.gate != nil {
		g.gate.Done()
		g.gate.Wait()
	}
	return r, err
}

type memSupplierRepo struct{ suppliers map[string]*entity.Supplier }

func (m *memSupplierRepo) Create(s *entity.Supplier) error { m.suppliers[s.ID] = s; return nil }
func (m *memSupplierRepo) GetByID(id string) (*entity.Supplier, error) {
	return m.suppliers[id], nil
}
func (m *memSupplierRepo) List(int, int) ([]*entity.Supplier, error) { return nil, nil }
func (m *memSupplierRepo) Update(*entity.Supplier) error             { return nil }
func (m *memSupplierRepo) SoftDelete(string) error                   { return nil }
func (m *memSupplierRepo) AddBrand(string, string) error             { return nil }
func (m *memSupplierRepo) RemoveBrand(string, string) error          { return nil }

type memBrandRepo struct{ brands map[string]*entity.Brand }

func (m *memBrandRepo) Create(b *entity.Brand) error             { m.brands[b.ID] = b; return nil }
func (m *memBrandRepo) GetByID(id string) (*entity.Brand, error) { return m.brands[id], nil }
func (m *memBrandRepo) List(int, int) ([]*entity.Brand, error)   { return nil, nil }
func (m *memBrandRepo) Update(*entity.Brand) error               { return nil }

// fakeRenderer es determinista; con failKind simula un desajuste de layout.
type fakeRenderer struct {
	failKind string
	calls    int
}

func (f *fakeRenderer) Render(kind string, data quotation.DocumentData) ([]byte, error) {
	f.calls++
	if kind == f.failKind {
		return nil, domain.NewConfiguration("campo %q sin placement en el layout %s", "reference", kind)
	}
	return []byte("pdf:" + kind + ":" + data.Fields["reference"]), nil
}

// fakeDispatcher registra los mensajes; con fail simula fallo de transporte.
type fakeDispatcher struct {
	fail bool
	sent []quotation.Message
}

func (f *fakeDispatcher) Dispatch(_ context.Context, msg quotation.Message) error {
	if f.fail {
		return &domain.TransportError{Permanent: false, Err: errors.New("timeout simulado")}
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeTemplater struct{}

func (fakeTemplater) Build(kind string, vars map[string]string) (string, string, error) {
	return "asunto " + kind + " " + vars["reference"], "cuerpo", nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Armado del escenario
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	uc         *quotation.Lifecycle
	repo       *memRFQRepo
	suppliers  *memSupplierRepo
	brands     *memBrandRepo
	dispatcher *fakeDispatcher
	renderer   *fakeRenderer
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemRepo()
	suppliers := &memSupplierRepo{suppliers: map[string]*entity.Supplier{
		"sup-1": {ID: "sup-1", Name: "Aceros del Norte", Email: "ventas@acerosnorte.example"},
	}}
	brands := &memBrandRepo{brands: map[string]*entity.Brand{
		"br-1": {ID: "br-1", Name: "Norte", MarginDefault: decimal.RequireFromString("0.25")},
	}}
	dispatcher := &fakeDispatcher{}
	renderer := &fakeRenderer{}
	uc := quotation.NewLifecycle(
		&memTx{repo: repo}, repo, suppliers, brands, repo,
		pricing.NewCalculator("EUR", 2),
		renderer, dispatcher, fakeTemplater{},
	)
	return &fixture{uc: uc, repo: repo, suppliers: suppliers, brands: brands, dispatcher: dispatcher, renderer: renderer}
}

func createRFQ(t *testing.T, f *fixture) string {
	t.Helper()
	resp, err := f.uc.Create(context.Background(), dto.CreateRFQRequest{
		RequesterName:  "María Pérez",
		RequesterEmail: "maria@cliente.example",
		SupplierID:     "sup-1",
		BrandID:        "br-1",
		Items: []dto.CreateRFQItem{
			{ArticleCode: "ART-001", Description: "Perfil L 40x40", Quantity: 3, Unit: "un", TargetUnitPrice: decPtr("10")},
			{ArticleCode: "ART-002", Description: "Chapa 2mm", Quantity: 1, Unit: "m2", TargetUnitPrice: decPtr("50")},
		},
	})
	require.NoError(t, err)
	return resp.ID
}

func respond(t *testing.T, f *fixture, id string) {
	t.Helper()
	rfq, err := f.uc.Get(context.Background(), id)
	require.NoError(t, err)
	_, err = f.uc.RecordSupplierResponse(context.Background(), id, dto.RecordResponsesRequest{
		Responses: []dto.SupplierResponseItem{
			{RFQItemID: rfq.Items[0].ID, UnitCost: decimal.RequireFromString("8"), LeadTimeDays: 5},
			{RFQItemID: rfq.Items[1].ID, UnitCost: decimal.RequireFromString("45"), LeadTimeDays: 10},
		},
	})
	require.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var vErr *domain.ValidationError

	_, err := f.uc.Create(ctx, dto.CreateRFQRequest{RequesterName: "x", SupplierID: "sup-1", BrandID: "br-1"})
	require.ErrorAs(t, err, &vErr, "sin items")

	_, err = f.uc.Create(ctx, dto.CreateRFQRequest{
		RequesterName: "x", SupplierID: "sup-1", BrandID: "br-1",
		Items: []dto.CreateRFQItem{{ArticleCode: "A", Quantity: 0}},
	})
	require.ErrorAs(t, err, &vErr, "cantidad cero")

	_, err = f.uc.Create(ctx, dto.CreateRFQRequest{
		RequesterName: "x", SupplierID: "no-existe", BrandID: "br-1",
		Items: []dto.CreateRFQItem{{ArticleCode: "A", Quantity: 1}},
	})
	require.ErrorAs(t, err, &vErr, "proveedor inexistente")
}

func TestCicloCompleto_SecuenciaDeEstados(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := createRFQ(t, f)

	rfq, err := f.uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusDraft, rfq.Status)
	assert.Regexp(t, `^QT\d{4}-\d+$`, rfq.Reference)

	rfq, err = f.uc.SendToSupplier(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusAwaitingSupplier, rfq.Status)
	require.Len(t, f.dispatcher.sent, 1, "el pedido se envía al proveedor")
	assert.Equal(t, "ventas@acerosnorte.example", f.dispatcher.sent[0].To)

	respond(t, f, id)
	rfq, err = f.uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusResponded, rfq.Status)

	q, err := f.uc.Price(ctx, id, dto.PriceRequest{})
	require.NoError(t, err)
	assert.Equal(t, "86.25", q.Total.StringFixed(2), "margen de marca 0.25 sobre 3×8 y 1×45")

	rfq, err = f.uc.SendToClient(ctx, id, dto.SendToClientRequest{Recipient: "maria@cliente.example"})
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusSentToClient, rfq.Status)
	require.NotEmpty(t, rfq.Quotations)
	assert.NotNil(t, rfq.Quotations[len(rfq.Quotations)-1].DispatchedAt)

	rfq, err = f.uc.Archive(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusArchived, rfq.Status)

	// Documentos almacenados para ambos tipos
	doc, err := f.uc.GetDocument(ctx, id, entity.DocumentKindRequest)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Data)
	doc, err = f.uc.GetDocument(ctx, id, entity.DocumentKindClient)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Data)
}

func TestTransicionesIlegales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := createRFQ(t, f)

	var stErr *domain.InvalidStateError

	// price en DRAFT
	_, err := f.uc.Price(ctx, id, dto.PriceRequest{})
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, entity.RFQStatusDraft, stErr.State)
	assert.Equal(t, "price", stErr.Event)

	// archive en DRAFT
	_, err = f.uc.Archive(ctx, id)
	require.ErrorAs(t, err, &stErr)

	// el estado no cambió en ningún fallo
	rfq, err := f.uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusDraft, rfq.Status)
}

func TestCancel_DesdeNoTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := createRFQ(t, f)

	rfq, err := f.uc.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusCancelled, rfq.Status)

	// Cancelar dos veces no es válido: CANCELLED es terminal.
	var stErr *domain.InvalidStateError
	_, err = f.uc.Cancel(ctx, id)
	require.ErrorAs(t, err, &stErr)
}

func TestRecordResponse_UnaPorItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := createRFQ(t, f)
	_, err := f.uc.SendToSupplier(ctx, id)
	require.NoError(t, err)

	rfq, err := f.uc.Get(ctx, id)
	require.NoError(t, err)

	var vErr *domain.ValidationError

	// falta un item
	_, err = f.uc.RecordSupplierResponse(ctx, id, dto.RecordResponsesRequest{
		Responses: []dto.SupplierResponseItem{
			{RFQItemID: rfq.Items[0].ID, UnitCost: decimal.RequireFromString("8")},
		},
	})
	require.ErrorAs(t, err, &vErr)

	// costo negativo
	_, err = f.uc.RecordSupplierResponse(ctx, id, dto.RecordResponsesRequest{
		Responses: []dto.SupplierResponseItem{
			{RFQItemID: rfq.Items[0].ID, UnitCost: decimal.RequireFromString("-1")},
			{RFQItemID: rfq.Items[1].ID, UnitCost: decimal.RequireFromString("45")},
		},
	})
	require.ErrorAs(t, err, &vErr)

	// el estado sigue en AWAITING_SUPPLIER
	rfq, err = f.uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusAwaitingSupplier, rfq.Status)
}

// Un fallo de transporte en sendToClient no debe confirmar la transición:
// la RFQ queda en PRICED y el error se propaga para reintento.
func TestSendToClient_FalloDeTransporteNoAvanzaEstado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := createRFQ(t, f)
	_, err := f.uc.SendToSupplier(ctx, id)
	require.NoError(t, err)
	respond(t, f, id)
	_, err = f.uc.Price(ctx, id, dto.PriceRequest{})
	require.NoError(t, err)

	f.dispatcher.fail = true
	var tErr *domain.TransportError
	_, err = f.uc.SendToClient(ctx, id, dto.SendToClientRequest{Recipient: "maria@cliente.example"})
	require.ErrorAs(t, err, &tErr)

	rfq, err := f.uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusPriced, rfq.Status, "la transición no se confirma sin envío confirmado")
	require.NotEmpty(t, rfq.Quotations)
	assert.Nil(t, rfq.Quotations[len(rfq.Quotations)-1].DispatchedAt)

	// Reintento tras recuperarse el transporte
	f.dispatcher.fail = false
	rfq, err = f.uc.SendToClient(ctx, id, dto.SendToClientRequest{Recipient: "maria@cliente.example"})
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusSentToClient, rfq.Status)
}

// Un fallo de render en sendToSupplier deja la RFQ en DRAFT sin artefacto.
func TestSendToSupplier_FalloDeRenderNoAvanzaEstado(t *testing.T) {
	f := newFixture(t)
	f.renderer.failKind = entity.DocumentKindRequest
	ctx := context.Background()
	id := createRFQ(t, f)

	var cfgErr *domain.ConfigurationError
	_, err := f.uc.SendToSupplier(ctx, id)
	require.ErrorAs(t, err, &cfgErr)

	rfq, err := f.uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusDraft, rfq.Status)
	_, err = f.uc.GetDocument(ctx, id, entity.DocumentKindRequest)
	assert.ErrorIs(t, err, domain.ErrNotFound, "sin artefacto parcial")
}

// Re-valorizar antes del despacho reemplaza la revisión pendiente; después
// del despacho el historial es append-only.
func TestPrice_IdempotenteAntesDelDespacho(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := createRFQ(t, f)
	_, err := f.uc.SendToSupplier(ctx, id)
	require.NoError(t, err)
	respond(t, f, id)

	q1, err := f.uc.Price(ctx, id, dto.PriceRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, q1.Revision)

	q2, err := f.uc.Price(ctx, id, dto.PriceRequest{MarginOverride: decPtr("0.30")})
	require.NoError(t, err)
	assert.Equal(t, 1, q2.Revision, "reemplaza el borrador pendiente, no acumula")

	rfq, err := f.uc.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, rfq.Quotations, 1)
	assert.Equal(t, "0.3", rfq.Quotations[0].Items[0].Margin.String())
}

// Dos price() concurrentes sobre la misma RFQ: exactamente uno gana, el otro
// recibe ConflictError, y la cotización final corresponde al ganador.
func TestPrice_Concurrente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := createRFQ(t, f)
	_, err := f.uc.SendToSupplier(ctx, id)
	require.NoError(t, err)
	respond(t, f, id)

	// Lifecycle con lectura compuerta: ambos valorizadores leen RESPONDED
	// antes de que ninguno confirme. Sin la barrera, una ejecución
	// serializada dejaría pasar al segundo como re-valorización y el
	// chequeo optimista quedaría sin ejercitar.
	gated := &gateRFQRepo{memRFQRepo: f.repo}
	uc := quotation.NewLifecycle(
		&memTx{repo: f.repo}, gated, f.suppliers, f.brands, f.repo,
		pricing.NewCalculator("EUR", 2),
		f.renderer, f.dispatcher, fakeTemplater{},
	)

	var gate sync.WaitGroup
	gate.Add(2)
	gated.gate = &gate

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := uc.Price(ctx, id, dto.PriceRequest{})
			errs <- err
		}()
	}

	var okCount, conflictCount int
	for i := 0; i < 2; i++ {
		err := <-errs
		if err == nil {
			okCount++
			continue
		}
		var cErr *domain.ConflictError
		if errors.As(err, &cErr) {
			conflictCount++
		} else {
			t.Fatalf("error inesperado: %v", err)
		}
	}
	gated.gate = nil

	// Los dos partieron de RESPONDED: el commit serializa y el segundo
	// encuentra el estado ya avanzado en el almacén.
	assert.Equal(t, 1, okCount, "exactamente un ganador")
	assert.Equal(t, 1, conflictCount, "el perdedor recibe ConflictError")

	rfq, err := f.uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RFQStatusPriced, rfq.Status)
	require.Len(t, rfq.Quotations, 1, "una única revisión pendiente")
	assert.Equal(t, "86.25", rfq.Quotations[0].Total.StringFixed(2))
}
