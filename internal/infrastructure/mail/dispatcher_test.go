package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/cotiza-pro/internal/application/quotation"
	"github.com/tu-usuario/cotiza-pro/internal/domain"
	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
)

// ─────────────────────────────────────────────────────────────
// Selección de estrategia
// ─────────────────────────────────────────────────────────────

var (
	smtpOK  = SMTPConfig{Host: "smtp.example.com", Port: 587, Account: "cotiza@example.com", Secret: "app-pass"}
	graphOK = GraphConfig{TenantID: "tid", ClientID: "cid", ClientSecret: "sec", Sender: "cotiza@example.com"}
)

func TestNewDispatcher_PrefiereGraphSiEstaCompleto(t *testing.T) {
	d, err := NewDispatcher(smtpOK, graphOK, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &GraphSender{}, d.sender)
}

func TestNewDispatcher_CaeASMTPConGraphParcial(t *testing.T) {
	parcial := GraphConfig{TenantID: "tid"} // faltan client id/secret/sender
	d, err := NewDispatcher(smtpOK, parcial, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, d.sender)
}

func TestNewDispatcher_SinCanalEsErrorDeConfiguracion(t *testing.T) {
	_, err := NewDispatcher(SMTPConfig{}, GraphConfig{}, zerolog.Nop())
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

// ─────────────────────────────────────────────────────────────
// Reintentos
// ─────────────────────────────────────────────────────────────

type fakeSender struct {
	calls int32
	errs  []error
}

func (f *fakeSender) Send(_ context.Context, _ quotation.Message) error {
	n := atomic.AddInt32(&f.calls, 1)
	if int(n) <= len(f.errs) {
		return f.errs[n-1]
	}
	return nil
}

func testDispatcher(s sender) *Dispatcher {
	return &Dispatcher{sender: s, backoff: time.Millisecond, logger: zerolog.Nop()}
}

func msg() quotation.Message {
	return quotation.Message{To: "cliente@example.com", Subject: "Oferta", Body: "<p>hola</p>"}
}

func TestDispatch_TransitorioReintentaUnaVez(t *testing.T) {
	f := &fakeSender{errs: []error{&domain.TransportError{Err: errors.New("timeout")}}}
	err := testDispatcher(f).Dispatch(context.Background(), msg())
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.calls)
}

func TestDispatch_DosTransitoriosEsFallo(t *testing.T) {
	f := &fakeSender{errs: []error{
		&domain.TransportError{Err: errors.New("timeout")},
		&domain.TransportError{Err: errors.New("timeout")},
	}}
	err := testDispatcher(f).Dispatch(context.Background(), msg())
	var tErr *domain.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.False(t, tErr.Permanent)
	assert.EqualValues(t, 2, f.calls)
}

func TestDispatch_PermanenteNoSeReintenta(t *testing.T) {
	f := &fakeSender{errs: []error{&domain.TransportError{Permanent: true, Err: errors.New("535 auth")}}}
	err := testDispatcher(f).Dispatch(context.Background(), msg())
	var tErr *domain.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.True(t, tErr.Permanent)
	assert.EqualValues(t, 1, f.calls)
}

func TestDispatch_DestinatarioMalformadoNoTocaLaRed(t *testing.T) {
	f := &fakeSender{}
	err := testDispatcher(f).Dispatch(context.Background(), quotation.Message{To: "no-es-un-email"})
	var tErr *domain.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.True(t, tErr.Permanent)
	assert.Zero(t, f.calls)
}

// ─────────────────────────────────────────────────────────────
// Estrategia Graph contra servidor simulado
// ─────────────────────────────────────────────────────────────

type graphServer struct {
	tokensEmitidos int32
	envios         int32
	rechazarToken  string // access token a responder con 401
	fallarEnvios   int32  // cantidad de envíos a responder con 503
}

func (g *graphServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&g.tokensEmitidos, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + string(rune('0'+n)),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if g.rechazarToken != "" && auth == "Bearer "+g.rechazarToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if atomic.AddInt32(&g.envios, 1) <= atomic.LoadInt32(&g.fallarEnvios) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	return mux
}

func newGraphSenderContra(t *testing.T, gs *graphServer) *GraphSender {
	t.Helper()
	srv := httptest.NewServer(gs.handler())
	t.Cleanup(srv.Close)
	cfg := graphOK
	cfg.AuthURL = srv.URL + "/token"
	cfg.BaseURL = srv.URL
	return NewGraphSender(cfg, zerolog.Nop())
}

func TestGraph_EnvioExitosoYTokenCacheado(t *testing.T) {
	gs := &graphServer{}
	s := newGraphSenderContra(t, gs)

	require.NoError(t, s.Send(context.Background(), msg()))
	require.NoError(t, s.Send(context.Background(), msg()))

	assert.EqualValues(t, 1, gs.tokensEmitidos, "el segundo envío reutiliza el token")
	assert.EqualValues(t, 2, gs.envios)
}

func TestGraph_TokenRechazadoSeRenuevaUnaVez(t *testing.T) {
	gs := &graphServer{rechazarToken: "tok-1"}
	s := newGraphSenderContra(t, gs)

	require.NoError(t, s.Send(context.Background(), msg()))
	assert.EqualValues(t, 2, gs.tokensEmitidos)
}

func TestGraph_5xxEsTransitorio(t *testing.T) {
	gs := &graphServer{fallarEnvios: 1}
	s := newGraphSenderContra(t, gs)

	err := s.Send(context.Background(), msg())
	var tErr *domain.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.False(t, tErr.Permanent)
}

func TestGraph_AdjuntoVaEnBase64(t *testing.T) {
	var captured graphSendMail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			json.NewEncoder(w).Encode(map[string]any{"access_token": "t", "token_type": "Bearer", "expires_in": 3600})
			return
		}
		json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	cfg := graphOK
	cfg.AuthURL = srv.URL + "/token"
	cfg.BaseURL = srv.URL
	s := NewGraphSender(cfg, zerolog.Nop())

	m := msg()
	m.Attachments = []quotation.Attachment{{Filename: "QT2026-0007.pdf", Data: []byte("%PDF-fake"), MIME: "application/pdf"}}
	require.NoError(t, s.Send(context.Background(), m))

	require.Len(t, captured.Message.Attachments, 1)
	att := captured.Message.Attachments[0]
	assert.Equal(t, "#microsoft.graph.fileAttachment", att.ODataType)
	assert.Equal(t, "QT2026-0007.pdf", att.Name)
	assert.Equal(t, "JVBERi1mYWtl", att.ContentBytes) // base64("%PDF-fake")
	assert.Equal(t, "cliente@example.com", captured.Message.ToRecipients[0].EmailAddress.Address)
}

// ─────────────────────────────────────────────────────────────
// Plantillas
// ─────────────────────────────────────────────────────────────

func TestTemplates_SustituyePlaceholders(t *testing.T) {
	s := NewTemplateStore()

	subject, body, err := s.Build(entity.DocumentKindClient, map[string]string{
		"reference": "QT2026-0007",
		"revision":  "2",
		"total":     "86.25",
		"currency":  "EUR",
	})
	require.NoError(t, err)
	assert.Equal(t, "Oferta QT2026-0007 (rev. 2)", subject)
	assert.Contains(t, body, "86.25 EUR")
}

func TestTemplates_TipoDesconocidoEsErrorDeConfiguracion(t *testing.T) {
	s := NewTemplateStore()
	_, _, err := s.Build("boletin", nil)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestTemplates_OverrideYReset(t *testing.T) {
	s := NewTemplateStore()

	require.NoError(t, s.Set(entity.DocumentKindRequest, EmailTemplate{
		Subject: "RFQ {reference}",
		Body:    "<p>ver adjunto</p>",
	}))
	subject, _, err := s.Build(entity.DocumentKindRequest, map[string]string{"reference": "QT2026-0001"})
	require.NoError(t, err)
	assert.Equal(t, "RFQ QT2026-0001", subject)

	require.NoError(t, s.Reset(entity.DocumentKindRequest))
	subject, _, err = s.Build(entity.DocumentKindRequest, map[string]string{"reference": "QT2026-0001"})
	require.NoError(t, err)
	assert.Equal(t, "Pedido de cotización QT2026-0001", subject)
}

func TestTemplates_ValidaCamposObligatorios(t *testing.T) {
	s := NewTemplateStore()
	err := s.Set(entity.DocumentKindClient, EmailTemplate{Subject: " ", Body: "x"})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
}
