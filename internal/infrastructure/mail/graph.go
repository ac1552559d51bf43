package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/tu-usuario/cotiza-pro/internal/application/quotation"
	"github.com/tu-usuario/cotiza-pro/internal/domain"
)

const (
	graphBaseURL  = "https://graph.microsoft.com/v1.0"
	graphScope    = "https://graph.microsoft.com/.default"
	graphAuthURL  = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	graphSendWait = 30 * time.Second
)

// GraphSender estrategia B: envío vía Microsoft Graph con client
// credentials. El token se cachea entre envíos; ante un 401 se descarta y se
// reintenta una vez con token fresco antes de reportar el fallo.
type GraphSender struct {
	cfg    GraphConfig
	client *http.Client
	logger zerolog.Logger

	mu sync.Mutex
	ts oauth2.TokenSource
}

// NewGraphSender construye la estrategia Graph.
func NewGraphSender(cfg GraphConfig, logger zerolog.Logger) *GraphSender {
	if cfg.AuthURL == "" {
		cfg.AuthURL = fmt.Sprintf(graphAuthURL, cfg.TenantID)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = graphBaseURL
	}
	return &GraphSender{
		cfg:    cfg,
		client: &http.Client{Timeout: graphSendWait},
		logger: logger,
	}
}

// ── payload Graph sendMail ────────────────────────────────────────────────────

type graphAddress struct {
	Address string `json:"address"`
}

type graphRecipient struct {
	EmailAddress graphAddress `json:"emailAddress"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

type graphMessage struct {
	Subject      string            `json:"subject"`
	Body         graphBody         `json:"body"`
	ToRecipients []graphRecipient  `json:"toRecipients"`
	Attachments  []graphAttachment `json:"attachments,omitempty"`
}

type graphSendMail struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

// Send publica el mensaje en /users/{sender}/sendMail.
func (g *GraphSender) Send(ctx context.Context, msg quotation.Message) error {
	payload := graphSendMail{
		Message: graphMessage{
			Subject:      msg.Subject,
			Body:         graphBody{ContentType: "HTML", Content: msg.Body},
			ToRecipients: []graphRecipient{{EmailAddress: graphAddress{Address: msg.To}}},
		},
		SaveToSentItems: true,
	}
	for _, att := range msg.Attachments {
		payload.Message.Attachments = append(payload.Message.Attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Filename,
			ContentType:  att.MIME,
			ContentBytes: base64.StdEncoding.EncodeToString(att.Data),
		})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return &domain.TransportError{Permanent: true, Err: err}
	}

	status, err := g.post(ctx, raw, false)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		// token cacheado revocado o expirado en el servidor: uno fresco y
		// un solo reintento silencioso
		g.logger.Debug().Msg("token Graph rechazado, renovando")
		g.resetToken()
		status, err = g.post(ctx, raw, true)
		if err != nil {
			return err
		}
	}

	switch {
	case status == http.StatusAccepted:
		return nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return &domain.TransportError{Permanent: true, Err: fmt.Errorf("graph: credenciales rechazadas (%d)", status)}
	case status == http.StatusBadRequest:
		return &domain.TransportError{Permanent: true, Err: fmt.Errorf("graph: petición rechazada (%d)", status)}
	case status == http.StatusTooManyRequests, status >= 500:
		return &domain.TransportError{Err: fmt.Errorf("graph: fallo transitorio (%d)", status)}
	default:
		return &domain.TransportError{Err: fmt.Errorf("graph: respuesta inesperada (%d)", status)}
	}
}

// post hace el envío con bearer token y devuelve el status HTTP. Errores de
// red o de obtención del token se devuelven como TransportError transitorio
// (el token rechazado en permanent=true solo tras el segundo intento).
func (g *GraphSender) post(ctx context.Context, body []byte, fresh bool) (int, error) {
	tok, err := g.token(ctx)
	if err != nil {
		return 0, &domain.TransportError{Permanent: fresh, Err: fmt.Errorf("graph: obtener token: %w", err)}
	}

	url := fmt.Sprintf("%s/users/%s/sendMail", g.cfg.BaseURL, g.cfg.Sender)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, &domain.TransportError{Permanent: true, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drenar para reutilizar la conexión
	return resp.StatusCode, nil
}

// token devuelve el token cacheado, pidiendo uno nuevo solo si hace falta.
func (g *GraphSender) token(ctx context.Context) (*oauth2.Token, error) {
	g.mu.Lock()
	if g.ts == nil {
		cc := &clientcredentials.Config{
			ClientID:     g.cfg.ClientID,
			ClientSecret: g.cfg.ClientSecret,
			TokenURL:     g.cfg.AuthURL,
			Scopes:       []string{graphScope},
		}
		g.ts = cc.TokenSource(context.Background())
	}
	ts := g.ts
	g.mu.Unlock()

	type result struct {
		tok *oauth2.Token
		err error
	}
	done := make(chan result, 1)
	go func() {
		tok, err := ts.Token()
		done <- result{tok, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.tok, r.err
	}
}

func (g *GraphSender) resetToken() {
	g.mu.Lock()
	g.ts = nil
	g.mu.Unlock()
}
