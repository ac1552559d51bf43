// Package mail implementa el despacho de correo con dos estrategias: SMTP
// directo (gomail) y Microsoft Graph (client credentials). La estrategia se
// elige una sola vez, al construir el dispatcher, según qué configuración
// está completa.
package mail

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/rs/zerolog"

	"github.com/tu-usuario/cotiza-pro/internal/application/quotation"
	"github.com/tu-usuario/cotiza-pro/internal/domain"
)

// SMTPConfig credenciales de la estrategia SMTP (cuenta dedicada con
// contraseña de aplicación).
type SMTPConfig struct {
	Host    string
	Port    int
	Account string
	Secret  string
}

// Complete indica si la configuración alcanza para operar.
func (c SMTPConfig) Complete() bool {
	return c.Host != "" && c.Port != 0 && c.Account != "" && c.Secret != ""
}

// GraphConfig credenciales de la estrategia Microsoft Graph. AuthURL y
// BaseURL solo se fijan en tests; vacíos usan los endpoints reales.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Sender       string

	AuthURL string
	BaseURL string
}

// Complete indica si los cuatro campos obligatorios están presentes.
func (c GraphConfig) Complete() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != "" && c.Sender != ""
}

func (c GraphConfig) partial() bool {
	some := c.TenantID != "" || c.ClientID != "" || c.ClientSecret != "" || c.Sender != ""
	return some && !c.Complete()
}

// sender una estrategia concreta de envío.
type sender interface {
	Send(ctx context.Context, msg quotation.Message) error
}

// Dispatcher implementa quotation.Dispatcher: valida el destinatario, delega
// en la estrategia elegida y reintenta una vez ante fallos transitorios.
type Dispatcher struct {
	sender  sender
	backoff time.Duration
	logger  zerolog.Logger
}

// NewDispatcher elige la estrategia: Graph si su configuración está completa,
// si no SMTP. Sin ninguna completa devuelve error de configuración antes de
// tocar la red.
func NewDispatcher(smtp SMTPConfig, graph GraphConfig, logger zerolog.Logger) (*Dispatcher, error) {
	log := logger.With().Str("component", "mail").Logger()

	var s sender
	switch {
	case graph.Complete():
		s = NewGraphSender(graph, log)
		log.Info().Str("strategy", "graph").Str("sender", graph.Sender).Msg("canal de correo configurado")
	case smtp.Complete():
		if graph.partial() {
			log.Warn().Msg("configuración de Graph incompleta; se usa SMTP")
		}
		s = NewSMTPSender(smtp, log)
		log.Info().Str("strategy", "smtp").Str("account", smtp.Account).Msg("canal de correo configurado")
	default:
		return nil, domain.NewConfiguration("sin canal de correo: completar la configuración SMTP o la de Graph")
	}

	return &Dispatcher{sender: s, backoff: 2 * time.Second, logger: log}, nil
}

// Dispatch envía el mensaje. Los fallos permanentes (destinatario malformado,
// credenciales rechazadas) se devuelven de inmediato; los transitorios se
// reintentan una vez tras un backoff corto.
func (d *Dispatcher) Dispatch(ctx context.Context, msg quotation.Message) error {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return &domain.TransportError{Permanent: true, Err: err}
	}

	err := d.sender.Send(ctx, msg)
	if err == nil {
		return nil
	}
	var tErr *domain.TransportError
	if errors.As(err, &tErr) && tErr.Permanent {
		return err
	}

	d.logger.Warn().Err(err).Str("to", msg.To).Msg("fallo transitorio de envío, reintentando")
	select {
	case <-ctx.Done():
		return &domain.TransportError{Err: ctx.Err()}
	case <-time.After(d.backoff):
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return err
	}
	return nil
}
