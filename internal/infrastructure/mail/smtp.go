package mail

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/tu-usuario/cotiza-pro/internal/application/quotation"
	"github.com/tu-usuario/cotiza-pro/internal/domain"
)

// SMTPSender estrategia A: envío directo vía gomail con la cuenta dedicada.
type SMTPSender struct {
	dialer dialer
	from   string
	logger zerolog.Logger
}

// dialer abstrae gomail.Dialer para los tests.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// NewSMTPSender construye la estrategia SMTP.
func NewSMTPSender(cfg SMTPConfig, logger zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Account, cfg.Secret),
		from:   cfg.Account,
		logger: logger,
	}
}

// Send arma el mensaje MIME y lo entrega en una sola conexión.
func (s *SMTPSender) Send(ctx context.Context, msg quotation.Message) error {
	if err := ctx.Err(); err != nil {
		return &domain.TransportError{Err: err}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.Body)
	for _, att := range msg.Attachments {
		data := att.Data
		m.Attach(att.Filename,
			gomail.SetHeader(map[string][]string{"Content-Type": {att.MIME}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error().Err(err).Str("to", msg.To).Msg("envío SMTP falló")
		return &domain.TransportError{Permanent: isAuthFailure(err), Err: err}
	}
	return nil
}

// isAuthFailure detecta rechazo de credenciales en la respuesta del servidor.
// 535 es "authentication credentials invalid" (RFC 4954).
func isAuthFailure(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "535") ||
		strings.Contains(s, "authentication failed") ||
		strings.Contains(s, "username and password not accepted")
}
