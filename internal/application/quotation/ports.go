package quotation

import (
	"context"

	"github.com/tu-usuario/cotiza-pro/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción del almacén. Los
// repos recibidos están atados a la transacción; si fn devuelve error se hace
// rollback, de lo contrario commit. Toda transición de estado pasa por aquí.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		rfqRepo repository.RFQRepository,
		docRepo repository.DocumentRepository,
	) error) error
}

// DocumentData es el snapshot inmutable que consume el motor de layout:
// valores escalares por clave de campo más las filas de la tabla. El render
// opera sobre esta copia, nunca sobre la entidad viva.
type DocumentData struct {
	Fields map[string]string
	Rows   [][]string
}

// Renderer genera el artefacto (PDF) para un tipo de documento a partir del
// snapshot. Entradas idénticas producen bytes idénticos.
type Renderer interface {
	Render(kind string, data DocumentData) ([]byte, error)
}

// Attachment adjunto de un mensaje saliente.
type Attachment struct {
	Filename string
	Data     []byte
	MIME     string
}

// Message mensaje saliente listo para despachar.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Dispatcher envía un mensaje por la estrategia de transporte disponible.
// Un error implica que el envío NO fue confirmado; el ciclo de vida no debe
// avanzar de estado.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Templater resuelve asunto y cuerpo del email para un tipo de mensaje,
// sustituyendo los placeholders con vars.
type Templater interface {
	Build(kind string, vars map[string]string) (subject, body string, err error)
}
