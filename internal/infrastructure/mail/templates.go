package mail

import (
	"strings"
	"sync"

	"github.com/tu-usuario/cotiza-pro/internal/domain"
	"github.com/tu-usuario/cotiza-pro/internal/domain/entity"
)

// EmailTemplate asunto y cuerpo HTML con placeholders {clave}.
type EmailTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateStore plantillas de email por tipo de mensaje, con valores de
// fábrica y overrides administrables en caliente. Implementa
// quotation.Templater.
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[string]EmailTemplate
}

// NewTemplateStore construye el store con las plantillas de fábrica.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{templates: defaultTemplates()}
}

func defaultTemplates() map[string]EmailTemplate {
	return map[string]EmailTemplate{
		entity.DocumentKindRequest: {
			Subject: "Pedido de cotización {reference}",
			Body: `<html><body>
<p>Estimados señores de {supplier_name}:</p>
<p>Adjuntamos el pedido de cotización <b>{reference}</b>. Agradecemos nos
hagan llegar precios y plazos de entrega para los items detallados en el
documento adjunto.</p>
<p>Saludos cordiales,<br>{requester_name}</p>
<p style="color:#888;font-size:11px">Mensaje generado automáticamente, por favor no responder a esta casilla.</p>
</body></html>`,
		},
		entity.DocumentKindClient: {
			Subject: "Oferta {reference} (rev. {revision})",
			Body: `<html><body>
<p>Estimado cliente:</p>
<p>Adjuntamos nuestra oferta <b>{reference}</b>, revisión {revision}, por un
total de <b>{total} {currency}</b>. Quedamos a disposición por cualquier
consulta.</p>
<p>Saludos cordiales</p>
<p style="color:#888;font-size:11px">Mensaje generado automáticamente, por favor no responder a esta casilla.</p>
</body></html>`,
		},
	}
}

// Build resuelve la plantilla del tipo pedido y sustituye los placeholders.
// Un placeholder sin variable queda tal cual; un tipo desconocido es error de
// configuración.
func (s *TemplateStore) Build(kind string, vars map[string]string) (string, string, error) {
	s.mu.RLock()
	tmpl, ok := s.templates[kind]
	s.mu.RUnlock()
	if !ok {
		return "", "", domain.NewConfiguration("sin plantilla de email para %q", kind)
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(tmpl.Subject), r.Replace(tmpl.Body), nil
}

// Get devuelve la plantilla vigente de un tipo.
func (s *TemplateStore) Get(kind string) (EmailTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.templates[kind]
	if !ok {
		return EmailTemplate{}, domain.ErrNotFound
	}
	return tmpl, nil
}

// Set reemplaza la plantilla de un tipo. Afecta solo a envíos posteriores.
func (s *TemplateStore) Set(kind string, tmpl EmailTemplate) error {
	if kind != entity.DocumentKindRequest && kind != entity.DocumentKindClient {
		return domain.NewValidation("kind", "tipo de mensaje desconocido")
	}
	if strings.TrimSpace(tmpl.Subject) == "" {
		return domain.NewValidation("subject", "el asunto es obligatorio")
	}
	if strings.TrimSpace(tmpl.Body) == "" {
		return domain.NewValidation("body", "el cuerpo es obligatorio")
	}
	s.mu.Lock()
	s.templates[kind] = tmpl
	s.mu.Unlock()
	return nil
}

// Reset vuelve a la plantilla de fábrica de un tipo.
func (s *TemplateStore) Reset(kind string) error {
	def, ok := defaultTemplates()[kind]
	if !ok {
		return domain.NewValidation("kind", "tipo de mensaje desconocido")
	}
	s.mu.Lock()
	s.templates[kind] = def
	s.mu.Unlock()
	return nil
}
