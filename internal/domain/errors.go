package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrSupplierInUse      = errors.New("el proveedor tiene RFQs asociadas")
)

// ValidationError indica entrada inválida (forma o valores). El caller puede
// corregir la entrada y reintentar.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validación: %s: %s", e.Field, e.Msg)
	}
	return "validación: " + e.Msg
}

// NewValidation construye un ValidationError con campo opcional.
func NewValidation(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// InvalidStateError indica una transición ilegal del ciclo de vida de la RFQ.
// Identifica el par (estado, evento); el caller debe recargar el estado actual.
type InvalidStateError struct {
	State string
	Event string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("transición ilegal: evento %q en estado %q", e.Event, e.State)
}

// ConfigurationError indica configuración ausente o inconsistente (margen,
// campo de layout, credenciales). Lo corrige el operador, no el usuario.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "configuración: " + e.Msg }

// NewConfiguration construye un ConfigurationError.
func NewConfiguration(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError indica una colisión de escritura concurrente: el estado leído
// al validar ya no coincide con el estado al confirmar. El caller reintenta.
type ConflictError struct {
	RFQID    string
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicto en RFQ %s: se esperaba estado %q, encontrado %q", e.RFQID, e.Expected, e.Actual)
}

// RenderError indica un desajuste plantilla/datos al generar un documento.
type RenderError struct {
	Kind string
	Msg  string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %s", e.Kind, e.Msg)
}

// TransportError indica un fallo de envío definitivo, después del único
// reintento permitido. Permanent distingue rechazos (auth, destinatario
// malformado) de fallos de red agotados.
type TransportError struct {
	Permanent bool
	Err       error
}

func (e *TransportError) Error() string {
	kind := "transitorio"
	if e.Permanent {
		kind = "permanente"
	}
	return fmt.Sprintf("transporte (%s): %v", kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
