package model

// ErrorKind classifies everything that can go wrong with a relayed turn.
// Kinds are part of the wire contract: the dashboard maps each one to a
// distinct user action (upgrade, wait, retry).
type ErrorKind string

const (
	ErrValidation           ErrorKind = "validation_error"
	ErrConcurrentRequest    ErrorKind = "concurrent_request"
	ErrSubscriptionInactive ErrorKind = "subscription_inactive"
	ErrTrialExpired         ErrorKind = "trial_expired"
	ErrQuotaExceeded        ErrorKind = "quota_exceeded"
	ErrRateLimited          ErrorKind = "rate_limited"
	ErrUpstream             ErrorKind = "upstream_error"
	ErrStorage              ErrorKind = "storage_error"
)

// User-facing messages are Spanish, matching the product UI.
var errorMessages = map[ErrorKind]string{
	ErrValidation:           "El mensaje no puede estar vacío",
	ErrConcurrentRequest:    "Ya hay un mensaje en proceso, espera la respuesta",
	ErrSubscriptionInactive: "Suscripción inactiva. Actualiza tu plan para continuar",
	ErrTrialExpired:         "Periodo de prueba expirado",
	ErrQuotaExceeded:        "Límite de mensajes alcanzado en periodo de prueba",
	ErrRateLimited:          "Límite de solicitudes excedido, intenta de nuevo en un momento",
	ErrUpstream:             "Error procesando tu mensaje, intenta de nuevo",
	ErrStorage:              "No se pudo guardar el mensaje, intenta de nuevo",
}

type RelayError struct {
	Kind    ErrorKind
	Message string
}

func (e *RelayError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// NewRelayError builds a RelayError with the standard message for the kind.
func NewRelayError(kind ErrorKind) *RelayError {
	return &RelayError{Kind: kind, Message: errorMessages[kind]}
}

// Event converts the error into its wire representation.
func (e *RelayError) Event() *WSEvent {
	return NewEvent(EventError, ErrorEvent{Kind: string(e.Kind), Message: e.Message})
}
