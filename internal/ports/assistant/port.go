package assistant

import (
	"context"
	"errors"
)

// Errores clasificados del transporte. Se muestran tal cual al usuario
// y nunca tocan el estado de medicaciones/dosis/inventario.
var (
	ErrNotConfigured = errors.New("assistant: not configured")
	ErrUnauthorized  = errors.New("assistant: unauthorized")
	ErrRateLimited   = errors.New("assistant: rate limited")
	ErrTimeout       = errors.New("assistant: timeout")
	ErrUnavailable   = errors.New("assistant: unavailable")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn es un turno previo de la conversación.
type Turn struct {
	Role    Role
	Content string
}

// Port es el puerto hacia el asistente conversacional.
// Un solo intento por llamada, sin retry; la cancelación del ctx
// aborta el request en vuelo.
type Port interface {
	Send(ctx context.Context, userText string, history []Turn) (string, error)
}
