package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"medication-tracker/internal/ports/assistant"
)

var ErrInvalidInput = errors.New("invalid input")

// maxHistory acota los turnos que viajan como contexto al asistente.
const maxHistory = 20

// Service mantiene una conversación acotada con el asistente. Los
// errores del asistente se clasifican y se muestran tal cual; nunca
// tocan medicaciones, dosis ni inventario.
type Service struct {
	port assistant.Port

	mu      sync.Mutex
	history []assistant.Turn
}

func NewService(port assistant.Port) *Service {
	return &Service{port: port}
}

// Send envía el texto del usuario con el historial previo como
// contexto. Un solo intento, sin retry; cancelar el ctx aborta el
// request en vuelo.
func (s *Service) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrInvalidInput
	}

	s.mu.Lock()
	prior := make([]assistant.Turn, len(s.history))
	copy(prior, s.history)
	s.mu.Unlock()

	reply, err := s.port.Send(ctx, text, prior)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.history = append(s.history,
		assistant.Turn{Role: assistant.RoleUser, Content: text},
		assistant.Turn{Role: assistant.RoleAssistant, Content: reply},
	)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
	s.mu.Unlock()

	return reply, nil
}

// MedicineInfo pide una ficha breve de un medicamento; consulta
// puntual, sin historial.
func (s *Service) MedicineInfo(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidInput
	}

	prompt := fmt.Sprintf(
		"Give a brief overview of %s: main uses, common dosage, frequent side effects and precautions. Use plain, reassuring language.",
		name,
	)
	return s.port.Send(ctx, prompt, nil)
}

// Advice pide recomendaciones generales de adherencia.
func (s *Service) Advice(ctx context.Context) (string, error) {
	const prompt = "Share encouraging advice on why taking medication consistently matters and how to cope with forgetfulness."
	return s.port.Send(ctx, prompt, nil)
}

// Reset descarta el historial de la conversación.
func (s *Service) Reset() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}
