// Package memory implementa el puerto de notificaciones en memoria.
// Se usa en dev cuando no hay credenciales de Pushover y en tests,
// donde el toggle de permiso permite simular el rechazo del usuario.
package memory

import (
	"context"
	"fmt"
	"sync"

	"medication-tracker/internal/ports/notify"
)

type Notifier struct {
	mu        sync.Mutex
	seq       int
	scheduled map[string]notify.Scheduled
	granted   bool

	// Sent acumula los triggers inmediatos (notificaciones de prueba).
	Sent []notify.Content
}

func NewNotifier() *Notifier {
	return &Notifier{
		scheduled: map[string]notify.Scheduled{},
		granted:   true,
	}
}

// SetGranted cambia el estado de permiso que devuelve RequestPermission.
func (n *Notifier) SetGranted(granted bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.granted = granted
}

func (n *Notifier) Schedule(ctx context.Context, c notify.Content, t notify.Trigger) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.granted {
		return "", notify.ErrPermissionDenied
	}

	if t.Immediate {
		n.Sent = append(n.Sent, c)
		return "", nil
	}

	n.seq++
	id := fmt.Sprintf("notif-%d", n.seq)
	n.scheduled[id] = notify.Scheduled{ID: id, Content: c, Trigger: t}
	return id, nil
}

func (n *Notifier) Cancel(ctx context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.scheduled, id)
	return nil
}

func (n *Notifier) ListScheduled(ctx context.Context) ([]notify.Scheduled, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]notify.Scheduled, 0, len(n.scheduled))
	for _, s := range n.scheduled {
		out = append(out, s)
	}
	return out, nil
}

func (n *Notifier) RequestPermission(ctx context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.granted, nil
}
