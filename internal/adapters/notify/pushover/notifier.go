package pushover

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medication-tracker/internal/platform/logger"
	"medication-tracker/internal/ports/notify"
)

type entry struct {
	sched  notify.Scheduled
	nextAt time.Time
}

// Notifier implementa el puerto de notificaciones sobre Pushover. La
// agenda vive en memoria (el scheduler la reconstruye en cada sync);
// el permiso equivale a tener credenciales configuradas.
type Notifier struct {
	client *Client
	log    logger.Logger

	mu      sync.Mutex
	seq     int
	entries map[string]*entry

	refresh chan struct{}
}

func NewNotifier(client *Client, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop{}
	}
	return &Notifier{
		client:  client,
		log:     log,
		entries: map[string]*entry{},
		refresh: make(chan struct{}, 1),
	}
}

func (n *Notifier) Schedule(ctx context.Context, c notify.Content, t notify.Trigger) (string, error) {
	if !n.client.Configured() {
		return "", notify.ErrPermissionDenied
	}

	if t.Immediate {
		if err := n.client.Send(ctx, c.Title, c.Body); err != nil {
			return "", fmt.Errorf("send immediate: %w", err)
		}
		return "", nil
	}

	n.mu.Lock()
	n.seq++
	id := fmt.Sprintf("po-%d", n.seq)
	n.entries[id] = &entry{
		sched:  notify.Scheduled{ID: id, Content: c, Trigger: t},
		nextAt: nextOccurrence(time.Now(), t.Hour, t.Minute),
	}
	n.mu.Unlock()

	n.signal()
	return id, nil
}

func (n *Notifier) Cancel(ctx context.Context, id string) error {
	n.mu.Lock()
	delete(n.entries, id)
	n.mu.Unlock()

	n.signal()
	return nil
}

func (n *Notifier) ListScheduled(ctx context.Context) ([]notify.Scheduled, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]notify.Scheduled, 0, len(n.entries))
	for _, e := range n.entries {
		out = append(out, e.sched)
	}
	return out, nil
}

func (n *Notifier) RequestPermission(ctx context.Context) (bool, error) {
	return n.client.Configured(), nil
}

func (n *Notifier) signal() {
	select {
	case n.refresh <- struct{}{}:
	default:
	}
}

// Start corre el loop de entrega hasta que el contexto se cancele. Es
// event-driven: un timer apunta a la próxima franja y cualquier cambio
// de agenda lo re-arma.
func (n *Notifier) Start(ctx context.Context) {
	n.log.Info("pushover delivery worker started", nil)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		next := n.deliverDue(ctx)

		if next.IsZero() {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		} else {
			d := time.Until(next)
			if d < 0 {
				d = 0
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d)
		}

		select {
		case <-ctx.Done():
			n.log.Info("pushover delivery worker stopped", nil)
			return
		case <-n.refresh:
		case <-timer.C:
		}
	}
}

// deliverDue envía lo vencido y devuelve el próximo vencimiento (zero
// si la agenda quedó vacía).
func (n *Notifier) deliverDue(ctx context.Context) time.Time {
	now := time.Now()

	n.mu.Lock()
	var due []*entry
	for _, e := range n.entries {
		if !now.Before(e.nextAt) {
			due = append(due, e)
			if e.sched.Trigger.Repeats {
				e.nextAt = e.nextAt.Add(24 * time.Hour)
			} else {
				delete(n.entries, e.sched.ID)
			}
		}
	}
	var next time.Time
	for _, e := range n.entries {
		if next.IsZero() || e.nextAt.Before(next) {
			next = e.nextAt
		}
	}
	n.mu.Unlock()

	for _, e := range due {
		if err := n.client.Send(ctx, e.sched.Content.Title, e.sched.Content.Body); err != nil {
			n.log.Error("pushover send failed", map[string]any{
				"id":    e.sched.ID,
				"error": err.Error(),
			})
		}
	}
	return next
}

// nextOccurrence devuelve la próxima vez local para hh:mm: hoy si aún
// no pasó, mañana si ya pasó.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.Add(24 * time.Hour)
	}
	return at
}
