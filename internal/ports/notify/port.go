package notify

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied indica que el subsistema de notificaciones
	// rechazó la operación por falta de permiso del usuario.
	ErrPermissionDenied = errors.New("notify: permission denied")
)

// Claves de payload que el scheduler usa para identificar sus
// notificaciones al reconciliar.
const (
	DataMedicationID = "medication_id"
	DataSlotIndex    = "slot_index"
	DataIntervalDays = "interval_days"
)

// Content es el contenido de una notificación. Data viaja opaco y
// vuelve intacto en ListScheduled.
type Content struct {
	Title string
	Body  string
	Data  map[string]string
}

// Trigger describe cuándo dispara una notificación:
// - Immediate: una sola vez, ya (notificación de prueba)
// - si no: hora:minuto local, repitiendo cada día
type Trigger struct {
	Hour      int
	Minute    int
	Repeats   bool
	Immediate bool
}

// Scheduled es una notificación actualmente agendada.
type Scheduled struct {
	ID      string
	Content Content
	Trigger Trigger
}

// Port es el puerto hacia el subsistema de notificaciones locales.
type Port interface {
	Schedule(ctx context.Context, c Content, t Trigger) (id string, err error)
	Cancel(ctx context.Context, id string) error
	ListScheduled(ctx context.Context) ([]Scheduled, error)
	RequestPermission(ctx context.Context) (granted bool, err error)
}
