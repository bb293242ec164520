package doses

import "time"

// Status del registro de una toma. Las transiciones son monotónicas
// hacia adelante: scheduled -> {taken|missed|skipped}; un registro
// cerrado no se reabre.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusTaken     Status = "taken"
	StatusMissed    Status = "missed"
	StatusSkipped   Status = "skipped"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusTaken, StatusMissed, StatusSkipped:
		return true
	}
	return false
}

// CanTransition dice si el estado admite pasar a next.
func (s Status) CanTransition(next Status) bool {
	if !next.Valid() || next == StatusScheduled {
		return false
	}
	return s == StatusScheduled
}

// Record es una toma individual, agendada o efectiva. El ledger es
// append-only: varias tomas por día son legales (una por franja).
type Record struct {
	ID             string `json:"id"`
	MedicationID   string `json:"medication_id"`
	MedicationName string `json:"medication_name"` // denormalizado al momento de registrar

	DayKey        string     `json:"day_key"`
	ScheduledTime string     `json:"scheduled_time,omitempty"` // HH:MM de la franja, si aplica
	TakenTime     *time.Time `json:"taken_time,omitempty"`

	Status Status `json:"status"`
	Dosage string `json:"dosage"`
	Notes  string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DayLog es la forma legacy del modelo simple: clave de día -> tomado.
// Solo sobrevive para la importación única; marcar dos veces el mismo
// día es idempotente.
type DayLog map[string]bool

func (d DayLog) Taken(dayKey string) bool {
	return d[dayKey]
}

func (d DayLog) MarkTaken(dayKey string) DayLog {
	if d == nil {
		d = DayLog{}
	}
	d[dayKey] = true
	return d
}
