package reminders

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("reminder settings not found")
)

// Settings por medicación. Enabled refleja el estado real de las
// notificaciones agendadas: nunca queda en true con el permiso negado.
type Settings struct {
	MedicationID  string `json:"medication_id"`
	Enabled       bool   `json:"enabled"`
	AdvanceNotice int    `json:"advance_notice"` // minutos de anticipación
	SoundEnabled  bool   `json:"sound_enabled"`
	Vibration     bool   `json:"vibration_enabled"`
	RepeatMinutes int    `json:"repeat_interval"` // re-aviso best-effort, no garantía dura
}

// DefaultSettings es lo que rige mientras el usuario no configuró nada.
func DefaultSettings(medicationID string) Settings {
	return Settings{
		MedicationID:  medicationID,
		Enabled:       false,
		SoundEnabled:  true,
		Vibration:     true,
		RepeatMinutes: 0,
	}
}

type Repository interface {
	GetByMedication(ctx context.Context, medicationID string) (Settings, error)
	Upsert(ctx context.Context, s Settings) error
	RemoveByMedication(ctx context.Context, medicationID string) error
	List(ctx context.Context) ([]Settings, error)
}
