package reminders

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"medication-tracker/internal/domain/medications"
	"medication-tracker/internal/platform/dates"
	"medication-tracker/internal/platform/logger"
	"medication-tracker/internal/ports/kv"
	"medication-tracker/internal/ports/notify"
)

// Scheduler mantiene el conjunto de notificaciones agendadas consistente
// con la configuración vigente. Máquina de estados por medicación:
// Unscheduled <-> Scheduled, con reconciliación cancel-then-reschedule
// para que nunca convivan duplicados ni horarios viejos.
type Scheduler struct {
	notifier notify.Port
	settings Repository
	log      logger.Logger
}

func NewScheduler(notifier notify.Port, settings Repository, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop{}
	}
	return &Scheduler{
		notifier: notifier,
		settings: settings,
		log:      log,
	}
}

// Settings devuelve la configuración de la medicación, o el default si
// el usuario nunca la tocó.
func (s *Scheduler) Settings(ctx context.Context, medicationID string) (Settings, error) {
	cfg, err := s.settings.GetByMedication(ctx, medicationID)
	if errors.Is(err, ErrNotFound) {
		return DefaultSettings(medicationID), nil
	}
	return cfg, err
}

// UpdateSettings persiste la configuración y reconcilia.
func (s *Scheduler) UpdateSettings(ctx context.Context, med medications.Medication, cfg Settings) (Settings, error) {
	if cfg.AdvanceNotice < 0 || cfg.RepeatMinutes < 0 {
		return Settings{}, ErrInvalidInput
	}
	cfg.MedicationID = med.ID

	if cfg.Enabled {
		granted, err := s.notifier.RequestPermission(ctx)
		if err != nil {
			return Settings{}, err
		}
		if !granted {
			// el flag no puede divergir del estado real de notificaciones
			cfg.Enabled = false
			if err := s.settings.Upsert(ctx, cfg); err != nil && !errors.Is(err, kv.ErrWriteFailed) {
				return Settings{}, err
			}
			return cfg, notify.ErrPermissionDenied
		}
	}

	if err := s.settings.Upsert(ctx, cfg); err != nil && !errors.Is(err, kv.ErrWriteFailed) {
		return Settings{}, err
	}
	if err := s.Sync(ctx, med); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SetEnabled es el toggle por medicación.
func (s *Scheduler) SetEnabled(ctx context.Context, med medications.Medication, enabled bool) (Settings, error) {
	cfg, err := s.Settings(ctx, med.ID)
	if err != nil {
		return Settings{}, err
	}
	cfg.Enabled = enabled
	return s.UpdateSettings(ctx, med, cfg)
}

// Sync reconcilia: cancela todo lo agendado para esta medicación y
// re-agenda desde cero según la configuración vigente. Idempotente:
// dos Sync seguidos sin cambios dejan exactamente el mismo conjunto.
func (s *Scheduler) Sync(ctx context.Context, med medications.Medication) error {
	if err := s.cancelFor(ctx, med.ID); err != nil {
		return err
	}

	cfg, err := s.Settings(ctx, med.ID)
	if err != nil {
		return err
	}
	if !med.Active || !cfg.Enabled || len(med.Times) == 0 {
		// estado Unscheduled; as_needed cae acá por no tener horarios
		return nil
	}

	granted, err := s.notifier.RequestPermission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		cfg.Enabled = false
		if err := s.settings.Upsert(ctx, cfg); err != nil && !errors.Is(err, kv.ErrWriteFailed) {
			return err
		}
		return notify.ErrPermissionDenied
	}

	for i, slot := range med.Times {
		hour, minute, err := dates.ParseClock(slot)
		if err != nil {
			// los horarios se validan al guardar la medicación
			return fmt.Errorf("medication %s slot %d: %w", med.ID, i, err)
		}

		id, err := s.notifier.Schedule(ctx, notify.Content{
			Title: "Medication reminder",
			Body:  fmt.Sprintf("Time to take %s (%s)", med.Name, med.Dosage),
			Data: map[string]string{
				notify.DataMedicationID: med.ID,
				notify.DataSlotIndex:    strconv.Itoa(i),
				// el trigger es diario; saltear días no debidos queda en
				// la superficie consumidora, que lee este intervalo
				notify.DataIntervalDays: strconv.Itoa(med.ReminderIntervalDays),
			},
		}, notify.Trigger{Hour: hour, Minute: minute, Repeats: true})
		if err != nil {
			return err
		}
		s.log.Debug("reminder scheduled", map[string]any{"medication_id": med.ID, "slot": i, "notification_id": id})
	}
	return nil
}

// Unschedule cancela las notificaciones de la medicación. Sin nada
// agendado es un no-op, no un error.
func (s *Scheduler) Unschedule(ctx context.Context, medicationID string) error {
	return s.cancelFor(ctx, medicationID)
}

// Forget es la cascada del delete: cancela y borra los settings.
func (s *Scheduler) Forget(ctx context.Context, medicationID string) error {
	if err := s.cancelFor(ctx, medicationID); err != nil {
		return err
	}
	if err := s.settings.RemoveByMedication(ctx, medicationID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// SendTest dispara una notificación inmediata de diagnóstico.
func (s *Scheduler) SendTest(ctx context.Context, title, body string) error {
	granted, err := s.notifier.RequestPermission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return notify.ErrPermissionDenied
	}
	_, err = s.notifier.Schedule(ctx, notify.Content{Title: title, Body: body}, notify.Trigger{Immediate: true})
	return err
}

// cancelFor cancela solo las notificaciones cuyo payload referencia
// exactamente esta medicación; las demás no se tocan jamás.
func (s *Scheduler) cancelFor(ctx context.Context, medicationID string) error {
	scheduled, err := s.notifier.ListScheduled(ctx)
	if err != nil {
		return err
	}
	for _, n := range scheduled {
		if n.Content.Data[notify.DataMedicationID] != medicationID {
			continue
		}
		if err := s.notifier.Cancel(ctx, n.ID); err != nil {
			return err
		}
	}
	return nil
}
