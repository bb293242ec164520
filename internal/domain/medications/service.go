package medications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"medication-tracker/internal/domain/inventory"
	"medication-tracker/internal/platform/dates"
	"medication-tracker/internal/platform/logger"
	"medication-tracker/internal/ports/kv"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("medication not found")
)

// DoseCascade retira el historial dependiente al eliminar una medicación.
type DoseCascade interface {
	RemoveByMedication(ctx context.Context, medicationID string) error
}

// ReminderPort reconcilia las notificaciones agendadas tras cada cambio
// de configuración y las retira (junto con sus settings) al eliminar.
type ReminderPort interface {
	Sync(ctx context.Context, med Medication) error
	Forget(ctx context.Context, medicationID string) error
}

type Service struct {
	repo      Repository
	doses     DoseCascade
	reminders ReminderPort
	log       logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, doses DoseCascade, reminders ReminderPort, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop{}
	}
	return &Service{
		repo:      repo,
		doses:     doses,
		reminders: reminders,
		log:       log,
		now:       time.Now,
	}
}

type CreateInput struct {
	Name      string
	Dosage    string
	Frequency string
	Times     []string
	Notes     string
	Active    *bool // nil = activa

	DoseFraction         float64
	InventoryCount       float64
	LowStockDays         int
	ReminderIntervalDays int

	StartDate *time.Time
	EndDate   *time.Time
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Medication, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Medication{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Dosage) == "" {
		return Medication{}, ErrInvalidInput
	}

	freq := Frequency(strings.TrimSpace(in.Frequency))
	if !freq.Valid() {
		return Medication{}, ErrInvalidInput
	}
	times, err := normalizeTimes(freq, in.Times)
	if err != nil {
		return Medication{}, err
	}
	if in.DoseFraction < 0 || in.InventoryCount < 0 || in.LowStockDays < 0 {
		return Medication{}, ErrInvalidInput
	}

	now := s.now()

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	start := now
	if in.StartDate != nil {
		start = *in.StartDate
	}
	interval := in.ReminderIntervalDays
	if interval < 1 {
		interval = 1
	}

	m := Medication{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Dosage:    strings.TrimSpace(in.Dosage),
		Frequency: freq,
		Times:     times,
		StartDate: start,
		EndDate:   in.EndDate,
		Notes:     strings.TrimSpace(in.Notes),
		Active:    active,

		DoseFraction:         in.DoseFraction,
		InventoryCount:       in.InventoryCount,
		LowStockDays:         in.LowStockDays,
		ReminderIntervalDays: interval,

		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, kv.ErrWriteFailed) {
			// optimista: el estado en memoria queda, el write se reporta
			s.log.Warn("medication create not persisted", map[string]any{"id": m.ID, "error": err.Error()})
			return m, err
		}
		return Medication{}, err
	}
	return m, nil
}

type UpdateInput struct {
	// Punteros para PATCH real: nil = no tocar.
	Name      *string
	Dosage    *string
	Frequency *string
	Times     *[]string
	Notes     *string
	Active    *bool

	DoseFraction         *float64
	InventoryCount       *float64
	LowStockDays         *int
	ReminderIntervalDays *int

	EndDate      *time.Time
	ClearEndDate bool
}

// Update mezcla los campos presentes y reconcilia los recordatorios.
// Un id inexistente devuelve ErrNotFound (el comportamiento silencioso
// del modelo original escondía errores de UI).
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Medication, error) {
	m, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Medication{}, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return Medication{}, ErrInvalidInput
		}
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.Dosage != nil {
		if strings.TrimSpace(*in.Dosage) == "" {
			return Medication{}, ErrInvalidInput
		}
		m.Dosage = strings.TrimSpace(*in.Dosage)
	}
	if in.Frequency != nil {
		f := Frequency(strings.TrimSpace(*in.Frequency))
		if !f.Valid() {
			return Medication{}, ErrInvalidInput
		}
		m.Frequency = f
	}
	if in.Times != nil {
		m.Times = *in.Times
	}
	// frecuencia y horarios se validan juntos: el merge pudo cambiar uno solo
	times, err := normalizeTimes(m.Frequency, m.Times)
	if err != nil {
		return Medication{}, err
	}
	m.Times = times

	if in.Notes != nil {
		m.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Active != nil {
		m.Active = *in.Active
	}
	if in.DoseFraction != nil {
		if *in.DoseFraction < 0 {
			return Medication{}, ErrInvalidInput
		}
		m.DoseFraction = *in.DoseFraction
	}
	if in.InventoryCount != nil {
		if *in.InventoryCount < 0 {
			return Medication{}, ErrInvalidInput
		}
		m.InventoryCount = *in.InventoryCount
	}
	if in.LowStockDays != nil {
		if *in.LowStockDays < 0 {
			return Medication{}, ErrInvalidInput
		}
		m.LowStockDays = *in.LowStockDays
	}
	if in.ReminderIntervalDays != nil {
		if *in.ReminderIntervalDays < 1 {
			return Medication{}, ErrInvalidInput
		}
		m.ReminderIntervalDays = *in.ReminderIntervalDays
	}
	if in.ClearEndDate {
		m.EndDate = nil
	} else if in.EndDate != nil {
		m.EndDate = in.EndDate
	}

	m.UpdatedAt = s.now()

	var warn error
	if err := s.repo.Update(ctx, m); err != nil {
		if !errors.Is(err, kv.ErrWriteFailed) {
			return Medication{}, err
		}
		// optimista: el estado en memoria queda, el write se reporta
		s.log.Warn("medication update not persisted", map[string]any{"id": m.ID, "error": err.Error()})
		warn = err
	}

	// cancel-then-reschedule: nunca conviven duplicados ni horarios viejos
	if s.reminders != nil {
		if err := s.reminders.Sync(ctx, m); err != nil {
			s.log.Warn("reminder sync after update failed", map[string]any{"id": m.ID, "error": err.Error()})
			return m, err
		}
	}
	return m, warn
}

func (s *Service) GetByID(ctx context.Context, id string) (Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medication{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Medication, error) {
	return s.repo.List(ctx)
}

// Delete elimina la medicación en cascada: primero sus notificaciones
// agendadas y su historial de dosis, después la entidad. No pueden
// quedar recordatorios ni registros huérfanos.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if s.reminders != nil {
		if err := s.reminders.Forget(ctx, id); err != nil && !errors.Is(err, kv.ErrWriteFailed) {
			return err
		}
	}
	if s.doses != nil {
		if err := s.doses.RemoveByMedication(ctx, id); err != nil && !errors.Is(err, kv.ErrWriteFailed) {
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, kv.ErrWriteFailed) {
			s.log.Warn("medication delete not persisted", map[string]any{"id": id, "error": err.Error()})
			return err
		}
		return err
	}
	return nil
}

// ApplyDose descuenta una toma del inventario y persiste el contador.
// Devuelve la medicación actualizada; el write fallido se propaga como
// warning sin deshacer el descuento en memoria.
func (s *Service) ApplyDose(ctx context.Context, id string) (Medication, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Medication{}, err
	}

	m.InventoryCount = inventory.Consume(m.InventoryCount, m.DoseFraction)
	m.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, m); err != nil {
		if errors.Is(err, kv.ErrWriteFailed) {
			s.log.Warn("inventory update not persisted", map[string]any{"id": m.ID, "error": err.Error()})
			return m, err
		}
		return Medication{}, err
	}
	return m, nil
}

func normalizeTimes(freq Frequency, times []string) ([]string, error) {
	out := make([]string, 0, len(times))
	for _, t := range times {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, _, err := dates.ParseClock(t); err != nil {
			return nil, ErrInvalidInput
		}
		out = append(out, t)
	}

	if freq == FrequencyAsNeeded {
		if len(out) > 0 {
			return nil, ErrInvalidInput
		}
		return out, nil
	}
	if len(out) > freq.Slots() {
		return nil, ErrInvalidInput
	}
	return out, nil
}
