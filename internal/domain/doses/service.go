package doses

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"medication-tracker/internal/domain/inventory"
	"medication-tracker/internal/domain/medications"
	"medication-tracker/internal/platform/dates"
	"medication-tracker/internal/platform/logger"
	"medication-tracker/internal/ports/kv"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("dose record not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// MedicationDirectory es lo que el ledger necesita del registro de
// medicaciones: el perfil para denormalizar y el descuento de stock.
type MedicationDirectory interface {
	GetByID(ctx context.Context, id string) (medications.Medication, error)
	ApplyDose(ctx context.Context, id string) (medications.Medication, error)
}

type Service struct {
	repo Repository
	meds MedicationDirectory
	log  logger.Logger
	now  func() time.Time
	id   func() string
}

func NewService(repo Repository, meds MedicationDirectory, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop{}
	}
	return &Service{
		repo: repo,
		meds: meds,
		log:  log,
		now:  time.Now,
		id:   func() string { return ulid.Make().String() },
	}
}

// StockAlert es el efecto observable de registrar una toma: estado del
// inventario proyectado y el aviso one-shot de stock bajo. No se
// persiste; se emite una sola vez por toma registrada.
type StockAlert struct {
	InventoryCount float64 `json:"inventory_count"`
	DaysRemaining  int     `json:"days_remaining"`
	LowStock       bool    `json:"low_stock"`
}

type RecordInput struct {
	MedicationID  string
	ScheduledTime string // HH:MM opcional
	Notes         string
}

// RecordTaken agrega una toma efectiva de hoy y descuenta inventario.
// Append-only: una segunda llamada el mismo día crea otro registro
// (franjas múltiples). Si el write falla, el registro queda en memoria
// y el error se propaga como warning.
func (s *Service) RecordTaken(ctx context.Context, in RecordInput) (Record, *StockAlert, error) {
	med, err := s.meds.GetByID(ctx, strings.TrimSpace(in.MedicationID))
	if err != nil {
		return Record{}, nil, err
	}

	now := s.now()
	taken := now
	rec := Record{
		ID:             s.id(),
		MedicationID:   med.ID,
		MedicationName: med.Name,
		DayKey:         dates.DayKey(now),
		ScheduledTime:  strings.TrimSpace(in.ScheduledTime),
		TakenTime:      &taken,
		Status:         StatusTaken,
		Dosage:         med.Dosage,
		Notes:          strings.TrimSpace(in.Notes),
		CreatedAt:      now,
	}

	var warn error
	if err := s.repo.Append(ctx, rec); err != nil {
		if !errors.Is(err, kv.ErrWriteFailed) {
			return Record{}, nil, err
		}
		// optimista: no se deshace la toma del usuario por un write fallido
		s.log.Warn("dose record not persisted", map[string]any{"id": rec.ID, "error": err.Error()})
		warn = err
	}

	alert, err := s.applyInventory(ctx, med.ID)
	if err != nil {
		if !errors.Is(err, kv.ErrWriteFailed) {
			return rec, alert, err
		}
		warn = err
	}
	return rec, alert, warn
}

// Schedule agrega un registro pendiente para una franja del día.
func (s *Service) Schedule(ctx context.Context, medicationID, scheduledTime string) (Record, error) {
	med, err := s.meds.GetByID(ctx, strings.TrimSpace(medicationID))
	if err != nil {
		return Record{}, err
	}
	scheduledTime = strings.TrimSpace(scheduledTime)
	if scheduledTime != "" {
		if _, _, err := dates.ParseClock(scheduledTime); err != nil {
			return Record{}, ErrInvalidInput
		}
	}

	now := s.now()
	rec := Record{
		ID:             s.id(),
		MedicationID:   med.ID,
		MedicationName: med.Name,
		DayKey:         dates.DayKey(now),
		ScheduledTime:  scheduledTime,
		Status:         StatusScheduled,
		Dosage:         med.Dosage,
		CreatedAt:      now,
	}

	if err := s.repo.Append(ctx, rec); err != nil {
		if errors.Is(err, kv.ErrWriteFailed) {
			s.log.Warn("dose record not persisted", map[string]any{"id": rec.ID, "error": err.Error()})
			return rec, err
		}
		return Record{}, err
	}
	return rec, nil
}

// SetStatus cierra un registro pendiente. La transición es monotónica:
// un registro taken/missed/skipped no vuelve a scheduled ni cambia.
// Cerrar en taken descuenta inventario y devuelve la alerta de stock.
func (s *Service) SetStatus(ctx context.Context, id string, next Status) (Record, *StockAlert, error) {
	rec, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Record{}, nil, err
	}
	if !rec.Status.CanTransition(next) {
		return Record{}, nil, ErrInvalidTransition
	}

	rec.Status = next
	var alert *StockAlert
	if next == StatusTaken {
		t := s.now()
		rec.TakenTime = &t
	}

	var warn error
	if err := s.repo.Update(ctx, rec); err != nil {
		if !errors.Is(err, kv.ErrWriteFailed) {
			return Record{}, nil, err
		}
		s.log.Warn("dose status not persisted", map[string]any{"id": rec.ID, "error": err.Error()})
		warn = err
	}

	if next == StatusTaken {
		alert, err = s.applyInventory(ctx, rec.MedicationID)
		if err != nil {
			if !errors.Is(err, kv.ErrWriteFailed) {
				return rec, alert, err
			}
			warn = err
		}
	}
	return rec, alert, warn
}

// TakenOn responde si hay una toma efectiva registrada para ese día.
func (s *Service) TakenOn(ctx context.Context, medicationID, dayKey string) (bool, error) {
	recs, err := s.repo.ListByMedication(ctx, medicationID)
	if err != nil {
		return false, err
	}
	for _, r := range recs {
		if r.DayKey == dayKey && r.Status == StatusTaken {
			return true, nil
		}
	}
	return false, nil
}

// ListByDay devuelve los registros de un día de calendario, ordenados
// por creación. Es la vista diaria del home.
func (s *Service) ListByDay(ctx context.Context, dayKey string) ([]Record, error) {
	if _, err := dates.ParseDayKey(dayKey); err != nil {
		return nil, ErrInvalidInput
	}

	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []Record{}
	for _, r := range recs {
		if r.DayKey == dayKey {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Service) ListByMedication(ctx context.Context, medicationID string) ([]Record, error) {
	recs, err := s.repo.ListByMedication(ctx, medicationID)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	return recs, nil
}

// WeekDay resume un día de la vista semanal.
type WeekDay struct {
	DayKey string `json:"day_key"`
	Taken  int    `json:"taken"`
	Total  int    `json:"total"`
}

// Week devuelve los últimos 7 días (ascendente, termina hoy) con el
// conteo de tomas efectivas por día.
func (s *Service) Week(ctx context.Context) ([]WeekDay, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	byDay := map[string]*WeekDay{}
	keys := dates.LastNDaysFrom(s.now(), 7)
	out := make([]WeekDay, len(keys))
	for i, k := range keys {
		out[i] = WeekDay{DayKey: k}
		byDay[k] = &out[i]
	}

	for _, r := range recs {
		d, ok := byDay[r.DayKey]
		if !ok {
			continue
		}
		d.Total++
		if r.Status == StatusTaken {
			d.Taken++
		}
	}
	return out, nil
}

// Summary son conteos simples; nada de analítica histórica.
type Summary struct {
	Total     int     `json:"total"`
	Taken     int     `json:"taken"`
	Missed    int     `json:"missed"`
	Skipped   int     `json:"skipped"`
	Scheduled int     `json:"scheduled"`
	Adherence float64 `json:"adherence_percent"`
}

func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, r := range recs {
		sum.Total++
		switch r.Status {
		case StatusTaken:
			sum.Taken++
		case StatusMissed:
			sum.Missed++
		case StatusSkipped:
			sum.Skipped++
		case StatusScheduled:
			sum.Scheduled++
		}
	}
	if closed := sum.Taken + sum.Missed + sum.Skipped; closed > 0 {
		sum.Adherence = float64(sum.Taken) / float64(closed) * 100
	}
	return sum, nil
}

// RemoveByMedication implementa la cascada del registro de medicaciones.
func (s *Service) RemoveByMedication(ctx context.Context, medicationID string) error {
	return s.repo.RemoveByMedication(ctx, medicationID)
}

func (s *Service) applyInventory(ctx context.Context, medicationID string) (*StockAlert, error) {
	med, err := s.meds.ApplyDose(ctx, medicationID)
	if err != nil && !errors.Is(err, kv.ErrWriteFailed) {
		return nil, err
	}

	days := inventory.DaysRemaining(med.InventoryCount, med.DoseFraction)
	return &StockAlert{
		InventoryCount: med.InventoryCount,
		DaysRemaining:  days,
		LowStock:       inventory.IsLowStock(days, med.LowStockDays),
	}, err
}
