package kvrepo

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"medication-tracker/internal/domain/doses"
	"medication-tracker/internal/domain/medications"
	"medication-tracker/internal/platform/dates"
	"medication-tracker/internal/platform/logger"
	"medication-tracker/internal/ports/kv"
)

// legacyConfig es la configuración del modelo simple de una sola
// medicación. Los tags replican los nombres originales del cliente
// viejo, por eso no siguen la convención snake_case del resto.
type legacyConfig struct {
	MedicationName       string  `json:"medicationName"`
	Dosage               string  `json:"dosage"`
	ReminderTime         string  `json:"reminderTime"`
	IsActive             bool    `json:"isActive"`
	DoseFraction         float64 `json:"doseFraction"`
	InventoryCount       float64 `json:"inventoryCount"`
	DaysBeforeRunout     int     `json:"daysBeforeRunout"`
	ReminderIntervalDays int     `json:"reminderIntervalDays"`
}

// ImportLegacy migra, una sola vez, los datos del modelo simple al
// registro multi-medicación: la config se vuelve una medicación diaria
// y el mapa de días un registro "taken" por día marcado. Al terminar
// borra las claves viejas para que no se reimporte.
//
// Si no hay claves legacy no hace nada. Si la config está corrupta se
// loguea y se deja tal cual: pisar datos ilegibles es peor que
// ignorarlos.
func ImportLegacy(ctx context.Context, store kv.Store, meds *MedicationsRepo, dos *DosesRepo, log logger.Logger) error {
	if log == nil {
		log = logger.Nop{}
	}

	raw, ok, err := store.Get(ctx, kv.KeyLegacyConfig)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var cfg legacyConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		log.Warn("legacy config unreadable, skipping import", map[string]any{"error": err.Error()})
		return nil
	}
	if strings.TrimSpace(cfg.MedicationName) == "" {
		cfg.MedicationName = "Imported medication"
	}

	now := time.Now()

	times := []string{}
	if _, _, err := dates.ParseClock(cfg.ReminderTime); err == nil {
		times = append(times, cfg.ReminderTime)
	}
	if cfg.ReminderIntervalDays <= 0 {
		cfg.ReminderIntervalDays = 1
	}
	if cfg.DaysBeforeRunout <= 0 {
		cfg.DaysBeforeRunout = 3
	}

	m := medications.Medication{
		ID:                   uuid.NewString(),
		Name:                 cfg.MedicationName,
		Dosage:               cfg.Dosage,
		Frequency:            medications.FrequencyDaily,
		Times:                times,
		StartDate:            now,
		Active:               cfg.IsActive,
		DoseFraction:         cfg.DoseFraction,
		InventoryCount:       cfg.InventoryCount,
		LowStockDays:         cfg.DaysBeforeRunout,
		ReminderIntervalDays: cfg.ReminderIntervalDays,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := meds.Create(ctx, m); err != nil {
		return err
	}

	recRaw, ok, err := store.Get(ctx, kv.KeyLegacyRecords)
	if err != nil {
		return err
	}
	imported := 0
	if ok {
		var days doses.DayLog
		if err := json.Unmarshal(recRaw, &days); err != nil {
			log.Warn("legacy records unreadable, importing config only", map[string]any{"error": err.Error()})
			days = nil
		}

		keys := make([]string, 0, len(days))
		for day, taken := range days {
			if taken {
				keys = append(keys, day)
			}
		}
		sort.Strings(keys)

		for _, day := range keys {
			createdAt := now
			if t, err := dates.ParseDayKey(day); err == nil {
				createdAt = t
			}
			rec := doses.Record{
				ID:             ulid.Make().String(),
				MedicationID:   m.ID,
				MedicationName: m.Name,
				DayKey:         day,
				Status:         doses.StatusTaken,
				Dosage:         m.Dosage,
				CreatedAt:      createdAt,
			}
			if err := dos.Append(ctx, rec); err != nil {
				return err
			}
			imported++
		}
	}

	if err := store.RemoveMany(ctx, []string{kv.KeyLegacyConfig, kv.KeyLegacyRecords}); err != nil {
		return err
	}

	log.Info("legacy data imported", map[string]any{
		"medication": m.Name,
		"records":    imported,
	})
	return nil
}
