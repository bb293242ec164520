package kvrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"medication-tracker/internal/adapters/storage/memory"
	"medication-tracker/internal/domain/doses"
	"medication-tracker/internal/domain/medications"
	"medication-tracker/internal/ports/kv"
)

func med(id, name string) medications.Medication {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return medications.Medication{
		ID:        id,
		Name:      name,
		Dosage:    "50mg",
		Frequency: medications.FrequencyDaily,
		Times:     []string{"08:00"},
		StartDate: now,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMedicationsRepo_RoundTrip(t *testing.T) {
	store := memory.NewStore()
	repo := NewMedicationsRepo(store, nil)
	ctx := context.Background()

	m := med("med-1", "Sertraline")
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// repo nuevo sobre el mismo store: arranque en frío desde el backend
	repo2 := NewMedicationsRepo(store, nil)
	got, err := repo2.GetByID(ctx, "med-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.Name != m.Name || got.Dosage != m.Dosage || len(got.Times) != 1 {
		t.Fatalf("expected identical medication after reload, got %+v", got)
	}
	if !got.CreatedAt.Equal(m.CreatedAt) {
		t.Fatalf("expected timestamps preserved")
	}
}

func TestMedicationsRepo_UpdateAndDelete_NotFound(t *testing.T) {
	repo := NewMedicationsRepo(memory.NewStore(), nil)
	ctx := context.Background()

	if err := repo.Update(ctx, med("missing", "X")); !errors.Is(err, medications.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if err := repo.Delete(ctx, "missing"); !errors.Is(err, medications.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestMedicationsRepo_CorruptValue_StartsEmpty(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	if err := store.Set(ctx, kv.KeyMedications, []byte("{not json")); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	repo := NewMedicationsRepo(store, nil)
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list on corrupt value, got %d", len(list))
	}

	// y sigue funcionando para writes
	if err := repo.Create(ctx, med("med-1", "Sertraline")); err != nil {
		t.Fatalf("Create after corrupt value error: %v", err)
	}
}

func TestMedicationsRepo_WriteFailed_KeepsMemoryState(t *testing.T) {
	store := memory.NewStore()
	repo := NewMedicationsRepo(store, nil)
	ctx := context.Background()

	store.FailWrites = true
	if err := repo.Create(ctx, med("med-1", "Sertraline")); !errors.Is(err, kv.ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}

	// la copia en memoria conserva la mutación
	if _, err := repo.GetByID(ctx, "med-1"); err != nil {
		t.Fatalf("expected medication readable after failed write, got %v", err)
	}
}

func TestDosesRepo_ListByMedication(t *testing.T) {
	repo := NewDosesRepo(memory.NewStore(), nil)
	ctx := context.Background()

	for _, rec := range []doses.Record{
		{ID: "r1", MedicationID: "med-1", DayKey: "2026-03-10", Status: doses.StatusTaken},
		{ID: "r2", MedicationID: "med-2", DayKey: "2026-03-10", Status: doses.StatusTaken},
		{ID: "r3", MedicationID: "med-1", DayKey: "2026-03-11", Status: doses.StatusScheduled},
	} {
		if err := repo.Append(ctx, rec); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	recs, err := repo.ListByMedication(ctx, "med-1")
	if err != nil {
		t.Fatalf("ListByMedication error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records for med-1, got %d", len(recs))
	}

	if err := repo.RemoveByMedication(ctx, "med-1"); err != nil {
		t.Fatalf("RemoveByMedication error: %v", err)
	}
	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 1 || all[0].MedicationID != "med-2" {
		t.Fatalf("expected only med-2 records left, got %+v", all)
	}
}

func TestImportLegacy_BuildsMedicationAndHistory(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_ = store.Set(ctx, kv.KeyLegacyConfig, []byte(`{
		"medicationName": "Sertraline",
		"dosage": "50mg",
		"reminderTime": "09:00",
		"isActive": true,
		"doseFraction": 0.5,
		"inventoryCount": 10,
		"daysBeforeRunout": 3,
		"reminderIntervalDays": 2
	}`))
	_ = store.Set(ctx, kv.KeyLegacyRecords, []byte(`{"2026-03-08": true, "2026-03-09": false, "2026-03-10": true}`))

	meds := NewMedicationsRepo(store, nil)
	dos := NewDosesRepo(store, nil)
	if err := ImportLegacy(ctx, store, meds, dos, nil); err != nil {
		t.Fatalf("ImportLegacy error: %v", err)
	}

	list, err := meds.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 imported medication, got %d", len(list))
	}
	m := list[0]
	if m.Name != "Sertraline" || m.Dosage != "50mg" || !m.Active {
		t.Fatalf("unexpected imported medication: %+v", m)
	}
	if m.DoseFraction != 0.5 || m.InventoryCount != 10 || m.LowStockDays != 3 || m.ReminderIntervalDays != 2 {
		t.Fatalf("unexpected inventory fields: %+v", m)
	}
	if len(m.Times) != 1 || m.Times[0] != "09:00" {
		t.Fatalf("expected reminder time imported, got %v", m.Times)
	}

	recs, err := dos.ListByMedication(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListByMedication error: %v", err)
	}
	// solo los días marcados true
	if len(recs) != 2 {
		t.Fatalf("expected 2 imported records, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Status != doses.StatusTaken {
			t.Fatalf("expected taken records, got %s", r.Status)
		}
	}

	// claves legacy eliminadas: segunda corrida es no-op
	if _, ok, _ := store.Get(ctx, kv.KeyLegacyConfig); ok {
		t.Fatalf("expected legacy config removed")
	}
	if err := ImportLegacy(ctx, store, meds, dos, nil); err != nil {
		t.Fatalf("ImportLegacy rerun error: %v", err)
	}
	list, _ = meds.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected import to run once, got %d medications", len(list))
	}
}

func TestImportLegacy_NoLegacyData_NoOp(t *testing.T) {
	store := memory.NewStore()
	meds := NewMedicationsRepo(store, nil)
	dos := NewDosesRepo(store, nil)

	if err := ImportLegacy(context.Background(), store, meds, dos, nil); err != nil {
		t.Fatalf("ImportLegacy error: %v", err)
	}
	list, _ := meds.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("expected no medications, got %d", len(list))
	}
}
