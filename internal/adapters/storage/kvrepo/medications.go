// Package kvrepo implementa los repositorios de dominio sobre el puerto
// clave/valor: cada colección vive serializada entera bajo una clave y
// cada mutación la reescribe completa. O(n) por write, aceptable con
// decenas de medicaciones, no miles.
//
// La copia en memoria es la fuente de verdad del proceso; el backend lo
// es en el arranque en frío. Un write fallido no deshace la mutación en
// memoria: se propaga kv.ErrWriteFailed y el caller decide cómo avisar.
package kvrepo

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	"medication-tracker/internal/domain/medications"
	"medication-tracker/internal/platform/logger"
	"medication-tracker/internal/ports/kv"
)

type MedicationsRepo struct {
	store kv.Store
	log   logger.Logger

	mu     sync.Mutex
	items  []medications.Medication
	loaded bool
}

func NewMedicationsRepo(store kv.Store, log logger.Logger) *MedicationsRepo {
	if log == nil {
		log = logger.Nop{}
	}
	return &MedicationsRepo{store: store, log: log}
}

func (r *MedicationsRepo) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	raw, ok, err := r.store.Get(ctx, kv.KeyMedications)
	if err != nil {
		return err
	}
	r.items = []medications.Medication{}
	if ok {
		if err := json.Unmarshal(raw, &r.items); err != nil {
			// valor corrupto: default vacío y se sigue, nunca fatal
			r.log.Warn("medications value corrupt, starting empty", map[string]any{"error": err.Error()})
			r.items = []medications.Medication{}
		}
	}
	r.loaded = true
	return nil
}

func (r *MedicationsRepo) save(ctx context.Context) error {
	b, err := json.Marshal(r.items)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, kv.KeyMedications, b)
}

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("medication id required")
	}
	for _, it := range r.items {
		if it.ID == m.ID {
			return errors.New("medication already exists")
		}
	}

	r.items = append(r.items, m)
	return r.save(ctx)
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}
	for i, it := range r.items {
		if it.ID == m.ID {
			r.items[i] = m
			return r.save(ctx)
		}
	}
	return medications.ErrNotFound
}

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return medications.Medication{}, err
	}
	for _, it := range r.items {
		if it.ID == id {
			return it, nil
		}
	}
	return medications.Medication{}, medications.ErrNotFound
}

func (r *MedicationsRepo) List(ctx context.Context) ([]medications.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	out := make([]medications.Medication, len(r.items))
	copy(out, r.items)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MedicationsRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}
	for i, it := range r.items {
		if it.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return r.save(ctx)
		}
	}
	return medications.ErrNotFound
}
