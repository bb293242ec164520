package kvrepo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"medication-tracker/internal/domain/doses"
	"medication-tracker/internal/platform/logger"
	"medication-tracker/internal/ports/kv"
)

type DosesRepo struct {
	store kv.Store
	log   logger.Logger

	mu     sync.Mutex
	items  []doses.Record
	loaded bool
}

func NewDosesRepo(store kv.Store, log logger.Logger) *DosesRepo {
	if log == nil {
		log = logger.Nop{}
	}
	return &DosesRepo{store: store, log: log}
}

func (r *DosesRepo) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	raw, ok, err := r.store.Get(ctx, kv.KeyDoseRecords)
	if err != nil {
		return err
	}
	r.items = []doses.Record{}
	if ok {
		if err := json.Unmarshal(raw, &r.items); err != nil {
			r.log.Warn("dose records value corrupt, starting empty", map[string]any{"error": err.Error()})
			r.items = []doses.Record{}
		}
	}
	r.loaded = true
	return nil
}

func (r *DosesRepo) save(ctx context.Context) error {
	b, err := json.Marshal(r.items)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, kv.KeyDoseRecords, b)
}

func (r *DosesRepo) Append(ctx context.Context, rec doses.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}
	if rec.ID == "" {
		return errors.New("dose record id required")
	}

	r.items = append(r.items, rec)
	return r.save(ctx)
}

func (r *DosesRepo) Update(ctx context.Context, rec doses.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}
	for i, it := range r.items {
		if it.ID == rec.ID {
			r.items[i] = rec
			return r.save(ctx)
		}
	}
	return doses.ErrNotFound
}

func (r *DosesRepo) GetByID(ctx context.Context, id string) (doses.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return doses.Record{}, err
	}
	for _, it := range r.items {
		if it.ID == id {
			return it, nil
		}
	}
	return doses.Record{}, doses.ErrNotFound
}

func (r *DosesRepo) List(ctx context.Context) ([]doses.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	out := make([]doses.Record, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *DosesRepo) ListByMedication(ctx context.Context, medicationID string) ([]doses.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	out := []doses.Record{}
	for _, it := range r.items {
		if it.MedicationID == medicationID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *DosesRepo) RemoveByMedication(ctx context.Context, medicationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}

	kept := r.items[:0]
	removed := false
	for _, it := range r.items {
		if it.MedicationID == medicationID {
			removed = true
			continue
		}
		kept = append(kept, it)
	}
	r.items = kept
	if !removed {
		return nil
	}
	return r.save(ctx)
}
