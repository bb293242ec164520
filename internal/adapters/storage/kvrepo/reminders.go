package kvrepo

import (
	"context"
	"encoding/json"
	"sync"

	"medication-tracker/internal/domain/reminders"
	"medication-tracker/internal/platform/logger"
	"medication-tracker/internal/ports/kv"
)

type RemindersRepo struct {
	store kv.Store
	log   logger.Logger

	mu     sync.Mutex
	items  map[string]reminders.Settings
	loaded bool
}

func NewRemindersRepo(store kv.Store, log logger.Logger) *RemindersRepo {
	if log == nil {
		log = logger.Nop{}
	}
	return &RemindersRepo{store: store, log: log}
}

func (r *RemindersRepo) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	raw, ok, err := r.store.Get(ctx, kv.KeyReminderSettings)
	if err != nil {
		return err
	}
	r.items = map[string]reminders.Settings{}
	if ok {
		if err := json.Unmarshal(raw, &r.items); err != nil {
			r.log.Warn("reminder settings value corrupt, starting empty", map[string]any{"error": err.Error()})
			r.items = map[string]reminders.Settings{}
		}
	}
	r.loaded = true
	return nil
}

func (r *RemindersRepo) save(ctx context.Context) error {
	b, err := json.Marshal(r.items)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, kv.KeyReminderSettings, b)
}

func (r *RemindersRepo) GetByMedication(ctx context.Context, medicationID string) (reminders.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return reminders.Settings{}, err
	}
	s, ok := r.items[medicationID]
	if !ok {
		return reminders.Settings{}, reminders.ErrNotFound
	}
	return s, nil
}

func (r *RemindersRepo) Upsert(ctx context.Context, s reminders.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}
	r.items[s.MedicationID] = s
	return r.save(ctx)
}

func (r *RemindersRepo) RemoveByMedication(ctx context.Context, medicationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return err
	}
	if _, ok := r.items[medicationID]; !ok {
		return nil
	}
	delete(r.items, medicationID)
	return r.save(ctx)
}

func (r *RemindersRepo) List(ctx context.Context) ([]reminders.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	out := make([]reminders.Settings, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, s)
	}
	return out, nil
}
