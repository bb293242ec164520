package reminders

import (
	"context"
	"errors"
	"strconv"
	"testing"

	notifymem "medication-tracker/internal/adapters/notify/memory"
	"medication-tracker/internal/domain/medications"
	"medication-tracker/internal/ports/notify"
)

// -------------------------
// Fake settings repo
// -------------------------

type testSettingsRepo struct {
	byMed map[string]Settings
}

func newTestSettingsRepo() *testSettingsRepo {
	return &testSettingsRepo{byMed: map[string]Settings{}}
}

func (r *testSettingsRepo) GetByMedication(ctx context.Context, medicationID string) (Settings, error) {
	s, ok := r.byMed[medicationID]
	if !ok {
		return Settings{}, ErrNotFound
	}
	return s, nil
}

func (r *testSettingsRepo) Upsert(ctx context.Context, s Settings) error {
	r.byMed[s.MedicationID] = s
	return nil
}

func (r *testSettingsRepo) RemoveByMedication(ctx context.Context, medicationID string) error {
	delete(r.byMed, medicationID)
	return nil
}

func (r *testSettingsRepo) List(ctx context.Context) ([]Settings, error) {
	out := make([]Settings, 0, len(r.byMed))
	for _, s := range r.byMed {
		out = append(out, s)
	}
	return out, nil
}

func testMed(id string, times ...string) medications.Medication {
	return medications.Medication{
		ID:                   id,
		Name:                 "Sertraline",
		Dosage:               "50mg",
		Frequency:            medications.FrequencyTwiceDaily,
		Times:                times,
		Active:               true,
		ReminderIntervalDays: 2,
	}
}

// -------------------------
// Tests
// -------------------------

func TestScheduler_Sync_SchedulesOnePerSlot(t *testing.T) {
	notifier := notifymem.NewNotifier()
	sched := NewScheduler(notifier, newTestSettingsRepo(), nil)
	med := testMed("med-1", "09:00", "21:00")

	if _, err := sched.SetEnabled(context.Background(), med, true); err != nil {
		t.Fatalf("SetEnabled error: %v", err)
	}

	scheduled, _ := notifier.ListScheduled(context.Background())
	if len(scheduled) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(scheduled))
	}

	slots := map[string]bool{}
	for _, n := range scheduled {
		if n.Content.Data[notify.DataMedicationID] != "med-1" {
			t.Fatalf("expected payload tagged with medication id, got %v", n.Content.Data)
		}
		if n.Content.Data[notify.DataIntervalDays] != "2" {
			t.Fatalf("expected interval days 2 in payload, got %v", n.Content.Data)
		}
		if !n.Trigger.Repeats || n.Trigger.Immediate {
			t.Fatalf("expected repeating daily trigger, got %+v", n.Trigger)
		}
		slots[n.Content.Data[notify.DataSlotIndex]] = true
	}
	for i := 0; i < 2; i++ {
		if !slots[strconv.Itoa(i)] {
			t.Fatalf("expected slot %d scheduled, got %v", i, slots)
		}
	}
}

func TestScheduler_Sync_Idempotent(t *testing.T) {
	notifier := notifymem.NewNotifier()
	sched := NewScheduler(notifier, newTestSettingsRepo(), nil)
	med := testMed("med-1", "09:00", "21:00")

	if _, err := sched.SetEnabled(context.Background(), med, true); err != nil {
		t.Fatalf("SetEnabled error: %v", err)
	}
	if err := sched.Sync(context.Background(), med); err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if err := sched.Sync(context.Background(), med); err != nil {
		t.Fatalf("Sync #2 error: %v", err)
	}

	scheduled, _ := notifier.ListScheduled(context.Background())
	if len(scheduled) != 2 {
		t.Fatalf("expected 2 notifications after repeated sync, got %d", len(scheduled))
	}
}

func TestScheduler_Sync_InactiveOrNoTimes_Unschedules(t *testing.T) {
	notifier := notifymem.NewNotifier()
	sched := NewScheduler(notifier, newTestSettingsRepo(), nil)
	med := testMed("med-1", "09:00", "21:00")

	if _, err := sched.SetEnabled(context.Background(), med, true); err != nil {
		t.Fatalf("SetEnabled error: %v", err)
	}

	med.Active = false
	if err := sched.Sync(context.Background(), med); err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if scheduled, _ := notifier.ListScheduled(context.Background()); len(scheduled) != 0 {
		t.Fatalf("expected nothing scheduled for inactive medication, got %d", len(scheduled))
	}

	med.Active = true
	med.Times = nil // as_needed no tiene franjas
	if err := sched.Sync(context.Background(), med); err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if scheduled, _ := notifier.ListScheduled(context.Background()); len(scheduled) != 0 {
		t.Fatalf("expected nothing scheduled without times, got %d", len(scheduled))
	}
}

func TestScheduler_PermissionDenied_DisablesFlag(t *testing.T) {
	notifier := notifymem.NewNotifier()
	notifier.SetGranted(false)
	repo := newTestSettingsRepo()
	sched := NewScheduler(notifier, repo, nil)
	med := testMed("med-1", "09:00", "21:00")

	cfg, err := sched.SetEnabled(context.Background(), med, true)
	if !errors.Is(err, notify.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if cfg.Enabled {
		t.Fatalf("expected enabled flag forced off")
	}

	// el flag persistido tampoco diverge
	stored, err := sched.Settings(context.Background(), "med-1")
	if err != nil {
		t.Fatalf("Settings error: %v", err)
	}
	if stored.Enabled {
		t.Fatalf("expected stored settings disabled")
	}
	if scheduled, _ := notifier.ListScheduled(context.Background()); len(scheduled) != 0 {
		t.Fatalf("expected nothing scheduled without permission")
	}
}

func TestScheduler_Forget_RemovesNotificationsAndSettings(t *testing.T) {
	notifier := notifymem.NewNotifier()
	repo := newTestSettingsRepo()
	sched := NewScheduler(notifier, repo, nil)
	med := testMed("med-1", "09:00", "21:00")

	if _, err := sched.SetEnabled(context.Background(), med, true); err != nil {
		t.Fatalf("SetEnabled error: %v", err)
	}

	if err := sched.Forget(context.Background(), "med-1"); err != nil {
		t.Fatalf("Forget error: %v", err)
	}
	if scheduled, _ := notifier.ListScheduled(context.Background()); len(scheduled) != 0 {
		t.Fatalf("expected zero notifications after forget, got %d", len(scheduled))
	}
	if _, ok := repo.byMed["med-1"]; ok {
		t.Fatalf("expected settings removed")
	}
}

func TestScheduler_Sync_LeavesOtherMedicationsAlone(t *testing.T) {
	notifier := notifymem.NewNotifier()
	sched := NewScheduler(notifier, newTestSettingsRepo(), nil)
	med1 := testMed("med-1", "09:00", "21:00")
	med2 := testMed("med-2", "08:00")

	if _, err := sched.SetEnabled(context.Background(), med1, true); err != nil {
		t.Fatalf("SetEnabled med-1 error: %v", err)
	}
	if _, err := sched.SetEnabled(context.Background(), med2, true); err != nil {
		t.Fatalf("SetEnabled med-2 error: %v", err)
	}

	if err := sched.Unschedule(context.Background(), "med-1"); err != nil {
		t.Fatalf("Unschedule error: %v", err)
	}

	scheduled, _ := notifier.ListScheduled(context.Background())
	if len(scheduled) != 1 {
		t.Fatalf("expected med-2 notification untouched, got %d", len(scheduled))
	}
	if scheduled[0].Content.Data[notify.DataMedicationID] != "med-2" {
		t.Fatalf("expected surviving notification for med-2, got %v", scheduled[0].Content.Data)
	}
}

func TestScheduler_SendTest_Immediate(t *testing.T) {
	notifier := notifymem.NewNotifier()
	sched := NewScheduler(notifier, newTestSettingsRepo(), nil)

	if err := sched.SendTest(context.Background(), "Test", "Hello"); err != nil {
		t.Fatalf("SendTest error: %v", err)
	}
	if len(notifier.Sent) != 1 || notifier.Sent[0].Title != "Test" {
		t.Fatalf("expected one immediate notification, got %v", notifier.Sent)
	}

	notifier.SetGranted(false)
	if err := sched.SendTest(context.Background(), "Test", "Hello"); !errors.Is(err, notify.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}
