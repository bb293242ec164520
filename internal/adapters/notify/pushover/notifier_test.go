package pushover

import (
	"context"
	"testing"
	"time"

	"medication-tracker/internal/ports/notify"
)

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

	// todavía no pasó: hoy
	at := nextOccurrence(now, 21, 30)
	if at.Day() != 10 || at.Hour() != 21 || at.Minute() != 30 {
		t.Fatalf("expected today 21:30, got %v", at)
	}

	// ya pasó: mañana
	at = nextOccurrence(now, 9, 0)
	if at.Day() != 11 || at.Hour() != 9 {
		t.Fatalf("expected tomorrow 09:00, got %v", at)
	}

	// exactamente ahora cuenta como pasado
	at = nextOccurrence(now, 12, 0)
	if at.Day() != 11 {
		t.Fatalf("expected tomorrow for boundary time, got %v", at)
	}
}

func TestNotifier_RequiresCredentials(t *testing.T) {
	n := NewNotifier(NewClient("", "", nil), nil)

	granted, err := n.RequestPermission(context.Background())
	if err != nil {
		t.Fatalf("RequestPermission error: %v", err)
	}
	if granted {
		t.Fatalf("expected permission denied without credentials")
	}

	if _, err := n.Schedule(context.Background(), notify.Content{}, notify.Trigger{Hour: 9}); err == nil {
		t.Fatalf("expected schedule rejected without credentials")
	}
}

func TestNotifier_ScheduleCancelList(t *testing.T) {
	n := NewNotifier(NewClient("token", "user", nil), nil)
	ctx := context.Background()

	id, err := n.Schedule(ctx, notify.Content{
		Title: "Medication reminder",
		Data:  map[string]string{notify.DataMedicationID: "med-1"},
	}, notify.Trigger{Hour: 9, Repeats: true})
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	if id == "" {
		t.Fatalf("expected notification id")
	}

	scheduled, err := n.ListScheduled(ctx)
	if err != nil || len(scheduled) != 1 {
		t.Fatalf("expected 1 scheduled, got %d (err %v)", len(scheduled), err)
	}
	if scheduled[0].Content.Data[notify.DataMedicationID] != "med-1" {
		t.Fatalf("expected payload preserved, got %v", scheduled[0].Content.Data)
	}

	if err := n.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if scheduled, _ := n.ListScheduled(ctx); len(scheduled) != 0 {
		t.Fatalf("expected empty agenda after cancel, got %d", len(scheduled))
	}
}
