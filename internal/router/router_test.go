package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	notifymem "medication-tracker/internal/adapters/notify/memory"
	storemem "medication-tracker/internal/adapters/storage/memory"
	"medication-tracker/internal/config"
	"medication-tracker/internal/router"
)

func newTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()

	handler, _, err := router.New(router.Options{
		Config:   cfg,
		Store:    storemem.NewStore(),
		Notifier: notifymem.NewNotifier(),
	})
	if err != nil {
		t.Fatalf("router.New error: %v", err)
	}

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func doReq(t *testing.T, base, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, base+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw
}

func TestHTTP_EndToEnd_MedicationLifecycle(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	// health abierto
	if st, _ := doReq(t, ts.URL, "GET", "/health", "", nil); st != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", st)
	}

	// 1) alta
	st, raw := doReq(t, ts.URL, "POST", "/medications", "", map[string]any{
		"name":            "Sertraline",
		"dosage":          "50mg",
		"frequency":       "twice_daily",
		"times":           []string{"09:00", "21:00"},
		"dose_fraction":   0.5,
		"inventory_count": 10,
		"low_stock_days":  3,
	})
	if st != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", st, raw)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || created.ID == "" {
		t.Fatalf("create: expected medication id, got %s", raw)
	}
	medID := created.ID

	// 2) listado
	st, raw = doReq(t, ts.URL, "GET", "/medications", "", nil)
	if st != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", st)
	}
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err != nil || len(list) != 1 {
		t.Fatalf("list: expected 1 medication, got %s", raw)
	}

	// 3) recordatorios on
	st, _ = doReq(t, ts.URL, "POST", "/medications/"+medID+"/reminder", "", map[string]any{"enabled": true})
	if st != http.StatusOK {
		t.Fatalf("reminder toggle: expected 200, got %d", st)
	}

	// 4) today arranca en false
	st, raw = doReq(t, ts.URL, "GET", "/medications/"+medID+"/doses/today", "", nil)
	if st != http.StatusOK {
		t.Fatalf("today: expected 200, got %d", st)
	}
	var today struct {
		Taken bool `json:"taken"`
	}
	_ = json.Unmarshal(raw, &today)
	if today.Taken {
		t.Fatalf("today: expected taken=false before recording")
	}

	// 5) registrar toma: descuenta inventario
	st, raw = doReq(t, ts.URL, "POST", "/medications/"+medID+"/doses", "", map[string]any{
		"scheduled_time": "09:00",
	})
	if st != http.StatusCreated {
		t.Fatalf("record dose: expected 201, got %d (%s)", st, raw)
	}
	var recorded struct {
		Record struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"record"`
		Stock struct {
			InventoryCount float64 `json:"inventory_count"`
			DaysRemaining  int     `json:"days_remaining"`
			LowStock       bool    `json:"low_stock"`
		} `json:"stock"`
	}
	if err := json.Unmarshal(raw, &recorded); err != nil {
		t.Fatalf("record dose: bad body %s", raw)
	}
	if recorded.Record.Status != "taken" {
		t.Fatalf("record dose: expected taken, got %s", recorded.Record.Status)
	}
	if recorded.Stock.InventoryCount != 9.5 || recorded.Stock.DaysRemaining != 19 || recorded.Stock.LowStock {
		t.Fatalf("record dose: unexpected stock %+v", recorded.Stock)
	}

	// 6) today pasa a true
	st, raw = doReq(t, ts.URL, "GET", "/medications/"+medID+"/doses/today", "", nil)
	if st != http.StatusOK {
		t.Fatalf("today: expected 200, got %d", st)
	}
	_ = json.Unmarshal(raw, &today)
	if !today.Taken {
		t.Fatalf("today: expected taken=true after recording")
	}

	// 7) PATCH parcial no pisa lo demás
	st, raw = doReq(t, ts.URL, "PATCH", "/medications/"+medID, "", map[string]any{"dosage": "100mg"})
	if st != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d (%s)", st, raw)
	}
	var patched struct {
		Name   string `json:"name"`
		Dosage string `json:"dosage"`
	}
	_ = json.Unmarshal(raw, &patched)
	if patched.Dosage != "100mg" || patched.Name != "Sertraline" {
		t.Fatalf("patch: expected merged update, got %+v", patched)
	}

	// 8) vistas agregadas
	st, raw = doReq(t, ts.URL, "GET", "/doses/week", "", nil)
	if st != http.StatusOK {
		t.Fatalf("week: expected 200, got %d", st)
	}
	var week []map[string]any
	if err := json.Unmarshal(raw, &week); err != nil || len(week) != 7 {
		t.Fatalf("week: expected 7 days, got %s", raw)
	}

	st, raw = doReq(t, ts.URL, "GET", "/doses/summary", "", nil)
	if st != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", st)
	}
	var sum struct {
		Total int `json:"total"`
		Taken int `json:"taken"`
	}
	_ = json.Unmarshal(raw, &sum)
	if sum.Total != 1 || sum.Taken != 1 {
		t.Fatalf("summary: expected 1/1, got %+v", sum)
	}

	// 9) borrado en cascada
	if st, _ := doReq(t, ts.URL, "DELETE", "/medications/"+medID, "", nil); st != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "GET", "/medications/"+medID, "", nil); st != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", st)
	}
	st, raw = doReq(t, ts.URL, "GET", "/medications/"+medID+"/doses", "", nil)
	if st != http.StatusOK {
		t.Fatalf("doses after delete: expected 200, got %d", st)
	}
	var recs []map[string]any
	if err := json.Unmarshal(raw, &recs); err != nil || len(recs) != 0 {
		t.Fatalf("doses after delete: expected empty history, got %s", raw)
	}
}

func TestHTTP_AuthToken_GatesEverythingButHealth(t *testing.T) {
	cfg := config.Config{}
	cfg.Auth.Token = "secret"
	ts := newTestServer(t, cfg)

	if st, _ := doReq(t, ts.URL, "GET", "/health", "", nil); st != http.StatusOK {
		t.Fatalf("health: expected 200 without token, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "GET", "/medications", "", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "GET", "/medications", "wrong", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "GET", "/medications", "secret", nil); st != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", st)
	}
}

func TestHTTP_Chat_NotConfigured(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	st, _ := doReq(t, ts.URL, "POST", "/chat", "", map[string]any{"message": "hello"})
	if st != http.StatusServiceUnavailable {
		t.Fatalf("chat: expected 503 without api key, got %d", st)
	}
}

func TestHTTP_InvalidMedication_BadRequest(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	st, _ := doReq(t, ts.URL, "POST", "/medications", "", map[string]any{
		"name":      "X",
		"dosage":    "1",
		"frequency": "daily",
		"times":     []string{"08:00", "20:00"},
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for too many times, got %d", st)
	}
}
