package medications

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medication-tracker/internal/ports/kv"
	"medication-tracker/internal/ports/notify"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/medications", func(mr chi.Router) {
		mr.Post("/", createHandler(svc))
		mr.Get("/", listHandler(svc))
		mr.Get("/{medID}", getHandler(svc))
		mr.Patch("/{medID}", updateHandler(svc))
		mr.Delete("/{medID}", deleteHandler(svc))
	})
}

type createRequest struct {
	Name      string   `json:"name"`
	Dosage    string   `json:"dosage"`
	Frequency string   `json:"frequency"`
	Times     []string `json:"times"`
	Notes     string   `json:"notes"`
	Active    *bool    `json:"is_active"`

	DoseFraction         float64 `json:"dose_fraction"`
	InventoryCount       float64 `json:"inventory_count"`
	LowStockDays         int     `json:"low_stock_days"`
	ReminderIntervalDays int     `json:"reminder_interval_days"`

	StartDate string `json:"start_date"` // YYYY-MM-DD opcional
	EndDate   string `json:"end_date"`   // YYYY-MM-DD opcional
}

type updateRequest struct {
	Name      *string   `json:"name"`
	Dosage    *string   `json:"dosage"`
	Frequency *string   `json:"frequency"`
	Times     *[]string `json:"times"`
	Notes     *string   `json:"notes"`
	Active    *bool     `json:"is_active"`

	DoseFraction         *float64 `json:"dose_fraction"`
	InventoryCount       *float64 `json:"inventory_count"`
	LowStockDays         *int     `json:"low_stock_days"`
	ReminderIntervalDays *int     `json:"reminder_interval_days"`

	EndDate *string `json:"end_date"` // YYYY-MM-DD; null limpia la fecha
}

type medicationResponse struct {
	Medication
	Warning string `json:"warning,omitempty"`
}

func createHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var start, end *time.Time
		if req.StartDate != "" {
			t, err := time.Parse("2006-01-02", req.StartDate)
			if err != nil {
				http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			start = &t
		}
		if req.EndDate != "" {
			t, err := time.Parse("2006-01-02", req.EndDate)
			if err != nil {
				http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			end = &t
		}

		m, err := svc.Create(r.Context(), CreateInput{
			Name:                 req.Name,
			Dosage:               req.Dosage,
			Frequency:            req.Frequency,
			Times:                req.Times,
			Notes:                req.Notes,
			Active:               req.Active,
			DoseFraction:         req.DoseFraction,
			InventoryCount:       req.InventoryCount,
			LowStockDays:         req.LowStockDays,
			ReminderIntervalDays: req.ReminderIntervalDays,
			StartDate:            start,
			EndDate:              end,
		})
		switch {
		case err == nil:
			writeJSON(w, http.StatusCreated, medicationResponse{Medication: m})
		case errors.Is(err, kv.ErrWriteFailed):
			// la mutación queda en memoria; se avisa sin deshacerla
			writeJSON(w, http.StatusCreated, medicationResponse{Medication: m, Warning: "change kept in memory, storage write failed"})
		case errors.Is(err, ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func listHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func getHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.GetByID(r.Context(), chi.URLParam(r, "medID"))
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func updateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// decode a map primero para distinguir "end_date": null de ausente
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		var req updateRequest
		{
			b, _ := json.Marshal(raw)
			if err := json.Unmarshal(b, &req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		in := UpdateInput{
			Name:                 req.Name,
			Dosage:               req.Dosage,
			Frequency:            req.Frequency,
			Times:                req.Times,
			Notes:                req.Notes,
			Active:               req.Active,
			DoseFraction:         req.DoseFraction,
			InventoryCount:       req.InventoryCount,
			LowStockDays:         req.LowStockDays,
			ReminderIntervalDays: req.ReminderIntervalDays,
		}
		if v, exists := raw["end_date"]; exists {
			if string(v) == "null" {
				in.ClearEndDate = true
			} else if req.EndDate != nil {
				t, err := time.Parse("2006-01-02", *req.EndDate)
				if err != nil {
					http.Error(w, "end_date must be YYYY-MM-DD or null", http.StatusBadRequest)
					return
				}
				in.EndDate = &t
			}
		}

		m, err := svc.Update(r.Context(), chi.URLParam(r, "medID"), in)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, medicationResponse{Medication: m})
		case errors.Is(err, notify.ErrPermissionDenied):
			writeJSON(w, http.StatusOK, medicationResponse{Medication: m, Warning: "notification permission required, reminders left disabled"})
		case errors.Is(err, kv.ErrWriteFailed):
			writeJSON(w, http.StatusOK, medicationResponse{Medication: m, Warning: "change kept in memory, storage write failed"})
		case errors.Is(err, ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrNotFound):
			http.Error(w, "medication not found", http.StatusNotFound)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func deleteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.Delete(r.Context(), chi.URLParam(r, "medID"))
		switch {
		case err == nil, errors.Is(err, kv.ErrWriteFailed):
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, ErrNotFound):
			http.Error(w, "medication not found", http.StatusNotFound)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

// writeJSON se duplica a propósito en los handlers de cada módulo;
// un helper común todavía no paga su acoplamiento.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
