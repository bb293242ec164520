package doses

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medication-tracker/internal/domain/medications"
	"medication-tracker/internal/platform/dates"
	"medication-tracker/internal/ports/kv"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/medications/{medID}/doses", func(dr chi.Router) {
		dr.Post("/", recordHandler(svc))
		dr.Get("/", listHandler(svc))
		dr.Get("/today", todayHandler(svc))
	})
	r.Patch("/doses/{doseID}", setStatusHandler(svc))
	r.Get("/doses", dayHandler(svc))
	r.Get("/doses/week", weekHandler(svc))
	r.Get("/doses/summary", summaryHandler(svc))
}

type recordRequest struct {
	Status        string `json:"status"` // vacío o "taken"; "scheduled" agenda una franja
	ScheduledTime string `json:"scheduled_time"`
	Notes         string `json:"notes"`
}

type recordResponse struct {
	Record  Record      `json:"record"`
	Stock   *StockAlert `json:"stock,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

func recordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medID := chi.URLParam(r, "medID")

		var req recordRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		if req.Status == string(StatusScheduled) {
			rec, err := svc.Schedule(r.Context(), medID, req.ScheduledTime)
			writeRecordResult(w, rec, nil, err)
			return
		}

		rec, alert, err := svc.RecordTaken(r.Context(), RecordInput{
			MedicationID:  medID,
			ScheduledTime: req.ScheduledTime,
			Notes:         req.Notes,
		})
		writeRecordResult(w, rec, alert, err)
	}
}

func writeRecordResult(w http.ResponseWriter, rec Record, alert *StockAlert, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, recordResponse{Record: rec, Stock: alert})
	case errors.Is(err, kv.ErrWriteFailed):
		writeJSON(w, http.StatusCreated, recordResponse{Record: rec, Stock: alert, Warning: "change kept in memory, storage write failed"})
	case errors.Is(err, medications.ErrNotFound):
		http.Error(w, "medication not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func listHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := svc.ListByMedication(r.Context(), chi.URLParam(r, "medID"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func todayHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taken, err := svc.TakenOn(r.Context(), chi.URLParam(r, "medID"), dates.DayKey(svc.now()))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"taken": taken})
	}
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func setStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		rec, alert, err := svc.SetStatus(r.Context(), chi.URLParam(r, "doseID"), Status(req.Status))
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, recordResponse{Record: rec, Stock: alert})
		case errors.Is(err, kv.ErrWriteFailed):
			writeJSON(w, http.StatusOK, recordResponse{Record: rec, Stock: alert, Warning: "change kept in memory, storage write failed"})
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrNotFound):
			http.Error(w, "dose record not found", http.StatusNotFound)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func dayHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := r.URL.Query().Get("day")
		if day == "" {
			day = dates.DayKey(svc.now())
		}

		recs, err := svc.ListByDay(r.Context(), day)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, recs)
		case errors.Is(err, ErrInvalidInput):
			http.Error(w, "day must be YYYY-MM-DD", http.StatusBadRequest)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func weekHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		week, err := svc.Week(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, week)
	}
}

func summaryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := svc.Summarize(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
