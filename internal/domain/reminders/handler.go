package reminders

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medication-tracker/internal/domain/medications"
	"medication-tracker/internal/ports/notify"
)

func RegisterRoutes(r chi.Router, sched *Scheduler, meds *medications.Service) {
	r.Route("/medications/{medID}/reminder", func(rr chi.Router) {
		rr.Post("/", toggleHandler(sched, meds))
		rr.Get("/settings", getSettingsHandler(sched))
		rr.Put("/settings", putSettingsHandler(sched, meds))
	})
	r.Post("/reminders/test", testHandler(sched))
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

type settingsResponse struct {
	Settings
	Warning string `json:"warning,omitempty"`
}

func toggleHandler(sched *Scheduler, meds *medications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		med, err := meds.GetByID(r.Context(), chi.URLParam(r, "medID"))
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}

		var req toggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		cfg, err := sched.SetEnabled(r.Context(), med, req.Enabled)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, settingsResponse{Settings: cfg})
		case errors.Is(err, notify.ErrPermissionDenied):
			// accionable: el usuario tiene que conceder el permiso
			http.Error(w, "notification permission required", http.StatusConflict)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

type settingsRequest struct {
	Enabled       bool `json:"enabled"`
	AdvanceNotice int  `json:"advance_notice"`
	SoundEnabled  bool `json:"sound_enabled"`
	Vibration     bool `json:"vibration_enabled"`
	RepeatMinutes int  `json:"repeat_interval"`
}

func getSettingsHandler(sched *Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := sched.Settings(r.Context(), chi.URLParam(r, "medID"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func putSettingsHandler(sched *Scheduler, meds *medications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		med, err := meds.GetByID(r.Context(), chi.URLParam(r, "medID"))
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}

		var req settingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		cfg, err := sched.UpdateSettings(r.Context(), med, Settings{
			Enabled:       req.Enabled,
			AdvanceNotice: req.AdvanceNotice,
			SoundEnabled:  req.SoundEnabled,
			Vibration:     req.Vibration,
			RepeatMinutes: req.RepeatMinutes,
		})
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, settingsResponse{Settings: cfg})
		case errors.Is(err, notify.ErrPermissionDenied):
			http.Error(w, "notification permission required", http.StatusConflict)
		case errors.Is(err, ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

type testRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func testHandler(sched *Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req testRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}
		if req.Title == "" {
			req.Title = "Test notification"
		}
		if req.Body == "" {
			req.Body = "Notifications are working"
		}

		err := sched.SendTest(r.Context(), req.Title, req.Body)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusAccepted)
		case errors.Is(err, notify.ErrPermissionDenied):
			http.Error(w, "notification permission required", http.StatusConflict)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
