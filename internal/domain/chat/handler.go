package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medication-tracker/internal/ports/assistant"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/chat", func(cr chi.Router) {
		cr.Post("/", sendHandler(svc))
		cr.Post("/medicine-info", medicineInfoHandler(svc))
		cr.Get("/advice", adviceHandler(svc))
		cr.Delete("/", resetHandler(svc))
	})
}

type sendRequest struct {
	Message string `json:"message"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

func sendHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		reply, err := svc.Send(r.Context(), req.Message)
		if err != nil {
			writeAssistantError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, replyResponse{Reply: reply})
	}
}

type medicineInfoRequest struct {
	Name string `json:"name"`
}

func medicineInfoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req medicineInfoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		reply, err := svc.MedicineInfo(r.Context(), req.Name)
		if err != nil {
			writeAssistantError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, replyResponse{Reply: reply})
	}
}

func adviceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply, err := svc.Advice(r.Context())
		if err != nil {
			writeAssistantError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, replyResponse{Reply: reply})
	}
}

func resetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		svc.Reset()
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeAssistantError mapea la clasificación del puerto a HTTP. El
// mensaje va tal cual al usuario.
func writeAssistantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, assistant.ErrNotConfigured):
		http.Error(w, "assistant api key not configured", http.StatusServiceUnavailable)
	case errors.Is(err, assistant.ErrUnauthorized):
		http.Error(w, "assistant api key rejected", http.StatusBadGateway)
	case errors.Is(err, assistant.ErrRateLimited):
		http.Error(w, "assistant rate limited, try again later", http.StatusTooManyRequests)
	case errors.Is(err, assistant.ErrTimeout):
		http.Error(w, "assistant timed out", http.StatusGatewayTimeout)
	default:
		http.Error(w, "assistant unavailable", http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
