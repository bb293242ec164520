package kv

import (
	"context"
	"errors"
)

var (
	// ErrWriteFailed marca un write rechazado por el backend.
	// El caller conserva su estado en memoria (optimista) y lo
	// propaga como warning, nunca como rollback.
	ErrWriteFailed = errors.New("kv: write failed")
)

// Claves usadas por el core. Cada valor es el JSON completo de su
// colección; todo write es reemplazo entero de la clave.
const (
	KeyMedications      = "medications"
	KeyDoseRecords      = "dose_records"
	KeyReminderSettings = "reminder_settings"

	// Claves legacy del modelo simple de una sola medicación.
	// Se importan una vez y se eliminan (ver kvrepo.ImportLegacy).
	KeyLegacyConfig  = "medication_config"
	KeyLegacyRecords = "medication_records"
)

// Store es el puerto de persistencia: get/set por clave con valores JSON.
// Una clave ausente no es error (ok=false).
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	RemoveMany(ctx context.Context, keys []string) error
}
