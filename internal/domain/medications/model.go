package medications

import "time"

// Medication es el perfil de una medicación registrada.
// Los tags JSON son el contrato durable: el repo persiste la colección
// completa serializada bajo una sola clave.
type Medication struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Dosage string `json:"dosage"` // texto: "100mg", "2 tabletas"

	Frequency Frequency `json:"frequency"`
	Times     []string  `json:"times"` // HH:MM local; vacío sii as_needed

	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	Notes  string `json:"notes,omitempty"`
	Active bool   `json:"is_active"`

	// Inventario: fracción de unidad por toma, stock restante y umbral
	// de aviso expresado en días de suministro.
	DoseFraction         float64 `json:"dose_fraction"`
	InventoryCount       float64 `json:"inventory_count"`
	LowStockDays         int     `json:"low_stock_days"`
	ReminderIntervalDays int     `json:"reminder_interval_days"` // 1 = diario, N>1 aproximado por trigger diario

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
