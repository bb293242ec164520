// Package inventory proyecta el agotamiento de stock de una medicación.
// Todo es aritmética pura sobre el contador corriente; el estado vive
// en la medicación y la alerta de stock bajo es one-shot por dosis
// registrada, nunca un estado persistido.
package inventory

import "math"

// Consume descuenta una dosis fraccional del stock. Nunca queda negativo.
func Consume(count, doseFraction float64) float64 {
	next := count - doseFraction
	if next < 0 {
		return 0
	}
	return next
}

// DaysRemaining estima los días de suministro restantes.
// doseFraction <= 0 se trata como "dosis sin configurar", no como error.
func DaysRemaining(count, doseFraction float64) int {
	if doseFraction <= 0 {
		return 0
	}
	return int(math.Floor(count / doseFraction))
}

// IsLowStock es verdadero cuando la proyección queda en o por debajo
// del umbral configurado en días.
func IsLowStock(daysRemaining, thresholdDays int) bool {
	return daysRemaining <= thresholdDays
}
