package dates

import (
	"fmt"
	"strconv"
	"time"
)

// Formato canónico de clave de día: YYYY-MM-DD en hora local.
const keyLayout = "2006-01-02"

// DayKey devuelve la clave de calendario del instante dado.
// Dos instantes del mismo día local siempre producen la misma clave.
func DayKey(t time.Time) string {
	return t.Local().Format(keyLayout)
}

// ParseDayKey valida y parsea una clave YYYY-MM-DD (medianoche local).
func ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation(keyLayout, key, time.Local)
}

// LastNDays devuelve las últimas n claves de día terminando en hoy,
// de la más antigua a la más reciente.
func LastNDays(n int) []string {
	return LastNDaysFrom(time.Now(), n)
}

// LastNDaysFrom es la variante con instante de referencia inyectable
// (la usan los tests y las vistas semanales con reloj fijo).
func LastNDaysFrom(ref time.Time, n int) []string {
	if n <= 0 {
		return nil
	}

	out := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, DayKey(ref.AddDate(0, 0, -i)))
	}
	return out
}

// ParseClock parsea un horario HH:MM de 24 horas. Ambos campos tienen
// que ser dígitos completos; un typo no puede colarse como otro horario.
// Se valida en el borde (alta/edición de medicación); el scheduler
// asume entrada ya validada.
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
		}
	}
	hour, _ = strconv.Atoi(s[:2])
	minute, _ = strconv.Atoi(s[3:])
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock time %q out of range", s)
	}
	return hour, minute, nil
}
