package medications

// Frequency clasifica el esquema de tomas de una medicación.
type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyTwiceDaily Frequency = "twice_daily"
	FrequencyThreeTimes Frequency = "three_times_daily"
	FrequencyAsNeeded   Frequency = "as_needed"
)

// Slots devuelve cuántos horarios admite la frecuencia.
// as_needed no admite horarios fijos.
func (f Frequency) Slots() int {
	switch f {
	case FrequencyDaily:
		return 1
	case FrequencyTwiceDaily:
		return 2
	case FrequencyThreeTimes:
		return 3
	default:
		return 0
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyTwiceDaily, FrequencyThreeTimes, FrequencyAsNeeded:
		return true
	}
	return false
}
