package feistel

// Subkey returns the 32-bit subkey for the given round: the low half of the
// master key rotated right by 3*round bits.
func Subkey(k uint64, round int) uint32 {
	return uint32(Rotr64(k, 3*round))
}

// Schedule holds the precomputed subkeys of one master key. It is a value type
// and never modified after NewSchedule, so it can be shared between goroutines.
type Schedule [NumRounds]uint32

// NewSchedule precomputes all round subkeys for k.
func NewSchedule(k uint64) Schedule {
	var s Schedule
	for i := range s {
		s[i] = Subkey(k, i)
	}
	return s
}
