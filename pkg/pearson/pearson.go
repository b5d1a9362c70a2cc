// Package pearson implements Pearson hashing ("Fast Hashing of Variable-Length
// Text Strings", 1990). Hash64 runs eight lanes with different first-byte seeds
// and concatenates them; it is used for short key fingerprints, not for security.
package pearson

// table is a fixed permutation of 0..255, built once by a Fisher-Yates shuffle
// driven by a constant-seeded xorshift generator.
var table = buildTable(0x9E3779B97F4A7C15)

func buildTable(seed uint64) [256]uint8 {
	var t [256]uint8
	for i := range t {
		t[i] = uint8(i)
	}
	x := seed
	for i := len(t) - 1; i > 0; i-- {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		j := int(x % uint64(i+1))
		t[i], t[j] = t[j], t[i]
	}
	return t
}

// Hash computes the 8-bit Pearson hash of data. The empty input hashes to 0.
func Hash(data []byte) uint8 {
	if len(data) == 0 {
		return 0
	}
	h := table[data[0]]
	for _, b := range data[1:] {
		h = table[h^b]
	}
	return h
}

// Hash64 computes eight 8-bit lanes, lane n seeded by XORing n into the first
// byte, and packs them most significant lane first. The empty input hashes to 0.
func Hash64(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	var h uint64
	for seed := 0; seed < 8; seed++ {
		lane := table[uint8(seed)^data[0]]
		for _, b := range data[1:] {
			lane = table[lane^b]
		}
		h = h<<8 | uint64(lane)
	}
	return h
}
