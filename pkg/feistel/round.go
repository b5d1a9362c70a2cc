package feistel

// F is the round function: a left rotation, a complemented right rotation and a
// wraparound multiplication by the subkey, XORed together.
func F(val, subkey uint32) uint32 {
	return Rotl32(val, 9) ^ ^Rotr32(val, 11) ^ (val * subkey)
}
