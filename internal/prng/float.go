package prng

// FloatFrom32Bits maps the top 24 bits of i to [0, 1).
func FloatFrom32Bits(i uint32) float32 {
	return float32(i>>8) * 0x1p-24
}

// FloatPairFromBits splits i into its low and high 32-bit halves and maps each to [0, 1).
func FloatPairFromBits(i uint64) (a, b float32) {
	return FloatFrom32Bits(uint32(i)), FloatFrom32Bits(uint32(i >> 32))
}
