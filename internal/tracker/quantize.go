package tracker

// quantizeEpsilon keeps exact multiples from truncating one bucket low when
// the division lands a hair under the integer.
const quantizeEpsilon = 1e-10

// Quantize rounds raw down to the nearest multiple of interval. The interval
// must be positive; New rejects anything else.
func Quantize(raw, interval int) int {
	if interval <= 0 {
		return 0
	}
	multiplier := int(float64(raw) / (float64(interval) - quantizeEpsilon))
	return multiplier * interval
}
