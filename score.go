package arbiter

import "math"

// clamp100 constrains a score to the [0, 100] range.
func clamp100(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// roundClamp100 rounds a raw score to the nearest integer and constrains
// it to [0, 100]. Every computed score in the package passes through here
// before it is stored or returned.
func roundClamp100(v float64) int {
	return clamp100(int(math.Round(v)))
}
