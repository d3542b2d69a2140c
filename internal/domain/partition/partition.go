// Package partition divides second budgets into windows and clip lengths.
package partition

import "math/rand"

// SplitEven divides total into n contiguous integer lengths, handing the
// remainder to the first windows. n is clamped to at least 1.
func SplitEven(total, n int) []int {
	if n < 1 {
		n = 1
	}
	base := total / n
	rem := total % n
	out := make([]int, n)
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

// Jittered partitions total into positive integer lengths, each at least
// minEach, summing exactly to total. count is clamped down so the minimum
// can always be honored; the last part absorbs whatever remains.
func Jittered(rng *rand.Rand, total, count, minEach int) []int {
	if total <= 0 {
		return nil
	}
	if minEach < 1 {
		minEach = 1
	}
	maxCount := total / minEach
	if maxCount < 1 {
		maxCount = 1
	}
	if count > maxCount {
		count = maxCount
	}
	if count < 1 {
		count = 1
	}

	base := total / count
	if base < minEach {
		base = minEach
	}
	jitter := int(0.3 * float64(base))
	if jitter < 1 {
		jitter = 1
	}

	out := make([]int, 0, count)
	remaining := total
	for i := 0; i < count-1; i++ {
		partsLeft := count - i - 1
		lo := base - jitter
		if lo < minEach {
			lo = minEach
		}
		hi := base + jitter
		if maxAllowed := remaining - partsLeft*minEach; hi > maxAllowed {
			hi = maxAllowed
		}
		var p int
		if hi < lo {
			p = lo
		} else {
			p = lo + rng.Intn(hi-lo+1)
		}
		// Never strand later parts below their minimum.
		if maxAllowed := remaining - partsLeft*minEach; p > maxAllowed && maxAllowed >= minEach {
			p = maxAllowed
		}
		out = append(out, p)
		remaining -= p
	}
	out = append(out, remaining)
	return out
}
