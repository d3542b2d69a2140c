package partition

import "github.com/almikh/pmvgen/internal/types"

// Guard computes the usable window of a source, keeping clips away from its
// head and tail. Guarding is inactive when the source is too short to carry
// both margins; the whole duration stays usable then.
func Guard(duration, headGuard, tailGuard int) types.GuardWindow {
	if duration <= headGuard+tailGuard {
		return types.GuardWindow{Active: false, Start: 0, End: duration}
	}
	start := headGuard
	end := duration - tailGuard
	if end < start+1 {
		end = start + 1
	}
	if end > duration {
		end = duration
	}
	return types.GuardWindow{Active: true, Start: start, End: end}
}
