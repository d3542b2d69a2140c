package sequence

import "math/rand"

// Picker hands out sequencing algorithms across a batch of outputs without
// early repeats: the first min(totalSlots, k) requests draw unique keys from
// one shuffled pass, later requests recycle fresh shuffles. A pick only
// advances once the caller commits it, so a failed job retries the same key.
type Picker struct {
	rng     *rand.Rand
	pass    []Algorithm
	quota   int
	served  int
	pool    []Algorithm
	current *Algorithm
}

func NewPicker(rng *rand.Rand, totalSlots int) *Picker {
	pass := shuffled(rng)
	quota := totalSlots
	if quota > len(pass) {
		quota = len(pass)
	}
	if quota < 0 {
		quota = 0
	}
	return &Picker{rng: rng, pass: pass, quota: quota}
}

// Current returns the pending algorithm, computing one if none is pending.
// Repeated calls without Commit return the same value.
func (p *Picker) Current() Algorithm {
	if p.current != nil {
		return *p.current
	}
	var a Algorithm
	if p.served < p.quota {
		a = p.pass[p.served]
	} else {
		if len(p.pool) == 0 {
			p.pool = shuffled(p.rng)
		}
		a = p.pool[0]
	}
	p.current = &a
	return a
}

// Commit marks the pending algorithm as used and advances the cursor.
func (p *Picker) Commit() {
	if p.current == nil {
		return
	}
	if p.served < p.quota {
		p.served++
	} else {
		p.pool = p.pool[1:]
	}
	p.current = nil
}

func shuffled(rng *rand.Rand) []Algorithm {
	keys := Algorithms()
	rng.Shuffle(len(keys), func(a, b int) { keys[a], keys[b] = keys[b], keys[a] })
	return keys
}
