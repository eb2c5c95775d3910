package textstream

// progress estimates how far a session has come, as a percentage. It is a
// display aid: it compares the current text length with the longest length
// seen in the session, or with an expected length when one is known, and
// it never decreases until reset.
type progress struct {
	expected int
	highest  int
	value    float64
}

func (p *progress) reset() {
	p.highest = 0
	p.value = 0
}

// observe updates the estimate from a snapshot.
func (p *progress) observe(s State) {
	if s.Complete {
		p.value = 100
		return
	}
	n := len(s.Text)
	if n > p.highest {
		p.highest = n
	}
	denom := max(p.highest, p.expected)
	if denom == 0 {
		return
	}
	v := min(float64(n)/float64(denom)*100, 100)
	if v > p.value {
		p.value = v
	}
}
