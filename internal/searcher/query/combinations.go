package query

import "math"

// Combinations lazily enumerates the cross product of per-position choices,
// one concrete combination per call to Next. Enumeration runs in reverse
// order: the first combination takes the last choice at every position and
// the last position varies fastest. At most limit combinations are produced;
// limit <= 0 means no cap.
type Combinations struct {
	choices  [][]string
	limit    int
	idx      []int
	produced int
	done     bool
}

func NewCombinations(choices [][]string, limit int) *Combinations {
	c := &Combinations{choices: choices, limit: limit}
	c.Reset()
	return c
}

// Reset restarts the enumeration from the first combination.
func (c *Combinations) Reset() {
	c.idx = make([]int, len(c.choices))
	c.produced = 0
	c.done = len(c.choices) == 0
	for i, opts := range c.choices {
		if len(opts) == 0 {
			c.done = true
		}
		c.idx[i] = len(opts) - 1
	}
}

// Next returns the next combination as a fresh slice.
func (c *Combinations) Next() ([]string, bool) {
	if c.done || (c.limit > 0 && c.produced >= c.limit) {
		return nil, false
	}
	combo := make([]string, len(c.choices))
	for i, opts := range c.choices {
		combo[i] = opts[c.idx[i]]
	}
	c.produced++
	c.advance()
	return combo, true
}

func (c *Combinations) advance() {
	for i := len(c.idx) - 1; i >= 0; i-- {
		if c.idx[i] > 0 {
			c.idx[i]--
			return
		}
		c.idx[i] = len(c.choices[i]) - 1
	}
	c.done = true
}

// Count is the size of the full cross product, saturating at math.MaxInt.
func (c *Combinations) Count() int {
	if len(c.choices) == 0 {
		return 0
	}
	n := 1
	for _, opts := range c.choices {
		if len(opts) == 0 {
			return 0
		}
		if n > math.MaxInt/len(opts) {
			return math.MaxInt
		}
		n *= len(opts)
	}
	return n
}

// Truncated reports whether the cap cut the enumeration short.
func (c *Combinations) Truncated() bool {
	return c.limit > 0 && c.Count() > c.limit
}

func (c *Combinations) Produced() int {
	return c.produced
}
