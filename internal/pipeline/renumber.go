package pipeline

// OffsetAccumulator implements the offset-concatenation renumbering
// policy. It is threaded through the ordered fold over the file list: each
// file's raw box indices are shifted by the running offset, and the offset
// advances to the maximum global number seen so far. The policy performs
// no reset detection; a counter reset inside one file produces colliding
// numbers that only the later routing regrouping corrects.
type OffsetAccumulator struct {
	Offset int
}

// Apply shifts one file's box sequence into the global numbering space and
// advances the offset. An empty sequence leaves the offset untouched.
func (a *OffsetAccumulator) Apply(raw []int) []int {
	if len(raw) == 0 {
		return nil
	}
	global := make([]int, len(raw))
	maxSeen := a.Offset
	for i, r := range raw {
		global[i] = r + a.Offset
		if global[i] > maxSeen {
			maxSeen = global[i]
		}
	}
	a.Offset = maxSeen
	return global
}

// ContinueThroughResets implements the reset-aware continuation policy
// over one file's raw box index column, in row order.
//
// The first row adopts its raw index. For each later row: a raw index at
// or below the previous raw index means the source's internal counter
// wrapped, and the output continues by exactly one; a raw index above the
// previous one is adopted verbatim. Raw sequence [1,2,3,1,2] therefore
// yields [1,2,3,4,2] — the row after a reset compares against the reset
// row's raw value, not against the continued output. This is not a
// duplicate detector: an out-of-order replay of an earlier index is
// indistinguishable from a genuine reset.
func ContinueThroughResets(raw []int) []int {
	if len(raw) == 0 {
		return nil
	}
	out := make([]int, len(raw))
	current := raw[0]
	lastSeen := raw[0]
	out[0] = current
	for i := 1; i < len(raw); i++ {
		if raw[i] <= lastSeen {
			current++
		} else {
			current = raw[i]
		}
		out[i] = current
		lastSeen = raw[i]
	}
	return out
}
