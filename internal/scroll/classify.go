package scroll

import "slices"

// Classification describes how one snapshot of the list became the next.
type Classification struct {
	DidPrepend     bool
	PrependedCount int
	DidAppend      bool
	AppendedCount  int
	Reset          bool
}

// Unchanged reports whether nothing was classified as added or reset.
func (c Classification) Unchanged() bool {
	return !c.DidPrepend && !c.DidAppend && !c.Reset
}

// PurePrepend reports a prepend with no simultaneous append.
func (c Classification) PurePrepend() bool {
	return c.DidPrepend && !c.DidAppend && !c.Reset
}

// Classify compares two id snapshots. Anything that is not exactly a
// prefix insertion or a suffix insertion is a reset.
func Classify(prev, next []string) Classification {
	if len(prev) == 0 {
		if len(next) == 0 {
			return Classification{}
		}
		return Classification{Reset: true}
	}
	if len(next) == len(prev) && next[0] == prev[0] && next[len(next)-1] == prev[len(prev)-1] {
		if slices.Equal(prev, next) {
			return Classification{}
		}
		return Classification{Reset: true}
	}
	if len(next) <= len(prev) {
		return Classification{Reset: true}
	}

	added := len(next) - len(prev)
	firstSame := next[0] == prev[0]
	lastSame := next[len(next)-1] == prev[len(prev)-1]

	switch {
	case lastSame && !firstSame:
		if slices.Equal(next[added:], prev) {
			return Classification{DidPrepend: true, PrependedCount: added}
		}
	case firstSame && !lastSame:
		if slices.Equal(next[:len(prev)], prev) {
			return Classification{DidAppend: true, AppendedCount: added}
		}
	}
	return Classification{Reset: true}
}

// ClassifyItems is Classify over item snapshots.
func ClassifyItems(prev, next []Item) Classification {
	return Classify(idsOf(prev), idsOf(next))
}
