package scroll

import "time"

// Policy holds the heuristic thresholds. Distances are in container units
// (pixels in a browser, rows in a terminal).
type Policy struct {
	// HardBottom is the single epsilon for "at the true bottom". It clears
	// unread and suppression on scroll and marks an append as read.
	HardBottom int
	// BottomThreshold is the read zone: appends arriving within it while not
	// suppressed count as seen.
	BottomThreshold int
	// AutoScrollCap caps BottomThreshold for the auto-scroll decision.
	AutoScrollCap int

	// Upward scrolls farther than the proximity guard from the bottom latch
	// suppression. The guard is the max of these terms.
	GuardFloor            int
	GuardMin              int
	GuardViewportFraction float64

	RecentUpwardWindow time.Duration
	ImageReassert      []time.Duration
	BottomRetries      []time.Duration

	// TopEpsilon is the scrollTop at or below which the scroll fallback of
	// the top trigger fires.
	TopEpsilon int
	Debounce   time.Duration
	Cooldown   time.Duration

	IgnoreBottomFrames int
}

// DefaultPolicy returns the browser-scale defaults.
func DefaultPolicy() Policy {
	return Policy{
		HardBottom:            8,
		BottomThreshold:       50,
		AutoScrollCap:         40,
		GuardFloor:            200,
		GuardMin:              180,
		GuardViewportFraction: 0.25,
		RecentUpwardWindow:    400 * time.Millisecond,
		ImageReassert:         []time.Duration{300 * time.Millisecond, 1000 * time.Millisecond},
		BottomRetries:         []time.Duration{120 * time.Millisecond, 400 * time.Millisecond, 900 * time.Millisecond},
		TopEpsilon:            2,
		Debounce:              150 * time.Millisecond,
		Cooldown:              600 * time.Millisecond,
		IgnoreBottomFrames:    2,
	}
}

// TerminalPolicy is DefaultPolicy scaled to terminal rows.
func TerminalPolicy() Policy {
	p := DefaultPolicy()
	p.HardBottom = 0
	p.BottomThreshold = 3
	p.AutoScrollCap = 2
	p.GuardFloor = 6
	p.GuardMin = 5
	p.TopEpsilon = 0
	return p
}

// autoScrollBand is the read zone capped for the auto-scroll heuristic.
func (p Policy) autoScrollBand() int {
	return min(p.BottomThreshold, p.AutoScrollCap)
}

// proximityGuard is the distance from the bottom beyond which an upward
// scroll counts as deliberately leaving the bottom.
func (p Policy) proximityGuard(clientHeight int) int {
	fraction := int(p.GuardViewportFraction * float64(clientHeight))
	return max(p.GuardFloor, fraction, 2*p.BottomThreshold, p.GuardMin)
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.BottomThreshold < 0 {
		p.BottomThreshold = d.BottomThreshold
	}
	if p.AutoScrollCap <= 0 {
		p.AutoScrollCap = p.BottomThreshold
	}
	if p.HardBottom < 0 {
		p.HardBottom = 0
	}
	if p.RecentUpwardWindow <= 0 {
		p.RecentUpwardWindow = d.RecentUpwardWindow
	}
	if p.Debounce < 0 {
		p.Debounce = 0
	}
	if p.Cooldown < 0 {
		p.Cooldown = 0
	}
	if p.IgnoreBottomFrames < 0 {
		p.IgnoreBottomFrames = 0
	}
	return p
}
