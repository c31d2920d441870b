package schedule

import "time"

// Slot is a half-open time interval [Start, End) that can be offered for booking.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Interval is a busy period on a court (an existing booking or a blackout).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the slot.
func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// SlotsFor tiles the [open, close) window with consecutive slots of the given
// duration. A slot is only emitted if it fits fully before the close time, so
// there is never a short remainder slot at the end of the day.
func SlotsFor(open, close time.Time, duration time.Duration) []Slot {
	if duration <= 0 || !open.Before(close) {
		return []Slot{}
	}

	slots := make([]Slot, 0, close.Sub(open)/duration)
	for start := open; ; start = start.Add(duration) {
		end := start.Add(duration)
		if end.After(close) {
			break
		}
		slots = append(slots, Slot{Start: start, End: end})
	}
	return slots
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back intervals (one ending exactly where
// the other begins) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Subtract removes every candidate slot that overlaps any busy interval and
// returns the remaining slots in their original order.
func Subtract(candidates []Slot, busy []Interval) []Slot {
	if len(busy) == 0 {
		return candidates
	}

	remaining := make([]Slot, 0, len(candidates))
	for _, slot := range candidates {
		free := true
		for _, b := range busy {
			if Overlaps(slot.Start, slot.End, b.Start, b.End) {
				free = false
				break
			}
		}
		if free {
			remaining = append(remaining, slot)
		}
	}
	return remaining
}
