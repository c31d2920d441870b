package pricing

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfiguration indicates a broken pricing configuration (overlapping rules
// on the same day). It is surfaced to the caller rather than guessed around.
var ErrConfiguration = errors.New("pricing configuration error")

// Rule is a club pricing window: a slot whose start time falls inside
// [StartMinute, EndMinute) on DayOfWeek is charged Price.
type Rule struct {
	Label       string
	DayOfWeek   time.Weekday
	StartMinute int // minutes since midnight, inclusive
	EndMinute   int // minutes since midnight, exclusive
	Price       float64
}

// Quote is the outcome of pricing a single slot.
type Quote struct {
	BasePrice         float64 `json:"base_price"`
	LightingSurcharge float64 `json:"lighting_surcharge"`
	Total             float64 `json:"total"`
	RuleLabel         string  `json:"rule_label,omitempty"`
}

// MinuteOfDay converts a wall-clock instant to minutes since midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Resolve picks the price for a slot starting at slotStart. Rules are filtered
// by weekday, then the rule whose window contains the slot start wins. When a
// misconfiguration leaves several matching rules, the smallest window wins and
// ties break to the lowest price, which is the conservative choice for the
// player. When no rule matches, fallback (the club's off-peak price) is used.
func Resolve(rules []Rule, fallback float64, slotStart time.Time) (float64, string) {
	minute := MinuteOfDay(slotStart)
	dow := slotStart.Weekday()

	var best *Rule
	for i := range rules {
		r := &rules[i]
		if r.DayOfWeek != dow {
			continue
		}
		if minute < r.StartMinute || minute >= r.EndMinute {
			continue
		}
		if best == nil {
			best = r
			continue
		}
		bestWidth := best.EndMinute - best.StartMinute
		width := r.EndMinute - r.StartMinute
		if width < bestWidth || (width == bestWidth && r.Price < best.Price) {
			best = r
		}
	}

	if best == nil {
		return fallback, ""
	}
	return best.Price, best.Label
}

// Surcharge returns the lighting surcharge for a slot: lit courts charge extra
// when the slot starts at or after the daylight threshold (a plain time-of-day
// comparison, no astronomy).
func Surcharge(hasLighting bool, surcharge float64, slotStart time.Time, daylightEndMinute int) float64 {
	if !hasLighting || surcharge <= 0 {
		return 0
	}
	if MinuteOfDay(slotStart) >= daylightEndMinute {
		return surcharge
	}
	return 0
}

// QuoteSlot combines base price resolution with the lighting surcharge.
func QuoteSlot(rules []Rule, fallback float64, hasLighting bool, lightingSurcharge float64,
	slotStart time.Time, daylightEndMinute int) Quote {

	base, label := Resolve(rules, fallback, slotStart)
	extra := Surcharge(hasLighting, lightingSurcharge, slotStart, daylightEndMinute)
	return Quote{
		BasePrice:         base,
		LightingSurcharge: extra,
		Total:             base + extra,
		RuleLabel:         label,
	}
}

// ValidateRules rejects configurations where two rules for the same day
// overlap. Validation runs when staff replace a club's pricing rules, so a
// broken set is reported up front instead of being tie-broken at booking time.
func ValidateRules(rules []Rule) error {
	for i := range rules {
		if rules[i].StartMinute >= rules[i].EndMinute {
			return fmt.Errorf("%w: rule %q has an empty window", ErrConfiguration, rules[i].Label)
		}
		for j := i + 1; j < len(rules); j++ {
			if rules[i].DayOfWeek != rules[j].DayOfWeek {
				continue
			}
			if rules[i].StartMinute < rules[j].EndMinute && rules[j].StartMinute < rules[i].EndMinute {
				return fmt.Errorf("%w: rules %q and %q overlap on %s",
					ErrConfiguration, rules[i].Label, rules[j].Label, rules[i].DayOfWeek)
			}
		}
	}
	return nil
}
