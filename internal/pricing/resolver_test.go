package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 2025-03-10.
func monday(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", "2025-03-10 "+hhmm)
	require.NoError(t, err)
	return parsed
}

func rules() []Rule {
	return []Rule{
		{Label: "weekday-morning", DayOfWeek: time.Monday, StartMinute: 7 * 60, EndMinute: 12 * 60, Price: 24},
		{Label: "weekday-peak", DayOfWeek: time.Monday, StartMinute: 17 * 60, EndMinute: 22 * 60, Price: 40},
		{Label: "tuesday-peak", DayOfWeek: time.Tuesday, StartMinute: 17 * 60, EndMinute: 22 * 60, Price: 38},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		wantPrice float64
		wantLabel string
	}{
		{"inside morning window", "09:00", 24, "weekday-morning"},
		{"window start is inclusive", "07:00", 24, "weekday-morning"},
		{"window end is exclusive", "12:00", 18, ""},
		{"peak window", "18:30", 40, "weekday-peak"},
		{"gap between windows falls back to off-peak", "14:00", 18, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, label := Resolve(rules(), 18, monday(t, tt.start))
			assert.Equal(t, tt.wantPrice, price)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}

func TestResolveIgnoresOtherWeekdays(t *testing.T) {
	// Monday 18:30 must not match the Tuesday rule even though the window fits.
	price, label := Resolve([]Rule{
		{Label: "tuesday-peak", DayOfWeek: time.Tuesday, StartMinute: 17 * 60, EndMinute: 22 * 60, Price: 38},
	}, 18, monday(t, "18:30"))
	assert.Equal(t, 18.0, price)
	assert.Empty(t, label)
}

func TestResolveTieBreaksSmallestWindowThenLowestPrice(t *testing.T) {
	overlapping := []Rule{
		{Label: "all-day", DayOfWeek: time.Monday, StartMinute: 0, EndMinute: 24 * 60, Price: 30},
		{Label: "evening", DayOfWeek: time.Monday, StartMinute: 17 * 60, EndMinute: 22 * 60, Price: 42},
	}
	price, label := Resolve(overlapping, 18, monday(t, "18:00"))
	assert.Equal(t, 42.0, price, "smaller window wins over the broader one")
	assert.Equal(t, "evening", label)

	sameWidth := []Rule{
		{Label: "a", DayOfWeek: time.Monday, StartMinute: 17 * 60, EndMinute: 22 * 60, Price: 42},
		{Label: "b", DayOfWeek: time.Monday, StartMinute: 17 * 60, EndMinute: 22 * 60, Price: 36},
	}
	price, label = Resolve(sameWidth, 18, monday(t, "18:00"))
	assert.Equal(t, 36.0, price, "equal windows tie-break to the lowest price")
	assert.Equal(t, "b", label)
}

// Resolution must be total: any slot inside operating hours gets a defined
// price, at worst the fallback.
func TestResolveIsTotalAcrossTheWeek(t *testing.T) {
	base, err := time.Parse("2006-01-02", "2025-03-10")
	require.NoError(t, err)

	for d := 0; d < 7; d++ {
		for minute := 0; minute < 24*60; minute += 30 {
			start := base.AddDate(0, 0, d).Add(time.Duration(minute) * time.Minute)
			price, _ := Resolve(rules(), 18, start)
			assert.Greater(t, price, 0.0, "no defined price at %s", start)
		}
	}
}

func TestSurcharge(t *testing.T) {
	daylightEnd := 18 * 60

	assert.Equal(t, 5.0, Surcharge(true, 5, monday(t, "19:00"), daylightEnd))
	assert.Equal(t, 5.0, Surcharge(true, 5, monday(t, "18:00"), daylightEnd), "threshold itself is after daylight")
	assert.Zero(t, Surcharge(true, 5, monday(t, "10:00"), daylightEnd))
	assert.Zero(t, Surcharge(false, 5, monday(t, "19:00"), daylightEnd), "unlit court never charges")
	assert.Zero(t, Surcharge(true, 0, monday(t, "19:00"), daylightEnd))
}

func TestQuoteSlot(t *testing.T) {
	q := QuoteSlot(rules(), 18, true, 5, monday(t, "18:30"), 18*60)
	assert.Equal(t, 40.0, q.BasePrice)
	assert.Equal(t, 5.0, q.LightingSurcharge)
	assert.Equal(t, 45.0, q.Total)
	assert.Equal(t, "weekday-peak", q.RuleLabel)
}

func TestValidateRules(t *testing.T) {
	assert.NoError(t, ValidateRules(rules()))

	err := ValidateRules([]Rule{
		{Label: "a", DayOfWeek: time.Monday, StartMinute: 9 * 60, EndMinute: 12 * 60, Price: 20},
		{Label: "b", DayOfWeek: time.Monday, StartMinute: 11 * 60, EndMinute: 14 * 60, Price: 25},
	})
	assert.ErrorIs(t, err, ErrConfiguration)

	// Same windows on different days never conflict.
	assert.NoError(t, ValidateRules([]Rule{
		{Label: "a", DayOfWeek: time.Monday, StartMinute: 9 * 60, EndMinute: 12 * 60, Price: 20},
		{Label: "b", DayOfWeek: time.Tuesday, StartMinute: 9 * 60, EndMinute: 12 * 60, Price: 25},
	}))

	err = ValidateRules([]Rule{{Label: "empty", DayOfWeek: time.Monday, StartMinute: 600, EndMinute: 600}})
	assert.ErrorIs(t, err, ErrConfiguration)
}
