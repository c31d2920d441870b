package bookings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitEqual(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		n     int
		want  []float64
	}{
		{"even split", 36.00, 4, []float64{9.00, 9.00, 9.00, 9.00}},
		{"remainder to organiser", 10.00, 3, []float64{3.34, 3.33, 3.33}},
		{"single player", 25.50, 1, []float64{25.50}},
		{"two cents over", 0.05, 3, []float64{0.03, 0.01, 0.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitEqual(tt.total, tt.n)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitEqualSumsToTotal(t *testing.T) {
	totals := []float64{18.00, 22.50, 99.99, 0.01, 123.45}
	for _, total := range totals {
		for n := 1; n <= 8; n++ {
			shares := SplitEqual(total, n)
			var sum float64
			for _, s := range shares {
				sum += s
			}
			assert.InDelta(t, RoundMoney(total), RoundMoney(sum), 0.001,
				"total %.2f across %d players", total, n)
		}
	}
}

func TestSplitEqualInvalidCount(t *testing.T) {
	assert.Nil(t, SplitEqual(10.00, 0))
	assert.Nil(t, SplitEqual(10.00, -1))
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 4.50, RoundMoney(4.499999999))
	assert.Equal(t, 4.50, RoundMoney(4.5))
	assert.Equal(t, 0.01, RoundMoney(0.005))
}
