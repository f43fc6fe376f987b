package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeriodAmounts(t *testing.T) {
	tests := []struct {
		yearly  int64
		monthly int64
		weekly  int64
	}{
		{500000, 41667, 9615},
		{120000, 10000, 2308},
		{0, 0, 0},
		{12, 1, 0},
		{26, 2, 1},
	}

	for _, tt := range tests {
		monthly, weekly := PeriodAmounts(tt.yearly)
		assert.Equal(t, tt.monthly, monthly, "monthly for %d", tt.yearly)
		assert.Equal(t, tt.weekly, weekly, "weekly for %d", tt.yearly)
	}
}

func TestRoundDivHalfUp(t *testing.T) {
	assert.Equal(t, int64(1), RoundDiv(6, 12))
	assert.Equal(t, int64(0), RoundDiv(5, 12))
	assert.Equal(t, int64(0), RoundDiv(10, 0))
}
