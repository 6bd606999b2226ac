package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(2026, time.August)
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), first)
	assert.Equal(t, time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC), last)

	// Leap year February.
	first, last = MonthBounds(2028, time.February)
	assert.Equal(t, time.Date(2028, time.February, 1, 0, 0, 0, 0, time.UTC), first)
	assert.Equal(t, time.Date(2028, time.February, 29, 0, 0, 0, 0, time.UTC), last)
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2026-08", MonthKey(2026, time.August))
	assert.Equal(t, "2026-01", MonthKey(2026, time.January))
}
