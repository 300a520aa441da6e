package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stazy/concierge/internal/intent"
)

func intPtr(v int) *int { return &v }

func fixedComposer() *Composer {
	c := NewComposer("", 0)
	c.now = func() time.Time { return time.Date(2025, 6, 9, 22, 30, 0, 0, time.UTC) }
	return c
}

func TestComposeDefaultsEndToNextDay(t *testing.T) {
	link := fixedComposer().Compose("ocean-villa", intent.DateRange{Start: "2025-06-10"}, intPtr(3))
	assert.Equal(t, "/checkout?hotelId=ocean-villa&start=2025-06-10&end=2025-06-11&adults=3", link)
}

func TestComposeMonthRollover(t *testing.T) {
	link := fixedComposer().Compose("5", intent.DateRange{Start: "2025-06-30"}, intPtr(2))
	assert.Equal(t, "/checkout?hotelId=5&start=2025-06-30&end=2025-07-01&adults=2", link)
}

func TestComposeKeepsExplicitEnd(t *testing.T) {
	link := fixedComposer().Compose("5", intent.DateRange{Start: "2025-06-10", End: "2025-06-14"}, intPtr(2))
	assert.Equal(t, "/checkout?hotelId=5&start=2025-06-10&end=2025-06-14&adults=2", link)
}

func TestComposeMissingStartIsTomorrow(t *testing.T) {
	link := fixedComposer().Compose("5", intent.DateRange{}, nil)
	assert.Equal(t, "/checkout?hotelId=5&start=2025-06-10&end=2025-06-11&adults=2", link)
}

func TestComposeUnparsableStartLeavesEndEmpty(t *testing.T) {
	link := fixedComposer().Compose("5", intent.DateRange{Start: "next friday"}, intPtr(2))
	assert.Equal(t, "/checkout?hotelId=5&start=next+friday&end=&adults=2", link)
}

func TestComposeIsIdempotent(t *testing.T) {
	c := fixedComposer()
	dates := intent.DateRange{Start: "2025-06-10"}
	assert.Equal(t, c.Compose("ocean-villa", dates, intPtr(2)), c.Compose("ocean-villa", dates, intPtr(2)))
}

func TestComposeCustomPathAndDefaultAdults(t *testing.T) {
	c := NewComposer("/booking/checkout", 1)
	link := c.Compose("villa a&b", intent.DateRange{Start: "2025-06-10"}, intPtr(0))
	assert.Equal(t, "/booking/checkout?hotelId=villa+a%26b&start=2025-06-10&end=2025-06-11&adults=1", link)
}
