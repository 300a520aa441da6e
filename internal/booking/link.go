package booking

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stazy/concierge/internal/intent"
)

const (
	DefaultCheckoutPath = "/checkout"
	DefaultAdults       = 2
)

// Composer builds relative deep links into the checkout flow.
type Composer struct {
	path          string
	defaultAdults int
	now           func() time.Time
}

func NewComposer(checkoutPath string, defaultAdults int) *Composer {
	if strings.TrimSpace(checkoutPath) == "" {
		checkoutPath = DefaultCheckoutPath
	}
	if defaultAdults <= 0 {
		defaultAdults = DefaultAdults
	}
	return &Composer{path: checkoutPath, defaultAdults: defaultAdults, now: time.Now}
}

// Compose returns the checkout link for target. A missing start becomes
// tomorrow and a missing end becomes start plus one night. If start cannot be
// parsed the end is left empty.
func (c *Composer) Compose(target string, dates intent.DateRange, adults *int) string {
	start := strings.TrimSpace(dates.Start)
	if start == "" {
		start = c.now().AddDate(0, 0, 1).Format(intent.DateLayout)
	}

	end := strings.TrimSpace(dates.End)
	if end == "" {
		if t, err := time.Parse(intent.DateLayout, start); err == nil {
			end = t.AddDate(0, 0, 1).Format(intent.DateLayout)
		}
	}

	n := c.defaultAdults
	if adults != nil && *adults > 0 {
		n = *adults
	}

	var b strings.Builder
	b.WriteString(c.path)
	b.WriteString("?hotelId=")
	b.WriteString(url.QueryEscape(target))
	b.WriteString("&start=")
	b.WriteString(url.QueryEscape(start))
	b.WriteString("&end=")
	b.WriteString(url.QueryEscape(end))
	b.WriteString("&adults=")
	b.WriteString(strconv.Itoa(n))
	return b.String()
}
