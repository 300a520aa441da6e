package dialogue

import (
	"regexp"
	"strings"
	"time"

	"github.com/stazy/concierge/internal/catalog"
	"github.com/stazy/concierge/internal/intent"
	"github.com/stazy/concierge/internal/memory"
)

type selector int

const (
	selectNone selector = iota
	selectCheapest
	selectPriciest
	selectTopRated
	selectOrdinal
	selectLast
	selectReferent
)

var superlativeCues = []struct {
	sel     selector
	phrases []string
}{
	{selectCheapest, []string{"rẻ nhất", "giá thấp nhất", "cheapest", "lowest price"}},
	{selectPriciest, []string{"đắt nhất", "mắc nhất", "giá cao nhất", "most expensive"}},
	{selectTopRated, []string{"đánh giá cao nhất", "điểm cao nhất", "highest rated", "best rated", "top rated"}},
}

// ordinalWords maps spoken ordinals to 1-based positions. Bare "thứ hai" is a
// weekday in Vietnamese, so those only count after a noun like "cái".
var ordinalWords = map[string]int{
	"nhất": 1, "1": 1,
	"hai": 2, "2": 2,
	"ba": 3, "3": 3,
	"tư": 4, "bốn": 4, "4": 4,
	"năm": 5, "5": 5,
}

var englishOrdinals = map[string]int{
	"first": 1, "1st": 1,
	"second": 2, "2nd": 2,
	"third": 3, "3rd": 3,
	"fourth": 4, "4th": 4,
	"fifth": 5, "5th": 5,
}

var (
	nounOrdinalRe = regexp.MustCompile(`(?:cái|chỗ|căn|khách sạn|nơi|phòng|lựa chọn|số)\s+(?:thứ\s+|số\s+)?(nhất|hai|ba|tư|bốn|năm|[1-5])(?:\s|$|[.,!?])`)
	englishOrdRe  = regexp.MustCompile(`\b(first|second|third|fourth|fifth|1st|2nd|3rd|4th|5th)\b`)
	referentRe    = regexp.MustCompile(`(?:cái|chỗ|nơi|khách sạn|căn)\s+(?:đó|này|ấy|kia)|\b(?:that one|this one)\b`)

	// A count followed by a unit is a quantity, not a position:
	// "phòng 2 người", "khách sạn 5 sao", "phòng 3 đêm".
	unitAfterNumberRe = regexp.MustCompile(`^\s*(?:người|khách|sao|đêm|ngày|tuần|tháng|phòng|giường|trẻ|bé|triệu|trăm|nghìn|ngàn|k\b|star|people|persons?|guests?|adults?|nights?|days?|beds?|rooms?)`)
)

// nounOrdinal finds the first "<noun> [thứ|số] <n>" reference that is not
// a quantity.
func nounOrdinal(t string) (int, bool) {
	for _, m := range nounOrdinalRe.FindAllStringSubmatchIndex(t, -1) {
		if unitAfterNumberRe.MatchString(t[m[3]:]) {
			continue
		}
		return ordinalWords[t[m[2]:m[3]]], true
	}
	return 0, false
}

// selection parses an ambiguous reference to previously shown hotels.
func selection(text string) (selector, int) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return selectNone, 0
	}
	for _, cue := range superlativeCues {
		for _, p := range cue.phrases {
			if strings.Contains(t, p) {
				return cue.sel, 0
			}
		}
	}
	if strings.Contains(t, "đầu tiên") {
		return selectOrdinal, 1
	}
	if strings.Contains(t, "cuối cùng") || strings.Contains(t, "last one") {
		return selectLast, 0
	}
	if pos, ok := nounOrdinal(t); ok {
		return selectOrdinal, pos
	}
	if m := englishOrdRe.FindStringSubmatch(t); m != nil {
		return selectOrdinal, englishOrdinals[m[1]]
	}
	if referentRe.MatchString(t) {
		return selectReferent, 0
	}
	return selectNone, 0
}

func pick(sel selector, pos int, shown []memory.SurfacedHotel) (memory.SurfacedHotel, bool) {
	if len(shown) == 0 {
		return memory.SurfacedHotel{}, false
	}
	switch sel {
	case selectCheapest:
		best := shown[0]
		for _, h := range shown[1:] {
			if h.Price < best.Price {
				best = h
			}
		}
		return best, true
	case selectPriciest:
		best := shown[0]
		for _, h := range shown[1:] {
			if h.Price > best.Price {
				best = h
			}
		}
		return best, true
	case selectTopRated:
		best := shown[0]
		for _, h := range shown[1:] {
			if h.Rating > best.Rating {
				best = h
			}
		}
		return best, true
	case selectOrdinal:
		if pos < 1 || pos > len(shown) {
			return memory.SurfacedHotel{}, false
		}
		return shown[pos-1], true
	case selectLast:
		return shown[len(shown)-1], true
	case selectReferent:
		if len(shown) == 1 {
			return shown[0], true
		}
	}
	return memory.SurfacedHotel{}, false
}

// resolveContext fills target_hotel_name from the last surfaced result set
// when the user refers to it indirectly. An explicit location or semantic
// cue means a fresh search, so nothing is inherited. The returned id is the
// stable id of the shown hotel the reference resolved to, if any.
func (m *Manager) resolveContext(in intent.Intent, message string, shown []memory.SurfacedHotel) (intent.Intent, string) {
	switch v := in.(type) {
	case intent.Search:
		v.Criteria, _ = resolveCriteria(v.Criteria, message, shown, nil)
		return v, ""
	case intent.Book:
		var picked string
		v.Criteria, picked = resolveCriteria(v.Criteria, message, shown, m.bookDefault)
		if v.Dates.Start == "" {
			if d, ok := relativeDay(message, m.now()); ok {
				v.Dates.Start = d
			}
		}
		return v, picked
	}
	return in, ""
}

func resolveCriteria(c intent.Criteria, message string, shown []memory.SurfacedHotel, fallback func([]memory.SurfacedHotel) (memory.SurfacedHotel, bool)) (intent.Criteria, string) {
	// A model may echo the cue itself ("cái rẻ nhất") as the hotel name.
	targetSel, targetPos := selection(c.TargetHotelName)
	if c.HasTarget() && targetSel == selectNone {
		return c, ""
	}
	if c.HasContextCue() || len(shown) == 0 {
		if targetSel != selectNone {
			c.TargetHotelName = ""
		}
		return c, ""
	}

	sel, pos := targetSel, targetPos
	if sel == selectNone {
		sel, pos = selection(message)
	}
	if h, ok := pick(sel, pos, shown); ok {
		c.TargetHotelName = h.Title
		return c, h.ID
	}
	c.TargetHotelName = ""
	if fallback != nil {
		if h, ok := fallback(shown); ok {
			c.TargetHotelName = h.Title
			return c, h.ID
		}
	}
	return c, ""
}

// bookDefault picks among the shown hotels by the booking tie-break order.
func (m *Manager) bookDefault(shown []memory.SurfacedHotel) (memory.SurfacedHotel, bool) {
	if len(shown) == 1 {
		return shown[0], true
	}
	switch m.policy.BookOrder {
	case catalog.OrderRatingDesc:
		return pick(selectTopRated, 0, shown)
	default:
		return pick(selectCheapest, 0, shown)
	}
}

var relativeDays = []struct {
	phrase string
	offset int
}{
	{"ngày kia", 2},
	{"ngày mốt", 2},
	{"day after tomorrow", 2},
	{"ngày mai", 1},
	{"tomorrow", 1},
	{"hôm nay", 0},
	{"tối nay", 0},
	{"today", 0},
	{"tonight", 0},
}

// relativeDay resolves spoken day offsets against now.
func relativeDay(message string, now time.Time) (string, bool) {
	t := strings.ToLower(message)
	for _, rd := range relativeDays {
		if strings.Contains(t, rd.phrase) {
			return now.AddDate(0, 0, rd.offset).Format(intent.DateLayout), true
		}
	}
	return "", false
}
