// Package intent defines the structured shape of a conversational turn and the
// validation rules applied to whatever the language-understanding step returns.
package intent

import (
	"strings"
	"time"
)

// Type classifies a turn. Exactly one is active per turn.
type Type string

const (
	TypeSearch    Type = "SEARCH"
	TypeBook      Type = "BOOK"
	TypeRecommend Type = "RECOMMEND"
	TypeChat      Type = "CHAT"
)

// Types lists every supported intent category in schema order.
var Types = []Type{TypeSearch, TypeBook, TypeRecommend, TypeChat}

// ParseType maps free text onto a Type. Unknown or empty values become CHAT.
func ParseType(s string) Type {
	switch Type(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeSearch:
		return TypeSearch
	case TypeBook:
		return TypeBook
	case TypeRecommend:
		return TypeRecommend
	default:
		return TypeChat
	}
}

// DateLayout is the calendar date format used on the wire and in booking links.
const DateLayout = "2006-01-02"

// MillionsThreshold is the magnitude below which a price is read as "millions".
// Users type both "2" (triệu) and "2000000".
const MillionsThreshold = 1000

// DateRange is an optional check-in/check-out pair; either side may be empty.
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Criteria are the retrieval-relevant slots shared by SEARCH and BOOK.
type Criteria struct {
	Location        string   `json:"location,omitempty"`
	PriceMax        *float64 `json:"price_max,omitempty"`
	SemanticQuery   string   `json:"semantic_query,omitempty"`
	TargetHotelName string   `json:"target_hotel_name,omitempty"`
}

// HasTarget reports whether a specific property was named.
func (c Criteria) HasTarget() bool {
	return strings.TrimSpace(c.TargetHotelName) != ""
}

// HasContextCue reports whether the turn carries its own location or ambience cue.
func (c Criteria) HasContextCue() bool {
	return strings.TrimSpace(c.Location) != "" || strings.TrimSpace(c.SemanticQuery) != ""
}

// Intent is the tagged variant produced by Normalize.
type Intent interface {
	Type() Type
	isIntent()
}

// Search asks for matching inventory.
type Search struct {
	Criteria
}

// Book asks to reserve a property and needs dates plus guests before a link is built.
type Book struct {
	Criteria
	Dates          DateRange
	GuestsAdults   *int
	GuestsChildren *int
}

// Recommend asks for personalized suggestions.
type Recommend struct{}

// Chat is small talk or anything that could not be classified.
type Chat struct{}

func (Search) Type() Type    { return TypeSearch }
func (Book) Type() Type      { return TypeBook }
func (Recommend) Type() Type { return TypeRecommend }
func (Chat) Type() Type      { return TypeChat }

func (Search) isIntent()    {}
func (Book) isIntent()      {}
func (Recommend) isIntent() {}
func (Chat) isIntent()      {}

// Slot names a BOOK field that must be present before retrieval runs.
type Slot string

const (
	SlotDate   Slot = "date"
	SlotGuests Slot = "guests"
)

// State is the BOOK slot-filling state.
type State string

const (
	StateMissingDate   State = "MISSING_DATE"
	StateMissingGuests State = "MISSING_GUESTS"
	StateReady         State = "READY"
)

// MissingSlots evaluates both checks and returns every unmet slot.
func (b Book) MissingSlots() []Slot {
	var missing []Slot
	if strings.TrimSpace(b.Dates.Start) == "" {
		missing = append(missing, SlotDate)
	}
	if b.GuestsAdults == nil {
		missing = append(missing, SlotGuests)
	}
	return missing
}

// State returns the first unmet state, or READY.
func (b Book) State() State {
	for _, slot := range b.MissingSlots() {
		switch slot {
		case SlotDate:
			return StateMissingDate
		case SlotGuests:
			return StateMissingGuests
		}
	}
	return StateReady
}

// NormalizePrice scales values typed in millions. Non-positive values are dropped.
func NormalizePrice(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	out := *v
	if out < MillionsThreshold {
		out *= 1_000_000
	}
	return &out
}

var dateLayouts = []string{DateLayout, "02/01/2006", "2/1/2006", "02-01-2006", "2006/01/02"}

// NormalizeDate rewrites recognised layouts (ISO and day-first) to YYYY-MM-DD.
// Unparsable input is returned trimmed so later stages can decide what to do.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout)
		}
	}
	return s
}
