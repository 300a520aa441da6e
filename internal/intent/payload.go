package intent

import "strings"

// Payload is the flat wire shape exchanged with the language-understanding
// collaborator and echoed back to the front end.
type Payload struct {
	IntentType      string     `json:"intent_type"`
	Dates           *DateRange `json:"dates,omitempty"`
	Location        string     `json:"location,omitempty"`
	PriceMax        *float64   `json:"price_max,omitempty"`
	GuestsAdults    *int       `json:"guests_adults,omitempty"`
	GuestsChildren  *int       `json:"guests_children,omitempty"`
	SemanticQuery   string     `json:"semantic_query,omitempty"`
	TargetHotelName string     `json:"target_hotel_name,omitempty"`
}

// Normalize validates a payload into its tagged variant. Prices are scaled,
// text is trimmed, negative counts are dropped and unknown intent types fall
// back to CHAT. Guest counts are never defaulted here.
func Normalize(p Payload) Intent {
	criteria := Criteria{
		Location:        strings.TrimSpace(p.Location),
		PriceMax:        NormalizePrice(p.PriceMax),
		SemanticQuery:   strings.TrimSpace(p.SemanticQuery),
		TargetHotelName: strings.TrimSpace(p.TargetHotelName),
	}

	switch ParseType(p.IntentType) {
	case TypeSearch:
		return Search{Criteria: criteria}
	case TypeBook:
		book := Book{
			Criteria:       criteria,
			GuestsAdults:   positiveCount(p.GuestsAdults),
			GuestsChildren: nonNegativeCount(p.GuestsChildren),
		}
		if p.Dates != nil {
			book.Dates = DateRange{
				Start: NormalizeDate(p.Dates.Start),
				End:   NormalizeDate(p.Dates.End),
			}
		}
		return book
	case TypeRecommend:
		return Recommend{}
	default:
		return Chat{}
	}
}

// ToPayload flattens an Intent for the response "intent" dump.
func ToPayload(in Intent) Payload {
	if in == nil {
		return Payload{IntentType: string(TypeChat)}
	}
	p := Payload{IntentType: string(in.Type())}
	switch v := in.(type) {
	case Search:
		p.applyCriteria(v.Criteria)
	case Book:
		p.applyCriteria(v.Criteria)
		if v.Dates.Start != "" || v.Dates.End != "" {
			dates := v.Dates
			p.Dates = &dates
		}
		p.GuestsAdults = v.GuestsAdults
		p.GuestsChildren = v.GuestsChildren
	}
	return p
}

func (p *Payload) applyCriteria(c Criteria) {
	p.Location = c.Location
	p.PriceMax = c.PriceMax
	p.SemanticQuery = c.SemanticQuery
	p.TargetHotelName = c.TargetHotelName
}

func positiveCount(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	out := *v
	return &out
}

func nonNegativeCount(v *int) *int {
	if v == nil || *v < 0 {
		return nil
	}
	out := *v
	return &out
}
