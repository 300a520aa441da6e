package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/stazy/concierge/internal/intent"
	"github.com/stazy/concierge/internal/llm"
	"github.com/stazy/concierge/internal/memory"
)

const (
	extractToolName  = "extract_booking_intent"
	maxExtractTokens = 512

	// historyWindow is how many recent turns are rendered into the prompt.
	historyWindow = 6
)

var extractTool = &llm.Tool{
	Name:        extractToolName,
	Description: "Trích xuất thông tin tìm kiếm/đặt phòng từ tin nhắn của người dùng",
	Parameters: &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"intent_type": {
				Type:        llm.TypeString,
				Description: "SEARCH: tìm phòng, BOOK: muốn đặt/chốt phòng, RECOMMEND: nhờ gợi ý, CHAT: trò chuyện khác",
				Enum:        []string{"SEARCH", "BOOK", "RECOMMEND", "CHAT"},
			},
			"location": {
				Type:        llm.TypeString,
				Description: "Thành phố hoặc khu vực, ví dụ Đà Lạt, Nha Trang",
			},
			"price_max": {
				Type:        llm.TypeNumber,
				Description: "Giá tối đa mỗi đêm (VND). '2 triệu' có thể ghi là 2 hoặc 2000000",
			},
			"dates": {
				Type:        llm.TypeObject,
				Description: "Ngày check-in/check-out dạng YYYY-MM-DD",
				Properties: map[string]*llm.Schema{
					"start": {Type: llm.TypeString, Description: "Ngày check-in YYYY-MM-DD"},
					"end":   {Type: llm.TypeString, Description: "Ngày check-out YYYY-MM-DD"},
				},
			},
			"guests_adults": {
				Type:        llm.TypeInteger,
				Description: "Số người lớn. Bỏ trống nếu người dùng không nói",
			},
			"guests_children": {
				Type:        llm.TypeInteger,
				Description: "Số trẻ em. Bỏ trống nếu người dùng không nói",
			},
			"semantic_query": {
				Type:        llm.TypeString,
				Description: "Mô tả không khí, tiện ích, phong cách (ví dụ: view biển, yên tĩnh, lãng mạn)",
			},
			"target_hotel_name": {
				Type:        llm.TypeString,
				Description: "Tên khách sạn cụ thể mà người dùng nhắc tới, kể cả khi nhắc gián tiếp qua lịch sử",
			},
		},
		Required: []string{"intent_type"},
	},
}

type extraction struct {
	payload intent.Payload
	// text is any free-form reply the model produced instead of a tool call.
	text string
	ok   bool
}

func (m *Manager) systemPrompt(history []memory.Turn) string {
	now := m.now()
	var b strings.Builder
	fmt.Fprintf(&b, "Bạn là AI Booking Agent. Hôm nay là %s (%s).\n", now.Format(intent.DateLayout), now.Weekday())
	b.WriteString("Nhiệm vụ: phân tích tin nhắn mới nhất của người dùng và gọi công cụ extract_booking_intent.\n\n")
	b.WriteString("LỊCH SỬ TRÒ CHUYỆN:\n")
	b.WriteString(renderHistory(history))
	b.WriteString("\nQUY TẮC:\n")
	b.WriteString("1. Quy đổi ngày tương đối (hôm nay, ngày mai, cuối tuần) sang YYYY-MM-DD dựa trên ngày hôm nay.\n")
	b.WriteString("2. Nếu người dùng nhắc tới khách sạn đã gợi ý trước đó (\"cái đầu tiên\", \"cái rẻ nhất\"), điền target_hotel_name bằng tên trong lịch sử.\n")
	b.WriteString("3. Không tự đoán số khách hoặc ngày nếu người dùng chưa nói.\n")
	b.WriteString("4. Giá: '2 triệu' nghĩa là 2000000 VND.\n")
	return b.String()
}

func renderHistory(turns []memory.Turn) string {
	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}
	if len(turns) == 0 {
		return "(trống)\n"
	}
	var b strings.Builder
	for _, t := range turns {
		if t.Role == memory.RoleAssistant {
			b.WriteString("Assistant: ")
		} else {
			b.WriteString("User: ")
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
		for i, h := range t.Hotels {
			fmt.Fprintf(&b, "  %d. %s (id %s, giá %.0f)\n", i+1, h.Title, h.ID, h.Price)
		}
	}
	return b.String()
}

func (m *Manager) extract(ctx context.Context, history []memory.Turn, message string) extraction {
	ctx, span := m.tracer.Start(ctx, "dialogue.extract_intent")
	defer span.End()

	if message == "" {
		return extraction{}
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	resp, err := m.llm.Complete(callCtx, llm.Request{
		Model:       m.model,
		System:      []string{m.systemPrompt(history)},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: message}},
		MaxTokens:   maxExtractTokens,
		Temperature: m.temperature,
		Tool:        extractTool,
	})
	latency := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.ObserveLLM(m.model, status, latency.Seconds())
	m.metrics.ObserveTokens(m.model, resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)
	span.SetAttributes(
		attribute.String("llm.model", m.model),
		attribute.String("llm.status", status),
		attribute.Int64("llm.latency_ms", latency.Milliseconds()),
	)

	if err != nil {
		if errors.Is(err, llm.ErrNoToolCall) {
			return extraction{text: strings.TrimSpace(resp.Text)}
		}
		m.logger.Warn("intent extraction failed", "error", err)
		return extraction{}
	}
	if !resp.HasToolCall() {
		return extraction{text: strings.TrimSpace(resp.Text)}
	}

	payload, err := decodePayload(resp.ToolInput)
	if err != nil {
		m.logger.Warn("intent extraction returned malformed arguments", "error", err)
		return extraction{}
	}
	span.SetAttributes(attribute.String("dialogue.extracted_intent", payload.IntentType))
	return extraction{payload: payload, ok: true}
}

// toolArgs accepts the loose shapes models produce: numbers as strings,
// a flat start/end pair, or the dates object under an alternate key.
type toolArgs struct {
	IntentType      string      `json:"intent_type"`
	Dates           *dateArgs   `json:"dates"`
	DateRange       *dateArgs   `json:"date_range"`
	Location        string      `json:"location"`
	PriceMax        looseNumber `json:"price_max"`
	GuestsAdults    looseNumber `json:"guests_adults"`
	GuestsChildren  looseNumber `json:"guests_children"`
	SemanticQuery   string      `json:"semantic_query"`
	TargetHotelName string      `json:"target_hotel_name"`
}

type dateArgs struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type looseNumber struct {
	value *float64
}

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		n.value = &f
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("dialogue: invalid number %s", data)
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparseable text is treated as absent.
		return nil
	}
	n.value = &f
	return nil
}

func (n looseNumber) int() *int {
	if n.value == nil {
		return nil
	}
	v := int(*n.value)
	return &v
}

func decodePayload(raw json.RawMessage) (intent.Payload, error) {
	raw = stripCodeFences(raw)
	var args toolArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return intent.Payload{}, fmt.Errorf("dialogue: decode tool input: %w", err)
	}
	p := intent.Payload{
		IntentType:      strings.ToUpper(strings.TrimSpace(args.IntentType)),
		Location:        args.Location,
		PriceMax:        args.PriceMax.value,
		GuestsAdults:    args.GuestsAdults.int(),
		GuestsChildren:  args.GuestsChildren.int(),
		SemanticQuery:   args.SemanticQuery,
		TargetHotelName: args.TargetHotelName,
	}
	dates := args.Dates
	if dates == nil {
		dates = args.DateRange
	}
	if dates != nil && (dates.Start != "" || dates.End != "") {
		p.Dates = &intent.DateRange{Start: dates.Start, End: dates.End}
	}
	return p, nil
}

func stripCodeFences(raw json.RawMessage) json.RawMessage {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return raw
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return json.RawMessage(strings.TrimSpace(s))
}
