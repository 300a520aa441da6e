package dialogue

import (
	"fmt"
	"strings"

	"github.com/stazy/concierge/internal/intent"
)

const greeting = "Chào bạn! Mình là Stazy AI. Mình có thể giúp bạn tìm phòng, lọc theo giá, view biển, hoặc đặt chỗ ngay lập tức. Bạn cần gì nào?"

func chatReply(passThrough string) string {
	if passThrough != "" {
		return passThrough
	}
	return greeting
}

func noResultsReply(location string) string {
	if location == "" {
		location = "đây"
	}
	return fmt.Sprintf("Rất tiếc, mình không tìm thấy phòng nào ở %s với tiêu chí này. Bạn thử đổi yêu cầu xem sao?", location)
}

func semanticResultsReply(query string, n int) string {
	return fmt.Sprintf("Dựa trên mong muốn '%s', mình tìm thấy %d nơi này cực hợp với bạn:", query, n)
}

func resultsReply(n int) string {
	return fmt.Sprintf("Mình tìm thấy %d lựa chọn tốt nhất cho bạn:", n)
}

var slotQuestions = map[intent.Slot]string{
	intent.SlotDate:   "ngày check-in và check-out",
	intent.SlotGuests: "số người lớn (và trẻ em nếu có)",
}

// clarifyReply asks for every missing slot in a single message.
func clarifyReply(missing []intent.Slot) string {
	if len(missing) == 1 && missing[0] == intent.SlotDate {
		return "Bạn dự định đi vào ngày nào? Cho mình biết ngày check-in và check-out nhé."
	}
	parts := make([]string, 0, len(missing))
	for _, slot := range missing {
		parts = append(parts, slotQuestions[slot])
	}
	return "Để đặt phòng, bạn cho mình biết thêm " + strings.Join(parts, " và ") + " nhé."
}

func bookingReply(title, start string) string {
	return fmt.Sprintf("Tuyệt vời! Mình đã chuẩn bị đơn đặt phòng tại **%s** cho ngày %s.\nBạn kiểm tra và thanh toán tại đây nhé:", title, start)
}

func unresolvedBookingReply() string {
	return "Mình chưa xác định được khách sạn bạn muốn đặt. Bạn hãy tìm kiếm trước nhé."
}

func recommendReply() string {
	return "Dựa trên sở thích của bạn, mình nghĩ bạn sẽ thích những nơi này:"
}

func noRecommendationsReply() string {
	return "Hiện mình chưa có gợi ý phù hợp. Bạn thử cho mình biết địa điểm muốn đi nhé?"
}
