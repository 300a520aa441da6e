package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stazy/concierge/internal/catalog"
	"github.com/stazy/concierge/internal/dialogue"
	"github.com/stazy/concierge/internal/interactions"
	"github.com/stazy/concierge/internal/intent"
	"github.com/stazy/concierge/internal/memory"
	"github.com/stazy/concierge/internal/recommend"
	"github.com/stazy/concierge/internal/retrieval"
)

type stubTurns struct {
	got  dialogue.Turn
	resp dialogue.Response
}

func (s *stubTurns) HandleTurn(ctx context.Context, t dialogue.Turn) dialogue.Response {
	s.got = t
	return s.resp
}

type stubSearcher struct {
	got string
	res retrieval.Result
}

func (s *stubSearcher) SearchText(ctx context.Context, description string) retrieval.Result {
	s.got = description
	return s.res
}

type stubRecommender struct {
	gotUser string
	gotK    int
	res     recommend.Result
	err     error
}

func (s *stubRecommender) Recommend(ctx context.Context, userID string, topK int) (recommend.Result, error) {
	s.gotUser, s.gotK = userID, topK
	return s.res, s.err
}

type stubRecorder struct {
	calls   int
	hotelID int64
	err     error
}

func (s *stubRecorder) Record(ctx context.Context, userID string, hotelID int64, action string) (interactions.Interaction, error) {
	s.calls++
	s.hotelID = hotelID
	if s.err != nil {
		return interactions.Interaction{}, s.err
	}
	a := interactions.ParseAction(action)
	return interactions.Interaction{UserID: userID, HotelID: hotelID, Action: a, Weight: a.Weight()}, nil
}

type fixedCount int

func (c fixedCount) Len() int { return int(c) }

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestChatHandlerResponseShape(t *testing.T) {
	link := "/checkout?hotelId=ocean-villa&start=2026-03-11&end=2026-03-12&adults=2"
	turns := &stubTurns{resp: dialogue.Response{
		AgentResponse: "ok",
		Intent:        intent.Payload{IntentType: "BOOK"},
		Data: dialogue.Data{
			Hotels:      []catalog.Summary{{ID: "ocean-villa", Title: "Ocean Villa"}},
			BookingLink: &link,
		},
	}}
	h := NewChatHandler(turns, nil)

	rec := postJSON(t, h.Chat, "/agent/chat", `{"message":" chốt đi ","history":[{"sender":"user","text":"Nha Trang"},{"sender":"bot","text":"Có 2 nơi"},{"sender":"bot","text":"  "}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "guest", turns.got.UserID)
	assert.Equal(t, "chốt đi", turns.got.Message)
	require.Len(t, turns.got.History, 2)
	assert.Equal(t, memory.RoleAssistant, turns.got.History[1].Role)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["agent_response"])
	assert.Equal(t, "BOOK", body["intent"].(map[string]any)["intent_type"])
	data := body["data"].(map[string]any)
	assert.Equal(t, link, data["booking_link"])
	assert.Len(t, data["hotels"], 1)
}

func TestChatHandlerNullBookingLink(t *testing.T) {
	turns := &stubTurns{resp: dialogue.Response{AgentResponse: "hi", Data: dialogue.Data{Hotels: []catalog.Summary{}}}}
	h := NewChatHandler(turns, nil)

	rec := postJSON(t, h.Chat, "/agent/chat", `{"message":"xin chào","user_id":"u1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"booking_link":null`)
	assert.Contains(t, rec.Body.String(), `"hotels":[]`)
	assert.Equal(t, "u1", turns.got.UserID)
}

func TestChatHandlerRejectsMissingMessage(t *testing.T) {
	h := NewChatHandler(&stubTurns{}, nil)

	rec := postJSON(t, h.Chat, "/agent/chat", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.Chat, "/agent/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchByText(t *testing.T) {
	s := &stubSearcher{res: retrieval.Result{Status: retrieval.StatusOK, Items: []catalog.Item{{ID: 5, Title: "Ocean Villa"}}}}
	h := NewSearchHandler(s, nil)

	rec := postJSON(t, h.SearchByText, "/search-by-text", `{"description":"villa ven biển có hồ bơi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "villa ven biển có hồ bơi", s.got)
	var items []catalog.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "5", items[0].ID)
}

func TestSearchByTextFailureReturnsEmptyList(t *testing.T) {
	s := &stubSearcher{res: retrieval.Result{Status: retrieval.StatusFailed, Err: errors.New("db down")}}
	h := NewSearchHandler(s, nil)

	rec := postJSON(t, h.SearchByText, "/search-by-text", `{"description":"yên tĩnh"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSearchByTextMissingDescription(t *testing.T) {
	h := NewSearchHandler(&stubSearcher{}, nil)
	rec := postJSON(t, h.SearchByText, "/search-by-text", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing description")
}

func recommendRequest(h *RecommendHandler, userID, query string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/recommend/{user_id}", h.Recommend)
	req := httptest.NewRequest(http.MethodGet, "/recommend/"+userID+query, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRecommendHandler(t *testing.T) {
	s := &stubRecommender{res: recommend.Result{Tier: recommend.TierPreference, Items: []catalog.Item{{ID: 3}, {ID: 7}}}}
	h := NewRecommendHandler(s, 5, nil)

	rec := recommendRequest(h, "u1", "?top_k=3")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", s.gotUser)
	assert.Equal(t, 3, s.gotK)
	assert.Equal(t, "preference", rec.Header().Get("X-Recommend-Tier"))
	var items []catalog.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	rec = recommendRequest(h, "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, s.gotK)

	rec = recommendRequest(h, "u1", "?top_k=1000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxTopK, s.gotK)
}

func TestRecommendHandlerErrors(t *testing.T) {
	h := NewRecommendHandler(&stubRecommender{}, 5, nil)
	assert.Equal(t, http.StatusBadRequest, recommendRequest(h, "u1", "?top_k=abc").Code)

	h = NewRecommendHandler(&stubRecommender{err: errors.New("catalog down")}, 5, nil)
	assert.Equal(t, http.StatusInternalServerError, recommendRequest(h, "u1", "").Code)
}

func TestInteractionHandler(t *testing.T) {
	rec := &stubRecorder{}
	h := NewInteractionHandler(rec, nil)

	resp := postJSON(t, h.Track, "/interactions", `{"user_id":"u1","hotel_id":"42","action":"like"}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(42), rec.hotelID)
	assert.JSONEq(t, `{"message":"recorded","action":"LIKE","weight":3}`, resp.Body.String())
}

func TestInteractionHandlerIgnoresFailures(t *testing.T) {
	cases := map[string]struct {
		recorder InteractionRecorder
		body     string
	}{
		"store error":   {&stubRecorder{err: errors.New("insert failed")}, `{"user_id":"u1","hotel_id":1,"action":"BOOK"}`},
		"missing hotel": {&stubRecorder{}, `{"user_id":"u1","action":"VIEW"}`},
		"bad hotel":     {&stubRecorder{}, `{"user_id":"u1","hotel_id":"abc"}`},
		"bad json":      {&stubRecorder{}, `{`},
		"no store":      {nil, `{"user_id":"u1","hotel_id":1}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewInteractionHandler(tc.recorder, nil)
			resp := postJSON(t, h.Track, "/interactions", tc.body)
			assert.Equal(t, http.StatusOK, resp.Code)
			assert.JSONEq(t, `{"message":"ignored"}`, resp.Body.String())
		})
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(fixedCount(12))(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"online","service":"Stazy Search Service","catalog_items":12}`, rec.Body.String())
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	jsonError(rec, "oops", http.StatusTeapot)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"oops"}`, rec.Body.String())
}
