package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/session"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/health"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/feed"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/memory"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/sqlite"
)

var testNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *EventHub) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("Open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	deck := []domain.Candidate{
		{ID: "JPM", Name: "JPMorgan", Sector: "Financials", MarketCap: decimal.New(500, 9), PERatio: 12, DividendYield: 2.4},
		{ID: "NVDA", Name: "Nvidia", Sector: "Technology", MarketCap: decimal.New(3, 12), PERatio: 60},
	}
	hub := NewEventHub()
	t.Cleanup(hub.Close)

	mgr, err := session.NewManager(session.Deps{
		Store:     db,
		Source:    feed.NewStaticSource(deck),
		Publisher: hub,
	}, session.Config{Now: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return NewServer(mgr, hub), hub
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	decode(t, w, &body)
	if body.Error.Type != "error" {
		t.Errorf("error.type = %q, want \"error\"", body.Error.Type)
	}
	return body.Error.Message
}

// ─── Health & Version ───────────────────────────────────────────────────────

func TestAPI_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAPI_Version(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.SetVersion("1.2.3")
	w := do(t, srv.Handler(), "GET", "/api/version", "")

	var body map[string]string
	decode(t, w, &body)
	if body["version"] != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", body["version"])
	}
}

func TestAPI_HealthChecks(t *testing.T) {
	srv, _ := newTestServer(t)
	store := memory.NewStore()
	checker := health.NewChecker(health.Options{Store: store})
	srv.SetHealth(checker)

	// A cancelled context runs the checks once and returns.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)

	w := do(t, srv.Handler(), "GET", "/api/health/checks", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body struct {
		Healthy bool            `json:"healthy"`
		Checks  []health.Status `json:"checks"`
	}
	decode(t, w, &body)
	if !body.Healthy || len(body.Checks) != 1 {
		t.Errorf("body = %+v", body)
	}

	_ = store.Close()
	checker.Run(ctx)
	if w := do(t, srv.Handler(), "GET", "/api/health/checks", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("closed store: status = %d, want 503", w.Code)
	}
}

func TestAPI_MetricsDisabledByDefault(t *testing.T) {
	srv, _ := newTestServer(t)
	if w := do(t, srv.Handler(), "GET", "/metrics", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	srv.EnableMetrics()
	if w := do(t, srv.Handler(), "GET", "/metrics", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

// ─── Scenario & Leaderboard ─────────────────────────────────────────────────

func TestAPI_Scenario(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv.Handler(), "GET", "/api/scenario?date=2025-01-01", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var body struct {
		Date     string               `json:"date"`
		Scenario domain.MacroScenario `json:"scenario"`
	}
	decode(t, w, &body)
	if body.Scenario.ID != "rising_rates" {
		t.Errorf("scenario = %q, want rising_rates", body.Scenario.ID)
	}

	w = do(t, srv.Handler(), "GET", "/api/scenario?date=01/02/2025", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", w.Code)
	}
}

func TestAPI_Leaderboard_BadLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, q := range []string{"0", "-1", "abc", "101"} {
		w := do(t, srv.Handler(), "GET", "/api/leaderboard?limit="+q, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", q, w.Code)
		}
	}
}

// ─── Sessions ───────────────────────────────────────────────────────────────

func TestAPI_StartSession(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, "POST", "/api/sessions", `{"user_id":"alice","mode":"macro-aware"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var st session.State
	decode(t, w, &st)
	if st.Mode != domain.ModeMacroAware {
		t.Errorf("mode = %q", st.Mode)
	}
	if st.Deck.Length != 2 {
		t.Errorf("deck length = %d, want 2", st.Deck.Length)
	}

	w = do(t, h, "GET", "/api/sessions/alice", "")
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}
}

func TestAPI_StartSession_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{`, http.StatusBadRequest},
		{"missing user", `{"mode":"classic"}`, http.StatusBadRequest},
		{"bad mode", `{"user_id":"a","mode":"blitz"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv.Handler(), "POST", "/api/sessions", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAPI_UnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), "POST", "/api/sessions/ghost/swipes", `{"action":"like"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if msg := errorMessage(t, w); !strings.Contains(msg, "not found") {
		t.Errorf("message = %q", msg)
	}
}

func TestAPI_Swipe(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	do(t, h, "POST", "/api/sessions", `{"user_id":"alice","mode":"macro-aware"}`)

	w := do(t, h, "POST", "/api/sessions/alice/swipes", `{"candidate_id":"JPM","action":"like"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var res session.SwipeResult
	decode(t, w, &res)
	if res.Score.TotalXP != 25 {
		t.Errorf("xp = %d, want 25 (financials favored under rising rates)", res.Score.TotalXP)
	}
	if res.Stats.SwipeCount != 1 {
		t.Errorf("swipe count = %d", res.Stats.SwipeCount)
	}
	if len(res.Achievements) != 2 {
		t.Errorf("achievements = %d, want first_swipe and first_match", len(res.Achievements))
	}

	w = do(t, h, "GET", "/api/sessions/alice/matches", "")
	var matches struct {
		Matches []domain.Candidate `json:"matches"`
	}
	decode(t, w, &matches)
	if len(matches.Matches) != 1 || matches.Matches[0].ID != "JPM" {
		t.Errorf("matches = %+v", matches.Matches)
	}
}

func TestAPI_Swipe_ErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	do(t, h, "POST", "/api/sessions", `{"user_id":"bob","mode":"classic"}`)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid action", `{"action":"love"}`, http.StatusBadRequest},
		{"invalid horizon", `{"action":"like","horizon":"forever"}`, http.StatusBadRequest},
		{"unknown candidate", `{"candidate_id":"XXX","action":"like"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/api/sessions/bob/swipes", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}

	w := do(t, h, "POST", "/api/sessions/bob/swipes", `{"candidate_id":"JPM","action":"like"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("like: status = %d (body %s)", w.Code, w.Body.String())
	}
	w = do(t, h, "POST", "/api/sessions/bob/swipes", `{"candidate_id":"JPM","action":"like"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("repeat swipe: status = %d, want 409", w.Code)
	}

	// Three super likes spread over rounds spend the daily allowance.
	do(t, h, "POST", "/api/sessions/bob/reset", "")
	for _, id := range []string{"JPM", "NVDA"} {
		if w := do(t, h, "POST", "/api/sessions/bob/swipes", `{"candidate_id":"`+id+`","action":"super_like"}`); w.Code != http.StatusOK {
			t.Fatalf("super like %s: status = %d", id, w.Code)
		}
	}
	do(t, h, "POST", "/api/sessions/bob/reset", "")
	if w := do(t, h, "POST", "/api/sessions/bob/swipes", `{"candidate_id":"JPM","action":"super_like"}`); w.Code != http.StatusOK {
		t.Fatalf("third super like: status = %d", w.Code)
	}
	w = do(t, h, "POST", "/api/sessions/bob/swipes", `{"candidate_id":"NVDA","action":"super_like"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("out of super likes: status = %d, want 409", w.Code)
	}

	do(t, h, "POST", "/api/sessions/bob/reset", "")
	do(t, h, "POST", "/api/sessions/bob/swipes", `{"action":"pass"}`)
	do(t, h, "POST", "/api/sessions/bob/swipes", `{"action":"pass"}`)
	w = do(t, h, "POST", "/api/sessions/bob/swipes", `{"action":"pass"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("exhausted deck: status = %d, want 409", w.Code)
	}
}

func TestAPI_RewindResetAndEnd(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	do(t, h, "POST", "/api/sessions", `{"user_id":"carol"}`)
	do(t, h, "POST", "/api/sessions/carol/swipes", `{"action":"pass"}`)

	w := do(t, h, "POST", "/api/sessions/carol/rewind", "")
	var snap struct {
		Cursor int `json:"cursor"`
	}
	decode(t, w, &snap)
	if snap.Cursor != 0 {
		t.Errorf("cursor after rewind = %d, want 0", snap.Cursor)
	}
	if w := do(t, h, "POST", "/api/sessions/carol/swipes", `{"action":"like"}`); w.Code != http.StatusConflict {
		t.Errorf("swipe on rewound card: status = %d, want 409", w.Code)
	}

	w = do(t, h, "POST", "/api/sessions/carol/advance", "")
	decode(t, w, &snap)
	if snap.Cursor != 1 {
		t.Errorf("cursor after advance = %d, want 1", snap.Cursor)
	}

	if w := do(t, h, "POST", "/api/sessions/carol/reset", ""); w.Code != http.StatusOK {
		t.Errorf("reset status = %d", w.Code)
	}
	if w := do(t, h, "DELETE", "/api/sessions/carol", ""); w.Code != http.StatusNoContent {
		t.Errorf("end status = %d", w.Code)
	}
	if w := do(t, h, "GET", "/api/sessions/carol", ""); w.Code != http.StatusNotFound {
		t.Errorf("get after end status = %d, want 404", w.Code)
	}
}

func TestAPI_ChallengeAchievementsProfile(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	do(t, h, "POST", "/api/sessions", `{"user_id":"dave"}`)
	do(t, h, "POST", "/api/sessions/dave/swipes", `{"candidate_id":"JPM","action":"like"}`)

	w := do(t, h, "GET", "/api/sessions/dave/challenge", "")
	var ch domain.DailyChallenge
	decode(t, w, &ch)
	if ch.Type != domain.ChallengeDividendHunter || ch.Progress != 1 {
		t.Errorf("challenge = %s progress %d", ch.Type, ch.Progress)
	}

	w = do(t, h, "GET", "/api/users/dave/achievements", "")
	var ach struct {
		Unlocked int `json:"unlocked"`
		Total    int `json:"total"`
	}
	decode(t, w, &ach)
	if ach.Unlocked != 2 || ach.Total == 0 {
		t.Errorf("achievements = %d/%d", ach.Unlocked, ach.Total)
	}

	w = do(t, h, "GET", "/api/users/dave/profile", "")
	var p session.Profile
	decode(t, w, &p)
	if p.Stats.TotalXP != 10 {
		t.Errorf("profile xp = %d, want 10", p.Stats.TotalXP)
	}

	w = do(t, h, "GET", "/api/leaderboard?limit=5", "")
	var board struct {
		Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	}
	decode(t, w, &board)
	if len(board.Leaderboard) != 1 || board.Leaderboard[0].UserID != "dave" {
		t.Errorf("leaderboard = %+v", board.Leaderboard)
	}
}

// ─── Event stream ───────────────────────────────────────────────────────────

func TestAPI_EventStream(t *testing.T) {
	srv, hub := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	do(t, srv.Handler(), "POST", "/api/sessions", `{"user_id":"erin"}`)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/erin/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Len() != 1 {
		t.Fatalf("subscribers = %d, want 1", hub.Len())
	}

	// Another user's events are filtered out.
	do(t, srv.Handler(), "POST", "/api/sessions", `{"user_id":"frank"}`)
	do(t, srv.Handler(), "POST", "/api/sessions/frank/swipes", `{"action":"pass"}`)
	do(t, srv.Handler(), "POST", "/api/sessions/erin/swipes", `{"action":"pass"}`)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e domain.Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read: %v", err)
	}
	if e.UserID != "erin" || e.Type != domain.EventSwipeScored {
		t.Errorf("event = %s for %s, want swipe_scored for erin", e.Type, e.UserID)
	}
}

func TestEventHub_PublishNeverBlocks(t *testing.T) {
	hub := NewEventHub()
	defer hub.Close()
	ch, cancel := hub.Subscribe("")
	defer cancel()

	for i := 0; i < subscriberBuffer*2; i++ {
		hub.Publish(domain.Event{Type: domain.EventSwipeScored, UserID: "u"})
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}

func TestEventHub_CancelAndClose(t *testing.T) {
	hub := NewEventHub()
	ch, cancel := hub.Subscribe("u")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	ch2, _ := hub.Subscribe("u")
	hub.Close()
	if _, ok := <-ch2; ok {
		t.Error("channel should be closed after hub.Close")
	}
	ch3, _ := hub.Subscribe("u")
	if _, ok := <-ch3; ok {
		t.Error("subscribe after Close should return a closed channel")
	}
}
