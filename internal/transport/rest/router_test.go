package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dugout/internal/model"
	"dugout/internal/service"
	"dugout/internal/testutil"
)

func newTestRouter(t *testing.T) (http.Handler, *testutil.MemStore) {
	t.Helper()
	store := testutil.NewMemStore()
	allocator := service.NewCodeAllocator(store.Codes(), 6, 10)
	sessionSvc := service.NewSessionService(
		store.Sessions(), store.Codes(), store.PresenceRepo(), store.Events(), store.Games(),
		store.SessionCache(), store.PresenceCache(),
		allocator,
		2*time.Hour, 5*time.Second,
	)
	router := NewRouter(&Container{
		AuthService:    service.NewAuthService(),
		SessionService: sessionSvc,
	})
	return router, store
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func login(t *testing.T, router http.Handler) string {
	t.Helper()
	w := doJSON(t, router, "POST", "/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", w.Code, w.Body.String())
	}
	var resp model.LoginResponse
	decode(t, w, &resp)
	return resp.Token
}

func createSession(t *testing.T, router http.Handler, ownerToken string) (sessionID, code string) {
	t.Helper()
	w := doJSON(t, router, "POST", "/v1/sessions", ownerToken, map[string]string{
		"gameId": "game-1",
		"title":  "vs Hawks",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		SessionID string `json:"sessionId"`
		Code      string `json:"code"`
	}
	decode(t, w, &resp)
	return resp.SessionID, resp.Code
}

func TestRouter_LoginCreateJoinFlow(t *testing.T) {
	router, store := newTestRouter(t)

	ownerToken := login(t, router)
	sessionID, code := createSession(t, router, ownerToken)
	if len(code) != 6 {
		t.Fatalf("code %q: want 6 digits", code)
	}

	// Participant joins with the code, no prior auth.
	w := doJSON(t, router, "POST", "/v1/join", "", map[string]string{
		"code": code,
		"name": "Sam",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("join status %d: %s", w.Code, w.Body.String())
	}
	var joinResp struct {
		SessionID     string `json:"sessionId"`
		ParticipantID string `json:"participantId"`
		Token         string `json:"token"`
	}
	decode(t, w, &joinResp)
	if joinResp.SessionID != sessionID {
		t.Fatalf("join resolved %s, want %s", joinResp.SessionID, sessionID)
	}
	if joinResp.Token == "" || joinResp.ParticipantID == "" {
		t.Fatalf("join response missing token or id: %+v", joinResp)
	}

	// The participant token reads the shared session.
	w = doJSON(t, router, "GET", "/v1/sessions/"+sessionID, joinResp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status %d: %s", w.Code, w.Body.String())
	}
	var session model.LiveSession
	decode(t, w, &session)
	if session.ID != sessionID || session.Status != model.SessionActive {
		t.Fatalf("unexpected session: %+v", session)
	}

	// Heartbeat keeps the participant live.
	w = doJSON(t, router, "POST", "/v1/sessions/"+sessionID+"/heartbeat", joinResp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("heartbeat status %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, "GET", "/v1/sessions/"+sessionID+"/presence", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("presence status %d: %s", w.Code, w.Body.String())
	}
	var presence struct {
		Participants []model.Presence `json:"participants"`
		Live         []string         `json:"live"`
	}
	decode(t, w, &presence)
	if len(presence.Participants) != 1 || presence.Participants[0].ParticipantID != joinResp.ParticipantID {
		t.Fatalf("presence = %+v", presence.Participants)
	}
	if len(presence.Live) != 1 {
		t.Fatalf("live roster = %v", presence.Live)
	}

	// Both devices write the scoreboard; the store merges per field.
	w = doJSON(t, router, "PATCH", "/v1/sessions/"+sessionID+"/scoreboard", ownerToken, map[string]interface{}{
		"updates": []map[string]interface{}{{"field": "balls", "value": 2}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("owner scoreboard status %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, "PATCH", "/v1/sessions/"+sessionID+"/scoreboard", joinResp.Token, map[string]interface{}{
		"updates": []map[string]interface{}{{"field": "strikes", "value": 1}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("participant scoreboard status %d: %s", w.Code, w.Body.String())
	}
	doc := store.SessionDoc(sessionID)
	if doc.Balls != 2 || doc.Strikes != 1 {
		t.Fatalf("balls=%d strikes=%d after both writes", doc.Balls, doc.Strikes)
	}

	// End the session.
	w = doJSON(t, router, "POST", "/v1/sessions/"+sessionID+"/end", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("end status %d: %s", w.Code, w.Body.String())
	}
	if got := store.SessionDoc(sessionID).Status; got != model.SessionEnded {
		t.Fatalf("status = %s after end", got)
	}
}

func TestRouter_CreateRequiresOwnerToken(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "POST", "/v1/sessions", "", map[string]string{"gameId": "g"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
}

func TestRouter_JoinUnknownCode(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "POST", "/v1/join", "", map[string]string{"code": "000000"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestRouter_JoinExpiredCode(t *testing.T) {
	router, store := newTestRouter(t)
	store.PutCode(&model.JoinCode{
		Code:      "123456",
		SessionID: "sess-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	w := doJSON(t, router, "POST", "/v1/join", "", map[string]string{"code": "123456"})
	if w.Code != http.StatusGone {
		t.Fatalf("status %d, want 410: %s", w.Code, w.Body.String())
	}
}

func TestRouter_ParticipantTokenScopedToSession(t *testing.T) {
	router, _ := newTestRouter(t)
	ownerToken := login(t, router)

	_, code := createSession(t, router, ownerToken)
	otherID, _ := createSession(t, router, ownerToken)

	w := doJSON(t, router, "POST", "/v1/join", "", map[string]string{"code": code})
	if w.Code != http.StatusOK {
		t.Fatalf("join status %d", w.Code)
	}
	var joinResp struct {
		Token string `json:"token"`
	}
	decode(t, w, &joinResp)

	w = doJSON(t, router, "GET", "/v1/sessions/"+otherID, joinResp.Token, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("cross-session read status %d, want 403: %s", w.Code, w.Body.String())
	}
}

func TestRouter_ScoreboardRejectsUnknownField(t *testing.T) {
	router, _ := newTestRouter(t)
	ownerToken := login(t, router)
	sessionID, _ := createSession(t, router, ownerToken)

	w := doJSON(t, router, "PATCH", "/v1/sessions/"+sessionID+"/scoreboard", ownerToken, map[string]interface{}{
		"updates": []map[string]interface{}{{"field": "favoriteColor", "value": 3}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestRouter_PendingCallLifecycle(t *testing.T) {
	router, store := newTestRouter(t)
	ownerToken := login(t, router)
	sessionID, _ := createSession(t, router, ownerToken)

	w := doJSON(t, router, "PUT", "/v1/sessions/"+sessionID+"/pending-call", ownerToken, map[string]interface{}{
		"kind": "strike", "jersey": "12",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set status %d: %s", w.Code, w.Body.String())
	}
	if store.SessionDoc(sessionID).PendingCall == nil {
		t.Fatal("pending call not stored")
	}

	w = doJSON(t, router, "DELETE", "/v1/sessions/"+sessionID+"/pending-call", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear status %d: %s", w.Code, w.Body.String())
	}
	if store.SessionDoc(sessionID).PendingCall != nil {
		t.Fatal("pending call survived clear")
	}
}

func TestRouter_LineupAppendAndEvents(t *testing.T) {
	router, store := newTestRouter(t)
	ownerToken := login(t, router)
	sessionID, _ := createSession(t, router, ownerToken)

	w := doJSON(t, router, "POST", "/v1/sessions/"+sessionID+"/lineup", ownerToken, map[string]string{"jersey": "23"})
	if w.Code != http.StatusCreated {
		t.Fatalf("append status %d: %s", w.Code, w.Body.String())
	}
	var appendResp struct {
		PlayerID string `json:"playerId"`
	}
	decode(t, w, &appendResp)
	if appendResp.PlayerID == "" {
		t.Fatal("missing generated player id")
	}

	// Duplicate jersey conflicts.
	w = doJSON(t, router, "POST", "/v1/sessions/"+sessionID+"/lineup", ownerToken, map[string]string{"jersey": "23"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate append status %d, want 409: %s", w.Code, w.Body.String())
	}

	doc := store.SessionDoc(sessionID)
	if len(doc.Jerseys) != 1 || len(doc.PlayerIDs) != 1 {
		t.Fatalf("lineup = %v / %v", doc.Jerseys, doc.PlayerIDs)
	}

	w = doJSON(t, router, "POST", "/v1/sessions/"+sessionID+"/events", ownerToken, map[string]interface{}{
		"pitch": 1, "result": "ball",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add event status %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, "GET", "/v1/sessions/"+sessionID+"/events", ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list events status %d: %s", w.Code, w.Body.String())
	}
	var events []model.Event
	decode(t, w, &events)
	if len(events) != 1 {
		t.Fatalf("have %d events, want 1", len(events))
	}
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status %d", w.Code)
	}
}
