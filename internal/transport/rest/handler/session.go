package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"dugout/internal/model"
	"dugout/internal/repository"
	"dugout/internal/service"
	"dugout/internal/transport/rest/middleware"
)

// SessionHandler handles live-session endpoints
type SessionHandler struct {
	sessionSvc *service.SessionService
	authSvc    *service.AuthService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService, authSvc *service.AuthService) *SessionHandler {
	return &SessionHandler{
		sessionSvc: sessionSvc,
		authSvc:    authSvc,
	}
}

// CreateSessionRequest is the request body for creating a session
type CreateSessionRequest struct {
	GameID string `json:"gameId"`
	Title  string `json:"title"`
}

// Create handles POST /v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, code, err := h.sessionSvc.CreateSession(r.Context(), ownerID, req.GameID, req.Title)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"sessionId": session.ID,
		"code":      code,
		"expiresAt": session.ExpiresAt,
	})
}

// Get handles GET /v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	session, err := h.sessionSvc.GetSession(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// JoinRequest is the request body for joining by code
type JoinRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Join handles POST /v1/join. Public: the participant identity is
// minted here (or reused from a prior participant token so re-joins
// keep their presence record).
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	participantID := h.reuseParticipantID(r)
	if participantID == "" {
		participantID = "p_" + uuid.New().String()[:8]
	}

	sessionID, err := h.sessionSvc.JoinByCode(r.Context(), req.Code, participantID, req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	expiresAt := time.Now().Add(2 * time.Hour)
	if session, err := h.sessionSvc.GetSession(r.Context(), sessionID); err == nil {
		expiresAt = session.ExpiresAt
	}

	token, err := h.authSvc.GenerateParticipantToken(sessionID, participantID, expiresAt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"sessionId":     sessionID,
		"participantId": participantID,
		"token":         token,
	})
}

// Heartbeat handles POST /v1/sessions/{id}/heartbeat
func (h *SessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	identity := middleware.CallerIdentity(r.Context())
	if identity == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.sessionSvc.Heartbeat(r.Context(), id, identity); err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Presence handles GET /v1/sessions/{id}/presence
func (h *SessionHandler) Presence(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	records, err := h.sessionSvc.Presence(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	live, err := h.sessionSvc.LiveParticipants(r.Context(), id)
	if err != nil {
		// Roster cache is advisory; fall back to the durable records.
		live = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"participants": records,
		"live":         live,
	})
}

// ScoreboardRequest is the request body for scoreboard updates
type ScoreboardRequest struct {
	Updates []model.ScoreUpdate `json:"updates"`
}

// UpdateScoreboard handles PATCH /v1/sessions/{id}/scoreboard
func (h *SessionHandler) UpdateScoreboard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	var req ScoreboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, u := range req.Updates {
		if !u.Field.Valid() {
			writeError(w, http.StatusBadRequest, "unknown scoreboard field: "+string(u.Field))
			return
		}
	}

	if err := h.sessionSvc.UpdateScoreboard(r.Context(), id, req.Updates...); err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetPendingCall handles PUT /v1/sessions/{id}/pending-call
func (h *SessionHandler) SetPendingCall(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	var call model.Value
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeError(w, http.StatusBadRequest, "invalid call payload")
		return
	}

	if err := h.sessionSvc.SetPendingCall(r.Context(), id, call); err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ClearPendingCall handles DELETE /v1/sessions/{id}/pending-call
func (h *SessionHandler) ClearPendingCall(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	if err := h.sessionSvc.ClearPendingCall(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SelectPlayerRequest is the request body for selecting a player
type SelectPlayerRequest struct {
	PlayerID string `json:"playerId"`
	Jersey   string `json:"jersey"`
}

// SelectPlayer handles PUT /v1/sessions/{id}/selected-player
func (h *SessionHandler) SelectPlayer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	var req SelectPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.sessionSvc.SelectPlayer(r.Context(), id, req.PlayerID, req.Jersey); err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ClearSelectedPlayer handles DELETE /v1/sessions/{id}/selected-player
func (h *SessionHandler) ClearSelectedPlayer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	if err := h.sessionSvc.ClearSelectedPlayer(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AppendPlayerRequest is the request body for a lineup append
type AppendPlayerRequest struct {
	Jersey string `json:"jersey"`
}

// AppendPlayer handles POST /v1/sessions/{id}/lineup
func (h *SessionHandler) AppendPlayer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	var req AppendPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Jersey == "" {
		writeError(w, http.StatusBadRequest, "missing jersey")
		return
	}

	playerID, err := h.sessionSvc.AppendLineupPlayer(r.Context(), id, req.Jersey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"playerId": playerID})
}

// MigrateLineup handles POST /v1/sessions/{id}/lineup/migrate
func (h *SessionHandler) MigrateLineup(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	playerIDs, err := h.sessionSvc.MigrateLineup(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playerIds": playerIDs})
}

// AddEvent handles POST /v1/sessions/{id}/events
func (h *SessionHandler) AddEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	var payload model.Value
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	event, err := h.sessionSvc.AddEvent(r.Context(), id, middleware.CallerIdentity(r.Context()), payload)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /v1/sessions/{id}/events
func (h *SessionHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.allowSession(w, r, id) {
		return
	}

	events, err := h.sessionSvc.ListEvents(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// End handles POST /v1/sessions/{id}/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.sessionSvc.EndSession(r.Context(), id, ownerID); err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// allowSession rejects participant tokens scoped to a different
// session. Owner tokens are not session scoped.
func (h *SessionHandler) allowSession(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	scope := middleware.GetSessionID(r.Context())
	if scope != "" && scope != sessionID {
		writeError(w, http.StatusForbidden, "token not valid for this session")
		return false
	}
	return true
}

// reuseParticipantID recovers the participant identity from a prior
// token so a re-join refreshes the same presence record.
func (h *SessionHandler) reuseParticipantID(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	claims, err := h.authSvc.ValidateParticipantToken(strings.TrimPrefix(header, prefix))
	if err != nil {
		return ""
	}
	return claims.ParticipantID
}

// respondServiceError maps service errors to HTTP statuses so the UI
// can tell the user whether to retry, ask for a fresh code, or give up.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotSignedIn):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrCodeNotFound),
		errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrSessionEnded):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, service.ErrMalformedCode):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrCodeExhausted):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrCreateTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrDuplicateJersey):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrLineupMismatch):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
