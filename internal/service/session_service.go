package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"dugout/internal/cache"
	"dugout/internal/latch"
	"dugout/internal/model"
	"dugout/internal/repository"
)

// liveWindow is how recent a heartbeat must be for a participant to
// count as live in the roster.
const liveWindow = 90 * time.Second

// WS message types pushed to connected devices.
const (
	MsgParticipantJoined  = "participant_joined"
	MsgScoreboardUpdated  = "scoreboard_updated"
	MsgLineupUpdated      = "lineup_updated"
	MsgPendingCall        = "pending_call"
	MsgPendingCallCleared = "pending_call_cleared"
	MsgSelectionChanged   = "selection_changed"
	MsgEventAdded         = "event_added"
	MsgSessionEnded       = "session_ended"
)

// SessionService coordinates shared live sessions: lifecycle, join
// resolution, presence, and the shared field updates both devices apply
// against the same session document.
type SessionService struct {
	sessions repository.SessionRepo
	codes    repository.JoinCodeRepo
	presence repository.PresenceRepo
	events   repository.EventRepo
	games    repository.GameRepo

	sessionCache  cache.SessionCache
	presenceCache cache.PresenceCache

	allocator   *CodeAllocator
	broadcaster Broadcaster

	sessionTTL    time.Duration
	createTimeout time.Duration
}

// NewSessionService creates a new session service
func NewSessionService(
	sessions repository.SessionRepo,
	codes repository.JoinCodeRepo,
	presence repository.PresenceRepo,
	events repository.EventRepo,
	games repository.GameRepo,
	sessionCache cache.SessionCache,
	presenceCache cache.PresenceCache,
	allocator *CodeAllocator,
	sessionTTL, createTimeout time.Duration,
) *SessionService {
	if sessionTTL <= 0 {
		sessionTTL = 2 * time.Hour
	}
	if createTimeout <= 0 {
		createTimeout = 20 * time.Second
	}
	return &SessionService{
		sessions:      sessions,
		codes:         codes,
		presence:      presence,
		events:        events,
		games:         games,
		sessionCache:  sessionCache,
		presenceCache: presenceCache,
		allocator:     allocator,
		sessionTTL:    sessionTTL,
		createTimeout: createTimeout,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

type createOutcome struct {
	session *model.LiveSession
	code    string
	err     error
}

// CreateSession creates a shared session for the owner's game and
// issues its join code. The store path runs under a one-shot gate
// racing a wall-clock timer, so the caller gets exactly one outcome
// even if the store stalls; a late store result is only logged.
func (s *SessionService) CreateSession(ctx context.Context, ownerID, gameID, title string) (*model.LiveSession, string, error) {
	if ownerID == "" {
		return nil, "", ErrNotSignedIn
	}

	gate := latch.New()
	done := make(chan createOutcome, 1)

	go func() {
		session, code, err := s.doCreateSession(ctx, ownerID, gameID, title)
		if gate.TryFinish() {
			done <- createOutcome{session: session, code: code, err: err}
			return
		}
		log.Printf("create session: store result arrived after timeout (owner %s)", ownerID)
	}()

	timer := time.AfterFunc(s.createTimeout, func() {
		if gate.TryFinish() {
			done <- createOutcome{err: ErrCreateTimeout}
		}
	})

	out := <-done
	timer.Stop()
	return out.session, out.code, out.err
}

// doCreateSession runs the three ordered creation steps. Step 2 is best
// effort; steps 1 and 3 are fatal. A step-3 failure leaves a session
// document with no working join code behind — accepted, the caller must
// not assume failure means nothing was created.
func (s *SessionService) doCreateSession(ctx context.Context, ownerID, gameID, title string) (*model.LiveSession, string, error) {
	now := time.Now()
	session := &model.LiveSession{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		GameID:    gameID,
		Title:     title,
		Status:    model.SessionActive,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		Inning:    1,
		Jerseys:   []string{},
		PlayerIDs: []string{},
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("create session document: %w", err)
	}

	s.seedLineup(ctx, session)

	code, err := s.allocator.Allocate(ctx, session.ID, ownerID, session.ExpiresAt)
	if err != nil {
		return nil, "", err
	}

	s.refreshCache(ctx, session.ID)
	return session, code, nil
}

// seedLineup copies the owner's game lineup into the fresh session.
// Best effort: the session is usable without a pre-seeded lineup, so
// every failure here is logged and swallowed.
func (s *SessionService) seedLineup(ctx context.Context, session *model.LiveSession) {
	game, err := s.games.GetByID(ctx, session.OwnerID, session.GameID)
	if err != nil {
		log.Printf("seed lineup: read game %s: %v", session.GameID, err)
		return
	}
	if game == nil || len(game.Jerseys) == 0 {
		return
	}

	playerIDs := game.PlayerIDs
	if len(playerIDs) != len(game.Jerseys) {
		// Ids missing or mismatched: regenerate the whole array rather
		// than attempting a partial repair.
		playerIDs = make([]string, len(game.Jerseys))
		for i := range playerIDs {
			playerIDs[i] = uuid.New().String()
		}
	}

	if err := s.sessions.SetLineup(ctx, session.ID, game.Jerseys, playerIDs); err != nil {
		log.Printf("seed lineup: write session %s: %v", session.ID, err)
		return
	}
	session.Jerseys = game.Jerseys
	session.PlayerIDs = playerIDs
}

// JoinByCode resolves a typed or shared code to a session id and
// registers the participant's presence. Codes are multi-use until they
// expire; consumption metadata is informational.
func (s *SessionService) JoinByCode(ctx context.Context, code, participantID, name string) (string, error) {
	if participantID == "" {
		return "", ErrNotSignedIn
	}

	doc, err := s.codes.GetByCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("read join code: %w", err)
	}
	if doc == nil {
		return "", ErrCodeNotFound
	}
	now := time.Now()
	if doc.Expired(now) {
		return "", ErrCodeExpired
	}
	if doc.SessionID == "" {
		return "", ErrMalformedCode
	}

	// The code can outlive the session it points at.
	if session, err := s.sessions.GetByID(ctx, doc.SessionID); err == nil && session != nil && session.Status == model.SessionEnded {
		return "", ErrSessionEnded
	}

	// Presence is advisory: a failed upsert does not block the join.
	if err := s.presence.Join(ctx, doc.SessionID, participantID, name, now); err != nil {
		log.Printf("join: presence upsert for %s: %v", participantID, err)
	}
	s.touchRoster(ctx, doc.SessionID, participantID, now)

	if err := s.codes.MarkConsumed(ctx, code, participantID, now); err != nil {
		log.Printf("join: mark code %s consumed: %v", code, err)
	}

	s.broadcastToOwner(doc.SessionID, MsgParticipantJoined, map[string]string{
		"participantId": participantID,
		"name":          name,
	})

	return doc.SessionID, nil
}

// Heartbeat refreshes the participant's last-seen instant. Errors are
// transport-level only and non-fatal to the caller.
func (s *SessionService) Heartbeat(ctx context.Context, sessionID, participantID string) error {
	now := time.Now()
	s.touchRoster(ctx, sessionID, participantID, now)
	return s.presence.Heartbeat(ctx, sessionID, participantID, now)
}

// GetSession returns the session document, preferring the Redis read
// model and falling back to the store.
func (s *SessionService) GetSession(ctx context.Context, id string) (*model.LiveSession, error) {
	if cached, err := s.sessionCache.Get(ctx, id); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		log.Printf("session cache read %s: %v", id, err)
	}

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if err := s.sessionCache.Set(ctx, session); err != nil {
		log.Printf("session cache write %s: %v", id, err)
	}
	return session, nil
}

// Presence lists the durable presence records of a session.
func (s *SessionService) Presence(ctx context.Context, sessionID string) ([]*model.Presence, error) {
	return s.presence.ListBySession(ctx, sessionID)
}

// LiveParticipants returns the ids seen within the live window.
func (s *SessionService) LiveParticipants(ctx context.Context, sessionID string) ([]string, error) {
	return s.presenceCache.Live(ctx, sessionID, time.Now().Add(-liveWindow))
}

// UpdateScoreboard applies the given counter updates as one partial
// write. No compare-and-swap: concurrent writes interleave last-write-
// wins per field, and distinct fields never conflict.
func (s *SessionService) UpdateScoreboard(ctx context.Context, sessionID string, updates ...model.ScoreUpdate) error {
	if err := s.translateNotFound(s.sessions.UpdateScoreboard(ctx, sessionID, updates)); err != nil {
		return err
	}
	s.refreshCache(ctx, sessionID)
	s.broadcastToAll(sessionID, MsgScoreboardUpdated, updates)
	return nil
}

// SetPendingCall publishes an in-flight call awaiting acknowledgment.
func (s *SessionService) SetPendingCall(ctx context.Context, sessionID string, call model.Value) error {
	if err := s.translateNotFound(s.sessions.SetPendingCall(ctx, sessionID, call)); err != nil {
		return err
	}
	s.refreshCache(ctx, sessionID)
	s.broadcastToAll(sessionID, MsgPendingCall, call)
	return nil
}

// ClearPendingCall removes the pending call field entirely.
func (s *SessionService) ClearPendingCall(ctx context.Context, sessionID string) error {
	if err := s.translateNotFound(s.sessions.ClearPendingCall(ctx, sessionID)); err != nil {
		return err
	}
	s.refreshCache(ctx, sessionID)
	s.broadcastToAll(sessionID, MsgPendingCallCleared, nil)
	return nil
}

// SelectPlayer points the session at the current subject of scoring.
func (s *SessionService) SelectPlayer(ctx context.Context, sessionID, playerID, jersey string) error {
	if err := s.translateNotFound(s.sessions.SetSelectedPlayer(ctx, sessionID, playerID, jersey)); err != nil {
		return err
	}
	s.refreshCache(ctx, sessionID)
	s.broadcastToAll(sessionID, MsgSelectionChanged, map[string]string{
		"playerId": playerID,
		"jersey":   jersey,
	})
	return nil
}

// ClearSelectedPlayer clears the current selection.
func (s *SessionService) ClearSelectedPlayer(ctx context.Context, sessionID string) error {
	if err := s.translateNotFound(s.sessions.ClearSelectedPlayer(ctx, sessionID)); err != nil {
		return err
	}
	s.refreshCache(ctx, sessionID)
	s.broadcastToAll(sessionID, MsgSelectionChanged, map[string]string{})
	return nil
}

// AppendLineupPlayer adds a jersey to the lineup, generating its stable
// id. Serialized by the store transaction so concurrent appenders keep
// the parallel arrays length-equal.
func (s *SessionService) AppendLineupPlayer(ctx context.Context, sessionID, jersey string) (string, error) {
	playerID, err := s.sessions.AppendPlayer(ctx, sessionID, jersey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	s.refreshCache(ctx, sessionID)
	s.broadcastToAll(sessionID, MsgLineupUpdated, map[string]string{
		"jersey":   jersey,
		"playerId": playerID,
	})
	return playerID, nil
}

// MigrateLineup repairs a missing or mismatched stable-id array.
// Idempotent: a healthy lineup is left untouched.
func (s *SessionService) MigrateLineup(ctx context.Context, sessionID string) ([]string, error) {
	playerIDs, err := s.sessions.MigrateLineup(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	s.refreshCache(ctx, sessionID)
	return playerIDs, nil
}

// AddEvent appends a pitch/result event to the session's log. The
// payload is stored opaquely under a store-generated key.
func (s *SessionService) AddEvent(ctx context.Context, sessionID, authorID string, payload model.Value) (*model.Event, error) {
	event := &model.Event{
		SessionID: sessionID,
		AuthorID:  authorID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := s.events.Add(ctx, event); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}
	s.broadcastToAll(sessionID, MsgEventAdded, event)
	return event, nil
}

// ListEvents returns the session's event log in append order.
func (s *SessionService) ListEvents(ctx context.Context, sessionID string) ([]*model.Event, error) {
	return s.events.ListBySession(ctx, sessionID)
}

// EndSession marks the session ended. Owner only.
func (s *SessionService) EndSession(ctx context.Context, sessionID, ownerID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.OwnerID != ownerID {
		return ErrNotOwner
	}

	if err := s.translateNotFound(s.sessions.SetStatus(ctx, sessionID, model.SessionEnded)); err != nil {
		return err
	}
	if err := s.sessionCache.Delete(ctx, sessionID); err != nil {
		log.Printf("session cache delete %s: %v", sessionID, err)
	}
	s.broadcastToAll(sessionID, MsgSessionEnded, nil)
	if s.broadcaster != nil {
		s.broadcaster.DisconnectSession(sessionID)
	}
	return nil
}

func (s *SessionService) translateNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

func (s *SessionService) touchRoster(ctx context.Context, sessionID, participantID string, now time.Time) {
	if err := s.presenceCache.Touch(ctx, sessionID, participantID, now); err != nil {
		log.Printf("presence roster touch %s/%s: %v", sessionID, participantID, err)
	}
}

func (s *SessionService) refreshCache(ctx context.Context, sessionID string) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil || session == nil {
		return
	}
	if err := s.sessionCache.Set(ctx, session); err != nil {
		log.Printf("session cache write %s: %v", sessionID, err)
	}
}

func (s *SessionService) broadcastToAll(sessionID, msgType string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAll(sessionID, msgType, payload)
	}
}

func (s *SessionService) broadcastToOwner(sessionID, msgType string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToOwner(sessionID, msgType, payload)
	}
}
