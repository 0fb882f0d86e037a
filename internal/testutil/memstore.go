// Package testutil provides in-memory stand-ins for the Mongo
// repositories and Redis caches. They honor the same atomicity
// contracts (check-then-create, serialized lineup mutations, upsert
// merge semantics) under a single mutex so concurrency properties can
// be tested without a database.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"dugout/internal/cache"
	"dugout/internal/model"
	"dugout/internal/repository"
)

type MemStore struct {
	mu sync.Mutex

	sessions map[string]*model.LiveSession
	codes    map[string]*model.JoinCode
	presence map[string]*model.Presence
	events   []*model.Event
	games    map[string]*model.Game

	sessionCache  map[string]*model.LiveSession
	presenceCache map[string]map[string]time.Time

	// BlockSessionCreate, when non-nil, makes SessionRepo.Create wait
	// until the channel is closed. Used to exercise the creation
	// timeout path.
	BlockSessionCreate chan struct{}
}

func NewMemStore() *MemStore {
	return &MemStore{
		sessions:      make(map[string]*model.LiveSession),
		codes:         make(map[string]*model.JoinCode),
		presence:      make(map[string]*model.Presence),
		games:         make(map[string]*model.Game),
		sessionCache:  make(map[string]*model.LiveSession),
		presenceCache: make(map[string]map[string]time.Time),
	}
}

func presenceKey(sessionID, participantID string) string {
	return sessionID + "/" + participantID
}

func cloneSession(s *model.LiveSession) *model.LiveSession {
	if s == nil {
		return nil
	}
	out := *s
	out.Jerseys = append([]string(nil), s.Jerseys...)
	out.PlayerIDs = append([]string(nil), s.PlayerIDs...)
	return &out
}

// Direct accessors for assertions.

func (m *MemStore) SessionDoc(id string) *model.LiveSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSession(m.sessions[id])
}

func (m *MemStore) CodeDoc(code string) *model.JoinCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.codes[code]; ok {
		out := *c
		return &out
	}
	return nil
}

func (m *MemStore) CodeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes)
}

// PutCode installs a code document directly (pre-occupied or expired
// codes for tests).
func (m *MemStore) PutCode(c *model.JoinCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := *c
	m.codes[c.Code] = &doc
}

func (m *MemStore) PutGame(g *model.Game) {
	m.mu.Lock()
	defer m.mu.Unlock()
	game := *g
	m.games[g.ID] = &game
}

func (m *MemStore) PutSession(s *model.LiveSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = cloneSession(s)
}

func (m *MemStore) PresenceDoc(sessionID, participantID string) *model.Presence {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.presence[presenceKey(sessionID, participantID)]; ok {
		out := *p
		return &out
	}
	return nil
}

// Repository views.

func (m *MemStore) Sessions() repository.SessionRepo      { return &memSessions{m} }
func (m *MemStore) Codes() repository.JoinCodeRepo        { return &memCodes{m} }
func (m *MemStore) PresenceRepo() repository.PresenceRepo { return &memPresence{m} }
func (m *MemStore) Events() repository.EventRepo          { return &memEvents{m} }
func (m *MemStore) Games() repository.GameRepo            { return &memGames{m} }
func (m *MemStore) SessionCache() cache.SessionCache      { return &memSessionCache{m} }
func (m *MemStore) PresenceCache() cache.PresenceCache    { return &memPresenceCache{m} }

type memCodes struct{ s *MemStore }

func (r *memCodes) CreateUnique(ctx context.Context, code *model.JoinCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.codes[code.Code]; exists {
		return repository.ErrCodeTaken
	}
	doc := *code
	r.s.codes[code.Code] = &doc
	return nil
}

func (r *memCodes) GetByCode(ctx context.Context, code string) (*model.JoinCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	doc, ok := r.s.codes[code]
	if !ok {
		return nil, nil
	}
	out := *doc
	return &out, nil
}

func (r *memCodes) MarkConsumed(ctx context.Context, code, participantID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	doc, ok := r.s.codes[code]
	if !ok {
		return repository.ErrNotFound
	}
	doc.ConsumedBy = participantID
	doc.ConsumedAt = &at
	return nil
}

type memSessions struct{ s *MemStore }

func (r *memSessions) Create(ctx context.Context, session *model.LiveSession) error {
	if r.s.BlockSessionCreate != nil {
		<-r.s.BlockSessionCreate
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	r.s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *memSessions) GetByID(ctx context.Context, id string) (*model.LiveSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return cloneSession(r.s.sessions[id]), nil
}

func (r *memSessions) get(id string) (*model.LiveSession, error) {
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return session, nil
}

func (r *memSessions) UpdateScoreboard(ctx context.Context, id string, updates []model.ScoreUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, err := r.get(id)
	if err != nil {
		return err
	}
	for _, u := range updates {
		switch u.Field {
		case model.FieldBalls:
			session.Balls = u.Value
		case model.FieldStrikes:
			session.Strikes = u.Value
		case model.FieldOuts:
			session.Outs = u.Value
		case model.FieldInning:
			session.Inning = u.Value
		case model.FieldHits:
			session.Hits = u.Value
		case model.FieldWalks:
			session.Walks = u.Value
		case model.FieldHomeScore:
			session.HomeScore = u.Value
		case model.FieldAwayScore:
			session.AwayScore = u.Value
		}
	}
	return nil
}

func (r *memSessions) SetLineup(ctx context.Context, id string, jerseys, playerIDs []string) error {
	if len(jerseys) != len(playerIDs) {
		return repository.ErrLineupMismatch
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, err := r.get(id)
	if err != nil {
		return err
	}
	session.Jerseys = append([]string(nil), jerseys...)
	session.PlayerIDs = append([]string(nil), playerIDs...)
	return nil
}

func (r *memSessions) SetPendingCall(ctx context.Context, id string, call model.Value) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, err := r.get(id)
	if err != nil {
		return err
	}
	session.PendingCall = &call
	return nil
}

func (r *memSessions) ClearPendingCall(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, err := r.get(id)
	if err != nil {
		return err
	}
	session.PendingCall = nil
	return nil
}

func (r *memSessions) SetSelectedPlayer(ctx context.Context, id, playerID, jersey string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, err := r.get(id)
	if err != nil {
		return err
	}
	session.SelectedPlayerID = playerID
	session.SelectedJersey = jersey
	return nil
}

func (r *memSessions) ClearSelectedPlayer(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, err := r.get(id)
	if err != nil {
		return err
	}
	session.SelectedPlayerID = ""
	session.SelectedJersey = ""
	return nil
}

func (r *memSessions) SetStatus(ctx context.Context, id string, status model.SessionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, err := r.get(id)
	if err != nil {
		return err
	}
	session.Status = status
	return nil
}

func (r *memSessions) AppendPlayer(ctx context.Context, id, jersey string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, err := r.get(id)
	if err != nil {
		return "", err
	}
	if len(session.Jerseys) != len(session.PlayerIDs) {
		return "", repository.ErrLineupMismatch
	}
	for _, existing := range session.Jerseys {
		if existing == jersey {
			return "", repository.ErrDuplicateJersey
		}
	}
	playerID := uuid.New().String()
	session.Jerseys = append(session.Jerseys, jersey)
	session.PlayerIDs = append(session.PlayerIDs, playerID)
	return playerID, nil
}

func (r *memSessions) MigrateLineup(ctx context.Context, id string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if len(session.PlayerIDs) == len(session.Jerseys) && len(session.PlayerIDs) > 0 {
		return append([]string(nil), session.PlayerIDs...), nil
	}
	if len(session.Jerseys) == 0 {
		return []string{}, nil
	}
	playerIDs := make([]string, len(session.Jerseys))
	for i := range playerIDs {
		playerIDs[i] = uuid.New().String()
	}
	session.PlayerIDs = playerIDs
	return append([]string(nil), playerIDs...), nil
}

type memPresence struct{ s *MemStore }

func (r *memPresence) Join(ctx context.Context, sessionID, participantID, name string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := presenceKey(sessionID, participantID)
	p, ok := r.s.presence[key]
	if !ok {
		p = &model.Presence{
			SessionID:     sessionID,
			ParticipantID: participantID,
			JoinedAt:      now,
		}
		r.s.presence[key] = p
	}
	p.LastSeenAt = now
	if name != "" {
		p.Name = name
	}
	return nil
}

func (r *memPresence) Heartbeat(ctx context.Context, sessionID, participantID string, now time.Time) error {
	return r.Join(ctx, sessionID, participantID, "", now)
}

func (r *memPresence) ListBySession(ctx context.Context, sessionID string) ([]*model.Presence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Presence
	for _, p := range r.s.presence {
		if p.SessionID == sessionID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memEvents struct{ s *MemStore }

func (r *memEvents) Add(ctx context.Context, event *model.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	copied := *event
	r.s.events = append(r.s.events, &copied)
	return nil
}

func (r *memEvents) ListBySession(ctx context.Context, sessionID string) ([]*model.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Event
	for _, e := range r.s.events {
		if e.SessionID == sessionID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memGames struct{ s *MemStore }

func (r *memGames) Create(ctx context.Context, game *model.Game) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if game.ID == "" {
		game.ID = uuid.New().String()
	}
	copied := *game
	r.s.games[game.ID] = &copied
	return nil
}

func (r *memGames) GetByID(ctx context.Context, ownerID, gameID string) (*model.Game, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	game, ok := r.s.games[gameID]
	if !ok || game.OwnerID != ownerID {
		return nil, nil
	}
	copied := *game
	return &copied, nil
}

type memSessionCache struct{ s *MemStore }

func (c *memSessionCache) Set(ctx context.Context, session *model.LiveSession) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.sessionCache[session.ID] = cloneSession(session)
	return nil
}

func (c *memSessionCache) Get(ctx context.Context, id string) (*model.LiveSession, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return cloneSession(c.s.sessionCache[id]), nil
}

func (c *memSessionCache) Delete(ctx context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	delete(c.s.sessionCache, id)
	return nil
}

type memPresenceCache struct{ s *MemStore }

func (c *memPresenceCache) Touch(ctx context.Context, sessionID, participantID string, at time.Time) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	roster, ok := c.s.presenceCache[sessionID]
	if !ok {
		roster = make(map[string]time.Time)
		c.s.presenceCache[sessionID] = roster
	}
	roster[participantID] = at
	return nil
}

func (c *memPresenceCache) Live(ctx context.Context, sessionID string, since time.Time) ([]string, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	live := []string{}
	for participantID, seen := range c.s.presenceCache[sessionID] {
		if !seen.Before(since) {
			live = append(live, participantID)
		}
	}
	return live, nil
}

func (c *memPresenceCache) Delete(ctx context.Context, sessionID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	delete(c.s.presenceCache, sessionID)
	return nil
}
