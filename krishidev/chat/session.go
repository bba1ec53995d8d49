// krishidev/chat/session.go
package chat

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

const (
	DefaultMaxTurns = 20
	DefaultMaxUsers = 1000
)

// SystemInstruction is the persona prompt that seeds every session.
const SystemInstruction = "You are Krishi Dev, an agriculture expert for Indian farmers.\n" +
	"Only answer agriculture-related questions like farming, crops, soil, fertilizers, irrigation, mushroom, fruits, vegetables and pest control.\n" +
	"Do NOT answer non-agriculture topics like politics, celebrities, math, science, coding, GK, or English.\n" +
	"If the question is unrelated, respond with: '❌ I can only answer agriculture-related questions.'\n" +
	"Never say you're AI, Gemini, or Google.\n" +
	"Keep replies short, clear, and end with: '🌿 Need more info? Ask your next question.'"

const systemAck = "Understood. I will follow these rules."

// Turn is one role-tagged message in a conversation transcript.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Session holds one user's transcript. The first two turns are always the
// priming pair and are never trimmed. The mutex serializes whole exchanges
// for a user, including the remote call, so turn order matches arrival order.
type Session struct {
	mu        sync.Mutex
	turns     []Turn
	createdAt time.Time
	// lastActive is unix nanos, atomic so LRU eviction can read it without
	// taking the session lock of a user mid-exchange.
	lastActive atomic.Int64
}

func newSession(now time.Time) *Session {
	s := &Session{
		turns:     primingTurns(),
		createdAt: now,
	}
	s.lastActive.Store(now.UnixNano())
	return s
}

func primingTurns() []Turn {
	return []Turn{
		{Role: RoleUser, Text: SystemInstruction},
		{Role: RoleModel, Text: systemAck},
	}
}

// history returns a copy of the transcript. Caller must hold s.mu.
func (s *Session) history() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// appendExchange adds both turns, then drops the oldest non-priming turns
// until the bound holds. Caller must hold s.mu.
func (s *Session) appendExchange(userText, modelText string, maxTurns int) {
	s.turns = append(s.turns,
		Turn{Role: RoleUser, Text: userText},
		Turn{Role: RoleModel, Text: modelText},
	)
	if over := len(s.turns) - maxTurns; over > 0 {
		s.turns = append(s.turns[:2], s.turns[2+over:]...)
	}
	s.lastActive.Store(time.Now().UnixNano())
}

// Store maps user keys to sessions. The store mutex only guards the map;
// each session carries its own lock for the exchange itself, so users
// never serialize against each other.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	maxTurns int
	maxUsers int
}

func NewStore(maxTurns, maxUsers int) *Store {
	if maxTurns <= 2 {
		maxTurns = DefaultMaxTurns
	}
	if maxUsers <= 0 {
		maxUsers = DefaultMaxUsers
	}
	return &Store{
		sessions: make(map[string]*Session),
		maxTurns: maxTurns,
		maxUsers: maxUsers,
	}
}

// GetOrCreate returns the session for userKey, creating a freshly primed one
// if absent. Creation may evict the least recently active user once the
// store is full.
func (st *Store) GetOrCreate(userKey string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[userKey]; ok {
		return s
	}
	st.evictIfFull()
	s := newSession(time.Now())
	st.sessions[userKey] = s
	return s
}

// Replace overwrites any prior session for userKey with one seeded by the
// priming pair plus the given exchange. Used when an image analysis starts
// a fresh conversation context.
func (st *Store) Replace(userKey, userText, modelText string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[userKey]; !ok {
		st.evictIfFull()
	}
	s := newSession(time.Now())
	s.turns = append(s.turns,
		Turn{Role: RoleUser, Text: userText},
		Turn{Role: RoleModel, Text: modelText},
	)
	st.sessions[userKey] = s
	return s
}

// acquire returns the current session for userKey with its lock held.
// A session swapped out by Replace while we waited on its lock is stale,
// so re-check and retry against the replacement.
func (st *Store) acquire(userKey string) *Session {
	for {
		s := st.GetOrCreate(userKey)
		s.mu.Lock()
		st.mu.Lock()
		current := st.sessions[userKey]
		st.mu.Unlock()
		if current == s {
			return s
		}
		s.mu.Unlock()
	}
}

// Turns returns a copy of the transcript for userKey, or nil if no session
// exists.
func (st *Store) Turns(userKey string) []Turn {
	st.mu.Lock()
	s, ok := st.sessions[userKey]
	st.mu.Unlock()
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history()
}

// Len returns the number of tracked users.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// evictIfFull drops the least recently active session when the user map is
// at capacity. Caller must hold st.mu.
func (st *Store) evictIfFull() {
	if len(st.sessions) < st.maxUsers {
		return
	}
	var oldestKey string
	var oldest int64
	for key, s := range st.sessions {
		if active := s.lastActive.Load(); oldestKey == "" || active < oldest {
			oldestKey = key
			oldest = active
		}
	}
	if oldestKey != "" {
		delete(st.sessions, oldestKey)
	}
}
